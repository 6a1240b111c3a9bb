package transactions

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillbooks/quillbooks/internal/ledger/shared"
)

func posting(splits ...SplitInput) PostingInput {
	return PostingInput{Date: time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC), Splits: splits}
}

func TestValidateRequiresTwoSplits(t *testing.T) {
	in := posting(SplitInput{AccountID: 1, Amount: 100, Side: shared.SignDebit})
	require.ErrorIs(t, in.Validate(), shared.ErrTooFewSplits)

	in = posting()
	require.ErrorIs(t, in.Validate(), shared.ErrTooFewSplits)
}

func TestValidateRejectsBadSplits(t *testing.T) {
	in := posting(
		SplitInput{AccountID: 1, Amount: 100, Side: "SIDEWAYS"},
		SplitInput{AccountID: 2, Amount: 100, Side: shared.SignCredit},
	)
	require.ErrorIs(t, in.Validate(), shared.ErrSideInvalid)

	in = posting(
		SplitInput{AccountID: 1, Amount: 0, Side: shared.SignDebit},
		SplitInput{AccountID: 2, Amount: 0, Side: shared.SignCredit},
	)
	require.ErrorIs(t, in.Validate(), shared.ErrNonPositiveAmount)

	in = posting(
		SplitInput{AccountID: 1, Amount: 100, Side: shared.SignDebit},
		SplitInput{AccountID: 2, Amount: 99, Side: shared.SignCredit},
	)
	require.ErrorIs(t, in.Validate(), shared.ErrUnbalanced)
	require.ErrorIs(t, in.Validate(), shared.ErrValidation)
}

func TestValidateAcceptsMultiLegSplits(t *testing.T) {
	// One paycheck credit funding two debit legs.
	in := posting(
		SplitInput{AccountID: 1, Amount: 400000, Side: shared.SignDebit},
		SplitInput{AccountID: 2, Amount: 100000, Side: shared.SignDebit},
		SplitInput{AccountID: 3, Amount: 500000, Side: shared.SignCredit},
	)
	require.NoError(t, in.Validate())
}

func TestNormalizeFlipsNegativeAmounts(t *testing.T) {
	in := posting(
		SplitInput{AccountID: 1, Amount: -500, Side: shared.SignCredit},
		SplitInput{AccountID: 2, Amount: 500, Side: shared.SignCredit},
	)
	// Before normalization the input looks unbalanced on its face.
	in.Normalize()
	require.NoError(t, in.Validate())
	assert.Equal(t, int64(500), in.Splits[0].Amount)
	assert.Equal(t, shared.SignDebit, in.Splits[0].Side)
	assert.Equal(t, shared.SignCredit, in.Splits[1].Side)
}

func TestValidateRandomizedBalancedSets(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for iter := 0; iter < 50; iter++ {
		n := 2 + rng.Intn(5)
		splits := make([]SplitInput, 0, n+1)
		var debit, credit int64
		for i := 0; i < n; i++ {
			amount := int64(1 + rng.Intn(100000))
			side := shared.SignDebit
			if rng.Intn(2) == 0 {
				side = shared.SignCredit
				credit += amount
			} else {
				debit += amount
			}
			splits = append(splits, SplitInput{AccountID: int64(i + 1), Amount: amount, Side: side})
		}
		// Settle the remainder so the set balances exactly.
		diff := debit - credit
		switch {
		case diff > 0:
			splits = append(splits, SplitInput{AccountID: int64(n + 1), Amount: diff, Side: shared.SignCredit})
		case diff < 0:
			splits = append(splits, SplitInput{AccountID: int64(n + 1), Amount: -diff, Side: shared.SignDebit})
		default:
			splits = append(splits, SplitInput{AccountID: int64(n + 1), Amount: 7, Side: shared.SignDebit},
				SplitInput{AccountID: int64(n + 2), Amount: 7, Side: shared.SignCredit})
		}
		in := posting(splits...)
		require.NoError(t, in.Validate())

		// Any one-cent tamper must break the balance.
		in.Splits[0].Amount++
		require.ErrorIs(t, in.Validate(), shared.ErrUnbalanced)
	}
}

func TestAccountIDsSortedUnique(t *testing.T) {
	in := posting(
		SplitInput{AccountID: 9, Amount: 10, Side: shared.SignDebit},
		SplitInput{AccountID: 3, Amount: 5, Side: shared.SignCredit},
		SplitInput{AccountID: 9, Amount: 5, Side: shared.SignCredit},
	)
	assert.Equal(t, []int64{3, 9}, in.AccountIDs())
}
