package transactions

import (
	"sort"
	"time"

	"github.com/quillbooks/quillbooks/internal/ledger/shared"
)

// SplitInput describes one leg of a posting request. A negative amount is an
// input convenience: Normalize flips it to the opposite side before any
// validation runs.
type SplitInput struct {
	AccountID int64              `json:"account_id" validate:"required,gt=0"`
	Amount    int64              `json:"amount" validate:"required"`
	Side      shared.AccountSign `json:"side" validate:"required"`
}

// PostingInput groups fields required to post or edit a transaction.
type PostingInput struct {
	Date    time.Time    `json:"date" validate:"required"`
	Comment string       `json:"comment" validate:"max=2000"`
	Splits  []SplitInput `json:"splits" validate:"required,min=2,dive"`
}

// Normalize rewrites negative amounts as positive amounts on the opposite
// side. It runs exactly once, before Validate; stored splits are always
// positive.
func (in *PostingInput) Normalize() {
	for i := range in.Splits {
		if in.Splits[i].Amount < 0 {
			in.Splits[i].Amount = -in.Splits[i].Amount
			in.Splits[i].Side = in.Splits[i].Side.Opposite()
		}
	}
}

// Validate enforces the posting invariants: at least two splits, valid
// sides, positive amounts and exact debit/credit equality in integer minor
// units. Account references are checked separately, inside the posting
// transaction.
func (in PostingInput) Validate() error {
	if len(in.Splits) < 2 {
		return shared.ErrTooFewSplits
	}
	var debit, credit int64
	for _, split := range in.Splits {
		if !split.Side.Valid() {
			return shared.ErrSideInvalid
		}
		if split.Amount <= 0 {
			return shared.ErrNonPositiveAmount
		}
		if split.Side == shared.SignDebit {
			debit += split.Amount
		} else {
			credit += split.Amount
		}
	}
	if debit != credit {
		return shared.ErrUnbalanced
	}
	return nil
}

// AccountIDs returns the distinct referenced account IDs in ascending order,
// the lock acquisition order for posting.
func (in PostingInput) AccountIDs() []int64 {
	seen := make(map[int64]bool, len(in.Splits))
	ids := make([]int64, 0, len(in.Splits))
	for _, s := range in.Splits {
		if !seen[s.AccountID] {
			seen[s.AccountID] = true
			ids = append(ids, s.AccountID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
