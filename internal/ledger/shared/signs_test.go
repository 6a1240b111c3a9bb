package shared

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignTableIsTotal(t *testing.T) {
	types := AccountTypes()
	require.Len(t, types, 7)
	for _, info := range types {
		sign, err := SignFor(info.Type)
		require.NoError(t, err)
		assert.Equal(t, info.Sign, sign)
		assert.True(t, sign.Valid())
	}
}

func TestSignTableConventions(t *testing.T) {
	debitNormal := []AccountType{AccountTypeAsset, AccountTypeExpense, AccountTypeLoss}
	creditNormal := []AccountType{AccountTypeLiability, AccountTypeEquity, AccountTypeIncome, AccountTypeGain}
	for _, tt := range debitNormal {
		sign, err := SignFor(tt)
		require.NoError(t, err)
		assert.Equal(t, SignDebit, sign, "type %s", tt)
	}
	for _, tt := range creditNormal {
		sign, err := SignFor(tt)
		require.NoError(t, err)
		assert.Equal(t, SignCredit, sign, "type %s", tt)
	}
}

func TestSignForUnknownType(t *testing.T) {
	_, err := SignFor(AccountType("GOODWILL"))
	assert.ErrorIs(t, err, ErrInvalidAccountType)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestOpposite(t *testing.T) {
	assert.Equal(t, SignCredit, SignDebit.Opposite())
	assert.Equal(t, SignDebit, SignCredit.Opposite())
}

func TestErrorKinds(t *testing.T) {
	assert.True(t, errors.Is(ErrUnbalanced, ErrValidation))
	assert.True(t, errors.Is(ErrCyclicMove, ErrValidation))
	assert.True(t, errors.Is(ErrHasChildren, ErrConflict))
	assert.True(t, errors.Is(ErrAccountNotFound, ErrNotFound))
	assert.False(t, errors.Is(ErrUnbalanced, ErrConflict))
}

func TestFormatMinorUnits(t *testing.T) {
	assert.Equal(t, "5,000.00", FormatMinorUnits(500000))
	assert.Equal(t, "0.05", FormatMinorUnits(5))
	assert.Equal(t, "-12.34", FormatMinorUnits(-1234))
	assert.Equal(t, "1,234,567.89", FormatMinorUnits(123456789))
}
