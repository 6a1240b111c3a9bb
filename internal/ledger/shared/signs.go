package shared

// AccountSign is the side of the books a split sits on.
type AccountSign string

const (
	SignDebit  AccountSign = "DEBIT"
	SignCredit AccountSign = "CREDIT"
)

// Opposite returns the other side.
func (s AccountSign) Opposite() AccountSign {
	if s == SignDebit {
		return SignCredit
	}
	return SignDebit
}

// Valid reports whether s is one of the two known sides.
func (s AccountSign) Valid() bool {
	return s == SignDebit || s == SignCredit
}

// AccountType enumerates ledger account categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeIncome    AccountType = "INCOME"
	AccountTypeExpense   AccountType = "EXPENSE"
	AccountTypeGain      AccountType = "GAIN"
	AccountTypeLoss      AccountType = "LOSS"
)

// AccountTypeSign fixes the normal balance side per account type. A split
// whose side matches the account's normal sign increases the displayed
// balance; a mismatching split decreases it. Not user-editable.
var AccountTypeSign = map[AccountType]AccountSign{
	AccountTypeAsset:     SignDebit,
	AccountTypeExpense:   SignDebit,
	AccountTypeLoss:      SignDebit,
	AccountTypeLiability: SignCredit,
	AccountTypeEquity:    SignCredit,
	AccountTypeIncome:    SignCredit,
	AccountTypeGain:      SignCredit,
}

// SignFor resolves the normal sign for an account type.
func SignFor(t AccountType) (AccountSign, error) {
	sign, ok := AccountTypeSign[t]
	if !ok {
		return "", ErrInvalidAccountType
	}
	return sign, nil
}

// TypeInfo pairs an account type with its normal sign for the public
// account-type listing.
type TypeInfo struct {
	Type AccountType `json:"type"`
	Sign AccountSign `json:"sign"`
}

// AccountTypes returns the fixed enumeration in a stable order.
func AccountTypes() []TypeInfo {
	ordered := []AccountType{
		AccountTypeAsset,
		AccountTypeLiability,
		AccountTypeEquity,
		AccountTypeIncome,
		AccountTypeExpense,
		AccountTypeGain,
		AccountTypeLoss,
	}
	out := make([]TypeInfo, 0, len(ordered))
	for _, t := range ordered {
		out = append(out, TypeInfo{Type: t, Sign: AccountTypeSign[t]})
	}
	return out
}
