package transactions

import (
	"time"

	"github.com/quillbooks/quillbooks/internal/ledger/shared"
)

// Transaction is a balanced set of splits posted on one date.
type Transaction struct {
	ID        int64     `json:"id"`
	Date      time.Time `json:"date"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Splits    []Split   `json:"splits"`
}

// Split is one leg of a transaction: a positive amount in minor units on one
// side of one leaf account. Reconciliation state lives here, per split.
type Split struct {
	ID            int64              `json:"id"`
	TransactionID int64              `json:"transaction_id"`
	AccountID     int64              `json:"account_id"`
	Amount        int64              `json:"amount"`
	Side          shared.AccountSign `json:"side"`
	Reconciled    bool               `json:"reconciled"`
	ReconciledAt  *time.Time         `json:"reconciled_at,omitempty"`
}

// AccountRef is the slice of account state the ledger needs while posting:
// identity, normal sign and nested-set bounds for the leaf check.
type AccountRef struct {
	ID   int64
	Sign shared.AccountSign
	Lft  int64
	Rgt  int64
}

// IsLeaf reports whether the account can carry splits.
func (a AccountRef) IsLeaf() bool {
	return a.Rgt-a.Lft == 1
}

// LedgerRow is one annotated line of an account's ledger view: the split as
// seen from the queried account, the other side's accounts, and the running
// balance.
type LedgerRow struct {
	TransactionID int64              `json:"transaction_id"`
	SplitID       int64              `json:"split_id"`
	Date          time.Time          `json:"date"`
	Comment       string             `json:"comment"`
	Amount        int64              `json:"amount"`
	Side          shared.AccountSign `json:"side"`
	Signed        int64              `json:"signed_amount"`
	Display       string             `json:"display_amount"`
	OtherAccounts []int64            `json:"other_accounts"`
	Reconciled    bool               `json:"reconciled"`
	ReconciledAt  *time.Time         `json:"reconciled_at,omitempty"`
	Running       int64              `json:"running_balance"`
}
