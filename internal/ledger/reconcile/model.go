package reconcile

import (
	"time"

	"github.com/quillbooks/quillbooks/internal/ledger/shared"
)

// WorksheetRow is one candidate line on a reconciliation worksheet: a split
// not yet absorbed into the prior reconciled balance, annotated with its
// signed amount and the running total seeded at that prior balance.
type WorksheetRow struct {
	TransactionID int64              `json:"transaction_id"`
	SplitID       int64              `json:"split_id"`
	Date          time.Time          `json:"date"`
	Comment       string             `json:"comment"`
	Amount        int64              `json:"amount"`
	Side          shared.AccountSign `json:"side"`
	Signed        int64              `json:"signed_amount"`
	Display       string             `json:"display_amount"`
	Reconciled    bool               `json:"reconciled"`
	ReconciledAt  *time.Time         `json:"reconciled_at,omitempty"`
	Running       int64              `json:"running_balance"`
}

// Worksheet is the statement-matching view for one account as of a search
// date. Difference compares EndingBalance, the final running total over every
// window row, against the statement's expected ending balance; ReconciledTotal
// carries the reconciled-only figure alongside it.
type Worksheet struct {
	AccountID       int64          `json:"account_id"`
	SearchDate      time.Time      `json:"search_date"`
	ExpectedEnding  int64          `json:"expected_ending_balance"`
	PriorReconciled int64          `json:"prior_reconciled_balance"`
	ReconciledTotal int64          `json:"reconciled_total"`
	EndingBalance   int64          `json:"ending_balance"`
	Difference      int64          `json:"difference"`
	Rows            []WorksheetRow `json:"rows"`
}
