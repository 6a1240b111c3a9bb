package accounts

import (
	"time"

	"github.com/quillbooks/quillbooks/internal/ledger/shared"
)

// Account is one node of the chart-of-accounts tree. Lft/Rgt are nested-set
// bounds: for every account Lft < Rgt, and any two accounts are either
// disjoint or one strictly contains the other.
type Account struct {
	ID                int64              `json:"id"`
	ParentID          int64              `json:"parent_id"`
	Name              string             `json:"name"`
	FullName          string             `json:"full_name"`
	Memo              string             `json:"memo"`
	Type              shared.AccountType `json:"type"`
	Sign              shared.AccountSign `json:"sign"`
	Lft               int64              `json:"-"`
	Rgt               int64              `json:"-"`
	Balance           int64              `json:"balance"`
	ReconciledThrough *time.Time         `json:"reconciled_through,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// IsLeaf reports whether the account has no children. Only leaf accounts may
// carry splits.
func (a Account) IsLeaf() bool {
	return a.Rgt-a.Lft == 1
}

// Contains reports whether other sits strictly inside a's subtree. O(1) on
// nested-set bounds.
func (a Account) Contains(other Account) bool {
	return other.Lft > a.Lft && other.Rgt < a.Rgt
}

// FullNameSeparator joins ancestor names in derived full names.
const FullNameSeparator = ":"
