package accounts

import (
	"time"

	"github.com/quillbooks/quillbooks/internal/ledger/shared"
)

// CreateInput groups fields required to create an account.
type CreateInput struct {
	ParentID int64              `json:"parent_id" validate:"gte=0"`
	Type     shared.AccountType `json:"type" validate:"required"`
	Name     string             `json:"name" validate:"required,max=200"`
	Memo     string             `json:"memo" validate:"max=2000"`
}

// Validate checks the domain invariants independent of transport validation.
func (in CreateInput) Validate() error {
	if in.Name == "" {
		return shared.ErrNameRequired
	}
	if in.ParentID == 0 {
		if _, err := shared.SignFor(in.Type); err != nil {
			return err
		}
	}
	return nil
}

// UpdateInput groups fields for rename/retype/move. A ParentID differing from
// the stored one is a subtree move.
type UpdateInput struct {
	ParentID int64              `json:"parent_id" validate:"gte=0"`
	Type     shared.AccountType `json:"type" validate:"required"`
	Name     string             `json:"name" validate:"required,max=200"`
	Memo     string             `json:"memo" validate:"max=2000"`
}

// Validate checks the domain invariants independent of transport validation.
func (in UpdateInput) Validate() error {
	return CreateInput(in).Validate()
}

// ReconciledThroughInput carries the reconcile-through watermark date.
type ReconciledThroughInput struct {
	Date time.Time `json:"date" validate:"required"`
}
