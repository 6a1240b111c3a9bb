package shared

import (
	"errors"
	"fmt"
)

// Base error kinds. Every concrete ledger error wraps exactly one of these so
// the transport layer can map it to a status code with errors.Is.
var (
	// ErrValidation rejects a request before any write.
	ErrValidation = errors.New("ledger: validation failed")
	// ErrConflict rejects a structurally unsafe mutation.
	ErrConflict = errors.New("ledger: structural conflict")
	// ErrNotFound indicates a missing account or transaction.
	ErrNotFound = errors.New("ledger: not found")
)

var (
	// ErrUnbalanced indicates debit and credit totals differ.
	ErrUnbalanced = fmt.Errorf("%w: debits do not equal credits", ErrValidation)
	// ErrTooFewSplits indicates fewer than two splits.
	ErrTooFewSplits = fmt.Errorf("%w: transaction requires at least two splits", ErrValidation)
	// ErrNonPositiveAmount indicates a zero split amount after normalization.
	ErrNonPositiveAmount = fmt.Errorf("%w: split amount must be positive", ErrValidation)
	// ErrSideInvalid indicates a split side other than DEBIT or CREDIT.
	ErrSideInvalid = fmt.Errorf("%w: split side must be DEBIT or CREDIT", ErrValidation)
	// ErrInvalidAccountRef indicates a split referencing a missing or non-leaf account.
	ErrInvalidAccountRef = fmt.Errorf("%w: split references missing or non-leaf account", ErrValidation)
	// ErrInvalidParent indicates a create or move under a nonexistent parent.
	ErrInvalidParent = fmt.Errorf("%w: parent account does not exist", ErrValidation)
	// ErrCyclicMove indicates a move under the account itself or a descendant.
	ErrCyclicMove = fmt.Errorf("%w: cannot move account under its own subtree", ErrValidation)
	// ErrNameRequired indicates an empty account name.
	ErrNameRequired = fmt.Errorf("%w: account name cannot be empty", ErrValidation)
	// ErrInvalidAccountType indicates a type outside the fixed enumeration.
	ErrInvalidAccountType = fmt.Errorf("%w: unknown account type", ErrValidation)
	// ErrReconcileDateRegression rejects moving the reconcile-through watermark backwards.
	ErrReconcileDateRegression = fmt.Errorf("%w: reconcile-through date precedes current watermark", ErrValidation)

	// ErrHasChildren blocks deleting an account with child accounts.
	ErrHasChildren = fmt.Errorf("%w: account has child accounts", ErrConflict)
	// ErrHasTransactions blocks deleting an account with posted splits.
	ErrHasTransactions = fmt.Errorf("%w: account has posted transactions", ErrConflict)
	// ErrParentHasTransactions blocks nesting under a leaf that carries splits,
	// which would leave split references on an interior account.
	ErrParentHasTransactions = fmt.Errorf("%w: parent account has posted transactions", ErrConflict)

	// ErrAccountNotFound indicates an unknown account ID.
	ErrAccountNotFound = fmt.Errorf("%w: account", ErrNotFound)
	// ErrTransactionNotFound indicates an unknown transaction ID.
	ErrTransactionNotFound = fmt.Errorf("%w: transaction", ErrNotFound)
)
