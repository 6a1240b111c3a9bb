package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quillbooks/quillbooks/internal/ledger/shared"
	internalShared "github.com/quillbooks/quillbooks/internal/shared"
)

// AuditPort records mutating operations.
type AuditPort interface {
	Record(ctx context.Context, log internalShared.AuditLog) error
}

// Service owns the structural (parent/lft/rgt) fields of every account.
// Structural mutations serialize on the hierarchy advisory lock because an
// insert, move or delete rewrites bounds across the entire tree.
type Service struct {
	repo  Repository
	cache *BalanceCache
	audit AuditPort
	now   func() time.Time
}

// NewService builds the hierarchy service.
func NewService(repo Repository, cache *BalanceCache, audit AuditPort) *Service {
	return &Service{repo: repo, cache: cache, audit: audit, now: time.Now}
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// List returns all accounts in ledger (lft) order.
func (s *Service) List(ctx context.Context) ([]Account, error) {
	return s.repo.List(ctx)
}

// Get returns one account or ErrAccountNotFound.
func (s *Service) Get(ctx context.Context, id int64) (Account, error) {
	return s.repo.Get(ctx, id)
}

// Balance returns the account's current balance, serving from redis when
// warm. The database column is authoritative; transaction posting refreshes
// it and invalidates the cache entry.
func (s *Service) Balance(ctx context.Context, id int64) (int64, error) {
	if bal, ok := s.cache.Get(ctx, id); ok {
		return bal, nil
	}
	acct, err := s.repo.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	_ = s.cache.Set(ctx, id, acct.Balance)
	return acct.Balance, nil
}

// IsDescendant reports whether candidate sits inside ancestor's subtree.
func (s *Service) IsDescendant(ctx context.Context, candidateID, ancestorID int64) (bool, error) {
	candidate, err := s.repo.Get(ctx, candidateID)
	if err != nil {
		return false, err
	}
	ancestor, err := s.repo.Get(ctx, ancestorID)
	if err != nil {
		return false, err
	}
	return ancestor.Contains(candidate), nil
}

// Create inserts a new account as a child of parentID (0 = root level). A
// non-root child inherits the parent's type so a subtree stays uniformly
// typed; the sign is always recomputed from the type, never trusted from
// input.
func (s *Service) Create(ctx context.Context, in CreateInput) (Account, error) {
	if err := in.Validate(); err != nil {
		return Account{}, err
	}
	var created Account
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.LockHierarchy(ctx); err != nil {
			return err
		}
		typ := in.Type
		if in.ParentID != 0 {
			parent, err := tx.Get(ctx, in.ParentID)
			if err != nil {
				if errors.Is(err, shared.ErrNotFound) {
					return shared.ErrInvalidParent
				}
				return err
			}
			if err := checkParentHasNoSplits(ctx, tx, parent); err != nil {
				return err
			}
			typ = parent.Type
		}
		sign, err := shared.SignFor(typ)
		if err != nil {
			return err
		}
		after, err := s.findSpot(ctx, tx, in.ParentID, in.Name, 0)
		if err != nil {
			return err
		}
		if err := tx.OpenGap(ctx, after, 2); err != nil {
			return err
		}
		inserted, err := tx.Insert(ctx, Account{
			ParentID: in.ParentID,
			Name:     in.Name,
			Memo:     in.Memo,
			Type:     typ,
			Sign:     sign,
			Lft:      after + 1,
			Rgt:      after + 2,
		})
		if err != nil {
			return err
		}
		full, err := s.fullName(ctx, tx, inserted.ID)
		if err != nil {
			return err
		}
		if err := tx.UpdateFullName(ctx, inserted.ID, full); err != nil {
			return err
		}
		inserted.FullName = full
		created = inserted
		return nil
	})
	if err != nil {
		return Account{}, err
	}
	s.record(ctx, "account.create", created.ID, map[string]any{"name": created.Name, "type": created.Type})
	return created, nil
}

// Update renames, retypes or moves an account. A parent change relocates the
// whole subtree: the old gap is closed, a new one opened, and every
// descendant shifted by the same delta so relative order and depth are
// preserved. Type and sign propagate to the subtree to keep it uniform.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (Account, error) {
	if err := in.Validate(); err != nil {
		return Account{}, err
	}
	var updated Account
	var memberIDs []int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.LockHierarchy(ctx); err != nil {
			return err
		}
		cur, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		if in.ParentID == cur.ID {
			return shared.ErrCyclicMove
		}
		typ := in.Type
		if in.ParentID != 0 {
			parent, err := tx.Get(ctx, in.ParentID)
			if err != nil {
				if errors.Is(err, shared.ErrNotFound) {
					return shared.ErrInvalidParent
				}
				return err
			}
			if cur.Contains(parent) {
				return shared.ErrCyclicMove
			}
			if err := checkParentHasNoSplits(ctx, tx, parent); err != nil {
				return err
			}
			typ = parent.Type
		}
		sign, err := shared.SignFor(typ)
		if err != nil {
			return err
		}

		// Snapshot the subtree before bounds move underneath it.
		members, err := tx.SubtreeMembers(ctx, cur.Lft, cur.Rgt)
		if err != nil {
			return err
		}
		width := cur.Rgt - cur.Lft + 1
		oldLft := cur.Lft

		if err := tx.CloseGap(ctx, cur.Rgt, width); err != nil {
			return err
		}
		after, err := s.findSpot(ctx, tx, in.ParentID, in.Name, cur.ID)
		if err != nil {
			return err
		}
		if err := tx.OpenGap(ctx, after, width); err != nil {
			return err
		}
		shift := after + 1 - oldLft

		// A sign flip inverts what "increase" means, so stored balances
		// negate to stay consistent with the new convention.
		signFlipped := sign != cur.Sign

		cur.ParentID = in.ParentID
		cur.Name = in.Name
		cur.Memo = in.Memo
		cur.Type = typ
		cur.Sign = sign
		cur.Lft = after + 1
		cur.Rgt = after + width
		if signFlipped {
			cur.Balance = -cur.Balance
		}
		root, err := tx.Update(ctx, cur)
		if err != nil {
			return err
		}
		for _, m := range members {
			if m.ID == cur.ID {
				continue
			}
			m.Lft += shift
			m.Rgt += shift
			m.Type = typ
			m.Sign = sign
			if signFlipped {
				m.Balance = -m.Balance
			}
			if _, err := tx.Update(ctx, m); err != nil {
				return err
			}
		}
		// Full names depend on final bounds, so recompute last.
		for _, m := range members {
			full, err := s.fullName(ctx, tx, m.ID)
			if err != nil {
				return err
			}
			if err := tx.UpdateFullName(ctx, m.ID, full); err != nil {
				return err
			}
			if m.ID == root.ID {
				root.FullName = full
			}
			memberIDs = append(memberIDs, m.ID)
		}
		updated = root
		return nil
	})
	if err != nil {
		return Account{}, err
	}
	_ = s.cache.Invalidate(ctx, memberIDs...)
	s.record(ctx, "account.update", updated.ID, map[string]any{"name": updated.Name, "parent_id": updated.ParentID})
	return updated, nil
}

// Delete removes a leaf account with no posted splits and shrinks ancestor
// bounds symmetrically to insertion.
func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.LockHierarchy(ctx); err != nil {
			return err
		}
		cur, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		if !cur.IsLeaf() {
			return shared.ErrHasChildren
		}
		n, err := tx.SplitCount(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return shared.ErrHasTransactions
		}
		if err := tx.Delete(ctx, id); err != nil {
			return err
		}
		return tx.CloseGap(ctx, cur.Rgt, 2)
	})
	if err != nil {
		return err
	}
	_ = s.cache.Invalidate(ctx, id)
	s.record(ctx, "account.delete", id, nil)
	return nil
}

// RecordReconciledThrough advances the account's reconcile-through
// watermark. Moving it backwards is rejected; un-reconciling happens split by
// split, never by rewinding the watermark.
func (s *Service) RecordReconciledThrough(ctx context.Context, id int64, date time.Time) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		cur, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		if cur.ReconciledThrough != nil && date.Before(*cur.ReconciledThrough) {
			return shared.ErrReconcileDateRegression
		}
		return tx.SetReconciledThrough(ctx, id, date)
	})
	if err != nil {
		return err
	}
	s.record(ctx, "account.reconciled_through", id, map[string]any{"date": date.Format(time.DateOnly)})
	return nil
}

// findSpot locates the bound value the new subtree should open after,
// keeping siblings ordered by name. selfID is skipped during a move so the
// account never sorts against itself.
func (s *Service) findSpot(ctx context.Context, tx TxRepository, parentID int64, name string, selfID int64) (int64, error) {
	children, err := tx.DirectChildren(ctx, parentID)
	if err != nil {
		return 0, err
	}
	var before *Account
	for i := range children {
		if children[i].ID == selfID {
			continue
		}
		if children[i].Name < name {
			before = &children[i]
		}
	}
	if before != nil {
		return before.Rgt, nil
	}
	if parentID != 0 {
		// First child: open the gap just inside the parent's left bound.
		// Reread because a preceding CloseGap may have moved it.
		parent, err := tx.Get(ctx, parentID)
		if err != nil {
			return 0, err
		}
		return parent.Lft, nil
	}
	return 0, nil
}

// checkParentHasNoSplits rejects nesting under a leaf that carries splits.
// Splits only ever reference leaves, and giving such an account children
// would silently break that.
func checkParentHasNoSplits(ctx context.Context, tx TxRepository, parent Account) error {
	if !parent.IsLeaf() {
		return nil
	}
	n, err := tx.SplitCount(ctx, parent.ID)
	if err != nil {
		return err
	}
	if n > 0 {
		return shared.ErrParentHasTransactions
	}
	return nil
}

func (s *Service) fullName(ctx context.Context, tx TxRepository, id int64) (string, error) {
	chain, err := tx.Parents(ctx, id)
	if err != nil {
		return "", err
	}
	names := make([]string, 0, len(chain))
	for _, a := range chain {
		names = append(names, a.Name)
	}
	return strings.Join(names, FullNameSeparator), nil
}

func (s *Service) record(ctx context.Context, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if meta == nil {
		meta = map[string]any{}
	}
	meta["correlation_id"] = uuid.NewString()
	_ = s.audit.Record(ctx, internalShared.AuditLog{
		Action:   action,
		Entity:   "account",
		EntityID: fmt.Sprintf("%d", id),
		Meta:     meta,
		At:       s.now(),
	})
}
