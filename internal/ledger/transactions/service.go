package transactions

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/quillbooks/quillbooks/internal/ledger/accounts"
	"github.com/quillbooks/quillbooks/internal/ledger/balance"
	"github.com/quillbooks/quillbooks/internal/ledger/shared"
	internalShared "github.com/quillbooks/quillbooks/internal/shared"
)

// AccountDirectory is the read-side view of the account hierarchy the ledger
// needs outside of a posting transaction.
type AccountDirectory interface {
	Get(ctx context.Context, id int64) (accounts.Account, error)
}

// AuditPort records mutating operations.
type AuditPort interface {
	Record(ctx context.Context, log internalShared.AuditLog) error
}

// Service posts, edits and deletes balanced transactions. Every mutation
// locks the referenced accounts in ascending id order, rewrites splits and
// refreshes the touched balances inside one database transaction.
type Service struct {
	repo     Repository
	accounts AccountDirectory
	cache    *accounts.BalanceCache
	audit    AuditPort
	now      func() time.Time
}

// NewService builds the ledger service.
func NewService(repo Repository, dir AccountDirectory, cache *accounts.BalanceCache, audit AuditPort) *Service {
	return &Service{repo: repo, accounts: dir, cache: cache, audit: audit, now: time.Now}
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Get returns one transaction with its splits.
func (s *Service) Get(ctx context.Context, id int64) (Transaction, error) {
	return s.repo.Get(ctx, id)
}

// Post validates and stores a new balanced transaction. Negative split
// amounts are normalized to the opposite side first, so the balance check
// always compares positive integer totals.
func (s *Service) Post(ctx context.Context, in PostingInput) (Transaction, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return Transaction{}, err
	}
	var posted Transaction
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		touched, err := s.lockAndCheck(ctx, tx, in.AccountIDs())
		if err != nil {
			return err
		}
		t, err := tx.InsertTransaction(ctx, in.Date, in.Comment)
		if err != nil {
			return err
		}
		splits, err := tx.InsertSplits(ctx, t.ID, in.Splits)
		if err != nil {
			return err
		}
		t.Splits = splits
		if err := s.refreshAll(ctx, tx, touched); err != nil {
			return err
		}
		posted = t
		return nil
	})
	if err != nil {
		return Transaction{}, err
	}
	_ = s.cache.Invalidate(ctx, in.AccountIDs()...)
	s.record(ctx, "transaction.post", posted.ID, map[string]any{"splits": len(posted.Splits)})
	return posted, nil
}

// Edit atomically replaces the transaction's header and full split set. The
// union of old and new accounts is locked and refreshed, so an account that
// only appears in the old version still ends up with a correct balance.
func (s *Service) Edit(ctx context.Context, id int64, in PostingInput) (Transaction, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return Transaction{}, err
	}
	var edited Transaction
	var touched []int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		cur, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		ids := unionIDs(in.AccountIDs(), splitAccountIDs(cur.Splits))
		refs, err := tx.GetAccountsForUpdate(ctx, ids)
		if err != nil {
			return err
		}
		if err := checkRefs(refs, in.AccountIDs()); err != nil {
			return err
		}
		if _, err := tx.DeleteSplits(ctx, id); err != nil {
			return err
		}
		if err := tx.UpdateTransaction(ctx, id, in.Date, in.Comment); err != nil {
			return err
		}
		splits, err := tx.InsertSplits(ctx, id, in.Splits)
		if err != nil {
			return err
		}
		if err := s.refreshAll(ctx, tx, ids); err != nil {
			return err
		}
		t, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		t.Splits = splits
		edited = t
		touched = ids
		return nil
	})
	if err != nil {
		return Transaction{}, err
	}
	_ = s.cache.Invalidate(ctx, touched...)
	s.record(ctx, "transaction.edit", edited.ID, map[string]any{"splits": len(edited.Splits)})
	return edited, nil
}

// Delete removes a transaction and all of its splits, then refreshes the
// balances the splits contributed to.
func (s *Service) Delete(ctx context.Context, id int64) error {
	var touched []int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		cur, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		ids := splitAccountIDs(cur.Splits)
		if _, err := tx.GetAccountsForUpdate(ctx, ids); err != nil {
			return err
		}
		if _, err := tx.DeleteSplits(ctx, id); err != nil {
			return err
		}
		if err := tx.DeleteTransaction(ctx, id); err != nil {
			return err
		}
		if err := s.refreshAll(ctx, tx, ids); err != nil {
			return err
		}
		touched = ids
		return nil
	})
	if err != nil {
		return err
	}
	_ = s.cache.Invalidate(ctx, touched...)
	s.record(ctx, "transaction.delete", id, nil)
	return nil
}

// ListForAccount returns the account's annotated ledger view: each split as
// seen from the account, the accounts on the other side, and a running
// balance folded in posting order under the account's normal sign.
func (s *Service) ListForAccount(ctx context.Context, accountID int64) ([]LedgerRow, error) {
	acct, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListForAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	entries := make([]balance.Entry, len(rows))
	for i, r := range rows {
		entries[i] = balance.Entry{Amount: r.Amount, Side: r.Side}
	}
	running := balance.Running(acct.Sign, 0, entries)
	for i := range rows {
		rows[i].Signed = balance.Signed(acct.Sign, entries[i])
		rows[i].Display = shared.FormatMinorUnits(rows[i].Amount)
		rows[i].Running = running[i]
	}
	return rows, nil
}

// lockAndCheck locks the referenced accounts and verifies every reference
// points at an existing leaf.
func (s *Service) lockAndCheck(ctx context.Context, tx TxRepository, ids []int64) ([]int64, error) {
	refs, err := tx.GetAccountsForUpdate(ctx, ids)
	if err != nil {
		return nil, err
	}
	if err := checkRefs(refs, ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *Service) refreshAll(ctx context.Context, tx TxRepository, ids []int64) error {
	for _, id := range ids {
		if err := tx.RefreshBalance(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// checkRefs verifies that every account id in want was locked and that the
// locked accounts are leaves. Interior accounts never carry splits.
func checkRefs(refs []AccountRef, want []int64) error {
	byID := make(map[int64]AccountRef, len(refs))
	for _, ref := range refs {
		byID[ref.ID] = ref
	}
	for _, id := range want {
		ref, ok := byID[id]
		if !ok {
			return fmt.Errorf("%w: account %d", shared.ErrInvalidAccountRef, id)
		}
		if !ref.IsLeaf() {
			return fmt.Errorf("%w: account %d has children", shared.ErrInvalidAccountRef, id)
		}
	}
	return nil
}

func splitAccountIDs(splits []Split) []int64 {
	seen := map[int64]bool{}
	var ids []int64
	for _, s := range splits {
		if !seen[s.AccountID] {
			seen[s.AccountID] = true
			ids = append(ids, s.AccountID)
		}
	}
	return sortIDs(ids)
}

func unionIDs(a, b []int64) []int64 {
	seen := map[int64]bool{}
	var ids []int64
	for _, id := range a {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, id := range b {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return sortIDs(ids)
}

func sortIDs(ids []int64) []int64 {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
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
		Entity:   "transaction",
		EntityID: fmt.Sprintf("%d", id),
		Meta:     meta,
		At:       s.now(),
	})
}
