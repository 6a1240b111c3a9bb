package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/quillbooks/quillbooks/internal/ledger/accounts"
	"github.com/quillbooks/quillbooks/internal/ledger/balance"
	"github.com/quillbooks/quillbooks/internal/ledger/shared"
	internalShared "github.com/quillbooks/quillbooks/internal/shared"
)

// AccountDirectory is the slice of the account hierarchy the worksheet
// needs: lookups for sign and watermark, plus the watermark writer.
type AccountDirectory interface {
	Get(ctx context.Context, id int64) (accounts.Account, error)
	RecordReconciledThrough(ctx context.Context, id int64, date time.Time) error
}

// AuditPort records mutating operations.
type AuditPort interface {
	Record(ctx context.Context, log internalShared.AuditLog) error
}

// Service marks splits reconciled against bank statements and builds the
// statement-matching worksheet.
type Service struct {
	repo     Repository
	accounts AccountDirectory
	audit    AuditPort
	now      func() time.Time
}

// NewService builds the reconciliation service.
func NewService(repo Repository, dir AccountDirectory, audit AuditPort) *Service {
	return &Service{repo: repo, accounts: dir, audit: audit, now: time.Now}
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Reconcile marks the transaction's splits on the account reconciled as of
// date. Repeating the call with the same date is a no-op in effect.
func (s *Service) Reconcile(ctx context.Context, transactionID, accountID int64, date time.Time) error {
	n, err := s.repo.SetReconciled(ctx, transactionID, accountID, date)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: no splits for transaction %d on account %d", shared.ErrTransactionNotFound, transactionID, accountID)
	}
	s.record(ctx, "split.reconcile", transactionID, map[string]any{"account_id": accountID, "date": date.Format(time.DateOnly)})
	return nil
}

// Unreconcile clears the reconciliation mark. Idempotent.
func (s *Service) Unreconcile(ctx context.Context, transactionID, accountID int64) error {
	n, err := s.repo.SetUnreconciled(ctx, transactionID, accountID)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: no splits for transaction %d on account %d", shared.ErrTransactionNotFound, transactionID, accountID)
	}
	s.record(ctx, "split.unreconcile", transactionID, map[string]any{"account_id": accountID})
	return nil
}

// RecordThroughDate advances the account's reconcile-through watermark.
func (s *Service) RecordThroughDate(ctx context.Context, accountID int64, date time.Time) error {
	return s.accounts.RecordReconciledThrough(ctx, accountID, date)
}

// BuildWorksheet assembles the statement view for an account as of
// searchDate. The prior reconciled balance seeds a running fold over every
// split still open in the window; Difference compares the final running
// balance against the statement's expected ending balance, with the
// reconciled-only portion exposed separately as ReconciledTotal.
func (s *Service) BuildWorksheet(ctx context.Context, accountID int64, searchDate time.Time, expectedEnding int64) (Worksheet, error) {
	acct, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return Worksheet{}, err
	}
	priorEntries, err := s.repo.ReconciledBefore(ctx, accountID, searchDate)
	if err != nil {
		return Worksheet{}, err
	}
	prior := balance.Sum(acct.Sign, priorEntries)

	rows, err := s.repo.WorksheetRows(ctx, accountID, acct.ReconciledThrough, searchDate)
	if err != nil {
		return Worksheet{}, err
	}
	entries := make([]balance.Entry, len(rows))
	for i, r := range rows {
		entries[i] = balance.Entry{Amount: r.Amount, Side: r.Side}
	}
	running := balance.Running(acct.Sign, prior, entries)

	reconciledTotal := prior
	ending := prior
	for i := range rows {
		rows[i].Signed = balance.Signed(acct.Sign, entries[i])
		rows[i].Display = shared.FormatMinorUnits(rows[i].Amount)
		rows[i].Running = running[i]
		ending = running[i]
		if rows[i].Reconciled {
			reconciledTotal += rows[i].Signed
		}
	}

	return Worksheet{
		AccountID:       accountID,
		SearchDate:      searchDate,
		ExpectedEnding:  expectedEnding,
		PriorReconciled: prior,
		ReconciledTotal: reconciledTotal,
		EndingBalance:   ending,
		Difference:      ending - expectedEnding,
		Rows:            rows,
	}, nil
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
