package reconcile

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quillbooks/quillbooks/internal/ledger/balance"
)

// Repository encapsulates DB operations for reconciliation state.
type Repository interface {
	SetReconciled(ctx context.Context, transactionID, accountID int64, date time.Time) (int64, error)
	SetUnreconciled(ctx context.Context, transactionID, accountID int64) (int64, error)
	ReconciledBefore(ctx context.Context, accountID int64, date time.Time) ([]balance.Entry, error)
	WorksheetRows(ctx context.Context, accountID int64, floor *time.Time, through time.Time) ([]WorksheetRow, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns the pgx-backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

// SetReconciled marks the transaction's splits on the account reconciled as
// of date. Re-running with the same pair is a plain overwrite, so the call is
// idempotent. Returns the number of splits touched.
func (r *repository) SetReconciled(ctx context.Context, transactionID, accountID int64, date time.Time) (int64, error) {
	cmd, err := r.db.Exec(ctx, `UPDATE splits SET reconciled=TRUE, reconciled_at=$3
WHERE transaction_id=$1 AND account_id=$2`, transactionID, accountID, date)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

// SetUnreconciled clears the reconciliation mark. Idempotent.
func (r *repository) SetUnreconciled(ctx context.Context, transactionID, accountID int64) (int64, error) {
	cmd, err := r.db.Exec(ctx, `UPDATE splits SET reconciled=FALSE, reconciled_at=NULL
WHERE transaction_id=$1 AND account_id=$2`, transactionID, accountID)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

// ReconciledBefore returns the amount/side pairs of the account's splits
// already reconciled strictly before date. Their signed sum is the worksheet's
// prior reconciled balance.
func (r *repository) ReconciledBefore(ctx context.Context, accountID int64, date time.Time) ([]balance.Entry, error) {
	rows, err := r.db.Query(ctx, `SELECT s.amount, s.side FROM splits s
WHERE s.account_id=$1 AND s.reconciled AND s.reconciled_at < $2`, accountID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []balance.Entry
	for rows.Next() {
		var e balance.Entry
		if err := rows.Scan(&e.Amount, &e.Side); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// WorksheetRows returns the splits dated up to and including through that are
// not absorbed into the prior reconciled balance, in posting order. A non-nil
// floor cuts off rows dated before the account's reconcile-through watermark.
func (r *repository) WorksheetRows(ctx context.Context, accountID int64, floor *time.Time, through time.Time) ([]WorksheetRow, error) {
	rows, err := r.db.Query(ctx, `SELECT t.id, s.id, t.date, t.comment, s.amount, s.side, s.reconciled, s.reconciled_at
FROM splits s
JOIN transactions t ON t.id = s.transaction_id
WHERE s.account_id = $1
  AND t.date <= $2
  AND NOT (s.reconciled AND s.reconciled_at < $2)
  AND ($3::date IS NULL OR t.date >= $3)
ORDER BY t.date, t.id, s.id`, accountID, through, floor)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []WorksheetRow
	for rows.Next() {
		var wr WorksheetRow
		if err := rows.Scan(&wr.TransactionID, &wr.SplitID, &wr.Date, &wr.Comment, &wr.Amount, &wr.Side,
			&wr.Reconciled, &wr.ReconciledAt); err != nil {
			return nil, err
		}
		out = append(out, wr)
	}
	return out, rows.Err()
}
