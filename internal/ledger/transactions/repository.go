package transactions

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quillbooks/quillbooks/internal/ledger/shared"
	"github.com/quillbooks/quillbooks/internal/platform/db"
)

// Repository encapsulates DB operations for the transaction ledger.
type Repository interface {
	Get(ctx context.Context, id int64) (Transaction, error)
	ListForAccount(ctx context.Context, accountID int64) ([]LedgerRow, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes posting operations inside one database transaction.
// GetAccountsForUpdate must run before any write so every posting locks the
// referenced accounts in the same (ascending id) order.
type TxRepository interface {
	GetAccountsForUpdate(ctx context.Context, ids []int64) ([]AccountRef, error)
	Get(ctx context.Context, id int64) (Transaction, error)
	InsertTransaction(ctx context.Context, date time.Time, comment string) (Transaction, error)
	InsertSplits(ctx context.Context, transactionID int64, splits []SplitInput) ([]Split, error)
	DeleteSplits(ctx context.Context, transactionID int64) ([]int64, error)
	UpdateTransaction(ctx context.Context, id int64, date time.Time, comment string) error
	DeleteTransaction(ctx context.Context, id int64) error
	RefreshBalance(ctx context.Context, accountID int64) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns the pgx-backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) Get(ctx context.Context, id int64) (Transaction, error) {
	return getTransaction(ctx, r.db, id)
}

// ListForAccount returns the account's ledger rows in posting order: date,
// then transaction id, then split id. Signed, Display and Running are left
// for the service to fill; they depend on the account's normal sign.
func (r *repository) ListForAccount(ctx context.Context, accountID int64) ([]LedgerRow, error) {
	rows, err := r.db.Query(ctx, `SELECT t.id, s.id, t.date, t.comment, s.amount, s.side, s.reconciled, s.reconciled_at,
COALESCE((SELECT array_agg(DISTINCT o.account_id ORDER BY o.account_id) FROM splits o WHERE o.transaction_id = t.id AND o.account_id <> s.account_id), '{}')
FROM splits s
JOIN transactions t ON t.id = s.transaction_id
WHERE s.account_id = $1
ORDER BY t.date, t.id, s.id`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LedgerRow
	for rows.Next() {
		var lr LedgerRow
		if err := rows.Scan(&lr.TransactionID, &lr.SplitID, &lr.Date, &lr.Comment, &lr.Amount, &lr.Side,
			&lr.Reconciled, &lr.ReconciledAt, &lr.OtherAccounts); err != nil {
			return nil, err
		}
		out = append(out, lr)
	}
	return out, rows.Err()
}

// WithTx runs fn inside a read-committed transaction. Posting relies on row
// locks on the referenced accounts rather than a stricter isolation level.
func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.db, pgx.ReadCommitted, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) GetAccountsForUpdate(ctx context.Context, ids []int64) ([]AccountRef, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, sign, lft, rgt FROM accounts WHERE id = ANY($1) ORDER BY id FOR UPDATE`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var refs []AccountRef
	for rows.Next() {
		var ref AccountRef
		if err := rows.Scan(&ref.ID, &ref.Sign, &ref.Lft, &ref.Rgt); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

func (r *txRepository) Get(ctx context.Context, id int64) (Transaction, error) {
	return getTransaction(ctx, r.tx, id)
}

func (r *txRepository) InsertTransaction(ctx context.Context, date time.Time, comment string) (Transaction, error) {
	var t Transaction
	err := r.tx.QueryRow(ctx, `INSERT INTO transactions (date, comment) VALUES ($1, $2)
RETURNING id, date, comment, created_at, updated_at`, date, comment).
		Scan(&t.ID, &t.Date, &t.Comment, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func (r *txRepository) InsertSplits(ctx context.Context, transactionID int64, splits []SplitInput) ([]Split, error) {
	out := make([]Split, 0, len(splits))
	for _, in := range splits {
		var s Split
		err := r.tx.QueryRow(ctx, `INSERT INTO splits (transaction_id, account_id, amount, side)
VALUES ($1, $2, $3, $4)
RETURNING id, transaction_id, account_id, amount, side, reconciled, reconciled_at`,
			transactionID, in.AccountID, in.Amount, in.Side).
			Scan(&s.ID, &s.TransactionID, &s.AccountID, &s.Amount, &s.Side, &s.Reconciled, &s.ReconciledAt)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// DeleteSplits removes the transaction's splits and returns the distinct
// accounts they touched, so the caller can refresh those balances.
func (r *txRepository) DeleteSplits(ctx context.Context, transactionID int64) ([]int64, error) {
	rows, err := r.tx.Query(ctx, `DELETE FROM splits WHERE transaction_id=$1 RETURNING account_id`, transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	seen := map[int64]bool{}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids, rows.Err()
}

func (r *txRepository) UpdateTransaction(ctx context.Context, id int64, date time.Time, comment string) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE transactions SET date=$2, comment=$3, updated_at=NOW() WHERE id=$1`, id, date, comment)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrTransactionNotFound
	}
	return nil
}

func (r *txRepository) DeleteTransaction(ctx context.Context, id int64) error {
	cmd, err := r.tx.Exec(ctx, `DELETE FROM transactions WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrTransactionNotFound
	}
	return nil
}

// RefreshBalance recomputes the account's stored balance as the signed sum
// of its own splits. Splits on the account's normal side add, the rest
// subtract.
func (r *txRepository) RefreshBalance(ctx context.Context, accountID int64) error {
	_, err := r.tx.Exec(ctx, `UPDATE accounts a
SET balance = COALESCE((SELECT SUM(CASE WHEN s.side = a.sign THEN s.amount ELSE -s.amount END) FROM splits s WHERE s.account_id = a.id), 0),
    updated_at = NOW()
WHERE a.id = $1`, accountID)
	return err
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getTransaction(ctx context.Context, q querier, id int64) (Transaction, error) {
	var t Transaction
	err := q.QueryRow(ctx, `SELECT id, date, comment, created_at, updated_at FROM transactions WHERE id=$1`, id).
		Scan(&t.ID, &t.Date, &t.Comment, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transaction{}, shared.ErrTransactionNotFound
		}
		return Transaction{}, err
	}
	rows, err := q.Query(ctx, `SELECT id, transaction_id, account_id, amount, side, reconciled, reconciled_at
FROM splits WHERE transaction_id=$1 ORDER BY id`, id)
	if err != nil {
		return Transaction{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var s Split
		if err := rows.Scan(&s.ID, &s.TransactionID, &s.AccountID, &s.Amount, &s.Side, &s.Reconciled, &s.ReconciledAt); err != nil {
			return Transaction{}, err
		}
		t.Splits = append(t.Splits, s)
	}
	return t, rows.Err()
}
