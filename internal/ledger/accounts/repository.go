package accounts

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quillbooks/quillbooks/internal/ledger/shared"
	"github.com/quillbooks/quillbooks/internal/platform/db"
)

// hierarchyLockKey is the advisory lock id guarding structural rewrites.
// Inserts, moves and deletes rewrite bounds across the whole tree, so they
// serialize on this single key; posting only locks the referenced accounts.
const hierarchyLockKey = int64(0x6c656467) // "ledg"

// Repository encapsulates DB operations for the account hierarchy.
type Repository interface {
	List(ctx context.Context) ([]Account, error)
	Get(ctx context.Context, id int64) (Account, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes hierarchy operations available inside a transaction.
// Structural methods assume LockHierarchy was called first.
type TxRepository interface {
	LockHierarchy(ctx context.Context) error
	Get(ctx context.Context, id int64) (Account, error)
	DirectChildren(ctx context.Context, parentID int64) ([]Account, error)
	SubtreeMembers(ctx context.Context, lft, rgt int64) ([]Account, error)
	Parents(ctx context.Context, id int64) ([]Account, error)
	OpenGap(ctx context.Context, after, width int64) error
	CloseGap(ctx context.Context, after, width int64) error
	Insert(ctx context.Context, acct Account) (Account, error)
	Update(ctx context.Context, acct Account) (Account, error)
	UpdateFullName(ctx context.Context, id int64, fullName string) error
	SplitCount(ctx context.Context, accountID int64) (int64, error)
	Delete(ctx context.Context, id int64) error
	SetReconciledThrough(ctx context.Context, id int64, date time.Time) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns the pgx-backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const accountColumns = `id, parent_id, name, full_name, memo, type, sign, lft, rgt, balance, reconciled_through, created_at, updated_at`

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.ParentID, &a.Name, &a.FullName, &a.Memo, &a.Type, &a.Sign,
		&a.Lft, &a.Rgt, &a.Balance, &a.ReconciledThrough, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func collectAccounts(rows pgx.Rows) ([]Account, error) {
	defer rows.Close()
	var accts []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accts = append(accts, a)
	}
	return accts, rows.Err()
}

func (r *repository) List(ctx context.Context) ([]Account, error) {
	rows, err := r.db.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY lft`)
	if err != nil {
		return nil, err
	}
	return collectAccounts(rows)
}

func (r *repository) Get(ctx context.Context, id int64) (Account, error) {
	a, err := scanAccount(r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, shared.ErrAccountNotFound
		}
		return Account{}, err
	}
	return a, nil
}

// WithTx runs fn inside a serializable transaction. Structural rewrites touch
// bounds across the whole table, so the strictest level is the safe one.
func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.db, pgx.Serializable, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) LockHierarchy(ctx context.Context) error {
	_, err := r.tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, hierarchyLockKey)
	return err
}

func (r *txRepository) Get(ctx context.Context, id int64) (Account, error) {
	a, err := scanAccount(r.tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, shared.ErrAccountNotFound
		}
		return Account{}, err
	}
	return a, nil
}

func (r *txRepository) DirectChildren(ctx context.Context, parentID int64) ([]Account, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE parent_id=$1 ORDER BY name`, parentID)
	if err != nil {
		return nil, err
	}
	return collectAccounts(rows)
}

// SubtreeMembers returns every account whose bounds fall inside [lft, rgt],
// the subtree root included, ordered by lft.
func (r *txRepository) SubtreeMembers(ctx context.Context, lft, rgt int64) ([]Account, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE lft >= $1 AND rgt <= $2 ORDER BY lft`, lft, rgt)
	if err != nil {
		return nil, err
	}
	return collectAccounts(rows)
}

// Parents returns the ancestor chain including the account itself, root
// first.
func (r *txRepository) Parents(ctx context.Context, id int64) ([]Account, error) {
	rows, err := r.tx.Query(ctx, `SELECT p.`+joinedAccountColumns("p")+`
FROM accounts p, accounts base
WHERE base.lft BETWEEN p.lft AND p.rgt AND base.id=$1
ORDER BY p.lft`, id)
	if err != nil {
		return nil, err
	}
	return collectAccounts(rows)
}

func (r *txRepository) OpenGap(ctx context.Context, after, width int64) error {
	if _, err := r.tx.Exec(ctx, `UPDATE accounts SET rgt = rgt + $2 WHERE rgt > $1`, after, width); err != nil {
		return err
	}
	_, err := r.tx.Exec(ctx, `UPDATE accounts SET lft = lft + $2 WHERE lft > $1`, after, width)
	return err
}

func (r *txRepository) CloseGap(ctx context.Context, after, width int64) error {
	if _, err := r.tx.Exec(ctx, `UPDATE accounts SET rgt = rgt - $2 WHERE rgt > $1`, after, width); err != nil {
		return err
	}
	_, err := r.tx.Exec(ctx, `UPDATE accounts SET lft = lft - $2 WHERE lft > $1`, after, width)
	return err
}

func (r *txRepository) Insert(ctx context.Context, acct Account) (Account, error) {
	return scanAccount(r.tx.QueryRow(ctx, `INSERT INTO accounts (parent_id, name, full_name, memo, type, sign, lft, rgt, balance)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,0)
RETURNING `+accountColumns,
		acct.ParentID, acct.Name, acct.FullName, acct.Memo, acct.Type, acct.Sign, acct.Lft, acct.Rgt))
}

func (r *txRepository) Update(ctx context.Context, acct Account) (Account, error) {
	a, err := scanAccount(r.tx.QueryRow(ctx, `UPDATE accounts
SET parent_id=$2, name=$3, full_name=$4, memo=$5, type=$6, sign=$7, lft=$8, rgt=$9, balance=$10, updated_at=NOW()
WHERE id=$1
RETURNING `+accountColumns,
		acct.ID, acct.ParentID, acct.Name, acct.FullName, acct.Memo, acct.Type, acct.Sign, acct.Lft, acct.Rgt, acct.Balance))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, shared.ErrAccountNotFound
		}
		return Account{}, err
	}
	return a, nil
}

func (r *txRepository) UpdateFullName(ctx context.Context, id int64, fullName string) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE accounts SET full_name=$2, updated_at=NOW() WHERE id=$1`, id, fullName)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrAccountNotFound
	}
	return nil
}

func (r *txRepository) SplitCount(ctx context.Context, accountID int64) (int64, error) {
	var n int64
	err := r.tx.QueryRow(ctx, `SELECT COUNT(*) FROM splits WHERE account_id=$1`, accountID).Scan(&n)
	return n, err
}

func (r *txRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.tx.Exec(ctx, `DELETE FROM accounts WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrAccountNotFound
	}
	return nil
}

func (r *txRepository) SetReconciledThrough(ctx context.Context, id int64, date time.Time) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE accounts SET reconciled_through=$2, updated_at=NOW() WHERE id=$1`, id, date)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrAccountNotFound
	}
	return nil
}

func joinedAccountColumns(alias string) string {
	return `id, ` + alias + `.parent_id, ` + alias + `.name, ` + alias + `.full_name, ` + alias + `.memo, ` + alias + `.type, ` + alias + `.sign, ` + alias + `.lft, ` + alias + `.rgt, ` + alias + `.balance, ` + alias + `.reconciled_through, ` + alias + `.created_at, ` + alias + `.updated_at`
}
