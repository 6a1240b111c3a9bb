package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/quillbooks/quillbooks/internal/ledger/accounts"
)

// BalanceRefreshRunner recomputes stored account balances from their splits
// and rewarms the redis cache. Normally a no-op corrective pass; posting
// already refreshes balances inline.
type BalanceRefreshRunner struct {
	pool   *pgxpool.Pool
	cache  *accounts.BalanceCache
	logger *slog.Logger
}

// NewBalanceRefreshRunner constructs the runner.
func NewBalanceRefreshRunner(pool *pgxpool.Pool, cache *accounts.BalanceCache, logger *slog.Logger) *BalanceRefreshRunner {
	return &BalanceRefreshRunner{pool: pool, cache: cache, logger: logger}
}

// Handle processes TaskBalanceRefresh tasks.
func (r *BalanceRefreshRunner) Handle(ctx context.Context, t *asynq.Task) error {
	var payload BalanceRefreshPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	ids := payload.AccountIDs
	if len(ids) == 0 {
		var err error
		ids, err = r.leafAccountIDs(ctx)
		if err != nil {
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			bal, err := r.refresh(ctx, id)
			if err != nil {
				return err
			}
			_ = r.cache.Set(ctx, id, bal)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	r.logger.Info("balance refresh complete", slog.Int("accounts", len(ids)))
	return nil
}

func (r *BalanceRefreshRunner) leafAccountIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM accounts WHERE rgt - lft = 1 ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *BalanceRefreshRunner) refresh(ctx context.Context, accountID int64) (int64, error) {
	var bal int64
	err := r.pool.QueryRow(ctx, `UPDATE accounts a
SET balance = COALESCE((SELECT SUM(CASE WHEN s.side = a.sign THEN s.amount ELSE -s.amount END) FROM splits s WHERE s.account_id = a.id), 0),
    updated_at = NOW()
WHERE a.id = $1
RETURNING a.balance`, accountID).Scan(&bal)
	return bal, err
}
