package accounts

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// BalanceCache keeps hot account balances in redis so the read path can skip
// the database. All methods tolerate a nil cache or client and degrade to a
// miss.
type BalanceCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewBalanceCache instantiates the cache helper.
func NewBalanceCache(client *redis.Client, ttl time.Duration) *BalanceCache {
	return &BalanceCache{client: client, ttl: ttl}
}

func balanceKey(accountID int64) string {
	return fmt.Sprintf("ledger:balance:%d", accountID)
}

// Get returns the cached balance and whether it was present.
func (c *BalanceCache) Get(ctx context.Context, accountID int64) (int64, bool) {
	if c == nil || c.client == nil {
		return 0, false
	}
	val, err := c.client.Get(ctx, balanceKey(accountID)).Int64()
	if err != nil {
		return 0, false
	}
	return val, true
}

// Set stores a freshly computed balance.
func (c *BalanceCache) Set(ctx context.Context, accountID, balance int64) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Set(ctx, balanceKey(accountID), balance, c.ttl).Err()
}

// Invalidate drops the cached balances for the given accounts. Callers fire
// it after any mutation that changes posted splits.
func (c *BalanceCache) Invalidate(ctx context.Context, accountIDs ...int64) error {
	if c == nil || c.client == nil || len(accountIDs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(accountIDs))
	for _, id := range accountIDs {
		keys = append(keys, balanceKey(id))
	}
	return c.client.Del(ctx, keys...).Err()
}
