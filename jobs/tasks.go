package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerIntegrity is the task type for the periodic ledger audit.
	TaskLedgerIntegrity = "ledger:integrity"
	// TaskBalanceRefresh is the task type for recomputing cached balances.
	TaskBalanceRefresh = "ledger:balance_refresh"
)

// BalanceRefreshPayload selects which accounts to recompute. An empty list
// means every leaf account.
type BalanceRefreshPayload struct {
	AccountIDs []int64 `json:"account_ids"`
}

// NewLedgerIntegrityTask constructs the integrity audit task.
func NewLedgerIntegrityTask() *asynq.Task {
	return asynq.NewTask(TaskLedgerIntegrity, nil)
}

// NewBalanceRefreshTask constructs a balance refresh task.
func NewBalanceRefreshTask(payload BalanceRefreshPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBalanceRefresh, data), nil
}
