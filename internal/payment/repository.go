package payment

import "context"

// Repository persists the transaction ledger. Upsert is insert-or-update as
// one atomic operation keyed by payment intent id: the closure receives the
// current record (or a fresh one on first sight of the intent) under the
// store's write lock, so a racing CreateIntent and webhook cannot produce
// duplicate rows or lost updates.
type Repository interface {
	GetByIntentID(ctx context.Context, intentID string) (*Transaction, error)
	GetByTaskID(ctx context.Context, taskID string) (*Transaction, error)
	Upsert(ctx context.Context, intentID string, fn func(*Transaction) error) (*Transaction, error)
}
