package task

import "context"

// Filter narrows List results. Zero fields match everything.
type Filter struct {
	Statuses    []Status
	RequesterID string
	WorkerID    string
}

// Repository persists tasks. Mutate and Remove are the only write paths for
// existing tasks and must apply their closure atomically against the stored
// record: the closure sees current state under the store's write lock, and
// its error aborts the update. Lifecycle guards (claim arbitration, the
// paid_at null check) rely on this, not on read-then-write at the caller.
type Repository interface {
	Create(ctx context.Context, t *Task) error
	Get(ctx context.Context, id string) (*Task, error)
	GetByPaymentIntentID(ctx context.Context, intentID string) (*Task, error)
	List(ctx context.Context, f Filter) ([]*Task, error)
	Mutate(ctx context.Context, id string, fn func(*Task) error) (*Task, error)
	Remove(ctx context.Context, id string, guard func(*Task) error) error
}
