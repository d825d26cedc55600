package repositoryimpl

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"gopkg.in/yaml.v3"

	"github.com/taskpin/taskpin/internal/payment"
	"github.com/taskpin/taskpin/pkg/blob"
	"github.com/taskpin/taskpin/pkg/cerr"
)

const transactionsPrefix = "transactions"

// YAMLRepository stores one YAML document per transaction, keyed by payment
// intent id. Keying the blob by the intent id enforces the one-transaction-
// per-intent invariant; the writer mutex makes Upsert atomic.
type YAMLRepository struct {
	store blob.Store
	mu    sync.Mutex
	now   func() time.Time
}

func NewYAMLRepository(store blob.Store) *YAMLRepository {
	return &YAMLRepository{store: store, now: time.Now}
}

func key(intentID string) string {
	return fmt.Sprintf("%s/%s.yaml", transactionsPrefix, intentID)
}

func (r *YAMLRepository) GetByIntentID(ctx context.Context, intentID string) (*payment.Transaction, error) {
	data, err := r.store.Get(ctx, key(intentID))
	if err != nil {
		return nil, cerr.WrapStorageReadError("transaction", err)
	}
	var tx payment.Transaction
	if err := yaml.Unmarshal(data, &tx); err != nil {
		return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to unmarshal transaction: %w", err))
	}
	return &tx, nil
}

func (r *YAMLRepository) GetByTaskID(ctx context.Context, taskID string) (*payment.Transaction, error) {
	keys, err := r.store.List(ctx, transactionsPrefix)
	if err != nil {
		return nil, cerr.WrapStorageReadError("transactions", err)
	}
	sort.Strings(keys)

	for _, k := range keys {
		data, err := r.store.Get(ctx, k)
		if err != nil {
			continue
		}
		var tx payment.Transaction
		if err := yaml.Unmarshal(data, &tx); err != nil {
			continue
		}
		if tx.TaskID == taskID {
			return &tx, nil
		}
	}
	return nil, cerr.NewError(cerr.NotFound, "transaction not found", nil)
}

func (r *YAMLRepository) Upsert(ctx context.Context, intentID string, fn func(*payment.Transaction) error) (*payment.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var tx payment.Transaction
	data, err := r.store.Get(ctx, key(intentID))
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &tx); err != nil {
			return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to unmarshal transaction: %w", err))
		}
	case cerr.IsCode(cerr.WrapStorageReadError("transaction", err), cerr.NotFound):
		now := r.now()
		tx = payment.Transaction{
			ID:              ulid.Make().String(),
			PaymentIntentID: intentID,
			CreatedAt:       now,
		}
	default:
		return nil, cerr.WrapStorageReadError("transaction", err)
	}

	if err := fn(&tx); err != nil {
		return nil, err
	}
	tx.UpdatedAt = r.now()

	out, err := yaml.Marshal(&tx)
	if err != nil {
		return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal transaction: %w", err))
	}
	if err := r.store.Put(ctx, key(intentID), out); err != nil {
		return nil, cerr.WrapStorageWriteError("transaction", err)
	}
	return &tx, nil
}
