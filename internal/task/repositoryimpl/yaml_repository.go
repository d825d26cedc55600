package repositoryimpl

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/taskpin/taskpin/internal/task"
	"github.com/taskpin/taskpin/pkg/blob"
	"github.com/taskpin/taskpin/pkg/cerr"
)

const tasksPrefix = "tasks"

// YAMLRepository stores each task as one YAML document in a blob store.
// A single writer mutex serializes all read-modify-write cycles, which is
// what makes Mutate's conditional updates atomic in this deployment.
type YAMLRepository struct {
	store blob.Store
	mu    sync.Mutex
	now   func() time.Time
}

func NewYAMLRepository(store blob.Store) *YAMLRepository {
	return &YAMLRepository{store: store, now: time.Now}
}

func key(id string) string {
	return fmt.Sprintf("%s/%s.yaml", tasksPrefix, id)
}

func (r *YAMLRepository) read(ctx context.Context, id string) (*task.Task, error) {
	data, err := r.store.Get(ctx, key(id))
	if err != nil {
		return nil, cerr.WrapStorageReadError("task", err)
	}
	var t task.Task
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to unmarshal task: %w", err))
	}
	return &t, nil
}

func (r *YAMLRepository) write(ctx context.Context, t *task.Task) error {
	data, err := yaml.Marshal(t)
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal task: %w", err))
	}
	if err := r.store.Put(ctx, key(t.ID), data); err != nil {
		return cerr.WrapStorageWriteError("task", err)
	}
	return nil
}

func (r *YAMLRepository) Create(ctx context.Context, t *task.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	exists, err := r.store.Exists(ctx, key(t.ID))
	if err != nil {
		return cerr.WrapStorageWriteError("task", err)
	}
	if exists {
		return cerr.NewError(cerr.AlreadyExists, "task already exists", nil)
	}
	return r.write(ctx, t)
}

func (r *YAMLRepository) Get(ctx context.Context, id string) (*task.Task, error) {
	return r.read(ctx, id)
}

func (r *YAMLRepository) GetByPaymentIntentID(ctx context.Context, intentID string) (*task.Task, error) {
	if intentID == "" {
		return nil, cerr.NewError(cerr.NotFound, "task not found", nil)
	}
	all, err := r.scan(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range all {
		if t.PaymentIntentID == intentID {
			return t, nil
		}
	}
	return nil, cerr.NewError(cerr.NotFound, "task not found", nil)
}

func (r *YAMLRepository) List(ctx context.Context, f task.Filter) ([]*task.Task, error) {
	all, err := r.scan(ctx)
	if err != nil {
		return nil, err
	}

	var out []*task.Task
	for _, t := range all {
		if f.RequesterID != "" && t.RequesterID != f.RequesterID {
			continue
		}
		if f.WorkerID != "" && t.WorkerID != f.WorkerID {
			continue
		}
		if len(f.Statuses) > 0 && !statusIn(t.Status, f.Statuses) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *YAMLRepository) Mutate(ctx context.Context, id string, fn func(*task.Task) error) (*task.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, err := r.read(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(t); err != nil {
		return nil, err
	}
	t.UpdatedAt = r.now()
	if err := r.write(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *YAMLRepository) Remove(ctx context.Context, id string, guard func(*task.Task) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, err := r.read(ctx, id)
	if err != nil {
		return err
	}
	if err := guard(t); err != nil {
		return err
	}
	if err := r.store.Delete(ctx, key(id)); err != nil {
		return cerr.WrapStorageDeleteError("task", err)
	}
	return nil
}

// scan loads every stored task, ordered by key for deterministic output.
func (r *YAMLRepository) scan(ctx context.Context) ([]*task.Task, error) {
	keys, err := r.store.List(ctx, tasksPrefix)
	if err != nil {
		return nil, cerr.WrapStorageReadError("tasks", err)
	}
	sort.Strings(keys)

	var all []*task.Task
	for _, k := range keys {
		data, err := r.store.Get(ctx, k)
		if err != nil {
			continue
		}
		var t task.Task
		if err := yaml.Unmarshal(data, &t); err != nil {
			continue
		}
		all = append(all, &t)
	}
	return all, nil
}

func statusIn(s task.Status, set []task.Status) bool {
	for _, v := range set {
		if s == v {
			return true
		}
	}
	return false
}
