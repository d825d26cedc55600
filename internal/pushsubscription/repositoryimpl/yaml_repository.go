package repositoryimpl

import (
	"context"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/taskpin/taskpin/internal/pushsubscription"
	"github.com/taskpin/taskpin/pkg/blob"
	"github.com/taskpin/taskpin/pkg/cerr"
)

const subscriptionsPrefix = "push_subscriptions"

type YAMLRepository struct {
	store blob.Store
}

func NewYAMLRepository(store blob.Store) *YAMLRepository {
	return &YAMLRepository{store: store}
}

func key(id string) string {
	return fmt.Sprintf("%s/%s.yaml", subscriptionsPrefix, id)
}

func (r *YAMLRepository) Create(ctx context.Context, s *pushsubscription.Subscription) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal subscription: %w", err))
	}
	if err := r.store.Put(ctx, key(s.ID), data); err != nil {
		return cerr.WrapStorageWriteError("subscription", err)
	}
	return nil
}

func (r *YAMLRepository) ListByUser(ctx context.Context, userID string) ([]*pushsubscription.Subscription, error) {
	keys, err := r.store.List(ctx, subscriptionsPrefix)
	if err != nil {
		return nil, cerr.WrapStorageReadError("subscriptions", err)
	}
	sort.Strings(keys)

	var subs []*pushsubscription.Subscription
	for _, k := range keys {
		data, err := r.store.Get(ctx, k)
		if err != nil {
			continue
		}
		var s pushsubscription.Subscription
		if err := yaml.Unmarshal(data, &s); err != nil {
			continue
		}
		if s.UserID != userID {
			continue
		}
		subs = append(subs, &s)
	}
	return subs, nil
}

func (r *YAMLRepository) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, key(id)); err != nil {
		return cerr.WrapStorageDeleteError("subscription", err)
	}
	return nil
}
