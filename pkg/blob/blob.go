package blob

import (
	"context"
	"errors"
)

// ErrNotFound is returned when the requested key does not exist.
var ErrNotFound = errors.New("blob not found")

// Store is a key-value blob store. Keys use "/" separators; a prefix names
// a logical directory. Implementations must make Put atomic per key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]string, error)
	Exists(ctx context.Context, key string) (bool, error)
}
