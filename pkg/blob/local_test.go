package blob

import (
	"context"
	"errors"
	"testing"
)

func TestLocalRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}

	if err := store.Put(ctx, "tasks/a.yaml", []byte("hello")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	data, err := store.Get(ctx, "tasks/a.yaml")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("Get = %q, want %q", data, "hello")
	}

	ok, err := store.Exists(ctx, "tasks/a.yaml")
	if err != nil || !ok {
		t.Errorf("Exists = %v, %v, want true, nil", ok, err)
	}

	keys, err := store.List(ctx, "tasks")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(keys) != 1 || keys[0] != "tasks/a.yaml" {
		t.Errorf("List = %v, want [tasks/a.yaml]", keys)
	}

	if err := store.Delete(ctx, "tasks/a.yaml"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, "tasks/a.yaml"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete = %v, want ErrNotFound", err)
	}
}

func TestLocalMissingKey(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}

	if _, err := store.Get(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get = %v, want ErrNotFound", err)
	}
	if err := store.Delete(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete = %v, want ErrNotFound", err)
	}
	ok, err := store.Exists(ctx, "nope")
	if err != nil || ok {
		t.Errorf("Exists = %v, %v, want false, nil", ok, err)
	}
	keys, err := store.List(ctx, "nope")
	if err != nil || keys != nil {
		t.Errorf("List = %v, %v, want nil, nil", keys, err)
	}
}
