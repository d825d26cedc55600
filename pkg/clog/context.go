package clog

import (
	"context"
	"sync"
)

// ctxAttrs collects request-scoped log attributes. The AttributesHandler
// merges these into every record logged with the carrying context.
type ctxAttrs struct {
	mu    sync.RWMutex
	attrs map[string]any
}

type ctxAttrsKey struct{}

func ContextWithAttributes(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxAttrsKey{}, &ctxAttrs{
		attrs: make(map[string]any),
	})
}

func AddAttribute(ctx context.Context, key string, value any) {
	a, ok := ctx.Value(ctxAttrsKey{}).(*ctxAttrs)
	if !ok {
		return
	}
	a.mu.Lock()
	a.attrs[key] = value
	a.mu.Unlock()
}

func AddAttributes(ctx context.Context, attrs map[string]any) {
	a, ok := ctx.Value(ctxAttrsKey{}).(*ctxAttrs)
	if !ok {
		return
	}
	a.mu.Lock()
	for k, v := range attrs {
		a.attrs[k] = v
	}
	a.mu.Unlock()
}

func GetAttributes(ctx context.Context) map[string]any {
	a, ok := ctx.Value(ctxAttrsKey{}).(*ctxAttrs)
	if !ok {
		return nil
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	copied := make(map[string]any, len(a.attrs))
	for k, v := range a.attrs {
		copied[k] = v
	}
	return copied
}

const (
	ErrorAttributeKey = "error.message"
	StackAttributeKey = "error.stack"
)

func AddError(ctx context.Context, err error) {
	AddAttribute(ctx, ErrorAttributeKey, err)
}

func AddStack(ctx context.Context, stack string) {
	AddAttribute(ctx, StackAttributeKey, stack)
}
