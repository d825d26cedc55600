package panicerr

import (
	"log/slog"

	"github.com/sourcegraph/conc/panics"
)

// Safe runs fn, converting a panic into a returned error. Used around
// best-effort work (event fan-out, push delivery) that must not take the
// caller down.
func Safe(fn func() error) error {
	var (
		catcher panics.Catcher
		err     error
	)
	catcher.Try(func() {
		err = fn()
	})
	if err != nil {
		return err
	}
	return catcher.Recovered().AsError()
}

// Go runs fn on a new goroutine and logs instead of crashing when it fails
// or panics.
func Go(name string, fn func() error) {
	go func() {
		if err := Safe(fn); err != nil {
			slog.Error("background task failed", "task", name, "error", err)
		}
	}()
}
