package perfmon

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is returned when a collaborator does not answer within the collaborator timeout.
var ErrTimeout = errors.New("collaborator timed out")

// errNoMemoryReader is reported when the monitor was built without a MemoryReader.
var errNoMemoryReader = errors.New("no memory reader configured")

// callWithTimeout runs fn on its own goroutine and waits at most timeout for it.
// The caller is released on deadline even if fn ignores ctx; fn keeps running
// until it returns and its result is discarded.
func callWithTimeout[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if timeout <= 0 {
		return fn(ctx)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("collaborator panic: %v", r)}
			}
		}()
		v, err := fn(ctx)
		done <- result{v: v, err: err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, fmt.Errorf("%w after %s", ErrTimeout, timeout)
		}
		return zero, ctx.Err()
	}
}

type emptyProvider struct{}

func (emptyProvider) ListCacheNames(context.Context) ([]string, error)      { return nil, nil }
func (emptyProvider) GetCache(context.Context, string) (CacheHandle, error) { return nil, nil }

type noopSink struct{}

func (noopSink) IncrementError(string)                  {}
func (noopSink) EmitAlert(context.Context, Alert) error { return nil }
