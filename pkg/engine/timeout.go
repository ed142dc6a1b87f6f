package engine

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultTimeout bounds one evaluation of a source file.
const DefaultTimeout = 5 * time.Second

var (
	// ErrTimeout is returned when user code runs longer than the engine's
	// timeout, typically because of an unbounded loop.
	ErrTimeout = errors.New("engine: evaluation timed out")
	// ErrSuperseded is returned to a caller whose source was replaced by a
	// later Evaluate call before its program was ready.
	ErrSuperseded = errors.New("engine: evaluation superseded by newer source")
)

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout replaces DefaultTimeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// outcome is what one evaluation goroutine hands back, tagged with the
// generation of the source it evaluated.
type outcome struct {
	gen     uint64
	program *Program
	errors  []EvalError
	err     error
}

// begin starts a new generation and returns it.
func (e *Engine) begin() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.generation++
	return e.generation
}

func (e *Engine) latest(gen uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return gen == e.generation
}

// await blocks until done delivers, ctx ends or the timeout passes. The
// zygomys goroutine cannot be interrupted; done must be buffered so that
// it finishes even when nobody is waiting.
func (e *Engine) await(ctx context.Context, done <-chan outcome) (*Program, []EvalError, error) {
	timer := time.NewTimer(e.timeout)
	defer timer.Stop()

	select {
	case out := <-done:
		if !e.latest(out.gen) {
			return nil, nil, ErrSuperseded
		}
		return out.program, out.errors, out.err
	case <-timer.C:
		return nil, nil, fmt.Errorf("%w after %s", ErrTimeout, e.timeout)
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}
}
