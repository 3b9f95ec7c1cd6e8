// Package track decides when a run's outstanding host-async work has
// truly finished, including continuations that register new operations
// after earlier ones settle.
package track

import (
	"context"
	"runtime"
	"sync"
)

// DefaultGraceRounds is the number of consecutive empty drain rounds
// required before the tracker declares the run settled. Stopping the
// instant the live set first becomes empty truncates chained
// continuations, so the loop always yields a few extra ticks.
const DefaultGraceRounds = 5

// Tracker owns the live set of pending async operations for one run.
// It is created per run and passed by reference into each capability;
// it is never shared across runs.
//
// Executor goroutines publish settlements through Settle; the run
// goroutine applies them in Drain. Completion callbacks therefore always
// execute on the goroutine that owns the interpreter.
type Tracker struct {
	mu          sync.Mutex
	pending     int
	completions chan func()
}

// New creates an empty tracker
func New() *Tracker {
	return &Tracker{
		completions: make(chan func(), 16),
	}
}

// Handle is a tracked reference to one pending operation
type Handle struct {
	t *Tracker
}

// Register adds one operation to the live set
func (t *Tracker) Register() *Handle {
	t.mu.Lock()
	t.pending++
	t.mu.Unlock()
	return &Handle{t: t}
}

// Settle queues the operation's completion. The callback runs later on
// the drain goroutine; it must not be invoked directly. Safe to call
// from any goroutine, exactly once per handle.
func (h *Handle) Settle(apply func()) {
	h.t.completions <- apply
}

// Pending returns the live set size
func (t *Tracker) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending
}

// apply runs one settlement on the calling goroutine and removes the
// operation from the live set. Applying may run guest continuations,
// which can register new operations.
func (t *Tracker) apply(fn func()) {
	fn()
	t.mu.Lock()
	t.pending--
	t.mu.Unlock()
}

// Drain blocks until every operation registered during the run has
// settled, the scheduler chain reported by settled() is done, and
// graceRounds consecutive rounds saw no new work. It has no timeout of
// its own; a hung operation must be cancelled through ctx.
func (t *Tracker) Drain(ctx context.Context, settled func() bool, graceRounds int) error {
	if graceRounds <= 0 {
		graceRounds = DefaultGraceRounds
	}
	empty := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if t.Pending() > 0 {
			// Wait for the current members to settle. Applying a
			// settlement runs continuations immediately, so new
			// registrations are visible on the next iteration.
			select {
			case fn := <-t.completions:
				t.apply(fn)
				empty = 0
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}

		// Live set empty: still drain anything already queued
		select {
		case fn := <-t.completions:
			t.apply(fn)
			empty = 0
			continue
		default:
		}

		if !settled() {
			// The chain is waiting on something untracked (a promise
			// the guest never resolves). Only cancellation ends this.
			select {
			case fn := <-t.completions:
				t.apply(fn)
				empty = 0
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}

		empty++
		if empty >= graceRounds {
			return nil
		}
		// Yield so executor goroutines get a chance to publish
		runtime.Gosched()
	}
}
