package track

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func settledNow() bool { return true }

func TestDrainWithNoOperations(t *testing.T) {
	tr := New()
	err := tr.Drain(context.Background(), settledNow, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, tr.Pending())
}

func TestDrainAppliesSettlementOnDrainGoroutine(t *testing.T) {
	tr := New()
	h := tr.Register()

	applied := false
	go func() {
		time.Sleep(10 * time.Millisecond)
		h.Settle(func() { applied = true })
	}()

	require.NoError(t, tr.Drain(context.Background(), settledNow, 3))
	assert.True(t, applied)
	assert.Equal(t, 0, tr.Pending())
}

func TestDrainWaitsForContinuationRegisteredOperations(t *testing.T) {
	tr := New()
	var order []string

	first := tr.Register()
	go func() {
		first.Settle(func() {
			order = append(order, "first")
			// Continuation registers a new operation, the way parsing a
			// response body right after a fetch resolves does
			second := tr.Register()
			go func() {
				time.Sleep(5 * time.Millisecond)
				second.Settle(func() { order = append(order, "second") })
			}()
		})
	}()

	require.NoError(t, tr.Drain(context.Background(), settledNow, 5))
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestDrainWaitsForMultipleInFlight(t *testing.T) {
	tr := New()
	done := 0
	for i := 0; i < 4; i++ {
		h := tr.Register()
		delay := time.Duration(i) * 3 * time.Millisecond
		go func() {
			time.Sleep(delay)
			h.Settle(func() { done++ })
		}()
	}
	require.NoError(t, tr.Drain(context.Background(), settledNow, 5))
	assert.Equal(t, 4, done)
}

func TestDrainCancelledWhileOperationHangs(t *testing.T) {
	tr := New()
	tr.Register() // never settles

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := tr.Drain(ctx, settledNow, 5)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDrainWaitsForUnsettledChain(t *testing.T) {
	tr := New()
	settled := false

	h := tr.Register()
	go func() {
		time.Sleep(10 * time.Millisecond)
		h.Settle(func() { settled = true })
	}()

	// Chain reports settled only after the operation applied
	err := tr.Drain(context.Background(), func() bool { return settled }, 3)
	require.NoError(t, err)
	assert.True(t, settled)
}

func TestDrainCancelledOnChainThatNeverSettles(t *testing.T) {
	tr := New()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	// No pending operations, but the chain never settles: a promise the
	// guest never resolves. Only cancellation ends the drain.
	err := tr.Drain(ctx, func() bool { return false }, 3)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
