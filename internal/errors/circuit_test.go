package errors

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func failingBreaker(t *testing.T, trips int, cooldown time.Duration) *CircuitBreaker {
	t.Helper()
	cb := NewCircuitBreaker("test", WithMaxFailures(trips), WithResetTimeout(cooldown))
	for i := 0; i < trips; i++ {
		_ = cb.Execute(func() error { return errBoom })
	}
	return cb
}

func TestBreakerStartsClosed(t *testing.T) {
	cb := NewCircuitBreaker("test")
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, 0, cb.Failures())
}

func TestBreakerTripsAfterConsecutiveFailures(t *testing.T) {
	cb := failingBreaker(t, 3, time.Second)

	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	require.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called, "open breaker must not invoke fn")
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker("test", WithMaxFailures(3))

	_ = cb.Execute(func() error { return errBoom })
	_ = cb.Execute(func() error { return errBoom })
	require.Equal(t, 2, cb.Failures())

	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, 0, cb.Failures())
	assert.Equal(t, StateClosed, cb.State())
}

func TestBreakerHalfOpensAfterCooldown(t *testing.T) {
	cb := failingBreaker(t, 1, 20*time.Millisecond)
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, StateHalfOpen, cb.State())
}

func TestBreakerTrialSuccessCloses(t *testing.T) {
	cb := failingBreaker(t, 1, 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State())
}

func TestBreakerTrialFailureReopens(t *testing.T) {
	cb := failingBreaker(t, 1, 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	err := cb.Execute(func() error { return errBoom })
	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, StateOpen, cb.State())

	// Still open: the next call is rejected without running fn.
	err = cb.Execute(func() error { return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestBreakerErrorsPassThroughWhileClosed(t *testing.T) {
	cb := NewCircuitBreaker("test", WithMaxFailures(5))
	err := cb.Execute(func() error { return errBoom })
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, StateClosed, cb.State())
}

func TestBreakerConcurrentExecute(t *testing.T) {
	cb := NewCircuitBreaker("test", WithMaxFailures(1000))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				if (n+j)%2 == 0 {
					_ = cb.Execute(func() error { return nil })
				} else {
					_ = cb.Execute(func() error { return errBoom })
				}
			}
		}(i)
	}
	wg.Wait()

	// The race detector is the real assertion; state just has to be valid.
	assert.Contains(t, []State{StateClosed, StateOpen, StateHalfOpen}, cb.State())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(99).String())
}
