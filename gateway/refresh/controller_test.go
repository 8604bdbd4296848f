package refresh

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zeebo/assert"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestTriggerFetchesImmediatelyWithoutDebounce(t *testing.T) {
	var calls int64
	c := New(func(ctx context.Context) (int, error) {
		atomic.AddInt64(&calls, 1)
		return 42, nil
	}, Options[int]{})
	defer c.Close()

	c.Trigger()
	waitFor(t, func() bool { return c.State() == StateSucceeded })

	data, ok := c.Data()
	assert.True(t, ok)
	assert.Equal(t, 42, data)
	assert.Equal(t, int64(1), atomic.LoadInt64(&calls))
}

func TestDebounceCollapsesBursts(t *testing.T) {
	var calls int64
	c := New(func(ctx context.Context) (int, error) {
		return int(atomic.AddInt64(&calls, 1)), nil
	}, Options[int]{Debounce: 50 * time.Millisecond})
	defer c.Close()

	for i := 0; i < 10; i++ {
		c.Trigger()
		time.Sleep(2 * time.Millisecond)
	}
	waitFor(t, func() bool { return c.State() == StateSucceeded })

	// the burst collapsed into one fetch
	assert.Equal(t, int64(1), atomic.LoadInt64(&calls))
}

func TestGuardParksController(t *testing.T) {
	var calls int64
	c := New(func(ctx context.Context) (int, error) {
		atomic.AddInt64(&calls, 1)
		return 0, nil
	}, Options[int]{Guard: func() bool { return false }})
	defer c.Close()

	c.Trigger()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, StateIdle, c.State())
	assert.Equal(t, int64(0), atomic.LoadInt64(&calls))
}

func TestRetriesBeforeSurfacingError(t *testing.T) {
	var calls int64
	boom := errors.New("boom")
	c := New(func(ctx context.Context) (int, error) {
		atomic.AddInt64(&calls, 1)
		return 0, boom
	}, Options[int]{RetryCount: 2, RetryInterval: 10 * time.Millisecond})
	defer c.Close()

	c.Trigger()
	waitFor(t, func() bool { return c.State() == StateFailed })

	assert.Equal(t, int64(3), atomic.LoadInt64(&calls))
	assert.True(t, errors.Is(c.Err(), boom))
}

func TestRetrySucceedsEventually(t *testing.T) {
	var calls int64
	c := New(func(ctx context.Context) (int, error) {
		if atomic.AddInt64(&calls, 1) < 3 {
			return 0, errors.New("transient")
		}
		return 7, nil
	}, Options[int]{RetryCount: 5, RetryInterval: 10 * time.Millisecond})
	defer c.Close()

	c.Trigger()
	waitFor(t, func() bool { return c.State() == StateSucceeded })

	data, ok := c.Data()
	assert.True(t, ok)
	assert.Equal(t, 7, data)
	assert.Nil(t, c.Err())
}

func TestStaleResponseDiscarded(t *testing.T) {
	release := make(chan struct{})
	var calls int64
	c := New(func(ctx context.Context) (int, error) {
		n := atomic.AddInt64(&calls, 1)
		if n == 1 {
			// first fetch hangs until a newer trigger superseded it
			<-release
			return 1, nil
		}
		return 2, nil
	}, Options[int]{})
	defer c.Close()

	c.Trigger()
	waitFor(t, func() bool { return atomic.LoadInt64(&calls) == 1 })

	// supersede the in-flight fetch, then let it finish
	c.Trigger()
	waitFor(t, func() bool { return atomic.LoadInt64(&calls) == 2 })
	close(release)
	waitFor(t, func() bool { return c.State() == StateSucceeded })

	// the first response never lands
	data, ok := c.Data()
	assert.True(t, ok)
	assert.Equal(t, 2, data)
}

func TestPollingRearmsAfterSuccess(t *testing.T) {
	var calls int64
	c := New(func(ctx context.Context) (int, error) {
		return int(atomic.AddInt64(&calls, 1)), nil
	}, Options[int]{PollingInterval: 20 * time.Millisecond})
	defer c.Close()

	c.Trigger()
	waitFor(t, func() bool { return atomic.LoadInt64(&calls) >= 3 })

	data, ok := c.Data()
	assert.True(t, ok)
	assert.True(t, data >= 3)
}

func TestOnSuccessRunsOutsideLock(t *testing.T) {
	var got atomic.Int64
	var c *Controller[int]
	c = New(func(ctx context.Context) (int, error) {
		return 9, nil
	}, Options[int]{OnSuccess: func(v int) {
		// touching the controller here must not deadlock
		_ = c.Generation()
		got.Store(int64(v))
	}})
	defer c.Close()

	c.Trigger()
	waitFor(t, func() bool { return got.Load() == 9 })
}

func TestCloseStopsEverything(t *testing.T) {
	var calls int64
	c := New(func(ctx context.Context) (int, error) {
		atomic.AddInt64(&calls, 1)
		<-ctx.Done()
		return 0, ctx.Err()
	}, Options[int]{})

	c.Trigger()
	waitFor(t, func() bool { return atomic.LoadInt64(&calls) == 1 })
	c.Close()

	// triggers after close are ignored
	c.Trigger()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int64(1), atomic.LoadInt64(&calls))
}
