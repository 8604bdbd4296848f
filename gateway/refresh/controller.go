// Package refresh is the reactive-fetch primitive behind every live quote
// and balance in the gateway. Each call site owns one Controller: triggers
// collapse through a debounce window into a fetch, failures retry a bounded
// number of times, and successes optionally re-arm a polling timer. At most
// one fetch cycle is active per controller; a new trigger supersedes
// whatever was scheduled before it.
package refresh

import (
	"context"
	"sync"
	"time"
)

// State is the controller's position in its fetch cycle.
type State int

const (
	StateIdle State = iota
	StateDebouncing
	StateFetching
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDebouncing:
		return "debouncing"
	case StateFetching:
		return "fetching"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Options tune one controller.
type Options[T any] struct {
	// Guard must return true for a fetch to run; a failing guard parks the
	// controller in Idle until the next trigger.
	Guard func() bool
	// Debounce is the trailing wait applied to each trigger. Zero fetches
	// immediately.
	Debounce time.Duration
	// RetryCount is how many times a failed fetch is retried before the
	// error is surfaced.
	RetryCount int
	// RetryInterval is the wait between retries.
	RetryInterval time.Duration
	// PollingInterval re-arms a fetch this long after each success. Zero
	// disables polling.
	PollingInterval time.Duration
	// OnSuccess and OnError observe terminal fetch results. They run
	// outside the controller lock.
	OnSuccess func(T)
	OnError   func(error)
}

// Controller drives one call site's fetch cycle.
type Controller[T any] struct {
	producer func(context.Context) (T, error)
	opts     Options[T]

	ctx    context.Context
	cancel context.CancelFunc

	mu            sync.Mutex
	state         State
	gen           uint64
	data          T
	hasData       bool
	err           error
	debounceTimer *time.Timer
	retryTimer    *time.Timer
	pollTimer     *time.Timer
	closed        bool
}

// New creates an idle controller. Nothing runs until the first Trigger.
func New[T any](producer func(context.Context) (T, error), opts Options[T]) *Controller[T] {
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller[T]{
		producer: producer,
		opts:     opts,
		ctx:      ctx,
		cancel:   cancel,
		state:    StateIdle,
	}
}

// Trigger signals that a reactive input changed. It bumps the generation,
// orphaning every scheduled timer and any in-flight fetch, and starts a
// fresh debounce cycle. A dispatched network request is not aborted, but
// its response will be discarded because its generation is stale.
func (c *Controller[T]) Trigger() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.gen++
	gen := c.gen
	c.stopTimersLocked()

	if c.opts.Guard != nil && !c.opts.Guard() {
		c.state = StateIdle
		c.mu.Unlock()
		return
	}

	if c.opts.Debounce <= 0 {
		c.state = StateFetching
		c.mu.Unlock()
		go c.fetch(gen, 0)
		return
	}

	c.state = StateDebouncing
	c.debounceTimer = time.AfterFunc(c.opts.Debounce, func() {
		c.startFetch(gen)
	})
	c.mu.Unlock()
}

// startFetch transitions Debouncing -> Fetching unless the generation has
// moved on or the controller closed.
func (c *Controller[T]) startFetch(gen uint64) {
	c.mu.Lock()
	if c.closed || gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.state = StateFetching
	c.mu.Unlock()
	go c.fetch(gen, 0)
}

func (c *Controller[T]) fetch(gen uint64, attempt int) {
	res, err := c.producer(c.ctx)

	c.mu.Lock()
	if c.closed || gen != c.gen {
		// Stale response: its input snapshot no longer matches the
		// current generation. Drop it on the floor.
		c.mu.Unlock()
		return
	}

	if err == nil {
		c.data = res
		c.hasData = true
		c.err = nil
		c.state = StateSucceeded
		if c.opts.PollingInterval > 0 {
			c.pollTimer = time.AfterFunc(c.opts.PollingInterval, func() {
				c.startFetch(gen)
			})
		}
		onSuccess := c.opts.OnSuccess
		c.mu.Unlock()
		if onSuccess != nil {
			onSuccess(res)
		}
		return
	}

	if attempt < c.opts.RetryCount {
		c.state = StateFetching
		c.retryTimer = time.AfterFunc(c.opts.RetryInterval, func() {
			c.mu.Lock()
			stale := c.closed || gen != c.gen
			c.mu.Unlock()
			if !stale {
				c.fetch(gen, attempt+1)
			}
		})
		c.mu.Unlock()
		return
	}

	c.err = err
	c.state = StateFailed
	onError := c.opts.OnError
	c.mu.Unlock()
	if onError != nil {
		onError(err)
	}
}

func (c *Controller[T]) stopTimersLocked() {
	for _, t := range []*time.Timer{c.debounceTimer, c.retryTimer, c.pollTimer} {
		if t != nil {
			t.Stop()
		}
	}
	c.debounceTimer, c.retryTimer, c.pollTimer = nil, nil, nil
}

// Data returns the last successful result and whether one exists.
func (c *Controller[T]) Data() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data, c.hasData
}

// Err returns the surfaced error of the last failed cycle, nil otherwise.
func (c *Controller[T]) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// State returns the current state.
func (c *Controller[T]) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Generation returns the current input generation. A result computed for an
// older generation must not be acted on.
func (c *Controller[T]) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// Close cancels the controller: timers stop, the producer context is
// cancelled, and no callback fires afterwards.
func (c *Controller[T]) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.stopTimersLocked()
	c.mu.Unlock()
	c.cancel()
}
