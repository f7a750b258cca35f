// Package viewsync coalesces bursts of edits into a single layout pass and
// schedules a fit-to-view after the new positions have been applied.
package viewsync

import (
	"sync"
	"time"

	"github.com/sanuei/YoutubePlanner-sub000/pkg/logger"
)

// DefaultDelay is the debounce window for layout passes.
const DefaultDelay = 300 * time.Millisecond

// Controller debounces layout passes. Every Schedule call restarts the
// window; only the state after the last edit of a burst is laid out.
//
// The fit callback never runs inline with the layout: it is queued after
// the layout callback has returned.
type Controller struct {
	mu       sync.Mutex
	delay    time.Duration
	fitDelay time.Duration
	timer    *time.Timer
	gen      uint64
	stopped  bool

	relayout func()
	fit      func()
}

type Option func(*Controller)

// WithFitDelay sets how long fit-to-view waits after a layout pass.
func WithFitDelay(d time.Duration) Option {
	return func(c *Controller) {
		c.fitDelay = d
	}
}

// New creates a controller. relayout computes and applies positions; fit
// recentres the view. Either may be nil.
func New(delay time.Duration, relayout, fit func(), opts ...Option) *Controller {
	if delay <= 0 {
		delay = DefaultDelay
	}
	c := &Controller{
		delay:    delay,
		relayout: relayout,
		fit:      fit,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Schedule requests a layout pass at the end of the current debounce window.
func (c *Controller) Schedule() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}

	c.gen++
	gen := c.gen
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.delay, func() {
		c.fire(gen)
	})
}

// Pending reports whether a layout pass is waiting for its window to close.
func (c *Controller) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timer != nil
}

// Flush runs a pending pass immediately. It is a no-op when nothing is pending.
func (c *Controller) Flush() {
	c.mu.Lock()
	if c.timer == nil || c.stopped {
		c.mu.Unlock()
		return
	}
	c.timer.Stop()
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	c.fire(gen)
}

// Stop cancels any pending pass. Later Schedule calls are ignored.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Controller) fire(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || c.stopped {
		// superseded by a later Schedule
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.mu.Unlock()

	if c.relayout != nil {
		c.relayout()
	}
	logger.Debug("[ViewSync] layout pass applied")

	if c.fit == nil {
		return
	}
	time.AfterFunc(c.fitDelay, func() {
		c.mu.Lock()
		stopped := c.stopped
		c.mu.Unlock()
		if !stopped {
			c.fit()
		}
	})
}
