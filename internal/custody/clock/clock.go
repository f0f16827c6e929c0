// Package clock provides the logical tick sources for the custody engine.
package clock

import (
	"context"
	"sync"
	"time"

	id "custodia/pkg/domain"
	"custodia/pkg/requestcontext"
)

// Interval derives ticks from wall time at a fixed interval. Ticks are
// monotonic non-decreasing. A tick carried in the request context overrides
// the derived value, which is how deterministic end-to-end tests drive time.
type Interval struct {
	epoch    time.Time
	interval time.Duration

	mu   sync.Mutex
	last id.Tick
}

func NewInterval(interval time.Duration) *Interval {
	if interval <= 0 {
		interval = time.Second
	}
	return &Interval{epoch: time.Now(), interval: interval}
}

func (c *Interval) Now(ctx context.Context) id.Tick {
	if tick, ok := requestcontext.Tick(ctx); ok {
		return tick
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	tick := id.Tick(time.Since(c.epoch) / c.interval)
	if tick < c.last {
		return c.last
	}
	c.last = tick
	return tick
}

// Manual is a hand-cranked tick source for tests.
type Manual struct {
	mu   sync.Mutex
	tick id.Tick
}

func NewManual(start id.Tick) *Manual {
	return &Manual{tick: start}
}

func (c *Manual) Now(ctx context.Context) id.Tick {
	if tick, ok := requestcontext.Tick(ctx); ok {
		return tick
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tick
}

// Set moves the clock. Going backwards is allowed here; tests own the
// timeline.
func (c *Manual) Set(tick id.Tick) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tick = tick
}

// Advance moves the clock forward by delta and returns the new tick.
func (c *Manual) Advance(delta id.Tick) id.Tick {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tick += delta
	return c.tick
}
