package dynamo

import (
	"context"
	"sync"
	"time"
)

// Clock is a monotonic time source with a cancellable sleep.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock reads time.Now, which carries Go's monotonic reading, so Sub between two
// readings is immune to wall clock adjustments.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return Canceled(err)
	}
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return Canceled(ctx.Err())
	case <-t.C:
		return nil
	}
}

// ManualClock only moves when slept on or advanced. Tests and offline simulations use it to
// replay long experiments instantly.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) Advance(d time.Duration) {
	if d <= 0 {
		return
	}
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *ManualClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return Canceled(err)
	}
	c.Advance(d)
	return nil
}

// ScaledClock runs Speed times faster than real time.
type ScaledClock struct {
	Speed float64
	start time.Time
	once  sync.Once
}

func NewScaledClock(speed float64) *ScaledClock {
	if speed <= 0 {
		speed = 1
	}
	return &ScaledClock{Speed: speed}
}

func (c *ScaledClock) init() {
	c.once.Do(func() { c.start = time.Now() })
}

func (c *ScaledClock) Now() time.Time {
	c.init()
	elapsed := time.Since(c.start)
	return c.start.Add(time.Duration(float64(elapsed) * c.Speed))
}

func (c *ScaledClock) Sleep(ctx context.Context, d time.Duration) error {
	c.init()
	return SystemClock{}.Sleep(ctx, time.Duration(float64(d)/c.Speed))
}
