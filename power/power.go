// Package power provides the sleep primitive used between reporting cycles.
package power

import (
	"context"
	"time"
)

// Sleeper suspends the caller until a deadline.
type Sleeper interface {
	SleepUntil(ctx context.Context, deadline time.Time) error
}

// Timer sleeps on a runtime timer. It returns early with ctx.Err() when ctx
// is done.
type Timer struct{}

func (Timer) SleepUntil(ctx context.Context, deadline time.Time) error {
	d := time.Until(deadline)
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Sleep pauses for d, returning early when ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	return Timer{}.SleepUntil(ctx, time.Now().Add(d))
}
