package clock

import (
	"context"
	"errors"
	"time"

	"github.com/sophialabs/scopecore/internal/infrastructure/ports"
)

var _ ports.Clock = (*RealClock)(nil)

// RealClock implements ports.Clock using the system clock.
type RealClock struct{}

// New creates a new RealClock.
func New() *RealClock {
	return &RealClock{}
}

func (c *RealClock) Now() time.Time { return time.Now() }

func (c *RealClock) SleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Loop calls fn, then sleeps for interval(), until ctx is cancelled. The
// interval is re-read every round so a refresh-rate change applies on the
// next tick. A non-positive interval is treated as one millisecond. Loop
// returns nil on cancellation.
func Loop(ctx context.Context, clk ports.Clock, interval func() time.Duration, fn func(now time.Time)) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		fn(clk.Now())

		d := interval()
		if d <= 0 {
			d = time.Millisecond
		}
		if err := clk.SleepContext(ctx, d); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
	}
}
