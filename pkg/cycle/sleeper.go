package cycle

import (
	"context"
	"time"
)

// Sleeper waits between swaps and cycles
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration, reason string) error
}

// TimerSleeper waits on a timer, returning early with ctx.Err() when ctx is done
type TimerSleeper struct{}

// Sleep implements Sleeper
func (TimerSleeper) Sleep(ctx context.Context, d time.Duration, _ string) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
