package pipeline

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

// Exponential backoff: start at 200ms, double each retry, cap at 5s.
const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// sleepWithContext waits for d on clock. It returns false if ctx ended first.
// It mirrors retry.SleepWithContext, which sleeps on a wall-clock timer.
func sleepWithContext(ctx context.Context, clock clockwork.Clock, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
