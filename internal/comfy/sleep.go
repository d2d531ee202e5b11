package comfy

import (
	"context"
	"time"
)

// Sleeper abstracts the pacing delays in the polling loop so tests can
// observe them without waiting in real time.
type Sleeper interface {
	// Sleep blocks for d or until ctx is canceled, returning ctx.Err()
	// when canceled early.
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemSleeper waits in real wall-clock time.
type SystemSleeper struct{}

// Sleep implements Sleeper using a timer.
func (SystemSleeper) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
