package pipeline

import (
	"context"
	"time"

	"github.com/roach88/atelier/internal/comfy"
)

// Generator produces raw image bytes for a prompt and seed.
// *comfy.Client is the production implementation.
type Generator interface {
	Generate(ctx context.Context, prompt string, seed uint32) ([]byte, error)
}

// RetryObserver is called after each failed attempt that will be
// retried. attempt is 1-based; the final attempt's failure is not
// observed here, it surfaces as the returned error.
type RetryObserver func(attempt int, err error)

// Retryer runs one generation through bounded retries. Backoff grows
// linearly: the wait after attempt n is BaseDelay*n.
type Retryer struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Sleep       comfy.Sleeper
	OnRetry     RetryObserver
}

// Generate calls gen.Generate up to MaxAttempts times and returns the
// first success. The final attempt's error is returned as-is so callers
// can still classify it. Cancellation during a backoff wait ends the
// sequence with the context's error.
func (r Retryer) Generate(ctx context.Context, gen Generator, prompt string, seed uint32) ([]byte, error) {
	attempts := r.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := r.Sleep
	if sleep == nil {
		sleep = comfy.SystemSleeper{}
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		data, err := gen.Generate(ctx, prompt, seed)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if attempt == attempts {
			break
		}
		if r.OnRetry != nil {
			r.OnRetry(attempt, err)
		}
		if err := sleep.Sleep(ctx, r.BaseDelay*time.Duration(attempt)); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}
