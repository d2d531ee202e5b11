package testutil

import (
	"context"
	"sync"
	"time"
)

// RecordingSleeper captures requested sleep durations without waiting.
//
// This lets poll-loop and backoff tests assert exact pacing behavior in
// zero wall-clock time.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type RecordingSleeper struct {
	mu    sync.Mutex
	slept []time.Duration
}

// Sleep records d and returns immediately. Returns ctx.Err() without
// recording when the context is already canceled.
func (s *RecordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slept = append(s.slept, d)
	return nil
}

// Slept returns a copy of the recorded durations in call order.
func (s *RecordingSleeper) Slept() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.slept))
	copy(out, s.slept)
	return out
}

// Count returns how many sleeps were requested.
func (s *RecordingSleeper) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.slept)
}

// CancelingSleeper cancels a context once a fixed number of sleeps have
// been requested, simulating an interrupt arriving during a pacing delay.
//
// Thread-safety: safe for concurrent use via internal mutex.
type CancelingSleeper struct {
	mu     sync.Mutex
	after  int
	count  int
	cancel context.CancelFunc
}

// NewCancelingSleeper creates a sleeper that calls cancel on the after-th
// Sleep call. Earlier calls return immediately without waiting.
func NewCancelingSleeper(after int, cancel context.CancelFunc) *CancelingSleeper {
	return &CancelingSleeper{after: after, cancel: cancel}
}

// Sleep counts the call, cancels once the threshold is reached, and
// returns the context's error state.
func (s *CancelingSleeper) Sleep(ctx context.Context, _ time.Duration) error {
	s.mu.Lock()
	s.count++
	hit := s.count >= s.after
	s.mu.Unlock()

	if hit {
		s.cancel()
	}
	return ctx.Err()
}
