package testutil

import "sync"

// SequenceSeeds returns predetermined seeds in order, repeating the last
// one once the sequence is exhausted.
//
// This makes batch runs reproducible in tests: each entry's seed is known
// in advance without fixing every entry to the same value.
//
// Thread-safety: safe for concurrent use via internal mutex.
type SequenceSeeds struct {
	mu    sync.Mutex
	seeds []uint32
	next  int
}

// NewSequenceSeeds creates a seed source over the given values. At least
// one seed must be supplied.
func NewSequenceSeeds(seeds ...uint32) *SequenceSeeds {
	if len(seeds) == 0 {
		panic("testutil: NewSequenceSeeds requires at least one seed")
	}
	return &SequenceSeeds{seeds: seeds}
}

// Next returns the next seed in the sequence.
func (s *SequenceSeeds) Next() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	seed := s.seeds[s.next]
	if s.next < len(s.seeds)-1 {
		s.next++
	}
	return seed
}
