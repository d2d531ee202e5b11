package pipeline

import "math/rand/v2"

// SeedSource yields the sampler seed for each generation.
type SeedSource interface {
	Next() uint32
}

// RandomSeeds draws a fresh uniform seed per call, so a batch run never
// collapses into one repeated generation.
type RandomSeeds struct{}

// Next returns a uniform draw from [0, 2^32).
func (RandomSeeds) Next() uint32 { return rand.Uint32() }

// FixedSeed returns the same seed for every entry.
type FixedSeed uint32

// Next returns the fixed seed.
func (s FixedSeed) Next() uint32 { return uint32(s) }
