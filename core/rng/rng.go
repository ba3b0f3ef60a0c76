// Package rng provides the random sources injected into the simulator.
package rng

import (
	"math/rand"
	"sync"
	"time"
)

// Source draws uniformly distributed values in [lo, hi].
type Source interface {
	Uniform(lo, hi float64) float64
}

// Rand is a Source backed by math/rand. It is safe for concurrent use.
type Rand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// New returns a Rand seeded with seed.
func New(seed int64) *Rand {
	return &Rand{r: rand.New(rand.NewSource(seed))}
}

// NewTimeSeeded returns a Rand seeded from the wall clock.
func NewTimeSeeded() *Rand { return New(time.Now().UnixNano()) }

// Uniform implements Source.
func (s *Rand) Uniform(lo, hi float64) float64 {
	s.mu.Lock()
	f := s.r.Float64()
	s.mu.Unlock()
	return lo + (hi-lo)*f
}

// Derive mixes a base seed with a stream index (splitmix64) so independent
// tasks get uncorrelated, reproducible seeds.
func Derive(base int64, stream int) int64 {
	z := uint64(base) + uint64(stream+1)*0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return int64(z ^ (z >> 31))
}

// Fixed always returns the same fraction of the requested interval. Useful in
// tests to pin draws to a bound: Fixed(0) yields lo, Fixed(1) yields hi.
type Fixed float64

// Uniform implements Source.
func (f Fixed) Uniform(lo, hi float64) float64 { return lo + (hi-lo)*float64(f) }
