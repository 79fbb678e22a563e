// Package rng provides a process-wide, thread-safe factory of seeded
// pseudo-random generators.
//
// A single Service owns a mutex-protected seed source. Each call to
// Generator draws a fresh seed under the mutex and returns a brand new
// *rand.Rand; the returned generator is owned exclusively by the caller and
// must not be shared across goroutines. The mutex is held only at
// acquisition time, never during use.
package rng

import (
	"math/rand"
	"sync"
	"time"
)

// Service hands out independent pseudo-random generators seeded from an
// internal seed source.
type Service struct {
	mu     sync.Mutex
	seeder *rand.Rand
}

// New creates a Service whose seed source is initialized from the wall
// clock (nanoseconds since the epoch).
func New() *Service {
	return NewWithSeed(time.Now().UnixNano())
}

// NewWithSeed creates a Service with a deterministic seed source, so that
// the full sequence of issued generators is reproducible.
func NewWithSeed(seed int64) *Service {
	return &Service{
		seeder: rand.New(rand.NewSource(mix(seed))),
	}
}

// SetSeed reseeds the internal seed source. Generators already issued keep
// their streams; only future acquisitions are affected.
func (s *Service) SetSeed(seed int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seeder = rand.New(rand.NewSource(mix(seed)))
}

// Generator returns a new pseudo-random generator seeded from the internal
// seed source. Safe for concurrent callers; the returned generator is not.
func (s *Service) Generator() *rand.Rand {
	s.mu.Lock()
	seed := s.seeder.Int63()
	s.mu.Unlock()
	return rand.New(rand.NewSource(mix(seed)))
}

// mix applies a SplitMix64-style finalizer so that closely-spaced raw seeds
// (consecutive seeder draws, coarse clock values) yield decorrelated
// generator states. Constants are the canonical SplitMix64 multipliers.
func mix(seed int64) int64 {
	x := uint64(seed) + 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	x ^= x >> 31
	return int64(x)
}
