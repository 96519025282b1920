// Package xrand wraps math/rand behind an explicit, seedable source so
// every draw the sampler and lesson controller make is reproducible from a
// single seed, instead of touching the package-level generator.
package xrand

import (
	"math/rand"
	"sync"
)

// Source is a seedable pseudo-random generator threaded explicitly through
// callers rather than used as ambient process-wide state. math/rand.Rand is
// not safe for concurrent use, and a Source is shared across every request
// goroutine the sampler and lesson controller serve, so every method takes
// mu before touching r.
type Source struct {
	mu sync.Mutex
	r  *rand.Rand
}

// New builds a Source from an explicit seed.
func New(seed int64) *Source {
	return &Source{r: rand.New(rand.NewSource(seed))}
}

// Float64 returns a pseudo-random number in [0.0, 1.0).
func (s *Source) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Float64()
}

// Intn returns a pseudo-random number in [0, n).
func (s *Source) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Intn(n)
}

// Bool flips a fair coin.
func (s *Source) Bool() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Intn(2) == 0
}

// Shuffle randomizes the order of a slice of length n using swap.
func (s *Source) Shuffle(n int, swap func(i, j int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.r.Shuffle(n, swap)
}

// WeightedIndex draws an index in [0, len(weights)) proportional to each
// weight. If the total weight is zero or negative, it falls back to a
// uniform draw over all indices.
func (s *Source) WeightedIndex(weights []float64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.weightedIndexLocked(weights)
}

func (s *Source) weightedIndexLocked(weights []float64) int {
	total := 0.0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return s.r.Intn(len(weights))
	}
	draw := s.r.Float64() * total
	cum := 0.0
	for i, w := range weights {
		if w > 0 {
			cum += w
		}
		if draw < cum {
			return i
		}
	}
	return len(weights) - 1
}
