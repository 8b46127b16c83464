package random

import (
	"math/rand"
	"time"
)

// Random provides the randomness the game needs, behind an interface so
// battle outcomes are reproducible under test with a seeded source.
type Random interface {
	// Intn returns a random int in [0, n)
	Intn(n int) int

	// Coin returns a fair coin flip
	Coin() bool

	// Shuffle permutes n elements via the given swap function
	Shuffle(n int, swap func(i, j int))
}

// Source implements Random using math/rand
type Source struct {
	rng *rand.Rand
}

// New creates a Source seeded from the wall clock
func New() *Source {
	return NewSeeded(time.Now().UnixNano())
}

// NewSeeded creates a Source with a fixed seed for deterministic replay
func NewSeeded(seed int64) *Source {
	return &Source{rng: rand.New(rand.NewSource(seed))}
}

// Intn returns a random int in [0, n)
func (s *Source) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return s.rng.Intn(n)
}

// Coin returns a fair coin flip
func (s *Source) Coin() bool {
	return s.rng.Intn(2) == 0
}

// Shuffle permutes n elements via the given swap function
func (s *Source) Shuffle(n int, swap func(i, j int)) {
	s.rng.Shuffle(n, swap)
}
