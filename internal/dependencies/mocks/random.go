package mocks

import (
	"pit-arena/internal/dependencies/random"
)

// MockRandom is a mock implementation of Random for testing.
// Intn and Coin return queued results; Shuffle is a no-op unless
// ShuffleFunc is set, so pairings stay in roster order by default.
type MockRandom struct {
	IntnResults []int
	intnIndex   int

	CoinResults []bool
	coinIndex   int

	ShuffleFunc func(n int, swap func(i, j int))
}

// Ensure MockRandom implements Random
var _ random.Random = (*MockRandom)(nil)

// NewMockRandom creates a new MockRandom
func NewMockRandom() *MockRandom {
	return &MockRandom{}
}

// Intn returns the next queued result, or 0 if none remaining
func (r *MockRandom) Intn(n int) int {
	if r.intnIndex >= len(r.IntnResults) {
		return 0
	}
	result := r.IntnResults[r.intnIndex]
	r.intnIndex++
	return result
}

// Coin returns the next queued result, or false if none remaining
func (r *MockRandom) Coin() bool {
	if r.coinIndex >= len(r.CoinResults) {
		return false
	}
	result := r.CoinResults[r.coinIndex]
	r.coinIndex++
	return result
}

// Shuffle delegates to ShuffleFunc when set, otherwise leaves order untouched
func (r *MockRandom) Shuffle(n int, swap func(i, j int)) {
	if r.ShuffleFunc != nil {
		r.ShuffleFunc(n, swap)
	}
}

// QueueIntn adds values to the Intn result queue
func (r *MockRandom) QueueIntn(values ...int) {
	r.IntnResults = append(r.IntnResults, values...)
}

// QueueCoin adds values to the Coin result queue
func (r *MockRandom) QueueCoin(values ...bool) {
	r.CoinResults = append(r.CoinResults, values...)
}
