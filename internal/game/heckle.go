package game

import "time"

// Heckle is one taunt shown to everyone in the arena.
type Heckle struct {
	Speaker        string    `json:"speaker"`
	Message        string    `json:"message"`
	CharacterImage int       `json:"characterImage"`
	At             time.Time `json:"at"`
}

// HeckleFeed retains the most recent heckles in insertion order, oldest
// evicted first. Owned by the engine, touched only under its lock.
type HeckleFeed struct {
	entries []Heckle
	max     int
}

// NewHeckleFeed creates a feed bounded to max entries
func NewHeckleFeed(max int) *HeckleFeed {
	return &HeckleFeed{max: max}
}

// Add appends a heckle, evicting the oldest when full
func (f *HeckleFeed) Add(h Heckle) {
	f.entries = append(f.entries, h)
	if len(f.entries) > f.max {
		f.entries = f.entries[len(f.entries)-f.max:]
	}
}

// Recent returns the retained heckles, oldest first
func (f *HeckleFeed) Recent() []Heckle {
	return append([]Heckle(nil), f.entries...)
}
