package game

import "time"

// revengeEntry is one outstanding revenge debt: the avenger may redeem a
// bonus by defeating Target before Expires.
type revengeEntry struct {
	Target  string // persistent ID of the player to defeat
	Expires time.Time
}

// RevengeLedger tracks who owes whom a revenge bonus. Keyed by the avenger's
// persistent ID; at most one live entry per avenger. Entries are checked
// lazily on read and reaped by the engine's periodic sweep. Owned by the
// engine, touched only under its lock.
type RevengeLedger struct {
	entries map[string]revengeEntry
}

// NewRevengeLedger creates an empty ledger
func NewRevengeLedger() *RevengeLedger {
	return &RevengeLedger{entries: make(map[string]revengeEntry)}
}

// Record notes that avenger is owed revenge against target. A newer loss
// replaces any existing entry.
func (l *RevengeLedger) Record(avenger, target string, expires time.Time) {
	l.entries[avenger] = revengeEntry{Target: target, Expires: expires}
}

// Holds reports whether avenger currently holds a live claim against target.
func (l *RevengeLedger) Holds(avenger, target string, now time.Time) bool {
	e, ok := l.entries[avenger]
	return ok && e.Target == target && now.Before(e.Expires)
}

// Claim consumes the avenger's entry if it names target and is still live.
// Returns true exactly once per recorded debt.
func (l *RevengeLedger) Claim(avenger, target string, now time.Time) bool {
	e, ok := l.entries[avenger]
	if !ok || e.Target != target {
		return false
	}
	if !now.Before(e.Expires) {
		delete(l.entries, avenger)
		return false
	}
	delete(l.entries, avenger)
	return true
}

// Sweep removes expired entries and returns how many were reaped
func (l *RevengeLedger) Sweep(now time.Time) int {
	reaped := 0
	for avenger, e := range l.entries {
		if !now.Before(e.Expires) {
			delete(l.entries, avenger)
			reaped++
		}
	}
	return reaped
}

// Len returns the number of entries, live or not yet swept
func (l *RevengeLedger) Len() int {
	return len(l.entries)
}
