package game

import (
	"testing"
	"time"

	"pit-arena/internal/store"
)

// TestChallengesResetOnNewDay tests that counters zero out when the stored
// day differs from today
func TestChallengesResetOnNewDay(t *testing.T) {
	rec := &store.PlayerRecord{
		Challenges: store.ChallengeState{
			Date:           "2026-01-14",
			RevengeKills:   3,
			MaxStreak:      5,
			RevengeClaimed: true,
		},
	}

	now := time.Date(2026, 1, 15, 0, 0, 1, 0, time.UTC)
	resetChallengesIfStale(rec, now)

	if rec.Challenges.Date != "2026-01-15" {
		t.Errorf("Expected date 2026-01-15, got %s", rec.Challenges.Date)
	}
	if rec.Challenges.RevengeKills != 0 || rec.Challenges.MaxStreak != 0 {
		t.Error("Counters should reset on a new day")
	}
	if rec.Challenges.RevengeClaimed {
		t.Error("Claim flags should reset on a new day")
	}
}

// TestChallengesSameDayNoReset tests that counters survive within a day
func TestChallengesSameDayNoReset(t *testing.T) {
	rec := &store.PlayerRecord{
		Challenges: store.ChallengeState{Date: "2026-01-15", RevengeKills: 2},
	}

	now := time.Date(2026, 1, 15, 23, 59, 0, 0, time.UTC)
	resetChallengesIfStale(rec, now)

	if rec.Challenges.RevengeKills != 2 {
		t.Errorf("Expected counters preserved, got %d revenge kills", rec.Challenges.RevengeKills)
	}
}

// TestNoteStreakMonotonic tests that the daily max streak never decreases
func TestNoteStreakMonotonic(t *testing.T) {
	rec := &store.PlayerRecord{}
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

	noteStreak(rec, 4, now)
	noteStreak(rec, 2, now)

	if rec.Challenges.MaxStreak != 4 {
		t.Errorf("Expected max streak 4, got %d", rec.Challenges.MaxStreak)
	}

	noteStreak(rec, 7, now)
	if rec.Challenges.MaxStreak != 7 {
		t.Errorf("Expected max streak 7, got %d", rec.Challenges.MaxStreak)
	}
}

// TestNoteRevengeKillAccumulates tests the daily revenge counter
func TestNoteRevengeKillAccumulates(t *testing.T) {
	rec := &store.PlayerRecord{}
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

	noteRevengeKill(rec, now)
	noteRevengeKill(rec, now)

	if rec.Challenges.RevengeKills != 2 {
		t.Errorf("Expected 2 revenge kills, got %d", rec.Challenges.RevengeKills)
	}
}
