package game

import (
	"time"

	"pit-arena/internal/store"
)

// ChallengeType names a daily challenge a player can claim.
type ChallengeType string

const (
	ChallengeRevenge ChallengeType = "revenge"
	ChallengeStreak  ChallengeType = "streak"
)

// challengeDay formats the calendar day used for daily resets.
func challengeDay(now time.Time) string {
	return now.Format("2006-01-02")
}

// resetChallengesIfStale zeroes the daily counters exactly once when the
// stored day differs from today. Counters only ever grow within a day.
func resetChallengesIfStale(rec *store.PlayerRecord, now time.Time) {
	today := challengeDay(now)
	if rec.Challenges.Date == today {
		return
	}
	rec.Challenges = store.ChallengeState{Date: today}
}

// noteRevengeKill bumps the daily revenge counter.
func noteRevengeKill(rec *store.PlayerRecord, now time.Time) {
	resetChallengesIfStale(rec, now)
	rec.Challenges.RevengeKills++
}

// noteStreak records a new streak high-water mark for today. Never decreases.
func noteStreak(rec *store.PlayerRecord, streak int, now time.Time) {
	resetChallengesIfStale(rec, now)
	if streak > rec.Challenges.MaxStreak {
		rec.Challenges.MaxStreak = streak
	}
}
