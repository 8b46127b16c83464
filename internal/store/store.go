// Package store defines the persistence contract for the arena.
//
// The engine treats the store purely as a durability sink: every call may
// fail, and failure must never block or corrupt in-memory gameplay. Callers
// log errors and continue with in-memory state.
package store

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors shared by all implementations.
var (
	ErrNotFound     = errors.New("store: not found")
	ErrClanExists   = errors.New("store: clan already exists")
	ErrBattleActive = errors.New("store: clan already has an active battle")
)

// ChallengeState tracks a player's daily challenge progress. Counters are
// monotonic within a calendar day and reset when Date differs from today.
type ChallengeState struct {
	Date           string `json:"date"` // YYYY-MM-DD
	RevengeKills   int    `json:"revengeKills"`
	MaxStreak      int    `json:"maxStreak"`
	RevengeClaimed bool   `json:"revengeClaimed"`
	StreakClaimed  bool   `json:"streakClaimed"`
}

// PlayerRecord is the durable source of truth for a character.
// Points saturate at zero and never go negative.
type PlayerRecord struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Points         int            `json:"points"`
	DrawNumber     int            `json:"drawNumber"` // [0,99), never exposed to clients
	CharacterImage int            `json:"characterImage"`
	Clan           string         `json:"clan,omitempty"`
	OwnerID        string         `json:"ownerId,omitempty"` // set when captured
	Challenges     ChallengeState `json:"challenges"`
}

// Clan is a named group of characters. The creator is the ownership sink
// for captures attributed to the clan.
type Clan struct {
	Name      string    `json:"name"`
	CreatorID string    `json:"creatorId"`
	CreatedAt time.Time `json:"createdAt"`
}

// BattleStatus is the clan battle state machine.
type BattleStatus string

const (
	BattlePending    BattleStatus = "pending"
	BattleAccepted   BattleStatus = "accepted"
	BattleDeclined   BattleStatus = "declined"
	BattleInProgress BattleStatus = "in_progress"
	BattleCompleted  BattleStatus = "completed"
)

// Terminal reports whether the status admits no further transitions.
func (s BattleStatus) Terminal() bool {
	return s == BattleDeclined || s == BattleCompleted
}

// ClanBattle is a challenge between two clans. A clan may have at most one
// non-terminal battle at a time.
type ClanBattle struct {
	ID         string       `json:"id"`
	Challenger string       `json:"challenger"`
	Defender   string       `json:"defender"`
	Status     BattleStatus `json:"status"`
	Winner     string       `json:"winner,omitempty"`
	Round      int          `json:"round"`
	CreatedAt  time.Time    `json:"createdAt"`
}

// RoundRecord is the durable trace of one battle round.
type RoundRecord struct {
	BattleID       string    `json:"battleId"`
	Number         int       `json:"number"`
	ChallengerWins int       `json:"challengerWins"`
	DefenderWins   int       `json:"defenderWins"`
	WinnerClan     string    `json:"winnerClan,omitempty"` // empty for an even split
	PlayedAt       time.Time `json:"playedAt"`
}

// Store is the persistence contract consumed by the engine.
type Store interface {
	// Player operations
	GetPlayer(ctx context.Context, id string) (*PlayerRecord, error)
	UpsertPlayer(ctx context.Context, rec *PlayerRecord) error
	AdjustPoints(ctx context.Context, id string, delta int) (int, error)
	TransferOwnership(ctx context.Context, id, clan, owner string) error
	TopPlayers(ctx context.Context, n int) ([]*PlayerRecord, error)

	// Clan operations
	CreateClan(ctx context.Context, clan *Clan) error
	GetClan(ctx context.Context, name string) (*Clan, error)
	RenameClan(ctx context.Context, oldName, newName string) error
	GetClanMembers(ctx context.Context, clan string) ([]*PlayerRecord, error)

	// Battle operations
	CreateBattle(ctx context.Context, battle *ClanBattle) (string, error)
	GetActiveBattle(ctx context.Context, clan string) (*ClanBattle, error)
	SetBattleStatus(ctx context.Context, id string, status BattleStatus, winner string) error
	RecordRound(ctx context.Context, round *RoundRecord) error

	Close() error
}
