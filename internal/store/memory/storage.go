// Package memory is an in-memory implementation of the persistence store.
// It backs tests and lets the server run with persistence disabled.
package memory

import (
	"context"
	"sort"
	"sync"

	"pit-arena/internal/store"
)

// Storage is a map-backed implementation of the store interface
type Storage struct {
	mu      sync.RWMutex
	players map[string]*store.PlayerRecord
	clans   map[string]*store.Clan
	battles map[string]*store.ClanBattle
	rounds  map[string][]*store.RoundRecord
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		players: make(map[string]*store.PlayerRecord),
		clans:   make(map[string]*store.Clan),
		battles: make(map[string]*store.ClanBattle),
		rounds:  make(map[string][]*store.RoundRecord),
	}
}

// Ensure Storage implements the interface
var _ store.Store = (*Storage)(nil)

// Close is a no-op for the in-memory store
func (s *Storage) Close() error {
	return nil
}

// Player operations

func (s *Storage) GetPlayer(_ context.Context, id string) (*store.PlayerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.players[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *Storage) UpsertPlayer(_ context.Context, rec *store.PlayerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *rec
	s.players[rec.ID] = &cp
	return nil
}

func (s *Storage) AdjustPoints(_ context.Context, id string, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.players[id]
	if !ok {
		return 0, store.ErrNotFound
	}

	rec.Points += delta
	if rec.Points < 0 {
		rec.Points = 0
	}
	return rec.Points, nil
}

func (s *Storage) TransferOwnership(_ context.Context, id, clan, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.players[id]
	if !ok {
		return store.ErrNotFound
	}

	rec.Clan = clan
	rec.OwnerID = owner
	return nil
}

func (s *Storage) TopPlayers(_ context.Context, n int) ([]*store.PlayerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	top := make([]*store.PlayerRecord, 0, len(s.players))
	for _, rec := range s.players {
		cp := *rec
		top = append(top, &cp)
	}

	sort.SliceStable(top, func(i, j int) bool {
		if top[i].Points != top[j].Points {
			return top[i].Points > top[j].Points
		}
		return top[i].ID < top[j].ID
	})

	if len(top) > n {
		top = top[:n]
	}
	return top, nil
}

// Clan operations

func (s *Storage) CreateClan(_ context.Context, clan *store.Clan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.clans[clan.Name]; ok {
		return store.ErrClanExists
	}
	cp := *clan
	s.clans[clan.Name] = &cp
	return nil
}

func (s *Storage) GetClan(_ context.Context, name string) (*store.Clan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	clan, ok := s.clans[name]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *clan
	return &cp, nil
}

func (s *Storage) RenameClan(_ context.Context, oldName, newName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clan, ok := s.clans[oldName]
	if !ok {
		return store.ErrNotFound
	}
	if _, ok := s.clans[newName]; ok {
		return store.ErrClanExists
	}

	clan.Name = newName
	s.clans[newName] = clan
	delete(s.clans, oldName)

	for _, rec := range s.players {
		if rec.Clan == oldName {
			rec.Clan = newName
		}
	}
	return nil
}

func (s *Storage) GetClanMembers(_ context.Context, clan string) ([]*store.PlayerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	members := make([]*store.PlayerRecord, 0)
	for _, rec := range s.players {
		if rec.Clan == clan {
			cp := *rec
			members = append(members, &cp)
		}
	}

	sort.SliceStable(members, func(i, j int) bool {
		if members[i].Points != members[j].Points {
			return members[i].Points > members[j].Points
		}
		return members[i].ID < members[j].ID
	})
	return members, nil
}

// Battle operations

func (s *Storage) CreateBattle(_ context.Context, battle *store.ClanBattle) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range s.battles {
		if b.Status.Terminal() {
			continue
		}
		if b.Challenger == battle.Challenger || b.Defender == battle.Challenger ||
			b.Challenger == battle.Defender || b.Defender == battle.Defender {
			return "", store.ErrBattleActive
		}
	}

	cp := *battle
	s.battles[battle.ID] = &cp
	return battle.ID, nil
}

func (s *Storage) GetActiveBattle(_ context.Context, clan string) (*store.ClanBattle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, b := range s.battles {
		if b.Status.Terminal() {
			continue
		}
		if b.Challenger == clan || b.Defender == clan {
			cp := *b
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Storage) SetBattleStatus(_ context.Context, id string, status store.BattleStatus, winner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	battle, ok := s.battles[id]
	if !ok {
		return store.ErrNotFound
	}

	battle.Status = status
	battle.Winner = winner
	return nil
}

func (s *Storage) RecordRound(_ context.Context, round *store.RoundRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	battle, ok := s.battles[round.BattleID]
	if !ok {
		return store.ErrNotFound
	}

	if round.Number > battle.Round {
		battle.Round = round.Number
	}
	cp := *round
	s.rounds[round.BattleID] = append(s.rounds[round.BattleID], &cp)
	return nil
}

// Rounds returns the recorded rounds for a battle (test helper)
func (s *Storage) Rounds(battleID string) []*store.RoundRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*store.RoundRecord(nil), s.rounds[battleID]...)
}
