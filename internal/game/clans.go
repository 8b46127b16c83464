package game

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/google/uuid"

	"pit-arena/internal/store"
)

// CreateClan founds a clan. Founding costs points; the founder becomes the
// creator of record and the ownership sink for the clan's captures.
func (e *Engine) CreateClan(connID, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.registry.Get(connID)
	if s == nil {
		return ruleErrorf("not identified")
	}
	if s.Record.Clan != "" {
		return ruleErrorf("you already belong to a clan")
	}

	name = strings.TrimSpace(name)
	if name == "" || len(name) > e.cfg.ClanNameMax {
		return ruleErrorf("clan name must be 1-%d characters", e.cfg.ClanNameMax)
	}
	if e.clanExists(name) {
		return ruleErrorf("clan %q already exists", name)
	}
	if s.Record.Points < e.cfg.ClanCreateCost {
		return ruleErrorf("founding a clan costs %d points", e.cfg.ClanCreateCost)
	}

	s.Record.Points -= e.cfg.ClanCreateCost
	s.Record.Clan = name

	clan := &store.Clan{Name: name, CreatorID: s.Record.ID, CreatedAt: e.clock.Now()}
	e.clans[name] = clan

	e.persistAsync(s.Record)
	e.storeAsync("create clan", func(ctx context.Context) error {
		return e.store.CreateClan(ctx, clan)
	})

	log.Printf("🏴 %s founded clan %q", s.Record.Name, name)
	e.broadcastLocked()
	return nil
}

// JoinClan joins an existing clan.
func (e *Engine) JoinClan(connID, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.registry.Get(connID)
	if s == nil {
		return ruleErrorf("not identified")
	}
	if s.Record.Clan != "" {
		return ruleErrorf("you already belong to a clan")
	}
	if !e.clanExists(name) {
		return ruleErrorf("no such clan")
	}

	s.Record.Clan = name
	e.persistAsync(s.Record)
	e.broadcastLocked()
	return nil
}

// LeaveClan quits the current clan. Membership changes never touch an
// in-progress battle: rosters were snapshotted at start.
func (e *Engine) LeaveClan(connID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.registry.Get(connID)
	if s == nil {
		return ruleErrorf("not identified")
	}
	if s.Record.Clan == "" {
		return ruleErrorf("you are not in a clan")
	}

	s.Record.Clan = ""
	e.persistAsync(s.Record)
	e.broadcastLocked()
	return nil
}

// ChangeClanName renames the clan. Creator only; the new name must be free.
func (e *Engine) ChangeClanName(connID, newName string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.registry.Get(connID)
	if s == nil {
		return ruleErrorf("not identified")
	}
	if s.Record.Clan == "" {
		return ruleErrorf("you are not in a clan")
	}

	clan := e.lookupClan(s.Record.Clan)
	if clan == nil || clan.CreatorID != s.Record.ID {
		return ruleErrorf("only the clan creator can rename it")
	}

	newName = strings.TrimSpace(newName)
	if newName == "" || len(newName) > e.cfg.ClanNameMax {
		return ruleErrorf("clan name must be 1-%d characters", e.cfg.ClanNameMax)
	}
	if e.clanExists(newName) {
		return ruleErrorf("clan %q already exists", newName)
	}
	if id, ok := e.battleByClan[clan.Name]; ok {
		return ruleErrorf("cannot rename during battle %s", e.battles[id].Status)
	}

	oldName := clan.Name
	clan.Name = newName
	delete(e.clans, oldName)
	e.clans[newName] = clan

	for _, member := range e.registry.All() {
		if member.Record.Clan == oldName {
			member.Record.Clan = newName
			e.persistAsync(member.Record)
		}
	}

	e.storeAsync("rename clan", func(ctx context.Context) error {
		return e.store.RenameClan(ctx, oldName, newName)
	})
	e.broadcastLocked()
	return nil
}

// ChallengeClan opens a pending battle against another clan. A clan may have
// at most one non-terminal battle at a time.
func (e *Engine) ChallengeClan(connID, defenderClan string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.registry.Get(connID)
	if s == nil {
		return ruleErrorf("not identified")
	}
	if s.Record.Clan == "" {
		return ruleErrorf("join a clan before challenging")
	}
	if defenderClan == s.Record.Clan {
		return ruleErrorf("you cannot challenge your own clan")
	}
	if !e.clanExists(defenderClan) {
		return ruleErrorf("no such clan")
	}
	if _, busy := e.battleByClan[s.Record.Clan]; busy {
		return ruleErrorf("your clan already has an active battle")
	}
	if _, busy := e.battleByClan[defenderClan]; busy {
		return ruleErrorf("that clan already has an active battle")
	}

	battle := &store.ClanBattle{
		ID:         uuid.NewString(),
		Challenger: s.Record.Clan,
		Defender:   defenderClan,
		Status:     store.BattlePending,
		CreatedAt:  e.clock.Now(),
	}
	e.battles[battle.ID] = battle
	e.battleByClan[battle.Challenger] = battle.ID
	e.battleByClan[battle.Defender] = battle.ID

	e.storeAsync("create battle", func(ctx context.Context) error {
		_, err := e.store.CreateBattle(ctx, battle)
		return err
	})

	log.Printf("⚔️ clan battle challenged: %s vs %s", battle.Challenger, battle.Defender)
	e.pushAllLocked(EventClanChallenge, battle)
	return nil
}

// AcceptClanBattle accepts a pending challenge. Defender clan members only.
func (e *Engine) AcceptClanBattle(connID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, battle, err := e.pendingBattleFor(connID)
	if err != nil {
		return err
	}
	if s.Record.Clan != battle.Defender {
		return ruleErrorf("only the challenged clan can accept")
	}

	battle.Status = store.BattleAccepted
	e.mirrorBattleStatus(battle)
	e.pushAllLocked(EventClanAccepted, battle)
	return nil
}

// DeclineClanBattle declines a pending challenge. Defender clan members only.
func (e *Engine) DeclineClanBattle(connID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, battle, err := e.pendingBattleFor(connID)
	if err != nil {
		return err
	}
	if s.Record.Clan != battle.Defender {
		return ruleErrorf("only the challenged clan can decline")
	}

	battle.Status = store.BattleDeclined
	delete(e.battleByClan, battle.Challenger)
	delete(e.battleByClan, battle.Defender)
	e.mirrorBattleStatus(battle)
	e.pushAllLocked(EventClanDeclined, battle)
	return nil
}

// StartClanBattle kicks off an accepted battle. Either clan may start. The
// rosters are snapshotted here; later membership changes are invisible to
// the running series.
func (e *Engine) StartClanBattle(connID string) error {
	e.mu.Lock()

	s := e.registry.Get(connID)
	if s == nil {
		e.mu.Unlock()
		return ruleErrorf("not identified")
	}
	if s.Record.Clan == "" {
		e.mu.Unlock()
		return ruleErrorf("you are not in a clan")
	}

	id, ok := e.battleByClan[s.Record.Clan]
	if !ok {
		e.mu.Unlock()
		return ruleErrorf("your clan has no battle to start")
	}
	battle := e.battles[id]
	if battle.Status != store.BattleAccepted {
		e.mu.Unlock()
		return ruleErrorf("battle is %s, not accepted", battle.Status)
	}

	battle.Status = store.BattleInProgress
	e.mirrorBattleStatus(battle)
	challenger, defender := battle.Challenger, battle.Defender
	e.mu.Unlock()

	challengers := e.rosterSnapshot(challenger)
	defenders := e.rosterSnapshot(defender)
	if len(challengers) == 0 || len(defenders) == 0 {
		e.mu.Lock()
		battle.Status = store.BattleAccepted
		e.mirrorBattleStatus(battle)
		e.mu.Unlock()
		return ruleErrorf("both clans need at least one member")
	}

	log.Printf("⚔️ clan battle started: %s (%d) vs %s (%d)",
		challenger, len(challengers), defender, len(defenders))

	go e.runBattle(battle, challengers, defenders)
	return nil
}

// pendingBattleFor resolves the caller's clan's pending battle.
func (e *Engine) pendingBattleFor(connID string) (*Session, *store.ClanBattle, error) {
	s := e.registry.Get(connID)
	if s == nil {
		return nil, nil, ruleErrorf("not identified")
	}
	if s.Record.Clan == "" {
		return nil, nil, ruleErrorf("you are not in a clan")
	}
	id, ok := e.battleByClan[s.Record.Clan]
	if !ok {
		return nil, nil, ruleErrorf("no pending battle")
	}
	battle := e.battles[id]
	if battle.Status != store.BattlePending {
		return nil, nil, ruleErrorf("battle is %s, not pending", battle.Status)
	}
	return s, battle, nil
}

// mirrorBattleStatus pushes a battle's status to the store, fire-and-forget.
func (e *Engine) mirrorBattleStatus(battle *store.ClanBattle) {
	id, status, winner := battle.ID, battle.Status, battle.Winner
	e.storeAsync("set battle status", func(ctx context.Context) error {
		return e.store.SetBattleStatus(ctx, id, status, winner)
	})
}

// clanExists checks the in-memory clan set first, then the store.
func (e *Engine) clanExists(name string) bool {
	return e.lookupClan(name) != nil
}

// lookupClan resolves a clan from memory, falling back to the store and
// caching the result. A store failure degrades to memory-only.
func (e *Engine) lookupClan(name string) *store.Clan {
	if clan, ok := e.clans[name]; ok {
		return clan
	}
	if e.store == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	clan, err := e.store.GetClan(ctx, name)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("⚠️ store: get clan %q failed: %v", name, err)
		}
		return nil
	}
	e.clans[name] = clan
	return clan
}
