package game

import (
	"context"
	"errors"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"pit-arena/internal/store"
)

// Character creation bounds.
const (
	drawNumberRange = 99 // draw numbers live in [0,99)
	characterImages = 52 // character images live in [1,52]
)

// Identify binds a connection to a persistent character, loading it from the
// store or minting a fresh one, and pushes the welcome snapshot. A stale
// challenge day is reset here, on the way into the session.
func (e *Engine) Identify(connID, playerID, name string) error {
	now := e.clock.Now()

	// Store I/O stays off the lock; minting waits for it because the rng
	// is only safe under the lock.
	rec := e.loadRecord(playerID, name)

	e.mu.Lock()
	defer e.mu.Unlock()

	if rec == nil {
		rec = e.mintRecordLocked(playerID, name)
	}
	resetChallengesIfStale(rec, now)

	s := &Session{ConnID: connID, Record: rec}
	e.registry.Add(s)
	e.persistAsync(rec)

	log.Printf("👤 %s identified (%d online)", rec.Name, e.registry.Len())

	e.pusher.Send(connID, EventWelcome, e.welcomeFor(s))
	e.broadcastLocked()
	return nil
}

// loadRecord fetches the durable record, or nil when the store has nothing
// or is unavailable.
func (e *Engine) loadRecord(playerID, name string) *store.PlayerRecord {
	if playerID == "" || e.store == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	rec, err := e.store.GetPlayer(ctx, playerID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("⚠️ store: get player %s failed: %v", playerID, err)
		}
		return nil
	}
	if name != "" {
		rec.Name = truncate(name, e.cfg.NameMax)
	}
	return rec
}

// mintRecordLocked creates a fresh character. Caller holds the engine lock,
// which guards the shared rng.
func (e *Engine) mintRecordLocked(playerID, name string) *store.PlayerRecord {
	if playerID == "" {
		playerID = uuid.NewString()
	}
	if name == "" {
		name = "Pit Fighter"
	}
	return &store.PlayerRecord{
		ID:             playerID,
		Name:           truncate(name, e.cfg.NameMax),
		Points:         0,
		DrawNumber:     e.rng.Intn(drawNumberRange),
		CharacterImage: 1 + e.rng.Intn(characterImages),
	}
}

// Disconnect tears down the session. The character record outlives it.
func (e *Engine) Disconnect(connID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.registry.Get(connID)
	if s == nil {
		return
	}

	e.persistAsync(s.Record)
	e.registry.Remove(connID)

	log.Printf("👋 %s disconnected (%d online)", s.Record.Name, e.registry.Len())
	e.broadcastLocked()
}

// SelectCharacter picks a character image.
func (e *Engine) SelectCharacter(connID string, image int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.registry.Get(connID)
	if s == nil {
		return ruleErrorf("not identified")
	}
	if image < 1 || image > characterImages {
		return ruleErrorf("invalid character image")
	}

	s.Record.CharacterImage = image
	e.persistAsync(s.Record)
	e.broadcastLocked()
	return nil
}

// SwitchCharacter rerolls the character image and draw number. Not allowed
// while standing in the pit.
func (e *Engine) SwitchCharacter(connID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.registry.Get(connID)
	if s == nil {
		return ruleErrorf("not identified")
	}
	if s.InPit {
		return ruleErrorf("leave the pit before switching characters")
	}

	s.Record.CharacterImage = 1 + e.rng.Intn(characterImages)
	s.Record.DrawNumber = e.rng.Intn(drawNumberRange)
	e.persistAsync(s.Record)
	e.broadcastLocked()
	return nil
}

// ChangeName renames the character.
func (e *Engine) ChangeName(connID, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.registry.Get(connID)
	if s == nil {
		return ruleErrorf("not identified")
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return ruleErrorf("name cannot be empty")
	}

	s.Record.Name = truncate(name, e.cfg.NameMax)
	e.persistAsync(s.Record)
	e.broadcastLocked()
	return nil
}

// JoinPit enters the arena.
func (e *Engine) JoinPit(connID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.registry.Get(connID)
	if s == nil {
		return ruleErrorf("not identified")
	}
	if s.InPit {
		return ruleErrorf("already in the pit")
	}

	s.InPit = true
	s.clearAction()
	e.broadcastLocked()
	return nil
}

// LeavePit exits the arena, abandoning any pending action.
func (e *Engine) LeavePit(connID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.registry.Get(connID)
	if s == nil {
		return ruleErrorf("not identified")
	}
	if !s.InPit {
		return ruleErrorf("not in the pit")
	}

	s.InPit = false
	s.clearAction()
	e.broadcastLocked()
	return nil
}

// Defend declares a defend posture. It decays after the defend timeout.
func (e *Engine) Defend(connID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.registry.Get(connID)
	if s == nil {
		return ruleErrorf("not identified")
	}
	if !s.InPit {
		return ruleErrorf("you are not in the pit")
	}

	s.Action = ActionDefend
	s.ActionTarget = ""
	s.AttackType = ""
	s.ActionAt = e.clock.Now()
	e.broadcastLocked()
	return nil
}

// Attack declares an attack. It stays pending until the next resolution
// tick, so several attackers can pile onto one target.
func (e *Engine) Attack(connID, targetConnID string, attackType AttackType) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.registry.Get(connID)
	if s == nil {
		return ruleErrorf("not identified")
	}
	if !s.InPit {
		return ruleErrorf("you are not in the pit")
	}
	if !attackType.Valid() {
		return ruleErrorf("invalid attack type")
	}
	if targetConnID == connID {
		return ruleErrorf("you cannot attack yourself")
	}
	target := e.registry.Get(targetConnID)
	if target == nil || !target.InPit {
		return ruleErrorf("target is not in the pit")
	}

	e.actionSeq++
	s.Action = ActionAttack
	s.ActionTarget = targetConnID
	s.AttackType = attackType
	s.ActionAt = e.clock.Now()
	s.ActionSeq = e.actionSeq

	e.broadcastLocked()
	return nil
}

// SendHeckle posts a taunt. Only the freshest winner may speak, once.
func (e *Engine) SendHeckle(connID, message string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.registry.Get(connID)
	if s == nil {
		return ruleErrorf("not identified")
	}
	if !s.CanHeckle {
		return ruleErrorf("win a duel before heckling")
	}

	message = strings.TrimSpace(message)
	if message == "" {
		return ruleErrorf("nothing to say?")
	}

	s.CanHeckle = false
	e.heckles.Add(Heckle{
		Speaker:        s.Record.Name,
		Message:        truncate(message, e.cfg.HeckleMax),
		CharacterImage: s.Record.CharacterImage,
		At:             e.clock.Now(),
	})
	e.broadcastLocked()
	return nil
}

// ClaimChallenge pays out a completed daily challenge.
func (e *Engine) ClaimChallenge(connID string, challenge ChallengeType) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.registry.Get(connID)
	if s == nil {
		return ruleErrorf("not identified")
	}

	now := e.clock.Now()
	resetChallengesIfStale(s.Record, now)
	ch := &s.Record.Challenges

	switch challenge {
	case ChallengeRevenge:
		if ch.RevengeClaimed {
			return ruleErrorf("revenge challenge already claimed today")
		}
		if ch.RevengeKills < e.cfg.RevengeChallenge {
			return ruleErrorf("revenge challenge not complete")
		}
		ch.RevengeClaimed = true
	case ChallengeStreak:
		if ch.StreakClaimed {
			return ruleErrorf("streak challenge already claimed today")
		}
		if ch.MaxStreak < e.cfg.StreakChallenge {
			return ruleErrorf("streak challenge not complete")
		}
		ch.StreakClaimed = true
	default:
		return ruleErrorf("unknown challenge")
	}

	s.Record.Points += e.cfg.ChallengeReward
	e.persistAsync(s.Record)
	e.broadcastLocked()
	return nil
}

// RecruitPlayer absorbs a broke, clanless character into the recruiter's
// clan and ownership. The manual counterpart of a combat capture.
func (e *Engine) RecruitPlayer(connID, targetPlayerID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.registry.Get(connID)
	if s == nil {
		return ruleErrorf("not identified")
	}
	if s.Record.Clan == "" {
		return ruleErrorf("join a clan before recruiting")
	}
	if targetPlayerID == s.Record.ID {
		return ruleErrorf("you cannot recruit yourself")
	}

	target := e.registry.ByPlayerID(targetPlayerID)
	if target != nil {
		if target.Record.Points != 0 {
			return ruleErrorf("target still has points")
		}
		if target.Record.Clan != "" {
			return ruleErrorf("target already belongs to a clan")
		}
		target.Record.Clan = s.Record.Clan
		target.Record.OwnerID = s.Record.ID
		e.persistAsync(target.Record)
		e.broadcastLocked()
		return nil
	}

	// Offline target: go through the store.
	if e.store == nil {
		return ruleErrorf("target not found")
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	rec, err := e.store.GetPlayer(ctx, targetPlayerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ruleErrorf("target not found")
		}
		log.Printf("⚠️ store: get player %s failed: %v", targetPlayerID, err)
		return ruleErrorf("target not found")
	}
	if rec.Points != 0 {
		return ruleErrorf("target still has points")
	}
	if rec.Clan != "" {
		return ruleErrorf("target already belongs to a clan")
	}

	clan, owner := s.Record.Clan, s.Record.ID
	e.storeAsync("transfer ownership", func(ctx context.Context) error {
		return e.store.TransferOwnership(ctx, targetPlayerID, clan, owner)
	})
	e.broadcastLocked()
	return nil
}

// truncate clips s to at most max bytes without splitting a rune.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
