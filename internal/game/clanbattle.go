package game

import (
	"context"
	"log"
	"time"

	"pit-arena/internal/dependencies/random"
	"pit-arena/internal/store"
)

// BattleMember is one roster slot, frozen at battle start. Later membership
// or point changes do not reach a running series.
type BattleMember struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	DrawNumber     int    `json:"-"` // never serialized to clients
	CharacterImage int    `json:"characterImage"`
	Points         int    `json:"points"`
}

// BattleDuel is one paired exchange inside a round.
type BattleDuel struct {
	Challenger BattleMember `json:"challenger"`
	Defender   BattleMember `json:"defender"`
	AttackType AttackType   `json:"attackType"`
	WinnerID   string       `json:"winnerId"`
	LoserID    string       `json:"loserId"`
	Reason     string       `json:"reason"`
}

// BattleRound is the broadcast record of one round, including the running
// series score.
type BattleRound struct {
	BattleID         string       `json:"battleId"`
	Number           int          `json:"number"`
	Duels            []BattleDuel `json:"duels"`
	ChallengerWins   int          `json:"challengerWins"`
	DefenderWins     int          `json:"defenderWins"`
	WinnerClan       string       `json:"winnerClan,omitempty"` // empty on an even split
	SeriesChallenger int          `json:"seriesChallenger"`
	SeriesDefender   int          `json:"seriesDefender"`
}

// BattleComplete is the terminal broadcast for a series.
type BattleComplete struct {
	BattleID string   `json:"battleId"`
	Winner   string   `json:"winner"`
	Loser    string   `json:"loser"`
	Rounds   int      `json:"rounds"`
	Captured []string `json:"captured,omitempty"` // online members absorbed by the winner
}

// playRound simulates one round: shuffle each roster independently, pair
// position-for-position up to the shorter side, coin-flip the attack type
// per pair and compare draw numbers (higher wins for distance, lower for
// melee; ties go to the challenger side). Pure given its random source.
func playRound(battleID string, number int, challengers, defenders []BattleMember, rng random.Random) BattleRound {
	a := append([]BattleMember(nil), challengers...)
	b := append([]BattleMember(nil), defenders...)
	rng.Shuffle(len(a), func(i, j int) { a[i], a[j] = a[j], a[i] })
	rng.Shuffle(len(b), func(i, j int) { b[i], b[j] = b[j], b[i] })

	pairs := len(a)
	if len(b) < pairs {
		pairs = len(b)
	}

	round := BattleRound{BattleID: battleID, Number: number}
	for i := 0; i < pairs; i++ {
		attackType := AttackMelee
		if rng.Coin() {
			attackType = AttackDistance
		}

		duel := BattleDuel{Challenger: a[i], Defender: b[i], AttackType: attackType}

		challengerWins := false
		reason := ReasonTieAttackerWins
		switch {
		case a[i].DrawNumber == b[i].DrawNumber:
			challengerWins = true
		case attackType == AttackDistance:
			challengerWins = a[i].DrawNumber > b[i].DrawNumber
			reason = ReasonHigherNumber
		default:
			challengerWins = a[i].DrawNumber < b[i].DrawNumber
			reason = ReasonLowerNumber
		}

		duel.Reason = reason
		if challengerWins {
			duel.WinnerID, duel.LoserID = a[i].ID, b[i].ID
			round.ChallengerWins++
		} else {
			duel.WinnerID, duel.LoserID = b[i].ID, a[i].ID
			round.DefenderWins++
		}
		round.Duels = append(round.Duels, duel)
	}
	return round
}

// rosterSnapshot freezes a clan's current membership. The store is the
// authority because offline members fight too; when it is unavailable the
// roster degrades to whoever is online.
func (e *Engine) rosterSnapshot(clan string) []BattleMember {
	var records []*store.PlayerRecord
	if e.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()

		var err error
		records, err = e.store.GetClanMembers(ctx, clan)
		if err != nil {
			log.Printf("⚠️ store: clan members for %q failed, using online members: %v", clan, err)
			records = nil
		}
	}

	if records == nil {
		e.mu.Lock()
		for _, s := range e.registry.All() {
			if s.Record.Clan == clan {
				cp := *s.Record
				records = append(records, &cp)
			}
		}
		e.mu.Unlock()
	}

	roster := make([]BattleMember, 0, len(records))
	for _, rec := range records {
		roster = append(roster, BattleMember{
			ID:             rec.ID,
			Name:           rec.Name,
			DrawNumber:     rec.DrawNumber,
			CharacterImage: rec.CharacterImage,
			Points:         rec.Points,
		})
	}
	return roster
}

// runBattle drives a best-of-N series to completion, then settles it in a
// single batch. Runs on its own goroutine; every state touch happens under
// the engine lock, and the inter-round delay is taken with the lock
// released so the arena keeps playing.
func (e *Engine) runBattle(battle *store.ClanBattle, challengers, defenders []BattleMember) {
	var rounds []BattleRound
	seriesChallenger, seriesDefender := 0, 0

	for number := 1; number <= e.battleCfg.MaxRounds; number++ {
		e.mu.Lock()
		round := playRound(battle.ID, number, challengers, defenders, e.rng)
		if round.ChallengerWins > round.DefenderWins {
			seriesChallenger++
			round.WinnerClan = battle.Challenger
		} else if round.DefenderWins > round.ChallengerWins {
			seriesDefender++
			round.WinnerClan = battle.Defender
		}
		round.SeriesChallenger = seriesChallenger
		round.SeriesDefender = seriesDefender
		battle.Round = number
		rounds = append(rounds, round)

		e.pushAllLocked(EventClanRound, round)
		if e.hooks.OnBattleRound != nil {
			e.hooks.OnBattleRound(round)
		}
		e.mu.Unlock()

		roundCopy := round
		e.storeAsync("record round", func(ctx context.Context) error {
			return e.store.RecordRound(ctx, &store.RoundRecord{
				BattleID:       roundCopy.BattleID,
				Number:         roundCopy.Number,
				ChallengerWins: roundCopy.ChallengerWins,
				DefenderWins:   roundCopy.DefenderWins,
				WinnerClan:     roundCopy.WinnerClan,
				PlayedAt:       e.clock.Now(),
			})
		})

		if seriesChallenger >= e.battleCfg.RoundsToWin || seriesDefender >= e.battleCfg.RoundsToWin {
			break
		}
		if number < e.battleCfg.MaxRounds {
			// Animation pacing only; correctness never depends on this pause.
			time.Sleep(e.battleCfg.RoundDelay)
		}
	}

	e.settleBattle(battle, rounds, seriesChallenger, seriesDefender, challengers, defenders)
}

// settleBattle applies the whole series in one batch under the engine lock:
// per-duel point transfers floored at zero, then capture of losing-side
// members stranded at exactly zero who still wear the losing clan's colors.
// Nothing outside observes a half-settled battle.
func (e *Engine) settleBattle(battle *store.ClanBattle, rounds []BattleRound, seriesChallenger, seriesDefender int, challengers, defenders []BattleMember) {
	winner := battle.Challenger
	loserClan := battle.Defender
	if seriesDefender > seriesChallenger {
		winner = battle.Defender
		loserClan = battle.Challenger
	}

	// Accumulate deltas per player across every duel of the series.
	deltas := make(map[string]int)
	order := make([]string, 0)
	note := func(id string, d int) {
		if _, seen := deltas[id]; !seen {
			order = append(order, id)
		}
		deltas[id] += d
	}
	for _, round := range rounds {
		for _, duel := range round.Duels {
			note(duel.WinnerID, +1)
			note(duel.LoserID, -1)
		}
	}

	losingRoster := defenders
	if loserClan == battle.Challenger {
		losingRoster = challengers
	}
	onLosingSide := make(map[string]bool)
	for _, m := range losingRoster {
		onLosingSide[m.ID] = true
	}

	e.mu.Lock()

	winnerCreator := winner
	if clan := e.lookupClan(winner); clan != nil {
		winnerCreator = clan.CreatorID
	}

	var captured []string
	for _, id := range order {
		delta := deltas[id]

		// Online members settle against their live record. Offline members
		// settle through the store, and their capture is decided there from
		// the balance the adjustment actually lands on: the roster snapshot
		// may be stale by the time the series ends.
		if s := e.registry.ByPlayerID(id); s != nil {
			s.Record.Points += delta
			if s.Record.Points < 0 {
				s.Record.Points = 0
			}

			if onLosingSide[id] && s.Record.Points == 0 && s.Record.Clan == loserClan {
				s.Record.Clan = winner
				s.Record.OwnerID = winnerCreator
				captured = append(captured, s.Record.Name)
			}
			e.persistAsync(s.Record)
			continue
		}

		playerID := id
		d := delta
		losing := onLosingSide[id]
		e.storeAsync("settle points", func(ctx context.Context) error {
			balance, err := e.store.AdjustPoints(ctx, playerID, d)
			if err != nil {
				return err
			}
			if !losing || balance != 0 {
				return nil
			}
			rec, err := e.store.GetPlayer(ctx, playerID)
			if err != nil {
				return err
			}
			if rec.Clan != loserClan {
				return nil // already moved on, no capture
			}
			return e.store.TransferOwnership(ctx, playerID, winner, winnerCreator)
		})
	}

	battle.Status = store.BattleCompleted
	battle.Winner = winner
	delete(e.battleByClan, battle.Challenger)
	delete(e.battleByClan, battle.Defender)
	e.mirrorBattleStatus(battle)

	complete := BattleComplete{
		BattleID: battle.ID,
		Winner:   winner,
		Loser:    loserClan,
		Rounds:   len(rounds),
		Captured: captured,
	}
	e.pushAllLocked(EventClanComplete, complete)
	if e.hooks.OnBattleComplete != nil {
		e.hooks.OnBattleComplete(battle.ID, winner)
	}
	e.broadcastLocked()
	e.mu.Unlock()

	log.Printf("🏆 clan battle %s: %s defeats %s in %d rounds (%d captured)",
		battle.ID, winner, loserClan, len(rounds), len(captured))

	e.refreshAllTime()
}
