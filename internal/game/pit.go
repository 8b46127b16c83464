package game

import (
	"sort"
	"time"
)

// DuelResult is one resolved exchange, shaped for client display.
type DuelResult struct {
	Attacker   string     `json:"attacker"`
	Defender   string     `json:"defender"`
	Winner     string     `json:"winner"`
	Loser      string     `json:"loser"`
	Reason     string     `json:"reason"`
	AttackType AttackType `json:"attackType"`
	Revenge    bool       `json:"revenge"`
	Capture    bool       `json:"capture"`
	StreakKill bool       `json:"streakKill"`
}

// attackGroup is all attackers that declared against one target, in
// declaration order.
type attackGroup struct {
	targetConn string
	attackers  []*Session
}

// resolvePitLocked converts every pending attack into a consistent batch of
// outcomes, applied exactly once. Caller holds the engine lock.
//
// Grouping walks attackers in declaration order, so target groups resolve in
// the order their first attack arrived. A session that already lost earlier
// in the pass is skipped as an attacker, and a target that already left the
// pit silently drops its whole group.
func (e *Engine) resolvePitLocked(now time.Time) []DuelResult {
	attackers := make([]*Session, 0)
	for _, s := range e.registry.All() {
		if s.InPit && s.Action == ActionAttack {
			attackers = append(attackers, s)
		}
	}
	sort.SliceStable(attackers, func(i, j int) bool {
		return attackers[i].ActionSeq < attackers[j].ActionSeq
	})

	groups := make([]*attackGroup, 0)
	byTarget := make(map[string]*attackGroup)
	for _, a := range attackers {
		g, ok := byTarget[a.ActionTarget]
		if !ok {
			g = &attackGroup{targetConn: a.ActionTarget}
			byTarget[a.ActionTarget] = g
			groups = append(groups, g)
		}
		g.attackers = append(g.attackers, a)
	}

	lost := make(map[string]bool)
	results := make([]DuelResult, 0, len(groups))

	for _, g := range groups {
		target := e.registry.Get(g.targetConn)
		if target == nil || !target.InPit {
			continue // target vanished or already resolved, drop silently
		}

		live := make([]*Session, 0, len(g.attackers))
		for _, a := range g.attackers {
			if !lost[a.ConnID] && a.InPit {
				live = append(live, a)
			}
		}
		if len(live) == 0 {
			continue
		}

		if len(live) > 1 {
			// Gang attack: one shared loss, every attacker credited a win.
			// The first attacker takes the capture and the revenge debt.
			e.applyLoss(target, live[0], now)
			lost[target.ConnID] = true

			for i, a := range live {
				res := DuelResult{
					Attacker:   a.Record.Name,
					Defender:   target.Record.Name,
					Winner:     a.Record.Name,
					Loser:      target.Record.Name,
					Reason:     ReasonGangAttack,
					AttackType: a.AttackType,
				}
				res.Revenge, res.StreakKill = e.applyWin(a, target, now)
				res.Capture = i == 0 && target.Record.Points == 0
				results = append(results, res)
			}
			continue
		}

		a := live[0]
		out := Resolve(a.combatant(), target.combatant())

		winner, loser := a, target
		if out.WinnerKey == target.ConnID {
			winner, loser = target, a
		}

		e.applyLoss(loser, winner, now)
		lost[loser.ConnID] = true

		res := DuelResult{
			Attacker:   a.Record.Name,
			Defender:   target.Record.Name,
			Winner:     winner.Record.Name,
			Loser:      loser.Record.Name,
			Reason:     out.Reason,
			AttackType: out.AttackType,
			Capture:    loser.Record.Points == 0,
		}
		res.Revenge, res.StreakKill = e.applyWin(winner, loser, now)
		results = append(results, res)
	}

	for _, res := range results {
		if e.hooks.OnDuel != nil {
			e.hooks.OnDuel(res)
		}
	}
	return results
}

// applyLoss applies the loser side effects: one point gone (floored at
// zero), streak reset, ejection from the pit, a revenge debt pointed at the
// winner, and capture when the balance lands on exactly zero.
func (e *Engine) applyLoss(loser, winner *Session, now time.Time) {
	if loser.Record.Points > 0 {
		loser.Record.Points--
	}
	loser.Streak = 0
	loser.InPit = false
	loser.clearAction()

	e.revenge.Record(loser.Record.ID, winner.Record.ID, now.Add(e.cfg.RevengeTTL))

	if loser.Record.Points == 0 {
		loser.Record.Clan = winner.Record.Clan
		loser.Record.OwnerID = winner.Record.ID
	}

	e.persistAsync(loser.Record)
}

// applyWin applies the winner side effects and reports whether the win
// consumed a revenge debt and whether it extends a display-worthy streak.
func (e *Engine) applyWin(winner, loser *Session, now time.Time) (revenge, streakKill bool) {
	delta := 1
	if e.revenge.Claim(winner.Record.ID, loser.Record.ID, now) {
		delta += 2
		revenge = true
		noteRevengeKill(winner.Record, now)
	}
	winner.Record.Points += delta

	winner.Streak++
	noteStreak(winner.Record, winner.Streak, now)

	winner.clearAction()
	winner.CanHeckle = true

	e.persistAsync(winner.Record)
	return revenge, winner.Streak >= e.cfg.StreakKillAt
}
