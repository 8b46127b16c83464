package game

import "time"

// Combatant is the resolver's view of one side of a duel. It carries only
// what the rules need, so resolution stays a pure function over values.
type Combatant struct {
	Key          string // session key
	Name         string
	DrawNumber   int
	Action       Action
	ActionTarget string
	ActionAt     time.Time
	AttackType   AttackType
}

// Outcome is the resolver's verdict for a single exchange.
type Outcome struct {
	WinnerKey  string
	LoserKey   string
	Reason     string
	AttackType AttackType
}

// Duel reasons surfaced to clients.
const (
	ReasonCaughtAttacking    = "caught attacking"
	ReasonDistanceBeatsMelee = "distance beats melee"
	ReasonFasterDraw         = "faster draw"
	ReasonHigherNumber       = "higher number wins"
	ReasonLowerNumber        = "lower number wins"
	ReasonTieAttackerWins    = "tie - attacker wins"
	ReasonGangAttack         = "gang attack"
)

// Resolve decides a one-on-one exchange. Rules in priority order:
//
//  1. A defender mid-attack against a third party auto-loses: attacking
//     leaves you open.
//  2. Mutual duel (both attacking each other): distance beats melee
//     unconditionally; same type falls to the earlier declaration.
//  3. Otherwise the draw numbers decide: a distance attacker needs the
//     higher number, a melee attacker the lower one. Equal numbers go to
//     the attacker - initiating pays on ties.
func Resolve(attacker, defender Combatant) Outcome {
	// Rule 1: defender busy attacking someone else
	if defender.Action == ActionAttack && defender.ActionTarget != attacker.Key {
		return Outcome{
			WinnerKey:  attacker.Key,
			LoserKey:   defender.Key,
			Reason:     ReasonCaughtAttacking,
			AttackType: attacker.AttackType,
		}
	}

	// Rule 2: mutual duel
	if defender.Action == ActionAttack && defender.ActionTarget == attacker.Key {
		if attacker.AttackType != defender.AttackType {
			winner, loser := attacker, defender
			if defender.AttackType == AttackDistance {
				winner, loser = defender, attacker
			}
			return Outcome{
				WinnerKey:  winner.Key,
				LoserKey:   loser.Key,
				Reason:     ReasonDistanceBeatsMelee,
				AttackType: winner.AttackType,
			}
		}

		// Same type: earlier declaration wins. Equal timestamps fall to the
		// attacker currently being processed, i.e. the earlier-declared attack.
		winner, loser := attacker, defender
		if defender.ActionAt.Before(attacker.ActionAt) {
			winner, loser = defender, attacker
		}
		return Outcome{
			WinnerKey:  winner.Key,
			LoserKey:   loser.Key,
			Reason:     ReasonFasterDraw,
			AttackType: winner.AttackType,
		}
	}

	// Rule 3: defender is defending or idle - compare draw numbers
	if attacker.DrawNumber == defender.DrawNumber {
		return Outcome{
			WinnerKey:  attacker.Key,
			LoserKey:   defender.Key,
			Reason:     ReasonTieAttackerWins,
			AttackType: attacker.AttackType,
		}
	}

	if attacker.AttackType == AttackDistance {
		if attacker.DrawNumber > defender.DrawNumber {
			return Outcome{WinnerKey: attacker.Key, LoserKey: defender.Key, Reason: ReasonHigherNumber, AttackType: attacker.AttackType}
		}
		return Outcome{WinnerKey: defender.Key, LoserKey: attacker.Key, Reason: ReasonHigherNumber, AttackType: attacker.AttackType}
	}

	if attacker.DrawNumber < defender.DrawNumber {
		return Outcome{WinnerKey: attacker.Key, LoserKey: defender.Key, Reason: ReasonLowerNumber, AttackType: attacker.AttackType}
	}
	return Outcome{WinnerKey: defender.Key, LoserKey: attacker.Key, Reason: ReasonLowerNumber, AttackType: attacker.AttackType}
}
