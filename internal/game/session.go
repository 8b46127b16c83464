package game

import (
	"time"

	"pit-arena/internal/store"
)

// AttackType is the declared weapon class for an attack.
type AttackType string

const (
	AttackDistance AttackType = "distance"
	AttackMelee    AttackType = "melee"
)

// Valid reports whether the client supplied a known attack type.
func (t AttackType) Valid() bool {
	return t == AttackDistance || t == AttackMelee
}

// Action is a session's declared combat posture.
type Action string

const (
	ActionNone   Action = "none"
	ActionDefend Action = "defend"
	ActionAttack Action = "attack"
)

// Session is the live, ephemeral state of one connection. It wraps the
// durable record's fields plus the combat state that dies with the socket.
// Sessions are owned exclusively by the engine; nothing outside the engine
// lock may touch one.
type Session struct {
	ConnID string
	Record *store.PlayerRecord

	InPit        bool
	Action       Action
	ActionTarget string // conn ID of the attack target
	ActionAt     time.Time
	ActionSeq    uint64 // engine-wide declaration counter, drives tick ordering
	AttackType   AttackType

	Streak    int
	CanHeckle bool
}

// clearAction resets the pending combat declaration.
func (s *Session) clearAction() {
	s.Action = ActionNone
	s.ActionTarget = ""
	s.AttackType = ""
	s.ActionSeq = 0
}

// combatant projects the session into the pure resolver's view.
func (s *Session) combatant() Combatant {
	return Combatant{
		Key:          s.ConnID,
		Name:         s.Record.Name,
		DrawNumber:   s.Record.DrawNumber,
		Action:       s.Action,
		ActionTarget: s.ActionTarget,
		ActionAt:     s.ActionAt,
		AttackType:   s.AttackType,
	}
}
