package game

import "sort"

// Outbound event names shared with the transport layer.
const (
	EventWelcome       = "welcome"
	EventGameState     = "gameState"
	EventBattleResults = "battleResults"
	EventClanChallenge = "clanBattleChallenge"
	EventClanAccepted  = "clanBattleAccepted"
	EventClanDeclined  = "clanBattleDeclined"
	EventClanRound     = "clanBattleRound"
	EventClanComplete  = "clanBattleComplete"
	EventError         = "error"
)

// PlayerView is the self-view in the welcome payload. Unlike public rows it
// includes the persistent ID and challenge progress, but still no draw
// number: that stays server-side for everyone.
type PlayerView struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Points         int    `json:"points"`
	CharacterImage int    `json:"characterImage"`
	Clan           string `json:"clan,omitempty"`
	OwnerID        string `json:"ownerId,omitempty"`
	Streak         int    `json:"streak"`
	CanHeckle      bool   `json:"canHeckle"`
	RevengeKills   int    `json:"revengeKills"`
	MaxStreak      int    `json:"maxStreak"`
	RevengeClaimed bool   `json:"revengeClaimed"`
	StreakClaimed  bool   `json:"streakClaimed"`
}

// LeaderboardRow is one online player, sorted by points descending.
type LeaderboardRow struct {
	Name           string `json:"name"`
	Points         int    `json:"points"`
	Clan           string `json:"clan,omitempty"`
	CharacterImage int    `json:"characterImage"`
}

// PitOccupant is one player standing in the pit, as seen by a specific
// viewer: Revenge is true only when the viewer holds a live claim on them.
type PitOccupant struct {
	ConnID         string `json:"connId"`
	Name           string `json:"name"`
	Points         int    `json:"points"`
	Streak         int    `json:"streak"`
	CharacterImage int    `json:"characterImage"`
	Status         string `json:"status"` // idle|defending|attacking
	Revenge        bool   `json:"revenge"`
}

// AllTimeRow is one row of the persisted top 100, flagged online by
// cross-referencing the registry.
type AllTimeRow struct {
	Name           string `json:"name"`
	Points         int    `json:"points"`
	Clan           string `json:"clan,omitempty"`
	CharacterImage int    `json:"characterImage"`
	Online         bool   `json:"online"`
}

// GameState is the full personalized snapshot pushed after every mutation.
// Pushes are idempotent: no diffing, each one replaces the previous view.
type GameState struct {
	You         PlayerView       `json:"you"`
	Leaderboard []LeaderboardRow `json:"leaderboard"`
	Pit         []PitOccupant    `json:"pit"`
	AllTime     []AllTimeRow     `json:"allTime"`
	Heckles     []Heckle         `json:"heckles"`
}

// welcomeFor builds the initial payload for a freshly identified session.
func (e *Engine) welcomeFor(s *Session) GameState {
	return e.stateFor(s)
}

// playerView projects a session's self-view.
func playerView(s *Session) PlayerView {
	return PlayerView{
		ID:             s.Record.ID,
		Name:           s.Record.Name,
		Points:         s.Record.Points,
		CharacterImage: s.Record.CharacterImage,
		Clan:           s.Record.Clan,
		OwnerID:        s.Record.OwnerID,
		Streak:         s.Streak,
		CanHeckle:      s.CanHeckle,
		RevengeKills:   s.Record.Challenges.RevengeKills,
		MaxStreak:      s.Record.Challenges.MaxStreak,
		RevengeClaimed: s.Record.Challenges.RevengeClaimed,
		StreakClaimed:  s.Record.Challenges.StreakClaimed,
	}
}

// stateFor builds the personalized snapshot for one viewer. Caller holds the
// engine lock.
func (e *Engine) stateFor(viewer *Session) GameState {
	now := e.clock.Now()
	sessions := e.registry.All()

	board := onlineBoard(sessions)

	pit := make([]PitOccupant, 0)
	for _, s := range sessions {
		if !s.InPit {
			continue
		}
		status := "idle"
		switch s.Action {
		case ActionDefend:
			status = "defending"
		case ActionAttack:
			status = "attacking"
		}
		pit = append(pit, PitOccupant{
			ConnID:         s.ConnID,
			Name:           s.Record.Name,
			Points:         s.Record.Points,
			Streak:         s.Streak,
			CharacterImage: s.Record.CharacterImage,
			Status:         status,
			Revenge:        e.revenge.Holds(viewer.Record.ID, s.Record.ID, now),
		})
	}

	allTime := make([]AllTimeRow, 0, len(e.allTime))
	for _, rec := range e.allTime {
		allTime = append(allTime, AllTimeRow{
			Name:           rec.Name,
			Points:         rec.Points,
			Clan:           rec.Clan,
			CharacterImage: rec.CharacterImage,
			Online:         e.registry.ByPlayerID(rec.ID) != nil,
		})
	}

	return GameState{
		You:         playerView(viewer),
		Leaderboard: board,
		Pit:         pit,
		AllTime:     allTime,
		Heckles:     e.heckles.Recent(),
	}
}

// broadcastLocked regenerates and pushes a personalized snapshot to every
// connection. Caller holds the engine lock.
func (e *Engine) broadcastLocked() {
	for _, s := range e.registry.All() {
		e.pusher.Send(s.ConnID, EventGameState, e.stateFor(s))
	}
}

// pushAllLocked sends the same event payload to every connection. Caller
// holds the engine lock.
func (e *Engine) pushAllLocked(event string, data interface{}) {
	for _, s := range e.registry.All() {
		e.pusher.Send(s.ConnID, event, data)
	}
}

// StateFor builds a snapshot for one connection on demand (REST surface).
func (e *Engine) StateFor(connID string) (GameState, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.registry.Get(connID)
	if s == nil {
		return GameState{}, false
	}
	return e.stateFor(s), true
}

// OnlineLeaderboard returns the current online leaderboard (REST surface).
func (e *Engine) OnlineLeaderboard() []LeaderboardRow {
	e.mu.Lock()
	defer e.mu.Unlock()

	return onlineBoard(e.registry.All())
}

// onlineBoard projects sessions into leaderboard rows, points descending.
// The stable sort keeps equal-point players in join order.
func onlineBoard(sessions []*Session) []LeaderboardRow {
	board := make([]LeaderboardRow, 0, len(sessions))
	for _, s := range sessions {
		board = append(board, LeaderboardRow{
			Name:           s.Record.Name,
			Points:         s.Record.Points,
			Clan:           s.Record.Clan,
			CharacterImage: s.Record.CharacterImage,
		})
	}
	sort.SliceStable(board, func(i, j int) bool {
		return board[i].Points > board[j].Points
	})
	return board
}
