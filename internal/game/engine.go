// Package game is the authoritative core of the arena: combat resolution,
// the pit tick engine, the revenge ledger, clan battles and state snapshots.
//
// All shared state lives behind a single serializing Engine. Intents are
// processed to completion one at a time under the engine lock, so the tick
// engine and battle engine never observe a half-updated session. The
// persistence store is a durability sink only: every store call may fail and
// gameplay continues on in-memory state.
package game

import (
	"context"
	"log"
	"sync"
	"time"

	"pit-arena/internal/config"
	"pit-arena/internal/dependencies/clock"
	"pit-arena/internal/dependencies/random"
	"pit-arena/internal/store"
)

// storeTimeout bounds every fire-and-forget persistence call.
const storeTimeout = 3 * time.Second

// Pusher delivers an event to a single connection. Implemented by the
// WebSocket hub; a no-op pusher keeps the engine testable without sockets.
type Pusher interface {
	Send(connID string, event string, data interface{})
}

// Hooks are optional observation points for metrics and logging. They are
// invoked outside any hot path guarantees and must not call back into the
// engine.
type Hooks struct {
	OnDuel           func(DuelResult)
	OnBattleRound    func(BattleRound)
	OnBattleComplete func(battleID, winner string)
}

// EngineConfig wires the engine's collaborators.
type EngineConfig struct {
	Game   config.GameConfig
	Battle config.BattleConfig
	Store  store.Store
	Clock  clock.Clock
	Random random.Random
	Pusher Pusher
}

// Engine owns every piece of mutable arena state.
type Engine struct {
	mu sync.Mutex

	cfg       config.GameConfig
	battleCfg config.BattleConfig

	registry *Registry
	revenge  *RevengeLedger
	heckles  *HeckleFeed

	store  store.Store
	clock  clock.Clock
	rng    random.Random
	pusher Pusher
	hooks  Hooks

	// actionSeq orders attack declarations; resolution passes iterate
	// target groups in declaration order.
	actionSeq uint64

	// In-memory clan and battle state is the source of truth for
	// gameplay; the store mirror is best-effort durability.
	clans        map[string]*store.Clan
	battles      map[string]*store.ClanBattle
	battleByClan map[string]string

	// Cached all-time top 100, refreshed asynchronously.
	allTime []*store.PlayerRecord

	running  bool
	stopChan chan struct{}
	stopOnce sync.Once
}

// noopPusher satisfies Pusher for engines without a transport (tests).
type noopPusher struct{}

func (noopPusher) Send(string, string, interface{}) {}

// NewEngine creates an engine. Nothing runs until Start is called.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Random == nil {
		cfg.Random = random.New()
	}
	if cfg.Pusher == nil {
		cfg.Pusher = noopPusher{}
	}

	return &Engine{
		cfg:          cfg.Game,
		battleCfg:    cfg.Battle,
		registry:     NewRegistry(),
		revenge:      NewRevengeLedger(),
		heckles:      NewHeckleFeed(cfg.Game.HeckleFeedSize),
		store:        cfg.Store,
		clock:        cfg.Clock,
		rng:          cfg.Random,
		pusher:       cfg.Pusher,
		clans:        make(map[string]*store.Clan),
		battles:      make(map[string]*store.ClanBattle),
		battleByClan: make(map[string]string),
		stopChan:     make(chan struct{}),
	}
}

// SetHooks installs observation hooks. Call before Start.
func (e *Engine) SetHooks(h Hooks) {
	e.hooks = h
}

// SetPusher installs the outbound transport. Call before Start.
func (e *Engine) SetPusher(p Pusher) {
	e.pusher = p
}

// Start launches the resolution tick and the background expiry sweep.
// Attacks declared between ticks stay pending, which is what lets several
// attackers pile onto one target.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.mu.Unlock()

	go e.tickLoop()
	go e.sweepLoop()
	e.refreshAllTime()

	log.Printf("🕳️ Pit engine started (tick %s, sweep %s, defend timeout %s, revenge TTL %s)",
		e.cfg.TickInterval, e.cfg.SweepInterval, e.cfg.DefendTimeout, e.cfg.RevengeTTL)
}

// Stop halts the background sweep.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		close(e.stopChan)
	})
	log.Println("🛑 Pit engine stopped")
}

func (e *Engine) tickLoop() {
	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopChan:
			return
		case <-ticker.C:
			e.tick()
		}
	}
}

// tick runs one combat resolution pass over every pending attack.
func (e *Engine) tick() {
	e.mu.Lock()
	defer e.mu.Unlock()

	results := e.resolvePitLocked(e.clock.Now())
	if len(results) > 0 {
		e.pushAllLocked(EventBattleResults, results)
		e.broadcastLocked()
	}
}

func (e *Engine) sweepLoop() {
	ticker := time.NewTicker(e.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopChan:
			return
		case <-ticker.C:
			e.sweep()
		}
	}
}

// sweep expires stale defend postures and dead revenge entries, and
// broadcasts if anything changed.
func (e *Engine) sweep() {
	now := e.clock.Now()

	e.mu.Lock()
	changed := 0
	for _, s := range e.registry.All() {
		if s.Action == ActionDefend && now.Sub(s.ActionAt) > e.cfg.DefendTimeout {
			s.clearAction()
			changed++
		}
	}
	changed += e.revenge.Sweep(now)
	if changed > 0 {
		e.broadcastLocked()
	}
	e.mu.Unlock()

	e.refreshAllTime()
}

// refreshAllTime reloads the cached all-time leaderboard in the background.
func (e *Engine) refreshAllTime() {
	if e.store == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()

		top, err := e.store.TopPlayers(ctx, 100)
		if err != nil {
			log.Printf("⚠️ store: leaderboard refresh failed: %v", err)
			return
		}

		e.mu.Lock()
		e.allTime = top
		e.mu.Unlock()
	}()
}

// persistAsync mirrors a record to the store without blocking gameplay.
// Failure is logged and otherwise ignored: the store is a durability sink.
func (e *Engine) persistAsync(rec *store.PlayerRecord) {
	if e.store == nil {
		return
	}
	cp := *rec
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()

		if err := e.store.UpsertPlayer(ctx, &cp); err != nil {
			log.Printf("⚠️ store: upsert player %s failed: %v", cp.ID, err)
		}
	}()
}

// storeAsync runs an arbitrary store call off the lock, logging failure.
func (e *Engine) storeAsync(what string, fn func(ctx context.Context) error) {
	if e.store == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			log.Printf("⚠️ store: %s failed: %v", what, err)
		}
	}()
}

// Counts reports basic occupancy for the REST surface.
func (e *Engine) Counts() (online, inPit int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	online = e.registry.Len()
	for _, s := range e.registry.All() {
		if s.InPit {
			inPit++
		}
	}
	return online, inPit
}
