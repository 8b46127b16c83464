package api

import (
	"log"
	"net/http"
	"time"

	"pit-arena/internal/game"

	"github.com/go-chi/chi/v5"
)

// occupancyInterval paces the gauge refresh for online/in-pit counts.
const occupancyInterval = 5 * time.Second

// Server is the HTTP API server with WebSocket support.
// It combines the HTTP router with the WebSocket hub that carries all
// real-time arena traffic.
type Server struct {
	engine      *game.Engine
	router      *chi.Mux
	wsHub       *WebSocketHub
	rateLimiter *IPRateLimiter
}

// NewServer creates a new API server with default production configuration.
//
// IMPORTANT: Background workers do NOT start until Start() is called.
// This enables testing by allowing the server to be constructed without
// starting goroutines or opening network listeners.
//
// The hub is installed as the engine's pusher here, so intents processed
// after construction already reach connected clients.
func NewServer(engine *game.Engine) *Server {
	s := &Server{
		engine: engine,
		wsHub:  NewWebSocketHub(engine),
	}

	engine.SetPusher(s.wsHub)

	s.rateLimiter = NewIPRateLimiter(DefaultRateLimitConfig)

	s.router = NewRouter(RouterConfig{
		Engine:      engine,
		RateLimiter: s.rateLimiter,
	})

	// WebSocket endpoint needs the hub instance, so it can't live in the
	// generic NewRouter factory.
	s.router.Get("/ws", s.wsHub.HandleWebSocket)

	return s
}

// Start begins the HTTP server AND starts background workers.
// Call this method only once. To stop the server, signal the process.
func (s *Server) Start(addr string) error {
	go s.occupancyLoop()

	log.Printf("🌐 API server starting on %s", addr)
	log.Printf("🕳️ WebSocket endpoint: ws://localhost%s/ws", addr)

	return http.ListenAndServe(addr, s.router)
}

// occupancyLoop keeps the occupancy gauges fresh.
func (s *Server) occupancyLoop() {
	ticker := time.NewTicker(occupancyInterval)
	defer ticker.Stop()

	for range ticker.C {
		online, inPit := s.engine.Counts()
		UpdateOccupancy(online, inPit)
	}
}

// Router returns the HTTP handler for use with httptest.
// Use this in integration tests instead of calling Start().
func (s *Server) Router() http.Handler {
	return s.router
}

// Hub exposes the WebSocket hub, mainly for wiring and tests.
func (s *Server) Hub() *WebSocketHub {
	return s.wsHub
}

// Stop performs graceful shutdown of background workers.
func (s *Server) Stop() {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
}
