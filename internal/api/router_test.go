package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pit-arena/internal/game"
)

// stubEngine satisfies EngineInterface with canned data.
type stubEngine struct {
	states map[string]game.GameState
	rows   []game.LeaderboardRow
	online int
	inPit  int
}

func (s *stubEngine) StateFor(connID string) (game.GameState, bool) {
	st, ok := s.states[connID]
	return st, ok
}

func (s *stubEngine) OnlineLeaderboard() []game.LeaderboardRow { return s.rows }

func (s *stubEngine) Counts() (int, int) { return s.online, s.inPit }

func newTestServer(engine EngineInterface) *httptest.Server {
	router := NewRouter(RouterConfig{
		Engine: engine,
		RateLimitConfig: &RateLimitConfig{
			RequestsPerSecond: 1000,
			Burst:             1000,
			CleanupInterval:   time.Minute,
		},
		DisableLogging: true,
	})
	return httptest.NewServer(router)
}

// TestGetStateRequiresConnID tests the missing and unknown connId responses
func TestGetStateRequiresConnID(t *testing.T) {
	ts := newTestServer(&stubEngine{states: map[string]game.GameState{}})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/state")
	if err != nil {
		t.Fatalf("GET /api/state: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 without connId, got %d", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/api/state?connId=ghost")
	if err != nil {
		t.Fatalf("GET /api/state?connId=ghost: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 for an unknown connection, got %d", resp.StatusCode)
	}
}

// TestGetStateKnownConnection tests the personalized snapshot response
func TestGetStateKnownConnection(t *testing.T) {
	engine := &stubEngine{
		states: map[string]game.GameState{
			"c1": {You: game.PlayerView{ID: "p1", Name: "Ana", Points: 7}},
		},
	}
	ts := newTestServer(engine)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/state?connId=c1")
	if err != nil {
		t.Fatalf("GET /api/state?connId=c1: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	var state game.GameState
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		t.Fatalf("Decoding snapshot: %v", err)
	}
	if state.You.Name != "Ana" || state.You.Points != 7 {
		t.Errorf("Unexpected self-view: %+v", state.You)
	}
}

// TestGetStats tests the occupancy counters endpoint
func TestGetStats(t *testing.T) {
	ts := newTestServer(&stubEngine{online: 12, inPit: 4})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/stats")
	if err != nil {
		t.Fatalf("GET /api/stats: %v", err)
	}
	defer resp.Body.Close()

	var stats map[string]int
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("Decoding stats: %v", err)
	}
	if stats["online"] != 12 || stats["inPit"] != 4 {
		t.Errorf("Expected online=12 inPit=4, got %v", stats)
	}
}

// TestGetLeaderboard tests the public leaderboard endpoint
func TestGetLeaderboard(t *testing.T) {
	ts := newTestServer(&stubEngine{
		rows: []game.LeaderboardRow{
			{Name: "Ana", Points: 9},
			{Name: "Bo", Points: 3},
		},
	})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/leaderboard")
	if err != nil {
		t.Fatalf("GET /api/leaderboard: %v", err)
	}
	defer resp.Body.Close()

	var rows []game.LeaderboardRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		t.Fatalf("Decoding leaderboard: %v", err)
	}
	if len(rows) != 2 || rows[0].Name != "Ana" {
		t.Errorf("Unexpected leaderboard: %v", rows)
	}
}

// TestHealthz tests the liveness endpoint
func TestHealthz(t *testing.T) {
	ts := newTestServer(&stubEngine{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 from /healthz, got %d", resp.StatusCode)
	}
}

// TestGetClientIP tests proxy header precedence
func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xRealIP    string
		want       string
	}{
		{"remote addr only", "10.0.0.1:1234", "", "", "10.0.0.1"},
		{"x-forwarded-for wins", "10.0.0.1:1234", "203.0.113.5, 10.0.0.2", "", "203.0.113.5"},
		{"x-real-ip fallback", "10.0.0.1:1234", "", "203.0.113.9", "203.0.113.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xRealIP != "" {
				r.Header.Set("X-Real-IP", tt.xRealIP)
			}
			if got := GetClientIP(r); got != tt.want {
				t.Errorf("GetClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
