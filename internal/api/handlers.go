package api

import (
	"encoding/json"
	"net/http"
)

// Handler methods for routerHandlers
// These are used by both the standalone router (for testing) and the full Server.

// handleGetState returns the personalized snapshot for a known connection.
// A connection ID is required because snapshots carry viewer-specific
// revenge markers; spectators should poll /api/leaderboard instead.
func (h *routerHandlers) handleGetState(w http.ResponseWriter, r *http.Request) {
	connID := r.URL.Query().Get("connId")
	if connID == "" {
		writeError(w, "connId is required", http.StatusBadRequest)
		return
	}

	state, ok := h.engine.StateFor(connID)
	if !ok {
		writeError(w, "unknown connection", http.StatusNotFound)
		return
	}
	writeJSON(w, state)
}

func (h *routerHandlers) handleGetStats(w http.ResponseWriter, r *http.Request) {
	online, inPit := h.engine.Counts()
	writeJSON(w, map[string]int{
		"online": online,
		"inPit":  inPit,
	})
}

func (h *routerHandlers) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.engine.OnlineLeaderboard())
}

// Helper functions (package-level for reuse)

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
