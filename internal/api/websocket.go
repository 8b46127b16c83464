package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"

	"pit-arena/internal/game"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// MaxWSConnectionsTotal is the maximum number of WebSocket connections allowed
	MaxWSConnectionsTotal = 500

	// MaxWSConnectionsPerIP is the maximum WebSocket connections per IP
	MaxWSConnectionsPerIP = 10

	// sendBufferSize is the per-connection outbound queue. A client that
	// stops reading gets its slowest frames dropped, never the whole hub.
	sendBufferSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")

		if IsAllowedOrigin(origin) {
			return true
		}

		log.Printf("⚠️ WebSocket connection rejected from origin: %s", origin)
		RecordConnectionRejected("origin")
		return false
	},
}

// intentEnvelope is the client-to-server wire format.
type intentEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// wsClient tracks one WebSocket connection with its source IP and its
// outbound queue. Each connection is one arena session.
type wsClient struct {
	connID string
	conn   *websocket.Conn
	ip     string
	send   chan []byte
}

// WebSocketHub manages all WebSocket connections with DoS protection.
// It is the engine's Pusher: state snapshots are personalized, so every
// outbound frame is addressed to a single connection rather than fanned
// out as shared bytes.
type WebSocketHub struct {
	engine *game.Engine

	clients map[string]*wsClient // keyed by connID
	mu      sync.RWMutex

	// Connection limiting per IP
	wsLimiter *WebSocketRateLimiter
}

// NewWebSocketHub creates a new hub with connection limiting
func NewWebSocketHub(engine *game.Engine) *WebSocketHub {
	return &WebSocketHub{
		engine:    engine,
		clients:   make(map[string]*wsClient),
		wsLimiter: NewWebSocketRateLimiter(MaxWSConnectionsPerIP),
	}
}

// Send delivers one event to one connection. Implements game.Pusher.
// Called under the engine lock, so it must never block: full queues drop
// the frame (the next snapshot supersedes it anyway).
func (h *WebSocketHub) Send(connID string, event string, data interface{}) {
	payload, err := json.Marshal(map[string]interface{}{
		"event": event,
		"data":  data,
	})
	if err != nil {
		log.Printf("⚠️ marshal %s failed: %v", event, err)
		return
	}

	// The read lock stays held across the queue attempt so drop() cannot
	// close the channel underneath us; the send itself never blocks.
	h.mu.RLock()
	defer h.mu.RUnlock()

	client, ok := h.clients[connID]
	if !ok {
		return
	}

	select {
	case client.send <- payload:
		IncrementWSMessages()
	default:
		// Backpressure: slow client, drop the frame
	}
}

// ClientCount returns the number of connected clients
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWebSocket handles incoming WebSocket connections with DoS protection
func (h *WebSocketHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ip := GetClientIP(r)

	if h.ClientCount() >= MaxWSConnectionsTotal {
		log.Printf("⚠️ WebSocket connection rejected: total limit reached")
		RecordConnectionRejected("ws_total_limit")
		http.Error(w, "Too many connections", http.StatusServiceUnavailable)
		return
	}

	if !h.wsLimiter.Allow(ip) {
		log.Printf("⚠️ WebSocket connection rejected from %s: per-IP limit reached", ip)
		RecordConnectionRejected("ws_ip_limit")
		http.Error(w, "Too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		h.wsLimiter.Release(ip)
		return
	}

	client := &wsClient{
		connID: uuid.NewString(),
		conn:   conn,
		ip:     ip,
		send:   make(chan []byte, sendBufferSize),
	}

	h.mu.Lock()
	h.clients[client.connID] = client
	count := len(h.clients)
	h.mu.Unlock()

	log.Printf("📱 Client connected from %s (%d total)", ip, count)
	UpdateWSConnections(count)

	go h.writePump(client)
	go h.readPump(client)
}

// writePump drains the client's send queue onto the socket.
func (h *WebSocketHub) writePump(client *wsClient) {
	for payload := range client.send {
		if err := client.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

// readPump reads intents off the socket until it closes, then tears the
// session down.
func (h *WebSocketHub) readPump(client *wsClient) {
	defer h.drop(client)

	for {
		_, message, err := client.conn.ReadMessage()
		if err != nil {
			return
		}

		var env intentEnvelope
		if err := json.Unmarshal(message, &env); err != nil {
			h.Send(client.connID, game.EventError, map[string]string{"message": "invalid message"})
			continue
		}

		if err := h.dispatch(client.connID, env); err != nil {
			var rule *game.RuleError
			if errors.As(err, &rule) {
				h.Send(client.connID, game.EventError, map[string]string{"message": rule.Msg})
				continue
			}
			log.Printf("⚠️ intent %s from %s failed: %v", env.Event, client.ip, err)
			h.Send(client.connID, game.EventError, map[string]string{"message": "internal error"})
		}
	}
}

// drop removes a client and releases its IP slot.
func (h *WebSocketHub) drop(client *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[client.connID]; ok {
		delete(h.clients, client.connID)
		close(client.send)
		client.conn.Close()
		h.wsLimiter.Release(client.ip)
	}
	count := len(h.clients)
	h.mu.Unlock()

	h.engine.Disconnect(client.connID)

	log.Printf("📱 Client disconnected (%d remaining)", count)
	UpdateWSConnections(count)
}

// dispatch routes one intent envelope to the engine.
func (h *WebSocketHub) dispatch(connID string, env intentEnvelope) error {
	switch env.Event {
	case "identify":
		var req struct {
			PlayerID string `json:"playerId"`
			Name     string `json:"name"`
		}
		if err := json.Unmarshal(env.Data, &req); err != nil {
			return err
		}
		return h.engine.Identify(connID, req.PlayerID, req.Name)

	case "selectCharacter":
		var req struct {
			Image int `json:"image"`
		}
		if err := json.Unmarshal(env.Data, &req); err != nil {
			return err
		}
		return h.engine.SelectCharacter(connID, req.Image)

	case "switchCharacter":
		return h.engine.SwitchCharacter(connID)

	case "changeName":
		var req struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(env.Data, &req); err != nil {
			return err
		}
		return h.engine.ChangeName(connID, req.Name)

	case "joinPit":
		return h.engine.JoinPit(connID)

	case "leavePit":
		return h.engine.LeavePit(connID)

	case "defend":
		return h.engine.Defend(connID)

	case "attack":
		var req struct {
			TargetConnID string `json:"targetConnId"`
			AttackType   string `json:"attackType"`
		}
		if err := json.Unmarshal(env.Data, &req); err != nil {
			return err
		}
		return h.engine.Attack(connID, req.TargetConnID, game.AttackType(req.AttackType))

	case "heckle":
		var req struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(env.Data, &req); err != nil {
			return err
		}
		return h.engine.SendHeckle(connID, req.Message)

	case "claimChallenge":
		var req struct {
			Challenge string `json:"challenge"`
		}
		if err := json.Unmarshal(env.Data, &req); err != nil {
			return err
		}
		return h.engine.ClaimChallenge(connID, game.ChallengeType(req.Challenge))

	case "createClan":
		var req struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(env.Data, &req); err != nil {
			return err
		}
		return h.engine.CreateClan(connID, req.Name)

	case "joinClan":
		var req struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(env.Data, &req); err != nil {
			return err
		}
		return h.engine.JoinClan(connID, req.Name)

	case "leaveClan":
		return h.engine.LeaveClan(connID)

	case "changeClanName":
		var req struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(env.Data, &req); err != nil {
			return err
		}
		return h.engine.ChangeClanName(connID, req.Name)

	case "recruitPlayer":
		var req struct {
			PlayerID string `json:"playerId"`
		}
		if err := json.Unmarshal(env.Data, &req); err != nil {
			return err
		}
		return h.engine.RecruitPlayer(connID, req.PlayerID)

	case "challengeClan":
		var req struct {
			Clan string `json:"clan"`
		}
		if err := json.Unmarshal(env.Data, &req); err != nil {
			return err
		}
		return h.engine.ChallengeClan(connID, req.Clan)

	case "acceptClanBattle":
		return h.engine.AcceptClanBattle(connID)

	case "declineClanBattle":
		return h.engine.DeclineClanBattle(connID)

	case "startClanBattle":
		return h.engine.StartClanBattle(connID)

	default:
		return game.NewRuleError("unknown event: " + env.Event)
	}
}
