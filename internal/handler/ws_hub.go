package handler

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Event types sent over WebSocket.
const (
	EventConnected     = "connected"
	EventWorldState    = "world_state"
	EventTerritory     = "territory_changed"
	EventMarching      = "units_marching"
	EventProgressed    = "units_progressed"
	EventArrived       = "units_arrived"
	EventBattle        = "battle_started"
	EventEliminated    = "player_eliminated"
	EventConstruction  = "construction_completed"
	EventProduced      = "unit_produced"
	EventPolicyChanged = "policy_changed"
	EventError         = "error"
)

// WSEvent is the envelope for all WebSocket messages.
type WSEvent struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// ClientMessage is the envelope for intents sent from the client.
type ClientMessage struct {
	Action string `json:"action"` // move, strike, build, produce, observe

	Units []string `json:"units,omitempty"`
	From  int      `json:"from,omitempty"`
	Path  []int    `json:"path,omitempty"`
	To    int      `json:"to,omitempty"`

	Region     int    `json:"region,omitempty"`
	BuilderID  string `json:"builderId,omitempty"`
	Building   string `json:"building,omitempty"`
	BuildingID string `json:"buildingId,omitempty"`
	Unit       string `json:"unit,omitempty"`
}

// WSConn wraps a WebSocket connection with its user and routing identity.
// Observers carry an empty faction and only receive what the scope rules
// allow observers to see.
type WSConn struct {
	conn     *websocket.Conn
	userID   string
	faction  string
	observer bool
	send     chan []byte
}

// Hub manages WebSocket connections, indexed by player and faction so
// routing an event never scans the full connection set.
type Hub struct {
	mu          sync.RWMutex
	connections map[*WSConn]bool
	players     map[string]map[*WSConn]bool
	factions    map[string]map[*WSConn]bool
	observers   map[*WSConn]bool
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		connections: make(map[*WSConn]bool),
		players:     make(map[string]map[*WSConn]bool),
		factions:    make(map[string]map[*WSConn]bool),
		observers:   make(map[*WSConn]bool),
	}
}

// Register adds a connection to the hub and its indexes.
func (h *Hub) Register(c *WSConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connections[c] = true
	if h.players[c.userID] == nil {
		h.players[c.userID] = make(map[*WSConn]bool)
	}
	h.players[c.userID][c] = true
	if c.observer {
		h.observers[c] = true
		return
	}
	if h.factions[c.faction] == nil {
		h.factions[c.faction] = make(map[*WSConn]bool)
	}
	h.factions[c.faction][c] = true
}

// Unregister removes a connection from the hub and all indexes.
func (h *Hub) Unregister(c *WSConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.connections[c] {
		return
	}
	delete(h.connections, c)
	delete(h.observers, c)
	if conns := h.players[c.userID]; conns != nil {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.players, c.userID)
		}
	}
	if conns := h.factions[c.faction]; conns != nil {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.factions, c.faction)
		}
	}
	close(c.send)
}

func (h *Hub) enqueue(c *WSConn, data []byte) {
	select {
	case c.send <- data:
	default:
		log.Warn().Str("userId", c.userID).Msg("Dropping WebSocket message, buffer full")
	}
}

func marshalEvent(eventType string, data any) []byte {
	payload, err := json.Marshal(WSEvent{Type: eventType, Data: data})
	if err != nil {
		log.Error().Err(err).Str("type", eventType).Msg("Failed to marshal WebSocket event")
		return nil
	}
	return payload
}

// BroadcastGlobal sends an event to every connection.
func (h *Hub) BroadcastGlobal(eventType string, data any) {
	payload := marshalEvent(eventType, data)
	if payload == nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.connections {
		h.enqueue(c, payload)
	}
}

// BroadcastFaction sends an event to a faction's connections plus observers.
func (h *Hub) BroadcastFaction(faction, eventType string, data any) {
	payload := marshalEvent(eventType, data)
	if payload == nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.factions[faction] {
		h.enqueue(c, payload)
	}
	for c := range h.observers {
		h.enqueue(c, payload)
	}
}

// BroadcastPlayers sends an event to the listed players plus observers,
// and nobody else.
func (h *Hub) BroadcastPlayers(playerIDs []string, eventType string, data any) {
	payload := marshalEvent(eventType, data)
	if payload == nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	sent := make(map[*WSConn]bool)
	for _, id := range playerIDs {
		for c := range h.players[id] {
			if !sent[c] {
				sent[c] = true
				h.enqueue(c, payload)
			}
		}
	}
	for c := range h.observers {
		if !sent[c] {
			h.enqueue(c, payload)
		}
	}
}

// SendToUser sends an event to one user's connections only.
func (h *Hub) SendToUser(userID, eventType string, data any) {
	payload := marshalEvent(eventType, data)
	if payload == nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.players[userID] {
		h.enqueue(c, payload)
	}
}

// ConnectionCount returns the total number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// FactionConnectionCount returns the number of connections on a faction.
func (h *Hub) FactionConnectionCount(faction string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.factions[faction])
}
