package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/efreeman/warfront/api/internal/auth"
	"github.com/efreeman/warfront/api/internal/service"
	"github.com/gorilla/websocket"
)

const (
	writeWait   = 10 * time.Second
	pongWait    = 60 * time.Second
	pingPeriod  = 54 * time.Second // Must be less than pongWait
	maxMsgSize  = 8192
	sendBufSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS handled by middleware; tighten in production
	},
}

// WSHandler handles WebSocket connections and routes client intents into
// the scheduler.
type WSHandler struct {
	hub       *Hub
	jwtMgr    *auth.JWTManager
	scheduler *service.Scheduler
}

// NewWSHandler creates a WSHandler.
func NewWSHandler(hub *Hub, jwtMgr *auth.JWTManager, scheduler *service.Scheduler) *WSHandler {
	return &WSHandler{hub: hub, jwtMgr: jwtMgr, scheduler: scheduler}
}

// ServeWS handles GET /api/v1/ws and upgrades to WebSocket.
// Auth via ?token= query parameter (WebSocket can't send headers).
// Users without an enrolled player connect as passive observers.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, `{"error":"missing token parameter"}`, http.StatusUnauthorized)
		return
	}

	claims, err := h.jwtMgr.ValidateToken(tokenStr)
	if err != nil {
		http.Error(w, `{"error":"invalid or expired token"}`, http.StatusUnauthorized)
		return
	}

	faction, enrolled := h.scheduler.Faction(claims.UserID)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := &WSConn{
		conn:     conn,
		userID:   claims.UserID,
		faction:  faction,
		observer: !enrolled,
		send:     make(chan []byte, sendBufSize),
	}
	h.hub.Register(client)
	h.scheduler.PlayerConnected(claims.UserID)

	// The welcome frame carries the full world view so the client renders
	// immediately instead of waiting for the first delta.
	if view, err := h.scheduler.WorldView(); err == nil {
		client.send <- marshalEvent(EventWorldState, json.RawMessage(view))
	}

	go h.writePump(client)
	go h.readPump(client)

	log.Info().Str("userId", claims.UserID).Str("faction", faction).
		Bool("observer", client.observer).
		Int("total", h.hub.ConnectionCount()).Msg("WebSocket client connected")
}

// readPump reads intent messages from the WebSocket connection.
func (h *WSHandler) readPump(c *WSConn) {
	defer func() {
		h.hub.Unregister(c)
		h.scheduler.PlayerDisconnected(c.userID)
		c.conn.Close()
		log.Info().Str("userId", c.userID).Msg("WebSocket client disconnected")
	}()

	c.conn.SetReadLimit(maxMsgSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("userId", c.userID).Msg("WebSocket unexpected close")
			}
			break
		}

		var msg ClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		h.dispatch(c, msg)
	}
}

// dispatch applies a client intent. Rejections go back to the sender only;
// accepted intents surface through the scheduler's event stream.
func (h *WSHandler) dispatch(c *WSConn, msg ClientMessage) {
	if c.observer {
		h.hub.SendToUser(c.userID, EventError, map[string]string{"reason": "observers cannot act"})
		return
	}

	var err error
	switch msg.Action {
	case "move":
		err = h.scheduler.Move(c.userID, msg.Units, msg.From, msg.Path)
	case "strike":
		err = h.scheduler.Strike(c.userID, msg.Units, msg.From, msg.To)
	case "build":
		err = h.scheduler.Build(c.userID, msg.BuilderID, msg.Region, msg.Building)
	case "produce":
		err = h.scheduler.Produce(c.userID, msg.BuildingID, msg.Region, msg.Unit)
	default:
		return
	}
	if err != nil {
		h.hub.SendToUser(c.userID, EventError, map[string]string{
			"action": msg.Action,
			"reason": err.Error(),
		})
	}
}

// writePump writes messages to the WebSocket connection.
func (h *WSHandler) writePump(c *WSConn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Drain queued messages into the same write
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte("\n"))
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
