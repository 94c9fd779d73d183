package main

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Event types sent over WebSocket.
const (
	EventConnected     = "connected"
	EventShipPlaced    = "ship_placed"
	EventBattleStarted = "battle_started"
	EventAttack        = "attack"
	EventGameOver      = "game_over"
	EventError         = "error"
)

const (
	writeWait   = 10 * time.Second
	pongWait    = 60 * time.Second
	pingPeriod  = 54 * time.Second // Must be less than pongWait
	maxMsgSize  = 512
	sendBufSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSEvent is the envelope for all WebSocket messages.
type WSEvent struct {
	Type   string `json:"type"`
	GameID string `json:"game_id"`
	Data   any    `json:"data"`
}

type wsConn struct {
	conn   *websocket.Conn
	gameID string
	send   chan []byte
}

// Hub fans game events out to the connections watching each game.
type Hub struct {
	mu    sync.RWMutex
	games map[string]map[*wsConn]bool
}

func NewHub() *Hub {
	return &Hub{
		games: make(map[string]map[*wsConn]bool),
	}
}

func (h *Hub) Register(c *wsConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.games[c.gameID] == nil {
		h.games[c.gameID] = make(map[*wsConn]bool)
	}
	h.games[c.gameID][c] = true
}

func (h *Hub) Unregister(c *wsConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns, ok := h.games[c.gameID]
	if !ok || !conns[c] {
		return
	}
	delete(conns, c)
	if len(conns) == 0 {
		delete(h.games, c.gameID)
	}
	close(c.send)
}

func (h *Hub) Broadcast(gameID string, eventType string, data any) {
	msg, err := json.Marshal(WSEvent{
		Type:   eventType,
		GameID: gameID,
		Data:   data,
	})
	if err != nil {
		log.Error().Err(err).Str("game", gameID).Msg("failed to marshal event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.games[gameID] {
		select {
		case c.send <- msg:
		default:
			log.Warn().Str("game", gameID).Msg("dropping event, buffer full")
		}
	}
}

func (h *Hub) SubscriberCount(gameID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.games[gameID])
}

// Upgrades the request and streams the game's events until the
// client goes away.
func (h *Hub) ServeWS(ctx *gin.Context, gameID string) {
	conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &wsConn{
		conn:   conn,
		gameID: gameID,
		send:   make(chan []byte, sendBufSize),
	}
	h.Register(c)

	// Tells the client its subscription is live.
	welcome, _ := json.Marshal(WSEvent{
		Type:   EventConnected,
		GameID: gameID,
		Data:   map[string]any{},
	})
	c.send <- welcome

	go h.writePump(c)
	go h.readPump(c)

	log.Info().Str("game", gameID).Int("watchers", h.SubscriberCount(gameID)).Msg("websocket client connected")
}

// Clients only listen; incoming messages are read to process
// pongs and closes and then discarded.
func (h *Hub) readPump(c *wsConn) {
	defer func() {
		h.Unregister(c)
		c.conn.Close()
		log.Info().Str("game", c.gameID).Msg("websocket client disconnected")
	}()

	c.conn.SetReadLimit(maxMsgSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("game", c.gameID).Msg("websocket unexpected close")
			}
			return
		}
	}
}

func (h *Hub) writePump(c *wsConn) {
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

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
