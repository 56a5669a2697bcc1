// Package notify pushes portfolio events — margin calls, forced
// liquidations (C9), and rebalance decisions (C8) — to connected clients
// over a websocket, using gorilla/websocket the way the wider retrieval
// pack's trading bots wire a push channel for live account events. The
// teacher has no equivalent (its dashboard polls REST endpoints); this is
// new, grounded on the standard gorilla/websocket hub idiom: one goroutine
// owns the connection set, clients communicate through buffered channels
// rather than touching the hub's maps directly.
package notify

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// EventType enumerates the event kinds the hub broadcasts.
type EventType string

const (
	EventMarginCall        EventType = "margin_call"
	EventForcedLiquidation EventType = "forced_liquidation"
	EventRebalanceExecuted EventType = "rebalance_executed"
	EventTradeExecuted     EventType = "trade_executed"
)

// Event is one broadcast message.
type Event struct {
	Type        EventType   `json:"type"`
	PortfolioID string      `json:"portfolio_id"`
	Timestamp   time.Time   `json:"timestamp"`
	Data        interface{} `json:"data"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const (
	writeWait      = 10 * time.Second
	clientSendBuf  = 32
	pingPeriod     = 30 * time.Second
)

type client struct {
	conn *websocket.Conn
	send chan Event
}

// Hub owns the set of connected clients and serializes broadcasts to them.
// One Hub per process; Run must be started exactly once before Publish is
// called from other goroutines.
type Hub struct {
	log        zerolog.Logger
	register   chan *client
	unregister chan *client
	broadcast  chan Event

	mu      sync.Mutex
	clients map[*client]struct{}
}

// NewHub constructs an unstarted Hub. Call Run in its own goroutine.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		log:        log.With().Str("component", "notify_hub").Logger(),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan Event, 256),
		clients:    make(map[*client]struct{}),
	}
}

// Run is the hub's event loop; it must run for the lifetime of the server.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			h.mu.Unlock()
		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
		case ev := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- ev:
				default:
					// Slow consumer; drop it rather than block the hub.
					delete(h.clients, c)
					close(c.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Publish queues ev for broadcast to every connected client. Safe to call
// from any goroutine (scheduler jobs, backtest/live trading paths).
func (h *Hub) Publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	select {
	case h.broadcast <- ev:
	default:
		h.log.Warn().Str("type", string(ev.Type)).Msg("notify broadcast buffer full, dropping event")
	}
}

// ServeWS upgrades the request to a websocket and registers the connection
// with the hub. Mount under the HTTP server's router.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &client{conn: conn, send: make(chan Event, clientSendBuf)}
	h.register <- c

	go h.writePump(c)
	go h.readPump(c)
}

// readPump drains and discards inbound frames; this hub is publish-only
// but must still read to process control frames and detect disconnects.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				h.log.Error().Err(err).Msg("marshal notify event")
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
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
