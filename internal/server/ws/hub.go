// Package ws pushes view updates to browser clients over WebSocket.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/xchainarb/internal/domain"
	"github.com/alanyoungcy/xchainarb/internal/view"
)

const (
	// writeWait is the maximum time to wait for a write to complete.
	writeWait = 10 * time.Second

	// pongWait is the maximum time to wait for a pong from the client.
	pongWait = 60 * time.Second

	// pingPeriod sends pings at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize is the maximum size of an incoming message.
	maxMessageSize = 4096

	// sendBufferSize is the channel buffer for outgoing messages per client.
	sendBufferSize = 256
)

// Envelope types.
const (
	TypeSnapshot    = "snapshot"
	TypeOpportunity = "opportunity"
	TypeStatus      = "status"
)

// allTypes are the envelope types a new client receives.
var allTypes = []string{TypeSnapshot, TypeOpportunity, TypeStatus}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Envelope is the JSON frame sent to clients.
type Envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// View is the state the hub publishes.
type View interface {
	Snapshot() []domain.ArbitrageOpportunity
	OnUpdate(func(view.Update)) (unsubscribe func())
}

// StatusFunc reports the current feed status.
type StatusFunc func() domain.FeedStatus

// Hub manages connected WebSocket clients and broadcasts view updates to
// them.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan broadcastMsg
	register   chan *client
	unregister chan *client
	quit       chan struct{}
	view       View
	status     StatusFunc
	mu         sync.RWMutex
	logger     *slog.Logger
}

// broadcastMsg carries an encoded envelope with its type so the hub can
// route it only to clients subscribed to that type.
type broadcastMsg struct {
	kind string
	data []byte
}

// NewHub creates a hub publishing v. status is called for every status push.
func NewHub(v View, status StatusFunc, logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan broadcastMsg, sendBufferSize),
		register:   make(chan *client),
		unregister: make(chan *client),
		quit:       make(chan struct{}),
		view:       v,
		status:     status,
		logger:     logger.With(slog.String("component", "ws_hub")),
	}
}

// Run is the hub's event loop. It exits when ctx is cancelled, closing every
// client.
func (h *Hub) Run(ctx context.Context) error {
	unsubscribe := h.view.OnUpdate(h.onUpdate)
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			close(h.quit)
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return nil

		case c := <-h.register:
			// The snapshot is taken here, between broadcasts, so every
			// opportunity is either in it or broadcast to c afterwards.
			c.queue(Envelope{Type: TypeSnapshot, Payload: h.view.Snapshot()})
			c.queue(Envelope{Type: TypeStatus, Payload: h.status()})
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
			h.logger.Info("ws: client connected", slog.Int("total_clients", h.ClientCount()))

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			h.logger.Info("ws: client disconnected", slog.Int("total_clients", h.ClientCount()))

		case msg := <-h.broadcast:
			h.mu.RLock()
			for c := range h.clients {
				if c.isSubscribed(msg.kind) {
					select {
					case c.send <- msg.data:
					default:
						h.logger.Warn("ws: dropping message for slow client", slog.String("type", msg.kind))
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

// onUpdate runs on the feed delivery goroutine and must not block.
func (h *Hub) onUpdate(u view.Update) {
	var env Envelope
	switch u.Kind {
	case view.UpdateOpportunity:
		env = Envelope{Type: TypeOpportunity, Payload: u.Opportunity}
	case view.UpdateState:
		env = Envelope{Type: TypeStatus, Payload: h.status()}
	default:
		return
	}

	data, err := json.Marshal(env)
	if err != nil {
		h.logger.Error("ws: marshal envelope", slog.String("error", err.Error()))
		return
	}
	select {
	case h.broadcast <- broadcastMsg{kind: env.Type, data: data}:
	default:
		h.logger.Warn("ws: broadcast queue full, dropping", slog.String("type", env.Type))
	}
}

// HandleWS upgrades the request and registers the client with the hub, which
// sends it the current snapshot and status.
// GET /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws: upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := &client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		subs: make(map[string]bool),
	}
	for _, t := range allTypes {
		c.subs[t] = true
	}

	select {
	case h.register <- c:
	case <-h.quit:
		conn.Close()
		return
	case <-r.Context().Done():
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
