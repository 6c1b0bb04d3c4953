// Package socketiotest provides an in-process Socket.IO server for tests.
package socketiotest

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/xchainarb/internal/platform/socketio"
)

// Server accepts Socket.IO clients over WebSocket and lets tests push events
// and raw frames to every connected client.
type Server struct {
	*httptest.Server

	// Reject, when non-empty, refuses namespace connections with this
	// CONNECT_ERROR message.
	Reject string

	// Silent, when set, upgrades connections but never sends the open
	// packet.
	Silent bool

	upgrader websocket.Upgrader

	mu        sync.Mutex
	conns     map[*websocket.Conn]struct{}
	attempts  int
	connected chan struct{}
}

// NewServer starts a server. Callers must Close it.
func NewServer() *Server {
	s := &Server{
		conns:     make(map[*websocket.Conn]struct{}),
		connected: make(chan struct{}, 16),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	return s
}

// NewRejectingServer starts a server that refuses every namespace connect.
func NewRejectingServer(message string) *Server {
	s := NewServer()
	s.mu.Lock()
	s.Reject = message
	s.mu.Unlock()
	return s
}

// NewSilentServer starts a server that accepts the WebSocket upgrade and then
// stalls the handshake.
func NewSilentServer() *Server {
	s := NewServer()
	s.mu.Lock()
	s.Silent = true
	s.mu.Unlock()
	return s
}

// Endpoint returns the ws:// base address of the server.
func (s *Server) Endpoint() string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

// Connected is signalled each time a client completes the handshake.
func (s *Server) Connected() <-chan struct{} {
	return s.connected
}

// Attempts reports how many WebSocket upgrades the server has seen.
func (s *Server) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

// Emit sends an event to every connected client.
func (s *Server) Emit(event string, payload any) error {
	frame, err := socketio.EncodeEvent(event, payload)
	if err != nil {
		return err
	}
	return s.SendRaw(string(frame))
}

// SendRaw writes a raw text frame to every connected client.
func (s *Server) SendRaw(frame string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
			return err
		}
	}
	return nil
}

// DropAll closes every client connection without a close handshake.
func (s *Server) DropAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		conn.Close()
		delete(s.conns, conn)
	}
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("EIO") != "4" || r.URL.Query().Get("transport") != "websocket" {
		http.Error(w, "unsupported transport", http.StatusBadRequest)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	s.mu.Lock()
	s.attempts++
	reject, silent := s.Reject, s.Silent
	s.mu.Unlock()

	defer conn.Close()

	if silent {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}

	open := `0{"sid":"test","upgrades":[],"pingInterval":25000,"pingTimeout":20000,"maxPayload":1000000}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(open)); err != nil {
		return
	}

	_, msg, err := conn.ReadMessage()
	if err != nil || string(msg) != "40" {
		return
	}
	if reject != "" {
		conn.WriteMessage(websocket.TextMessage, []byte(`44{"message":"`+reject+`"}`))
		return
	}

	s.mu.Lock()
	err = conn.WriteMessage(websocket.TextMessage, []byte(`40{"sid":"ns-test"}`))
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
	if err != nil {
		return
	}
	select {
	case s.connected <- struct{}{}:
	default:
	}

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if string(msg) == "41" {
			break
		}
	}

	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}
