// Package socketio is a minimal Socket.IO (protocol v5 over Engine.IO v4)
// client using the WebSocket transport only. It supports the default
// namespace and server-to-client events, which is all an opportunity feed
// needs.
package socketio

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/xchainarb/internal/domain"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// defaultHandshakeTimeout bounds dialing plus the Socket.IO handshake.
	defaultHandshakeTimeout = 15 * time.Second

	// Engine.IO heartbeat defaults, used when the open packet omits them.
	defaultPingInterval = 25 * time.Second
	defaultPingTimeout  = 20 * time.Second
)

// EventHandler is called with the first argument of a received event.
type EventHandler func(payload json.RawMessage)

// Client is a Socket.IO client for a single connection. A Client is not
// reusable: after ReadLoop returns, create a new one to reconnect.
type Client struct {
	url              string
	handshakeTimeout time.Duration

	conn    *websocket.Conn
	writeMu sync.Mutex

	pingInterval time.Duration
	pingTimeout  time.Duration

	handlers  map[string][]EventHandler
	handlerMu sync.RWMutex

	closeOnce sync.Once
}

// NewClient creates a client for the given server endpoint and Socket.IO
// path. The endpoint may use ws, wss, http or https schemes, e.g.
// "ws://localhost:8080" with path "/socket.io/".
func NewClient(endpoint, path string, handshakeTimeout time.Duration) (*Client, error) {
	u, err := EndpointURL(endpoint, path)
	if err != nil {
		return nil, err
	}
	if handshakeTimeout <= 0 {
		handshakeTimeout = defaultHandshakeTimeout
	}
	return &Client{
		url:              u,
		handshakeTimeout: handshakeTimeout,
		pingInterval:     defaultPingInterval,
		pingTimeout:      defaultPingTimeout,
		handlers:         make(map[string][]EventHandler),
	}, nil
}

// EndpointURL builds the Engine.IO WebSocket URL for endpoint and path.
func EndpointURL(endpoint, path string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("socketio: parse endpoint: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("socketio: unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("socketio: endpoint %q has no host", endpoint)
	}
	if path == "" {
		path = "/socket.io/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	u.Path = path

	q := u.Query()
	q.Set("EIO", "4")
	q.Set("transport", "websocket")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// URL returns the WebSocket URL the client dials.
func (c *Client) URL() string {
	return c.url
}

// On registers a handler for the named event. Handlers must be registered
// before ReadLoop starts.
func (c *Client) On(event string, handler EventHandler) {
	c.handlerMu.Lock()
	defer c.handlerMu.Unlock()
	c.handlers[event] = append(c.handlers[event], handler)
}

// Connect dials the server and completes the Engine.IO open and Socket.IO
// namespace handshake. It returns an error wrapping domain.ErrHandshakeFailed
// when the server rejects the namespace connection.
func (c *Client) Connect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.handshakeTimeout)
	defer cancel()

	dialer := websocket.Dialer{
		HandshakeTimeout: c.handshakeTimeout,
	}
	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("socketio: dial: %w", err)
	}
	c.conn = conn

	// Closing the conn unblocks the handshake reads on cancellation.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	deadline, _ := ctx.Deadline()
	conn.SetReadDeadline(deadline)

	fail := func(err error) error {
		conn.Close()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("socketio: handshake interrupted: %w", ctxErr)
		}
		return err
	}

	if err := c.awaitOpen(); err != nil {
		return fail(err)
	}
	if err := c.write([]byte{eioMessage, sioConnect}); err != nil {
		return fail(fmt.Errorf("socketio: send connect: %w", err))
	}
	if err := c.awaitConnect(); err != nil {
		return fail(err)
	}

	conn.SetReadDeadline(time.Time{})
	return nil
}

// awaitOpen reads the Engine.IO open packet and records heartbeat settings.
func (c *Client) awaitOpen() error {
	_, msg, err := c.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("socketio: read open: %w", err)
	}
	if len(msg) == 0 || msg[0] != eioOpen {
		return fmt.Errorf("socketio: %w: expected open packet, got %q", domain.ErrHandshakeFailed, truncate(msg))
	}

	var open openPayload
	if err := json.Unmarshal(msg[1:], &open); err != nil {
		return fmt.Errorf("socketio: decode open packet: %w", err)
	}
	if open.PingInterval > 0 {
		c.pingInterval = time.Duration(open.PingInterval) * time.Millisecond
	}
	if open.PingTimeout > 0 {
		c.pingTimeout = time.Duration(open.PingTimeout) * time.Millisecond
	}
	return nil
}

// awaitConnect waits for the namespace CONNECT acknowledgement, answering
// heartbeats that arrive in between.
func (c *Client) awaitConnect() error {
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("socketio: read connect ack: %w", err)
		}
		if len(msg) == 0 {
			continue
		}

		switch msg[0] {
		case eioPing:
			if err := c.write([]byte{eioPong}); err != nil {
				return fmt.Errorf("socketio: pong: %w", err)
			}
		case eioClose:
			return fmt.Errorf("socketio: %w: server closed during handshake", domain.ErrHandshakeFailed)
		case eioMessage:
			if len(msg) < 2 {
				continue
			}
			switch msg[1] {
			case sioConnect:
				return nil
			case sioConnectError:
				var ce connectError
				_ = json.Unmarshal(msg[2:], &ce)
				return fmt.Errorf("socketio: %w: %s", domain.ErrHandshakeFailed, ce.Message)
			}
		}
	}
}

// ReadLoop reads packets until the connection drops, the server disconnects
// the namespace, or ctx is cancelled. Events are dispatched to registered
// handlers on the calling goroutine, in arrival order. It returns nil only
// when ctx is cancelled.
func (c *Client) ReadLoop(ctx context.Context) error {
	if c.conn == nil {
		return fmt.Errorf("socketio: %w", domain.ErrNotConnected)
	}
	stop := context.AfterFunc(ctx, func() { c.Close() })
	defer stop()

	for {
		c.conn.SetReadDeadline(time.Now().Add(c.pingInterval + c.pingTimeout))

		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("socketio: %w: %v", domain.ErrWSDisconnect, err)
		}
		if len(msg) == 0 {
			continue
		}

		switch msg[0] {
		case eioPing:
			if err := c.write([]byte{eioPong}); err != nil {
				return fmt.Errorf("socketio: pong: %w", err)
			}
		case eioClose:
			return fmt.Errorf("socketio: %w: server closed transport", domain.ErrWSDisconnect)
		case eioMessage:
			if len(msg) < 2 {
				continue
			}
			switch msg[1] {
			case sioDisconnect:
				return fmt.Errorf("socketio: %w: server disconnected namespace", domain.ErrWSDisconnect)
			case sioEvent:
				c.dispatch(msg[2:])
			}
		}
	}
}

// dispatch decodes an EVENT body and calls the matching handlers. Frames that
// cannot be decoded are dropped.
func (c *Client) dispatch(body []byte) {
	name, payload, err := decodeEvent(body)
	if err != nil {
		return
	}

	c.handlerMu.RLock()
	handlers := c.handlers[name]
	c.handlerMu.RUnlock()

	for _, h := range handlers {
		h(payload)
	}
}

// Close sends a namespace disconnect and closes the connection. It is safe
// to call more than once.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		if c.conn == nil {
			return
		}
		_ = c.write([]byte{eioMessage, sioDisconnect})
		c.writeMu.Lock()
		_ = c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait),
		)
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}

// write sends a text frame, serialising concurrent writers.
func (c *Client) write(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func truncate(b []byte) string {
	const limit = 64
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}
