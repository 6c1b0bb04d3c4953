package socketio

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Engine.IO v4 packet types, the first byte of every text frame.
const (
	eioOpen    = '0'
	eioClose   = '1'
	eioPing    = '2'
	eioPong    = '3'
	eioMessage = '4'
)

// Socket.IO v5 packet types, the byte following an Engine.IO message.
const (
	sioConnect      = '0'
	sioDisconnect   = '1'
	sioEvent        = '2'
	sioConnectError = '4'
)

// openPayload is the JSON body of the Engine.IO open packet.
type openPayload struct {
	SID          string `json:"sid"`
	PingInterval int    `json:"pingInterval"` // milliseconds
	PingTimeout  int    `json:"pingTimeout"`  // milliseconds
	MaxPayload   int    `json:"maxPayload"`
}

// connectError is the body of a CONNECT_ERROR packet.
type connectError struct {
	Message string `json:"message"`
}

// EncodeEvent builds the text frame for a Socket.IO EVENT on the default
// namespace, e.g. 42["arbitrage_opportunity",{...}].
func EncodeEvent(name string, payload any) ([]byte, error) {
	body, err := json.Marshal([]any{name, payload})
	if err != nil {
		return nil, fmt.Errorf("socketio: encode event %s: %w", name, err)
	}
	return append([]byte{eioMessage, sioEvent}, body...), nil
}

// decodeEvent parses the body of a Socket.IO EVENT packet (everything after
// "42"). An optional namespace prefix ("/ns,") and ack id are skipped.
func decodeEvent(body []byte) (string, json.RawMessage, error) {
	if len(body) > 0 && body[0] == '/' {
		i := bytes.IndexByte(body, ',')
		if i < 0 {
			return "", nil, fmt.Errorf("socketio: malformed namespace in event")
		}
		body = body[i+1:]
	}
	for len(body) > 0 && body[0] >= '0' && body[0] <= '9' {
		body = body[1:]
	}

	var parts []json.RawMessage
	if err := json.Unmarshal(body, &parts); err != nil {
		return "", nil, fmt.Errorf("socketio: decode event: %w", err)
	}
	if len(parts) == 0 {
		return "", nil, fmt.Errorf("socketio: empty event")
	}

	var name string
	if err := json.Unmarshal(parts[0], &name); err != nil {
		return "", nil, fmt.Errorf("socketio: event name: %w", err)
	}

	var payload json.RawMessage
	if len(parts) > 1 {
		payload = parts[1]
	}
	return name, payload, nil
}
