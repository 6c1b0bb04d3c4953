package domain

import "fmt"

// ConnectionState is the lifecycle state of an opportunity feed.
type ConnectionState int

const (
	StateIdle ConnectionState = iota
	StateConnecting
	StateConnected
	StateDisconnected
	StateFailed
)

var stateNames = [...]string{
	StateIdle:         "idle",
	StateConnecting:   "connecting",
	StateConnected:    "connected",
	StateDisconnected: "disconnected",
	StateFailed:       "failed",
}

func (s ConnectionState) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("ConnectionState(%d)", int(s))
	}
	return stateNames[s]
}

// Connected reports whether the feed is currently delivering events.
func (s ConnectionState) Connected() bool {
	return s == StateConnected
}

// MarshalText implements encoding.TextMarshaler so states serialize as their
// lowercase names.
func (s ConnectionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *ConnectionState) UnmarshalText(text []byte) error {
	for i, name := range stateNames {
		if name == string(text) {
			*s = ConnectionState(i)
			return nil
		}
	}
	return fmt.Errorf("domain: unknown connection state %q", string(text))
}

// FeedStatus summarises the running feed for status endpoints and pushes.
type FeedStatus struct {
	Mode          string          `json:"mode"`
	Source        string          `json:"source"`
	State         ConnectionState `json:"state"`
	Connected     bool            `json:"connected"`
	History       int             `json:"history"`
	Capacity      int             `json:"capacity"`
	UptimeSeconds int64           `json:"uptimeSeconds"`
}
