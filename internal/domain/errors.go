package domain

import "errors"

var (
	ErrInvalidOpportunity = errors.New("invalid opportunity")
	ErrWSDisconnect       = errors.New("websocket disconnected")
	ErrHandshakeFailed    = errors.New("handshake failed")
	ErrRetriesExhausted   = errors.New("retries exhausted")
	ErrNotConnected       = errors.New("not connected")
)
