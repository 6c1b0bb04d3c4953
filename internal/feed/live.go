package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/alanyoungcy/xchainarb/internal/platform/socketio"
)

// LiveConfig configures a Socket.IO source.
type LiveConfig struct {
	Endpoint         string
	Path             string
	Event            string
	HandshakeTimeout time.Duration
	Validate         bool
	Retry            RetryPolicy
}

// LiveSource receives opportunities from a Socket.IO server and reconnects
// with backoff when the link drops.
type LiveSource struct {
	cfg    LiveConfig
	logger *slog.Logger
}

// NewLiveSource creates a Socket.IO source.
func NewLiveSource(cfg LiveConfig, logger *slog.Logger) *LiveSource {
	if cfg.Event == "" {
		cfg.Event = "arbitrage_opportunity"
	}
	return &LiveSource{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "socketio_feed")),
	}
}

// Name implements Source.
func (s *LiveSource) Name() string { return "socketio" }

// Run implements Source.
func (s *LiveSource) Run(ctx context.Context, sink Sink) error {
	return runWithRetry(ctx, s.cfg.Retry, sink, s.logger, func(ctx context.Context, connected func()) error {
		return s.runConnection(ctx, sink, connected)
	})
}

func (s *LiveSource) runConnection(ctx context.Context, sink Sink, connected func()) error {
	client, err := socketio.NewClient(s.cfg.Endpoint, s.cfg.Path, s.cfg.HandshakeTimeout)
	if err != nil {
		return err
	}
	defer client.Close()

	client.On(s.cfg.Event, func(payload json.RawMessage) {
		emitDecoded(sink, s.logger, payload, s.cfg.Validate)
	})

	if err := client.Connect(ctx); err != nil {
		return err
	}
	s.logger.Info("socket.io connected", slog.String("url", client.URL()), slog.String("event", s.cfg.Event))
	connected()

	return client.ReadLoop(ctx)
}
