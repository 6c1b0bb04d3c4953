package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/xchainarb/internal/config"
	"github.com/alanyoungcy/xchainarb/internal/domain"
	"github.com/alanyoungcy/xchainarb/internal/feed"
	"github.com/alanyoungcy/xchainarb/internal/server"
	"github.com/alanyoungcy/xchainarb/internal/server/handler"
	"github.com/alanyoungcy/xchainarb/internal/server/ws"
	"github.com/alanyoungcy/xchainarb/internal/view"
)

const shutdownTimeout = 5 * time.Second

// newSource builds the feed source for the configured mode: simulated in
// development, Socket.IO in production, unless feed.source overrides it.
func newSource(cfg *config.Config, deps *Dependencies, logger *slog.Logger) (feed.Source, error) {
	switch cfg.FeedSource() {
	case config.SourceSimulated:
		return feed.NewSimulatedSource(deps.Generator, feed.WithInterval(cfg.Feed.Interval.Duration)), nil
	case config.SourceSocketIO:
		return feed.NewLiveSource(feed.LiveConfig{
			Endpoint:         cfg.Feed.SocketIO.Endpoint,
			Path:             cfg.Feed.SocketIO.Path,
			Event:            cfg.Feed.SocketIO.Event,
			HandshakeTimeout: cfg.Feed.SocketIO.HandshakeTimeout.Duration,
			Validate:         cfg.Feed.ValidateInbound,
			Retry:            retryPolicy(cfg.Feed.Retry),
		}, logger), nil
	case config.SourceRedis:
		if deps.SignalBus == nil {
			return nil, fmt.Errorf("redis source requires a redis connection")
		}
		return feed.NewRedisSource(deps.SignalBus, cfg.Redis.Channel, cfg.Feed.ValidateInbound, retryPolicy(cfg.Feed.Retry), logger), nil
	default:
		return nil, fmt.Errorf("unsupported feed source %q", cfg.FeedSource())
	}
}

func retryPolicy(rc config.RetryConfig) feed.RetryPolicy {
	return feed.RetryPolicy{
		MinDelay:    rc.MinDelay.Duration,
		MaxDelay:    rc.MaxDelay.Duration,
		Factor:      rc.Factor,
		Jitter:      rc.Jitter,
		MaxAttempts: rc.MaxAttempts,
	}
}

// startHTTPServer adds the HTTP server and WebSocket hub to g. The server is
// shut down gracefully when ctx is cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, v *view.View, status func() domain.FeedStatus, deps *Dependencies) {
	hub := ws.NewHub(v, status, a.logger)
	g.Go(func() error {
		return hub.Run(ctx)
	})

	var pinger handler.Pinger
	if deps.Redis != nil {
		pinger = deps.Redis
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
	}, server.Handlers{
		Health:        handler.NewHealthHandler(pinger, a.logger),
		Status:        handler.NewStatusHandler(status),
		Opportunities: handler.NewOpportunityHandler(v),
		Page:          handler.NewPageHandler(v, status, a.logger),
	}, hub, a.logger)

	g.Go(func() error {
		a.logger.InfoContext(ctx, "HTTP server listening",
			slog.String("url", fmt.Sprintf("http://localhost:%d", a.cfg.Server.Port)))
		return srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}
