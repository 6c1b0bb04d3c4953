// Package app wires the feed, view, notifications and HTTP front end together
// and runs them until the context is cancelled.
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
	"github.com/alanyoungcy/xchainarb/internal/notify"
	"github.com/alanyoungcy/xchainarb/internal/view"
)

// App is the root application object. It owns the configuration, logger, and a
// list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg       *config.Config
	logger    *slog.Logger
	startedAt time.Time
	closers   []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires dependencies, mounts the view over the configured feed, starts
// the HTTP server when enabled, and blocks until ctx is cancelled or a
// component fails.
func (a *App) Run(ctx context.Context) error {
	a.startedAt = time.Now()
	a.logger.InfoContext(ctx, "starting application",
		slog.String("mode", a.cfg.Mode),
		slog.String("source", a.cfg.FeedSource()),
		slog.String("log_level", a.cfg.LogLevel),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	source, err := newSource(a.cfg, deps, a.logger)
	if err != nil {
		return fmt.Errorf("app: %w", err)
	}

	channel := feed.NewChannel(source, a.logger)
	v := view.New(channel, a.cfg.View.Capacity, a.logger)
	a.attachListeners(channel, deps)

	g, ctx := errgroup.WithContext(ctx)

	if err := v.Mount(ctx); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	a.closers = append(a.closers, v.Unmount)

	status := a.statusFunc(channel, v)
	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, v, status, deps)
	} else {
		a.logger.InfoContext(ctx, "HTTP server disabled")
	}

	g.Go(func() error {
		<-ctx.Done()
		return nil
	})

	return g.Wait()
}

// attachListeners subscribes the optional consumers: opportunity logging, the
// Redis mirror and alerting.
func (a *App) attachListeners(channel *feed.Channel, deps *Dependencies) {
	feedLogger := a.logger.With(slog.String("source", channel.SourceName()))
	channel.Subscribe(func(opp domain.ArbitrageOpportunity) {
		feedLogger.Debug("opportunity received",
			slog.String("id", opp.ID),
			slog.String("route", opp.SourceChain+"->"+opp.TargetChain),
			slog.Float64("profit_pct", opp.ProfitPercentage),
		)
	})

	if a.cfg.Redis.Publish && deps.SignalBus != nil && channel.SourceName() != config.SourceRedis {
		mirror := feed.NewMirror(deps.SignalBus, a.cfg.Redis.Channel, a.logger)
		channel.Subscribe(mirror.Publish)
		a.closers = append(a.closers, mirror.Close)
		a.logger.Info("mirroring opportunities to redis", slog.String("channel", a.cfg.Redis.Channel))
	}

	if deps.Notifier.Enabled() {
		alerter := notify.NewAlerter(deps.Notifier, a.cfg.Notify.MinProfitPct, a.logger)
		channel.Subscribe(alerter.Opportunity)
		channel.OnStateChange(alerter.State)
		a.closers = append(a.closers, alerter.Wait)
	}
}

// statusFunc reports the feed status for HTTP and WebSocket clients.
func (a *App) statusFunc(channel *feed.Channel, v *view.View) func() domain.FeedStatus {
	return func() domain.FeedStatus {
		state := v.State()
		return domain.FeedStatus{
			Mode:          a.cfg.Mode,
			Source:        channel.SourceName(),
			State:         state,
			Connected:     state.Connected(),
			History:       v.Len(),
			Capacity:      v.Capacity(),
			UptimeSeconds: int64(time.Since(a.startedAt).Seconds()),
		}
	}
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
