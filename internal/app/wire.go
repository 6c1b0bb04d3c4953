package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/xchainarb/internal/cache/redis"
	"github.com/alanyoungcy/xchainarb/internal/config"
	"github.com/alanyoungcy/xchainarb/internal/domain"
	"github.com/alanyoungcy/xchainarb/internal/generator"
	"github.com/alanyoungcy/xchainarb/internal/notify"
)

// Dependencies bundles what the feed sources and front end need. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	// Redis is nil unless the configuration uses Redis.
	Redis     *redis.Client
	SignalBus domain.SignalBus

	Generator *generator.Generator
	Notifier  *notify.Notifier
}

// Wire constructs the concrete dependencies and returns them together with a
// cleanup function to call on shutdown.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{
		Generator: generator.New(),
	}

	// --- Redis (relay source or mirror) ---
	if cfg.UsesRedis() {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.Redis = redisClient
		deps.SignalBus = redis.NewSignalBus(redisClient, logger)
	}

	// --- Notifications ---
	deps.Notifier = notify.NewNotifier(senders(cfg.Notify), cfg.Notify.Events, logger)

	return deps, cleanup, nil
}

func senders(cfg config.NotifyConfig) []notify.Sender {
	var out []notify.Sender
	if cfg.TelegramToken != "" && cfg.TelegramChatID != "" {
		out = append(out, notify.NewTelegramSender("", cfg.TelegramToken, cfg.TelegramChatID))
	}
	if cfg.DiscordWebhookURL != "" {
		out = append(out, notify.NewDiscordSender(cfg.DiscordWebhookURL))
	}
	return out
}
