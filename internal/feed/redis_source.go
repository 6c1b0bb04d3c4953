package feed

import (
	"context"
	"errors"
	"log/slog"

	"github.com/alanyoungcy/xchainarb/internal/domain"
)

// RedisSource receives JSON opportunities from a pub/sub channel.
type RedisSource struct {
	bus      domain.SignalBus
	channel  string
	validate bool
	retry    RetryPolicy
	logger   *slog.Logger
}

// NewRedisSource creates a source subscribed to channel on bus.
func NewRedisSource(bus domain.SignalBus, channel string, validate bool, retry RetryPolicy, logger *slog.Logger) *RedisSource {
	return &RedisSource{
		bus:      bus,
		channel:  channel,
		validate: validate,
		retry:    retry,
		logger:   logger.With(slog.String("component", "redis_feed")),
	}
}

// Name implements Source.
func (s *RedisSource) Name() string { return "redis" }

// Run implements Source.
func (s *RedisSource) Run(ctx context.Context, sink Sink) error {
	return runWithRetry(ctx, s.retry, sink, s.logger, func(ctx context.Context, connected func()) error {
		msgs, err := s.bus.Subscribe(ctx, s.channel)
		if err != nil {
			return err
		}
		s.logger.Info("redis subscribed", slog.String("channel", s.channel))
		connected()

		for {
			select {
			case <-ctx.Done():
				return nil
			case data, ok := <-msgs:
				if !ok {
					return errors.New("feed: redis subscription closed")
				}
				emitDecoded(sink, s.logger, data, s.validate)
			}
		}
	})
}
