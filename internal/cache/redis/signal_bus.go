package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/xchainarb/internal/domain"
)

const (
	// relayBuffer is the number of payloads buffered per subscription,
	// both inside go-redis and on the returned channel.
	relayBuffer = 128

	// healthCheckInterval is how often an idle subscription pings the
	// server. go-redis reconnects and resubscribes when a ping fails.
	healthCheckInterval = 15 * time.Second
)

// SignalBus relays opportunity payloads over Redis Pub/Sub. It implements
// domain.SignalBus for the feed's relay source and mirror.
type SignalBus struct {
	rdb    *redis.Client
	logger *slog.Logger
}

// NewSignalBus creates a SignalBus backed by the given Client.
func NewSignalBus(c *Client, logger *slog.Logger) *SignalBus {
	return &SignalBus{
		rdb:    c.rdb,
		logger: logger.With(slog.String("component", "redis_relay")),
	}
}

// validateChannel rejects names the relay cannot use. The relay carries one
// stream per channel, so glob patterns are refused rather than
// pattern-subscribed.
func validateChannel(channel string) error {
	if strings.TrimSpace(channel) == "" {
		return fmt.Errorf("redis: relay channel must not be empty")
	}
	if strings.ContainsAny(channel, "*?[") {
		return fmt.Errorf("redis: relay channel %q must not contain glob characters", channel)
	}
	return nil
}

// Publish sends payload to channel. A publish nobody receives is not an
// error, but it is logged at debug level.
func (sb *SignalBus) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := validateChannel(channel); err != nil {
		return err
	}
	receivers, err := sb.rdb.Publish(ctx, channel, payload).Result()
	if err != nil {
		return fmt.Errorf("redis: publish %s: %w", channel, err)
	}
	if receivers == 0 {
		sb.logger.DebugContext(ctx, "published with no subscribers", slog.String("channel", channel))
	}
	return nil
}

// PublishOpportunity encodes opp as JSON and publishes it to channel.
func (sb *SignalBus) PublishOpportunity(ctx context.Context, channel string, opp domain.ArbitrageOpportunity) error {
	payload, err := json.Marshal(opp)
	if err != nil {
		return fmt.Errorf("redis: encode opportunity %s: %w", opp.ID, err)
	}
	return sb.Publish(ctx, channel, payload)
}

// Subscribe subscribes to channel and returns its raw payloads. go-redis
// transparently reconnects and resubscribes on network errors, so the
// returned channel only closes when ctx is cancelled or the subscription is
// closed by the server.
func (sb *SignalBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	if err := validateChannel(channel); err != nil {
		return nil, err
	}

	pubsub := sb.rdb.Subscribe(ctx, channel)
	if err := confirm(ctx, pubsub); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis: subscribe %s: %w", channel, err)
	}
	sb.logger.InfoContext(ctx, "relay subscribed", slog.String("channel", channel))

	msgs := pubsub.Channel(
		redis.WithChannelSize(relayBuffer),
		redis.WithChannelHealthCheckInterval(healthCheckInterval),
	)

	out := make(chan []byte, relayBuffer)
	go func() {
		defer close(out)
		defer pubsub.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					sb.logger.Warn("relay subscription closed", slog.String("channel", channel))
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// confirm waits for the server's subscription acknowledgement.
func confirm(ctx context.Context, pubsub *redis.PubSub) error {
	reply, err := pubsub.Receive(ctx)
	if err != nil {
		return err
	}
	switch r := reply.(type) {
	case *redis.Subscription:
		if r.Kind != "subscribe" {
			return fmt.Errorf("unexpected subscription reply %q", r.Kind)
		}
		return nil
	default:
		return fmt.Errorf("unexpected reply %T", reply)
	}
}

var _ domain.SignalBus = (*SignalBus)(nil)
