package feed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jpillora/backoff"

	"github.com/alanyoungcy/xchainarb/internal/domain"
)

// RetryPolicy controls reconnection of network sources.
type RetryPolicy struct {
	MinDelay time.Duration
	MaxDelay time.Duration
	Factor   float64
	Jitter   bool
	// MaxAttempts is the number of consecutive failed connection attempts
	// before the source gives up. Zero retries forever.
	MaxAttempts int
}

// DefaultRetryPolicy retries forever, from 2s doubling up to 60s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MinDelay: 2 * time.Second,
		MaxDelay: 60 * time.Second,
		Factor:   2,
		Jitter:   true,
	}
}

func (p RetryPolicy) backoff() *backoff.Backoff {
	return &backoff.Backoff{
		Min:    p.MinDelay,
		Max:    p.MaxDelay,
		Factor: p.Factor,
		Jitter: p.Jitter,
	}
}

// session runs one connection. It calls connected once the link is
// established and returns when the link ends.
type session func(ctx context.Context, connected func()) error

// runWithRetry drives a session through the connection state machine,
// reconnecting with backoff until ctx is cancelled or the attempt budget
// is spent. A session that connected resets the budget.
func runWithRetry(ctx context.Context, policy RetryPolicy, sink Sink, logger *slog.Logger, run session) error {
	b := policy.backoff()
	failures := 0

	for {
		sink.SetState(domain.StateConnecting)

		established := false
		err := run(ctx, func() {
			established = true
			failures = 0
			b.Reset()
			sink.SetState(domain.StateConnected)
		})
		if ctx.Err() != nil {
			return nil
		}

		if established {
			sink.SetState(domain.StateDisconnected)
			logger.Warn("feed connection lost", slog.String("error", errString(err)))
		} else {
			failures++
			logger.Warn("feed connection attempt failed",
				slog.Int("attempt", failures),
				slog.String("error", errString(err)),
			)
			if policy.MaxAttempts > 0 && failures >= policy.MaxAttempts {
				sink.SetState(domain.StateFailed)
				return fmt.Errorf("feed: %w after %d attempts: %v", domain.ErrRetriesExhausted, failures, err)
			}
		}

		delay := b.Duration()
		logger.Info("feed reconnecting", slog.Duration("delay", delay))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
