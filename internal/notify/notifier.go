// Package notify forwards noteworthy feed events to chat channels. Events are
// dispatched to every registered sender (Telegram, Discord) and filtered by
// event type so operators receive only the alerts they configured.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Event types.
const (
	EventOpportunity = "opportunity"
	EventFeedFailed  = "feed_failed"
)

// Level grades an alert. Senders that support colour use it.
type Level int

const (
	LevelInfo Level = iota
	LevelGain
	LevelLoss
	LevelFailure
)

// Field is a labelled value shown alongside an alert.
type Field struct {
	Name  string
	Value string
}

// Alert is one notification ready for delivery.
type Alert struct {
	Event   string
	Title   string
	Message string
	Fields  []Field
	Level   Level
	// Time is when the underlying event happened. Zero means unknown.
	Time time.Time
}

// Sender is implemented by each notification channel.
type Sender interface {
	// Send delivers the alert in the channel's native format.
	Send(ctx context.Context, alert Alert) error
	// Name identifies the sender in logs, e.g. "telegram".
	Name() string
}

// Notifier dispatches notifications to one or more Senders. Notify forwards
// only allowed event types; an empty allow list admits every type.
type Notifier struct {
	senders []Sender
	events  map[string]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier for senders, admitting the listed events.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		if e = strings.TrimSpace(e); e != "" {
			allowed[e] = true
		}
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Enabled reports whether any sender is configured.
func (n *Notifier) Enabled() bool {
	return len(n.senders) > 0
}

// Allows reports whether event passes the filter.
func (n *Notifier) Allows(event string) bool {
	return len(n.events) == 0 || n.events[event]
}

// Notify sends alert to all senders if its event is allowed. Every sender is
// tried; failures are joined into the returned error.
func (n *Notifier) Notify(ctx context.Context, alert Alert) error {
	if !n.Allows(alert.Event) {
		n.logger.DebugContext(ctx, "event filtered out", slog.String("event", alert.Event))
		return nil
	}

	var errs []error
	for _, s := range n.senders {
		if err := s.Send(ctx, alert); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("event", alert.Event),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "notification sent",
			slog.String("sender", s.Name()),
			slog.String("event", alert.Event),
		)
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %w", len(errs), errors.Join(errs...))
	}
	return nil
}
