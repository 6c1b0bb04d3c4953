package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/xchainarb/internal/domain"
)

const (
	mirrorTimeout = 2 * time.Second

	// mirrorQueueSize bounds the opportunities waiting to be republished.
	mirrorQueueSize = 256
)

// Mirror republishes delivered opportunities to a pub/sub channel so other
// processes can consume the same stream. Publishing happens on a background
// goroutine; Publish only enqueues.
type Mirror struct {
	bus     domain.SignalBus
	channel string
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.RWMutex
	queue  chan []byte
	closed bool
}

// NewMirror creates a mirror publishing to channel on bus and starts its
// publisher. Call Close to stop it.
func NewMirror(bus domain.SignalBus, channel string, logger *slog.Logger) *Mirror {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Mirror{
		bus:     bus,
		channel: channel,
		logger:  logger.With(slog.String("component", "feed_mirror")),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
		queue:   make(chan []byte, mirrorQueueSize),
	}
	go m.run()
	return m
}

// Publish is a Listener. It never blocks: when the queue is full or the
// mirror is closed the opportunity is dropped and logged.
func (m *Mirror) Publish(opp domain.ArbitrageOpportunity) {
	payload, err := json.Marshal(opp)
	if err != nil {
		m.logger.Error("marshal opportunity", slog.String("error", err.Error()))
		return
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return
	}
	select {
	case m.queue <- payload:
	default:
		m.logger.Warn("mirror queue full, dropping", slog.String("id", opp.ID))
	}
}

func (m *Mirror) run() {
	defer close(m.done)
	for payload := range m.queue {
		if m.ctx.Err() != nil {
			continue
		}
		ctx, cancel := context.WithTimeout(m.ctx, mirrorTimeout)
		err := m.bus.Publish(ctx, m.channel, payload)
		cancel()
		if err != nil && m.ctx.Err() == nil {
			m.logger.Warn("mirror publish failed", slog.String("error", err.Error()))
		}
	}
}

// Close stops accepting opportunities and gives queued ones up to
// mirrorTimeout to flush; whatever remains after that is discarded. Safe to
// call more than once.
func (m *Mirror) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		<-m.done
		return
	}
	m.closed = true
	close(m.queue)
	m.mu.Unlock()

	timer := time.NewTimer(mirrorTimeout)
	defer timer.Stop()
	select {
	case <-m.done:
	case <-timer.C:
		m.logger.Warn("mirror flush timed out, discarding queued opportunities")
		m.cancel()
		<-m.done
	}
	m.cancel()
}
