// Package feed delivers arbitrage opportunities to subscribers. A Channel
// owns one Source (simulated, Socket.IO or Redis) and fans out every
// opportunity and connection state change to registered listeners.
package feed

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/alanyoungcy/xchainarb/internal/domain"
)

// Listener receives each opportunity the channel delivers.
type Listener func(domain.ArbitrageOpportunity)

// StateListener receives connection state transitions.
type StateListener func(domain.ConnectionState)

// Sink is the channel side a Source reports into.
type Sink interface {
	Emit(domain.ArbitrageOpportunity)
	SetState(domain.ConnectionState)
}

// Source produces opportunities until ctx is cancelled or it gives up.
// Run returns nil when stopped through ctx.
type Source interface {
	Name() string
	Run(ctx context.Context, sink Sink) error
}

type registration[T any] struct {
	id uint64
	fn T
}

// Channel is the update channel. Listeners are invoked one at a time, in
// registration order, on the source's goroutine. Listeners must not call
// Disconnect.
type Channel struct {
	source Source
	logger *slog.Logger

	mu             sync.Mutex
	nextID         uint64
	listeners      []registration[Listener]
	stateListeners []registration[StateListener]
	state          domain.ConnectionState
	cancel         context.CancelFunc
	done           chan struct{}
	runErr         error

	// dispatchMu serialises delivery so listeners never run concurrently.
	dispatchMu sync.Mutex
}

// NewChannel creates an idle channel over source.
func NewChannel(source Source, logger *slog.Logger) *Channel {
	return &Channel{
		source: source,
		logger: logger.With(slog.String("component", "feed")),
		state:  domain.StateIdle,
	}
}

// Connect starts the source in the background. Calling Connect while the
// source is running is a no-op. A source that stopped on its own (for
// example after exhausting retries) is restarted.
func (c *Channel) Connect(ctx context.Context) error {
	if c.source == nil {
		return errors.New("feed: no source configured")
	}

	c.mu.Lock()
	if c.done != nil {
		select {
		case <-c.done:
			c.cancel()
		default:
			c.mu.Unlock()
			c.logger.Debug("connect ignored, feed already running")
			return nil
		}
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.cancel, c.done, c.runErr = cancel, done, nil
	c.mu.Unlock()

	c.logger.Info("connecting feed", slog.String("source", c.source.Name()))

	go func() {
		defer close(done)
		err := c.source.Run(runCtx, c)
		if err != nil && runCtx.Err() == nil {
			c.logger.Error("feed stopped", slog.String("source", c.source.Name()), slog.String("error", err.Error()))
		}
		c.mu.Lock()
		c.runErr = err
		c.mu.Unlock()
	}()
	return nil
}

// Disconnect stops the source and waits for it to exit. Listeners stay
// registered. It is safe to call without a prior Connect, in which case the
// state is left unchanged.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done

	// A source that gave up keeps reporting Failed.
	if c.State() == domain.StateFailed {
		return
	}
	c.SetState(domain.StateDisconnected)
	c.logger.Info("feed disconnected")
}

// Subscribe registers l and returns a function that removes it. The returned
// function may be called any number of times.
func (c *Channel) Subscribe(l Listener) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners = append(c.listeners, registration[Listener]{id: id, fn: l})
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			c.listeners = slices.DeleteFunc(slices.Clone(c.listeners), func(r registration[Listener]) bool { return r.id == id })
			c.mu.Unlock()
		})
	}
}

// OnStateChange registers l for connection state transitions.
func (c *Channel) OnStateChange(l StateListener) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.stateListeners = append(c.stateListeners, registration[StateListener]{id: id, fn: l})
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			c.stateListeners = slices.DeleteFunc(slices.Clone(c.stateListeners), func(r registration[StateListener]) bool { return r.id == id })
			c.mu.Unlock()
		})
	}
}

// State returns the current connection state.
func (c *Channel) State() domain.ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the error the source last stopped with, if any.
func (c *Channel) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runErr
}

// SourceName reports the configured source.
func (c *Channel) SourceName() string {
	if c.source == nil {
		return ""
	}
	return c.source.Name()
}

// Emit delivers opp to every listener registered at the time of the call.
func (c *Channel) Emit(opp domain.ArbitrageOpportunity) {
	c.dispatchMu.Lock()
	defer c.dispatchMu.Unlock()

	c.mu.Lock()
	ls := c.listeners
	c.mu.Unlock()

	for _, l := range ls {
		l.fn(opp)
	}
}

// SetState records s and notifies state listeners when it differs from the
// current state.
func (c *Channel) SetState(s domain.ConnectionState) {
	c.dispatchMu.Lock()
	defer c.dispatchMu.Unlock()

	c.mu.Lock()
	prev := c.state
	if prev == s {
		c.mu.Unlock()
		return
	}
	c.state = s
	ls := c.stateListeners
	c.mu.Unlock()

	c.logger.Info("feed state changed", slog.String("from", prev.String()), slog.String("to", s.String()))
	for _, l := range ls {
		l.fn(s)
	}
}
