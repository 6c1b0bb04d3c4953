// Package view holds the dashboard state: a capped, newest-first history of
// opportunities and the last connection state reported by the feed.
package view

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/alanyoungcy/xchainarb/internal/domain"
	"github.com/alanyoungcy/xchainarb/internal/feed"
)

// DefaultCapacity is the number of opportunities kept.
const DefaultCapacity = 100

// UpdateKind distinguishes view updates.
type UpdateKind int

const (
	UpdateOpportunity UpdateKind = iota
	UpdateState
)

// Update describes one change to the view.
type Update struct {
	Kind        UpdateKind
	Opportunity domain.ArbitrageOpportunity
	State       domain.ConnectionState
}

// Feed is the part of feed.Channel the view uses.
type Feed interface {
	Connect(ctx context.Context) error
	Disconnect()
	Subscribe(feed.Listener) func()
	OnStateChange(feed.StateListener) func()
	State() domain.ConnectionState
}

// View is safe for concurrent use.
type View struct {
	feed     Feed
	capacity int
	logger   *slog.Logger

	mu      sync.RWMutex
	history []domain.ArbitrageOpportunity
	state   domain.ConnectionState
	unsubs  []func()

	obsMu     sync.Mutex
	nextObsID uint64
	observers map[uint64]func(Update)
}

// New creates a view over f. A non-positive capacity selects
// DefaultCapacity.
func New(f Feed, capacity int, logger *slog.Logger) *View {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &View{
		feed:      f,
		capacity:  capacity,
		logger:    logger.With(slog.String("component", "view")),
		history:   make([]domain.ArbitrageOpportunity, 0, capacity),
		state:     f.State(),
		observers: make(map[uint64]func(Update)),
	}
}

// Mount subscribes to the feed and connects it. Mounting an already mounted
// view is a no-op.
func (v *View) Mount(ctx context.Context) error {
	v.mu.Lock()
	if v.unsubs != nil {
		v.mu.Unlock()
		return nil
	}
	v.unsubs = []func(){
		v.feed.OnStateChange(v.setState),
		v.feed.Subscribe(v.Push),
	}
	v.state = v.feed.State()
	v.mu.Unlock()

	if err := v.feed.Connect(ctx); err != nil {
		v.Unmount()
		return fmt.Errorf("view: mount: %w", err)
	}
	v.logger.Info("view mounted", slog.Int("capacity", v.capacity))
	return nil
}

// Unmount disconnects the feed, recording the final state, and then
// unsubscribes. It is safe to call without a prior Mount and more than once.
func (v *View) Unmount() {
	v.mu.Lock()
	unsubs := v.unsubs
	v.unsubs = nil
	v.mu.Unlock()

	if unsubs == nil {
		return
	}
	v.feed.Disconnect()
	for _, unsub := range unsubs {
		unsub()
	}
	v.logger.Info("view unmounted")
}

// Push prepends opp to the history, dropping the oldest entries beyond
// capacity.
func (v *View) Push(opp domain.ArbitrageOpportunity) {
	v.mu.Lock()
	if len(v.history) < v.capacity {
		v.history = append(v.history, domain.ArbitrageOpportunity{})
	}
	copy(v.history[1:], v.history[:len(v.history)-1])
	v.history[0] = opp
	v.mu.Unlock()

	v.notify(Update{Kind: UpdateOpportunity, Opportunity: opp})
}

func (v *View) setState(s domain.ConnectionState) {
	v.mu.Lock()
	v.state = s
	v.mu.Unlock()

	v.notify(Update{Kind: UpdateState, State: s})
}

// Snapshot returns a copy of the history, newest first.
func (v *View) Snapshot() []domain.ArbitrageOpportunity {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return slices.Clone(v.history)
}

// Len returns the number of opportunities held.
func (v *View) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.history)
}

// Capacity returns the history limit.
func (v *View) Capacity() int {
	return v.capacity
}

// State returns the last connection state observed.
func (v *View) State() domain.ConnectionState {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.state
}

// Connected reports whether the feed is connected.
func (v *View) Connected() bool {
	return v.State().Connected()
}

// OnUpdate registers fn for history and state changes. fn runs on the feed's
// delivery goroutine and must not block.
func (v *View) OnUpdate(fn func(Update)) (unsubscribe func()) {
	v.obsMu.Lock()
	id := v.nextObsID
	v.nextObsID++
	v.observers[id] = fn
	v.obsMu.Unlock()

	return func() {
		v.obsMu.Lock()
		delete(v.observers, id)
		v.obsMu.Unlock()
	}
}

func (v *View) notify(u Update) {
	v.obsMu.Lock()
	fns := make([]func(Update), 0, len(v.observers))
	for _, fn := range v.observers {
		fns = append(fns, fn)
	}
	v.obsMu.Unlock()

	for _, fn := range fns {
		fn(u)
	}
}
