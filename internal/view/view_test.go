package view_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/xchainarb/internal/domain"
	"github.com/alanyoungcy/xchainarb/internal/feed"
	"github.com/alanyoungcy/xchainarb/internal/view"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// idleSource connects and then waits.
type idleSource struct{}

func (idleSource) Name() string { return "idle" }

func (idleSource) Run(ctx context.Context, sink feed.Sink) error {
	sink.SetState(domain.StateConnecting)
	sink.SetState(domain.StateConnected)
	<-ctx.Done()
	return nil
}

func opp(id string) domain.ArbitrageOpportunity {
	return domain.ArbitrageOpportunity{ID: id, Timestamp: 1700000000000}
}

func TestPushKeepsNewestWithinCapacity(t *testing.T) {
	ch := feed.NewChannel(idleSource{}, discardLogger())
	v := view.New(ch, 0, discardLogger())
	require.Equal(t, view.DefaultCapacity, v.Capacity())

	for i := 0; i < 150; i++ {
		v.Push(opp(fmt.Sprintf("opp-%d", i)))
	}

	snap := v.Snapshot()
	require.Len(t, snap, 100)
	assert.Equal(t, "opp-149", snap[0].ID)
	assert.Equal(t, "opp-50", snap[99].ID)
	for i := 1; i < len(snap); i++ {
		assert.Equal(t, fmt.Sprintf("opp-%d", 149-i), snap[i].ID)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	v := view.New(feed.NewChannel(idleSource{}, discardLogger()), 3, discardLogger())
	v.Push(opp("a"))

	snap := v.Snapshot()
	snap[0].ID = "mutated"
	assert.Equal(t, "a", v.Snapshot()[0].ID)
}

func TestMountTracksChannelState(t *testing.T) {
	ch := feed.NewChannel(idleSource{}, discardLogger())
	v := view.New(ch, 5, discardLogger())
	assert.Equal(t, domain.StateIdle, v.State())
	assert.False(t, v.Connected())

	var mu sync.Mutex
	var states []domain.ConnectionState
	v.OnUpdate(func(u view.Update) {
		if u.Kind == view.UpdateState {
			mu.Lock()
			states = append(states, u.State)
			mu.Unlock()
		}
	})

	require.NoError(t, v.Mount(context.Background()))
	require.NoError(t, v.Mount(context.Background()))
	require.Eventually(t, v.Connected, time.Second, 5*time.Millisecond)

	ch.Emit(opp("delivered"))
	assert.Equal(t, 1, v.Len())

	v.Unmount()
	assert.Equal(t, domain.StateDisconnected, v.State())

	mu.Lock()
	assert.Equal(t, []domain.ConnectionState{domain.StateConnecting, domain.StateConnected, domain.StateDisconnected}, states)
	mu.Unlock()

	ch.Emit(opp("after-unmount"))
	assert.Equal(t, 1, v.Len())
}

func TestUnmountWithoutMount(t *testing.T) {
	ch := feed.NewChannel(idleSource{}, discardLogger())
	v := view.New(ch, 5, discardLogger())

	v.Unmount()
	v.Unmount()
	assert.Equal(t, domain.StateIdle, v.State())
	assert.Equal(t, domain.StateIdle, ch.State())
}

func TestOnUpdateUnsubscribe(t *testing.T) {
	v := view.New(feed.NewChannel(idleSource{}, discardLogger()), 5, discardLogger())

	var got []string
	unsub := v.OnUpdate(func(u view.Update) { got = append(got, u.Opportunity.ID) })
	v.Push(opp("one"))
	unsub()
	v.Push(opp("two"))

	assert.Equal(t, []string{"one"}, got)
}

// failingFeed refuses to connect.
type failingFeed struct {
	unsubscribed int
}

func (f *failingFeed) Connect(context.Context) error { return errors.New("no source") }
func (f *failingFeed) Disconnect()                  {}
func (f *failingFeed) Subscribe(feed.Listener) func() {
	return func() { f.unsubscribed++ }
}
func (f *failingFeed) OnStateChange(feed.StateListener) func() {
	return func() { f.unsubscribed++ }
}
func (f *failingFeed) State() domain.ConnectionState { return domain.StateIdle }

func TestMountFailureUnregisters(t *testing.T) {
	f := &failingFeed{}
	v := view.New(f, 5, discardLogger())

	err := v.Mount(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "view: mount")
	assert.Equal(t, 2, f.unsubscribed)
}
