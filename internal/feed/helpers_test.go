package feed_test

import (
	"context"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alanyoungcy/xchainarb/internal/domain"
	"github.com/alanyoungcy/xchainarb/internal/feed"
	"github.com/alanyoungcy/xchainarb/internal/generator"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// manualTicker fires only when the test sends on ch.
type manualTicker struct {
	ch      chan time.Time
	stopped atomic.Bool
}

func newManualTicker() *manualTicker {
	return &manualTicker{ch: make(chan time.Time)}
}

func (t *manualTicker) C() <-chan time.Time { return t.ch }
func (t *manualTicker) Stop()               { t.stopped.Store(true) }

// steppingClock advances by step on every read.
type steppingClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(c.step)
	return c.now
}

func seededGenerator(clock func() time.Time) *generator.Generator {
	return generator.New(
		generator.WithRand(rand.New(rand.NewSource(7))),
		generator.WithClock(clock),
	)
}

// recorder collects deliveries from a channel.
type recorder struct {
	mu     sync.Mutex
	opps   []domain.ArbitrageOpportunity
	states []domain.ConnectionState
}

func (r *recorder) opportunity(o domain.ArbitrageOpportunity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opps = append(r.opps, o)
}

func (r *recorder) state(s domain.ConnectionState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.opps)
}

func (r *recorder) snapshot() ([]domain.ArbitrageOpportunity, []domain.ConnectionState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.ArbitrageOpportunity(nil), r.opps...), append([]domain.ConnectionState(nil), r.states...)
}

func (r *recorder) hasState(s domain.ConnectionState) bool {
	_, states := r.snapshot()
	for _, got := range states {
		if got == s {
			return true
		}
	}
	return false
}

// blockingSource reports Connected and waits for cancellation.
type blockingSource struct {
	runs atomic.Int32
}

func (s *blockingSource) Name() string { return "blocking" }

func (s *blockingSource) Run(ctx context.Context, sink feed.Sink) error {
	s.runs.Add(1)
	sink.SetState(domain.StateConnected)
	<-ctx.Done()
	return nil
}

func validOpportunity(id string) domain.ArbitrageOpportunity {
	return domain.ArbitrageOpportunity{
		ID:               id,
		Timestamp:        1700000000000,
		SourceChain:      "Ethereum",
		TargetChain:      "Unichain",
		SourceToken:      domain.Token{Address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", Symbol: "USDC", Decimals: 6},
		TargetToken:      domain.Token{Address: "0xdAC17F958D2ee523a2206206994597C13D831ec7", Symbol: "USDT", Decimals: 6},
		SourceDex:        domain.DEX{Name: "Uniswap V3", Chain: "Ethereum"},
		TargetDex:        domain.DEX{Name: "UniDex", Chain: "Unichain"},
		SourcePrice:      100,
		TargetPrice:      101.5,
		ProfitPercentage: 1.5,
		EstimatedProfit:  1.5,
		RequiredAmount:   5000,
		GasEstimate:      0.05,
	}
}
