package feed

import (
	"context"
	"time"

	"github.com/alanyoungcy/xchainarb/internal/domain"
)

// DefaultInterval is the simulated emission period.
const DefaultInterval = 2 * time.Second

// Generator produces synthetic opportunities.
type Generator interface {
	Generate() domain.ArbitrageOpportunity
}

// Ticker abstracts time.Ticker so tests can drive emissions by hand.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// NewTickerFunc creates a Ticker firing every d.
type NewTickerFunc func(d time.Duration) Ticker

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

// NewTimeTicker wraps time.NewTicker.
func NewTimeTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

// SimulatedSource emits one generated opportunity per interval. It reports
// Connected as soon as it starts.
type SimulatedSource struct {
	gen       Generator
	interval  time.Duration
	newTicker NewTickerFunc
}

// SimulatedOption configures a SimulatedSource.
type SimulatedOption func(*SimulatedSource)

// WithInterval sets the emission period. Non-positive values are ignored.
func WithInterval(d time.Duration) SimulatedOption {
	return func(s *SimulatedSource) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithTicker replaces the ticker constructor.
func WithTicker(fn NewTickerFunc) SimulatedOption {
	return func(s *SimulatedSource) {
		if fn != nil {
			s.newTicker = fn
		}
	}
}

// NewSimulatedSource creates a source over gen.
func NewSimulatedSource(gen Generator, opts ...SimulatedOption) *SimulatedSource {
	s := &SimulatedSource{
		gen:       gen,
		interval:  DefaultInterval,
		newTicker: NewTimeTicker,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements Source.
func (s *SimulatedSource) Name() string { return "simulated" }

// Run implements Source.
func (s *SimulatedSource) Run(ctx context.Context, sink Sink) error {
	sink.SetState(domain.StateConnected)

	t := s.newTicker(s.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C():
			if ctx.Err() != nil {
				return nil
			}
			sink.Emit(s.gen.Generate())
		}
	}
}
