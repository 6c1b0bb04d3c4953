package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/xchainarb/internal/domain"
	"github.com/alanyoungcy/xchainarb/internal/format"
)

const sendTimeout = 10 * time.Second

// Alerter turns feed callbacks into notifications. Its methods are feed
// listeners: they return immediately and send on a separate goroutine.
type Alerter struct {
	notifier     *Notifier
	minProfitPct float64
	logger       *slog.Logger

	wg sync.WaitGroup
}

// NewAlerter creates an Alerter that reports opportunities whose profit
// percentage is at least minProfitPct.
func NewAlerter(n *Notifier, minProfitPct float64, logger *slog.Logger) *Alerter {
	return &Alerter{
		notifier:     n,
		minProfitPct: minProfitPct,
		logger:       logger.With(slog.String("component", "alerter")),
	}
}

// Opportunity is a feed.Listener.
func (a *Alerter) Opportunity(opp domain.ArbitrageOpportunity) {
	if opp.ProfitPercentage < a.minProfitPct {
		return
	}
	level := LevelGain
	if !opp.Profitable() {
		level = LevelLoss
	}
	a.send(Alert{
		Event: EventOpportunity,
		Title: fmt.Sprintf("Arbitrage %s/%s %s", opp.SourceToken.Symbol, opp.TargetToken.Symbol, signedPercent(opp.ProfitPercentage)),
		Message: fmt.Sprintf("%s (%s) -> %s (%s)",
			opp.SourceDex.Name, opp.SourceChain,
			opp.TargetDex.Name, opp.TargetChain,
		),
		Fields: []Field{
			{Name: "Buy", Value: "$" + format.Number(opp.SourcePrice)},
			{Name: "Sell", Value: "$" + format.Number(opp.TargetPrice)},
			{Name: "Est. profit", Value: "$" + format.Number(opp.EstimatedProfit)},
			{Name: "Required", Value: "$" + format.Number(opp.RequiredAmount)},
			{Name: "Gas", Value: format.Number(opp.GasEstimate) + " ETH"},
			{Name: "ID", Value: opp.ID},
		},
		Level: level,
		Time:  opp.Time(),
	})
}

// signedPercent prefixes non-negative values with "+"; negative values keep
// their own sign.
func signedPercent(pct float64) string {
	s := format.Number(pct) + "%"
	if pct >= 0 {
		return "+" + s
	}
	return s
}

// State is a feed.StateListener. Only the Failed state is reported.
func (a *Alerter) State(s domain.ConnectionState) {
	if s != domain.StateFailed {
		return
	}
	a.send(Alert{
		Event:   EventFeedFailed,
		Title:   "Feed failed",
		Message: "The opportunity feed exhausted its reconnection attempts and stopped.",
		Level:   LevelFailure,
		Time:    time.Now(),
	})
}

func (a *Alerter) send(alert Alert) {
	if !a.notifier.Enabled() || !a.notifier.Allows(alert.Event) {
		return
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		if err := a.notifier.Notify(ctx, alert); err != nil {
			a.logger.Warn("alert not delivered", slog.String("event", alert.Event), slog.String("error", err.Error()))
		}
	}()
}

// Wait blocks until in-flight sends finish.
func (a *Alerter) Wait() {
	a.wg.Wait()
}
