// Package generator produces randomized arbitrage opportunities for the
// simulated feed.
package generator

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/xchainarb/internal/domain"
)

// Value ranges drawn by Generate, as half-open intervals [min, min+span).
const (
	minSourcePrice    = 100.0
	spanSourcePrice   = 1000.0
	minProfitPct      = -0.5
	spanProfitPct     = 5.0
	minRequiredAmount = 1000.0
	spanRequiredAmt   = 10000.0
	minGasEstimate    = 0.01
	spanGasEstimate   = 0.1

	idLength = 12
)

// Option configures a Generator.
type Option func(*Generator)

// WithRand sets the random source. Tests pass a fixed seed.
func WithRand(rng *rand.Rand) Option {
	return func(g *Generator) { g.rng = rng }
}

// WithClock sets the function used to stamp records.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithCatalog replaces the default catalog. Catalogs without chains or
// tokens are ignored.
func WithCatalog(c Catalog) Option {
	return func(g *Generator) {
		if len(c.Chains) == 0 || len(c.Tokens) == 0 {
			return
		}
		g.catalog = c
	}
}

// Generator builds random opportunities. It is safe for concurrent use.
type Generator struct {
	catalog Catalog
	now     func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a Generator over the default catalog with a time-seeded random
// source.
func New(opts ...Option) *Generator {
	g := &Generator{
		catalog: DefaultCatalog(),
		now:     time.Now,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns a fresh opportunity. Source and target chains always
// differ when the catalog lists at least two chains.
func (g *Generator) Generate() domain.ArbitrageOpportunity {
	g.mu.Lock()
	defer g.mu.Unlock()

	sourceChain, targetChain := g.pickChains()
	sourceToken := g.catalog.Tokens[g.rng.Intn(len(g.catalog.Tokens))]
	targetToken := g.catalog.Tokens[g.rng.Intn(len(g.catalog.Tokens))]

	sourcePrice := minSourcePrice + g.rng.Float64()*spanSourcePrice
	profitPct := decimal.NewFromFloat(minProfitPct + g.rng.Float64()*spanProfitPct).Round(2).InexactFloat64()
	targetPrice := sourcePrice * (1 + profitPct/100)
	requiredAmount := minRequiredAmount + g.rng.Float64()*spanRequiredAmt
	estimatedProfit := requiredAmount * profitPct / 100
	gasEstimate := minGasEstimate + g.rng.Float64()*spanGasEstimate

	return domain.ArbitrageOpportunity{
		ID:               g.newID(),
		Timestamp:        g.now().UnixMilli(),
		SourceChain:      sourceChain,
		TargetChain:      targetChain,
		SourceToken:      sourceToken,
		TargetToken:      targetToken,
		SourceDex:        g.catalog.dexFor(sourceChain),
		TargetDex:        g.catalog.dexFor(targetChain),
		SourcePrice:      sourcePrice,
		TargetPrice:      targetPrice,
		ProfitPercentage: profitPct,
		EstimatedProfit:  estimatedProfit,
		RequiredAmount:   requiredAmount,
		GasEstimate:      gasEstimate,
	}
}

// pickChains draws the source chain uniformly and the target uniformly among
// the remaining entries. Caller must hold g.mu.
func (g *Generator) pickChains() (string, string) {
	chains := g.catalog.Chains
	if len(chains) < 2 {
		return chains[0], chains[0]
	}
	i := g.rng.Intn(len(chains))
	j := g.rng.Intn(len(chains) - 1)
	if j >= i {
		j++
	}
	return chains[i], chains[j]
}

// newID draws a short lowercase hex identifier from a random UUID. Caller
// must hold g.mu.
func (g *Generator) newID() string {
	id, err := uuid.NewRandomFromReader(g.rng)
	if err != nil {
		id = uuid.New()
	}
	return strings.ReplaceAll(id.String(), "-", "")[:idLength]
}
