package generator

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/xchainarb/internal/domain"
)

const tolerance = 1e-9

func newTestGenerator(seed int64, opts ...Option) *Generator {
	opts = append([]Option{WithRand(rand.New(rand.NewSource(seed)))}, opts...)
	return New(opts...)
}

func TestGenerateInvariants(t *testing.T) {
	g := newTestGenerator(42)

	for i := 0; i < 2000; i++ {
		opp := g.Generate()

		assert.NotEqual(t, opp.SourceChain, opp.TargetChain, "chains must differ")
		assert.InDelta(t, opp.SourcePrice*(1+opp.ProfitPercentage/100), opp.TargetPrice, tolerance)
		assert.InDelta(t, opp.RequiredAmount*opp.ProfitPercentage/100, opp.EstimatedProfit, tolerance)

		assert.GreaterOrEqual(t, opp.SourcePrice, 100.0)
		assert.Less(t, opp.SourcePrice, 1100.0)
		assert.GreaterOrEqual(t, opp.ProfitPercentage, -0.5)
		assert.LessOrEqual(t, opp.ProfitPercentage, 4.5)
		assert.GreaterOrEqual(t, opp.RequiredAmount, 1000.0)
		assert.Less(t, opp.RequiredAmount, 11000.0)
		assert.GreaterOrEqual(t, opp.GasEstimate, 0.01)
		assert.Less(t, opp.GasEstimate, 0.11)

		require.NoError(t, opp.Validate())
	}
}

func TestGenerateProfitRoundedToCents(t *testing.T) {
	g := newTestGenerator(7)
	for i := 0; i < 500; i++ {
		p := g.Generate().ProfitPercentage
		assert.InDelta(t, math.Round(p*100)/100, p, 1e-12, "profit %v has more than 2 decimals", p)
	}
}

func TestGenerateDEXMatchesChain(t *testing.T) {
	g := newTestGenerator(3)
	for i := 0; i < 200; i++ {
		opp := g.Generate()
		assert.Equal(t, opp.SourceChain, opp.SourceDex.Chain)
		assert.Equal(t, opp.TargetChain, opp.TargetDex.Chain)
	}
}

func TestGenerateUsesFirstDEXPerChain(t *testing.T) {
	g := newTestGenerator(11)
	seen := map[string]string{}
	for i := 0; i < 200; i++ {
		opp := g.Generate()
		seen[opp.SourceDex.Chain] = opp.SourceDex.Name
		seen[opp.TargetDex.Chain] = opp.TargetDex.Name
	}
	assert.Equal(t, map[string]string{"Ethereum": "Uniswap V3", "Unichain": "UniDex"}, seen)
}

func TestGenerateIdentifiers(t *testing.T) {
	g := newTestGenerator(99)
	ids := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		id := g.Generate().ID
		require.Len(t, id, idLength)
		assert.Regexp(t, `^[0-9a-f]+$`, id)
		_, dup := ids[id]
		require.False(t, dup, "duplicate id %s", id)
		ids[id] = struct{}{}
	}
}

func TestGenerateTimestampFromClock(t *testing.T) {
	fixed := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	g := newTestGenerator(1, WithClock(func() time.Time { return fixed }))

	opp := g.Generate()
	assert.Equal(t, fixed.UnixMilli(), opp.Timestamp)
	assert.True(t, opp.Time().Equal(fixed))
}

func TestGenerateDeterministicWithSeed(t *testing.T) {
	clock := WithClock(func() time.Time { return time.UnixMilli(1_700_000_000_000) })
	a := newTestGenerator(5, clock).Generate()
	b := newTestGenerator(5, clock).Generate()
	assert.Equal(t, a, b)
}

func TestGenerateDistinctChainsInLargerCatalog(t *testing.T) {
	c := DefaultCatalog()
	c.Chains = append(c.Chains, "Base", "Arbitrum")
	g := newTestGenerator(21, WithCatalog(c))

	targets := map[string]int{}
	for i := 0; i < 4000; i++ {
		opp := g.Generate()
		require.NotEqual(t, opp.SourceChain, opp.TargetChain)
		targets[opp.TargetChain]++
	}
	for _, chain := range c.Chains {
		assert.Greater(t, targets[chain], 0, "chain %s never chosen as target", chain)
	}
}

func TestGeneratePlaceholderDEXForUnlistedChain(t *testing.T) {
	c := DefaultCatalog()
	c.Chains = []string{"Ethereum", "Base"}
	g := newTestGenerator(8, WithCatalog(c))

	for i := 0; i < 50; i++ {
		opp := g.Generate()
		if opp.SourceChain == "Base" {
			assert.Equal(t, domain.DEX{Name: "Base DEX", Chain: "Base"}, opp.SourceDex)
		}
	}
}

func TestWithCatalogIgnoresEmpty(t *testing.T) {
	g := newTestGenerator(1, WithCatalog(Catalog{}))
	assert.Equal(t, DefaultCatalog(), g.catalog)
}

func TestDefaultCatalogAddresses(t *testing.T) {
	for _, tok := range DefaultCatalog().Tokens {
		assert.True(t, common.IsHexAddress(tok.Address), tok.Symbol)
		assert.Equal(t, common.HexToAddress(tok.Address).Hex(), tok.Address, "address should be checksummed")
	}
}
