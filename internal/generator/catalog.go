package generator

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/xchainarb/internal/domain"
)

// Catalog is the fixed universe the generator draws from.
type Catalog struct {
	Chains []string
	DEXes  []domain.DEX
	Tokens []domain.Token
}

// DefaultCatalog returns the two-chain catalog used by the simulated feed.
// Token addresses are the Ethereum mainnet contracts, EIP-55 checksummed.
func DefaultCatalog() Catalog {
	return Catalog{
		Chains: []string{"Ethereum", "Unichain"},
		DEXes: []domain.DEX{
			{Name: "Uniswap V3", Chain: "Ethereum"},
			{Name: "SushiSwap", Chain: "Ethereum"},
			{Name: "UniDex", Chain: "Unichain"},
			{Name: "PancakeSwap", Chain: "Unichain"},
		},
		Tokens: []domain.Token{
			token("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", "ETH", 18),
			token("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", "USDC", 6),
			token("0xdAC17F958D2ee523a2206206994597C13D831ec7", "USDT", 6),
			token("0x6B175474E89094C44Da98b954EedeAC495271d0F", "DAI", 18),
		},
	}
}

func token(addr, symbol string, decimals int) domain.Token {
	return domain.Token{
		Address:  common.HexToAddress(addr).Hex(),
		Symbol:   symbol,
		Decimals: decimals,
	}
}

// dexFor returns the first DEX bound to chain. Chains without a DEX get a
// placeholder named after the chain so Generate never fails.
func (c Catalog) dexFor(chain string) domain.DEX {
	for _, d := range c.DEXes {
		if d.Chain == chain {
			return d
		}
	}
	return domain.DEX{Name: chain + " DEX", Chain: chain}
}
