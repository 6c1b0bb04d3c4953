package domain

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Token identifies an asset on a chain.
type Token struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// DEX is a trading venue bound to exactly one chain.
type DEX struct {
	Name  string `json:"name"`
	Chain string `json:"chain"`
}

// ArbitrageOpportunity describes a theoretical profit from buying an asset on
// one venue and selling it on another. Records are never mutated once built.
type ArbitrageOpportunity struct {
	ID               string  `json:"id"`
	Timestamp        int64   `json:"timestamp"` // milliseconds since epoch
	SourceChain      string  `json:"sourceChain"`
	TargetChain      string  `json:"targetChain"`
	SourceToken      Token   `json:"sourceToken"`
	TargetToken      Token   `json:"targetToken"`
	SourceDex        DEX     `json:"sourceDex"`
	TargetDex        DEX     `json:"targetDex"`
	SourcePrice      float64 `json:"sourcePrice"`
	TargetPrice      float64 `json:"targetPrice"`
	ProfitPercentage float64 `json:"profitPercentage"`
	EstimatedProfit  float64 `json:"estimatedProfit"`
	RequiredAmount   float64 `json:"requiredAmount"`
	GasEstimate      float64 `json:"gasEstimate"`
}

// Time returns the record timestamp as a time.Time.
func (o ArbitrageOpportunity) Time() time.Time {
	return time.UnixMilli(o.Timestamp)
}

// Profitable reports whether the opportunity is displayed as a gain. A
// profit of exactly zero counts as positive.
func (o ArbitrageOpportunity) Profitable() bool {
	return o.ProfitPercentage >= 0
}

// Bounds accepted for records arriving from an external feed.
const (
	MaxTokenDecimals    = 77
	MinProfitPercentage = -100.0
	MaxProfitPercentage = 1000.0
)

// Validate checks the shape and numeric ranges of a record received from an
// untrusted source. It returns an error wrapping ErrInvalidOpportunity that
// lists every problem found.
func (o ArbitrageOpportunity) Validate() error {
	var errs []string

	if strings.TrimSpace(o.ID) == "" {
		errs = append(errs, "id must not be empty")
	}
	if o.Timestamp <= 0 {
		errs = append(errs, fmt.Sprintf("timestamp must be positive, got %d", o.Timestamp))
	}

	if o.SourceChain == "" || o.TargetChain == "" {
		errs = append(errs, "source and target chain must be set")
	} else if o.SourceChain == o.TargetChain {
		errs = append(errs, fmt.Sprintf("source and target chain must differ, both %q", o.SourceChain))
	}

	errs = append(errs, validateToken("source_token", o.SourceToken)...)
	errs = append(errs, validateToken("target_token", o.TargetToken)...)
	errs = append(errs, validateDEX("source_dex", o.SourceDex, o.SourceChain)...)
	errs = append(errs, validateDEX("target_dex", o.TargetDex, o.TargetChain)...)

	numbers := []struct {
		name string
		v    float64
	}{
		{"source_price", o.SourcePrice},
		{"target_price", o.TargetPrice},
		{"profit_percentage", o.ProfitPercentage},
		{"estimated_profit", o.EstimatedProfit},
		{"required_amount", o.RequiredAmount},
		{"gas_estimate", o.GasEstimate},
	}
	finite := true
	for _, n := range numbers {
		if math.IsNaN(n.v) || math.IsInf(n.v, 0) {
			errs = append(errs, n.name+" must be a finite number")
			finite = false
		}
	}
	if finite {
		if o.SourcePrice <= 0 {
			errs = append(errs, "source_price must be > 0")
		}
		if o.TargetPrice <= 0 {
			errs = append(errs, "target_price must be > 0")
		}
		if o.RequiredAmount <= 0 {
			errs = append(errs, "required_amount must be > 0")
		}
		if o.GasEstimate < 0 {
			errs = append(errs, "gas_estimate must be >= 0")
		}
		if o.ProfitPercentage < MinProfitPercentage || o.ProfitPercentage > MaxProfitPercentage {
			errs = append(errs, fmt.Sprintf("profit_percentage must be within [%g, %g], got %g",
				MinProfitPercentage, MaxProfitPercentage, o.ProfitPercentage))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidOpportunity, strings.Join(errs, "; "))
	}
	return nil
}

func validateToken(field string, t Token) []string {
	var errs []string
	if strings.TrimSpace(t.Symbol) == "" {
		errs = append(errs, field+": symbol must not be empty")
	}
	if !common.IsHexAddress(t.Address) {
		errs = append(errs, fmt.Sprintf("%s: address %q is not a hex address", field, t.Address))
	}
	if t.Decimals < 0 || t.Decimals > MaxTokenDecimals {
		errs = append(errs, fmt.Sprintf("%s: decimals must be within [0, %d], got %d", field, MaxTokenDecimals, t.Decimals))
	}
	return errs
}

func validateDEX(field string, d DEX, chain string) []string {
	var errs []string
	if strings.TrimSpace(d.Name) == "" {
		errs = append(errs, field+": name must not be empty")
	}
	if chain != "" && d.Chain != chain {
		errs = append(errs, fmt.Sprintf("%s: chain %q does not match %q", field, d.Chain, chain))
	}
	return errs
}
