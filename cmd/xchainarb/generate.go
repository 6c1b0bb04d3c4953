package main

import (
	"encoding/json"
	"fmt"
	"math/rand"

	"github.com/spf13/cobra"

	"github.com/alanyoungcy/xchainarb/internal/domain"
	"github.com/alanyoungcy/xchainarb/internal/generator"
	"github.com/alanyoungcy/xchainarb/internal/table"
)

func runGenerate(cmd *cobra.Command, _ []string) error {
	count, _ := cmd.Flags().GetInt("count")
	seed, _ := cmd.Flags().GetInt64("seed")
	asJSON, _ := cmd.Flags().GetBool("json")

	if count <= 0 {
		return fmt.Errorf("count must be positive, got %d", count)
	}

	var opts []generator.Option
	if seed != 0 {
		opts = append(opts, generator.WithRand(rand.New(rand.NewSource(seed))))
	}
	gen := generator.New(opts...)

	opps := make([]domain.ArbitrageOpportunity, 0, count)
	for range count {
		opps = append(opps, gen.Generate())
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		for _, opp := range opps {
			if err := enc.Encode(opp); err != nil {
				return fmt.Errorf("encode opportunity: %w", err)
			}
		}
		return nil
	}
	return table.RenderText(out, opps)
}
