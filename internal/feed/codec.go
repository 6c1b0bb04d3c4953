package feed

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/xchainarb/internal/domain"
)

// decodeOpportunity parses an inbound JSON opportunity. With validate set,
// structurally valid JSON that breaks opportunity invariants is rejected.
func decodeOpportunity(data []byte, validate bool) (domain.ArbitrageOpportunity, error) {
	var opp domain.ArbitrageOpportunity
	if err := json.Unmarshal(data, &opp); err != nil {
		return domain.ArbitrageOpportunity{}, fmt.Errorf("feed: decode opportunity: %w", err)
	}
	if validate {
		if err := opp.Validate(); err != nil {
			return domain.ArbitrageOpportunity{}, fmt.Errorf("feed: %w", err)
		}
	}
	return opp, nil
}

// emitDecoded decodes data and emits it, dropping malformed payloads with a
// warning.
func emitDecoded(sink Sink, logger *slog.Logger, data []byte, validate bool) {
	opp, err := decodeOpportunity(data, validate)
	if err != nil {
		logger.Warn("dropping inbound opportunity",
			slog.String("error", err.Error()),
			slog.Int("bytes", len(data)),
		)
		return
	}
	sink.Emit(opp)
}
