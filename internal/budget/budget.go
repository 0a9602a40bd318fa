// Package budget derives the processing time and size limits every pipeline
// stage must respect from a deployment-tier signal.
package budget

import (
	"log/slog"
	"strings"

	"podscribe/internal/logging"
)

// Tier names recognized by Resolve.
const (
	TierHobby     = "hobby"
	TierPro       = "pro"
	TierUnlimited = "unlimited"
)

// ProcessingBudget bounds a single generation job. The presets are hand-tuned
// constants, not derived values.
type ProcessingBudget struct {
	Tier                    string
	MaxInputDurationSeconds int
	TotalWindowSeconds      int
	ChunkDurationSeconds    int
	PerChunkTimeoutMs       int
	TargetOutputMinutes     int
}

var presets = map[string]ProcessingBudget{
	TierHobby: {
		Tier:                    TierHobby,
		MaxInputDurationSeconds: 3600,
		TotalWindowSeconds:      900,
		ChunkDurationSeconds:    300,
		PerChunkTimeoutMs:       60_000,
		TargetOutputMinutes:     5,
	},
	TierPro: {
		Tier:                    TierPro,
		MaxInputDurationSeconds: 10800,
		TotalWindowSeconds:      2700,
		ChunkDurationSeconds:    600,
		PerChunkTimeoutMs:       120_000,
		TargetOutputMinutes:     10,
	},
	TierUnlimited: {
		Tier:                    TierUnlimited,
		MaxInputDurationSeconds: 43200,
		TotalWindowSeconds:      14400,
		ChunkDurationSeconds:    900,
		PerChunkTimeoutMs:       300_000,
		TargetOutputMinutes:     15,
	},
}

// Resolve maps a deployment-tier signal to its processing budget. An absent
// or unrecognized signal falls open to the unlimited preset; the choice is
// logged because misconfigured deployments otherwise run unbounded without a
// trace. See DESIGN.md for the open question on making this a hard error.
func Resolve(tierSignal string, logger *slog.Logger) ProcessingBudget {
	log := logging.NewComponentLogger(logger, "budget")
	normalized := strings.ToLower(strings.TrimSpace(tierSignal))

	preset, ok := presets[normalized]
	if !ok {
		preset = presets[TierUnlimited]
		if normalized == "" {
			log.Info("no deployment tier set, using unlimited budget")
		} else {
			log.Warn("unrecognized deployment tier, falling open to unlimited budget",
				logging.String("tier_signal", tierSignal))
		}
		return preset
	}

	log.Info("resolved processing budget",
		logging.String("tier", preset.Tier),
		logging.Int("max_input_duration_seconds", preset.MaxInputDurationSeconds),
		logging.Int("total_window_seconds", preset.TotalWindowSeconds),
		logging.Int("chunk_duration_seconds", preset.ChunkDurationSeconds),
	)
	return preset
}
