package llm

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"
)

// ModelTier groups models that share a price point
type ModelTier string

const (
	TierOpus   ModelTier = "opus"
	TierSonnet ModelTier = "sonnet"
	TierHaiku  ModelTier = "haiku"

	// DefaultTier is used when a model name matches no known family
	DefaultTier = TierSonnet
)

// Rates are USD prices per one million tokens
type Rates struct {
	InputPer1M    float64 `yaml:"input_per_1m"`
	OutputPer1M   float64 `yaml:"output_per_1m"`
	ThinkingPer1M float64 `yaml:"thinking_per_1m"`
}

// RateTable maps a tier to its rates
type RateTable map[ModelTier]Rates

// DefaultRates returns the built-in rate table
func DefaultRates() RateTable {
	return RateTable{
		TierOpus:   {InputPer1M: 15.0, OutputPer1M: 75.0, ThinkingPer1M: 75.0},
		TierSonnet: {InputPer1M: 3.0, OutputPer1M: 15.0, ThinkingPer1M: 15.0},
		TierHaiku:  {InputPer1M: 1.0, OutputPer1M: 5.0, ThinkingPer1M: 5.0},
	}
}

// TierForModel resolves the family of a model id such as "claude-sonnet-4-5"
func TierForModel(model string) ModelTier {
	lower := strings.ToLower(model)
	for _, tier := range []ModelTier{TierOpus, TierSonnet, TierHaiku} {
		if strings.Contains(lower, string(tier)) {
			return tier
		}
	}
	return DefaultTier
}

// RatesFor returns the rates for model, falling back to the default tier
func (t RateTable) RatesFor(model string) Rates {
	if rates, ok := t[TierForModel(model)]; ok {
		return rates
	}
	return t[DefaultTier]
}

// EstimateCost returns the estimated USD cost of usage on model
func (t RateTable) EstimateCost(model string, usage Usage) float64 {
	rates := t.RatesFor(model)
	return float64(usage.InputTokens)/1e6*rates.InputPer1M +
		float64(usage.OutputTokens)/1e6*rates.OutputPer1M +
		float64(usage.ThinkingTokens)/1e6*rates.ThinkingPer1M
}

// LoadRates reads a YAML file keyed by tier and overlays it on the defaults.
// An empty path returns the defaults unchanged.
func LoadRates(path string) (RateTable, error) {
	table := DefaultRates()
	if path == "" {
		return table, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rates file: %w", err)
	}

	var overrides map[ModelTier]Rates
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("failed to parse rates file: %w", err)
	}

	for tier, rates := range overrides {
		switch tier {
		case TierOpus, TierSonnet, TierHaiku:
			table[tier] = rates
		default:
			return nil, fmt.Errorf("unknown model tier %q in rates file", tier)
		}
	}

	return table, nil
}
