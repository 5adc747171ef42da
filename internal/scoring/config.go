package scoring

import (
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/market"
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/signal"
)

// Method selects the multiplier formula and score ceiling
type Method string

const (
	// MethodNew applies all 13 multipliers with no score ceiling
	MethodNew Method = "new"
	// MethodOld applies the first 8 multipliers with a 200-point ceiling
	MethodOld Method = "old"
	// MethodHybrid applies all 13 multipliers with a 300-point ceiling
	MethodHybrid Method = "hybrid"
)

// Config holds scorer configuration
type Config struct {
	// Weights are the per-analyzer base score weights; they should sum
	// to 1.0 so the weighted base score stays on the 0..100 scale.
	Weights signal.BaseScores `json:"weights"`

	// TimeframeWeights override the timeframe multiplier per interval,
	// clamped into 0.7..1.2.
	TimeframeWeights map[market.Timeframe]float64 `json:"timeframe_weights"`

	Method Method `json:"scoring_method"`

	// MaxScore caps the final score when > 0. Zero means uncapped. When
	// left zero the method's default ceiling applies.
	MaxScore float64 `json:"max_score"`
}

// DefaultConfig returns the default scoring configuration
func DefaultConfig() *Config {
	return &Config{
		Weights: signal.BaseScores{
			Trend:             0.30,
			Momentum:          0.25,
			Volume:            0.20,
			Patterns:          0.10,
			SupportResistance: 0.08,
			Volatility:        0.05,
			Harmonic:          0.01,
			Channel:           0.005,
			Cyclical:          0.003,
			HTF:               0.002,
		},
		TimeframeWeights: map[market.Timeframe]float64{
			market.TF5m:  0.8,
			market.TF15m: 0.9,
			market.TF1h:  1.0,
			market.TF4h:  1.1,
		},
		Method: MethodNew,
	}
}

// multiplierCount returns how many multipliers the method applies
func (c *Config) multiplierCount() int {
	if c.Method == MethodOld {
		return 8
	}
	return 13
}

// effectiveMaxScore resolves the score ceiling for the method
func (c *Config) effectiveMaxScore() float64 {
	if c.MaxScore > 0 {
		return c.MaxScore
	}
	switch c.Method {
	case MethodOld:
		return 200
	case MethodHybrid:
		return 300
	default:
		return 0 // uncapped
	}
}

// timeframeWeight resolves and clamps the timeframe multiplier
func (c *Config) timeframeWeight(tf market.Timeframe) float64 {
	w, ok := c.TimeframeWeights[tf]
	if !ok {
		return 1.0
	}
	return clamp(w, 0.7, 1.2)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clamp01(v float64) float64 {
	return clamp(v, 0, 1)
}
