package analysis

import (
	"sort"

	"github.com/traderboter/Back-to-OLD-method-sub000/internal/market"
)

// VolatilityAnalyzer ranks current ATR against its own history and maps
// the rank onto a risk multiplier used by position sizing downstream.
type VolatilityAnalyzer struct {
	atrPeriod int
	history   int
}

// NewVolatilityAnalyzer creates a volatility analyzer with ATR(14) over a
// 50-sample percentile window.
func NewVolatilityAnalyzer() *VolatilityAnalyzer {
	return &VolatilityAnalyzer{atrPeriod: 14, history: 50}
}

// Kind returns KindVolatility
func (va *VolatilityAnalyzer) Kind() Kind { return KindVolatility }

// Analyze writes the volatility slot on the context
func (va *VolatilityAnalyzer) Analyze(ctx *Context) error {
	if len(ctx.Klines) < va.atrPeriod*2 {
		return ctx.SetVolatility(&VolatilityResult{
			ResultMeta:     ResultMeta{Status: StatusInsufficientData, Direction: Neutral},
			RiskMultiplier: 1.0,
		})
	}

	atr := market.CalculateATR(ctx.Klines, va.atrPeriod)
	percentile := va.percentileRank(ctx.Klines, atr)

	result := &VolatilityResult{
		ResultMeta:     ResultMeta{Status: StatusOK, Direction: Neutral},
		ATRValue:       atr,
		Percentile:     percentile,
		RiskMultiplier: riskMultiplierFor(percentile),
	}
	// Mid-band volatility is the most tradeable; strength peaks at the
	// 50th percentile and falls off toward both extremes.
	result.Strength = (100 - absFloat(percentile-50)*2) / 100 * 3

	return ctx.SetVolatility(result)
}

// percentileRank computes where the current ATR sits among trailing ATR
// samples.
func (va *VolatilityAnalyzer) percentileRank(klines []market.Kline, current float64) float64 {
	samples := make([]float64, 0, va.history)
	for i := 0; i < va.history; i++ {
		end := len(klines) - i
		if end < va.atrPeriod+1 {
			break
		}
		samples = append(samples, market.CalculateATR(klines[:end], va.atrPeriod))
	}
	if len(samples) < 2 {
		return 50
	}

	sort.Float64s(samples)
	below := 0
	for _, s := range samples {
		if s < current {
			below++
		}
	}
	return float64(below) / float64(len(samples)) * 100
}

// riskMultiplierFor shrinks position risk as volatility climbs
func riskMultiplierFor(percentile float64) float64 {
	switch {
	case percentile >= 90:
		return 0.5
	case percentile >= 75:
		return 0.7
	case percentile >= 50:
		return 0.9
	case percentile >= 25:
		return 1.0
	default:
		return 1.1
	}
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
