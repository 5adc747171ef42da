package analysis

import (
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/market"
)

// CyclicalAnalyzer looks for a dominant price cycle via autocorrelation
// of close-to-close returns and projects the next swing from the cycle's
// current phase.
type CyclicalAnalyzer struct {
	minPeriod int
	maxPeriod int
}

// NewCyclicalAnalyzer creates a cycle analyzer scanning periods of 8 to
// 40 candles.
func NewCyclicalAnalyzer() *CyclicalAnalyzer {
	return &CyclicalAnalyzer{minPeriod: 8, maxPeriod: 40}
}

// Kind returns KindCyclical
func (ca *CyclicalAnalyzer) Kind() Kind { return KindCyclical }

// Analyze writes the cyclical slot on the context
func (ca *CyclicalAnalyzer) Analyze(ctx *Context) error {
	if len(ctx.Klines) < ca.maxPeriod*3 {
		return ctx.SetCyclical(&CyclicalResult{
			ResultMeta: ResultMeta{Status: StatusInsufficientData, Direction: Neutral},
		})
	}

	returns := make([]float64, 0, len(ctx.Klines)-1)
	for i := 1; i < len(ctx.Klines); i++ {
		prev := ctx.Klines[i-1].Close
		if prev == 0 {
			continue
		}
		returns = append(returns, (ctx.Klines[i].Close-prev)/prev)
	}

	period, correlation := ca.dominantCycle(returns)

	result := &CyclicalResult{
		ResultMeta: ResultMeta{Status: StatusOK, Direction: Neutral},
	}
	if correlation <= 0.2 {
		// No meaningful cycle; forecast carries no weight
		return ctx.SetCyclical(result)
	}

	result.ForecastStrength = clampUnit(correlation)
	result.Strength = result.ForecastStrength * 3

	// Phase within the cycle decides the directional lean: the first
	// half of a cycle measured from the last trough leans bullish.
	trough := lastTroughOffset(ctx.Klines, period)
	phase := float64(trough) / float64(period)
	switch {
	case phase < 0.5:
		result.Direction = Bullish
	default:
		result.Direction = Bearish
	}

	return ctx.SetCyclical(result)
}

// dominantCycle finds the lag with the highest autocorrelation
func (ca *CyclicalAnalyzer) dominantCycle(returns []float64) (int, float64) {
	bestPeriod, bestCorr := 0, 0.0
	for lag := ca.minPeriod; lag <= ca.maxPeriod && lag < len(returns)/2; lag++ {
		corr := autocorrelation(returns, lag)
		if corr > bestCorr {
			bestCorr = corr
			bestPeriod = lag
		}
	}
	return bestPeriod, bestCorr
}

func autocorrelation(series []float64, lag int) float64 {
	n := len(series) - lag
	if n < 2 {
		return 0
	}

	mean := 0.0
	for _, v := range series {
		mean += v
	}
	mean /= float64(len(series))

	var num, denom float64
	for i := 0; i < n; i++ {
		num += (series[i] - mean) * (series[i+lag] - mean)
	}
	for _, v := range series {
		denom += (v - mean) * (v - mean)
	}
	if denom == 0 {
		return 0
	}
	return num / denom
}

// lastTroughOffset returns how many candles ago the lowest low of the
// most recent cycle window occurred.
func lastTroughOffset(klines []market.Kline, period int) int {
	if period <= 0 || len(klines) == 0 {
		return 0
	}
	start := len(klines) - period
	if start < 0 {
		start = 0
	}
	lowIdx := start
	for i := start; i < len(klines); i++ {
		if klines[i].Low < klines[lowIdx].Low {
			lowIdx = i
		}
	}
	return len(klines) - 1 - lowIdx
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
