package analysis

import (
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/market"
)

// HTFAnalyzer reads the higher-timeframe series from the context and
// judges whether the higher-timeframe structure backs the local trend.
// It runs last so the trend slot is already populated.
type HTFAnalyzer struct {
	minCandles int
}

// NewHTFAnalyzer creates a higher-timeframe structure analyzer
func NewHTFAnalyzer() *HTFAnalyzer {
	return &HTFAnalyzer{minCandles: 50}
}

// Kind returns KindHTF
func (ha *HTFAnalyzer) Kind() Kind { return KindHTF }

// Analyze writes the higher-timeframe slot on the context
func (ha *HTFAnalyzer) Analyze(ctx *Context) error {
	tf, klines := ha.highestSeries(ctx)
	if len(klines) < ha.minCandles {
		return ctx.SetHTF(&HTFResult{
			ResultMeta: ResultMeta{Status: StatusInsufficientData, Direction: Neutral},
		})
	}

	dir, structure := ha.classifyStructure(klines)

	result := &HTFResult{
		ResultMeta: ResultMeta{Status: StatusOK, Direction: dir},
		Timeframe:  string(tf),
		Structure:  structure,
	}
	result.Strength = structure * 3

	if trend := ctx.Results.Trend; trend != nil && trend.OK() {
		result.Aligned = dir == trend.Direction && dir != Sideways && dir != Neutral
	}

	return ctx.SetHTF(result)
}

// highestSeries picks the highest-ranked timeframe present on the context
func (ha *HTFAnalyzer) highestSeries(ctx *Context) (market.Timeframe, []market.Kline) {
	var best market.Timeframe
	var series []market.Kline
	for tf, klines := range ctx.HTFKlines {
		if best == "" || tf.Rank() > best.Rank() {
			best = tf
			series = klines
		}
	}
	return best, series
}

// classifyStructure grades the higher timeframe's EMA stack and price
// position into a direction and a 0..1 structural quality.
func (ha *HTFAnalyzer) classifyStructure(klines []market.Kline) (Direction, float64) {
	ema20 := market.CalculateEMA(klines, 20)
	ema50 := market.CalculateEMA(klines, 50)
	price := market.LastClose(klines)
	if ema20 == 0 || ema50 == 0 || price == 0 {
		return Neutral, 0
	}

	switch {
	case price > ema20 && ema20 > ema50:
		// Full bullish stack; separation width grades quality
		sep := (ema20 - ema50) / ema50 * 100
		return Bullish, clampUnit(0.6 + sep*0.2)
	case price < ema20 && ema20 < ema50:
		sep := (ema50 - ema20) / ema50 * 100
		return Bearish, clampUnit(0.6 + sep*0.2)
	case price > ema50:
		return Bullish, 0.4
	case price < ema50:
		return Bearish, 0.4
	default:
		return Sideways, 0.2
	}
}
