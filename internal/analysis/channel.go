package analysis

import (
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/market"
)

// ChannelAnalyzer fits parallel regression lines through recent highs and
// lows and classifies the channel slope.
type ChannelAnalyzer struct {
	window int
	// slopeThreshold is the per-candle slope (percent of price) above
	// which a channel counts as ascending/descending.
	slopeThreshold float64
}

// NewChannelAnalyzer creates a channel analyzer over a 30-candle window
func NewChannelAnalyzer() *ChannelAnalyzer {
	return &ChannelAnalyzer{window: 30, slopeThreshold: 0.05}
}

// Kind returns KindChannel
func (ca *ChannelAnalyzer) Kind() Kind { return KindChannel }

// Analyze writes the channel slot on the context
func (ca *ChannelAnalyzer) Analyze(ctx *Context) error {
	if len(ctx.Klines) < ca.window {
		return ctx.SetChannel(&ChannelResult{
			ResultMeta: ResultMeta{Status: StatusInsufficientData, Direction: Neutral},
		})
	}

	window := ctx.Klines[len(ctx.Klines)-ca.window:]
	highSlope, highIntercept := fitLine(window, true)
	lowSlope, lowIntercept := fitLine(window, false)

	price := ctx.CurrentPrice()
	n := float64(ca.window - 1)
	upper := highIntercept + highSlope*n
	lower := lowIntercept + lowSlope*n
	if upper <= lower || price <= 0 {
		return ctx.SetChannel(&ChannelResult{
			ResultMeta: ResultMeta{Status: StatusOK, Direction: Neutral},
		})
	}

	avgSlope := (highSlope + lowSlope) / 2
	slopePercent := avgSlope / price * 100

	result := &ChannelResult{
		ResultMeta: ResultMeta{Status: StatusOK, Direction: Neutral},
		UpperBound: upper,
		LowerBound: lower,
	}

	switch {
	case slopePercent > ca.slopeThreshold:
		result.Type = ChannelAscending
		result.Direction = Bullish
	case slopePercent < -ca.slopeThreshold:
		result.Type = ChannelDescending
		result.Direction = Bearish
	default:
		result.Type = ChannelHorizontal
		result.Direction = Sideways
	}

	// Position inside the channel drives strength: near the favoring
	// bound is a stronger setup than mid-channel.
	span := upper - lower
	position := (price - lower) / span
	switch result.Type {
	case ChannelAscending:
		result.Strength = (1 - position) * 3
	case ChannelDescending:
		result.Strength = position * 3
	default:
		result.Strength = 1
	}
	if result.Strength < 0 {
		result.Strength = 0
	}
	if result.Strength > 3 {
		result.Strength = 3
	}

	return ctx.SetChannel(result)
}

// fitLine runs least-squares over highs or lows, returning slope and
// intercept in price units per candle index.
func fitLine(klines []market.Kline, useHighs bool) (slope, intercept float64) {
	n := float64(len(klines))
	var sumX, sumY, sumXY, sumXX float64
	for i, k := range klines {
		x := float64(i)
		y := k.Low
		if useHighs {
			y = k.High
		}
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, sumY / n
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n
	return slope, intercept
}
