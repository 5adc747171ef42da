package analysis

import (
	"math"

	"github.com/traderboter/Back-to-OLD-method-sub000/internal/market"
)

// MomentumAnalyzer derives momentum direction and strength from RSI and
// MACD, and classifies the MACD market type used by the aggregator.
type MomentumAnalyzer struct{}

// NewMomentumAnalyzer creates a momentum analyzer
func NewMomentumAnalyzer() *MomentumAnalyzer {
	return &MomentumAnalyzer{}
}

// Kind returns KindMomentum
func (ma *MomentumAnalyzer) Kind() Kind { return KindMomentum }

// Analyze writes the momentum slot on the context
func (ma *MomentumAnalyzer) Analyze(ctx *Context) error {
	ind := ctx.Indicators
	if ind == nil || len(ctx.Klines) < market.MinCandles {
		return ctx.SetMomentum(&MomentumResult{
			ResultMeta: ResultMeta{Status: StatusInsufficientData, Direction: Neutral},
			MACDType:   MACDTypeX,
		})
	}

	result := &MomentumResult{
		ResultMeta:    ResultMeta{Status: StatusOK, Direction: Neutral},
		RSI:           ind.RSI14,
		MACDDirection: Neutral,
	}

	if ind.MACDHist > 0 {
		result.MACDDirection = Bullish
	} else if ind.MACDHist < 0 {
		result.MACDDirection = Bearish
	}

	rsiBias := Neutral
	if ind.RSI14 >= 55 {
		rsiBias = Bullish
	} else if ind.RSI14 <= 45 {
		rsiBias = Bearish
	}

	switch {
	case rsiBias == result.MACDDirection && rsiBias != Neutral:
		result.Direction = rsiBias
		result.Strength = ma.strength(ind, true)
	case rsiBias != Neutral:
		result.Direction = rsiBias
		result.Strength = ma.strength(ind, false) * 0.6
	case result.MACDDirection != Neutral:
		result.Direction = result.MACDDirection
		result.Strength = ma.strength(ind, false) * 0.5
	default:
		result.Strength = 0.3
	}

	result.MACDType = ma.classifyMACDType(ind, result.Direction)
	return ctx.SetMomentum(result)
}

// strength maps RSI distance from 50 plus MACD histogram size to 0..3
func (ma *MomentumAnalyzer) strength(ind *market.IndicatorSet, aligned bool) float64 {
	rsiComponent := math.Abs(ind.RSI14-50) / 50 * 2.0 // 0..2

	histComponent := 0.0
	if ind.BollMiddle > 0 {
		// Histogram scaled by price so the measure is symbol-independent
		histComponent = math.Min(1.0, math.Abs(ind.MACDHist)/ind.BollMiddle*1000)
	}

	strength := rsiComponent + histComponent
	if aligned {
		strength *= 1.1
	}
	if strength > 3.0 {
		strength = 3.0
	}
	return strength
}

// classifyMACDType buckets MACD geometry into the legacy A..X market types
func (ma *MomentumAnalyzer) classifyMACDType(ind *market.IndicatorSet, dir Direction) MACDMarketType {
	histAligned := (dir == Bullish && ind.MACDHist > 0) || (dir == Bearish && ind.MACDHist < 0)
	lineAligned := (dir == Bullish && ind.MACDLine > ind.MACDSignal) ||
		(dir == Bearish && ind.MACDLine < ind.MACDSignal)

	switch {
	case histAligned && lineAligned && math.Abs(ind.MACDHist) > math.Abs(ind.MACDLine)*0.1:
		return MACDTypeA
	case histAligned && lineAligned:
		return MACDTypeB
	case lineAligned:
		return MACDTypeC
	case !histAligned && !lineAligned && dir != Neutral:
		return MACDTypeX
	default:
		return MACDTypeD
	}
}
