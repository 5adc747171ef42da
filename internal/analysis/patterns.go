package analysis

import (
	"math"

	"github.com/traderboter/Back-to-OLD-method-sub000/internal/market"
)

// PatternsAnalyzer detects candlestick reversal patterns in the recent
// candles. Only patterns completing within the scan window count toward
// the result.
type PatternsAnalyzer struct {
	minBodyPercent float64
	scanWindow     int
}

// NewPatternsAnalyzer creates a pattern analyzer. minBodyPercent is the
// minimum candle body as a percent of price for engulfing checks.
func NewPatternsAnalyzer(minBodyPercent float64) *PatternsAnalyzer {
	if minBodyPercent <= 0 {
		minBodyPercent = 0.5
	}
	return &PatternsAnalyzer{minBodyPercent: minBodyPercent, scanWindow: 10}
}

// Kind returns KindPatterns
func (pa *PatternsAnalyzer) Kind() Kind { return KindPatterns }

// Analyze writes the patterns slot on the context
func (pa *PatternsAnalyzer) Analyze(ctx *Context) error {
	if len(ctx.Klines) < 5 {
		return ctx.SetPatterns(&PatternsResult{
			ResultMeta: ResultMeta{Status: StatusInsufficientData, Direction: Neutral},
		})
	}

	start := len(ctx.Klines) - pa.scanWindow
	if start < 2 {
		start = 2
	}

	var detected []DetectedPattern
	for i := start; i < len(ctx.Klines); i++ {
		c1, c2, c3 := ctx.Klines[i-2], ctx.Klines[i-1], ctx.Klines[i]

		if pa.isBullishEngulfing(c2, c3) {
			detected = append(detected, DetectedPattern{
				Name: "bullish_engulfing", Direction: Bullish,
				Confidence: pa.engulfingConfidence(c2, c3),
			})
		}
		if pa.isBearishEngulfing(c2, c3) {
			detected = append(detected, DetectedPattern{
				Name: "bearish_engulfing", Direction: Bearish,
				Confidence: pa.engulfingConfidence(c2, c3),
			})
		}
		if pa.isHammer(c3) {
			detected = append(detected, DetectedPattern{
				Name: "hammer", Direction: Bullish, Confidence: 0.6,
			})
		}
		if pa.isShootingStar(c3) {
			detected = append(detected, DetectedPattern{
				Name: "shooting_star", Direction: Bearish, Confidence: 0.6,
			})
		}
		if pa.isMorningStar(c1, c2, c3) {
			detected = append(detected, DetectedPattern{
				Name: "morning_star", Direction: Bullish, Confidence: 0.75,
			})
		}
		if pa.isEveningStar(c1, c2, c3) {
			detected = append(detected, DetectedPattern{
				Name: "evening_star", Direction: Bearish, Confidence: 0.75,
			})
		}
	}

	result := &PatternsResult{
		ResultMeta: ResultMeta{Status: StatusOK, Direction: Neutral},
		Patterns:   detected,
	}

	bull, bear := 0.0, 0.0
	for _, p := range detected {
		switch p.Direction {
		case Bullish:
			bull += p.Confidence
		case Bearish:
			bear += p.Confidence
		}
	}
	switch {
	case bull > bear:
		result.Direction = Bullish
		result.Strength = math.Min(3, bull*1.5)
	case bear > bull:
		result.Direction = Bearish
		result.Strength = math.Min(3, bear*1.5)
	}

	return ctx.SetPatterns(result)
}

func body(k market.Kline) float64 {
	return math.Abs(k.Close - k.Open)
}

func (pa *PatternsAnalyzer) bodyLargeEnough(k market.Kline) bool {
	if k.Close == 0 {
		return false
	}
	return body(k)/k.Close*100 >= pa.minBodyPercent
}

func (pa *PatternsAnalyzer) isBullishEngulfing(c1, c2 market.Kline) bool {
	if c1.Close >= c1.Open || c2.Close <= c2.Open {
		return false
	}
	if !pa.bodyLargeEnough(c2) {
		return false
	}
	return c2.Open <= c1.Close && c2.Close >= c1.Open
}

func (pa *PatternsAnalyzer) isBearishEngulfing(c1, c2 market.Kline) bool {
	if c1.Close <= c1.Open || c2.Close >= c2.Open {
		return false
	}
	if !pa.bodyLargeEnough(c2) {
		return false
	}
	return c2.Open >= c1.Close && c2.Close <= c1.Open
}

func (pa *PatternsAnalyzer) engulfingConfidence(c1, c2 market.Kline) float64 {
	if body(c1) == 0 {
		return 0.5
	}
	ratio := body(c2) / body(c1)
	conf := 0.5 + math.Min(0.4, (ratio-1)*0.2)
	if conf < 0.5 {
		conf = 0.5
	}
	return conf
}

// isHammer requires a lower wick at least twice the body with a small
// upper wick.
func (pa *PatternsAnalyzer) isHammer(k market.Kline) bool {
	b := body(k)
	if b == 0 {
		return false
	}
	lowerWick := math.Min(k.Open, k.Close) - k.Low
	upperWick := k.High - math.Max(k.Open, k.Close)
	return lowerWick >= b*2 && upperWick <= b*0.5
}

func (pa *PatternsAnalyzer) isShootingStar(k market.Kline) bool {
	b := body(k)
	if b == 0 {
		return false
	}
	upperWick := k.High - math.Max(k.Open, k.Close)
	lowerWick := math.Min(k.Open, k.Close) - k.Low
	return upperWick >= b*2 && lowerWick <= b*0.5
}

func (pa *PatternsAnalyzer) isMorningStar(c1, c2, c3 market.Kline) bool {
	if c1.Close >= c1.Open {
		return false
	}
	if body(c2) > body(c1)*0.3 {
		return false
	}
	if c3.Close <= c3.Open {
		return false
	}
	// Third candle must close beyond the midpoint of the first
	return c3.Close > (c1.Open+c1.Close)/2
}

func (pa *PatternsAnalyzer) isEveningStar(c1, c2, c3 market.Kline) bool {
	if c1.Close <= c1.Open {
		return false
	}
	if body(c2) > body(c1)*0.3 {
		return false
	}
	if c3.Close >= c3.Open {
		return false
	}
	return c3.Close < (c1.Open+c1.Close)/2
}
