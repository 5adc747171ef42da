package analysis

import (
	"math"

	"github.com/traderboter/Back-to-OLD-method-sub000/internal/market"
)

// SupportResistanceAnalyzer clusters swing points into horizontal levels
// and locates the nearest support and resistance around current price.
type SupportResistanceAnalyzer struct {
	swingLookback    int
	clusterTolerance float64 // percent of price for merging levels
	minTouches       int
}

// NewSupportResistanceAnalyzer creates an S/R analyzer with default
// clustering tolerance of 0.3%.
func NewSupportResistanceAnalyzer() *SupportResistanceAnalyzer {
	return &SupportResistanceAnalyzer{
		swingLookback:    5,
		clusterTolerance: 0.3,
		minTouches:       2,
	}
}

// Kind returns KindSupportResistance
func (sa *SupportResistanceAnalyzer) Kind() Kind { return KindSupportResistance }

// Analyze writes the support/resistance slot on the context
func (sa *SupportResistanceAnalyzer) Analyze(ctx *Context) error {
	if len(ctx.Klines) < sa.swingLookback*4 {
		return ctx.SetSupportResistance(&SupportResistanceResult{
			ResultMeta: ResultMeta{Status: StatusInsufficientData, Direction: Neutral},
		})
	}

	price := ctx.CurrentPrice()
	levels := sa.buildLevels(ctx.Klines)

	result := &SupportResistanceResult{
		ResultMeta:        ResultMeta{Status: StatusOK, Direction: Neutral},
		BreakoutDirection: Neutral,
	}

	for _, lvl := range levels {
		if lvl.price < price {
			if result.NearestSupport == 0 || lvl.price > result.NearestSupport {
				result.NearestSupport = lvl.price
			}
		} else if lvl.price > price {
			if result.NearestResistance == 0 || lvl.price < result.NearestResistance {
				result.NearestResistance = lvl.price
			}
		}
	}

	sa.detectBreakout(ctx, levels, result)
	sa.classify(price, result)

	return ctx.SetSupportResistance(result)
}

type srLevel struct {
	price   float64
	touches int
}

// buildLevels clusters swing highs and lows within the tolerance band
func (sa *SupportResistanceAnalyzer) buildLevels(klines []market.Kline) []srLevel {
	var points []float64
	lb := sa.swingLookback
	for i := lb; i < len(klines)-lb; i++ {
		isHigh, isLow := true, true
		for j := i - lb; j <= i+lb; j++ {
			if j == i {
				continue
			}
			if klines[j].High >= klines[i].High {
				isHigh = false
			}
			if klines[j].Low <= klines[i].Low {
				isLow = false
			}
		}
		if isHigh {
			points = append(points, klines[i].High)
		}
		if isLow {
			points = append(points, klines[i].Low)
		}
	}

	var levels []srLevel
	for _, p := range points {
		merged := false
		for i := range levels {
			tolerance := levels[i].price * sa.clusterTolerance / 100
			if math.Abs(levels[i].price-p) <= tolerance {
				// Weighted merge keeps the level at the touch centroid
				n := float64(levels[i].touches)
				levels[i].price = (levels[i].price*n + p) / (n + 1)
				levels[i].touches++
				merged = true
				break
			}
		}
		if !merged {
			levels = append(levels, srLevel{price: p, touches: 1})
		}
	}

	var kept []srLevel
	for _, lvl := range levels {
		if lvl.touches >= sa.minTouches {
			kept = append(kept, lvl)
		}
	}
	if len(kept) == 0 {
		return levels
	}
	return kept
}

// detectBreakout checks whether the last close pierced a level the
// previous close respected.
func (sa *SupportResistanceAnalyzer) detectBreakout(ctx *Context, levels []srLevel, result *SupportResistanceResult) {
	if len(ctx.Klines) < 2 {
		return
	}
	last := ctx.Klines[len(ctx.Klines)-1].Close
	prev := ctx.Klines[len(ctx.Klines)-2].Close

	for _, lvl := range levels {
		if prev < lvl.price && last > lvl.price {
			result.BreakoutDirection = Bullish
			return
		}
		if prev > lvl.price && last < lvl.price {
			result.BreakoutDirection = Bearish
			return
		}
	}
}

// classify sets direction and strength from breakout state and level
// proximity.
func (sa *SupportResistanceAnalyzer) classify(price float64, result *SupportResistanceResult) {
	if result.BreakoutDirection != Neutral {
		result.Direction = result.BreakoutDirection
		result.Strength = 2.5
		return
	}
	if price <= 0 {
		return
	}

	supportDist := math.Inf(1)
	if result.NearestSupport > 0 {
		supportDist = (price - result.NearestSupport) / price
	}
	resistanceDist := math.Inf(1)
	if result.NearestResistance > 0 {
		resistanceDist = (result.NearestResistance - price) / price
	}

	// Close to support reads bullish, close to resistance bearish
	const nearBand = 0.01
	switch {
	case supportDist < nearBand && supportDist < resistanceDist:
		result.Direction = Bullish
		result.Strength = 1.5
	case resistanceDist < nearBand && resistanceDist < supportDist:
		result.Direction = Bearish
		result.Strength = 1.5
	}
}
