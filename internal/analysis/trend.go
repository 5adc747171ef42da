package analysis

import (
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/market"
)

// TrendAnalyzer derives trend direction, strength and phase from swing
// structure and EMA separation.
type TrendAnalyzer struct {
	swingLookback int
}

// NewTrendAnalyzer creates a trend analyzer. The lookback controls swing
// point detection; 5 candles is the default window.
func NewTrendAnalyzer(swingLookback int) *TrendAnalyzer {
	if swingLookback <= 0 {
		swingLookback = 5
	}
	return &TrendAnalyzer{swingLookback: swingLookback}
}

// Kind returns KindTrend
func (ta *TrendAnalyzer) Kind() Kind { return KindTrend }

// Analyze writes the trend slot on the context
func (ta *TrendAnalyzer) Analyze(ctx *Context) error {
	if len(ctx.Klines) < ta.swingLookback*4 {
		return ctx.SetTrend(&TrendResult{
			ResultMeta: ResultMeta{Status: StatusInsufficientData, Direction: Neutral},
			Phase:      PhaseUndefined,
		})
	}

	highs := ta.findSwingHighs(ctx.Klines)
	lows := ta.findSwingLows(ctx.Klines)

	higherHighs := countRising(highs)
	higherLows := countRising(lows)
	lowerHighs := countFalling(highs)
	lowerLows := countFalling(lows)

	result := &TrendResult{
		ResultMeta:  ResultMeta{Status: StatusOK, Direction: Sideways},
		Phase:       PhaseUndefined,
		HigherHighs: higherHighs,
		LowerLows:   lowerLows,
	}

	bullStructure := higherHighs + higherLows
	bearStructure := lowerHighs + lowerLows

	switch {
	case bullStructure > bearStructure && bullStructure >= 2:
		result.Direction = Bullish
		result.Strength = strengthFromStructure(bullStructure, bearStructure)
	case bearStructure > bullStructure && bearStructure >= 2:
		result.Direction = Bearish
		result.Strength = strengthFromStructure(bearStructure, bullStructure)
	default:
		result.Direction = Sideways
		result.Strength = 0.5
	}

	result.Phase = ta.classifyPhase(ctx, result)
	return ctx.SetTrend(result)
}

// strengthFromStructure maps structure dominance onto a 0..3 scale
func strengthFromStructure(dominant, opposing int) float64 {
	total := dominant + opposing
	if total == 0 {
		return 0
	}
	ratio := float64(dominant) / float64(total)
	strength := ratio * 3.0
	if strength > 3.0 {
		strength = 3.0
	}
	return strength
}

// classifyPhase estimates the trend's lifecycle phase from how far price
// has traveled from the EMA50 and whether it is pulling back.
func (ta *TrendAnalyzer) classifyPhase(ctx *Context, r *TrendResult) TrendPhase {
	if r.Direction == Sideways || r.Direction == Neutral {
		return PhaseTransition
	}

	ema20 := market.CalculateEMA(ctx.Klines, 20)
	ema50 := market.CalculateEMA(ctx.Klines, 50)
	price := ctx.CurrentPrice()
	if ema50 == 0 || price == 0 {
		return PhaseUndefined
	}

	extension := (price - ema50) / ema50 * 100
	if r.Direction == Bearish {
		extension = -extension
	}

	// Price between EMAs against the trend reads as a pullback
	pullback := (r.Direction == Bullish && price < ema20 && price > ema50) ||
		(r.Direction == Bearish && price > ema20 && price < ema50)
	if pullback {
		return PhasePullback
	}

	switch {
	case extension < 0:
		return PhaseTransition
	case extension < 1.0:
		return PhaseEarly
	case extension < 3.0:
		return PhaseDeveloping
	case extension < 6.0:
		return PhaseMature
	default:
		return PhaseLate
	}
}

func (ta *TrendAnalyzer) findSwingHighs(klines []market.Kline) []float64 {
	var highs []float64
	for i := ta.swingLookback; i < len(klines)-ta.swingLookback; i++ {
		isSwing := true
		for j := i - ta.swingLookback; j <= i+ta.swingLookback; j++ {
			if j != i && klines[j].High >= klines[i].High {
				isSwing = false
				break
			}
		}
		if isSwing {
			highs = append(highs, klines[i].High)
		}
	}
	return highs
}

func (ta *TrendAnalyzer) findSwingLows(klines []market.Kline) []float64 {
	var lows []float64
	for i := ta.swingLookback; i < len(klines)-ta.swingLookback; i++ {
		isSwing := true
		for j := i - ta.swingLookback; j <= i+ta.swingLookback; j++ {
			if j != i && klines[j].Low <= klines[i].Low {
				isSwing = false
				break
			}
		}
		if isSwing {
			lows = append(lows, klines[i].Low)
		}
	}
	return lows
}

func countRising(points []float64) int {
	count := 0
	for i := 1; i < len(points); i++ {
		if points[i] > points[i-1] {
			count++
		}
	}
	return count
}

func countFalling(points []float64) int {
	count := 0
	for i := 1; i < len(points); i++ {
		if points[i] < points[i-1] {
			count++
		}
	}
	return count
}
