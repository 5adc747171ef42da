package market

import "math"

// Regime classifies overall market conditions for a series
type Regime string

const (
	RegimeTrendingUp   Regime = "trending_up"
	RegimeTrendingDown Regime = "trending_down"
	RegimeRanging      Regime = "ranging"
	RegimeVolatile     Regime = "volatile"
	RegimeExtreme      Regime = "extreme"
)

// RegimeInfo is the regime detector output stored on the analysis context
type RegimeInfo struct {
	Regime               Regime  `json:"regime"`
	Confidence           float64 `json:"confidence"`            // 0..1
	VolatilityPercentile float64 `json:"volatility_percentile"` // 0..100, current ATR% vs history
	ATRPercent           float64 `json:"atr_percent"`
}

// RegimeDetector classifies the market regime of a candle series
type RegimeDetector interface {
	DetectRegime(klines []Kline) (*RegimeInfo, error)
}

// DefaultRegimeDetector classifies regimes from EMA slope and realized
// volatility rank.
type DefaultRegimeDetector struct {
	lookback int // candles of ATR% history for the percentile rank
}

// NewRegimeDetector creates the default regime detector
func NewRegimeDetector() *DefaultRegimeDetector {
	return &DefaultRegimeDetector{lookback: 100}
}

// DetectRegime classifies the series into one of the five regimes
func (d *DefaultRegimeDetector) DetectRegime(klines []Kline) (*RegimeInfo, error) {
	if len(klines) < MinCandles {
		return nil, ErrInsufficientData
	}

	atr := CalculateATR(klines, 14)
	lastClose := LastClose(klines)
	atrPercent := 0.0
	if lastClose > 0 {
		atrPercent = atr / lastClose * 100
	}

	percentile := d.volatilityPercentile(klines, atrPercent)

	info := &RegimeInfo{
		VolatilityPercentile: percentile,
		ATRPercent:           atrPercent,
	}

	// Extreme volatility overrides directional classification
	if percentile >= 95 {
		info.Regime = RegimeExtreme
		info.Confidence = clamp01(percentile / 100)
		return info, nil
	}
	if percentile >= 80 {
		info.Regime = RegimeVolatile
		info.Confidence = clamp01(percentile / 100)
		return info, nil
	}

	ema20 := CalculateEMA(klines, 20)
	ema50 := CalculateEMA(klines, 50)
	if ema50 == 0 {
		info.Regime = RegimeRanging
		info.Confidence = 0.3
		return info, nil
	}

	separation := (ema20 - ema50) / ema50 * 100
	switch {
	case separation > 0.5:
		info.Regime = RegimeTrendingUp
		info.Confidence = clamp01(math.Abs(separation) / 2)
	case separation < -0.5:
		info.Regime = RegimeTrendingDown
		info.Confidence = clamp01(math.Abs(separation) / 2)
	default:
		info.Regime = RegimeRanging
		info.Confidence = clamp01(1 - math.Abs(separation))
	}
	return info, nil
}

// volatilityPercentile ranks the current ATR% against a rolling history of
// single-candle range percentages.
func (d *DefaultRegimeDetector) volatilityPercentile(klines []Kline, current float64) float64 {
	start := len(klines) - d.lookback
	if start < 1 {
		start = 1
	}

	below := 0
	total := 0
	for i := start; i < len(klines); i++ {
		if klines[i].Close <= 0 {
			continue
		}
		rangePct := klines[i].Range() / klines[i].Close * 100
		if rangePct <= current {
			below++
		}
		total++
	}
	if total == 0 {
		return 50
	}
	return float64(below) / float64(total) * 100
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
