package market

import "math"

// IndicatorSet holds the indicator values derived from one candle series.
// It is computed once per context and read by the analyzers and the
// scoring pipeline.
type IndicatorSet struct {
	EMA20  float64 `json:"ema_20"`
	EMA50  float64 `json:"ema_50"`
	EMA200 float64 `json:"ema_200"`

	RSI14 float64 `json:"rsi_14"`

	MACDLine   float64 `json:"macd_line"`
	MACDSignal float64 `json:"macd_signal"`
	MACDHist   float64 `json:"macd_hist"`

	ATR14      float64 `json:"atr_14"`
	ATRPercent float64 `json:"atr_percent"` // ATR as % of last close

	BollUpper  float64 `json:"boll_upper"`
	BollMiddle float64 `json:"boll_middle"`
	BollLower  float64 `json:"boll_lower"`

	VolumeSMA20 float64 `json:"volume_sma_20"`
	VolumeRatio float64 `json:"volume_ratio"` // last volume / 20-candle average
}

// IndicatorCalculator computes an IndicatorSet from a candle series.
// External per the pipeline contract; DefaultIndicatorCalculator is the
// built-in implementation.
type IndicatorCalculator interface {
	Calculate(klines []Kline) (*IndicatorSet, error)
}

// DefaultIndicatorCalculator computes standard indicators from candles
type DefaultIndicatorCalculator struct{}

// NewIndicatorCalculator creates the default indicator calculator
func NewIndicatorCalculator() *DefaultIndicatorCalculator {
	return &DefaultIndicatorCalculator{}
}

// MinCandles is the minimum series length for a full indicator set
const MinCandles = 50

// Calculate computes all indicator values for the series
func (c *DefaultIndicatorCalculator) Calculate(klines []Kline) (*IndicatorSet, error) {
	if len(klines) < MinCandles {
		return nil, ErrInsufficientData
	}

	set := &IndicatorSet{
		EMA20:       CalculateEMA(klines, 20),
		EMA50:       CalculateEMA(klines, 50),
		RSI14:       CalculateRSI(klines, 14),
		ATR14:       CalculateATR(klines, 14),
		VolumeSMA20: CalculateVolumeSMA(klines, 20),
	}

	if len(klines) >= 200 {
		set.EMA200 = CalculateEMA(klines, 200)
	}

	set.MACDLine, set.MACDSignal, set.MACDHist = CalculateMACD(klines, 12, 26, 9)
	set.BollUpper, set.BollMiddle, set.BollLower = CalculateBollingerBands(klines, 20, 2.0)

	lastClose := LastClose(klines)
	if lastClose > 0 {
		set.ATRPercent = set.ATR14 / lastClose * 100
	}
	if set.VolumeSMA20 > 0 {
		set.VolumeRatio = klines[len(klines)-1].Volume / set.VolumeSMA20
	}

	return set, nil
}

// CalculateSMA calculates Simple Moving Average of closes
func CalculateSMA(klines []Kline, period int) float64 {
	if len(klines) < period || period <= 0 {
		return 0
	}
	sum := 0.0
	for i := len(klines) - period; i < len(klines); i++ {
		sum += klines[i].Close
	}
	return sum / float64(period)
}

// CalculateEMA calculates Exponential Moving Average of closes
func CalculateEMA(klines []Kline, period int) float64 {
	if len(klines) < period || period <= 0 {
		return 0
	}

	// Seed with the SMA of the first window
	ema := CalculateSMA(klines[:period], period)
	multiplier := 2.0 / float64(period+1)

	for i := period; i < len(klines); i++ {
		ema = klines[i].Close*multiplier + ema*(1-multiplier)
	}
	return ema
}

// CalculateRSI calculates the Relative Strength Index
func CalculateRSI(klines []Kline, period int) float64 {
	if len(klines) < period+1 {
		return 50.0 // neutral
	}

	gains := 0.0
	losses := 0.0
	for i := len(klines) - period; i < len(klines); i++ {
		change := klines[i].Close - klines[i-1].Close
		if change > 0 {
			gains += change
		} else {
			losses += -change
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)
	if avgLoss == 0 {
		return 100.0
	}

	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// CalculateMACD calculates MACD line, signal line and histogram
func CalculateMACD(klines []Kline, fast, slow, signal int) (line, signalLine, hist float64) {
	if len(klines) < slow+signal {
		return 0, 0, 0
	}

	// MACD series over the last `signal` candles to derive the signal EMA
	macdSeries := make([]float64, 0, signal)
	for i := signal - 1; i >= 0; i-- {
		end := len(klines) - i
		fastEMA := CalculateEMA(klines[:end], fast)
		slowEMA := CalculateEMA(klines[:end], slow)
		macdSeries = append(macdSeries, fastEMA-slowEMA)
	}

	line = macdSeries[len(macdSeries)-1]

	sum := 0.0
	for _, v := range macdSeries {
		sum += v
	}
	signalEMA := sum / float64(len(macdSeries))
	multiplier := 2.0 / float64(signal+1)
	for _, v := range macdSeries {
		signalEMA = v*multiplier + signalEMA*(1-multiplier)
	}

	signalLine = signalEMA
	hist = line - signalLine
	return line, signalLine, hist
}

// CalculateATR calculates the Average True Range
func CalculateATR(klines []Kline, period int) float64 {
	if len(klines) < period+1 {
		return 0
	}

	sum := 0.0
	for i := len(klines) - period; i < len(klines); i++ {
		highLow := klines[i].High - klines[i].Low
		highClose := math.Abs(klines[i].High - klines[i-1].Close)
		lowClose := math.Abs(klines[i].Low - klines[i-1].Close)
		tr := math.Max(highLow, math.Max(highClose, lowClose))
		sum += tr
	}
	return sum / float64(period)
}

// CalculateBollingerBands calculates upper, middle and lower bands
func CalculateBollingerBands(klines []Kline, period int, stdDevs float64) (upper, middle, lower float64) {
	if len(klines) < period {
		return 0, 0, 0
	}

	middle = CalculateSMA(klines, period)

	variance := 0.0
	for i := len(klines) - period; i < len(klines); i++ {
		diff := klines[i].Close - middle
		variance += diff * diff
	}
	stdDev := math.Sqrt(variance / float64(period))

	upper = middle + stdDevs*stdDev
	lower = middle - stdDevs*stdDev
	return upper, middle, lower
}

// CalculateVolumeSMA calculates the simple moving average of volume
func CalculateVolumeSMA(klines []Kline, period int) float64 {
	if len(klines) < period || period <= 0 {
		return 0
	}
	sum := 0.0
	for i := len(klines) - period; i < len(klines); i++ {
		sum += klines[i].Volume
	}
	return sum / float64(period)
}
