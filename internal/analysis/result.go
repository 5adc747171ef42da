// Package analysis defines the per-symbol/timeframe analysis context and
// the typed result contract every analyzer writes into it. Each analyzer
// kind owns exactly one declared slot on the context; downstream scoring
// reads the typed results and never re-derives analyzer internals.
package analysis

// Status tags the outcome of one analyzer run
type Status string

const (
	StatusOK               Status = "ok"
	StatusInsufficientData Status = "insufficient_data"
	StatusError            Status = "error"
)

// Direction is an analyzer's directional opinion
type Direction string

const (
	Bullish  Direction = "bullish"
	Bearish  Direction = "bearish"
	Neutral  Direction = "neutral"
	Sideways Direction = "sideways"
)

// TrendPhase classifies where a trend sits in its lifecycle
type TrendPhase string

const (
	PhaseEarly      TrendPhase = "early"
	PhaseDeveloping TrendPhase = "developing"
	PhaseMature     TrendPhase = "mature"
	PhaseLate       TrendPhase = "late"
	PhasePullback   TrendPhase = "pullback"
	PhaseTransition TrendPhase = "transition"
	PhaseUndefined  TrendPhase = "undefined"
)

// MACDMarketType classifies MACD/price geometry into market types. The
// letter scheme is inherited from the old scoring system and kept as-is.
type MACDMarketType string

const (
	MACDTypeA MACDMarketType = "A" // strong aligned momentum
	MACDTypeB MACDMarketType = "B" // aligned, weakening
	MACDTypeC MACDMarketType = "C" // fresh crossover
	MACDTypeD MACDMarketType = "D" // flat
	MACDTypeX MACDMarketType = "X" // conflicting
)

// ResultMeta is embedded in every analyzer result
type ResultMeta struct {
	Status    Status    `json:"status"`
	Direction Direction `json:"direction"`
	Strength  float64   `json:"strength"` // 0..3 scale
	Err       string    `json:"error,omitempty"`
}

// OK reports whether the analyzer produced a usable result
func (m ResultMeta) OK() bool {
	return m.Status == StatusOK
}

// TrendResult is the trend analyzer output
type TrendResult struct {
	ResultMeta
	Phase       TrendPhase `json:"phase"`
	HigherHighs int        `json:"higher_highs"`
	LowerLows   int        `json:"lower_lows"`
}

// MomentumResult is the momentum analyzer output
type MomentumResult struct {
	ResultMeta
	RSI           float64        `json:"rsi"`
	MACDDirection Direction      `json:"macd_direction"`
	MACDType      MACDMarketType `json:"macd_type"`
}

// VolumeResult is the volume analyzer output
type VolumeResult struct {
	ResultMeta
	Confirmed   bool    `json:"confirmed"`
	VolumeRatio float64 `json:"volume_ratio"`
}

// DetectedPattern is one chart pattern found by the pattern analyzer
type DetectedPattern struct {
	Name       string    `json:"name"`
	Direction  Direction `json:"direction"`
	Confidence float64   `json:"confidence"` // 0..1
}

// PatternsResult is the pattern analyzer output
type PatternsResult struct {
	ResultMeta
	Patterns []DetectedPattern `json:"patterns"`
}

// SupportResistanceResult is the support/resistance analyzer output
type SupportResistanceResult struct {
	ResultMeta
	NearestSupport    float64   `json:"nearest_support"`
	NearestResistance float64   `json:"nearest_resistance"`
	BreakoutDirection Direction `json:"breakout_direction"`
}

// VolatilityResult is the volatility analyzer output
type VolatilityResult struct {
	ResultMeta
	ATRValue       float64 `json:"atr_value"`
	RiskMultiplier float64 `json:"risk_multiplier"` // scales position risk, ~0.5..1.2
	Percentile     float64 `json:"percentile"`      // 0..100 volatility rank
}

// HarmonicPatternType names a 5-point harmonic structure
type HarmonicPatternType string

const (
	HarmonicGartley   HarmonicPatternType = "gartley"
	HarmonicBat       HarmonicPatternType = "bat"
	HarmonicButterfly HarmonicPatternType = "butterfly"
	HarmonicCrab      HarmonicPatternType = "crab"
)

// HarmonicPattern is one detected X-A-B-C-D structure
type HarmonicPattern struct {
	Type       HarmonicPatternType `json:"type"`
	Direction  Direction           `json:"direction"`
	PointX     float64             `json:"point_x"`
	PointD     float64             `json:"point_d"`
	Confidence float64             `json:"confidence"`
}

// Extended reports whether the pattern type projects targets beyond X
func (p HarmonicPattern) Extended() bool {
	return p.Type == HarmonicButterfly || p.Type == HarmonicCrab
}

// HarmonicResult is the harmonic analyzer output
type HarmonicResult struct {
	ResultMeta
	Patterns []HarmonicPattern `json:"patterns"`
}

// ChannelType classifies a detected price channel
type ChannelType string

const (
	ChannelAscending  ChannelType = "ascending"
	ChannelDescending ChannelType = "descending"
	ChannelHorizontal ChannelType = "horizontal"
)

// ChannelResult is the price channel analyzer output
type ChannelResult struct {
	ResultMeta
	Type       ChannelType `json:"channel_type"`
	UpperBound float64     `json:"upper_bound"`
	LowerBound float64     `json:"lower_bound"`
}

// CyclicalResult is the cycle analyzer output
type CyclicalResult struct {
	ResultMeta
	ForecastStrength float64 `json:"forecast_strength"` // 0..1
}

// HTFResult is the higher-timeframe structure analyzer output
type HTFResult struct {
	ResultMeta
	Aligned   bool    `json:"aligned"`
	Timeframe string  `json:"timeframe"`
	Structure float64 `json:"structure"` // 0..1 structural quality
}
