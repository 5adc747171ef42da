// Package signal defines the value objects the decision pipeline passes
// between its stages: trade direction, the composite score, confidence
// metrics and the terminal SignalInfo artifact.
package signal

import (
	"time"

	"github.com/google/uuid"

	"github.com/traderboter/Back-to-OLD-method-sub000/internal/analysis"
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/market"
)

// Direction is the trade direction of a candidate signal
type Direction string

const (
	Long    Direction = "LONG"
	Short   Direction = "SHORT"
	Neutral Direction = "NEUTRAL"
)

// IsDirectional reports whether the direction is LONG or SHORT
func (d Direction) IsDirectional() bool {
	return d == Long || d == Short
}

// Matches reports whether an analyzer opinion agrees with the trade
// direction.
func (d Direction) Matches(a analysis.Direction) bool {
	switch d {
	case Long:
		return a == analysis.Bullish
	case Short:
		return a == analysis.Bearish
	default:
		return false
	}
}

// Opposes reports whether an analyzer opinion contradicts the trade
// direction.
func (d Direction) Opposes(a analysis.Direction) bool {
	switch d {
	case Long:
		return a == analysis.Bearish
	case Short:
		return a == analysis.Bullish
	default:
		return false
	}
}

// Strength classifies composite score magnitude
type Strength string

const (
	StrengthWeak   Strength = "weak"
	StrengthMedium Strength = "medium"
	StrengthStrong Strength = "strong"
)

// BaseScores holds one 0..100 alignment score per analyzer kind
type BaseScores struct {
	Trend             float64 `json:"trend"`
	Momentum          float64 `json:"momentum"`
	Volume            float64 `json:"volume"`
	Patterns          float64 `json:"patterns"`
	SupportResistance float64 `json:"support_resistance"`
	Volatility        float64 `json:"volatility"`
	Harmonic          float64 `json:"harmonic"`
	Channel           float64 `json:"channel"`
	Cyclical          float64 `json:"cyclical"`
	HTF               float64 `json:"htf"`
}

// Multipliers holds the 13 named adjustment factors, each independently
// bounded by the scorer.
type Multipliers struct {
	Timeframe          float64 `json:"timeframe"`           // 0.7..1.2
	TrendAlignment     float64 `json:"trend_alignment"`     // 0.8..1.2
	VolumeConfirmation float64 `json:"volume_confirmation"` // 1.0 or 1.1
	PatternQuality     float64 `json:"pattern_quality"`     // 1.0..1.5
	SymbolPerformance  float64 `json:"symbol_performance"`  // adaptive input, default 1.0
	CorrelationSafety  float64 `json:"correlation_safety"`  // adaptive input, default 1.0
	MACDAlignment      float64 `json:"macd_alignment"`      // 0.85 / 1.0 / 1.2
	HTFStructure       float64 `json:"htf_structure"`       // 0.8..1.2
	Volatility         float64 `json:"volatility"`          // analyzer risk multiplier
	Harmonic           float64 `json:"harmonic"`            // 1.0..1.2
	Channel            float64 `json:"channel"`             // 1.0..1.2
	Cyclical           float64 `json:"cyclical"`            // 1.0..1.2
	SupportResistance  float64 `json:"support_resistance"`  // 0.9..1.1
}

// Product returns the product of the first n multipliers in declaration
// order; the old scoring method uses the first 8, the new method all 13.
func (m Multipliers) Product(n int) float64 {
	factors := []float64{
		m.Timeframe, m.TrendAlignment, m.VolumeConfirmation, m.PatternQuality,
		m.SymbolPerformance, m.CorrelationSafety, m.MACDAlignment, m.HTFStructure,
		m.Volatility, m.Harmonic, m.Channel, m.Cyclical, m.SupportResistance,
	}
	if n > len(factors) {
		n = len(factors)
	}
	product := 1.0
	for _, f := range factors[:n] {
		if f > 0 {
			product *= f
		}
	}
	return product
}

// Score is the composite scoring result for one direction on one context
type Score struct {
	Direction        Direction   `json:"direction"`
	Raw              BaseScores  `json:"raw"`
	Weighted         BaseScores  `json:"weighted"`
	BaseScore        float64     `json:"base_score"`
	ConfluenceBonus  float64     `json:"confluence_bonus"` // 0..0.5
	Multipliers      Multipliers `json:"multipliers"`
	FinalScore       float64     `json:"final_score"`
	Strength         Strength    `json:"strength"`
	Confidence       float64     `json:"confidence"` // 0..1
	AlignedAnalyzers int         `json:"aligned_analyzers"`
}

// ConfidenceGrade is the three-level confidence classification
type ConfidenceGrade string

const (
	GradeHigh   ConfidenceGrade = "HIGH"
	GradeMedium ConfidenceGrade = "MEDIUM"
	GradeLow    ConfidenceGrade = "LOW"
)

// ConfidenceMetrics quantifies the uncertainty of a multi-timeframe
// aggregate. Derived value object, never mutated after construction.
type ConfidenceMetrics struct {
	TimeframeConsensus float64         `json:"timeframe_consensus"`
	ScoreQuality       float64         `json:"score_quality"`
	DirectionClarity   float64         `json:"direction_clarity"`
	HTFAlignment       float64         `json:"htf_alignment"`
	VolumeConfirmation float64         `json:"volume_confirmation"`
	OverallConfidence  float64         `json:"overall_confidence"`
	Grade              ConfidenceGrade `json:"grade"`
	IsUncertain        bool            `json:"is_uncertain"`
	RequiresReview     bool            `json:"requires_review"`
}

// TimeframeSignal is one timeframe's contribution to an aggregation call
type TimeframeSignal struct {
	Timeframe       market.Timeframe
	Direction       Direction
	Score           *Score
	Context         *analysis.Context
	VolumeConfirmed bool
	HTFAligned      bool
}

// CheckResult records one validation gate outcome on the audit trail
type CheckResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Reason string `json:"reason,omitempty"`
}

// Info is the terminal artifact of the pipeline. Once validated it is
// immutable and is the unit handed to trade execution.
type Info struct {
	ID        string           `json:"id"`
	Symbol    string           `json:"symbol"`
	Timeframe market.Timeframe `json:"timeframe"`
	Direction Direction        `json:"direction"`

	EntryPrice      float64 `json:"entry_price"`
	StopLoss        float64 `json:"stop_loss"`
	TakeProfit      float64 `json:"take_profit"`
	RiskReward      float64 `json:"risk_reward"`
	StopLossMethod  string  `json:"stop_loss_method"`

	Score      *Score             `json:"score"`
	Confidence *ConfidenceMetrics `json:"confidence,omitempty"`

	KeyFactors []string      `json:"key_factors,omitempty"`
	Checks     []CheckResult `json:"checks,omitempty"`
	Valid      bool          `json:"valid"`

	// Audit carries per-timeframe snapshots and score breakdowns for
	// later inspection.
	Audit map[string]interface{} `json:"audit,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// NewInfo creates a signal with a fresh ID and timestamp
func NewInfo(symbol string, tf market.Timeframe, dir Direction) *Info {
	return &Info{
		ID:        uuid.New().String(),
		Symbol:    symbol,
		Timeframe: tf,
		Direction: dir,
		CreatedAt: time.Now().UTC(),
	}
}

// AddFactor appends one key-factor log line
func (s *Info) AddFactor(factor string) {
	s.KeyFactors = append(s.KeyFactors, factor)
}

// RecordCheck appends one validation check to the audit trail
func (s *Info) RecordCheck(name string, passed bool, reason string) {
	s.Checks = append(s.Checks, CheckResult{Name: name, Passed: passed, Reason: reason})
}

// PositionRiskPercent returns the stop distance as a percentage of entry
func (s *Info) PositionRiskPercent() float64 {
	if s.EntryPrice <= 0 {
		return 0
	}
	risk := s.EntryPrice - s.StopLoss
	if s.Direction == Short {
		risk = s.StopLoss - s.EntryPrice
	}
	if risk < 0 {
		risk = -risk
	}
	return risk / s.EntryPrice * 100
}
