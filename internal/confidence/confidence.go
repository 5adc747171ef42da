// Package confidence quantifies the uncertainty of a multi-timeframe
// aggregate through five weighted sub-metrics, an overall score and a
// three-level grade.
package confidence

import (
	"math"

	"github.com/traderboter/Back-to-OLD-method-sub000/internal/market"
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/signal"
)

// Weights holds the sub-metric weights; they should sum to 1.0
type Weights struct {
	Consensus        float64 `json:"consensus"`
	ScoreQuality     float64 `json:"score_quality"`
	DirectionClarity float64 `json:"direction_clarity"`
	HTFAlignment     float64 `json:"htf_alignment"`
	Volume           float64 `json:"volume"`
}

// Config holds confidence calculator configuration
type Config struct {
	HighThreshold   float64 `json:"high_threshold"`
	MediumThreshold float64 `json:"medium_threshold"`
	// BalancedMargin is the relative bullish/bearish score gap below
	// which the direction decision counts as uncertain.
	BalancedMargin float64 `json:"balanced_margin"`
	Weights        Weights `json:"weights"`
	// TimeframeWeights bias the HTF alignment metric toward higher
	// intervals.
	TimeframeWeights map[market.Timeframe]float64 `json:"timeframe_weights"`
}

// DefaultConfig returns the default confidence configuration
func DefaultConfig() *Config {
	return &Config{
		HighThreshold:   0.90,
		MediumThreshold: 0.70,
		BalancedMargin:  0.05,
		Weights: Weights{
			Consensus:        0.35,
			ScoreQuality:     0.25,
			DirectionClarity: 0.20,
			HTFAlignment:     0.15,
			Volume:           0.05,
		},
		TimeframeWeights: map[market.Timeframe]float64{
			market.TF5m:  0.5,
			market.TF15m: 1.0,
			market.TF1h:  1.5,
			market.TF4h:  2.0,
		},
	}
}

// Calculator computes confidence metrics. Pure, no side effects.
type Calculator struct {
	cfg *Config
}

// NewCalculator creates a confidence calculator
func NewCalculator(cfg *Config) *Calculator {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Calculator{cfg: cfg}
}

// Calculate derives ConfidenceMetrics for the aggregate decision
func (c *Calculator) Calculate(
	perTF []*signal.TimeframeSignal,
	finalDir signal.Direction,
	bullishScore, bearishScore float64,
) *signal.ConfidenceMetrics {
	m := &signal.ConfidenceMetrics{
		TimeframeConsensus: c.consensus(perTF, finalDir),
		ScoreQuality:       c.scoreQuality(perTF),
		DirectionClarity:   directionClarity(bullishScore, bearishScore),
		HTFAlignment:       c.htfAlignment(perTF, finalDir),
		VolumeConfirmation: volumeConfirmation(perTF),
	}

	w := c.cfg.Weights
	m.OverallConfidence = clamp01(
		m.TimeframeConsensus*w.Consensus +
			m.ScoreQuality*w.ScoreQuality +
			m.DirectionClarity*w.DirectionClarity +
			m.HTFAlignment*w.HTFAlignment +
			m.VolumeConfirmation*w.Volume)

	// Threshold boundaries are inclusive
	switch {
	case m.OverallConfidence >= c.cfg.HighThreshold:
		m.Grade = signal.GradeHigh
	case m.OverallConfidence >= c.cfg.MediumThreshold:
		m.Grade = signal.GradeMedium
	default:
		m.Grade = signal.GradeLow
	}

	m.IsUncertain = c.isUncertain(m.TimeframeConsensus, bullishScore, bearishScore)
	m.RequiresReview = m.IsUncertain ||
		m.OverallConfidence < c.cfg.MediumThreshold ||
		!finalDir.IsDirectional()

	return m
}

// consensus is the fraction of timeframes agreeing with the final
// direction; zero when the decision is neutral.
func (c *Calculator) consensus(perTF []*signal.TimeframeSignal, finalDir signal.Direction) float64 {
	if !finalDir.IsDirectional() || len(perTF) == 0 {
		return 0
	}
	agreeing := 0
	for _, tf := range perTF {
		if tf.Direction == finalDir {
			agreeing++
		}
	}
	return float64(agreeing) / float64(len(perTF))
}

// scoreQuality is the mean normalized per-timeframe score
func (c *Calculator) scoreQuality(perTF []*signal.TimeframeSignal) float64 {
	if len(perTF) == 0 {
		return 0
	}
	sum := 0.0
	for _, tf := range perTF {
		if tf.Score != nil {
			sum += clamp01(tf.Score.FinalScore / 100)
		}
	}
	return sum / float64(len(perTF))
}

// directionClarity measures how decisively one side outweighs the other
func directionClarity(bullish, bearish float64) float64 {
	total := bullish + bearish
	if total <= 0 {
		return 0
	}
	return math.Min(1, 2*math.Abs(bullish-bearish)/total)
}

// htfAlignment is direction agreement weighted toward higher timeframes
func (c *Calculator) htfAlignment(perTF []*signal.TimeframeSignal, finalDir signal.Direction) float64 {
	if !finalDir.IsDirectional() {
		return 0
	}
	totalWeight := 0.0
	agreeWeight := 0.0
	for _, tf := range perTF {
		w, ok := c.cfg.TimeframeWeights[tf.Timeframe]
		if !ok {
			w = 1.0
		}
		totalWeight += w
		if tf.Direction == finalDir {
			agreeWeight += w
		}
	}
	if totalWeight <= 0 {
		return 0
	}
	return agreeWeight / totalWeight
}

// volumeConfirmation is the fraction of timeframes with confirmed volume
func volumeConfirmation(perTF []*signal.TimeframeSignal) float64 {
	if len(perTF) == 0 {
		return 0
	}
	confirmed := 0
	for _, tf := range perTF {
		if tf.VolumeConfirmed {
			confirmed++
		}
	}
	return float64(confirmed) / float64(len(perTF))
}

// isUncertain flags balanced bullish/bearish scores or weak consensus
func (c *Calculator) isUncertain(consensus, bullish, bearish float64) bool {
	if consensus < 0.5 {
		return true
	}
	larger := math.Max(bullish, bearish)
	if larger <= 0 {
		return true
	}
	return math.Abs(bullish-bearish)/larger <= c.cfg.BalancedMargin
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
