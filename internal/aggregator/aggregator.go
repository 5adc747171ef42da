// Package aggregator combines per-timeframe signals into one decision:
// direction by weighted bullish/bearish accumulation, a consensus gate,
// alignment/volume/HTF/volatility adjustment factors, confidence metrics
// and risk levels from the highest-weighted timeframe.
package aggregator

import (
	"errors"
	"fmt"
	"math"

	"github.com/traderboter/Back-to-OLD-method-sub000/internal/analysis"
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/confidence"
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/logging"
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/market"
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/risk"
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/signal"
)

// Rejection reasons. A nil signal with one of these errors is an expected
// business outcome, not a failure.
var (
	ErrNotEnoughTimeframes = errors.New("not enough timeframe signals")
	ErrNeutralDirection    = errors.New("no dominant direction")
	ErrConsensusTooLow     = errors.New("timeframe consensus below threshold")
	ErrRiskRewardTooLow    = errors.New("aggregate risk/reward below minimum")
	ErrNoEntryPrice        = errors.New("no entry price available")
)

// Config holds aggregation configuration. The phase and MACD market-type
// multipliers are inherited from the old scoring system; they are kept as
// configurable defaults rather than re-derived.
type Config struct {
	Weights            map[market.Timeframe]float64 `json:"weights"`
	DirectionMargin    float64                      `json:"direction_margin"`
	MinTimeframes      int                          `json:"min_timeframes"`
	ConsensusThreshold float64                      `json:"consensus_threshold"`
	MinRiskReward      float64                      `json:"min_risk_reward_ratio"`

	PhaseMultipliers map[analysis.TrendPhase]float64     `json:"phase_multipliers"`
	MACDMultipliers  map[analysis.MACDMarketType]float64 `json:"macd_multipliers"`
}

// DefaultConfig returns the default aggregation configuration
func DefaultConfig() *Config {
	return &Config{
		Weights: map[market.Timeframe]float64{
			market.TF5m:  0.5,
			market.TF15m: 1.0,
			market.TF1h:  1.5,
			market.TF4h:  2.0,
		},
		DirectionMargin:    1.3,
		MinTimeframes:      2,
		ConsensusThreshold: 0.75,
		MinRiskReward:      1.5,
		PhaseMultipliers: map[analysis.TrendPhase]float64{
			analysis.PhaseEarly:      1.2,
			analysis.PhaseDeveloping: 1.1,
			analysis.PhaseMature:     0.9,
			analysis.PhaseLate:       0.7,
			analysis.PhasePullback:   1.1,
			analysis.PhaseTransition: 0.8,
			analysis.PhaseUndefined:  1.0,
		},
		MACDMultipliers: map[analysis.MACDMarketType]float64{
			analysis.MACDTypeA: 1.2,
			analysis.MACDTypeB: 1.0,
			analysis.MACDTypeC: 1.2,
			analysis.MACDTypeD: 1.0,
			analysis.MACDTypeX: 0.8,
		},
	}
}

func (c *Config) tfWeight(tf market.Timeframe) float64 {
	if w, ok := c.Weights[tf]; ok {
		return w
	}
	return 1.0
}

func (c *Config) phaseMultiplier(p analysis.TrendPhase) float64 {
	if m, ok := c.PhaseMultipliers[p]; ok {
		return m
	}
	return 1.0
}

func (c *Config) macdMultiplier(t analysis.MACDMarketType) float64 {
	if m, ok := c.MACDMultipliers[t]; ok {
		return m
	}
	return 1.0
}

// Factors are the aggregate adjustment factors, kept for the audit trail
type Factors struct {
	BullishScore float64 `json:"bullish_score"`
	BearishScore float64 `json:"bearish_score"`
	Alignment    float64 `json:"alignment"`  // 0.7..1.3
	Volume       float64 `json:"volume"`     // 0..1
	HTF          float64 `json:"htf"`        // 0.8..1.5
	Volatility   float64 `json:"volatility"` // 0.5..1.0
}

// Aggregator combines per-timeframe signals into one SignalInfo
type Aggregator struct {
	cfg        *Config
	confidence *confidence.Calculator
	risk       *risk.Calculator
	logger     *logging.Logger
}

// New creates a multi-timeframe aggregator
func New(cfg *Config, conf *confidence.Calculator, riskCalc *risk.Calculator, logger *logging.Logger) *Aggregator {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Aggregator{
		cfg:        cfg,
		confidence: conf,
		risk:       riskCalc,
		logger:     logger.WithComponent("aggregator"),
	}
}

// Aggregate runs the full multi-timeframe decision. A nil signal with a
// sentinel error is a rejection; callers treat it as "no trade", not a
// fault.
func (a *Aggregator) Aggregate(symbol string, perTF []*signal.TimeframeSignal) (*signal.Info, error) {
	if len(perTF) < a.cfg.MinTimeframes {
		return nil, fmt.Errorf("%w: have %d, need %d",
			ErrNotEnoughTimeframes, len(perTF), a.cfg.MinTimeframes)
	}

	bullish, bearish := a.accumulateScores(perTF)

	dir := a.decideDirection(bullish, bearish)
	if !dir.IsDirectional() {
		return nil, fmt.Errorf("%w: bullish=%.2f bearish=%.2f", ErrNeutralDirection, bullish, bearish)
	}

	consensus := directionConsensus(perTF, dir)
	if consensus < a.cfg.ConsensusThreshold {
		return nil, fmt.Errorf("%w: %.2f < %.2f", ErrConsensusTooLow, consensus, a.cfg.ConsensusThreshold)
	}

	factors := Factors{
		BullishScore: bullish,
		BearishScore: bearish,
		Alignment:    a.alignmentFactor(perTF, dir),
		Volume:       a.volumeFactor(perTF),
		HTF:          a.htfFactor(perTF, dir),
		Volatility:   a.volatilityFactor(perTF),
	}

	conf := a.confidence.Calculate(perTF, dir, bullish, bearish)

	anchor := a.highestWeighted(perTF)
	entry := anchor.Context.CurrentPrice()
	if entry <= 0 {
		return nil, ErrNoEntryPrice
	}

	levels := a.risk.CalculateLevels(dir, entry, anchor.Context)
	if levels.RiskReward < a.cfg.MinRiskReward {
		return nil, fmt.Errorf("%w: %.2f < %.2f",
			ErrRiskRewardTooLow, levels.RiskReward, a.cfg.MinRiskReward)
	}

	info := signal.NewInfo(symbol, anchor.Timeframe, dir)
	info.EntryPrice = entry
	info.StopLoss = levels.StopLoss
	info.TakeProfit = levels.TakeProfit
	info.RiskReward = levels.RiskReward
	info.StopLossMethod = string(levels.Method)
	info.Score = anchor.Score
	info.Confidence = conf
	info.Audit = a.buildAudit(perTF, factors, consensus)

	info.AddFactor(fmt.Sprintf("%d/%d timeframes agree %s (consensus %.0f%%)",
		agreeingCount(perTF, dir), len(perTF), dir, consensus*100))
	info.AddFactor(fmt.Sprintf("alignment %.2f, volume %.2f, htf %.2f, volatility %.2f",
		factors.Alignment, factors.Volume, factors.HTF, factors.Volatility))
	if conf.IsUncertain {
		info.AddFactor("flagged uncertain: balanced scores or weak consensus")
	}

	a.logger.Info("aggregated multi-timeframe signal",
		"symbol", symbol, "direction", dir, "consensus", consensus,
		"rr", levels.RiskReward, "confidence", conf.OverallConfidence)

	return info, nil
}

// accumulateScores walks every timeframe and adds weighted contributions
// to the bullish and bearish totals.
func (a *Aggregator) accumulateScores(perTF []*signal.TimeframeSignal) (bullish, bearish float64) {
	for _, ts := range perTF {
		w := a.cfg.tfWeight(ts.Timeframe)
		r := ts.Context.Results

		if t := r.Trend; t != nil && t.OK() {
			contribution := t.Strength * w * a.cfg.phaseMultiplier(t.Phase)
			addDirectional(&bullish, &bearish, t.Direction, contribution)
		}

		if m := r.Momentum; m != nil && m.OK() {
			contribution := m.Strength * w * a.cfg.macdMultiplier(m.MACDType)
			addDirectional(&bullish, &bearish, m.Direction, contribution)
		}

		if p := r.Patterns; p != nil && p.OK() {
			for _, pat := range p.Patterns {
				addDirectional(&bullish, &bearish, pat.Direction, pat.Confidence*w*0.5)
			}
		}

		if sr := r.SupportResistance; sr != nil && sr.OK() {
			addDirectional(&bullish, &bearish, sr.BreakoutDirection, w*0.3)
		}

		if cy := r.Cyclical; cy != nil && cy.OK() {
			addDirectional(&bullish, &bearish, cy.Direction, cy.ForecastStrength*w*0.2)
		}
	}
	return bullish, bearish
}

func addDirectional(bullish, bearish *float64, dir analysis.Direction, amount float64) {
	switch dir {
	case analysis.Bullish:
		*bullish += amount
	case analysis.Bearish:
		*bearish += amount
	}
}

// decideDirection requires one side to dominate by the configured margin
func (a *Aggregator) decideDirection(bullish, bearish float64) signal.Direction {
	switch {
	case bullish > bearish*a.cfg.DirectionMargin:
		return signal.Long
	case bearish > bullish*a.cfg.DirectionMargin:
		return signal.Short
	default:
		return signal.Neutral
	}
}

func directionConsensus(perTF []*signal.TimeframeSignal, dir signal.Direction) float64 {
	if len(perTF) == 0 {
		return 0
	}
	return float64(agreeingCount(perTF, dir)) / float64(len(perTF))
}

func agreeingCount(perTF []*signal.TimeframeSignal, dir signal.Direction) int {
	count := 0
	for _, ts := range perTF {
		if ts.Direction == dir {
			count++
		}
	}
	return count
}

// alignmentFactor measures trend/momentum/MACD agreement across all
// timeframes and scales it into 0.7..1.3.
func (a *Aggregator) alignmentFactor(perTF []*signal.TimeframeSignal, dir signal.Direction) float64 {
	const (
		trendWeight    = 0.5
		momentumWeight = 0.3
		macdWeight     = 0.2
	)

	total := 0.0
	agree := 0.0
	for _, ts := range perTF {
		r := ts.Context.Results

		total += trendWeight
		if t := r.Trend; t != nil && t.OK() && dir.Matches(t.Direction) {
			agree += trendWeight
		}

		total += momentumWeight
		if m := r.Momentum; m != nil && m.OK() && dir.Matches(m.Direction) {
			agree += momentumWeight
		}

		total += macdWeight
		if m := r.Momentum; m != nil && m.OK() && dir.Matches(m.MACDDirection) {
			agree += macdWeight
		}
	}
	if total <= 0 {
		return 1.0
	}
	return 0.7 + agree/total*0.6
}

// volumeFactor is the timeframe-weighted fraction of confirmed volume
func (a *Aggregator) volumeFactor(perTF []*signal.TimeframeSignal) float64 {
	total := 0.0
	confirmed := 0.0
	for _, ts := range perTF {
		w := a.cfg.tfWeight(ts.Timeframe)
		total += w
		if ts.VolumeConfirmed {
			confirmed += w
		}
	}
	if total <= 0 {
		return 0
	}
	return confirmed / total
}

// htfFactor scores agreement at the highest configured timeframe only
func (a *Aggregator) htfFactor(perTF []*signal.TimeframeSignal, dir signal.Direction) float64 {
	highest := a.highestWeighted(perTF)
	if highest == nil {
		return 1.0
	}

	switch {
	case highest.Direction == dir:
		strength := 0.0
		if t := highest.Context.Results.Trend; t != nil && t.OK() {
			strength = t.Strength / 3.0
		}
		return clamp(1.2+strength*0.3, 1.2, 1.5)
	case highest.Direction.IsDirectional():
		return 0.8
	default:
		return 1.0
	}
}

// volatilityFactor averages per-timeframe risk multipliers into 0.5..1.0
func (a *Aggregator) volatilityFactor(perTF []*signal.TimeframeSignal) float64 {
	sum := 0.0
	n := 0
	for _, ts := range perTF {
		if v := ts.Context.Results.Volatility; v != nil && v.OK() && v.RiskMultiplier > 0 {
			sum += v.RiskMultiplier
			n++
		}
	}
	if n == 0 {
		return 1.0
	}
	return clamp(sum/float64(n), 0.5, 1.0)
}

// highestWeighted returns the timeframe signal with the largest
// aggregation weight, breaking ties toward the higher interval.
func (a *Aggregator) highestWeighted(perTF []*signal.TimeframeSignal) *signal.TimeframeSignal {
	var best *signal.TimeframeSignal
	bestWeight := math.Inf(-1)
	for _, ts := range perTF {
		w := a.cfg.tfWeight(ts.Timeframe)
		if w > bestWeight || (w == bestWeight && best != nil && ts.Timeframe.Rank() > best.Timeframe.Rank()) {
			best = ts
			bestWeight = w
		}
	}
	return best
}

// buildAudit captures per-timeframe snapshots and the aggregate factor
// breakdown for later inspection.
func (a *Aggregator) buildAudit(perTF []*signal.TimeframeSignal, factors Factors, consensus float64) map[string]interface{} {
	timeframes := make(map[string]interface{}, len(perTF))
	for _, ts := range perTF {
		snapshot := map[string]interface{}{
			"direction":        ts.Direction,
			"volume_confirmed": ts.VolumeConfirmed,
			"htf_aligned":      ts.HTFAligned,
		}
		if ts.Score != nil {
			snapshot["final_score"] = ts.Score.FinalScore
			snapshot["base_score"] = ts.Score.BaseScore
			snapshot["confluence_bonus"] = ts.Score.ConfluenceBonus
		}
		if t := ts.Context.Results.Trend; t != nil {
			snapshot["trend_phase"] = t.Phase
			snapshot["trend_strength"] = t.Strength
		}
		if m := ts.Context.Results.Momentum; m != nil {
			snapshot["macd_type"] = m.MACDType
		}
		if ts.Context.Indicators != nil {
			snapshot["atr"] = ts.Context.Indicators.ATR14
			snapshot["rsi"] = ts.Context.Indicators.RSI14
		}
		timeframes[string(ts.Timeframe)] = snapshot
	}

	return map[string]interface{}{
		"timeframes": timeframes,
		"factors":    factors,
		"consensus":  consensus,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
