// Package scoring converts a populated analysis context plus a target
// direction into a bounded composite score: 10 weighted base scores, a
// confluence bonus and 13 multiplicative adjustment factors.
package scoring

import (
	"math"

	"github.com/traderboter/Back-to-OLD-method-sub000/internal/analysis"
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/logging"
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/signal"
)

// strengthPerPoint maps analyzer strength (0..3) onto the 0..100 base
// score scale.
const strengthPerPoint = 33.33

// neutralBaseScore is the base score an analyzer earns for a neutral
// opinion.
const neutralBaseScore = 10.0

// AdaptiveSource supplies the symbol-performance and correlation-safety
// multipliers learned outside the pipeline. A nil source means both
// factors stay at 1.0.
type AdaptiveSource interface {
	SymbolPerformanceFactor(symbol string) float64
	CorrelationSafetyFactor(symbol string, dir signal.Direction) float64
}

// Scorer computes composite signal scores
type Scorer struct {
	cfg      *Config
	adaptive AdaptiveSource
	logger   *logging.Logger
}

// NewScorer creates a scorer with the given configuration
func NewScorer(cfg *Config, logger *logging.Logger) *Scorer {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Scorer{
		cfg:    cfg,
		logger: logger.WithComponent("scoring"),
	}
}

// SetAdaptiveSource wires the external adaptive-learning inputs
func (s *Scorer) SetAdaptiveSource(src AdaptiveSource) {
	s.adaptive = src
}

// CalculateScore scores the context for the given direction. Returns nil
// when the direction is not LONG/SHORT or the context lacks the mandatory
// trend, momentum and volume results. The call is read-only on the
// context and deterministic for unchanged inputs.
func (s *Scorer) CalculateScore(ctx *analysis.Context, dir signal.Direction) *signal.Score {
	if !dir.IsDirectional() {
		return nil
	}
	if !ctx.HasMandatoryResults() {
		s.logger.Debug("missing mandatory analyzer results",
			"symbol", ctx.Symbol, "timeframe", ctx.Timeframe)
		return nil
	}

	score := &signal.Score{Direction: dir}

	score.Raw = s.baseScores(ctx, dir)
	score.Weighted = weigh(score.Raw, s.cfg.Weights)
	score.BaseScore = sum(score.Weighted)

	score.AlignedAnalyzers = s.countAligned(ctx, dir)
	score.ConfluenceBonus = s.confluenceBonus(ctx, dir)
	score.Multipliers = s.multipliers(ctx, dir)

	final := score.BaseScore *
		score.Multipliers.Product(s.cfg.multiplierCount()) *
		(1 + score.ConfluenceBonus)
	if final < 0 {
		final = 0
	}
	if maxScore := s.cfg.effectiveMaxScore(); maxScore > 0 && final > maxScore {
		final = maxScore
	}
	score.FinalScore = final

	score.Strength = determineStrength(final)
	score.Confidence = s.scoreConfidence(score)

	return score
}

// baseScores maps every analyzer result onto a direction-aware 0..100
// alignment score. Missing or failed analyzers contribute zero.
func (s *Scorer) baseScores(ctx *analysis.Context, dir signal.Direction) signal.BaseScores {
	r := ctx.Results
	var b signal.BaseScores

	if t := r.Trend; t != nil && t.OK() {
		b.Trend = directionalScore(dir, t.Direction, t.Strength)
	}
	if m := r.Momentum; m != nil && m.OK() {
		b.Momentum = directionalScore(dir, m.Direction, m.Strength)
	}
	if v := r.Volume; v != nil && v.OK() {
		b.Volume = volumeScore(dir, v)
	}
	if p := r.Patterns; p != nil && p.OK() {
		b.Patterns = patternScore(dir, p)
	}
	if sr := r.SupportResistance; sr != nil && sr.OK() {
		b.SupportResistance = supportResistanceScore(ctx, dir, sr)
	}
	if v := r.Volatility; v != nil && v.OK() {
		// Moderate volatility scores best; both dead and extreme markets
		// make poor entries.
		b.Volatility = clamp(100-math.Abs(v.Percentile-50)*1.6, 0, 100)
	}
	if h := r.Harmonic; h != nil && h.OK() {
		if best := bestMatchingHarmonic(dir, h); best != nil {
			b.Harmonic = best.Confidence * 100
		}
	}
	if c := r.Channel; c != nil && c.OK() {
		b.Channel = channelScore(dir, c)
	}
	if cy := r.Cyclical; cy != nil && cy.OK() {
		b.Cyclical = directionalScore(dir, cy.Direction, cy.ForecastStrength*3)
	}
	if h := r.HTF; h != nil && h.OK() {
		b.HTF = htfScore(dir, h)
	}

	return b
}

// directionalScore is the shared alignment formula: strength-scaled when
// the analyzer agrees, a small neutral floor, zero when opposed.
func directionalScore(dir signal.Direction, opinion analysis.Direction, strength float64) float64 {
	switch {
	case dir.Matches(opinion):
		return clamp(strength*strengthPerPoint, 0, 100)
	case dir.Opposes(opinion):
		return 0
	default:
		return neutralBaseScore
	}
}

func volumeScore(dir signal.Direction, v *analysis.VolumeResult) float64 {
	if !v.Confirmed {
		return clamp(v.VolumeRatio*25, 0, 40)
	}
	if dir.Opposes(v.Direction) {
		return 20
	}
	return clamp(60+(v.VolumeRatio-1.2)*50, 60, 100)
}

func patternScore(dir signal.Direction, p *analysis.PatternsResult) float64 {
	score := 0.0
	for _, pat := range p.Patterns {
		if dir.Matches(pat.Direction) {
			score += pat.Confidence * 50
		}
	}
	return clamp(score, 0, 100)
}

func supportResistanceScore(ctx *analysis.Context, dir signal.Direction, sr *analysis.SupportResistanceResult) float64 {
	price := ctx.CurrentPrice()
	atr := ctx.ATR()
	if price <= 0 || atr <= 0 {
		return neutralBaseScore
	}

	var level float64
	if dir == signal.Long {
		level = sr.NearestSupport
	} else {
		level = sr.NearestResistance
	}
	if level <= 0 {
		return neutralBaseScore
	}

	distance := math.Abs(price - level)
	proximity := 1 - math.Min(1, distance/(3*atr))
	score := proximity * 70
	if dir.Matches(sr.BreakoutDirection) {
		score += 30
	}
	return clamp(score, 0, 100)
}

func channelScore(dir signal.Direction, c *analysis.ChannelResult) float64 {
	switch c.Type {
	case analysis.ChannelAscending:
		if dir == signal.Long {
			return 80
		}
		return 0
	case analysis.ChannelDescending:
		if dir == signal.Short {
			return 80
		}
		return 0
	case analysis.ChannelHorizontal:
		return 50
	default:
		return 0
	}
}

func htfScore(dir signal.Direction, h *analysis.HTFResult) float64 {
	switch {
	case dir.Matches(h.Direction):
		return clamp(50+h.Structure*50, 50, 100)
	case dir.Opposes(h.Direction):
		return 0
	default:
		return neutralBaseScore
	}
}

func bestMatchingHarmonic(dir signal.Direction, h *analysis.HarmonicResult) *analysis.HarmonicPattern {
	var best *analysis.HarmonicPattern
	for i := range h.Patterns {
		p := &h.Patterns[i]
		if !dir.Matches(p.Direction) {
			continue
		}
		if best == nil || p.Confidence > best.Confidence {
			best = p
		}
	}
	return best
}

// designatedConfluenceKinds are the five analyzers whose agreement earns
// the confluence bonus.
var designatedConfluenceKinds = []analysis.Kind{
	analysis.KindTrend, analysis.KindMomentum, analysis.KindVolume,
	analysis.KindPatterns, analysis.KindHTF,
}

// confluenceBonus combines designated-analyzer agreement with a
// risk/reward bonus, capped at 0.5.
func (s *Scorer) confluenceBonus(ctx *analysis.Context, dir signal.Direction) float64 {
	agreeing := 0
	for _, kind := range designatedConfluenceKinds {
		if s.kindAgrees(ctx, kind, dir) {
			agreeing++
		}
	}
	bonus := float64(agreeing) / float64(len(designatedConfluenceKinds)) * 0.25

	if rr := ctx.RiskReward; rr > 2.0 {
		bonus += math.Min(0.25, (rr-2.0)*0.125)
	}

	return math.Min(0.5, bonus)
}

func (s *Scorer) kindAgrees(ctx *analysis.Context, kind analysis.Kind, dir signal.Direction) bool {
	r := ctx.Results
	switch kind {
	case analysis.KindTrend:
		return r.Trend != nil && r.Trend.OK() && dir.Matches(r.Trend.Direction)
	case analysis.KindMomentum:
		return r.Momentum != nil && r.Momentum.OK() && dir.Matches(r.Momentum.Direction)
	case analysis.KindVolume:
		return r.Volume != nil && r.Volume.OK() && r.Volume.Confirmed && !dir.Opposes(r.Volume.Direction)
	case analysis.KindPatterns:
		return r.Patterns != nil && r.Patterns.OK() && bestMatchingPattern(dir, r.Patterns)
	case analysis.KindHTF:
		return r.HTF != nil && r.HTF.OK() && dir.Matches(r.HTF.Direction)
	default:
		return false
	}
}

func bestMatchingPattern(dir signal.Direction, p *analysis.PatternsResult) bool {
	for _, pat := range p.Patterns {
		if dir.Matches(pat.Direction) {
			return true
		}
	}
	return false
}

// countAligned counts analyzers with a usable result agreeing with the
// target direction.
func (s *Scorer) countAligned(ctx *analysis.Context, dir signal.Direction) int {
	r := ctx.Results
	count := 0
	for _, meta := range []struct {
		ok  bool
		dir analysis.Direction
	}{
		{r.Trend != nil && r.Trend.OK(), safeDir(r.Trend)},
		{r.Momentum != nil && r.Momentum.OK(), safeDirMomentum(r.Momentum)},
		{r.Volume != nil && r.Volume.OK(), safeDirVolume(r.Volume)},
		{r.Cyclical != nil && r.Cyclical.OK(), safeDirCyclical(r.Cyclical)},
		{r.HTF != nil && r.HTF.OK(), safeDirHTF(r.HTF)},
	} {
		if meta.ok && dir.Matches(meta.dir) {
			count++
		}
	}
	if r.Patterns != nil && r.Patterns.OK() && bestMatchingPattern(dir, r.Patterns) {
		count++
	}
	if r.Harmonic != nil && r.Harmonic.OK() && bestMatchingHarmonic(dir, r.Harmonic) != nil {
		count++
	}
	return count
}

func safeDir(t *analysis.TrendResult) analysis.Direction {
	if t == nil {
		return analysis.Neutral
	}
	return t.Direction
}

func safeDirMomentum(m *analysis.MomentumResult) analysis.Direction {
	if m == nil {
		return analysis.Neutral
	}
	return m.Direction
}

func safeDirVolume(v *analysis.VolumeResult) analysis.Direction {
	if v == nil {
		return analysis.Neutral
	}
	return v.Direction
}

func safeDirCyclical(c *analysis.CyclicalResult) analysis.Direction {
	if c == nil {
		return analysis.Neutral
	}
	return c.Direction
}

func safeDirHTF(h *analysis.HTFResult) analysis.Direction {
	if h == nil {
		return analysis.Neutral
	}
	return h.Direction
}

// multipliers derives all 13 adjustment factors, each independently
// bounded.
func (s *Scorer) multipliers(ctx *analysis.Context, dir signal.Direction) signal.Multipliers {
	r := ctx.Results
	m := signal.Multipliers{
		Timeframe:          s.cfg.timeframeWeight(ctx.Timeframe),
		TrendAlignment:     1.0,
		VolumeConfirmation: 1.0,
		PatternQuality:     1.0,
		SymbolPerformance:  1.0,
		CorrelationSafety:  1.0,
		MACDAlignment:      1.0,
		HTFStructure:       1.0,
		Volatility:         1.0,
		Harmonic:           1.0,
		Channel:            1.0,
		Cyclical:           1.0,
		SupportResistance:  1.0,
	}

	if t := r.Trend; t != nil && t.OK() {
		switch {
		case dir.Matches(t.Direction):
			m.TrendAlignment = clamp(1.0+t.Strength/3.0*0.2, 1.0, 1.2)
		case dir.Opposes(t.Direction):
			m.TrendAlignment = 0.8
		}
	}

	if v := r.Volume; v != nil && v.OK() && v.Confirmed {
		m.VolumeConfirmation = 1.1
	}

	if p := r.Patterns; p != nil && p.OK() {
		m.PatternQuality = 1.0 + math.Min(0.5, float64(len(p.Patterns))*0.1)
	}

	if s.adaptive != nil {
		m.SymbolPerformance = clamp(s.adaptive.SymbolPerformanceFactor(ctx.Symbol), 0.5, 1.5)
		m.CorrelationSafety = clamp(s.adaptive.CorrelationSafetyFactor(ctx.Symbol, dir), 0.5, 1.5)
	}

	if mo := r.Momentum; mo != nil && mo.OK() {
		switch {
		case dir.Matches(mo.MACDDirection):
			m.MACDAlignment = 1.2
		case dir.Opposes(mo.MACDDirection):
			m.MACDAlignment = 0.85
		}
	}

	if h := r.HTF; h != nil && h.OK() {
		switch {
		case dir.Matches(h.Direction):
			m.HTFStructure = clamp(1.0+h.Structure*0.2, 1.0, 1.2)
		case dir.Opposes(h.Direction):
			m.HTFStructure = 0.8
		}
	}

	if v := r.Volatility; v != nil && v.OK() && v.RiskMultiplier > 0 {
		m.Volatility = clamp(v.RiskMultiplier, 0.5, 1.2)
	}

	if h := r.Harmonic; h != nil && h.OK() {
		if best := bestMatchingHarmonic(dir, h); best != nil {
			m.Harmonic = clamp(1.0+best.Confidence*0.2, 1.0, 1.2)
		}
	}

	if c := r.Channel; c != nil && c.OK() {
		switch {
		case dir == signal.Long && c.Type == analysis.ChannelAscending,
			dir == signal.Short && c.Type == analysis.ChannelDescending:
			m.Channel = 1.15
		case c.Type == analysis.ChannelHorizontal:
			m.Channel = 1.05
		}
	}

	if cy := r.Cyclical; cy != nil && cy.OK() && dir.Matches(cy.Direction) {
		m.Cyclical = clamp(1.0+cy.ForecastStrength*0.2, 1.0, 1.2)
	}

	m.SupportResistance = s.srMultiplier(ctx, dir)

	return m
}

// srMultiplier rewards entries backed by a nearby level and penalizes
// entries running straight into one.
func (s *Scorer) srMultiplier(ctx *analysis.Context, dir signal.Direction) float64 {
	sr := ctx.Results.SupportResistance
	if sr == nil || !sr.OK() {
		return 1.0
	}
	price := ctx.CurrentPrice()
	atr := ctx.ATR()
	if price <= 0 || atr <= 0 {
		return 1.0
	}

	backing, blocking := sr.NearestSupport, sr.NearestResistance
	if dir == signal.Short {
		backing, blocking = sr.NearestResistance, sr.NearestSupport
	}

	mult := 1.0
	if backing > 0 && math.Abs(price-backing) <= 3*atr {
		mult = 1.1
	}
	if blocking > 0 && math.Abs(price-blocking) <= atr {
		mult = 0.9
	}
	return clamp(mult, 0.9, 1.1)
}

// determineStrength classifies final score magnitude
func determineStrength(finalScore float64) signal.Strength {
	switch {
	case finalScore > 150:
		return signal.StrengthStrong
	case finalScore >= 80:
		return signal.StrengthMedium
	default:
		return signal.StrengthWeak
	}
}

// scoreConfidence derives the scorer's own confidence estimate from
// analyzer agreement, score magnitude and confluence.
func (s *Scorer) scoreConfidence(score *signal.Score) float64 {
	alignedFrac := math.Min(1, float64(score.AlignedAnalyzers)/5.0)
	magnitude := math.Min(1, score.FinalScore/150.0)
	confluence := score.ConfluenceBonus / 0.5
	return clamp01(0.4*alignedFrac + 0.4*magnitude + 0.2*confluence)
}

func weigh(raw, weights signal.BaseScores) signal.BaseScores {
	return signal.BaseScores{
		Trend:             raw.Trend * weights.Trend,
		Momentum:          raw.Momentum * weights.Momentum,
		Volume:            raw.Volume * weights.Volume,
		Patterns:          raw.Patterns * weights.Patterns,
		SupportResistance: raw.SupportResistance * weights.SupportResistance,
		Volatility:        raw.Volatility * weights.Volatility,
		Harmonic:          raw.Harmonic * weights.Harmonic,
		Channel:           raw.Channel * weights.Channel,
		Cyclical:          raw.Cyclical * weights.Cyclical,
		HTF:               raw.HTF * weights.HTF,
	}
}

func sum(b signal.BaseScores) float64 {
	return b.Trend + b.Momentum + b.Volume + b.Patterns + b.SupportResistance +
		b.Volatility + b.Harmonic + b.Channel + b.Cyclical + b.HTF
}
