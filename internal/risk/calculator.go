// Package risk derives stop-loss and take-profit levels for a candidate
// signal through a 5-method priority cascade with safety clamps. The
// calculator never fails: any internal problem falls through to an
// emergency percentage-based result.
package risk

import (
	"errors"
	"fmt"
	"math"

	"github.com/traderboter/Back-to-OLD-method-sub000/internal/analysis"
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/logging"
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/signal"
)

// Method names the stop-loss derivation that won the cascade
type Method string

const (
	MethodHarmonic          Method = "harmonic"
	MethodChannel           Method = "channel"
	MethodSupportResistance Method = "support_resistance"
	MethodATR               Method = "atr"
	MethodPercentage        Method = "percentage"
)

// Config holds risk management configuration
type Config struct {
	MinRiskReward       float64 `json:"min_risk_reward_ratio"`
	PreferredRiskReward float64 `json:"preferred_risk_reward_ratio"`
	ATRMultiplier       float64 `json:"atr_trailing_multiplier"`
	DefaultStopPercent  float64 `json:"default_stop_percent"`
	MaxRiskPercent      float64 `json:"max_risk_percent"`
}

// DefaultConfig returns the default risk configuration
func DefaultConfig() *Config {
	return &Config{
		MinRiskReward:       1.5,
		PreferredRiskReward: 2.0,
		ATRMultiplier:       2.0,
		DefaultStopPercent:  2.0,
		MaxRiskPercent:      5.0,
	}
}

// Levels is the calculator output
type Levels struct {
	StopLoss     float64 `json:"stop_loss"`
	TakeProfit   float64 `json:"take_profit"`
	RiskReward   float64 `json:"risk_reward_ratio"`
	RiskDistance float64 `json:"risk_distance"`
	Method       Method  `json:"sl_method"`
}

var errNoLevels = errors.New("no usable risk levels")

// Calculator derives SL/TP levels from analysis context
type Calculator struct {
	cfg    *Config
	logger *logging.Logger
}

// NewCalculator creates a risk/reward calculator
func NewCalculator(cfg *Config, logger *logging.Logger) *Calculator {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Calculator{
		cfg:    cfg,
		logger: logger.WithComponent("risk"),
	}
}

// CalculateLevels runs the priority cascade for the direction and entry
// price. It never returns an error; failures produce the emergency
// percentage-based result with the minimum risk/reward baked in.
func (c *Calculator) CalculateLevels(dir signal.Direction, entry float64, ctx *analysis.Context) *Levels {
	levels, err := c.calculate(dir, entry, ctx)
	if err != nil {
		c.logger.Warn("risk cascade failed, using emergency fallback",
			"symbol", ctx.Symbol, "direction", dir, "error", err)
		return c.emergencyLevels(dir, entry)
	}
	return levels
}

func (c *Calculator) calculate(dir signal.Direction, entry float64, ctx *analysis.Context) (*Levels, error) {
	if !dir.IsDirectional() {
		return nil, fmt.Errorf("non-directional signal: %s", dir)
	}
	if entry <= 0 {
		return nil, fmt.Errorf("invalid entry price %.8f", entry)
	}

	atr := ctx.ATR()

	sl, tp, method := c.cascade(dir, entry, atr, ctx)
	if sl <= 0 {
		return nil, errNoLevels
	}

	// Minimum stop distance: half an ATR. Too-tight stops get widened.
	if atr > 0 {
		minStop := 0.5 * atr
		if math.Abs(entry-sl) < minStop {
			if dir == signal.Long {
				sl = entry - minStop
			} else {
				sl = entry + minStop
			}
		}
	}

	risk := math.Abs(entry - sl)
	if risk <= 0 || sl <= 0 {
		return nil, errNoLevels
	}

	// Methods 3-5 leave the target open; derive it from the preferred RR.
	if tp <= 0 {
		tp = target(dir, entry, risk*c.cfg.PreferredRiskReward)
	}

	tp = c.adjustTargetTowardLevels(dir, entry, risk, tp, ctx)

	// Final guarantee: the target must satisfy the minimum risk/reward.
	if reward(dir, entry, tp)/risk < c.cfg.MinRiskReward {
		tp = target(dir, entry, risk*c.cfg.MinRiskReward)
	}

	rr := math.Round(reward(dir, entry, tp)/risk*100) / 100

	return &Levels{
		StopLoss:     sl,
		TakeProfit:   tp,
		RiskReward:   rr,
		RiskDistance: risk,
		Method:       method,
	}, nil
}

// cascade picks the stop-loss (and, for methods 1-2, the take-profit) by
// priority. First applicable method wins.
func (c *Calculator) cascade(dir signal.Direction, entry, atr float64, ctx *analysis.Context) (sl, tp float64, method Method) {
	if sl, tp, ok := c.fromHarmonic(dir, entry, ctx); ok {
		return sl, tp, MethodHarmonic
	}
	if sl, tp, ok := c.fromChannel(dir, entry, ctx); ok {
		return sl, tp, MethodChannel
	}
	if sl, ok := c.fromSupportResistance(dir, entry, atr, ctx); ok {
		return sl, 0, MethodSupportResistance
	}
	if atr > 0 {
		if dir == signal.Long {
			return entry - atr*c.cfg.ATRMultiplier, 0, MethodATR
		}
		return entry + atr*c.cfg.ATRMultiplier, 0, MethodATR
	}
	return c.percentageStop(dir, entry), 0, MethodPercentage
}

// fromHarmonic anchors the stop 1% beyond the pattern's D point and the
// target at X, or at a 1.618 risk extension for Butterfly/Crab.
func (c *Calculator) fromHarmonic(dir signal.Direction, entry float64, ctx *analysis.Context) (sl, tp float64, ok bool) {
	h := ctx.Results.Harmonic
	if h == nil || !h.OK() {
		return 0, 0, false
	}

	var best *analysis.HarmonicPattern
	for i := range h.Patterns {
		p := &h.Patterns[i]
		if !dir.Matches(p.Direction) || p.PointD <= 0 {
			continue
		}
		if best == nil || p.Confidence > best.Confidence {
			best = p
		}
	}
	if best == nil {
		return 0, 0, false
	}

	if dir == signal.Long {
		sl = best.PointD * 0.99
	} else {
		sl = best.PointD * 1.01
	}
	if !stopOnCorrectSide(dir, entry, sl) {
		return 0, 0, false
	}

	risk := math.Abs(entry - sl)
	if best.Extended() {
		tp = target(dir, entry, risk*1.618)
	} else if best.PointX > 0 && targetOnCorrectSide(dir, entry, best.PointX) {
		tp = best.PointX
	}
	return sl, tp, true
}

// fromChannel uses the near channel bound as the stop and the far bound
// as the target, each padded by 1%.
func (c *Calculator) fromChannel(dir signal.Direction, entry float64, ctx *analysis.Context) (sl, tp float64, ok bool) {
	ch := ctx.Results.Channel
	if ch == nil || !ch.OK() || ch.LowerBound <= 0 || ch.UpperBound <= ch.LowerBound {
		return 0, 0, false
	}

	switch dir {
	case signal.Long:
		if ch.Type != analysis.ChannelAscending && ch.Type != analysis.ChannelHorizontal {
			return 0, 0, false
		}
		sl = ch.LowerBound * 0.99
		tp = ch.UpperBound * 1.01
	case signal.Short:
		if ch.Type != analysis.ChannelDescending && ch.Type != analysis.ChannelHorizontal {
			return 0, 0, false
		}
		sl = ch.UpperBound * 1.01
		tp = ch.LowerBound * 0.99
	}

	if !stopOnCorrectSide(dir, entry, sl) || !targetOnCorrectSide(dir, entry, tp) {
		return 0, 0, false
	}
	return sl, tp, true
}

// fromSupportResistance places the stop 0.1% beyond the nearest level,
// accepted only within 3 ATR of the entry.
func (c *Calculator) fromSupportResistance(dir signal.Direction, entry, atr float64, ctx *analysis.Context) (sl float64, ok bool) {
	sr := ctx.Results.SupportResistance
	if sr == nil || !sr.OK() || atr <= 0 {
		return 0, false
	}

	var level float64
	if dir == signal.Long {
		level = sr.NearestSupport
	} else {
		level = sr.NearestResistance
	}
	if level <= 0 {
		return 0, false
	}
	if math.Abs(entry-level) > 3*atr {
		return 0, false
	}

	if dir == signal.Long {
		sl = level * 0.999
	} else {
		sl = level * 1.001
	}
	if !stopOnCorrectSide(dir, entry, sl) {
		return 0, false
	}
	return sl, true
}

func (c *Calculator) percentageStop(dir signal.Direction, entry float64) float64 {
	pct := c.cfg.DefaultStopPercent / 100
	if dir == signal.Long {
		return entry * (1 - pct)
	}
	return entry * (1 + pct)
}

// adjustTargetTowardLevels pulls the target to a nearby S/R level, but
// only when the adjusted target still satisfies the minimum risk/reward.
func (c *Calculator) adjustTargetTowardLevels(dir signal.Direction, entry, risk, tp float64, ctx *analysis.Context) float64 {
	sr := ctx.Results.SupportResistance
	if sr == nil || !sr.OK() || risk <= 0 {
		return tp
	}

	var level float64
	if dir == signal.Long {
		level = sr.NearestResistance
	} else {
		level = sr.NearestSupport
	}
	if level <= 0 || !targetOnCorrectSide(dir, entry, level) {
		return tp
	}

	// Only pull the target in, never push it past the level
	if (dir == signal.Long && level >= tp) || (dir == signal.Short && level <= tp) {
		return tp
	}

	adjusted := level * 0.999
	if dir == signal.Short {
		adjusted = level * 1.001
	}
	if reward(dir, entry, adjusted)/risk >= c.cfg.MinRiskReward {
		return adjusted
	}
	return tp
}

// emergencyLevels is the terminal fallback: percentage stop with the
// minimum risk/reward baked into the target.
func (c *Calculator) emergencyLevels(dir signal.Direction, entry float64) *Levels {
	if entry <= 0 {
		entry = 1
	}
	if !dir.IsDirectional() {
		dir = signal.Long
	}

	sl := c.percentageStop(dir, entry)
	risk := math.Abs(entry - sl)
	tp := target(dir, entry, risk*c.cfg.MinRiskReward)

	return &Levels{
		StopLoss:     sl,
		TakeProfit:   tp,
		RiskReward:   c.cfg.MinRiskReward,
		RiskDistance: risk,
		Method:       MethodPercentage,
	}
}

func stopOnCorrectSide(dir signal.Direction, entry, sl float64) bool {
	if dir == signal.Long {
		return sl > 0 && sl < entry
	}
	return sl > entry
}

func targetOnCorrectSide(dir signal.Direction, entry, tp float64) bool {
	if dir == signal.Long {
		return tp > entry
	}
	return tp > 0 && tp < entry
}

func target(dir signal.Direction, entry, distance float64) float64 {
	if dir == signal.Long {
		return entry + distance
	}
	return entry - distance
}

func reward(dir signal.Direction, entry, tp float64) float64 {
	if dir == signal.Long {
		return tp - entry
	}
	return entry - tp
}
