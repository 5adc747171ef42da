// Package validation applies the sequential gate chain that filters
// candidate signals before they become orders. Each gate either passes or
// rejects with a reason recorded on the signal's audit trail; the first
// failing gate short-circuits the chain.
package validation

import (
	"fmt"
	"time"

	"github.com/traderboter/Back-to-OLD-method-sub000/internal/analysis"
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/logging"
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/market"
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/signal"
)

// CorrelationConfig controls the duplicate/correlation gate
type CorrelationConfig struct {
	Enabled bool `json:"enabled"`
	// Groups are sets of symbols treated as highly correlated; a
	// same-direction signal on any member of an open position's group is
	// rejected.
	Groups [][]string `json:"groups"`
	// ReferenceSymbol is the market-leading asset used for the
	// anti-trend penalty (score reduction, not rejection).
	ReferenceSymbol string  `json:"reference_symbol"`
	AntiTrendPenalty float64 `json:"anti_trend_penalty"`
}

// PortfolioConfig caps open positions and exposure
type PortfolioConfig struct {
	MaxOpenPositions       int     `json:"max_open_positions"`
	MaxTotalExposure       float64 `json:"max_total_exposure"`
	MaxSymbolExposure      float64 `json:"max_symbol_exposure"`
	MaxDirectionalExposure float64 `json:"max_directional_exposure"`
	// AssumedNotional is the per-trade notional used for exposure math
	// when position sizing happens outside the pipeline.
	AssumedNotional float64 `json:"assumed_notional"`
}

// TimeFilterConfig blocks signal generation during configured UTC hours
// or weekdays.
type TimeFilterConfig struct {
	Enabled         bool  `json:"enabled"`
	BlockedHoursUTC []int `json:"blocked_hours_utc"`
	BlockedWeekdays []int `json:"blocked_weekdays"` // time.Weekday values
}

// AdaptiveConfig tunes the win-rate-driven score threshold
type AdaptiveConfig struct {
	Enabled    bool    `json:"enabled"`
	Window     int     `json:"window"`
	MinSamples int     `json:"min_samples"`
	HighWinRate float64 `json:"high_win_rate"`
	LowWinRate  float64 `json:"low_win_rate"`
}

// Config holds the full validation configuration
type Config struct {
	MinSignalScore             float64          `json:"min_signal_score"`
	MinRiskReward              float64          `json:"min_risk_reward_ratio"`
	MaxRiskPercent             float64          `json:"max_risk_percent"`
	VolatilityRejectPercentile float64          `json:"volatility_reject_percentile"`
	RequireHTFVolume           bool             `json:"require_htf_volume"`
	CircuitBreaker             CircuitConfig    `json:"circuit_breaker"`
	Correlation                CorrelationConfig `json:"correlation"`
	Portfolio                  PortfolioConfig  `json:"portfolio"`
	TimeFilter                 TimeFilterConfig `json:"time_filter"`
	Adaptive                   AdaptiveConfig   `json:"adaptive"`
}

// DefaultConfig returns the default validation configuration
func DefaultConfig() *Config {
	return &Config{
		MinSignalScore:             60,
		MinRiskReward:              1.5,
		MaxRiskPercent:             5.0,
		VolatilityRejectPercentile: 95,
		CircuitBreaker:             DefaultCircuitConfig(),
		Correlation: CorrelationConfig{
			Enabled:          true,
			ReferenceSymbol:  "BTCUSDT",
			AntiTrendPenalty: 0.9,
		},
		Portfolio: PortfolioConfig{
			MaxOpenPositions:       5,
			MaxTotalExposure:       10000,
			MaxSymbolExposure:      3000,
			MaxDirectionalExposure: 7000,
			AssumedNotional:        1000,
		},
		Adaptive: AdaptiveConfig{
			Enabled:     true,
			Window:      50,
			MinSamples:  10,
			HighWinRate: 0.60,
			LowWinRate:  0.40,
		},
	}
}

// Validator runs the gate chain
type Validator struct {
	cfg     *Config
	breaker *CircuitBreaker
	history *History
	winRate WinRateSource
	logger  *logging.Logger
	now     func() time.Time

	// referenceTrend is the current direction of the reference symbol,
	// fed by the orchestrator's latest analysis of that symbol.
	referenceTrend analysis.Direction
}

// NewValidator creates a validator with its own circuit breaker, backed
// by the given history store.
func NewValidator(cfg *Config, history *History, logger *logging.Logger) *Validator {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if history == nil {
		history = NewHistory()
	}
	return &Validator{
		cfg:            cfg,
		breaker:        NewCircuitBreaker(cfg.CircuitBreaker),
		history:        history,
		winRate:        history,
		logger:         logger.WithComponent("validation"),
		now:            time.Now,
		referenceTrend: analysis.Neutral,
	}
}

// Breaker exposes the circuit breaker for outcome recording
func (v *Validator) Breaker() *CircuitBreaker { return v.breaker }

// History exposes the rolling state store
func (v *Validator) History() *History { return v.history }

// SetWinRateSource overrides the trailing win-rate provider, e.g. with a
// database-backed source.
func (v *Validator) SetWinRateSource(src WinRateSource) {
	if src != nil {
		v.winRate = src
	}
}

// SetReferenceTrend updates the reference asset's current direction
func (v *Validator) SetReferenceTrend(dir analysis.Direction) {
	v.referenceTrend = dir
}

// Validate runs the gate chain against the candidate. The context is the
// signal's anchor analysis context; regime and HTF gates are skipped when
// it carries no data for them. On success the signal is marked valid and
// registered into the rolling history.
func (v *Validator) Validate(sig *signal.Info, ctx *analysis.Context) bool {
	gates := []struct {
		name string
		run  func(*signal.Info, *analysis.Context) (bool, string)
	}{
		{"basic_fields", v.checkBasicFields},
		{"price_ordering", v.checkPriceOrdering},
		{"risk_limits", v.checkRiskLimits},
		{"circuit_breaker", v.checkCircuitBreaker},
		{"correlation", v.checkCorrelation},
		{"volatility_regime", v.checkVolatilityRegime},
		{"htf_volume", v.checkHTFVolume},
		{"portfolio_limits", v.checkPortfolioLimits},
		{"time_filter", v.checkTimeFilter},
		{"adaptive_score", v.checkAdaptiveScore},
	}

	for _, gate := range gates {
		passed, reason := gate.run(sig, ctx)
		sig.RecordCheck(gate.name, passed, reason)
		if !passed {
			v.logger.Info("signal rejected",
				"symbol", sig.Symbol, "gate", gate.name, "reason", reason)
			sig.Valid = false
			return false
		}
	}

	sig.Valid = true
	v.breaker.RecordSignal(sig.Symbol)
	v.history.RecordSignal(sig.Symbol, sig.Direction)
	return true
}

func (v *Validator) checkBasicFields(sig *signal.Info, _ *analysis.Context) (bool, string) {
	switch {
	case sig.Symbol == "":
		return false, "missing symbol"
	case !sig.Direction.IsDirectional():
		return false, fmt.Sprintf("non-directional signal: %s", sig.Direction)
	case sig.EntryPrice <= 0:
		return false, "missing entry price"
	case sig.StopLoss <= 0:
		return false, "missing stop loss"
	case sig.TakeProfit <= 0:
		return false, "missing take profit"
	case sig.Score == nil:
		return false, "missing score"
	}
	return true, ""
}

func (v *Validator) checkPriceOrdering(sig *signal.Info, _ *analysis.Context) (bool, string) {
	if sig.Direction == signal.Long {
		if sig.StopLoss >= sig.EntryPrice {
			return false, "stop loss above entry for LONG"
		}
		if sig.TakeProfit <= sig.EntryPrice {
			return false, "take profit below entry for LONG"
		}
	} else {
		if sig.StopLoss <= sig.EntryPrice {
			return false, "stop loss below entry for SHORT"
		}
		if sig.TakeProfit >= sig.EntryPrice {
			return false, "take profit above entry for SHORT"
		}
	}
	return true, ""
}

func (v *Validator) checkRiskLimits(sig *signal.Info, _ *analysis.Context) (bool, string) {
	if sig.RiskReward < v.cfg.MinRiskReward {
		return false, fmt.Sprintf("risk/reward %.2f below minimum %.2f",
			sig.RiskReward, v.cfg.MinRiskReward)
	}
	if risk := sig.PositionRiskPercent(); risk > v.cfg.MaxRiskPercent {
		return false, fmt.Sprintf("position risk %.2f%% above maximum %.2f%%",
			risk, v.cfg.MaxRiskPercent)
	}
	return true, ""
}

func (v *Validator) checkCircuitBreaker(sig *signal.Info, _ *analysis.Context) (bool, string) {
	return v.breaker.Allow(sig.Symbol)
}

func (v *Validator) checkCorrelation(sig *signal.Info, _ *analysis.Context) (bool, string) {
	if !v.cfg.Correlation.Enabled {
		return true, ""
	}

	if p := v.history.PositionFor(sig.Symbol); p != nil && p.Direction == sig.Direction {
		return false, fmt.Sprintf("duplicate %s position already open on %s", sig.Direction, sig.Symbol)
	}

	for _, open := range v.history.OpenPositions() {
		if open.Symbol == sig.Symbol || open.Direction != sig.Direction {
			continue
		}
		if v.correlated(sig.Symbol, open.Symbol) {
			return false, fmt.Sprintf("correlated %s position already open on %s",
				sig.Direction, open.Symbol)
		}
	}

	// Anti-trend against the reference asset: penalty, not rejection
	if v.cfg.Correlation.ReferenceSymbol != "" &&
		sig.Symbol != v.cfg.Correlation.ReferenceSymbol &&
		sig.Direction.Opposes(v.referenceTrend) &&
		sig.Score != nil {
		penalty := v.cfg.Correlation.AntiTrendPenalty
		if penalty <= 0 || penalty > 1 {
			penalty = 0.9
		}
		sig.Score.FinalScore *= penalty
		sig.AddFactor(fmt.Sprintf("score reduced %.0f%% for trading against %s trend",
			(1-penalty)*100, v.cfg.Correlation.ReferenceSymbol))
	}

	return true, ""
}

func (v *Validator) correlated(a, b string) bool {
	for _, group := range v.cfg.Correlation.Groups {
		inA, inB := false, false
		for _, s := range group {
			if s == a {
				inA = true
			}
			if s == b {
				inB = true
			}
		}
		if inA && inB {
			return true
		}
	}
	return false
}

func (v *Validator) checkVolatilityRegime(_ *signal.Info, ctx *analysis.Context) (bool, string) {
	if ctx == nil || ctx.Regime == nil {
		return true, ""
	}
	if ctx.Regime.Regime == market.RegimeExtreme {
		return false, "extreme volatility regime"
	}
	if v.cfg.VolatilityRejectPercentile > 0 &&
		ctx.Regime.VolatilityPercentile >= v.cfg.VolatilityRejectPercentile {
		return false, fmt.Sprintf("volatility in top percentile (%.1f >= %.1f)",
			ctx.Regime.VolatilityPercentile, v.cfg.VolatilityRejectPercentile)
	}
	return true, ""
}

func (v *Validator) checkHTFVolume(_ *signal.Info, ctx *analysis.Context) (bool, string) {
	if !v.cfg.RequireHTFVolume || ctx == nil {
		return true, ""
	}
	htf := ctx.Results.HTF
	vol := ctx.Results.Volume
	if htf == nil || vol == nil {
		return false, "higher-timeframe volume confirmation unavailable"
	}
	if !htf.Aligned || !vol.Confirmed {
		return false, "higher-timeframe volume confirmation missing"
	}
	return true, ""
}

func (v *Validator) checkPortfolioLimits(sig *signal.Info, _ *analysis.Context) (bool, string) {
	p := v.cfg.Portfolio

	open := v.history.OpenPositions()
	if p.MaxOpenPositions > 0 && len(open) >= p.MaxOpenPositions {
		return false, fmt.Sprintf("max open positions reached (%d/%d)", len(open), p.MaxOpenPositions)
	}

	notional := p.AssumedNotional
	if p.MaxTotalExposure > 0 && v.history.TotalExposure("")+notional > p.MaxTotalExposure {
		return false, "total exposure cap exceeded"
	}
	if p.MaxSymbolExposure > 0 {
		if existing := v.history.PositionFor(sig.Symbol); existing != nil &&
			existing.Notional+notional > p.MaxSymbolExposure {
			return false, fmt.Sprintf("symbol exposure cap exceeded for %s", sig.Symbol)
		}
	}
	if p.MaxDirectionalExposure > 0 &&
		v.history.TotalExposure(sig.Direction)+notional > p.MaxDirectionalExposure {
		return false, fmt.Sprintf("%s exposure cap exceeded", sig.Direction)
	}
	return true, ""
}

func (v *Validator) checkTimeFilter(_ *signal.Info, _ *analysis.Context) (bool, string) {
	if !v.cfg.TimeFilter.Enabled {
		return true, ""
	}
	now := v.now().UTC()
	for _, h := range v.cfg.TimeFilter.BlockedHoursUTC {
		if now.Hour() == h {
			return false, fmt.Sprintf("signals blocked during %02d:00 UTC", h)
		}
	}
	for _, wd := range v.cfg.TimeFilter.BlockedWeekdays {
		if int(now.Weekday()) == wd {
			return false, fmt.Sprintf("signals blocked on %s", now.Weekday())
		}
	}
	return true, ""
}

// checkAdaptiveScore compares the final score against the base minimum
// adjusted by the trailing win rate: a hot streak relaxes the bar, a cold
// streak raises it.
func (v *Validator) checkAdaptiveScore(sig *signal.Info, _ *analysis.Context) (bool, string) {
	threshold := v.cfg.MinSignalScore

	if v.cfg.Adaptive.Enabled {
		rate, samples := v.winRate.TrailingWinRate(v.cfg.Adaptive.Window)
		if samples >= v.cfg.Adaptive.MinSamples {
			switch {
			case rate >= v.cfg.Adaptive.HighWinRate+0.10:
				threshold *= 0.80
			case rate >= v.cfg.Adaptive.HighWinRate:
				threshold *= 0.90
			case rate < v.cfg.Adaptive.LowWinRate-0.10:
				threshold *= 1.20
			case rate < v.cfg.Adaptive.LowWinRate:
				threshold *= 1.10
			}
		}
	}

	if sig.Score == nil || sig.Score.FinalScore < threshold {
		score := 0.0
		if sig.Score != nil {
			score = sig.Score.FinalScore
		}
		return false, fmt.Sprintf("score %.1f below adaptive threshold %.1f", score, threshold)
	}
	return true, ""
}
