// Package orchestrator coordinates the full signal pipeline: market data
// fetch, context construction, analyzer execution, direction resolution,
// scoring, risk levels, validation and dispatch.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/traderboter/Back-to-OLD-method-sub000/internal/aggregator"
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/analysis"
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/cache"
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/events"
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/logging"
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/market"
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/risk"
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/scoring"
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/signal"
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/validation"
)

var (
	// ErrCircuitOpen means the symbol's circuit breaker blocked the run
	ErrCircuitOpen = errors.New("circuit breaker open")
	// ErrMissingMandatory means trend, momentum or volume produced no result
	ErrMissingMandatory = errors.New("mandatory analyzer results missing")
	// ErrNoDirection means the weighted vote reached no dominant direction
	ErrNoDirection = errors.New("no dominant direction")
	// ErrNotScored means the scorer declined to score the context
	ErrNotScored = errors.New("context not scorable")
	// ErrRejected means the signal failed validation
	ErrRejected = errors.New("signal rejected by validation")
)

// Callback receives every validated signal. It is the hand-off point to
// trade execution and may block on I/O.
type Callback func(ctx context.Context, sig *signal.Info) error

// Config holds orchestrator configuration
type Config struct {
	MaxConcurrent  int                `json:"max_concurrent"`
	SymbolTimeout  time.Duration      `json:"symbol_timeout"`
	CandleLimit    int                `json:"candle_limit"`
	CacheTTL       time.Duration      `json:"cache_ttl"`
	MultiTimeframe bool               `json:"multi_timeframe"`
	Timeframes     []market.Timeframe `json:"timeframes"`
	HTFTimeframe   market.Timeframe   `json:"htf_timeframe"`
}

// DefaultConfig returns the default orchestrator configuration
func DefaultConfig() *Config {
	return &Config{
		MaxConcurrent:  5,
		SymbolTimeout:  30 * time.Second,
		CandleLimit:    200,
		CacheTTL:       5 * time.Minute,
		MultiTimeframe: true,
		Timeframes: []market.Timeframe{
			market.TF5m, market.TF15m, market.TF1h, market.TF4h,
		},
		HTFTimeframe: market.TF4h,
	}
}

// Orchestrator owns the pipeline collaborators and the shared state
// stores. Caches and histories are created at construction and cleared at
// shutdown.
type Orchestrator struct {
	cfg        *Config
	fetcher    market.Fetcher
	indicators market.IndicatorCalculator
	regime     market.RegimeDetector
	registry   *analysis.Registry
	scorer     *scoring.Scorer
	riskCalc   *risk.Calculator
	aggregator *aggregator.Aggregator
	validator  *validation.Validator
	scoreCache cache.ScoreCache
	bus        *events.EventBus
	logger     *logging.Logger

	callback Callback
	sem      chan struct{}
}

// New creates an orchestrator from its collaborators
func New(
	cfg *Config,
	fetcher market.Fetcher,
	indicators market.IndicatorCalculator,
	regime market.RegimeDetector,
	registry *analysis.Registry,
	scorer *scoring.Scorer,
	riskCalc *risk.Calculator,
	agg *aggregator.Aggregator,
	validator *validation.Validator,
	scoreCache cache.ScoreCache,
	bus *events.EventBus,
	logger *logging.Logger,
) *Orchestrator {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if scoreCache == nil {
		scoreCache = cache.NewMemoryCache(cfg.CacheTTL)
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	return &Orchestrator{
		cfg:        cfg,
		fetcher:    fetcher,
		indicators: indicators,
		regime:     regime,
		registry:   registry,
		scorer:     scorer,
		riskCalc:   riskCalc,
		aggregator: agg,
		validator:  validator,
		scoreCache: scoreCache,
		bus:        bus,
		logger:     logger.WithComponent("orchestrator"),
		sem:        make(chan struct{}, cfg.MaxConcurrent),
	}
}

// SetCallback registers the trade-manager callback for validated signals
func (o *Orchestrator) SetCallback(cb Callback) {
	o.callback = cb
}

// GenerateSignal runs the single-timeframe pipeline for one symbol. A nil
// signal with a nil error never occurs: rejections and early exits come
// back as sentinel errors.
func (o *Orchestrator) GenerateSignal(ctx context.Context, symbol string, tf market.Timeframe) (*signal.Info, error) {
	if ok, reason := o.validator.Breaker().Allow(symbol); !ok {
		return nil, fmt.Errorf("%w: %s", ErrCircuitOpen, reason)
	}

	actx, cachedScore, err := o.buildContext(ctx, symbol, tf)
	if err != nil {
		return nil, err
	}

	dir, err := o.resolveDirection(actx)
	if err != nil {
		return nil, err
	}

	score := cachedScore
	if score == nil || score.Direction != dir {
		score = o.scorer.CalculateScore(actx, dir)
		if score == nil {
			return nil, ErrNotScored
		}
		o.scoreCache.Put(cache.Key(symbol, tf, time.UnixMilli(market.LastCloseTime(actx.Klines))), score)
	}

	sig := o.buildSignal(symbol, tf, dir, score, actx)
	return o.finishSignal(ctx, sig, actx)
}

// buildContext fetches data, computes indicators and regime, runs all
// analyzers and enforces the mandatory-result invariant. It also returns
// any still-valid cached score for the current candle.
func (o *Orchestrator) buildContext(ctx context.Context, symbol string, tf market.Timeframe) (*analysis.Context, *signal.Score, error) {
	klines, err := o.fetcher.GetHistoricalData(ctx, symbol, tf, o.cfg.CandleLimit)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch %s %s: %w", symbol, tf, err)
	}
	if len(klines) < market.MinCandles {
		return nil, nil, fmt.Errorf("%w: %s %s has %d candles", market.ErrInsufficientData, symbol, tf, len(klines))
	}

	cached := o.scoreCache.Get(cache.Key(symbol, tf, time.UnixMilli(market.LastCloseTime(klines))))

	actx := analysis.NewContext(symbol, tf, klines)

	if actx.Indicators, err = o.indicators.Calculate(klines); err != nil {
		return nil, nil, fmt.Errorf("indicators %s %s: %w", symbol, tf, err)
	}

	if regime, rerr := o.regime.DetectRegime(klines); rerr != nil {
		o.logger.Warn("regime detection failed", "symbol", symbol, "error", rerr)
	} else {
		actx.Regime = regime
	}

	if o.cfg.HTFTimeframe != "" && o.cfg.HTFTimeframe.Rank() > tf.Rank() {
		htf, herr := o.fetcher.GetHistoricalData(ctx, symbol, o.cfg.HTFTimeframe, o.cfg.CandleLimit)
		if herr != nil {
			o.logger.Warn("htf fetch failed", "symbol", symbol, "timeframe", o.cfg.HTFTimeframe, "error", herr)
		} else {
			actx.HTFKlines[o.cfg.HTFTimeframe] = htf
		}
	}

	o.registry.RunAll(actx)

	if !actx.HasMandatoryResults() {
		return nil, nil, fmt.Errorf("%w: %s %s", ErrMissingMandatory, symbol, tf)
	}
	return actx, cached, nil
}

// resolveDirection runs the weighted analyzer vote. Trend counts 3x,
// momentum 2x, confirmed volume adds 1 toward the last candle's side,
// patterns 0.5x and aligned higher-timeframe structure 2. The winner must
// dominate the loser by 1.2x.
func (o *Orchestrator) resolveDirection(actx *analysis.Context) (signal.Direction, error) {
	var bullish, bearish float64

	vote := func(dir analysis.Direction, weight float64) {
		switch dir {
		case analysis.Bullish:
			bullish += weight
		case analysis.Bearish:
			bearish += weight
		}
	}

	r := actx.Results
	if r.Trend.OK() {
		vote(r.Trend.Direction, 3)
	}
	if r.Momentum.OK() {
		vote(r.Momentum.Direction, 2)
	}
	if r.Volume.OK() && r.Volume.Confirmed {
		vote(r.Volume.Direction, 1)
	}
	if r.Patterns != nil && r.Patterns.OK() {
		vote(r.Patterns.Direction, 0.5)
	}
	if r.HTF != nil && r.HTF.OK() && r.HTF.Aligned {
		vote(r.HTF.Direction, 2)
	}

	const dominance = 1.2
	switch {
	case bullish > bearish*dominance:
		return signal.Long, nil
	case bearish > bullish*dominance:
		return signal.Short, nil
	default:
		return signal.Neutral, fmt.Errorf("%w: bullish %.1f vs bearish %.1f", ErrNoDirection, bullish, bearish)
	}
}

// buildSignal assembles the SignalInfo for a single-timeframe run
func (o *Orchestrator) buildSignal(symbol string, tf market.Timeframe, dir signal.Direction, score *signal.Score, actx *analysis.Context) *signal.Info {
	entry := actx.CurrentPrice()
	levels := o.riskCalc.CalculateLevels(dir, entry, actx)
	actx.RiskReward = levels.RiskReward

	sig := signal.NewInfo(symbol, tf, dir)
	sig.EntryPrice = entry
	sig.StopLoss = levels.StopLoss
	sig.TakeProfit = levels.TakeProfit
	sig.RiskReward = levels.RiskReward
	sig.StopLossMethod = string(levels.Method)
	sig.Score = score

	sig.AddFactor(fmt.Sprintf("score %.1f (%s), %d/10 analyzers aligned",
		score.FinalScore, score.Strength, score.AlignedAnalyzers))
	sig.AddFactor(fmt.Sprintf("stop via %s, rr %.2f", levels.Method, levels.RiskReward))

	sig.Audit = map[string]interface{}{
		"base_score":       score.BaseScore,
		"confluence_bonus": score.ConfluenceBonus,
		"stop_method":      string(levels.Method),
	}
	if actx.Regime != nil {
		sig.Audit["regime"] = string(actx.Regime.Regime)
	}
	return sig
}

// finishSignal validates, publishes and dispatches. Validation failures
// come back as ErrRejected with the failing gate's reason attached.
func (o *Orchestrator) finishSignal(ctx context.Context, sig *signal.Info, actx *analysis.Context) (*signal.Info, error) {
	if o.bus != nil {
		o.bus.PublishSignal(events.EventSignalGenerated, sig)
	}

	if !o.validator.Validate(sig, actx) {
		gate, reason := lastFailedCheck(sig)
		if o.bus != nil {
			o.bus.PublishSignalRejected(sig, gate, reason)
		}
		return nil, fmt.Errorf("%w: %s: %s", ErrRejected, gate, reason)
	}

	if o.bus != nil {
		o.bus.PublishSignal(events.EventSignalValidated, sig)
	}

	if o.callback != nil {
		if err := o.callback(ctx, sig); err != nil {
			o.logger.Error("trade callback failed", "symbol", sig.Symbol, "error", err)
		} else if o.bus != nil {
			o.bus.PublishSignal(events.EventSignalDispatched, sig)
		}
	}

	o.logger.Info("signal dispatched",
		"symbol", sig.Symbol, "direction", sig.Direction,
		"entry", sig.EntryPrice, "rr", sig.RiskReward)
	return sig, nil
}

func lastFailedCheck(sig *signal.Info) (gate, reason string) {
	for i := len(sig.Checks) - 1; i >= 0; i-- {
		if !sig.Checks[i].Passed {
			return sig.Checks[i].Name, sig.Checks[i].Reason
		}
	}
	return "unknown", ""
}

// Shutdown clears the shared state stores
func (o *Orchestrator) Shutdown() {
	o.scoreCache.EvictExpired()
	o.validator.History().Clear()
	o.logger.Info("orchestrator shut down")
}
