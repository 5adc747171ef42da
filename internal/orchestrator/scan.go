package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/traderboter/Back-to-OLD-method-sub000/internal/aggregator"
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/events"
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/market"
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/signal"
)

// ScanResult summarizes one multi-symbol scan
type ScanResult struct {
	Symbols   int
	Signals   []*signal.Info
	Errors    int
	Rejected  int
	Elapsed   time.Duration
	StartedAt time.Time
}

// ScanSymbols processes every symbol with at most MaxConcurrent in
// flight. Each symbol gets its own timeout; one symbol timing out or
// failing never affects the others.
func (o *Orchestrator) ScanSymbols(ctx context.Context, symbols []string) *ScanResult {
	result := &ScanResult{Symbols: len(symbols), StartedAt: time.Now()}

	if o.bus != nil {
		o.bus.Publish(events.Event{
			Type: events.EventScanStarted,
			Data: map[string]interface{}{"symbols": len(symbols)},
		})
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, symbol := range symbols {
		select {
		case o.sem <- struct{}{}:
		case <-ctx.Done():
			mu.Lock()
			result.Errors++
			mu.Unlock()
			continue
		}

		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			defer func() { <-o.sem }()

			sig, err := o.processSymbol(ctx, symbol)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case sig != nil:
				result.Signals = append(result.Signals, sig)
			case isRejection(err):
				result.Rejected++
			default:
				result.Errors++
				o.logger.Debug("symbol produced no signal", "symbol", symbol, "error", err)
			}
		}(symbol)
	}
	wg.Wait()

	result.Elapsed = time.Since(result.StartedAt)
	if o.bus != nil {
		o.bus.PublishScanCompleted(result.Symbols, len(result.Signals), result.Elapsed)
	}
	o.logger.Info("scan completed",
		"symbols", result.Symbols, "signals", len(result.Signals),
		"rejected", result.Rejected, "errors", result.Errors,
		"elapsed", result.Elapsed)
	return result
}

// processSymbol applies the per-symbol timeout and picks single or
// multi-timeframe mode.
func (o *Orchestrator) processSymbol(ctx context.Context, symbol string) (*signal.Info, error) {
	symbolCtx, cancel := context.WithTimeout(ctx, o.cfg.SymbolTimeout)
	defer cancel()

	if o.cfg.MultiTimeframe {
		return o.GenerateMultiTimeframeSignal(symbolCtx, symbol)
	}
	tf := o.cfg.Timeframes[len(o.cfg.Timeframes)-1]
	return o.GenerateSignal(symbolCtx, symbol, tf)
}

// GenerateMultiTimeframeSignal builds one context and score per
// configured timeframe, then delegates the combination to the
// aggregator. Timeframes that fail to produce a directional score are
// skipped; the aggregator enforces its own minimum.
func (o *Orchestrator) GenerateMultiTimeframeSignal(ctx context.Context, symbol string) (*signal.Info, error) {
	if ok, reason := o.validator.Breaker().Allow(symbol); !ok {
		return nil, fmt.Errorf("%w: %s", ErrCircuitOpen, reason)
	}

	var perTF []*signal.TimeframeSignal
	for _, tf := range o.cfg.Timeframes {
		tfSig, err := o.buildTimeframeSignal(ctx, symbol, tf)
		if err != nil {
			o.logger.Debug("timeframe skipped", "symbol", symbol, "timeframe", tf, "error", err)
			continue
		}
		perTF = append(perTF, tfSig)
	}

	sig, err := o.aggregator.Aggregate(symbol, perTF)
	if err != nil {
		return nil, err
	}

	// The aggregator anchored entry and risk on the highest-weighted
	// timeframe's context; validate against that same context.
	var validationCtx = perTF[len(perTF)-1].Context
	for _, ts := range perTF {
		if ts.Timeframe == sig.Timeframe {
			validationCtx = ts.Context
		}
	}
	return o.finishSignal(ctx, sig, validationCtx)
}

// buildTimeframeSignal runs context construction and scoring for one
// timeframe of a multi-timeframe request.
func (o *Orchestrator) buildTimeframeSignal(ctx context.Context, symbol string, tf market.Timeframe) (*signal.TimeframeSignal, error) {
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
	}

	ts := &signal.TimeframeSignal{
		Timeframe: tf,
		Direction: dir,
		Score:     score,
		Context:   actx,
	}
	if v := actx.Results.Volume; v != nil {
		ts.VolumeConfirmed = v.Confirmed
	}
	if h := actx.Results.HTF; h != nil {
		ts.HTFAligned = h.Aligned
	}
	return ts, nil
}

// isRejection separates expected business outcomes from real errors in
// the scan tally.
func isRejection(err error) bool {
	return errors.Is(err, ErrRejected) ||
		errors.Is(err, ErrNoDirection) ||
		errors.Is(err, ErrCircuitOpen) ||
		errors.Is(err, aggregator.ErrNotEnoughTimeframes) ||
		errors.Is(err, aggregator.ErrNeutralDirection) ||
		errors.Is(err, aggregator.ErrConsensusTooLow) ||
		errors.Is(err, aggregator.ErrRiskRewardTooLow)
}
