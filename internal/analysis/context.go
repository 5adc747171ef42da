package analysis

import (
	"errors"
	"fmt"

	"github.com/traderboter/Back-to-OLD-method-sub000/internal/market"
)

// ErrSlotTaken is returned when an analyzer tries to write a slot that
// already holds a result for this context.
var ErrSlotTaken = errors.New("analyzer result slot already written")

// Results holds one declared slot per analyzer kind. Slots are written
// once through the context setters; a nil slot means the analyzer did not
// run for this context.
type Results struct {
	Trend             *TrendResult
	Momentum          *MomentumResult
	Volume            *VolumeResult
	Patterns          *PatternsResult
	SupportResistance *SupportResistanceResult
	Volatility        *VolatilityResult
	Harmonic          *HarmonicResult
	Channel           *ChannelResult
	Cyclical          *CyclicalResult
	HTF               *HTFResult
}

// Context carries everything one signal-generation call knows about a
// symbol/timeframe: the candle series, derived indicators, regime info and
// the analyzer results. It is owned by the goroutine that created it and
// never shared across concurrent calls.
type Context struct {
	Symbol    string
	Timeframe market.Timeframe
	Klines    []market.Kline

	Indicators *market.IndicatorSet
	Regime     *market.RegimeInfo

	// HTFKlines carries the higher-timeframe series the HTF analyzer
	// consumes, keyed by timeframe.
	HTFKlines map[market.Timeframe][]market.Kline

	// RiskReward, when set, feeds the scorer's confluence bonus. Written by
	// the orchestrator after the risk calculator runs.
	RiskReward float64

	Results Results
}

// NewContext creates a context for one symbol/timeframe series
func NewContext(symbol string, tf market.Timeframe, klines []market.Kline) *Context {
	return &Context{
		Symbol:    symbol,
		Timeframe: tf,
		Klines:    klines,
		HTFKlines: make(map[market.Timeframe][]market.Kline),
	}
}

// CurrentPrice returns the close of the most recent candle
func (c *Context) CurrentPrice() float64 {
	return market.LastClose(c.Klines)
}

// ATR returns the best available ATR value: the volatility analyzer's if
// present, otherwise the indicator set's.
func (c *Context) ATR() float64 {
	if c.Results.Volatility != nil && c.Results.Volatility.ATRValue > 0 {
		return c.Results.Volatility.ATRValue
	}
	if c.Indicators != nil {
		return c.Indicators.ATR14
	}
	return 0
}

// HasMandatoryResults reports whether the three mandatory analyzers
// produced a result.
func (c *Context) HasMandatoryResults() bool {
	return c.Results.Trend != nil && c.Results.Momentum != nil && c.Results.Volume != nil
}

// SetTrend writes the trend slot
func (c *Context) SetTrend(r *TrendResult) error {
	if c.Results.Trend != nil {
		return fmt.Errorf("%w: %s", ErrSlotTaken, KindTrend)
	}
	c.Results.Trend = r
	return nil
}

// SetMomentum writes the momentum slot
func (c *Context) SetMomentum(r *MomentumResult) error {
	if c.Results.Momentum != nil {
		return fmt.Errorf("%w: %s", ErrSlotTaken, KindMomentum)
	}
	c.Results.Momentum = r
	return nil
}

// SetVolume writes the volume slot
func (c *Context) SetVolume(r *VolumeResult) error {
	if c.Results.Volume != nil {
		return fmt.Errorf("%w: %s", ErrSlotTaken, KindVolume)
	}
	c.Results.Volume = r
	return nil
}

// SetPatterns writes the patterns slot
func (c *Context) SetPatterns(r *PatternsResult) error {
	if c.Results.Patterns != nil {
		return fmt.Errorf("%w: %s", ErrSlotTaken, KindPatterns)
	}
	c.Results.Patterns = r
	return nil
}

// SetSupportResistance writes the support/resistance slot
func (c *Context) SetSupportResistance(r *SupportResistanceResult) error {
	if c.Results.SupportResistance != nil {
		return fmt.Errorf("%w: %s", ErrSlotTaken, KindSupportResistance)
	}
	c.Results.SupportResistance = r
	return nil
}

// SetVolatility writes the volatility slot
func (c *Context) SetVolatility(r *VolatilityResult) error {
	if c.Results.Volatility != nil {
		return fmt.Errorf("%w: %s", ErrSlotTaken, KindVolatility)
	}
	c.Results.Volatility = r
	return nil
}

// SetHarmonic writes the harmonic slot
func (c *Context) SetHarmonic(r *HarmonicResult) error {
	if c.Results.Harmonic != nil {
		return fmt.Errorf("%w: %s", ErrSlotTaken, KindHarmonic)
	}
	c.Results.Harmonic = r
	return nil
}

// SetChannel writes the channel slot
func (c *Context) SetChannel(r *ChannelResult) error {
	if c.Results.Channel != nil {
		return fmt.Errorf("%w: %s", ErrSlotTaken, KindChannel)
	}
	c.Results.Channel = r
	return nil
}

// SetCyclical writes the cyclical slot
func (c *Context) SetCyclical(r *CyclicalResult) error {
	if c.Results.Cyclical != nil {
		return fmt.Errorf("%w: %s", ErrSlotTaken, KindCyclical)
	}
	c.Results.Cyclical = r
	return nil
}

// SetHTF writes the higher-timeframe slot
func (c *Context) SetHTF(r *HTFResult) error {
	if c.Results.HTF != nil {
		return fmt.Errorf("%w: %s", ErrSlotTaken, KindHTF)
	}
	c.Results.HTF = r
	return nil
}

// setErrorRecord fills the slot for kind with an error-status record so
// every analyzer leaves exactly one record even on failure. Existing slots
// are left untouched.
func (c *Context) setErrorRecord(kind Kind, err error) {
	meta := ResultMeta{Status: StatusError, Direction: Neutral}
	if err != nil {
		meta.Err = err.Error()
	}
	switch kind {
	case KindTrend:
		if c.Results.Trend == nil {
			c.Results.Trend = &TrendResult{ResultMeta: meta, Phase: PhaseUndefined}
		}
	case KindMomentum:
		if c.Results.Momentum == nil {
			c.Results.Momentum = &MomentumResult{ResultMeta: meta}
		}
	case KindVolume:
		if c.Results.Volume == nil {
			c.Results.Volume = &VolumeResult{ResultMeta: meta}
		}
	case KindPatterns:
		if c.Results.Patterns == nil {
			c.Results.Patterns = &PatternsResult{ResultMeta: meta}
		}
	case KindSupportResistance:
		if c.Results.SupportResistance == nil {
			c.Results.SupportResistance = &SupportResistanceResult{ResultMeta: meta}
		}
	case KindVolatility:
		if c.Results.Volatility == nil {
			c.Results.Volatility = &VolatilityResult{ResultMeta: meta, RiskMultiplier: 1.0}
		}
	case KindHarmonic:
		if c.Results.Harmonic == nil {
			c.Results.Harmonic = &HarmonicResult{ResultMeta: meta}
		}
	case KindChannel:
		if c.Results.Channel == nil {
			c.Results.Channel = &ChannelResult{ResultMeta: meta}
		}
	case KindCyclical:
		if c.Results.Cyclical == nil {
			c.Results.Cyclical = &CyclicalResult{ResultMeta: meta}
		}
	case KindHTF:
		if c.Results.HTF == nil {
			c.Results.HTF = &HTFResult{ResultMeta: meta}
		}
	}
}
