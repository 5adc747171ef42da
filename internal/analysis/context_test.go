package analysis

import (
	"errors"
	"testing"

	"github.com/traderboter/Back-to-OLD-method-sub000/internal/market"
)

func TestResultSlotsWriteOnce(t *testing.T) {
	ctx := NewContext("BTCUSDT", market.TF1h, nil)

	first := &TrendResult{ResultMeta: ResultMeta{Status: StatusOK, Direction: Bullish}}
	if err := ctx.SetTrend(first); err != nil {
		t.Fatalf("first write: %v", err)
	}

	err := ctx.SetTrend(&TrendResult{ResultMeta: ResultMeta{Status: StatusOK}})
	if !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("second write err = %v, want ErrSlotTaken", err)
	}
	if ctx.Results.Trend != first {
		t.Error("second write replaced the original result")
	}
}

func TestHasMandatoryResults(t *testing.T) {
	ctx := NewContext("BTCUSDT", market.TF1h, nil)
	if ctx.HasMandatoryResults() {
		t.Error("empty context reported mandatory results")
	}

	ctx.Results.Trend = &TrendResult{}
	ctx.Results.Momentum = &MomentumResult{}
	if ctx.HasMandatoryResults() {
		t.Error("mandatory check passed without a volume result")
	}

	ctx.Results.Volume = &VolumeResult{}
	if !ctx.HasMandatoryResults() {
		t.Error("mandatory check failed with trend, momentum and volume set")
	}
}

func TestContextATRPrefersAnalyzerValue(t *testing.T) {
	ctx := NewContext("BTCUSDT", market.TF1h, nil)
	ctx.Indicators = &market.IndicatorSet{ATR14: 100}
	if got := ctx.ATR(); got != 100 {
		t.Errorf("ATR = %v, want indicator fallback 100", got)
	}

	ctx.Results.Volatility = &VolatilityResult{ATRValue: 250}
	if got := ctx.ATR(); got != 250 {
		t.Errorf("ATR = %v, want analyzer value 250", got)
	}
}

func TestCurrentPriceIsLastClose(t *testing.T) {
	klines := []market.Kline{
		{Close: 100}, {Close: 105}, {Close: 103},
	}
	ctx := NewContext("BTCUSDT", market.TF1h, klines)
	if got := ctx.CurrentPrice(); got != 103 {
		t.Errorf("CurrentPrice = %v, want 103", got)
	}
}
