package analysis

import (
	"math"
	"testing"

	"github.com/traderboter/Back-to-OLD-method-sub000/internal/market"
)

// zigzag builds a trending series with oscillation so swing detection
// has real local extremes to find. Slope is per-candle drift.
func zigzag(n int, base, slope, amplitude float64) []market.Kline {
	klines := make([]market.Kline, n)
	for i := 0; i < n; i++ {
		close := base + slope*float64(i) + amplitude*math.Sin(float64(i)/2)
		klines[i] = market.Kline{
			Open:      close - 1,
			High:      close + 2,
			Low:       close - 2,
			Close:     close,
			Volume:    1000,
			CloseTime: int64(i) * 60000,
		}
	}
	return klines
}

func TestTrendBullishStructure(t *testing.T) {
	ta := NewTrendAnalyzer(5)
	ctx := NewContext("BTCUSDT", market.TF1h, zigzag(80, 1000, 5, 30))

	if err := ta.Analyze(ctx); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	r := ctx.Results.Trend
	if r == nil || !r.OK() {
		t.Fatalf("trend result = %+v, want OK", r)
	}
	if r.Direction != Bullish {
		t.Errorf("direction = %s, want bullish on a rising series", r.Direction)
	}
	if r.Strength <= 0 || r.Strength > 3 {
		t.Errorf("strength = %v, want within (0, 3]", r.Strength)
	}
	if r.HigherHighs == 0 {
		t.Error("rising series produced no higher highs")
	}
}

func TestTrendBearishStructure(t *testing.T) {
	ta := NewTrendAnalyzer(5)
	ctx := NewContext("BTCUSDT", market.TF1h, zigzag(80, 2000, -5, 30))

	if err := ta.Analyze(ctx); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	r := ctx.Results.Trend
	if r.Direction != Bearish {
		t.Errorf("direction = %s, want bearish on a falling series", r.Direction)
	}
}

func TestTrendInsufficientData(t *testing.T) {
	ta := NewTrendAnalyzer(5)
	ctx := NewContext("BTCUSDT", market.TF1h, zigzag(10, 1000, 5, 30))

	if err := ta.Analyze(ctx); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	r := ctx.Results.Trend
	if r.Status != StatusInsufficientData {
		t.Errorf("status = %s, want insufficient_data for 10 candles", r.Status)
	}
	if r.Phase != PhaseUndefined {
		t.Errorf("phase = %s, want undefined without data", r.Phase)
	}
}

func TestTrendPhaseOnDirectionalResult(t *testing.T) {
	ta := NewTrendAnalyzer(5)
	ctx := NewContext("BTCUSDT", market.TF1h, zigzag(120, 1000, 5, 30))

	if err := ta.Analyze(ctx); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	r := ctx.Results.Trend
	if r.Direction == Bullish && r.Phase == PhaseUndefined {
		t.Error("directional trend left with undefined phase")
	}
}
