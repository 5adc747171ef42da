package analysis

import (
	"testing"

	"github.com/traderboter/Back-to-OLD-method-sub000/internal/market"
)

func volumeSeries(n int, lastVolume float64, lastBullish bool) []market.Kline {
	klines := make([]market.Kline, n)
	for i := 0; i < n; i++ {
		klines[i] = market.Kline{
			Open: 100, High: 101, Low: 99, Close: 100.5,
			Volume: 100, CloseTime: int64(i) * 60000,
		}
	}
	last := &klines[n-1]
	last.Volume = lastVolume
	if lastBullish {
		last.Open, last.Close = 100, 101
	} else {
		last.Open, last.Close = 101, 100
	}
	return klines
}

func TestVolumeConfirmedFromIndicators(t *testing.T) {
	va := NewVolumeAnalyzer(1.2)
	ctx := NewContext("BTCUSDT", market.TF1h, volumeSeries(30, 100, true))
	ctx.Indicators = &market.IndicatorSet{VolumeRatio: 1.5}

	if err := va.Analyze(ctx); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	r := ctx.Results.Volume
	if !r.Confirmed {
		t.Error("ratio 1.5 not confirmed against a 1.2 requirement")
	}
	if r.Direction != Bullish {
		t.Errorf("direction = %s, want bullish (confirmed on a bullish candle)", r.Direction)
	}
	if r.VolumeRatio != 1.5 {
		t.Errorf("ratio = %v, want the indicator-provided 1.5", r.VolumeRatio)
	}
}

func TestVolumeBelowRatioUnconfirmed(t *testing.T) {
	va := NewVolumeAnalyzer(1.2)
	ctx := NewContext("BTCUSDT", market.TF1h, volumeSeries(30, 100, true))
	ctx.Indicators = &market.IndicatorSet{VolumeRatio: 1.0}

	if err := va.Analyze(ctx); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	r := ctx.Results.Volume
	if r.Confirmed {
		t.Error("average volume counted as confirmation")
	}
	if r.Direction != Neutral {
		t.Errorf("direction = %s, want neutral when unconfirmed", r.Direction)
	}
}

func TestVolumeSpikeComputedFromKlines(t *testing.T) {
	va := NewVolumeAnalyzer(1.2)
	// No indicator set: the ratio falls back to the rolling average, and
	// a 3x spike on a bullish candle confirms at full strength.
	ctx := NewContext("BTCUSDT", market.TF1h, volumeSeries(30, 300, true))

	if err := va.Analyze(ctx); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	r := ctx.Results.Volume
	if !r.Confirmed {
		t.Errorf("3x volume spike unconfirmed (ratio %v)", r.VolumeRatio)
	}
	if r.Strength != 3.0 {
		t.Errorf("strength = %v, want 3.0 for a 2x+ ratio", r.Strength)
	}
}

func TestVolumeConfirmedBearishCandle(t *testing.T) {
	va := NewVolumeAnalyzer(1.2)
	ctx := NewContext("BTCUSDT", market.TF1h, volumeSeries(30, 100, false))
	ctx.Indicators = &market.IndicatorSet{VolumeRatio: 1.8}

	if err := va.Analyze(ctx); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if r := ctx.Results.Volume; r.Direction != Bearish {
		t.Errorf("direction = %s, want bearish (confirmed on a bearish candle)", r.Direction)
	}
}

func TestVolumeInsufficientData(t *testing.T) {
	va := NewVolumeAnalyzer(1.2)
	ctx := NewContext("BTCUSDT", market.TF1h, volumeSeries(10, 300, true))

	if err := va.Analyze(ctx); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if r := ctx.Results.Volume; r.Status != StatusInsufficientData {
		t.Errorf("status = %s, want insufficient_data for 10 candles", r.Status)
	}
}
