package analysis

import (
	"testing"

	"github.com/traderboter/Back-to-OLD-method-sub000/internal/market"
)

// doji returns a body-less filler candle that triggers no pattern
func doji(price float64) market.Kline {
	return market.Kline{Open: price, High: price, Low: price, Close: price, Volume: 100}
}

func fillerSeries(n int, price float64) []market.Kline {
	klines := make([]market.Kline, n)
	for i := range klines {
		klines[i] = doji(price)
	}
	return klines
}

func TestBullishEngulfingDetected(t *testing.T) {
	pa := NewPatternsAnalyzer(0.5)
	klines := fillerSeries(12, 102)
	// Bearish candle fully engulfed by the following bullish one.
	klines[10] = market.Kline{Open: 105, High: 105.5, Low: 99.5, Close: 100, Volume: 100}
	klines[11] = market.Kline{Open: 99, High: 107.5, Low: 98.5, Close: 107, Volume: 100}

	ctx := NewContext("BTCUSDT", market.TF1h, klines)
	if err := pa.Analyze(ctx); err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	r := ctx.Results.Patterns
	found := false
	for _, p := range r.Patterns {
		if p.Name == "bullish_engulfing" {
			found = true
			if p.Direction != Bullish {
				t.Errorf("engulfing direction = %s, want bullish", p.Direction)
			}
			if p.Confidence < 0.5 || p.Confidence > 0.9 {
				t.Errorf("confidence = %v, want within [0.5, 0.9]", p.Confidence)
			}
		}
	}
	if !found {
		t.Fatalf("bullish engulfing not detected, got %+v", r.Patterns)
	}
	if r.Direction != Bullish {
		t.Errorf("aggregate direction = %s, want bullish", r.Direction)
	}
}

func TestBearishEngulfingDetected(t *testing.T) {
	pa := NewPatternsAnalyzer(0.5)
	klines := fillerSeries(12, 102)
	klines[10] = market.Kline{Open: 100, High: 105.5, Low: 99.5, Close: 105, Volume: 100}
	klines[11] = market.Kline{Open: 106, High: 106.5, Low: 98.5, Close: 99, Volume: 100}

	ctx := NewContext("BTCUSDT", market.TF1h, klines)
	if err := pa.Analyze(ctx); err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	r := ctx.Results.Patterns
	if r.Direction != Bearish {
		t.Fatalf("aggregate direction = %s, want bearish, patterns %+v", r.Direction, r.Patterns)
	}
}

func TestHammerDetected(t *testing.T) {
	pa := NewPatternsAnalyzer(0.5)
	klines := fillerSeries(12, 100)
	// Small body, long lower wick, nearly no upper wick.
	klines[11] = market.Kline{Open: 100, High: 101.4, Low: 97, Close: 101, Volume: 100}

	ctx := NewContext("BTCUSDT", market.TF1h, klines)
	if err := pa.Analyze(ctx); err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	r := ctx.Results.Patterns
	found := false
	for _, p := range r.Patterns {
		if p.Name == "hammer" && p.Direction == Bullish {
			found = true
		}
	}
	if !found {
		t.Fatalf("hammer not detected, got %+v", r.Patterns)
	}
}

func TestShootingStarDetected(t *testing.T) {
	pa := NewPatternsAnalyzer(0.5)
	klines := fillerSeries(12, 100)
	klines[11] = market.Kline{Open: 100, High: 103, Low: 98.7, Close: 99, Volume: 100}

	ctx := NewContext("BTCUSDT", market.TF1h, klines)
	if err := pa.Analyze(ctx); err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	r := ctx.Results.Patterns
	found := false
	for _, p := range r.Patterns {
		if p.Name == "shooting_star" && p.Direction == Bearish {
			found = true
		}
	}
	if !found {
		t.Fatalf("shooting star not detected, got %+v", r.Patterns)
	}
}

func TestMorningStarDetected(t *testing.T) {
	pa := NewPatternsAnalyzer(0.5)
	klines := fillerSeries(13, 105)
	// Long bearish candle, tiny middle body, bullish close past the
	// first candle's midpoint.
	klines[10] = market.Kline{Open: 110, High: 110.5, Low: 99.5, Close: 100, Volume: 100}
	klines[11] = market.Kline{Open: 99.8, High: 100.2, Low: 99.2, Close: 99.4, Volume: 100}
	klines[12] = market.Kline{Open: 100, High: 108.5, Low: 99.5, Close: 108, Volume: 100}

	ctx := NewContext("BTCUSDT", market.TF1h, klines)
	if err := pa.Analyze(ctx); err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	r := ctx.Results.Patterns
	found := false
	for _, p := range r.Patterns {
		if p.Name == "morning_star" {
			found = true
		}
	}
	if !found {
		t.Fatalf("morning star not detected, got %+v", r.Patterns)
	}
}

func TestNoPatternsOnFlatSeries(t *testing.T) {
	pa := NewPatternsAnalyzer(0.5)
	ctx := NewContext("BTCUSDT", market.TF1h, fillerSeries(20, 100))

	if err := pa.Analyze(ctx); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	r := ctx.Results.Patterns
	if len(r.Patterns) != 0 {
		t.Errorf("flat series produced patterns: %+v", r.Patterns)
	}
	if r.Direction != Neutral {
		t.Errorf("direction = %s, want neutral", r.Direction)
	}
}

func TestPatternsStrengthBounded(t *testing.T) {
	pa := NewPatternsAnalyzer(0.5)
	klines := fillerSeries(12, 102)
	klines[10] = market.Kline{Open: 105, High: 105.5, Low: 99.5, Close: 100, Volume: 100}
	klines[11] = market.Kline{Open: 99, High: 107.5, Low: 98.5, Close: 107, Volume: 100}

	ctx := NewContext("BTCUSDT", market.TF1h, klines)
	if err := pa.Analyze(ctx); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if s := ctx.Results.Patterns.Strength; s < 0 || s > 3 {
		t.Errorf("strength = %v, want within [0, 3]", s)
	}
}
