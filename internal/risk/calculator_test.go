package risk

import (
	"math"
	"testing"

	"github.com/traderboter/Back-to-OLD-method-sub000/internal/analysis"
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/logging"
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/market"
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/signal"
)

func contextWithATR(atr float64) *analysis.Context {
	ctx := analysis.NewContext("BTCUSDT", market.TF1h, nil)
	ctx.Results.Volatility = &analysis.VolatilityResult{
		ResultMeta:     analysis.ResultMeta{Status: analysis.StatusOK, Direction: analysis.Neutral},
		ATRValue:       atr,
		RiskMultiplier: 1.0,
	}
	return ctx
}

func TestATRFallbackLong(t *testing.T) {
	calc := NewCalculator(nil, logging.Default())
	ctx := contextWithATR(500)

	levels := calc.CalculateLevels(signal.Long, 50000, ctx)

	wantSL := 50000 - 500*2.0
	if math.Abs(levels.StopLoss-wantSL) > 1e-6 {
		t.Errorf("stop loss = %.2f, want %.2f", levels.StopLoss, wantSL)
	}
	if levels.Method != MethodATR {
		t.Errorf("method = %s, want %s", levels.Method, MethodATR)
	}
	// Target follows the preferred 2.0 RR from the 1000-point risk
	wantTP := 50000 + 1000*2.0
	if math.Abs(levels.TakeProfit-wantTP) > 1e-6 {
		t.Errorf("take profit = %.2f, want %.2f", levels.TakeProfit, wantTP)
	}
	if levels.RiskReward < 1.5 {
		t.Errorf("risk/reward %.2f below minimum", levels.RiskReward)
	}
}

func TestSupportBeyondThreeATRFallsToATR(t *testing.T) {
	calc := NewCalculator(nil, logging.Default())
	ctx := contextWithATR(500)
	// Support 2000 points away exceeds the 3*ATR=1500 acceptance window
	ctx.Results.SupportResistance = &analysis.SupportResistanceResult{
		ResultMeta:     analysis.ResultMeta{Status: analysis.StatusOK, Direction: analysis.Neutral},
		NearestSupport: 48000,
	}

	levels := calc.CalculateLevels(signal.Long, 50000, ctx)
	if levels.Method != MethodATR {
		t.Errorf("method = %s, want %s (support too far)", levels.Method, MethodATR)
	}
}

func TestSupportWithinThreeATRWins(t *testing.T) {
	calc := NewCalculator(nil, logging.Default())
	ctx := contextWithATR(500)
	ctx.Results.SupportResistance = &analysis.SupportResistanceResult{
		ResultMeta:     analysis.ResultMeta{Status: analysis.StatusOK, Direction: analysis.Neutral},
		NearestSupport: 49000,
	}

	levels := calc.CalculateLevels(signal.Long, 50000, ctx)
	if levels.Method != MethodSupportResistance {
		t.Fatalf("method = %s, want %s", levels.Method, MethodSupportResistance)
	}
	wantSL := 49000 * 0.999
	if math.Abs(levels.StopLoss-wantSL) > 1e-6 {
		t.Errorf("stop loss = %.4f, want %.4f", levels.StopLoss, wantSL)
	}
}

func TestMinimumStopDistanceWidening(t *testing.T) {
	calc := NewCalculator(nil, logging.Default())
	ctx := contextWithATR(500)
	// Support almost at entry makes a 50-point stop, below 0.5*ATR=250
	ctx.Results.SupportResistance = &analysis.SupportResistanceResult{
		ResultMeta:     analysis.ResultMeta{Status: analysis.StatusOK, Direction: analysis.Neutral},
		NearestSupport: 49999,
	}

	levels := calc.CalculateLevels(signal.Long, 50000, ctx)
	if risk := 50000 - levels.StopLoss; risk < 250-1e-6 {
		t.Errorf("risk distance %.2f below 0.5*ATR minimum 250", risk)
	}
}

func TestHarmonicMethodWins(t *testing.T) {
	calc := NewCalculator(nil, logging.Default())
	ctx := contextWithATR(500)
	ctx.Results.Harmonic = &analysis.HarmonicResult{
		ResultMeta: analysis.ResultMeta{Status: analysis.StatusOK, Direction: analysis.Bullish},
		Patterns: []analysis.HarmonicPattern{{
			Type: analysis.HarmonicGartley, Direction: analysis.Bullish,
			PointX: 53000, PointD: 49000, Confidence: 0.8,
		}},
	}

	levels := calc.CalculateLevels(signal.Long, 50000, ctx)
	if levels.Method != MethodHarmonic {
		t.Fatalf("method = %s, want %s", levels.Method, MethodHarmonic)
	}
	wantSL := 49000 * 0.99
	if math.Abs(levels.StopLoss-wantSL) > 1e-6 {
		t.Errorf("stop loss = %.2f, want %.2f", levels.StopLoss, wantSL)
	}
	if levels.TakeProfit != 53000 {
		t.Errorf("take profit = %.2f, want X point 53000", levels.TakeProfit)
	}
}

func TestExtendedHarmonicUsesExtensionTarget(t *testing.T) {
	calc := NewCalculator(nil, logging.Default())
	ctx := contextWithATR(500)
	ctx.Results.Harmonic = &analysis.HarmonicResult{
		ResultMeta: analysis.ResultMeta{Status: analysis.StatusOK, Direction: analysis.Bullish},
		Patterns: []analysis.HarmonicPattern{{
			Type: analysis.HarmonicButterfly, Direction: analysis.Bullish,
			PointX: 53000, PointD: 49000, Confidence: 0.8,
		}},
	}

	levels := calc.CalculateLevels(signal.Long, 50000, ctx)
	risk := 50000 - 49000*0.99
	wantTP := 50000 + risk*1.618
	if math.Abs(levels.TakeProfit-wantTP) > 1e-6 {
		t.Errorf("take profit = %.2f, want 1.618 extension %.2f", levels.TakeProfit, wantTP)
	}
}

func TestChannelMethod(t *testing.T) {
	calc := NewCalculator(nil, logging.Default())
	ctx := contextWithATR(500)
	ctx.Results.Channel = &analysis.ChannelResult{
		ResultMeta: analysis.ResultMeta{Status: analysis.StatusOK, Direction: analysis.Bullish},
		Type:       analysis.ChannelAscending,
		UpperBound: 52000,
		LowerBound: 49000,
	}

	levels := calc.CalculateLevels(signal.Long, 50000, ctx)
	if levels.Method != MethodChannel {
		t.Fatalf("method = %s, want %s", levels.Method, MethodChannel)
	}
	if math.Abs(levels.StopLoss-49000*0.99) > 1e-6 {
		t.Errorf("stop loss = %.2f, want lower bound - 1%%", levels.StopLoss)
	}
}

func TestDescendingChannelRejectedForLong(t *testing.T) {
	calc := NewCalculator(nil, logging.Default())
	ctx := contextWithATR(500)
	ctx.Results.Channel = &analysis.ChannelResult{
		ResultMeta: analysis.ResultMeta{Status: analysis.StatusOK, Direction: analysis.Bearish},
		Type:       analysis.ChannelDescending,
		UpperBound: 52000,
		LowerBound: 49000,
	}

	levels := calc.CalculateLevels(signal.Long, 50000, ctx)
	if levels.Method == MethodChannel {
		t.Error("descending channel must not supply LONG levels")
	}
}

func TestPercentageFallbackWithoutATR(t *testing.T) {
	calc := NewCalculator(nil, logging.Default())
	ctx := analysis.NewContext("BTCUSDT", market.TF1h, nil)

	levels := calc.CalculateLevels(signal.Short, 50000, ctx)
	if levels.Method != MethodPercentage {
		t.Fatalf("method = %s, want %s", levels.Method, MethodPercentage)
	}
	wantSL := 50000 * 1.02
	if math.Abs(levels.StopLoss-wantSL) > 1e-6 {
		t.Errorf("stop loss = %.2f, want %.2f", levels.StopLoss, wantSL)
	}
}

func TestEmergencyFallbackOnBadInput(t *testing.T) {
	calc := NewCalculator(nil, logging.Default())
	ctx := contextWithATR(500)

	levels := calc.CalculateLevels(signal.Long, 0, ctx)
	if levels == nil {
		t.Fatal("calculator must never return nil")
	}
	if levels.Method != MethodPercentage {
		t.Errorf("method = %s, want emergency percentage", levels.Method)
	}
	if levels.RiskReward != 1.5 {
		t.Errorf("emergency risk/reward = %.2f, want configured minimum 1.5", levels.RiskReward)
	}
}

func TestRiskRewardFloorEnforced(t *testing.T) {
	calc := NewCalculator(nil, logging.Default())
	ctx := contextWithATR(500)
	// Resistance just above entry would drag the target below minimum RR;
	// the adjustment must be refused and the floor kept.
	ctx.Results.SupportResistance = &analysis.SupportResistanceResult{
		ResultMeta:        analysis.ResultMeta{Status: analysis.StatusOK, Direction: analysis.Neutral},
		NearestSupport:    49000,
		NearestResistance: 50200,
	}

	levels := calc.CalculateLevels(signal.Long, 50000, ctx)
	if levels.RiskReward < 1.5 {
		t.Errorf("risk/reward %.2f below 1.5 floor", levels.RiskReward)
	}
}
