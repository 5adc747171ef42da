package scoring

import (
	"testing"

	"github.com/traderboter/Back-to-OLD-method-sub000/internal/analysis"
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/logging"
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/market"
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/signal"
)

func testContext(t *testing.T) *analysis.Context {
	t.Helper()

	klines := make([]market.Kline, 60)
	price := 100.0
	for i := range klines {
		klines[i] = market.Kline{
			OpenTime: int64(i) * 60_000,
			Open:     price, High: price + 1, Low: price - 1, Close: price + 0.5,
			Volume:    1000,
			CloseTime: int64(i+1)*60_000 - 1,
		}
		price += 0.5
	}

	ctx := analysis.NewContext("BTCUSDT", market.TF1h, klines)
	ctx.Results.Trend = &analysis.TrendResult{
		ResultMeta: analysis.ResultMeta{Status: analysis.StatusOK, Direction: analysis.Bullish, Strength: 2.5},
		Phase:      analysis.PhaseDeveloping,
	}
	ctx.Results.Momentum = &analysis.MomentumResult{
		ResultMeta:    analysis.ResultMeta{Status: analysis.StatusOK, Direction: analysis.Bullish, Strength: 2.0},
		RSI:           62,
		MACDDirection: analysis.Bullish,
		MACDType:      analysis.MACDTypeA,
	}
	ctx.Results.Volume = &analysis.VolumeResult{
		ResultMeta:  analysis.ResultMeta{Status: analysis.StatusOK, Direction: analysis.Bullish, Strength: 1.5},
		Confirmed:   true,
		VolumeRatio: 1.6,
	}
	return ctx
}

func TestCalculateScoreRejectsNeutralDirection(t *testing.T) {
	scorer := NewScorer(nil, logging.Default())
	ctx := testContext(t)

	if score := scorer.CalculateScore(ctx, signal.Neutral); score != nil {
		t.Errorf("expected nil score for neutral direction, got %+v", score)
	}
}

func TestCalculateScoreRequiresMandatoryResults(t *testing.T) {
	scorer := NewScorer(nil, logging.Default())
	ctx := testContext(t)
	ctx.Results.Volume = nil

	if score := scorer.CalculateScore(ctx, signal.Long); score != nil {
		t.Errorf("expected nil score without volume result, got %+v", score)
	}
}

func TestCalculateScoreBounds(t *testing.T) {
	scorer := NewScorer(nil, logging.Default())
	ctx := testContext(t)

	score := scorer.CalculateScore(ctx, signal.Long)
	if score == nil {
		t.Fatal("expected a score")
	}

	if score.BaseScore < 0 || score.BaseScore > 100 {
		t.Errorf("base score %.2f outside [0,100]", score.BaseScore)
	}
	if score.ConfluenceBonus < 0 || score.ConfluenceBonus > 0.5 {
		t.Errorf("confluence bonus %.3f outside [0,0.5]", score.ConfluenceBonus)
	}
	if score.FinalScore < 0 {
		t.Errorf("final score %.2f negative", score.FinalScore)
	}
	if score.Confidence < 0 || score.Confidence > 1 {
		t.Errorf("confidence %.3f outside [0,1]", score.Confidence)
	}
}

func TestCalculateScoreIsDeterministic(t *testing.T) {
	scorer := NewScorer(nil, logging.Default())
	ctx := testContext(t)

	first := scorer.CalculateScore(ctx, signal.Long)
	second := scorer.CalculateScore(ctx, signal.Long)
	if first == nil || second == nil {
		t.Fatal("expected scores")
	}
	if first.FinalScore != second.FinalScore {
		t.Errorf("final score changed between identical calls: %.4f vs %.4f",
			first.FinalScore, second.FinalScore)
	}
}

func TestOpposedDirectionScoresLower(t *testing.T) {
	scorer := NewScorer(nil, logging.Default())
	ctx := testContext(t)

	long := scorer.CalculateScore(ctx, signal.Long)
	short := scorer.CalculateScore(ctx, signal.Short)
	if long == nil || short == nil {
		t.Fatal("expected scores for both directions")
	}
	if short.FinalScore >= long.FinalScore {
		t.Errorf("short score %.2f should be below long score %.2f on a bullish context",
			short.FinalScore, long.FinalScore)
	}
}

func TestPatternQualityMultiplierCap(t *testing.T) {
	scorer := NewScorer(nil, logging.Default())
	ctx := testContext(t)

	// 8 patterns would be 1.8 uncapped; the multiplier must stop at 1.5
	patterns := make([]analysis.DetectedPattern, 8)
	for i := range patterns {
		patterns[i] = analysis.DetectedPattern{
			Name: "bullish_engulfing", Direction: analysis.Bullish, Confidence: 0.7,
		}
	}
	ctx.Results.Patterns = &analysis.PatternsResult{
		ResultMeta: analysis.ResultMeta{Status: analysis.StatusOK, Direction: analysis.Bullish, Strength: 2},
		Patterns:   patterns,
	}

	score := scorer.CalculateScore(ctx, signal.Long)
	if score == nil {
		t.Fatal("expected a score")
	}
	if score.Multipliers.PatternQuality > 1.5 {
		t.Errorf("pattern quality multiplier %.2f exceeds 1.5 cap", score.Multipliers.PatternQuality)
	}
}

func TestOldMethodScoreCeiling(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Method = MethodOld
	scorer := NewScorer(cfg, logging.Default())

	ctx := testContext(t)
	ctx.RiskReward = 4.0
	ctx.Results.HTF = &analysis.HTFResult{
		ResultMeta: analysis.ResultMeta{Status: analysis.StatusOK, Direction: analysis.Bullish, Strength: 3},
		Aligned:    true,
		Structure:  1.0,
	}

	score := scorer.CalculateScore(ctx, signal.Long)
	if score == nil {
		t.Fatal("expected a score")
	}
	if score.FinalScore > 200 {
		t.Errorf("old method final score %.2f exceeds 200 ceiling", score.FinalScore)
	}
}

func TestConfluenceBonusIncludesRiskReward(t *testing.T) {
	scorer := NewScorer(nil, logging.Default())

	base := testContext(t)
	without := scorer.CalculateScore(base, signal.Long)

	withRR := testContext(t)
	withRR.RiskReward = 4.0
	with := scorer.CalculateScore(withRR, signal.Long)

	if without == nil || with == nil {
		t.Fatal("expected scores")
	}
	if with.ConfluenceBonus <= without.ConfluenceBonus {
		t.Errorf("rr 4.0 should raise confluence bonus: %.3f vs %.3f",
			with.ConfluenceBonus, without.ConfluenceBonus)
	}
}
