package validation

import (
	"strings"
	"testing"
	"time"

	"github.com/traderboter/Back-to-OLD-method-sub000/internal/analysis"
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/logging"
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/market"
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/signal"
)

// stubWinRate returns a fixed trailing win rate
type stubWinRate struct {
	rate    float64
	samples int
}

func (s stubWinRate) TrailingWinRate(int) (float64, int) { return s.rate, s.samples }

func validSignal() *signal.Info {
	info := signal.NewInfo("BTCUSDT", market.TF1h, signal.Long)
	info.EntryPrice = 50000
	info.StopLoss = 49000
	info.TakeProfit = 52000
	info.RiskReward = 2.0
	info.Score = &signal.Score{Direction: signal.Long, FinalScore: 85}
	return info
}

func newTestValidator(cfg *Config) *Validator {
	return NewValidator(cfg, NewHistory(), logging.Default())
}

func lastCheck(t *testing.T, sig *signal.Info) signal.CheckResult {
	t.Helper()
	if len(sig.Checks) == 0 {
		t.Fatal("no checks recorded")
	}
	return sig.Checks[len(sig.Checks)-1]
}

func TestValidateCleanSignalPasses(t *testing.T) {
	v := newTestValidator(nil)
	sig := validSignal()

	if !v.Validate(sig, nil) {
		t.Fatalf("valid signal rejected: %+v", lastCheck(t, sig))
	}
	if !sig.Valid {
		t.Error("signal not marked valid")
	}
	if len(sig.Checks) != 10 {
		t.Errorf("recorded %d checks, want all 10 gates", len(sig.Checks))
	}
	for _, c := range sig.Checks {
		if !c.Passed {
			t.Errorf("gate %s recorded as failed on a passing signal", c.Name)
		}
	}
}

func TestValidateShortCircuitsOnFirstFailure(t *testing.T) {
	v := newTestValidator(nil)
	sig := validSignal()
	sig.StopLoss = 51000 // above entry for LONG

	if v.Validate(sig, nil) {
		t.Fatal("inverted stop loss accepted")
	}
	if sig.Valid {
		t.Error("signal left marked valid after rejection")
	}
	// basic_fields passes, price_ordering fails, nothing after runs.
	if len(sig.Checks) != 2 {
		t.Errorf("recorded %d checks, want 2 (chain must stop at first failure)", len(sig.Checks))
	}
	last := lastCheck(t, sig)
	if last.Name != "price_ordering" || last.Passed {
		t.Errorf("last check = %+v, want failed price_ordering", last)
	}
}

func TestValidateShortPriceOrdering(t *testing.T) {
	v := newTestValidator(nil)
	sig := signal.NewInfo("BTCUSDT", market.TF1h, signal.Short)
	sig.EntryPrice = 50000
	sig.StopLoss = 51000
	sig.TakeProfit = 48000
	sig.RiskReward = 2.0
	sig.Score = &signal.Score{Direction: signal.Short, FinalScore: 85}

	if !v.Validate(sig, nil) {
		t.Fatalf("well-formed SHORT rejected: %+v", lastCheck(t, sig))
	}
}

func TestValidateRiskRewardFloor(t *testing.T) {
	v := newTestValidator(nil)
	sig := validSignal()
	sig.RiskReward = 1.2

	if v.Validate(sig, nil) {
		t.Fatal("sub-minimum risk/reward accepted")
	}
	if last := lastCheck(t, sig); last.Name != "risk_limits" {
		t.Errorf("failed at %s, want risk_limits", last.Name)
	}
}

func TestValidateMaxRiskPercent(t *testing.T) {
	v := newTestValidator(nil)
	sig := validSignal()
	sig.StopLoss = 45000 // 10% stop distance against the 5% cap
	sig.TakeProfit = 60000
	sig.RiskReward = 2.0

	if v.Validate(sig, nil) {
		t.Fatal("oversized position risk accepted")
	}
	if last := lastCheck(t, sig); last.Name != "risk_limits" {
		t.Errorf("failed at %s, want risk_limits", last.Name)
	}
}

func TestValidateDuplicatePosition(t *testing.T) {
	v := newTestValidator(nil)
	v.History().OpenPosition(Position{Symbol: "BTCUSDT", Direction: signal.Long, Notional: 1000})

	sig := validSignal()
	if v.Validate(sig, nil) {
		t.Fatal("duplicate same-direction position accepted")
	}
	if last := lastCheck(t, sig); last.Name != "correlation" {
		t.Errorf("failed at %s, want correlation", last.Name)
	}
}

func TestValidateCorrelatedGroup(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Correlation.Groups = [][]string{{"BTCUSDT", "ETHUSDT"}}
	v := newTestValidator(cfg)
	v.History().OpenPosition(Position{Symbol: "ETHUSDT", Direction: signal.Long, Notional: 1000})

	sig := validSignal()
	if v.Validate(sig, nil) {
		t.Fatal("correlated same-direction position accepted")
	}
	if last := lastCheck(t, sig); last.Name != "correlation" {
		t.Errorf("failed at %s, want correlation", last.Name)
	}

	// The opposite direction on a correlated symbol is fine.
	v2 := newTestValidator(cfg)
	v2.History().OpenPosition(Position{Symbol: "ETHUSDT", Direction: signal.Short, Notional: 1000})
	sig2 := validSignal()
	if !v2.Validate(sig2, nil) {
		t.Errorf("opposite-direction correlated position rejected: %+v", lastCheck(t, sig2))
	}
}

func TestAntiTrendPenaltyReducesScoreWithoutRejecting(t *testing.T) {
	v := newTestValidator(nil)
	v.SetReferenceTrend(analysis.Bullish)

	sig := signal.NewInfo("ETHUSDT", market.TF1h, signal.Short)
	sig.EntryPrice = 3000
	sig.StopLoss = 3060
	sig.TakeProfit = 2880
	sig.RiskReward = 2.0
	sig.Score = &signal.Score{Direction: signal.Short, FinalScore: 90}

	if !v.Validate(sig, nil) {
		t.Fatalf("anti-trend signal rejected outright: %+v", lastCheck(t, sig))
	}
	if sig.Score.FinalScore != 81 {
		t.Errorf("FinalScore = %v, want 81 after the 0.9 penalty", sig.Score.FinalScore)
	}
	found := false
	for _, f := range sig.KeyFactors {
		if strings.Contains(f, "against") {
			found = true
		}
	}
	if !found {
		t.Error("penalty not noted in key factors")
	}
}

func TestValidateExtremeVolatilityRegime(t *testing.T) {
	v := newTestValidator(nil)
	ctx := analysis.NewContext("BTCUSDT", market.TF1h, nil)
	ctx.Regime = &market.RegimeInfo{Regime: market.RegimeExtreme}

	sig := validSignal()
	if v.Validate(sig, ctx) {
		t.Fatal("extreme regime signal accepted")
	}
	if last := lastCheck(t, sig); last.Name != "volatility_regime" {
		t.Errorf("failed at %s, want volatility_regime", last.Name)
	}
}

func TestValidateVolatilityPercentileCutoff(t *testing.T) {
	v := newTestValidator(nil)
	ctx := analysis.NewContext("BTCUSDT", market.TF1h, nil)
	ctx.Regime = &market.RegimeInfo{Regime: market.RegimeVolatile, VolatilityPercentile: 96}

	sig := validSignal()
	if v.Validate(sig, ctx) {
		t.Fatal("top-percentile volatility accepted")
	}
}

func TestValidateHTFVolumeRequirement(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RequireHTFVolume = true
	v := newTestValidator(cfg)

	ctx := analysis.NewContext("BTCUSDT", market.TF1h, nil)
	ctx.Results.HTF = &analysis.HTFResult{
		ResultMeta: analysis.ResultMeta{Status: analysis.StatusOK, Direction: analysis.Bullish},
		Aligned:    true,
	}
	ctx.Results.Volume = &analysis.VolumeResult{
		ResultMeta: analysis.ResultMeta{Status: analysis.StatusOK, Direction: analysis.Bullish},
		Confirmed:  false,
	}

	sig := validSignal()
	if v.Validate(sig, ctx) {
		t.Fatal("unconfirmed volume accepted with the HTF volume gate on")
	}
	if last := lastCheck(t, sig); last.Name != "htf_volume" {
		t.Errorf("failed at %s, want htf_volume", last.Name)
	}

	ctx.Results.Volume.Confirmed = true
	sig2 := validSignal()
	if !v.Validate(sig2, ctx) {
		t.Errorf("aligned and confirmed signal rejected: %+v", lastCheck(t, sig2))
	}
}

func TestValidateMaxOpenPositions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Portfolio.MaxOpenPositions = 1
	v := newTestValidator(cfg)
	v.History().OpenPosition(Position{Symbol: "SOLUSDT", Direction: signal.Short, Notional: 1000})

	sig := validSignal()
	if v.Validate(sig, nil) {
		t.Fatal("signal accepted with the position book full")
	}
	if last := lastCheck(t, sig); last.Name != "portfolio_limits" {
		t.Errorf("failed at %s, want portfolio_limits", last.Name)
	}
}

func TestValidateDirectionalExposureCap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Portfolio.MaxDirectionalExposure = 1500
	v := newTestValidator(cfg)
	v.History().OpenPosition(Position{Symbol: "SOLUSDT", Direction: signal.Long, Notional: 1000})

	// 1000 open + 1000 assumed notional exceeds the 1500 LONG cap.
	sig := validSignal()
	if v.Validate(sig, nil) {
		t.Fatal("signal accepted beyond directional exposure cap")
	}
	if last := lastCheck(t, sig); last.Name != "portfolio_limits" {
		t.Errorf("failed at %s, want portfolio_limits", last.Name)
	}
}

func TestValidateTimeFilter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TimeFilter = TimeFilterConfig{Enabled: true, BlockedHoursUTC: []int{14}}
	v := newTestValidator(cfg)
	v.now = func() time.Time {
		return time.Date(2024, 6, 3, 14, 30, 0, 0, time.UTC)
	}

	sig := validSignal()
	if v.Validate(sig, nil) {
		t.Fatal("signal accepted during a blocked hour")
	}
	if last := lastCheck(t, sig); last.Name != "time_filter" {
		t.Errorf("failed at %s, want time_filter", last.Name)
	}

	v.now = func() time.Time {
		return time.Date(2024, 6, 3, 15, 30, 0, 0, time.UTC)
	}
	sig2 := validSignal()
	if !v.Validate(sig2, nil) {
		t.Errorf("signal rejected outside blocked hours: %+v", lastCheck(t, sig2))
	}
}

func TestAdaptiveThresholdRelaxesOnHotStreak(t *testing.T) {
	v := newTestValidator(nil)
	v.SetWinRateSource(stubWinRate{rate: 0.75, samples: 20})

	// 0.75 >= 0.60+0.10 relaxes the bar to 60*0.80 = 48.
	sig := validSignal()
	sig.Score.FinalScore = 50
	if !v.Validate(sig, nil) {
		t.Errorf("score 50 rejected under relaxed threshold: %+v", lastCheck(t, sig))
	}
}

func TestAdaptiveThresholdTightensOnColdStreak(t *testing.T) {
	v := newTestValidator(nil)
	v.SetWinRateSource(stubWinRate{rate: 0.25, samples: 20})

	// 0.25 < 0.40-0.10 raises the bar to 60*1.20 = 72.
	sig := validSignal()
	sig.Score.FinalScore = 70
	if v.Validate(sig, nil) {
		t.Fatal("score 70 accepted under tightened threshold")
	}
	if last := lastCheck(t, sig); last.Name != "adaptive_score" {
		t.Errorf("failed at %s, want adaptive_score", last.Name)
	}
}

func TestAdaptiveThresholdIgnoresThinSamples(t *testing.T) {
	v := newTestValidator(nil)
	v.SetWinRateSource(stubWinRate{rate: 0.1, samples: 3})

	// Below MinSamples the base threshold of 60 applies unchanged.
	sig := validSignal()
	sig.Score.FinalScore = 65
	if !v.Validate(sig, nil) {
		t.Errorf("score 65 rejected at base threshold: %+v", lastCheck(t, sig))
	}
}

func TestValidateRegistersHistory(t *testing.T) {
	v := newTestValidator(nil)
	sig := validSignal()
	if !v.Validate(sig, nil) {
		t.Fatalf("valid signal rejected: %+v", lastCheck(t, sig))
	}

	// A validated signal counts against the symbol's circuit limits.
	v2 := newTestValidator(nil)
	for i := 0; i < 3; i++ {
		s := validSignal()
		if !v2.Validate(s, nil) {
			t.Fatalf("signal %d rejected: %+v", i, lastCheck(t, s))
		}
	}
	s := validSignal()
	if v2.Validate(s, nil) {
		t.Fatal("fourth signal in the hour accepted past the circuit limit")
	}
	if last := lastCheck(t, s); last.Name != "circuit_breaker" {
		t.Errorf("failed at %s, want circuit_breaker", last.Name)
	}
}
