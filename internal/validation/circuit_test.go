package validation

import (
	"strings"
	"testing"
	"time"
)

// clockAt wires an adjustable clock into the breaker and returns the
// advance function.
func clockAt(cb *CircuitBreaker, start time.Time) func(time.Duration) {
	current := start
	cb.now = func() time.Time { return current }
	return func(d time.Duration) { current = current.Add(d) }
}

func TestCircuitHourlyLimit(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitConfig())
	clockAt(cb, time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC))

	for i := 0; i < 3; i++ {
		if ok, reason := cb.Allow("BTCUSDT"); !ok {
			t.Fatalf("signal %d blocked: %s", i, reason)
		}
		cb.RecordSignal("BTCUSDT")
	}

	ok, reason := cb.Allow("BTCUSDT")
	if ok {
		t.Fatal("fourth signal in the hour allowed")
	}
	if !strings.Contains(reason, "hourly") {
		t.Errorf("reason = %q, want hourly limit", reason)
	}
}

func TestCircuitHourlyWindowSlides(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitConfig())
	advance := clockAt(cb, time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC))

	for i := 0; i < 3; i++ {
		cb.RecordSignal("BTCUSDT")
	}
	advance(61 * time.Minute)

	if ok, reason := cb.Allow("BTCUSDT"); !ok {
		t.Errorf("signal blocked after the hourly window passed: %s", reason)
	}
}

func TestCircuitDailyLimit(t *testing.T) {
	cfg := DefaultCircuitConfig()
	cfg.MaxSignalsPerHour = 100
	cfg.MaxSignalsPerDay = 5
	cb := NewCircuitBreaker(cfg)
	advance := clockAt(cb, time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC))

	for i := 0; i < 5; i++ {
		cb.RecordSignal("BTCUSDT")
		advance(2 * time.Hour)
	}

	ok, reason := cb.Allow("BTCUSDT")
	if ok {
		t.Fatal("sixth signal of the day allowed")
	}
	if !strings.Contains(reason, "daily") {
		t.Errorf("reason = %q, want daily limit", reason)
	}

	// The 24h window is rolling, so old entries age out.
	advance(20 * time.Hour)
	if ok, reason := cb.Allow("BTCUSDT"); !ok {
		t.Errorf("signal blocked after old entries aged out: %s", reason)
	}
}

func TestCircuitPostLossCooldown(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitConfig())
	advance := clockAt(cb, time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC))

	cb.RecordLoss("BTCUSDT")

	ok, reason := cb.Allow("BTCUSDT")
	if ok {
		t.Fatal("signal allowed during post-loss cooldown")
	}
	if !strings.Contains(reason, "cooldown") {
		t.Errorf("reason = %q, want cooldown", reason)
	}

	// Other symbols are unaffected.
	if ok, reason := cb.Allow("ETHUSDT"); !ok {
		t.Errorf("unrelated symbol blocked: %s", reason)
	}

	advance(31 * time.Minute)
	if ok, reason := cb.Allow("BTCUSDT"); !ok {
		t.Errorf("signal blocked after cooldown expired: %s", reason)
	}
}

func TestCircuitDisabled(t *testing.T) {
	cfg := DefaultCircuitConfig()
	cfg.Enabled = false
	cb := NewCircuitBreaker(cfg)

	cb.RecordLoss("BTCUSDT")
	for i := 0; i < 20; i++ {
		cb.RecordSignal("BTCUSDT")
	}

	if ok, _ := cb.Allow("BTCUSDT"); !ok {
		t.Error("disabled breaker blocked a signal")
	}
}

func TestHistoryTrailingWinRate(t *testing.T) {
	h := NewHistory()
	outcomes := []bool{true, true, false, true, false, true, true, true}
	for _, win := range outcomes {
		h.ClosePosition("BTCUSDT", win)
	}

	rate, samples := h.TrailingWinRate(0)
	if samples != len(outcomes) {
		t.Errorf("samples = %d, want %d", samples, len(outcomes))
	}
	if rate != 0.75 {
		t.Errorf("rate = %v, want 0.75", rate)
	}

	// Windowed rate looks at the most recent trades only.
	rate, samples = h.TrailingWinRate(4)
	if samples != 4 {
		t.Errorf("windowed samples = %d, want 4", samples)
	}
	if rate != 0.75 {
		t.Errorf("windowed rate = %v, want 0.75", rate)
	}
}

func TestHistoryExposureTracking(t *testing.T) {
	h := NewHistory()
	h.OpenPosition(Position{Symbol: "BTCUSDT", Direction: "LONG", Notional: 1000})
	h.OpenPosition(Position{Symbol: "ETHUSDT", Direction: "SHORT", Notional: 500})

	if got := h.TotalExposure(""); got != 1500 {
		t.Errorf("total exposure = %v, want 1500", got)
	}
	if got := h.TotalExposure("LONG"); got != 1000 {
		t.Errorf("LONG exposure = %v, want 1000", got)
	}

	h.ClosePosition("BTCUSDT", true)
	if h.PositionFor("BTCUSDT") != nil {
		t.Error("closed position still reported open")
	}
	if got := h.TotalExposure(""); got != 500 {
		t.Errorf("total exposure after close = %v, want 500", got)
	}
}
