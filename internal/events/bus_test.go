package events

import (
	"errors"
	"testing"
	"time"

	"github.com/traderboter/Back-to-OLD-method-sub000/internal/market"
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/signal"
)

func waitFor(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestSubscribeReceivesMatchingType(t *testing.T) {
	bus := NewEventBus()
	got := make(chan Event, 1)
	bus.Subscribe(EventSignalGenerated, func(ev Event) { got <- ev })

	sig := signal.NewInfo("BTCUSDT", market.TF1h, signal.Long)
	bus.PublishSignal(EventSignalGenerated, sig)

	ev := waitFor(t, got)
	if ev.Type != EventSignalGenerated {
		t.Errorf("type = %s, want %s", ev.Type, EventSignalGenerated)
	}
	if ev.Data["symbol"] != "BTCUSDT" {
		t.Errorf("symbol = %v, want BTCUSDT", ev.Data["symbol"])
	}
	if ev.Timestamp.IsZero() {
		t.Error("timestamp not stamped on publish")
	}
}

func TestSubscribeIgnoresOtherTypes(t *testing.T) {
	bus := NewEventBus()
	got := make(chan Event, 1)
	bus.Subscribe(EventSignalValidated, func(ev Event) { got <- ev })

	bus.PublishError("orchestrator", "BTCUSDT", errors.New("boom"))

	select {
	case ev := <-got:
		t.Errorf("received unrelated event %s", ev.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscribeAllReceivesEverything(t *testing.T) {
	bus := NewEventBus()
	got := make(chan Event, 3)
	bus.SubscribeAll(func(ev Event) { got <- ev })

	bus.PublishScanCompleted(10, 2, 3*time.Second)
	bus.PublishError("scanner", "ETHUSDT", errors.New("fetch failed"))

	seen := map[EventType]bool{}
	for i := 0; i < 2; i++ {
		seen[waitFor(t, got).Type] = true
	}
	if !seen[EventScanCompleted] || !seen[EventError] {
		t.Errorf("seen = %v, want both scan completion and error", seen)
	}
}

func TestPublishSignalRejectedCarriesGate(t *testing.T) {
	bus := NewEventBus()
	got := make(chan Event, 1)
	bus.Subscribe(EventSignalRejected, func(ev Event) { got <- ev })

	sig := signal.NewInfo("BTCUSDT", market.TF1h, signal.Long)
	bus.PublishSignalRejected(sig, "risk_limits", "risk/reward 1.20 below minimum 1.50")

	ev := waitFor(t, got)
	if ev.Data["gate"] != "risk_limits" {
		t.Errorf("gate = %v, want risk_limits", ev.Data["gate"])
	}
	if ev.Data["reason"] == "" {
		t.Error("rejection reason missing")
	}
}
