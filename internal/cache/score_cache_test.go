package cache

import (
	"testing"
	"time"

	"github.com/traderboter/Back-to-OLD-method-sub000/internal/market"
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/signal"
)

func TestKeyIncludesCandleCloseTime(t *testing.T) {
	closeA := time.UnixMilli(1700000000000)
	closeB := time.UnixMilli(1700000300000)

	keyA := Key("BTCUSDT", market.TF5m, closeA)
	keyB := Key("BTCUSDT", market.TF5m, closeB)
	if keyA == keyB {
		t.Error("keys for different candle closes must differ")
	}
	if keyA != Key("BTCUSDT", market.TF5m, closeA) {
		t.Error("key is not deterministic")
	}
	if Key("BTCUSDT", market.TF5m, closeA) == Key("BTCUSDT", market.TF15m, closeA) {
		t.Error("keys for different timeframes must differ")
	}
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	mc := NewMemoryCache(time.Minute)
	key := Key("BTCUSDT", market.TF1h, time.UnixMilli(1700000000000))

	if mc.Get(key) != nil {
		t.Error("empty cache returned a score")
	}

	score := &signal.Score{Direction: signal.Long, FinalScore: 85}
	mc.Put(key, score)

	got := mc.Get(key)
	if got == nil {
		t.Fatal("cached score missing")
	}
	if got.FinalScore != 85 || got.Direction != signal.Long {
		t.Errorf("got %+v, want the stored score", got)
	}
}

func TestMemoryCacheTTLExpiry(t *testing.T) {
	mc := NewMemoryCache(10 * time.Millisecond)
	key := Key("BTCUSDT", market.TF1h, time.UnixMilli(1700000000000))
	mc.Put(key, &signal.Score{FinalScore: 85})

	time.Sleep(20 * time.Millisecond)

	if mc.Get(key) != nil {
		t.Error("expired entry still served")
	}
	// The stale entry stays resident until eviction runs.
	if mc.Len() != 1 {
		t.Errorf("Len = %d, want 1 before eviction", mc.Len())
	}
	mc.EvictExpired()
	if mc.Len() != 0 {
		t.Errorf("Len = %d, want 0 after eviction", mc.Len())
	}
}

func TestMemoryCacheEvictKeepsLiveEntries(t *testing.T) {
	mc := NewMemoryCache(time.Minute)
	live := Key("BTCUSDT", market.TF1h, time.UnixMilli(1700000000000))
	mc.Put(live, &signal.Score{FinalScore: 85})

	mc.EvictExpired()
	if mc.Get(live) == nil {
		t.Error("eviction dropped a live entry")
	}
}

func TestMemoryCacheClear(t *testing.T) {
	mc := NewMemoryCache(time.Minute)
	mc.Put("a", &signal.Score{})
	mc.Put("b", &signal.Score{})

	mc.Clear()
	if mc.Len() != 0 {
		t.Errorf("Len = %d after Clear, want 0", mc.Len())
	}
}
