// Package cache stores computed signal scores keyed by the candle that
// produced them, so repeated scans within the same candle reuse work.
package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/traderboter/Back-to-OLD-method-sub000/internal/market"
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/signal"
)

// Key identifies one scored candle
func Key(symbol string, tf market.Timeframe, closeTime time.Time) string {
	return fmt.Sprintf("%s:%s:%d", symbol, tf, closeTime.UnixMilli())
}

// ScoreCache is the interface the orchestrator depends on
type ScoreCache interface {
	Get(key string) *signal.Score
	Put(key string, score *signal.Score)
	EvictExpired()
}

type cachedScore struct {
	score     *signal.Score
	expiresAt time.Time
}

// MemoryCache is an in-process TTL cache
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]*cachedScore
	ttl     time.Duration
}

// NewMemoryCache creates a cache with the given TTL
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]*cachedScore),
		ttl:     ttl,
	}
}

// Get returns the cached score, or nil if missing or expired
func (mc *MemoryCache) Get(key string) *signal.Score {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	cached, ok := mc.entries[key]
	if !ok {
		return nil
	}
	if time.Now().After(cached.expiresAt) {
		return nil
	}
	return cached.score
}

// Put stores a score with the configured TTL
func (mc *MemoryCache) Put(key string, score *signal.Score) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.entries[key] = &cachedScore{
		score:     score,
		expiresAt: time.Now().Add(mc.ttl),
	}
}

// EvictExpired removes expired entries
func (mc *MemoryCache) EvictExpired() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	now := time.Now()
	for key, cached := range mc.entries {
		if now.After(cached.expiresAt) {
			delete(mc.entries, key)
		}
	}
}

// Clear removes all entries
func (mc *MemoryCache) Clear() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.entries = make(map[string]*cachedScore)
}

// Len returns the number of entries including expired ones
func (mc *MemoryCache) Len() int {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return len(mc.entries)
}
