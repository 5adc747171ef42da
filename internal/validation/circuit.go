package validation

import (
	"fmt"
	"sync"
	"time"
)

// CircuitConfig holds signal-rate circuit breaker configuration
type CircuitConfig struct {
	Enabled                 bool `json:"enabled"`
	MaxSignalsPerHour       int  `json:"max_signals_per_hour"`
	MaxSignalsPerDay        int  `json:"max_signals_per_day"`
	PostLossCooldownMinutes int  `json:"post_loss_cooldown_minutes"`
}

// DefaultCircuitConfig returns safe defaults
func DefaultCircuitConfig() CircuitConfig {
	return CircuitConfig{
		Enabled:                 true,
		MaxSignalsPerHour:       3,
		MaxSignalsPerDay:        10,
		PostLossCooldownMinutes: 30,
	}
}

// CircuitBreaker rate-limits signal generation per symbol and enforces a
// cooldown after a losing trade. State is per-symbol so one symbol's
// losses never halt the others.
type CircuitBreaker struct {
	cfg      CircuitConfig
	mu       sync.Mutex
	signals  map[string][]time.Time
	lastLoss map[string]time.Time
	now      func() time.Time
}

// NewCircuitBreaker creates a circuit breaker
func NewCircuitBreaker(cfg CircuitConfig) *CircuitBreaker {
	return &CircuitBreaker{
		cfg:      cfg,
		signals:  make(map[string][]time.Time),
		lastLoss: make(map[string]time.Time),
		now:      time.Now,
	}
}

// Allow reports whether a new signal for the symbol is permitted
func (cb *CircuitBreaker) Allow(symbol string) (bool, string) {
	if !cb.cfg.Enabled {
		return true, ""
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := cb.now()
	cb.evictLocked(symbol, now)

	if loss, ok := cb.lastLoss[symbol]; ok {
		cooldown := time.Duration(cb.cfg.PostLossCooldownMinutes) * time.Minute
		if elapsed := now.Sub(loss); elapsed < cooldown {
			return false, fmt.Sprintf("post-loss cooldown active for %s, %s remaining",
				symbol, (cooldown - elapsed).Round(time.Second))
		}
		delete(cb.lastLoss, symbol)
	}

	hourly := 0
	for _, t := range cb.signals[symbol] {
		if now.Sub(t) <= time.Hour {
			hourly++
		}
	}
	if cb.cfg.MaxSignalsPerHour > 0 && hourly >= cb.cfg.MaxSignalsPerHour {
		return false, fmt.Sprintf("hourly signal limit reached for %s (%d/%d)",
			symbol, hourly, cb.cfg.MaxSignalsPerHour)
	}

	daily := len(cb.signals[symbol])
	if cb.cfg.MaxSignalsPerDay > 0 && daily >= cb.cfg.MaxSignalsPerDay {
		return false, fmt.Sprintf("daily signal limit reached for %s (%d/%d)",
			symbol, daily, cb.cfg.MaxSignalsPerDay)
	}

	return true, ""
}

// RecordSignal registers a generated signal against the symbol's limits
func (cb *CircuitBreaker) RecordSignal(symbol string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	now := cb.now()
	cb.evictLocked(symbol, now)
	cb.signals[symbol] = append(cb.signals[symbol], now)
}

// RecordLoss starts the post-loss cooldown for the symbol
func (cb *CircuitBreaker) RecordLoss(symbol string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.lastLoss[symbol] = cb.now()
}

// evictLocked drops entries older than 24h. Caller holds the lock.
func (cb *CircuitBreaker) evictLocked(symbol string, now time.Time) {
	kept := cb.signals[symbol][:0]
	for _, t := range cb.signals[symbol] {
		if now.Sub(t) <= 24*time.Hour {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		delete(cb.signals, symbol)
	} else {
		cb.signals[symbol] = kept
	}
}
