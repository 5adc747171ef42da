package validation

import (
	"sync"
	"time"

	"github.com/traderboter/Back-to-OLD-method-sub000/internal/signal"
)

// Position is one open position tracked for correlation and exposure
// checks. Notional is in quote currency.
type Position struct {
	Symbol    string           `json:"symbol"`
	Direction signal.Direction `json:"direction"`
	Notional  float64          `json:"notional"`
	OpenedAt  time.Time        `json:"opened_at"`
}

// signalRecord is one validated signal in the rolling history
type signalRecord struct {
	Symbol    string
	Direction signal.Direction
	At        time.Time
}

// WinRateSource supplies the trailing win rate used by the adaptive
// score threshold. The returned sample count lets callers ignore rates
// built on too little history.
type WinRateSource interface {
	TrailingWinRate(window int) (rate float64, samples int)
}

// History is the validator's process-wide mutable state: rolling signal
// records, open positions and trade outcomes. Created at orchestrator
// construction, cleared at shutdown. All access is mutex-guarded so a
// multi-threaded embedding stays correct.
type History struct {
	mu        sync.RWMutex
	signals   []signalRecord
	positions map[string]*Position
	outcomes  []bool // true = win, oldest first
	maxKept   int
	now       func() time.Time
}

// NewHistory creates an empty history store
func NewHistory() *History {
	return &History{
		positions: make(map[string]*Position),
		maxKept:   500,
		now:       time.Now,
	}
}

// RecordSignal appends a validated signal to the rolling history
func (h *History) RecordSignal(sym string, dir signal.Direction) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.signals = append(h.signals, signalRecord{Symbol: sym, Direction: dir, At: h.now()})
	if len(h.signals) > h.maxKept {
		h.signals = h.signals[len(h.signals)-h.maxKept:]
	}
}

// OpenPosition registers an open position for exposure tracking
func (h *History) OpenPosition(p Position) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if p.OpenedAt.IsZero() {
		p.OpenedAt = h.now()
	}
	h.positions[p.Symbol] = &p
}

// ClosePosition removes the position and records the trade outcome
func (h *History) ClosePosition(symbol string, win bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.positions, symbol)
	h.outcomes = append(h.outcomes, win)
	if len(h.outcomes) > h.maxKept {
		h.outcomes = h.outcomes[len(h.outcomes)-h.maxKept:]
	}
}

// PositionFor returns the open position on the symbol, if any
func (h *History) PositionFor(symbol string) *Position {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if p, ok := h.positions[symbol]; ok {
		cp := *p
		return &cp
	}
	return nil
}

// OpenPositions returns a snapshot of all open positions
func (h *History) OpenPositions() []Position {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Position, 0, len(h.positions))
	for _, p := range h.positions {
		out = append(out, *p)
	}
	return out
}

// TotalExposure sums open notional, optionally filtered by direction
func (h *History) TotalExposure(dir signal.Direction) float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0.0
	for _, p := range h.positions {
		if dir == "" || p.Direction == dir {
			total += p.Notional
		}
	}
	return total
}

// TrailingWinRate returns the win fraction over the last window trades
func (h *History) TrailingWinRate(window int) (float64, int) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	outcomes := h.outcomes
	if window > 0 && len(outcomes) > window {
		outcomes = outcomes[len(outcomes)-window:]
	}
	if len(outcomes) == 0 {
		return 0, 0
	}
	wins := 0
	for _, w := range outcomes {
		if w {
			wins++
		}
	}
	return float64(wins) / float64(len(outcomes)), len(outcomes)
}

// Clear drops all rolling state
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.signals = nil
	h.outcomes = nil
	h.positions = make(map[string]*Position)
}
