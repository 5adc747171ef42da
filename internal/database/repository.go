package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/traderboter/Back-to-OLD-method-sub000/internal/logging"
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/signal"
)

// SignalRecord is one persisted signal row
type SignalRecord struct {
	ID              string    `json:"id"`
	Symbol          string    `json:"symbol"`
	Direction       string    `json:"direction"`
	EntryPrice      float64   `json:"entry_price"`
	StopLoss        float64   `json:"stop_loss"`
	TakeProfit      float64   `json:"take_profit"`
	RiskReward      float64   `json:"risk_reward"`
	StopLossMethod  string    `json:"stop_loss_method"`
	FinalScore      float64   `json:"final_score"`
	Confidence      float64   `json:"confidence"`
	ConfidenceGrade string    `json:"confidence_grade"`
	Valid           bool      `json:"valid"`
	CreatedAt       time.Time `json:"created_at"`
}

// Repository provides data access for signals and outcomes
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// HealthCheck performs a database health check
func (r *Repository) HealthCheck(ctx context.Context) error {
	return r.db.Pool.Ping(ctx)
}

// SaveSignal inserts a generated signal
func (r *Repository) SaveSignal(ctx context.Context, sig *signal.Info) error {
	audit, err := json.Marshal(sig.Audit)
	if err != nil {
		return fmt.Errorf("marshal audit: %w", err)
	}

	finalScore := 0.0
	if sig.Score != nil {
		finalScore = sig.Score.FinalScore
	}
	conf, grade := 0.0, ""
	if sig.Confidence != nil {
		conf = sig.Confidence.OverallConfidence
		grade = string(sig.Confidence.Grade)
	}

	query := `
		INSERT INTO signals (id, symbol, direction, entry_price, stop_loss, take_profit,
			risk_reward, stop_loss_method, final_score, confidence, confidence_grade,
			valid, audit, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err = r.db.Pool.Exec(
		ctx, query,
		sig.ID, sig.Symbol, string(sig.Direction), sig.EntryPrice, sig.StopLoss,
		sig.TakeProfit, sig.RiskReward, sig.StopLossMethod, finalScore,
		conf, grade, sig.Valid, audit, sig.CreatedAt,
	)
	return err
}

// RecentSignals returns the latest signals, newest first
func (r *Repository) RecentSignals(ctx context.Context, limit int) ([]SignalRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, symbol, direction, entry_price, stop_loss, take_profit,
			risk_reward, stop_loss_method, final_score, confidence,
			confidence_grade, valid, created_at
		FROM signals
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := r.db.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []SignalRecord
	for rows.Next() {
		var rec SignalRecord
		if err := rows.Scan(
			&rec.ID, &rec.Symbol, &rec.Direction, &rec.EntryPrice, &rec.StopLoss,
			&rec.TakeProfit, &rec.RiskReward, &rec.StopLossMethod, &rec.FinalScore,
			&rec.Confidence, &rec.ConfidenceGrade, &rec.Valid, &rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// RecordOutcome saves the win/loss result of a dispatched signal
func (r *Repository) RecordOutcome(ctx context.Context, signalID string, win bool, exitPrice, pnlPercent float64) error {
	query := `
		INSERT INTO signal_outcomes (signal_id, win, exit_price, pnl_percent)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.Pool.Exec(ctx, query, signalID, win, exitPrice, pnlPercent)
	return err
}

// TrailingWinRate returns the win fraction over the last window outcomes
func (r *Repository) TrailingWinRate(ctx context.Context, window int) (float64, int, error) {
	if window <= 0 {
		window = 50
	}
	query := `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE win)
		FROM (
			SELECT win FROM signal_outcomes
			ORDER BY closed_at DESC
			LIMIT $1
		) recent
	`
	var total, wins int
	if err := r.db.Pool.QueryRow(ctx, query, window).Scan(&total, &wins); err != nil {
		return 0, 0, err
	}
	if total == 0 {
		return 0, 0, nil
	}
	return float64(wins) / float64(total), total, nil
}

// Stats summarizes persisted signals
type Stats struct {
	TotalSignals int     `json:"total_signals"`
	ValidSignals int     `json:"valid_signals"`
	Outcomes     int     `json:"outcomes"`
	WinRate      float64 `json:"win_rate"`
}

// GetStats returns aggregate signal statistics
func (r *Repository) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	if err := r.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE valid) FROM signals`,
	).Scan(&stats.TotalSignals, &stats.ValidSignals); err != nil {
		return nil, err
	}

	var wins int
	if err := r.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE win) FROM signal_outcomes`,
	).Scan(&stats.Outcomes, &wins); err != nil {
		return nil, err
	}
	if stats.Outcomes > 0 {
		stats.WinRate = float64(wins) / float64(stats.Outcomes)
	}
	return stats, nil
}

// WinRateAdapter exposes the repository as a validation win-rate source.
// Query failures fall back to zero samples so the adaptive threshold
// quietly reverts to its base value.
type WinRateAdapter struct {
	repo    *Repository
	logger  *logging.Logger
	timeout time.Duration
}

// NewWinRateAdapter wraps the repository
func NewWinRateAdapter(repo *Repository, logger *logging.Logger) *WinRateAdapter {
	return &WinRateAdapter{
		repo:    repo,
		logger:  logger.WithComponent("database"),
		timeout: 3 * time.Second,
	}
}

// TrailingWinRate implements validation.WinRateSource
func (a *WinRateAdapter) TrailingWinRate(window int) (float64, int) {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	rate, samples, err := a.repo.TrailingWinRate(ctx, window)
	if err != nil {
		a.logger.Warn("win rate query failed", "error", err)
		return 0, 0
	}
	return rate, samples
}
