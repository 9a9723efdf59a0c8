package database

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"neurallempire-signal-engine/internal/engine"
)

// ErrSignalNotFound is returned when a signal ID has no ledger row.
var ErrSignalNotFound = errors.New("signal not found")

const signalColumns = `id, symbol, strike, expiry, option_type, signal_type,
	       entry_price, stop_loss, target, quantity,
	       regime_score, price_action_score, timeframe_score, volatility_score,
	       writer_score, risk_score, sizing_score,
	       writer_ratio, writer_ratio_passed, overall_score,
	       status, status_reason, created_at`

// Repository provides data access to the signal ledger
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

// InsertSignal appends one evaluation verdict to the ledger. Rows are never
// updated afterwards; the ID and created_at are set by the caller.
func (r *Repository) InsertSignal(ctx context.Context, signal *engine.TradingSignal) error {
	query := `
		INSERT INTO trading_signals (
			id, symbol, strike, expiry, option_type, signal_type,
			entry_price, stop_loss, target, quantity,
			regime_score, price_action_score, timeframe_score, volatility_score,
			writer_score, risk_score, sizing_score,
			writer_ratio, writer_ratio_passed, overall_score,
			status, status_reason, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23
		)
	`
	_, err := r.db.Pool.Exec(
		ctx, query,
		signal.ID, signal.Symbol, signal.Strike, signal.Expiry, signal.OptionType, signal.SignalType,
		signal.EntryPrice, signal.StopLoss, signal.Target, signal.Quantity,
		signal.RegimeScore, signal.PriceActionScore, signal.TimeframeScore, signal.VolatilityScore,
		signal.WriterScore, signal.RiskScore, signal.SizingScore,
		signal.WriterRatio, signal.WriterRatioPassed, signal.OverallScore,
		signal.Status, signal.StatusReason, signal.CreatedAt,
	)
	return err
}

// GetSignalByID retrieves one ledger row
func (r *Repository) GetSignalByID(ctx context.Context, id string) (*engine.TradingSignal, error) {
	query := `SELECT ` + signalColumns + ` FROM trading_signals WHERE id = $1`

	signal := &engine.TradingSignal{}
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&signal.ID, &signal.Symbol, &signal.Strike, &signal.Expiry, &signal.OptionType, &signal.SignalType,
		&signal.EntryPrice, &signal.StopLoss, &signal.Target, &signal.Quantity,
		&signal.RegimeScore, &signal.PriceActionScore, &signal.TimeframeScore, &signal.VolatilityScore,
		&signal.WriterScore, &signal.RiskScore, &signal.SizingScore,
		&signal.WriterRatio, &signal.WriterRatioPassed, &signal.OverallScore,
		&signal.Status, &signal.StatusReason, &signal.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSignalNotFound
	}
	if err != nil {
		return nil, err
	}
	return signal, nil
}

// GetRecentSignals retrieves the latest ledger rows, newest first
func (r *Repository) GetRecentSignals(ctx context.Context, limit int) ([]*engine.TradingSignal, error) {
	query := `
		SELECT ` + signalColumns + `
		FROM trading_signals
		ORDER BY created_at DESC
		LIMIT $1
	`
	return r.querySignals(ctx, query, limit)
}

// GetSignalsBySymbol retrieves recent ledger rows for one symbol
func (r *Repository) GetSignalsBySymbol(ctx context.Context, symbol string, limit int) ([]*engine.TradingSignal, error) {
	query := `
		SELECT ` + signalColumns + `
		FROM trading_signals
		WHERE symbol = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	return r.querySignals(ctx, query, symbol, limit)
}

// GetSignalsByStatus retrieves recent ledger rows with the given status
func (r *Repository) GetSignalsByStatus(ctx context.Context, status engine.SignalStatus, limit int) ([]*engine.TradingSignal, error) {
	query := `
		SELECT ` + signalColumns + `
		FROM trading_signals
		WHERE status = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	return r.querySignals(ctx, query, status, limit)
}

// CountSignals returns total ledger rows and how many were approved
func (r *Repository) CountSignals(ctx context.Context) (total int64, approved int64, err error) {
	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'APPROVED')
		FROM trading_signals
	`
	err = r.db.Pool.QueryRow(ctx, query).Scan(&total, &approved)
	return total, approved, err
}

func (r *Repository) querySignals(ctx context.Context, query string, args ...interface{}) ([]*engine.TradingSignal, error) {
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var signals []*engine.TradingSignal
	for rows.Next() {
		signal := &engine.TradingSignal{}
		err := rows.Scan(
			&signal.ID, &signal.Symbol, &signal.Strike, &signal.Expiry, &signal.OptionType, &signal.SignalType,
			&signal.EntryPrice, &signal.StopLoss, &signal.Target, &signal.Quantity,
			&signal.RegimeScore, &signal.PriceActionScore, &signal.TimeframeScore, &signal.VolatilityScore,
			&signal.WriterScore, &signal.RiskScore, &signal.SizingScore,
			&signal.WriterRatio, &signal.WriterRatioPassed, &signal.OverallScore,
			&signal.Status, &signal.StatusReason, &signal.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		signals = append(signals, signal)
	}
	return signals, rows.Err()
}
