package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps the PostgreSQL connection pool
type DB struct {
	Pool *pgxpool.Pool
}

// Config holds database configuration
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// NewDB creates a new database connection
func NewDB(cfg Config) (*DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	// Configure connection pool
	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	log.Printf("Successfully connected to PostgreSQL database: %s", cfg.Database)

	return &DB{Pool: pool}, nil
}

// Close closes the database connection
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
		log.Println("Database connection closed")
	}
}

// HealthCheck verifies the database connection is alive
func (db *DB) HealthCheck(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// RunMigrations executes database migrations
func (db *DB) RunMigrations(ctx context.Context) error {
	log.Println("Running database migrations...")

	migrations := []string{
		// Signal ledger: one append-only row per evaluation
		`CREATE TABLE IF NOT EXISTS trading_signals (
			id VARCHAR(36) PRIMARY KEY,
			symbol VARCHAR(20) NOT NULL,
			strike DECIMAL(20, 8) NOT NULL,
			expiry TIMESTAMP NOT NULL,
			option_type VARCHAR(4) NOT NULL,
			signal_type VARCHAR(10) NOT NULL,
			entry_price DECIMAL(20, 8) NOT NULL,
			stop_loss DECIMAL(20, 8) NOT NULL,
			target DECIMAL(20, 8) NOT NULL,
			quantity INTEGER NOT NULL,
			regime_score DECIMAL(10, 4) NOT NULL,
			price_action_score DECIMAL(10, 4) NOT NULL,
			timeframe_score DECIMAL(10, 4) NOT NULL,
			volatility_score DECIMAL(10, 4) NOT NULL,
			writer_score DECIMAL(10, 4) NOT NULL,
			risk_score DECIMAL(10, 4) NOT NULL,
			sizing_score DECIMAL(10, 4) NOT NULL,
			writer_ratio DECIMAL(10, 4) NOT NULL,
			writer_ratio_passed BOOLEAN NOT NULL,
			overall_score DECIMAL(10, 4) NOT NULL,
			status VARCHAR(20) NOT NULL,
			status_reason TEXT,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trading_signals_symbol ON trading_signals(symbol)`,
		`CREATE INDEX IF NOT EXISTS idx_trading_signals_status ON trading_signals(status)`,
		`CREATE INDEX IF NOT EXISTS idx_trading_signals_created_at ON trading_signals(created_at)`,
	}

	for i, migration := range migrations {
		if _, err := db.Pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	log.Println("Database migrations completed successfully")
	return nil
}
