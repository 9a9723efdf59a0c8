package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"neurallempire-signal-engine/internal/engine"

	"github.com/redis/go-redis/v9"
)

// SignalCache keeps the most recent evaluation verdicts hot so the API and
// dashboards do not hit the ledger for every read. The database remains the
// source of truth; every method degrades cleanly when Redis is down.
type SignalCache struct {
	cache     *CacheService
	maxRecent int64
}

// NewSignalCache creates a signal cache over the shared cache service.
func NewSignalCache(cache *CacheService) *SignalCache {
	return &SignalCache{
		cache:     cache,
		maxRecent: DefaultMaxRecent,
	}
}

// RecordSignal stores one verdict: pushed onto the recent list (trimmed to
// maxRecent), keyed by ID, and as the symbol's latest.
func (sc *SignalCache) RecordSignal(ctx context.Context, signal *engine.TradingSignal) error {
	sc.cache.checkHealth(ctx)

	if !sc.cache.IsHealthy() {
		return ErrCacheUnavailable
	}

	payload, err := json.Marshal(signal)
	if err != nil {
		return fmt.Errorf("failed to marshal signal: %w", err)
	}

	pipe := sc.cache.client.Pipeline()
	pipe.LPush(ctx, PrefixRecentSignals, payload)
	pipe.LTrim(ctx, PrefixRecentSignals, 0, sc.maxRecent-1)
	pipe.Set(ctx, SignalKey(signal.ID), payload, DefaultSignalTTL)
	pipe.Set(ctx, SymbolLatestKey(signal.Symbol), payload, DefaultSignalTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		sc.cache.recordFailure()
		return fmt.Errorf("redis pipeline failed: %w", err)
	}

	sc.cache.recordSuccess()
	return nil
}

// GetRecentSignals returns up to limit cached verdicts, newest first.
func (sc *SignalCache) GetRecentSignals(ctx context.Context, limit int) ([]*engine.TradingSignal, error) {
	sc.cache.checkHealth(ctx)

	if !sc.cache.IsHealthy() {
		return nil, ErrCacheUnavailable
	}
	if limit <= 0 || int64(limit) > sc.maxRecent {
		limit = int(sc.maxRecent)
	}

	entries, err := sc.cache.client.LRange(ctx, PrefixRecentSignals, 0, int64(limit)-1).Result()
	if err != nil {
		sc.cache.recordFailure()
		return nil, fmt.Errorf("redis lrange failed: %w", err)
	}
	sc.cache.recordSuccess()

	signals := make([]*engine.TradingSignal, 0, len(entries))
	for _, entry := range entries {
		signal := &engine.TradingSignal{}
		if err := json.Unmarshal([]byte(entry), signal); err != nil {
			// Skip rows written by an older build rather than failing the read.
			continue
		}
		signals = append(signals, signal)
	}
	return signals, nil
}

// Stats reports the underlying cache health for monitoring.
func (sc *SignalCache) Stats() Stats {
	return sc.cache.GetStats()
}

// GetSignalByID returns one cached verdict, or ErrSignalNotCached.
func (sc *SignalCache) GetSignalByID(ctx context.Context, id string) (*engine.TradingSignal, error) {
	signal := &engine.TradingSignal{}
	err := sc.cache.GetJSON(ctx, SignalKey(id), signal)
	if errors.Is(err, redis.Nil) {
		return nil, ErrSignalNotCached
	}
	if err != nil {
		return nil, err
	}
	return signal, nil
}

// GetLatestForSymbol returns the symbol's most recent verdict, or
// ErrSignalNotCached.
func (sc *SignalCache) GetLatestForSymbol(ctx context.Context, symbol string) (*engine.TradingSignal, error) {
	signal := &engine.TradingSignal{}
	err := sc.cache.GetJSON(ctx, SymbolLatestKey(symbol), signal)
	if errors.Is(err, redis.Nil) {
		return nil, ErrSignalNotCached
	}
	if err != nil {
		return nil, err
	}
	return signal, nil
}
