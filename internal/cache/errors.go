package cache

import "errors"

var (
	// ErrCacheUnavailable is returned when Redis is not healthy
	ErrCacheUnavailable = errors.New("cache unavailable - Redis is not healthy")

	// ErrSignalNotCached is returned when a signal is not in cache
	ErrSignalNotCached = errors.New("signal not cached")
)
