package repository

import (
	"time"

	"github.com/okian/diarycal/pkg/logger"
)

// PostgresOption configures a PostgresStore.
type PostgresOption func(*PostgresStore)

// WithQueryTimeout bounds every statement.
func WithQueryTimeout(d time.Duration) PostgresOption {
	return func(s *PostgresStore) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// CacheOption configures a CachedStore.
type CacheOption func(*CachedStore)

// WithTTL sets the lifetime of cached profiles.
func WithTTL(d time.Duration) CacheOption {
	return func(s *CachedStore) {
		if d > 0 {
			s.ttl = d
		}
	}
}

// WithKeyPrefix sets the Redis key prefix.
func WithKeyPrefix(prefix string) CacheOption {
	return func(s *CachedStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithCacheLogger sets the cache logger.
func WithCacheLogger(l logger.Logger) CacheOption {
	return func(s *CachedStore) {
		if l != nil {
			s.logger = l
		}
	}
}
