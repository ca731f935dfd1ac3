package labelstore

import "time"

// PostgresOption configures a PostgresStore.
type PostgresOption func(*PostgresStore)

// WithPageSize sets how many rows one query fetches.
func WithPageSize(n int) PostgresOption {
	return func(s *PostgresStore) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithQueryTimeout bounds every page query.
func WithQueryTimeout(d time.Duration) PostgresOption {
	return func(s *PostgresStore) {
		if d > 0 {
			s.timeout = d
		}
	}
}
