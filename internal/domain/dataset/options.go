package dataset

import (
	"github.com/okian/diarycal/internal/domain/label"
	"github.com/okian/diarycal/pkg/logger"
)

// Option configures a Loader.
type Option func(*Loader)

// WithChain replaces the default label resolver chain.
func WithChain(chain label.Chain) Option {
	return func(l *Loader) {
		if len(chain) > 0 {
			l.chain = chain
		}
	}
}

// WithDedupeSize bounds the record-id cache of a single load.
func WithDedupeSize(n int) Option {
	return func(l *Loader) {
		l.dedupeSize = n
	}
}

// WithLogger sets the loader's logger.
func WithLogger(log logger.Logger) Option {
	return func(l *Loader) {
		if log != nil {
			l.logger = log
		}
	}
}
