package worker

import (
	"github.com/okian/diarycal/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(log logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if log != nil {
			w.logger = log
		}
	}
}

// withErrorSink forwards handler errors to the owning pool.
func withErrorSink(sink func(Job, error)) Option {
	return func(w *InMemoryWorker) {
		w.onError = sink
	}
}
