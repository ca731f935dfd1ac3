// Package service wires the calibration domain to the label and profile
// stores. It implements the batch operations the CLI exposes: training,
// applying, holdout evaluation, seeding, dumping and accuracy reports.
package service

import (
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/okian/diarycal/internal/adapters/labelstore"
	"github.com/okian/diarycal/internal/adapters/repository"
	"github.com/okian/diarycal/internal/domain/dataset"
	"github.com/okian/diarycal/internal/domain/label"
	"github.com/okian/diarycal/internal/domain/selection"
	"github.com/okian/diarycal/pkg/logger"
)

// Default service configuration constants.
const (
	defaultMinSamples = 20
	defaultQueueSize  = 1024
	defaultDedupeSize = 500_000
)

// Service runs calibration jobs against a profile store and a label store.
// It holds no mutable state of its own and is safe for concurrent use.
type Service struct {
	profiles repository.Store
	labels   labelstore.Store

	selection  selection.Config
	thresholds label.Thresholds
	minSamples int

	workerCount int
	queueSize   int
	dedupeSize  int

	now    func() time.Time
	newID  func() string
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithSelectionConfig sets the calibrator hyperparameters and selection rules.
func WithSelectionConfig(cfg selection.Config) Option {
	return func(s *Service) {
		s.selection = cfg
	}
}

// WithThresholds sets the label resolver thresholds.
func WithThresholds(th label.Thresholds) Option {
	return func(s *Service) {
		s.thresholds = th
	}
}

// WithMinSamples sets the default personal profile threshold. Zero makes
// every trained personal profile active; negative values are ignored.
func WithMinSamples(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.minSamples = n
		}
	}
}

// WithWorkerCount sets the number of all-personal training workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the subject job queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize bounds the record-id cache of each dataset load.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator replaces the run id generator.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.logger = log
		}
	}
}

// New constructs a Service over the given stores.
func New(profiles repository.Store, labels labelstore.Store, opts ...Option) *Service {
	s := &Service{
		profiles:    profiles,
		labels:      labels,
		selection:   selection.DefaultConfig(),
		thresholds:  label.DefaultThresholds(),
		minSamples:  defaultMinSamples,
		workerCount: runtime.NumCPU(),
		queueSize:   defaultQueueSize,
		dedupeSize:  defaultDedupeSize,
		now:         time.Now,
		newID:       uuid.NewString,
		logger:      logger.Get().Named("service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// loader returns a dataset loader over the label store using chain.
func (s *Service) loader(chain label.Chain) *dataset.Loader {
	return dataset.NewLoader(s.labels,
		dataset.WithChain(chain),
		dataset.WithDedupeSize(s.dedupeSize),
		dataset.WithLogger(s.logger.Named("dataset")),
	)
}

// optFloat logs an undefined metric as null rather than a pointer.
func optFloat(key string, v *float64) logger.Field {
	if v == nil {
		return logger.Any(key, nil)
	}
	return logger.Float64(key, *v)
}
