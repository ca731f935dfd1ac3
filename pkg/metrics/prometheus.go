// Package metrics provides Prometheus metrics for the calibration engine.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Default metrics configuration constants.
const (
	defaultNamespace = "diarycal"
	defaultSubsystem = "calibration"
)

// Manager owns the calibration metrics.
type Manager struct {
	namespace       string
	subsystem       string
	durationBuckets []float64
	enabled         bool
	constLabels     map[string]string
	registry        prometheus.Registerer

	// Dataset loading
	recordsScanned prometheus.Counter
	recordsDropped *prometheus.CounterVec
	samplesLoaded  *prometheus.CounterVec

	// Training
	trainingRuns  *prometheus.CounterVec
	selectedModel *prometheus.CounterVec
	brier         *prometheus.GaugeVec
	ece           *prometheus.GaugeVec
	trainDuration prometheus.Histogram

	// Profile store
	profileWrites *prometheus.CounterVec
	storeErrors   *prometheus.CounterVec

	// Inference
	applyCalls *prometheus.CounterVec

	// Jobs
	jobDuration *prometheus.HistogramVec
	jobQueued   prometheus.Gauge
}

// Batch training runs take from milliseconds to tens of minutes.
var defaultDurationBuckets = prometheus.ExponentialBuckets(0.01, 4, 10) //nolint:gochecknoglobals // bucket layout

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:       defaultNamespace,
		subsystem:       defaultSubsystem,
		durationBuckets: defaultDurationBuckets,
		enabled:         true,
		constLabels:     make(map[string]string),
		registry:        prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) opts(name, help string) (string, string, string, string, prometheus.Labels) {
	return m.namespace, m.subsystem, name, help, m.constLabels
}

func (m *Manager) counter(name, help string) prometheus.CounterOpts {
	ns, ss, n, h, l := m.opts(name, help)
	return prometheus.CounterOpts{Namespace: ns, Subsystem: ss, Name: n, Help: h, ConstLabels: l}
}

func (m *Manager) gauge(name, help string) prometheus.GaugeOpts {
	ns, ss, n, h, l := m.opts(name, help)
	return prometheus.GaugeOpts{Namespace: ns, Subsystem: ss, Name: n, Help: h, ConstLabels: l}
}

func (m *Manager) histogram(name, help string) prometheus.HistogramOpts {
	ns, ss, n, h, l := m.opts(name, help)
	return prometheus.HistogramOpts{Namespace: ns, Subsystem: ss, Name: n, Help: h, ConstLabels: l, Buckets: m.durationBuckets}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.recordsScanned = auto.NewCounter(m.counter("records_scanned_total",
		"Label store records read by the dataset loader"))
	m.recordsDropped = auto.NewCounterVec(m.counter("records_dropped_total",
		"Records dropped by the dataset loader, by reason"), []string{"reason"})
	m.samplesLoaded = auto.NewCounterVec(m.counter("samples_loaded_total",
		"Samples produced by the dataset loader, by label source"), []string{"label_source"})

	m.trainingRuns = auto.NewCounterVec(m.counter("training_runs_total",
		"Training runs by scope kind and outcome status"), []string{"scope", "status"})
	m.selectedModel = auto.NewCounterVec(m.counter("selected_model_total",
		"Model types chosen by the selector"), []string{"scope", "type"})
	m.brier = auto.NewGaugeVec(m.gauge("brier_score",
		"Brier score of the last evaluation"), []string{"scope", "stage"})
	m.ece = auto.NewGaugeVec(m.gauge("expected_calibration_error",
		"ECE of the last evaluation"), []string{"scope", "stage"})
	m.trainDuration = auto.NewHistogram(m.histogram("train_duration_seconds",
		"Wall time of a single scope training step"))

	m.profileWrites = auto.NewCounterVec(m.counter("profile_writes_total",
		"Profile store writes by scope kind and operation"), []string{"scope", "op"})
	m.storeErrors = auto.NewCounterVec(m.counter("store_errors_total",
		"Store failures by component"), []string{"component"})

	m.applyCalls = auto.NewCounterVec(m.counter("apply_total",
		"Applier calls by resolution source"), []string{"source"})

	m.jobDuration = auto.NewHistogramVec(m.histogram("job_duration_seconds",
		"Wall time of batch commands"), []string{"command"})
	m.jobQueued = auto.NewGauge(m.gauge("subjects_queued",
		"Subjects waiting in the personal training queue"))
}

// Helpers operating on the global manager.

// RecordRecordScanned counts a record read from the label store.
func RecordRecordScanned() {
	if globalManager.enabled {
		globalManager.recordsScanned.Inc()
	}
}

// RecordRecordDropped counts a dropped record.
func RecordRecordDropped(reason string) {
	if globalManager.enabled {
		globalManager.recordsDropped.WithLabelValues(reason).Inc()
	}
}

// RecordSampleLoaded counts a sample by the resolver that labelled it.
func RecordSampleLoaded(labelSource string) {
	if globalManager.enabled {
		globalManager.samplesLoaded.WithLabelValues(labelSource).Inc()
	}
}

// RecordTrainingRun counts a finished scope training step.
func RecordTrainingRun(scope, status string) {
	if globalManager.enabled {
		globalManager.trainingRuns.WithLabelValues(scope, status).Inc()
	}
}

// RecordSelectedModel counts the model type picked by the selector.
func RecordSelectedModel(scope, modelType string) {
	if globalManager.enabled {
		globalManager.selectedModel.WithLabelValues(scope, modelType).Inc()
	}
}

// UpdateCalibrationScores records Brier and ECE for a stage ("before"/"after").
func UpdateCalibrationScores(scope, stage string, brier, ece float64) {
	if globalManager.enabled {
		globalManager.brier.WithLabelValues(scope, stage).Set(brier)
		globalManager.ece.WithLabelValues(scope, stage).Set(ece)
	}
}

// ObserveTrainDuration records one scope training step.
func ObserveTrainDuration(d time.Duration) {
	if globalManager.enabled {
		globalManager.trainDuration.Observe(d.Seconds())
	}
}

// RecordProfileWrite counts a profile store mutation ("set"/"delete").
func RecordProfileWrite(scope, op string) {
	if globalManager.enabled {
		globalManager.profileWrites.WithLabelValues(scope, op).Inc()
	}
}

// RecordStoreError counts a store failure.
func RecordStoreError(component string) {
	if globalManager.enabled {
		globalManager.storeErrors.WithLabelValues(component).Inc()
	}
}

// RecordApply counts an Applier call by where its model came from.
func RecordApply(source string) {
	if globalManager.enabled {
		globalManager.applyCalls.WithLabelValues(source).Inc()
	}
}

// ObserveJobDuration records the wall time of a CLI command.
func ObserveJobDuration(command string, d time.Duration) {
	if globalManager.enabled {
		globalManager.jobDuration.WithLabelValues(command).Observe(d.Seconds())
	}
}

// UpdateSubjectsQueued sets the personal training backlog.
func UpdateSubjectsQueued(n int) {
	if globalManager.enabled {
		globalManager.jobQueued.Set(float64(n))
	}
}

// GetRegistry returns the custom registry.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Push sends the custom registry to a Prometheus Pushgateway. Batch jobs end
// before a scrape would happen, so they push instead.
func Push(ctx context.Context, url, job string) error {
	if url == "" {
		return nil
	}
	if job == "" {
		job = defaultNamespace
	}
	if err := push.New(url, job).Gatherer(customRegistry).PushContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrPushFailed, err)
	}
	return nil
}
