// Package dataset turns label store records into calibration samples.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/okian/diarycal/internal/domain/dedupe"
	"github.com/okian/diarycal/internal/domain/label"
	"github.com/okian/diarycal/internal/domain/model"
	"github.com/okian/diarycal/pkg/logger"
	"github.com/okian/diarycal/pkg/metrics"
)

// Query selects records by window and, optionally, subject.
type Query struct {
	Window    model.Window
	SubjectID string
}

// Source streams records matching a query, page by page. fn is called once
// per record; a non-nil return stops the scan and is returned as is.
type Source interface {
	Scan(ctx context.Context, q Query, fn func(model.Record) error) error
}

// Stats counts what happened to the scanned records.
type Stats struct {
	Scanned              int                  `json:"scanned"`
	Kept                 int                  `json:"kept"`
	Positives            int                  `json:"positives"`
	Duplicates           int                  `json:"duplicates"`
	DroppedNoProbability int                  `json:"dropped_no_probability"`
	DroppedNoLabel       int                  `json:"dropped_no_label"`
	BySource             map[label.Source]int `json:"by_label_source"`
}

// Dropped is the total of records that produced no sample.
func (s Stats) Dropped() int {
	return s.Duplicates + s.DroppedNoProbability + s.DroppedNoLabel
}

// Dataset is a materialized load.
type Dataset struct {
	Samples []model.Sample
	Stats   Stats
}

// Loader resolves samples from a Source. It is safe for concurrent use.
type Loader struct {
	source     Source
	chain      label.Chain
	dedupeSize int
	logger     logger.Logger
}

// NewLoader builds a loader using the default resolver chain.
func NewLoader(source Source, opts ...Option) *Loader {
	l := &Loader{
		source:     source,
		chain:      label.NewChain(label.DefaultThresholds()),
		dedupeSize: 500_000,
		logger:     logger.Get().Named("dataset"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load materializes all samples in the query.
func (l *Loader) Load(ctx context.Context, q Query) (*Dataset, error) {
	ds := &Dataset{}
	stats, err := l.Stream(ctx, q, func(s model.Sample) error {
		ds.Samples = append(ds.Samples, s)
		return nil
	})
	ds.Stats = stats
	if err != nil {
		return nil, err
	}
	return ds, nil
}

// Stream resolves records one by one and hands each sample to fn without
// keeping them.
func (l *Loader) Stream(ctx context.Context, q Query, fn func(model.Sample) error) (Stats, error) {
	stats := Stats{BySource: make(map[label.Source]int)}
	seen := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(l.dedupeSize))

	err := l.source.Scan(ctx, q, func(r model.Record) error {
		stats.Scanned++
		metrics.RecordRecordScanned()

		if r.ID != "" && seen.SeenAndRecord(r.ID) {
			stats.Duplicates++
			metrics.RecordRecordDropped("duplicate")
			return nil
		}

		s, src, err := l.resolve(r)
		switch {
		case errors.Is(err, ErrNoProbability):
			stats.DroppedNoProbability++
			metrics.RecordRecordDropped("no_probability")
			return nil
		case errors.Is(err, ErrNoLabel):
			stats.DroppedNoLabel++
			metrics.RecordRecordDropped("no_label")
			return nil
		}

		stats.Kept++
		stats.Positives += s.Y
		stats.BySource[src]++
		metrics.RecordSampleLoaded(string(src))
		return fn(s)
	})
	if err != nil {
		return stats, fmt.Errorf("load dataset: %w", err)
	}

	l.logger.Debug(ctx, "dataset loaded",
		logger.String("subject_id", q.SubjectID),
		logger.Time("from", q.Window.From),
		logger.Time("to", q.Window.To),
		logger.Int("scanned", stats.Scanned),
		logger.Int("kept", stats.Kept),
		logger.Int("dropped", stats.Dropped()),
	)
	return stats, nil
}

// resolve maps a record to a sample. Raw probabilities are clamped into
// [0,1]; missing, NaN or infinite ones drop the record.
func (l *Loader) resolve(r model.Record) (model.Sample, label.Source, error) {
	if r.RawProbability == nil || math.IsNaN(*r.RawProbability) || math.IsInf(*r.RawProbability, 0) {
		return model.Sample{}, "", ErrNoProbability
	}
	y, src, ok := l.chain.Resolve(r)
	if !ok {
		return model.Sample{}, "", ErrNoLabel
	}
	return model.Sample{
		P:          model.Clamp01(*r.RawProbability),
		Y:          y,
		SubjectID:  r.SubjectID,
		ObservedAt: r.ObservedAt,
	}, src, nil
}
