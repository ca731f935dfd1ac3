package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/diarycal/internal/adapters/mq/queue"
	"github.com/okian/diarycal/internal/adapters/mq/worker"
	"github.com/okian/diarycal/internal/domain/dataset"
	"github.com/okian/diarycal/internal/domain/label"
	"github.com/okian/diarycal/internal/domain/model"
	"github.com/okian/diarycal/internal/domain/selection"
	"github.com/okian/diarycal/pkg/logger"
	"github.com/okian/diarycal/pkg/metrics"
)

// Status is the outcome of training one scope.
type Status string

// Training statuses.
const (
	StatusWritten               Status = "written"
	StatusDryRun                Status = "dry_run"
	StatusSkippedEmpty          Status = "skipped_empty"
	StatusSkippedInsufficient   Status = "skipped_insufficient"
	StatusSkippedBelowThreshold Status = "skipped_below_threshold"
)

// TrainRequest selects the scopes and window of a training run.
type TrainRequest struct {
	Global      bool
	Subjects    []string
	AllPersonal bool
	Window      model.Window
	Method      selection.Method
	// MinSamples overrides the personal threshold when positive.
	MinSamples int
	DryRun     bool
}

// Outcome reports what happened to one scope.
type Outcome struct {
	Scope     string            `json:"scope"`
	Status    Status            `json:"status"`
	Reason    string            `json:"reason,omitempty"`
	Selection *selection.Result `json:"selection,omitempty"`
	Model     *model.Document   `json:"model,omitempty"`
	Stats     dataset.Stats     `json:"dataset"`

	// Err is ErrBelowThreshold or selection.ErrInsufficientData for the
	// matching skip statuses.
	Err error `json:"-"`
}

// TrainReport is the result of a training run.
type TrainReport struct {
	RunID      string           `json:"run_id"`
	Window     model.Window     `json:"window"`
	Method     selection.Method `json:"method"`
	MinSamples int              `json:"min_samples"`
	DryRun     bool             `json:"dry_run"`
	Outcomes   []Outcome        `json:"outcomes"`
}

// Train fits and persists profiles for the requested scopes: global first,
// then listed subjects, then every subject with records in the window. A
// store failure aborts the run and is returned with the outcomes so far;
// skipped scopes are not errors.
func (s *Service) Train(ctx context.Context, req TrainRequest) (*TrainReport, error) {
	if !req.Global && len(req.Subjects) == 0 && !req.AllPersonal {
		return nil, ErrNoScope
	}
	cfg := s.selection
	if req.Method != "" {
		cfg.Method = req.Method
	}
	minSamples := s.minSamples
	if req.MinSamples > 0 {
		minSamples = req.MinSamples
	}

	report := &TrainReport{
		RunID:      s.newID(),
		Window:     req.Window,
		Method:     cfg.Method,
		MinSamples: minSamples,
		DryRun:     req.DryRun,
	}
	log := s.logger.Named("trainer")
	log.Info(ctx, "training run started",
		logger.String("run_id", report.RunID),
		logger.String("method", string(cfg.Method)),
		logger.Time("from", req.Window.From),
		logger.Time("to", req.Window.To),
		logger.Bool("dry_run", req.DryRun),
	)

	if req.Global {
		out, err := s.TrainScope(ctx, model.GlobalScope(), req.Window, cfg, minSamples, req.DryRun)
		if err != nil {
			return report, err
		}
		report.Outcomes = append(report.Outcomes, out)
	}

	done := make(map[string]bool, len(req.Subjects))
	for _, subject := range req.Subjects {
		if done[subject] {
			continue
		}
		done[subject] = true
		out, err := s.TrainScope(ctx, model.PersonalScope(subject), req.Window, cfg, minSamples, req.DryRun)
		if err != nil {
			return report, err
		}
		report.Outcomes = append(report.Outcomes, out)
	}

	if req.AllPersonal {
		outs, err := s.trainAllPersonal(ctx, req.Window, cfg, minSamples, req.DryRun, done)
		report.Outcomes = append(report.Outcomes, outs...)
		if err != nil {
			return report, err
		}
	}

	log.Info(ctx, "training run finished",
		logger.String("run_id", report.RunID),
		logger.Int("scopes", len(report.Outcomes)),
	)
	return report, nil
}

// trainAllPersonal trains every subject in the window except those in skip,
// one job per subject through the worker pool. The first failing subject
// cancels the remaining jobs, so nothing is written after a store error.
func (s *Service) trainAllPersonal(ctx context.Context, w model.Window, cfg selection.Config, minSamples int, dryRun bool, skip map[string]bool) ([]Outcome, error) {
	subjects, err := s.labels.Subjects(ctx, w)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu       sync.Mutex
		outcomes []Outcome
		failed   atomic.Bool
	)
	q := queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	pool := worker.NewPool(s.workerCount, q, worker.HandlerFunc(func(ctx context.Context, j worker.Job) error {
		if failed.Load() {
			return nil
		}
		out, err := s.TrainScope(ctx, model.PersonalScope(j.SubjectID), j.Window, cfg, minSamples, dryRun)
		if err != nil {
			if failed.Load() && errors.Is(err, context.Canceled) {
				return nil
			}
			failed.Store(true)
			cancel()
			return err
		}
		mu.Lock()
		outcomes = append(outcomes, out)
		mu.Unlock()
		return nil
	}))
	pool.Start(ctx)

	var enqueueErr error
	for _, subject := range subjects {
		if skip[subject] {
			continue
		}
		if enqueueErr = q.Enqueue(ctx, queue.Job{SubjectID: subject, Window: w}); enqueueErr != nil {
			break
		}
	}
	_ = q.Close()
	poolErr := pool.Wait()
	if failed.Load() && errors.Is(enqueueErr, context.Canceled) {
		enqueueErr = nil
	}

	slices.SortFunc(outcomes, func(a, b Outcome) int { return strings.Compare(a.Scope, b.Scope) })
	if err := errors.Join(enqueueErr, poolErr); err != nil {
		return outcomes, fmt.Errorf("train all personal: %w", err)
	}
	return outcomes, nil
}

// TrainScope loads the scope's dataset, selects a model and writes it unless
// dryRun. Personal scopes below minSamples keep their previous profile.
func (s *Service) TrainScope(ctx context.Context, scope model.Scope, w model.Window, cfg selection.Config, minSamples int, dryRun bool) (Outcome, error) {
	start := time.Now()
	log := s.logger.Named("trainer")
	kind := string(scope.Kind)
	out := Outcome{Scope: scope.Key()}

	q := dataset.Query{Window: w}
	if !scope.IsGlobal() {
		q.SubjectID = scope.SubjectID
	}
	ds, err := s.loader(label.NewChain(s.thresholds)).Load(ctx, q)
	if err != nil {
		metrics.RecordTrainingRun(kind, "error")
		return out, err
	}
	out.Stats = ds.Stats
	n := len(ds.Samples)

	finish := func(st Status, reason error) (Outcome, error) {
		out.Status = st
		out.Err = reason
		if reason != nil {
			out.Reason = reason.Error()
		}
		metrics.RecordTrainingRun(kind, string(st))
		metrics.ObserveTrainDuration(time.Since(start))
		return out, nil
	}

	switch {
	case n == 0:
		log.Info(ctx, "scope skipped: no samples", logger.String("scope", scope.Key()))
		return finish(StatusSkippedEmpty, nil)
	case !scope.IsGlobal() && n < minSamples:
		reason := fmt.Errorf("%w: %d samples, need %d", ErrBelowThreshold, n, minSamples)
		log.Info(ctx, "scope skipped: below threshold",
			logger.String("scope", scope.Key()),
			logger.Int("samples", n),
			logger.Int("min_samples", minSamples),
		)
		return finish(StatusSkippedBelowThreshold, reason)
	}

	res, err := selection.Select(ds.Samples, cfg)
	if errors.Is(err, selection.ErrInsufficientData) {
		log.Info(ctx, "scope skipped: insufficient data", logger.String("scope", scope.Key()), logger.Int("samples", n))
		return finish(StatusSkippedInsufficient, err)
	}
	if err != nil {
		metrics.RecordTrainingRun(kind, "error")
		return out, fmt.Errorf("select %s: %w", scope, err)
	}

	doc := model.ToDocument(res.Model)
	out.Selection = &res
	out.Model = &doc
	metrics.RecordSelectedModel(kind, string(res.Type))
	if res.Base.Brier != nil && res.Metrics.Brier != nil {
		metrics.UpdateCalibrationScores(kind, "before", *res.Base.Brier, *res.Base.ECE)
		metrics.UpdateCalibrationScores(kind, "after", *res.Metrics.Brier, *res.Metrics.ECE)
	}

	fields := []logger.Field{
		logger.String("scope", scope.Key()),
		logger.String("type", string(res.Type)),
		logger.Int("samples", n),
		optFloat("brier_before", res.Base.Brier),
		optFloat("brier_after", res.Metrics.Brier),
		optFloat("ece_before", res.Base.ECE),
		optFloat("ece_after", res.Metrics.ECE),
	}

	if dryRun {
		log.Info(ctx, "scope trained (dry run)", fields...)
		return finish(StatusDryRun, nil)
	}

	p := model.Profile{
		Scope:       scope,
		Model:       res.Model,
		SampleCount: n,
		UpdatedAt:   s.now().UTC(),
	}
	if !scope.IsGlobal() {
		p.MinSamplesThreshold = minSamples
	}
	if err := ctx.Err(); err != nil {
		return out, err
	}
	if err := s.profiles.Set(ctx, p); err != nil {
		log.Error(ctx, "profile write failed", logger.String("scope", scope.Key()), logger.Error(err))
		metrics.RecordTrainingRun(kind, "error")
		return out, err
	}
	log.Info(ctx, "profile written", fields...)
	return finish(StatusWritten, nil)
}
