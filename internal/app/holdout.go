package service

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/diarycal/internal/domain/dataset"
	"github.com/okian/diarycal/internal/domain/evaluation"
	"github.com/okian/diarycal/internal/domain/label"
	"github.com/okian/diarycal/internal/domain/model"
	"github.com/okian/diarycal/pkg/logger"
	"github.com/okian/diarycal/pkg/metrics"
)

const crossingThreshold = 0.5

// HoldoutRequest selects the records a holdout evaluation scores.
type HoldoutRequest struct {
	SubjectID string
	Window    model.Window
	// Bins is the ECE bin count; zero means evaluation.DefaultBins.
	Bins int
	Tag  string
	// ExplicitOnly labels records from explicit ratings alone.
	ExplicitOnly bool
}

// HoldoutReport scores the persisted global model on a subject's records.
type HoldoutReport struct {
	RunID     string          `json:"run_id"`
	Tag       string          `json:"tag,omitempty"`
	SubjectID string          `json:"subject_id"`
	Window    model.Window    `json:"window"`
	ModelType model.ModelType `json:"model_type"`
	Params    model.Document  `json:"params"`

	evaluation.Report

	ThresholdPre  int                `json:"threshold_pre_0_5"`
	ThresholdPost int                `json:"threshold_post_0_5"`
	Deltas        evaluation.Metrics `json:"deltas"`
	Dataset       dataset.Stats      `json:"dataset"`
	CreatedAt     time.Time          `json:"created_at"`
}

// Holdout applies the currently persisted global profile to the subject's
// records in the window and compares Brier and ECE before and after. It never
// trains or writes. Without a global profile the identity model is scored.
func (s *Service) Holdout(ctx context.Context, req HoldoutRequest) (*HoldoutReport, error) {
	if req.SubjectID == "" {
		return nil, ErrSubjectRequired
	}
	bins := req.Bins
	if bins == 0 {
		bins = evaluation.DefaultBins
	}
	cmp, err := evaluation.NewComparison(bins, crossingThreshold)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	var m model.CalibrationModel = model.None{}
	g, err := s.profile(ctx, model.GlobalScope())
	if err != nil {
		return nil, err
	}
	if g != nil {
		m = g.Model
	}

	chain := label.NewChain(s.thresholds)
	if req.ExplicitOnly {
		chain = label.ExplicitOnly(s.thresholds)
	}
	stats, err := s.loader(chain).Stream(ctx, dataset.Query{Window: req.Window, SubjectID: req.SubjectID}, func(smp model.Sample) error {
		q, err := model.Apply(m, smp.P)
		if err != nil {
			return err
		}
		cmp.Add(smp.P, q, smp.Y)
		return nil
	})
	if err != nil {
		return nil, err
	}

	rep := cmp.Report()
	pre, post := cmp.AboveThreshold()
	out := &HoldoutReport{
		RunID:         s.newID(),
		Tag:           req.Tag,
		SubjectID:     req.SubjectID,
		Window:        req.Window,
		ModelType:     m.Type(),
		Params:        model.ToDocument(m),
		Report:        rep,
		ThresholdPre:  pre,
		ThresholdPost: post,
		Deltas:        rep.Deltas(),
		Dataset:       stats,
		CreatedAt:     s.now().UTC(),
	}

	if rep.BrierBefore != nil && rep.BrierAfter != nil {
		metrics.UpdateCalibrationScores("holdout", "before", *rep.BrierBefore, *rep.ECEBefore)
		metrics.UpdateCalibrationScores("holdout", "after", *rep.BrierAfter, *rep.ECEAfter)
	}
	s.logger.Named("holdout").Info(ctx, "holdout evaluated",
		logger.String("run_id", out.RunID),
		logger.String("subject_id", req.SubjectID),
		logger.String("model_type", string(out.ModelType)),
		logger.Int("samples", rep.N),
		optFloat("brier_before", rep.BrierBefore),
		optFloat("brier_after", rep.BrierAfter),
		optFloat("ece_before", rep.ECEBefore),
		optFloat("ece_after", rep.ECEAfter),
	)
	return out, nil
}
