package service

import (
	"context"

	"github.com/okian/diarycal/internal/domain/dataset"
	"github.com/okian/diarycal/internal/domain/evaluation"
	"github.com/okian/diarycal/internal/domain/label"
	"github.com/okian/diarycal/internal/domain/model"
	"github.com/okian/diarycal/pkg/logger"
)

// AccuracyRequest selects the explicitly rated records to score.
type AccuracyRequest struct {
	SubjectID string
	Window    model.Window
	// Threshold turns a probability into a prediction (p >= threshold).
	Threshold float64
	// PositiveRating overrides the configured rating threshold when positive.
	PositiveRating   float64
	ApplyCalibration bool
}

// AccuracyReport holds exact-match accuracy, F1 and the confusion counts.
type AccuracyReport struct {
	N          int                  `json:"n"`
	Threshold  float64              `json:"threshold"`
	EM         *float64             `json:"em"`
	F1         float64              `json:"f1"`
	Confusion  evaluation.Confusion `json:"confusion"`
	Calibrated bool                 `json:"calibrated"`
	Dataset    dataset.Stats        `json:"dataset"`
}

// Accuracy scores thresholded predictions against explicit ratings,
// optionally calibrating each probability through Apply first.
func (s *Service) Accuracy(ctx context.Context, req AccuracyRequest) (*AccuracyReport, error) {
	th := s.thresholds
	if req.PositiveRating > 0 {
		th.PositiveRating = req.PositiveRating
	}

	var cm evaluation.Confusion
	stats, err := s.loader(label.ExplicitOnly(th)).Stream(ctx, dataset.Query{Window: req.Window, SubjectID: req.SubjectID}, func(smp model.Sample) error {
		p := smp.P
		if req.ApplyCalibration {
			a, err := s.Apply(ctx, smp.SubjectID, p)
			if err != nil {
				return err
			}
			p = a.P
		}
		cm.Add(p, req.Threshold, smp.Y)
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := &AccuracyReport{
		N:          cm.N(),
		Threshold:  req.Threshold,
		F1:         cm.F1(),
		Confusion:  cm,
		Calibrated: req.ApplyCalibration,
		Dataset:    stats,
	}
	if em, err := cm.Accuracy(); err == nil {
		out.EM = &em
	}
	s.logger.Named("accuracy").Info(ctx, "accuracy computed",
		logger.Int("samples", out.N),
		optFloat("em", out.EM),
		logger.Float64("f1", out.F1),
	)
	return out, nil
}
