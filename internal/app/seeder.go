package service

import (
	"context"
	"fmt"

	"github.com/okian/diarycal/internal/domain/model"
	"github.com/okian/diarycal/pkg/logger"
)

// SeedRequest describes manual profile writes.
type SeedRequest struct {
	Global        model.CalibrationModel
	Personal      model.CalibrationModel
	SubjectID     string
	Rated         int
	MinSamples    int
	ClearGlobal   bool
	ClearPersonal bool
	DryRun        bool
}

// SeedAction is one write performed, or planned in a dry run.
type SeedAction struct {
	Scope  string          `json:"scope"`
	Op     string          `json:"op"`
	Model  *model.Document `json:"model,omitempty"`
	DryRun bool            `json:"dry_run"`
}

// Seed clears and writes profiles by hand. Every model is validated before
// the first write; clears run before sets.
func (s *Service) Seed(ctx context.Context, req SeedRequest) ([]SeedAction, error) {
	needsSubject := req.Personal != nil || req.ClearPersonal
	if needsSubject && req.SubjectID == "" {
		return nil, ErrSubjectRequired
	}
	if req.Rated < 0 || req.MinSamples < 0 {
		return nil, fmt.Errorf("%w: rated and min must not be negative", ErrInvalidRequest)
	}
	for _, m := range []model.CalibrationModel{req.Global, req.Personal} {
		if m == nil {
			continue
		}
		if err := m.Validate(); err != nil {
			return nil, err
		}
	}
	minSamples := req.MinSamples
	if minSamples == 0 {
		minSamples = s.minSamples
	}

	var plan []SeedAction
	var writes []func() error
	now := s.now().UTC()

	del := func(scope model.Scope) {
		plan = append(plan, SeedAction{Scope: scope.Key(), Op: "delete", DryRun: req.DryRun})
		writes = append(writes, func() error { return s.profiles.Delete(ctx, scope) })
	}
	set := func(p model.Profile) {
		doc := model.ToDocument(p.Model)
		plan = append(plan, SeedAction{Scope: p.Scope.Key(), Op: "set", Model: &doc, DryRun: req.DryRun})
		writes = append(writes, func() error { return s.profiles.Set(ctx, p) })
	}

	if req.ClearGlobal {
		del(model.GlobalScope())
	}
	if req.ClearPersonal {
		del(model.PersonalScope(req.SubjectID))
	}
	if req.Global != nil {
		set(model.Profile{Scope: model.GlobalScope(), Model: req.Global, SampleCount: req.Rated, UpdatedAt: now})
	}
	if req.Personal != nil {
		set(model.Profile{
			Scope:               model.PersonalScope(req.SubjectID),
			Model:               req.Personal,
			SampleCount:         req.Rated,
			MinSamplesThreshold: minSamples,
			UpdatedAt:           now,
		})
	}
	if len(plan) == 0 {
		return nil, fmt.Errorf("%w: nothing to seed", ErrInvalidRequest)
	}

	log := s.logger.Named("seeder")
	for i, a := range plan {
		if !req.DryRun {
			if err := writes[i](); err != nil {
				return plan[:i], err
			}
		}
		log.Info(ctx, "seed "+a.Op, logger.String("scope", a.Scope), logger.Bool("dry_run", req.DryRun))
	}
	return plan, nil
}
