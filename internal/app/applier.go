package service

import (
	"context"
	"errors"
	"math"

	"github.com/okian/diarycal/internal/adapters/repository"
	"github.com/okian/diarycal/internal/domain/model"
	"github.com/okian/diarycal/pkg/metrics"
)

// Resolution names the profile an Apply call used.
type Resolution string

// Resolutions.
const (
	ResolvedPersonal Resolution = "personal"
	ResolvedGlobal   Resolution = "global"
	ResolvedNone     Resolution = "none"
)

// Applied is a calibrated probability and where its model came from.
type Applied struct {
	P         float64         `json:"p"`
	Raw       float64         `json:"raw"`
	Source    Resolution      `json:"source"`
	ModelType model.ModelType `json:"model_type"`
}

// Apply calibrates raw for subjectID. An active personal profile wins, then
// the global profile, then raw is returned clamped to [0,1]. Apply only reads
// the store.
func (s *Service) Apply(ctx context.Context, subjectID string, raw float64) (Applied, error) {
	if math.IsNaN(raw) {
		return Applied{}, model.ErrInvalidProbability
	}

	if subjectID != "" {
		p, err := s.profile(ctx, model.PersonalScope(subjectID))
		if err != nil {
			return Applied{}, err
		}
		if p.State() == model.StateActive {
			return s.applyProfile(p, raw, ResolvedPersonal)
		}
	}

	g, err := s.profile(ctx, model.GlobalScope())
	if err != nil {
		return Applied{}, err
	}
	if g.State() == model.StateActive {
		return s.applyProfile(g, raw, ResolvedGlobal)
	}

	metrics.RecordApply(string(ResolvedNone))
	return Applied{P: model.Clamp01(raw), Raw: raw, Source: ResolvedNone, ModelType: model.TypeNone}, nil
}

func (s *Service) applyProfile(p *model.Profile, raw float64, src Resolution) (Applied, error) {
	q, err := model.Apply(p.Model, raw)
	if err != nil {
		return Applied{}, err
	}
	metrics.RecordApply(string(src))
	return Applied{P: q, Raw: raw, Source: src, ModelType: p.Model.Type()}, nil
}

// profile returns the stored profile of scope, or nil when there is none.
func (s *Service) profile(ctx context.Context, scope model.Scope) (*model.Profile, error) {
	p, err := s.profiles.Get(ctx, scope)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return p, err
}
