package service

import (
	"context"

	"github.com/okian/diarycal/internal/domain/model"
)

// Dump returns stored profiles keyed by scope key: every profile when all is
// set, otherwise the global profile plus the subject's personal profile.
func (s *Service) Dump(ctx context.Context, subjectID string, all bool) (map[string]model.Profile, error) {
	out := make(map[string]model.Profile)
	if all {
		ps, err := s.profiles.List(ctx)
		if err != nil {
			return nil, err
		}
		for _, p := range ps {
			out[p.Scope.Key()] = p
		}
		return out, nil
	}

	scopes := []model.Scope{model.GlobalScope()}
	if subjectID != "" {
		scopes = append(scopes, model.PersonalScope(subjectID))
	}
	for _, scope := range scopes {
		p, err := s.profile(ctx, scope)
		if err != nil {
			return nil, err
		}
		if p != nil {
			out[scope.Key()] = *p
		}
	}
	return out, nil
}
