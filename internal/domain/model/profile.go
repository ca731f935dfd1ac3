package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// ProfileState is the effective state of a scope's profile.
type ProfileState int

// Profile states.
const (
	StateAbsent ProfileState = iota
	StateInsufficient
	StateActive
)

func (s ProfileState) String() string {
	switch s {
	case StateInsufficient:
		return "insufficient"
	case StateActive:
		return "active"
	default:
		return "absent"
	}
}

// Profile is a persisted calibration model plus metadata. It is always
// written as a whole.
type Profile struct {
	Scope               Scope
	Model               CalibrationModel
	SampleCount         int
	MinSamplesThreshold int
	UpdatedAt           time.Time
}

// State reports whether the profile would be applied. A nil profile is
// absent; a personal profile below its threshold is never applied.
func (p *Profile) State() ProfileState {
	if p == nil {
		return StateAbsent
	}
	if p.Scope.Kind == ScopePersonal && p.SampleCount < p.MinSamplesThreshold {
		return StateInsufficient
	}
	return StateActive
}

// Clone returns a deep copy.
func (p Profile) Clone() Profile {
	p.Model = CloneModel(p.Model)
	return p
}

// Validate checks the scope and the model.
func (p Profile) Validate() error {
	if err := p.Scope.Validate(); err != nil {
		return err
	}
	if p.Model == nil {
		return fmt.Errorf("%w: profile %s has no model", ErrInvalidModel, p.Scope)
	}
	return p.Model.Validate()
}

type profileJSON struct {
	Scope               string    `json:"scope"`
	Model               Document  `json:"model"`
	SampleCount         int       `json:"sample_count"`
	MinSamplesThreshold int       `json:"min_samples_threshold"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// MarshalJSON encodes the profile with its tagged model.
func (p Profile) MarshalJSON() ([]byte, error) {
	return json.Marshal(profileJSON{
		Scope:               p.Scope.Key(),
		Model:               ToDocument(p.Model),
		SampleCount:         p.SampleCount,
		MinSamplesThreshold: p.MinSamplesThreshold,
		UpdatedAt:           p.UpdatedAt.UTC(),
	})
}

// UnmarshalJSON decodes and validates a profile.
func (p *Profile) UnmarshalJSON(data []byte) error {
	var raw profileJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	scope, err := ParseScope(raw.Scope)
	if err != nil {
		return err
	}
	m, err := raw.Model.Model()
	if err != nil {
		return err
	}
	*p = Profile{
		Scope:               scope,
		Model:               m,
		SampleCount:         raw.SampleCount,
		MinSamplesThreshold: raw.MinSamplesThreshold,
		UpdatedAt:           raw.UpdatedAt,
	}
	return nil
}
