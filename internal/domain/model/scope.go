package model

import (
	"fmt"
	"strings"
)

// ScopeKind distinguishes the process-wide profile from per-subject ones.
type ScopeKind string

// Scope kinds.
const (
	ScopeGlobal   ScopeKind = "global"
	ScopePersonal ScopeKind = "personal"
)

const personalKeyPrefix = string(ScopePersonal) + ":"

// Scope addresses one calibration profile.
type Scope struct {
	Kind      ScopeKind
	SubjectID string
}

// GlobalScope returns the single population-wide scope.
func GlobalScope() Scope { return Scope{Kind: ScopeGlobal} }

// PersonalScope returns the scope of one subject.
func PersonalScope(subjectID string) Scope {
	return Scope{Kind: ScopePersonal, SubjectID: subjectID}
}

// Key is the storage key: "global" or "personal:<subject_id>".
func (s Scope) Key() string {
	if s.Kind == ScopePersonal {
		return personalKeyPrefix + s.SubjectID
	}
	return string(ScopeGlobal)
}

func (s Scope) String() string { return s.Key() }

// IsGlobal reports whether s is the global scope.
func (s Scope) IsGlobal() bool { return s.Kind == ScopeGlobal }

// Validate rejects unknown kinds and personal scopes without a subject.
func (s Scope) Validate() error {
	switch s.Kind {
	case ScopeGlobal:
		if s.SubjectID != "" {
			return fmt.Errorf("%w: global scope with subject %q", ErrInvalidScope, s.SubjectID)
		}
		return nil
	case ScopePersonal:
		if strings.TrimSpace(s.SubjectID) == "" {
			return fmt.Errorf("%w: personal scope without subject", ErrInvalidScope)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidScope, s.Kind)
	}
}

// ParseScope is the inverse of Key.
func ParseScope(key string) (Scope, error) {
	if key == string(ScopeGlobal) {
		return GlobalScope(), nil
	}
	if id, ok := strings.CutPrefix(key, personalKeyPrefix); ok {
		s := PersonalScope(id)
		return s, s.Validate()
	}
	return Scope{}, fmt.Errorf("%w: %q", ErrInvalidScope, key)
}
