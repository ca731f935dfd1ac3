// Package repository persists calibration profiles.
package repository

import (
	"context"

	"github.com/okian/diarycal/internal/domain/model"
)

// Store provides read/write access to calibration profiles.
//
// Set replaces the whole profile of its scope in one operation: a reader
// sees either the previous profile or the new one, never a model assembled
// from both.
type Store interface {
	// Get returns the profile of scope.
	// Returns ErrNotFound if the scope has no profile.
	Get(ctx context.Context, scope model.Scope) (*model.Profile, error)

	// Set validates and stores p, replacing any profile of the same scope.
	Set(ctx context.Context, p model.Profile) error

	// Delete removes the profile of scope. Deleting an absent scope is not an error.
	Delete(ctx context.Context, scope model.Scope) error

	// List returns every stored profile ordered by scope key.
	List(ctx context.Context) ([]model.Profile, error)
}
