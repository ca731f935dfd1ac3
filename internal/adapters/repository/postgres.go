package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/okian/diarycal/internal/domain/model"
	"github.com/okian/diarycal/pkg/metrics"
)

// ProfileSchema creates the profile table.
const ProfileSchema = `
CREATE TABLE IF NOT EXISTS calibration_profiles (
	scope_key             TEXT PRIMARY KEY,
	model                 JSONB NOT NULL,
	sample_count          INTEGER NOT NULL,
	min_samples_threshold INTEGER NOT NULL,
	updated_at            TIMESTAMPTZ NOT NULL
)`

const (
	selectProfileColumns = `SELECT scope_key, model, sample_count, min_samples_threshold, updated_at FROM calibration_profiles`

	upsertProfile = `
		INSERT INTO calibration_profiles (scope_key, model, sample_count, min_samples_threshold, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (scope_key) DO UPDATE SET
			model = EXCLUDED.model,
			sample_count = EXCLUDED.sample_count,
			min_samples_threshold = EXCLUDED.min_samples_threshold,
			updated_at = EXCLUDED.updated_at`

	deleteProfile = `DELETE FROM calibration_profiles WHERE scope_key = $1`

	pgUndefinedTable = "42P01"
)

const defaultQueryTimeout = 5 * time.Second

type profileRow struct {
	ScopeKey            string    `db:"scope_key"`
	Model               []byte    `db:"model"`
	SampleCount         int       `db:"sample_count"`
	MinSamplesThreshold int       `db:"min_samples_threshold"`
	UpdatedAt           time.Time `db:"updated_at"`
}

func (r profileRow) profile() (model.Profile, error) {
	scope, err := model.ParseScope(r.ScopeKey)
	if err != nil {
		return model.Profile{}, err
	}
	m, err := model.UnmarshalModel(r.Model)
	if err != nil {
		return model.Profile{}, fmt.Errorf("scope %s: %w", r.ScopeKey, err)
	}
	return model.Profile{
		Scope:               scope,
		Model:               m,
		SampleCount:         r.SampleCount,
		MinSamplesThreshold: r.MinSamplesThreshold,
		UpdatedAt:           r.UpdatedAt,
	}, nil
}

// PostgresStore keeps profiles in the calibration_profiles table. The model
// column holds the whole tagged model as one JSONB value.
type PostgresStore struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewPostgresStore wraps an open database.
func NewPostgresStore(db *sqlx.DB, opts ...PostgresOption) *PostgresStore {
	s := &PostgresStore{db: db, timeout: defaultQueryTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureSchema creates the profile table if it is missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, ProfileSchema); err != nil {
		return s.fail("ensure schema", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, scope model.Scope) (*model.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var row profileRow
	err := s.db.GetContext(ctx, &row, selectProfileColumns+` WHERE scope_key = $1`, scope.Key())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, s.fail("get "+scope.Key(), err)
	}

	p, err := row.profile()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}
	return &p, nil
}

func (s *PostgresStore) Set(ctx context.Context, p model.Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	doc, err := model.MarshalModel(p.Model)
	if err != nil {
		return fmt.Errorf("%w: encode model: %w", ErrStore, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, upsertProfile,
		p.Scope.Key(), doc, p.SampleCount, p.MinSamplesThreshold, p.UpdatedAt.UTC()); err != nil {
		return s.fail("set "+p.Scope.Key(), err)
	}
	metrics.RecordProfileWrite(string(p.Scope.Kind), "set")
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, scope model.Scope) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, deleteProfile, scope.Key()); err != nil {
		return s.fail("delete "+scope.Key(), err)
	}
	metrics.RecordProfileWrite(string(scope.Kind), "delete")
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]model.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var rows []profileRow
	if err := s.db.SelectContext(ctx, &rows, selectProfileColumns+` ORDER BY scope_key`); err != nil {
		return nil, s.fail("list", err)
	}
	out := make([]model.Profile, 0, len(rows))
	for _, r := range rows {
		p, err := r.profile()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStore, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *PostgresStore) fail(op string, err error) error {
	metrics.RecordStoreError("postgres")
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pgUndefinedTable {
		return fmt.Errorf("%w: %s: calibration_profiles is missing, run with --ensure-schema: %w", ErrStore, op, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrStore, op, err)
}
