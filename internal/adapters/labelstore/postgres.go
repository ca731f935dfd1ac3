package labelstore

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/okian/diarycal/internal/domain/dataset"
	"github.com/okian/diarycal/internal/domain/model"
	"github.com/okian/diarycal/pkg/metrics"
)

// RecordSchema is the table the label store reads. The core never writes it.
const RecordSchema = `
CREATE TABLE IF NOT EXISTS calibration_records (
	id              TEXT PRIMARY KEY,
	subject_id      TEXT NOT NULL,
	observed_at     TIMESTAMPTZ NOT NULL,
	raw_probability DOUBLE PRECISION,
	explicit_rating DOUBLE PRECISION,
	entailment      DOUBLE PRECISION,
	contradiction   DOUBLE PRECISION,
	entropy         DOUBLE PRECISION
)`

const (
	selectRecords = `SELECT id, subject_id, observed_at, raw_probability, explicit_rating, entailment, contradiction, entropy
		FROM calibration_records
		WHERE observed_at >= $1 AND observed_at <= $2`

	selectSubjects = `SELECT DISTINCT subject_id FROM calibration_records
		WHERE observed_at >= $1 AND observed_at <= $2
		ORDER BY subject_id`
)

const (
	defaultPageSize     = 1000
	defaultQueryTimeout = 5 * time.Second
)

// PostgresStore pages through calibration_records with keyset pagination on
// (observed_at, id).
type PostgresStore struct {
	db       *sqlx.DB
	pageSize int
	timeout  time.Duration
}

// NewPostgresStore wraps an open database.
func NewPostgresStore(db *sqlx.DB, opts ...PostgresOption) *PostgresStore {
	s := &PostgresStore{db: db, pageSize: defaultPageSize, timeout: defaultQueryTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type cursor struct {
	at time.Time
	id string
}

func (s *PostgresStore) pageQuery(q dataset.Query, after *cursor) (string, []any) {
	var b strings.Builder
	b.WriteString(selectRecords)
	args := []any{q.Window.From.UTC(), q.Window.To.UTC()}

	if q.SubjectID != "" {
		args = append(args, q.SubjectID)
		b.WriteString(" AND subject_id = $" + strconv.Itoa(len(args)))
	}
	if after != nil {
		args = append(args, after.at, after.id)
		fmt.Fprintf(&b, " AND (observed_at, id) > ($%d, $%d)", len(args)-1, len(args))
	}
	args = append(args, s.pageSize)
	fmt.Fprintf(&b, " ORDER BY observed_at, id LIMIT $%d", len(args))
	return b.String(), args
}

func (s *PostgresStore) Scan(ctx context.Context, q dataset.Query, fn func(model.Record) error) error {
	var after *cursor
	for {
		page, err := s.page(ctx, q, after)
		if err != nil {
			return err
		}
		for _, r := range page {
			if err := fn(r); err != nil {
				return err
			}
		}
		if len(page) < s.pageSize {
			return nil
		}
		last := page[len(page)-1]
		after = &cursor{at: last.ObservedAt, id: last.ID}
	}
}

func (s *PostgresStore) page(ctx context.Context, q dataset.Query, after *cursor) ([]model.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query, args := s.pageQuery(q, after)
	var rows []model.Record
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		metrics.RecordStoreError("labelstore_postgres")
		return nil, fmt.Errorf("%w: scan records: %w", ErrStore, err)
	}
	return rows, nil
}

func (s *PostgresStore) Subjects(ctx context.Context, w model.Window) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var subjects []string
	if err := s.db.SelectContext(ctx, &subjects, selectSubjects, w.From.UTC(), w.To.UTC()); err != nil {
		metrics.RecordStoreError("labelstore_postgres")
		return nil, fmt.Errorf("%w: list subjects: %w", ErrStore, err)
	}
	return subjects, nil
}
