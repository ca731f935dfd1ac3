package labelstore

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/okian/diarycal/internal/domain/dataset"
	"github.com/okian/diarycal/internal/domain/model"
	"github.com/okian/diarycal/pkg/metrics"
)

const maxLineBytes = 1 << 20

// JSONLStore reads records from a file holding one JSON record per line.
// The file is read on every scan, in file order.
type JSONLStore struct {
	path string
}

// NewJSONLStore reads records from path.
func NewJSONLStore(path string) *JSONLStore {
	return &JSONLStore{path: path}
}

func (s *JSONLStore) Scan(ctx context.Context, q dataset.Query, fn func(model.Record) error) error {
	return s.each(ctx, func(r model.Record) error {
		if !matches(q, r) {
			return nil
		}
		return fn(r)
	})
}

func (s *JSONLStore) Subjects(ctx context.Context, w model.Window) ([]string, error) {
	seen := make(map[string]struct{})
	err := s.each(ctx, func(r model.Record) error {
		if w.Contains(r.ObservedAt) {
			seen[r.SubjectID] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sortedSubjects(seen), nil
}

func (s *JSONLStore) each(ctx context.Context, fn func(model.Record) error) error {
	f, err := os.Open(s.path)
	if err != nil {
		metrics.RecordStoreError("labelstore_jsonl")
		return fmt.Errorf("%w: %w", ErrStore, err)
	}
	defer func() { _ = f.Close() }()

	return ReadJSONL(ctx, f, fn)
}

// ReadJSONL decodes one record per line of r. Blank lines are skipped.
func ReadJSONL(ctx context.Context, r io.Reader, fn func(model.Record) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	line := 0
	for sc.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return err
		}
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		var rec model.Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return fmt.Errorf("%w: line %d: %w", ErrDecode, line, err)
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrStore, err)
	}
	return nil
}

// WriteJSONL writes records to w, one per line.
func WriteJSONL(w io.Writer, records []model.Record) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode record %s: %w", r.ID, err)
		}
	}
	return bw.Flush()
}
