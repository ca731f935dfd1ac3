// Package labelstore reads calibration records from the label/feedback store.
// Every store implements dataset.Source and streams records instead of
// materializing the whole window.
package labelstore

import (
	"context"
	"slices"
	"strings"

	"github.com/okian/diarycal/internal/domain/dataset"
	"github.com/okian/diarycal/internal/domain/model"
)

// Store is a read-only label store.
type Store interface {
	dataset.Source

	// Subjects lists the distinct subject ids with records in w, sorted.
	Subjects(ctx context.Context, w model.Window) ([]string, error)
}

func matches(q dataset.Query, r model.Record) bool {
	if q.SubjectID != "" && r.SubjectID != q.SubjectID {
		return false
	}
	return q.Window.Contains(r.ObservedAt)
}

func compareRecords(a, b model.Record) int {
	if c := a.ObservedAt.Compare(b.ObservedAt); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}

func sortedSubjects(seen map[string]struct{}) []string {
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}
