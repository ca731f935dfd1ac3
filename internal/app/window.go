package service

import (
	"fmt"
	"time"

	"github.com/okian/diarycal/internal/domain/model"
)

const dateLayout = "2006-01-02"

// ResolveWindow builds a job window. from and to are YYYY-MM-DD dates: from
// starts at 00:00:00Z, to ends at 23:59:59Z. Explicit dates take precedence
// over days; a missing end defaults to now, a missing start to days before
// the end.
func ResolveWindow(now time.Time, days int, from, to string) (model.Window, error) {
	if days <= 0 && from == "" {
		return model.Window{}, fmt.Errorf("%w: days must be positive", ErrInvalidWindow)
	}

	w := model.Window{To: now.UTC()}
	if to != "" {
		d, err := time.Parse(dateLayout, to)
		if err != nil {
			return model.Window{}, fmt.Errorf("%w: to: %w", ErrInvalidWindow, err)
		}
		w.To = d.Add(24*time.Hour - time.Second)
	}
	if from != "" {
		d, err := time.Parse(dateLayout, from)
		if err != nil {
			return model.Window{}, fmt.Errorf("%w: from: %w", ErrInvalidWindow, err)
		}
		w.From = d
	} else {
		w.From = w.To.AddDate(0, 0, -days)
	}

	if w.From.After(w.To) {
		return model.Window{}, fmt.Errorf("%w: from %s is after to %s", ErrInvalidWindow, w.From.Format(time.RFC3339), w.To.Format(time.RFC3339))
	}
	return w, nil
}
