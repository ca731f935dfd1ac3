// Package model contains the calibration domain types passed between layers.
package model

import "time"

// Record is one row of the label/feedback store. Optional signals are nil
// when the upstream analysis did not produce them.
type Record struct {
	ID             string    `json:"id"                        db:"id"`
	SubjectID      string    `json:"subject_id"                db:"subject_id"`
	ObservedAt     time.Time `json:"observed_at"               db:"observed_at"`
	RawProbability *float64  `json:"raw_probability,omitempty" db:"raw_probability"`
	ExplicitRating *float64  `json:"explicit_rating,omitempty" db:"explicit_rating"`
	Entailment     *float64  `json:"entailment,omitempty"      db:"entailment"`
	Contradiction  *float64  `json:"contradiction,omitempty"   db:"contradiction"`
	Entropy        *float64  `json:"entropy,omitempty"         db:"entropy"`
}

// Sample is a resolved (prediction, label) pair.
type Sample struct {
	P          float64
	Y          int
	SubjectID  string
	ObservedAt time.Time
}

// Window is an inclusive time range.
type Window struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Contains reports whether t lies within w.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.From) && !t.After(w.To)
}

// LastDays returns the window of the n days ending at now.
func LastDays(now time.Time, n int) Window {
	return Window{From: now.AddDate(0, 0, -n), To: now}
}

// Ptr returns a pointer to v. Used to fill optional record fields.
func Ptr(v float64) *float64 { return &v }
