package evaluation

import (
	"github.com/okian/diarycal/internal/domain/model"
)

// Report compares calibration quality before and after a model.
type Report struct {
	N           int      `json:"n"`
	Positives   int      `json:"positives"`
	BrierBefore *float64 `json:"brier_before"`
	BrierAfter  *float64 `json:"brier_after"`
	ECEBefore   *float64 `json:"ece_before"`
	ECEAfter    *float64 `json:"ece_after"`
	Bins        int      `json:"bins"`
}

// Deltas returns after minus before; nil where either side is undefined.
func (r Report) Deltas() Metrics {
	return Metrics{Brier: diff(r.BrierAfter, r.BrierBefore), ECE: diff(r.ECEAfter, r.ECEBefore)}
}

// Comparison streams raw/calibrated pairs into a Report.
type Comparison struct {
	before    *Accumulator
	after     *Accumulator
	threshold float64
	abovePre  int
	abovePost int
}

// NewComparison creates a comparison over bins ECE bins that also counts
// probabilities strictly above threshold.
func NewComparison(bins int, threshold float64) (*Comparison, error) {
	before, err := NewAccumulator(bins)
	if err != nil {
		return nil, err
	}
	after, _ := NewAccumulator(bins)
	return &Comparison{before: before, after: after, threshold: threshold}, nil
}

// Add folds in one labelled raw probability and its calibrated value.
func (c *Comparison) Add(raw, calibrated float64, y int) {
	c.before.Add(raw, y)
	c.after.Add(calibrated, y)
	if raw > c.threshold {
		c.abovePre++
	}
	if calibrated > c.threshold {
		c.abovePost++
	}
}

// AboveThreshold returns the counts of raw and calibrated values above the
// threshold.
func (c *Comparison) AboveThreshold() (pre, post int) { return c.abovePre, c.abovePost }

// Report snapshots the comparison.
func (c *Comparison) Report() Report {
	b, a := c.before.Metrics(), c.after.Metrics()
	return Report{
		N:           c.before.N(),
		Positives:   c.before.Positives(),
		BrierBefore: b.Brier,
		BrierAfter:  a.Brier,
		ECEBefore:   b.ECE,
		ECEAfter:    a.ECE,
		Bins:        c.before.Bins(),
	}
}

// Compare evaluates samples before and after m.
func Compare(samples []model.Sample, m model.CalibrationModel, bins int) (Report, error) {
	c, err := NewComparison(bins, 0.5)
	if err != nil {
		return Report{}, err
	}
	for _, s := range samples {
		q, err := model.Apply(m, s.P)
		if err != nil {
			return Report{}, err
		}
		c.Add(s.P, q, s.Y)
	}
	return c.Report(), nil
}

func diff(after, before *float64) *float64 {
	if after == nil || before == nil {
		return nil
	}
	d := *after - *before
	return &d
}
