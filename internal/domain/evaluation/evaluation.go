// Package evaluation computes Brier score, expected calibration error and
// threshold metrics over (probability, label) pairs.
package evaluation

import (
	"fmt"
	"math"

	"github.com/okian/diarycal/internal/domain/model"
)

// DefaultBins is the ECE bin count used when none is given.
const DefaultBins = 10

// Accumulator folds samples into Brier and ECE without keeping them.
// Bin k holds p in [k/B, (k+1)/B); p == 1 falls in the last bin.
type Accumulator struct {
	bins      int
	n         int
	positives int
	sqErr     float64
	binN      []int
	binP      []float64
	binY      []float64
}

// NewAccumulator creates an accumulator with the given ECE bin count.
func NewAccumulator(bins int) (*Accumulator, error) {
	if bins < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidBins, bins)
	}
	return &Accumulator{
		bins: bins,
		binN: make([]int, bins),
		binP: make([]float64, bins),
		binY: make([]float64, bins),
	}, nil
}

// Add folds in one pair.
func (a *Accumulator) Add(p float64, y int) {
	a.n++
	a.positives += y
	d := p - float64(y)
	a.sqErr += d * d

	k := model.BinIndex(p, a.bins)
	a.binN[k]++
	a.binP[k] += p
	a.binY[k] += float64(y)
}

// AddSample folds in a sample.
func (a *Accumulator) AddSample(s model.Sample) { a.Add(s.P, s.Y) }

func (a *Accumulator) N() int         { return a.n }
func (a *Accumulator) Positives() int { return a.positives }
func (a *Accumulator) Bins() int      { return a.bins }

// Brier is the mean squared error between p and y.
func (a *Accumulator) Brier() (float64, error) {
	if a.n == 0 {
		return math.NaN(), ErrEmptyDataset
	}
	return a.sqErr / float64(a.n), nil
}

// ECE is the population-weighted mean of |mean(p) - mean(y)| over non-empty
// bins.
func (a *Accumulator) ECE() (float64, error) {
	if a.n == 0 {
		return math.NaN(), ErrEmptyDataset
	}
	var sum float64
	for k, n := range a.binN {
		if n == 0 {
			continue
		}
		fn := float64(n)
		sum += fn * math.Abs(a.binP[k]/fn-a.binY[k]/fn)
	}
	return sum / float64(a.n), nil
}

// Brier scores a sample set.
func Brier(samples []model.Sample) (float64, error) {
	acc, _ := NewAccumulator(1)
	for _, s := range samples {
		acc.AddSample(s)
	}
	return acc.Brier()
}

// ECE scores a sample set over bins equal-width bins.
func ECE(samples []model.Sample, bins int) (float64, error) {
	acc, err := NewAccumulator(bins)
	if err != nil {
		return math.NaN(), err
	}
	for _, s := range samples {
		acc.AddSample(s)
	}
	return acc.ECE()
}

// Metrics is a Brier/ECE pair. Undefined values are nil and encode as null.
type Metrics struct {
	Brier *float64 `json:"brier"`
	ECE   *float64 `json:"ece"`
}

// Metrics snapshots the accumulator.
func (a *Accumulator) Metrics() Metrics {
	return Metrics{Brier: defined(a.Brier()), ECE: defined(a.ECE())}
}

// Score computes Metrics for a sample set.
func Score(samples []model.Sample, bins int) (Metrics, error) {
	acc, err := NewAccumulator(bins)
	if err != nil {
		return Metrics{}, err
	}
	for _, s := range samples {
		acc.AddSample(s)
	}
	return acc.Metrics(), nil
}

func defined(v float64, err error) *float64 {
	if err != nil {
		return nil
	}
	return &v
}
