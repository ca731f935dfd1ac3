package calibration

import (
	"fmt"
	"slices"

	"github.com/okian/diarycal/internal/domain/model"
)

// IsotonicConfig sets the number of equal-width output bins.
type IsotonicConfig struct {
	Bins int
}

// DefaultIsotonicConfig returns 10 bins.
func DefaultIsotonicConfig() IsotonicConfig {
	return IsotonicConfig{Bins: 10}
}

func (c IsotonicConfig) Validate() error {
	if c.Bins < 1 {
		return fmt.Errorf("%w: isotonic bins=%d", ErrInvalidHyperparameters, c.Bins)
	}
	return nil
}

// block is a run of consecutive sorted samples sharing one fitted value.
type block struct {
	weight float64
	sum    float64
	count  int
}

func (b block) mean() float64 { return b.sum / b.weight }

// FitIsotonic runs pool-adjacent-violators over the samples sorted by p and
// resamples the fitted step function onto equal-width bins. A bin's value is
// the mean fitted value of the samples inside it; an empty bin carries the
// previous bin's value forward and an empty first bin is 0.
func FitIsotonic(samples []model.Sample, cfg IsotonicConfig) (model.Isotonic, error) {
	if err := cfg.Validate(); err != nil {
		return model.Isotonic{}, err
	}
	if len(samples) == 0 {
		return model.Isotonic{}, ErrEmptyDataset
	}

	sorted := slices.Clone(samples)
	slices.SortStableFunc(sorted, func(x, y model.Sample) int {
		switch {
		case x.P < y.P:
			return -1
		case x.P > y.P:
			return 1
		default:
			return 0
		}
	})

	stack := make([]block, 0, len(sorted))
	for _, s := range sorted {
		stack = append(stack, block{weight: 1, sum: float64(s.Y), count: 1})
		for len(stack) > 1 {
			last, prev := stack[len(stack)-1], stack[len(stack)-2]
			if prev.mean() <= last.mean() {
				break
			}
			stack = stack[:len(stack)-2]
			stack = append(stack, block{
				weight: prev.weight + last.weight,
				sum:    prev.sum + last.sum,
				count:  prev.count + last.count,
			})
		}
	}

	B := cfg.Bins
	sums := make([]float64, B)
	counts := make([]int, B)
	i := 0
	for _, blk := range stack {
		fitted := blk.mean()
		for range blk.count {
			bin := model.BinIndex(sorted[i].P, B)
			sums[bin] += fitted
			counts[bin]++
			i++
		}
	}

	values := make([]float64, B)
	for k := range B {
		switch {
		case counts[k] > 0:
			values[k] = sums[k] / float64(counts[k])
		case k > 0:
			values[k] = values[k-1]
		}
	}
	for k := 1; k < B; k++ {
		if values[k] < values[k-1] {
			values[k] = values[k-1]
		}
	}

	return model.Isotonic{BinEdges: model.UniformEdges(B), BinValues: values}, nil
}

// Remap applies m to every sample, keeping labels.
func Remap(samples []model.Sample, m model.CalibrationModel) []model.Sample {
	out := make([]model.Sample, len(samples))
	for i, s := range samples {
		s.P, _ = model.Apply(m, s.P)
		out[i] = s
	}
	return out
}
