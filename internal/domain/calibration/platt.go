// Package calibration fits Platt and isotonic remappings of raw
// probabilities.
package calibration

import (
	"fmt"

	"github.com/okian/diarycal/internal/domain/model"
)

// PlattConfig holds the gradient descent hyperparameters.
type PlattConfig struct {
	LearningRate float64
	Iterations   int
	L2Penalty    float64
}

// DefaultPlattConfig returns lr 0.1, 2000 iterations, l2 1e-3.
func DefaultPlattConfig() PlattConfig {
	return PlattConfig{LearningRate: 0.1, Iterations: 2000, L2Penalty: 1e-3}
}

// Validate rejects non-positive learning rates or iteration counts and
// negative penalties.
func (c PlattConfig) Validate() error {
	if !(c.LearningRate > 0) || c.Iterations <= 0 || !(c.L2Penalty >= 0) {
		return fmt.Errorf("%w: platt lr=%v iterations=%d l2=%v",
			ErrInvalidHyperparameters, c.LearningRate, c.Iterations, c.L2Penalty)
	}
	return nil
}

// FitPlatt fits sigmoid(a*p + b) to the samples by full-batch gradient
// descent on L2-regularized cross-entropy, starting from a=1, b=0. The
// penalty applies to both a and b, which keeps single-class datasets finite.
func FitPlatt(samples []model.Sample, cfg PlattConfig) (model.Platt, error) {
	if err := cfg.Validate(); err != nil {
		return model.Platt{}, err
	}
	if len(samples) == 0 {
		return model.Platt{}, ErrEmptyDataset
	}

	n := float64(len(samples))
	a, b := 1.0, 0.0
	for range cfg.Iterations {
		var ga, gb float64
		for _, s := range samples {
			d := model.Sigmoid(a*s.P+b) - float64(s.Y)
			ga += d * s.P
			gb += d
		}
		ga += cfg.L2Penalty * a
		gb += cfg.L2Penalty * b

		a -= cfg.LearningRate * ga / n
		b -= cfg.LearningRate * gb / n
	}
	return model.Platt{A: a, B: b}, nil
}
