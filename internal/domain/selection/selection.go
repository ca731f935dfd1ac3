// Package selection fits candidate calibrators and picks the one with the
// lowest Brier score.
//
// Candidates are scored on the same samples they were fitted on. This favors
// the more flexible isotonic map, which is why isotonic must beat the current
// best by a margin while platt wins ties.
package selection

import (
	"fmt"
	"strings"

	"github.com/okian/diarycal/internal/domain/calibration"
	"github.com/okian/diarycal/internal/domain/evaluation"
	"github.com/okian/diarycal/internal/domain/model"
)

// Method restricts which calibrators are tried.
type Method string

// Methods.
const (
	MethodAuto     Method = "auto"
	MethodPlatt    Method = "platt"
	MethodIsotonic Method = "isotonic"
)

// ParseMethod accepts platt, isotonic or auto (case-insensitive, empty is auto).
func ParseMethod(s string) (Method, error) {
	switch m := Method(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return MethodAuto, nil
	case MethodAuto, MethodPlatt, MethodIsotonic:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMethod, s)
	}
}

func (m Method) tries(other Method) bool { return m == MethodAuto || m == other }

// Choice is the selected candidate kind.
type Choice string

// Choices.
const (
	ChoiceBase     Choice = "base"
	ChoicePlatt    Choice = "platt"
	ChoiceIsotonic Choice = "isotonic"
)

// Config holds everything a selection run needs.
type Config struct {
	Method         Method
	Platt          calibration.PlattConfig
	Isotonic       calibration.IsotonicConfig
	ECEBins        int
	IsotonicMargin float64
	MinSamples     int
}

// DefaultConfig returns auto selection with the default calibrators, 10 ECE
// bins, a 1e-6 isotonic margin and a floor of 5 samples.
func DefaultConfig() Config {
	return Config{
		Method:         MethodAuto,
		Platt:          calibration.DefaultPlattConfig(),
		Isotonic:       calibration.DefaultIsotonicConfig(),
		ECEBins:        evaluation.DefaultBins,
		IsotonicMargin: 1e-6,
		MinSamples:     5,
	}
}

// Candidate is one fitted calibrator and its in-sample metrics.
type Candidate struct {
	Model   model.CalibrationModel `json:"-"`
	Metrics evaluation.Metrics     `json:"metrics"`
}

// Result is the outcome of Select.
type Result struct {
	Type     Choice                 `json:"type"`
	Model    model.CalibrationModel `json:"-"`
	Metrics  evaluation.Metrics     `json:"metrics"`
	Base     evaluation.Metrics     `json:"base"`
	Platt    *Candidate             `json:"platt,omitempty"`
	Isotonic *Candidate             `json:"isotonic,omitempty"`
	N        int                    `json:"n"`
}

// Select scores the uncalibrated baseline, then platt and isotonic as the
// method allows. Platt replaces the best when its Brier is <= the best;
// isotonic only when lower by more than IsotonicMargin. A base result carries
// the None model.
func Select(samples []model.Sample, cfg Config) (Result, error) {
	if len(samples) < cfg.MinSamples || len(samples) == 0 {
		return Result{}, fmt.Errorf("%w: %d samples, need %d", ErrInsufficientData, len(samples), cfg.MinSamples)
	}
	if cfg.Method == "" {
		cfg.Method = MethodAuto
	}

	base, err := evaluation.Score(samples, cfg.ECEBins)
	if err != nil {
		return Result{}, err
	}
	res := Result{Type: ChoiceBase, Model: model.None{}, Metrics: base, Base: base, N: len(samples)}
	best := *base.Brier

	if cfg.Method.tries(MethodPlatt) {
		m, err := calibration.FitPlatt(samples, cfg.Platt)
		if err != nil {
			return Result{}, err
		}
		c, err := candidate(samples, m, cfg.ECEBins)
		if err != nil {
			return Result{}, err
		}
		res.Platt = c
		if b := *c.Metrics.Brier; b <= best {
			best = b
			res.Type, res.Model, res.Metrics = ChoicePlatt, m, c.Metrics
		}
	}

	if cfg.Method.tries(MethodIsotonic) {
		m, err := calibration.FitIsotonic(samples, cfg.Isotonic)
		if err != nil {
			return Result{}, err
		}
		c, err := candidate(samples, m, cfg.ECEBins)
		if err != nil {
			return Result{}, err
		}
		res.Isotonic = c
		if b := *c.Metrics.Brier; b < best-cfg.IsotonicMargin {
			res.Type, res.Model, res.Metrics = ChoiceIsotonic, m, c.Metrics
		}
	}

	return res, nil
}

func candidate(samples []model.Sample, m model.CalibrationModel, bins int) (*Candidate, error) {
	metrics, err := evaluation.Score(calibration.Remap(samples, m), bins)
	if err != nil {
		return nil, err
	}
	return &Candidate{Model: m, Metrics: metrics}, nil
}
