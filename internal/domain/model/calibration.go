package model

import (
	"fmt"
	"math"
	"slices"
)

// ModelType tags a CalibrationModel variant.
type ModelType string

// Model variants.
const (
	TypeNone     ModelType = "none"
	TypePlatt    ModelType = "platt"
	TypeIsotonic ModelType = "isotonic"
)

// CalibrationModel is a closed variant: None, Platt or Isotonic.
type CalibrationModel interface {
	Type() ModelType
	Validate() error
	isCalibrationModel()
}

// None is the identity mapping.
type None struct{}

// Platt maps p to sigmoid(A*p + B).
type Platt struct {
	A float64
	B float64
}

// Isotonic is a binned monotone map. len(BinEdges) == len(BinValues)+1.
type Isotonic struct {
	BinEdges  []float64
	BinValues []float64
}

func (None) Type() ModelType     { return TypeNone }
func (Platt) Type() ModelType    { return TypePlatt }
func (Isotonic) Type() ModelType { return TypeIsotonic }

func (None) isCalibrationModel()     {}
func (Platt) isCalibrationModel()    {}
func (Isotonic) isCalibrationModel() {}

func (None) Validate() error { return nil }

func (m Platt) Validate() error {
	if !finite(m.A) || !finite(m.B) {
		return fmt.Errorf("%w: platt parameters must be finite (a=%v, b=%v)", ErrInvalidModel, m.A, m.B)
	}
	return nil
}

// edgeTolerance absorbs rounding in edges written by other tools.
const edgeTolerance = 1e-9

func (m Isotonic) Validate() error {
	b := len(m.BinValues)
	if b == 0 {
		return fmt.Errorf("%w: isotonic map has no bins", ErrInvalidModel)
	}
	if len(m.BinEdges) != b+1 {
		return fmt.Errorf("%w: %d edges for %d bins", ErrInvalidModel, len(m.BinEdges), b)
	}
	// Apply bins by floor(p*B), so only equal-width edges describe the map.
	for i, want := range UniformEdges(b) {
		if !(math.Abs(m.BinEdges[i]-want) <= edgeTolerance) {
			return fmt.Errorf("%w: edge %d is %v, want %v for %d equal-width bins", ErrInvalidModel, i, m.BinEdges[i], want, b)
		}
	}
	for i, v := range m.BinValues {
		if !finite(v) || v < 0 || v > 1 {
			return fmt.Errorf("%w: bin value %d out of [0,1]", ErrInvalidModel, i)
		}
		if i > 0 && v < m.BinValues[i-1] {
			return fmt.Errorf("%w: bin values decrease at %d", ErrInvalidModel, i)
		}
	}
	return nil
}

// Clone returns a copy that shares no slices with m.
func (m Isotonic) Clone() Isotonic {
	return Isotonic{BinEdges: slices.Clone(m.BinEdges), BinValues: slices.Clone(m.BinValues)}
}

// UniformEdges returns bins+1 equal-width edges over [0,1].
func UniformEdges(bins int) []float64 {
	edges := make([]float64, bins+1)
	for i := range edges {
		edges[i] = float64(i) / float64(bins)
	}
	edges[bins] = 1
	return edges
}

// BinIndex maps p in [0,1] to one of bins equal-width bins. p == 1 lands in
// the last bin.
func BinIndex(p float64, bins int) int {
	idx := int(math.Floor(p * float64(bins)))
	if idx < 0 {
		return 0
	}
	if idx > bins-1 {
		return bins - 1
	}
	return idx
}

// Sigmoid is the logistic function, stable for large |z|.
func Sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// Clamp01 clamps p into [0,1].
func Clamp01(p float64) float64 {
	return math.Min(1, math.Max(0, p))
}

// Apply maps a raw probability through m. NaN is rejected, anything else is
// clamped into [0,1] first. A nil model behaves as None.
func Apply(m CalibrationModel, raw float64) (float64, error) {
	if math.IsNaN(raw) {
		return 0, ErrInvalidProbability
	}
	p := Clamp01(raw)

	switch v := m.(type) {
	case nil, None:
		return p, nil
	case Platt:
		return Sigmoid(v.A*p + v.B), nil
	case Isotonic:
		if len(v.BinValues) == 0 {
			return 0, fmt.Errorf("%w: isotonic map has no bins", ErrInvalidModel)
		}
		return v.BinValues[BinIndex(p, len(v.BinValues))], nil
	default:
		return 0, fmt.Errorf("%w: unknown variant %T", ErrInvalidModel, m)
	}
}

// CloneModel returns m with its slices copied.
func CloneModel(m CalibrationModel) CalibrationModel {
	if iso, ok := m.(Isotonic); ok {
		return iso.Clone()
	}
	return m
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
