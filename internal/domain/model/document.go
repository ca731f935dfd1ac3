package model

import (
	"encoding/json"
	"fmt"
)

// Document is the serialized form of a CalibrationModel. It decodes from
// JSON and YAML alike and always carries its type.
type Document struct {
	Type      ModelType `json:"type"                 yaml:"type"`
	A         *float64  `json:"a,omitempty"          yaml:"a,omitempty"`
	B         *float64  `json:"b,omitempty"          yaml:"b,omitempty"`
	BinEdges  []float64 `json:"bin_edges,omitempty"  yaml:"bin_edges,omitempty"`
	BinValues []float64 `json:"bin_values,omitempty" yaml:"bin_values,omitempty"`
}

// ToDocument converts m into its serialized form. A nil model encodes as none.
func ToDocument(m CalibrationModel) Document {
	switch v := m.(type) {
	case Platt:
		a, b := v.A, v.B
		return Document{Type: TypePlatt, A: &a, B: &b}
	case Isotonic:
		c := v.Clone()
		return Document{Type: TypeIsotonic, BinEdges: c.BinEdges, BinValues: c.BinValues}
	default:
		return Document{Type: TypeNone}
	}
}

// Model validates the document and returns the variant it describes. A
// document without a type is rejected.
func (d Document) Model() (CalibrationModel, error) {
	if d.Type == "" {
		return nil, fmt.Errorf("%w: document has no type", ErrInvalidModel)
	}

	var m CalibrationModel
	switch d.Type {
	case TypeNone:
		m = None{}
	case TypePlatt:
		if d.A == nil || d.B == nil {
			return nil, fmt.Errorf("%w: platt requires a and b", ErrInvalidModel)
		}
		m = Platt{A: *d.A, B: *d.B}
	case TypeIsotonic:
		m = Isotonic{BinEdges: d.BinEdges, BinValues: d.BinValues}.Clone()
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidModel, d.Type)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// MarshalModel encodes m as tagged JSON.
func MarshalModel(m CalibrationModel) ([]byte, error) {
	return json.Marshal(ToDocument(m))
}

// UnmarshalModel decodes and validates tagged JSON.
func UnmarshalModel(data []byte) (CalibrationModel, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidModel, err)
	}
	return d.Model()
}
