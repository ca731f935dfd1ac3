package service

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/okian/diarycal/internal/domain/model"
	"gopkg.in/yaml.v3"
)

// ParsePlattPair parses "a,b".
func ParsePlattPair(s string) (model.Platt, error) {
	a, b, ok := strings.Cut(s, ",")
	if !ok {
		return model.Platt{}, fmt.Errorf("%w: platt parameters must be \"a,b\", got %q", model.ErrInvalidModel, s)
	}
	av, err := strconv.ParseFloat(strings.TrimSpace(a), 64)
	if err != nil {
		return model.Platt{}, fmt.Errorf("%w: a: %w", model.ErrInvalidModel, err)
	}
	bv, err := strconv.ParseFloat(strings.TrimSpace(b), 64)
	if err != nil {
		return model.Platt{}, fmt.Errorf("%w: b: %w", model.ErrInvalidModel, err)
	}
	m := model.Platt{A: av, B: bv}
	return m, m.Validate()
}

// modelFile is a hand-written model document. Besides the tagged form it
// accepts the legacy isotonic shape {"bins": edges, "map": values}.
type modelFile struct {
	model.Document `yaml:",inline"`

	Bins []float64 `json:"bins" yaml:"bins"`
	Map  []float64 `json:"map"  yaml:"map"`
}

func (f modelFile) document() model.Document {
	doc := f.Document
	if len(f.Map) > 0 && len(doc.BinValues) == 0 && (doc.Type == "" || doc.Type == model.TypeIsotonic) {
		doc.Type, doc.BinEdges, doc.BinValues = model.TypeIsotonic, f.Bins, f.Map
	}
	return doc
}

// LoadModelFile reads a model document. Files ending in .yaml or .yml are
// YAML, anything else JSON. Both accept the legacy {bins, map} isotonic shape.
func LoadModelFile(path string) (model.CalibrationModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model file: %w", err)
	}

	var f modelFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &f)
	default:
		err = json.Unmarshal(data, &f)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", model.ErrInvalidModel, path, err)
	}
	m, err := f.document().Model()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// ResolveSeedModel picks the model given on the command line. A platt pair
// takes precedence over an isotonic file; with neither the model is nil.
func ResolveSeedModel(plattPair, isotonicFile string) (model.CalibrationModel, error) {
	switch {
	case plattPair != "":
		return ParsePlattPair(plattPair)
	case isotonicFile != "":
		m, err := LoadModelFile(isotonicFile)
		if err != nil {
			return nil, err
		}
		if m.Type() != model.TypeIsotonic {
			return nil, fmt.Errorf("%w: %s holds a %s model, want isotonic", model.ErrInvalidModel, isotonicFile, m.Type())
		}
		return m, nil
	default:
		return nil, nil
	}
}
