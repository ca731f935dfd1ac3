// Package label resolves binary outcomes for feedback records through an
// ordered chain of resolvers.
package label

import (
	"math"

	"github.com/okian/diarycal/internal/domain/model"
)

// Source names the resolver that produced a label.
type Source string

// Label sources.
const (
	SourceExplicit Source = "explicit"
	SourceSignal   Source = "signal"
)

// Resolver derives y from a record. ok is false when the record carries
// nothing this resolver can use.
type Resolver interface {
	Source() Source
	Resolve(r model.Record) (y int, ok bool)
}

// Thresholds parameterize the default chain.
type Thresholds struct {
	// PositiveRating is the lowest explicit rating (1..5) counted as positive.
	PositiveRating float64
	// SignalMargin is the minimum entailment minus contradiction.
	SignalMargin float64
	// EntropyCeiling is the highest entropy still counted as positive.
	EntropyCeiling float64
}

// DefaultThresholds returns 4 / 0.15 / 0.65.
func DefaultThresholds() Thresholds {
	return Thresholds{PositiveRating: 4, SignalMargin: 0.15, EntropyCeiling: 0.65}
}

// ExplicitRating labels records that carry a user rating.
type ExplicitRating struct {
	PositiveRating float64
}

func (ExplicitRating) Source() Source { return SourceExplicit }

func (e ExplicitRating) Resolve(r model.Record) (int, bool) {
	if r.ExplicitRating == nil || math.IsNaN(*r.ExplicitRating) {
		return 0, false
	}
	if *r.ExplicitRating >= e.PositiveRating {
		return 1, true
	}
	return 0, true
}

// SignalHeuristic labels records from the upstream analysis signals. A
// missing signal counts as entailment 0, contradiction 0, entropy 1; a record
// with no signal at all is left unresolved.
type SignalHeuristic struct {
	Margin         float64
	EntropyCeiling float64
}

func (SignalHeuristic) Source() Source { return SourceSignal }

func (s SignalHeuristic) Resolve(r model.Record) (int, bool) {
	if r.Entailment == nil && r.Contradiction == nil && r.Entropy == nil {
		return 0, false
	}
	ent := valueOr(r.Entailment, 0)
	con := valueOr(r.Contradiction, 0)
	h := valueOr(r.Entropy, 1)
	if ent-con >= s.Margin && h <= s.EntropyCeiling {
		return 1, true
	}
	return 0, true
}

// Chain tries resolvers in order; the first that answers wins.
type Chain []Resolver

// NewChain returns explicit rating followed by the signal heuristic.
func NewChain(th Thresholds) Chain {
	return Chain{
		ExplicitRating{PositiveRating: th.PositiveRating},
		SignalHeuristic{Margin: th.SignalMargin, EntropyCeiling: th.EntropyCeiling},
	}
}

// ExplicitOnly returns a chain that ignores the analysis signals.
func ExplicitOnly(th Thresholds) Chain {
	return Chain{ExplicitRating{PositiveRating: th.PositiveRating}}
}

// Resolve returns the first label found and who produced it.
func (c Chain) Resolve(r model.Record) (int, Source, bool) {
	for _, res := range c {
		if y, ok := res.Resolve(r); ok {
			return y, res.Source(), true
		}
	}
	return 0, "", false
}

func valueOr(v *float64, def float64) float64 {
	if v == nil || math.IsNaN(*v) {
		return def
	}
	return *v
}
