// Package synth generates synthetic feedback records whose labels follow a
// known Platt curve. It backs the synth command and the calibration tests.
package synth

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/okian/diarycal/internal/domain/model"
)

// Ratings used to encode labels as explicit feedback.
const (
	PositiveRating = 5
	NegativeRating = 1
)

// Config describes a synthetic population.
type Config struct {
	// N is the number of records.
	N int
	// A and B define the true curve y ~ Bernoulli(sigmoid(A*p + B)).
	A float64
	B float64
	// Subjects spreads records round-robin over subject-1..subject-K.
	Subjects int
	// Seed makes generation deterministic.
	Seed uint64
	// Start and Span place observed_at uniformly in [Start, Start+Span).
	Start time.Time
	Span  time.Duration
	// Stratified replaces random sampling with an even p grid and
	// error-diffused labels, so that empirical frequencies track the curve
	// without sampling noise.
	Stratified bool
}

// DefaultConfig returns 500 records on the curve a=2, b=-1.
func DefaultConfig() Config {
	return Config{
		N:        500,
		A:        2,
		B:        -1,
		Subjects: 1,
		Seed:     1,
		Start:    time.Now().UTC().AddDate(0, 0, -7),
		Span:     7 * 24 * time.Hour,
	}
}

// Samples produces cfg.N samples.
func Samples(cfg Config) ([]model.Sample, error) {
	if cfg.N < 0 || cfg.Subjects < 0 {
		return nil, fmt.Errorf("synth: invalid config n=%d subjects=%d", cfg.N, cfg.Subjects)
	}
	subjects := max(cfg.Subjects, 1)
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))

	out := make([]model.Sample, cfg.N)
	carry := 0.0
	for i := range cfg.N {
		var p float64
		var y int
		if cfg.Stratified {
			p = (float64(i) + 0.5) / float64(cfg.N)
			carry += model.Sigmoid(cfg.A*p + cfg.B)
			if carry >= 0.5 {
				y = 1
				carry--
			}
		} else {
			p = rng.Float64()
			if rng.Float64() < model.Sigmoid(cfg.A*p+cfg.B) {
				y = 1
			}
		}

		var at time.Time
		if cfg.Span > 0 {
			at = cfg.Start.Add(time.Duration(rng.Int64N(int64(cfg.Span))))
		} else {
			at = cfg.Start
		}

		out[i] = model.Sample{
			P:          p,
			Y:          y,
			SubjectID:  fmt.Sprintf("subject-%d", i%subjects+1),
			ObservedAt: at,
		}
	}
	return out, nil
}

// Records produces cfg.N label store records. Labels are written as explicit
// ratings so they resolve through the normal chain.
func Records(cfg Config) ([]model.Record, error) {
	samples, err := Samples(cfg)
	if err != nil {
		return nil, err
	}

	ids := rand.NewChaCha8(seedBytes(cfg.Seed))
	out := make([]model.Record, len(samples))
	for i, s := range samples {
		id, err := uuid.NewRandomFromReader(ids)
		if err != nil {
			return nil, fmt.Errorf("synth: record id: %w", err)
		}
		rating := float64(NegativeRating)
		if s.Y == 1 {
			rating = PositiveRating
		}
		out[i] = model.Record{
			ID:             id.String(),
			SubjectID:      s.SubjectID,
			ObservedAt:     s.ObservedAt,
			RawProbability: model.Ptr(s.P),
			ExplicitRating: model.Ptr(rating),
		}
	}
	return out, nil
}

func seedBytes(seed uint64) [32]byte {
	var b [32]byte
	for i := range 8 {
		b[i] = byte(seed >> (8 * i))
	}
	return b
}
