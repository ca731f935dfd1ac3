package synth_test

import (
	"testing"
	"time"

	"github.com/okian/diarycal/internal/synth"
	"github.com/smartystreets/goconvey/convey"
)

func TestSamples(t *testing.T) {
	convey.Convey("Given a seeded config", t, func() {
		cfg := synth.DefaultConfig()
		cfg.N = 300
		cfg.Subjects = 3
		cfg.Start = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		cfg.Span = 24 * time.Hour

		convey.Convey("When generating twice", func() {
			a, err := synth.Samples(cfg)
			convey.So(err, convey.ShouldBeNil)
			b, _ := synth.Samples(cfg)

			convey.Convey("Then the output is identical", func() {
				convey.So(a, convey.ShouldResemble, b)
			})

			convey.Convey("Then samples are spread over subjects and the window", func() {
				counts := map[string]int{}
				for _, s := range a {
					counts[s.SubjectID]++
					convey.So(s.P, convey.ShouldBeBetweenOrEqual, 0.0, 1.0)
					convey.So(s.ObservedAt.Before(cfg.Start), convey.ShouldBeFalse)
					convey.So(s.ObservedAt.Before(cfg.Start.Add(cfg.Span)), convey.ShouldBeTrue)
				}
				convey.So(counts, convey.ShouldResemble, map[string]int{"subject-1": 100, "subject-2": 100, "subject-3": 100})
			})
		})

		convey.Convey("When generating stratified samples", func() {
			cfg.Stratified = true
			cfg.N = 1000
			s, err := synth.Samples(cfg)
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then the positive rate tracks the curve", func() {
				pos := 0
				for _, x := range s {
					pos += x.Y
				}
				// mean of sigmoid(2p-1) over [0,1] is 0.5
				convey.So(float64(pos)/float64(len(s)), convey.ShouldAlmostEqual, 0.5, 0.01)
			})
		})
	})
}

func TestRecords(t *testing.T) {
	convey.Convey("Given a seeded config", t, func() {
		cfg := synth.DefaultConfig()
		cfg.N = 50

		convey.Convey("When generating records", func() {
			recs, err := synth.Records(cfg)
			convey.So(err, convey.ShouldBeNil)
			again, _ := synth.Records(cfg)

			convey.Convey("Then ids are unique and stable", func() {
				ids := map[string]bool{}
				for i, r := range recs {
					ids[r.ID] = true
					convey.So(r.ID, convey.ShouldEqual, again[i].ID)
				}
				convey.So(len(ids), convey.ShouldEqual, 50)
			})

			convey.Convey("Then labels are encoded as ratings", func() {
				for _, r := range recs {
					convey.So(*r.ExplicitRating == synth.PositiveRating || *r.ExplicitRating == synth.NegativeRating, convey.ShouldBeTrue)
					convey.So(r.RawProbability, convey.ShouldNotBeNil)
				}
			})
		})
	})
}
