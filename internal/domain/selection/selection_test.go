package selection_test

import (
	"errors"
	"testing"

	"github.com/okian/diarycal/internal/domain/model"
	"github.com/okian/diarycal/internal/domain/selection"
	"github.com/okian/diarycal/internal/synth"
	"github.com/smartystreets/goconvey/convey"
)

func synthetic(seed uint64, n int) []model.Sample {
	cfg := synth.DefaultConfig()
	cfg.Seed = seed
	cfg.N = n
	s, err := synth.Samples(cfg)
	if err != nil {
		panic(err)
	}
	return s
}

func TestSelect(t *testing.T) {
	convey.Convey("Given fewer samples than the floor", t, func() {
		_, err := selection.Select(synthetic(1, 4), selection.DefaultConfig())

		convey.Convey("Then selection is refused", func() {
			convey.So(errors.Is(err, selection.ErrInsufficientData), convey.ShouldBeTrue)
		})
	})

	convey.Convey("Given miscalibrated synthetic samples", t, func() {
		data := synthetic(3, 400)

		convey.Convey("When selecting automatically", func() {
			res, err := selection.Select(data, selection.DefaultConfig())

			convey.Convey("Then a calibrator beats the baseline", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(res.Type, convey.ShouldNotEqual, selection.ChoiceBase)
				convey.So(*res.Metrics.Brier, convey.ShouldBeLessThanOrEqualTo, *res.Base.Brier)
				convey.So(res.Platt, convey.ShouldNotBeNil)
				convey.So(res.Isotonic, convey.ShouldNotBeNil)
				convey.So(res.N, convey.ShouldEqual, 400)
			})

			convey.Convey("Then the model matches the chosen type", func() {
				convey.So(string(res.Model.Type()), convey.ShouldEqual, string(res.Type))
			})
		})

		convey.Convey("When only platt is allowed", func() {
			cfg := selection.DefaultConfig()
			cfg.Method = selection.MethodPlatt
			res, err := selection.Select(data, cfg)

			convey.Convey("Then isotonic is never fitted", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(res.Isotonic, convey.ShouldBeNil)
				convey.So(res.Type, convey.ShouldEqual, selection.ChoicePlatt)
			})
		})

		convey.Convey("When only isotonic is allowed", func() {
			cfg := selection.DefaultConfig()
			cfg.Method = selection.MethodIsotonic
			res, err := selection.Select(data, cfg)

			convey.Convey("Then platt is never fitted", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(res.Platt, convey.ShouldBeNil)
				convey.So(res.Type, convey.ShouldEqual, selection.ChoiceIsotonic)
			})
		})
	})

	convey.Convey("Given isotonic must win by more than the margin", t, func() {
		for seed := uint64(1); seed <= 5; seed++ {
			res, err := selection.Select(synthetic(seed, 200), selection.DefaultConfig())
			convey.So(err, convey.ShouldBeNil)
			if res.Type == selection.ChoiceIsotonic {
				convey.So(*res.Isotonic.Metrics.Brier, convey.ShouldBeLessThan, *res.Platt.Metrics.Brier-1e-6)
			}
		}

		convey.Convey("When the margin is larger than any gain", func() {
			cfg := selection.DefaultConfig()
			cfg.IsotonicMargin = 1
			res, err := selection.Select(synthetic(9, 300), cfg)

			convey.Convey("Then isotonic is never selected", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(res.Type, convey.ShouldNotEqual, selection.ChoiceIsotonic)
			})
		})
	})

	convey.Convey("Given already perfect predictions", t, func() {
		data := []model.Sample{{P: 0, Y: 0}, {P: 1, Y: 1}, {P: 0, Y: 0}, {P: 1, Y: 1}, {P: 1, Y: 1}}
		res, err := selection.Select(data, selection.DefaultConfig())

		convey.Convey("Then the baseline is kept as a None model", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(res.Type, convey.ShouldEqual, selection.ChoiceBase)
			convey.So(res.Model, convey.ShouldResemble, model.None{})
		})
	})
}

func TestParseMethod(t *testing.T) {
	convey.Convey("Given method names", t, func() {
		for in, want := range map[string]selection.Method{
			"":         selection.MethodAuto,
			"AUTO":     selection.MethodAuto,
			"platt":    selection.MethodPlatt,
			"Isotonic": selection.MethodIsotonic,
		} {
			got, err := selection.ParseMethod(in)
			convey.So(err, convey.ShouldBeNil)
			convey.So(got, convey.ShouldEqual, want)
		}

		_, err := selection.ParseMethod("beta")
		convey.So(errors.Is(err, selection.ErrUnknownMethod), convey.ShouldBeTrue)
	})
}
