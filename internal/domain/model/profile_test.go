package model_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	model "github.com/okian/diarycal/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestScope(t *testing.T) {
	convey.Convey("Given scopes", t, func() {
		convey.Convey("Then keys round trip", func() {
			for _, s := range []model.Scope{model.GlobalScope(), model.PersonalScope("u-1")} {
				parsed, err := model.ParseScope(s.Key())
				convey.So(err, convey.ShouldBeNil)
				convey.So(parsed, convey.ShouldResemble, s)
			}
		})

		convey.Convey("Then personal keys carry the subject", func() {
			convey.So(model.PersonalScope("u-1").Key(), convey.ShouldEqual, "personal:u-1")
			convey.So(model.GlobalScope().Key(), convey.ShouldEqual, "global")
		})

		convey.Convey("Then malformed keys are rejected", func() {
			for _, key := range []string{"", "personal:", "team:x"} {
				_, err := model.ParseScope(key)
				convey.So(errors.Is(err, model.ErrInvalidScope), convey.ShouldBeTrue)
			}
		})
	})
}

func TestProfileState(t *testing.T) {
	convey.Convey("Given a personal profile with a threshold of 20", t, func() {
		p := &model.Profile{
			Scope:               model.PersonalScope("u-1"),
			Model:               model.Platt{A: 1.5, B: -0.2},
			MinSamplesThreshold: 20,
		}

		convey.Convey("When it has one sample fewer than the threshold", func() {
			p.SampleCount = 19
			convey.So(p.State(), convey.ShouldEqual, model.StateInsufficient)
		})

		convey.Convey("When it meets the threshold", func() {
			p.SampleCount = 20
			convey.So(p.State(), convey.ShouldEqual, model.StateActive)
		})

		convey.Convey("When the profile is nil", func() {
			var missing *model.Profile
			convey.So(missing.State(), convey.ShouldEqual, model.StateAbsent)
			convey.So(missing.State().String(), convey.ShouldEqual, "absent")
		})
	})

	convey.Convey("Given a global profile", t, func() {
		p := &model.Profile{Scope: model.GlobalScope(), Model: model.None{}, MinSamplesThreshold: 50}

		convey.Convey("Then the threshold does not gate it", func() {
			convey.So(p.State(), convey.ShouldEqual, model.StateActive)
		})
	})
}

func TestProfileJSON(t *testing.T) {
	convey.Convey("Given a profile with an isotonic model", t, func() {
		p := model.Profile{
			Scope:               model.PersonalScope("u-9"),
			Model:               model.Isotonic{BinEdges: []float64{0, 0.5, 1}, BinValues: []float64{0.1, 0.8}},
			SampleCount:         42,
			MinSamplesThreshold: 20,
			UpdatedAt:           time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		}

		data, err := json.Marshal(p)
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("Then the model is tagged", func() {
			var raw map[string]any
			convey.So(json.Unmarshal(data, &raw), convey.ShouldBeNil)
			convey.So(raw["scope"], convey.ShouldEqual, "personal:u-9")
			convey.So(raw["model"].(map[string]any)["type"], convey.ShouldEqual, "isotonic")
		})

		convey.Convey("Then decoding restores an equal profile", func() {
			var back model.Profile
			convey.So(json.Unmarshal(data, &back), convey.ShouldBeNil)
			convey.So(back, convey.ShouldResemble, p)
		})
	})
}

func TestDocument(t *testing.T) {
	convey.Convey("Given serialized models", t, func() {
		convey.Convey("When the platt document is tagged", func() {
			m, err := model.UnmarshalModel([]byte(`{"type":"platt","a":2,"b":-1}`))
			convey.So(err, convey.ShouldBeNil)
			convey.So(m, convey.ShouldResemble, model.Platt{A: 2, B: -1})
		})

		convey.Convey("When a platt has a zero slope", func() {
			data, err := model.MarshalModel(model.Platt{A: 0, B: 0.3})
			convey.So(err, convey.ShouldBeNil)
			m, err := model.UnmarshalModel(data)
			convey.So(err, convey.ShouldBeNil)
			convey.So(m, convey.ShouldResemble, model.Platt{A: 0, B: 0.3})
		})

		convey.Convey("When a stored document has no type", func() {
			for _, doc := range []string{
				`{"a":2,"b":-1}`,
				`{"bins":[0,0.5,1],"map":[0.3,0.6]}`,
				`{"bin_edges":[0,0.5,1],"bin_values":[0.3,0.6]}`,
			} {
				m, err := model.UnmarshalModel([]byte(doc))
				convey.So(m, convey.ShouldBeNil)
				convey.So(errors.Is(err, model.ErrInvalidModel), convey.ShouldBeTrue)
			}
		})

		convey.Convey("When None is encoded", func() {
			data, err := model.MarshalModel(model.None{})
			convey.So(err, convey.ShouldBeNil)
			convey.So(string(data), convey.ShouldEqual, `{"type":"none"}`)
		})

		convey.Convey("When the document is malformed", func() {
			for _, doc := range []string{
				`{"type":"spline"}`,
				`{"type":"platt","a":1}`,
				`{"type":"isotonic","bin_edges":[0,1],"bin_values":[0.2,0.1]}`,
				`{"type":"isotonic","bin_edges":[0,0.9,1],"bin_values":[0.1,0.9]}`,
				`{}`,
				`not json`,
			} {
				_, err := model.UnmarshalModel([]byte(doc))
				convey.So(errors.Is(err, model.ErrInvalidModel), convey.ShouldBeTrue)
			}
		})
	})
}
