package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithRegistry(registry))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "diarycal")
				So(manager.subsystem, ShouldEqual, "calibration")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithDurationBuckets([]float64{0.1, 0.5, 1.0}),
				WithEnabled(false),
				WithConstLabels(map[string]string{"env": "test"}),
				WithRegistry(registry),
			)

			Convey("Then the options should be applied", func() {
				So(manager.namespace, ShouldEqual, "test")
				So(manager.subsystem, ShouldEqual, "unit")
				So(manager.durationBuckets, ShouldResemble, []float64{0.1, 0.5, 1.0})
				So(manager.enabled, ShouldBeFalse)
				So(manager.constLabels["env"], ShouldEqual, "test")
			})
		})

		Convey("When empty values are passed", func() {
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithDurationBuckets(nil),
				WithRegistry(prometheus.NewRegistry()),
			)

			Convey("Then the defaults are kept", func() {
				So(manager.namespace, ShouldEqual, "diarycal")
				So(manager.subsystem, ShouldEqual, "calibration")
				So(manager.durationBuckets, ShouldResemble, defaultDurationBuckets)
			})
		})
	})
}

func TestManagerCounters(t *testing.T) {
	Convey("Given a manager on its own registry", t, func() {
		registry := prometheus.NewRegistry()
		manager := NewManager(WithRegistry(registry))

		Convey("When counters are incremented directly", func() {
			manager.recordsScanned.Inc()
			manager.recordsScanned.Inc()
			manager.recordsDropped.WithLabelValues("no_label").Inc()
			manager.brier.WithLabelValues("global", "after").Set(0.18)

			Convey("Then the registry reflects the values", func() {
				So(testutil.ToFloat64(manager.recordsScanned), ShouldEqual, 2.0)
				So(testutil.ToFloat64(manager.recordsDropped.WithLabelValues("no_label")), ShouldEqual, 1.0)
				So(testutil.ToFloat64(manager.brier.WithLabelValues("global", "after")), ShouldAlmostEqual, 0.18)
			})

			Convey("And metric names carry the namespace", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "diarycal_calibration_records_scanned_total")
				So(names, ShouldContain, "diarycal_calibration_brier_score")
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global helpers", t, func() {
		Convey("Then dataset helpers should not panic", func() {
			So(func() {
				RecordRecordScanned()
				RecordRecordDropped("no_probability")
				RecordSampleLoaded("explicit")
				RecordSampleLoaded("heuristic")
			}, ShouldNotPanic)
		})

		Convey("And training helpers should not panic", func() {
			So(func() {
				RecordTrainingRun("global", "written")
				RecordSelectedModel("personal", "platt")
				UpdateCalibrationScores("global", "before", 0.25, 0.1)
				ObserveTrainDuration(15 * time.Millisecond)
			}, ShouldNotPanic)
		})

		Convey("And store and job helpers should not panic", func() {
			So(func() {
				RecordProfileWrite("global", "set")
				RecordStoreError("postgres")
				RecordApply("personal")
				ObserveJobDuration("train", time.Second)
				UpdateSubjectsQueued(3)
			}, ShouldNotPanic)
		})

		Convey("And the scanned counter moves on the custom registry", func() {
			before := testutil.ToFloat64(globalManager.recordsScanned)
			RecordRecordScanned()
			So(testutil.ToFloat64(globalManager.recordsScanned), ShouldEqual, before+1)
		})

		Convey("And GetRegistry returns the custom registry", func() {
			So(GetRegistry(), ShouldEqual, customRegistry)
		})
	})
}

func TestPush(t *testing.T) {
	Convey("Given a pushgateway", t, func() {
		ctx := context.Background()

		Convey("When the URL is empty", func() {
			Convey("Then pushing is a no-op", func() {
				So(Push(ctx, "", "job"), ShouldBeNil)
			})
		})

		Convey("When the gateway accepts the push", func() {
			var gotPath, gotMethod string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath, gotMethod = r.URL.Path, r.Method
				w.WriteHeader(http.StatusOK)
			}))
			defer srv.Close()

			err := Push(ctx, srv.URL, "")

			Convey("Then the registry is PUT under the default job", func() {
				So(err, ShouldBeNil)
				So(gotMethod, ShouldEqual, http.MethodPut)
				So(strings.HasPrefix(gotPath, "/metrics/job/diarycal"), ShouldBeTrue)
			})
		})

		Convey("When the gateway rejects the push", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			}))
			defer srv.Close()

			err := Push(ctx, srv.URL, "train")

			Convey("Then ErrPushFailed is returned", func() {
				So(errors.Is(err, ErrPushFailed), ShouldBeTrue)
			})
		})
	})
}
