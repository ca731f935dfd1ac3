package service_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/diarycal/internal/adapters/labelstore"
	"github.com/okian/diarycal/internal/adapters/repository"
	service "github.com/okian/diarycal/internal/app"
	"github.com/okian/diarycal/internal/domain/model"
	"github.com/okian/diarycal/internal/domain/selection"
	"github.com/okian/diarycal/internal/synth"
	"github.com/okian/diarycal/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

var now = time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

var month = model.LastDays(now, 30)

// synthRecords returns n stratified records on the curve a=2, b=-1 spread
// over subjects, all within the last week.
func synthRecords(n, subjects int) []model.Record {
	cfg := synth.DefaultConfig()
	cfg.N = n
	cfg.Subjects = subjects
	cfg.Stratified = true
	cfg.Start = now.AddDate(0, 0, -7)
	records, err := synth.Records(cfg)
	So(err, ShouldBeNil)
	return records
}

func newService(profiles repository.Store, records []model.Record, opts ...service.Option) *service.Service {
	opts = append([]service.Option{
		service.WithClock(func() time.Time { return now }),
		service.WithIDGenerator(func() string { return "run-1" }),
		service.WithWorkerCount(2),
		service.WithQueueSize(1),
	}, opts...)
	return service.New(profiles, labelstore.NewMemoryStore(records...), opts...)
}

// failingStore fails every write, and reads too when failReads is set.
type failingStore struct {
	*repository.MemoryStore
	failReads bool
}

func (f failingStore) Set(context.Context, model.Profile) error {
	return repository.ErrStore
}

func (f failingStore) Get(ctx context.Context, scope model.Scope) (*model.Profile, error) {
	if f.failReads {
		return nil, repository.ErrStore
	}
	return f.MemoryStore.Get(ctx, scope)
}

// subjectFailingStore rejects writes for one subject and counts every write
// attempt.
type subjectFailingStore struct {
	*repository.MemoryStore
	subject string
	writes  *atomic.Int32
}

func (f subjectFailingStore) Set(ctx context.Context, p model.Profile) error {
	f.writes.Add(1)
	if p.Scope.SubjectID == f.subject {
		return repository.ErrStore
	}
	return f.MemoryStore.Set(ctx, p)
}

func TestTrain(t *testing.T) {
	ctx := context.Background()

	Convey("Given 600 synthetic records over three subjects", t, func() {
		profiles := repository.NewMemoryStore()
		svc := newService(profiles, synthRecords(600, 3))

		Convey("When the global scope is trained", func() {
			rep, err := svc.Train(ctx, service.TrainRequest{Global: true, Window: month})

			Convey("Then a calibrated model is written", func() {
				So(err, ShouldBeNil)
				So(rep.RunID, ShouldEqual, "run-1")
				So(rep.Method, ShouldEqual, selection.MethodAuto)
				So(len(rep.Outcomes), ShouldEqual, 1)

				out := rep.Outcomes[0]
				So(out.Scope, ShouldEqual, "global")
				So(out.Status, ShouldEqual, service.StatusWritten)
				So(out.Selection.Type, ShouldNotEqual, selection.ChoiceBase)
				So(*out.Selection.Metrics.Brier, ShouldBeLessThan, *out.Selection.Base.Brier)
				So(out.Stats.Kept, ShouldEqual, 600)

				p, err := profiles.Get(ctx, model.GlobalScope())
				So(err, ShouldBeNil)
				So(p.SampleCount, ShouldEqual, 600)
				So(p.Model.Type(), ShouldEqual, model.ModelType(out.Selection.Type))
				So(p.UpdatedAt, ShouldEqual, now)
			})
		})

		Convey("When platt is forced", func() {
			rep, err := svc.Train(ctx, service.TrainRequest{Global: true, Window: month, Method: selection.MethodPlatt})

			Convey("Then isotonic is never fitted", func() {
				So(err, ShouldBeNil)
				So(rep.Outcomes[0].Selection.Isotonic, ShouldBeNil)
				So(rep.Outcomes[0].Model.Type, ShouldEqual, model.TypePlatt)
			})
		})

		Convey("When training is a dry run", func() {
			rep, err := svc.Train(ctx, service.TrainRequest{Global: true, Window: month, DryRun: true})

			Convey("Then nothing is written", func() {
				So(err, ShouldBeNil)
				So(rep.Outcomes[0].Status, ShouldEqual, service.StatusDryRun)
				So(rep.Outcomes[0].Model, ShouldNotBeNil)
				_, err := profiles.Get(ctx, model.GlobalScope())
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When a subject has fewer samples than min_samples", func() {
			prior := model.Profile{
				Scope:               model.PersonalScope("subject-1"),
				Model:               model.Platt{A: 1, B: 0},
				SampleCount:         40,
				MinSamplesThreshold: 20,
			}
			So(profiles.Set(ctx, prior), ShouldBeNil)

			rep, err := svc.Train(ctx, service.TrainRequest{Subjects: []string{"subject-1"}, Window: month, MinSamples: 1000})

			Convey("Then the write is skipped and the prior profile kept", func() {
				So(err, ShouldBeNil)
				out := rep.Outcomes[0]
				So(out.Status, ShouldEqual, service.StatusSkippedBelowThreshold)
				So(errors.Is(out.Err, service.ErrBelowThreshold), ShouldBeTrue)
				So(out.Reason, ShouldContainSubstring, "200 samples")

				p, err := profiles.Get(ctx, prior.Scope)
				So(err, ShouldBeNil)
				So(*p, ShouldResemble, prior)
			})
		})

		Convey("When min_samples is configured as zero", func() {
			zero := newService(profiles, synthRecords(30, 3), service.WithMinSamples(0))
			rep, err := zero.Train(ctx, service.TrainRequest{Subjects: []string{"subject-1"}, Window: month})

			Convey("Then a small personal profile is written and active", func() {
				So(err, ShouldBeNil)
				So(rep.MinSamples, ShouldEqual, 0)
				So(rep.Outcomes[0].Status, ShouldEqual, service.StatusWritten)

				p, err := profiles.Get(ctx, model.PersonalScope("subject-1"))
				So(err, ShouldBeNil)
				So(p.SampleCount, ShouldEqual, 10)
				So(p.MinSamplesThreshold, ShouldEqual, 0)
				So(p.State(), ShouldEqual, model.StateActive)
			})
		})

		Convey("When every personal scope is trained", func() {
			rep, err := svc.Train(ctx, service.TrainRequest{AllPersonal: true, Subjects: []string{"subject-2"}, Window: month})

			Convey("Then each subject is trained once through the pool", func() {
				So(err, ShouldBeNil)
				So(len(rep.Outcomes), ShouldEqual, 3)
				So(rep.Outcomes[0].Scope, ShouldEqual, "personal:subject-2")
				So(rep.Outcomes[1].Scope, ShouldEqual, "personal:subject-1")
				So(rep.Outcomes[2].Scope, ShouldEqual, "personal:subject-3")

				all, err := profiles.List(ctx)
				So(err, ShouldBeNil)
				So(len(all), ShouldEqual, 3)
				for _, p := range all {
					So(p.SampleCount, ShouldEqual, 200)
					So(p.MinSamplesThreshold, ShouldEqual, 20)
					So(p.State(), ShouldEqual, model.StateActive)
				}
			})
		})

		Convey("When the window holds no records", func() {
			rep, err := svc.Train(ctx, service.TrainRequest{Global: true, Window: model.LastDays(now.AddDate(-1, 0, 0), 30)})

			Convey("Then the scope is skipped without a write", func() {
				So(err, ShouldBeNil)
				So(rep.Outcomes[0].Status, ShouldEqual, service.StatusSkippedEmpty)
				all, _ := profiles.List(ctx)
				So(all, ShouldBeEmpty)
			})
		})

		Convey("When no scope is selected", func() {
			_, err := svc.Train(ctx, service.TrainRequest{Window: month})

			Convey("Then ErrNoScope is returned", func() {
				So(errors.Is(err, service.ErrNoScope), ShouldBeTrue)
			})
		})
	})

	Convey("Given fewer records than the selector accepts", t, func() {
		profiles := repository.NewMemoryStore()
		svc := newService(profiles, synthRecords(3, 1))

		rep, err := svc.Train(ctx, service.TrainRequest{Global: true, Window: month})

		Convey("Then the global scope is skipped as insufficient", func() {
			So(err, ShouldBeNil)
			out := rep.Outcomes[0]
			So(out.Status, ShouldEqual, service.StatusSkippedInsufficient)
			So(errors.Is(out.Err, selection.ErrInsufficientData), ShouldBeTrue)
		})
	})

	Convey("Given records whose raw probabilities are already exact", t, func() {
		var records []model.Record
		for i := 0; i < 10; i++ {
			p, rating := 0.0, 1.0
			if i%2 == 0 {
				p, rating = 1, 5
			}
			records = append(records, model.Record{
				ID:             string(rune('a' + i)),
				SubjectID:      "s",
				ObservedAt:     now.Add(-time.Hour),
				RawProbability: model.Ptr(p),
				ExplicitRating: model.Ptr(rating),
			})
		}
		profiles := repository.NewMemoryStore()
		svc := newService(profiles, records)

		rep, err := svc.Train(ctx, service.TrainRequest{Global: true, Window: month})

		Convey("Then the baseline wins and an explicit none model is written", func() {
			So(err, ShouldBeNil)
			So(rep.Outcomes[0].Selection.Type, ShouldEqual, selection.ChoiceBase)
			p, err := profiles.Get(ctx, model.GlobalScope())
			So(err, ShouldBeNil)
			So(p.Model, ShouldResemble, model.None{})
		})
	})

	Convey("Given a profile store that rejects writes", t, func() {
		svc := newService(failingStore{MemoryStore: repository.NewMemoryStore()}, synthRecords(600, 3))

		Convey("When the global scope is trained", func() {
			_, err := svc.Train(ctx, service.TrainRequest{Global: true, Window: month})

			Convey("Then the store error aborts the run", func() {
				So(errors.Is(err, repository.ErrStore), ShouldBeTrue)
			})
		})

		Convey("When every personal scope is trained", func() {
			_, err := svc.Train(ctx, service.TrainRequest{AllPersonal: true, Window: month})

			Convey("Then the failures are reported", func() {
				So(errors.Is(err, repository.ErrStore), ShouldBeTrue)
			})
		})
	})

	Convey("Given a store that fails the first personal write", t, func() {
		store := subjectFailingStore{MemoryStore: repository.NewMemoryStore(), subject: "subject-1", writes: new(atomic.Int32)}
		svc := newService(store, synthRecords(600, 3), service.WithWorkerCount(1))

		Convey("When every personal scope is trained", func() {
			_, err := svc.Train(ctx, service.TrainRequest{AllPersonal: true, Window: month})

			Convey("Then the remaining subjects are cancelled unwritten", func() {
				So(errors.Is(err, repository.ErrStore), ShouldBeTrue)
				So(errors.Is(err, context.Canceled), ShouldBeFalse)
				So(int(store.writes.Load()), ShouldEqual, 1)

				stored, err := store.List(ctx)
				So(err, ShouldBeNil)
				So(len(stored), ShouldEqual, 0)
			})
		})
	})
}

func TestResolveWindow(t *testing.T) {
	Convey("Given a reference time", t, func() {
		Convey("When only days is given", func() {
			w, err := service.ResolveWindow(now, 7, "", "")

			Convey("Then the window ends now", func() {
				So(err, ShouldBeNil)
				So(w.To, ShouldEqual, now)
				So(w.From, ShouldEqual, now.AddDate(0, 0, -7))
			})
		})

		Convey("When explicit dates are given", func() {
			w, err := service.ResolveWindow(now, 7, "2026-01-01", "2026-01-31")

			Convey("Then they span whole days and override days", func() {
				So(err, ShouldBeNil)
				So(w.From, ShouldEqual, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
				So(w.To, ShouldEqual, time.Date(2026, 1, 31, 23, 59, 59, 0, time.UTC))
			})
		})

		Convey("When only the end date is given", func() {
			w, err := service.ResolveWindow(now, 10, "", "2026-02-10")

			Convey("Then the start is days before it", func() {
				So(err, ShouldBeNil)
				So(w.From, ShouldEqual, time.Date(2026, 1, 31, 23, 59, 59, 0, time.UTC))
			})
		})

		Convey("When the input is invalid", func() {
			_, errDate := service.ResolveWindow(now, 7, "01/02/2026", "")
			_, errOrder := service.ResolveWindow(now, 7, "2026-03-01", "2026-02-01")
			_, errDays := service.ResolveWindow(now, 0, "", "")

			Convey("Then ErrInvalidWindow is returned", func() {
				So(errors.Is(errDate, service.ErrInvalidWindow), ShouldBeTrue)
				So(errors.Is(errOrder, service.ErrInvalidWindow), ShouldBeTrue)
				So(errors.Is(errDays, service.ErrInvalidWindow), ShouldBeTrue)
			})
		})
	})
}
