package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/diarycal/internal/adapters/mq/queue"
	worker "github.com/okian/diarycal/internal/adapters/mq/worker"
	logging "github.com/okian/diarycal/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

type recordingHandler struct {
	mu       sync.Mutex
	handled  map[string]int
	failures map[string]error
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{
		handled:  make(map[string]int),
		failures: make(map[string]error),
	}
}

func (h *recordingHandler) Handle(_ context.Context, j worker.Job) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled[j.SubjectID]++
	return h.failures[j.SubjectID]
}

func (h *recordingHandler) count(subject string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.handled[subject]
}

func (h *recordingHandler) total() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, c := range h.handled {
		n += c
	}
	return n
}

func enqueueAll(q *queue.InMemoryQueue, subjects ...string) {
	for _, s := range subjects {
		convey.So(q.Enqueue(context.Background(), worker.Job{SubjectID: s}), convey.ShouldBeNil)
	}
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a worker reading a queue", t, func() {
		_ = logging.Init()

		q := queue.NewInMemoryQueue(queue.WithCapacity(8))
		h := newRecordingHandler()
		w := worker.NewInMemoryWorker(q, h, worker.WithName("test-worker"))

		convey.Convey("When the queue is drained and closed", func() {
			enqueueAll(q, "alice", "bob")
			_ = q.Close()

			done := make(chan struct{})
			go func() {
				w.Run(context.Background())
				close(done)
			}()

			convey.Convey("Then every job is handled and the worker exits", func() {
				select {
				case <-done:
				case <-time.After(time.Second):
					convey.So("worker did not exit", convey.ShouldBeEmpty)
				}
				convey.So(h.count("alice"), convey.ShouldEqual, 1)
				convey.So(h.count("bob"), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When the context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			go w.Run(ctx)
			cancel()

			convey.Convey("Then shutdown completes", func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
				defer shutdownCancel()
				convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
			})
		})
	})
}

func TestWorkerPool(t *testing.T) {
	convey.Convey("Given a pool of three workers", t, func() {
		_ = logging.Init()

		q := queue.NewInMemoryQueue(queue.WithCapacity(4))
		h := newRecordingHandler()
		pool := worker.NewPool(3, q, h)
		pool.Start(context.Background())

		convey.Convey("When more jobs than the queue holds are submitted", func() {
			subjects := []string{"s0", "s1", "s2", "s3", "s4", "s5", "s6", "s7", "s8", "s9"}
			enqueueAll(q, subjects...)
			_ = q.Close()
			err := pool.Wait()

			convey.Convey("Then each subject is trained exactly once", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(h.total(), convey.ShouldEqual, len(subjects))
				for _, s := range subjects {
					convey.So(h.count(s), convey.ShouldEqual, 1)
				}
			})
		})

		convey.Convey("When some jobs fail", func() {
			boom := errors.New("store down")
			h.failures["s1"] = boom
			enqueueAll(q, "s0", "s1", "s2")
			_ = q.Close()
			err := pool.Wait()

			convey.Convey("Then Wait reports the failures and the rest still run", func() {
				convey.So(errors.Is(err, boom), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "subject s1")
				convey.So(h.total(), convey.ShouldEqual, 3)
			})
		})

		convey.Convey("When the pool is shut down", func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()

			convey.Convey("Then the queue is closed and workers stop", func() {
				convey.So(pool.Shutdown(ctx), convey.ShouldBeNil)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
				convey.So(pool.Wait(), convey.ShouldBeNil)
			})
		})
	})
}

func TestPoolDefaults(t *testing.T) {
	convey.Convey("Given a non-positive worker count", t, func() {
		pool := worker.NewPool(0, queue.NewInMemoryQueue(), newRecordingHandler())

		convey.Convey("Then one worker per CPU is used", func() {
			convey.So(pool.Size(), convey.ShouldBeGreaterThan, 0)
		})
	})
}
