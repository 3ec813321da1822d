package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	worker "github.com/okian/xianxia/internal/adapters/mq/worker"
	logging "github.com/okian/xianxia/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

// Mock implementations for testing.
type mockQueue struct {
	jobs chan string
}

func newMockQueue() *mockQueue {
	return &mockQueue{jobs: make(chan string, 10)}
}

func (mq *mockQueue) Dequeue(context.Context) <-chan string { return mq.jobs }

type recordingProcessor struct {
	mu     sync.Mutex
	seen   []string
	active int
	maxAct int
	delay  time.Duration
	fail   map[string]error
}

func (p *recordingProcessor) Process(_ context.Context, job string) error {
	p.mu.Lock()
	p.active++
	p.maxAct = max(p.maxAct, p.active)
	p.mu.Unlock()

	time.Sleep(p.delay)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.active--
	p.seen = append(p.seen, job)
	return p.fail[job]
}

func (p *recordingProcessor) snapshot() ([]string, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.seen...), p.maxAct
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a worker over a queue", t, func() {
		q := newMockQueue()
		proc := &recordingProcessor{delay: time.Millisecond, fail: map[string]error{"bad": errors.New("boom")}}
		w := worker.NewInMemoryWorker[string](q, proc, worker.WithName("test"), worker.WithLogger(logging.Nop()))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When several jobs are queued, one of them failing", func() {
			for _, j := range []string{"a", "bad", "b", "c"} {
				q.jobs <- j
			}
			close(q.jobs)

			select {
			case <-w.Done():
			case <-time.After(2 * time.Second):
				convey.So("worker did not stop", convey.ShouldBeEmpty)
			}

			convey.Convey("Then they are handled one at a time in order", func() {
				seen, maxActive := proc.snapshot()
				convey.So(seen, convey.ShouldResemble, []string{"a", "bad", "b", "c"})
				convey.So(maxActive, convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When the worker is shut down", func() {
			err := w.Shutdown(context.Background())

			convey.Convey("Then it stops and a second shutdown reports it", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(errors.Is(w.Shutdown(context.Background()), worker.ErrStopped), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the context is cancelled", func() {
			cancel()

			convey.Convey("Then Run returns", func() {
				select {
				case <-w.Done():
				case <-time.After(time.Second):
					convey.So("worker did not stop", convey.ShouldBeEmpty)
				}
			})
		})
	})
}

func TestProcessorFunc(t *testing.T) {
	convey.Convey("Given a function processor", t, func() {
		var got string
		p := worker.ProcessorFunc[string](func(_ context.Context, job string) error {
			got = job
			return nil
		})

		convey.So(p.Process(context.Background(), "x"), convey.ShouldBeNil)
		convey.So(got, convey.ShouldEqual, "x")
	})
}
