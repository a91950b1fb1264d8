package worker_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"boardsync.app/mirror/internal/model"
	"boardsync.app/mirror/internal/queue"
	"boardsync.app/mirror/internal/service"
	"boardsync.app/mirror/internal/worker"
)

// fakeConsumer hands out messages pushed into its channel and records
// every outcome. Read blocks briefly when the channel is empty, like the
// real stream consumer does.
type fakeConsumer struct {
	messages chan queue.Message

	mu       sync.Mutex
	acked    []string
	requeued []string
	dlq      []string
	dlqErrs  []string
}

func newFakeConsumer() *fakeConsumer {
	return &fakeConsumer{messages: make(chan queue.Message, 16)}
}

func (f *fakeConsumer) Read(ctx context.Context) ([]queue.Message, error) {
	select {
	case msg := <-f.messages:
		return []queue.Message{msg}, nil
	case <-ctx.Done():
		return nil, nil
	case <-time.After(5 * time.Millisecond):
		return nil, nil
	}
}

func (f *fakeConsumer) Ack(ctx context.Context, msg queue.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked = append(f.acked, msg.ID)
	return nil
}

func (f *fakeConsumer) Requeue(ctx context.Context, msg queue.Message, errMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requeued = append(f.requeued, msg.ID)
	return nil
}

func (f *fakeConsumer) SendDLQ(ctx context.Context, msg queue.Message, errMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dlq = append(f.dlq, msg.ID)
	f.dlqErrs = append(f.dlqErrs, errMsg)
	return nil
}

func (f *fakeConsumer) ackedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.acked...)
}

func (f *fakeConsumer) requeuedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requeued...)
}

func (f *fakeConsumer) dlqIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.dlq...)
}

func (f *fakeConsumer) dlqErrors() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.dlqErrs...)
}

type fakeCatchupService struct {
	applyOneFn func(ctx context.Context, id int64) (bool, error)
	runCalls   atomic.Int32

	mu      sync.Mutex
	applied []int64
}

func (f *fakeCatchupService) Run(ctx context.Context, opts service.CatchupOptions) (*model.CatchupSummary, error) {
	f.runCalls.Add(1)
	return &model.CatchupSummary{}, nil
}

func (f *fakeCatchupService) ApplyOne(ctx context.Context, id int64) (bool, error) {
	f.mu.Lock()
	f.applied = append(f.applied, id)
	f.mu.Unlock()
	if f.applyOneFn != nil {
		return f.applyOneFn(ctx, id)
	}
	return true, nil
}

func (f *fakeCatchupService) appliedIDs() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.applied...)
}

var _ = Describe("Worker", func() {
	var (
		consumer *fakeConsumer
		catchup  *fakeCatchupService
	)

	BeforeEach(func() {
		consumer = newFakeConsumer()
		catchup = &fakeCatchupService{}
	})

	start := func(cfg worker.Config) (*worker.Worker, func()) {
		w := worker.New(consumer, catchup, cfg)
		done := make(chan error, 1)
		go func() { done <- w.Run(context.Background()) }()
		stop := func() {
			w.Stop()
			Eventually(done).Should(Receive(BeNil()))
		}
		return w, stop
	}

	It("applies stream messages and acks them", func() {
		_, stop := start(worker.Config{MaxAttempts: 3})
		defer stop()

		consumer.messages <- queue.Message{ID: "m-1", EventID: 7, EventType: "task-created", Attempt: 1}

		Eventually(consumer.ackedIDs).Should(Equal([]string{"m-1"}))
		Expect(catchup.appliedIDs()).To(Equal([]int64{7}))
		Expect(consumer.requeuedIDs()).To(BeEmpty())
	})

	It("acks a message whose event failed terminally", func() {
		catchup.applyOneFn = func(ctx context.Context, id int64) (bool, error) {
			return false, nil
		}
		_, stop := start(worker.Config{MaxAttempts: 3})
		defer stop()

		consumer.messages <- queue.Message{ID: "m-1", EventID: 7, Attempt: 1}

		Eventually(consumer.ackedIDs).Should(Equal([]string{"m-1"}))
		Expect(consumer.requeuedIDs()).To(BeEmpty())
		Expect(consumer.dlqIDs()).To(BeEmpty())
	})

	It("requeues on infrastructure errors below the attempt cap", func() {
		catchup.applyOneFn = func(ctx context.Context, id int64) (bool, error) {
			return false, errors.New("db down")
		}
		_, stop := start(worker.Config{MaxAttempts: 3})
		defer stop()

		consumer.messages <- queue.Message{ID: "m-1", EventID: 7, Attempt: 1}

		Eventually(consumer.requeuedIDs).Should(Equal([]string{"m-1"}))
		Expect(consumer.ackedIDs()).To(BeEmpty())
		Expect(consumer.dlqIDs()).To(BeEmpty())
	})

	It("dead-letters a message at the attempt cap", func() {
		catchup.applyOneFn = func(ctx context.Context, id int64) (bool, error) {
			return false, errors.New("db down")
		}
		_, stop := start(worker.Config{MaxAttempts: 3})
		defer stop()

		consumer.messages <- queue.Message{ID: "m-1", EventID: 7, Attempt: 3}

		Eventually(consumer.dlqIDs).Should(Equal([]string{"m-1"}))
		Expect(consumer.requeuedIDs()).To(BeEmpty())
		Expect(consumer.dlqErrors()[0]).To(ContainSubstring("db down"))
	})

	It("turns a panic into a retryable failure", func() {
		catchup.applyOneFn = func(ctx context.Context, id int64) (bool, error) {
			panic("boom")
		}
		_, stop := start(worker.Config{MaxAttempts: 3})
		defer stop()

		consumer.messages <- queue.Message{ID: "m-1", EventID: 7, Attempt: 1}

		Eventually(consumer.requeuedIDs).Should(Equal([]string{"m-1"}))
	})

	It("runs the scheduled catch-up between batches", func() {
		_, stop := start(worker.Config{MaxAttempts: 3, CatchupInterval: 20 * time.Millisecond})
		defer stop()

		Eventually(func() int32 { return catchup.runCalls.Load() }).Should(BeNumerically(">=", 1))
	})

	It("never schedules catch-up when the interval is zero", func() {
		_, stop := start(worker.Config{MaxAttempts: 3})
		defer stop()

		Consistently(func() int32 { return catchup.runCalls.Load() }, 100*time.Millisecond).Should(BeZero())
	})

	It("stops when the context is cancelled", func() {
		w := worker.New(consumer, catchup, worker.Config{MaxAttempts: 3})
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- w.Run(ctx) }()

		cancel()
		Eventually(done).Should(Receive(MatchError(context.Canceled)))
	})

	It("keeps reading after an empty batch", func() {
		_, stop := start(worker.Config{MaxAttempts: 3})
		defer stop()

		// Let a few empty reads pass before the message arrives.
		time.Sleep(20 * time.Millisecond)
		consumer.messages <- queue.Message{ID: "m-late", EventID: 9, Attempt: 1}

		Eventually(consumer.ackedIDs).Should(Equal([]string{"m-late"}))
	})
})
