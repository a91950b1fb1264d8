package service_test

import (
	"context"
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"boardsync.app/mirror/common/id"
	"boardsync.app/mirror/internal/model"
	"boardsync.app/mirror/internal/queue"
	"boardsync.app/mirror/internal/service"
)

var _ = Describe("IngestService", func() {
	var (
		ctx      context.Context
		events   *mockEventStore
		producer *mockQueueProducer
		svc      service.IngestService
	)

	BeforeEach(func() {
		ctx = context.Background()
		Expect(id.Init(1)).To(Succeed())
		events = &mockEventStore{}
		producer = &mockQueueProducer{}
		svc = service.NewIngestService(events, producer, nil)
	})

	It("rejects a delivery without a source", func() {
		_, err := svc.Ingest(ctx, service.IngestParams{Body: []byte(`{}`)})
		Expect(err).To(MatchError(ContainSubstring("source is required")))
	})

	It("rejects an empty body", func() {
		_, err := svc.Ingest(ctx, service.IngestParams{Source: "yougile"})
		Expect(err).To(MatchError(ContainSubstring("body is required")))
	})

	It("stores the delivery and nudges the worker", func() {
		var appended *model.WebhookEvent
		events.appendFn = func(ctx context.Context, event *model.WebhookEvent) (*model.WebhookEvent, bool, error) {
			appended = event
			return event, true, nil
		}
		traceID := "trace-1"

		result, err := svc.Ingest(ctx, service.IngestParams{
			Source:  "yougile",
			Body:    []byte(`{"event": "task-created", "payload": {"id": "t-1", "entityType": "task", "timestamp": 1700000000}}`),
			TraceID: &traceID,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Duplicated).To(BeFalse())
		Expect(result.Enqueued).To(BeTrue())

		Expect(appended).NotTo(BeNil())
		Expect(appended.ID).NotTo(BeZero())
		Expect(appended.Source).To(Equal("yougile"))
		Expect(appended.EventType).To(Equal("task-created"))
		Expect(*appended.EntityID).To(Equal("t-1"))
		Expect(*appended.EntityType).To(Equal("task"))
		Expect(appended.EventTimestamp).NotTo(BeNil())

		Expect(producer.enqueued).To(HaveLen(1))
		Expect(producer.enqueued[0].EventID).To(Equal(appended.ID))
		Expect(producer.enqueued[0].EventType).To(Equal("task-created"))
		Expect(producer.enqueued[0].Attempt).To(Equal(1))
		Expect(producer.enqueued[0].TraceID).To(Equal("trace-1"))
	})

	It("wraps a body that is not JSON so nothing is lost", func() {
		var appended *model.WebhookEvent
		events.appendFn = func(ctx context.Context, event *model.WebhookEvent) (*model.WebhookEvent, bool, error) {
			appended = event
			return event, true, nil
		}

		result, err := svc.Ingest(ctx, service.IngestParams{
			Source: "yougile",
			Body:   []byte(`not json at all`),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Event).NotTo(BeNil())
		Expect(appended.EventType).To(BeEmpty())
		Expect(appended.Payload).To(MatchJSON(`{"raw": "not json at all"}`))
	})

	It("dedupes a redelivery by external id", func() {
		externalID := "delivery-1"
		existing := &model.WebhookEvent{ID: 99, Source: "yougile", EventType: "task-created"}
		events.appendFn = func(ctx context.Context, event *model.WebhookEvent) (*model.WebhookEvent, bool, error) {
			return existing, false, nil
		}

		result, err := svc.Ingest(ctx, service.IngestParams{
			Source:     "yougile",
			Body:       []byte(`{"event": "task-created", "payload": {"id": "t-1"}}`),
			ExternalID: &externalID,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Duplicated).To(BeTrue())
		Expect(result.Enqueued).To(BeFalse())
		Expect(result.Event.ID).To(Equal(int64(99)))
		Expect(producer.enqueued).To(BeEmpty())
	})

	It("keeps the ingest when the enqueue fails", func() {
		producer.enqueueFn = func(ctx context.Context, msg queue.EventMessage) error {
			return errors.New("redis down")
		}

		result, err := svc.Ingest(ctx, service.IngestParams{
			Source: "yougile",
			Body:   []byte(`{"event": "task-created", "payload": {"id": "t-1"}}`),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Enqueued).To(BeFalse())
		Expect(result.Event).NotTo(BeNil())
	})

	It("fails when the event cannot be stored", func() {
		events.appendFn = func(ctx context.Context, event *model.WebhookEvent) (*model.WebhookEvent, bool, error) {
			return nil, false, fmt.Errorf("disk full")
		}

		_, err := svc.Ingest(ctx, service.IngestParams{
			Source: "yougile",
			Body:   []byte(`{"event": "task-created", "payload": {"id": "t-1"}}`),
		})
		Expect(err).To(MatchError(ContainSubstring("appending event")))
		Expect(producer.enqueued).To(BeEmpty())
	})
})
