package webhook_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"boardsync.app/mirror/internal/http/handler/webhook"
	"boardsync.app/mirror/internal/http/router"
	"boardsync.app/mirror/internal/model"
	"boardsync.app/mirror/internal/service"
)

type fakeIngestService struct {
	ingestFn func(ctx context.Context, params service.IngestParams) (*service.IngestResult, error)
	calls    []service.IngestParams
}

func (f *fakeIngestService) Ingest(ctx context.Context, params service.IngestParams) (*service.IngestResult, error) {
	f.calls = append(f.calls, params)
	if f.ingestFn != nil {
		return f.ingestFn(ctx, params)
	}
	return &service.IngestResult{
		Event:    &model.WebhookEvent{ID: 12345, Source: params.Source},
		Enqueued: true,
	}, nil
}

var _ = Describe("YouGileWebhookHandler", func() {
	var (
		engine *gin.Engine
		ingest *fakeIngestService
	)

	mount := func(secret string) {
		engine = gin.New()
		h := webhook.NewYouGileWebhookHandler(ingest, secret)
		router.WebhookRouter(engine.Group("/webhook"), h)
	}

	deliver := func(body, secret string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/webhook/yougile", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		if secret != "" {
			req.Header.Set("X-Webhook-Secret", secret)
		}
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		return w
	}

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		ingest = &fakeIngestService{}
		mount("hook-secret")
	})

	It("stores a valid delivery", func() {
		w := deliver(`{"event": "task-created", "payload": {"id": "t-1"}}`, "hook-secret")

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(MatchJSON(`{"success": true}`))
		Expect(ingest.calls).To(HaveLen(1))
		Expect(ingest.calls[0].Source).To(Equal("yougile"))
		Expect(string(ingest.calls[0].Body)).To(MatchJSON(`{"event": "task-created", "payload": {"id": "t-1"}}`))
	})

	It("rejects a wrong secret", func() {
		w := deliver(`{"event": "task-created"}`, "wrong")

		Expect(w.Code).To(Equal(http.StatusUnauthorized))
		Expect(ingest.calls).To(BeEmpty())
	})

	It("rejects a missing secret header", func() {
		w := deliver(`{"event": "task-created"}`, "")

		Expect(w.Code).To(Equal(http.StatusUnauthorized))
		Expect(ingest.calls).To(BeEmpty())
	})

	It("skips validation when no secret is configured", func() {
		mount("")
		w := deliver(`{"event": "task-created", "payload": {"id": "t-1"}}`, "")

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(ingest.calls).To(HaveLen(1))
	})

	It("rejects an empty body", func() {
		w := deliver("", "hook-secret")

		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(ingest.calls).To(BeEmpty())
	})

	It("answers 500 when the event cannot be stored", func() {
		ingest.ingestFn = func(ctx context.Context, params service.IngestParams) (*service.IngestResult, error) {
			return nil, errors.New("db down")
		}

		w := deliver(`{"event": "task-created"}`, "hook-secret")

		Expect(w.Code).To(Equal(http.StatusInternalServerError))
		Expect(w.Body.String()).To(MatchJSON(`{"error": "failed to store event"}`))
	})

	It("answers 200 for a deduplicated redelivery", func() {
		ingest.ingestFn = func(ctx context.Context, params service.IngestParams) (*service.IngestResult, error) {
			return &service.IngestResult{
				Event:      &model.WebhookEvent{ID: 99},
				Duplicated: true,
			}, nil
		}

		w := deliver(`{"event": "task-created", "payload": {"id": "t-1"}}`, "hook-secret")

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(MatchJSON(`{"success": true}`))
	})
})
