package webhook

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"boardsync.app/mirror/internal/service"
)

type YouGileWebhookHandler struct {
	ingest service.IngestService
	secret string
}

// NewYouGileWebhookHandler creates the receiver for YouGile deliveries.
// An empty secret disables validation.
func NewYouGileWebhookHandler(ingest service.IngestService, secret string) *YouGileWebhookHandler {
	return &YouGileWebhookHandler{
		ingest: ingest,
		secret: secret,
	}
}

func (h *YouGileWebhookHandler) HandleEvent(c *gin.Context) {
	ctx := c.Request.Context()

	if h.secret != "" {
		if token := c.GetHeader("X-Webhook-Secret"); token != h.secret {
			slog.WarnContext(ctx, "invalid webhook secret")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook secret"})
			return
		}
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}
	if len(body) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty body"})
		return
	}

	var traceID *string
	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		tid := span.SpanContext().TraceID().String()
		traceID = &tid
	}

	result, err := h.ingest.Ingest(ctx, service.IngestParams{
		Source:  "yougile",
		Body:    body,
		TraceID: traceID,
	})
	if err != nil {
		// Surfacing the failure makes the source redeliver; swallowing it
		// would lose the event for good.
		slog.ErrorContext(ctx, "failed to store webhook event", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store event"})
		return
	}

	slog.InfoContext(ctx, "webhook event stored",
		"event_id", result.Event.ID,
		"event_type", result.Event.EventType,
		"enqueued", result.Enqueued,
		"duplicate", result.Duplicated)

	c.JSON(http.StatusOK, gin.H{"success": true})
}
