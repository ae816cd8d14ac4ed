// Package server exposes the HTTP surface of the assistant: webhook
// verification and delivery, readiness, and Prometheus metrics.
package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/him9495-payu/kaira/internal/flow"
	"github.com/him9495-payu/kaira/internal/whatsapp"
)

// Dispatcher consumes decoded inbound events, one per user at a time.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev flow.Event) error
}

// Pinger reports storage liveness for the readiness endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Readiness echoes which optional collaborators are wired in.
type Readiness struct {
	MessengerEnabled bool
	ResponderEnabled bool
	DecisionEnabled  bool
}

// WebhookHandler serves the Meta webhook endpoints and the readiness probe.
type WebhookHandler struct {
	dispatcher  Dispatcher
	pinger      Pinger
	ready       Readiness
	verifyToken string
	log         *slog.Logger
}

// NewWebhookHandler wires the webhook endpoints to the dispatcher.
func NewWebhookHandler(dispatcher Dispatcher, pinger Pinger, ready Readiness, verifyToken string, log *slog.Logger) *WebhookHandler {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &WebhookHandler{
		dispatcher:  dispatcher,
		pinger:      pinger,
		ready:       ready,
		verifyToken: verifyToken,
		log:         log.With("component", "webhook"),
	}
}

// Verify answers the Meta subscription handshake: the challenge is echoed
// back only for a subscribe request carrying the configured token.
func (h *WebhookHandler) Verify(c *gin.Context) {
	if c.Query("hub.mode") != "subscribe" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid mode"})
		return
	}
	if c.Query("hub.verify_token") != h.verifyToken {
		h.log.WarnContext(c.Request.Context(), "Webhook verification token mismatch")
		c.JSON(http.StatusForbidden, gin.H{"error": "verification token mismatch"})
		return
	}
	c.String(http.StatusOK, c.Query("hub.challenge"))
}

// Receive accepts one webhook delivery and feeds every extracted message to
// the dispatcher. The response is 200 even when individual events fail:
// failures are handled conversationally and Meta would otherwise redeliver
// the whole batch.
func (h *WebhookHandler) Receive(c *gin.Context) {
	var payload whatsapp.WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	events := whatsapp.ExtractEvents(&payload)
	if len(events) == 0 {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	for _, ev := range events {
		if err := h.dispatcher.Dispatch(c.Request.Context(), ev); err != nil {
			h.log.ErrorContext(c.Request.Context(), "Failed to handle webhook event",
				"error", err, "from", ev.From, "message_id", ev.MessageID)
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "processed", "events": len(events)})
}

// Health reports collaborator readiness and storage liveness.
func (h *WebhookHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	storageOK := true
	if h.pinger != nil {
		if err := h.pinger.Ping(ctx); err != nil {
			h.log.ErrorContext(c.Request.Context(), "Storage ping failed", "error", err)
			storageOK = false
		}
	}

	status := "ok"
	code := http.StatusOK
	if !storageOK {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":            status,
		"messenger_enabled": h.ready.MessengerEnabled,
		"responder_enabled": h.ready.ResponderEnabled,
		"decision_enabled":  h.ready.DecisionEnabled,
		"storage_ok":        storageOK,
	})
}
