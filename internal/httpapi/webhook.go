package httpapi

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/taskpin/taskpin/internal/payment"
)

// EventParser verifies and decodes a raw gateway webhook delivery.
type EventParser interface {
	ParseEvent(payload []byte, signature string) (*payment.Event, error)
}

// WebhookHandler receives gateway callbacks. It sits outside the API key
// and identity middleware: the signature check is the authentication.
type WebhookHandler struct {
	parser   EventParser
	payments *payment.Service
}

func NewWebhookHandler(parser EventParser, payments *payment.Service) *WebhookHandler {
	return &WebhookHandler{parser: parser, payments: payments}
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	ev, err := h.parser.ParseEvent(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		slog.WarnContext(r.Context(), "rejecting webhook delivery", "error", err)
		http.Error(w, "invalid signature", http.StatusBadRequest)
		return
	}
	if ev == nil {
		// Event type we don't consume; acknowledge so it is not redelivered.
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := h.payments.ReconcileEvent(r.Context(), *ev); err != nil {
		slog.ErrorContext(r.Context(), "failed to reconcile payment event",
			"intent_id", ev.IntentID, "type", ev.Type, "error", err)
		// Non-2xx triggers gateway retry; reconciliation is idempotent.
		http.Error(w, "reconciliation failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}
