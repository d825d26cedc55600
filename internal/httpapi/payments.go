package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taskpin/taskpin/internal/payment"
	"github.com/taskpin/taskpin/pkg/cerr"
)

type PaymentHandler struct {
	payments *payment.Service
}

func NewPaymentHandler(payments *payment.Service) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

func (h *PaymentHandler) Routes(r chi.Router) {
	r.Post("/tasks/{id}/intent", h.createIntent)
	r.Get("/tasks/{id}/status", h.status)
}

func (h *PaymentHandler) createIntent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, ok := principalFromContext(ctx)
	if !ok {
		cerr.SetNewJSONError(ctx, cerr.Unauthenticated, "missing identity", nil)
		return
	}

	result, err := h.payments.CreateIntent(ctx, chi.URLParam(r, "id"), p)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, result)
}

func (h *PaymentHandler) status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, ok := principalFromContext(ctx)
	if !ok {
		cerr.SetNewJSONError(ctx, cerr.Unauthenticated, "missing identity", nil)
		return
	}

	result, err := h.payments.Status(ctx, chi.URLParam(r, "id"), p)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, result)
}
