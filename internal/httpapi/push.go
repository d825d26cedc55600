package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"github.com/taskpin/taskpin/internal/pushsubscription"
	"github.com/taskpin/taskpin/pkg/cerr"
)

type PushHandler struct {
	subs pushsubscription.Repository
}

func NewPushHandler(subs pushsubscription.Repository) *PushHandler {
	return &PushHandler{subs: subs}
}

func (h *PushHandler) Routes(r chi.Router) {
	r.Post("/subscriptions", h.subscribe)
	r.Delete("/subscriptions/{id}", h.unsubscribe)
}

type subscribeRequest struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

func (h *PushHandler) subscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, ok := principalFromContext(ctx)
	if !ok {
		cerr.SetNewJSONError(ctx, cerr.Unauthenticated, "missing identity", nil)
		return
	}

	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	if req.Endpoint == "" || req.Keys.P256dh == "" || req.Keys.Auth == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "endpoint and keys are required", nil)
		return
	}

	sub := &pushsubscription.Subscription{
		ID:        ulid.Make().String(),
		UserID:    p.ID,
		Endpoint:  req.Endpoint,
		P256dhKey: req.Keys.P256dh,
		AuthKey:   req.Keys.Auth,
		CreatedAt: time.Now(),
	}
	if err := h.subs.Create(ctx, sub); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, sub)
}

func (h *PushHandler) unsubscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, ok := principalFromContext(ctx)
	if !ok {
		cerr.SetNewJSONError(ctx, cerr.Unauthenticated, "missing identity", nil)
		return
	}

	id := chi.URLParam(r, "id")
	owned, err := h.subs.ListByUser(ctx, p.ID)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	for _, sub := range owned {
		if sub.ID == id {
			if err := h.subs.Delete(ctx, id); err != nil {
				cerr.SetJSONError(ctx, err)
				return
			}
			cerr.SetJSONResponse(ctx, okResponse{OK: true})
			return
		}
	}
	cerr.SetNewJSONError(ctx, cerr.NotFound, "subscription not found", nil)
}
