package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/taskpin/taskpin/internal/identity"
	"github.com/taskpin/taskpin/internal/matching"
	"github.com/taskpin/taskpin/internal/task"
	"github.com/taskpin/taskpin/pkg/cerr"
)

type TaskHandler struct {
	tasks *task.Service
}

func NewTaskHandler(tasks *task.Service) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

func (h *TaskHandler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/mine", h.mine)
	r.Get("/available", h.available)
	r.Get("/assigned", h.assigned)
	r.Get("/history", h.history)
	r.Get("/{id}", h.get)
	r.Post("/{id}/accept", h.accept)
	r.Post("/{id}/start", h.start)
	r.Post("/{id}/complete", h.complete)
	r.Post("/{id}/cancel", h.cancel)
	r.Delete("/{id}", h.withdraw)
}

type createTaskRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Address     string   `json:"address"`
	PriceCents  int64    `json:"price_cents"`
	Lat         *float64 `json:"lat,omitempty"`
	Lng         *float64 `json:"lng,omitempty"`
}

func (h *TaskHandler) create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, ok := principalFromContext(ctx)
	if !ok {
		cerr.SetNewJSONError(ctx, cerr.Unauthenticated, "missing identity", nil)
		return
	}

	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}

	t, err := h.tasks.Create(ctx, p, task.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Address:     req.Address,
		PriceCents:  req.PriceCents,
		Lat:         req.Lat,
		Lng:         req.Lng,
	})
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, t)
}

func (h *TaskHandler) mine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, ok := principalFromContext(ctx)
	if !ok {
		cerr.SetNewJSONError(ctx, cerr.Unauthenticated, "missing identity", nil)
		return
	}

	tasks, err := h.tasks.ListByRequester(ctx, p)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, tasks)
}

type availableTask struct {
	*task.Task
	DistanceKm float64 `json:"distance_km"`
	Score      float64 `json:"score"`
}

// available returns the open-task snapshot scored for the calling worker.
// The worker's location and skills arrive as query parameters, forwarded by
// the same edge that resolves the identity headers.
func (h *TaskHandler) available(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, ok := principalFromContext(ctx)
	if !ok {
		cerr.SetNewJSONError(ctx, cerr.Unauthenticated, "missing identity", nil)
		return
	}
	if !p.IsWorker() {
		cerr.SetNewJSONError(ctx, cerr.PermissionDenied, "not a worker", nil)
		return
	}

	q := r.URL.Query()
	var skills []string
	if raw := q.Get("skills"); raw != "" {
		skills = strings.Split(raw, ",")
	}
	profile := matching.NewWorkerProfile(p.ID, parseCoord(q.Get("lat")), parseCoord(q.Get("lng")), skills)

	open, err := h.tasks.Open(ctx)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	ranked := matching.Rank(open, profile)
	out := make([]availableTask, 0, len(ranked))
	for _, rt := range ranked {
		out = append(out, availableTask{
			Task:       rt.Task,
			DistanceKm: rt.DistanceKm,
			Score:      rt.Score,
		})
	}
	cerr.SetJSONResponse(ctx, out)
}

func parseCoord(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func (h *TaskHandler) assigned(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, ok := principalFromContext(ctx)
	if !ok {
		cerr.SetNewJSONError(ctx, cerr.Unauthenticated, "missing identity", nil)
		return
	}

	tasks, err := h.tasks.ActiveByWorker(ctx, p)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, tasks)
}

func (h *TaskHandler) history(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, ok := principalFromContext(ctx)
	if !ok {
		cerr.SetNewJSONError(ctx, cerr.Unauthenticated, "missing identity", nil)
		return
	}

	tasks, err := h.tasks.HistoryByWorker(ctx, p)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, tasks)
}

func (h *TaskHandler) get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	t, err := h.tasks.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, t)
}

func (h *TaskHandler) accept(w http.ResponseWriter, r *http.Request) {
	h.transition(r, h.tasks.Claim)
}

func (h *TaskHandler) start(w http.ResponseWriter, r *http.Request) {
	h.transition(r, h.tasks.Start)
}

func (h *TaskHandler) complete(w http.ResponseWriter, r *http.Request) {
	h.transition(r, h.tasks.Complete)
}

func (h *TaskHandler) cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(r, h.tasks.Cancel)
}

func (h *TaskHandler) transition(r *http.Request, op func(ctx context.Context, id string, p identity.Principal) (*task.Task, error)) {
	ctx := r.Context()
	p, ok := principalFromContext(ctx)
	if !ok {
		cerr.SetNewJSONError(ctx, cerr.Unauthenticated, "missing identity", nil)
		return
	}

	t, err := op(ctx, chi.URLParam(r, "id"), p)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, t)
}

func (h *TaskHandler) withdraw(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, ok := principalFromContext(ctx)
	if !ok {
		cerr.SetNewJSONError(ctx, cerr.Unauthenticated, "missing identity", nil)
		return
	}

	if err := h.tasks.Withdraw(ctx, chi.URLParam(r, "id"), p); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, okResponse{OK: true})
}
