package task

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/taskpin/taskpin/internal/eventbus"
	"github.com/taskpin/taskpin/internal/identity"
	"github.com/taskpin/taskpin/internal/notification"
	"github.com/taskpin/taskpin/pkg/cerr"
)

// Service is the authoritative task lifecycle. Every transition runs inside
// Repository.Mutate so its status guard and its effect commit atomically;
// notification happens after the commit and never affects the outcome.
type Service struct {
	repo     Repository
	notifier notification.Notifier
	now      func() time.Time
}

func NewService(repo Repository, notifier notification.Notifier) *Service {
	return &Service{
		repo:     repo,
		notifier: notifier,
		now:      time.Now,
	}
}

type CreateInput struct {
	Title       string
	Description string
	Category    string
	Address     string
	PriceCents  int64
	Lat         *float64
	Lng         *float64
}

func (s *Service) Create(ctx context.Context, requester identity.Principal, in CreateInput) (*Task, error) {
	if in.Title == "" {
		return nil, cerr.NewError(cerr.InvalidArgument, "title is required", nil)
	}
	if in.PriceCents < 0 {
		return nil, cerr.NewError(cerr.InvalidArgument, "price must not be negative", nil)
	}

	now := s.now()
	t := &Task{
		ID:          ulid.Make().String(),
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Address:     in.Address,
		PriceCents:  in.PriceCents,
		Status:      StatusRequested,
		Lat:         in.Lat,
		Lng:         in.Lng,
		RequesterID: requester.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}

	s.notifier.Emit(eventbus.TypeTaskCreated, t.ID, map[string]string{
		"requester_id": t.RequesterID,
	})
	return t, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Task, error) {
	return s.repo.Get(ctx, id)
}

// Open returns the snapshot of claimable tasks used for worker discovery.
func (s *Service) Open(ctx context.Context) ([]*Task, error) {
	return s.repo.List(ctx, Filter{Statuses: []Status{StatusRequested}})
}

func (s *Service) ListByRequester(ctx context.Context, requester identity.Principal) ([]*Task, error) {
	return s.repo.List(ctx, Filter{RequesterID: requester.ID})
}

// ActiveByWorker lists a worker's current jobs (assigned or in progress).
func (s *Service) ActiveByWorker(ctx context.Context, worker identity.Principal) ([]*Task, error) {
	return s.repo.List(ctx, Filter{
		WorkerID: worker.ID,
		Statuses: []Status{StatusAssigned, StatusInProgress},
	})
}

// HistoryByWorker lists a worker's finished jobs (completed or cancelled).
func (s *Service) HistoryByWorker(ctx context.Context, worker identity.Principal) ([]*Task, error) {
	return s.repo.List(ctx, Filter{
		WorkerID: worker.ID,
		Statuses: []Status{StatusCompleted, StatusCancelled},
	})
}

// Claim assigns a requested task to the calling worker. Arbitration between
// concurrent claimants happens inside the mutation: the status check and the
// assignment are one conditional update, so exactly one claimant wins and
// the rest get Aborted.
func (s *Service) Claim(ctx context.Context, id string, worker identity.Principal) (*Task, error) {
	if !worker.IsWorker() {
		return nil, cerr.NewError(cerr.PermissionDenied, "not a worker", nil)
	}

	t, err := s.repo.Mutate(ctx, id, func(t *Task) error {
		if t.Status != StatusRequested {
			return cerr.NewError(cerr.Aborted, "task already taken", nil)
		}
		t.Status = StatusAssigned
		t.WorkerID = worker.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Emit(eventbus.TypeTaskClaimed, t.ID, map[string]string{
		"requester_id": t.RequesterID,
		"worker_id":    t.WorkerID,
	})
	return t, nil
}

func (s *Service) Start(ctx context.Context, id string, worker identity.Principal) (*Task, error) {
	t, err := s.repo.Mutate(ctx, id, func(t *Task) error {
		if t.WorkerID != worker.ID {
			return cerr.NewError(cerr.PermissionDenied, "not your task", nil)
		}
		if t.Status != StatusAssigned {
			return cerr.NewError(cerr.FailedPrecondition, "task not in assigned state", nil)
		}
		t.Status = StatusInProgress
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Emit(eventbus.TypeTaskStarted, t.ID, map[string]string{
		"requester_id": t.RequesterID,
		"worker_id":    t.WorkerID,
	})
	return t, nil
}

func (s *Service) Complete(ctx context.Context, id string, worker identity.Principal) (*Task, error) {
	t, err := s.repo.Mutate(ctx, id, func(t *Task) error {
		if t.WorkerID != worker.ID {
			return cerr.NewError(cerr.PermissionDenied, "not your task", nil)
		}
		if t.Status != StatusAssigned && t.Status != StatusInProgress {
			return cerr.NewError(cerr.FailedPrecondition, "task not active", nil)
		}
		t.Status = StatusCompleted
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Emit(eventbus.TypeTaskCompleted, t.ID, map[string]string{
		"requester_id": t.RequesterID,
		"worker_id":    t.WorkerID,
	})
	return t, nil
}

// Cancel is permitted for the requester or an admin from any non-terminal
// state. WorkerID is kept as a historical record.
func (s *Service) Cancel(ctx context.Context, id string, actor identity.Principal) (*Task, error) {
	t, err := s.repo.Mutate(ctx, id, func(t *Task) error {
		if t.RequesterID != actor.ID && !actor.IsAdmin() {
			return cerr.NewError(cerr.PermissionDenied, "not your task", nil)
		}
		if t.Status == StatusCompleted {
			return cerr.NewError(cerr.FailedPrecondition, "task already completed", nil)
		}
		if t.Status == StatusCancelled {
			return cerr.NewError(cerr.FailedPrecondition, "task already cancelled", nil)
		}
		t.Status = StatusCancelled
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Emit(eventbus.TypeTaskCancelled, t.ID, map[string]string{
		"requester_id": t.RequesterID,
		"worker_id":    t.WorkerID,
	})
	return t, nil
}

// Withdraw destroys an unclaimed task. This is the only path that deletes a
// task; once a worker has been assigned, the record is permanent.
func (s *Service) Withdraw(ctx context.Context, id string, requester identity.Principal) error {
	err := s.repo.Remove(ctx, id, func(t *Task) error {
		if t.RequesterID != requester.ID {
			return cerr.NewError(cerr.PermissionDenied, "not your task", nil)
		}
		if t.Status != StatusRequested {
			return cerr.NewError(cerr.FailedPrecondition, "task already claimed", nil)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.notifier.Emit(eventbus.TypeTaskWithdrawn, id, map[string]string{
		"requester_id": requester.ID,
	})
	return nil
}
