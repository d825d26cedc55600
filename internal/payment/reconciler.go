package payment

import (
	"context"
	"log/slog"
	"time"

	"github.com/taskpin/taskpin/internal/eventbus"
	"github.com/taskpin/taskpin/internal/identity"
	"github.com/taskpin/taskpin/internal/notification"
	"github.com/taskpin/taskpin/internal/pricing"
	"github.com/taskpin/taskpin/internal/task"
	"github.com/taskpin/taskpin/pkg/cerr"
)

// Service reconciles the payment gateway with the task and transaction
// records. CreateIntent is idempotent per task; ReconcileEvent is safe under
// at-least-once delivery and arbitrary reordering of gateway callbacks.
type Service struct {
	tasks    task.Repository
	txs      Repository
	gateway  Gateway
	notifier notification.Notifier
	currency string
	now      func() time.Time
}

func NewService(tasks task.Repository, txs Repository, gateway Gateway, notifier notification.Notifier, currency string) *Service {
	return &Service{
		tasks:    tasks,
		txs:      txs,
		gateway:  gateway,
		notifier: notifier,
		currency: currency,
		now:      time.Now,
	}
}

// CreateIntentResult is success-shaped even when the task is already paid:
// the caller's goal (this task is paid for) is satisfied either way.
type CreateIntentResult struct {
	AlreadyPaid     bool          `json:"already_paid,omitempty"`
	PaidAt          *time.Time    `json:"paid_at,omitempty"`
	PaymentIntentID string        `json:"payment_intent_id,omitempty"`
	ClientSecret    string        `json:"client_secret,omitempty"`
	Quote           pricing.Quote `json:"totals"`
}

// CreateIntent establishes pricing and a gateway intent for a task, exactly
// once per task. Repeated calls return the stored intent's client secret;
// losing a race against a concurrent call returns the winner's intent.
func (s *Service) CreateIntent(ctx context.Context, taskID string, requester identity.Principal) (*CreateIntentResult, error) {
	t, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if t.RequesterID != requester.ID {
		// Ownership failures look like missing tasks so callers cannot
		// probe other requesters' tasks.
		return nil, cerr.NewError(cerr.NotFound, "task not found", nil)
	}

	if t.Paid() {
		return &CreateIntentResult{AlreadyPaid: true, PaidAt: t.PaidAt}, nil
	}

	if t.PaymentIntentID != "" {
		return s.describeExisting(ctx, t)
	}

	quote, err := pricing.NewQuote(t.PriceCents)
	if err != nil {
		return nil, err
	}

	intent, err := s.gateway.CreateIntent(ctx, quote.TotalCents, s.currency, map[string]string{
		"task_id":      t.ID,
		"requester_id": t.RequesterID,
	})
	if err != nil {
		return nil, cerr.NewError(cerr.Unavailable, "payment gateway rejected request", err)
	}

	// Attach the intent and lock in pricing under the task's write lock.
	// If a concurrent CreateIntent got there first, its intent wins and
	// ours is abandoned at the gateway (it expires unconfirmed).
	var alreadyPaid bool
	t, err = s.tasks.Mutate(ctx, t.ID, func(t *task.Task) error {
		if t.Paid() {
			alreadyPaid = true
			return nil
		}
		if t.PaymentIntentID != "" {
			return nil
		}
		t.PaymentIntentID = intent.ID
		t.FeeCents = quote.FeeCents
		t.TotalCents = quote.TotalCents
		return nil
	})
	if err != nil {
		return nil, err
	}
	if alreadyPaid {
		return &CreateIntentResult{AlreadyPaid: true, PaidAt: t.PaidAt}, nil
	}
	if t.PaymentIntentID != intent.ID {
		slog.InfoContext(ctx, "lost intent creation race, reusing stored intent",
			"task_id", t.ID, "abandoned_intent_id", intent.ID)
		return s.describeExisting(ctx, t)
	}

	if _, err := s.upsertTransaction(ctx, t); err != nil {
		return nil, err
	}

	return &CreateIntentResult{
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		Quote:           quote,
	}, nil
}

// describeExisting answers a repeated CreateIntent from the stored intent
// and pricing instead of recomputing either.
func (s *Service) describeExisting(ctx context.Context, t *task.Task) (*CreateIntentResult, error) {
	intent, err := s.gateway.GetIntent(ctx, t.PaymentIntentID)
	if err != nil {
		return nil, cerr.NewError(cerr.Unavailable, "payment gateway rejected request", err)
	}
	if _, err := s.upsertTransaction(ctx, t); err != nil {
		return nil, err
	}
	return &CreateIntentResult{
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		Quote: pricing.Quote{
			PriceCents: t.PriceCents,
			FeeCents:   t.FeeCents,
			TotalCents: t.TotalCents,
		},
	}, nil
}

// upsertTransaction makes sure the ledger entry for the task's intent
// exists and carries the stored amounts. It never regresses a status the
// gateway already reported.
func (s *Service) upsertTransaction(ctx context.Context, t *task.Task) (*Transaction, error) {
	return s.txs.Upsert(ctx, t.PaymentIntentID, func(tx *Transaction) error {
		tx.TaskID = t.ID
		tx.RequesterID = t.RequesterID
		tx.WorkerID = t.WorkerID
		tx.AmountCents = t.TotalCents
		tx.PlatformFeeCents = t.FeeCents
		tx.WorkerAmountCents = t.PriceCents
		if tx.Status == "" {
			tx.Status = TransactionCreated
		}
		return nil
	})
}

// ReconcileEvent folds one gateway callback into the task and its ledger
// entry. It may be invoked any number of times with the same event: the
// paid_at write is guarded by a null check inside the task mutation, and
// transaction status moves are idempotent.
func (s *Service) ReconcileEvent(ctx context.Context, ev Event) error {
	t, err := s.tasks.GetByPaymentIntentID(ctx, ev.IntentID)
	if err != nil {
		if cerr.IsCode(err, cerr.NotFound) {
			// Orphan event: nothing of ours references this intent.
			// Operational noise, not a caller-visible failure.
			slog.WarnContext(ctx, "dropping payment event for unknown intent",
				"intent_id", ev.IntentID, "type", ev.Type)
			return nil
		}
		return err
	}

	switch ev.Type {
	case EventPaymentSucceeded:
		return s.reconcileSucceeded(ctx, t, ev)
	case EventPaymentFailed:
		return s.reconcileFailed(ctx, t, ev)
	default:
		slog.WarnContext(ctx, "dropping payment event of unknown type",
			"intent_id", ev.IntentID, "type", ev.Type)
		return nil
	}
}

func (s *Service) reconcileSucceeded(ctx context.Context, t *task.Task, ev Event) error {
	var justPaid bool
	t, err := s.tasks.Mutate(ctx, t.ID, func(t *task.Task) error {
		if t.Paid() {
			// Replay: paid_at is set exactly once.
			return nil
		}
		if t.Status == task.StatusCancelled {
			slog.WarnContext(ctx, "payment succeeded for cancelled task",
				"task_id", t.ID, "intent_id", ev.IntentID)
			return nil
		}
		now := s.now()
		t.PaidAt = &now
		justPaid = true
		return nil
	})
	if err != nil {
		return err
	}

	// The ledger always converges on succeeded, even if a failed event
	// arrived first out of order.
	if _, err := s.txs.Upsert(ctx, ev.IntentID, func(tx *Transaction) error {
		fillFromTask(tx, t)
		tx.Status = TransactionSucceeded
		return nil
	}); err != nil {
		return err
	}

	if justPaid {
		s.notifier.Emit(eventbus.TypePaymentSucceeded, t.ID, map[string]string{
			"requester_id": t.RequesterID,
			"worker_id":    t.WorkerID,
		})
	}
	return nil
}

func (s *Service) reconcileFailed(ctx context.Context, t *task.Task, ev Event) error {
	var marked bool
	_, err := s.txs.Upsert(ctx, ev.IntentID, func(tx *Transaction) error {
		fillFromTask(tx, t)
		if tx.Status == TransactionSucceeded {
			// Stale failure after success; the terminal state stands.
			return nil
		}
		marked = tx.Status != TransactionFailed
		tx.Status = TransactionFailed
		return nil
	})
	if err != nil {
		return err
	}

	if marked {
		s.notifier.Emit(eventbus.TypePaymentFailed, t.ID, map[string]string{
			"requester_id": t.RequesterID,
		})
	}
	return nil
}

func fillFromTask(tx *Transaction, t *task.Task) {
	tx.TaskID = t.ID
	tx.RequesterID = t.RequesterID
	tx.WorkerID = t.WorkerID
	tx.AmountCents = t.TotalCents
	tx.PlatformFeeCents = t.FeeCents
	tx.WorkerAmountCents = t.PriceCents
}

// StatusResult mirrors the requester-facing payment status poll.
type StatusResult struct {
	Paid              bool              `json:"paid"`
	PaidAt            *time.Time        `json:"paid_at,omitempty"`
	PaymentIntentID   string            `json:"payment_intent_id,omitempty"`
	TransactionStatus TransactionStatus `json:"transaction_status,omitempty"`
}

func (s *Service) Status(ctx context.Context, taskID string, requester identity.Principal) (*StatusResult, error) {
	t, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if t.RequesterID != requester.ID {
		return nil, cerr.NewError(cerr.NotFound, "task not found", nil)
	}

	result := &StatusResult{
		Paid:            t.Paid(),
		PaidAt:          t.PaidAt,
		PaymentIntentID: t.PaymentIntentID,
	}
	tx, err := s.txs.GetByTaskID(ctx, t.ID)
	switch {
	case err == nil:
		result.TransactionStatus = tx.Status
	case cerr.IsCode(err, cerr.NotFound):
		// No intent created yet.
	default:
		return nil, err
	}
	return result, nil
}
