package pushnotification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/taskpin/taskpin/internal/eventbus"
	"github.com/taskpin/taskpin/internal/task"
	"github.com/taskpin/taskpin/pkg/panicerr"
)

// Dispatcher turns marketplace events into push notifications for the
// party on the other side of the event.
type Dispatcher struct {
	eventBus *eventbus.Bus
	taskRepo task.Repository
	sender   *Sender
}

func NewDispatcher(eventBus *eventbus.Bus, taskRepo task.Repository, sender *Sender) *Dispatcher {
	return &Dispatcher{
		eventBus: eventBus,
		taskRepo: taskRepo,
		sender:   sender,
	}
}

func (d *Dispatcher) Start(ctx context.Context) {
	subID, ch := d.eventBus.Subscribe(256)
	defer d.eventBus.Unsubscribe(subID)

	slog.Info("push notification dispatcher started")
	for {
		select {
		case <-ctx.Done():
			slog.Info("push notification dispatcher stopped")
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			// One broken event must not kill the dispatcher loop.
			if err := panicerr.Safe(func() error {
				d.handleEvent(ctx, event)
				return nil
			}); err != nil {
				slog.Error("push dispatcher: event handling failed", "event_id", event.ID, "error", err)
			}
		}
	}
}

func (d *Dispatcher) handleEvent(ctx context.Context, event *eventbus.Event) {
	var (
		userID string
		title  string
	)
	switch event.Type {
	case eventbus.TypeTaskClaimed:
		userID = event.Payload["requester_id"]
		title = "A worker accepted your task"
	case eventbus.TypeTaskCompleted:
		userID = event.Payload["requester_id"]
		title = "Your task was completed"
	case eventbus.TypeTaskCancelled:
		userID = event.Payload["worker_id"]
		title = "A task you accepted was cancelled"
	case eventbus.TypePaymentSucceeded:
		userID = event.Payload["worker_id"]
		title = "Payment received for your task"
	default:
		return
	}
	if userID == "" {
		return
	}

	var body string
	if t, err := d.taskRepo.Get(ctx, event.TaskID); err == nil {
		body = t.Title
	}

	d.sender.SendToUser(ctx, userID, &NotificationPayload{
		Title: title,
		Body:  body,
		URL:   fmt.Sprintf("/tasks/%s", event.TaskID),
		Tag:   event.ID,
	})
}
