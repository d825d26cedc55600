package pushnotification

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/sourcegraph/conc"

	"github.com/taskpin/taskpin/internal/config"
	"github.com/taskpin/taskpin/internal/pushsubscription"
)

type NotificationPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
	Tag   string `json:"tag,omitempty"`
}

// Sender delivers web-push notifications to a user's registered endpoints.
// Delivery is best effort; expired subscriptions are pruned on the way.
type Sender struct {
	pushEnv *config.PushEnv
	repo    pushsubscription.Repository
}

func NewSender(pushEnv *config.PushEnv, repo pushsubscription.Repository) *Sender {
	return &Sender{
		pushEnv: pushEnv,
		repo:    repo,
	}
}

func (s *Sender) SendToUser(ctx context.Context, userID string, payload *NotificationPayload) {
	if s.pushEnv.VAPIDPrivateKey == "" || s.pushEnv.VAPIDPublicKey == "" {
		slog.Warn("push notification: VAPID keys not configured, skipping")
		return
	}

	subs, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		slog.Error("push notification: failed to list subscriptions", "user_id", userID, "error", err)
		return
	}
	if len(subs) == 0 {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("push notification: failed to marshal payload", "error", err)
		return
	}

	var wg conc.WaitGroup
	for _, sub := range subs {
		wg.Go(func() {
			s.sendToSubscription(ctx, sub, data)
		})
	}
	wg.Wait()
}

func (s *Sender) sendToSubscription(ctx context.Context, sub *pushsubscription.Subscription, data []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dhKey,
			Auth:   sub.AuthKey,
		},
	}

	resp, err := webpush.SendNotification(data, wpSub, &webpush.Options{
		VAPIDPublicKey:  s.pushEnv.VAPIDPublicKey,
		VAPIDPrivateKey: s.pushEnv.VAPIDPrivateKey,
		Subscriber:      s.pushEnv.VAPIDContact,
		TTL:             86400,
	})
	if err != nil {
		slog.Error("push notification: failed to send", "endpoint", sub.Endpoint, "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		slog.Info("push notification: subscription expired, removing", "endpoint", sub.Endpoint)
		if err := s.repo.Delete(ctx, sub.ID); err != nil {
			slog.Error("push notification: failed to delete expired subscription", "id", sub.ID, "error", err)
		}
		return
	}

	if resp.StatusCode >= 400 {
		slog.Warn("push notification: unexpected status", "endpoint", sub.Endpoint, "status", resp.StatusCode)
	}
}
