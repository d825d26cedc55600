// Package stripegateway implements payment.Gateway on Stripe payment
// intents and translates Stripe webhook deliveries into payment events.
package stripegateway

import (
	"context"
	"encoding/json"
	"fmt"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/taskpin/taskpin/internal/payment"
)

type Gateway struct {
	api           *client.API
	webhookSecret string
}

func New(secretKey, webhookSecret string) *Gateway {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &Gateway{
		api:           api,
		webhookSecret: webhookSecret,
	}
}

func (g *Gateway) CreateIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*payment.Intent, error) {
	params := &stripe.PaymentIntentParams{
		Params:   stripe.Params{Context: ctx},
		Amount:   stripe.Int64(amountCents),
		Currency: stripe.String(currency),
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	return &payment.Intent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

func (g *Gateway) GetIntent(ctx context.Context, id string) (*payment.Intent, error) {
	pi, err := g.api.PaymentIntents.Get(id, &stripe.PaymentIntentParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		return nil, fmt.Errorf("get payment intent %s: %w", id, err)
	}
	return &payment.Intent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

// ParseEvent verifies a webhook delivery's signature and maps it to a
// payment event. Deliveries of other event types return (nil, nil) and are
// acknowledged without effect.
func (g *Gateway) ParseEvent(payload []byte, signature string) (*payment.Event, error) {
	ev, err := webhook.ConstructEvent(payload, signature, g.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("verify webhook signature: %w", err)
	}

	var eventType payment.EventType
	switch ev.Type {
	case "payment_intent.succeeded":
		eventType = payment.EventPaymentSucceeded
	case "payment_intent.payment_failed":
		eventType = payment.EventPaymentFailed
	default:
		return nil, nil
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(ev.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("decode payment intent from event %s: %w", ev.ID, err)
	}
	return &payment.Event{Type: eventType, IntentID: pi.ID}, nil
}
