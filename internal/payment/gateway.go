package payment

import "context"

// Intent is the gateway-side handle for an authorized-but-unsettled charge.
// ClientSecret is handed to the requester's client to confirm the payment.
type Intent struct {
	ID           string
	ClientSecret string
}

// Gateway is the payment processor. Implementations map processor errors to
// plain errors; the reconciler decides the caller-facing code.
type Gateway interface {
	CreateIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*Intent, error)
	// GetIntent re-describes an existing intent, used to answer repeated
	// CreateIntent calls without minting a duplicate.
	GetIntent(ctx context.Context, id string) (*Intent, error)
}

// EventType classifies a gateway callback.
type EventType string

const (
	EventPaymentSucceeded EventType = "payment_succeeded"
	EventPaymentFailed    EventType = "payment_failed"
)

// Event is one authenticated, possibly redelivered gateway callback.
// Signature verification happens at the transport edge before an Event is
// constructed.
type Event struct {
	Type     EventType
	IntentID string
}
