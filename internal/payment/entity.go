package payment

import "time"

// TransactionStatus mirrors the gateway-reported state of a payment.
type TransactionStatus string

const (
	TransactionCreated    TransactionStatus = "created"
	TransactionProcessing TransactionStatus = "processing"
	TransactionSucceeded  TransactionStatus = "succeeded"
	TransactionFailed     TransactionStatus = "failed"
)

// Terminal statuses are never overwritten by a stale earlier-state event.
func (s TransactionStatus) Terminal() bool {
	return s == TransactionSucceeded || s == TransactionFailed
}

// Transaction is the ledger record of one payment flow tied to one task.
// PaymentIntentID is the idempotency key: at most one transaction exists per
// intent, and gateway replays land on the same record.
type Transaction struct {
	ID              string `yaml:"id"`
	PaymentIntentID string `yaml:"payment_intent_id"`

	TaskID      string `yaml:"task_id"`
	RequesterID string `yaml:"requester_id"`
	WorkerID    string `yaml:"worker_id,omitempty"`

	// AmountCents is the total charged to the requester; it splits into
	// the platform fee and the worker payout.
	AmountCents       int64 `yaml:"amount_cents"`
	PlatformFeeCents  int64 `yaml:"platform_fee_cents"`
	WorkerAmountCents int64 `yaml:"worker_amount_cents"`

	Status TransactionStatus `yaml:"status"`

	CreatedAt time.Time `yaml:"created_at"`
	UpdatedAt time.Time `yaml:"updated_at"`
}
