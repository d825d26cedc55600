package task

import "time"

// Status is the lifecycle state of a task. Forward edges are
// requested → assigned → in_progress → completed; cancelled is reachable
// from every non-terminal state.
type Status string

const (
	StatusRequested  Status = "requested"
	StatusAssigned   Status = "assigned"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Task is one requested unit of paid work. All monetary fields are integer
// cents; FeeCents and TotalCents stay zero until pricing is established and
// are immutable afterwards (TotalCents == PriceCents + FeeCents).
type Task struct {
	ID          string `yaml:"id" json:"id"`
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
	Category    string `yaml:"category" json:"category"`
	Address     string `yaml:"address" json:"address"`

	PriceCents int64 `yaml:"price_cents" json:"price_cents"`
	FeeCents   int64 `yaml:"fee_cents" json:"fee_cents"`
	TotalCents int64 `yaml:"total_cents" json:"total_cents"`

	Status Status `yaml:"status" json:"status"`

	Lat *float64 `yaml:"lat,omitempty" json:"lat,omitempty"`
	Lng *float64 `yaml:"lng,omitempty" json:"lng,omitempty"`

	RequesterID string `yaml:"requester_id" json:"requester_id"`
	// WorkerID is empty exactly while Status == requested. It survives
	// cancellation as a historical record.
	WorkerID string `yaml:"worker_id,omitempty" json:"worker_id,omitempty"`

	PaymentIntentID string     `yaml:"payment_intent_id,omitempty" json:"payment_intent_id,omitempty"`
	PaidAt          *time.Time `yaml:"paid_at,omitempty" json:"paid_at,omitempty"`

	CreatedAt time.Time `yaml:"created_at" json:"created_at"`
	UpdatedAt time.Time `yaml:"updated_at" json:"updated_at"`
}

func (t *Task) Paid() bool {
	return t.PaidAt != nil
}

// Priced reports whether fee and total have been derived and locked in.
func (t *Task) Priced() bool {
	return t.TotalCents > 0
}
