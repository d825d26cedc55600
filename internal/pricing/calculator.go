// Package pricing derives the platform fee and the total charge from a
// task's base price. Stateless; persistence and immutability of the derived
// fields are the payment service's concern.
package pricing

import (
	"math"

	"github.com/taskpin/taskpin/pkg/cerr"
)

// FeeRate is the platform's cut of the worker payout. Fixed at design time;
// changing it never re-prices a task whose fee has already been stored.
const FeeRate = 0.10

// Quote is the derived pricing for one task: what the worker earns, what
// the platform keeps, and what the requester is charged.
type Quote struct {
	PriceCents int64 `json:"price_cents"`
	FeeCents   int64 `json:"fee_cents"`
	TotalCents int64 `json:"total_cents"`
}

// NewQuote computes fee and total for a positive price. The fee rounds half
// away from zero, so a half-cent fee always rounds up for positive prices.
func NewQuote(priceCents int64) (Quote, error) {
	if priceCents <= 0 {
		return Quote{}, cerr.NewError(cerr.InvalidArgument, "task price not set", nil)
	}
	fee := int64(math.Round(float64(priceCents) * FeeRate))
	return Quote{
		PriceCents: priceCents,
		FeeCents:   fee,
		TotalCents: priceCents + fee,
	}, nil
}
