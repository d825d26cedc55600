// Package notification decouples state changes from their fan-out.
// Emitters depend on the Notifier interface; tests plug in Nop.
package notification

import (
	"github.com/taskpin/taskpin/internal/eventbus"
)

// Notifier delivers a domain event to interested parties. Emit is
// fire-and-forget: implementations swallow failures and callers never treat
// emission as part of the triggering operation.
type Notifier interface {
	Emit(eventType eventbus.Type, taskID string, payload map[string]string)
}

// Nop discards all events.
type Nop struct{}

func (Nop) Emit(eventbus.Type, string, map[string]string) {}

// BusNotifier publishes events on the in-process bus, where the push
// dispatcher and any streaming subscribers pick them up.
type BusNotifier struct {
	bus *eventbus.Bus
}

func NewBusNotifier(bus *eventbus.Bus) *BusNotifier {
	return &BusNotifier{bus: bus}
}

func (n *BusNotifier) Emit(eventType eventbus.Type, taskID string, payload map[string]string) {
	n.bus.PublishNew(eventType, taskID, payload)
}
