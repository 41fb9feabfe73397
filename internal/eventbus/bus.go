// Package eventbus provides the transport between the orchestrator and the
// workers: an in-memory bus for tests and single-process runs, and a NATS
// adapter for distributed deployments.
//
// Delivery is at-least-once and unordered across topics; every subscriber
// must be idempotent. Ordering within one saga's causal chain comes from the
// fact that each step is triggered by the previous step's outcome, not from
// the bus.
package eventbus

import (
	"context"

	"github.com/arkalabs/order-sagas/internal/saga"
)

// Handler consumes one event delivery. A returned error is logged by the
// bus; redelivery, if any, is the broker's concern.
type Handler func(ctx context.Context, ev saga.Event) error

// Bus extends the orchestrator-facing publish port with subscription, which
// only the wiring code (cmd mains) needs.
type Bus interface {
	saga.EventBus
	Subscribe(topic string, h Handler) error
	Close(ctx context.Context) error
}
