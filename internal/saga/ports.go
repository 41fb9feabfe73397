package saga

import "context"

// EventBus is the outbound port for publishing saga events. Delivery is
// at-least-once with no ordering guarantee across topics; a publish failure
// is returned to the caller as a signal and is not retried here.
type EventBus interface {
	// Publish sends the event to the default saga-events topic.
	Publish(ctx context.Context, event Event) error
	// PublishToTopic sends the event to a named topic.
	PublishToTopic(ctx context.Context, topic string, event Event) error
}

// PedidoStore is the live projection of saga state, addressable by pedidoId.
// Implementations must be safe for concurrent keyed access; the orchestrator
// serializes writes per pedidoId on top of it.
type PedidoStore interface {
	// Create persists a new pedido. ErrPedidoYaExiste on duplicate id.
	Create(ctx context.Context, p *Pedido) error
	// Get returns the pedido or ErrPedidoNoEncontrado.
	Get(ctx context.Context, pedidoID string) (*Pedido, error)
	// Save overwrites the stored pedido after a committed transition.
	Save(ctx context.Context, p *Pedido) error
}

// Notifier is the fire-and-forget customer notification collaborator.
type Notifier interface {
	Send(ctx context.Context, p Pedido) error
}

// CompensadorInventario releases inventory that was reserved by an earlier
// saga step. Invoked only on ENVIO_FALLIDO; a reservation failure never
// needs it because nothing was reserved.
type CompensadorInventario interface {
	CompensarInventario(ctx context.Context, p Pedido) error
}

// TransitionHook is a side-effect callback invoked after a transition has
// committed. Hooks observe; they cannot veto or roll back the transition.
type TransitionHook func(ctx context.Context, p Pedido, anterior Estado)
