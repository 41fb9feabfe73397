package saga

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/arkalabs/order-sagas/internal/sagalog"
)

const fuenteOrquestador = "saga-orchestrator"

// Orchestrator owns the per-pedido state machine. It issues the first
// command, reacts to each worker outcome event, drives compensation, and
// brings every saga to a terminal state.
//
// Every Handle* method is safe under concurrent at-least-once delivery: it
// takes the per-pedido lock, re-checks the precondition state, and treats a
// mismatch as a duplicate delivery, not an error. Calls return as soon as
// the local transition is committed and the next trigger is dispatched; they
// never wait for a downstream step.
type Orchestrator struct {
	store       PedidoStore
	bus         EventBus
	notifier    Notifier
	compensador CompensadorInventario
	registro    sagalog.Repository // nil-safe: transitions are not logged if nil
	hooks       []TransitionHook
	keys        *keyedMutex
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithNotifier sets the customer notification collaborator.
func WithNotifier(n Notifier) Option {
	return func(o *Orchestrator) { o.notifier = n }
}

// WithCompensador sets the inventory-release compensation port.
func WithCompensador(c CompensadorInventario) Option {
	return func(o *Orchestrator) { o.compensador = c }
}

// WithRegistro sets the saga transition log repository.
func WithRegistro(r sagalog.Repository) Option {
	return func(o *Orchestrator) { o.registro = r }
}

// WithTransitionHook appends a side-effect callback invoked after each
// committed transition.
func WithTransitionHook(h TransitionHook) Option {
	return func(o *Orchestrator) { o.hooks = append(o.hooks, h) }
}

func NewOrchestrator(store PedidoStore, bus EventBus, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store: store,
		bus:   bus,
		keys:  newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// StartSaga validates the input, persists the pedido in CREADO, and triggers
// the inventory-reservation worker fire-and-forget. The returned pedido is
// an acknowledgement only: saga progress is observed through the event
// handlers, never through this call.
func (o *Orchestrator) StartSaga(ctx context.Context, n NuevoPedido) (*Pedido, error) {
	p, err := CrearPedido(n)
	if err != nil {
		return nil, err
	}

	unlock := o.keys.Lock(p.PedidoID)
	defer unlock()

	if err := o.store.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("saga: crear pedido %s: %w", p.PedidoID, err)
	}
	o.registrar(ctx, p, "SAGA_STARTED")

	slog.InfoContext(ctx, "saga iniciado",
		"pedido_id", p.PedidoID,
		"cliente_id", p.ClienteID,
		"producto_id", p.ProductoID,
		"cantidad", p.Cantidad,
	)

	payload := ReservaPayload{
		PedidoID:   p.PedidoID,
		ProductoID: p.ProductoID,
		Cantidad:   p.Cantidad,
	}
	o.dispatch(ctx, func(ctx context.Context) {
		o.publicar(ctx, TopicInventario, p.PedidoID, EventInventoryReservationRequested, payload)
	})

	copia := *p
	return &copia, nil
}

// GetPedido returns the current projection for a pedido.
func (o *Orchestrator) GetPedido(ctx context.Context, pedidoID string) (*Pedido, error) {
	return o.store.Get(ctx, pedidoID)
}

// HandleEvent dispatches a saga-events topic delivery to the matching
// handler. Unknown event types are ignored, which covers the orchestrator's
// own audit events fanning back through the same topic.
func (o *Orchestrator) HandleEvent(ctx context.Context, ev Event) error {
	switch ev.EventType {
	case EventInventoryReserved:
		return o.HandleInventoryReserved(ctx, ev.SagaID)
	case EventInventoryReservationFailed:
		return o.HandleInventoryReservationFailed(ctx, ev.SagaID)
	case EventShippingGenerated:
		var payload EnvioPayload
		if err := ev.DecodePayload(&payload); err != nil {
			return err
		}
		return o.HandleShippingGenerated(ctx, ev.SagaID, payload.ShippingOrderID)
	case EventShippingGenerationFailed:
		return o.HandleShippingGenerationFailed(ctx, ev.SagaID)
	case EventNotificationSent:
		return o.HandleNotificationSent(ctx, ev.SagaID)
	default:
		return nil
	}
}

// HandleInventoryReserved moves CREADO -> INVENTARIO_RESERVADO and triggers
// the shipping-generation worker.
func (o *Orchestrator) HandleInventoryReserved(ctx context.Context, pedidoID string) error {
	unlock := o.keys.Lock(pedidoID)
	defer unlock()

	p, err := o.store.Get(ctx, pedidoID)
	if err != nil {
		return err
	}
	if p.Estado != EstadoCreado {
		o.ignorarDuplicado(ctx, p, EventInventoryReserved)
		return nil
	}

	if err := o.transicionar(ctx, p, EstadoInventarioReservado, EventInventoryReserved); err != nil {
		return err
	}

	payload := ReservaPayload{
		PedidoID:   p.PedidoID,
		ProductoID: p.ProductoID,
		Cantidad:   p.Cantidad,
		Status:     "RESERVED",
	}
	o.dispatch(ctx, func(ctx context.Context) {
		o.publicar(ctx, TopicEnvios, p.PedidoID, EventInventoryReserved, payload)
	})
	return nil
}

// HandleInventoryReservationFailed moves CREADO -> INVENTARIO_FALLIDO ->
// FALLIDO. No compensation runs: nothing was reserved.
func (o *Orchestrator) HandleInventoryReservationFailed(ctx context.Context, pedidoID string) error {
	unlock := o.keys.Lock(pedidoID)
	defer unlock()

	p, err := o.store.Get(ctx, pedidoID)
	if err != nil {
		return err
	}
	if p.Estado != EstadoCreado {
		o.ignorarDuplicado(ctx, p, EventInventoryReservationFailed)
		return nil
	}

	if err := o.transicionar(ctx, p, EstadoInventarioFallido, EventInventoryReservationFailed); err != nil {
		return err
	}
	if err := o.transicionar(ctx, p, EstadoFallido, EventSagaFailed); err != nil {
		return err
	}
	o.publicarEvento(ctx, p.PedidoID, EventSagaFailed, NotificacionPayload{PedidoID: p.PedidoID, Status: "FAILED"})
	return nil
}

// HandleShippingGenerated moves INVENTARIO_RESERVADO -> ENVIO_GENERADO,
// records the shipping order id, and triggers the customer notification
// asynchronously.
func (o *Orchestrator) HandleShippingGenerated(ctx context.Context, pedidoID, shippingOrderID string) error {
	unlock := o.keys.Lock(pedidoID)
	defer unlock()

	p, err := o.store.Get(ctx, pedidoID)
	if err != nil {
		return err
	}
	if p.Estado != EstadoInventarioReservado {
		o.ignorarDuplicado(ctx, p, EventShippingGenerated)
		return nil
	}

	p.ShippingOrderID = shippingOrderID
	if err := o.transicionar(ctx, p, EstadoEnvioGenerado, EventShippingGenerated); err != nil {
		return err
	}

	if o.notifier != nil {
		pedido := *p
		o.dispatch(ctx, func(ctx context.Context) {
			if err := o.notifier.Send(ctx, pedido); err != nil {
				slog.ErrorContext(ctx, "fallo al notificar al cliente",
					"pedido_id", pedido.PedidoID, "error", err)
			}
		})
	}
	return nil
}

// HandleShippingGenerationFailed moves INVENTARIO_RESERVADO -> ENVIO_FALLIDO,
// releases the reserved inventory, and ends in FALLIDO. COMPENSADO is only
// reached when the release succeeds; a failed release is logged and the saga
// still terminates.
func (o *Orchestrator) HandleShippingGenerationFailed(ctx context.Context, pedidoID string) error {
	unlock := o.keys.Lock(pedidoID)
	defer unlock()

	p, err := o.store.Get(ctx, pedidoID)
	if err != nil {
		return err
	}
	if p.Estado != EstadoInventarioReservado {
		o.ignorarDuplicado(ctx, p, EventShippingGenerationFailed)
		return nil
	}

	if err := o.transicionar(ctx, p, EstadoEnvioFallido, EventShippingGenerationFailed); err != nil {
		return err
	}

	if o.compensador != nil {
		if err := o.compensador.CompensarInventario(ctx, *p); err != nil {
			slog.ErrorContext(ctx, "CRITICAL: fallo la compensacion de inventario",
				"pedido_id", p.PedidoID, "error", err)
		} else {
			if err := o.transicionar(ctx, p, EstadoCompensado, EventSagaCompensated); err != nil {
				return err
			}
			o.publicarEvento(ctx, p.PedidoID, EventSagaCompensated, ReservaPayload{
				PedidoID:   p.PedidoID,
				ProductoID: p.ProductoID,
				Cantidad:   p.Cantidad,
				Status:     "RELEASED",
			})
		}
	}

	if err := o.transicionar(ctx, p, EstadoFallido, EventSagaFailed); err != nil {
		return err
	}
	o.publicarEvento(ctx, p.PedidoID, EventSagaFailed, NotificacionPayload{PedidoID: p.PedidoID, Status: "FAILED"})
	return nil
}

// HandleNotificationSent moves ENVIO_GENERADO -> NOTIFICACION_ENVIADA ->
// COMPLETADO, the saga's successful terminal state.
func (o *Orchestrator) HandleNotificationSent(ctx context.Context, pedidoID string) error {
	unlock := o.keys.Lock(pedidoID)
	defer unlock()

	p, err := o.store.Get(ctx, pedidoID)
	if err != nil {
		return err
	}
	if p.Estado != EstadoEnvioGenerado {
		o.ignorarDuplicado(ctx, p, EventNotificationSent)
		return nil
	}

	if err := o.transicionar(ctx, p, EstadoNotificacionEnviada, EventNotificationSent); err != nil {
		return err
	}
	if err := o.transicionar(ctx, p, EstadoCompletado, EventSagaCompleted); err != nil {
		return err
	}

	slog.InfoContext(ctx, "saga completado", "pedido_id", p.PedidoID, "total", p.Total())
	o.publicarEvento(ctx, p.PedidoID, EventSagaCompleted, NotificacionPayload{PedidoID: p.PedidoID, Status: "COMPLETED"})
	return nil
}

// transicionar commits a single transition: state guard, store save,
// transition log, hooks. The transition log and the hooks observe the commit;
// they cannot undo it.
func (o *Orchestrator) transicionar(ctx context.Context, p *Pedido, destino Estado, causa string) error {
	anterior := p.Estado
	if err := p.Transicionar(destino); err != nil {
		return err
	}
	if err := o.store.Save(ctx, p); err != nil {
		p.Estado = anterior
		return fmt.Errorf("saga: guardar pedido %s en %s: %w", p.PedidoID, destino, err)
	}
	o.registrar(ctx, p, causa)

	slog.InfoContext(ctx, "transicion de saga",
		"pedido_id", p.PedidoID,
		"de", anterior,
		"a", destino,
		"causa", causa,
	)
	for _, h := range o.hooks {
		h(ctx, *p, anterior)
	}
	return nil
}

// dispatch runs fn in a goroutine detached from the caller's cancellation,
// so the saga keeps moving after an HTTP response is written. Tracing
// metadata still propagates.
func (o *Orchestrator) dispatch(ctx context.Context, fn func(ctx context.Context)) {
	go fn(context.WithoutCancel(ctx))
}

// publicar publishes a trigger event to a worker topic. A failure here is
// infrastructure, not business: it is logged and the committed transition
// stands.
func (o *Orchestrator) publicar(ctx context.Context, topic, sagaID, eventType string, payload any) {
	ev, err := NewEvent(sagaID, eventType, fuenteOrquestador, payload)
	if err != nil {
		slog.ErrorContext(ctx, "fallo al construir evento", "event_type", eventType, "error", err)
		return
	}
	if err := o.bus.PublishToTopic(ctx, topic, ev); err != nil {
		slog.ErrorContext(ctx, "fallo al publicar evento",
			"topic", topic, "event_type", eventType, "saga_id", sagaID, "error", err)
	}
}

// publicarEvento publishes an audit event to the default saga-events topic.
func (o *Orchestrator) publicarEvento(ctx context.Context, sagaID, eventType string, payload any) {
	ev, err := NewEvent(sagaID, eventType, fuenteOrquestador, payload)
	if err != nil {
		slog.ErrorContext(ctx, "fallo al construir evento", "event_type", eventType, "error", err)
		return
	}
	if err := o.bus.Publish(ctx, ev); err != nil {
		slog.ErrorContext(ctx, "fallo al publicar evento de auditoria",
			"event_type", eventType, "saga_id", sagaID, "error", err)
	}
}

func (o *Orchestrator) ignorarDuplicado(ctx context.Context, p *Pedido, eventType string) {
	slog.InfoContext(ctx, "entrega duplicada ignorada",
		"pedido_id", p.PedidoID,
		"estado_actual", p.Estado,
		"event_type", eventType,
	)
}

func (o *Orchestrator) registrar(ctx context.Context, p *Pedido, causa string) {
	if o.registro == nil {
		return
	}
	entrada := sagalog.NewEntrada(ctx, p.PedidoID, string(p.Estado), causa, "")
	if err := o.registro.Append(ctx, entrada); err != nil {
		slog.ErrorContext(ctx, "fallo al escribir el saga log",
			"pedido_id", p.PedidoID, "estado", p.Estado, "error", err)
	}
}

// EsNoEncontrado helps HTTP callers map handler errors: duplicates are not
// errors at all, so only ErrPedidoNoEncontrado needs translation.
func EsNoEncontrado(err error) bool {
	return errors.Is(err, ErrPedidoNoEncontrado)
}
