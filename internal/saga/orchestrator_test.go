package saga

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// busRecorder captures every publish so tests can assert on triggers without
// a real broker.
type busRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

type recordedEvent struct {
	topic string
	event Event
}

func (b *busRecorder) Publish(ctx context.Context, ev Event) error {
	return b.PublishToTopic(ctx, TopicEventos, ev)
}

func (b *busRecorder) PublishToTopic(ctx context.Context, topic string, ev Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, recordedEvent{topic: topic, event: ev})
	return nil
}

func (b *busRecorder) count(topic, eventType string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, rec := range b.events {
		if rec.topic == topic && rec.event.EventType == eventType {
			n++
		}
	}
	return n
}

type storeStub struct {
	mu      sync.Mutex
	pedidos map[string]Pedido
}

func newStoreStub() *storeStub {
	return &storeStub{pedidos: make(map[string]Pedido)}
}

func (s *storeStub) Create(ctx context.Context, p *Pedido) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pedidos[p.PedidoID]; ok {
		return ErrPedidoYaExiste
	}
	s.pedidos[p.PedidoID] = *p
	return nil
}

func (s *storeStub) Get(ctx context.Context, pedidoID string) (*Pedido, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pedidos[pedidoID]
	if !ok {
		return nil, ErrPedidoNoEncontrado
	}
	copia := p
	return &copia, nil
}

func (s *storeStub) Save(ctx context.Context, p *Pedido) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pedidos[p.PedidoID]; !ok {
		return ErrPedidoNoEncontrado
	}
	s.pedidos[p.PedidoID] = *p
	return nil
}

type compensadorStub struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (c *compensadorStub) CompensarInventario(ctx context.Context, p Pedido) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.err
}

func (c *compensadorStub) llamadas() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func iniciarSaga(t *testing.T, o *Orchestrator) *Pedido {
	t.Helper()
	p, err := o.StartSaga(context.Background(), NuevoPedido{
		ClienteID:  "CLI-1",
		ProductoID: "SKU-1",
		Cantidad:   2,
		Precio:     29.99,
	})
	require.NoError(t, err)
	return p
}

func TestStartSaga(t *testing.T) {
	bus := &busRecorder{}
	o := NewOrchestrator(newStoreStub(), bus)

	p := iniciarSaga(t, o)
	assert.Equal(t, EstadoCreado, p.Estado)

	// The trigger is published fire-and-forget after the response.
	require.Eventually(t, func() bool {
		return bus.count(TopicInventario, EventInventoryReservationRequested) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestStartSaga_EntradaInvalida(t *testing.T) {
	o := NewOrchestrator(newStoreStub(), &busRecorder{})

	_, err := o.StartSaga(context.Background(), NuevoPedido{
		ClienteID:  "CLI-1",
		ProductoID: "SKU-1",
		Cantidad:   0,
		Precio:     10,
	})
	require.ErrorIs(t, err, ErrEntradaInvalida)
}

func TestGetPedido_NoEncontrado(t *testing.T) {
	o := NewOrchestrator(newStoreStub(), &busRecorder{})

	_, err := o.GetPedido(context.Background(), "no-such-id")
	require.ErrorIs(t, err, ErrPedidoNoEncontrado)
	assert.True(t, EsNoEncontrado(err))
}

func TestHandleInventoryReserved(t *testing.T) {
	bus := &busRecorder{}
	store := newStoreStub()
	o := NewOrchestrator(store, bus)
	p := iniciarSaga(t, o)

	require.NoError(t, o.HandleInventoryReserved(context.Background(), p.PedidoID))

	actual, err := o.GetPedido(context.Background(), p.PedidoID)
	require.NoError(t, err)
	assert.Equal(t, EstadoInventarioReservado, actual.Estado)

	require.Eventually(t, func() bool {
		return bus.count(TopicEnvios, EventInventoryReserved) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestHandleInventoryReserved_EntregaDuplicada(t *testing.T) {
	bus := &busRecorder{}
	o := NewOrchestrator(newStoreStub(), bus)
	p := iniciarSaga(t, o)

	require.NoError(t, o.HandleInventoryReserved(context.Background(), p.PedidoID))
	// Redelivery of the same outcome must be a no-op.
	require.NoError(t, o.HandleInventoryReserved(context.Background(), p.PedidoID))

	require.Eventually(t, func() bool {
		return bus.count(TopicEnvios, EventInventoryReserved) >= 1
	}, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, bus.count(TopicEnvios, EventInventoryReserved),
		"a duplicate delivery must not re-trigger the shipping worker")

	actual, err := o.GetPedido(context.Background(), p.PedidoID)
	require.NoError(t, err)
	assert.Equal(t, EstadoInventarioReservado, actual.Estado)
}

func TestHandleInventoryReserved_NoEncontrado(t *testing.T) {
	o := NewOrchestrator(newStoreStub(), &busRecorder{})
	err := o.HandleInventoryReserved(context.Background(), "no-such-id")
	require.ErrorIs(t, err, ErrPedidoNoEncontrado)
}

func TestHandleInventoryReservationFailed(t *testing.T) {
	bus := &busRecorder{}
	compensador := &compensadorStub{}
	o := NewOrchestrator(newStoreStub(), bus, WithCompensador(compensador))
	p := iniciarSaga(t, o)

	require.NoError(t, o.HandleInventoryReservationFailed(context.Background(), p.PedidoID))

	actual, err := o.GetPedido(context.Background(), p.PedidoID)
	require.NoError(t, err)
	assert.Equal(t, EstadoFallido, actual.Estado)
	assert.Equal(t, 0, compensador.llamadas(),
		"nothing was reserved, so nothing must be released")
	assert.Equal(t, 1, bus.count(TopicEventos, EventSagaFailed))
}

func TestHandleShippingGenerated(t *testing.T) {
	bus := &busRecorder{}
	o := NewOrchestrator(newStoreStub(), bus)
	p := iniciarSaga(t, o)
	require.NoError(t, o.HandleInventoryReserved(context.Background(), p.PedidoID))

	require.NoError(t, o.HandleShippingGenerated(context.Background(), p.PedidoID, "SHIP-123"))

	actual, err := o.GetPedido(context.Background(), p.PedidoID)
	require.NoError(t, err)
	assert.Equal(t, EstadoEnvioGenerado, actual.Estado)
	assert.Equal(t, "SHIP-123", actual.ShippingOrderID)
}

func TestHandleShippingGenerationFailed_Compensa(t *testing.T) {
	bus := &busRecorder{}
	compensador := &compensadorStub{}
	o := NewOrchestrator(newStoreStub(), bus, WithCompensador(compensador))
	p := iniciarSaga(t, o)
	require.NoError(t, o.HandleInventoryReserved(context.Background(), p.PedidoID))

	require.NoError(t, o.HandleShippingGenerationFailed(context.Background(), p.PedidoID))

	actual, err := o.GetPedido(context.Background(), p.PedidoID)
	require.NoError(t, err)
	assert.Equal(t, EstadoFallido, actual.Estado)
	assert.Equal(t, 1, compensador.llamadas())
	assert.Equal(t, 1, bus.count(TopicEventos, EventSagaCompensated))
	assert.Equal(t, 1, bus.count(TopicEventos, EventSagaFailed))
}

func TestHandleShippingGenerationFailed_CompensacionFalla(t *testing.T) {
	bus := &busRecorder{}
	compensador := &compensadorStub{err: errors.New("redis down")}
	o := NewOrchestrator(newStoreStub(), bus, WithCompensador(compensador))
	p := iniciarSaga(t, o)
	require.NoError(t, o.HandleInventoryReserved(context.Background(), p.PedidoID))

	// The saga still terminates even when the release fails; COMPENSADO is
	// only reached on a successful release.
	require.NoError(t, o.HandleShippingGenerationFailed(context.Background(), p.PedidoID))

	actual, err := o.GetPedido(context.Background(), p.PedidoID)
	require.NoError(t, err)
	assert.Equal(t, EstadoFallido, actual.Estado)
	assert.Equal(t, 0, bus.count(TopicEventos, EventSagaCompensated))
	assert.Equal(t, 1, bus.count(TopicEventos, EventSagaFailed))
}

func TestHandleNotificationSent(t *testing.T) {
	bus := &busRecorder{}
	o := NewOrchestrator(newStoreStub(), bus)
	p := iniciarSaga(t, o)
	require.NoError(t, o.HandleInventoryReserved(context.Background(), p.PedidoID))
	require.NoError(t, o.HandleShippingGenerated(context.Background(), p.PedidoID, "SHIP-123"))

	require.NoError(t, o.HandleNotificationSent(context.Background(), p.PedidoID))

	actual, err := o.GetPedido(context.Background(), p.PedidoID)
	require.NoError(t, err)
	assert.Equal(t, EstadoCompletado, actual.Estado)
	assert.Equal(t, 1, bus.count(TopicEventos, EventSagaCompleted))
}

func TestHandleEvent_TipoDesconocido(t *testing.T) {
	o := NewOrchestrator(newStoreStub(), &busRecorder{})
	ev, err := NewEvent("some-saga", "SOMETHING_ELSE", "test", nil)
	require.NoError(t, err)
	require.NoError(t, o.HandleEvent(context.Background(), ev))
}

func TestTransitionHook(t *testing.T) {
	var mu sync.Mutex
	var seen []Estado
	o := NewOrchestrator(newStoreStub(), &busRecorder{},
		WithTransitionHook(func(ctx context.Context, p Pedido, anterior Estado) {
			mu.Lock()
			seen = append(seen, p.Estado)
			mu.Unlock()
		}),
	)
	p := iniciarSaga(t, o)
	require.NoError(t, o.HandleInventoryReserved(context.Background(), p.PedidoID))

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []Estado{EstadoInventarioReservado}, seen)
}
