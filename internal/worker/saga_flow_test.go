package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkalabs/order-sagas/internal/eventbus"
	"github.com/arkalabs/order-sagas/internal/notify"
	"github.com/arkalabs/order-sagas/internal/saga"
	sagastore "github.com/arkalabs/order-sagas/internal/saga/store"
	"github.com/arkalabs/order-sagas/internal/shipping"
	"github.com/arkalabs/order-sagas/internal/stock"
)

// armarSaga wires the whole pipeline in one process: memory bus and stores,
// both workers and the notifier subscribed, provider permanently down so
// quotes come from the simulation.
func armarSaga(t *testing.T, existencias stock.Store, transportista shipping.Transportista) (*saga.Orchestrator, *eventbus.Memory) {
	t.Helper()
	bus := eventbus.NewMemory()

	orchestrator := saga.NewOrchestrator(sagastore.NewMemory(), bus,
		saga.WithNotifier(notify.NewLogNotifier(bus)),
		saga.WithCompensador(NewStockCompensator(existencias)),
	)

	require.NoError(t, bus.Subscribe(saga.TopicInventario, NewInventory(existencias, bus).HandleEvent))
	require.NoError(t, bus.Subscribe(saga.TopicEnvios,
		NewShipping(cotizadorDePrueba(), transportista, bus, DefaultShippingConfig()).HandleEvent))
	require.NoError(t, bus.Subscribe(saga.TopicEventos, orchestrator.HandleEvent))

	return orchestrator, bus
}

func esperarEstado(t *testing.T, o *saga.Orchestrator, pedidoID string, estado saga.Estado) *saga.Pedido {
	t.Helper()
	var actual *saga.Pedido
	require.Eventually(t, func() bool {
		p, err := o.GetPedido(context.Background(), pedidoID)
		if err != nil {
			return false
		}
		actual = p
		return p.Estado == estado
	}, 2*time.Second, 10*time.Millisecond, "pedido %s never reached %s", pedidoID, estado)
	return actual
}

func TestSagaCompleta(t *testing.T) {
	existencias := stock.NewMemory(map[string]int{"SKU-1": 10})
	o, _ := armarSaga(t, existencias, shipping.NewTransportistaLocal())

	p, err := o.StartSaga(context.Background(), saga.NuevoPedido{
		ClienteID:  "CLI-1",
		ProductoID: "SKU-1",
		Cantidad:   2,
		Precio:     29.99,
	})
	require.NoError(t, err)
	assert.Equal(t, saga.EstadoCreado, p.Estado, "the start response reports CREADO, not the final state")

	final := esperarEstado(t, o, p.PedidoID, saga.EstadoCompletado)
	assert.NotEmpty(t, final.ShippingOrderID)
	assert.InDelta(t, 59.98, final.Total(), 0.001)

	disponible, err := existencias.Disponible(context.Background(), "SKU-1")
	require.NoError(t, err)
	assert.Equal(t, 8, disponible)
}

func TestSagaStockInsuficiente(t *testing.T) {
	existencias := stock.NewMemory(map[string]int{"SKU-1": 1})
	o, _ := armarSaga(t, existencias, shipping.NewTransportistaLocal())

	p, err := o.StartSaga(context.Background(), saga.NuevoPedido{
		ClienteID:  "CLI-1",
		ProductoID: "SKU-1",
		Cantidad:   5,
		Precio:     10,
	})
	require.NoError(t, err)

	esperarEstado(t, o, p.PedidoID, saga.EstadoFallido)

	disponible, err := existencias.Disponible(context.Background(), "SKU-1")
	require.NoError(t, err)
	assert.Equal(t, 1, disponible, "a rejected reservation leaves the stock untouched")
}

func TestSagaCompensacion(t *testing.T) {
	existencias := stock.NewMemory(map[string]int{"SKU-1": 10})
	o, _ := armarSaga(t, existencias, transportistaFallido{})

	p, err := o.StartSaga(context.Background(), saga.NuevoPedido{
		ClienteID:  "CLI-1",
		ProductoID: "SKU-1",
		Cantidad:   3,
		Precio:     10,
	})
	require.NoError(t, err)

	final := esperarEstado(t, o, p.PedidoID, saga.EstadoFallido)
	assert.Empty(t, final.ShippingOrderID)

	// Compensation released what the inventory worker had reserved.
	require.Eventually(t, func() bool {
		disponible, err := existencias.Disponible(context.Background(), "SKU-1")
		return err == nil && disponible == 10
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSagasConcurrentesUltimasUnidades(t *testing.T) {
	existencias := stock.NewMemory(map[string]int{"SKU-1": 5})
	o, _ := armarSaga(t, existencias, shipping.NewTransportistaLocal())

	ids := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		p, err := o.StartSaga(context.Background(), saga.NuevoPedido{
			ClienteID:  "CLI-1",
			ProductoID: "SKU-1",
			Cantidad:   2,
			Precio:     10,
		})
		require.NoError(t, err)
		ids = append(ids, p.PedidoID)
	}

	// Every saga terminates and the stock never goes negative: 5 units
	// admit exactly two reservations of 2.
	completados := 0
	for _, id := range ids {
		var final *saga.Pedido
		require.Eventually(t, func() bool {
			p, err := o.GetPedido(context.Background(), id)
			if err != nil {
				return false
			}
			final = p
			return p.Estado.Terminal()
		}, 2*time.Second, 10*time.Millisecond)
		if final.Estado == saga.EstadoCompletado {
			completados++
		}
	}
	assert.Equal(t, 2, completados)

	disponible, err := existencias.Disponible(context.Background(), "SKU-1")
	require.NoError(t, err)
	assert.Equal(t, 1, disponible)
}
