// Package worker contains the stateless event-triggered workers of the
// saga: inventory reservation and shipping-order generation. Each worker
// reacts to exactly one event type, calls one downstream capability, and
// emits exactly one outcome event with a fresh eventId and its own source
// tag. Events of any other type are ignored, never errored on.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/arkalabs/order-sagas/internal/saga"
	"github.com/arkalabs/order-sagas/internal/stock"
)

const fuenteInventario = "inventory-worker"

// Inventory reserves stock for a pedido. The reservation itself is a single
// atomic conditional decrement in the stock store, so concurrent sagas
// cannot double-reserve the last units.
type Inventory struct {
	stock stock.Store
	bus   saga.EventBus
}

func NewInventory(st stock.Store, bus saga.EventBus) *Inventory {
	return &Inventory{stock: st, bus: bus}
}

// HandleEvent processes one delivery from the inventory requests topic.
func (w *Inventory) HandleEvent(ctx context.Context, ev saga.Event) error {
	if ev.EventType != saga.EventInventoryReservationRequested {
		return nil
	}

	var payload saga.ReservaPayload
	if err := ev.DecodePayload(&payload); err != nil {
		return err
	}

	slog.InfoContext(ctx, "procesando reserva de inventario",
		"pedido_id", payload.PedidoID,
		"producto_id", payload.ProductoID,
		"cantidad", payload.Cantidad,
	)

	err := w.stock.Reservar(ctx, payload.ProductoID, payload.Cantidad)
	if err == nil {
		return w.emitir(ctx, payload.PedidoID, saga.EventInventoryReserved, saga.ReservaPayload{
			PedidoID:   payload.PedidoID,
			ProductoID: payload.ProductoID,
			Cantidad:   payload.Cantidad,
			Status:     "RESERVED",
		})
	}

	reason := "INSUFFICIENT_STOCK"
	if errors.Is(err, stock.ErrProductoNoExiste) {
		reason = "UNKNOWN_PRODUCT"
	}
	slog.WarnContext(ctx, "reserva de inventario fallida",
		"pedido_id", payload.PedidoID,
		"producto_id", payload.ProductoID,
		"reason", reason,
		"error", err,
	)
	return w.emitir(ctx, payload.PedidoID, saga.EventInventoryReservationFailed, saga.ReservaPayload{
		PedidoID:   payload.PedidoID,
		ProductoID: payload.ProductoID,
		Cantidad:   payload.Cantidad,
		Status:     "FAILED",
		Reason:     reason,
	})
}

func (w *Inventory) emitir(ctx context.Context, sagaID, eventType string, payload saga.ReservaPayload) error {
	ev, err := saga.NewEvent(sagaID, eventType, fuenteInventario, payload)
	if err != nil {
		return err
	}
	if err := w.bus.Publish(ctx, ev); err != nil {
		return fmt.Errorf("worker: publicar %s para %s: %w", eventType, sagaID, err)
	}
	return nil
}
