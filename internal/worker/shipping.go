package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/arkalabs/order-sagas/internal/saga"
	"github.com/arkalabs/order-sagas/internal/shipping"
)

const fuenteEnvios = "shipping-worker"

// ShippingConfig carries the worker's routing defaults. Origin is the
// dispatch warehouse; destination comes from the customer profile in a full
// deployment and falls back to the configured default here.
type ShippingConfig struct {
	Origen         string
	DestinoDefault string
	// PesoUnitarioKg estimates the parcel weight from the cantidad until
	// the catalog carries real product weights.
	PesoUnitarioKg float64
}

func DefaultShippingConfig() ShippingConfig {
	return ShippingConfig{
		Origen:         "BOG",
		DestinoDefault: "MED",
		PesoUnitarioKg: 1.0,
	}
}

// Shipping generates a shipping order for a reserved pedido. The cost
// estimate goes through the resilient adapter (which never fails); the
// order creation goes to the partner and can genuinely fail, in which case
// the worker emits a real failure event. It never fabricates a synthetic
// order id to mask a partner outage.
type Shipping struct {
	cotizador     *shipping.Service
	transportista shipping.Transportista
	bus           saga.EventBus
	cfg           ShippingConfig
}

func NewShipping(cotizador *shipping.Service, transportista shipping.Transportista, bus saga.EventBus, cfg ShippingConfig) *Shipping {
	if cfg.PesoUnitarioKg <= 0 {
		cfg = DefaultShippingConfig()
	}
	return &Shipping{
		cotizador:     cotizador,
		transportista: transportista,
		bus:           bus,
		cfg:           cfg,
	}
}

// HandleEvent processes one delivery from the shipping requests topic.
// Only INVENTORY_RESERVED triggers it.
func (w *Shipping) HandleEvent(ctx context.Context, ev saga.Event) error {
	if ev.EventType != saga.EventInventoryReserved {
		return nil
	}

	var payload saga.ReservaPayload
	if err := ev.DecodePayload(&payload); err != nil {
		return err
	}

	peso := float64(payload.Cantidad) * w.cfg.PesoUnitarioKg
	calculo := w.cotizador.CalcularEnvio(ctx, w.cfg.Origen, w.cfg.DestinoDefault, peso)

	slog.InfoContext(ctx, "cotizacion de envio obtenida",
		"pedido_id", payload.PedidoID,
		"costo", calculo.Costo,
		"dias", calculo.TiempoEstimadoDias,
		"resultado", calculo.Resultado,
		"proveedor", calculo.ProveedorUtilizado,
	)

	shippingOrderID, err := w.transportista.CrearOrden(ctx, shipping.OrdenEnvio{
		PedidoID:   payload.PedidoID,
		ProductoID: payload.ProductoID,
		Cantidad:   payload.Cantidad,
		Costo:      calculo.Costo,
	})
	if err != nil {
		slog.ErrorContext(ctx, "generacion de envio fallida",
			"pedido_id", payload.PedidoID, "error", err)
		return w.emitir(ctx, payload.PedidoID, saga.EventShippingGenerationFailed, saga.EnvioPayload{
			PedidoID: payload.PedidoID,
			Status:   "FAILED",
			Reason:   "SHIPPING_PARTNER_ERROR",
		})
	}

	slog.InfoContext(ctx, "orden de envio generada",
		"pedido_id", payload.PedidoID, "shipping_order_id", shippingOrderID)
	return w.emitir(ctx, payload.PedidoID, saga.EventShippingGenerated, saga.EnvioPayload{
		PedidoID:           payload.PedidoID,
		ShippingOrderID:    shippingOrderID,
		Status:             "GENERATED",
		CostoEnvio:         calculo.Costo,
		TiempoEstimadoDias: calculo.TiempoEstimadoDias,
	})
}

func (w *Shipping) emitir(ctx context.Context, sagaID, eventType string, payload saga.EnvioPayload) error {
	ev, err := saga.NewEvent(sagaID, eventType, fuenteEnvios, payload)
	if err != nil {
		return err
	}
	if err := w.bus.Publish(ctx, ev); err != nil {
		return fmt.Errorf("worker: publicar %s para %s: %w", eventType, sagaID, err)
	}
	return nil
}
