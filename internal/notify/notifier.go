// Package notify delivers customer-facing notifications for saga outcomes.
// The current adapter logs the message and reports completion through the
// event bus; swapping in email or push delivery only needs a new Notifier.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/arkalabs/order-sagas/internal/saga"
)

const fuente = "notification-service"

// LogNotifier emits the notification as a structured log line and publishes
// NOTIFICATION_SENT so the orchestrator can advance the saga.
type LogNotifier struct {
	bus saga.EventBus
}

func NewLogNotifier(bus saga.EventBus) *LogNotifier {
	return &LogNotifier{bus: bus}
}

// Send notifies the customer that the pedido shipped. Delivery here is the
// log line itself; the published event confirms it happened.
func (n *LogNotifier) Send(ctx context.Context, pedido saga.Pedido) error {
	mensaje := fmt.Sprintf("tu pedido %s fue confirmado y el envio %s esta en camino", pedido.PedidoID, pedido.ShippingOrderID)

	slog.InfoContext(ctx, "notificacion enviada",
		"pedido_id", pedido.PedidoID,
		"cliente_id", pedido.ClienteID,
		"canal", "log",
		"mensaje", mensaje,
	)

	ev, err := saga.NewEvent(pedido.PedidoID, saga.EventNotificationSent, fuente, saga.NotificacionPayload{
		PedidoID: pedido.PedidoID,
		Status:   "SENT",
	})
	if err != nil {
		return err
	}
	if err := n.bus.Publish(ctx, ev); err != nil {
		return fmt.Errorf("notify: publicar NOTIFICATION_SENT para %s: %w", pedido.PedidoID, err)
	}
	return nil
}
