package saga

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Topics. Delivery between the orchestrator and the workers happens only
// through these subjects; the bus guarantees at-least-once, so every
// consumer on them is idempotent.
const (
	// TopicEventos carries worker outcome events and orchestrator audit
	// events. The orchestrator's dispatcher subscribes here.
	TopicEventos = "saga.events"

	// TopicInventario triggers the inventory-reservation worker.
	TopicInventario = "saga.inventory.requests"

	// TopicEnvios triggers the shipping-generation worker.
	TopicEnvios = "saga.shipping.requests"

	// TopicBreaker receives circuit-breaker state changes for monitoring.
	TopicBreaker = "saga.circuit-breaker"
)

// Event types. The set is closed; consumers silently ignore types they do
// not recognize.
const (
	EventInventoryReservationRequested = "INVENTORY_RESERVATION_REQUESTED"
	EventInventoryReserved             = "INVENTORY_RESERVED"
	EventInventoryReservationFailed    = "INVENTORY_RESERVATION_FAILED"
	EventShippingGenerated             = "SHIPPING_GENERATED"
	EventShippingGenerationFailed      = "SHIPPING_GENERATION_FAILED"
	EventNotificationSent              = "NOTIFICATION_SENT"
	EventSagaCompleted                 = "SAGA_COMPLETED"
	EventSagaCompensated               = "SAGA_COMPENSATED"
	EventSagaFailed                    = "SAGA_FAILED"
	EventBreakerStateChanged           = "CIRCUIT_BREAKER_STATE_CHANGED"
)

// Event is the envelope published to every topic. It is an immutable fact:
// once emitted it is never mutated, and every emission gets a fresh EventID
// so that audit trails can distinguish re-deliveries from new facts.
type Event struct {
	EventID   string          `json:"eventId"`
	SagaID    string          `json:"sagaId"`
	EventType string          `json:"eventType"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Source    string          `json:"source"`
}

// NewEvent builds an envelope with a fresh EventID. payload may be nil.
func NewEvent(sagaID, eventType, source string, payload any) (Event, error) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return Event{}, fmt.Errorf("saga: marshal payload for %s: %w", eventType, err)
		}
		raw = b
	}
	return Event{
		EventID:   uuid.NewString(),
		SagaID:    sagaID,
		EventType: eventType,
		Payload:   raw,
		Timestamp: time.Now().UTC(),
		Source:    source,
	}, nil
}

// DecodePayload unmarshals the payload into v.
func (e Event) DecodePayload(v any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("saga: event %s (%s) has no payload", e.EventID, e.EventType)
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("saga: decode payload of %s (%s): %w", e.EventID, e.EventType, err)
	}
	return nil
}

// ReservaPayload is the payload of the inventory request and outcome events.
// The field names are the wire format consumed by downstream systems.
type ReservaPayload struct {
	PedidoID   string `json:"pedidoId"`
	ProductoID string `json:"productoId"`
	Cantidad   int    `json:"cantidad"`
	Status     string `json:"status,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// EnvioPayload is the payload of the shipping outcome events. CostoEnvio and
// TiempoEstimadoDias come from the quote obtained while generating the order.
type EnvioPayload struct {
	PedidoID           string  `json:"pedidoId"`
	ShippingOrderID    string  `json:"shippingOrderId,omitempty"`
	Status             string  `json:"status"`
	Reason             string  `json:"reason,omitempty"`
	CostoEnvio         float64 `json:"costoEnvio,omitempty"`
	TiempoEstimadoDias int     `json:"tiempoEstimadoDias,omitempty"`
}

// NotificacionPayload is the payload of NOTIFICATION_SENT.
type NotificacionPayload struct {
	PedidoID string `json:"pedidoId"`
	Status   string `json:"status"`
}

// BreakerPayload is the payload of CIRCUIT_BREAKER_STATE_CHANGED, published
// to the circuit-breaker topic for monitoring.
type BreakerPayload struct {
	Breaker string `json:"breaker"`
	From    string `json:"from"`
	To      string `json:"to"`
}
