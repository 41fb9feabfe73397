package httpx

import (
	"time"

	"github.com/arkalabs/order-sagas/internal/resilience"
)

type StartSagaRequest struct {
	ClienteID  string  `json:"clienteId"`
	ProductoID string  `json:"productoId"`
	Cantidad   int     `json:"cantidad"`
	Precio     float64 `json:"precio"`
}

type PedidoResponse struct {
	PedidoID        string    `json:"pedidoId"`
	ClienteID       string    `json:"clienteId"`
	ProductoID      string    `json:"productoId"`
	Cantidad        int       `json:"cantidad"`
	Precio          float64   `json:"precio"`
	Total           float64   `json:"total"`
	Estado          string    `json:"estado"`
	ShippingOrderID string    `json:"shippingOrderId,omitempty"`
	FechaCreacion   time.Time `json:"fechaCreacion"`
}

// InventoryEventRequest is the body of the inventory webhook endpoints.
type InventoryEventRequest struct {
	PedidoID string `json:"pedidoId"`
	Reason   string `json:"reason,omitempty"`
}

// ShippingEventRequest is the body of the shipping webhook endpoints.
type ShippingEventRequest struct {
	PedidoID        string `json:"pedidoId"`
	ShippingOrderID string `json:"shippingOrderId,omitempty"`
	Reason          string `json:"reason,omitempty"`
}

// NotificationEventRequest is the body of the notification webhook endpoint.
type NotificationEventRequest struct {
	PedidoID string `json:"pedidoId"`
}

type AcceptedResponse struct {
	PedidoID string `json:"pedidoId"`
	Status   string `json:"status"`
}

type BreakerStatusResponse struct {
	Breakers []resilience.Snapshot `json:"breakers"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
