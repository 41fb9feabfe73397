// Package httpx exposes the saga over HTTP: starting a pedido, querying its
// state, receiving worker outcome webhooks, and inspecting the circuit
// breakers.
package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/arkalabs/order-sagas/internal/resilience"
	"github.com/arkalabs/order-sagas/internal/saga"
)

// Handler handles incoming HTTP requests for the saga API.
type Handler struct {
	orchestrator *saga.Orchestrator
	breakers     *resilience.Registry // nil-safe: status endpoint returns an empty list
}

// NewHandler initializes the handler. breakers may be nil when no resilient
// adapters are wired in this process.
func NewHandler(o *saga.Orchestrator, breakers *resilience.Registry) *Handler {
	return &Handler{
		orchestrator: o,
		breakers:     breakers,
	}
}

// StartSaga receives the pedido, persists it in CREADO, and triggers the
// saga. The 202 acknowledges acceptance only; progress is observed via
// GetPedido.
func (h *Handler) StartSaga(w http.ResponseWriter, r *http.Request) {
	var req StartSagaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if req.ClienteID == "" || req.ProductoID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "clienteId and productoId are required")
		return
	}

	requestID := middleware.GetReqID(r.Context())
	slog.InfoContext(r.Context(), "iniciando saga",
		"request_id", requestID, "cliente_id", req.ClienteID, "producto_id", req.ProductoID)

	pedido, err := h.orchestrator.StartSaga(r.Context(), saga.NuevoPedido{
		ClienteID:  req.ClienteID,
		ProductoID: req.ProductoID,
		Cantidad:   req.Cantidad,
		Precio:     req.Precio,
	})
	if err != nil {
		if errors.Is(err, saga.ErrEntradaInvalida) {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "saga_start_error", err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, mapPedidoToResponse(pedido))
}

// GetPedido retrieves the current state of a pedido by its ID.
func (h *Handler) GetPedido(w http.ResponseWriter, r *http.Request) {
	pedidoID := chi.URLParam(r, "id")
	if pedidoID == "" {
		writeError(w, http.StatusBadRequest, "pedido_id_required", "")
		return
	}

	pedido, err := h.orchestrator.GetPedido(r.Context(), pedidoID)
	if err != nil {
		if saga.EsNoEncontrado(err) {
			writeError(w, http.StatusNotFound, "pedido_not_found", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, mapPedidoToResponse(pedido))
}

// The webhook endpoints let external workers report outcomes over HTTP
// instead of the bus. They feed the same orchestrator handlers, so delivery
// through both channels for the same pedido stays a harmless duplicate.

func (h *Handler) InventoryReserved(w http.ResponseWriter, r *http.Request) {
	var req InventoryEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if req.PedidoID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "pedidoId is required")
		return
	}
	h.respondOutcome(w, r, req.PedidoID,
		h.orchestrator.HandleInventoryReserved(r.Context(), req.PedidoID))
}

func (h *Handler) InventoryReservationFailed(w http.ResponseWriter, r *http.Request) {
	var req InventoryEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if req.PedidoID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "pedidoId is required")
		return
	}
	h.respondOutcome(w, r, req.PedidoID,
		h.orchestrator.HandleInventoryReservationFailed(r.Context(), req.PedidoID))
}

func (h *Handler) ShippingGenerated(w http.ResponseWriter, r *http.Request) {
	var req ShippingEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if req.PedidoID == "" || req.ShippingOrderID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "pedidoId and shippingOrderId are required")
		return
	}
	h.respondOutcome(w, r, req.PedidoID,
		h.orchestrator.HandleShippingGenerated(r.Context(), req.PedidoID, req.ShippingOrderID))
}

func (h *Handler) ShippingGenerationFailed(w http.ResponseWriter, r *http.Request) {
	var req ShippingEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if req.PedidoID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "pedidoId is required")
		return
	}
	h.respondOutcome(w, r, req.PedidoID,
		h.orchestrator.HandleShippingGenerationFailed(r.Context(), req.PedidoID))
}

func (h *Handler) NotificationSent(w http.ResponseWriter, r *http.Request) {
	var req NotificationEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if req.PedidoID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "pedidoId is required")
		return
	}
	h.respondOutcome(w, r, req.PedidoID,
		h.orchestrator.HandleNotificationSent(r.Context(), req.PedidoID))
}

// BreakerStatus exposes the current state of every registered circuit breaker.
func (h *Handler) BreakerStatus(w http.ResponseWriter, r *http.Request) {
	resp := BreakerStatusResponse{Breakers: []resilience.Snapshot{}}
	if h.breakers != nil {
		resp.Breakers = h.breakers.Snapshots()
	}
	writeJSON(w, http.StatusOK, resp)
}

// respondOutcome maps a handler result to HTTP. Duplicate deliveries come
// back as nil errors, so they get the same 200 as a first delivery.
func (h *Handler) respondOutcome(w http.ResponseWriter, r *http.Request, pedidoID string, err error) {
	if err != nil {
		if saga.EsNoEncontrado(err) {
			writeError(w, http.StatusNotFound, "pedido_not_found", err.Error())
			return
		}
		slog.ErrorContext(r.Context(), "fallo al procesar webhook",
			"pedido_id", pedidoID, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "event_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, AcceptedResponse{PedidoID: pedidoID, Status: "accepted"})
}

func mapPedidoToResponse(p *saga.Pedido) PedidoResponse {
	return PedidoResponse{
		PedidoID:        p.PedidoID,
		ClienteID:       p.ClienteID,
		ProductoID:      p.ProductoID,
		Cantidad:        p.Cantidad,
		Precio:          p.Precio,
		Total:           p.Total(),
		Estado:          string(p.Estado),
		ShippingOrderID: p.ShippingOrderID,
		FechaCreacion:   p.FechaCreacion,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: msg,
	})
}
