package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/arkalabs/order-sagas/internal/httpx/middlewares"
)

func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middlewares.AttachRequestMetadata)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/saga/start", handler.StartSaga)
		r.Get("/saga/{id}", handler.GetPedido)

		r.Route("/saga/events", func(r chi.Router) {
			r.Post("/inventory-reserved", handler.InventoryReserved)
			r.Post("/inventory-reservation-failed", handler.InventoryReservationFailed)
			r.Post("/shipping-generated", handler.ShippingGenerated)
			r.Post("/shipping-generation-failed", handler.ShippingGenerationFailed)
			r.Post("/notification-sent", handler.NotificationSent)
		})

		r.Get("/circuit-breaker/status", handler.BreakerStatus)
	})
	return r
}
