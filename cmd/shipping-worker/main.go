package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arkalabs/order-sagas/internal/eventbus"
	"github.com/arkalabs/order-sagas/internal/pkg/telemetry"
	"github.com/arkalabs/order-sagas/internal/resilience"
	"github.com/arkalabs/order-sagas/internal/saga"
	"github.com/arkalabs/order-sagas/internal/shipping"
	"github.com/arkalabs/order-sagas/internal/worker"
)

func main() {
	telemetry.InitLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.SetupTracer(ctx, getEnv("OTEL_SERVICE_NAME", "shipping-worker"))
	if err != nil {
		slog.Error("failed to initialise tracer", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			slog.Error("tracer shutdown error", "error", err)
		}
	}()

	cfg := eventbus.DefaultNATSConfig()
	cfg.URL = getEnv("NATS_URL", cfg.URL)
	cfg.Name = "shipping-worker"
	cfg.Queue = "shipping-workers"

	bus, err := eventbus.ConnectNATS(cfg)
	if err != nil {
		slog.Error("failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := bus.Close(closeCtx); err != nil {
			slog.Error("event bus close error", "error", err)
		}
	}()

	registry := resilience.NewRegistry(
		resilience.DefaultConfig(),
		resilience.WithStateChange(func(name string, from, to resilience.State) {
			slog.Warn("circuit breaker state change",
				"breaker", name, "from", from.String(), "to", to.String())
			ev, err := saga.NewEvent("", saga.EventBreakerStateChanged, "shipping-worker", saga.BreakerPayload{
				Breaker: name,
				From:    from.String(),
				To:      to.String(),
			})
			if err != nil {
				return
			}
			if err := bus.PublishToTopic(context.Background(), saga.TopicBreaker, ev); err != nil {
				slog.Error("failed to publish breaker state change", "breaker", name, "error", err)
			}
		}),
	)

	cotizador := shipping.NewService(
		shipping.NewProveedorExterno(getEnv("SHIPPING_PROVIDER_URL", "http://localhost:9095")),
		shipping.NewSimuladorLocal(),
		registry.Get("shipping-provider"),
		shipping.DefaultServiceConfig(),
	)

	var transportista shipping.Transportista = shipping.NewTransportistaLocal()
	if url := os.Getenv("SHIPPING_PARTNER_URL"); url != "" {
		transportista = shipping.NewTransportistaHTTP(url, 5*time.Second)
	}

	envios := worker.NewShipping(cotizador, transportista, bus, worker.ShippingConfig{
		Origen:         getEnv("SHIPPING_ORIGIN", "BOG"),
		DestinoDefault: getEnv("SHIPPING_DEST_DEFAULT", "MED"),
		PesoUnitarioKg: 1.0,
	})
	if err := bus.Subscribe(saga.TopicEnvios, envios.HandleEvent); err != nil {
		slog.Error("failed to subscribe", "topic", saga.TopicEnvios, "error", err)
		os.Exit(1)
	}

	slog.Info("shipping worker running",
		"topic", saga.TopicEnvios, "queue", cfg.Queue)
	<-ctx.Done()
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
