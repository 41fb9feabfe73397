package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/arkalabs/order-sagas/internal/eventbus"
	"github.com/arkalabs/order-sagas/internal/httpx"
	"github.com/arkalabs/order-sagas/internal/notify"
	"github.com/arkalabs/order-sagas/internal/pkg/telemetry"
	"github.com/arkalabs/order-sagas/internal/resilience"
	"github.com/arkalabs/order-sagas/internal/saga"
	sagastore "github.com/arkalabs/order-sagas/internal/saga/store"
	sqlitelog "github.com/arkalabs/order-sagas/internal/sagalog/sqlite"
	"github.com/arkalabs/order-sagas/internal/shipping"
	"github.com/arkalabs/order-sagas/internal/stock"
	"github.com/arkalabs/order-sagas/internal/worker"
)

// The orchestrator binary runs in two modes, selected by BUS_MODE:
//
//	memory (default): everything in one process. In-memory bus, stores,
//	and workers. Useful for local runs and demos with zero infrastructure.
//	nats: the orchestrator only. Events travel over NATS, pedido state
//	lives in Redis, and the workers run as separate binaries.
func main() {
	telemetry.InitLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.SetupTracer(ctx, getEnv("OTEL_SERVICE_NAME", "saga-orchestrator"))
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

	registro, err := sqlitelog.Open(getEnv("SAGA_LOG_PATH", "saga_log.db"))
	if err != nil {
		slog.Error("failed to open saga log", "error", err)
		os.Exit(1)
	}
	defer registro.Close()

	var (
		bus     eventbus.Bus
		handler *httpx.Handler
		busMode = getEnv("BUS_MODE", "memory")
	)
	switch busMode {
	case "memory":
		bus, handler, err = buildStandalone(registro)
	case "nats":
		bus, handler, err = buildDistributed(registro)
	default:
		slog.Error("unknown BUS_MODE", "mode", busMode)
		os.Exit(1)
	}
	if err != nil {
		slog.Error("failed to wire components", "mode", busMode, "error", err)
		os.Exit(1)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := bus.Close(closeCtx); err != nil {
			slog.Error("event bus close error", "error", err)
		}
	}()

	addr := ":" + getEnv("PORT", "8080")
	srv := &http.Server{Addr: addr, Handler: httpx.NewRouter(handler)}

	go func() {
		slog.Info("saga orchestrator running", "addr", addr, "bus_mode", busMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}
}

// buildStandalone wires the whole saga into one process: memory bus and
// stores, both workers subscribed in-process, and a local shipping partner.
func buildStandalone(registro *sqlitelog.Repository) (eventbus.Bus, *httpx.Handler, error) {
	bus := eventbus.NewMemory()
	pedidos := sagastore.NewMemory()
	existencias := stock.NewMemory(parseStockSeed(getEnv("STOCK_SEED", "SKU-1:10,SKU-2:5")))

	registry := resilience.NewRegistry(
		resilience.DefaultConfig(),
		resilience.WithStateChange(publishBreakerChange(bus)),
	)

	proveedor := shipping.NewProveedorExterno(getEnv("SHIPPING_PROVIDER_URL", "http://localhost:9095"))
	cotizador := shipping.NewService(
		proveedor,
		shipping.NewSimuladorLocal(),
		registry.Get("shipping-provider"),
		shipping.DefaultServiceConfig(),
	)

	var transportista shipping.Transportista = shipping.NewTransportistaLocal()
	if url := os.Getenv("SHIPPING_PARTNER_URL"); url != "" {
		transportista = shipping.NewTransportistaHTTP(url, 5*time.Second)
	}

	orchestrator := saga.NewOrchestrator(pedidos, bus,
		saga.WithNotifier(notify.NewLogNotifier(bus)),
		saga.WithCompensador(worker.NewStockCompensator(existencias)),
		saga.WithRegistro(registro),
	)

	inventario := worker.NewInventory(existencias, bus)
	envios := worker.NewShipping(cotizador, transportista, bus, worker.DefaultShippingConfig())

	if err := bus.Subscribe(saga.TopicInventario, inventario.HandleEvent); err != nil {
		return nil, nil, err
	}
	if err := bus.Subscribe(saga.TopicEnvios, envios.HandleEvent); err != nil {
		return nil, nil, err
	}
	if err := bus.Subscribe(saga.TopicEventos, orchestrator.HandleEvent); err != nil {
		return nil, nil, err
	}

	return bus, httpx.NewHandler(orchestrator, registry), nil
}

// buildDistributed wires only the orchestrator. Workers run as their own
// binaries and share Redis for stock, so compensation releases against the
// same counters the inventory worker decrements.
func buildDistributed(registro *sqlitelog.Repository) (eventbus.Bus, *httpx.Handler, error) {
	cfg := eventbus.DefaultNATSConfig()
	cfg.URL = getEnv("NATS_URL", cfg.URL)
	cfg.Name = "saga-orchestrator"
	cfg.Queue = "orchestrator"

	bus, err := eventbus.ConnectNATS(cfg)
	if err != nil {
		return nil, nil, err
	}

	redisAddr := getEnv("REDIS_ADDR", "localhost:6379")
	pedidos := sagastore.NewRedis(redisAddr)
	existencias := stock.NewRedis(redisAddr)

	orchestrator := saga.NewOrchestrator(pedidos, bus,
		saga.WithNotifier(notify.NewLogNotifier(bus)),
		saga.WithCompensador(worker.NewStockCompensator(existencias)),
		saga.WithRegistro(registro),
	)

	if err := bus.Subscribe(saga.TopicEventos, orchestrator.HandleEvent); err != nil {
		return nil, nil, err
	}

	// Breaker snapshots live in the shipping worker in this mode; the
	// status endpoint reports an empty list here.
	return bus, httpx.NewHandler(orchestrator, nil), nil
}

// publishBreakerChange reports breaker transitions on the monitoring topic.
func publishBreakerChange(bus saga.EventBus) resilience.StateChange {
	return func(name string, from, to resilience.State) {
		ev, err := saga.NewEvent("", saga.EventBreakerStateChanged, "shipping-service", saga.BreakerPayload{
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
	}
}

// parseStockSeed parses "SKU-1:10,SKU-2:5" into initial stock counts.
func parseStockSeed(s string) map[string]int {
	out := make(map[string]int)
	for _, pair := range strings.Split(s, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), ":", 2)
		if len(parts) != 2 {
			continue
		}
		n, err := strconv.Atoi(parts[1])
		if err != nil || n < 0 {
			continue
		}
		out[parts[0]] = n
	}
	return out
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
