package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/arkalabs/order-sagas/internal/eventbus"
	"github.com/arkalabs/order-sagas/internal/pkg/telemetry"
	"github.com/arkalabs/order-sagas/internal/saga"
	"github.com/arkalabs/order-sagas/internal/stock"
	"github.com/arkalabs/order-sagas/internal/worker"
)

func main() {
	telemetry.InitLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.SetupTracer(ctx, getEnv("OTEL_SERVICE_NAME", "inventory-worker"))
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
	cfg.Name = "inventory-worker"
	cfg.Queue = "inventory-workers"

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

	existencias := stock.NewRedis(getEnv("REDIS_ADDR", "localhost:6379"))
	seedStock(ctx, existencias, os.Getenv("STOCK_SEED"))

	inventario := worker.NewInventory(existencias, bus)
	if err := bus.Subscribe(saga.TopicInventario, inventario.HandleEvent); err != nil {
		slog.Error("failed to subscribe", "topic", saga.TopicInventario, "error", err)
		os.Exit(1)
	}

	slog.Info("inventory worker running",
		"topic", saga.TopicInventario, "queue", cfg.Queue)
	<-ctx.Done()
}

// seedStock loads "SKU-1:10,SKU-2:5" into Redis. Empty input seeds nothing,
// which is the normal case when stock is managed externally.
func seedStock(ctx context.Context, existencias *stock.Redis, seed string) {
	if seed == "" {
		return
	}
	for _, pair := range strings.Split(seed, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), ":", 2)
		if len(parts) != 2 {
			continue
		}
		n, err := strconv.Atoi(parts[1])
		if err != nil || n < 0 {
			continue
		}
		if err := existencias.Seed(ctx, parts[0], n); err != nil {
			slog.Error("failed to seed stock", "producto_id", parts[0], "error", err)
		}
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
