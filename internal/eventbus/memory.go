package eventbus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/arkalabs/order-sagas/internal/saga"
)

// Memory is an in-process Bus. Handlers run synchronously in the
// publisher's goroutine; the asynchrony of the saga comes from the
// orchestrator's fire-and-forget dispatch, not from the bus itself, which
// keeps single-process runs and tests deterministic.
type Memory struct {
	mu      sync.RWMutex
	subs    map[string][]Handler
	stopped atomic.Bool
}

func NewMemory() *Memory {
	return &Memory{subs: make(map[string][]Handler)}
}

func (m *Memory) Publish(ctx context.Context, ev saga.Event) error {
	return m.PublishToTopic(ctx, saga.TopicEventos, ev)
}

func (m *Memory) PublishToTopic(ctx context.Context, topic string, ev saga.Event) error {
	if m.stopped.Load() {
		return fmt.Errorf("eventbus: bus cerrado")
	}

	m.mu.RLock()
	handlers := make([]Handler, len(m.subs[topic]))
	copy(handlers, m.subs[topic])
	m.mu.RUnlock()

	for _, h := range handlers {
		if err := h(ctx, ev); err != nil {
			slog.ErrorContext(ctx, "handler de evento fallo",
				"topic", topic, "event_type", ev.EventType, "saga_id", ev.SagaID, "error", err)
		}
	}
	return nil
}

func (m *Memory) Subscribe(topic string, h Handler) error {
	if m.stopped.Load() {
		return fmt.Errorf("eventbus: bus cerrado")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[topic] = append(m.subs[topic], h)
	return nil
}

func (m *Memory) Close(ctx context.Context) error {
	m.stopped.Store(true)
	return nil
}
