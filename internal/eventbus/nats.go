package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/arkalabs/order-sagas/internal/saga"
)

// NATSConfig holds the connection settings for the NATS adapter.
type NATSConfig struct {
	URL           string
	Name          string
	MaxReconnects int
	ReconnectWait time.Duration
	ConnectWait   time.Duration
	DrainTimeout  time.Duration

	// Queue makes subscriptions queue subscriptions, so multiple instances
	// of the same worker share deliveries instead of all receiving them.
	Queue string
}

// DefaultNATSConfig returns the settings used in local deployments.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           "nats://localhost:4222",
		MaxReconnects: 10,
		ReconnectWait: 2 * time.Second,
		ConnectWait:   5 * time.Second,
		DrainTimeout:  30 * time.Second,
	}
}

// Validate checks the configuration before connecting.
func (c NATSConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("eventbus: NATS URL vacia")
	}
	if !strings.HasPrefix(c.URL, "nats://") && !strings.HasPrefix(c.URL, "tls://") {
		return fmt.Errorf("eventbus: NATS URL debe empezar con nats:// o tls://: %q", c.URL)
	}
	return nil
}

// NATS is a Bus backed by a NATS connection. Events travel as JSON; topic
// names map directly to NATS subjects. Redelivery and durability are broker
// configuration, not adapter logic.
type NATS struct {
	cfg  NATSConfig
	conn *nats.Conn
	mu   sync.Mutex
	subs []*nats.Subscription
}

// ConnectNATS dials the broker and returns the adapter.
func ConnectNATS(cfg NATSConfig) (*NATS, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	conn, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.ConnectWait),
	)
	if err != nil {
		return nil, fmt.Errorf("eventbus: conectar a NATS %s: %w", cfg.URL, err)
	}
	return &NATS{cfg: cfg, conn: conn}, nil
}

func (n *NATS) Publish(ctx context.Context, ev saga.Event) error {
	return n.PublishToTopic(ctx, saga.TopicEventos, ev)
}

func (n *NATS) PublishToTopic(ctx context.Context, topic string, ev saga.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("eventbus: marshal evento %s: %w", ev.EventID, err)
	}
	if err := n.conn.Publish(topic, data); err != nil {
		return fmt.Errorf("eventbus: publicar en %s: %w", topic, err)
	}
	return nil
}

func (n *NATS) Subscribe(topic string, h Handler) error {
	cb := func(msg *nats.Msg) {
		var ev saga.Event
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			slog.Error("mensaje NATS invalido descartado", "topic", topic, "error", err)
			return
		}
		if err := h(context.Background(), ev); err != nil {
			slog.Error("handler de evento fallo",
				"topic", topic, "event_type", ev.EventType, "saga_id", ev.SagaID, "error", err)
		}
	}

	var sub *nats.Subscription
	var err error
	if n.cfg.Queue != "" {
		sub, err = n.conn.QueueSubscribe(topic, n.cfg.Queue, cb)
	} else {
		sub, err = n.conn.Subscribe(topic, cb)
	}
	if err != nil {
		return fmt.Errorf("eventbus: suscribir a %s: %w", topic, err)
	}

	n.mu.Lock()
	n.subs = append(n.subs, sub)
	n.mu.Unlock()
	return nil
}

// Close drains pending deliveries and closes the connection.
func (n *NATS) Close(ctx context.Context) error {
	done := make(chan error, 1)
	go func() { done <- n.conn.Drain() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		n.conn.Close()
		return ctx.Err()
	case <-time.After(n.cfg.DrainTimeout):
		n.conn.Close()
		return fmt.Errorf("eventbus: timeout en drain de NATS")
	}
}
