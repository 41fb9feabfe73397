package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/arkalabs/order-sagas/internal/saga"
)

// Redis is a PedidoStore backed by Redis. Pedidos are stored as JSON under
// "saga:pedido:<pedidoId>". Sagas reach a terminal state and stay readable;
// retention is an operational concern, so no TTL is set here.
type Redis struct {
	client *redis.Client
}

func NewRedis(addr string) *Redis {
	return &Redis{client: redis.NewClient(&redis.Options{Addr: addr})}
}

// NewRedisWithClient wraps an existing client, e.g. one shared with the
// stock store.
func NewRedisWithClient(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) key(pedidoID string) string {
	return fmt.Sprintf("saga:pedido:%s", pedidoID)
}

func (r *Redis) Create(ctx context.Context, p *saga.Pedido) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("store: marshal pedido %s: %w", p.PedidoID, err)
	}
	// NX so a duplicate startSaga with the same id cannot clobber state.
	ok, err := r.client.SetNX(ctx, r.key(p.PedidoID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("store: create pedido %s: %w", p.PedidoID, err)
	}
	if !ok {
		return fmt.Errorf("store: %w: %s", saga.ErrPedidoYaExiste, p.PedidoID)
	}
	return nil
}

func (r *Redis) Get(ctx context.Context, pedidoID string) (*saga.Pedido, error) {
	data, err := r.client.Get(ctx, r.key(pedidoID)).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("store: %w: %s", saga.ErrPedidoNoEncontrado, pedidoID)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get pedido %s: %w", pedidoID, err)
	}
	var p saga.Pedido
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("store: unmarshal pedido %s: %w", pedidoID, err)
	}
	return &p, nil
}

func (r *Redis) Save(ctx context.Context, p *saga.Pedido) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("store: marshal pedido %s: %w", p.PedidoID, err)
	}
	// XX: Save only overwrites an existing pedido, mirroring Memory.
	ok, err := r.client.SetXX(ctx, r.key(p.PedidoID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("store: save pedido %s: %w", p.PedidoID, err)
	}
	if !ok {
		return fmt.Errorf("store: %w: %s", saga.ErrPedidoNoEncontrado, p.PedidoID)
	}
	return nil
}
