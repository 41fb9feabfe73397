package stock

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// reservarScript performs the conditional decrement server-side so the
// check and the decrement are one atomic step even with concurrent workers.
// Returns the remaining stock, -1 for insufficient stock, -2 for an unknown
// product.
var reservarScript = redis.NewScript(`
local disponible = redis.call('GET', KEYS[1])
if not disponible then
  return -2
end
if tonumber(disponible) < tonumber(ARGV[1]) then
  return -1
end
return redis.call('DECRBY', KEYS[1], ARGV[1])
`)

// Redis is a Store backed by Redis, one counter per productoId under
// "stock:<productoId>".
type Redis struct {
	client *redis.Client
}

func NewRedis(addr string) *Redis {
	return &Redis{client: redis.NewClient(&redis.Options{Addr: addr})}
}

func NewRedisWithClient(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) key(productoID string) string {
	return fmt.Sprintf("stock:%s", productoID)
}

// Seed sets the available stock for a product. Intended for bootstrap and
// test environments; production inventory is loaded out of band.
func (r *Redis) Seed(ctx context.Context, productoID string, cantidad int) error {
	if err := r.client.Set(ctx, r.key(productoID), cantidad, 0).Err(); err != nil {
		return fmt.Errorf("stock: seed %s: %w", productoID, err)
	}
	return nil
}

func (r *Redis) Reservar(ctx context.Context, productoID string, cantidad int) error {
	restante, err := reservarScript.Run(ctx, r.client, []string{r.key(productoID)}, cantidad).Int()
	if err != nil {
		return fmt.Errorf("stock: reservar %s: %w", productoID, err)
	}
	switch restante {
	case -2:
		return fmt.Errorf("%w: %s", ErrProductoNoExiste, productoID)
	case -1:
		return fmt.Errorf("%w: producto %s, solicitado %d", ErrStockInsuficiente, productoID, cantidad)
	default:
		return nil
	}
}

func (r *Redis) Liberar(ctx context.Context, productoID string, cantidad int) error {
	if err := r.client.IncrBy(ctx, r.key(productoID), int64(cantidad)).Err(); err != nil {
		return fmt.Errorf("stock: liberar %s: %w", productoID, err)
	}
	return nil
}

func (r *Redis) Disponible(ctx context.Context, productoID string) (int, error) {
	v, err := r.client.Get(ctx, r.key(productoID)).Result()
	if err == redis.Nil {
		return 0, fmt.Errorf("%w: %s", ErrProductoNoExiste, productoID)
	}
	if err != nil {
		return 0, fmt.Errorf("stock: disponible %s: %w", productoID, err)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("stock: disponible %s: valor %q: %w", productoID, v, err)
	}
	return n, nil
}
