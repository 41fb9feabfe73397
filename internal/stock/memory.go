package stock

import (
	"context"
	"fmt"
	"sync"
)

// Memory is an in-memory Store. The mutex makes the check-and-decrement a
// single atomic step, same contract as the Redis script.
type Memory struct {
	mu    sync.Mutex
	stock map[string]int
}

// NewMemory seeds the store with an initial inventory per productoId.
func NewMemory(inicial map[string]int) *Memory {
	s := make(map[string]int, len(inicial))
	for k, v := range inicial {
		s[k] = v
	}
	return &Memory{stock: s}
}

func (m *Memory) Reservar(ctx context.Context, productoID string, cantidad int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	disponible, ok := m.stock[productoID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrProductoNoExiste, productoID)
	}
	if disponible < cantidad {
		return fmt.Errorf("%w: producto %s, disponible %d, solicitado %d",
			ErrStockInsuficiente, productoID, disponible, cantidad)
	}
	m.stock[productoID] = disponible - cantidad
	return nil
}

func (m *Memory) Liberar(ctx context.Context, productoID string, cantidad int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.stock[productoID]; !ok {
		return fmt.Errorf("%w: %s", ErrProductoNoExiste, productoID)
	}
	m.stock[productoID] += cantidad
	return nil
}

func (m *Memory) Disponible(ctx context.Context, productoID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	disponible, ok := m.stock[productoID]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrProductoNoExiste, productoID)
	}
	return disponible, nil
}
