// Package store provides saga.PedidoStore implementations: an in-memory map
// for tests and single-process runs, and a Redis-backed store for
// production, keyed by pedidoId for O(1) lookup.
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/arkalabs/order-sagas/internal/saga"
)

// Memory is a concurrency-safe in-memory PedidoStore.
type Memory struct {
	mu      sync.RWMutex
	pedidos map[string]saga.Pedido
}

func NewMemory() *Memory {
	return &Memory{pedidos: make(map[string]saga.Pedido)}
}

func (m *Memory) Create(ctx context.Context, p *saga.Pedido) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pedidos[p.PedidoID]; ok {
		return fmt.Errorf("store: %w: %s", saga.ErrPedidoYaExiste, p.PedidoID)
	}
	m.pedidos[p.PedidoID] = *p
	return nil
}

func (m *Memory) Get(ctx context.Context, pedidoID string) (*saga.Pedido, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.pedidos[pedidoID]
	if !ok {
		return nil, fmt.Errorf("store: %w: %s", saga.ErrPedidoNoEncontrado, pedidoID)
	}
	// Copy so callers cannot mutate the stored value without Save.
	copia := p
	return &copia, nil
}

func (m *Memory) Save(ctx context.Context, p *saga.Pedido) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pedidos[p.PedidoID]; !ok {
		return fmt.Errorf("store: %w: %s", saga.ErrPedidoNoEncontrado, p.PedidoID)
	}
	m.pedidos[p.PedidoID] = *p
	return nil
}
