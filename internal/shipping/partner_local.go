package shipping

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// TransportistaLocal keeps shipping orders in memory. It backs standalone
// deployments and tests; every created order is retrievable, so a returned
// id always refers to a real order.
type TransportistaLocal struct {
	mu      sync.RWMutex
	ordenes map[string]OrdenEnvio
}

func NewTransportistaLocal() *TransportistaLocal {
	return &TransportistaLocal{ordenes: make(map[string]OrdenEnvio)}
}

func (t *TransportistaLocal) CrearOrden(ctx context.Context, orden OrdenEnvio) (string, error) {
	if orden.TipoEnvio == "" {
		orden.TipoEnvio = TipoEnvioEstandar
	}
	id := "SHIP-" + uuid.NewString()

	t.mu.Lock()
	t.ordenes[id] = orden
	t.mu.Unlock()
	return id, nil
}

// Orden returns a stored order by its id.
func (t *TransportistaLocal) Orden(id string) (OrdenEnvio, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	o, ok := t.ordenes[id]
	return o, ok
}
