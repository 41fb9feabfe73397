// Package saga contains the order saga: the pedido aggregate, its state
// machine, the event schema, and the orchestrator that drives a pedido from
// CREADO to a terminal state by reacting to worker outcome events.
package saga

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Estado is the lifecycle state of a pedido inside the saga.
type Estado string

const (
	EstadoCreado              Estado = "CREADO"
	EstadoInventarioReservado Estado = "INVENTARIO_RESERVADO"
	EstadoInventarioFallido   Estado = "INVENTARIO_FALLIDO"
	EstadoEnvioGenerado       Estado = "ENVIO_GENERADO"
	EstadoEnvioFallido        Estado = "ENVIO_FALLIDO"
	EstadoNotificacionEnviada Estado = "NOTIFICACION_ENVIADA"
	EstadoCompletado          Estado = "COMPLETADO"
	EstadoCompensado          Estado = "COMPENSADO"
	EstadoFallido             Estado = "FALLIDO"
)

// transiciones is the closed transition table. A state not present as a key
// is terminal. The table only ever moves forward; there is no way back to an
// earlier state, which is what makes duplicate event deliveries safe to drop.
var transiciones = map[Estado][]Estado{
	EstadoCreado:              {EstadoInventarioReservado, EstadoInventarioFallido},
	EstadoInventarioReservado: {EstadoEnvioGenerado, EstadoEnvioFallido},
	EstadoEnvioGenerado:       {EstadoNotificacionEnviada},
	EstadoNotificacionEnviada: {EstadoCompletado},
	EstadoInventarioFallido:   {EstadoFallido},
	EstadoEnvioFallido:        {EstadoCompensado, EstadoFallido},
	EstadoCompensado:          {EstadoFallido},
}

// Terminal reports whether no further transition is accepted from e.
func (e Estado) Terminal() bool {
	return len(transiciones[e]) == 0
}

// PuedeTransicionar reports whether the table allows e -> destino.
func (e Estado) PuedeTransicionar(destino Estado) bool {
	for _, d := range transiciones[e] {
		if d == destino {
			return true
		}
	}
	return false
}

var (
	// ErrEntradaInvalida rejects a pedido before any state is created.
	ErrEntradaInvalida = errors.New("saga: entrada invalida")

	// ErrPedidoNoEncontrado is returned by handlers and stores for an
	// unknown pedidoId.
	ErrPedidoNoEncontrado = errors.New("saga: pedido no encontrado")

	// ErrTransicionInvalida is returned by Transicionar when the transition
	// table forbids the move. Handlers translate it into a duplicate no-op.
	ErrTransicionInvalida = errors.New("saga: transicion invalida")

	// ErrPedidoYaExiste is returned by stores on a duplicate Create.
	ErrPedidoYaExiste = errors.New("saga: pedido ya existe")
)

// NuevoPedido carries the caller-supplied fields for StartSaga.
type NuevoPedido struct {
	ClienteID  string  `json:"clienteId"`
	ProductoID string  `json:"productoId"`
	Cantidad   int     `json:"cantidad"`
	Precio     float64 `json:"precio"`
}

// Pedido is the order aggregate owned by the orchestrator. Estado is mutated
// only through Transicionar, and only by the orchestrator while it holds the
// per-pedido lock.
type Pedido struct {
	PedidoID        string    `json:"pedidoId"`
	ClienteID       string    `json:"clienteId"`
	ProductoID      string    `json:"productoId"`
	Cantidad        int       `json:"cantidad"`
	Precio          float64   `json:"precio"`
	FechaCreacion   time.Time `json:"fechaCreacion"`
	Estado          Estado    `json:"estado"`
	ShippingOrderID string    `json:"shippingOrderId,omitempty"`
}

// CrearPedido validates the input and builds a pedido in CREADO.
func CrearPedido(n NuevoPedido) (*Pedido, error) {
	if n.Cantidad <= 0 {
		return nil, fmt.Errorf("%w: cantidad debe ser positiva, recibido %d", ErrEntradaInvalida, n.Cantidad)
	}
	if n.Precio <= 0 {
		return nil, fmt.Errorf("%w: precio debe ser positivo, recibido %v", ErrEntradaInvalida, n.Precio)
	}
	return &Pedido{
		PedidoID:      uuid.NewString(),
		ClienteID:     n.ClienteID,
		ProductoID:    n.ProductoID,
		Cantidad:      n.Cantidad,
		Precio:        n.Precio,
		FechaCreacion: time.Now().UTC(),
		Estado:        EstadoCreado,
	}, nil
}

// Transicionar moves the pedido to destino if the transition table allows it.
func (p *Pedido) Transicionar(destino Estado) error {
	if !p.Estado.PuedeTransicionar(destino) {
		return fmt.Errorf("%w: %s -> %s (pedido %s)", ErrTransicionInvalida, p.Estado, destino, p.PedidoID)
	}
	p.Estado = destino
	return nil
}

// Total derives the order total. It is never stored, so it cannot drift from
// precio and cantidad.
func (p *Pedido) Total() float64 {
	return p.Precio * float64(p.Cantidad)
}
