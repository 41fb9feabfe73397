// Package stock provides the stock-reservation capability used by the
// inventory worker: an atomic conditional decrement per product, plus the
// matching release used by saga compensation.
package stock

import (
	"context"
	"errors"
)

var (
	// ErrStockInsuficiente is the terminal-business failure: the requested
	// cantidad exceeds what is available. Not retried.
	ErrStockInsuficiente = errors.New("stock: stock insuficiente")

	// ErrProductoNoExiste marks an unknown productoId.
	ErrProductoNoExiste = errors.New("stock: producto no existe")
)

// Store reserves and releases stock. Reservar must be a single atomic
// conditional decrement so that two concurrent reservations cannot both
// succeed on the last units.
type Store interface {
	Reservar(ctx context.Context, productoID string, cantidad int) error
	Liberar(ctx context.Context, productoID string, cantidad int) error
	Disponible(ctx context.Context, productoID string) (int, error)
}
