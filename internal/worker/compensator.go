package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/arkalabs/order-sagas/internal/saga"
	"github.com/arkalabs/order-sagas/internal/stock"
)

// StockCompensator releases a reserved cantidad back to the stock store. It
// is the inverse of the inventory worker's reservation and runs against the
// same store, so both sides see one consistent count.
type StockCompensator struct {
	stock stock.Store
}

func NewStockCompensator(st stock.Store) *StockCompensator {
	return &StockCompensator{stock: st}
}

func (c *StockCompensator) CompensarInventario(ctx context.Context, p saga.Pedido) error {
	if err := c.stock.Liberar(ctx, p.ProductoID, p.Cantidad); err != nil {
		return fmt.Errorf("worker: liberar stock de %s para pedido %s: %w", p.ProductoID, p.PedidoID, err)
	}
	slog.InfoContext(ctx, "inventario compensado",
		"pedido_id", p.PedidoID,
		"producto_id", p.ProductoID,
		"cantidad", p.Cantidad,
	)
	return nil
}
