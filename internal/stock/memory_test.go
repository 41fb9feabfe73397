package stock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_ReservarYLiberar(t *testing.T) {
	s := NewMemory(map[string]int{"SKU-1": 10})
	ctx := context.Background()

	require.NoError(t, s.Reservar(ctx, "SKU-1", 4))
	disponible, err := s.Disponible(ctx, "SKU-1")
	require.NoError(t, err)
	assert.Equal(t, 6, disponible)

	require.NoError(t, s.Liberar(ctx, "SKU-1", 4))
	disponible, err = s.Disponible(ctx, "SKU-1")
	require.NoError(t, err)
	assert.Equal(t, 10, disponible)
}

func TestMemory_StockInsuficiente(t *testing.T) {
	s := NewMemory(map[string]int{"SKU-1": 3})
	ctx := context.Background()

	err := s.Reservar(ctx, "SKU-1", 5)
	require.ErrorIs(t, err, ErrStockInsuficiente)

	disponible, err := s.Disponible(ctx, "SKU-1")
	require.NoError(t, err)
	assert.Equal(t, 3, disponible, "a rejected reservation must not decrement")
}

func TestMemory_ProductoNoExiste(t *testing.T) {
	s := NewMemory(nil)
	err := s.Reservar(context.Background(), "NO-SUCH", 1)
	require.ErrorIs(t, err, ErrProductoNoExiste)
}

func TestMemory_ReservasConcurrentes(t *testing.T) {
	s := NewMemory(map[string]int{"SKU-1": 5})
	ctx := context.Background()

	var exitos atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Reservar(ctx, "SKU-1", 1); err == nil {
				exitos.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(5), exitos.Load(),
		"exactly five of ten concurrent single-unit reservations may win")
	disponible, err := s.Disponible(ctx, "SKU-1")
	require.NoError(t, err)
	assert.Equal(t, 0, disponible)
}
