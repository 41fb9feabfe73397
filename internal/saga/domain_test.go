package saga

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCrearPedido(t *testing.T) {
	p, err := CrearPedido(NuevoPedido{
		ClienteID:  "CLI-1",
		ProductoID: "SKU-1",
		Cantidad:   2,
		Precio:     29.99,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, p.PedidoID)
	assert.Equal(t, EstadoCreado, p.Estado)
	assert.InDelta(t, 59.98, p.Total(), 0.001)
	assert.False(t, p.FechaCreacion.IsZero())
}

func TestCrearPedido_EntradaInvalida(t *testing.T) {
	tests := []struct {
		name     string
		cantidad int
		precio   float64
	}{
		{"cantidad cero", 0, 10.0},
		{"cantidad negativa", -1, 10.0},
		{"precio cero", 1, 0},
		{"precio negativo", 1, -5.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CrearPedido(NuevoPedido{
				ClienteID:  "CLI-1",
				ProductoID: "SKU-1",
				Cantidad:   tt.cantidad,
				Precio:     tt.precio,
			})
			require.ErrorIs(t, err, ErrEntradaInvalida)
		})
	}
}

func TestTransicionar_CaminoFeliz(t *testing.T) {
	p := &Pedido{PedidoID: "p1", Estado: EstadoCreado}

	for _, destino := range []Estado{
		EstadoInventarioReservado,
		EstadoEnvioGenerado,
		EstadoNotificacionEnviada,
		EstadoCompletado,
	} {
		require.NoError(t, p.Transicionar(destino))
		assert.Equal(t, destino, p.Estado)
	}
	assert.True(t, p.Estado.Terminal())
}

func TestTransicionar_CaminoCompensacion(t *testing.T) {
	p := &Pedido{PedidoID: "p1", Estado: EstadoInventarioReservado}

	require.NoError(t, p.Transicionar(EstadoEnvioFallido))
	require.NoError(t, p.Transicionar(EstadoCompensado))
	require.NoError(t, p.Transicionar(EstadoFallido))
	assert.True(t, p.Estado.Terminal())
}

func TestTransicionar_Invalida(t *testing.T) {
	tests := []struct {
		de Estado
		a  Estado
	}{
		{EstadoCreado, EstadoEnvioGenerado},
		{EstadoCreado, EstadoCompletado},
		{EstadoInventarioReservado, EstadoCreado},
		{EstadoCompletado, EstadoFallido},
		{EstadoFallido, EstadoCreado},
		{EstadoEnvioGenerado, EstadoCompletado},
	}
	for _, tt := range tests {
		p := &Pedido{PedidoID: "p1", Estado: tt.de}
		err := p.Transicionar(tt.a)
		require.ErrorIs(t, err, ErrTransicionInvalida, "%s -> %s", tt.de, tt.a)
		assert.Equal(t, tt.de, p.Estado, "estado must not change on a rejected transition")
	}
}

func TestEstadosTerminales(t *testing.T) {
	for _, e := range []Estado{EstadoCompletado, EstadoFallido} {
		assert.True(t, e.Terminal(), "%s", e)
	}
	for _, e := range []Estado{
		EstadoCreado, EstadoInventarioReservado, EstadoEnvioGenerado,
		EstadoNotificacionEnviada, EstadoInventarioFallido,
		EstadoEnvioFallido, EstadoCompensado,
	} {
		assert.False(t, e.Terminal(), "%s", e)
	}
}
