package shipping

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransportistaLocal(t *testing.T) {
	tr := NewTransportistaLocal()

	id, err := tr.CrearOrden(context.Background(), OrdenEnvio{
		PedidoID:   "p1",
		ProductoID: "SKU-1",
		Cantidad:   2,
		Costo:      30.0,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	orden, ok := tr.Orden(id)
	require.True(t, ok, "a returned id must refer to a stored order")
	assert.Equal(t, "p1", orden.PedidoID)
	assert.Equal(t, TipoEnvioEstandar, orden.TipoEnvio)
}

func TestTransportistaHTTP_CrearOrden(t *testing.T) {
	var recibido OrdenEnvio
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/shipping/create", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&recibido))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"shippingOrderId": "SHIP-42"})
	}))
	defer srv.Close()

	tr := NewTransportistaHTTP(srv.URL, time.Second)
	id, err := tr.CrearOrden(context.Background(), OrdenEnvio{
		PedidoID:   "p1",
		ProductoID: "SKU-1",
		Cantidad:   2,
	})
	require.NoError(t, err)
	assert.Equal(t, "SHIP-42", id)
	assert.Equal(t, TipoEnvioEstandar, recibido.TipoEnvio)
}

func TestTransportistaHTTP_ErrorDelSocio(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	tr := NewTransportistaHTTP(srv.URL, time.Second)
	_, err := tr.CrearOrden(context.Background(), OrdenEnvio{PedidoID: "p1"})
	require.Error(t, err, "a partner failure must surface, never a fabricated id")
}
