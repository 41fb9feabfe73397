package shipping

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Transportista is the outbound port to the shipping partner that actually
// creates shipping orders. Unlike the cost estimate, order creation has no
// degraded tier: a failure here must surface so the saga can compensate.
type Transportista interface {
	CrearOrden(ctx context.Context, orden OrdenEnvio) (string, error)
}

// TipoEnvioEstandar is the default shipping type when the caller does not
// choose one.
const TipoEnvioEstandar = "ESTANDAR"

// OrdenEnvio is the shipping order request sent to the partner.
type OrdenEnvio struct {
	PedidoID   string  `json:"pedidoId"`
	ProductoID string  `json:"productoId"`
	Cantidad   int     `json:"cantidad"`
	TipoEnvio  string  `json:"tipoEnvio"`
	Costo      float64 `json:"costo,omitempty"`
}

// TransportistaHTTP is the HTTP client to the shipping partner.
type TransportistaHTTP struct {
	baseURL string
	client  *http.Client
}

func NewTransportistaHTTP(baseURL string, timeout time.Duration) *TransportistaHTTP {
	return &TransportistaHTTP{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (t *TransportistaHTTP) CrearOrden(ctx context.Context, orden OrdenEnvio) (string, error) {
	if orden.TipoEnvio == "" {
		orden.TipoEnvio = TipoEnvioEstandar
	}
	body, err := json.Marshal(orden)
	if err != nil {
		return "", fmt.Errorf("shipping: marshal orden %s: %w", orden.PedidoID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		t.baseURL+"/api/shipping/create", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("shipping: construir request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("shipping: crear orden para %s: %w", orden.PedidoID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("shipping: transportista respondio %d para %s", resp.StatusCode, orden.PedidoID)
	}

	var out struct {
		ShippingOrderID string `json:"shippingOrderId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("shipping: decodificar respuesta para %s: %w", orden.PedidoID, err)
	}
	if out.ShippingOrderID == "" {
		return "", fmt.Errorf("shipping: transportista no devolvio shippingOrderId para %s", orden.PedidoID)
	}
	return out.ShippingOrderID, nil
}
