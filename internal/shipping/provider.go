package shipping

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Cotizador is the outbound port to a shipping-cost provider. The network
// tier implements it; the resilient Service guards it.
type Cotizador interface {
	Cotizar(ctx context.Context, origen, destino string, peso float64) (Calculo, error)
}

// ProveedorExterno calls the third-party provider over HTTP.
// Address and credentials are supplied externally; this client only knows
// the base URL.
type ProveedorExterno struct {
	baseURL string
	client  *http.Client
}

func NewProveedorExterno(baseURL string) *ProveedorExterno {
	return &ProveedorExterno{
		baseURL: baseURL,
		// The resilient Service imposes the real per-call deadline through
		// the context; this is only a safety net.
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

type cotizacionRequest struct {
	Origen  string  `json:"origen"`
	Destino string  `json:"destino"`
	Peso    float64 `json:"peso"`
}

type cotizacionResponse struct {
	Costo              float64 `json:"costo"`
	TiempoEstimadoDias int     `json:"tiempoEstimadoDias"`
	Proveedor          string  `json:"proveedor"`
}

func (p *ProveedorExterno) Cotizar(ctx context.Context, origen, destino string, peso float64) (Calculo, error) {
	body, err := json.Marshal(cotizacionRequest{Origen: origen, Destino: destino, Peso: peso})
	if err != nil {
		return Calculo{}, fmt.Errorf("shipping: marshal cotizacion: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/api/calcular-envio", bytes.NewReader(body))
	if err != nil {
		return Calculo{}, fmt.Errorf("shipping: construir request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return Calculo{}, fmt.Errorf("shipping: llamada al proveedor: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return Calculo{}, fmt.Errorf("shipping: proveedor respondio %d", resp.StatusCode)
	}

	var out cotizacionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Calculo{}, fmt.Errorf("shipping: decodificar respuesta: %w", err)
	}

	return Calculo{
		ID:                 uuid.NewString(),
		Origen:             origen,
		Destino:            destino,
		Peso:               peso,
		Costo:              out.Costo,
		TiempoEstimadoDias: out.TiempoEstimadoDias,
		ProveedorUtilizado: out.Proveedor,
		Resultado:          ResultadoSuccess,
		FechaCalculo:       time.Now().UTC(),
	}, nil
}
