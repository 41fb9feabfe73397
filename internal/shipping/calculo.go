// Package shipping produces shipping cost/time estimates while bounding
// tail latency: an unreliable external provider is wrapped in circuit
// breaker + per-call timeout + bounded retry, with a deterministic internal
// simulation and a fixed emergency tier behind it. CalcularEnvio never
// returns an error; every outcome is SUCCESS, FALLBACK, or EMERGENCY.
package shipping

import "time"

// Resultado classifies how a calculation was produced. A degraded result is
// always tagged; it is never silently presented as SUCCESS.
type Resultado string

const (
	// ResultadoSuccess: the external provider answered.
	ResultadoSuccess Resultado = "SUCCESS"
	// ResultadoFallback: the internal simulation computed the estimate.
	ResultadoFallback Resultado = "FALLBACK"
	// ResultadoEmergency: even the simulation was unavailable; conservative
	// fixed values were returned.
	ResultadoEmergency Resultado = "EMERGENCY"
)

// Calculo is a shipping cost/time estimate.
type Calculo struct {
	ID                 string    `json:"id"`
	Origen             string    `json:"origen"`
	Destino            string    `json:"destino"`
	Peso               float64   `json:"peso"`
	Costo              float64   `json:"costo"`
	TiempoEstimadoDias int       `json:"tiempoEstimadoDias"`
	ProveedorUtilizado string    `json:"proveedorUtilizado"`
	Resultado          Resultado `json:"resultado"`
	FechaCalculo       time.Time `json:"fechaCalculo"`
}
