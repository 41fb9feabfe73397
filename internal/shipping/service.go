package shipping

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/arkalabs/order-sagas/internal/resilience"
)

// Default tier-3 values: deliberately conservative so a degraded quote never
// undercharges.
const (
	costoEmergencia = 75.0
	diasEmergencia  = 10

	proveedorSimulado   = "SIMULACION_INTERNA"
	proveedorEmergencia = "VALORES_EMERGENCIA"
)

// ServiceConfig tunes the resilience pipeline around the provider call.
type ServiceConfig struct {
	// CallTimeout is the hard per-call budget across all retry attempts.
	CallTimeout time.Duration
	// MaxRetries is the number of additional attempts after the first.
	MaxRetries uint64
	// RetryInitialInterval seeds the exponential backoff between attempts.
	RetryInitialInterval time.Duration
}

func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		CallTimeout:          3 * time.Second,
		MaxRetries:           2,
		RetryInitialInterval: 200 * time.Millisecond,
	}
}

// Service is the resilient adapter in front of the shipping-cost provider.
//
// Pipeline, outer to inner: circuit breaker -> time limiter -> bounded retry
// -> network call. On breaker-open, retry exhaustion, or timeout the
// internal simulation answers (tagged FALLBACK); if the simulation is also
// unavailable, fixed emergency values answer (tagged EMERGENCY).
type Service struct {
	proveedor Cotizador
	simulador Simulador
	breaker   *resilience.Breaker
	cfg       ServiceConfig
}

func NewService(proveedor Cotizador, simulador Simulador, breaker *resilience.Breaker, cfg ServiceConfig) *Service {
	if cfg.CallTimeout <= 0 {
		cfg = DefaultServiceConfig()
	}
	return &Service{
		proveedor: proveedor,
		simulador: simulador,
		breaker:   breaker,
		cfg:       cfg,
	}
}

// CalcularEnvio produces an estimate. It never returns an error: a degraded
// outcome is expressed through Calculo.Resultado instead.
func (s *Service) CalcularEnvio(ctx context.Context, origen, destino string, peso float64) Calculo {
	if s.breaker.Allow() {
		calculo, err := s.cotizarConReintentos(ctx, origen, destino, peso)
		if err == nil {
			s.breaker.RecordSuccess()
			return calculo
		}
		s.breaker.RecordFailure()
		slog.WarnContext(ctx, "proveedor externo no disponible, usando simulacion interna",
			"origen", origen, "destino", destino, "error", err)
	} else {
		slog.WarnContext(ctx, "circuit breaker abierto, usando simulacion interna",
			"breaker", s.breaker.Name(), "origen", origen, "destino", destino)
	}

	// Tier 2: the simulation shares the breaker accounting, so a failing
	// simulation backend keeps the breaker open instead of hiding it.
	costo, dias, err := s.simulador.Calcular(origen, destino, peso)
	if err != nil {
		s.breaker.RecordFailure()
		slog.ErrorContext(ctx, "simulacion interna tambien fallo, usando valores de emergencia",
			"origen", origen, "destino", destino, "error", err)
		return s.emergencia(origen, destino, peso)
	}

	return Calculo{
		ID:                 uuid.NewString(),
		Origen:             origen,
		Destino:            destino,
		Peso:               peso,
		Costo:              costo,
		TiempoEstimadoDias: dias,
		ProveedorUtilizado: proveedorSimulado,
		Resultado:          ResultadoFallback,
		FechaCalculo:       time.Now().UTC(),
	}
}

// cotizarConReintentos applies the time limiter and the bounded retry around
// the network call. The context deadline covers the whole attempt series,
// so a hung provider cannot hold the saga past CallTimeout.
func (s *Service) cotizarConReintentos(ctx context.Context, origen, destino string, peso float64) (Calculo, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	defer cancel()

	politica := backoff.NewExponentialBackOff()
	politica.InitialInterval = s.cfg.RetryInitialInterval

	return backoff.RetryWithData(func() (Calculo, error) {
		return s.proveedor.Cotizar(ctx, origen, destino, peso)
	}, backoff.WithContext(backoff.WithMaxRetries(politica, s.cfg.MaxRetries), ctx))
}

func (s *Service) emergencia(origen, destino string, peso float64) Calculo {
	return Calculo{
		ID:                 uuid.NewString(),
		Origen:             origen,
		Destino:            destino,
		Peso:               peso,
		Costo:              costoEmergencia,
		TiempoEstimadoDias: diasEmergencia,
		ProveedorUtilizado: proveedorEmergencia,
		Resultado:          ResultadoEmergency,
		FechaCalculo:       time.Now().UTC(),
	}
}
