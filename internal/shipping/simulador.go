package shipping

// Simulador is the secondary internal calculation path. The default
// implementation is deterministic and local; a remote simulation service can
// stand behind the same interface, which is why Calcular may fail.
type Simulador interface {
	Calcular(origen, destino string, peso float64) (costo float64, dias int, err error)
}

// SimuladorLocal computes the estimate with the in-house tariff:
//
//	costo = (baseCost + peso × perKgCost) × distanceMultiplier
//
// where the multiplier is 1.0 for a same-city shipment and 1.5 otherwise.
// Estimated days: 1 for same city, 3 when both cities are domestic, 7 for
// anything else.
type SimuladorLocal struct {
	BaseCost   float64
	PerKgCost  float64
	Domesticas map[string]bool
}

// NewSimuladorLocal returns the tariff used when the external provider is
// unavailable.
func NewSimuladorLocal() *SimuladorLocal {
	return &SimuladorLocal{
		BaseCost:  10.0,
		PerKgCost: 5.0,
		Domesticas: map[string]bool{
			"BOG": true,
			"MED": true,
			"CALI": true,
			"BAQ": true,
		},
	}
}

func (s *SimuladorLocal) Calcular(origen, destino string, peso float64) (float64, int, error) {
	multiplicador := 1.5
	if origen == destino {
		multiplicador = 1.0
	}
	costo := (s.BaseCost + peso*s.PerKgCost) * multiplicador

	dias := 7
	switch {
	case origen == destino:
		dias = 1
	case s.Domesticas[origen] && s.Domesticas[destino]:
		dias = 3
	}
	return costo, dias, nil
}
