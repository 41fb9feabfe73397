package shipping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimuladorLocal(t *testing.T) {
	s := NewSimuladorLocal()

	tests := []struct {
		name    string
		origen  string
		destino string
		peso    float64
		costo   float64
		dias    int
	}{
		{"misma ciudad", "BOG", "BOG", 2.0, 20.0, 1},
		{"dos ciudades nacionales", "BOG", "MED", 2.0, 30.0, 3},
		{"destino internacional", "BOG", "MIA", 2.0, 30.0, 7},
		{"origen internacional", "MIA", "BOG", 2.0, 30.0, 7},
		{"peso cero", "BOG", "MED", 0, 15.0, 3},
		{"peso alto", "CALI", "BAQ", 10.0, 90.0, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			costo, dias, err := s.Calcular(tt.origen, tt.destino, tt.peso)
			require.NoError(t, err)
			assert.InDelta(t, tt.costo, costo, 0.001)
			assert.Equal(t, tt.dias, dias)
		})
	}
}
