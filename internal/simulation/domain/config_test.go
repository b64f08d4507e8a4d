package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulationConfig_Validate(t *testing.T) {
	require.NoError(t, referenceConfig().Validate())

	edge := referenceConfig()
	edge.Rho = -1
	edge.N = 1
	edge.R = -0.01
	require.NoError(t, edge.Validate())

	cases := []struct {
		name  string
		field string
		mut   func(*SimulationConfig)
	}{
		{"nan spot", "s0", func(c *SimulationConfig) { c.S0 = math.NaN() }},
		{"inf rate", "r", func(c *SimulationConfig) { c.R = math.Inf(1) }},
		{"zero strike", "k", func(c *SimulationConfig) { c.K = 0 }},
		{"negative maturity", "t", func(c *SimulationConfig) { c.T = -1 }},
		{"zero v0", "v0", func(c *SimulationConfig) { c.V0 = 0 }},
		{"zero theta", "theta", func(c *SimulationConfig) { c.Theta = 0 }},
		{"zero kappa", "kappa", func(c *SimulationConfig) { c.Kappa = 0 }},
		{"zero xi", "xi", func(c *SimulationConfig) { c.Xi = 0 }},
		{"rho above one", "rho", func(c *SimulationConfig) { c.Rho = 1.5 }},
		{"rho below minus one", "rho", func(c *SimulationConfig) { c.Rho = -1.01 }},
		{"no steps", "n", func(c *SimulationConfig) { c.N = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := referenceConfig()
			tc.mut(&cfg)
			err := cfg.Validate()
			require.ErrorIs(t, err, ErrInvalidConfig)
			var cfgErr *ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tc.field, cfgErr.Field)
		})
	}
}
