package config

import (
	"github.com/iwvelando/fleet-optimizer/internal/costmodel"
	"github.com/iwvelando/fleet-optimizer/internal/fleet"
	"github.com/iwvelando/fleet-optimizer/internal/solver"
)

// Params converts the optimization section to selection requirements.
func (c *Configuration) Params() fleet.Params {
	return fleet.Params{
		MinCapacity:         c.Optimization.MinCapacity,
		MinAvgSafety:        c.Optimization.MinAvgSafety,
		RequireAllFuelTypes: c.Optimization.RequireAllFuelTypes,
	}
}

// SolverOptions converts the solver section to solver limits.
func (c *Configuration) SolverOptions() solver.Options {
	return solver.Options{
		TimeLimit: c.Solver.TimeLimit,
		NodeLimit: c.Solver.NodeLimit,
	}
}

// CostModel builds the cost recomputation from the sensitivity section.
func (c *Configuration) CostModel() (*costmodel.Model, error) {
	adj, err := c.Sensitivity.Adjustments()
	if err != nil {
		return nil, err
	}
	m := costmodel.New(adj)
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Betas returns the temperatures of every robustness chain: the primary beta
// first, followed by any additional betas.
func (c *Configuration) Betas() []float64 {
	out := make([]float64, 0, 1+len(c.MCMC.Betas))
	out = append(out, c.MCMC.Beta)
	return append(out, c.MCMC.Betas...)
}
