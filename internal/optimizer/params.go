package optimizer

import (
	"github.com/iwvelando/fleet-optimizer/internal/fleet"
)

// RunParams records the inputs of an archived stage.
type RunParams struct {
	Analysis         string             `json:"analysis"`
	VesselCount      int                `json:"vessel_count"`
	Params           fleet.Params       `json:"params"`
	SafetyMin        *float64           `json:"safety_min,omitempty"`
	SafetyMax        *float64           `json:"safety_max,omitempty"`
	Step             *float64           `json:"step,omitempty"`
	CarbonPrices     []float64          `json:"carbon_prices,omitempty"`
	SafetyThresholds []float64          `json:"safety_thresholds,omitempty"`
	Adjustments      map[string]float64 `json:"safety_adjustments,omitempty"`
	Permutations     int                `json:"permutations,omitempty"`
	Iterations       int                `json:"iterations,omitempty"`
	Betas            []float64          `json:"betas,omitempty"`
	Seed             *int64             `json:"seed,omitempty"`
}

func (r *Runner) paramsFor(analysis string, t *fleet.Table) RunParams {
	c := r.conf
	p := RunParams{
		Analysis:    analysis,
		VesselCount: t.Len(),
		Params:      c.Params(),
	}
	switch analysis {
	case AnalysisPareto:
		p.Params.MinAvgSafety = 0
		p.Params.RequireAllFuelTypes = true
		p.SafetyMin, p.SafetyMax, p.Step = &c.Pareto.SafetyMin, &c.Pareto.SafetyMax, &c.Pareto.Step
	case AnalysisCarbon:
		p.CarbonPrices = c.Sensitivity.CarbonPrices
		p.Adjustments = c.Sensitivity.SafetyAdjustments
	case AnalysisHeatmap:
		p.CarbonPrices = c.Sensitivity.CarbonPrices
		p.SafetyThresholds = c.Sensitivity.SafetyThresholds
		p.Adjustments = c.Sensitivity.SafetyAdjustments
	case AnalysisShapley:
		p.Permutations = c.Shapley.Permutations
		p.Seed = &c.Shapley.Seed
	case AnalysisMCMC:
		p.Iterations = c.MCMC.Iterations
		p.Betas = c.Betas()
		p.Seed = &c.MCMC.Seed
	}
	return p
}
