package fleet

import (
	"math"

	"github.com/iwvelando/fleet-optimizer/pkg/constants"
)

// Params are the fleet requirements of a single selection. They are passed
// by value into every solve.
type Params struct {
	MinCapacity         float64 `json:"min_capacity" yaml:"min_capacity"`
	MinAvgSafety        float64 `json:"min_avg_safety" yaml:"min_avg_safety"`
	RequireAllFuelTypes bool    `json:"require_all_fuel_types" yaml:"require_all_fuel_types"`
}

// DefaultParams returns the competition requirements.
func DefaultParams() Params {
	return Params{
		MinCapacity:         constants.DefaultMinCapacity,
		MinAvgSafety:        constants.DefaultMinAvgSafety,
		RequireAllFuelTypes: constants.DefaultRequireAllFuelTypes,
	}
}

// WithMinAvgSafety returns a copy of p with a different safety threshold.
func (p Params) WithMinAvgSafety(threshold float64) Params {
	p.MinAvgSafety = threshold
	return p
}

// Validate rejects parameters that cannot describe a selection problem.
func (p Params) Validate() error {
	if math.IsNaN(p.MinCapacity) || math.IsInf(p.MinCapacity, 0) {
		return Invalidf("minimum capacity must be finite")
	}
	if math.IsNaN(p.MinAvgSafety) || math.IsInf(p.MinAvgSafety, 0) {
		return Invalidf("minimum average safety must be finite")
	}
	return nil
}
