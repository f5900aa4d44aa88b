package config

import (
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/iwvelando/fleet-optimizer/internal/fleet"
	"github.com/iwvelando/fleet-optimizer/pkg/constants"
)

// OptimizationConfig holds the fleet requirements of the baseline selection.
type OptimizationConfig struct {
	MinCapacity         float64 `yaml:"minCapacity" mapstructure:"minCapacity"`
	MinAvgSafety        float64 `yaml:"minAvgSafety" mapstructure:"minAvgSafety"`
	RequireAllFuelTypes bool    `yaml:"requireAllFuelTypes" mapstructure:"requireAllFuelTypes"`
	CarbonPrice         float64 `yaml:"carbonPrice" mapstructure:"carbonPrice"`
}

// SolverConfig bounds a single selection solve. Zero disables a limit.
type SolverConfig struct {
	TimeLimit time.Duration `yaml:"timeLimit,omitempty" mapstructure:"timeLimit"`
	NodeLimit int           `yaml:"nodeLimit,omitempty" mapstructure:"nodeLimit"`
}

// ParetoConfig is the safety threshold range of the frontier.
type ParetoConfig struct {
	SafetyMin float64 `yaml:"safetyMin" mapstructure:"safetyMin"`
	SafetyMax float64 `yaml:"safetyMax" mapstructure:"safetyMax"`
	Step      float64 `yaml:"step" mapstructure:"step"`
}

// SensitivityConfig holds the sweep grids and the cost recomputation table.
// SafetyAdjustments is keyed by safety score.
type SensitivityConfig struct {
	CarbonPrices      []float64          `yaml:"carbonPrices,omitempty" mapstructure:"carbonPrices"`
	SafetyThresholds  []float64          `yaml:"safetyThresholds,omitempty" mapstructure:"safetyThresholds"`
	SafetyAdjustments map[string]float64 `yaml:"safetyAdjustments,omitempty" mapstructure:"safetyAdjustments"`
}

// ShapleyConfig controls the attribution.
type ShapleyConfig struct {
	Permutations int   `yaml:"permutations" mapstructure:"permutations"`
	Seed         int64 `yaml:"seed" mapstructure:"seed"`
}

// MCMCConfig controls the robustness chains. When Betas is set, one chain
// runs per entry in addition to the Beta chain.
type MCMCConfig struct {
	Iterations int       `yaml:"iterations" mapstructure:"iterations"`
	Beta       float64   `yaml:"beta" mapstructure:"beta"`
	Betas      []float64 `yaml:"betas,omitempty" mapstructure:"betas"`
	Seed       int64     `yaml:"seed" mapstructure:"seed"`
}

// Normalize fills an unset section with the defaults.
func (o *OptimizationConfig) Normalize() {
	if *o == (OptimizationConfig{}) {
		o.MinCapacity = constants.DefaultMinCapacity
		o.MinAvgSafety = constants.DefaultMinAvgSafety
		o.RequireAllFuelTypes = constants.DefaultRequireAllFuelTypes
		o.CarbonPrice = constants.DefaultCarbonPrice
	}
}

// Validate returns an error when the requirements cannot describe a selection.
func (o *OptimizationConfig) Validate() error {
	if !finite(o.MinCapacity) || o.MinCapacity < 0 {
		return fleet.Invalidf("optimization minCapacity must be a finite non-negative number, got %v", o.MinCapacity)
	}
	if !finite(o.MinAvgSafety) {
		return fleet.Invalidf("optimization minAvgSafety must be finite")
	}
	if !finite(o.CarbonPrice) || o.CarbonPrice < 0 {
		return fleet.Invalidf("optimization carbonPrice must be a finite non-negative number, got %v", o.CarbonPrice)
	}
	return nil
}

// Normalize fills an unset section with the defaults.
func (s *SolverConfig) Normalize() {
	if *s == (SolverConfig{}) {
		s.TimeLimit = constants.DefaultSolverTimeLimit
		s.NodeLimit = constants.DefaultSolverNodeLimit
	}
}

// Validate rejects negative limits.
func (s *SolverConfig) Validate() error {
	if s.TimeLimit < 0 {
		return fleet.Invalidf("solver timeLimit must not be negative, got %s", s.TimeLimit)
	}
	if s.NodeLimit < 0 {
		return fleet.Invalidf("solver nodeLimit must not be negative, got %d", s.NodeLimit)
	}
	return nil
}

// Normalize fills an unset section with the defaults.
func (p *ParetoConfig) Normalize() {
	if *p == (ParetoConfig{}) {
		p.SafetyMin = constants.DefaultParetoSafetyMin
		p.SafetyMax = constants.DefaultParetoSafetyMax
		p.Step = constants.DefaultParetoStep
	}
}

// Validate rejects empty or reversed ranges.
func (p *ParetoConfig) Validate() error {
	if !finite(p.SafetyMin) || !finite(p.SafetyMax) || !finite(p.Step) {
		return fleet.Invalidf("pareto range must be finite")
	}
	if p.Step <= 0 {
		return fleet.Invalidf("pareto step must be positive, got %v", p.Step)
	}
	if p.SafetyMax < p.SafetyMin {
		return fleet.Invalidf("pareto safetyMax %v is below safetyMin %v", p.SafetyMax, p.SafetyMin)
	}
	return nil
}

// Normalize fills missing grids and adjustments with the defaults.
func (s *SensitivityConfig) Normalize() {
	if s.CarbonPrices == nil {
		s.CarbonPrices = constants.DefaultCarbonPrices()
	}
	if s.SafetyThresholds == nil {
		s.SafetyThresholds = constants.DefaultSafetyThresholds()
	}
	if s.SafetyAdjustments == nil {
		s.SafetyAdjustments = make(map[string]float64)
		for score, adj := range constants.DefaultSafetyAdjustments() {
			s.SafetyAdjustments[strconv.Itoa(score)] = adj
		}
	}
}

// Validate rejects empty grids, negative prices and malformed adjustments.
func (s *SensitivityConfig) Validate() error {
	if len(s.CarbonPrices) == 0 {
		return fleet.Invalidf("sensitivity carbonPrices must not be empty")
	}
	for _, price := range s.CarbonPrices {
		if !finite(price) || price < 0 {
			return fleet.Invalidf("sensitivity carbon price %v must be a finite non-negative number", price)
		}
	}
	if len(s.SafetyThresholds) == 0 {
		return fleet.Invalidf("sensitivity safetyThresholds must not be empty")
	}
	for _, th := range s.SafetyThresholds {
		if !finite(th) {
			return fleet.Invalidf("sensitivity safety thresholds must be finite")
		}
	}
	_, err := s.Adjustments()
	return err
}

// Adjustments converts the configured adjustments to a map keyed by score.
func (s *SensitivityConfig) Adjustments() (map[int]float64, error) {
	out := make(map[int]float64, len(s.SafetyAdjustments))
	for key, adj := range s.SafetyAdjustments {
		score, err := strconv.Atoi(key)
		if err != nil {
			return nil, fleet.Invalidf("safety adjustment key %q is not a safety score", key)
		}
		if !finite(adj) || adj <= -1 {
			return nil, fleet.Invalidf("safety adjustment for score %d must be finite and above -1, got %v", score, adj)
		}
		out[score] = adj
	}
	return out, nil
}

// Scores returns the configured safety scores in ascending order.
func (s *SensitivityConfig) Scores() []int {
	adj, err := s.Adjustments()
	if err != nil {
		return nil
	}
	scores := make([]int, 0, len(adj))
	for score := range adj {
		scores = append(scores, score)
	}
	sort.Ints(scores)
	return scores
}

// Normalize fills an unset section with the defaults.
func (s *ShapleyConfig) Normalize() {
	if *s == (ShapleyConfig{}) {
		s.Permutations = constants.DefaultShapleyPermutations
		s.Seed = constants.DefaultSeed
	}
}

// Validate requires at least one permutation.
func (s *ShapleyConfig) Validate() error {
	if s.Permutations <= 0 {
		return fleet.Invalidf("shapley permutations must be positive, got %d", s.Permutations)
	}
	return nil
}

// Normalize fills an unset section with the defaults.
func (m *MCMCConfig) Normalize() {
	if m.Iterations == 0 && m.Beta == 0 && m.Seed == 0 && m.Betas == nil {
		m.Iterations = constants.DefaultMCMCIterations
		m.Beta = constants.DefaultMCMCBeta
		m.Seed = constants.DefaultSeed
	}
}

// Validate requires a positive chain length and non-negative temperatures.
func (m *MCMCConfig) Validate() error {
	if m.Iterations <= 0 {
		return fleet.Invalidf("mcmc iterations must be positive, got %d", m.Iterations)
	}
	for _, beta := range append([]float64{m.Beta}, m.Betas...) {
		if !finite(beta) || beta < 0 {
			return fleet.Invalidf("mcmc beta must be a finite non-negative number, got %v", beta)
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
