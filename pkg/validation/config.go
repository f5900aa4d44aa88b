package validation

import (
	"fmt"
	"sort"

	"github.com/iwvelando/fleet-optimizer/pkg/constants"
)

// ValidateSafetyThresholds warns about thresholds no fleet can meet or that
// every fleet meets trivially.
func ValidateSafetyThresholds(source string, thresholds []float64) []string {
	var warnings []string
	for _, th := range thresholds {
		if th > constants.MaxSafetyScore {
			warnings = append(warnings, fmt.Sprintf("%s safety threshold %.2f exceeds the maximum score %d - every selection will be infeasible",
				source, th, constants.MaxSafetyScore))
		} else if th <= constants.MinSafetyScore {
			warnings = append(warnings, fmt.Sprintf("%s safety threshold %.2f is at or below the minimum score %d - the constraint never binds",
				source, th, constants.MinSafetyScore))
		}
	}
	return warnings
}

// ValidateGrid warns about duplicate values in a sweep axis.
func ValidateGrid(name string, values []float64) []string {
	var warnings []string
	seen := make(map[float64]bool, len(values))
	for _, v := range values {
		if seen[v] {
			warnings = append(warnings, fmt.Sprintf("%s contains duplicate value %v - it will be solved twice", name, v))
			continue
		}
		seen[v] = true
	}
	return warnings
}

// ValidateAdjustmentScores warns about safety scores without an adjustment,
// which are then repriced with no premium.
func ValidateAdjustmentScores(scores []int) []string {
	present := make(map[int]bool, len(scores))
	for _, s := range scores {
		present[s] = true
	}
	var warnings []string
	for s := constants.MinSafetyScore; s <= constants.MaxSafetyScore; s++ {
		if !present[s] {
			warnings = append(warnings, fmt.Sprintf("no safety adjustment for score %d - vessels with that score are repriced without a premium", s))
		}
	}
	sorted := append([]int(nil), scores...)
	sort.Ints(sorted)
	for _, s := range sorted {
		if s < constants.MinSafetyScore || s > constants.MaxSafetyScore {
			warnings = append(warnings, fmt.Sprintf("safety adjustment for score %d is outside %d-%d and will never apply",
				s, constants.MinSafetyScore, constants.MaxSafetyScore))
		}
	}
	return warnings
}

// ValidateParetoRange warns when the step does not land on the upper bound.
func ValidateParetoRange(min, max, step float64) []string {
	if step <= 0 || max < min {
		return nil
	}
	n := (max - min) / step
	if diff := n - float64(int64(n+0.5)); diff > 1e-6 || diff < -1e-6 {
		return []string{fmt.Sprintf("pareto step %v does not divide the range %v-%v - the last threshold is below safetyMax", step, min, max)}
	}
	return nil
}

// ValidateMCMC warns about chains that cannot say much.
func ValidateMCMC(iterations int, betas []float64) []string {
	var warnings []string
	if iterations > 0 && iterations < constants.MCMCProgressCadence {
		warnings = append(warnings, fmt.Sprintf("mcmc iterations %d is very short - appearance frequencies will be noisy", iterations))
	}
	for _, b := range betas {
		if b == 0 {
			warnings = append(warnings, "mcmc beta 0 accepts every feasible move - frequencies reflect feasibility only")
		}
	}
	return warnings
}
