// Package constants provides shared constants for the fleet-optimizer application.
package constants

import "time"

// Fleet requirement defaults
const (
	// DefaultMinCapacity is the fleet-wide deadweight requirement in tonnes.
	DefaultMinCapacity = 4_576_667.0

	// DefaultMinAvgSafety is the minimum average safety score of a fleet.
	DefaultMinAvgSafety = 3.0

	// DefaultRequireAllFuelTypes requires every main engine fuel type to be represented.
	DefaultRequireAllFuelTypes = true

	// DefaultCarbonPrice is the baseline carbon price in USD per tonne CO2eq.
	DefaultCarbonPrice = 80.0

	// MinSafetyScore and MaxSafetyScore bound the integer safety rating.
	MinSafetyScore = 1
	MaxSafetyScore = 5
)

// Analysis defaults
const (
	// DefaultParetoSafetyMin is the first safety threshold of a Pareto sweep.
	DefaultParetoSafetyMin = 3.0

	// DefaultParetoSafetyMax is the last safety threshold of a Pareto sweep.
	DefaultParetoSafetyMax = 5.0

	// DefaultParetoStep is the safety threshold increment of a Pareto sweep.
	DefaultParetoStep = 0.1

	// DefaultShapleyPermutations is the number of sampled orderings.
	DefaultShapleyPermutations = 1000

	// DefaultMCMCIterations is the length of a robustness chain.
	DefaultMCMCIterations = 10000

	// DefaultMCMCBeta is the inverse temperature of a robustness chain.
	DefaultMCMCBeta = 0.0001

	// DefaultSeed seeds every randomized analysis unless overridden.
	DefaultSeed int64 = 42

	// MCMCProgressCadence is the number of iterations between progress callbacks.
	MCMCProgressCadence = 100

	// ShapleyProgressPercent is the share of permutations between progress callbacks.
	ShapleyProgressPercent = 1

	// ComparisonBaseline and ComparisonAlternative are the frontier thresholds
	// compared in the sensitivity comparison export.
	ComparisonBaseline    = 3.0
	ComparisonAlternative = 4.0

	// ShapleyBlockSize is the number of permutations drawn from one RNG stream.
	ShapleyBlockSize = 64
)

// DefaultCarbonPrices is the carbon price grid in USD per tonne CO2eq.
func DefaultCarbonPrices() []float64 {
	return []float64{40, 80, 120, 160}
}

// DefaultSafetyThresholds is the safety threshold grid of the sensitivity heatmap.
func DefaultSafetyThresholds() []float64 {
	return []float64{3.0, 3.5, 4.0, 4.5, 5.0}
}

// DefaultSafetyAdjustments maps a safety score to its risk premium share of
// the monthly cost. Lower scores carry a surcharge, higher scores a discount.
func DefaultSafetyAdjustments() map[int]float64 {
	return map[int]float64{
		1: 0.10,
		2: 0.05,
		3: 0.0,
		4: -0.02,
		5: -0.05,
	}
}

// Solver defaults
const (
	// DefaultSolverTimeLimit bounds a single selection solve.
	DefaultSolverTimeLimit = 60 * time.Second

	// DefaultSolverNodeLimit bounds the branch-and-bound tree of a single solve.
	DefaultSolverNodeLimit = 50_000_000

	// FeasibilityTolerance absorbs floating-point drift in constraint checks.
	FeasibilityTolerance = 1e-9
)

// Rounding constants
const (
	// MoneyDecimals is the number of decimals kept for monetary and mass quantities.
	MoneyDecimals = 2

	// FrequencyDecimals is the number of decimals kept for frequencies and probabilities.
	FrequencyDecimals = 4

	// DecimalPrecision is the precision for currency rounding (2 decimal places)
	DecimalPrecision = 100

	// CurrencyTolerance is the tolerance for currency comparisons (1 cent)
	CurrencyTolerance = 0.01
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"

	// OutputFormatJSON is the JSON output format
	OutputFormatJSON = "json"

	// OutputFormatYAML is the YAML output format
	OutputFormatYAML = "yaml"

	// OutputFormatMarkdown is the Markdown report format
	OutputFormatMarkdown = "markdown"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// ExampleConfigFile is the example configuration file name
	ExampleConfigFile = "config.yaml.example"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address for the API
	DefaultServerAddress = ":8080"

	// DefaultMaxUploadSizeBytes is the default maximum upload size for vessel tables (8 MB)
	DefaultMaxUploadSizeBytes int64 = 8 * 1024 * 1024

	// DefaultRequestTimeout bounds a single analysis request
	DefaultRequestTimeout = 5 * time.Minute

	// DefaultShutdownTimeout is the grace period for in-flight requests on shutdown
	DefaultShutdownTimeout = 10 * time.Second
)
