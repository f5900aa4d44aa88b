package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/iwvelando/fleet-optimizer/internal/fleet"
	"github.com/iwvelando/fleet-optimizer/pkg/constants"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadConfiguration(t *testing.T) {
	tests := []struct {
		name       string
		configPath string
		wantError  bool
	}{
		{
			name:       "Non-existent config file",
			configPath: "nonexistent.yaml",
			wantError:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := LoadConfiguration(tt.configPath)
			if tt.wantError {
				if err == nil {
					t.Errorf("LoadConfiguration() expected error but got none")
				}
				return
			}
			if err != nil {
				t.Errorf("LoadConfiguration() error = %v", err)
				return
			}
			if config == nil {
				t.Errorf("LoadConfiguration() returned nil config")
			}
		})
	}
}

func TestLoadExampleConfiguration(t *testing.T) {
	conf, err := LoadConfiguration(filepath.Join("..", "..", constants.ExampleConfigFile))
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	if conf.Vessels.Path != "vessels.csv" {
		t.Errorf("expected vessels path vessels.csv, got %q", conf.Vessels.Path)
	}
	if conf.Solver.TimeLimit != constants.DefaultSolverTimeLimit {
		t.Errorf("expected time limit %v, got %v", constants.DefaultSolverTimeLimit, conf.Solver.TimeLimit)
	}
	adj, err := conf.Sensitivity.Adjustments()
	if err != nil {
		t.Fatalf("Adjustments() error = %v", err)
	}
	if !reflect.DeepEqual(adj, constants.DefaultSafetyAdjustments()) {
		t.Errorf("expected default adjustments, got %v", adj)
	}
	if warnings := conf.Warnings(); len(warnings) != 0 {
		t.Errorf("expected no warnings, got %v", warnings)
	}
}

func TestLoadConfigurationDefaults(t *testing.T) {
	path := writeConfig(t, "vessels:\n  path: vessels.csv\n")
	conf, err := LoadConfiguration(path)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	if conf.Vessels.Path != "vessels.csv" {
		t.Errorf("expected vessels path vessels.csv, got %q", conf.Vessels.Path)
	}
	if got := conf.Params(); got != fleet.DefaultParams() {
		t.Errorf("expected default params, got %+v", got)
	}
	if conf.Optimization.CarbonPrice != constants.DefaultCarbonPrice {
		t.Errorf("expected default carbon price, got %v", conf.Optimization.CarbonPrice)
	}
	if conf.Solver.TimeLimit != constants.DefaultSolverTimeLimit {
		t.Errorf("expected default time limit, got %s", conf.Solver.TimeLimit)
	}
	if conf.Shapley.Permutations != constants.DefaultShapleyPermutations || conf.Shapley.Seed != constants.DefaultSeed {
		t.Errorf("unexpected shapley defaults %+v", conf.Shapley)
	}
	if conf.MCMC.Iterations != constants.DefaultMCMCIterations || conf.MCMC.Beta != constants.DefaultMCMCBeta {
		t.Errorf("unexpected mcmc defaults %+v", conf.MCMC)
	}
	if !reflect.DeepEqual(conf.Sensitivity.CarbonPrices, constants.DefaultCarbonPrices()) {
		t.Errorf("unexpected carbon prices %v", conf.Sensitivity.CarbonPrices)
	}
	adj, err := conf.Sensitivity.Adjustments()
	if err != nil {
		t.Fatalf("Adjustments() error = %v", err)
	}
	if !reflect.DeepEqual(adj, constants.DefaultSafetyAdjustments()) {
		t.Errorf("unexpected adjustments %v", adj)
	}
	if conf.Output.Format != constants.OutputFormatPretty {
		t.Errorf("expected pretty output, got %q", conf.Output.Format)
	}
	if conf.Store.Path != DefaultStorePath {
		t.Errorf("expected default store path, got %q", conf.Store.Path)
	}
}

func TestLoadConfigurationOverrides(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: DEBUG
  format: console
output:
  format: JSON
optimization:
  minCapacity: 1000000
  minAvgSafety: 3.5
  requireAllFuelTypes: false
  carbonPrice: 120
solver:
  timeLimit: 5s
  nodeLimit: 1000
pareto:
  safetyMin: 3.2
  safetyMax: 4.2
  step: 0.2
sensitivity:
  carbonPrices: [10, 20]
  safetyThresholds: [3, 4]
  safetyAdjustments:
    "1": 0.2
    "5": -0.1
shapley:
  permutations: 200
  seed: 7
mcmc:
  iterations: 500
  beta: 0.001
  betas: [0.0001, 0.01]
  seed: 9
concurrency:
  workers: 3
`)
	conf, err := LoadConfiguration(path)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	if conf.Logging.Level != "debug" || conf.Logging.Format != "console" {
		t.Errorf("unexpected logging %+v", conf.Logging)
	}
	if conf.Output.Format != constants.OutputFormatJSON {
		t.Errorf("expected json output, got %q", conf.Output.Format)
	}
	want := fleet.Params{MinCapacity: 1_000_000, MinAvgSafety: 3.5, RequireAllFuelTypes: false}
	if got := conf.Params(); got != want {
		t.Errorf("expected params %+v, got %+v", want, got)
	}
	if opts := conf.SolverOptions(); opts.TimeLimit != 5*time.Second || opts.NodeLimit != 1000 {
		t.Errorf("unexpected solver options %+v", opts)
	}
	if conf.Pareto != (ParetoConfig{SafetyMin: 3.2, SafetyMax: 4.2, Step: 0.2}) {
		t.Errorf("unexpected pareto %+v", conf.Pareto)
	}
	if !reflect.DeepEqual(conf.Sensitivity.CarbonPrices, []float64{10, 20}) {
		t.Errorf("unexpected carbon prices %v", conf.Sensitivity.CarbonPrices)
	}
	model, err := conf.CostModel()
	if err != nil {
		t.Fatalf("CostModel() error = %v", err)
	}
	if model.Adjustment(1) != 0.2 || model.Adjustment(5) != -0.1 || model.Adjustment(3) != 0 {
		t.Errorf("unexpected cost model adjustments")
	}
	if conf.Shapley != (ShapleyConfig{Permutations: 200, Seed: 7}) {
		t.Errorf("unexpected shapley %+v", conf.Shapley)
	}
	if !reflect.DeepEqual(conf.Betas(), []float64{0.001, 0.0001, 0.01}) {
		t.Errorf("unexpected betas %v", conf.Betas())
	}
	if conf.Concurrency.Workers != 3 {
		t.Errorf("expected 3 workers, got %d", conf.Concurrency.Workers)
	}
}

func TestLoadConfigurationRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"reversed pareto range", "pareto:\n  safetyMin: 4\n  safetyMax: 3\n  step: 0.1\n"},
		{"zero pareto step", "pareto:\n  safetyMin: 3\n  safetyMax: 4\n  step: 0\n"},
		{"zero permutations", "shapley:\n  permutations: 0\n  seed: 1\n"},
		{"zero iterations", "mcmc:\n  iterations: 0\n  beta: 0.1\n"},
		{"negative beta", "mcmc:\n  iterations: 10\n  beta: -0.1\n"},
		{"empty carbon grid", "sensitivity:\n  carbonPrices: []\n"},
		{"bad adjustment key", "sensitivity:\n  safetyAdjustments:\n    high: 0.1\n"},
		{"negative node limit", "solver:\n  nodeLimit: -1\n"},
		{"negative capacity", "optimization:\n  minCapacity: -5\n"},
		{"unknown log level", "logging:\n  level: trace\n"},
		{"unknown output format", "output:\n  format: xml\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfiguration(writeConfig(t, tt.body))
			if err == nil {
				t.Fatalf("expected error")
			}
			if !errors.Is(err, fleet.ErrInvalidConfig) {
				t.Errorf("expected invalid configuration error, got %v", err)
			}
		})
	}
}

func TestLoadConfigurationEnvOverride(t *testing.T) {
	t.Setenv("FLEET_OPTIMIZER_MCMC_ITERATIONS", "1234")
	conf, err := LoadConfiguration(writeConfig(t, "mcmc:\n  iterations: 10\n  beta: 0.1\n"))
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	if conf.MCMC.Iterations != 1234 {
		t.Errorf("expected env override of 1234 iterations, got %d", conf.MCMC.Iterations)
	}
}

func TestDefaultIsValid(t *testing.T) {
	conf := Default()
	if err := conf.Validate(); err != nil {
		t.Fatalf("Default() is invalid: %v", err)
	}
	if got := conf.Params(); got != fleet.DefaultParams() {
		t.Errorf("expected default params, got %+v", got)
	}
	if !reflect.DeepEqual(conf.Betas(), []float64{constants.DefaultMCMCBeta}) {
		t.Errorf("unexpected betas %v", conf.Betas())
	}
}

func TestSensitivityScores(t *testing.T) {
	s := SensitivityConfig{SafetyAdjustments: map[string]float64{"3": 0, "1": 0.1, "2": 0.05}}
	if got := s.Scores(); !reflect.DeepEqual(got, []int{1, 2, 3}) {
		t.Errorf("expected sorted scores, got %v", got)
	}
}

func TestWarnings(t *testing.T) {
	conf := Default()
	if w := conf.Warnings(); len(w) != 0 {
		t.Errorf("Default() should not warn, got %v", w)
	}

	conf.Sensitivity.SafetyThresholds = []float64{3, 3, 6}
	conf.Sensitivity.SafetyAdjustments = map[string]float64{"1": 0.1, "2": 0.05, "3": 0, "4": -0.02}
	w := conf.Warnings()
	if len(w) != 3 {
		t.Fatalf("expected 3 warnings, got %d: %v", len(w), w)
	}
}
