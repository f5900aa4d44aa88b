// Package config defines the data structures related to configuration and
// includes functions for loading, normalizing and validating it.
package config

import (
	"fmt"
	"strings"

	"github.com/iwvelando/fleet-optimizer/internal/fleet"
	"github.com/iwvelando/fleet-optimizer/pkg/constants"
	"github.com/iwvelando/fleet-optimizer/pkg/validation"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment variable overrides, e.g.
// FLEET_OPTIMIZER_MCMC_ITERATIONS.
const EnvPrefix = "FLEET_OPTIMIZER"

// Configuration holds all configuration for fleet-optimizer.
type Configuration struct {
	Logging      LoggingConfig      `yaml:"logging,omitempty" mapstructure:"logging"`
	Output       OutputConfig       `yaml:"output,omitempty" mapstructure:"output"`
	Vessels      VesselsConfig      `yaml:"vessels,omitempty" mapstructure:"vessels"`
	Optimization OptimizationConfig `yaml:"optimization,omitempty" mapstructure:"optimization"`
	Solver       SolverConfig       `yaml:"solver,omitempty" mapstructure:"solver"`
	Pareto       ParetoConfig       `yaml:"pareto,omitempty" mapstructure:"pareto"`
	Sensitivity  SensitivityConfig  `yaml:"sensitivity,omitempty" mapstructure:"sensitivity"`
	Shapley      ShapleyConfig      `yaml:"shapley,omitempty" mapstructure:"shapley"`
	MCMC         MCMCConfig         `yaml:"mcmc,omitempty" mapstructure:"mcmc"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency,omitempty" mapstructure:"concurrency"`
	Store        StoreConfig        `yaml:"store,omitempty" mapstructure:"store"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty" mapstructure:"level"`           // debug, info, warn, error
	Format     string `yaml:"format,omitempty" mapstructure:"format"`         // json, console
	OutputFile string `yaml:"outputFile,omitempty" mapstructure:"outputFile"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format    string `yaml:"format,omitempty" mapstructure:"format"`       // pretty, csv, json, yaml, markdown
	Directory string `yaml:"directory,omitempty" mapstructure:"directory"` // optional export directory
}

// VesselsConfig locates the per-vessel cost table.
type VesselsConfig struct {
	Path   string `yaml:"path,omitempty" mapstructure:"path"`
	Format string `yaml:"format,omitempty" mapstructure:"format"` // csv, json, yaml; inferred from the extension when empty
}

// StoreConfig controls the run archive.
type StoreConfig struct {
	Enabled bool   `yaml:"enabled,omitempty" mapstructure:"enabled"`
	Path    string `yaml:"path,omitempty" mapstructure:"path"`
}

// ConcurrencyConfig bounds parallel sweeps. Zero uses every available core.
type ConcurrencyConfig struct {
	Workers int `yaml:"workers,omitempty" mapstructure:"workers"`
}

// Default returns the configuration used when no file overrides a value.
func Default() *Configuration {
	conf := &Configuration{
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Output:  OutputConfig{Format: constants.OutputFormatPretty},
		Store:   StoreConfig{Path: DefaultStorePath},
	}
	conf.Optimization.Normalize()
	conf.Solver.Normalize()
	conf.Pareto.Normalize()
	conf.Sensitivity.Normalize()
	conf.Shapley.Normalize()
	conf.MCMC.Normalize()
	return conf
}

// DefaultStorePath is the sqlite file of the run archive.
const DefaultStorePath = "fleet-runs.db"

// setDefaults registers the defaults with viper so partially specified
// sections keep sensible values.
func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("optimization.minCapacity", d.Optimization.MinCapacity)
	v.SetDefault("optimization.minAvgSafety", d.Optimization.MinAvgSafety)
	v.SetDefault("optimization.requireAllFuelTypes", d.Optimization.RequireAllFuelTypes)
	v.SetDefault("optimization.carbonPrice", d.Optimization.CarbonPrice)
	v.SetDefault("solver.timeLimit", d.Solver.TimeLimit)
	v.SetDefault("solver.nodeLimit", d.Solver.NodeLimit)
	v.SetDefault("pareto.safetyMin", d.Pareto.SafetyMin)
	v.SetDefault("pareto.safetyMax", d.Pareto.SafetyMax)
	v.SetDefault("pareto.step", d.Pareto.Step)
	v.SetDefault("shapley.permutations", d.Shapley.Permutations)
	v.SetDefault("shapley.seed", d.Shapley.Seed)
	v.SetDefault("mcmc.iterations", d.MCMC.Iterations)
	v.SetDefault("mcmc.beta", d.MCMC.Beta)
	v.SetDefault("mcmc.seed", d.MCMC.Seed)
	v.SetDefault("store.path", d.Store.Path)
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there. Values missing from the file fall back to defaults;
// environment variables prefixed with EnvPrefix override both.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configPath)
	v.SetConfigType("yml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %w", err)
	}

	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %w", err)
	}

	configuration.Normalize()
	if err := configuration.Validate(); err != nil {
		return nil, err
	}
	return &configuration, nil
}

// Normalize applies defaults and canonical spellings to every section.
func (c *Configuration) Normalize() {
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Output.Format = strings.ToLower(strings.TrimSpace(c.Output.Format))
	if c.Output.Format == "" {
		c.Output.Format = constants.OutputFormatPretty
	}
	c.Vessels.Path = strings.TrimSpace(c.Vessels.Path)
	c.Vessels.Format = strings.ToLower(strings.TrimSpace(c.Vessels.Format))
	if c.Store.Path == "" {
		c.Store.Path = DefaultStorePath
	}
	if c.Concurrency.Workers < 0 {
		c.Concurrency.Workers = 0
	}
	c.Optimization.Normalize()
	c.Solver.Normalize()
	c.Pareto.Normalize()
	c.Sensitivity.Normalize()
	c.Shapley.Normalize()
	c.MCMC.Normalize()
}

// Validate returns the first configuration error found.
func (c *Configuration) Validate() error {
	if err := validation.ValidateLogLevel(c.Logging.Level); err != nil {
		return fleet.Invalidf("logging: %v", err)
	}
	if err := validation.ValidateLogFormat(c.Logging.Format); err != nil {
		return fleet.Invalidf("logging: %v", err)
	}
	if err := validation.ValidateOutputFormat(c.Output.Format); err != nil {
		return fleet.Invalidf("output: %v", err)
	}
	validators := []interface{ Validate() error }{
		&c.Optimization,
		&c.Solver,
		&c.Pareto,
		&c.Sensitivity,
		&c.Shapley,
		&c.MCMC,
	}
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Warnings returns findings that do not prevent a run but likely indicate a
// mistake in the configuration.
func (c *Configuration) Warnings() []string {
	var warnings []string
	warnings = append(warnings, validation.ValidateSafetyThresholds("optimization", []float64{c.Optimization.MinAvgSafety})...)
	warnings = append(warnings, validation.ValidateSafetyThresholds("pareto", []float64{c.Pareto.SafetyMax})...)
	warnings = append(warnings, validation.ValidateParetoRange(c.Pareto.SafetyMin, c.Pareto.SafetyMax, c.Pareto.Step)...)
	warnings = append(warnings, validation.ValidateSafetyThresholds("heatmap", c.Sensitivity.SafetyThresholds)...)
	warnings = append(warnings, validation.ValidateGrid("carbonPrices", c.Sensitivity.CarbonPrices)...)
	warnings = append(warnings, validation.ValidateGrid("safetyThresholds", c.Sensitivity.SafetyThresholds)...)
	warnings = append(warnings, validation.ValidateAdjustmentScores(c.Sensitivity.Scores())...)
	warnings = append(warnings, validation.ValidateMCMC(c.MCMC.Iterations, c.Betas())...)
	return warnings
}
