package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/iwvelando/fleet-optimizer/internal/config"
	"github.com/iwvelando/fleet-optimizer/internal/fleet"
	"github.com/iwvelando/fleet-optimizer/internal/store"
	"github.com/iwvelando/fleet-optimizer/internal/vesselio"
	"github.com/iwvelando/fleet-optimizer/pkg/constants"
	"github.com/iwvelando/fleet-optimizer/pkg/validation"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath   string
	vesselsPath  string
	logLevel     string
	outputFormat string
	workers      int
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "fleet-optimizer",
		Short: "Select and analyze a minimum-cost vessel fleet",
		Long: `fleet-optimizer selects the cheapest subset of vessels that meets a
deadweight requirement, a minimum average safety score and full fuel type
coverage, then analyzes that selection.`,
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", constants.DefaultConfigFile, "path to configuration file")
	flags.StringVar(&opts.vesselsPath, "vessels", "", "vessel table override (csv, json or yaml)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	flags.StringVar(&opts.outputFormat, "output-format", "", "output format override: "+strings.Join(validation.OutputFormats, ", "))
	flags.IntVar(&opts.workers, "workers", 0, "parallel sweep workers override (0 uses every core)")

	for _, analysis := range analysisCommands {
		cmd.AddCommand(newAnalysisCmd(opts, analysis))
	}
	cmd.AddCommand(newRunsCmd(opts), newServeCmd(opts), newVersionCmd())
	return cmd
}

// app is the state every command builds from the flags and configuration.
type app struct {
	conf         *config.Configuration
	logger       *zap.Logger
	outputFormat string
	store        *store.Store
}

type loadOptions struct {
	store   bool
	logging *config.LoggingConfig
}

// load reads the configuration, applies flag overrides and initializes the
// logger. A missing default configuration file falls back to the built-in
// defaults; an explicitly named one must exist.
func (o *rootOptions) load(ctx context.Context, cmd *cobra.Command, lo loadOptions) (*app, error) {
	conf, err := config.LoadConfiguration(o.configPath)
	if err != nil {
		if cmd.Flags().Changed("config") || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load configuration at %s: %w", o.configPath, err)
		}
		conf = config.Default()
	}

	if lo.logging != nil {
		if lo.logging.Level != "" {
			conf.Logging.Level = lo.logging.Level
		}
		if lo.logging.Format != "" {
			conf.Logging.Format = lo.logging.Format
		}
		if lo.logging.OutputFile != "" {
			conf.Logging.OutputFile = lo.logging.OutputFile
		}
	}
	logger, err := initializeLogger(conf.Logging, strings.ToLower(strings.TrimSpace(o.logLevel)))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	a := &app{conf: conf, logger: logger, outputFormat: conf.Output.Format}

	if o.outputFormat != "" {
		a.outputFormat = strings.ToLower(strings.TrimSpace(o.outputFormat))
	}
	if err := validation.ValidateOutputFormat(a.outputFormat); err != nil {
		a.close()
		return nil, err
	}
	if cmd.Flags().Changed("workers") {
		if o.workers < 0 {
			a.close()
			return nil, fmt.Errorf("invalid worker count %d", o.workers)
		}
		conf.Concurrency.Workers = o.workers
	}
	if o.vesselsPath != "" {
		conf.Vessels.Path = o.vesselsPath
	}

	for _, warning := range conf.Warnings() {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main.load"),
		)
	}

	if lo.store && conf.Store.Enabled {
		s, err := store.Open(ctx, conf.Store.Path, logger)
		if err != nil {
			a.close()
			return nil, err
		}
		a.store = s
	}
	return a, nil
}

// loadTable reads the configured vessel table.
func (a *app) loadTable() (*fleet.Table, error) {
	path := a.conf.Vessels.Path
	if path == "" {
		return nil, errors.New("no vessel table configured: set vessels.path or pass --vessels")
	}
	if a.conf.Vessels.Format == "" {
		return vesselio.LoadFile(path)
	}
	format, err := vesselio.ParseFormat(a.conf.Vessels.Format)
	if err != nil {
		return nil, err
	}
	return vesselio.LoadFileFormat(path, format)
}

func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("failed to close run archive",
				zap.String("op", "main.close"),
				zap.Error(err),
			)
		}
	}
	_ = a.logger.Sync()
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version)
			return err
		},
	}
}
