package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/iwvelando/fleet-optimizer/internal/optimizer"
	"github.com/iwvelando/fleet-optimizer/internal/server"
	"github.com/iwvelando/fleet-optimizer/pkg/output"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type analysisCommand struct {
	name  string
	short string
}

var analysisCommands = []analysisCommand{
	{optimizer.AnalysisOptimize, "Select the minimum-cost feasible fleet"},
	{optimizer.AnalysisPareto, "Sweep the safety threshold to trace the cost/safety frontier"},
	{optimizer.AnalysisCarbon, "Re-optimize across carbon prices"},
	{optimizer.AnalysisHeatmap, "Re-optimize across carbon prices and safety thresholds"},
	{optimizer.AnalysisShapley, "Attribute the optimal fleet cost to its vessels"},
	{optimizer.AnalysisMCMC, "Sample near-optimal fleets to measure selection robustness"},
	{server.AnalysisAll, "Run every analysis"},
}

func newAnalysisCmd(opts *rootOptions, ac analysisCommand) *cobra.Command {
	return &cobra.Command{
		Use:   ac.name,
		Short: ac.short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAnalysis(cmd, opts, ac.name)
		},
	}
}

// runAnalysis solves and analyzes the configured vessel table. An interrupt
// stops the sweeps early and the partial results are still written.
func runAnalysis(cmd *cobra.Command, opts *rootOptions, analysis string) error {
	const op = "main.runAnalysis"
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := opts.load(ctx, cmd, loadOptions{store: true})
	if err != nil {
		return err
	}
	defer a.close()

	table, err := a.loadTable()
	if err != nil {
		return err
	}
	a.logger.Info("loaded vessel table",
		zap.String("op", op),
		zap.String("path", a.conf.Vessels.Path),
		zap.Int("vessels", table.Len()),
		zap.Int("fuelTypes", table.FuelTypeCount()),
	)

	runner, err := optimizer.NewRunner(a.logger, a.conf,
		optimizer.WithStore(a.store),
		optimizer.WithProgress(progressLogger(a.logger)),
	)
	if err != nil {
		return err
	}

	var analyses []string
	if analysis != server.AnalysisAll {
		analyses = []string{analysis}
	}
	start := time.Now()
	res, err := runner.Run(ctx, table, analyses)
	if err != nil {
		return err
	}
	a.logger.Info("analysis finished",
		zap.String("op", op),
		zap.String("analysis", analysis),
		zap.Duration("duration", time.Since(start)),
	)

	w, err := output.NewWriter(cmd.OutOrStdout(), a.outputFormat)
	if err != nil {
		return err
	}
	if err := res.Render(w, table, analysis); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}

	if dir := a.conf.Output.Directory; dir != "" {
		exporter, err := output.NewExporter(dir)
		if err != nil {
			return err
		}
		files, err := res.Export(exporter, table)
		if err != nil {
			return err
		}
		a.logger.Info("exported results",
			zap.String("op", op),
			zap.String("directory", exporter.Dir()),
			zap.Strings("files", files),
		)
	}

	var skipped []string
	for _, s := range res.Summaries {
		if s.Incomplete {
			a.logger.Warn("analysis incomplete",
				zap.String("op", op),
				zap.String("analysis", s.Analysis),
				zap.Strings("notes", s.Notes),
			)
		}
		if s.Skipped() {
			skipped = append(skipped, fmt.Sprintf("%s (%s)", s.Analysis, strings.Join(s.Notes, "; ")))
		}
	}
	if analysis != server.AnalysisAll && len(skipped) > 0 {
		return fmt.Errorf("analysis skipped: %s", strings.Join(skipped, ", "))
	}
	return nil
}

// progressLogger logs sweep and sampling progress at debug level.
func progressLogger(logger *zap.Logger) optimizer.ProgressFunc {
	return func(analysis string, completed, total int) {
		logger.Debug("progress",
			zap.String("op", "main.progress"),
			zap.String("analysis", analysis),
			zap.Int("completed", completed),
			zap.Int("total", total),
		)
	}
}
