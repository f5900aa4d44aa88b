// Package optimizer runs the fleet selection and its analyses as configured,
// archiving each stage when a run store is attached.
package optimizer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iwvelando/fleet-optimizer/internal/config"
	"github.com/iwvelando/fleet-optimizer/internal/fleet"
	"github.com/iwvelando/fleet-optimizer/internal/mcmc"
	"github.com/iwvelando/fleet-optimizer/internal/pareto"
	"github.com/iwvelando/fleet-optimizer/internal/sensitivity"
	"github.com/iwvelando/fleet-optimizer/internal/shapley"
	"github.com/iwvelando/fleet-optimizer/internal/solver"
	"github.com/iwvelando/fleet-optimizer/internal/store"
	"github.com/iwvelando/fleet-optimizer/internal/workpool"
	"github.com/iwvelando/fleet-optimizer/pkg/optimization"
	"github.com/iwvelando/fleet-optimizer/pkg/output"
	"go.uber.org/zap"
)

// Analysis names, shared with the run archive.
const (
	AnalysisOptimize = store.KindOptimize
	AnalysisPareto   = store.KindPareto
	AnalysisCarbon   = store.KindCarbon
	AnalysisHeatmap  = store.KindHeatmap
	AnalysisShapley  = store.KindShapley
	AnalysisMCMC     = store.KindMCMC
)

// Analyses lists every analysis in execution order.
var Analyses = store.Kinds

// ErrUnknownAnalysis is returned for an analysis name outside Analyses.
var ErrUnknownAnalysis = errors.New("unknown analysis")

// ProgressFunc receives progress of a long-running analysis.
type ProgressFunc func(analysis string, completed, total int)

// Runner executes analyses against a vessel table.
type Runner struct {
	logger   *zap.Logger
	conf     *config.Configuration
	solver   *solver.Solver
	pareto   *pareto.Analyzer
	carbon   *sensitivity.Analyzer
	heatmap  *sensitivity.Analyzer
	shapley  *shapley.Attributor
	mcmc     *mcmc.Sampler
	store    *store.Store
	progress ProgressFunc
}

// Option configures a Runner.
type Option func(*Runner)

// WithStore archives every stage in s.
func WithStore(s *store.Store) Option {
	return func(r *Runner) { r.store = s }
}

// WithProgress reports progress of the sweeps and sampling loops.
func WithProgress(fn ProgressFunc) Option {
	return func(r *Runner) { r.progress = fn }
}

// Result holds the outputs of one run. Analyses that were not requested or
// were skipped are nil.
type Result struct {
	Fleet     fleet.Result
	Frontier  *pareto.Frontier
	Carbon    *sensitivity.CarbonSweep
	Heatmap   *sensitivity.Heatmap
	Shapley   *shapley.Report
	MCMC      []mcmc.Report
	Summaries []optimization.Summary
}

// SensitivityPerformed reports whether a carbon sweep or heatmap ran.
func (r *Result) SensitivityPerformed() bool {
	return r.Carbon != nil || r.Heatmap != nil
}

// Summary returns the stage summary of an analysis.
func (r *Result) Summary(analysis string) (optimization.Summary, bool) {
	for _, s := range r.Summaries {
		if s.Analysis == analysis {
			return s, true
		}
	}
	return optimization.Summary{}, false
}

// NewRunner constructs a Runner for the provided configuration.
func NewRunner(logger *zap.Logger, conf *config.Configuration, opts ...Option) (*Runner, error) {
	if conf == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	model, err := conf.CostModel()
	if err != nil {
		return nil, err
	}

	r := &Runner{logger: logger, conf: conf}
	for _, opt := range opts {
		opt(r)
	}

	pool := workpool.New(conf.Concurrency.Workers)
	r.solver = solver.New(logger, conf.SolverOptions())
	r.pareto = pareto.NewAnalyzer(logger, r.solver,
		pareto.WithMinCapacity(conf.Optimization.MinCapacity),
		pareto.WithPool(pool),
		pareto.WithProgress(r.progressFor(AnalysisPareto)),
	)
	r.carbon = sensitivity.NewAnalyzer(logger, r.solver,
		sensitivity.WithParams(conf.Params()),
		sensitivity.WithCostModel(model),
		sensitivity.WithPool(pool),
		sensitivity.WithProgress(r.progressFor(AnalysisCarbon)),
	)
	r.heatmap = sensitivity.NewAnalyzer(logger, r.solver,
		sensitivity.WithParams(conf.Params()),
		sensitivity.WithCostModel(model),
		sensitivity.WithPool(pool),
		sensitivity.WithProgress(r.progressFor(AnalysisHeatmap)),
	)
	r.shapley = shapley.NewAttributor(logger,
		shapley.WithPool(pool),
		shapley.WithProgress(r.progressFor(AnalysisShapley)),
	)
	r.mcmc = mcmc.NewSampler(logger,
		mcmc.WithPool(pool),
		mcmc.WithProgress(r.progressFor(AnalysisMCMC)),
	)
	return r, nil
}

func (r *Runner) progressFor(analysis string) func(completed, total int) {
	if r.progress == nil {
		return nil
	}
	return func(completed, total int) { r.progress(analysis, completed, total) }
}

// Run executes the requested analyses in canonical order. The selection is
// always solved first because attribution and robustness sampling use the
// optimal fleet as their reference. Cancellation does not fail the run:
// the interrupted stage reports partial results and later stages are skipped.
func (r *Runner) Run(ctx context.Context, t *fleet.Table, analyses []string) (*Result, error) {
	requested, err := normalizeAnalyses(analyses)
	if err != nil {
		return nil, err
	}
	logger := r.logger.With(zap.String("op", "optimizer.Run"))
	logger.Info("starting run",
		zap.Int("vessels", t.Len()),
		zap.Strings("analyses", requested),
	)

	res := &Result{Fleet: fleet.EmptyResult(fleet.StatusUndefined)}
	start := time.Now()
	if needsFleet(requested) {
		res.Fleet = r.solver.Solve(ctx, t, r.conf.Params())
	}
	if requested[0] == AnalysisOptimize {
		summary := optimization.Summary{
			Analysis:   AnalysisOptimize,
			Status:     res.Fleet.Status.String(),
			Incomplete: ctx.Err() != nil,
			Duration:   time.Since(start),
		}
		r.archive(ctx, &summary, r.paramsFor(AnalysisOptimize, t), output.NewFleetSummary(res.Fleet))
		res.Summaries = append(res.Summaries, summary)
		requested = requested[1:]
	}

	for _, analysis := range requested {
		if ctx.Err() != nil {
			res.Summaries = append(res.Summaries, optimization.Summary{
				Analysis: analysis,
				Status:   optimization.StatusSkipped,
				Notes:    []string{"run was cancelled"},
			})
			continue
		}
		summary, err := r.runStage(ctx, t, analysis, res)
		if err != nil {
			return nil, fmt.Errorf("%s analysis failed: %w", analysis, err)
		}
		res.Summaries = append(res.Summaries, summary)
	}

	logger.Info("run finished",
		zap.String("fleetStatus", res.Fleet.Status.String()),
		zap.Int("stages", len(res.Summaries)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

func (r *Runner) runStage(ctx context.Context, t *fleet.Table, analysis string, res *Result) (optimization.Summary, error) {
	logger := r.logger.With(zap.String("op", "optimizer.runStage"), zap.String("analysis", analysis))
	summary := optimization.Summary{Analysis: analysis}
	start := time.Now()
	var payload any

	switch analysis {
	case AnalysisPareto:
		p := r.conf.Pareto
		f, err := r.pareto.Sweep(ctx, t, p.SafetyMin, p.SafetyMax, p.Step)
		if err != nil {
			return summary, err
		}
		res.Frontier, payload, summary.Incomplete = &f, f, f.Incomplete
	case AnalysisCarbon:
		s, err := r.carbon.SweepCarbon(ctx, t, r.conf.Sensitivity.CarbonPrices)
		if err != nil {
			return summary, err
		}
		res.Carbon, payload, summary.Incomplete = &s, s, s.Incomplete
	case AnalysisHeatmap:
		h, err := r.heatmap.SweepGrid(ctx, t, r.conf.Sensitivity.CarbonPrices, r.conf.Sensitivity.SafetyThresholds)
		if err != nil {
			return summary, err
		}
		res.Heatmap, payload, summary.Incomplete = &h, h, h.Incomplete
	case AnalysisShapley, AnalysisMCMC:
		if !res.Fleet.Optimal() {
			summary.Status = optimization.StatusSkipped
			summary.Notes = append(summary.Notes,
				fmt.Sprintf("no optimal reference fleet (selection status %s)", res.Fleet.Status))
			logger.Warn("skipping analysis without an optimal reference fleet",
				zap.String("fleetStatus", res.Fleet.Status.String()),
			)
			return summary, nil
		}
		if analysis == AnalysisShapley {
			sh := r.conf.Shapley
			rep, err := r.shapley.Attribute(ctx, t, res.Fleet.SelectedIDs, sh.Permutations, r.conf.Params(), sh.Seed)
			if err != nil {
				return summary, err
			}
			res.Shapley, payload, summary.Incomplete = &rep, rep, rep.Incomplete
		} else {
			mc := r.conf.MCMC
			reps, err := r.mcmc.SampleBetas(ctx, t, res.Fleet.SelectedIDs, mc.Iterations, r.conf.Betas(), r.conf.Params(), mc.Seed)
			if err != nil {
				return summary, err
			}
			res.MCMC, payload = reps, reps
			for _, rep := range reps {
				summary.Incomplete = summary.Incomplete || rep.Incomplete
			}
		}
	default:
		return summary, fmt.Errorf("%w %q", ErrUnknownAnalysis, analysis)
	}

	summary.Duration = time.Since(start)
	summary.Status = optimization.CompletionStatus(summary.Incomplete)
	r.archive(ctx, &summary, r.paramsFor(analysis, t), payload)
	logger.Info("analysis finished",
		zap.String("status", summary.Status),
		zap.Duration("elapsed", summary.Duration),
	)
	return summary, nil
}

// archive stores the stage payload. Archiving survives cancellation of the
// run so partial results are kept; failures are noted on the summary.
func (r *Runner) archive(ctx context.Context, summary *optimization.Summary, params, payload any) {
	if r.store == nil {
		return
	}
	id, err := r.store.SaveRun(context.WithoutCancel(ctx), summary.Analysis, params, payload)
	if err != nil {
		r.logger.Error("failed to archive run",
			zap.String("op", "optimizer.archive"),
			zap.String("analysis", summary.Analysis),
			zap.Error(err),
		)
		summary.Notes = append(summary.Notes, "not archived: "+err.Error())
		return
	}
	summary.RunID = id
}

func needsFleet(analyses []string) bool {
	for _, a := range analyses {
		if a == AnalysisOptimize || a == AnalysisShapley || a == AnalysisMCMC {
			return true
		}
	}
	return false
}

// normalizeAnalyses validates names and returns them in canonical order
// without duplicates. An empty request runs every analysis.
func normalizeAnalyses(analyses []string) ([]string, error) {
	if len(analyses) == 0 {
		return append([]string(nil), Analyses...), nil
	}
	want := make(map[string]bool, len(analyses))
	for _, a := range analyses {
		known := false
		for _, k := range Analyses {
			if a == k {
				known = true
				break
			}
		}
		if !known {
			return nil, fmt.Errorf("%w %q", ErrUnknownAnalysis, a)
		}
		want[a] = true
	}
	out := make([]string, 0, len(want))
	for _, k := range Analyses {
		if want[k] {
			out = append(out, k)
		}
	}
	return out, nil
}
