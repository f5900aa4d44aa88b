package optimizer

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/iwvelando/fleet-optimizer/internal/config"
	"github.com/iwvelando/fleet-optimizer/internal/fleet"
	"github.com/iwvelando/fleet-optimizer/internal/store"
	"github.com/iwvelando/fleet-optimizer/pkg/optimization"
	"github.com/iwvelando/fleet-optimizer/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fiveVesselConfig() *config.Configuration {
	conf := config.Default()
	p := testutil.FiveVesselParams()
	conf.Optimization.MinCapacity = p.MinCapacity
	conf.Optimization.MinAvgSafety = p.MinAvgSafety
	conf.Optimization.RequireAllFuelTypes = p.RequireAllFuelTypes
	conf.Pareto = config.ParetoConfig{SafetyMin: 3.0, SafetyMax: 5.0, Step: 0.5}
	conf.Sensitivity.CarbonPrices = []float64{40, 80}
	conf.Sensitivity.SafetyThresholds = []float64{3.0, 4.0}
	conf.Shapley.Permutations = 200
	conf.MCMC.Iterations = 500
	conf.MCMC.Betas = []float64{0.001}
	conf.Concurrency.Workers = 2
	return conf
}

func TestRunAllAnalyses(t *testing.T) {
	s, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "runs.db"), nil)
	require.NoError(t, err)
	defer s.Close()

	r, err := NewRunner(nil, fiveVesselConfig(), WithStore(s))
	require.NoError(t, err)

	res, err := r.Run(context.Background(), testutil.FiveVesselTable(), nil)
	require.NoError(t, err)

	require.True(t, res.Fleet.Optimal())
	assert.Equal(t, []string{"V3", "V5"}, res.Fleet.SelectedIDs)
	assert.InDelta(t, 140000, res.Fleet.TotalCost, 1e-6)

	require.NotNil(t, res.Frontier)
	assert.Len(t, res.Frontier.Points, 5)
	require.NotNil(t, res.Carbon)
	assert.Len(t, res.Carbon.Points, 2)
	require.NotNil(t, res.Heatmap)
	assert.Len(t, res.Heatmap.Cells, 4)
	require.NotNil(t, res.Shapley)
	assert.Len(t, res.Shapley.Results, 2)
	require.Len(t, res.MCMC, 2)
	assert.Equal(t, 0.0001, res.MCMC[0].Beta)
	assert.Equal(t, 0.001, res.MCMC[1].Beta)
	assert.True(t, res.SensitivityPerformed())

	require.Len(t, res.Summaries, len(Analyses))
	for i, summary := range res.Summaries {
		assert.Equal(t, Analyses[i], summary.Analysis)
		assert.False(t, summary.Incomplete, summary.Analysis)
		assert.NotEmpty(t, summary.RunID, summary.Analysis)
	}
	opt, ok := res.Summary(AnalysisOptimize)
	require.True(t, ok)
	assert.Equal(t, "Optimal", opt.Status)

	runs, err := s.ListRuns(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Len(t, runs, len(Analyses))

	run, err := s.LoadRun(context.Background(), opt.RunID)
	require.NoError(t, err)
	assert.Contains(t, string(run.Payload), `"fleet_vessel_ids":["V3","V5"]`)
	assert.Contains(t, string(run.Params), `"vessel_count":5`)
}

func TestRunSingleSweepSkipsSolve(t *testing.T) {
	r, err := NewRunner(nil, fiveVesselConfig())
	require.NoError(t, err)

	res, err := r.Run(context.Background(), testutil.FiveVesselTable(), []string{AnalysisPareto})
	require.NoError(t, err)
	assert.Equal(t, fleet.StatusUndefined, res.Fleet.Status)
	require.Len(t, res.Summaries, 1)
	assert.Equal(t, optimization.StatusComplete, res.Summaries[0].Status)
	assert.Empty(t, res.Summaries[0].RunID, "no store attached")
	assert.Nil(t, res.Shapley)
	assert.False(t, res.SensitivityPerformed())
}

func TestRunSkipsReferenceAnalysesWhenInfeasible(t *testing.T) {
	conf := fiveVesselConfig()
	conf.Optimization.MinCapacity = 10_000_000
	r, err := NewRunner(nil, conf)
	require.NoError(t, err)

	res, err := r.Run(context.Background(), testutil.FiveVesselTable(), []string{AnalysisShapley, AnalysisMCMC, AnalysisOptimize})
	require.NoError(t, err)
	assert.Equal(t, fleet.StatusInfeasible, res.Fleet.Status)
	require.Len(t, res.Summaries, 3)
	assert.Equal(t, "Infeasible", res.Summaries[0].Status)
	for _, s := range res.Summaries[1:] {
		assert.True(t, s.Skipped(), s.Analysis)
		assert.NotEmpty(t, s.Notes)
	}
	assert.Nil(t, res.Shapley)
	assert.Nil(t, res.MCMC)
}

func TestRunCancelled(t *testing.T) {
	r, err := NewRunner(nil, fiveVesselConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := r.Run(ctx, testutil.FiveVesselTable(), nil)
	require.NoError(t, err)
	assert.Equal(t, fleet.StatusUndefined, res.Fleet.Status)
	require.Len(t, res.Summaries, len(Analyses))
	assert.True(t, res.Summaries[0].Incomplete)
	for _, s := range res.Summaries[1:] {
		assert.True(t, s.Skipped(), s.Analysis)
	}
}

func TestRunUnknownAnalysis(t *testing.T) {
	r, err := NewRunner(nil, fiveVesselConfig())
	require.NoError(t, err)
	_, err = r.Run(context.Background(), testutil.FiveVesselTable(), []string{"backtest"})
	assert.True(t, errors.Is(err, ErrUnknownAnalysis))
}

func TestRunEmptyTableFails(t *testing.T) {
	r, err := NewRunner(nil, fiveVesselConfig())
	require.NoError(t, err)
	empty := testutil.MustTable(nil)
	_, err = r.Run(context.Background(), empty, []string{AnalysisPareto})
	require.Error(t, err)
	assert.True(t, errors.Is(err, fleet.ErrInvalidConfig))
}

func TestRunReportsProgress(t *testing.T) {
	var (
		mu    sync.Mutex
		calls = map[string]int{}
	)
	r, err := NewRunner(nil, fiveVesselConfig(), WithProgress(func(analysis string, completed, total int) {
		mu.Lock()
		defer mu.Unlock()
		calls[analysis]++
		assert.LessOrEqual(t, completed, total)
	}))
	require.NoError(t, err)

	_, err = r.Run(context.Background(), testutil.FiveVesselTable(), []string{AnalysisShapley, AnalysisMCMC})
	require.NoError(t, err)
	assert.Positive(t, calls[AnalysisShapley])
	assert.Positive(t, calls[AnalysisMCMC])
}

func TestNormalizeAnalyses(t *testing.T) {
	got, err := normalizeAnalyses([]string{AnalysisMCMC, AnalysisOptimize, AnalysisMCMC})
	require.NoError(t, err)
	assert.Equal(t, []string{AnalysisOptimize, AnalysisMCMC}, got)

	all, err := normalizeAnalyses(nil)
	require.NoError(t, err)
	assert.Equal(t, Analyses, all)
}

func TestNewRunnerRejectsNilConfig(t *testing.T) {
	_, err := NewRunner(nil, nil)
	assert.Error(t, err)
}
