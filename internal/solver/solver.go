// Package solver selects the cheapest fleet that satisfies a set of fleet
// requirements.
package solver

import (
	"context"
	"errors"
	"time"

	"github.com/iwvelando/fleet-optimizer/internal/fleet"
	"github.com/iwvelando/fleet-optimizer/internal/milp"
	"github.com/iwvelando/fleet-optimizer/pkg/constants"
	"go.uber.org/zap"
)

// Solver turns a vessel table and fleet requirements into a binary program,
// hands it to a backend and summarizes the selection. A Solver holds no
// per-solve state and may be shared between goroutines as long as the
// backend may.
type Solver struct {
	backend milp.Backend
	logger  *zap.Logger
}

// Options configure the default backend.
type Options struct {
	TimeLimit time.Duration
	NodeLimit int
}

// DefaultOptions returns the configured solver limits.
func DefaultOptions() Options {
	return Options{
		TimeLimit: constants.DefaultSolverTimeLimit,
		NodeLimit: constants.DefaultSolverNodeLimit,
	}
}

// New returns a solver using the branch-and-bound backend.
func New(logger *zap.Logger, opts Options) *Solver {
	return NewWithBackend(logger, milp.NewBranchAndBound(milp.Options{
		TimeLimit: opts.TimeLimit,
		NodeLimit: opts.NodeLimit,
		Tolerance: constants.FeasibilityTolerance,
	}))
}

// NewWithBackend returns a solver using the given backend.
func NewWithBackend(logger *zap.Logger, backend milp.Backend) *Solver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Solver{backend: backend, logger: logger}
}

// Solve minimizes the total adjusted cost subject to:
//
//	sum(dwt)                        >= MinCapacity
//	sum(safety_score - MinAvgSafety) >= 0
//	sum over each fuel type          >= 1   (when RequireAllFuelTypes)
//
// Anything but an optimal solve yields an empty selection carrying the
// status; it is not an error.
func (s *Solver) Solve(ctx context.Context, t *fleet.Table, p fleet.Params) fleet.Result {
	logger := s.logger.With(zap.String("op", "solver.Solve"))
	if err := p.Validate(); err != nil {
		logger.Warn("invalid fleet requirements", zap.Error(err))
		return fleet.EmptyResult(fleet.StatusUndefined)
	}

	prob := BuildProblem(t, p)
	started := time.Now()
	sol, err := s.backend.Solve(ctx, prob)
	if err != nil {
		level := logger.Error
		if errors.Is(err, milp.ErrNonFinite) {
			level = logger.Warn
		}
		level("backend rejected selection problem", zap.Error(err))
		return fleet.EmptyResult(fleet.StatusUndefined)
	}

	status := convertStatus(sol.Status)
	logger.Debug("selection solved",
		zap.String("status", status.String()),
		zap.Float64("minAvgSafety", p.MinAvgSafety),
		zap.Int("nodes", sol.Nodes),
		zap.Duration("elapsed", time.Since(started)),
	)
	if status != fleet.StatusOptimal {
		return fleet.EmptyResult(status)
	}

	selected := make([]int, 0, len(sol.Values))
	for i, on := range sol.Values {
		if on {
			selected = append(selected, i)
		}
	}
	return fleet.Summarize(t, selected, fleet.StatusOptimal)
}

// BuildProblem encodes the selection as a binary program with one variable
// per table position.
func BuildProblem(t *fleet.Table, p fleet.Params) *milp.Problem {
	n := t.Len()
	cost := make([]float64, n)
	capacity := make([]float64, n)
	safety := make([]float64, n)
	for i := 0; i < n; i++ {
		rec := t.Vessel(i)
		cost[i] = rec.AdjustedCostUSD
		capacity[i] = rec.DWT
		safety[i] = float64(rec.SafetyScore) - p.MinAvgSafety
	}

	prob := milp.NewProblem("fleet_selection", cost)
	prob.AddConstraint("min_capacity", capacity, milp.GreaterEqual, p.MinCapacity)
	prob.AddConstraint("min_avg_safety", safety, milp.GreaterEqual, 0)
	if p.RequireAllFuelTypes {
		for f, name := range t.FuelTypes() {
			row := make([]float64, n)
			for i := 0; i < n; i++ {
				if t.FuelIndex(i) == f {
					row[i] = 1
				}
			}
			prob.AddConstraint("fuel_"+name, row, milp.GreaterEqual, 1)
		}
	}
	return prob
}

func convertStatus(s milp.Status) fleet.Status {
	switch s {
	case milp.StatusOptimal:
		return fleet.StatusOptimal
	case milp.StatusInfeasible:
		return fleet.StatusInfeasible
	case milp.StatusUnbounded:
		return fleet.StatusUnbounded
	default:
		return fleet.StatusUndefined
	}
}
