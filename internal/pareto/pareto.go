// Package pareto traces the cost of the cheapest fleet as the minimum average
// safety requirement rises (epsilon-constraint method).
package pareto

import (
	"context"
	"math"
	"time"

	"github.com/iwvelando/fleet-optimizer/internal/fleet"
	"github.com/iwvelando/fleet-optimizer/internal/solver"
	"github.com/iwvelando/fleet-optimizer/internal/workpool"
	"github.com/iwvelando/fleet-optimizer/pkg/constants"
	"github.com/iwvelando/fleet-optimizer/pkg/mathutil"
	"github.com/iwvelando/fleet-optimizer/pkg/progress"
	"go.uber.org/zap"
)

// thresholdDecimals is the precision of reported safety thresholds.
const thresholdDecimals = 4

// Point is the optimal selection at one safety threshold. ShadowPrice is the
// marginal cost of the last threshold increment; it is nil at the first
// threshold and whenever either end of the increment is not optimal.
type Point struct {
	SafetyThreshold float64      `json:"safety_threshold" yaml:"safety_threshold"`
	TotalCost       float64      `json:"total_cost" yaml:"total_cost"`
	TotalCO2eq      float64      `json:"total_co2eq" yaml:"total_co2eq"`
	FleetSize       int          `json:"fleet_size" yaml:"fleet_size"`
	FleetIDs        []string     `json:"fleet_vessel_ids" yaml:"fleet_vessel_ids"`
	ShadowPrice     *float64     `json:"shadow_price" yaml:"shadow_price"`
	Status          fleet.Status `json:"status" yaml:"status"`
}

// Frontier is the outcome of a sweep in threshold order. Incomplete is set
// when the sweep was cancelled; Points then holds only the thresholds
// completed before the first gap.
type Frontier struct {
	Points     []Point `json:"points" yaml:"points"`
	Incomplete bool    `json:"incomplete" yaml:"incomplete"`
}

// Analyzer runs Pareto sweeps.
type Analyzer struct {
	solver   *solver.Solver
	pool     *workpool.Pool
	logger   *zap.Logger
	base     fleet.Params
	progress progress.Func
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithMinCapacity overrides the fleet capacity requirement held fixed during
// the sweep.
func WithMinCapacity(capacity float64) Option {
	return func(a *Analyzer) {
		a.base.MinCapacity = capacity
	}
}

// WithProgress registers a callback invoked after every threshold.
func WithProgress(fn progress.Func) Option {
	return func(a *Analyzer) {
		a.progress = fn
	}
}

// WithPool sets the worker pool solving thresholds concurrently.
func WithPool(pool *workpool.Pool) Option {
	return func(a *Analyzer) {
		a.pool = pool
	}
}

// NewAnalyzer returns an Analyzer. Every threshold requires all fuel types.
func NewAnalyzer(logger *zap.Logger, s *solver.Solver, opts ...Option) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Analyzer{
		solver: s,
		logger: logger,
		base:   fleet.DefaultParams(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.base.RequireAllFuelTypes = true
	if a.pool == nil {
		a.pool = workpool.New(0)
	}
	return a
}

// Thresholds returns safetyMin + i*step for every i keeping the value within
// safetyMax (with a small epsilon for float comparison).
func Thresholds(safetyMin, safetyMax, step float64) ([]float64, error) {
	if err := validateRange(safetyMin, safetyMax, step); err != nil {
		return nil, err
	}
	var out []float64
	for i := 0; ; i++ {
		t := safetyMin + float64(i)*step
		if t > safetyMax+constants.FeasibilityTolerance {
			break
		}
		out = append(out, t)
	}
	return out, nil
}

func validateRange(safetyMin, safetyMax, step float64) error {
	for _, v := range []float64{safetyMin, safetyMax, step} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fleet.Invalidf("pareto range must be finite")
		}
	}
	if step <= 0 {
		return fleet.Invalidf("pareto step must be positive, got %v", step)
	}
	if safetyMax < safetyMin {
		return fleet.Invalidf("pareto safety max %v is below safety min %v", safetyMax, safetyMin)
	}
	return nil
}

// Sweep solves the selection at every threshold of the range. Thresholds are
// solved concurrently and reassembled in order; shadow prices are computed
// once all points are known.
func (a *Analyzer) Sweep(ctx context.Context, t *fleet.Table, safetyMin, safetyMax, step float64) (Frontier, error) {
	logger := a.logger.With(zap.String("op", "pareto.Sweep"))
	thresholds, err := Thresholds(safetyMin, safetyMax, step)
	if err != nil {
		return Frontier{}, err
	}
	if t.Len() == 0 {
		return Frontier{}, fleet.Invalidf("vessel table is empty")
	}

	started := time.Now()
	tracker := progress.NewTracker(logger, "pareto.Sweep", a.progress, len(thresholds), 1)
	results := make([]fleet.Result, len(thresholds))
	done, err := a.pool.Run(ctx, len(thresholds), func(ctx context.Context, i int) error {
		results[i] = a.solver.Solve(ctx, t, a.base.WithMinAvgSafety(thresholds[i]))
		tracker.Add(1)
		return nil
	})
	if err != nil {
		return Frontier{}, err
	}

	frontier := Frontier{Points: make([]Point, 0, len(thresholds))}
	for i, threshold := range thresholds {
		if !done[i] {
			frontier.Incomplete = true
			break
		}
		res := results[i]
		point := Point{
			SafetyThreshold: mathutil.RoundTo(threshold, thresholdDecimals),
			TotalCost:       mathutil.Round(res.TotalCost),
			TotalCO2eq:      mathutil.Round(res.TotalCO2eq),
			FleetSize:       res.FleetSize,
			FleetIDs:        res.SelectedIDs,
			Status:          res.Status,
		}
		if i > 0 && res.Optimal() && results[i-1].Optimal() {
			price := mathutil.Round((res.TotalCost - results[i-1].TotalCost) / step)
			point.ShadowPrice = &price
		}
		frontier.Points = append(frontier.Points, point)
	}

	logger.Info("pareto sweep finished",
		zap.Int("thresholds", len(thresholds)),
		zap.Int("points", len(frontier.Points)),
		zap.Bool("incomplete", frontier.Incomplete),
		zap.Duration("elapsed", time.Since(started)),
	)
	return frontier, nil
}
