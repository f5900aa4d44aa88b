// Package sensitivity re-solves the fleet selection across carbon prices and
// safety thresholds.
package sensitivity

import (
	"context"
	"math"
	"time"

	"github.com/iwvelando/fleet-optimizer/internal/costmodel"
	"github.com/iwvelando/fleet-optimizer/internal/fleet"
	"github.com/iwvelando/fleet-optimizer/internal/solver"
	"github.com/iwvelando/fleet-optimizer/internal/workpool"
	"github.com/iwvelando/fleet-optimizer/pkg/mathutil"
	"github.com/iwvelando/fleet-optimizer/pkg/progress"
	"go.uber.org/zap"
)

// CarbonPoint is the optimal selection at one carbon price.
type CarbonPoint struct {
	CarbonPrice float64      `json:"carbon_price" yaml:"carbon_price"`
	TotalCost   float64      `json:"total_cost" yaml:"total_cost"`
	TotalCO2eq  float64      `json:"total_co2eq" yaml:"total_co2eq"`
	FleetSize   int          `json:"fleet_size" yaml:"fleet_size"`
	FleetIDs    []string     `json:"fleet_vessel_ids" yaml:"fleet_vessel_ids"`
	Status      fleet.Status `json:"status" yaml:"status"`
}

// CarbonSweep holds one point per completed price, in input order.
type CarbonSweep struct {
	Points     []CarbonPoint `json:"points" yaml:"points"`
	Incomplete bool          `json:"incomplete" yaml:"incomplete"`
}

// Cell is one (carbon price, safety threshold) combination. Infeasible cells
// report zero cost and size.
type Cell struct {
	CarbonPrice     float64 `json:"carbon_price" yaml:"carbon_price"`
	SafetyThreshold float64 `json:"safety_threshold" yaml:"safety_threshold"`
	TotalCost       float64 `json:"total_cost" yaml:"total_cost"`
	FleetSize       int     `json:"fleet_size" yaml:"fleet_size"`
	Feasible        bool    `json:"feasible" yaml:"feasible"`
}

// Heatmap holds the completed cells in row-major order (price, then
// threshold).
type Heatmap struct {
	Cells      []Cell `json:"cells" yaml:"cells"`
	Incomplete bool   `json:"incomplete" yaml:"incomplete"`
}

// Analyzer runs carbon price and safety sweeps.
type Analyzer struct {
	solver   *solver.Solver
	model    *costmodel.Model
	pool     *workpool.Pool
	logger   *zap.Logger
	base     fleet.Params
	progress progress.Func
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithParams sets the fleet requirements of the carbon sweep. The heatmap
// uses their capacity and overrides the safety threshold per cell.
func WithParams(p fleet.Params) Option {
	return func(a *Analyzer) {
		a.base = p
	}
}

// WithCostModel sets the cost recomputation.
func WithCostModel(m *costmodel.Model) Option {
	return func(a *Analyzer) {
		a.model = m
	}
}

// WithPool sets the worker pool.
func WithPool(pool *workpool.Pool) Option {
	return func(a *Analyzer) {
		a.pool = pool
	}
}

// WithProgress registers a callback invoked after every solve.
func WithProgress(fn progress.Func) Option {
	return func(a *Analyzer) {
		a.progress = fn
	}
}

// NewAnalyzer returns an Analyzer using default requirements and cost model
// unless overridden.
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
	if a.model == nil {
		a.model = costmodel.New(nil)
	}
	if a.pool == nil {
		a.pool = workpool.New(0)
	}
	return a
}

// SweepCarbon re-solves the selection once per carbon price.
func (a *Analyzer) SweepCarbon(ctx context.Context, t *fleet.Table, prices []float64) (CarbonSweep, error) {
	logger := a.logger.With(zap.String("op", "sensitivity.SweepCarbon"))
	if len(prices) == 0 {
		return CarbonSweep{}, fleet.Invalidf("carbon price grid is empty")
	}
	tables, err := a.repriceAll(t, prices)
	if err != nil {
		return CarbonSweep{}, err
	}

	started := time.Now()
	tracker := progress.NewTracker(logger, "sensitivity.SweepCarbon", a.progress, len(prices), 1)
	results := make([]fleet.Result, len(prices))
	done, err := a.pool.Run(ctx, len(prices), func(ctx context.Context, i int) error {
		results[i] = a.solver.Solve(ctx, tables[i], a.base)
		tracker.Add(1)
		return nil
	})
	if err != nil {
		return CarbonSweep{}, err
	}

	sweep := CarbonSweep{Points: make([]CarbonPoint, 0, len(prices))}
	for i, price := range prices {
		if !done[i] {
			sweep.Incomplete = true
			continue
		}
		res := results[i]
		sweep.Points = append(sweep.Points, CarbonPoint{
			CarbonPrice: price,
			TotalCost:   mathutil.Round(res.TotalCost),
			TotalCO2eq:  mathutil.Round(res.TotalCO2eq),
			FleetSize:   res.FleetSize,
			FleetIDs:    res.SelectedIDs,
			Status:      res.Status,
		})
	}
	logger.Info("carbon sweep finished",
		zap.Int("prices", len(prices)),
		zap.Bool("incomplete", sweep.Incomplete),
		zap.Duration("elapsed", time.Since(started)),
	)
	return sweep, nil
}

// SweepGrid solves every (price, threshold) pair. Costs are recomputed once
// per price and shared by the thresholds of that row. Every cell requires
// all fuel types.
func (a *Analyzer) SweepGrid(ctx context.Context, t *fleet.Table, prices, thresholds []float64) (Heatmap, error) {
	logger := a.logger.With(zap.String("op", "sensitivity.SweepGrid"))
	if len(prices) == 0 {
		return Heatmap{}, fleet.Invalidf("carbon price grid is empty")
	}
	if len(thresholds) == 0 {
		return Heatmap{}, fleet.Invalidf("safety threshold grid is empty")
	}
	for _, th := range thresholds {
		if math.IsNaN(th) || math.IsInf(th, 0) {
			return Heatmap{}, fleet.Invalidf("safety thresholds must be finite")
		}
	}
	tables, err := a.repriceAll(t, prices)
	if err != nil {
		return Heatmap{}, err
	}

	base := a.base
	base.RequireAllFuelTypes = true
	cols := len(thresholds)
	total := len(prices) * cols

	started := time.Now()
	tracker := progress.NewTracker(logger, "sensitivity.SweepGrid", a.progress, total, 1)
	results := make([]fleet.Result, total)
	done, err := a.pool.Run(ctx, total, func(ctx context.Context, k int) error {
		row, col := k/cols, k%cols
		results[k] = a.solver.Solve(ctx, tables[row], base.WithMinAvgSafety(thresholds[col]))
		tracker.Add(1)
		return nil
	})
	if err != nil {
		return Heatmap{}, err
	}

	heatmap := Heatmap{Cells: make([]Cell, 0, total)}
	for k := 0; k < total; k++ {
		if !done[k] {
			heatmap.Incomplete = true
			continue
		}
		res := results[k]
		cell := Cell{
			CarbonPrice:     prices[k/cols],
			SafetyThreshold: thresholds[k%cols],
			Feasible:        res.Optimal(),
		}
		if cell.Feasible {
			cell.TotalCost = mathutil.Round(res.TotalCost)
			cell.FleetSize = res.FleetSize
		}
		heatmap.Cells = append(heatmap.Cells, cell)
	}
	logger.Info("sensitivity grid finished",
		zap.Int("cells", total),
		zap.Int("completed", len(heatmap.Cells)),
		zap.Bool("incomplete", heatmap.Incomplete),
		zap.Duration("elapsed", time.Since(started)),
	)
	return heatmap, nil
}

func (a *Analyzer) repriceAll(t *fleet.Table, prices []float64) ([]*fleet.Table, error) {
	if t.Len() == 0 {
		return nil, fleet.Invalidf("vessel table is empty")
	}
	tables := make([]*fleet.Table, len(prices))
	for i, price := range prices {
		repriced, err := a.model.Reprice(t, price)
		if err != nil {
			return nil, err
		}
		tables[i] = repriced
	}
	return tables, nil
}
