// Package shapley estimates each fleet member's contribution to the cost of
// a feasible fleet by sampling join orders (Monte Carlo Shapley values).
//
// The characteristic function v(S) is the total adjusted cost of coalition S
// when S meets the fleet requirements, and a penalty of twice the adjusted
// cost of the whole table otherwise. The empty coalition is infeasible. A
// vessel's marginal contribution when it joins is v(before) - v(after), so
// cost reductions count as positive value.
package shapley

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/iwvelando/fleet-optimizer/internal/fleet"
	"github.com/iwvelando/fleet-optimizer/internal/workpool"
	"github.com/iwvelando/fleet-optimizer/pkg/constants"
	"github.com/iwvelando/fleet-optimizer/pkg/mathutil"
	"github.com/iwvelando/fleet-optimizer/pkg/progress"
	"github.com/iwvelando/fleet-optimizer/pkg/randutil"
	"go.uber.org/zap"
)

// Category buckets a vessel by its value relative to the largest value.
type Category string

const (
	Essential Category = "essential"
	Useful    Category = "useful"
	Marginal  Category = "marginal"
)

// Categorize returns the category of value given the largest value: at
// least 80% is essential, at least 20% useful, anything else marginal. A
// non-positive maximum makes every vessel marginal.
func Categorize(value, maxValue float64) Category {
	if maxValue <= 0 {
		return Marginal
	}
	ratio := value / maxValue
	switch {
	case ratio >= 0.8:
		return Essential
	case ratio >= 0.2:
		return Useful
	default:
		return Marginal
	}
}

// Result is one vessel's estimated contribution.
type Result struct {
	VesselID     string   `json:"vessel_id" yaml:"vessel_id"`
	ShapleyValue float64  `json:"shapley_value" yaml:"shapley_value"`
	Rank         int      `json:"rank" yaml:"rank"`
	Category     Category `json:"category" yaml:"category"`
}

// Summary aggregates the results.
type Summary struct {
	TotalShapleyValue float64 `json:"total_shapley_value" yaml:"total_shapley_value"`
	VesselCount       int     `json:"vessel_count" yaml:"vessel_count"`
	EssentialCount    int     `json:"essential_count" yaml:"essential_count"`
	UsefulCount       int     `json:"useful_count" yaml:"useful_count"`
	MarginalCount     int     `json:"marginal_count" yaml:"marginal_count"`
}

// Report is the outcome of an attribution. Completed is the number of
// permutations the estimates are based on; it is below Permutations only
// when the run was cancelled.
type Report struct {
	Results      []Result `json:"vessels" yaml:"vessels"`
	Permutations int      `json:"permutations" yaml:"permutations"`
	Completed    int      `json:"completed" yaml:"completed"`
	Incomplete   bool     `json:"incomplete" yaml:"incomplete"`
	Summary      Summary  `json:"summary" yaml:"summary"`
}

// Attributor computes Shapley estimates.
type Attributor struct {
	logger    *zap.Logger
	pool      *workpool.Pool
	progress  progress.Func
	blockSize int
}

// Option configures an Attributor.
type Option func(*Attributor)

// WithPool sets the worker pool evaluating permutation blocks.
func WithPool(pool *workpool.Pool) Option {
	return func(a *Attributor) {
		a.pool = pool
	}
}

// WithProgress registers a callback invoked every 1% of permutations.
func WithProgress(fn progress.Func) Option {
	return func(a *Attributor) {
		a.progress = fn
	}
}

// NewAttributor returns an Attributor.
func NewAttributor(logger *zap.Logger, opts ...Option) *Attributor {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Attributor{logger: logger, blockSize: constants.ShapleyBlockSize}
	for _, opt := range opts {
		opt(a)
	}
	if a.pool == nil {
		a.pool = workpool.New(0)
	}
	return a
}

// Attribute estimates the Shapley value of every reference vessel from
// permutations random join orders. Permutations are drawn in fixed-size
// blocks, each from its own stream derived from seed, and block totals are
// summed in block order: the output depends on (table, reference, params,
// seed) only, never on the number of workers.
func (a *Attributor) Attribute(ctx context.Context, t *fleet.Table, referenceIDs []string, permutations int, p fleet.Params, seed int64) (Report, error) {
	logger := a.logger.With(zap.String("op", "shapley.Attribute"))
	if permutations <= 0 {
		return Report{}, fleet.Invalidf("permutations must be positive, got %d", permutations)
	}
	if t.Len() == 0 {
		return Report{}, fleet.Invalidf("vessel table is empty")
	}
	if err := p.Validate(); err != nil {
		return Report{}, err
	}
	members, err := resolveReference(t, referenceIDs)
	if err != nil {
		return Report{}, err
	}

	penalty := 2 * t.TotalAdjustedCost()
	blocks := (permutations + a.blockSize - 1) / a.blockSize
	sums := make([][]float64, blocks)

	started := time.Now()
	tracker := progress.NewTracker(logger, "shapley.Attribute", a.progress, permutations,
		progress.EveryPercent(permutations, constants.ShapleyProgressPercent))

	done, err := a.pool.Run(ctx, blocks, func(ctx context.Context, b int) error {
		lo := b * a.blockSize
		hi := min(lo+a.blockSize, permutations)
		w := walker{
			tally:   fleet.NewTally(t),
			params:  p,
			penalty: penalty,
			members: members,
			order:   make([]int, len(members)),
			rng:     randutil.Derive(seed, uint64(b)),
		}
		sum := make([]float64, len(members))
		for k := lo; k < hi; k++ {
			if ctx.Err() != nil {
				return nil
			}
			w.walk(sum)
			tracker.Add(1)
		}
		sums[b] = sum
		return nil
	})
	if err != nil {
		return Report{}, err
	}

	report := Report{Permutations: permutations}
	totals := make([]float64, len(members))
	for b := 0; b < blocks; b++ {
		if !done[b] {
			report.Incomplete = true
			continue
		}
		lo := b * a.blockSize
		report.Completed += min(lo+a.blockSize, permutations) - lo
		for pos, v := range sums[b] {
			totals[pos] += v
		}
	}

	values := make([]float64, len(members))
	if report.Completed > 0 {
		for pos := range totals {
			values[pos] = totals[pos] / float64(report.Completed)
		}
	}
	report.Results = rank(referenceIDs, values)
	report.Summary = Summarize(report.Results)

	logger.Info("shapley attribution finished",
		zap.Int("vessels", len(members)),
		zap.Int("permutations", permutations),
		zap.Int("completed", report.Completed),
		zap.Bool("incomplete", report.Incomplete),
		zap.Int("callbackFailures", tracker.Failures()),
		zap.Duration("elapsed", time.Since(started)),
	)
	return report, nil
}

// walker evaluates join orders of the reference fleet for one block.
type walker struct {
	tally   *fleet.Tally
	params  fleet.Params
	penalty float64
	members []int
	order   []int
	rng     *rand.Rand
}

// walk draws one join order and adds every member's marginal contribution to
// sum, indexed by reference position.
func (w *walker) walk(sum []float64) {
	for pos := range w.order {
		w.order[pos] = pos
	}
	randutil.ShuffleInts(w.order, w.rng)

	w.tally.Reset()
	prev := w.penalty
	for _, pos := range w.order {
		w.tally.Add(w.members[pos])
		cur := w.penalty
		if w.tally.Feasible(w.params) {
			cur = w.tally.Cost
		}
		sum[pos] += prev - cur
		prev = cur
	}
}

func resolveReference(t *fleet.Table, ids []string) ([]int, error) {
	members, err := t.Indices(ids)
	if err != nil {
		return nil, fmt.Errorf("%w: reference fleet: %w", fleet.ErrInvalidConfig, err)
	}
	seen := make(map[int]struct{}, len(members))
	for k, i := range members {
		if _, dup := seen[i]; dup {
			return nil, fleet.Invalidf("reference fleet lists %q twice", ids[k])
		}
		seen[i] = struct{}{}
	}
	return members, nil
}

// rank sorts by unrounded value, highest first, keeping reference order among
// ties, and rounds the reported values to cents.
func rank(ids []string, values []float64) []Result {
	order := make([]int, len(ids))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return values[order[a]] > values[order[b]] })

	maxValue := 0.0
	if len(order) > 0 {
		maxValue = values[order[0]]
	}
	results := make([]Result, len(order))
	for r, pos := range order {
		results[r] = Result{
			VesselID:     ids[pos],
			ShapleyValue: mathutil.Round(values[pos]),
			Rank:         r + 1,
			Category:     Categorize(values[pos], maxValue),
		}
	}
	return results
}

// Summarize counts results per category and totals the reported values.
func Summarize(results []Result) Summary {
	s := Summary{VesselCount: len(results)}
	total := 0.0
	for _, r := range results {
		total += r.ShapleyValue
		switch r.Category {
		case Essential:
			s.EssentialCount++
		case Useful:
			s.UsefulCount++
		default:
			s.MarginalCount++
		}
	}
	s.TotalShapleyValue = mathutil.Round(total)
	return s
}
