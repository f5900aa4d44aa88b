// Package mcmc explores the neighbourhood of a feasible fleet with a
// Metropolis-Hastings random walk and reports how often each reference
// vessel stays in the sampled fleets.
package mcmc

import (
	"context"
	"fmt"
	"math"
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

// Category buckets a vessel by appearance frequency.
type Category string

const (
	Essential Category = "essential"
	Stable    Category = "stable"
	Variable  Category = "variable"
)

// Categorize returns essential for frequencies of at least 0.9, stable for
// at least 0.5 and variable otherwise.
func Categorize(frequency float64) Category {
	switch {
	case frequency >= 0.9:
		return Essential
	case frequency >= 0.5:
		return Stable
	default:
		return Variable
	}
}

// Result is one reference vessel's share of sampled fleets.
type Result struct {
	VesselID            string   `json:"vessel_id" yaml:"vessel_id"`
	AppearanceFrequency float64  `json:"appearance_frequency" yaml:"appearance_frequency"`
	Category            Category `json:"category" yaml:"category"`
}

// Summary counts results per category.
type Summary struct {
	VesselCount    int `json:"vessel_count" yaml:"vessel_count"`
	EssentialCount int `json:"essential_count" yaml:"essential_count"`
	StableCount    int `json:"stable_count" yaml:"stable_count"`
	VariableCount  int `json:"variable_count" yaml:"variable_count"`
}

// Report is the outcome of one chain. Frequencies are relative to Completed,
// which is below Iterations only when the run was cancelled.
type Report struct {
	Results        []Result `json:"vessels" yaml:"vessels"`
	Beta           float64  `json:"beta" yaml:"beta"`
	Seed           int64    `json:"seed" yaml:"seed"`
	Iterations     int      `json:"iterations" yaml:"iterations"`
	Completed      int      `json:"completed" yaml:"completed"`
	Accepted       int      `json:"accepted" yaml:"accepted"`
	AcceptanceRate float64  `json:"acceptance_rate" yaml:"acceptance_rate"`
	Incomplete     bool     `json:"incomplete" yaml:"incomplete"`
	Summary        Summary  `json:"summary" yaml:"summary"`
}

// Sampler runs robustness chains.
type Sampler struct {
	logger   *zap.Logger
	pool     *workpool.Pool
	progress progress.Func

	// observe, when set, sees the membership of every recorded state.
	observe func(members []bool)
}

// Option configures a Sampler.
type Option func(*Sampler)

// WithPool sets the worker pool running independent chains.
func WithPool(pool *workpool.Pool) Option {
	return func(s *Sampler) {
		s.pool = pool
	}
}

// WithProgress registers a callback invoked every 100 iterations.
func WithProgress(fn progress.Func) Option {
	return func(s *Sampler) {
		s.progress = fn
	}
}

// NewSampler returns a Sampler.
func NewSampler(logger *zap.Logger, opts ...Option) *Sampler {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Sampler{logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	if s.pool == nil {
		s.pool = workpool.New(0)
	}
	return s
}

// Sample runs a single chain starting at the reference fleet. Each
// iteration picks a vessel of the whole table uniformly and proposes to flip
// its membership. Infeasible proposals are rejected; feasible ones are
// accepted with probability min(1, exp(-beta*delta)) where delta is the cost
// change. After every iteration the presence of each reference vessel is
// recorded.
func (s *Sampler) Sample(ctx context.Context, t *fleet.Table, referenceIDs []string, iterations int, beta float64, p fleet.Params, seed int64) (Report, error) {
	members, err := s.validate(t, referenceIDs, iterations, []float64{beta}, p)
	if err != nil {
		return Report{}, err
	}
	tracker := progress.NewTracker(s.logger, "mcmc.Sample", s.progress, iterations, constants.MCMCProgressCadence)
	return s.run(ctx, t, referenceIDs, members, iterations, beta, p, seed, tracker), nil
}

// SampleBetas runs one independent chain per beta concurrently. Chain i is
// seeded with a seed derived from (seed, i), so each report depends only on
// its own position and beta. Reports are returned in beta order.
func (s *Sampler) SampleBetas(ctx context.Context, t *fleet.Table, referenceIDs []string, iterations int, betas []float64, p fleet.Params, seed int64) ([]Report, error) {
	if len(betas) == 0 {
		return nil, fleet.Invalidf("beta list is empty")
	}
	members, err := s.validate(t, referenceIDs, iterations, betas, p)
	if err != nil {
		return nil, err
	}

	tracker := progress.NewTracker(s.logger, "mcmc.SampleBetas", s.progress, iterations*len(betas), constants.MCMCProgressCadence)
	reports := make([]Report, len(betas))
	_, err = s.pool.Run(ctx, len(betas), func(ctx context.Context, i int) error {
		reports[i] = s.run(ctx, t, referenceIDs, members, iterations, betas[i], p, randutil.DeriveSeed(seed, uint64(i)), tracker)
		return nil
	})
	if err != nil {
		return nil, err
	}
	for i := range reports {
		// chains never started because of cancellation
		if reports[i].Iterations == 0 {
			reports[i] = Report{
				Results:    emptyResults(referenceIDs),
				Beta:       betas[i],
				Seed:       randutil.DeriveSeed(seed, uint64(i)),
				Iterations: iterations,
				Incomplete: true,
			}
			reports[i].Summary = Summarize(reports[i].Results)
		}
	}
	return reports, nil
}

func (s *Sampler) validate(t *fleet.Table, referenceIDs []string, iterations int, betas []float64, p fleet.Params) ([]int, error) {
	if iterations <= 0 {
		return nil, fleet.Invalidf("iterations must be positive, got %d", iterations)
	}
	for _, beta := range betas {
		if math.IsNaN(beta) || math.IsInf(beta, 0) || beta < 0 {
			return nil, fleet.Invalidf("beta must be a finite non-negative number, got %v", beta)
		}
	}
	if t.Len() == 0 {
		return nil, fleet.Invalidf("vessel table is empty")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	members, err := t.Indices(referenceIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: reference fleet: %w", fleet.ErrInvalidConfig, err)
	}
	tally := fleet.NewTally(t)
	seen := make(map[int]struct{}, len(members))
	for k, i := range members {
		if _, dup := seen[i]; dup {
			return nil, fleet.Invalidf("reference fleet lists %q twice", referenceIDs[k])
		}
		seen[i] = struct{}{}
		tally.Add(i)
	}
	if !tally.Feasible(p) {
		return nil, fleet.Invalidf("reference fleet does not meet the fleet requirements")
	}
	return members, nil
}

func (s *Sampler) run(ctx context.Context, t *fleet.Table, referenceIDs []string, members []int, iterations int, beta float64, p fleet.Params, seed int64, tracker *progress.Tracker) Report {
	logger := s.logger.With(zap.String("op", "mcmc.Sample"), zap.Float64("beta", beta))
	started := time.Now()
	rng := randutil.New(seed)

	in := make([]bool, t.Len())
	tally := fleet.NewTally(t)
	for _, i := range members {
		in[i] = true
		tally.Add(i)
	}

	report := Report{Beta: beta, Seed: seed, Iterations: iterations}
	counts := make([]int, len(members))
	for it := 0; it < iterations; it++ {
		if ctx.Err() != nil {
			report.Incomplete = true
			break
		}
		v := rng.Intn(t.Len())
		delta := t.Vessel(v).AdjustedCostUSD
		if in[v] {
			tally.Remove(v)
			delta = -delta
		} else {
			tally.Add(v)
		}

		accept := tally.Feasible(p)
		if accept && delta > 0 {
			accept = rng.Float64() < math.Exp(-beta*delta)
		}
		if accept {
			in[v] = !in[v]
			report.Accepted++
		} else if in[v] {
			tally.Add(v)
		} else {
			tally.Remove(v)
		}

		for k, i := range members {
			if in[i] {
				counts[k]++
			}
		}
		if s.observe != nil {
			s.observe(in)
		}
		report.Completed++
		tracker.Add(1)
	}

	frequencies := make([]float64, len(members))
	if report.Completed > 0 {
		for k, c := range counts {
			frequencies[k] = float64(c) / float64(report.Completed)
		}
		report.AcceptanceRate = mathutil.RoundFrequency(float64(report.Accepted) / float64(report.Completed))
	}
	report.Results = rank(referenceIDs, frequencies)
	report.Summary = Summarize(report.Results)

	logger.Info("mcmc chain finished",
		zap.Int("iterations", iterations),
		zap.Int("completed", report.Completed),
		zap.Int("accepted", report.Accepted),
		zap.Bool("incomplete", report.Incomplete),
		zap.Duration("elapsed", time.Since(started)),
	)
	return report
}

// rank rounds frequencies to four decimals and sorts them highest first,
// keeping reference order among ties.
func rank(ids []string, frequencies []float64) []Result {
	results := make([]Result, len(ids))
	for k, id := range ids {
		results[k] = Result{
			VesselID:            id,
			AppearanceFrequency: mathutil.RoundFrequency(frequencies[k]),
			Category:            Categorize(frequencies[k]),
		}
	}
	sort.SliceStable(results, func(a, b int) bool {
		return results[a].AppearanceFrequency > results[b].AppearanceFrequency
	})
	return results
}

func emptyResults(ids []string) []Result {
	return rank(ids, make([]float64, len(ids)))
}

// Summarize counts results per category.
func Summarize(results []Result) Summary {
	s := Summary{VesselCount: len(results)}
	for _, r := range results {
		switch r.Category {
		case Essential:
			s.EssentialCount++
		case Stable:
			s.StableCount++
		default:
			s.VariableCount++
		}
	}
	return s
}
