package milp

import (
	"context"
	"math"
	"sort"
	"time"
)

// deadlineCheckMask controls how often the search looks at the clock and the
// context: every 4096 nodes.
const deadlineCheckMask = 1<<12 - 1

// Options bound a branch-and-bound search. Zero values disable a limit.
type Options struct {
	TimeLimit time.Duration
	NodeLimit int
	Tolerance float64
}

// BranchAndBound is an exact depth-first search over binary assignments.
// Variables with a negative objective coefficient are complemented (x' = 1-x)
// so the search only ever sees nonnegative costs.
//
// Lower bound at a node: cost so far plus, for each unmet constraint, the
// cheapest fractional cover of its remaining deficit using undecided
// variables (a fractional knapsack). The maximum over constraints is
// admissible.
type BranchAndBound struct {
	opts Options
}

// NewBranchAndBound returns a backend with the given limits.
func NewBranchAndBound(opts Options) *BranchAndBound {
	if opts.Tolerance <= 0 {
		opts.Tolerance = 1e-9
	}
	return &BranchAndBound{opts: opts}
}

// Solve implements Backend.
func (b *BranchAndBound) Solve(ctx context.Context, p *Problem) (Solution, error) {
	if err := p.Validate(); err != nil {
		return Solution{}, err
	}
	e := newEngine(p, b.opts)
	if b.opts.TimeLimit > 0 {
		e.deadline = time.Now().Add(b.opts.TimeLimit)
	}
	e.ctx = ctx
	if e.limitReached() {
		return Solution{Status: StatusUndefined}, nil
	}
	e.seedIncumbent()
	e.dfs(0)

	sol := Solution{Nodes: e.nodes}
	switch {
	case e.aborted:
		sol.Status = StatusUndefined
	case e.best == nil:
		sol.Status = StatusInfeasible
	default:
		sol.Status = StatusOptimal
		sol.Values = make([]bool, e.n)
		for k, on := range e.best {
			j := e.order[k]
			sol.Values[j] = on != e.flip[j]
		}
		for j, on := range sol.Values {
			if on {
				sol.Objective += p.Objective[j]
			}
		}
	}
	return sol, nil
}

// engine holds the search state. Variables are permuted into branching
// order; position k refers to original variable order[k].
type engine struct {
	n, m int
	tol  float64

	order []int
	flip  []bool
	cost  []float64
	// rows[i][k] is the coefficient of position k in constraint i, with every
	// constraint normalized to >=.
	rows [][]float64
	rhs  []float64
	// tols[i] is the allowed shortfall of constraint i, scaled by the
	// magnitude of its right-hand side.
	tols []float64
	// reach[i][k] is the sum of positive coefficients of constraint i over
	// positions k..n-1.
	reach [][]float64
	// cheapest[i] lists positions with a positive coefficient in constraint i,
	// sorted by cost per unit of coverage.
	cheapest [][]int

	lhs      []float64
	x        []bool
	costSoFr float64

	best     []bool
	bestCost float64

	ctx       context.Context
	deadline  time.Time
	nodeLimit int
	nodes     int
	aborted   bool
}

func newEngine(p *Problem, opts Options) *engine {
	n, m := p.NumVars(), len(p.Constraints)
	e := &engine{
		n:         n,
		m:         m,
		tol:       opts.Tolerance,
		nodeLimit: opts.NodeLimit,
		bestCost:  math.Inf(1),
		lhs:       make([]float64, m),
		x:         make([]bool, n),
	}

	e.flip = make([]bool, n)
	obj := make([]float64, n)
	for j, c := range p.Objective {
		if c < 0 {
			e.flip[j] = true
			c = -c
		}
		obj[j] = c
	}

	norm := make([][]float64, m)
	e.rhs = make([]float64, m)
	e.tols = make([]float64, m)
	for i, con := range p.Constraints {
		e.tols[i] = RowTolerance(con.RHS, opts.Tolerance)
		row := make([]float64, n)
		sign := 1.0
		if con.Sense == LessEqual {
			sign = -1
		}
		rhs := sign * con.RHS
		for j, a := range con.Coeffs {
			a *= sign
			if e.flip[j] {
				rhs -= a
				a = -a
			}
			row[j] = a
		}
		norm[i] = row
		e.rhs[i] = rhs
	}

	// Branch first on variables that buy the most normalized coverage per
	// unit cost; ties keep the original order so the search is deterministic.
	scale := make([]float64, m)
	for i := range norm {
		for _, a := range norm[i] {
			if a > 0 {
				scale[i] += a
			}
		}
	}
	eff := make([]float64, n)
	for j := 0; j < n; j++ {
		gain := 0.0
		for i := range norm {
			if a := norm[i][j]; a > 0 && scale[i] > 0 {
				gain += a / scale[i]
			}
		}
		eff[j] = gain / (obj[j] + 1)
	}
	e.order = make([]int, n)
	for j := range e.order {
		e.order[j] = j
	}
	sort.SliceStable(e.order, func(a, b int) bool { return eff[e.order[a]] > eff[e.order[b]] })

	e.cost = make([]float64, n)
	for k, j := range e.order {
		e.cost[k] = obj[j]
	}
	e.rows = make([][]float64, m)
	e.reach = make([][]float64, m)
	e.cheapest = make([][]int, m)
	for i := range norm {
		row := make([]float64, n)
		for k, j := range e.order {
			row[k] = norm[i][j]
		}
		e.rows[i] = row

		reach := make([]float64, n+1)
		for k := n - 1; k >= 0; k-- {
			reach[k] = reach[k+1]
			if row[k] > 0 {
				reach[k] += row[k]
			}
		}
		e.reach[i] = reach

		var pos []int
		for k, a := range row {
			if a > 0 {
				pos = append(pos, k)
			}
		}
		sort.SliceStable(pos, func(a, b int) bool {
			return e.cost[pos[a]]/row[pos[a]] < e.cost[pos[b]]/row[pos[b]]
		})
		e.cheapest[i] = pos
	}
	return e
}

// seedIncumbent runs a greedy pass in branching order and, if it reaches a
// feasible assignment, drops redundant variables from the most expensive end
// to obtain an initial upper bound.
func (e *engine) seedIncumbent() {
	x := make([]bool, e.n)
	lhs := make([]float64, e.m)
	cost := 0.0
	satisfied := func() bool {
		for i := range lhs {
			if lhs[i] < e.rhs[i]-e.tols[i] {
				return false
			}
		}
		return true
	}
	if !satisfied() {
		for k := 0; k < e.n; k++ {
			helps := false
			for i := range lhs {
				if lhs[i] < e.rhs[i]-e.tols[i] && e.rows[i][k] > 0 {
					helps = true
					break
				}
			}
			if !helps {
				continue
			}
			x[k] = true
			cost += e.cost[k]
			for i := range lhs {
				lhs[i] += e.rows[i][k]
			}
			if satisfied() {
				break
			}
		}
		if !satisfied() {
			return
		}
	}
	for k := e.n - 1; k >= 0; k-- {
		if !x[k] {
			continue
		}
		for i := range lhs {
			lhs[i] -= e.rows[i][k]
		}
		if satisfied() {
			x[k] = false
			cost -= e.cost[k]
			continue
		}
		for i := range lhs {
			lhs[i] += e.rows[i][k]
		}
	}
	e.best = x
	e.bestCost = cost
}

func (e *engine) dfs(k int) {
	if e.aborted {
		return
	}
	e.nodes++
	if e.nodes&deadlineCheckMask == 0 && e.limitReached() {
		e.aborted = true
		return
	}
	if e.nodeLimit > 0 && e.nodes > e.nodeLimit {
		e.aborted = true
		return
	}

	allMet := true
	for i := 0; i < e.m; i++ {
		if e.lhs[i] < e.rhs[i]-e.tols[i] {
			allMet = false
			if e.lhs[i]+e.reach[i][k] < e.rhs[i]-e.tols[i] {
				return
			}
		}
	}
	if allMet {
		// Remaining costs are nonnegative, so leaving the rest unset is the
		// cheapest completion of this branch.
		if e.costSoFr < e.bestCost-e.slack() {
			e.bestCost = e.costSoFr
			e.best = make([]bool, e.n)
			copy(e.best[:k], e.x[:k])
		}
		return
	}
	if k == e.n {
		return
	}
	if e.costSoFr+e.lowerBound(k) >= e.bestCost-e.slack() {
		return
	}

	first := false
	for i := 0; i < e.m; i++ {
		if e.lhs[i] < e.rhs[i]-e.tols[i] && e.rows[i][k] > 0 {
			first = true
			break
		}
	}
	e.branch(k, first)
	e.branch(k, !first)
}

func (e *engine) branch(k int, on bool) {
	if e.aborted {
		return
	}
	e.x[k] = on
	if on {
		e.costSoFr += e.cost[k]
		for i := 0; i < e.m; i++ {
			e.lhs[i] += e.rows[i][k]
		}
	}
	e.dfs(k + 1)
	if on {
		e.costSoFr -= e.cost[k]
		for i := 0; i < e.m; i++ {
			e.lhs[i] -= e.rows[i][k]
		}
	}
	e.x[k] = false
}

// lowerBound returns the additional cost any completion from position k must
// pay.
func (e *engine) lowerBound(k int) float64 {
	bound := 0.0
	for i := 0; i < e.m; i++ {
		need := e.rhs[i] - e.lhs[i]
		if need <= e.tols[i] {
			continue
		}
		partial := 0.0
		for _, pos := range e.cheapest[i] {
			if pos < k {
				continue
			}
			a := e.rows[i][pos]
			if a >= need {
				partial += e.cost[pos] * need / a
				need = 0
				break
			}
			partial += e.cost[pos]
			need -= a
		}
		if need > e.tols[i] {
			return math.Inf(1)
		}
		if partial > bound {
			bound = partial
		}
	}
	return bound
}

func (e *engine) slack() float64 {
	if math.IsInf(e.bestCost, 1) {
		return 0
	}
	return e.tol * math.Max(1, math.Abs(e.bestCost))
}

func (e *engine) limitReached() bool {
	if e.ctx != nil && e.ctx.Err() != nil {
		return true
	}
	return !e.deadline.IsZero() && time.Now().After(e.deadline)
}
