// Package milp describes binary linear minimization problems and the backends
// that solve them. A Problem has one 0/1 variable per column, a linear
// objective and linear inequality constraints; a Backend returns a status and
// an assignment.
package milp

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/iwvelando/fleet-optimizer/pkg/mathutil"
)

var (
	// ErrDimensionMismatch is returned when a coefficient row does not match
	// the number of variables.
	ErrDimensionMismatch = errors.New("milp: dimension mismatch")

	// ErrNonFinite is returned for NaN or infinite coefficients.
	ErrNonFinite = errors.New("milp: non-finite coefficient")

	// ErrUnsupported is returned when a backend cannot handle the problem shape.
	ErrUnsupported = errors.New("milp: unsupported problem")
)

// Sense is the direction of a constraint.
type Sense int

const (
	// GreaterEqual constrains a·x >= rhs.
	GreaterEqual Sense = iota
	// LessEqual constrains a·x <= rhs.
	LessEqual
)

// Status is the outcome reported by a backend.
type Status int

const (
	StatusUndefined Status = iota
	StatusOptimal
	StatusInfeasible
	StatusUnbounded
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "Optimal"
	case StatusInfeasible:
		return "Infeasible"
	case StatusUnbounded:
		return "Unbounded"
	default:
		return "Undefined"
	}
}

// Constraint is a single linear inequality over all variables.
type Constraint struct {
	Name   string
	Coeffs []float64
	Sense  Sense
	RHS    float64
}

// Problem is a binary minimization problem.
type Problem struct {
	Name        string
	Objective   []float64
	Constraints []Constraint
}

// NewProblem creates a problem with the given objective coefficients, one per
// binary variable.
func NewProblem(name string, objective []float64) *Problem {
	obj := make([]float64, len(objective))
	copy(obj, objective)
	return &Problem{Name: name, Objective: obj}
}

// NumVars returns the number of binary variables.
func (p *Problem) NumVars() int {
	return len(p.Objective)
}

// AddConstraint appends a constraint. coeffs must have one entry per variable.
func (p *Problem) AddConstraint(name string, coeffs []float64, sense Sense, rhs float64) {
	row := make([]float64, len(coeffs))
	copy(row, coeffs)
	p.Constraints = append(p.Constraints, Constraint{Name: name, Coeffs: row, Sense: sense, RHS: rhs})
}

// Validate checks shapes and finiteness.
func (p *Problem) Validate() error {
	n := p.NumVars()
	for j, c := range p.Objective {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return fmt.Errorf("%w: objective[%d]", ErrNonFinite, j)
		}
	}
	for _, con := range p.Constraints {
		if len(con.Coeffs) != n {
			return fmt.Errorf("%w: constraint %s has %d coefficients, want %d", ErrDimensionMismatch, con.Name, len(con.Coeffs), n)
		}
		if con.Sense != GreaterEqual && con.Sense != LessEqual {
			return fmt.Errorf("%w: constraint %s has sense %d", ErrUnsupported, con.Name, int(con.Sense))
		}
		if math.IsNaN(con.RHS) || math.IsInf(con.RHS, 0) {
			return fmt.Errorf("%w: constraint %s right-hand side", ErrNonFinite, con.Name)
		}
		for j, a := range con.Coeffs {
			if math.IsNaN(a) || math.IsInf(a, 0) {
				return fmt.Errorf("%w: constraint %s coefficient %d", ErrNonFinite, con.Name, j)
			}
		}
	}
	return nil
}

// Solution is a backend's answer. Values is set only when Status is Optimal.
type Solution struct {
	Status    Status
	Values    []bool
	Objective float64
	Nodes     int
}

// Backend solves binary linear minimization problems. Solve blocks until the
// problem is solved, a limit is reached or ctx is done; the latter two yield
// StatusUndefined rather than an error. Errors are reserved for malformed or
// unsupported problems.
type Backend interface {
	Solve(ctx context.Context, p *Problem) (Solution, error)
}

// RowTolerance is the shortfall allowed on a constraint with bound rhs.
func RowTolerance(rhs, tol float64) float64 {
	return mathutil.ScaledTolerance(rhs, tol)
}

// Satisfies reports whether the assignment meets every constraint of p
// within RowTolerance(RHS, tol).
func Satisfies(p *Problem, values []bool, tol float64) bool {
	for _, con := range p.Constraints {
		slack := RowTolerance(con.RHS, tol)
		lhs := 0.0
		for j, a := range con.Coeffs {
			if values[j] {
				lhs += a
			}
		}
		switch con.Sense {
		case GreaterEqual:
			if lhs < con.RHS-slack {
				return false
			}
		case LessEqual:
			if lhs > con.RHS+slack {
				return false
			}
		}
	}
	return true
}
