package lp

import (
	"context"
	"errors"
	"fmt"
)

// Status is the termination condition reported by a solve.
type Status int

const (
	StatusOptimal Status = iota
	StatusInfeasible
	StatusUnbounded
	StatusNumerical
	StatusNodeLimit
	StatusCanceled
	// StatusInvalid means the model was rejected before any solve.
	StatusInvalid
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusInfeasible:
		return "infeasible"
	case StatusUnbounded:
		return "unbounded"
	case StatusNumerical:
		return "numerical"
	case StatusNodeLimit:
		return "node_limit"
	case StatusCanceled:
		return "canceled"
	case StatusInvalid:
		return "invalid"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

var (
	ErrInfeasible = errors.New("lp: model is infeasible")
	ErrUnbounded  = errors.New("lp: model is unbounded")
	ErrNumerical  = errors.New("lp: solver stopped on numerical trouble")
	ErrNodeLimit  = errors.New("lp: branch-and-bound node limit reached")
)

// Solution holds the primal values of a solve. X is indexed by Var.
type Solution struct {
	Status    Status
	Objective float64
	X         []float64
	// Nodes counts the relaxations solved (1 for a plain LP).
	Nodes int
}

func (s *Solution) IsOptimal() bool { return s != nil && s.Status == StatusOptimal }

// Value returns the solution value of v, or 0 when no values are available.
func (s *Solution) Value(v Var) float64 {
	if s == nil || int(v) < 0 || int(v) >= len(s.X) {
		return 0
	}
	return s.X[v]
}

// Solver solves a Model. A non-nil error always accompanies a non-optimal status.
type Solver interface {
	Solve(ctx context.Context, m *Model) (*Solution, error)
}

// DefaultDenseLimit is the largest standard form, in rows times columns, that
// Auto hands to the dense simplex.
const DefaultDenseLimit = 250_000

// Auto solves small models with the dense simplex, which returns vertex
// solutions, and larger ones with the sparse interior-point method.
type Auto struct {
	// Tol is the simplex reduced-cost tolerance. 0 means DefaultTolerance.
	Tol float64
	// DenseLimit overrides DefaultDenseLimit.
	DenseLimit int
}

func (a Auto) Solve(ctx context.Context, m *Model) (*Solution, error) {
	return a.pick(m).Solve(ctx, m)
}

func (a Auto) pick(m *Model) Solver {
	limit := a.DenseLimit
	if limit <= 0 {
		limit = DefaultDenseLimit
	}
	rows, cols := 0, m.NumVars()
	for _, r := range m.rows {
		rows++
		if r.sense != Equal {
			cols++
		}
	}
	if rows*cols <= limit {
		return Simplex{Tol: a.Tol}
	}
	return InteriorPoint{}
}

func statusOf(err error) Status {
	switch {
	case err == nil:
		return StatusOptimal
	case errors.Is(err, ErrInfeasible):
		return StatusInfeasible
	case errors.Is(err, ErrUnbounded):
		return StatusUnbounded
	case errors.Is(err, ErrNodeLimit):
		return StatusNodeLimit
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return StatusCanceled
	default:
		return StatusNumerical
	}
}
