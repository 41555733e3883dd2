package lp

import (
	"context"
	"errors"
	"math"
)

// Pair is a complementarity requirement: at most one of A and B may be non-zero.
type Pair struct {
	A, B Var
}

// BranchAndBound enforces complementarity pairs on top of an LP solver by
// branching on the disjunction A = 0 or B = 0. This is the binary on/off
// formulation without a big-M constant: each branch fixes a column to zero.
type BranchAndBound struct {
	LP Solver
	// MaxNodes bounds the number of relaxations. 0 means DefaultMaxNodes.
	MaxNodes int
	// Epsilon is the value above which both members of a pair count as active.
	Epsilon float64
	// Gap prunes nodes whose bound is within Gap (relative) of the incumbent.
	Gap float64
}

const DefaultMaxNodes = 500

type bbNode struct {
	model *Model
	depth int
}

// SolvePairs solves m subject to the complementarity pairs.
// If the node limit is hit with an incumbent the incumbent is returned with
// StatusNodeLimit and ErrNodeLimit.
func (bb BranchAndBound) SolvePairs(ctx context.Context, m *Model, pairs []Pair) (*Solution, error) {
	maxNodes := bb.MaxNodes
	if maxNodes <= 0 {
		maxNodes = DefaultMaxNodes
	}
	eps := bb.Epsilon
	if eps <= 0 {
		eps = 1e-6
	}

	var best *Solution
	nodes := 0
	var lastErr error
	stack := []bbNode{{model: m}}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return &Solution{Status: StatusCanceled, Nodes: nodes}, err
		}
		if nodes >= maxNodes {
			if best == nil {
				return &Solution{Status: StatusNodeLimit, Nodes: nodes}, ErrNodeLimit
			}
			best.Status = StatusNodeLimit
			best.Nodes = nodes
			return best, ErrNodeLimit
		}
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		nodes++

		sol, err := bb.LP.Solve(ctx, n.model)
		if err != nil {
			if errors.Is(err, ErrInfeasible) {
				continue
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return &Solution{Status: StatusCanceled, Nodes: nodes}, err
			}
			lastErr = err
			continue
		}
		if best != nil && sol.Objective >= best.Objective-bb.gapFor(best.Objective) {
			continue
		}

		branch, violation := -1, 0.0
		for i, p := range pairs {
			v := math.Min(sol.Value(p.A), sol.Value(p.B))
			if v > eps && v > violation {
				branch, violation = i, v
			}
		}
		if branch < 0 {
			best = sol
			continue
		}

		// Explore the branch that zeroes the smaller flow first; it is the
		// cheaper repair of the relaxation and tends to find incumbents early.
		p := pairs[branch]
		first, second := p.A, p.B
		if sol.Value(p.A) > sol.Value(p.B) {
			first, second = p.B, p.A
		}
		later := n.model.Clone()
		later.FixZero(second)
		sooner := n.model.Clone()
		sooner.FixZero(first)
		stack = append(stack, bbNode{model: later, depth: n.depth + 1}, bbNode{model: sooner, depth: n.depth + 1})
	}

	if best == nil {
		if lastErr != nil {
			return &Solution{Status: statusOf(lastErr), Nodes: nodes}, lastErr
		}
		return &Solution{Status: StatusInfeasible, Nodes: nodes}, ErrInfeasible
	}
	best.Nodes = nodes
	if lastErr != nil {
		// A subtree was abandoned, so optimality is not proven.
		best.Status = statusOf(lastErr)
		return best, lastErr
	}
	best.Status = StatusOptimal
	return best, nil
}

func (bb BranchAndBound) gapFor(obj float64) float64 {
	if bb.Gap <= 0 {
		return 1e-9 * math.Max(1, math.Abs(obj))
	}
	return bb.Gap * math.Max(1, math.Abs(obj))
}
