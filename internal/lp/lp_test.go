package lp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimplexSmallLP(t *testing.T) {
	// min x + 2y  s.t. x + y >= 4, x <= 3
	m := NewModel()
	x := m.AddVar("x", 1)
	y := m.AddVar("y", 2)
	m.AddRow("demand", []Term{T(x, 1), T(y, 1)}, GreaterEq, 4)
	m.AddRow("cap", []Term{T(x, 1)}, LessEq, 3)

	sol, err := Simplex{}.Solve(context.Background(), m)
	require.NoError(t, err)
	assert.True(t, sol.IsOptimal())
	assert.InDelta(t, 3, sol.Value(x), 1e-7)
	assert.InDelta(t, 1, sol.Value(y), 1e-7)
	assert.InDelta(t, 5, sol.Objective, 1e-7)
}

func TestSimplexEqualityWithNegativeRHS(t *testing.T) {
	// min x s.t. y - x = -2, y <= 5
	m := NewModel()
	x := m.AddVar("x", 1)
	y := m.AddVar("y", 0)
	m.AddRow("link", []Term{T(y, 1), T(x, -1)}, Equal, -2)
	m.AddRow("cap", []Term{T(y, 1)}, LessEq, 5)

	sol, err := Simplex{}.Solve(context.Background(), m)
	require.NoError(t, err)
	assert.InDelta(t, 2, sol.Value(x), 1e-7)
	assert.InDelta(t, 0, sol.Value(y), 1e-7)
}

func TestSimplexInfeasible(t *testing.T) {
	m := NewModel()
	x := m.AddVar("x", 1)
	m.AddRow("lo", []Term{T(x, 1)}, GreaterEq, 5)
	m.AddRow("hi", []Term{T(x, 1)}, LessEq, 3)

	sol, err := Simplex{}.Solve(context.Background(), m)
	require.ErrorIs(t, err, ErrInfeasible)
	assert.Equal(t, StatusInfeasible, sol.Status)
}

func TestSimplexEmptyRowAfterFixing(t *testing.T) {
	m := NewModel()
	x := m.AddVar("x", 1)
	m.AddRow("need", []Term{T(x, 1)}, GreaterEq, 1)
	m.FixZero(x)

	_, err := Simplex{}.Solve(context.Background(), m)
	require.ErrorIs(t, err, ErrInfeasible)
}

func TestSimplexUnusedColumnIsZero(t *testing.T) {
	m := NewModel()
	x := m.AddVar("x", 1)
	idle := m.AddVar("idle", 3)
	m.AddRow("need", []Term{T(x, 1)}, GreaterEq, 2)

	sol, err := Simplex{}.Solve(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, 0.0, sol.Value(idle))
	assert.InDelta(t, 2, sol.Objective, 1e-7)
}

func TestSimplexCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sol, err := Simplex{}.Solve(ctx, NewModel())
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StatusCanceled, sol.Status)
}

func TestSimplexRedundantRows(t *testing.T) {
	// The three equalities have rank one.
	m := NewModel()
	x := m.AddVar("x", 1)
	y := m.AddVar("y", 2)
	m.AddRow("a", []Term{T(x, 1), T(y, 1)}, Equal, 2)
	m.AddRow("b", []Term{T(x, 1), T(y, 1)}, Equal, 2)
	m.AddRow("c", []Term{T(x, 2), T(y, 2)}, Equal, 4)
	m.AddRow("floor", []Term{T(y, 1)}, GreaterEq, 0.5)

	sol, err := Simplex{}.Solve(context.Background(), m)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, sol.Value(x), 1e-9)
	assert.InDelta(t, 0.5, sol.Value(y), 1e-9)
	assert.InDelta(t, 2.5, sol.Objective, 1e-9)
}

func TestSimplexDegenerateCycle(t *testing.T) {
	// Beale's example cycles under the textbook most-negative rule.
	m := NewModel()
	x4 := m.AddVar("x4", -0.75)
	x5 := m.AddVar("x5", 20)
	x6 := m.AddVar("x6", -0.5)
	x7 := m.AddVar("x7", 6)
	m.AddRow("r1", []Term{T(x4, 0.25), T(x5, -8), T(x6, -1), T(x7, 9)}, LessEq, 0)
	m.AddRow("r2", []Term{T(x4, 0.5), T(x5, -12), T(x6, -0.5), T(x7, 3)}, LessEq, 0)
	m.AddRow("r3", []Term{T(x6, 1)}, LessEq, 1)

	sol, err := Simplex{}.Solve(context.Background(), m)
	require.NoError(t, err)
	assert.InDelta(t, -1.25, sol.Objective, 1e-9)
	assert.InDelta(t, 1, sol.Value(x4), 1e-9)
	assert.InDelta(t, 1, sol.Value(x6), 1e-9)
}

func TestSolversAgree(t *testing.T) {
	models := map[string]func() (*Model, float64){
		"cover": func() (*Model, float64) {
			m := NewModel()
			x := m.AddVar("x", 1)
			y := m.AddVar("y", 2)
			m.AddRow("demand", []Term{T(x, 1), T(y, 1)}, GreaterEq, 4)
			m.AddRow("cap", []Term{T(x, 1)}, LessEq, 3)
			return m, 5
		},
		"negative rhs": func() (*Model, float64) {
			m := NewModel()
			x := m.AddVar("x", 1)
			y := m.AddVar("y", 0)
			m.AddRow("link", []Term{T(y, 1), T(x, -1)}, Equal, -2)
			m.AddRow("cap", []Term{T(y, 1)}, LessEq, 5)
			return m, 2
		},
		"redundant": func() (*Model, float64) {
			m := NewModel()
			x := m.AddVar("x", 1)
			y := m.AddVar("y", 2)
			m.AddRow("a", []Term{T(x, 1), T(y, 1)}, Equal, 2)
			m.AddRow("b", []Term{T(x, 2), T(y, 2)}, Equal, 4)
			m.AddRow("floor", []Term{T(y, 1)}, GreaterEq, 0.5)
			return m, 2.5
		},
		"degenerate": func() (*Model, float64) {
			m := NewModel()
			x4 := m.AddVar("x4", -0.75)
			x5 := m.AddVar("x5", 20)
			x6 := m.AddVar("x6", -0.5)
			x7 := m.AddVar("x7", 6)
			m.AddRow("r1", []Term{T(x4, 0.25), T(x5, -8), T(x6, -1), T(x7, 9)}, LessEq, 0)
			m.AddRow("r2", []Term{T(x4, 0.5), T(x5, -12), T(x6, -0.5), T(x7, 3)}, LessEq, 0)
			m.AddRow("r3", []Term{T(x6, 1)}, LessEq, 1)
			return m, -1.25
		},
	}
	solvers := map[string]Solver{
		"simplex":        Simplex{},
		"interior point": InteriorPoint{},
		"auto":           Auto{},
	}
	for mname, build := range models {
		for sname, s := range solvers {
			t.Run(mname+"/"+sname, func(t *testing.T) {
				m, want := build()
				sol, err := s.Solve(context.Background(), m)
				require.NoError(t, err)
				assert.True(t, sol.IsOptimal())
				assert.InDelta(t, want, sol.Objective, 1e-6)
				for v := 0; v < m.NumVars(); v++ {
					assert.GreaterOrEqual(t, sol.Value(Var(v)), 0.0)
				}
			})
		}
	}
}

func TestInteriorPointInfeasible(t *testing.T) {
	m := NewModel()
	x := m.AddVar("x", 1)
	m.AddRow("lo", []Term{T(x, 1)}, GreaterEq, 5)
	m.AddRow("hi", []Term{T(x, 1)}, LessEq, 3)

	sol, err := InteriorPoint{}.Solve(context.Background(), m)
	require.ErrorIs(t, err, ErrInfeasible)
	assert.Equal(t, StatusInfeasible, sol.Status)
}

func TestInteriorPointCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sol, err := InteriorPoint{}.Solve(ctx, NewModel())
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StatusCanceled, sol.Status)
}

func TestAutoPicksBackend(t *testing.T) {
	m := NewModel()
	x := m.AddVar("x", 1)
	y := m.AddVar("y", 1)
	m.AddRow("need", []Term{T(x, 1), T(y, 1)}, GreaterEq, 1)

	assert.IsType(t, Simplex{}, Auto{}.pick(m))
	assert.IsType(t, InteriorPoint{}, Auto{DenseLimit: 2}.pick(m))
}

func TestLDLSolvesQuasiDefinite(t *testing.T) {
	// [-2 1 0; 1 -3 1; 0 1 4] with the off-diagonals in vals.
	vals := []float64{1, 1}
	f := newLDL(3, []upperEntry{{row: 1, col: 2, idx: 1}, {row: 0, col: 1, idx: 0}})
	f.factor([]float64{-2, -3, 4}, vals)
	assert.Equal(t, 2, f.nnz())

	x := []float64{1, 2, 3}
	f.solve(x)
	got := []float64{
		-2*x[0] + x[1],
		x[0] - 3*x[1] + x[2],
		x[1] + 4*x[2],
	}
	assert.InDeltaSlice(t, []float64{1, 2, 3}, got, 1e-12)
}

func TestRCMOrderPutsDenseNodesLast(t *testing.T) {
	// A path 0-1-2-3 with node 4 joined to all of them.
	adj := [][]int{{1, 4}, {0, 2, 4}, {1, 3, 4}, {2, 4}, {0, 1, 2, 3}}
	order := rcmOrder(adj, []bool{false, false, false, false, true})
	require.Len(t, order, 5)
	assert.Equal(t, 4, order[4])
	assert.ElementsMatch(t, []int{0, 1, 2, 3}, order[:4])
	// Path neighbors stay adjacent in the ordering.
	pos := make([]int, 5)
	for p, v := range order {
		pos[v] = p
	}
	for v := 0; v < 3; v++ {
		d := pos[v] - pos[v+1]
		assert.Contains(t, []int{-1, 1}, d)
	}
}

func TestBranchAndBoundEnforcesPairs(t *testing.T) {
	// min -a - b + 0.5c  s.t. a + b <= 2 + c, a <= 1.5, b <= 1.5.
	// The relaxation sets both a and b positive; with a·b = 0 the best is a=1.5 (or b).
	m := NewModel()
	a := m.AddVar("a", -1)
	b := m.AddVar("b", -1)
	c := m.AddVar("c", 0.5)
	m.AddRow("joint", []Term{T(a, 1), T(b, 1), T(c, -1)}, LessEq, 2)
	m.AddRow("capA", []Term{T(a, 1)}, LessEq, 1.5)
	m.AddRow("capB", []Term{T(b, 1)}, LessEq, 1.5)

	relaxed, err := Simplex{}.Solve(context.Background(), m)
	require.NoError(t, err)
	assert.InDelta(t, -2.5, relaxed.Objective, 1e-7)

	sol, err := BranchAndBound{LP: Simplex{}}.SolvePairs(context.Background(), m, []Pair{{A: a, B: b}})
	require.NoError(t, err)
	assert.InDelta(t, -1.5, sol.Objective, 1e-7)
	assert.InDelta(t, 0, sol.Value(a)*sol.Value(b), 1e-9)
	assert.Greater(t, sol.Nodes, 1)
}

func TestBranchAndBoundNodeLimit(t *testing.T) {
	m := NewModel()
	a := m.AddVar("a", -1)
	b := m.AddVar("b", -1)
	m.AddRow("capA", []Term{T(a, 1)}, LessEq, 1)
	m.AddRow("capB", []Term{T(b, 1)}, LessEq, 1)

	sol, err := BranchAndBound{LP: Simplex{}, MaxNodes: 1}.SolvePairs(context.Background(), m, []Pair{{A: a, B: b}})
	require.ErrorIs(t, err, ErrNodeLimit)
	assert.Equal(t, StatusNodeLimit, sol.Status)
}

func TestCloneIsIndependent(t *testing.T) {
	m := NewModel()
	x := m.AddVar("x", 1)
	c := m.Clone()
	c.FixZero(x)
	c.SetCost(x, 7)
	assert.False(t, m.IsFixed(x))
	assert.True(t, c.IsFixed(x))
	assert.Equal(t, 1.0, m.Objective([]float64{1}))
}
