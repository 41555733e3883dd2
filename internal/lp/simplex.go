package lp

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// DefaultTolerance is the reduced-cost tolerance of the simplex.
const DefaultTolerance = 1e-9

const (
	pivotTol = 1e-9
	tieTol   = 1e-12
	// dropTol is the smallest entry accepted when pivoting an artificial
	// column out of the basis after phase one.
	dropTol = 1e-7
	// blandAfter is the run of degenerate pivots after which the entering
	// column switches from most-negative to lowest-index.
	blandAfter = 50
)

// Simplex is a dense two-phase tableau simplex. Phase one starts from the slack
// basis where one exists and artificials elsewhere, so it never needs A to have
// full row rank: rows left with a zero artificial and no usable pivot are
// dropped as redundant. Long degenerate runs fall back to Bland's rule.
type Simplex struct {
	Tol float64
}

func (s Simplex) tol() float64 {
	if s.Tol > 0 {
		return s.Tol
	}
	return DefaultTolerance
}

func (s Simplex) Solve(ctx context.Context, m *Model) (*Solution, error) {
	if err := ctx.Err(); err != nil {
		return &Solution{Status: StatusCanceled}, err
	}
	sf, err := toStandardForm(m, s.tol())
	if err != nil {
		return &Solution{Status: statusOf(err), Nodes: 1}, err
	}

	x := make([]float64, m.NumVars())
	if len(sf.rows) > 0 {
		xs, err := newTableau(sf).solve(ctx, sf.c, s.tol())
		if err != nil {
			return &Solution{Status: statusOf(err), Nodes: 1}, err
		}
		sf.scatter(xs, x)
	}
	return &Solution{Status: StatusOptimal, Objective: m.Objective(x), X: x, Nodes: 1}, nil
}

type tableau struct {
	t       *mat.Dense // one row per constraint, the last column is the rhs
	obj     []float64  // reduced costs; obj[width] is minus the objective
	basis   []int
	live    []bool
	n       int // structural and slack columns
	width   int // n plus artificials
	allowed []bool
	pivots  int
}

func newTableau(sf *standardForm) *tableau {
	m := len(sf.rows)
	count := make([]int, sf.n)
	for _, r := range sf.rows {
		for _, e := range r {
			count[e.col]++
		}
	}

	// Rows are flipped to a non-negative rhs. A column that is +1 in a single
	// row is a ready-made basic column for it.
	sign := make([]float64, m)
	basis := make([]int, m)
	taken := make([]bool, sf.n)
	nArt := 0
	for i, r := range sf.rows {
		sign[i] = 1
		if sf.b[i] < 0 {
			sign[i] = -1
		}
		basis[i] = -1
		for _, e := range r {
			if count[e.col] == 1 && e.val*sign[i] == 1 && !taken[e.col] {
				basis[i] = e.col
				taken[e.col] = true
				break
			}
		}
		if basis[i] < 0 {
			basis[i] = sf.n + nArt
			nArt++
		}
	}

	width := sf.n + nArt
	tb := &tableau{
		t:       mat.NewDense(m, width+1, nil),
		obj:     make([]float64, width+1),
		basis:   basis,
		live:    make([]bool, m),
		n:       sf.n,
		width:   width,
		allowed: make([]bool, width),
	}
	for i, r := range sf.rows {
		row := tb.t.RawRowView(i)
		for _, e := range r {
			row[e.col] += sign[i] * e.val
		}
		if basis[i] >= sf.n {
			row[basis[i]] = 1
		}
		row[width] = sign[i] * sf.b[i]
		tb.live[i] = true
	}
	for j := range tb.allowed {
		tb.allowed[j] = true
	}
	return tb
}

func (tb *tableau) rows() int {
	r, _ := tb.t.Dims()
	return r
}

func (tb *tableau) pivot(r, s int) {
	w := tb.width
	pr := tb.t.RawRowView(r)
	floats.Scale(1/pr[s], pr)
	pr[s] = 1
	if pr[w] < 0 {
		pr[w] = 0
	}
	for i := 0; i < tb.rows(); i++ {
		if i == r || !tb.live[i] {
			continue
		}
		ri := tb.t.RawRowView(i)
		if f := ri[s]; f != 0 {
			floats.AddScaled(ri, -f, pr)
			ri[s] = 0
		}
		if ri[w] < 0 {
			ri[w] = 0
		}
	}
	if f := tb.obj[s]; f != 0 {
		floats.AddScaled(tb.obj, -f, pr)
		tb.obj[s] = 0
	}
	tb.basis[r] = s
	tb.pivots++
}

// iterate pivots until no reduced cost is below -tol.
func (tb *tableau) iterate(ctx context.Context, tol float64) error {
	w := tb.width
	limit := 50 * (tb.rows() + w)
	degenerate := 0
	for {
		if tb.pivots%64 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if tb.pivots > limit {
			return fmt.Errorf("%w: pivot limit %d reached", ErrNumerical, limit)
		}

		bland := degenerate > blandAfter
		s, best := -1, -tol
		for j := 0; j < w; j++ {
			if tb.allowed[j] && tb.obj[j] < best {
				s = j
				if bland {
					break
				}
				best = tb.obj[j]
			}
		}
		if s < 0 {
			return nil
		}

		r, ratio, piv := -1, 0.0, 0.0
		for i := 0; i < tb.rows(); i++ {
			if !tb.live[i] {
				continue
			}
			row := tb.t.RawRowView(i)
			a := row[s]
			if a <= pivotTol {
				continue
			}
			q := row[w] / a
			switch {
			case r < 0, q < ratio-tieTol:
				r, ratio, piv = i, q, a
			case math.Abs(q-ratio) <= tieTol:
				if (bland && tb.basis[i] < tb.basis[r]) || (!bland && a > piv) {
					r, ratio, piv = i, q, a
				}
			}
		}
		if r < 0 {
			return fmt.Errorf("%w: column %d improves without bound", ErrUnbounded, s)
		}
		if ratio <= tieTol {
			degenerate++
		} else {
			degenerate = 0
		}
		tb.pivot(r, s)
	}
}

func (tb *tableau) solve(ctx context.Context, c []float64, tol float64) ([]float64, error) {
	w := tb.width
	if w > tb.n {
		// Phase one: minimize the sum of artificials.
		for j := tb.n; j < w; j++ {
			tb.obj[j] = 1
		}
		maxRHS := 1.0
		for i := 0; i < tb.rows(); i++ {
			row := tb.t.RawRowView(i)
			maxRHS = math.Max(maxRHS, row[w])
			if tb.basis[i] >= tb.n {
				floats.Sub(tb.obj, row)
			}
		}
		if err := tb.iterate(ctx, tol); err != nil {
			return nil, err
		}
		if infeas := -tb.obj[w]; infeas > 1e3*tol*maxRHS {
			return nil, fmt.Errorf("%w: phase one ends %.3g above zero", ErrInfeasible, infeas)
		}

		for i := 0; i < tb.rows(); i++ {
			if !tb.live[i] || tb.basis[i] < tb.n {
				continue
			}
			row := tb.t.RawRowView(i)
			best, size := -1, dropTol
			for j := 0; j < tb.n; j++ {
				if a := math.Abs(row[j]); a > size {
					best, size = j, a
				}
			}
			if best < 0 {
				tb.live[i] = false
				continue
			}
			tb.pivot(i, best)
		}
		for j := tb.n; j < w; j++ {
			tb.allowed[j] = false
		}
	}

	// Phase two: price out the basis against the real costs.
	for j := range tb.obj {
		tb.obj[j] = 0
	}
	copy(tb.obj, c)
	for i := 0; i < tb.rows(); i++ {
		if !tb.live[i] || tb.basis[i] >= tb.n {
			continue
		}
		if cb := c[tb.basis[i]]; cb != 0 {
			floats.AddScaled(tb.obj, -cb, tb.t.RawRowView(i))
		}
	}
	scale := 1.0
	for _, v := range c {
		scale = math.Max(scale, math.Abs(v))
	}
	if err := tb.iterate(ctx, tol*scale); err != nil {
		return nil, err
	}

	x := make([]float64, tb.n)
	for i := 0; i < tb.rows(); i++ {
		if tb.live[i] && tb.basis[i] < tb.n {
			x[tb.basis[i]] = tb.t.At(i, w)
		}
	}
	return x, nil
}
