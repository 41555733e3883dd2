package lp

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

const (
	// DefaultIPMTolerance bounds the relative primal and dual residuals and the
	// relative duality gap at which the interior-point method stops.
	DefaultIPMTolerance = 1e-8
	DefaultIPMMaxIter   = 100

	primalReg   = 1e-8
	dualReg     = 1e-8
	refineSteps = 2
)

var errNoProgress = errors.New("lp: interior point stalled")

// InteriorPoint is a Mehrotra predictor-corrector method on the standard form.
// Each iteration factors the regularized augmented system with a sparse LDLᵀ
// under a reverse Cuthill-McKee ordering that puts dense rows and columns last,
// so a long horizon factors in time linear in its length.
//
// The solution is interior to the optimal face, not a vertex. When the method
// stalls a feasibility problem is solved to tell infeasible models apart.
type InteriorPoint struct {
	Tol     float64
	MaxIter int
}

func (ip InteriorPoint) tol() float64 {
	if ip.Tol > 0 {
		return ip.Tol
	}
	return DefaultIPMTolerance
}

func (ip InteriorPoint) maxIter() int {
	if ip.MaxIter > 0 {
		return ip.MaxIter
	}
	return DefaultIPMMaxIter
}

func (ip InteriorPoint) Solve(ctx context.Context, m *Model) (*Solution, error) {
	if err := ctx.Err(); err != nil {
		return &Solution{Status: StatusCanceled}, err
	}
	sf, err := toStandardForm(m, DefaultTolerance)
	if err != nil {
		return &Solution{Status: statusOf(err), Nodes: 1}, err
	}

	x := make([]float64, m.NumVars())
	if len(sf.rows) > 0 {
		xs, err := ip.run(ctx, sf)
		if errors.Is(err, errNoProgress) {
			err = ip.diagnose(ctx, sf, err)
		}
		if err != nil {
			return &Solution{Status: statusOf(err), Nodes: 1}, err
		}
		sf.scatter(xs, x)
	}
	return &Solution{Status: StatusOptimal, Objective: m.Objective(x), X: x, Nodes: 1}, nil
}

// diagnose solves min Σ|Ax - b| over x >= 0, which always has an optimum, and
// reports the model infeasible when that optimum is not zero.
func (ip InteriorPoint) diagnose(ctx context.Context, sf *standardForm, cause error) error {
	aux := &standardForm{
		c:    make([]float64, sf.n+2*len(sf.rows)),
		b:    sf.b,
		rows: make([][]entry, len(sf.rows)),
		n:    sf.n + 2*len(sf.rows),
	}
	for i, r := range sf.rows {
		es := make([]entry, len(r), len(r)+2)
		copy(es, r)
		up, down := sf.n+2*i, sf.n+2*i+1
		aux.rows[i] = append(es, entry{col: up, val: 1}, entry{col: down, val: -1})
		aux.c[up], aux.c[down] = 1, 1
	}
	xa, err := ip.run(ctx, aux)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return fmt.Errorf("%w (%v)", ErrNumerical, cause)
	}
	residual := floats.Sum(xa[sf.n:])
	scale := 1.0
	for _, v := range sf.b {
		scale = math.Max(scale, math.Abs(v))
	}
	if residual > 1e-6*scale {
		return fmt.Errorf("%w: rows cannot be met within %.3g", ErrInfeasible, residual)
	}
	return fmt.Errorf("%w (%v)", ErrNumerical, cause)
}

func (ip InteriorPoint) run(ctx context.Context, sf *standardForm) ([]float64, error) {
	n, m := sf.n, len(sf.rows)
	tol := ip.tol()

	// Work on b and c scaled to unit size.
	bs, cs := 1.0, 1.0
	for _, v := range sf.b {
		bs = math.Max(bs, math.Abs(v))
	}
	for _, v := range sf.c {
		cs = math.Max(cs, math.Abs(v))
	}
	b := make([]float64, m)
	floats.ScaleTo(b, 1/bs, sf.b)
	c := make([]float64, n)
	floats.ScaleTo(c, 1/cs, sf.c)
	nb, nc := floats.Norm(b, 2), floats.Norm(c, 2)

	k := newKKT(sf)

	// Mehrotra's starting point: least-norm x and least-squares (y, z), shifted
	// into the positive orthant.
	ones := make([]float64, n)
	for j := range ones {
		ones[j] = 1
	}
	k.factor(ones)
	x, _ := k.solve(ones, make([]float64, n), b)
	negC := make([]float64, n)
	floats.ScaleTo(negC, -1, c)
	z, y := k.solve(ones, negC, make([]float64, m))
	floats.Scale(-1, y)

	shift := func(v []float64) {
		if d := -1.5 * floats.Min(v); d > 0 {
			floats.AddConst(d, v)
		}
	}
	shift(x)
	shift(z)
	xz := floats.Dot(x, z)
	if xz <= 0 {
		for j := range x {
			x[j] = math.Max(x[j], 1)
			z[j] = math.Max(z[j], 1)
		}
		xz = floats.Dot(x, z)
	}
	sx, sz := floats.Sum(x), floats.Sum(z)
	floats.AddConst(0.5*xz/sz, x)
	floats.AddConst(0.5*xz/sx, z)

	rp := make([]float64, m)
	rd := make([]float64, n)
	theta := make([]float64, n)
	rc := make([]float64, n)
	r1 := make([]float64, n)
	dz := make([]float64, n)
	dzAff := make([]float64, n)

	direction := func(rc, dz []float64) (dx, dy []float64) {
		for j := 0; j < n; j++ {
			r1[j] = rd[j] - rc[j]/x[j]
		}
		dx, dy = k.solve(theta, r1, rp)
		for j := 0; j < n; j++ {
			dz[j] = (rc[j] - z[j]*dx[j]) / x[j]
		}
		return dx, dy
	}

	mu0 := 0.0
	for it := 0; it < ip.maxIter(); it++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		k.residuals(x, y, z, b, c, rp, rd)
		mu := floats.Dot(x, z) / float64(n)
		if it == 0 {
			mu0 = mu
		}
		pobj, dobj := floats.Dot(c, x), floats.Dot(b, y)
		pres := floats.Norm(rp, 2) / (1 + nb)
		dres := floats.Norm(rd, 2) / (1 + nc)
		gap := math.Abs(pobj-dobj) / (1 + math.Abs(pobj))
		if pres < tol && dres < tol && gap < tol {
			floats.Scale(bs, x)
			return x, nil
		}
		if mu < 1e-14*mu0 || math.IsNaN(pres+dres+gap) {
			return nil, fmt.Errorf("%w after %d iterations (primal %.2g dual %.2g gap %.2g)", errNoProgress, it, pres, dres, gap)
		}

		for j := 0; j < n; j++ {
			theta[j] = z[j] / x[j]
		}
		k.factor(theta)

		// Predictor.
		for j := 0; j < n; j++ {
			rc[j] = -x[j] * z[j]
		}
		dxAff, _ := direction(rc, dzAff)
		ap, ad := maxStep(x, dxAff), maxStep(z, dzAff)
		muAff := 0.0
		for j := 0; j < n; j++ {
			muAff += (x[j] + ap*dxAff[j]) * (z[j] + ad*dzAff[j])
		}
		muAff /= float64(n)
		sigma := math.Pow(muAff/mu, 3)

		// Corrector.
		for j := 0; j < n; j++ {
			rc[j] = sigma*mu - x[j]*z[j] - dxAff[j]*dzAff[j]
		}
		dx, dy := direction(rc, dz)
		ap = math.Min(1, 0.995*maxStep(x, dx))
		ad = math.Min(1, 0.995*maxStep(z, dz))
		floats.AddScaled(x, ap, dx)
		floats.AddScaled(y, ad, dy)
		floats.AddScaled(z, ad, dz)
	}
	return nil, fmt.Errorf("%w: iteration limit %d reached", errNoProgress, ip.maxIter())
}

func maxStep(v, dv []float64) float64 {
	a := 1.0
	for i, d := range dv {
		if d < 0 {
			a = math.Min(a, -v[i]/d)
		}
	}
	return a
}

// kkt holds the augmented system [-Θ⁻¹ Aᵀ; A 0] of one standard form. Node j < n
// is column j of A and node n+i is row i.
type kkt struct {
	n, m   int
	ri, ci []int
	av     []float64
	inv    []int // node -> position in the factor
	f      *ldl
	diag   []float64
	rhs    []float64
}

func newKKT(sf *standardForm) *kkt {
	n, m := sf.n, len(sf.rows)
	nodes := n + m
	k := &kkt{
		n:    n,
		m:    m,
		ri:   make([]int, 0, sf.nnz()),
		ci:   make([]int, 0, sf.nnz()),
		av:   make([]float64, 0, sf.nnz()),
		inv:  make([]int, nodes),
		diag: make([]float64, nodes),
		rhs:  make([]float64, nodes),
	}
	adj := make([][]int, nodes)
	for i, r := range sf.rows {
		for _, e := range r {
			k.ri = append(k.ri, i)
			k.ci = append(k.ci, e.col)
			k.av = append(k.av, e.val)
			adj[e.col] = append(adj[e.col], n+i)
			adj[n+i] = append(adj[n+i], e.col)
		}
	}

	threshold := math.Max(32, 20*float64(len(k.av))/float64(nodes))
	dense := make([]bool, nodes)
	for v, a := range adj {
		dense[v] = float64(len(a)) > threshold
	}
	for p, v := range rcmOrder(adj, dense) {
		k.inv[v] = p
	}

	entries := make([]upperEntry, len(k.av))
	for idx := range k.av {
		p, q := k.inv[k.ci[idx]], k.inv[n+k.ri[idx]]
		if p > q {
			p, q = q, p
		}
		entries[idx] = upperEntry{row: p, col: q, idx: idx}
	}
	k.f = newLDL(nodes, entries)
	return k
}

func (k *kkt) factor(theta []float64) {
	for j := 0; j < k.n; j++ {
		k.diag[k.inv[j]] = -(theta[j] + primalReg)
	}
	for i := 0; i < k.m; i++ {
		k.diag[k.inv[k.n+i]] = dualReg
	}
	k.f.factor(k.diag, k.av)
}

// solve returns (u, v) with -Θ⁻¹u + Aᵀv = r1 and Au = r2, refining the
// regularized solution against the exact system.
func (k *kkt) solve(theta, r1, r2 []float64) (u, v []float64) {
	u = make([]float64, k.n)
	v = make([]float64, k.m)
	e1 := make([]float64, k.n)
	e2 := make([]float64, k.m)
	copy(e1, r1)
	copy(e2, r2)
	for step := 0; ; step++ {
		for j := 0; j < k.n; j++ {
			k.rhs[k.inv[j]] = e1[j]
		}
		for i := 0; i < k.m; i++ {
			k.rhs[k.inv[k.n+i]] = e2[i]
		}
		k.f.solve(k.rhs)
		for j := 0; j < k.n; j++ {
			u[j] += k.rhs[k.inv[j]]
		}
		for i := 0; i < k.m; i++ {
			v[i] += k.rhs[k.inv[k.n+i]]
		}
		if step == refineSteps {
			return u, v
		}

		for j := 0; j < k.n; j++ {
			e1[j] = r1[j] + theta[j]*u[j]
		}
		copy(e2, r2)
		for idx, a := range k.av {
			e1[k.ci[idx]] -= a * v[k.ri[idx]]
			e2[k.ri[idx]] -= a * u[k.ci[idx]]
		}
	}
}

// residuals sets rp = b - Ax and rd = c - Aᵀy - z.
func (k *kkt) residuals(x, y, z, b, c, rp, rd []float64) {
	copy(rp, b)
	floats.SubTo(rd, c, z)
	for idx, a := range k.av {
		rp[k.ri[idx]] -= a * x[k.ci[idx]]
		rd[k.ci[idx]] -= a * y[k.ri[idx]]
	}
}
