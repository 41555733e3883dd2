package lp

import (
	"math"
	"sort"
)

// ldl is a sparse LDLᵀ factorization of a symmetric matrix whose pattern is
// fixed and whose values change between factorizations. The upper triangle is
// given column by column under a fill-reducing permutation; the analysis runs
// once and factor reuses it.
//
// Quasi-definite matrices (negative definite block, positive definite block)
// factor stably under any symmetric permutation, so no pivoting is done.
type ldl struct {
	n      int
	upPtr  []int // column k of the upper triangle is upRow/upVal[upPtr[k]:upPtr[k+1]]
	upRow  []int
	upVal  []int // index into the caller's value slice
	parent []int // elimination tree
	lp     []int // column j of L is li/lx[lp[j]:lp[j]+lnz[j]]
	li     []int
	lx     []float64
	lnz    []int
	d      []float64

	// scratch
	y       []float64
	flag    []int
	pattern []int
}

// upperEntry is an off-diagonal entry (row < col) referring to vals[idx].
type upperEntry struct {
	row, col, idx int
}

func newLDL(n int, entries []upperEntry) *ldl {
	f := &ldl{
		n:       n,
		upPtr:   make([]int, n+1),
		parent:  make([]int, n),
		lp:      make([]int, n+1),
		lnz:     make([]int, n),
		d:       make([]float64, n),
		y:       make([]float64, n),
		flag:    make([]int, n),
		pattern: make([]int, n),
	}
	sort.Slice(entries, func(a, b int) bool {
		if entries[a].col != entries[b].col {
			return entries[a].col < entries[b].col
		}
		return entries[a].row < entries[b].row
	})
	f.upRow = make([]int, len(entries))
	f.upVal = make([]int, len(entries))
	for p, e := range entries {
		f.upPtr[e.col+1]++
		f.upRow[p] = e.row
		f.upVal[p] = e.idx
	}
	for k := 0; k < n; k++ {
		f.upPtr[k+1] += f.upPtr[k]
	}

	// Elimination tree and column counts of L.
	for k := 0; k < n; k++ {
		f.parent[k] = -1
		f.flag[k] = k
		for p := f.upPtr[k]; p < f.upPtr[k+1]; p++ {
			for i := f.upRow[p]; f.flag[i] != k; i = f.parent[i] {
				if f.parent[i] == -1 {
					f.parent[i] = k
				}
				f.lnz[i]++
				f.flag[i] = k
			}
		}
	}
	for k := 0; k < n; k++ {
		f.lp[k+1] = f.lp[k] + f.lnz[k]
	}
	f.li = make([]int, f.lp[n])
	f.lx = make([]float64, f.lp[n])
	return f
}

// nnz is the number of off-diagonal entries of L.
func (f *ldl) nnz() int { return f.lp[f.n] }

// factor computes L and D from the permuted diagonal and the off-diagonal values.
// A pivot that underflows is replaced by a tiny value of the same sign.
func (f *ldl) factor(diag, vals []float64) {
	n := f.n
	for k := 0; k < n; k++ {
		f.lnz[k] = 0
	}
	for k := 0; k < n; k++ {
		f.y[k] = 0
		top := n
		f.flag[k] = k
		for p := f.upPtr[k]; p < f.upPtr[k+1]; p++ {
			i := f.upRow[p]
			f.y[i] += vals[f.upVal[p]]
			ln := 0
			for ; f.flag[i] != k; i = f.parent[i] {
				f.pattern[ln] = i
				ln++
				f.flag[i] = k
			}
			for ln > 0 {
				top--
				ln--
				f.pattern[top] = f.pattern[ln]
			}
		}
		dk := diag[k]
		for ; top < n; top++ {
			i := f.pattern[top]
			yi := f.y[i]
			f.y[i] = 0
			end := f.lp[i] + f.lnz[i]
			for p := f.lp[i]; p < end; p++ {
				f.y[f.li[p]] -= f.lx[p] * yi
			}
			l := yi / f.d[i]
			dk -= l * yi
			f.li[end] = k
			f.lx[end] = l
			f.lnz[i]++
		}
		if math.Abs(dk) < 1e-30 {
			dk = math.Copysign(1e-30, dk)
		}
		f.d[k] = dk
	}
}

// solve overwrites x with the solution of LDLᵀx = x.
func (f *ldl) solve(x []float64) {
	for j := 0; j < f.n; j++ {
		xj := x[j]
		for p := f.lp[j]; p < f.lp[j]+f.lnz[j]; p++ {
			x[f.li[p]] -= f.lx[p] * xj
		}
	}
	for j := 0; j < f.n; j++ {
		x[j] /= f.d[j]
	}
	for j := f.n - 1; j >= 0; j-- {
		for p := f.lp[j]; p < f.lp[j]+f.lnz[j]; p++ {
			x[j] -= f.lx[p] * x[f.li[p]]
		}
	}
}

// rcmOrder returns a reverse Cuthill-McKee ordering of the graph with the dense
// nodes moved to the end. adj must list each neighbor once.
func rcmOrder(adj [][]int, dense []bool) []int {
	n := len(adj)
	deg := make([]int, n)
	for v, a := range adj {
		deg[v] = len(a)
	}
	byDegree := func(vs []int) {
		sort.Slice(vs, func(a, b int) bool {
			if deg[vs[a]] != deg[vs[b]] {
				return deg[vs[a]] < deg[vs[b]]
			}
			return vs[a] < vs[b]
		})
	}

	visited := make([]bool, n)
	starts := make([]int, 0, n)
	for v := 0; v < n; v++ {
		if dense[v] {
			visited[v] = true
			continue
		}
		starts = append(starts, v)
	}
	byDegree(starts)

	order := make([]int, 0, n)
	var nb []int
	for _, s := range starts {
		if visited[s] {
			continue
		}
		visited[s] = true
		head := len(order)
		order = append(order, s)
		for ; head < len(order); head++ {
			nb = nb[:0]
			for _, w := range adj[order[head]] {
				if !visited[w] {
					nb = append(nb, w)
				}
			}
			byDegree(nb)
			for _, w := range nb {
				visited[w] = true
				order = append(order, w)
			}
		}
	}
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	for v := 0; v < n; v++ {
		if dense[v] {
			order = append(order, v)
		}
	}
	return order
}
