package lp

import (
	"fmt"
	"math"
)

type entry struct {
	col int
	val float64
}

// standardForm is min cᵀx s.t. Ax = b, x >= 0 over the kept model columns
// followed by one slack column per inequality row. A is stored by row.
type standardForm struct {
	c    []float64
	b    []float64
	rows [][]entry
	n    int   // columns including slacks
	cols []int // standard-form column -> model Var, for model columns only
}

func toStandardForm(m *Model, tol float64) (*standardForm, error) {
	used := make([]bool, m.NumVars())
	var rows []row
	for _, r := range m.rows {
		live := make([]Term, 0, len(r.terms))
		for _, t := range r.terms {
			if !m.fixed[t.Var] {
				live = append(live, t)
			}
		}
		if len(live) == 0 {
			if !emptyRowFeasible(r.sense, r.rhs, tol) {
				return nil, fmt.Errorf("%w: row %q reduces to 0 %s %v", ErrInfeasible, r.name, r.sense, r.rhs)
			}
			continue
		}
		for _, t := range live {
			used[t.Var] = true
		}
		rows = append(rows, row{name: r.name, terms: live, sense: r.sense, rhs: r.rhs})
	}

	colOf := make([]int, m.NumVars())
	var cols []int
	for j := range used {
		colOf[j] = -1
		if !used[j] || m.fixed[j] {
			if !m.fixed[j] && m.cost[j] < 0 {
				return nil, fmt.Errorf("%w: var %q has negative cost and no constraints", ErrUnbounded, m.names[j])
			}
			continue
		}
		colOf[j] = len(cols)
		cols = append(cols, j)
	}

	nSlack := 0
	for _, r := range rows {
		if r.sense != Equal {
			nSlack++
		}
	}
	sf := &standardForm{
		c:    make([]float64, len(cols)+nSlack),
		b:    make([]float64, len(rows)),
		rows: make([][]entry, len(rows)),
		n:    len(cols) + nSlack,
		cols: cols,
	}
	for k, j := range cols {
		sf.c[k] = m.cost[j]
	}
	slack := len(cols)
	at := make(map[int]int)
	for i, r := range rows {
		clear(at)
		es := make([]entry, 0, len(r.terms)+1)
		for _, t := range r.terms {
			k := colOf[t.Var]
			if p, ok := at[k]; ok {
				es[p].val += t.Coef
				continue
			}
			at[k] = len(es)
			es = append(es, entry{col: k, val: t.Coef})
		}
		switch r.sense {
		case LessEq:
			es = append(es, entry{col: slack, val: 1})
			slack++
		case GreaterEq:
			es = append(es, entry{col: slack, val: -1})
			slack++
		}
		sf.rows[i] = es
		sf.b[i] = r.rhs
	}
	return sf, nil
}

// nnz counts the stored entries of A.
func (sf *standardForm) nnz() int {
	n := 0
	for _, r := range sf.rows {
		n += len(r)
	}
	return n
}

// scatter copies standard-form values back to model columns. Slacks are dropped
// and round-off below zero is clipped.
func (sf *standardForm) scatter(xs, x []float64) {
	for k, j := range sf.cols {
		if k < len(xs) && xs[k] > 0 {
			x[j] = xs[k]
		}
	}
}

func emptyRowFeasible(sense Sense, rhs, tol float64) bool {
	switch sense {
	case LessEq:
		return rhs >= -tol
	case GreaterEq:
		return rhs <= tol
	default:
		return math.Abs(rhs) <= tol
	}
}
