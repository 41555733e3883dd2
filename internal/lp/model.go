// Package lp builds linear programs row by row and solves them with a dense
// two-phase simplex or a sparse interior-point method.
//
// Every variable is non-negative. Rows are stored sparsely; only the simplex
// densifies them, and Auto keeps it to small models.
package lp

import "fmt"

// Var indexes a column of a Model.
type Var int

// Sense is the relation of a row to its right-hand side.
type Sense int

const (
	LessEq Sense = iota
	GreaterEq
	Equal
)

func (s Sense) String() string {
	switch s {
	case LessEq:
		return "<="
	case GreaterEq:
		return ">="
	case Equal:
		return "="
	default:
		return fmt.Sprintf("Sense(%d)", int(s))
	}
}

// Term is one coefficient of a row.
type Term struct {
	Var  Var
	Coef float64
}

// T is shorthand for a Term.
func T(v Var, coef float64) Term { return Term{Var: v, Coef: coef} }

type row struct {
	name  string
	terms []Term
	sense Sense
	rhs   float64
}

// Model is a minimization LP over non-negative variables.
type Model struct {
	names []string
	cost  []float64
	fixed []bool
	rows  []row
}

func NewModel() *Model {
	return &Model{}
}

// AddVar adds a non-negative column with the given objective coefficient.
func (m *Model) AddVar(name string, cost float64) Var {
	m.names = append(m.names, name)
	m.cost = append(m.cost, cost)
	m.fixed = append(m.fixed, false)
	return Var(len(m.names) - 1)
}

// AddRow adds sum(terms) <sense> rhs. Zero coefficients are dropped.
func (m *Model) AddRow(name string, terms []Term, sense Sense, rhs float64) {
	kept := make([]Term, 0, len(terms))
	for _, t := range terms {
		if t.Coef == 0 {
			continue
		}
		if int(t.Var) < 0 || int(t.Var) >= len(m.names) {
			panic(fmt.Sprintf("lp: row %q references unknown var %d", name, t.Var))
		}
		kept = append(kept, t)
	}
	m.rows = append(m.rows, row{name: name, terms: kept, sense: sense, rhs: rhs})
}

// SetCost replaces the objective coefficient of v.
func (m *Model) SetCost(v Var, cost float64) { m.cost[v] = cost }

// FixZero pins v to zero. The column is dropped from the standard form.
func (m *Model) FixZero(v Var) { m.fixed[v] = true }

func (m *Model) IsFixed(v Var) bool { return m.fixed[v] }

func (m *Model) NumVars() int { return len(m.names) }

func (m *Model) NumRows() int { return len(m.rows) }

func (m *Model) VarName(v Var) string { return m.names[v] }

// Clone returns a copy that can be fixed independently. Rows are shared
// read-only between the copies.
func (m *Model) Clone() *Model {
	return &Model{
		names: m.names[:len(m.names):len(m.names)],
		cost:  append([]float64(nil), m.cost...),
		fixed: append([]bool(nil), m.fixed...),
		rows:  m.rows[:len(m.rows):len(m.rows)],
	}
}

// Objective evaluates the objective at x.
func (m *Model) Objective(x []float64) float64 {
	s := 0.0
	for j, c := range m.cost {
		s += c * x[j]
	}
	return s
}
