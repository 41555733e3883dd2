package optimize

import (
	"context"
	"fmt"

	"solar-bess-sizer/internal/lp"
	"solar-bess-sizer/internal/model"
)

const noVar lp.Var = -1

// linear is a sum of terms plus a constant. Capacities are variables when sizing
// and constants when evaluating, so every row is written against linear values.
type linear struct {
	terms []lp.Term
	konst float64
}

func variable(v lp.Var) linear { return linear{terms: []lp.Term{lp.T(v, 1)}} }

func constant(x float64) linear { return linear{konst: x} }

func (l linear) scale(c float64) linear {
	out := linear{terms: make([]lp.Term, len(l.terms)), konst: l.konst * c}
	for i, t := range l.terms {
		out.terms[i] = lp.T(t.Var, t.Coef*c)
	}
	return out
}

func sum(parts ...linear) linear {
	var out linear
	for _, p := range parts {
		out.terms = append(out.terms, p.terms...)
		out.konst += p.konst
	}
	return out
}

// value evaluates l at a solution.
func (l linear) value(sol *lp.Solution) float64 {
	v := l.konst
	for _, t := range l.terms {
		v += t.Coef * sol.Value(t.Var)
	}
	return v
}

// periodVars are the per-period columns. curtail and penalty are noVar when absent.
type periodVars struct {
	charge, discharge, soc, served lp.Var
	curtail, penalty               lp.Var
}

type block struct{ start, end int }

// splitBlocks cuts [0, n) into k contiguous blocks whose sizes differ by at most one.
func splitBlocks(n, k int) []block {
	if k < 1 {
		k = 1
	}
	if k > n {
		k = n
	}
	out := make([]block, 0, k)
	start := 0
	for i := 0; i < k; i++ {
		size := n / k
		if i < n%k {
			size++
		}
		out = append(out, block{start: start, end: start + size})
		start += size
	}
	return out
}

// builder writes the shared storage model. The same rows serve the sizing engine
// (capacities are variables, adequacy row present) and the evaluator (capacities are
// constants, curtailment allowed, served energy maximized).
type builder struct {
	m *lp.Model

	profile model.Profile
	demand  []float64
	op      model.OperatingParams
	opts    Options

	solar, power, energy linear
	allowCurtail         bool
	servedCost           float64

	periods []periodVars
	pairs   []lp.Pair
	entries []lp.Var
}

func newBuilder(profile model.Profile, demand []float64, op model.OperatingParams, opts Options) *builder {
	return &builder{
		m:       lp.NewModel(),
		profile: profile,
		demand:  demand,
		op:      op,
		opts:    opts,
		periods: make([]periodVars, len(profile)),
	}
}

func (b *builder) constrain(name string, l linear, sense lp.Sense, rhs float64) {
	b.m.AddRow(name, l.terms, sense, rhs-l.konst)
}

// build adds every period, block by block. Period 0 pins the SOC to the
// initial level and the balance starts at period 1. Block k > 0 enters with its
// own SOC variable tied to the last SOC of block k-1.
func (b *builder) build() {
	eta := b.op.Efficiency
	for k, blk := range splitBlocks(len(b.profile), b.opts.Segments) {
		var prev linear
		if k > 0 {
			entry := b.m.AddVar(fmt.Sprintf("entry_soc[%d]", k), 0)
			b.entries = append(b.entries, entry)
			b.constrain(fmt.Sprintf("link[%d]", k),
				sum(variable(entry), variable(b.periods[blk.start-1].soc).scale(-1)), lp.Equal, 0)
			prev = variable(entry)
		}
		for t := blk.start; t < blk.end; t++ {
			b.period(t, prev, eta)
			prev = variable(b.periods[t].soc)
		}
	}
}

func (b *builder) period(t int, prev linear, eta float64) {
	pv := periodVars{
		charge:    b.m.AddVar(fmt.Sprintf("charge[%d]", t), 0),
		discharge: b.m.AddVar(fmt.Sprintf("discharge[%d]", t), 0),
		soc:       b.m.AddVar(fmt.Sprintf("soc[%d]", t), 0),
		served:    b.m.AddVar(fmt.Sprintf("served[%d]", t), b.servedCost),
		curtail:   noVar,
		penalty:   noVar,
	}
	c, d, soc, served := variable(pv.charge), variable(pv.discharge), variable(pv.soc), variable(pv.served)
	solarOut := b.solar.scale(b.profile[t])

	if t == 0 {
		// soc[0] = E·soc₀; period-0 flows draw on the initial energy only.
		prev = b.energy.scale(b.op.InitialSOC)
		b.constrain("initial_soc[0]", sum(soc, prev.scale(-1)), lp.Equal, 0)
	} else {
		// soc[t] = soc[t-1] + η·charge[t] − discharge[t]/η
		b.constrain(fmt.Sprintf("balance[%d]", t), sum(soc, prev.scale(-1), c.scale(-eta), d.scale(1/eta)), lp.Equal, 0)
	}
	b.constrain(fmt.Sprintf("soc_cap[%d]", t), sum(soc, b.energy.scale(-1)), lp.LessEq, 0)
	b.constrain(fmt.Sprintf("charge_power[%d]", t), sum(c, b.power.scale(-1)), lp.LessEq, 0)
	b.constrain(fmt.Sprintf("discharge_power[%d]", t), sum(d, b.power.scale(-1)), lp.LessEq, 0)
	b.constrain(fmt.Sprintf("charge_solar[%d]", t), sum(c, solarOut.scale(-1)), lp.LessEq, 0)
	b.constrain(fmt.Sprintf("discharge_stored[%d]", t), sum(d, prev.scale(-eta)), lp.LessEq, 0)

	// served[t] = solar·profile[t] + discharge[t] − charge[t] (− curtail[t])
	net := sum(served, solarOut.scale(-1), d.scale(-1), c)
	if b.allowCurtail {
		pv.curtail = b.m.AddVar(fmt.Sprintf("curtail[%d]", t), 0)
		net = sum(net, variable(pv.curtail))
	}
	b.constrain(fmt.Sprintf("served[%d]", t), net, lp.Equal, 0)
	b.constrain(fmt.Sprintf("demand[%d]", t), served, lp.LessEq, b.demand[t])

	switch b.opts.Formulation {
	case FormulationPenalty:
		pv.penalty = b.m.AddVar(fmt.Sprintf("penalty[%d]", t), b.opts.PenaltyWeight)
		b.constrain(fmt.Sprintf("overlap[%d]", t), sum(variable(pv.penalty), c.scale(-1), d.scale(-1), b.power), lp.GreaterEq, 0)
	case FormulationBinary:
		b.pairs = append(b.pairs, lp.Pair{A: pv.charge, B: pv.discharge})
	}
	b.periods[t] = pv
}

// adequacy adds Σ served ≥ target·Σ demand.
func (b *builder) adequacy(target float64) {
	terms := make([]lp.Term, len(b.periods))
	total := 0.0
	for t, pv := range b.periods {
		terms[t] = lp.T(pv.served, 1)
		total += b.demand[t]
	}
	b.m.AddRow("adequacy", terms, lp.GreaterEq, target*total)
}

func (b *builder) solve(ctx context.Context) (*lp.Solution, error) {
	if b.opts.Formulation == FormulationBinary {
		bb := lp.BranchAndBound{LP: b.opts.Solver, MaxNodes: b.opts.MaxNodes}
		return bb.SolvePairs(ctx, b.m, b.pairs)
	}
	return b.opts.Solver.Solve(ctx, b.m)
}

// trajectory reads the dispatch table out of a solution.
func (b *builder) trajectory(sol *lp.Solution) model.Trajectory {
	solar := b.solar.value(sol)
	tr := make(model.Trajectory, len(b.periods))
	for t, pv := range b.periods {
		row := model.DispatchRow{
			Index:       t,
			DemandMW:    b.demand[t],
			SolarMW:     solar * b.profile[t],
			ChargeMW:    sol.Value(pv.charge),
			DischargeMW: sol.Value(pv.discharge),
			SOCMWh:      sol.Value(pv.soc),
			ServedMW:    sol.Value(pv.served),
		}
		if pv.curtail != noVar {
			row.CurtailedMW = sol.Value(pv.curtail)
		}
		row.Action = model.ActionFromFlows(row.ChargeMW, row.DischargeMW)
		tr[t] = row
	}
	return tr
}
