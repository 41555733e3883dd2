package strategy

import (
	"fmt"
	"math"

	"solar-bess-sizer/internal/model"
)

// OracleStrategy is a perfect-foresight strategy that maximizes energy served.
// It computes a dispatch plan up-front using dynamic programming on a discretized
// SOC grid, so it can only move between grid levels and is a feasible lower
// bound on the LP optimum. It is exact when every flow is a multiple of the grid.
type OracleStrategy struct {
	plan []model.Dispatch
}

type OracleParams struct {
	// SocSteps controls SOC discretization between empty and full.
	// Higher = more accurate, slower.
	SocSteps int
}

const defaultSocSteps = 100

func NewOracleStrategy(profile model.Profile, demand model.Demand, params model.StorageParams, cfg OracleParams) (*OracleStrategy, error) {
	if len(profile) == 0 {
		return nil, fmt.Errorf("no periods")
	}
	batt, err := model.NewBattery(params)
	if err != nil {
		return nil, err
	}
	if cfg.SocSteps <= 0 {
		cfg.SocSteps = defaultSocSteps
	}
	return &OracleStrategy{plan: optimizeDP(profile, demand, batt, cfg.SocSteps)}, nil
}

func (s *OracleStrategy) Name() string { return "oracle" }

func (s *OracleStrategy) Decide(ctx Context) model.Dispatch {
	if ctx.Index < 0 || ctx.Index >= len(s.plan) {
		return model.Dispatch{}
	}
	return s.plan[ctx.Index]
}

// optimizeDP maximizes total discharge into deficits, which is the same as
// maximizing energy served since direct solar use is fixed by the capacities.
// Period 0 holds the initial SOC, so its discharge is requested outright and the
// search over grid levels starts at period 1.
func optimizeDP(profile model.Profile, demand model.Demand, b *model.Battery, socSteps int) []model.Dispatch {
	p := b.Params
	plan := make([]model.Dispatch, len(profile))
	if p.EnergyCapacityMWh <= 0 {
		return plan
	}
	if deficit := demand.At(0) - p.SolarCapacityMW*profile[0]; deficit > 0 {
		plan[0] = model.Dispatch{PowerMW: deficit}
	}
	dE := p.EnergyCapacityMWh / float64(socSteps)
	nStates := socSteps + 1
	eta := p.Efficiency
	limit := b.PowerLimitMW()

	// Never round the starting inventory up.
	initIdx := int(math.Floor(p.InitialSOC*float64(socSteps) + 1e-9))

	negInf := math.Inf(-1)
	dp := make([]float64, nStates)
	next := make([]float64, nStates)
	for i := range dp {
		dp[i] = negInf
	}
	dp[initIdx] = 0

	// from[t][j] is the state at the start of period t that reaches j at its end.
	from := make([][]int32, len(profile))

	for t := 1; t < len(profile); t++ {
		a := profile[t]
		for i := range next {
			next[i] = negInf
		}
		from[t] = make([]int32, nStates)

		solar := p.SolarCapacityMW * a
		d := demand.At(t)
		direct := math.Min(solar, d)
		up := int(math.Floor(math.Min(solar-direct, limit)*eta/dE + 1e-9))
		down := int(math.Floor(math.Min(d-direct, limit)/eta/dE + 1e-9))

		for i := 0; i < nStates; i++ {
			if math.IsInf(dp[i], -1) {
				continue
			}
			lo := max(0, i-down)
			hi := min(socSteps, i+up)
			for j := lo; j <= hi; j++ {
				v := dp[i]
				if j < i {
					v += float64(i-j) * dE * eta
				}
				if v > next[j] {
					next[j] = v
					from[t][j] = int32(i)
				}
			}
		}
		dp, next = next, dp
	}

	// Pick best final state.
	best := 0
	for j, v := range dp {
		if v > dp[best] {
			best = j
		}
	}

	// Walk the backpointers to recover each period's start and end level.
	cur := best
	for t := len(profile) - 1; t >= 1; t-- {
		prev := int(from[t][cur])
		switch {
		case cur > prev:
			plan[t] = model.Dispatch{PowerMW: -float64(cur-prev) * dE / eta}
		case cur < prev:
			plan[t] = model.Dispatch{PowerMW: float64(prev-cur) * dE * eta}
		}
		cur = prev
	}
	return plan
}
