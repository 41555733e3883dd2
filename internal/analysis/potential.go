package analysis

import (
	"math"
	"sort"

	"solar-bess-sizer/internal/backtest"
	"solar-bess-sizer/internal/model"
)

// ResourcePotential is a site-level summary you can use for ranking.
// It intentionally does not depend on an optimized size; it includes both raw
// profile stats and the greedy availability of a canonical system.
type ResourcePotential struct {
	Country string
	Periods int

	CapacityFactor float64
	P05            float64
	P95            float64
	DaylightHours  int
	// LongestDark is the longest run of consecutive zero-output periods.
	LongestDark int

	// GreedyAvailability is the served fraction of a flat 1 MW load for:
	// - solar sized to 1/CapacityFactor MW (energy neutral before losses)
	// - storage energy of LongestDark MWh, power bounded by solar
	// - the given efficiency, starting empty
	GreedyAvailability float64
	// OracleAvailability is the same system dispatched with perfect foresight.
	OracleAvailability float64
}

func ComputePotential(country string, p model.Profile, efficiency float64) ResourcePotential {
	rp := ResourcePotential{Country: country, Periods: p.Len()}
	if p.Len() == 0 {
		return rp
	}
	vals := append([]float64(nil), p...)
	sort.Float64s(vals)
	rp.CapacityFactor = p.Sum() / float64(p.Len())
	rp.P05 = percentileSorted(vals, 0.05)
	rp.P95 = percentileSorted(vals, 0.95)

	dark := 0
	for _, v := range p {
		if v > 0 {
			rp.DaylightHours++
			dark = 0
			continue
		}
		dark++
		if dark > rp.LongestDark {
			rp.LongestDark = dark
		}
	}

	if rp.CapacityFactor > 0 {
		params := model.StorageParams{
			SolarCapacityMW:   1 / rp.CapacityFactor,
			EnergyCapacityMWh: float64(rp.LongestDark),
			PowerFromSolar:    true,
			Efficiency:        efficiency,
		}
		if res, err := backtest.Replay("greedy", p, model.FlatDemand(1), params); err == nil {
			rp.GreedyAvailability = res.Availability
		}
		if res, err := backtest.Replay("oracle", p, model.FlatDemand(1), params); err == nil {
			rp.OracleAvailability = res.Availability
		}
	}
	return rp
}

// RankByPotential sorts by descending greedy availability, then capacity factor.
func RankByPotential(ps []ResourcePotential) []ResourcePotential {
	out := append([]ResourcePotential(nil), ps...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].GreedyAvailability != out[j].GreedyAvailability {
			return out[i].GreedyAvailability > out[j].GreedyAvailability
		}
		return out[i].CapacityFactor > out[j].CapacityFactor
	})
	return out
}

// LCOESummary aggregates the successful outcomes of a sweep.
type LCOESummary struct {
	Count  int
	Failed int
	Min    float64
	Max    float64
	Mean   float64
	P05    float64
	P95    float64
}

func SummarizeLCOE(outcomes []Outcome) LCOESummary {
	var s LCOESummary
	vals := make([]float64, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Err != nil || o.Result == nil {
			s.Failed++
			continue
		}
		vals = append(vals, o.LCOE)
	}
	s.Count = len(vals)
	if s.Count == 0 {
		return s
	}
	sort.Float64s(vals)
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	s.Min = vals[0]
	s.Max = vals[len(vals)-1]
	s.Mean = sum / float64(len(vals))
	s.P05 = percentileSorted(vals, 0.05)
	s.P95 = percentileSorted(vals, 0.95)
	return s
}

func percentileSorted(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	// Linear interpolation between order stats.
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
