package analysis

import (
	"fmt"

	"solar-bess-sizer/internal/costs"
	"solar-bess-sizer/internal/lcoe"
	"solar-bess-sizer/internal/model"
)

// YearCost is a fixed set of capacities priced in one year.
type YearCost struct {
	Country    string
	Year       int
	Capacities model.Capacities
	TotalCost  float64
	LCOE       float64
}

// FixedCapacity re-prices caps for every year of the curve (or the given years)
// without re-optimizing. The served energy is loadMW at target for every year.
func FixedCapacity(country string, caps model.Capacities, curve *costs.Curve, years []int, loadMW, target float64, fin lcoe.Financials) ([]YearCost, error) {
	if len(years) == 0 {
		years = curve.Years()
	}
	out := make([]YearCost, 0, len(years))
	for _, y := range years {
		tc, err := curve.ForYear(y)
		if err != nil {
			return nil, err
		}
		cost := tc.CapitalCost(caps)
		v, err := lcoe.FromSizing(cost, loadMW, target, fin)
		if err != nil {
			return nil, fmt.Errorf("%s %d: %w", country, y, err)
		}
		out = append(out, YearCost{Country: country, Year: y, Capacities: caps, TotalCost: cost, LCOE: v})
	}
	return out, nil
}

// RecostOutcomes applies FixedCapacity to every successful outcome.
func RecostOutcomes(outcomes []Outcome, curve *costs.Curve, years []int, fin lcoe.Financials) ([]YearCost, error) {
	var out []YearCost
	for _, o := range outcomes {
		if o.Err != nil || o.Result == nil {
			continue
		}
		rows, err := FixedCapacity(o.Location.Country, o.Result.Capacities(), curve, years, o.LoadMW, o.Target, fin)
		if err != nil {
			return nil, err
		}
		out = append(out, rows...)
	}
	return out, nil
}
