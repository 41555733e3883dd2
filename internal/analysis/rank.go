package analysis

import (
	"sort"

	"solar-bess-sizer/internal/report"
)

// RankByLCOE sorts successful outcomes by ascending LCOE; failed outcomes are
// dropped.
func RankByLCOE(outcomes []Outcome) []Outcome {
	out := make([]Outcome, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Err == nil && o.Result != nil {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LCOE < out[j].LCOE
	})
	return out
}

// Rows flattens outcomes into report rows, failures included.
func Rows(outcomes []Outcome) []report.ResultRow {
	rows := make([]report.ResultRow, 0, len(outcomes))
	for _, o := range outcomes {
		row := report.ResultRow{
			RunID:   o.RunID,
			Country: o.Location.Country,
			Year:    o.Year,
			Target:  o.Target,
			LCOE:    o.LCOE,
			Status:  StatusOf(o.Err),
		}
		if o.Err != nil {
			row.Error = o.Err.Error()
		}
		if res := o.Result; res != nil {
			row.Formulation = string(res.Formulation)
			row.SolarMW = res.SolarCapacityMW
			row.StoragePowerMW = res.StoragePowerMW
			row.StorageEnergyMWh = res.StorageEnergyMWh
			row.TotalCost = res.TotalCost
			row.Availability = res.Availability
		}
		rows = append(rows, row)
	}
	return rows
}

// YearRows flattens re-costed capacities into report rows.
func YearRows(costs []YearCost) []report.ResultRow {
	rows := make([]report.ResultRow, len(costs))
	for i, c := range costs {
		rows[i] = report.ResultRow{
			Country:          c.Country,
			Year:             c.Year,
			Formulation:      "fixed",
			SolarMW:          c.Capacities.SolarMW,
			StoragePowerMW:   c.Capacities.StoragePowerMW,
			StorageEnergyMWh: c.Capacities.StorageEnergyMWh,
			TotalCost:        c.TotalCost,
			LCOE:             c.LCOE,
			Status:           "recosted",
		}
	}
	return rows
}
