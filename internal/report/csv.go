// Package report writes run artifacts: the per-period dispatch of a solved model
// and the summary rows of a sweep.
package report

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"solar-bess-sizer/internal/model"
)

var dispatchHeader = []string{
	"period_index",
	"demand_mw",
	"solar_output_mw",
	"charge_mw",
	"discharge_mw",
	"curtailed_mw",
	"soc_mwh",
	"energy_served_mw",
	"action",
}

// WriteDispatchCSV writes one row per period of tr.
func WriteDispatchCSV(w io.Writer, tr model.Trajectory) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(dispatchHeader); err != nil {
		return err
	}
	for _, r := range tr {
		row := []string{
			strconv.Itoa(r.Index),
			fmtFloat(r.DemandMW),
			fmtFloat(r.SolarMW),
			fmtFloat(r.ChargeMW),
			fmtFloat(r.DischargeMW),
			fmtFloat(r.CurtailedMW),
			fmtFloat(r.SOCMWh),
			fmtFloat(r.ServedMW),
			string(r.Action),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteDispatchFile(path string, tr model.Trajectory) error {
	return writeFile(path, func(w io.Writer) error { return WriteDispatchCSV(w, tr) })
}

// ResultRow summarizes one sizing or evaluation run.
type ResultRow struct {
	RunID            string
	Country          string
	Year             int
	Formulation      string
	Target           float64
	SolarMW          float64
	StoragePowerMW   float64
	StorageEnergyMWh float64
	TotalCost        float64
	LCOE             float64
	Availability     float64
	Status           string
	Error            string
}

var resultsHeader = []string{
	"run_id",
	"country",
	"year",
	"formulation",
	"target",
	"solar_capacity_mw",
	"storage_power_mw",
	"storage_energy_mwh",
	"total_cost",
	"lcoe_per_mwh",
	"availability",
	"status",
	"error",
}

func WriteResultsCSV(w io.Writer, rows []ResultRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(resultsHeader); err != nil {
		return err
	}
	for _, r := range rows {
		row := []string{
			r.RunID,
			r.Country,
			strconv.Itoa(r.Year),
			r.Formulation,
			fmtFloat(r.Target),
			fmtFloat(r.SolarMW),
			fmtFloat(r.StoragePowerMW),
			fmtFloat(r.StorageEnergyMWh),
			fmtFloat(r.TotalCost),
			fmtFloat(r.LCOE),
			fmtFloat(r.Availability),
			r.Status,
			r.Error,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteResultsFile(path string, rows []ResultRow) error {
	return writeFile(path, func(w io.Writer) error { return WriteResultsCSV(w, rows) })
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
