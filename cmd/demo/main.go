package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"solar-bess-sizer/internal/model"
	"solar-bess-sizer/internal/optimize"
	"solar-bess-sizer/internal/profile"
	"solar-bess-sizer/internal/report"
)

// Demo:
// - Generate a few days of clear-sky availability for one site
// - Size solar + storage for a flat load at least cost
// - Replay the sized plant with the greedy battery to show how models fit together
func main() {
	lat := flag.Float64("lat", -1.29, "Site latitude")
	lon := flag.Float64("lon", 36.82, "Site longitude")
	days := flag.Int("days", 2, "Number of days to size over")
	loadMW := flag.Float64("load", 100, "Flat load (MW)")
	target := flag.Float64("target", 0.9, "Fraction of demand to serve")
	outCSV := flag.String("out", "", "Optional path to write dispatch CSV (e.g. results/dispatch.csv)")
	flag.Parse()

	start := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	h := profile.Horizon{Start: start, End: start.Add(time.Duration(*days) * 24 * time.Hour)}
	prof, err := profile.ClearSky(profile.Site{Latitude: *lat, Longitude: *lon}, h)
	if err != nil {
		panic(err)
	}

	p := optimize.Problem{
		Profile: prof,
		Demand:  model.FlatDemand(*loadMW),
		Costs:   model.TechCosts{SolarPerMW: 400, StoragePowerPerMW: 50, StorageEnergyPerMWh: 160},
		Operating: model.OperatingParams{
			Efficiency: 0.9,
			InitialSOC: 0,
			Target:     *target,
		},
	}
	res, err := optimize.Optimize(context.Background(), p, optimize.DefaultOptions())
	if err != nil {
		panic(err)
	}

	fmt.Printf("Sized %d periods at (%.2f, %.2f) for %.0f MW at %.0f%%\n", prof.Len(), *lat, *lon, *loadMW, 100*(*target))
	fmt.Printf("Solar=%.2f MW  Power=%.2f MW  Energy=%.2f MWh  Cost=%.2f\n\n",
		res.SolarCapacityMW, res.StoragePowerMW, res.StorageEnergyMWh, res.TotalCost)

	for i := 0; i < min(24, len(res.Trajectory)); i++ {
		r := res.Trajectory[i]
		fmt.Printf(
			"t=%3d solar=%7.2f  action=%-11s  charge=%7.2f  discharge=%7.2f  soc=%8.2f  served=%7.2f\n",
			r.Index,
			r.SolarMW,
			string(r.Action),
			r.ChargeMW,
			r.DischargeMW,
			r.SOCMWh,
			r.ServedMW,
		)
	}

	batt, err := model.NewBattery(model.StorageFor(res.Capacities(), p.Operating))
	if err != nil {
		panic(err)
	}
	greedy := batt.Simulate(prof, p.Demand)

	if *outCSV != "" {
		if err := report.WriteDispatchFile(*outCSV, res.Trajectory); err != nil {
			panic(err)
		}
		fmt.Printf("\nWrote CSV: %s\n", *outCSV)
	}

	fmt.Printf("\nDone. Optimal availability=%.4f  Greedy availability=%.4f\n", res.Availability, greedy.Availability())
}
