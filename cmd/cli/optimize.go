package main

import (
	"fmt"
	"os"
	"path/filepath"

	"solar-bess-sizer/internal/backtest"
	"solar-bess-sizer/internal/config"
	"solar-bess-sizer/internal/lcoe"
	"solar-bess-sizer/internal/model"
	"solar-bess-sizer/internal/optimize"
	"solar-bess-sizer/internal/report"
	"solar-bess-sizer/internal/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func optimizeCmd() *cobra.Command {
	var (
		cfgPath   string
		outPath   string
		storePath string
	)
	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Size solar and storage for the scenario's target at least capital cost",
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := newLogger()
			defer func() { _ = log.Sync() }()

			sc, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			p, err := sc.Problem(ctx, nil)
			if err != nil {
				return err
			}
			opts, err := sc.Options(log)
			if err != nil {
				return err
			}
			res, err := optimize.Optimize(ctx, p, opts)
			if err != nil {
				return err
			}

			periods := p.Profile.Len()
			loadMW := p.Demand.Total(periods) / float64(periods)
			levelized, lerr := lcoe.FromSizing(res.TotalCost, loadMW, sc.Operating.Target, sc.FinancialsOrDefault())
			if lerr != nil {
				log.Warn("lcoe unavailable", zap.Error(lerr))
			}

			fmt.Printf("Solar=%.3f MW  Storage power=%.3f MW  Storage energy=%.3f MWh\n",
				res.SolarCapacityMW, res.StoragePowerMW, res.StorageEnergyMWh)
			fmt.Printf("Total cost=%.2f  Objective=%.4f  Availability=%.4f  LCOE=%.2f/MWh\n",
				res.TotalCost, res.Objective, res.Availability, levelized)
			fmt.Printf("Formulation=%s coupling=%s segments=%d nodes=%d periods=%d\n",
				res.Formulation, res.PowerCoupling, res.Segments, res.Nodes, periods)

			if outPath == "" {
				outPath = sc.Output.DispatchCSV
			}
			if err := writeDispatch(outPath, res.Trajectory); err != nil {
				return err
			}

			if storePath != "" {
				id, err := saveRun(storePath, &store.Run{
					Kind:             store.KindOptimize,
					Name:             sc.Name,
					Country:          sc.Country,
					Year:             sc.Year,
					Formulation:      string(res.Formulation),
					PowerCoupling:    string(res.PowerCoupling),
					Segments:         res.Segments,
					Target:           sc.Operating.Target,
					Efficiency:       sc.Operating.Efficiency,
					InitialSOC:       sc.Operating.InitialSOC,
					SolarMW:          res.SolarCapacityMW,
					StoragePowerMW:   res.StoragePowerMW,
					StorageEnergyMWh: res.StorageEnergyMWh,
					TotalCost:        res.TotalCost,
					LCOE:             levelized,
					Availability:     res.Availability,
					Status:           "optimal",
				}, res.Trajectory)
				if err != nil {
					return err
				}
				fmt.Printf("Stored run %s\n", id)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "Path to YAML scenario")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Dispatch CSV path (default: output.dispatch_csv)")
	cmd.Flags().StringVar(&storePath, "store", "", "Optional sqlite file to record the run in")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

func evaluateCmd() *cobra.Command {
	var (
		cfgPath string
		outPath string
		solar   float64
		energy  float64
		power   float64
		method  string
	)
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Report the best availability fixed capacities can reach",
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := newLogger()
			defer func() { _ = log.Sync() }()

			sc, err := config.LoadUnchecked(cfgPath)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			prof, err := sc.ResolveProfile(ctx, nil)
			if err != nil {
				return err
			}
			opts, err := sc.Options(log)
			if err != nil {
				return err
			}
			ep := optimize.EvalProblem{
				Profile:          prof,
				Demand:           sc.DemandModel(),
				SolarCapacityMW:  solar,
				StorageEnergyMWh: energy,
				Operating:        sc.OperatingParams(),
			}
			if cmd.Flags().Changed("power") {
				ep.StoragePowerMW = &power
			}
			if method != "lp" {
				if err := ep.Validate(); err != nil {
					return err
				}
				res, err := backtest.Replay(method, prof, ep.Demand, model.StorageFor(ep.Capacities(), ep.Operating))
				if err != nil {
					return err
				}
				fmt.Printf("Availability=%.4f strategy=%s final_soc=%.3f\n", res.Availability, res.Strategy, res.FinalSOC)
				if outPath == "" {
					outPath = sc.Output.DispatchCSV
				}
				return writeDispatch(outPath, res.Trajectory)
			}
			res := optimize.Evaluate(ctx, ep, opts)
			fmt.Printf("Availability=%.4f status=%s\n", res.Availability, res.Status)
			if !res.OK() {
				fmt.Fprintf(os.Stderr, "warning: %v\n", res.Err)
			}
			if outPath == "" {
				outPath = sc.Output.DispatchCSV
			}
			return writeDispatch(outPath, res.Trajectory)
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "Path to YAML scenario")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Dispatch CSV path (default: output.dispatch_csv)")
	cmd.Flags().Float64Var(&solar, "solar", 0, "Solar capacity (MW)")
	cmd.Flags().Float64Var(&energy, "energy", 0, "Storage energy capacity (MWh)")
	cmd.Flags().Float64Var(&power, "power", 0, "Storage power capacity (MW); default: solar capacity")
	cmd.Flags().StringVar(&method, "method", "lp", "Dispatch: lp (optimal), oracle (SOC-grid DP) or greedy")
	_ = cmd.MarkFlagRequired("config")
	_ = cmd.MarkFlagRequired("solar")
	_ = cmd.MarkFlagRequired("energy")
	return cmd
}

func writeDispatch(path string, tr model.Trajectory) error {
	if path == "" {
		return nil
	}
	// ensure output dir exists
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := report.WriteDispatchFile(path, tr); err != nil {
		return err
	}
	fmt.Printf("Wrote %d rows to %s\n", len(tr), path)
	return nil
}

func saveRun(path string, run *store.Run, tr model.Trajectory) (string, error) {
	st, err := store.Open(path)
	if err != nil {
		return "", err
	}
	defer st.Close()
	if err := st.SaveRun(run, tr); err != nil {
		return "", err
	}
	return run.ID, nil
}
