package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"solar-bess-sizer/internal/analysis"
	"solar-bess-sizer/internal/config"
	"solar-bess-sizer/internal/data"
	"solar-bess-sizer/internal/profile"
	"solar-bess-sizer/internal/report"
	"solar-bess-sizer/internal/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/cheggaaa/pb.v1"
)

func sweepCmd() *cobra.Command {
	var (
		cfgPath   string
		locPath   string
		countries string
		years     string
		targets   string
		outPath   string
		recostOut string
		storePath string
		workers   int
	)
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Size every country × year × target and write a results CSV",
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := newLogger()
			defer func() { _ = log.Sync() }()

			sc, err := config.LoadUnchecked(cfgPath)
			if err != nil {
				return err
			}
			if workers > 0 {
				sc.Workers = workers
			}

			list, err := data.LoadLocations(locPath)
			if err != nil {
				return fmt.Errorf("load locations: %w", err)
			}
			if b := sc.CostBundle(); b != nil && b.Lookup != nil && len(b.Lookup.Places) == 0 {
				b.Lookup.Places = list.Places()
			}
			locs := list.Locations
			if names := splitList(countries); len(names) > 0 {
				if locs, err = list.Select(names); err != nil {
					return err
				}
			}
			ys, err := parseInts(years)
			if err != nil {
				return fmt.Errorf("--years: %w", err)
			}
			if len(ys) == 0 {
				ys = []int{sc.Year}
			}
			ts, err := parseFloats(targets)
			if err != nil {
				return fmt.Errorf("--targets: %w", err)
			}

			r := &analysis.Runner{
				Scenario: sc,
				Profiles: &profile.ClearSkyProvider{
					Cache:    profile.NewCache(0),
					FullYear: sc.Profile.FullYear,
					Logger:   log,
				},
				Logger: log,
			}
			if storePath != "" {
				st, err := store.Open(storePath)
				if err != nil {
					return err
				}
				defer st.Close()
				r.Store = st
			}

			jobs := analysis.Jobs(locs, ys, ts)
			bar := pb.New(len(jobs))
			bar.Output = os.Stderr
			bar.Start()
			r.Progress = func(analysis.Outcome) { bar.Increment() }
			outcomes := r.Run(cmd.Context(), jobs)
			bar.Finish()

			if outPath == "" {
				outPath = sc.Output.ResultsCSV
			}
			if outPath != "" {
				if err := report.WriteResultsFile(outPath, analysis.Rows(outcomes)); err != nil {
					return err
				}
				fmt.Printf("Wrote %d rows to %s\n", len(outcomes), outPath)
			}

			s := analysis.SummarizeLCOE(outcomes)
			fmt.Printf("Solved=%d Failed=%d LCOE min=%.2f p05=%.2f mean=%.2f p95=%.2f max=%.2f\n",
				s.Count, s.Failed, s.Min, s.P05, s.Mean, s.P95, s.Max)

			ranked := analysis.RankByLCOE(outcomes)
			fmt.Printf("%-4s %-18s %-6s %-7s %-10s %-12s %-10s\n", "rank", "country", "year", "target", "solar_mw", "storage_mwh", "lcoe")
			for i, o := range ranked {
				fmt.Printf("%-4d %-18s %-6d %-7.3f %-10.2f %-12.2f %-10.2f\n",
					i+1,
					o.Location.Country,
					o.Year,
					o.Target,
					o.Result.SolarCapacityMW,
					o.Result.StorageEnergyMWh,
					o.LCOE,
				)
			}

			if recostOut != "" {
				b := sc.CostBundle()
				if b == nil || b.Curve == nil || len(b.Curve.Years()) == 0 {
					return fmt.Errorf("--recost-out needs a cost curve in costs_file")
				}
				yc, err := analysis.RecostOutcomes(outcomes, b.Curve, nil, sc.FinancialsOrDefault())
				if err != nil {
					return err
				}
				if err := report.WriteResultsFile(recostOut, analysis.YearRows(yc)); err != nil {
					return err
				}
				fmt.Printf("Wrote %d re-costed rows to %s\n", len(yc), recostOut)
			}

			for _, o := range outcomes {
				if o.Err != nil {
					log.Warn("job failed",
						zap.String("country", o.Location.Country),
						zap.Int("year", o.Year),
						zap.Error(o.Err))
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "Path to YAML scenario used as the base of every job")
	cmd.Flags().StringVar(&locPath, "locations", data.GetDefaultLocationsPath(), "Locations JSON")
	cmd.Flags().StringVar(&countries, "countries", "", "Comma-separated countries (default: all locations)")
	cmd.Flags().StringVar(&years, "years", "", "Comma-separated years (default: scenario year)")
	cmd.Flags().StringVar(&targets, "targets", "", "Comma-separated availability targets (default: scenario target)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Results CSV path (default: output.results_csv)")
	cmd.Flags().StringVar(&recostOut, "recost-out", "", "Re-cost each sizing over every cost curve year into this CSV")
	cmd.Flags().StringVar(&storePath, "store", "", "Optional sqlite file to record runs in")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Parallel jobs (default: scenario workers)")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseInts(s string) ([]int, error) {
	var out []int
	for _, p := range splitList(s) {
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func parseFloats(s string) ([]float64, error) {
	var out []float64
	for _, p := range splitList(s) {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
