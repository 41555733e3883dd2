package main

import (
	"fmt"
	"os"
	"path/filepath"

	"solar-bess-sizer/internal/analysis"
	"solar-bess-sizer/internal/data"
	"solar-bess-sizer/internal/profile"

	"github.com/spf13/cobra"
)

func profileCmd() *cobra.Command {
	var (
		lat, lon, alt float64
		year          int
		fullYear      bool
		outPath       string
	)
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Write a normalized clear-sky availability profile as CSV",
		RunE: func(cmd *cobra.Command, _ []string) error {
			site := profile.Site{Latitude: lat, Longitude: lon, AltitudeM: alt}
			h := profile.HalfYear(year)
			if fullYear {
				h = profile.FullYear(year)
			}
			p, err := profile.ClearSky(site, h)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
				return err
			}
			f, err := os.Create(outPath)
			if err != nil {
				return err
			}
			defer f.Close()
			if err := profile.WriteCSV(f, p); err != nil {
				return err
			}
			fmt.Printf("Wrote %d rows to %s\n", p.Len(), outPath)
			fmt.Printf("Capacity factor=%.4f\n", p.Sum()/float64(p.Len()))
			return nil
		},
	}
	cmd.Flags().Float64Var(&lat, "lat", 0, "Latitude (degrees)")
	cmd.Flags().Float64Var(&lon, "lon", 0, "Longitude (degrees)")
	cmd.Flags().Float64Var(&alt, "alt", 0, "Altitude (m)")
	cmd.Flags().IntVar(&year, "year", 2024, "Profile year")
	cmd.Flags().BoolVar(&fullYear, "full-year", false, "Generate the whole year instead of Jan-Jun")
	cmd.Flags().StringVarP(&outPath, "out", "o", "profile.csv", "CSV path")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lon")
	return cmd
}

func rankCmd() *cobra.Command {
	var (
		locPath    string
		countries  string
		year       int
		efficiency float64
		fullYear   bool
	)
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank locations by clear-sky resource potential",
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := newLogger()
			defer func() { _ = log.Sync() }()

			list, err := data.LoadLocations(locPath)
			if err != nil {
				return fmt.Errorf("load locations: %w", err)
			}
			locs := list.Locations
			if names := splitList(countries); len(names) > 0 {
				if locs, err = list.Select(names); err != nil {
					return err
				}
			}

			prov := &profile.ClearSkyProvider{Cache: profile.NewCache(0), FullYear: fullYear, Logger: log}
			ps := make([]analysis.ResourcePotential, 0, len(locs))
			for _, loc := range locs {
				p, err := prov.Profile(cmd.Context(), loc.Site(), year)
				if err != nil {
					fmt.Fprintf(os.Stderr, "skip %s: %v\n", loc.Country, err)
					continue
				}
				ps = append(ps, analysis.ComputePotential(loc.Country, p, efficiency))
			}

			ranked := analysis.RankByPotential(ps)
			fmt.Printf("%-4s %-18s %-8s %-8s %-10s %-8s %-10s %-10s\n", "rank", "country", "periods", "cf", "p05/p95", "dark_h", "greedy", "oracle")
			for i, r := range ranked {
				fmt.Printf(
					"%-4d %-18s %-8d %-8.4f %-4.2f/%-5.2f %-8d %-10.4f %-10.4f\n",
					i+1,
					r.Country,
					r.Periods,
					r.CapacityFactor,
					r.P05,
					r.P95,
					r.LongestDark,
					r.GreedyAvailability,
					r.OracleAvailability,
				)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&locPath, "locations", data.GetDefaultLocationsPath(), "Locations JSON")
	cmd.Flags().StringVar(&countries, "countries", "", "Comma-separated countries (default: all)")
	cmd.Flags().IntVar(&year, "year", 2024, "Profile year")
	cmd.Flags().Float64Var(&efficiency, "efficiency", 0.9, "Round-trip efficiency of the canonical battery")
	cmd.Flags().BoolVar(&fullYear, "full-year", false, "Use the whole year instead of Jan-Jun")
	return cmd
}
