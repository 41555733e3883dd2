package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"solar-bess-sizer/internal/costs"
	"solar-bess-sizer/internal/lp"
	"solar-bess-sizer/internal/model"
	"solar-bess-sizer/internal/optimize"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const costsYAML = `
curve:
  - year: 2024
    solar_cost_per_mw: 400
    bess_energy_cost_per_mwh: 160
  - year: 2030
    solar_cost_per_mw: 300
    bess_energy_cost_per_mwh: 100
records:
  - {region: Kenya, year: 2024, variable: capex, tech: Solar, value: 500}
  - {region: Kenya, year: 2024, variable: capex, tech: BESS, value: 200}
`

const scenarioYAML = `
name: kenya-2024
costs_file: costs.yaml
costs:
  bess_power_cost_per_mw: 50
country: Kenya
year: 2024
profile:
  source: inline
  values: [0, 0.5, 1, 0.5]
  tile: 8
demand:
  flat_mw: 100
operating:
  efficiency: 0.9
  initial_soc: 0.5
  target: 0.95
formulation:
  name: binary
  params:
    power_coupling: separate
    segments: "2"
    max_nodes: 50
    solver: interior
`

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "costs.yaml"), []byte(costsYAML), 0o644))
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	c, err := Load(writeScenario(t, scenarioYAML))
	require.NoError(t, err)
	assert.Equal(t, "kenya-2024", c.Name)
	require.NotNil(t, c.CostBundle())

	tc, err := c.TechCosts()
	require.NoError(t, err)
	assert.Equal(t, 500.0, tc.SolarPerMW)
	assert.Equal(t, 200.0, tc.StorageEnergyPerMWh)
	assert.Equal(t, 50.0, tc.StoragePowerPerMW)
	assert.Equal(t, "kenya", tc.Region)

	opts, err := c.Options(nil)
	require.NoError(t, err)
	assert.Equal(t, optimize.FormulationBinary, opts.Formulation)
	assert.Equal(t, optimize.CouplingSeparate, opts.PowerCoupling)
	assert.Equal(t, 2, opts.Segments)
	assert.Equal(t, 50, opts.MaxNodes)
	assert.Equal(t, lp.InteriorPoint{}, opts.Solver)

	p, err := c.Problem(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, p.Profile, 8)
	assert.Equal(t, model.FlatDemand(100), p.Demand)
	assert.Equal(t, 0.95, p.Operating.Target)
	assert.NoError(t, p.Validate())
}

func TestTechCostsFallsBackToCurve(t *testing.T) {
	c, err := Load(writeScenario(t, scenarioYAML))
	require.NoError(t, err)

	// No country table rows for 2030, so the year curve is used.
	tc, err := c.TechCostsFor("Kenya", 2030)
	require.NoError(t, err)
	assert.Equal(t, 300.0, tc.SolarPerMW)
	assert.Equal(t, 100.0, tc.StorageEnergyPerMWh)
	assert.Equal(t, 2030, tc.Year)
}

func TestTechCostsMissing(t *testing.T) {
	c, err := Parse([]byte("year: 2024\n"))
	require.NoError(t, err)
	_, err = c.TechCosts()
	assert.ErrorIs(t, err, costs.ErrNotFound)

	// Explicit costs alone are enough.
	c.Costs = CostsConfig{SolarPerMW: 400}
	tc, err := c.TechCosts()
	require.NoError(t, err)
	assert.Equal(t, 400.0, tc.SolarPerMW)
}

func TestMergeCosts(t *testing.T) {
	base := model.TechCosts{SolarPerMW: 1, StoragePowerPerMW: 2, StorageEnergyPerMWh: 3}
	got := MergeCosts(base, CostsConfig{StorageEnergyPerMWh: 9})
	assert.Equal(t, model.TechCosts{SolarPerMW: 1, StoragePowerPerMW: 2, StorageEnergyPerMWh: 9}, got)
}

func TestValidateErrors(t *testing.T) {
	valid := func() *Scenario {
		return &Scenario{
			Year:      2024,
			Costs:     CostsConfig{SolarPerMW: 400},
			Profile:   ProfileConfig{Source: "inline", Values: []float64{0, 1}},
			Demand:    DemandConfig{FlatMW: 10},
			Operating: OperatingConfig{Efficiency: 0.9, InitialSOC: 0, Target: 0.5},
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Scenario)
	}{
		{"efficiency", func(c *Scenario) { c.Operating.Efficiency = 0 }},
		{"target", func(c *Scenario) { c.Operating.Target = 1.5 }},
		{"formulation", func(c *Scenario) { c.Formulation.Name = "quadratic" }},
		{"unknown param", func(c *Scenario) { c.Formulation.Params = map[string]any{"nope": 1} }},
		{"coupling", func(c *Scenario) { c.Formulation.Params = map[string]any{"power_coupling": "shared"} }},
		{"profile source", func(c *Scenario) { c.Profile.Source = "satellite" }},
		{"csv without path", func(c *Scenario) { c.Profile = ProfileConfig{Source: "csv"} }},
		{"inline profile", func(c *Scenario) { c.Profile.Values = []float64{0, 2} }},
		{"clearsky site", func(c *Scenario) { c.Profile = ProfileConfig{}; c.Site.Latitude = 120 }},
		{"demand", func(c *Scenario) { c.Demand = DemandConfig{} }},
		{"costs", func(c *Scenario) { c.Costs = CostsConfig{} }},
		{"workers", func(c *Scenario) { c.Workers = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestResolveProfileCSV(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "profile.csv"), []byte("hour,availability\n0,0\n1,0.5\n2,1\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "costs.yaml"), []byte(costsYAML), 0o644))
	path := filepath.Join(dir, "scenario.yaml")
	body := "costs_file: costs.yaml\nyear: 2024\nprofile: {source: csv, path: profile.csv}\n" +
		"demand: {flat_mw: 1}\noperating: {efficiency: 1, initial_soc: 0, target: 0.5}\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	p, err := c.ResolveProfile(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, model.Profile{0, 0.5, 1}, p)
}

func TestFinancialsOrDefault(t *testing.T) {
	c := &Scenario{}
	assert.Equal(t, 20, c.FinancialsOrDefault().LifetimeYears)
	c.Financials.LifetimeYears = 25
	assert.Equal(t, 25, c.FinancialsOrDefault().LifetimeYears)
}
