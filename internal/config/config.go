package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"solar-bess-sizer/internal/costs"
	"solar-bess-sizer/internal/lcoe"
	"solar-bess-sizer/internal/model"
	"solar-bess-sizer/internal/optimize"
	"solar-bess-sizer/internal/profile"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Scenario is the on-disk configuration shape (YAML) of one sizing run.
type Scenario struct {
	Name string `yaml:"name"`

	// Optional: load cost tables from a separate YAML (see costs.File).
	// Explicit Costs fields override values resolved from CostsFile.
	CostsFile string      `yaml:"costs_file"`
	Costs     CostsConfig `yaml:"costs"`

	Country string     `yaml:"country"`
	Year    int        `yaml:"year"`
	Site    SiteConfig `yaml:"site"`

	Profile     ProfileConfig     `yaml:"profile"`
	Demand      DemandConfig      `yaml:"demand"`
	Operating   OperatingConfig   `yaml:"operating"`
	Formulation FormulationConfig `yaml:"formulation"`
	Financials  lcoe.Financials   `yaml:"financials"`
	Output      OutputConfig      `yaml:"output"`

	// Workers bounds concurrent solves in sweeps. 0 means 1.
	Workers int `yaml:"workers"`

	bundle *costs.Bundle
}

type CostsConfig struct {
	SolarPerMW          float64 `yaml:"solar_cost_per_mw"`
	StoragePowerPerMW   float64 `yaml:"bess_power_cost_per_mw"`
	StorageEnergyPerMWh float64 `yaml:"bess_energy_cost_per_mwh"`
}

type SiteConfig struct {
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
	AltitudeM float64 `yaml:"altitude_m"`
}

type ProfileConfig struct {
	// Source is "clearsky" (default), "csv" or "inline".
	Source    string    `yaml:"source"`
	Path      string    `yaml:"path"`
	Normalize bool      `yaml:"normalize"`
	Year      int       `yaml:"year"`
	FullYear  bool      `yaml:"full_year"`
	Values    []float64 `yaml:"values"`
	// Tile repeats the profile to this many periods. 0 keeps its length.
	Tile int `yaml:"tile"`
}

type DemandConfig struct {
	FlatMW float64   `yaml:"flat_mw"`
	Series []float64 `yaml:"series"`
}

type OperatingConfig struct {
	Efficiency float64 `yaml:"efficiency"`
	InitialSOC float64 `yaml:"initial_soc"`
	Target     float64 `yaml:"target"`
}

type FormulationConfig struct {
	Name   string         `yaml:"name"`
	Params map[string]any `yaml:"params"`
}

// FormulationParams are the typed contents of formulation.params.
type FormulationParams struct {
	PowerCoupling string  `mapstructure:"power_coupling"`
	Segments      int     `mapstructure:"segments"`
	PenaltyWeight float64 `mapstructure:"penalty_weight"`
	Tolerance     float64 `mapstructure:"tolerance"`
	MaxNodes      int     `mapstructure:"max_nodes"`
	// Solver is auto, simplex or interior.
	Solver string `mapstructure:"solver"`
}

type OutputConfig struct {
	DispatchCSV string `yaml:"dispatch_csv"`
	ResultsCSV  string `yaml:"results_csv"`
}

func Load(path string) (*Scenario, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked loads and merges config, but does not validate it.
// Useful for debugging/printing partial configs.
func LoadUnchecked(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	if c.CostsFile != "" {
		b, err := costs.LoadFile(resolvePath(path, c.CostsFile))
		if err != nil {
			return nil, err
		}
		c.bundle = b
	}
	if c.Profile.Source == "csv" && c.Profile.Path != "" {
		c.Profile.Path = resolvePath(path, c.Profile.Path)
	}
	return c, nil
}

// Parse decodes a scenario without touching the filesystem.
func Parse(raw []byte) (*Scenario, error) {
	var c Scenario
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// resolvePath prefers interpreting relative paths as relative to the config file
// directory, but falls back to the provided path (relative to cwd) if that doesn't exist.
func resolvePath(configPath, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	cand := filepath.Join(filepath.Dir(configPath), p)
	if _, err := os.Stat(cand); err == nil {
		return cand
	}
	return p
}

// WithCosts attaches an already loaded cost bundle (API requests, sweeps).
func (c *Scenario) WithCosts(b *costs.Bundle) *Scenario {
	c.bundle = b
	return c
}

func (c *Scenario) CostBundle() *costs.Bundle { return c.bundle }

func (c *Scenario) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if err := c.OperatingParams().Validate(); err != nil {
		return fmt.Errorf("operating config invalid: %w", err)
	}
	if _, err := c.Options(nil); err != nil {
		return fmt.Errorf("formulation config invalid: %w", err)
	}
	switch c.profileSource() {
	case "clearsky":
		if err := c.site().Validate(); err != nil {
			return fmt.Errorf("site config invalid: %w", err)
		}
		if c.profileYear() == 0 {
			return errors.New("profile.year or year is required for clear-sky profiles")
		}
	case "csv":
		if c.Profile.Path == "" {
			return errors.New("profile.path is required for csv profiles")
		}
	case "inline":
		if err := model.Profile(c.Profile.Values).Validate(); err != nil {
			return fmt.Errorf("profile config invalid: %w", err)
		}
	default:
		return fmt.Errorf("unknown profile source %q", c.Profile.Source)
	}
	if c.Demand.Series == nil && c.Demand.FlatMW <= 0 {
		return errors.New("demand.flat_mw or demand.series is required")
	}
	if _, err := c.TechCosts(); err != nil {
		return fmt.Errorf("costs config invalid: %w", err)
	}
	if c.Workers < 0 {
		return errors.New("workers must be >= 0")
	}
	return nil
}

func (c *Scenario) OperatingParams() model.OperatingParams {
	return model.OperatingParams{
		Efficiency: c.Operating.Efficiency,
		InitialSOC: c.Operating.InitialSOC,
		Target:     c.Operating.Target,
	}
}

func (c *Scenario) DemandModel() model.Demand {
	if c.Demand.Series != nil {
		return model.SeriesDemand(c.Demand.Series)
	}
	return model.FlatDemand(c.Demand.FlatMW)
}

// Params decodes formulation.params.
func (c *Scenario) Params() (FormulationParams, error) {
	var p FormulationParams
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &p,
	})
	if err != nil {
		return p, err
	}
	if err := dec.Decode(c.Formulation.Params); err != nil {
		return p, fmt.Errorf("formulation.params: %w", err)
	}
	return p, nil
}

// Options builds solver options from the formulation section.
func (c *Scenario) Options(log *zap.Logger) (optimize.Options, error) {
	f, err := optimize.ParseFormulation(c.Formulation.Name)
	if err != nil {
		return optimize.Options{}, err
	}
	p, err := c.Params()
	if err != nil {
		return optimize.Options{}, err
	}
	coupling, err := optimize.ParsePowerCoupling(p.PowerCoupling)
	if err != nil {
		return optimize.Options{}, err
	}
	solver, err := optimize.ParseSolver(p.Solver, p.Tolerance)
	if err != nil {
		return optimize.Options{}, err
	}
	opts := optimize.Options{
		Formulation:   f,
		PowerCoupling: coupling,
		Segments:      p.Segments,
		PenaltyWeight: p.PenaltyWeight,
		Tolerance:     p.Tolerance,
		MaxNodes:      p.MaxNodes,
		Solver:        solver,
		Logger:        log,
	}
	return opts, opts.Validate()
}

// TechCosts resolves sizing costs: the cost file (country table, then year curve)
// overlaid with explicit costs. No value is ever invented.
func (c *Scenario) TechCosts() (model.TechCosts, error) {
	return c.TechCostsFor(c.Country, c.Year)
}

// TechCostsFor resolves sizing costs for another country or year with the same overrides.
func (c *Scenario) TechCostsFor(country string, year int) (model.TechCosts, error) {
	var base model.TechCosts
	found := false
	if c.bundle != nil {
		if country != "" && c.bundle.Lookup.Table.Len() > 0 {
			tc, err := costs.SizingCosts(c.bundle.Lookup, country, year)
			if err == nil {
				base, found = tc, true
			} else if !errors.Is(err, costs.ErrNotFound) {
				return model.TechCosts{}, err
			}
		}
		if !found {
			tc, err := c.bundle.Curve.ForYear(year)
			if err == nil {
				base, found = tc, true
			}
		}
	}
	merged := MergeCosts(base, c.Costs)
	if !found && c.Costs == (CostsConfig{}) {
		return model.TechCosts{}, fmt.Errorf("%w: no sizing costs for %q in %d", costs.ErrNotFound, country, year)
	}
	merged.Year = year
	if country != "" {
		merged.Region = strings.ToLower(country)
	}
	return merged, merged.Validate()
}

// MergeCosts overlays non-zero fields from override onto base.
func MergeCosts(base model.TechCosts, override CostsConfig) model.TechCosts {
	out := base
	if override.SolarPerMW != 0 {
		out.SolarPerMW = override.SolarPerMW
	}
	if override.StoragePowerPerMW != 0 {
		out.StoragePowerPerMW = override.StoragePowerPerMW
	}
	if override.StorageEnergyPerMWh != 0 {
		out.StorageEnergyPerMWh = override.StorageEnergyPerMWh
	}
	return out
}

func (c *Scenario) profileSource() string {
	if c.Profile.Source == "" {
		return "clearsky"
	}
	return strings.ToLower(c.Profile.Source)
}

func (c *Scenario) profileYear() int {
	if c.Profile.Year != 0 {
		return c.Profile.Year
	}
	return c.Year
}

func (c *Scenario) site() profile.Site {
	return profile.Site{Latitude: c.Site.Latitude, Longitude: c.Site.Longitude, AltitudeM: c.Site.AltitudeM}
}

// ResolveProfile produces the availability series described by the profile section.
func (c *Scenario) ResolveProfile(ctx context.Context, provider profile.Provider) (model.Profile, error) {
	var (
		p   model.Profile
		err error
	)
	switch c.profileSource() {
	case "inline":
		p = append(model.Profile(nil), c.Profile.Values...)
	case "csv":
		p, err = profile.LoadCSV(c.Profile.Path, c.Profile.Normalize)
	case "clearsky":
		if provider == nil {
			provider = &profile.ClearSkyProvider{FullYear: c.Profile.FullYear}
		}
		p, err = provider.Profile(ctx, c.site(), c.profileYear())
	default:
		err = fmt.Errorf("unknown profile source %q", c.Profile.Source)
	}
	if err != nil {
		return nil, err
	}
	if c.Profile.Tile > 0 {
		p = p.Tile(c.Profile.Tile)
	}
	return p, nil
}

// Problem assembles the sizing problem for this scenario.
func (c *Scenario) Problem(ctx context.Context, provider profile.Provider) (optimize.Problem, error) {
	prof, err := c.ResolveProfile(ctx, provider)
	if err != nil {
		return optimize.Problem{}, fmt.Errorf("profile: %w", err)
	}
	tc, err := c.TechCosts()
	if err != nil {
		return optimize.Problem{}, err
	}
	return optimize.Problem{
		Profile:   prof,
		Demand:    c.DemandModel(),
		Costs:     tc,
		Operating: c.OperatingParams(),
	}, nil
}

// FinancialsOrDefault returns the configured financials, or 8%/20y when unset.
func (c *Scenario) FinancialsOrDefault() lcoe.Financials {
	if c.Financials.LifetimeYears == 0 {
		return lcoe.DefaultFinancials()
	}
	return c.Financials
}
