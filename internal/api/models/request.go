package models

import "solar-bess-sizer/internal/lcoe"

// ScenarioConfig mirrors the YAML scenario in JSON form.
type ScenarioConfig struct {
	Name    string `json:"name,omitempty"`
	Country string `json:"country,omitempty"`
	Year    int    `json:"year,omitempty"`

	// Costs override (or replace) the server's cost tables.
	Costs       CostsConfig       `json:"costs,omitempty"`
	Profile     ProfileConfig     `json:"profile" binding:"required"`
	Demand      DemandConfig      `json:"demand" binding:"required"`
	Operating   OperatingConfig   `json:"operating" binding:"required"`
	Formulation FormulationConfig `json:"formulation,omitempty"`
	Financials  *lcoe.Financials  `json:"financials,omitempty"`
}

type CostsConfig struct {
	SolarPerMW          float64 `json:"solar_cost_per_mw,omitempty"`
	StoragePowerPerMW   float64 `json:"bess_power_cost_per_mw,omitempty"`
	StorageEnergyPerMWh float64 `json:"bess_energy_cost_per_mwh,omitempty"`
}

// ProfileConfig is either inline values or a clear-sky site.
type ProfileConfig struct {
	Source    string    `json:"source,omitempty"` // "inline" or "clearsky"
	Values    []float64 `json:"values,omitempty"`
	Latitude  *float64  `json:"latitude,omitempty"`
	Longitude *float64  `json:"longitude,omitempty"`
	AltitudeM float64   `json:"altitude_m,omitempty"`
	Year      int       `json:"year,omitempty"`
	FullYear  bool      `json:"full_year,omitempty"`
	Tile      int       `json:"tile,omitempty"`
}

type DemandConfig struct {
	FlatMW float64   `json:"flat_mw,omitempty"`
	Series []float64 `json:"series,omitempty"`
}

type OperatingConfig struct {
	Efficiency float64 `json:"efficiency" binding:"required"`
	InitialSOC float64 `json:"initial_soc"`
	Target     float64 `json:"target,omitempty"`
}

type FormulationConfig struct {
	Name   string                 `json:"name,omitempty"`
	Params map[string]interface{} `json:"params,omitempty"`
}

// OptimizeRequest represents the request body for POST /api/v1/optimize
type OptimizeRequest struct {
	Scenario ScenarioConfig `json:"scenario" binding:"required"`
	Options  RunOptions     `json:"options,omitempty"`
}

// EvaluateRequest represents the request body for POST /api/v1/evaluate
type EvaluateRequest struct {
	Scenario   ScenarioConfig   `json:"scenario" binding:"required"`
	Capacities CapacitiesConfig `json:"capacities" binding:"required"`
	Options    RunOptions       `json:"options,omitempty"`
}

type CapacitiesConfig struct {
	SolarMW          float64  `json:"solar_capacity_mw"`
	StorageEnergyMWh float64  `json:"storage_energy_mwh"`
	StoragePowerMW   *float64 `json:"storage_power_mw,omitempty"` // default: solar capacity
}

// RunOptions contains optional run parameters
type RunOptions struct {
	IncludeDispatch bool `json:"include_dispatch,omitempty"` // default: false
	TimeoutSeconds  int  `json:"timeout_seconds,omitempty"`  // 0 = server default
}

// LCOERequest represents the request body for POST /api/v1/lcoe.
// Exactly one of the calculations must be set.
type LCOERequest struct {
	Sizing       *SizingLCOE        `json:"sizing,omitempty"`
	SolarBESS    *lcoe.SolarBESS    `json:"solar_bess,omitempty"`
	Conventional *lcoe.Conventional `json:"conventional,omitempty"`
}

// SizingLCOE levelizes a sizing cost (thousand $) over a flat load.
type SizingLCOE struct {
	TotalCost  float64         `json:"total_cost"`
	LoadMW     float64         `json:"load_mw"`
	Target     float64         `json:"target"`
	Financials lcoe.Financials `json:"financials"`
}

// RankRequest represents query parameters for GET /api/v1/rank
type RankRequest struct {
	Countries  string  `form:"countries"` // comma-separated; empty = all known locations
	Year       int     `form:"year" binding:"required"`
	Efficiency float64 `form:"efficiency"` // default: 0.9
	Limit      int     `form:"limit"`      // default: 10
}
