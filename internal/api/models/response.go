package models

import (
	"time"

	"solar-bess-sizer/internal/model"
	"solar-bess-sizer/internal/store"
)

// OptimizeResponse represents the response from a sizing run
type OptimizeResponse struct {
	ID       string        `json:"id,omitempty"`
	Status   string        `json:"status"`
	Summary  SizingSummary `json:"summary"`
	Dispatch []DispatchRow `json:"dispatch,omitempty"`
}

// SizingSummary contains the sized capacities and their cost
type SizingSummary struct {
	TotalCost        float64 `json:"total_cost"`
	Objective        float64 `json:"objective"`
	SolarCapacityMW  float64 `json:"solar_capacity_mw"`
	StoragePowerMW   float64 `json:"storage_power_mw"`
	StorageEnergyMWh float64 `json:"storage_energy_mwh"`
	Availability     float64 `json:"availability"`
	LCOE             float64 `json:"lcoe_per_mwh"`
	Formulation      string  `json:"formulation"`
	PowerCoupling    string  `json:"power_coupling"`
	Segments         int     `json:"segments"`
	Nodes            int     `json:"nodes,omitempty"`
	Periods          int     `json:"periods"`
}

// EvaluateResponse represents the response from an availability evaluation
type EvaluateResponse struct {
	ID           string        `json:"id,omitempty"`
	Status       string        `json:"status"`
	Availability float64       `json:"availability"`
	Warning      string        `json:"warning,omitempty"`
	Dispatch     []DispatchRow `json:"dispatch,omitempty"`
}

// DispatchRow represents one period of a dispatch trajectory
type DispatchRow struct {
	PeriodIndex    int     `json:"period_index"`
	DemandMW       float64 `json:"demand_mw"`
	SolarOutputMW  float64 `json:"solar_output_mw"`
	ChargeMW       float64 `json:"charge_mw"`
	DischargeMW    float64 `json:"discharge_mw"`
	CurtailedMW    float64 `json:"curtailed_mw"`
	SOCMWh         float64 `json:"soc_mwh"`
	EnergyServedMW float64 `json:"energy_served_mw"`
	Action         string  `json:"action"` // "CHARGING", "DISCHARGING", "IDLE"
}

func NewDispatch(tr model.Trajectory) []DispatchRow {
	out := make([]DispatchRow, len(tr))
	for i, r := range tr {
		out[i] = DispatchRow{
			PeriodIndex:    r.Index,
			DemandMW:       r.DemandMW,
			SolarOutputMW:  r.SolarMW,
			ChargeMW:       r.ChargeMW,
			DischargeMW:    r.DischargeMW,
			CurtailedMW:    r.CurtailedMW,
			SOCMWh:         r.SOCMWh,
			EnergyServedMW: r.ServedMW,
			Action:         string(r.Action),
		}
	}
	return out
}

// RunResponse represents a stored run
type RunResponse struct {
	ID               string    `json:"id"`
	CreatedAt        time.Time `json:"created_at"`
	Kind             string    `json:"kind"`
	Name             string    `json:"name,omitempty"`
	Country          string    `json:"country,omitempty"`
	Year             int       `json:"year,omitempty"`
	Formulation      string    `json:"formulation,omitempty"`
	PowerCoupling    string    `json:"power_coupling,omitempty"`
	Segments         int       `json:"segments,omitempty"`
	Periods          int       `json:"periods"`
	Target           float64   `json:"target,omitempty"`
	SolarCapacityMW  float64   `json:"solar_capacity_mw"`
	StoragePowerMW   float64   `json:"storage_power_mw"`
	StorageEnergyMWh float64   `json:"storage_energy_mwh"`
	TotalCost        float64   `json:"total_cost"`
	LCOE             float64   `json:"lcoe_per_mwh"`
	Availability     float64   `json:"availability"`
	Status           string    `json:"status"`
	Error            string    `json:"error,omitempty"`
}

func NewRunResponse(r *store.Run) RunResponse {
	return RunResponse{
		ID:               r.ID,
		CreatedAt:        r.CreatedAt,
		Kind:             r.Kind,
		Name:             r.Name,
		Country:          r.Country,
		Year:             r.Year,
		Formulation:      r.Formulation,
		PowerCoupling:    r.PowerCoupling,
		Segments:         r.Segments,
		Periods:          r.Periods,
		Target:           r.Target,
		SolarCapacityMW:  r.SolarMW,
		StoragePowerMW:   r.StoragePowerMW,
		StorageEnergyMWh: r.StorageEnergyMWh,
		TotalCost:        r.TotalCost,
		LCOE:             r.LCOE,
		Availability:     r.Availability,
		Status:           r.Status,
		Error:            r.Error,
	}
}

// LCOEResponse represents the result of an LCOE calculation
type LCOEResponse struct {
	LCOE            float64 `json:"lcoe_per_mwh"`
	TotalCapex      float64 `json:"total_capex,omitempty"`
	AnnualOpex      float64 `json:"annual_opex,omitempty"`
	AnnualEnergyMWh float64 `json:"annual_energy_mwh"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error codes
const (
	CodeInvalidRequest        = "INVALID_REQUEST"
	CodeInfeasibleModel       = "INFEASIBLE_MODEL"
	CodeSuboptimalTermination = "SUBOPTIMAL_TERMINATION"
	CodeLookupMiss            = "LOOKUP_MISS"
	CodeNotFound              = "NOT_FOUND"
	CodeInternalError         = "INTERNAL_ERROR"
)

// FormulationInfo represents information about a sizing formulation
type FormulationInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	MIP         bool            `json:"mip"`
	Parameters  []ParameterInfo `json:"parameters"`
}

// ParameterInfo describes a formulation parameter
type ParameterInfo struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"` // "float", "int", "string"
	Description string      `json:"description"`
	Default     interface{} `json:"default,omitempty"`
}

// LocationInfo represents information about a location
type LocationInfo struct {
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Region    string  `json:"region,omitempty"`
	Continent string  `json:"continent,omitempty"`
}

// RankResponse represents the response from ranking locations
type RankResponse struct {
	Rankings []Ranking `json:"rankings"`
}

// Ranking represents one ranked location
type Ranking struct {
	Rank               int     `json:"rank"`
	Country            string  `json:"country"`
	Periods            int     `json:"periods"`
	CapacityFactor     float64 `json:"capacity_factor"`
	P05                float64 `json:"p05"`
	P95                float64 `json:"p95"`
	DaylightHours      int     `json:"daylight_hours"`
	LongestDark        int     `json:"longest_dark_hours"`
	GreedyAvailability float64 `json:"greedy_availability"`
	OracleAvailability float64 `json:"oracle_availability"`
}
