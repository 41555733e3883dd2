// Package lcoe computes levelized cost of electricity from capital and operating
// cost streams. Payments are discounted as an annuity-due (start of each year).
package lcoe

import (
	"errors"
	"fmt"
	"math"
)

const HoursPerYear = 8760

var ErrInvalid = errors.New("lcoe: invalid input")

// Financials are the discounting terms of a project.
type Financials struct {
	// DiscountRate is a fraction; values above 1 are read as percentages.
	DiscountRate  float64 `json:"discount_rate" yaml:"discount_rate"`
	LifetimeYears int     `json:"lifetime_years" yaml:"lifetime_years"`
}

// DefaultFinancials are 8% over 20 years.
func DefaultFinancials() Financials {
	return Financials{DiscountRate: 0.08, LifetimeYears: 20}
}

func (f Financials) Validate() error {
	if f.LifetimeYears <= 0 {
		return fmt.Errorf("%w: lifetime %d years must be > 0", ErrInvalid, f.LifetimeYears)
	}
	r := ToFrac(f.DiscountRate)
	if r < 0 || math.IsNaN(r) {
		return fmt.Errorf("%w: discount rate %v must be >= 0", ErrInvalid, f.DiscountRate)
	}
	return nil
}

// ToFrac accepts a 0..1 fraction or a 0..100 percentage and returns a fraction.
func ToFrac(x float64) float64 {
	if x > 1 {
		return x / 100
	}
	return x
}

// PV is the present value of a level payment made at the start of each of n periods.
func PV(rate float64, n int, payment float64) float64 {
	if rate == 0 {
		return payment * float64(n)
	}
	return payment * (1 + rate) * (1 - math.Pow(1+rate, -float64(n))) / rate
}

// LCOE is discounted lifetime cost over discounted lifetime output. The unit is
// the cost unit per output unit.
func LCOE(annualOutput, capitalCost, annualOperatingCost float64, fin Financials) (float64, error) {
	if err := fin.Validate(); err != nil {
		return 0, err
	}
	if annualOutput <= 0 {
		return 0, fmt.Errorf("%w: annual output %v must be > 0", ErrInvalid, annualOutput)
	}
	r := ToFrac(fin.DiscountRate)
	cost := capitalCost + PV(r, fin.LifetimeYears, annualOperatingCost)
	return cost / PV(r, fin.LifetimeYears, annualOutput), nil
}

// FromSizing levelizes a sizing result's capital cost (thousand $) over the
// energy served to a flat load at the target service level. Returns $/MWh.
func FromSizing(totalCostK, loadMW, target float64, fin Financials) (float64, error) {
	v, err := LCOE(loadMW*HoursPerYear*target, totalCostK, 0, fin)
	if err != nil {
		return 0, err
	}
	return 1000 * v, nil
}

// Breakdown is the result of a plant-level LCOE calculation.
type Breakdown struct {
	LCOE            float64 `json:"lcoe_per_mwh"`
	TotalCapex      float64 `json:"total_capex"`
	AnnualOpex      float64 `json:"annual_opex"`
	AnnualEnergyMWh float64 `json:"annual_energy_mwh"`
}

// SolarBESS prices a fixed solar + storage plant. Unit costs are per kW(h) as in
// published capex tables; Availability is the served fraction of a 1 MW load.
type SolarBESS struct {
	SolarMW          float64 `json:"solar_mw"`
	StorageEnergyMWh float64 `json:"storage_energy_mwh"`
	Availability     float64 `json:"availability"`

	SolarCapexPerKW       float64 `json:"solar_capex_per_kw"`
	StorageCapexPerKWh    float64 `json:"storage_capex_per_kwh"`
	SolarOpexPerKWYear    float64 `json:"solar_opex_per_kw_year"`
	StorageOpexPerKWhYear float64 `json:"storage_opex_per_kwh_year"`
	Financials
}

func (s SolarBESS) Compute() (Breakdown, error) {
	if s.SolarMW < 0 || s.StorageEnergyMWh < 0 {
		return Breakdown{}, fmt.Errorf("%w: capacities must be >= 0", ErrInvalid)
	}
	af := ToFrac(s.Availability)
	b := Breakdown{
		TotalCapex:      s.SolarMW*s.SolarCapexPerKW*1000 + s.StorageEnergyMWh*s.StorageCapexPerKWh*1000,
		AnnualOpex:      s.SolarMW*s.SolarOpexPerKWYear*1000 + s.StorageEnergyMWh*s.StorageOpexPerKWhYear*1000,
		AnnualEnergyMWh: af * HoursPerYear,
	}
	v, err := LCOE(b.AnnualEnergyMWh, b.TotalCapex, b.AnnualOpex, s.Financials)
	if err != nil {
		return Breakdown{}, err
	}
	b.LCOE = v
	return b, nil
}

// Conventional prices a dispatchable thermal plant in closed form.
type Conventional struct {
	CapacityMW     float64 `json:"capacity_mw"`
	CapacityFactor float64 `json:"capacity_factor"`

	CapexPerKW         float64 `json:"capex_per_kw"`
	FixedOpexPerKWYear float64 `json:"fixed_opex_per_kw_year"`
	VariableOpexPerMWh float64 `json:"variable_opex_per_mwh"`
	FuelCostPerMWhFuel float64 `json:"fuel_cost_per_mwh_fuel"`
	// Efficiency converts fuel to electricity; a percentage is accepted.
	Efficiency float64 `json:"efficiency"`
	Financials
}

func (c Conventional) Compute() (Breakdown, error) {
	if c.CapacityMW <= 0 {
		return Breakdown{}, fmt.Errorf("%w: capacity %v MW must be > 0", ErrInvalid, c.CapacityMW)
	}
	eff := ToFrac(c.Efficiency)
	if eff <= 0 {
		return Breakdown{}, fmt.Errorf("%w: efficiency %v must be > 0", ErrInvalid, c.Efficiency)
	}
	energy := c.CapacityMW * HoursPerYear * ToFrac(c.CapacityFactor)
	variable := c.VariableOpexPerMWh + c.FuelCostPerMWhFuel/eff
	b := Breakdown{
		TotalCapex:      c.CapacityMW * 1000 * c.CapexPerKW,
		AnnualOpex:      c.CapacityMW*1000*c.FixedOpexPerKWYear + variable*energy,
		AnnualEnergyMWh: energy,
	}
	v, err := LCOE(b.AnnualEnergyMWh, b.TotalCapex, b.AnnualOpex, c.Financials)
	if err != nil {
		return Breakdown{}, err
	}
	b.LCOE = v
	return b, nil
}
