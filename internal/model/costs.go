package model

import (
	"errors"
	"fmt"
)

// TechCosts are per-unit capital costs used by the sizing objective.
// Units follow the cost table: typically $k/MW and $k/MWh.
type TechCosts struct {
	Year                int
	Region              string
	SolarPerMW          float64
	StoragePowerPerMW   float64
	StorageEnergyPerMWh float64
}

func (c TechCosts) Validate() error {
	if c.SolarPerMW < 0 {
		return errors.New("SolarPerMW must be >= 0")
	}
	if c.StoragePowerPerMW < 0 {
		return errors.New("StoragePowerPerMW must be >= 0")
	}
	if c.StorageEnergyPerMWh < 0 {
		return errors.New("StorageEnergyPerMWh must be >= 0")
	}
	return nil
}

// CapitalCost prices a set of capacities. Power drawn from the solar inverter is
// not priced separately.
func (c TechCosts) CapitalCost(caps Capacities) float64 {
	cost := caps.SolarMW*c.SolarPerMW + caps.StorageEnergyMWh*c.StorageEnergyPerMWh
	if !caps.PowerFromSolar {
		cost += caps.StoragePowerMW * c.StoragePowerPerMW
	}
	return cost
}

// OperatingParams are the physical and service parameters of one run.
type OperatingParams struct {
	// Efficiency is the round-trip efficiency applied as η on charge and 1/η on discharge.
	Efficiency float64
	// InitialSOC is the stored energy entering the horizon as a fraction of storage energy.
	InitialSOC float64
	// Target is the fraction of total demand that must be served.
	Target float64
}

func (o OperatingParams) Validate() error {
	if o.Efficiency <= 0 || o.Efficiency > 1 {
		return fmt.Errorf("efficiency %v must be in (0, 1]", o.Efficiency)
	}
	if o.InitialSOC < 0 || o.InitialSOC > 1 {
		return fmt.Errorf("initial SOC %v must be in [0, 1]", o.InitialSOC)
	}
	if o.Target <= 0 || o.Target > 1 {
		return fmt.Errorf("target %v must be in (0, 1]", o.Target)
	}
	return nil
}

// Capacities are the sizing decisions that outlive a single optimization call.
type Capacities struct {
	SolarMW          float64
	StoragePowerMW   float64
	StorageEnergyMWh float64
	// PowerFromSolar bounds storage flows by SolarMW instead of StoragePowerMW.
	PowerFromSolar bool
}

// PowerLimitMW is the bound on charge and discharge. An explicit zero rating
// means the storage cannot move energy.
func (c Capacities) PowerLimitMW() float64 {
	if c.PowerFromSolar {
		return c.SolarMW
	}
	return c.StoragePowerMW
}
