package model

import (
	"errors"
	"math"
)

// StorageParams defines the physical parameters of a solar-coupled battery.
// Units:
// - EnergyCapacityMWh: MWh
// - PowerCapacityMW: MW, ignored when PowerFromSolar is set
// - Efficiency: round-trip, 0..1
// - InitialSOC: fraction 0..1 of EnergyCapacityMWh
type StorageParams struct {
	SolarCapacityMW   float64
	EnergyCapacityMWh float64
	PowerCapacityMW   float64
	// PowerFromSolar bounds charge and discharge by SolarCapacityMW (shared inverter).
	PowerFromSolar bool
	Efficiency     float64
	InitialSOC     float64
}

// StorageFor builds battery parameters for a set of capacities.
func StorageFor(caps Capacities, op OperatingParams) StorageParams {
	return StorageParams{
		SolarCapacityMW:   caps.SolarMW,
		EnergyCapacityMWh: caps.StorageEnergyMWh,
		PowerCapacityMW:   caps.StoragePowerMW,
		PowerFromSolar:    caps.PowerFromSolar,
		Efficiency:        op.Efficiency,
		InitialSOC:        op.InitialSOC,
	}
}

// BatteryState captures mutable state.
type BatteryState struct {
	// SOCMWh is the stored energy.
	SOCMWh float64
}

// Battery bundles params + state and steps the single-battery state machine
// forward one period at a time. It is a greedy rule (serve load from solar,
// store the surplus, discharge into the deficit) and is used as a baseline
// next to the hindsight-optimal LP dispatch.
type Battery struct {
	Params StorageParams
	State  BatteryState
}

func NewBattery(params StorageParams) (*Battery, error) {
	b := &Battery{
		Params: params,
		State:  BatteryState{SOCMWh: params.EnergyCapacityMWh * params.InitialSOC},
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Battery) Validate() error {
	p := b.Params
	if p.SolarCapacityMW < 0 {
		return errors.New("SolarCapacityMW must be >= 0")
	}
	if p.EnergyCapacityMWh < 0 {
		return errors.New("EnergyCapacityMWh must be >= 0")
	}
	if p.PowerCapacityMW < 0 {
		return errors.New("PowerCapacityMW must be >= 0")
	}
	if p.Efficiency <= 0 || p.Efficiency > 1 {
		return errors.New("Efficiency must be in (0, 1]")
	}
	if p.InitialSOC < 0 || p.InitialSOC > 1 {
		return errors.New("InitialSOC must be in [0, 1]")
	}
	return nil
}

// PowerLimitMW is the charge/discharge limit. A zero power rating disables
// storage flows.
func (b *Battery) PowerLimitMW() float64 {
	if b.Params.PowerFromSolar {
		return b.Params.SolarCapacityMW
	}
	return b.Params.PowerCapacityMW
}

// Dispatch is a requested storage flow for one period.
// PowerMW sign convention: + = discharge to load, - = charge from solar.
type Dispatch struct {
	PowerMW float64
}

// Step applies one period of greedy dispatch and returns the resulting row.
// availability is the normalized solar factor for the period.
func (b *Battery) Step(index int, availability, demandMW float64) DispatchRow {
	solar := b.Params.SolarCapacityMW * availability
	return b.Apply(index, availability, demandMW, Dispatch{PowerMW: demandMW - solar})
}

// Apply executes a requested flow for one period, clipped by the power limit,
// the stored energy and the solar surplus or load deficit of the period.
// Storage never charges from anything but solar and never discharges past load.
//
// Period 0 holds the initial state: its SOC stays at the initial level, surplus
// is curtailed and discharge draws on the initial energy.
func (b *Battery) Apply(index int, availability, demandMW float64, req Dispatch) DispatchRow {
	p := b.Params
	solar := p.SolarCapacityMW * availability
	prev := b.State.SOCMWh
	limit := b.PowerLimitMW()

	direct := math.Min(solar, demandMW)
	surplus := solar - direct
	deficit := demandMW - direct

	charge, discharge := 0.0, 0.0
	switch {
	case req.PowerMW < 0 && index > 0:
		// Headroom is expressed as grid-side MW: stored = charge * eff.
		headroom := math.Max(0, p.EnergyCapacityMWh-prev) / p.Efficiency
		charge = math.Max(0, math.Min(-req.PowerMW, math.Min(surplus, math.Min(limit, headroom))))
	case req.PowerMW > 0:
		discharge = math.Max(0, math.Min(req.PowerMW, math.Min(deficit, math.Min(limit, prev*p.Efficiency))))
	}
	curtailed := surplus - charge

	if index > 0 {
		b.State.SOCMWh = clamp(prev+charge*p.Efficiency-discharge/p.Efficiency, 0, p.EnergyCapacityMWh)
	}

	return DispatchRow{
		Index:       index,
		DemandMW:    demandMW,
		SolarMW:     solar,
		ChargeMW:    charge,
		DischargeMW: discharge,
		CurtailedMW: curtailed,
		SOCMWh:      b.State.SOCMWh,
		ServedMW:    direct + discharge,
		Action:      ActionFromFlows(charge, discharge),
	}
}

// Simulate runs the greedy rule over a whole horizon from the battery's current state.
func (b *Battery) Simulate(profile Profile, demand Demand) Trajectory {
	tr := make(Trajectory, 0, len(profile))
	for t, a := range profile {
		tr = append(tr, b.Step(t, a, demand.At(t)))
	}
	return tr
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
