package model

import (
	"fmt"
	"math"
)

// DispatchRow is one period of a solved dispatch trajectory.
// This is the primary artifact for "what happened" in a sizing or evaluation run.
type DispatchRow struct {
	Index int

	DemandMW    float64
	SolarMW     float64 // solar_capacity * profile[t]
	ChargeMW    float64
	DischargeMW float64
	CurtailedMW float64 // solar spilled; always 0 for sizing runs
	SOCMWh      float64 // stored energy at the end of the period
	ServedMW    float64

	Action Action
}

// Trajectory is the full per-period dispatch of a solved model.
type Trajectory []DispatchRow

func (tr Trajectory) TotalServed() float64 {
	s := 0.0
	for _, r := range tr {
		s += r.ServedMW
	}
	return s
}

func (tr Trajectory) TotalDemand() float64 {
	s := 0.0
	for _, r := range tr {
		s += r.DemandMW
	}
	return s
}

// Availability is the served fraction of total demand.
func (tr Trajectory) Availability() float64 {
	d := tr.TotalDemand()
	if d <= 0 {
		return 0
	}
	return tr.TotalServed() / d
}

// FinalSOC is the stored energy at the end of the horizon.
func (tr Trajectory) FinalSOC() float64 {
	if len(tr) == 0 {
		return 0
	}
	return tr[len(tr)-1].SOCMWh
}

// CheckTrajectory verifies the storage invariants on a solved trajectory: the
// first period holds the initial SOC, later periods follow the energy balance,
// SOC stays within bounds, flows respect the power and solar limits, discharge
// respects the stored energy and served energy matches net supply.
// tol absorbs solver round-off.
func CheckTrajectory(tr Trajectory, caps Capacities, op OperatingParams, tol float64) error {
	powerLimit := caps.PowerLimitMW()
	eff := op.Efficiency
	prev := caps.StorageEnergyMWh * op.InitialSOC
	for n, r := range tr {
		t := r.Index
		if r.ChargeMW < -tol || r.DischargeMW < -tol || r.SOCMWh < -tol || r.ServedMW < -tol || r.CurtailedMW < -tol {
			return fmt.Errorf("period %d: negative flow or state", t)
		}
		if r.SOCMWh > caps.StorageEnergyMWh+tol {
			return fmt.Errorf("period %d: soc %.6f exceeds storage energy %.6f", t, r.SOCMWh, caps.StorageEnergyMWh)
		}
		if n == 0 {
			if math.Abs(r.SOCMWh-prev) > tol*math.Max(1, prev) {
				return fmt.Errorf("period %d: soc %.6f is not the initial soc %.6f", t, r.SOCMWh, prev)
			}
		} else {
			want := prev + r.ChargeMW*eff - r.DischargeMW/eff
			if math.Abs(r.SOCMWh-want) > tol*math.Max(1, math.Abs(want)) {
				return fmt.Errorf("period %d: soc %.6f does not match balance %.6f", t, r.SOCMWh, want)
			}
		}
		if r.ChargeMW > powerLimit+tol || r.DischargeMW > powerLimit+tol {
			return fmt.Errorf("period %d: flow exceeds power limit %.6f", t, powerLimit)
		}
		if r.ChargeMW > r.SolarMW+tol {
			return fmt.Errorf("period %d: charge %.6f exceeds solar output %.6f", t, r.ChargeMW, r.SolarMW)
		}
		if r.DischargeMW > prev*eff+tol {
			return fmt.Errorf("period %d: discharge %.6f exceeds deliverable stored energy %.6f", t, r.DischargeMW, prev*eff)
		}
		served := r.SolarMW + r.DischargeMW - r.ChargeMW - r.CurtailedMW
		if math.Abs(r.ServedMW-served) > tol*math.Max(1, math.Abs(served)) {
			return fmt.Errorf("period %d: served %.6f does not match net supply %.6f", t, r.ServedMW, served)
		}
		if r.ServedMW > r.DemandMW+tol {
			return fmt.Errorf("period %d: served %.6f exceeds demand %.6f", t, r.ServedMW, r.DemandMW)
		}
		prev = r.SOCMWh
	}
	return nil
}
