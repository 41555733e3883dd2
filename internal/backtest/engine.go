// Package backtest replays a dispatch strategy against fixed capacities.
package backtest

import (
	"fmt"

	"solar-bess-sizer/internal/model"
	"solar-bess-sizer/internal/strategy"
)

type Engine struct{}

func New() *Engine { return &Engine{} }

// Result is a replayed horizon.
type Result struct {
	Strategy     string
	Trajectory   model.Trajectory
	Availability float64
	FinalSOC     float64
}

// Run steps batt through the horizon, asking strat for each period's flow.
// The battery enforces the physical limits; strategies only request.
func (e *Engine) Run(profile model.Profile, demand model.Demand, batt *model.Battery, strat strategy.Strategy) (*Result, error) {
	if batt == nil {
		return nil, fmt.Errorf("battery is nil")
	}
	if strat == nil {
		return nil, fmt.Errorf("strategy is nil")
	}
	if len(profile) == 0 {
		return nil, fmt.Errorf("no periods")
	}
	if err := demand.Validate(len(profile)); err != nil {
		return nil, err
	}

	tr := make(model.Trajectory, 0, len(profile))
	for idx, a := range profile {
		d := demand.At(idx)
		req := strat.Decide(strategy.Context{
			Index:        idx,
			Availability: a,
			DemandMW:     d,
			Battery:      batt,
		})
		tr = append(tr, batt.Apply(idx, a, d, req))
	}

	return &Result{
		Strategy:     strat.Name(),
		Trajectory:   tr,
		Availability: tr.Availability(),
		FinalSOC:     batt.State.SOCMWh,
	}, nil
}

// Replay builds the named strategy for the capacities and runs it from the
// initial SOC.
func Replay(name string, profile model.Profile, demand model.Demand, params model.StorageParams) (*Result, error) {
	strat, err := strategy.New(name, profile, demand, params)
	if err != nil {
		return nil, err
	}
	batt, err := model.NewBattery(params)
	if err != nil {
		return nil, err
	}
	return New().Run(profile, demand, batt, strat)
}
