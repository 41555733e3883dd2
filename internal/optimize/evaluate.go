package optimize

import (
	"context"
	"errors"
	"fmt"
	"math"

	"solar-bess-sizer/internal/lp"
	"solar-bess-sizer/internal/model"

	"go.uber.org/zap"
)

// EvalProblem is a dispatch-only instance with fixed capacities.
type EvalProblem struct {
	Profile          model.Profile
	Demand           model.Demand
	SolarCapacityMW  float64
	StorageEnergyMWh float64
	// StoragePowerMW bounds charge and discharge. nil couples it to SolarCapacityMW.
	StoragePowerMW *float64
	// Operating.Target is ignored.
	Operating model.OperatingParams
}

func (p EvalProblem) Validate() error {
	if err := p.Profile.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := p.Demand.Validate(p.Profile.Len()); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	for name, v := range map[string]float64{
		"solar capacity": p.SolarCapacityMW,
		"storage energy": p.StorageEnergyMWh,
	} {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("%w: %s %v must be >= 0", ErrInvalidInput, name, v)
		}
	}
	if p.StoragePowerMW != nil && (*p.StoragePowerMW < 0 || math.IsNaN(*p.StoragePowerMW)) {
		return fmt.Errorf("%w: storage power %v must be >= 0", ErrInvalidInput, *p.StoragePowerMW)
	}
	op := p.Operating
	if op.Efficiency <= 0 || op.Efficiency > 1 {
		return fmt.Errorf("%w: efficiency %v must be in (0, 1]", ErrInvalidInput, op.Efficiency)
	}
	if op.InitialSOC < 0 || op.InitialSOC > 1 {
		return fmt.Errorf("%w: initial SOC %v must be in [0, 1]", ErrInvalidInput, op.InitialSOC)
	}
	return nil
}

// Capacities reports the fixed capacities, resolving the power coupling.
func (p EvalProblem) Capacities() model.Capacities {
	caps := model.Capacities{SolarMW: p.SolarCapacityMW, StorageEnergyMWh: p.StorageEnergyMWh}
	if p.StoragePowerMW != nil {
		caps.StoragePowerMW = *p.StoragePowerMW
	} else {
		caps.StoragePowerMW = p.SolarCapacityMW
		caps.PowerFromSolar = true
	}
	return caps
}

// AvailabilityResult is the best service level fixed capacities can reach.
// On failure Availability is 0, Trajectory is empty and Err says why.
type AvailabilityResult struct {
	Availability float64
	Trajectory   model.Trajectory
	Status       lp.Status
	Err          error
}

func (r *AvailabilityResult) OK() bool { return r.Err == nil }

// Evaluate maximizes served energy for fixed capacities. It never fails hard:
// any non-optimal termination is logged and reported as zero availability.
func Evaluate(ctx context.Context, p EvalProblem, opts Options) *AvailabilityResult {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("op", "evaluate"))

	fail := func(status lp.Status, err error) *AvailabilityResult {
		log.Warn("evaluation did not reach an optimum, reporting zero availability",
			zap.String("status", status.String()), zap.Error(err))
		return &AvailabilityResult{Status: status, Trajectory: model.Trajectory{}, Err: err}
	}

	if err := opts.Validate(); err != nil {
		return fail(lp.StatusInvalid, err)
	}
	if err := p.Validate(); err != nil {
		return fail(lp.StatusInvalid, err)
	}
	opts = opts.withDefaults()
	opts.Logger = log

	periods := p.Profile.Len()
	demand := p.Demand.Expand(periods)
	caps := p.Capacities()

	b := newBuilder(p.Profile, demand, p.Operating, opts)
	b.solar = constant(caps.SolarMW)
	b.energy = constant(caps.StorageEnergyMWh)
	b.power = constant(caps.PowerLimitMW())
	b.allowCurtail = true
	b.servedCost = -1
	b.build()

	sol, err := b.solve(ctx)
	if err != nil {
		return fail(statusOf(sol), &SolveError{
			Op:          "evaluate",
			Status:      statusOf(sol),
			Formulation: opts.Formulation,
			Coupling:    opts.PowerCoupling,
			Segments:    opts.Segments,
			Periods:     periods,
			TotalDemand: p.Demand.Total(periods),
			Operating:   p.Operating,
			Capacities:  caps,
			Kind:        kindOf(err),
			Cause:       err,
		})
	}
	if !sol.IsOptimal() {
		return fail(sol.Status, errors.New("solver returned a non-optimal status without an error"))
	}

	tr := b.trajectory(sol)
	res := &AvailabilityResult{
		Availability: tr.Availability(),
		Trajectory:   tr,
		Status:       sol.Status,
	}
	log.Debug("evaluation solved",
		zap.Float64("availability", res.Availability),
		zap.Float64("solar_mw", caps.SolarMW),
		zap.Float64("storage_energy_mwh", caps.StorageEnergyMWh),
		zap.Int("periods", periods),
	)
	return res
}
