package optimize

import (
	"errors"
	"fmt"

	"solar-bess-sizer/internal/lp"
	"solar-bess-sizer/internal/model"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	// ErrInfeasible means the model has no feasible point.
	ErrInfeasible = errors.New("no optimal solution: model is infeasible")
	// ErrSuboptimal means the solver stopped without proving optimality
	// (node limit, numerical trouble, unbounded relaxation, cancellation).
	ErrSuboptimal = errors.New("no optimal solution: solver did not prove optimality")
)

// SolveError reports a failed solve together with the parameters needed to reproduce it.
// It matches ErrInfeasible or ErrSuboptimal with errors.Is, and also the underlying
// lp error.
type SolveError struct {
	Op          string // "optimize" or "evaluate"
	Status      lp.Status
	Formulation Formulation
	Coupling    PowerCoupling
	Segments    int
	Periods     int
	TotalDemand float64
	Operating   model.OperatingParams
	Costs       model.TechCosts
	Capacities  model.Capacities // evaluate only

	Kind  error
	Cause error
}

func (e *SolveError) Error() string {
	msg := fmt.Sprintf("%s: %v (status=%s formulation=%s coupling=%s segments=%d periods=%d demand=%.4g efficiency=%.4g initial_soc=%.4g",
		e.Op, e.Kind, e.Status, e.Formulation, e.Coupling, e.Segments, e.Periods, e.TotalDemand,
		e.Operating.Efficiency, e.Operating.InitialSOC)
	if e.Op == "evaluate" {
		msg += fmt.Sprintf(" solar=%.4g power=%.4g energy=%.4g)", e.Capacities.SolarMW, e.Capacities.StoragePowerMW, e.Capacities.StorageEnergyMWh)
	} else {
		msg += fmt.Sprintf(" target=%.4g cost_solar=%.4g cost_power=%.4g cost_energy=%.4g)", e.Operating.Target,
			e.Costs.SolarPerMW, e.Costs.StoragePowerPerMW, e.Costs.StorageEnergyPerMWh)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *SolveError) Unwrap() []error {
	out := []error{e.Kind}
	if e.Cause != nil {
		out = append(out, e.Cause)
	}
	return out
}

// kindOf classifies an lp error into the optimizer taxonomy.
func kindOf(err error) error {
	if errors.Is(err, lp.ErrInfeasible) {
		return ErrInfeasible
	}
	return ErrSuboptimal
}
