// Package optimize sizes solar and battery storage at least capital cost and
// evaluates the service level of fixed capacities.
//
// Both engines share one storage model. For each period t:
//
//	soc[t]       = soc[t-1] + η·charge[t] − discharge[t]/η   (soc[-1] = E·soc₀)
//	soc[t]      <= E
//	charge[t]   <= P,  discharge[t] <= P                     (P = S under solar coupling)
//	charge[t]   <= S·profile[t]
//	discharge[t] <= η·soc[t-1]
//	served[t]    = S·profile[t] + discharge[t] − charge[t]  (− curtail[t] when evaluating)
//	served[t]   <= demand[t]
//
// Sizing adds Σ served ≥ target·Σ demand and minimizes S·cS + P·cP + E·cE.
// Evaluation fixes S, P and E and maximizes Σ served.
package optimize

import (
	"context"
	"fmt"
	"time"

	"solar-bess-sizer/internal/lp"
	"solar-bess-sizer/internal/model"

	"go.uber.org/zap"
)

// Problem is one sizing instance.
type Problem struct {
	Profile   model.Profile
	Demand    model.Demand
	Costs     model.TechCosts
	Operating model.OperatingParams
}

func (p Problem) Validate() error {
	if err := p.Profile.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := p.Demand.Validate(p.Profile.Len()); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := p.Costs.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := p.Operating.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

// SizingResult is the least-cost sizing and the dispatch that achieves it.
type SizingResult struct {
	// TotalCost is the capital cost of the capacities.
	TotalCost float64
	// Objective is TotalCost plus any penalty term.
	Objective float64

	SolarCapacityMW  float64
	StoragePowerMW   float64 // 0 under CouplingSolar
	StorageEnergyMWh float64

	Formulation   Formulation
	PowerCoupling PowerCoupling
	Segments      int
	Nodes         int

	// Availability is the served fraction of demand achieved by Trajectory.
	Availability float64
	Trajectory   model.Trajectory
}

func (r *SizingResult) Capacities() model.Capacities {
	return model.Capacities{
		SolarMW:          r.SolarCapacityMW,
		StoragePowerMW:   r.StoragePowerMW,
		StorageEnergyMWh: r.StorageEnergyMWh,
		PowerFromSolar:   r.PowerCoupling == CouplingSolar,
	}
}

// Optimize finds the capacities of least capital cost that serve the target
// fraction of demand, together with the dispatch that serves it.
// Any termination other than a proven optimum is returned as a *SolveError.
func Optimize(ctx context.Context, p Problem, opts Options) (*SizingResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()
	log := opts.Logger.With(zap.String("op", "optimize"))

	periods := p.Profile.Len()
	demand := p.Demand.Expand(periods)

	b := newBuilder(p.Profile, demand, p.Operating, opts)
	sv := b.m.AddVar("solar_capacity", p.Costs.SolarPerMW)
	ev := b.m.AddVar("storage_energy", p.Costs.StorageEnergyPerMWh)
	b.solar = variable(sv)
	b.energy = variable(ev)
	pv := noVar
	if opts.PowerCoupling == CouplingSolar {
		b.power = b.solar
	} else {
		pv = b.m.AddVar("storage_power", p.Costs.StoragePowerPerMW)
		b.power = variable(pv)
	}
	b.build()
	b.adequacy(p.Operating.Target)

	log.Debug("model built",
		zap.Int("periods", periods),
		zap.Int("segments", len(b.entries)+1),
		zap.Int("vars", b.m.NumVars()),
		zap.Int("rows", b.m.NumRows()),
		zap.String("formulation", string(opts.Formulation)),
		zap.String("coupling", string(opts.PowerCoupling)),
	)

	started := time.Now()
	sol, err := b.solve(ctx)
	if err != nil {
		serr := &SolveError{
			Op:          "optimize",
			Status:      statusOf(sol),
			Formulation: opts.Formulation,
			Coupling:    opts.PowerCoupling,
			Segments:    opts.Segments,
			Periods:     periods,
			TotalDemand: p.Demand.Total(periods),
			Operating:   p.Operating,
			Costs:       p.Costs,
			Kind:        kindOf(err),
			Cause:       err,
		}
		log.Error("sizing failed", zap.Error(serr))
		return nil, serr
	}

	res := &SizingResult{
		Objective:        sol.Objective,
		SolarCapacityMW:  sol.Value(sv),
		StorageEnergyMWh: sol.Value(ev),
		Formulation:      opts.Formulation,
		PowerCoupling:    opts.PowerCoupling,
		Segments:         len(b.entries) + 1,
		Nodes:            sol.Nodes,
		Trajectory:       b.trajectory(sol),
	}
	if pv != noVar {
		res.StoragePowerMW = sol.Value(pv)
	}
	res.TotalCost = p.Costs.CapitalCost(res.Capacities())
	res.Availability = res.Trajectory.Availability()

	log.Info("sizing solved",
		zap.Float64("total_cost", res.TotalCost),
		zap.Float64("solar_mw", res.SolarCapacityMW),
		zap.Float64("storage_power_mw", res.StoragePowerMW),
		zap.Float64("storage_energy_mwh", res.StorageEnergyMWh),
		zap.Float64("availability", res.Availability),
		zap.Int("nodes", res.Nodes),
		zap.Duration("elapsed", time.Since(started)),
	)
	return res, nil
}

func statusOf(sol *lp.Solution) lp.Status {
	if sol == nil {
		return lp.StatusNumerical
	}
	return sol.Status
}
