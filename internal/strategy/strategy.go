// Package strategy holds dispatch policies for a plant with fixed capacities.
// They are fast baselines next to the LP evaluator and scale to full-year horizons.
package strategy

import (
	"fmt"

	"solar-bess-sizer/internal/model"
)

type Context struct {
	Index        int
	Availability float64
	DemandMW     float64
	Battery      *model.Battery
}

type Strategy interface {
	Name() string
	Decide(ctx Context) model.Dispatch
}

// Greedy serves load from solar, stores any surplus and discharges into any deficit.
type Greedy struct{}

func (Greedy) Name() string { return "greedy" }

func (Greedy) Decide(ctx Context) model.Dispatch {
	solar := ctx.Battery.Params.SolarCapacityMW * ctx.Availability
	return model.Dispatch{PowerMW: ctx.DemandMW - solar}
}

// New returns the named strategy. oracle needs the horizon up-front.
func New(name string, profile model.Profile, demand model.Demand, params model.StorageParams) (Strategy, error) {
	switch name {
	case "", "greedy":
		return Greedy{}, nil
	case "oracle":
		orc, err := NewOracleStrategy(profile, demand, params, OracleParams{})
		if err != nil {
			return nil, err
		}
		return orc, nil
	default:
		return nil, fmt.Errorf("unsupported strategy: %q", name)
	}
}
