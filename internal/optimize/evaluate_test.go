package optimize

import (
	"context"
	"testing"

	"solar-bess-sizer/internal/lp"
	"solar-bess-sizer/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func evalFromSizing(p Problem, res *SizingResult) EvalProblem {
	ep := EvalProblem{
		Profile:          p.Profile,
		Demand:           p.Demand,
		SolarCapacityMW:  res.SolarCapacityMW,
		StorageEnergyMWh: res.StorageEnergyMWh,
		Operating:        p.Operating,
	}
	if res.PowerCoupling == CouplingSeparate {
		power := res.StoragePowerMW
		ep.StoragePowerMW = &power
	}
	return ep
}

func TestEvaluateMeetsSizingTarget(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"penalty/separate", Options{}},
		{"unconstrained/solar", Options{Formulation: FormulationUnconstrained, PowerCoupling: CouplingSolar}},
		{"two segments", Options{Segments: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := smallScenario()
			sized, err := Optimize(context.Background(), p, tt.opts)
			require.NoError(t, err)

			got := Evaluate(context.Background(), evalFromSizing(p, sized), tt.opts)
			require.True(t, got.OK(), "%v", got.Err)
			assert.Equal(t, lp.StatusOptimal, got.Status)
			assert.GreaterOrEqual(t, got.Availability, p.Operating.Target-1e-6)
			assert.GreaterOrEqual(t, got.Availability, sized.Availability-1e-6)
			assert.InDelta(t, p.Operating.InitialSOC*sized.StorageEnergyMWh, got.Trajectory[0].SOCMWh, 1e-6*sized.StorageEnergyMWh)
			require.NoError(t, model.CheckTrajectory(got.Trajectory, evalFromSizing(p, sized).Capacities(), p.Operating, DefaultCheckTolerance))
		})
	}
}

func TestEvaluateBounds(t *testing.T) {
	op := model.OperatingParams{Efficiency: 0.9, InitialSOC: 0.5}

	t.Run("no capacity serves nothing", func(t *testing.T) {
		got := Evaluate(context.Background(), EvalProblem{
			Profile:   halfDay(),
			Demand:    model.FlatDemand(100),
			Operating: op,
		}, Options{})
		require.True(t, got.OK(), "%v", got.Err)
		assert.InDelta(t, 0, got.Availability, 1e-9)
		assert.Len(t, got.Trajectory, 12)
	})

	t.Run("ample capacity serves everything", func(t *testing.T) {
		got := Evaluate(context.Background(), EvalProblem{
			Profile:          halfDay(),
			Demand:           model.FlatDemand(100),
			SolarCapacityMW:  5000,
			StorageEnergyMWh: 10000,
			Operating:        op,
		}, Options{})
		require.True(t, got.OK(), "%v", got.Err)
		assert.InDelta(t, 1, got.Availability, 1e-6)
		caps := model.Capacities{SolarMW: 5000, StorageEnergyMWh: 10000, PowerFromSolar: true}
		require.NoError(t, model.CheckTrajectory(got.Trajectory, caps, op, DefaultCheckTolerance))
		assert.InDelta(t, 5000, got.Trajectory[0].SOCMWh, 1e-6)
	})

	t.Run("power defaults to solar capacity", func(t *testing.T) {
		ep := EvalProblem{
			Profile:          halfDay(),
			Demand:           model.FlatDemand(100),
			SolarCapacityMW:  50,
			StorageEnergyMWh: 1000,
			Operating:        op,
		}
		got := Evaluate(context.Background(), ep, Options{})
		require.True(t, got.OK(), "%v", got.Err)
		for _, row := range got.Trajectory {
			assert.LessOrEqual(t, row.ChargeMW, 50+1e-6)
			assert.LessOrEqual(t, row.DischargeMW, 50+1e-6)
		}
		assert.Equal(t, 50.0, ep.Capacities().StoragePowerMW)
		assert.True(t, ep.Capacities().PowerFromSolar)
	})

	t.Run("zero power rating keeps storage idle", func(t *testing.T) {
		zero := 0.0
		got := Evaluate(context.Background(), EvalProblem{
			Profile:          halfDay(),
			Demand:           model.FlatDemand(100),
			SolarCapacityMW:  500,
			StorageEnergyMWh: 1000,
			StoragePowerMW:   &zero,
			Operating:        op,
		}, Options{})
		require.True(t, got.OK(), "%v", got.Err)
		for _, row := range got.Trajectory {
			assert.InDelta(t, 0, row.ChargeMW, 1e-6)
			assert.InDelta(t, 0, row.DischargeMW, 1e-6)
			assert.InDelta(t, 500, row.SOCMWh, 1e-6)
		}
	})
}

func TestEvaluateMultiDayHorizon(t *testing.T) {
	p := scenario()
	p.Profile = days(3)
	sized, err := Optimize(context.Background(), p, Options{})
	require.NoError(t, err)

	ep := evalFromSizing(p, sized)
	got := Evaluate(context.Background(), ep, Options{})
	require.True(t, got.OK(), "%v", got.Err)
	require.Len(t, got.Trajectory, 72)
	assert.GreaterOrEqual(t, got.Availability, p.Operating.Target-1e-6)
	assert.InDelta(t, 0.5*sized.StorageEnergyMWh, got.Trajectory[0].SOCMWh, 1e-6*sized.StorageEnergyMWh)
	require.NoError(t, model.CheckTrajectory(got.Trajectory, ep.Capacities(), p.Operating, DefaultCheckTolerance))
}

func TestEvaluateBeatsGreedyDispatch(t *testing.T) {
	op := model.OperatingParams{Efficiency: 0.9, InitialSOC: 0.5}
	for _, caps := range []model.Capacities{
		{SolarMW: 200, StorageEnergyMWh: 300, PowerFromSolar: true},
		{SolarMW: 400, StorageEnergyMWh: 800, StoragePowerMW: 120},
		{SolarMW: 100, PowerFromSolar: true},
	} {
		batt, err := model.NewBattery(model.StorageFor(caps, op))
		require.NoError(t, err)
		greedy := batt.Simulate(sourceDay, model.FlatDemand(100))
		require.NoError(t, model.CheckTrajectory(greedy, caps, op, DefaultCheckTolerance))

		ep := EvalProblem{
			Profile:          sourceDay,
			Demand:           model.FlatDemand(100),
			SolarCapacityMW:  caps.SolarMW,
			StorageEnergyMWh: caps.StorageEnergyMWh,
			Operating:        op,
		}
		if !caps.PowerFromSolar {
			ep.StoragePowerMW = &caps.StoragePowerMW
		}
		got := Evaluate(context.Background(), ep, Options{Formulation: FormulationUnconstrained})
		require.True(t, got.OK(), "%v", got.Err)
		assert.GreaterOrEqual(t, got.Availability, greedy.Availability()-1e-6, "caps %+v", caps)
	}
}

func TestEvaluateSoftFailures(t *testing.T) {
	t.Run("invalid input", func(t *testing.T) {
		got := Evaluate(context.Background(), EvalProblem{
			Profile:   nil,
			Demand:    model.FlatDemand(1),
			Operating: model.OperatingParams{Efficiency: 0.9},
		}, Options{})
		assert.False(t, got.OK())
		assert.ErrorIs(t, got.Err, ErrInvalidInput)
		assert.Equal(t, lp.StatusInvalid, got.Status)
		assert.Equal(t, 0.0, got.Availability)
		assert.Empty(t, got.Trajectory)
	})

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		got := Evaluate(ctx, EvalProblem{
			Profile:         halfDay(),
			Demand:          model.FlatDemand(100),
			SolarCapacityMW: 100,
			Operating:       model.OperatingParams{Efficiency: 0.9},
		}, Options{})
		assert.False(t, got.OK())
		assert.ErrorIs(t, got.Err, ErrSuboptimal)
		assert.Equal(t, lp.StatusCanceled, got.Status)
		assert.Equal(t, 0.0, got.Availability)
		assert.Empty(t, got.Trajectory)
	})
}
