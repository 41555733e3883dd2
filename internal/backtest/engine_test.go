package backtest

import (
	"testing"

	"solar-bess-sizer/internal/model"
	"solar-bess-sizer/internal/strategy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunGreedyMatchesSimulate(t *testing.T) {
	profile := model.Profile{0, 0.5, 1, 0.5, 0, 0}
	demand := model.FlatDemand(3)
	params := model.StorageParams{SolarCapacityMW: 8, EnergyCapacityMWh: 6, PowerFromSolar: true, Efficiency: 0.9}

	b1, err := model.NewBattery(params)
	require.NoError(t, err)
	want := b1.Simulate(profile, demand)

	b2, err := model.NewBattery(params)
	require.NoError(t, err)
	res, err := New().Run(profile, demand, b2, strategy.Greedy{})
	require.NoError(t, err)

	assert.Equal(t, "greedy", res.Strategy)
	assert.Equal(t, want, res.Trajectory)
	assert.InDelta(t, want.Availability(), res.Availability, 1e-12)
	assert.InDelta(t, want.FinalSOC(), res.FinalSOC, 1e-12)
}

func TestReplayOracleNeverBelowGreedy(t *testing.T) {
	// Flows are whole MWh with η = 1, so the 1 MWh grid is exact.
	profile := model.Profile{1, 1, 0, 0, 1, 0}
	demand := model.SeriesDemand([]float64{1, 0, 1, 3, 0, 2})
	params := model.StorageParams{SolarCapacityMW: 3, EnergyCapacityMWh: 4, PowerCapacityMW: 3, Efficiency: 1}

	greedy, err := Replay("greedy", profile, demand, params)
	require.NoError(t, err)
	oracle, err := Replay("oracle", profile, demand, params)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, oracle.Availability+1e-9, greedy.Availability)
	require.NoError(t, model.CheckTrajectory(oracle.Trajectory, model.Capacities{
		SolarMW: 3, StoragePowerMW: 3, StorageEnergyMWh: 4,
	}, model.OperatingParams{Efficiency: 1, Target: 1}, 1e-9))
}

func TestRunErrors(t *testing.T) {
	b, err := model.NewBattery(model.StorageParams{Efficiency: 1})
	require.NoError(t, err)
	e := New()

	_, err = e.Run(model.Profile{1}, model.FlatDemand(1), nil, strategy.Greedy{})
	assert.Error(t, err)
	_, err = e.Run(model.Profile{1}, model.FlatDemand(1), b, nil)
	assert.Error(t, err)
	_, err = e.Run(nil, model.FlatDemand(1), b, strategy.Greedy{})
	assert.Error(t, err)
	_, err = e.Run(model.Profile{1, 0}, model.SeriesDemand([]float64{1}), b, strategy.Greedy{})
	assert.Error(t, err)

	_, err = Replay("nope", model.Profile{1}, model.FlatDemand(1), model.StorageParams{Efficiency: 1})
	assert.Error(t, err)
}
