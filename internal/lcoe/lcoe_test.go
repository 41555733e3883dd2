package lcoe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPV(t *testing.T) {
	tests := []struct {
		name    string
		rate    float64
		n       int
		payment float64
		want    float64
	}{
		{"zero rate", 0, 10, 5, 50},
		{"single period is undiscounted", 0.1, 1, 100, 100},
		{"two periods", 0.1, 2, 100, 100 + 100/1.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, PV(tt.rate, tt.n, tt.payment), 1e-9)
		})
	}
}

func TestToFrac(t *testing.T) {
	assert.Equal(t, 0.08, ToFrac(8))
	assert.Equal(t, 0.5, ToFrac(0.5))
	assert.Equal(t, 1.0, ToFrac(1))
}

func TestLCOE(t *testing.T) {
	v, err := LCOE(100, 1000, 0, Financials{DiscountRate: 0, LifetimeYears: 10})
	require.NoError(t, err)
	assert.InDelta(t, 1, v, 1e-12)

	// Percent and fraction discount rates agree.
	a, err := LCOE(100, 1000, 10, Financials{DiscountRate: 8, LifetimeYears: 20})
	require.NoError(t, err)
	b, err := LCOE(100, 1000, 10, DefaultFinancials())
	require.NoError(t, err)
	assert.InDelta(t, a, b, 1e-12)

	_, err = LCOE(0, 1000, 0, DefaultFinancials())
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = LCOE(1, 1, 0, Financials{DiscountRate: 0.1})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestFromSizing(t *testing.T) {
	v, err := FromSizing(1000, 100, 1, Financials{LifetimeYears: 1})
	require.NoError(t, err)
	assert.InDelta(t, 1000*1000/876000.0, v, 1e-9)

	// A lower target spreads the same cost over less energy.
	lo, err := FromSizing(1000, 100, 0.5, DefaultFinancials())
	require.NoError(t, err)
	hi, err := FromSizing(1000, 100, 1, DefaultFinancials())
	require.NoError(t, err)
	assert.Greater(t, lo, hi)
}

func TestSolarBESS(t *testing.T) {
	b, err := SolarBESS{
		SolarMW:            1,
		StorageEnergyMWh:   2,
		Availability:       95,
		SolarCapexPerKW:    1000,
		StorageCapexPerKWh: 200,
		SolarOpexPerKWYear: 10,
		Financials:         Financials{LifetimeYears: 1},
	}.Compute()
	require.NoError(t, err)
	assert.Equal(t, 1.4e6, b.TotalCapex)
	assert.Equal(t, 1e4, b.AnnualOpex)
	assert.InDelta(t, 0.95*8760, b.AnnualEnergyMWh, 1e-9)
	assert.InDelta(t, (1.4e6+1e4)/(0.95*8760), b.LCOE, 1e-9)
}

func TestConventional(t *testing.T) {
	b, err := Conventional{
		CapacityMW:         1,
		CapacityFactor:     50,
		CapexPerKW:         1000,
		VariableOpexPerMWh: 5,
		FuelCostPerMWhFuel: 20,
		Efficiency:         40,
		Financials:         Financials{LifetimeYears: 1},
	}.Compute()
	require.NoError(t, err)
	assert.Equal(t, 4380.0, b.AnnualEnergyMWh)
	assert.InDelta(t, 55*4380, b.AnnualOpex, 1e-9)
	assert.InDelta(t, (1e6+55*4380)/4380, b.LCOE, 1e-9)

	_, err = Conventional{CapacityMW: 1, Efficiency: 0, Financials: DefaultFinancials()}.Compute()
	assert.ErrorIs(t, err, ErrInvalid)
}
