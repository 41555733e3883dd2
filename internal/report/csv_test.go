package report

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"solar-bess-sizer/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteDispatchCSV(t *testing.T) {
	tr := model.Trajectory{
		{Index: 0, DemandMW: 10, SolarMW: 15, ChargeMW: 5, SOCMWh: 4.5, ServedMW: 10, Action: model.ActionCharging},
		{Index: 1, DemandMW: 10, DischargeMW: 4, SOCMWh: 0, ServedMW: 4, Action: model.ActionDischarging},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteDispatchCSV(&buf, tr))

	recs, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, dispatchHeader, recs[0])
	assert.Equal(t, []string{"0", "10.000000", "15.000000", "5.000000", "0.000000", "0.000000", "4.500000", "10.000000", "CHARGING"}, recs[1])
	assert.Equal(t, "DISCHARGING", recs[2][8])
}

func TestWriteResultsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	rows := []ResultRow{
		{RunID: "a", Country: "kenya", Year: 2024, Formulation: "penalty", Target: 0.95, SolarMW: 300, TotalCost: 1000, Status: "optimal"},
		{RunID: "b", Country: "chad", Year: 2024, Formulation: "penalty", Status: "infeasible", Error: "no solution"},
	}
	require.NoError(t, WriteResultsFile(path, rows))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	recs, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, resultsHeader, recs[0])
	assert.Equal(t, "300.000000", recs[1][5])
	assert.Equal(t, "no solution", recs[2][12])
}
