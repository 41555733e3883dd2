package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"solar-bess-sizer/internal/api/handlers"
	"solar-bess-sizer/internal/api/models"
	"solar-bess-sizer/internal/data"
	"solar-bess-sizer/internal/model"
	"solar-bess-sizer/internal/profile"
	"solar-bess-sizer/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testDay = []float64{0.0001, 0.002, 0.022, 0.13, 0.44, 0.87, 1.0, 0.66, 0.26, 0.057, 0.0074, 0.0006}

// stubProfiles serves testDay everywhere except in the far north, which is dark.
type stubProfiles struct{}

func (stubProfiles) Profile(_ context.Context, site profile.Site, _ int) (model.Profile, error) {
	if site.Latitude > 80 {
		return nil, profile.ErrNoSun
	}
	return append(model.Profile(nil), testDay...), nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	deps := handlers.Deps{
		Store:    st,
		Profiles: stubProfiles{},
		Locations: &data.LocationList{Locations: []data.Location{
			{Country: "Kenya", Latitude: -0.02, Longitude: 37.9},
			{Country: "Svalbard", Latitude: 78.2, Longitude: 15.6},
			{Country: "North Pole", Latitude: 89, Longitude: 0},
		}},
	}
	return NewRouter(deps), st
}

func do(t *testing.T, r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp.Error.Code
}

func scenario() map[string]interface{} {
	return map[string]interface{}{
		"costs":       map[string]interface{}{"solar_cost_per_mw": 400, "bess_energy_cost_per_mwh": 160},
		"profile":     map[string]interface{}{"values": testDay},
		"demand":      map[string]interface{}{"flat_mw": 100},
		"operating":   map[string]interface{}{"efficiency": 0.9, "initial_soc": 0.5, "target": 0.9},
		"formulation": map[string]interface{}{"name": "unconstrained"},
	}
}

func TestHealthAndFormulations(t *testing.T) {
	r, _ := newTestRouter(t)
	w := do(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodGet, "/api/v1/formulations", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Formulations []models.FormulationInfo `json:"formulations"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Formulations, 3)
	assert.Equal(t, "penalty", resp.Formulations[0].Name)
	assert.True(t, resp.Formulations[1].MIP)
}

func TestOptimizeStoresRun(t *testing.T) {
	r, _ := newTestRouter(t)
	w := do(t, r, http.MethodPost, "/api/v1/optimize", map[string]interface{}{
		"scenario": scenario(),
		"options":  map[string]interface{}{"include_dispatch": true},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.OptimizeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "optimal", resp.Status)
	assert.NotEmpty(t, resp.ID)
	assert.Greater(t, resp.Summary.SolarCapacityMW, 0.0)
	assert.Greater(t, resp.Summary.LCOE, 0.0)
	assert.GreaterOrEqual(t, resp.Summary.Availability, 0.9-1e-6)
	assert.Len(t, resp.Dispatch, len(testDay))

	w = do(t, r, http.MethodGet, "/api/v1/runs/"+resp.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var run models.RunResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &run))
	assert.Equal(t, "optimize", run.Kind)
	assert.InDelta(t, resp.Summary.TotalCost, run.TotalCost, 1e-9)
	assert.Equal(t, len(testDay), run.Periods)

	w = do(t, r, http.MethodGet, "/api/v1/runs/"+resp.ID+"/dispatch", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var disp struct {
		Dispatch []models.DispatchRow `json:"dispatch"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &disp))
	assert.Equal(t, resp.Dispatch, disp.Dispatch)

	w = do(t, r, http.MethodGet, "/api/v1/runs/"+resp.ID+"/dispatch?format=csv", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "period_index,"))

	w = do(t, r, http.MethodGet, "/api/v1/runs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), resp.ID)
}

func TestOptimizeErrors(t *testing.T) {
	r, _ := newTestRouter(t)

	noEfficiency := scenario()
	noEfficiency["operating"] = map[string]interface{}{"initial_soc": 0.5, "target": 0.9}

	infeasible := scenario()
	infeasible["profile"] = map[string]interface{}{"values": []float64{0, 0, 1}}
	infeasible["operating"] = map[string]interface{}{"efficiency": 0.9, "initial_soc": 0, "target": 1}

	noCosts := scenario()
	delete(noCosts, "costs")

	badFormulation := scenario()
	badFormulation["formulation"] = map[string]interface{}{"name": "quadratic"}

	csvProfile := scenario()
	csvProfile["profile"] = map[string]interface{}{"source": "csv"}

	tests := []struct {
		name     string
		scenario map[string]interface{}
		status   int
		code     string
	}{
		{"missing efficiency", noEfficiency, http.StatusBadRequest, models.CodeInvalidRequest},
		{"infeasible", infeasible, http.StatusUnprocessableEntity, models.CodeInfeasibleModel},
		{"no costs", noCosts, http.StatusUnprocessableEntity, models.CodeLookupMiss},
		{"unknown formulation", badFormulation, http.StatusBadRequest, models.CodeInvalidRequest},
		{"csv profile", csvProfile, http.StatusBadRequest, models.CodeInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, r, http.MethodPost, "/api/v1/optimize", map[string]interface{}{"scenario": tt.scenario})
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.code, errorCode(t, w))
		})
	}
}

func TestOptimizeClearSkyFromCountry(t *testing.T) {
	r, _ := newTestRouter(t)
	sc := scenario()
	sc["country"] = "Kenya"
	sc["year"] = 2024
	sc["profile"] = map[string]interface{}{"source": "clearsky"}
	w := do(t, r, http.MethodPost, "/api/v1/optimize", map[string]interface{}{"scenario": sc})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	sc["country"] = "Atlantis"
	w = do(t, r, http.MethodPost, "/api/v1/optimize", map[string]interface{}{"scenario": sc})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEvaluate(t *testing.T) {
	r, _ := newTestRouter(t)
	sc := scenario()
	sc["demand"] = map[string]interface{}{"flat_mw": 10}
	sc["operating"] = map[string]interface{}{"efficiency": 0.9, "initial_soc": 1}

	w := do(t, r, http.MethodPost, "/api/v1/evaluate", map[string]interface{}{
		"scenario":   sc,
		"capacities": map[string]interface{}{"solar_capacity_mw": 1000, "storage_energy_mwh": 1000},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp models.EvaluateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "optimal", resp.Status)
	assert.InDelta(t, 1, resp.Availability, 1e-6)
	assert.NotEmpty(t, resp.ID)

	w = do(t, r, http.MethodPost, "/api/v1/evaluate", map[string]interface{}{
		"scenario":   sc,
		"capacities": map[string]interface{}{"solar_capacity_mw": -1, "storage_energy_mwh": 0},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, models.CodeInvalidRequest, errorCode(t, w))
}

func TestLCOE(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(t, r, http.MethodPost, "/api/v1/lcoe", map[string]interface{}{
		"sizing": map[string]interface{}{
			"total_cost": 1000, "load_mw": 100, "target": 1,
			"financials": map[string]interface{}{"discount_rate": 0, "lifetime_years": 1},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp models.LCOEResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.InDelta(t, 1000*1000/876000.0, resp.LCOE, 1e-9)

	w = do(t, r, http.MethodPost, "/api/v1/lcoe", map[string]interface{}{
		"solar_bess": map[string]interface{}{
			"solar_mw": 1, "storage_energy_mwh": 2, "availability": 95,
			"solar_capex_per_kw": 1000, "storage_capex_per_kwh": 200, "lifetime_years": 1,
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1.4e6, resp.TotalCapex)

	w = do(t, r, http.MethodPost, "/api/v1/lcoe", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPost, "/api/v1/lcoe", map[string]interface{}{
		"conventional": map[string]interface{}{"capacity_mw": 1, "efficiency": 0, "lifetime_years": 20},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, models.CodeInvalidRequest, errorCode(t, w))
}

func TestRunNotFound(t *testing.T) {
	r, _ := newTestRouter(t)
	w := do(t, r, http.MethodGet, "/api/v1/runs/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, models.CodeNotFound, errorCode(t, w))

	noStore := NewRouter(handlers.Deps{})
	w = do(t, noStore, http.MethodGet, "/api/v1/runs/nope", nil)
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestRankAndLocations(t *testing.T) {
	r, _ := newTestRouter(t)
	w := do(t, r, http.MethodGet, "/api/v1/rank?year=2024", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp models.RankResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	// The dark site is skipped.
	require.Len(t, resp.Rankings, 2)
	assert.Equal(t, 1, resp.Rankings[0].Rank)

	w = do(t, r, http.MethodGet, "/api/v1/rank?year=2024&countries=Atlantis", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodGet, "/api/v1/rank", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodGet, "/api/v1/locations", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":3`)
}
