package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"solar-bess-sizer/internal/api/models"
	"solar-bess-sizer/internal/config"
	"solar-bess-sizer/internal/costs"
	"solar-bess-sizer/internal/data"
	"solar-bess-sizer/internal/profile"
	"solar-bess-sizer/internal/store"

	"go.uber.org/zap"
)

// DefaultTimeout bounds a single solve when the request sets no timeout.
const DefaultTimeout = 2 * time.Minute

// Deps are the collaborators shared by the handlers. Every field is optional.
type Deps struct {
	Costs     *costs.Bundle
	Profiles  profile.Provider
	Store     *store.Store
	Locations *data.LocationList
	Logger    *zap.Logger
	Timeout   time.Duration
}

func (d Deps) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

func (d Deps) profiles() profile.Provider {
	if d.Profiles == nil {
		return &profile.ClearSkyProvider{}
	}
	return d.Profiles
}

func (d Deps) withTimeout(ctx context.Context, seconds int) (context.Context, context.CancelFunc) {
	t := d.Timeout
	if t <= 0 {
		t = DefaultTimeout
	}
	if seconds > 0 {
		t = time.Duration(seconds) * time.Second
	}
	return context.WithTimeout(ctx, t)
}

var errBadScenario = errors.New("invalid scenario")

// buildScenario converts a request scenario into a config scenario. Clear-sky
// coordinates default to the known location of the country.
func (d Deps) buildScenario(req models.ScenarioConfig) (*config.Scenario, error) {
	sc := &config.Scenario{
		Name:    req.Name,
		Country: req.Country,
		Year:    req.Year,
		Costs: config.CostsConfig{
			SolarPerMW:          req.Costs.SolarPerMW,
			StoragePowerPerMW:   req.Costs.StoragePowerPerMW,
			StorageEnergyPerMWh: req.Costs.StorageEnergyPerMWh,
		},
		Profile: config.ProfileConfig{
			Source:   req.Profile.Source,
			Values:   req.Profile.Values,
			Year:     req.Profile.Year,
			FullYear: req.Profile.FullYear,
			Tile:     req.Profile.Tile,
		},
		Demand: config.DemandConfig{FlatMW: req.Demand.FlatMW, Series: req.Demand.Series},
		Operating: config.OperatingConfig{
			Efficiency: req.Operating.Efficiency,
			InitialSOC: req.Operating.InitialSOC,
			Target:     req.Operating.Target,
		},
		Formulation: config.FormulationConfig{Name: req.Formulation.Name, Params: req.Formulation.Params},
	}
	if req.Financials != nil {
		sc.Financials = *req.Financials
	}
	if sc.Profile.Source == "" && len(sc.Profile.Values) > 0 {
		sc.Profile.Source = "inline"
	}
	if strings.EqualFold(sc.Profile.Source, "csv") {
		return nil, fmt.Errorf("%w: csv profiles are not accepted over HTTP", errBadScenario)
	}

	switch {
	case req.Profile.Latitude != nil && req.Profile.Longitude != nil:
		sc.Site = config.SiteConfig{Latitude: *req.Profile.Latitude, Longitude: *req.Profile.Longitude, AltitudeM: req.Profile.AltitudeM}
	case d.Locations != nil && req.Country != "":
		if loc, ok := d.Locations.Find(req.Country); ok {
			sc.Site = config.SiteConfig{Latitude: loc.Latitude, Longitude: loc.Longitude, AltitudeM: loc.AltitudeM}
		} else if !strings.EqualFold(sc.Profile.Source, "inline") {
			return nil, fmt.Errorf("%w: unknown country %q and no coordinates given", errBadScenario, req.Country)
		}
	}
	if d.Costs != nil {
		sc.WithCosts(d.Costs)
	}
	return sc, nil
}
