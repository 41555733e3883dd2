package handlers

import (
	"net/http"
	"strings"

	"solar-bess-sizer/internal/analysis"
	"solar-bess-sizer/internal/api/models"
	"solar-bess-sizer/internal/data"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RankHandler handles ranking-related requests
type RankHandler struct {
	deps Deps
}

// NewRankHandler creates a new rank handler
func NewRankHandler(deps Deps) *RankHandler {
	return &RankHandler{deps: deps}
}

// RankLocations handles GET /api/v1/rank
func (h *RankHandler) RankLocations(c *gin.Context) {
	var req models.RankRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondError(c, http.StatusBadRequest, models.CodeInvalidRequest, err.Error(), nil)
		return
	}
	if h.deps.Locations == nil {
		respondError(c, http.StatusNotImplemented, "NOT_IMPLEMENTED", "no locations file is configured", nil)
		return
	}

	// Parse countries if provided
	var names []string
	if req.Countries != "" {
		names = strings.Split(req.Countries, ",")
		for i := range names {
			names[i] = strings.TrimSpace(names[i])
		}
	}
	locs, err := h.deps.Locations.Select(names)
	if err != nil {
		respondError(c, http.StatusBadRequest, models.CodeInvalidRequest, err.Error(), nil)
		return
	}

	eff := req.Efficiency
	if eff == 0 {
		eff = 0.9
	}
	if eff < 0 || eff > 1 {
		respondError(c, http.StatusBadRequest, models.CodeInvalidRequest, "efficiency must be in (0, 1]", nil)
		return
	}

	ctx, cancel := h.deps.withTimeout(c.Request.Context(), 0)
	defer cancel()

	potentials := make([]analysis.ResourcePotential, 0, len(locs))
	for _, loc := range locs {
		prof, err := h.deps.profiles().Profile(ctx, loc.Site(), req.Year)
		if err != nil {
			// A dark or invalid site is skipped; the rest are still ranked.
			h.deps.logger().Warn("profile unavailable", zap.String("country", loc.Country), zap.Error(err))
			if ctx.Err() != nil {
				respondErr(c, ctx.Err())
				return
			}
			continue
		}
		potentials = append(potentials, analysis.ComputePotential(loc.Country, prof, eff))
	}
	ranked := analysis.RankByPotential(potentials)

	// Apply limit
	limit := req.Limit
	if limit <= 0 {
		limit = 10
	}
	if limit > len(ranked) {
		limit = len(ranked)
	}
	ranked = ranked[:limit]

	// Convert to response format
	rankings := make([]models.Ranking, len(ranked))
	for i, r := range ranked {
		rankings[i] = models.Ranking{
			Rank:               i + 1,
			Country:            r.Country,
			Periods:            r.Periods,
			CapacityFactor:     r.CapacityFactor,
			P05:                r.P05,
			P95:                r.P95,
			DaylightHours:      r.DaylightHours,
			LongestDark:        r.LongestDark,
			GreedyAvailability: r.GreedyAvailability,
			OracleAvailability: r.OracleAvailability,
		}
	}

	c.JSON(http.StatusOK, models.RankResponse{Rankings: rankings})
}

// ListLocations handles GET /api/v1/locations
func (h *RankHandler) ListLocations(c *gin.Context) {
	list := h.deps.Locations
	if list == nil {
		list = &data.LocationList{}
	}
	locations := make([]models.LocationInfo, len(list.Locations))
	for i, loc := range list.Locations {
		locations[i] = models.LocationInfo{
			Country:   loc.Country,
			Latitude:  loc.Latitude,
			Longitude: loc.Longitude,
			Region:    loc.Region,
			Continent: loc.Continent,
		}
	}
	c.JSON(http.StatusOK, gin.H{"locations": locations, "count": len(locations)})
}
