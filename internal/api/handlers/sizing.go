package handlers

import (
	"errors"
	"net/http"

	"solar-bess-sizer/internal/api/models"
	"solar-bess-sizer/internal/costs"
	"solar-bess-sizer/internal/lcoe"
	"solar-bess-sizer/internal/optimize"
	"solar-bess-sizer/internal/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SizingHandler handles optimize and evaluate requests
type SizingHandler struct {
	deps Deps
}

// NewSizingHandler creates a new sizing handler
func NewSizingHandler(deps Deps) *SizingHandler {
	return &SizingHandler{deps: deps}
}

// Optimize handles POST /api/v1/optimize
func (h *SizingHandler) Optimize(c *gin.Context) {
	var req models.OptimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, models.CodeInvalidRequest, err.Error(), nil)
		return
	}
	sc, err := h.deps.buildScenario(req.Scenario)
	if err != nil {
		respondError(c, http.StatusBadRequest, models.CodeInvalidRequest, err.Error(), nil)
		return
	}
	if err := sc.Validate(); err != nil {
		if errors.Is(err, costs.ErrNotFound) {
			respondErr(c, err)
			return
		}
		respondError(c, http.StatusBadRequest, models.CodeInvalidRequest, err.Error(), nil)
		return
	}

	ctx, cancel := h.deps.withTimeout(c.Request.Context(), req.Options.TimeoutSeconds)
	defer cancel()

	log := h.deps.logger().With(zap.String("country", sc.Country), zap.Int("year", sc.Year))
	p, err := sc.Problem(ctx, h.deps.profiles())
	if err != nil {
		respondErr(c, err)
		return
	}
	opts, err := sc.Options(log)
	if err != nil {
		respondError(c, http.StatusBadRequest, models.CodeInvalidRequest, err.Error(), nil)
		return
	}
	res, err := optimize.Optimize(ctx, p, opts)
	if err != nil {
		respondErr(c, err)
		return
	}

	periods := p.Profile.Len()
	loadMW := p.Demand.Total(periods) / float64(periods)
	levelized, err := lcoe.FromSizing(res.TotalCost, loadMW, sc.Operating.Target, sc.FinancialsOrDefault())
	if err != nil {
		// Zero demand has no levelized cost; the sizing itself is still valid.
		log.Warn("lcoe unavailable", zap.Error(err))
		levelized = 0
	}

	resp := models.OptimizeResponse{
		Status: "optimal",
		Summary: models.SizingSummary{
			TotalCost:        res.TotalCost,
			Objective:        res.Objective,
			SolarCapacityMW:  res.SolarCapacityMW,
			StoragePowerMW:   res.StoragePowerMW,
			StorageEnergyMWh: res.StorageEnergyMWh,
			Availability:     res.Availability,
			LCOE:             levelized,
			Formulation:      string(res.Formulation),
			PowerCoupling:    string(res.PowerCoupling),
			Segments:         res.Segments,
			Nodes:            res.Nodes,
			Periods:          periods,
		},
	}
	if h.deps.Store != nil {
		run := &store.Run{
			Kind:             store.KindOptimize,
			Name:             sc.Name,
			Country:          sc.Country,
			Year:             sc.Year,
			Formulation:      string(res.Formulation),
			PowerCoupling:    string(res.PowerCoupling),
			Segments:         res.Segments,
			Target:           sc.Operating.Target,
			Efficiency:       sc.Operating.Efficiency,
			InitialSOC:       sc.Operating.InitialSOC,
			SolarMW:          res.SolarCapacityMW,
			StoragePowerMW:   res.StoragePowerMW,
			StorageEnergyMWh: res.StorageEnergyMWh,
			TotalCost:        res.TotalCost,
			LCOE:             levelized,
			Availability:     res.Availability,
			Status:           resp.Status,
		}
		if err := h.deps.Store.SaveRun(run, res.Trajectory); err != nil {
			log.Error("save run failed", zap.Error(err))
		} else {
			resp.ID = run.ID
		}
	}
	if req.Options.IncludeDispatch {
		resp.Dispatch = models.NewDispatch(res.Trajectory)
	}
	c.JSON(http.StatusOK, resp)
}

// Evaluate handles POST /api/v1/evaluate
func (h *SizingHandler) Evaluate(c *gin.Context) {
	var req models.EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, models.CodeInvalidRequest, err.Error(), nil)
		return
	}
	sc, err := h.deps.buildScenario(req.Scenario)
	if err != nil {
		respondError(c, http.StatusBadRequest, models.CodeInvalidRequest, err.Error(), nil)
		return
	}

	ctx, cancel := h.deps.withTimeout(c.Request.Context(), req.Options.TimeoutSeconds)
	defer cancel()

	log := h.deps.logger().With(zap.String("country", sc.Country))
	prof, err := sc.ResolveProfile(ctx, h.deps.profiles())
	if err != nil {
		respondError(c, http.StatusBadRequest, models.CodeInvalidRequest, err.Error(), nil)
		return
	}
	opts, err := sc.Options(log)
	if err != nil {
		respondError(c, http.StatusBadRequest, models.CodeInvalidRequest, err.Error(), nil)
		return
	}
	ep := optimize.EvalProblem{
		Profile:          prof,
		Demand:           sc.DemandModel(),
		SolarCapacityMW:  req.Capacities.SolarMW,
		StorageEnergyMWh: req.Capacities.StorageEnergyMWh,
		StoragePowerMW:   req.Capacities.StoragePowerMW,
		Operating:        sc.OperatingParams(),
	}
	res := optimize.Evaluate(ctx, ep, opts)
	if errors.Is(res.Err, optimize.ErrInvalidInput) {
		respondErr(c, res.Err)
		return
	}

	resp := models.EvaluateResponse{
		Status:       res.Status.String(),
		Availability: res.Availability,
	}
	if res.Err != nil {
		resp.Warning = res.Err.Error()
	}
	if h.deps.Store != nil {
		caps := ep.Capacities()
		run := &store.Run{
			Kind:             store.KindEvaluate,
			Name:             sc.Name,
			Country:          sc.Country,
			Year:             sc.Year,
			Formulation:      string(opts.Formulation),
			Efficiency:       sc.Operating.Efficiency,
			InitialSOC:       sc.Operating.InitialSOC,
			SolarMW:          caps.SolarMW,
			StoragePowerMW:   caps.StoragePowerMW,
			StorageEnergyMWh: caps.StorageEnergyMWh,
			Availability:     res.Availability,
			Status:           resp.Status,
			Error:            resp.Warning,
		}
		if err := h.deps.Store.SaveRun(run, res.Trajectory); err != nil {
			log.Error("save run failed", zap.Error(err))
		} else {
			resp.ID = run.ID
		}
	}
	if req.Options.IncludeDispatch {
		resp.Dispatch = models.NewDispatch(res.Trajectory)
	}
	c.JSON(http.StatusOK, resp)
}
