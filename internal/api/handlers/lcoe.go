package handlers

import (
	"net/http"

	"solar-bess-sizer/internal/api/models"
	"solar-bess-sizer/internal/lcoe"

	"github.com/gin-gonic/gin"
)

// ComputeLCOE handles POST /api/v1/lcoe
func ComputeLCOE(c *gin.Context) {
	var req models.LCOERequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, models.CodeInvalidRequest, err.Error(), nil)
		return
	}

	set := 0
	for _, ok := range []bool{req.Sizing != nil, req.SolarBESS != nil, req.Conventional != nil} {
		if ok {
			set++
		}
	}
	if set != 1 {
		respondError(c, http.StatusBadRequest, models.CodeInvalidRequest,
			"exactly one of sizing, solar_bess or conventional is required", nil)
		return
	}

	var (
		b   lcoe.Breakdown
		err error
	)
	switch {
	case req.Sizing != nil:
		s := req.Sizing
		b.LCOE, err = lcoe.FromSizing(s.TotalCost, s.LoadMW, s.Target, s.Financials)
		b.TotalCapex = s.TotalCost
		b.AnnualEnergyMWh = s.LoadMW * lcoe.HoursPerYear * s.Target
	case req.SolarBESS != nil:
		b, err = req.SolarBESS.Compute()
	default:
		b, err = req.Conventional.Compute()
	}
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, models.LCOEResponse{
		LCOE:            b.LCOE,
		TotalCapex:      b.TotalCapex,
		AnnualOpex:      b.AnnualOpex,
		AnnualEnergyMWh: b.AnnualEnergyMWh,
	})
}
