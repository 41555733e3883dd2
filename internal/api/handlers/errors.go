package handlers

import (
	"context"
	"errors"
	"net/http"

	"solar-bess-sizer/internal/api/models"
	"solar-bess-sizer/internal/costs"
	"solar-bess-sizer/internal/lcoe"
	"solar-bess-sizer/internal/optimize"
	"solar-bess-sizer/internal/store"

	"github.com/gin-gonic/gin"
)

func respondError(c *gin.Context, status int, code, message string, details map[string]interface{}) {
	c.JSON(status, models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// respondErr maps a domain error onto an HTTP status and error code.
func respondErr(c *gin.Context, err error) {
	var details map[string]interface{}
	var serr *optimize.SolveError
	if errors.As(err, &serr) {
		details = map[string]interface{}{
			"status":         serr.Status.String(),
			"formulation":    string(serr.Formulation),
			"power_coupling": string(serr.Coupling),
			"segments":       serr.Segments,
			"periods":        serr.Periods,
			"total_demand":   serr.TotalDemand,
			"target":         serr.Operating.Target,
		}
	}
	switch {
	case errors.Is(err, optimize.ErrInvalidInput), errors.Is(err, lcoe.ErrInvalid):
		respondError(c, http.StatusBadRequest, models.CodeInvalidRequest, err.Error(), details)
	case errors.Is(err, optimize.ErrInfeasible):
		respondError(c, http.StatusUnprocessableEntity, models.CodeInfeasibleModel, err.Error(), details)
	case errors.Is(err, context.DeadlineExceeded):
		respondError(c, http.StatusGatewayTimeout, models.CodeSuboptimalTermination, err.Error(), details)
	case errors.Is(err, optimize.ErrSuboptimal):
		respondError(c, http.StatusUnprocessableEntity, models.CodeSuboptimalTermination, err.Error(), details)
	case errors.Is(err, costs.ErrNotFound):
		respondError(c, http.StatusUnprocessableEntity, models.CodeLookupMiss, err.Error(), details)
	case errors.Is(err, store.ErrNotFound):
		respondError(c, http.StatusNotFound, models.CodeNotFound, err.Error(), nil)
	default:
		respondError(c, http.StatusInternalServerError, models.CodeInternalError, err.Error(), details)
	}
}
