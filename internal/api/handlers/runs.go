package handlers

import (
	"net/http"

	"solar-bess-sizer/internal/api/models"
	"solar-bess-sizer/internal/report"
	"solar-bess-sizer/internal/store"

	"github.com/gin-gonic/gin"
)

// RunHandler serves stored runs
type RunHandler struct {
	store *store.Store
}

// NewRunHandler creates a new run handler
func NewRunHandler(st *store.Store) *RunHandler {
	return &RunHandler{store: st}
}

func (h *RunHandler) available(c *gin.Context) bool {
	if h.store == nil {
		respondError(c, http.StatusNotImplemented, "NOT_IMPLEMENTED", "run storage is not configured", nil)
		return false
	}
	return true
}

// GetRun handles GET /api/v1/runs/:id
func (h *RunHandler) GetRun(c *gin.Context) {
	if !h.available(c) {
		return
	}
	run, err := h.store.Run(c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, models.NewRunResponse(run))
}

// GetDispatch handles GET /api/v1/runs/:id/dispatch. ?format=csv streams the
// dispatch table as CSV.
func (h *RunHandler) GetDispatch(c *gin.Context) {
	if !h.available(c) {
		return
	}
	tr, err := h.store.Dispatch(c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	if c.Query("format") == "csv" {
		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition", "attachment; filename=dispatch-"+c.Param("id")+".csv")
		c.Status(http.StatusOK)
		if err := report.WriteDispatchCSV(c.Writer, tr); err != nil {
			_ = c.Error(err)
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"dispatch": models.NewDispatch(tr)})
}

// ListRuns handles GET /api/v1/runs
func (h *RunHandler) ListRuns(c *gin.Context) {
	if !h.available(c) {
		return
	}
	runs, err := h.store.Runs(50)
	if err != nil {
		respondErr(c, err)
		return
	}
	out := make([]models.RunResponse, len(runs))
	for i := range runs {
		out[i] = models.NewRunResponse(&runs[i])
	}
	c.JSON(http.StatusOK, gin.H{"runs": out})
}
