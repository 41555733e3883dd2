// Package api wires the HTTP handlers into a gin router.
package api

import (
	"net/http"

	"solar-bess-sizer/internal/api/handlers"
	"solar-bess-sizer/internal/api/middleware"

	"github.com/gin-gonic/gin"
)

// NewRouter builds the /api/v1 routes over deps.
func NewRouter(deps handlers.Deps) *gin.Engine {
	log := deps.Logger
	router := gin.New()
	if log != nil {
		router.Use(middleware.Logger(log))
	}
	router.Use(middleware.ErrorHandler(deps.Logger))

	sizing := handlers.NewSizingHandler(deps)
	runs := handlers.NewRunHandler(deps.Store)
	rank := handlers.NewRankHandler(deps)

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")
	{
		api.POST("/optimize", sizing.Optimize)
		api.POST("/evaluate", sizing.Evaluate)
		api.POST("/lcoe", handlers.ComputeLCOE)

		api.GET("/runs", runs.ListRuns)
		api.GET("/runs/:id", runs.GetRun)
		api.GET("/runs/:id/dispatch", runs.GetDispatch)

		api.GET("/formulations", handlers.ListFormulations)
		api.GET("/locations", rank.ListLocations)
		api.GET("/rank", rank.RankLocations)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})
	return router
}
