package handlers

import (
	"net/http"

	"solar-bess-sizer/internal/api/models"
	"solar-bess-sizer/internal/lp"
	"solar-bess-sizer/internal/optimize"

	"github.com/gin-gonic/gin"
)

// ListFormulations handles GET /api/v1/formulations
func ListFormulations(c *gin.Context) {
	common := []models.ParameterInfo{
		{
			Name:        "power_coupling",
			Type:        "string",
			Description: "What bounds storage charge/discharge: 'separate' sizes its own power rating, 'solar' couples it to solar capacity",
			Default:     string(optimize.CouplingSeparate),
		},
		{
			Name:        "segments",
			Type:        "int",
			Description: "Number of contiguous horizon blocks linked by entry-SOC variables",
			Default:     1,
		},
		{
			Name:        "tolerance",
			Type:        "float",
			Description: "Simplex tolerance",
			Default:     lp.DefaultTolerance,
		},
	}

	var out []models.FormulationInfo
	for _, f := range optimize.Formulations() {
		params := append([]models.ParameterInfo(nil), common...)
		switch f.Name {
		case optimize.FormulationPenalty:
			params = append(params, models.ParameterInfo{
				Name:        "penalty_weight",
				Type:        "float",
				Description: "Objective weight on simultaneous charge and discharge",
				Default:     optimize.DefaultPenaltyWeight,
			})
		case optimize.FormulationBinary:
			params = append(params, models.ParameterInfo{
				Name:        "max_nodes",
				Type:        "int",
				Description: "Branch-and-bound node limit",
				Default:     lp.DefaultMaxNodes,
			})
		}
		out = append(out, models.FormulationInfo{
			Name:        string(f.Name),
			Description: f.Description,
			MIP:         f.MIP,
			Parameters:  params,
		})
	}
	c.JSON(http.StatusOK, gin.H{"formulations": out})
}
