package dashboard

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"carecall-backend/internal/service/dashboard"
	"carecall-backend/pkg/response"
)

// Handler handles dashboard HTTP requests
type Handler struct {
	dashboardService *dashboard.Service
}

// NewHandler creates a new dashboard handler
func NewHandler(dashboardService *dashboard.Service) *Handler {
	return &Handler{dashboardService: dashboardService}
}

// GetStats returns the dashboard counters
// GET /v1/dashboard/stats
func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.dashboardService.GetStats(c.Request.Context())
	if err != nil {
		response.FromAppError(c, err)
		return
	}

	response.Success(c, http.StatusOK, stats)
}
