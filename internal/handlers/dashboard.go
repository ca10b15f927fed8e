package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apierrors "github.com/okamura/project-management-api/internal/errors"
	"github.com/okamura/project-management-api/internal/services"
	"go.uber.org/zap"
)

// DashboardHandler serves aggregate views.
type DashboardHandler struct {
	dashboardService *services.DashboardService
	log              *zap.Logger
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(dashboardService *services.DashboardService, log *zap.Logger) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
		log:              log,
	}
}

// GetDashboard returns the caller's personal dashboard.
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		apierrors.Unauthorized(c, apierrors.ErrTokenMissing)
		return
	}

	dashboard, err := h.dashboardService.GetUserDashboard(actor)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dashboard)
}

// GetAdminStats returns global statistics. Admin only.
func (h *DashboardHandler) GetAdminStats(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		apierrors.Unauthorized(c, apierrors.ErrTokenMissing)
		return
	}

	stats, err := h.dashboardService.GetAdminStats(actor)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
