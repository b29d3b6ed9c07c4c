package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/backoffice/internal/service/reporting"
)

// DashboardService computes the dashboard figures.
type DashboardService interface {
	Stats(ctx context.Context) (*reporting.DashboardStats, error)
	Inventory(ctx context.Context) (*reporting.InventoryStats, error)
	Customers(ctx context.Context) (*reporting.CustomerInsights, error)
}

// DashboardHandler serves /api/dashboard.
type DashboardHandler struct {
	svc    DashboardService
	logger *zap.Logger
}

func NewDashboardHandler(svc DashboardService, logger *zap.Logger) *DashboardHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardHandler{svc: svc, logger: logger}
}

func (h *DashboardHandler) Stats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *DashboardHandler) Inventory(c *gin.Context) {
	stats, err := h.svc.Inventory(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *DashboardHandler) Customers(c *gin.Context) {
	insights, err := h.svc.Customers(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, insights)
}
