package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/backoffice/internal/domain/models"
	"github.com/mamadbah2/backoffice/internal/service/inventory"
)

// StockService is the stock side of the API.
type StockService interface {
	Adjust(ctx context.Context, adj inventory.StockAdjustment) (*models.Product, error)
	History(ctx context.Context, code string) ([]models.StockMovement, error)
	Levels(ctx context.Context, from, to time.Time) ([]inventory.StockLevel, error)
	Report(ctx context.Context) (*inventory.StockReport, error)
	Reconcile(ctx context.Context, code string) (*inventory.ReconcileResult, error)
	ReconcileAll(ctx context.Context) ([]inventory.ReconcileResult, error)
}

// StockHandler serves /api/stocks.
type StockHandler struct {
	svc    StockService
	logger *zap.Logger
}

func NewStockHandler(svc StockService, logger *zap.Logger) *StockHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StockHandler{svc: svc, logger: logger}
}

// Levels aggregates movements per product, optionally between ?from and ?to.
func (h *StockHandler) Levels(c *gin.Context) {
	from, err := queryTime(c, "from", false)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	to, err := queryTime(c, "to", true)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	levels, err := h.svc.Levels(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, levels)
}

func (h *StockHandler) Adjust(c *gin.Context) {
	var adj inventory.StockAdjustment
	if !bindJSON(c, h.logger, &adj) {
		return
	}
	product, err := h.svc.Adjust(c.Request.Context(), adj)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "stock updated", "currentStock": product.NewStock, "product": product})
}

func (h *StockHandler) History(c *gin.Context) {
	movements, err := h.svc.History(c.Request.Context(), c.Param("productCode"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, movements)
}

func (h *StockHandler) Report(c *gin.Context) {
	report, err := h.svc.Report(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Reconcile rebuilds the counters of ?productCode, or of every product without it.
func (h *StockHandler) Reconcile(c *gin.Context) {
	if code := strings.TrimSpace(c.Query("productCode")); code != "" {
		result, err := h.svc.Reconcile(c.Request.Context(), code)
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, []inventory.ReconcileResult{*result})
		return
	}
	results, err := h.svc.ReconcileAll(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, results)
}
