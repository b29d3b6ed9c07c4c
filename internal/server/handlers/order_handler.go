package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/backoffice/internal/domain/models"
	"github.com/mamadbah2/backoffice/internal/service/orders"
)

// OrderService is the order coordinator as seen by HTTP.
type OrderService interface {
	Create(ctx context.Context, in orders.CreateOrderInput) (*orders.OrderView, error)
	Update(ctx context.Context, id string, in orders.UpdateOrderInput) (*orders.OrderView, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*orders.OrderView, error)
	List(ctx context.Context, filter orders.ListFilter) ([]orders.OrderView, error)
}

// OrderHandler serves /api/orders.
type OrderHandler struct {
	svc    OrderService
	logger *zap.Logger
}

func NewOrderHandler(svc OrderService, logger *zap.Logger) *OrderHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderHandler{svc: svc, logger: logger}
}

func (h *OrderHandler) Create(c *gin.Context) {
	var in orders.CreateOrderInput
	if !bindJSON(c, h.logger, &in) {
		return
	}
	order, err := h.svc.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *OrderHandler) List(c *gin.Context) {
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
	list, err := h.svc.List(c.Request.Context(), orders.ListFilter{
		CustomerID: c.Query("customerId"),
		Status:     models.OrderStatus(c.Query("status")),
		From:       from,
		To:         to,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *OrderHandler) Get(c *gin.Context) {
	order, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) Update(c *gin.Context) {
	var in orders.UpdateOrderInput
	if !bindJSON(c, h.logger, &in) {
		return
	}
	order, err := h.svc.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "order deleted"})
}
