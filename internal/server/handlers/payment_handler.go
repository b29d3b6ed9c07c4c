package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/backoffice/internal/domain/apperr"
	"github.com/mamadbah2/backoffice/internal/domain/models"
	"github.com/mamadbah2/backoffice/internal/service/debt"
)

// DebtService is the payment and debt side of the API.
type DebtService interface {
	RecordPayment(ctx context.Context, in debt.PaymentInput) (*models.Payment, error)
	SettleOrder(ctx context.Context, in debt.Settlement) (*debt.SettlementResult, error)
	SettleBatch(ctx context.Context, batch debt.SettlementBatch) (*debt.SettlementResult, error)
	ListPayments(ctx context.Context) ([]debt.PaymentView, error)
	CustomerPayments(ctx context.Context, customerID string) ([]models.Payment, error)
	CustomerDebts(ctx context.Context) (*debt.DebtOverview, error)
	CustomerDebt(ctx context.Context, customerID string) (*debt.CustomerDebtDetail, error)
	OrderDebts(ctx context.Context, orderIDs []string) ([]debt.OrderDebt, error)
}

// PaymentHandler serves /api/payments and /api/debts.
type PaymentHandler struct {
	svc    DebtService
	logger *zap.Logger
}

func NewPaymentHandler(svc DebtService, logger *zap.Logger) *PaymentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentHandler{svc: svc, logger: logger}
}

func (h *PaymentHandler) List(c *gin.Context) {
	payments, err := h.svc.ListPayments(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, payments)
}

func (h *PaymentHandler) Record(c *gin.Context) {
	var in debt.PaymentInput
	if !bindJSON(c, h.logger, &in) {
		return
	}
	payment, err := h.svc.RecordPayment(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, payment)
}

func (h *PaymentHandler) CustomerPayments(c *gin.Context) {
	payments, err := h.svc.CustomerPayments(c.Request.Context(), c.Param("customerId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, payments)
}

// PayOrderDebt settles the remaining debt of one order.
func (h *PaymentHandler) PayOrderDebt(c *gin.Context) {
	var in debt.Settlement
	if !bindJSON(c, h.logger, &in) {
		return
	}
	result, err := h.svc.SettleOrder(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// PayMultipleOrders settles a batch. A batch where nothing applies answers 409 with
// the skipped entries so the client can show why.
func (h *PaymentHandler) PayMultipleOrders(c *gin.Context) {
	var batch debt.SettlementBatch
	if !bindJSON(c, h.logger, &batch) {
		return
	}
	result, err := h.svc.SettleBatch(c.Request.Context(), batch)
	if err != nil {
		if result != nil && StatusOf(err) == http.StatusConflict {
			h.logger.Warn("debt batch rejected", zap.Int("skipped", len(result.Skipped)))
			c.JSON(http.StatusConflict, gin.H{"error": apperr.Message(err), "skippedOrders": result.Skipped})
			return
		}
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *PaymentHandler) CustomerDebts(c *gin.Context) {
	overview, err := h.svc.CustomerDebts(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, overview)
}

func (h *PaymentHandler) CustomerDebt(c *gin.Context) {
	detail, err := h.svc.CustomerDebt(c.Request.Context(), c.Param("customerId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

type orderDebtsRequest struct {
	OrderIDs []string `json:"orderIds" binding:"required"`
}

func (h *PaymentHandler) OrderDebts(c *gin.Context) {
	var req orderDebtsRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}
	debts, err := h.svc.OrderDebts(c.Request.Context(), req.OrderIDs)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, debts)
}
