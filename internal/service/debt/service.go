package debt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/mamadbah2/backoffice/internal/domain/apperr"
	"github.com/mamadbah2/backoffice/internal/domain/models"
	"github.com/mamadbah2/backoffice/internal/repository"
)

var errNothingSettled = errors.New("no settleable entry")

// SettlementItem settles one debt order of a batch.
type SettlementItem struct {
	OrderID       string          `json:"orderId"`
	Amount        decimal.Decimal `json:"amount"`
	Note          string          `json:"note"`
	PaymentMethod string          `json:"paymentMethod"`
	Date          *time.Time      `json:"date"`
}

// SettlementBatch pays several debt orders of one customer at once.
type SettlementBatch struct {
	CustomerID    string           `json:"customerId" binding:"required"`
	TotalAmount   *decimal.Decimal `json:"totalAmount"`
	Date          *time.Time       `json:"date"`
	PaymentMethod string           `json:"paymentMethod"`
	Note          string           `json:"note"`
	Payments      []SettlementItem `json:"payments" binding:"required"`
}

// Settlement pays off the remaining debt of a single order.
type Settlement struct {
	CustomerID    string          `json:"customerId" binding:"required"`
	OrderID       string          `json:"orderId" binding:"required"`
	Amount        decimal.Decimal `json:"amount"`
	Date          *time.Time      `json:"date"`
	PaymentMethod string          `json:"paymentMethod"`
	Note          string          `json:"note"`
}

// PaymentInput is a generic payment entry.
type PaymentInput struct {
	CustomerID    string             `json:"customerId" binding:"required"`
	OrderID       string             `json:"orderId"`
	Amount        decimal.Decimal    `json:"amount"`
	Type          models.PaymentType `json:"type" binding:"required"`
	Note          string             `json:"note"`
	PaymentMethod string             `json:"paymentMethod"`
	Date          *time.Time         `json:"date"`
}

// SettledOrder reports the new balance of a settled order.
type SettledOrder struct {
	OrderID          primitive.ObjectID `json:"orderId"`
	OrderCode        string             `json:"orderCode"`
	AmountPaid       decimal.Decimal    `json:"amountPaid"`
	NewRemainingDebt decimal.Decimal    `json:"newRemainingDebt"`
	Status           models.OrderStatus `json:"status"`
}

// SkippedOrder is a batch entry that was not applied.
type SkippedOrder struct {
	OrderID string `json:"orderId"`
	Reason  string `json:"reason"`
	err     error
}

// SettlementResult is the outcome of a settlement.
type SettlementResult struct {
	TotalPaid decimal.Decimal  `json:"totalPaid"`
	Summary   *models.Payment  `json:"summaryPayment,omitempty"`
	Payments  []models.Payment `json:"payments"`
	Updated   []SettledOrder   `json:"updatedOrders"`
	Skipped   []SkippedOrder   `json:"skippedOrders"`
}

// Service records payments and settles debt orders.
type Service struct {
	store   repository.Store
	ledger  *Ledger
	logger  *zap.Logger
	tracer  trace.Tracer
	settled metric.Int64Counter
	skipped metric.Int64Counter
	now     func() time.Time
}

// NewService wires a debt service.
func NewService(store repository.Store, ledger *Ledger, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	meter := otel.Meter("backoffice/debt")
	settled, err := meter.Int64Counter("debt.settled_orders",
		metric.WithDescription("Debt orders settled in full"))
	if err != nil {
		logger.Warn("debt.settled_orders counter unavailable", zap.Error(err))
		settled = noop.Int64Counter{}
	}
	skipped, err := meter.Int64Counter("debt.skipped_entries",
		metric.WithDescription("Settlement entries rejected"))
	if err != nil {
		logger.Warn("debt.skipped_entries counter unavailable", zap.Error(err))
		skipped = noop.Int64Counter{}
	}
	return &Service{
		store:   store,
		ledger:  ledger,
		logger:  logger,
		tracer:  otel.Tracer("backoffice/debt"),
		settled: settled,
		skipped: skipped,
		now:     time.Now,
	}
}

// SettleBatch applies every valid entry of batch in one transaction and skips the others.
// A summary payment for the processed sum is recorded. When no entry is valid nothing is
// written and a conflict is returned together with the skipped entries.
func (s *Service) SettleBatch(ctx context.Context, batch SettlementBatch) (*SettlementResult, error) {
	ctx, span := s.tracer.Start(ctx, "debt.SettleBatch",
		trace.WithAttributes(attribute.Int("entries", len(batch.Payments))))
	defer span.End()

	result, err := s.settle(ctx, batch, true)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return result, err
	}

	if batch.TotalAmount != nil && !batch.TotalAmount.Equal(result.TotalPaid) {
		s.logger.Warn("declared batch total differs from processed amount",
			zap.String("customer_id", batch.CustomerID),
			zap.String("declared", batch.TotalAmount.String()),
			zap.String("processed", result.TotalPaid.String()))
	}
	s.logger.Info("debt batch settled",
		zap.String("customer_id", batch.CustomerID),
		zap.Int("settled", len(result.Updated)),
		zap.Int("skipped", len(result.Skipped)),
		zap.String("total", result.TotalPaid.String()))
	return result, nil
}

// SettleOrder settles one order. The reason an entry would be skipped is returned as the error.
func (s *Service) SettleOrder(ctx context.Context, in Settlement) (*SettlementResult, error) {
	ctx, span := s.tracer.Start(ctx, "debt.SettleOrder",
		trace.WithAttributes(attribute.String("order_id", in.OrderID)))
	defer span.End()

	result, err := s.settle(ctx, SettlementBatch{
		CustomerID:    in.CustomerID,
		Date:          in.Date,
		PaymentMethod: in.PaymentMethod,
		Payments: []SettlementItem{{
			OrderID: in.OrderID,
			Amount:  in.Amount,
			Note:    in.Note,
			Date:    in.Date,
		}},
	}, false)
	if err != nil {
		if result != nil && len(result.Skipped) == 1 {
			err = result.Skipped[0].err
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s.logger.Info("order debt settled",
		zap.String("order_id", in.OrderID),
		zap.String("amount", in.Amount.String()))
	return result, nil
}

func (s *Service) settle(ctx context.Context, batch SettlementBatch, withSummary bool) (*SettlementResult, error) {
	customerID, err := models.ParseID("customerId", batch.CustomerID)
	if err != nil {
		return nil, err
	}
	if len(batch.Payments) == 0 {
		return nil, apperr.Validation("payments must not be empty")
	}

	var result SettlementResult
	err = s.store.Execute(ctx, func(ctx context.Context, uow *repository.UnitOfWork) error {
		result = SettlementResult{TotalPaid: decimal.Zero}

		customer, err := s.store.CustomerByID(ctx, customerID)
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("customer %s not found", batch.CustomerID)
		}
		if err != nil {
			return apperr.Internal(err, "load customer")
		}

		for _, item := range batch.Payments {
			order, err := s.settleable(ctx, uow, customer.ID, item)
			if err != nil {
				if apperr.KindOf(err) == apperr.ErrInternal {
					return err
				}
				result.Skipped = append(result.Skipped, SkippedOrder{
					OrderID: item.OrderID,
					Reason:  apperr.Message(err),
					err:     err,
				})
				continue
			}

			if err := s.ledger.Collect(uow, order, item.Amount); err != nil {
				return err
			}

			orderID := order.ID
			payment := &models.Payment{
				Date:       s.pickDate(item.Date, batch.Date),
				CustomerID: customer.ID,
				OrderID:    &orderID,
				Amount:     item.Amount,
				Type:       models.PaymentDebtCollected,
				Note:       firstNonEmpty(item.Note, "debt payment for order "+order.Code),
				Method:     firstNonEmpty(item.PaymentMethod, batch.PaymentMethod),
			}
			uow.InsertPayment(payment)

			result.TotalPaid = result.TotalPaid.Add(item.Amount)
			result.Payments = append(result.Payments, *payment)
			result.Updated = append(result.Updated, SettledOrder{
				OrderID:          order.ID,
				OrderCode:        order.Code,
				AmountPaid:       item.Amount,
				NewRemainingDebt: order.RemainingDebt,
				Status:           order.Status,
			})
		}

		if len(result.Updated) == 0 {
			return errNothingSettled
		}
		if !withSummary {
			return nil
		}

		summary := &models.Payment{
			Date:       s.pickDate(batch.Date, nil),
			CustomerID: customer.ID,
			Amount:     result.TotalPaid,
			Type:       models.PaymentCash,
			Note:       firstNonEmpty(batch.Note, fmt.Sprintf("summary payment for %d orders", len(result.Updated))),
			Method:     batch.PaymentMethod,
		}
		uow.InsertPayment(summary)
		result.Summary = summary
		return nil
	})
	if result.Skipped != nil {
		s.skipped.Add(ctx, int64(len(result.Skipped)))
	}
	if errors.Is(err, errNothingSettled) {
		result.Updated = nil
		result.Payments = nil
		result.TotalPaid = decimal.Zero
		return &result, apperr.Conflict("no valid debt order to settle")
	}
	if err != nil {
		return nil, apperr.Wrap(err, "settle debt")
	}
	s.settled.Add(ctx, int64(len(result.Updated)))
	return &result, nil
}

// settleable loads the order of item and checks that the item pays exactly its remaining debt.
func (s *Service) settleable(ctx context.Context, uow *repository.UnitOfWork, customerID primitive.ObjectID, item SettlementItem) (*models.Order, error) {
	if strings.TrimSpace(item.OrderID) == "" || !item.Amount.IsPositive() {
		return nil, apperr.Validation("payment entry requires an orderId and a positive amount")
	}
	orderID, err := models.ParseID("orderId", item.OrderID)
	if err != nil {
		return nil, err
	}

	order, ok := uow.StagedOrder(orderID)
	if !ok {
		order, err = s.store.OrderByID(ctx, orderID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("order %s not found", item.OrderID)
		}
		if err != nil {
			return nil, apperr.Internal(err, "load order")
		}
	}

	switch {
	case order.CustomerID != customerID:
		return nil, apperr.Conflict("order %s belongs to another customer", order.Code)
	case order.Status != models.StatusDebt:
		return nil, apperr.Conflict("order %s is not a debt order", order.Code)
	case order.Balance().Settled():
		return nil, apperr.Conflict("order %s is already settled", order.Code)
	case !item.Amount.Equal(order.RemainingDebt):
		return nil, apperr.Conflict("amount %s does not match remaining debt %s of order %s",
			item.Amount, order.RemainingDebt, order.Code)
	}
	return order, nil
}

// RecordPayment stores a payment entry. A debt_collected entry for an order settles
// that order; a cash entry for a debt order is collected against its balance.
func (s *Service) RecordPayment(ctx context.Context, in PaymentInput) (*models.Payment, error) {
	if !in.Type.Valid() {
		return nil, apperr.Validation("invalid payment type %q", in.Type)
	}
	if !in.Amount.IsPositive() {
		return nil, apperr.Validation("amount must be positive")
	}

	if in.Type == models.PaymentDebtCollected && strings.TrimSpace(in.OrderID) != "" {
		result, err := s.SettleOrder(ctx, Settlement{
			CustomerID:    in.CustomerID,
			OrderID:       in.OrderID,
			Amount:        in.Amount,
			Date:          in.Date,
			PaymentMethod: in.PaymentMethod,
			Note:          in.Note,
		})
		if err != nil {
			return nil, err
		}
		return &result.Payments[0], nil
	}

	customerID, err := models.ParseID("customerId", in.CustomerID)
	if err != nil {
		return nil, err
	}
	var orderID *primitive.ObjectID
	if strings.TrimSpace(in.OrderID) != "" {
		id, err := models.ParseID("orderId", in.OrderID)
		if err != nil {
			return nil, err
		}
		orderID = &id
	}

	payment := &models.Payment{
		Date:       s.pickDate(in.Date, nil),
		CustomerID: customerID,
		OrderID:    orderID,
		Amount:     in.Amount,
		Type:       in.Type,
		Note:       in.Note,
		Method:     in.PaymentMethod,
	}
	err = s.store.Execute(ctx, func(ctx context.Context, uow *repository.UnitOfWork) error {
		if _, err := s.store.CustomerByID(ctx, customerID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperr.NotFound("customer %s not found", in.CustomerID)
			}
			return apperr.Internal(err, "load customer")
		}
		if orderID != nil {
			order, err := s.store.OrderByID(ctx, *orderID)
			if errors.Is(err, repository.ErrNotFound) {
				return apperr.NotFound("order %s not found", in.OrderID)
			}
			if err != nil {
				return apperr.Internal(err, "load order")
			}
			if order.CustomerID != customerID {
				return apperr.Conflict("order %s belongs to another customer", order.Code)
			}
			if in.Type.Collects() {
				if err := s.ledger.Collect(uow, order, in.Amount); err != nil {
					return err
				}
			}
		}
		uow.InsertPayment(payment)
		return nil
	})
	if err != nil {
		return nil, apperr.Wrap(err, "record payment")
	}

	s.logger.Info("payment recorded",
		zap.String("customer_id", in.CustomerID),
		zap.String("type", string(in.Type)),
		zap.String("amount", in.Amount.String()))
	return payment, nil
}

func (s *Service) pickDate(dates ...*time.Time) time.Time {
	for _, d := range dates {
		if d != nil && !d.IsZero() {
			return d.UTC()
		}
	}
	return s.now().UTC()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
