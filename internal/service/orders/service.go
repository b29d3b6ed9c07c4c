package orders

import (
	"context"
	"errors"
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
	"github.com/mamadbah2/backoffice/internal/service/debt"
)

// CreateOrderInput is the body of an order creation.
type CreateOrderInput struct {
	OrderCode  string             `json:"orderCode"`
	CustomerID string             `json:"customerId"`
	Date       *time.Time         `json:"date"`
	Status     models.OrderStatus `json:"status"`
	Total      *decimal.Decimal   `json:"total"`
	Items      []ItemInput        `json:"items"`
}

// UpdateOrderInput changes an order. Nil fields keep their current value;
// nil Items keeps the current lines.
type UpdateOrderInput struct {
	Status *models.OrderStatus `json:"status"`
	Total  *decimal.Decimal    `json:"total"`
	Date   *time.Time          `json:"date"`
	Items  []ItemInput         `json:"items"`
}

// Service is the transaction coordinator of order writes. Every write runs in one
// store transaction that also carries its stock movements and debt events.
type Service struct {
	store  repository.Store
	lines  *LineProcessor
	debts  *debt.Ledger
	logger *zap.Logger
	tracer trace.Tracer
	writes metric.Int64Counter
	now    func() time.Time
}

// NewService wires the order coordinator.
func NewService(store repository.Store, lines *LineProcessor, debts *debt.Ledger, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	writes, err := otel.Meter("backoffice/orders").Int64Counter("orders.writes",
		metric.WithDescription("Order transactions by operation and outcome"))
	if err != nil {
		logger.Warn("orders.writes counter unavailable", zap.Error(err))
		writes = noop.Int64Counter{}
	}
	return &Service{
		store:  store,
		lines:  lines,
		debts:  debts,
		logger: logger,
		tracer: otel.Tracer("backoffice/orders"),
		writes: writes,
		now:    time.Now,
	}
}

// Create validates and persists a new order with its lines, stock exports and,
// for a debt order, its new_debt event.
func (s *Service) Create(ctx context.Context, in CreateOrderInput) (_ *OrderView, err error) {
	ctx, span := s.tracer.Start(ctx, "orders.Create",
		trace.WithAttributes(attribute.String("order_code", in.OrderCode)))
	defer span.End()
	defer func() { s.count(ctx, "create", err) }()

	code := strings.TrimSpace(in.OrderCode)
	if code == "" {
		return nil, s.fail(span, apperr.Validation("orderCode is required"))
	}
	customerID, err := models.ParseID("customerId", in.CustomerID)
	if err != nil {
		return nil, s.fail(span, err)
	}
	if err := validateItems(in.Items); err != nil {
		return nil, s.fail(span, err)
	}
	status := in.Status
	if status == "" {
		status = models.StatusPaid
	}
	if !status.Valid() {
		return nil, s.fail(span, apperr.Validation("invalid order status %q", in.Status))
	}
	if in.Total != nil && in.Total.IsNegative() {
		return nil, s.fail(span, apperr.Validation("total must not be negative"))
	}

	order := models.Order{
		ID:         primitive.NewObjectID(),
		Code:       code,
		CustomerID: customerID,
		Date:       s.now().UTC(),
	}
	if in.Date != nil && !in.Date.IsZero() {
		order.Date = in.Date.UTC()
	}

	var customerName string
	err = s.store.Execute(ctx, func(ctx context.Context, uow *repository.UnitOfWork) error {
		customer, err := s.store.CustomerByID(ctx, customerID)
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("customer %s not found", in.CustomerID)
		}
		if err != nil {
			return apperr.Internal(err, "load customer")
		}
		customerName = customer.Name

		sum, err := s.lines.Reconcile(ctx, uow, &order, nil, in.Items)
		if err != nil {
			return err
		}
		total := sum
		if in.Total != nil {
			total = *in.Total
		}

		order.ApplyBalance(models.PaidInFull(total))
		if status == models.StatusDebt {
			if err := s.debts.Open(ctx, uow, &order); err != nil {
				return err
			}
		}
		uow.InsertOrder(&order)
		return nil
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, s.fail(span, apperr.Conflict("order code %s already exists", code))
	}
	if err != nil {
		return nil, s.fail(span, apperr.Wrap(err, "create order"))
	}

	s.logger.Info("order created",
		zap.String("order_code", order.Code),
		zap.String("status", string(order.Status)),
		zap.String("total", order.Total.String()))
	return s.view(ctx, order, customerName)
}

// Update applies a status, total or line change to an existing order and rebalances
// its stock and debt in the same transaction.
func (s *Service) Update(ctx context.Context, id string, in UpdateOrderInput) (_ *OrderView, err error) {
	ctx, span := s.tracer.Start(ctx, "orders.Update",
		trace.WithAttributes(attribute.String("order_id", id)))
	defer span.End()
	defer func() { s.count(ctx, "update", err) }()

	orderID, err := models.ParseID("order id", id)
	if err != nil {
		return nil, s.fail(span, err)
	}
	if in.Status != nil && !in.Status.Valid() {
		return nil, s.fail(span, apperr.Validation("invalid order status %q", *in.Status))
	}
	if in.Total != nil && in.Total.IsNegative() {
		return nil, s.fail(span, apperr.Validation("total must not be negative"))
	}
	if in.Items != nil {
		if err := validateItems(in.Items); err != nil {
			return nil, s.fail(span, err)
		}
	}

	var updated models.Order
	err = s.store.Execute(ctx, func(ctx context.Context, uow *repository.UnitOfWork) error {
		order, persisted, err := s.load(ctx, orderID)
		if err != nil {
			return err
		}

		newStatus := order.Status
		if in.Status != nil {
			newStatus = *in.Status
		}
		newTotal := order.Total
		if in.Items != nil {
			sum, err := s.lines.Reconcile(ctx, uow, order, persisted, in.Items)
			if err != nil {
				return err
			}
			newTotal = sum
		}
		if in.Total != nil {
			newTotal = *in.Total
		}
		if in.Date != nil && !in.Date.IsZero() {
			order.Date = in.Date.UTC()
		}

		if err := s.debts.Reconcile(ctx, uow, order, newStatus, newTotal); err != nil {
			return err
		}
		uow.UpdateOrder(*order)
		updated = *order
		return nil
	})
	if err != nil {
		return nil, s.fail(span, apperr.Wrap(err, "update order"))
	}

	s.logger.Info("order updated",
		zap.String("order_code", updated.Code),
		zap.String("status", string(updated.Status)),
		zap.String("total", updated.Total.String()),
		zap.String("remaining_debt", updated.RemainingDebt.String()))
	return s.view(ctx, updated, "")
}

// Delete removes an order, returns its stock and drops its debt events.
func (s *Service) Delete(ctx context.Context, id string) (err error) {
	ctx, span := s.tracer.Start(ctx, "orders.Delete",
		trace.WithAttributes(attribute.String("order_id", id)))
	defer span.End()
	defer func() { s.count(ctx, "delete", err) }()

	orderID, err := models.ParseID("order id", id)
	if err != nil {
		return s.fail(span, err)
	}

	var code string
	err = s.store.Execute(ctx, func(ctx context.Context, uow *repository.UnitOfWork) error {
		order, persisted, err := s.load(ctx, orderID)
		if err != nil {
			return err
		}
		code = order.Code

		if err := s.lines.Reverse(ctx, uow, order, persisted); err != nil {
			return err
		}
		if err := s.debts.Discharge(ctx, uow, order); err != nil {
			return err
		}
		uow.DeleteOrder(order.ID)
		return nil
	})
	if err != nil {
		return s.fail(span, apperr.Wrap(err, "delete order"))
	}

	s.logger.Info("order deleted", zap.String("order_code", code))
	return nil
}

func (s *Service) load(ctx context.Context, id primitive.ObjectID) (*models.Order, []models.OrderLine, error) {
	order, err := s.store.OrderByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, apperr.NotFound("order %s not found", id.Hex())
	}
	if err != nil {
		return nil, nil, apperr.Internal(err, "load order")
	}
	lines, err := s.store.OrderLines(ctx, id)
	if err != nil {
		return nil, nil, apperr.Internal(err, "load order lines")
	}
	return order, lines, nil
}

func (s *Service) count(ctx context.Context, op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = apperr.KindOf(err).Error()
	}
	s.writes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("outcome", outcome)))
}

func (s *Service) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if apperr.KindOf(err) == apperr.ErrInternal {
		s.logger.Error("order transaction failed", zap.Error(err))
	}
	return err
}
