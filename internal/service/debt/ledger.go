// Package debt keeps order balances consistent with the payment and debt event stream.
package debt

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/backoffice/internal/domain/apperr"
	"github.com/mamadbah2/backoffice/internal/domain/models"
	"github.com/mamadbah2/backoffice/internal/repository"
)

// Ledger stages debt events and order balance changes on a unit of work.
type Ledger struct {
	payments repository.Reader
	now      func() time.Time
}

// NewLedger builds a ledger reading payments from r.
func NewLedger(r repository.Reader) *Ledger {
	return &Ledger{payments: r, now: time.Now}
}

// DebtNote is the human readable note of the new_debt event of an order.
func DebtNote(orderCode string) string {
	return "debt from order " + orderCode
}

// LegacyDebtNote is the note carried by new_debt events recorded before events
// were linked to their order by orderId.
func LegacyDebtNote(orderCode string) string {
	return "Nợ từ đơn hàng " + orderCode
}

// Open records the new_debt event of a freshly created debt order and resets its balance
// to nothing paid.
func (l *Ledger) Open(ctx context.Context, uow *repository.UnitOfWork, order *models.Order) error {
	l.insertDebt(uow, order, order.Total)
	order.ApplyBalance(models.Outstanding(order.Total, decimal.Zero))
	return nil
}

// Reconcile moves order to newStatus with newTotal, keeping its new_debt event and
// balance in step. The order is mutated in place; the caller stages it.
func (l *Ledger) Reconcile(ctx context.Context, uow *repository.UnitOfWork, order *models.Order, newStatus models.OrderStatus, newTotal decimal.Decimal) error {
	if !newStatus.Valid() {
		return apperr.Validation("invalid order status %q", newStatus)
	}

	switch {
	case newStatus == models.StatusDebt && order.Status != models.StatusDebt:
		l.insertDebt(uow, order, newTotal)
		order.ApplyBalance(models.Outstanding(newTotal, decimal.Zero))

	case newStatus == models.StatusDebt:
		events, err := l.debtEvents(ctx, order)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			l.insertDebt(uow, order, newTotal)
		} else {
			current := events[0]
			current.Amount = newTotal
			current.Note = DebtNote(order.Code)
			uow.UpdatePayment(current)
			for _, extra := range events[1:] {
				uow.DeletePayment(extra.ID)
			}
		}
		paid, err := l.Collected(ctx, order.ID)
		if err != nil {
			return err
		}
		order.ApplyBalance(models.Outstanding(newTotal, paid))

	default:
		if err := l.Discharge(ctx, uow, order); err != nil {
			return err
		}
		order.ApplyBalance(models.PaidInFull(newTotal))
	}
	return nil
}

// Discharge removes every new_debt event of order.
func (l *Ledger) Discharge(ctx context.Context, uow *repository.UnitOfWork, order *models.Order) error {
	events, err := l.debtEvents(ctx, order)
	if err != nil {
		return err
	}
	for _, e := range events {
		uow.DeletePayment(e.ID)
	}
	return nil
}

// Collect applies a collecting payment of amount to the balance of a debt order
// and stages the order. amount may not exceed the remaining debt.
func (l *Ledger) Collect(uow *repository.UnitOfWork, order *models.Order, amount decimal.Decimal) error {
	switch {
	case order.Status != models.StatusDebt:
		return apperr.Conflict("order %s is not a debt order", order.Code)
	case !amount.IsPositive():
		return apperr.Validation("amount must be positive")
	case amount.GreaterThan(order.RemainingDebt):
		return apperr.Conflict("amount %s exceeds remaining debt %s of order %s",
			amount, order.RemainingDebt, order.Code)
	}
	order.ApplyBalance(models.Outstanding(order.Total, order.TotalIsPaid.Add(amount)))
	uow.UpdateOrder(*order)
	return nil
}

// Collected sums the cash and debt_collected payments linked to an order.
func (l *Ledger) Collected(ctx context.Context, orderID primitive.ObjectID) (decimal.Decimal, error) {
	payments, err := l.payments.FindPayments(ctx, repository.PaymentFilter{
		OrderID: &orderID,
		Types:   []models.PaymentType{models.PaymentCash, models.PaymentDebtCollected},
	})
	if err != nil {
		return decimal.Zero, apperr.Internal(err, "load order payments")
	}
	sum := decimal.Zero
	for _, p := range payments {
		sum = sum.Add(p.Amount)
	}
	return sum, nil
}

// debtEvents returns the new_debt events of order. Events without an orderId are
// matched by customer and legacy note, and come back linked to order so that a
// staged update backfills the link.
func (l *Ledger) debtEvents(ctx context.Context, order *models.Order) ([]models.Payment, error) {
	events, err := l.payments.FindPayments(ctx, repository.PaymentFilter{
		CustomerID: &order.CustomerID,
		OrderID:    &order.ID,
		Types:      []models.PaymentType{models.PaymentNewDebt},
	})
	if err != nil {
		return nil, apperr.Internal(err, "load debt events")
	}
	if len(events) > 0 {
		return events, nil
	}

	candidates, err := l.payments.FindPayments(ctx, repository.PaymentFilter{
		CustomerID: &order.CustomerID,
		Types:      []models.PaymentType{models.PaymentNewDebt},
	})
	if err != nil {
		return nil, apperr.Internal(err, "load debt events")
	}
	note := LegacyDebtNote(order.Code)
	for _, e := range candidates {
		if e.OrderID != nil || e.Note != note {
			continue
		}
		orderID := order.ID
		e.OrderID = &orderID
		events = append(events, e)
	}
	return events, nil
}

func (l *Ledger) insertDebt(uow *repository.UnitOfWork, order *models.Order, amount decimal.Decimal) {
	orderID := order.ID
	uow.InsertPayment(&models.Payment{
		Date:       l.now().UTC(),
		CustomerID: order.CustomerID,
		OrderID:    &orderID,
		Amount:     amount,
		Type:       models.PaymentNewDebt,
		Note:       DebtNote(order.Code),
	})
}
