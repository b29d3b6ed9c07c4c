package debt

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/backoffice/internal/domain/apperr"
	"github.com/mamadbah2/backoffice/internal/domain/models"
	"github.com/mamadbah2/backoffice/internal/repository"
)

// PaymentView is a payment with the name of its customer.
type PaymentView struct {
	models.Payment
	CustomerName string `json:"customerName,omitempty"`
}

// CustomerDebtSummary totals the debt orders of one customer.
type CustomerDebtSummary struct {
	CustomerID      primitive.ObjectID `json:"customerId"`
	CustomerName    string             `json:"customerName"`
	CustomerPhone   string             `json:"customerPhone"`
	TotalOrders     int                `json:"totalOrders"`
	TotalOrderValue decimal.Decimal    `json:"totalOrderValue"`
	TotalPayments   decimal.Decimal    `json:"totalPayments"`
	RemainingDebt   decimal.Decimal    `json:"remainingDebt"`
	HasDebt         bool               `json:"hasDebt"`
}

// DebtOverview lists the customers that ever owed money.
type DebtOverview struct {
	Items                  []CustomerDebtSummary `json:"items"`
	TotalCustomersWithDebt int                   `json:"totalCustomersWithDebt"`
	TotalDebtAmount        decimal.Decimal       `json:"totalDebtAmount"`
}

// OrderDebt is the balance of one order.
type OrderDebt struct {
	OrderID       primitive.ObjectID `json:"orderId"`
	OrderCode     string             `json:"orderCode"`
	OrderDate     time.Time          `json:"orderDate"`
	CustomerName  string             `json:"customerName,omitempty"`
	TotalAmount   decimal.Decimal    `json:"totalAmount"`
	TotalPaid     decimal.Decimal    `json:"totalPaid"`
	RemainingDebt decimal.Decimal    `json:"remainingDebt"`
	IsPaid        bool               `json:"isPaid"`
	Status        models.OrderStatus `json:"status"`
}

// DebtDetailSummary totals the open debt orders of a customer.
type DebtDetailSummary struct {
	TotalOrders        int             `json:"totalOrders"`
	TotalOrderValue    decimal.Decimal `json:"totalOrderValue"`
	TotalPaid          decimal.Decimal `json:"totalPaid"`
	TotalRemainingDebt decimal.Decimal `json:"totalRemainingDebt"`
}

// CustomerDebtDetail is the open debt of one customer.
type CustomerDebtDetail struct {
	Customer models.Customer   `json:"customer"`
	Summary  DebtDetailSummary `json:"summary"`
	Orders   []OrderDebt       `json:"orders"`
	Payments []models.Payment  `json:"payments"`
}

// ListPayments returns every payment, newest first.
func (s *Service) ListPayments(ctx context.Context) ([]PaymentView, error) {
	payments, err := s.store.FindPayments(ctx, repository.PaymentFilter{})
	if err != nil {
		return nil, apperr.Internal(err, "load payments")
	}
	names, err := s.customerNames(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]PaymentView, 0, len(payments))
	for _, p := range payments {
		views = append(views, PaymentView{Payment: p, CustomerName: names[p.CustomerID]})
	}
	return views, nil
}

// CustomerPayments returns the payments of one customer, newest first.
func (s *Service) CustomerPayments(ctx context.Context, customerID string) ([]models.Payment, error) {
	id, err := models.ParseID("customerId", customerID)
	if err != nil {
		return nil, err
	}
	payments, err := s.store.FindPayments(ctx, repository.PaymentFilter{CustomerID: &id})
	if err != nil {
		return nil, apperr.Internal(err, "load customer payments")
	}
	return payments, nil
}

// CustomerDebts summarises the debt orders of every customer, highest remaining debt first.
func (s *Service) CustomerDebts(ctx context.Context) (*DebtOverview, error) {
	customers, _, err := s.store.FindCustomers(ctx, repository.CustomerFilter{})
	if err != nil {
		return nil, apperr.Internal(err, "load customers")
	}
	orders, err := s.store.FindOrders(ctx, repository.OrderFilter{Status: models.StatusDebt})
	if err != nil {
		return nil, apperr.Internal(err, "load debt orders")
	}

	byCustomer := make(map[primitive.ObjectID][]models.Order)
	for _, o := range orders {
		byCustomer[o.CustomerID] = append(byCustomer[o.CustomerID], o)
	}

	overview := &DebtOverview{Items: []CustomerDebtSummary{}, TotalDebtAmount: decimal.Zero}
	for _, c := range customers {
		debtOrders := byCustomer[c.ID]
		if len(debtOrders) == 0 {
			continue
		}
		summary := CustomerDebtSummary{
			CustomerID:      c.ID,
			CustomerName:    c.Name,
			CustomerPhone:   c.Phone,
			TotalOrders:     len(debtOrders),
			TotalOrderValue: decimal.Zero,
			TotalPayments:   decimal.Zero,
			RemainingDebt:   decimal.Zero,
		}
		for _, o := range debtOrders {
			summary.TotalOrderValue = summary.TotalOrderValue.Add(o.Total)
			summary.TotalPayments = summary.TotalPayments.Add(o.TotalIsPaid)
			summary.RemainingDebt = summary.RemainingDebt.Add(o.RemainingDebt)
		}
		summary.HasDebt = summary.RemainingDebt.IsPositive()
		if summary.HasDebt {
			overview.TotalCustomersWithDebt++
			overview.TotalDebtAmount = overview.TotalDebtAmount.Add(summary.RemainingDebt)
		}
		overview.Items = append(overview.Items, summary)
	}

	sort.SliceStable(overview.Items, func(i, j int) bool {
		return overview.Items[i].RemainingDebt.GreaterThan(overview.Items[j].RemainingDebt)
	})
	return overview, nil
}

// CustomerDebt returns the open debt orders of a customer with its debt events.
func (s *Service) CustomerDebt(ctx context.Context, customerID string) (*CustomerDebtDetail, error) {
	id, err := models.ParseID("customerId", customerID)
	if err != nil {
		return nil, err
	}
	customer, err := s.store.CustomerByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("customer %s not found", customerID)
	}
	if err != nil {
		return nil, apperr.Internal(err, "load customer")
	}

	orders, err := s.store.FindOrders(ctx, repository.OrderFilter{CustomerID: &id, UnpaidOnly: true})
	if err != nil {
		return nil, apperr.Internal(err, "load customer orders")
	}
	events, err := s.store.FindPayments(ctx, repository.PaymentFilter{
		CustomerID: &id,
		Types:      []models.PaymentType{models.PaymentNewDebt},
	})
	if err != nil {
		return nil, apperr.Internal(err, "load debt events")
	}

	detail := &CustomerDebtDetail{
		Customer: *customer,
		Summary: DebtDetailSummary{
			TotalOrderValue:    decimal.Zero,
			TotalPaid:          decimal.Zero,
			TotalRemainingDebt: decimal.Zero,
		},
		Orders:   []OrderDebt{},
		Payments: events,
	}
	for _, o := range orders {
		if !o.RemainingDebt.IsPositive() {
			continue
		}
		detail.Orders = append(detail.Orders, orderDebt(o, ""))
		detail.Summary.TotalOrders++
		detail.Summary.TotalOrderValue = detail.Summary.TotalOrderValue.Add(o.Total)
		detail.Summary.TotalPaid = detail.Summary.TotalPaid.Add(o.TotalIsPaid)
		detail.Summary.TotalRemainingDebt = detail.Summary.TotalRemainingDebt.Add(o.RemainingDebt)
	}
	return detail, nil
}

// OrderDebts returns the balances of the given orders. Unknown or malformed ids are skipped.
func (s *Service) OrderDebts(ctx context.Context, orderIDs []string) ([]OrderDebt, error) {
	if len(orderIDs) == 0 {
		return nil, apperr.Validation("orderIds must not be empty")
	}
	ids := make([]primitive.ObjectID, 0, len(orderIDs))
	for _, raw := range orderIDs {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return []OrderDebt{}, nil
	}

	orders, err := s.store.FindOrders(ctx, repository.OrderFilter{IDs: ids})
	if err != nil {
		return nil, apperr.Internal(err, "load orders")
	}
	names, err := s.customerNames(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]OrderDebt, 0, len(orders))
	for _, o := range orders {
		out = append(out, orderDebt(o, names[o.CustomerID]))
	}
	return out, nil
}

func (s *Service) customerNames(ctx context.Context) (map[primitive.ObjectID]string, error) {
	customers, _, err := s.store.FindCustomers(ctx, repository.CustomerFilter{})
	if err != nil {
		return nil, apperr.Internal(err, "load customers")
	}
	names := make(map[primitive.ObjectID]string, len(customers))
	for _, c := range customers {
		names[c.ID] = c.Name
	}
	return names, nil
}

func orderDebt(o models.Order, customerName string) OrderDebt {
	return OrderDebt{
		OrderID:       o.ID,
		OrderCode:     o.Code,
		OrderDate:     o.Date,
		CustomerName:  customerName,
		TotalAmount:   o.Total,
		TotalPaid:     o.TotalIsPaid,
		RemainingDebt: o.RemainingDebt,
		IsPaid:        o.IsPaid,
		Status:        o.Status,
	}
}
