package orders

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/backoffice/internal/domain/apperr"
	"github.com/mamadbah2/backoffice/internal/domain/models"
	"github.com/mamadbah2/backoffice/internal/repository"
)

// OrderView is an order with its customer name, lines and linked payments.
type OrderView struct {
	models.Order
	CustomerName string             `json:"customerName,omitempty"`
	Lines        []models.OrderLine `json:"details,omitempty"`
	Payments     []models.Payment   `json:"payments,omitempty"`
}

// ListFilter narrows the order listing.
type ListFilter struct {
	CustomerID string
	Status     models.OrderStatus
	From       time.Time
	To         time.Time
}

// Get returns one order with its lines and the payments linked to it.
func (s *Service) Get(ctx context.Context, id string) (*OrderView, error) {
	orderID, err := models.ParseID("order id", id)
	if err != nil {
		return nil, err
	}
	order, err := s.store.OrderByID(ctx, orderID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("order %s not found", id)
	}
	if err != nil {
		return nil, apperr.Internal(err, "load order")
	}
	return s.view(ctx, *order, "")
}

// List returns orders newest first with their customer names.
func (s *Service) List(ctx context.Context, f ListFilter) ([]OrderView, error) {
	filter := repository.OrderFilter{Status: f.Status, From: f.From, To: f.To}
	if strings.TrimSpace(f.CustomerID) != "" {
		id, err := models.ParseID("customerId", f.CustomerID)
		if err != nil {
			return nil, err
		}
		filter.CustomerID = &id
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperr.Validation("invalid order status %q", f.Status)
	}

	orders, err := s.store.FindOrders(ctx, filter)
	if err != nil {
		return nil, apperr.Internal(err, "load orders")
	}
	customers, _, err := s.store.FindCustomers(ctx, repository.CustomerFilter{})
	if err != nil {
		return nil, apperr.Internal(err, "load customers")
	}
	names := make(map[primitive.ObjectID]string, len(customers))
	for _, c := range customers {
		names[c.ID] = c.Name
	}

	views := make([]OrderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, OrderView{Order: o, CustomerName: names[o.CustomerID]})
	}
	return views, nil
}

func (s *Service) view(ctx context.Context, order models.Order, customerName string) (*OrderView, error) {
	if customerName == "" {
		customer, err := s.store.CustomerByID(ctx, order.CustomerID)
		switch {
		case err == nil:
			customerName = customer.Name
		case !errors.Is(err, repository.ErrNotFound):
			return nil, apperr.Internal(err, "load customer")
		}
	}
	lines, err := s.store.OrderLines(ctx, order.ID)
	if err != nil {
		return nil, apperr.Internal(err, "load order lines")
	}
	payments, err := s.store.FindPayments(ctx, repository.PaymentFilter{OrderID: &order.ID})
	if err != nil {
		return nil, apperr.Internal(err, "load order payments")
	}
	return &OrderView{Order: order, CustomerName: customerName, Lines: lines, Payments: payments}, nil
}
