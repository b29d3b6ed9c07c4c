// Package catalog manages the customer and product master data.
package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/backoffice/internal/domain/apperr"
	"github.com/mamadbah2/backoffice/internal/domain/models"
	"github.com/mamadbah2/backoffice/internal/repository"
)

const defaultPageSize = 10

// CustomerInput is the body of a customer create or update.
type CustomerInput struct {
	Name  string `json:"name" binding:"required"`
	Phone string `json:"phone"`
	Note  string `json:"note"`
}

// CustomerPage is one page of a customer search.
type CustomerPage struct {
	Items      []models.Customer `json:"items"`
	TotalCount int64             `json:"totalCount"`
	Page       int64             `json:"page"`
	PageSize   int64             `json:"pageSize"`
	TotalPages int64             `json:"totalPages"`
}

// CustomerRepository is what the customer service needs from persistence.
type CustomerRepository interface {
	repository.Reader
	repository.CustomerStore
}

// CustomerService manages customers.
type CustomerService struct {
	repo   CustomerRepository
	logger *zap.Logger
}

// NewCustomerService wires a customer service.
func NewCustomerService(repo CustomerRepository, logger *zap.Logger) *CustomerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CustomerService{repo: repo, logger: logger}
}

// Page searches customers by name or phone. page starts at 1.
func (s *CustomerService) Page(ctx context.Context, page, pageSize int64, search string) (*CustomerPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}

	items, total, err := s.repo.FindCustomers(ctx, repository.CustomerFilter{
		Search: strings.TrimSpace(search),
		Skip:   (page - 1) * pageSize,
		Limit:  pageSize,
	})
	if err != nil {
		return nil, apperr.Internal(err, "search customers")
	}
	if items == nil {
		items = []models.Customer{}
	}
	return &CustomerPage{
		Items:      items,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: (total + pageSize - 1) / pageSize,
	}, nil
}

// All returns every customer.
func (s *CustomerService) All(ctx context.Context) ([]models.Customer, error) {
	items, _, err := s.repo.FindCustomers(ctx, repository.CustomerFilter{})
	if err != nil {
		return nil, apperr.Internal(err, "load customers")
	}
	return items, nil
}

func (s *CustomerService) Get(ctx context.Context, id string) (*models.Customer, error) {
	customerID, err := models.ParseID("customer id", id)
	if err != nil {
		return nil, err
	}
	customer, err := s.repo.CustomerByID(ctx, customerID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("customer %s not found", id)
	}
	if err != nil {
		return nil, apperr.Internal(err, "load customer")
	}
	return customer, nil
}

func (s *CustomerService) Create(ctx context.Context, in CustomerInput) (*models.Customer, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validation("name is required")
	}
	customer := &models.Customer{
		Name:      name,
		Phone:     strings.TrimSpace(in.Phone),
		Note:      in.Note,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.InsertCustomer(ctx, customer); err != nil {
		return nil, apperr.Internal(err, "create customer")
	}
	s.logger.Info("customer created", zap.String("customer_id", customer.ID.Hex()))
	return customer, nil
}

func (s *CustomerService) Update(ctx context.Context, id string, in CustomerInput) (*models.Customer, error) {
	customer, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validation("name is required")
	}
	customer.Name = name
	customer.Phone = strings.TrimSpace(in.Phone)
	customer.Note = in.Note

	err = s.repo.UpdateCustomer(ctx, *customer)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("customer %s not found", id)
	}
	if err != nil {
		return nil, apperr.Internal(err, "update customer")
	}
	return customer, nil
}

// Delete removes a customer that has no orders.
func (s *CustomerService) Delete(ctx context.Context, id string) error {
	customer, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	orders, err := s.repo.FindOrders(ctx, repository.OrderFilter{CustomerID: &customer.ID})
	if err != nil {
		return apperr.Internal(err, "load customer orders")
	}
	if len(orders) > 0 {
		return apperr.Conflict("customer %s still has %d orders", customer.Name, len(orders))
	}

	err = s.repo.DeleteCustomer(ctx, customer.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("customer %s not found", id)
	}
	if err != nil {
		return apperr.Internal(err, "delete customer")
	}
	s.logger.Info("customer deleted", zap.String("customer_id", id))
	return nil
}
