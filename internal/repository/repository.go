// Package repository defines the persistence contracts used by the services.
// Implementations live in the mongodb and memory sub-packages.
package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/backoffice/internal/domain/models"
)

var (
	// ErrNotFound is returned by finders when no document matches.
	ErrNotFound = errors.New("document not found")
	// ErrDuplicate is returned when a write violates a unique key (product code, order code, username).
	ErrDuplicate = errors.New("duplicate key")
)

// OrderFilter selects orders. Zero fields do not filter.
type OrderFilter struct {
	IDs        []primitive.ObjectID
	CustomerID *primitive.ObjectID
	Status     models.OrderStatus
	UnpaidOnly bool
	From       time.Time
	To         time.Time
}

// PaymentFilter selects payments. Zero fields do not filter.
type PaymentFilter struct {
	CustomerID *primitive.ObjectID
	OrderID    *primitive.ObjectID
	Types      []models.PaymentType
	From       time.Time
	To         time.Time
}

// MovementFilter selects stock movements. Results are ordered oldest first.
type MovementFilter struct {
	ProductCode string
	Type        models.MovementType
	From        time.Time
	To          time.Time
}

// LineFilter selects order lines.
type LineFilter struct {
	OrderIDs    []primitive.ObjectID
	ProductCode string
}

// CustomerFilter pages and searches customers by name or phone.
type CustomerFilter struct {
	Search string
	Skip   int64
	Limit  int64
}

// Reader exposes the finders. Inside Store.Execute they read through the open transaction.
type Reader interface {
	CustomerByID(ctx context.Context, id primitive.ObjectID) (*models.Customer, error)
	ProductByCode(ctx context.Context, code string) (*models.Product, error)
	ProductByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	OrderByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	OrderLines(ctx context.Context, orderID primitive.ObjectID) ([]models.OrderLine, error)
	FindOrders(ctx context.Context, filter OrderFilter) ([]models.Order, error)
	FindLines(ctx context.Context, filter LineFilter) ([]models.OrderLine, error)
	FindPayments(ctx context.Context, filter PaymentFilter) ([]models.Payment, error)
	FindMovements(ctx context.Context, filter MovementFilter) ([]models.StockMovement, error)
	FindProducts(ctx context.Context) ([]models.Product, error)
	FindCustomers(ctx context.Context, filter CustomerFilter) ([]models.Customer, int64, error)
}

// Store is the transactional persistence collaborator of the order engine.
type Store interface {
	Reader
	// Execute runs fn inside one transaction. The writes fn stages on the unit of work
	// are applied in that same transaction and committed when fn returns nil.
	// Any error aborts everything.
	Execute(ctx context.Context, fn func(ctx context.Context, uow *UnitOfWork) error) error
}

// CustomerStore holds the single-entity customer writes that need no transaction.
type CustomerStore interface {
	InsertCustomer(ctx context.Context, customer *models.Customer) error
	UpdateCustomer(ctx context.Context, customer models.Customer) error
	DeleteCustomer(ctx context.Context, id primitive.ObjectID) error
}

// UserStore persists operator accounts.
type UserStore interface {
	InsertUser(ctx context.Context, user *models.User) error
	UserByUsername(ctx context.Context, username string) (*models.User, error)
	FindUsers(ctx context.Context) ([]models.User, error)
}

// ReportStore persists the daily business snapshots.
type ReportStore interface {
	SaveDailyReport(ctx context.Context, report models.DailyReport) error
}
