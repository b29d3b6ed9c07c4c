// Package memory provides an in-process Store used by tests and local development.
package memory

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/backoffice/internal/domain/models"
	"github.com/mamadbah2/backoffice/internal/repository"
)

type txKey struct{}

// Memory keeps every collection in slices guarded by one lock.
// Execute holds the write lock for the whole unit of work, which serialises transactions.
type Memory struct {
	mu        sync.RWMutex
	customers []models.Customer
	products  []models.Product
	orders    []models.Order
	lines     []models.OrderLine
	movements []models.StockMovement
	payments  []models.Payment
	users     []models.User
	reports   []models.DailyReport
}

// New returns an empty store.
func New() *Memory {
	return &Memory{}
}

// Execute runs fn and applies its unit of work atomically. Nothing is written if fn
// or the unique key checks fail.
func (m *Memory) Execute(ctx context.Context, fn func(ctx context.Context, uow *repository.UnitOfWork) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	uow := repository.NewUnitOfWork()
	if err := fn(context.WithValue(ctx, txKey{}, m), uow); err != nil {
		return err
	}
	if err := m.validateLocked(uow); err != nil {
		return err
	}
	m.applyLocked(uow)
	return nil
}

// rlock takes the read lock unless ctx already runs inside Execute on this store.
func (m *Memory) rlock(ctx context.Context) func() {
	if owner, ok := ctx.Value(txKey{}).(*Memory); ok && owner == m {
		return func() {}
	}
	m.mu.RLock()
	return m.mu.RUnlock
}

func (m *Memory) validateLocked(uow *repository.UnitOfWork) error {
	deleted := make(map[primitive.ObjectID]bool)
	for _, id := range uow.ProductDeletes() {
		deleted[id] = true
	}
	for _, staged := range uow.Products() {
		for _, p := range m.products {
			if p.Code == staged.Code && p.ID != staged.ID && !deleted[p.ID] {
				return repository.ErrDuplicate
			}
		}
	}

	codes := make(map[string]primitive.ObjectID)
	for _, o := range m.orders {
		codes[o.Code] = o.ID
	}
	for _, w := range uow.Orders() {
		switch w.Op {
		case repository.OpInsert, repository.OpUpdate:
			if owner, ok := codes[w.Order.Code]; ok && owner != w.Order.ID {
				return repository.ErrDuplicate
			}
			if w.Op == repository.OpUpdate && indexOf(m.orders, w.Order.ID, orderID) < 0 && !insertedEarlier(uow, w.Order.ID) {
				return repository.ErrNotFound
			}
			codes[w.Order.Code] = w.Order.ID
		case repository.OpDelete:
			for code, id := range codes {
				if id == w.Order.ID {
					delete(codes, code)
				}
			}
		}
	}
	return nil
}

func insertedEarlier(uow *repository.UnitOfWork, id primitive.ObjectID) bool {
	for _, w := range uow.Orders() {
		if w.Op == repository.OpInsert && w.Order.ID == id {
			return true
		}
	}
	return false
}

func (m *Memory) applyLocked(uow *repository.UnitOfWork) {
	for _, p := range uow.Products() {
		if i := indexOf(m.products, p.ID, productID); i >= 0 {
			m.products[i] = p
		} else {
			m.products = append(m.products, p)
		}
	}
	for _, id := range uow.ProductDeletes() {
		m.products = removeID(m.products, id, productID)
	}
	m.movements = append(m.movements, uow.Movements()...)

	for _, w := range uow.Orders() {
		switch w.Op {
		case repository.OpInsert:
			m.orders = append(m.orders, w.Order)
		case repository.OpUpdate:
			if i := indexOf(m.orders, w.Order.ID, orderID); i >= 0 {
				m.orders[i] = w.Order
			}
		case repository.OpDelete:
			m.orders = removeID(m.orders, w.Order.ID, orderID)
		}
	}
	for _, w := range uow.Lines() {
		switch w.Op {
		case repository.OpInsert:
			m.lines = append(m.lines, w.Line)
		case repository.OpUpdate:
			if i := indexOf(m.lines, w.Line.ID, lineID); i >= 0 {
				m.lines[i] = w.Line
			}
		case repository.OpDelete:
			m.lines = removeID(m.lines, w.Line.ID, lineID)
		}
	}
	for _, w := range uow.Payments() {
		switch w.Op {
		case repository.OpInsert:
			m.payments = append(m.payments, w.Payment)
		case repository.OpUpdate:
			if i := indexOf(m.payments, w.Payment.ID, paymentID); i >= 0 {
				m.payments[i] = w.Payment
			}
		case repository.OpDelete:
			m.payments = removeID(m.payments, w.Payment.ID, paymentID)
		}
	}
}

func (m *Memory) CustomerByID(ctx context.Context, id primitive.ObjectID) (*models.Customer, error) {
	defer m.rlock(ctx)()
	if i := indexOf(m.customers, id, customerID); i >= 0 {
		c := m.customers[i]
		return &c, nil
	}
	return nil, repository.ErrNotFound
}

func (m *Memory) ProductByCode(ctx context.Context, code string) (*models.Product, error) {
	defer m.rlock(ctx)()
	for _, p := range m.products {
		if p.Code == code {
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *Memory) ProductByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	defer m.rlock(ctx)()
	if i := indexOf(m.products, id, productID); i >= 0 {
		p := m.products[i]
		return &p, nil
	}
	return nil, repository.ErrNotFound
}

func (m *Memory) OrderByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	defer m.rlock(ctx)()
	if i := indexOf(m.orders, id, orderID); i >= 0 {
		o := m.orders[i]
		return &o, nil
	}
	return nil, repository.ErrNotFound
}

func (m *Memory) OrderLines(ctx context.Context, id primitive.ObjectID) ([]models.OrderLine, error) {
	return m.FindLines(ctx, repository.LineFilter{OrderIDs: []primitive.ObjectID{id}})
}

// FindOrders returns matching orders, newest first.
func (m *Memory) FindOrders(ctx context.Context, filter repository.OrderFilter) ([]models.Order, error) {
	defer m.rlock(ctx)()
	var out []models.Order
	for _, o := range m.orders {
		if len(filter.IDs) > 0 && !slices.Contains(filter.IDs, o.ID) {
			continue
		}
		if filter.CustomerID != nil && o.CustomerID != *filter.CustomerID {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		if filter.UnpaidOnly && o.IsPaid {
			continue
		}
		if !within(o.Date, filter.From, filter.To) {
			continue
		}
		out = append(out, o)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (m *Memory) FindLines(ctx context.Context, filter repository.LineFilter) ([]models.OrderLine, error) {
	defer m.rlock(ctx)()
	var out []models.OrderLine
	for _, l := range m.lines {
		if len(filter.OrderIDs) > 0 && !slices.Contains(filter.OrderIDs, l.OrderID) {
			continue
		}
		if filter.ProductCode != "" && l.ProductCode != filter.ProductCode {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

// FindPayments returns matching payments, newest first.
func (m *Memory) FindPayments(ctx context.Context, filter repository.PaymentFilter) ([]models.Payment, error) {
	defer m.rlock(ctx)()
	var out []models.Payment
	for _, p := range m.payments {
		if filter.CustomerID != nil && p.CustomerID != *filter.CustomerID {
			continue
		}
		if filter.OrderID != nil && !p.BelongsTo(*filter.OrderID) {
			continue
		}
		if len(filter.Types) > 0 && !slices.Contains(filter.Types, p.Type) {
			continue
		}
		if !within(p.Date, filter.From, filter.To) {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

// FindMovements returns matching movements, oldest first.
func (m *Memory) FindMovements(ctx context.Context, filter repository.MovementFilter) ([]models.StockMovement, error) {
	defer m.rlock(ctx)()
	var out []models.StockMovement
	for _, mv := range m.movements {
		if filter.ProductCode != "" && mv.ProductCode != filter.ProductCode {
			continue
		}
		if filter.Type != "" && mv.Type != filter.Type {
			continue
		}
		if !within(mv.Date, filter.From, filter.To) {
			continue
		}
		out = append(out, mv)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *Memory) FindProducts(ctx context.Context) ([]models.Product, error) {
	defer m.rlock(ctx)()
	return slices.Clone(m.products), nil
}

func (m *Memory) FindCustomers(ctx context.Context, filter repository.CustomerFilter) ([]models.Customer, int64, error) {
	defer m.rlock(ctx)()
	search := strings.ToLower(filter.Search)
	var matched []models.Customer
	for _, c := range m.customers {
		if search != "" && !strings.Contains(strings.ToLower(c.Name), search) && !strings.Contains(strings.ToLower(c.Phone), search) {
			continue
		}
		matched = append(matched, c)
	}
	total := int64(len(matched))
	if filter.Skip > 0 {
		if filter.Skip >= total {
			return nil, total, nil
		}
		matched = matched[filter.Skip:]
	}
	if filter.Limit > 0 && int64(len(matched)) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, total, nil
}

func (m *Memory) InsertCustomer(_ context.Context, customer *models.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if customer.ID.IsZero() {
		customer.ID = primitive.NewObjectID()
	}
	m.customers = append(m.customers, *customer)
	return nil
}

func (m *Memory) UpdateCustomer(_ context.Context, customer models.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := indexOf(m.customers, customer.ID, customerID)
	if i < 0 {
		return repository.ErrNotFound
	}
	m.customers[i] = customer
	return nil
}

func (m *Memory) DeleteCustomer(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if indexOf(m.customers, id, customerID) < 0 {
		return repository.ErrNotFound
	}
	m.customers = removeID(m.customers, id, customerID)
	return nil
}

func (m *Memory) InsertUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == user.Username {
			return repository.ErrDuplicate
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	m.users = append(m.users, *user)
	return nil
}

func (m *Memory) UserByUsername(_ context.Context, username string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *Memory) FindUsers(_ context.Context) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.users), nil
}

func (m *Memory) SaveDailyReport(_ context.Context, report models.DailyReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = append(m.reports, report)
	return nil
}

// DailyReports returns the saved reports in insertion order.
func (m *Memory) DailyReports() []models.DailyReport {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.reports)
}

func within(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && t.After(to) {
		return false
	}
	return true
}

func customerID(c models.Customer) primitive.ObjectID { return c.ID }
func productID(p models.Product) primitive.ObjectID   { return p.ID }
func orderID(o models.Order) primitive.ObjectID       { return o.ID }
func lineID(l models.OrderLine) primitive.ObjectID    { return l.ID }
func paymentID(p models.Payment) primitive.ObjectID   { return p.ID }

func indexOf[T any](items []T, id primitive.ObjectID, key func(T) primitive.ObjectID) int {
	return slices.IndexFunc(items, func(item T) bool { return key(item) == id })
}

func removeID[T any](items []T, id primitive.ObjectID, key func(T) primitive.ObjectID) []T {
	return slices.DeleteFunc(items, func(item T) bool { return key(item) == id })
}
