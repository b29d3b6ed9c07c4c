package repository

import (
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/backoffice/internal/domain/models"
)

// Op is the kind of a staged write.
type Op int

const (
	OpInsert Op = iota + 1
	OpUpdate
	OpDelete
)

// OrderWrite is a staged order insert, update or delete.
type OrderWrite struct {
	Op    Op
	Order models.Order
}

// LineWrite is a staged order line insert, update or delete.
type LineWrite struct {
	Op   Op
	Line models.OrderLine
}

// PaymentWrite is a staged payment insert, update or delete.
type PaymentWrite struct {
	Op      Op
	Payment models.Payment
}

// UnitOfWork collects every write of one operation so the store can commit them together.
// Staged products and orders shadow the stored ones for later reads in the same operation.
// It is not safe for concurrent use.
type UnitOfWork struct {
	products       []*models.Product
	productsByCode map[string]int
	productDeletes []primitive.ObjectID
	movements      []models.StockMovement
	orders         []OrderWrite
	lines          []LineWrite
	payments       []PaymentWrite
}

// NewUnitOfWork returns an empty unit of work.
func NewUnitOfWork() *UnitOfWork {
	return &UnitOfWork{productsByCode: make(map[string]int)}
}

// StageProduct records p as the new state of its product (upsert by id).
func (u *UnitOfWork) StageProduct(p *models.Product) {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if idx, ok := u.productsByCode[p.Code]; ok {
		u.products[idx] = p
		return
	}
	u.productsByCode[p.Code] = len(u.products)
	u.products = append(u.products, p)
}

// StagedProduct returns the staged state of the product with code, if any.
func (u *UnitOfWork) StagedProduct(code string) (*models.Product, bool) {
	idx, ok := u.productsByCode[code]
	if !ok {
		return nil, false
	}
	return u.products[idx], true
}

// DeleteProduct stages the removal of a product.
func (u *UnitOfWork) DeleteProduct(id primitive.ObjectID) {
	u.productDeletes = append(u.productDeletes, id)
}

// AppendMovement stages a stock movement.
func (u *UnitOfWork) AppendMovement(m models.StockMovement) {
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	u.movements = append(u.movements, m)
}

// InsertOrder stages a new order and assigns its id.
func (u *UnitOfWork) InsertOrder(o *models.Order) {
	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	u.orders = append(u.orders, OrderWrite{Op: OpInsert, Order: *o})
}

// UpdateOrder stages the replacement of an order.
func (u *UnitOfWork) UpdateOrder(o models.Order) {
	u.orders = append(u.orders, OrderWrite{Op: OpUpdate, Order: o})
}

// DeleteOrder stages the removal of an order.
func (u *UnitOfWork) DeleteOrder(id primitive.ObjectID) {
	u.orders = append(u.orders, OrderWrite{Op: OpDelete, Order: models.Order{ID: id}})
}

// StagedOrder returns the last staged state of the order, if it was inserted or updated.
func (u *UnitOfWork) StagedOrder(id primitive.ObjectID) (*models.Order, bool) {
	for i := len(u.orders) - 1; i >= 0; i-- {
		w := u.orders[i]
		if w.Order.ID != id {
			continue
		}
		if w.Op == OpDelete {
			return nil, false
		}
		o := w.Order
		return &o, true
	}
	return nil, false
}

// InsertLine stages a new order line and assigns its id.
func (u *UnitOfWork) InsertLine(l *models.OrderLine) {
	if l.ID.IsZero() {
		l.ID = primitive.NewObjectID()
	}
	u.lines = append(u.lines, LineWrite{Op: OpInsert, Line: *l})
}

// UpdateLine stages the replacement of an order line.
func (u *UnitOfWork) UpdateLine(l models.OrderLine) {
	u.lines = append(u.lines, LineWrite{Op: OpUpdate, Line: l})
}

// DeleteLine stages the removal of an order line.
func (u *UnitOfWork) DeleteLine(id primitive.ObjectID) {
	u.lines = append(u.lines, LineWrite{Op: OpDelete, Line: models.OrderLine{ID: id}})
}

// InsertPayment stages a new payment and assigns its id.
func (u *UnitOfWork) InsertPayment(p *models.Payment) {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	u.payments = append(u.payments, PaymentWrite{Op: OpInsert, Payment: *p})
}

// UpdatePayment stages the replacement of a payment.
func (u *UnitOfWork) UpdatePayment(p models.Payment) {
	u.payments = append(u.payments, PaymentWrite{Op: OpUpdate, Payment: p})
}

// DeletePayment stages the removal of a payment.
func (u *UnitOfWork) DeletePayment(id primitive.ObjectID) {
	u.payments = append(u.payments, PaymentWrite{Op: OpDelete, Payment: models.Payment{ID: id}})
}

// Products returns the staged product states in staging order.
func (u *UnitOfWork) Products() []models.Product {
	out := make([]models.Product, 0, len(u.products))
	for _, p := range u.products {
		out = append(out, *p)
	}
	return out
}

func (u *UnitOfWork) ProductDeletes() []primitive.ObjectID { return u.productDeletes }

func (u *UnitOfWork) Movements() []models.StockMovement { return u.movements }

func (u *UnitOfWork) Orders() []OrderWrite { return u.orders }

func (u *UnitOfWork) Lines() []LineWrite { return u.lines }

func (u *UnitOfWork) Payments() []PaymentWrite { return u.payments }

// Empty reports whether nothing was staged.
func (u *UnitOfWork) Empty() bool {
	return len(u.products) == 0 && len(u.productDeletes) == 0 && len(u.movements) == 0 &&
		len(u.orders) == 0 && len(u.lines) == 0 && len(u.payments) == 0
}
