package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OrderStatus is the payment state requested for an order.
type OrderStatus string

const (
	StatusPaid OrderStatus = "paid"
	StatusDebt OrderStatus = "debt"
)

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	return s == StatusPaid || s == StatusDebt
}

// Order is a customer purchase. The balance fields are written through ApplyBalance only.
type Order struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Code          string             `bson:"orderCode" json:"orderCode"`
	CustomerID    primitive.ObjectID `bson:"customerId" json:"customerId"`
	Date          time.Time          `bson:"date" json:"date"`
	Total         decimal.Decimal    `bson:"total" json:"total"`
	TotalIsPaid   decimal.Decimal    `bson:"totalIsPaid" json:"totalIsPaid"`
	RemainingDebt decimal.Decimal    `bson:"remainingDebt" json:"remainingDebt"`
	IsPaid        bool               `bson:"isPaid" json:"isPaid"`
	Status        OrderStatus        `bson:"status" json:"status"`
}

// Balance reconstructs the balance variant from the stored fields.
func (o Order) Balance() Balance {
	if o.Status == StatusDebt {
		return Outstanding(o.Total, o.TotalIsPaid)
	}
	return PaidInFull(o.Total)
}

// ApplyBalance writes b onto the order's status, total and balance fields.
func (o *Order) ApplyBalance(b Balance) {
	o.Status = b.status
	o.Total = b.total
	o.TotalIsPaid = b.paid
	o.RemainingDebt = b.Remaining()
	o.IsPaid = b.Settled()
}

// Balance is either PaidInFull{total} or Outstanding{total, paid}.
// Its zero value is a paid balance of zero.
type Balance struct {
	status OrderStatus
	total  decimal.Decimal
	paid   decimal.Decimal
}

// PaidInFull is the balance of an order settled at checkout.
func PaidInFull(total decimal.Decimal) Balance {
	return Balance{status: StatusPaid, total: total, paid: total}
}

// Outstanding is the balance of a debt order with paid already collected.
// paid is clamped to [0, total].
func Outstanding(total, paid decimal.Decimal) Balance {
	if paid.IsNegative() {
		paid = decimal.Zero
	}
	if paid.GreaterThan(total) {
		paid = total
	}
	return Balance{status: StatusDebt, total: total, paid: paid}
}

func (b Balance) Status() OrderStatus {
	if b.status == "" {
		return StatusPaid
	}
	return b.status
}

func (b Balance) Total() decimal.Decimal { return b.total }

func (b Balance) Paid() decimal.Decimal { return b.paid }

// Remaining is total minus paid; always zero for a paid balance.
func (b Balance) Remaining() decimal.Decimal {
	return b.total.Sub(b.paid)
}

// Settled reports whether nothing remains to be collected.
func (b Balance) Settled() bool {
	return !b.Remaining().IsPositive()
}

// OrderLine is one product entry of an order. Amount and profit are captured when written.
type OrderLine struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrderID     primitive.ObjectID `bson:"orderId" json:"orderId"`
	ProductCode string             `bson:"productCode" json:"productCode"`
	Quantity    int64              `bson:"quantity" json:"quantity"`
	Price       decimal.Decimal    `bson:"price" json:"price"`
	Amount      decimal.Decimal    `bson:"amount" json:"amount"`
	Profit      decimal.Decimal    `bson:"profit" json:"profit"`
}

// Reprice computes the line amount and profit against the product cost price.
func (l *OrderLine) Reprice(quantity int64, price, costPrice decimal.Decimal) {
	q := decimal.NewFromInt(quantity)
	l.Quantity = quantity
	l.Price = price
	l.Amount = q.Mul(price)
	l.Profit = l.Amount.Sub(q.Mul(costPrice))
}
