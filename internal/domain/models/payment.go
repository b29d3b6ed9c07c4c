package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PaymentType classifies a cash movement or a debt ledger event.
type PaymentType string

const (
	PaymentCash          PaymentType = "payment"
	PaymentNewDebt       PaymentType = "new_debt"
	PaymentDebtCollected PaymentType = "debt_collected"
)

// Valid reports whether t is a known payment type.
func (t PaymentType) Valid() bool {
	switch t {
	case PaymentCash, PaymentNewDebt, PaymentDebtCollected:
		return true
	}
	return false
}

// Collects reports whether t reduces what a customer owes.
func (t PaymentType) Collects() bool {
	return t == PaymentCash || t == PaymentDebtCollected
}

// Payment is a cash movement or debt event. OrderID links it to the order it belongs to.
type Payment struct {
	ID         primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Date       time.Time           `bson:"date" json:"date"`
	CustomerID primitive.ObjectID  `bson:"customerId" json:"customerId"`
	OrderID    *primitive.ObjectID `bson:"orderId,omitempty" json:"orderId,omitempty"`
	Amount     decimal.Decimal     `bson:"amount" json:"amount"`
	Type       PaymentType         `bson:"type" json:"type"`
	Note       string              `bson:"note" json:"note"`
	Method     string              `bson:"paymentMethod,omitempty" json:"paymentMethod,omitempty"`
}

// BelongsTo reports whether p is linked to orderID.
func (p Payment) BelongsTo(orderID primitive.ObjectID) bool {
	return p.OrderID != nil && *p.OrderID == orderID
}
