package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MovementType is the direction of a stock movement.
type MovementType string

const (
	MovementImport MovementType = "import"
	MovementExport MovementType = "export"
)

// Valid reports whether t is a known direction.
func (t MovementType) Valid() bool {
	return t == MovementImport || t == MovementExport
}

// StockMovement is an immutable audit record of a stock change. Quantity is always positive.
type StockMovement struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Date        time.Time           `bson:"date" json:"date"`
	ProductCode string              `bson:"productCode" json:"productCode"`
	Type        MovementType        `bson:"type" json:"type"`
	Quantity    int64               `bson:"quantity" json:"quantity"`
	Note        string              `bson:"note" json:"note"`
	OrderID     *primitive.ObjectID `bson:"orderId,omitempty" json:"orderId,omitempty"`
}

// Signed returns the quantity with the sign of its effect on stock.
func (m StockMovement) Signed() int64 {
	if m.Type == MovementExport {
		return -m.Quantity
	}
	return m.Quantity
}
