package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Product is a sellable item identified by its unique code.
// The stock counters are a materialised view of Baseline plus the movements logged since.
type Product struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Code      string             `bson:"code" json:"code"`
	Name      string             `bson:"name" json:"name"`
	CostPrice decimal.Decimal    `bson:"costPrice" json:"costPrice"`
	SalePrice decimal.Decimal    `bson:"salePrice" json:"salePrice"`
	OldStock  int64              `bson:"oldStock" json:"oldStock"`
	NewStock  int64              `bson:"newStock" json:"newStock"`
	Imported  int64              `bson:"imported" json:"imported"`
	Exported  int64              `bson:"exported" json:"exported"`
	Baseline  *StockBaseline     `bson:"stockBaseline,omitempty" json:"-"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// StockCounters groups the four denormalised counters of a product.
type StockCounters struct {
	OldStock int64 `bson:"oldStock" json:"oldStock"`
	NewStock int64 `bson:"newStock" json:"newStock"`
	Imported int64 `bson:"imported" json:"imported"`
	Exported int64 `bson:"exported" json:"exported"`
}

// StockBaseline checkpoints the counters of a product. Movements dated at or
// after At are not part of Counters. Products written before movements were
// logged carry opening stock that only the baseline knows about.
type StockBaseline struct {
	Counters StockCounters `bson:"counters"`
	At       time.Time     `bson:"at"`
}

// Counters returns the current counters of p.
func (p Product) Counters() StockCounters {
	return StockCounters{OldStock: p.OldStock, NewStock: p.NewStock, Imported: p.Imported, Exported: p.Exported}
}

// SetCounters overwrites the counters of p.
func (p *Product) SetCounters(c StockCounters) {
	p.OldStock = c.OldStock
	p.NewStock = c.NewStock
	p.Imported = c.Imported
	p.Exported = c.Exported
}
