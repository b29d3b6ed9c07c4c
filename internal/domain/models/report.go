package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailyReport is the end-of-day business snapshot stored in MongoDB.
type DailyReport struct {
	Date            time.Time       `bson:"date" json:"date"`
	OrdersCount     int             `bson:"ordersCount" json:"ordersCount"`
	Revenue         decimal.Decimal `bson:"revenue" json:"revenue"`
	Profit          decimal.Decimal `bson:"profit" json:"profit"`
	DebtCollected   decimal.Decimal `bson:"debtCollected" json:"debtCollected"`
	OutstandingDebt decimal.Decimal `bson:"outstandingDebt" json:"outstandingDebt"`
	LowStockCount   int             `bson:"lowStockCount" json:"lowStockCount"`
	CreatedAt       time.Time       `bson:"createdAt" json:"createdAt"`
}
