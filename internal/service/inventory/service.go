package inventory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/backoffice/internal/domain/apperr"
	"github.com/mamadbah2/backoffice/internal/domain/models"
	"github.com/mamadbah2/backoffice/internal/repository"
)

// DefaultLowStockThreshold is used when the configured threshold is not positive.
const DefaultLowStockThreshold int64 = 10

// StockAdjustment is a manual stock correction outside of any order.
type StockAdjustment struct {
	ProductCode string              `json:"productCode" binding:"required"`
	Type        models.MovementType `json:"type" binding:"required"`
	Quantity    int64               `json:"quantity" binding:"required"`
	Note        string              `json:"notes"`
}

// StockLevel aggregates the movement log of one product over a window.
type StockLevel struct {
	ProductCode string `json:"productCode"`
	ProductName string `json:"productName,omitempty"`
	TotalImport int64  `json:"totalImport"`
	TotalExport int64  `json:"totalExport"`
	Stock       int64  `json:"stock"`
}

// ReportItem is one product row of the stock report.
type ReportItem struct {
	Code            string          `json:"code"`
	Name            string          `json:"name"`
	OldStock        int64           `json:"oldStock"`
	Imported        int64           `json:"imported"`
	Exported        int64           `json:"exported"`
	NewStock        int64           `json:"newStock"`
	CostPrice       decimal.Decimal `json:"costPrice"`
	SalePrice       decimal.Decimal `json:"salePrice"`
	CostValue       decimal.Decimal `json:"costValue"`
	SaleValue       decimal.Decimal `json:"saleValue"`
	PotentialProfit decimal.Decimal `json:"potentialProfit"`
}

// ReportSummary totals the stock report.
type ReportSummary struct {
	TotalProducts        int             `json:"totalProducts"`
	TotalCostValue       decimal.Decimal `json:"totalCostValue"`
	TotalSaleValue       decimal.Decimal `json:"totalSaleValue"`
	TotalPotentialProfit decimal.Decimal `json:"totalPotentialProfit"`
	LowStockCount        int             `json:"lowStockCount"`
	OutOfStockCount      int             `json:"outOfStockCount"`
	InStockCount         int             `json:"inStockCount"`
}

// StockReport values the current inventory.
type StockReport struct {
	Items      []ReportItem  `json:"items"`
	Summary    ReportSummary `json:"summary"`
	LowStock   []ReportItem  `json:"lowStock"`
	OutOfStock []ReportItem  `json:"outOfStock"`
}

// ReconcileResult describes the counters of a product before and after a rebuild.
type ReconcileResult struct {
	ProductCode  string               `json:"productCode"`
	Before       models.StockCounters `json:"before"`
	After        models.StockCounters `json:"after"`
	Changed      bool                 `json:"changed"`
	Checkpointed bool                 `json:"checkpointed,omitempty"`
}

// Service exposes stock operations to the HTTP layer and the scheduler.
type Service struct {
	store    repository.Store
	ledger   *Ledger
	lowStock int64
	logger   *zap.Logger
}

// NewService wires a stock service.
func NewService(store repository.Store, ledger *Ledger, lowStockThreshold int64, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if lowStockThreshold <= 0 {
		lowStockThreshold = DefaultLowStockThreshold
	}
	return &Service{store: store, ledger: ledger, lowStock: lowStockThreshold, logger: logger}
}

// LowStockThreshold is the level under which a product counts as low on stock.
func (s *Service) LowStockThreshold() int64 {
	return s.lowStock
}

// Adjust records a manual import or export and returns the updated product.
func (s *Service) Adjust(ctx context.Context, adj StockAdjustment) (*models.Product, error) {
	code := strings.TrimSpace(adj.ProductCode)
	if code == "" || adj.Type == "" || adj.Quantity == 0 {
		return nil, apperr.Validation("productCode, type and quantity are required")
	}

	var updated models.Product
	err := s.store.Execute(ctx, func(ctx context.Context, uow *repository.UnitOfWork) error {
		p, err := s.ledger.ApplyDelta(ctx, uow, Delta{
			ProductCode: code,
			Direction:   adj.Type,
			Quantity:    adj.Quantity,
			Note:        adj.Note,
		})
		if err != nil {
			return err
		}
		updated = *p
		return nil
	})
	if err != nil {
		return nil, apperr.Wrap(err, "adjust stock")
	}

	s.logger.Info("stock adjusted",
		zap.String("product", code),
		zap.String("type", string(adj.Type)),
		zap.Int64("quantity", adj.Quantity),
		zap.Int64("new_stock", updated.NewStock))
	return &updated, nil
}

// History lists the movements of a product, newest first.
func (s *Service) History(ctx context.Context, code string) ([]models.StockMovement, error) {
	movements, err := s.store.FindMovements(ctx, repository.MovementFilter{ProductCode: code})
	if err != nil {
		return nil, apperr.Internal(err, "load stock history")
	}
	for i, j := 0, len(movements)-1; i < j; i, j = i+1, j-1 {
		movements[i], movements[j] = movements[j], movements[i]
	}
	return movements, nil
}

// Levels aggregates the movement log per product between from and to (zero means unbounded).
// Products that no longer exist are reported without a name.
func (s *Service) Levels(ctx context.Context, from, to time.Time) ([]StockLevel, error) {
	movements, err := s.store.FindMovements(ctx, repository.MovementFilter{From: from, To: to})
	if err != nil {
		return nil, apperr.Internal(err, "load stock movements")
	}
	products, err := s.store.FindProducts(ctx)
	if err != nil {
		return nil, apperr.Internal(err, "load products")
	}
	names := make(map[string]string, len(products))
	for _, p := range products {
		names[p.Code] = p.Name
	}

	byCode := make(map[string]*StockLevel)
	for _, m := range movements {
		lvl, ok := byCode[m.ProductCode]
		if !ok {
			lvl = &StockLevel{ProductCode: m.ProductCode, ProductName: names[m.ProductCode]}
			byCode[m.ProductCode] = lvl
		}
		if m.Type == models.MovementImport {
			lvl.TotalImport += m.Quantity
		} else {
			lvl.TotalExport += m.Quantity
		}
		lvl.Stock = lvl.TotalImport - lvl.TotalExport
	}

	out := make([]StockLevel, 0, len(byCode))
	for _, lvl := range byCode {
		out = append(out, *lvl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductCode < out[j].ProductCode })
	return out, nil
}

// Report values every product at cost and sale price and buckets them by stock level.
func (s *Service) Report(ctx context.Context) (*StockReport, error) {
	products, err := s.store.FindProducts(ctx)
	if err != nil {
		return nil, apperr.Internal(err, "load products")
	}

	report := &StockReport{Items: make([]ReportItem, 0, len(products))}
	totalCost, totalSale := decimal.Zero, decimal.Zero
	for _, p := range products {
		stock := decimal.NewFromInt(p.NewStock)
		item := ReportItem{
			Code:      p.Code,
			Name:      p.Name,
			OldStock:  p.OldStock,
			Imported:  p.Imported,
			Exported:  p.Exported,
			NewStock:  p.NewStock,
			CostPrice: p.CostPrice,
			SalePrice: p.SalePrice,
			CostValue: stock.Mul(p.CostPrice),
			SaleValue: stock.Mul(p.SalePrice),
		}
		item.PotentialProfit = item.SaleValue.Sub(item.CostValue)
		totalCost = totalCost.Add(item.CostValue)
		totalSale = totalSale.Add(item.SaleValue)
		report.Items = append(report.Items, item)

		switch {
		case p.NewStock <= 0:
			report.OutOfStock = append(report.OutOfStock, item)
			report.Summary.OutOfStockCount++
		case p.NewStock < s.lowStock:
			report.LowStock = append(report.LowStock, item)
			report.Summary.LowStockCount++
		default:
			report.Summary.InStockCount++
		}
	}

	report.Summary.TotalProducts = len(products)
	report.Summary.TotalCostValue = totalCost
	report.Summary.TotalSaleValue = totalSale
	report.Summary.TotalPotentialProfit = totalSale.Sub(totalCost)
	return report, nil
}

// Reconcile rebuilds the counters of one product from its baseline and the
// movements logged since, and persists them when they drifted. A product with
// no baseline yet is checkpointed at its current counters instead.
func (s *Service) Reconcile(ctx context.Context, code string) (*ReconcileResult, error) {
	var result ReconcileResult
	err := s.store.Execute(ctx, func(ctx context.Context, uow *repository.UnitOfWork) error {
		product, err := s.ledger.Product(ctx, uow, code)
		if err != nil {
			return err
		}
		result = ReconcileResult{ProductCode: code, Before: product.Counters()}

		now := time.Now().UTC()
		if product.Baseline == nil {
			product.Baseline = &models.StockBaseline{Counters: product.Counters(), At: now}
			product.UpdatedAt = now
			uow.StageProduct(product)
			result.After = result.Before
			result.Checkpointed = true
			return nil
		}

		movements, err := s.store.FindMovements(ctx, repository.MovementFilter{ProductCode: code, From: product.Baseline.At})
		if err != nil {
			return apperr.Internal(err, "load stock movements")
		}
		result.After = Replay(product.Baseline.Counters, movements)
		result.Changed = result.Before != result.After
		if result.Changed {
			product.SetCounters(result.After)
			product.UpdatedAt = now
			uow.StageProduct(product)
		}
		return nil
	})
	if err != nil {
		return nil, apperr.Wrap(err, "reconcile stock")
	}

	if result.Checkpointed {
		s.logger.Info("stock baseline recorded",
			zap.String("product", code),
			zap.Int64("new_stock", result.After.NewStock))
	}
	if result.Changed {
		s.logger.Warn("stock counters drifted from movement log",
			zap.String("product", code),
			zap.Any("before", result.Before),
			zap.Any("after", result.After))
	}
	return &result, nil
}

// ReconcileAll reconciles every product, one transaction each, and stops at the first failure.
func (s *Service) ReconcileAll(ctx context.Context) ([]ReconcileResult, error) {
	products, err := s.store.FindProducts(ctx)
	if err != nil {
		return nil, apperr.Internal(err, "load products")
	}

	results := make([]ReconcileResult, 0, len(products))
	for _, p := range products {
		res, err := s.Reconcile(ctx, p.Code)
		if err != nil {
			return results, err
		}
		results = append(results, *res)
	}
	return results, nil
}

// Replay applies a movement log ordered oldest first on top of base.
func Replay(base models.StockCounters, movements []models.StockMovement) models.StockCounters {
	c := base
	for _, m := range movements {
		c.OldStock = c.NewStock
		if m.Type == models.MovementImport {
			c.Imported += m.Quantity
		} else {
			c.Exported += m.Quantity
		}
		c.NewStock += m.Signed()
	}
	return c
}
