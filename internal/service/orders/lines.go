// Package orders coordinates order writes with stock and debt bookkeeping.
package orders

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/backoffice/internal/domain/apperr"
	"github.com/mamadbah2/backoffice/internal/domain/models"
	"github.com/mamadbah2/backoffice/internal/repository"
	"github.com/mamadbah2/backoffice/internal/service/inventory"
)

// ItemInput is one desired product line of an order.
type ItemInput struct {
	ProductCode string          `json:"productCode"`
	Quantity    int64           `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

// LineProcessor turns the persisted lines of an order into the desired ones,
// booking the stock effect of every difference.
type LineProcessor struct {
	stock *inventory.Ledger
}

// NewLineProcessor builds a processor booking stock on ledger.
func NewLineProcessor(ledger *inventory.Ledger) *LineProcessor {
	return &LineProcessor{stock: ledger}
}

// Reconcile stages the line writes and stock movements that turn persisted into items
// and returns the sum of the resulting line amounts. An empty persisted set creates every line.
func (p *LineProcessor) Reconcile(ctx context.Context, uow *repository.UnitOfWork, order *models.Order, persisted []models.OrderLine, items []ItemInput) (decimal.Decimal, error) {
	if err := validateItems(items); err != nil {
		return decimal.Zero, err
	}

	wanted := make(map[string]struct{}, len(items))
	for _, it := range items {
		wanted[strings.TrimSpace(it.ProductCode)] = struct{}{}
	}

	existing := make(map[string]models.OrderLine, len(persisted))
	for _, line := range persisted {
		if _, ok := wanted[line.ProductCode]; ok {
			existing[line.ProductCode] = line
			continue
		}
		if err := p.book(ctx, uow, order, line.ProductCode, -line.Quantity, returnNote(order.Code)); err != nil {
			return decimal.Zero, err
		}
		uow.DeleteLine(line.ID)
	}

	total := decimal.Zero
	for _, it := range items {
		code := strings.TrimSpace(it.ProductCode)
		product, err := p.stock.Product(ctx, uow, code)
		if err != nil {
			return decimal.Zero, err
		}

		if line, ok := existing[code]; ok {
			if diff := it.Quantity - line.Quantity; diff != 0 {
				if err := p.book(ctx, uow, order, code, diff, "adjusted for order "+order.Code); err != nil {
					return decimal.Zero, err
				}
			}
			line.Reprice(it.Quantity, it.Price, product.CostPrice)
			uow.UpdateLine(line)
			total = total.Add(line.Amount)
			continue
		}

		if err := p.book(ctx, uow, order, code, it.Quantity, "export for order "+order.Code); err != nil {
			return decimal.Zero, err
		}
		line := models.OrderLine{OrderID: order.ID, ProductCode: code}
		line.Reprice(it.Quantity, it.Price, product.CostPrice)
		uow.InsertLine(&line)
		total = total.Add(line.Amount)
	}
	return total, nil
}

// Reverse returns the stock of every line to inventory and stages the line deletions.
func (p *LineProcessor) Reverse(ctx context.Context, uow *repository.UnitOfWork, order *models.Order, persisted []models.OrderLine) error {
	for _, line := range persisted {
		if err := p.book(ctx, uow, order, line.ProductCode, -line.Quantity, returnNote(order.Code)); err != nil {
			return err
		}
		uow.DeleteLine(line.ID)
	}
	return nil
}

// book exports a positive quantity and imports back a negative one.
func (p *LineProcessor) book(ctx context.Context, uow *repository.UnitOfWork, order *models.Order, code string, quantity int64, note string) error {
	if quantity == 0 {
		return nil
	}
	direction := models.MovementExport
	if quantity < 0 {
		direction = models.MovementImport
		quantity = -quantity
	}
	orderID := order.ID
	_, err := p.stock.ApplyDelta(ctx, uow, inventory.Delta{
		ProductCode: code,
		Direction:   direction,
		Quantity:    quantity,
		Note:        note,
		OrderID:     &orderID,
	})
	return err
}

func validateItems(items []ItemInput) error {
	if len(items) == 0 {
		return apperr.Validation("order must contain at least one item")
	}
	seen := make(map[string]struct{}, len(items))
	for i, it := range items {
		code := strings.TrimSpace(it.ProductCode)
		switch {
		case code == "":
			return apperr.Validation("item %d: productCode is required", i+1)
		case it.Quantity <= 0:
			return apperr.Validation("item %d: quantity must be positive", i+1)
		case it.Price.IsNegative():
			return apperr.Validation("item %d: price must not be negative", i+1)
		}
		if _, dup := seen[code]; dup {
			return apperr.Validation("product %s appears more than once", code)
		}
		seen[code] = struct{}{}
	}
	return nil
}

func returnNote(orderCode string) string {
	return "return from order " + orderCode
}
