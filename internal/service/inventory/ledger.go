// Package inventory maintains product stock counters and the append-only movement log.
package inventory

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/backoffice/internal/domain/apperr"
	"github.com/mamadbah2/backoffice/internal/domain/models"
	"github.com/mamadbah2/backoffice/internal/repository"
)

// Delta is one stock change to record against a product.
type Delta struct {
	ProductCode string
	Direction   models.MovementType
	Quantity    int64
	Note        string
	OrderID     *primitive.ObjectID
}

// Ledger applies stock deltas. It only stages writes; the caller's transaction commits them.
type Ledger struct {
	products repository.Reader
	now      func() time.Time
}

// NewLedger builds a ledger reading products from r.
func NewLedger(r repository.Reader) *Ledger {
	return &Ledger{products: r, now: time.Now}
}

// ApplyDelta moves newStock into oldStock, applies the delta to newStock and the
// cumulative counter of its direction, and appends the matching movement.
// A product without a baseline is checkpointed first. Stock may go negative.
func (l *Ledger) ApplyDelta(ctx context.Context, uow *repository.UnitOfWork, d Delta) (*models.Product, error) {
	if !d.Direction.Valid() {
		return nil, apperr.Validation("invalid movement type %q", d.Direction)
	}
	if d.Quantity <= 0 {
		return nil, apperr.Validation("movement quantity must be positive, got %d", d.Quantity)
	}

	product, err := l.load(ctx, uow, d.ProductCode)
	if err != nil {
		return nil, err
	}

	now := l.now().UTC()
	if product.Baseline == nil {
		product.Baseline = &models.StockBaseline{Counters: product.Counters(), At: now}
	}
	product.OldStock = product.NewStock
	if d.Direction == models.MovementImport {
		product.NewStock += d.Quantity
		product.Imported += d.Quantity
	} else {
		product.NewStock -= d.Quantity
		product.Exported += d.Quantity
	}
	product.UpdatedAt = now

	uow.StageProduct(product)
	uow.AppendMovement(models.StockMovement{
		Date:        now,
		ProductCode: product.Code,
		Type:        d.Direction,
		Quantity:    d.Quantity,
		Note:        d.Note,
		OrderID:     d.OrderID,
	})
	return product, nil
}

// Product resolves a product by code, preferring the state already staged in uow.
func (l *Ledger) Product(ctx context.Context, uow *repository.UnitOfWork, code string) (*models.Product, error) {
	return l.load(ctx, uow, code)
}

func (l *Ledger) load(ctx context.Context, uow *repository.UnitOfWork, code string) (*models.Product, error) {
	if staged, ok := uow.StagedProduct(code); ok {
		return staged, nil
	}
	product, err := l.products.ProductByCode(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("product %s not found", code)
	}
	if err != nil {
		return nil, apperr.Internal(err, "load product")
	}
	return product, nil
}
