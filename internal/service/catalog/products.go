package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/backoffice/internal/domain/apperr"
	"github.com/mamadbah2/backoffice/internal/domain/models"
	"github.com/mamadbah2/backoffice/internal/repository"
	"github.com/mamadbah2/backoffice/internal/service/inventory"
)

const openingStockNote = "opening stock"

// ProductInput is the body of a product create. OpeningStock is booked as an import.
type ProductInput struct {
	Code         string          `json:"code" binding:"required"`
	Name         string          `json:"name" binding:"required"`
	CostPrice    decimal.Decimal `json:"costPrice"`
	SalePrice    decimal.Decimal `json:"salePrice"`
	OpeningStock int64           `json:"newStock"`
}

// ProductUpdate changes the descriptive fields of a product. Stock only moves through movements.
type ProductUpdate struct {
	Name      *string          `json:"name"`
	CostPrice *decimal.Decimal `json:"costPrice"`
	SalePrice *decimal.Decimal `json:"salePrice"`
}

// ProductService manages products.
type ProductService struct {
	store  repository.Store
	ledger *inventory.Ledger
	logger *zap.Logger
}

// NewProductService wires a product service.
func NewProductService(store repository.Store, ledger *inventory.Ledger, logger *zap.Logger) *ProductService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductService{store: store, ledger: ledger, logger: logger}
}

func (s *ProductService) List(ctx context.Context) ([]models.Product, error) {
	products, err := s.store.FindProducts(ctx)
	if err != nil {
		return nil, apperr.Internal(err, "load products")
	}
	return products, nil
}

func (s *ProductService) Get(ctx context.Context, code string) (*models.Product, error) {
	product, err := s.store.ProductByCode(ctx, strings.TrimSpace(code))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("product %s not found", code)
	}
	if err != nil {
		return nil, apperr.Internal(err, "load product")
	}
	return product, nil
}

// Create adds a product and books its opening stock as an import movement.
func (s *ProductService) Create(ctx context.Context, in ProductInput) (*models.Product, error) {
	code := strings.TrimSpace(in.Code)
	name := strings.TrimSpace(in.Name)
	switch {
	case code == "" || name == "":
		return nil, apperr.Validation("code and name are required")
	case in.CostPrice.IsNegative() || in.SalePrice.IsNegative():
		return nil, apperr.Validation("prices must not be negative")
	case in.OpeningStock < 0:
		return nil, apperr.Validation("opening stock must not be negative")
	}

	var created models.Product
	err := s.store.Execute(ctx, func(ctx context.Context, uow *repository.UnitOfWork) error {
		_, err := s.store.ProductByCode(ctx, code)
		if err == nil {
			return repository.ErrDuplicate
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return apperr.Internal(err, "load product")
		}

		now := time.Now().UTC()
		product := &models.Product{
			Code:      code,
			Name:      name,
			CostPrice: in.CostPrice,
			SalePrice: in.SalePrice,
			Baseline:  &models.StockBaseline{At: now},
			CreatedAt: now,
			UpdatedAt: now,
		}
		uow.StageProduct(product)
		if in.OpeningStock > 0 {
			product, err = s.ledger.ApplyDelta(ctx, uow, inventory.Delta{
				ProductCode: code,
				Direction:   models.MovementImport,
				Quantity:    in.OpeningStock,
				Note:        openingStockNote,
			})
			if err != nil {
				return err
			}
		}
		created = *product
		return nil
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, apperr.Conflict("product code %s already exists", code)
	}
	if err != nil {
		return nil, apperr.Wrap(err, "create product")
	}

	s.logger.Info("product created",
		zap.String("code", code),
		zap.Int64("opening_stock", in.OpeningStock))
	return &created, nil
}

// Update changes the name and prices of a product.
func (s *ProductService) Update(ctx context.Context, id string, in ProductUpdate) (*models.Product, error) {
	productID, err := models.ParseID("product id", id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return nil, apperr.Validation("name must not be empty")
	}
	if (in.CostPrice != nil && in.CostPrice.IsNegative()) || (in.SalePrice != nil && in.SalePrice.IsNegative()) {
		return nil, apperr.Validation("prices must not be negative")
	}

	var updated models.Product
	err = s.store.Execute(ctx, func(ctx context.Context, uow *repository.UnitOfWork) error {
		product, err := s.store.ProductByID(ctx, productID)
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("product %s not found", id)
		}
		if err != nil {
			return apperr.Internal(err, "load product")
		}

		if in.Name != nil {
			product.Name = strings.TrimSpace(*in.Name)
		}
		if in.CostPrice != nil {
			product.CostPrice = *in.CostPrice
		}
		if in.SalePrice != nil {
			product.SalePrice = *in.SalePrice
		}
		product.UpdatedAt = time.Now().UTC()
		uow.StageProduct(product)
		updated = *product
		return nil
	})
	if err != nil {
		return nil, apperr.Wrap(err, "update product")
	}
	return &updated, nil
}

// Delete removes a product that no order line references.
func (s *ProductService) Delete(ctx context.Context, id string) error {
	productID, err := models.ParseID("product id", id)
	if err != nil {
		return err
	}

	var code string
	err = s.store.Execute(ctx, func(ctx context.Context, uow *repository.UnitOfWork) error {
		product, err := s.store.ProductByID(ctx, productID)
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("product %s not found", id)
		}
		if err != nil {
			return apperr.Internal(err, "load product")
		}
		code = product.Code

		lines, err := s.store.FindLines(ctx, repository.LineFilter{ProductCode: product.Code})
		if err != nil {
			return apperr.Internal(err, "load order lines")
		}
		if len(lines) > 0 {
			return apperr.Conflict("product %s is used by %d order lines", product.Code, len(lines))
		}
		uow.DeleteProduct(product.ID)
		return nil
	})
	if err != nil {
		return apperr.Wrap(err, "delete product")
	}
	s.logger.Info("product deleted", zap.String("code", code))
	return nil
}
