package catalog

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/backoffice/internal/domain/apperr"
	"github.com/mamadbah2/backoffice/internal/domain/models"
	"github.com/mamadbah2/backoffice/internal/repository"
	"github.com/mamadbah2/backoffice/internal/repository/memory"
	"github.com/mamadbah2/backoffice/internal/service/inventory"
)

func TestCustomerLifecycle(t *testing.T) {
	store := memory.New()
	svc := NewCustomerService(store, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, CustomerInput{Name: "  "})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	created, err := svc.Create(ctx, CustomerInput{Name: " Awa ", Phone: "620 00 00 00"})
	require.NoError(t, err)
	assert.Equal(t, "Awa", created.Name)

	updated, err := svc.Update(ctx, created.ID.Hex(), CustomerInput{Name: "Awa Diallo"})
	require.NoError(t, err)
	assert.Equal(t, "Awa Diallo", updated.Name)

	got, err := svc.Get(ctx, created.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "Awa Diallo", got.Name)

	require.NoError(t, svc.Delete(ctx, created.ID.Hex()))
	_, err = svc.Get(ctx, created.ID.Hex())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCustomerWithOrdersCannotBeDeleted(t *testing.T) {
	store := memory.New()
	svc := NewCustomerService(store, nil)
	ctx := context.Background()

	customer, err := svc.Create(ctx, CustomerInput{Name: "Binta"})
	require.NoError(t, err)
	require.NoError(t, store.Execute(ctx, func(ctx context.Context, uow *repository.UnitOfWork) error {
		uow.InsertOrder(&models.Order{Code: "O1", CustomerID: customer.ID})
		return nil
	}))

	err = svc.Delete(ctx, customer.ID.Hex())
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestCustomerPage(t *testing.T) {
	store := memory.New()
	svc := NewCustomerService(store, nil)
	ctx := context.Background()
	for _, name := range []string{"A", "B", "C", "D", "E"} {
		_, err := svc.Create(ctx, CustomerInput{Name: name})
		require.NoError(t, err)
	}

	page, err := svc.Page(ctx, 3, 2, "")
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.TotalCount)
	assert.Equal(t, int64(3), page.TotalPages)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "E", page.Items[0].Name)

	empty, err := svc.Page(ctx, 0, 0, "zzz")
	require.NoError(t, err)
	assert.Equal(t, int64(1), empty.Page)
	assert.Equal(t, int64(defaultPageSize), empty.PageSize)
	assert.NotNil(t, empty.Items)
	assert.Empty(t, empty.Items)
}

func TestProductCreateBooksOpeningStock(t *testing.T) {
	store := memory.New()
	svc := NewProductService(store, inventory.NewLedger(store), nil)
	ctx := context.Background()

	p, err := svc.Create(ctx, ProductInput{
		Code:         "P1",
		Name:         "Rice",
		CostPrice:    decimal.NewFromInt(60),
		SalePrice:    decimal.NewFromInt(100),
		OpeningStock: 50,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(50), p.NewStock)
	assert.Equal(t, int64(50), p.Imported)
	require.NotNil(t, p.Baseline)
	assert.Equal(t, models.StockCounters{}, p.Baseline.Counters)

	movements, err := store.FindMovements(ctx, repository.MovementFilter{ProductCode: "P1"})
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, models.MovementImport, movements[0].Type)
	assert.Equal(t, "opening stock", movements[0].Note)

	_, err = svc.Create(ctx, ProductInput{Code: "P1", Name: "Other"})
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestProductUpdateAndDelete(t *testing.T) {
	store := memory.New()
	svc := NewProductService(store, inventory.NewLedger(store), nil)
	ctx := context.Background()

	p, err := svc.Create(ctx, ProductInput{Code: "P1", Name: "Rice", CostPrice: decimal.NewFromInt(60), SalePrice: decimal.NewFromInt(100)})
	require.NoError(t, err)

	price := decimal.NewFromInt(120)
	updated, err := svc.Update(ctx, p.ID.Hex(), ProductUpdate{SalePrice: &price})
	require.NoError(t, err)
	assert.True(t, price.Equal(updated.SalePrice))
	assert.Equal(t, "Rice", updated.Name)

	require.NoError(t, store.Execute(ctx, func(ctx context.Context, uow *repository.UnitOfWork) error {
		uow.InsertLine(&models.OrderLine{ProductCode: "P1", Quantity: 1})
		return nil
	}))
	assert.ErrorIs(t, svc.Delete(ctx, p.ID.Hex()), apperr.ErrConflict)

	other, err := svc.Create(ctx, ProductInput{Code: "P2", Name: "Oil"})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, other.ID.Hex()))
	_, err = svc.Get(ctx, "P2")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
