package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/backoffice/internal/domain/models"
	"github.com/mamadbah2/backoffice/internal/repository"
)

func TestExecuteRollsBackOnError(t *testing.T) {
	m := New()
	ctx := context.Background()
	boom := errors.New("boom")

	err := m.Execute(ctx, func(ctx context.Context, uow *repository.UnitOfWork) error {
		uow.StageProduct(&models.Product{Code: "P1"})
		uow.AppendMovement(models.StockMovement{ProductCode: "P1", Type: models.MovementImport, Quantity: 1})
		uow.InsertOrder(&models.Order{Code: "O1"})
		return boom
	})
	require.ErrorIs(t, err, boom)

	products, err := m.FindProducts(ctx)
	require.NoError(t, err)
	assert.Empty(t, products)
	orders, err := m.FindOrders(ctx, repository.OrderFilter{})
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestExecuteRejectsDuplicateKeysAtomically(t *testing.T) {
	m := New()
	ctx := context.Background()
	require.NoError(t, m.Execute(ctx, func(ctx context.Context, uow *repository.UnitOfWork) error {
		uow.InsertOrder(&models.Order{Code: "O1"})
		return nil
	}))

	err := m.Execute(ctx, func(ctx context.Context, uow *repository.UnitOfWork) error {
		uow.StageProduct(&models.Product{Code: "P9"})
		uow.InsertOrder(&models.Order{Code: "O1"})
		return nil
	})
	require.ErrorIs(t, err, repository.ErrDuplicate)

	_, err = m.ProductByCode(ctx, "P9")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestReadsInsideExecuteDoNotBlock(t *testing.T) {
	m := New()
	ctx := context.Background()
	customer := &models.Customer{Name: "C1"}
	require.NoError(t, m.InsertCustomer(ctx, customer))

	err := m.Execute(ctx, func(ctx context.Context, uow *repository.UnitOfWork) error {
		got, err := m.CustomerByID(ctx, customer.ID)
		if err != nil {
			return err
		}
		assert.Equal(t, "C1", got.Name)
		return nil
	})
	require.NoError(t, err)
}

func TestUpdateAndDeleteApplyInOrder(t *testing.T) {
	m := New()
	ctx := context.Background()
	order := &models.Order{Code: "O1"}
	line := &models.OrderLine{ProductCode: "P1", Quantity: 1}

	require.NoError(t, m.Execute(ctx, func(ctx context.Context, uow *repository.UnitOfWork) error {
		uow.InsertOrder(order)
		line.OrderID = order.ID
		uow.InsertLine(line)
		return nil
	}))

	require.NoError(t, m.Execute(ctx, func(ctx context.Context, uow *repository.UnitOfWork) error {
		updated := *line
		updated.Quantity = 4
		uow.UpdateLine(updated)
		order.ApplyBalance(models.PaidInFull(decimal.NewFromInt(40)))
		uow.UpdateOrder(*order)
		return nil
	}))

	lines, err := m.OrderLines(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, int64(4), lines[0].Quantity)

	require.NoError(t, m.Execute(ctx, func(ctx context.Context, uow *repository.UnitOfWork) error {
		uow.DeleteLine(line.ID)
		uow.DeleteOrder(order.ID)
		return nil
	}))
	lines, err = m.OrderLines(ctx, order.ID)
	require.NoError(t, err)
	assert.Empty(t, lines)
	_, err = m.OrderByID(ctx, order.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUpdateOfMissingOrderFails(t *testing.T) {
	m := New()
	err := m.Execute(context.Background(), func(ctx context.Context, uow *repository.UnitOfWork) error {
		uow.UpdateOrder(models.Order{Code: "ghost"})
		return nil
	})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestFindCustomersPagesAndSearches(t *testing.T) {
	m := New()
	ctx := context.Background()
	for _, name := range []string{"Awa", "Binta", "Aminata", "Moussa"} {
		require.NoError(t, m.InsertCustomer(ctx, &models.Customer{Name: name}))
	}

	page, total, err := m.FindCustomers(ctx, repository.CustomerFilter{Skip: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	require.Len(t, page, 2)
	assert.Equal(t, "Binta", page[0].Name)

	found, total, err := m.FindCustomers(ctx, repository.CustomerFilter{Search: "a"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Len(t, found, 4)

	found, total, err = m.FindCustomers(ctx, repository.CustomerFilter{Search: "ami"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "Aminata", found[0].Name)
}

func TestInsertUserRejectsDuplicateUsername(t *testing.T) {
	m := New()
	ctx := context.Background()
	require.NoError(t, m.InsertUser(ctx, &models.User{Username: "admin"}))
	assert.ErrorIs(t, m.InsertUser(ctx, &models.User{Username: "admin"}), repository.ErrDuplicate)
}
