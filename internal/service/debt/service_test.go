package debt

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/backoffice/internal/domain/apperr"
	"github.com/mamadbah2/backoffice/internal/domain/models"
	"github.com/mamadbah2/backoffice/internal/repository"
	"github.com/mamadbah2/backoffice/internal/repository/memory"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fixture struct {
	store    *memory.Memory
	svc      *Service
	customer models.Customer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	customer := &models.Customer{Name: "C1", Phone: "620000000"}
	require.NoError(t, store.InsertCustomer(context.Background(), customer))
	return &fixture{
		store:    store,
		svc:      NewService(store, NewLedger(store), nil),
		customer: *customer,
	}
}

// seedDebtOrder stores a debt order with its new_debt event, the way order creation does.
func (f *fixture) seedDebtOrder(t *testing.T, customerID primitive.ObjectID, code, total string) models.Order {
	t.Helper()
	order := models.Order{ID: primitive.NewObjectID(), Code: code, CustomerID: customerID}
	order.ApplyBalance(models.PaidInFull(dec(total)))
	ledger := NewLedger(f.store)
	err := f.store.Execute(context.Background(), func(ctx context.Context, uow *repository.UnitOfWork) error {
		if err := ledger.Open(ctx, uow, &order); err != nil {
			return err
		}
		uow.InsertOrder(&order)
		return nil
	})
	require.NoError(t, err)
	return order
}

func (f *fixture) order(t *testing.T, id primitive.ObjectID) *models.Order {
	t.Helper()
	o, err := f.store.OrderByID(context.Background(), id)
	require.NoError(t, err)
	return o
}

func TestSettleOrderExactAmount(t *testing.T) {
	f := newFixture(t)
	o1 := f.seedDebtOrder(t, f.customer.ID, "O1", "500")

	result, err := f.svc.SettleOrder(context.Background(), Settlement{
		CustomerID: f.customer.ID.Hex(),
		OrderID:    o1.ID.Hex(),
		Amount:     dec("500"),
	})
	require.NoError(t, err)
	assert.Nil(t, result.Summary)
	require.Len(t, result.Payments, 1)
	assert.Equal(t, models.PaymentDebtCollected, result.Payments[0].Type)
	assert.True(t, result.Payments[0].BelongsTo(o1.ID))

	stored := f.order(t, o1.ID)
	assert.True(t, stored.RemainingDebt.IsZero())
	assert.True(t, dec("500").Equal(stored.TotalIsPaid))
	assert.True(t, stored.IsPaid)
	assert.Equal(t, models.StatusDebt, stored.Status)
}

func TestSettleOrderWrongAmountConflicts(t *testing.T) {
	f := newFixture(t)
	o1 := f.seedDebtOrder(t, f.customer.ID, "O1", "500")

	_, err := f.svc.SettleOrder(context.Background(), Settlement{
		CustomerID: f.customer.ID.Hex(),
		OrderID:    o1.ID.Hex(),
		Amount:     dec("400"),
	})
	require.ErrorIs(t, err, apperr.ErrConflict)

	stored := f.order(t, o1.ID)
	assert.True(t, dec("500").Equal(stored.RemainingDebt))
	assert.False(t, stored.IsPaid)

	collected, err := f.store.FindPayments(context.Background(), repository.PaymentFilter{
		Types: []models.PaymentType{models.PaymentDebtCollected},
	})
	require.NoError(t, err)
	assert.Empty(t, collected)
}

func TestSettleOrderTwiceConflicts(t *testing.T) {
	f := newFixture(t)
	o1 := f.seedDebtOrder(t, f.customer.ID, "O1", "500")
	in := Settlement{CustomerID: f.customer.ID.Hex(), OrderID: o1.ID.Hex(), Amount: dec("500")}

	_, err := f.svc.SettleOrder(context.Background(), in)
	require.NoError(t, err)
	_, err = f.svc.SettleOrder(context.Background(), in)
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestSettleOrderOfAnotherCustomer(t *testing.T) {
	f := newFixture(t)
	other := &models.Customer{Name: "C2"}
	require.NoError(t, f.store.InsertCustomer(context.Background(), other))
	o1 := f.seedDebtOrder(t, other.ID, "O1", "500")

	_, err := f.svc.SettleOrder(context.Background(), Settlement{
		CustomerID: f.customer.ID.Hex(),
		OrderID:    o1.ID.Hex(),
		Amount:     dec("500"),
	})
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestSettleBatchSkipsInvalidEntries(t *testing.T) {
	f := newFixture(t)
	o1 := f.seedDebtOrder(t, f.customer.ID, "O1", "500")
	o2 := f.seedDebtOrder(t, f.customer.ID, "O2", "300")
	declared := dec("800")

	result, err := f.svc.SettleBatch(context.Background(), SettlementBatch{
		CustomerID:    f.customer.ID.Hex(),
		TotalAmount:   &declared,
		PaymentMethod: "cash",
		Payments: []SettlementItem{
			{OrderID: o1.ID.Hex(), Amount: dec("500")},
			{OrderID: o2.ID.Hex(), Amount: dec("100")},
			{OrderID: "not-an-id", Amount: dec("10")},
			{OrderID: o1.ID.Hex(), Amount: dec("500")},
		},
	})
	require.NoError(t, err)

	assert.True(t, dec("500").Equal(result.TotalPaid))
	require.Len(t, result.Updated, 1)
	assert.Equal(t, "O1", result.Updated[0].OrderCode)
	assert.True(t, result.Updated[0].NewRemainingDebt.IsZero())
	require.Len(t, result.Skipped, 3)

	require.NotNil(t, result.Summary)
	assert.Equal(t, models.PaymentCash, result.Summary.Type)
	assert.Nil(t, result.Summary.OrderID)
	assert.True(t, dec("500").Equal(result.Summary.Amount))
	assert.Equal(t, "cash", result.Payments[0].Method)

	assert.True(t, f.order(t, o1.ID).IsPaid)
	assert.True(t, dec("300").Equal(f.order(t, o2.ID).RemainingDebt))

	// The summary is not linked to an order, so it does not count as collected twice.
	collected, err := NewLedger(f.store).Collected(context.Background(), o1.ID)
	require.NoError(t, err)
	assert.True(t, dec("500").Equal(collected))
}

func TestSettleBatchWithNothingValidWritesNothing(t *testing.T) {
	f := newFixture(t)
	o1 := f.seedDebtOrder(t, f.customer.ID, "O1", "500")

	result, err := f.svc.SettleBatch(context.Background(), SettlementBatch{
		CustomerID: f.customer.ID.Hex(),
		Payments:   []SettlementItem{{OrderID: o1.ID.Hex(), Amount: dec("1")}},
	})
	require.ErrorIs(t, err, apperr.ErrConflict)
	require.NotNil(t, result)
	assert.Len(t, result.Skipped, 1)
	assert.Empty(t, result.Updated)

	payments, err := f.store.FindPayments(context.Background(), repository.PaymentFilter{
		Types: []models.PaymentType{models.PaymentCash, models.PaymentDebtCollected},
	})
	require.NoError(t, err)
	assert.Empty(t, payments)
}

func TestSettleBatchValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.SettleBatch(context.Background(), SettlementBatch{CustomerID: f.customer.ID.Hex()})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.SettleBatch(context.Background(), SettlementBatch{
		CustomerID: "65f000000000000000000001",
		Payments:   []SettlementItem{{OrderID: "65f000000000000000000002", Amount: dec("1")}},
	})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRecordPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o1 := f.seedDebtOrder(t, f.customer.ID, "O1", "500")

	_, err := f.svc.RecordPayment(ctx, PaymentInput{CustomerID: f.customer.ID.Hex(), Type: "refund", Amount: dec("1")})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.RecordPayment(ctx, PaymentInput{CustomerID: f.customer.ID.Hex(), Type: models.PaymentCash, Amount: dec("0")})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	cash, err := f.svc.RecordPayment(ctx, PaymentInput{
		CustomerID: f.customer.ID.Hex(),
		Type:       models.PaymentCash,
		Amount:     dec("25"),
		Note:       "walk-in",
	})
	require.NoError(t, err)
	assert.Nil(t, cash.OrderID)
	assert.False(t, cash.ID.IsZero())

	collected, err := f.svc.RecordPayment(ctx, PaymentInput{
		CustomerID: f.customer.ID.Hex(),
		OrderID:    o1.ID.Hex(),
		Type:       models.PaymentDebtCollected,
		Amount:     dec("500"),
	})
	require.NoError(t, err)
	assert.True(t, collected.BelongsTo(o1.ID))
	assert.True(t, f.order(t, o1.ID).IsPaid)
}

func TestCustomerDebtViews(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := &models.Customer{Name: "C2"}
	require.NoError(t, f.store.InsertCustomer(ctx, other))

	o1 := f.seedDebtOrder(t, f.customer.ID, "O1", "500")
	f.seedDebtOrder(t, f.customer.ID, "O2", "300")
	f.seedDebtOrder(t, other.ID, "O3", "1000")

	_, err := f.svc.SettleOrder(ctx, Settlement{CustomerID: f.customer.ID.Hex(), OrderID: o1.ID.Hex(), Amount: dec("500")})
	require.NoError(t, err)

	overview, err := f.svc.CustomerDebts(ctx)
	require.NoError(t, err)
	require.Len(t, overview.Items, 2)
	assert.Equal(t, "C2", overview.Items[0].CustomerName)
	assert.Equal(t, 2, overview.TotalCustomersWithDebt)
	assert.True(t, dec("1300").Equal(overview.TotalDebtAmount))
	assert.True(t, dec("300").Equal(overview.Items[1].RemainingDebt))
	assert.True(t, dec("500").Equal(overview.Items[1].TotalPayments))

	detail, err := f.svc.CustomerDebt(ctx, f.customer.ID.Hex())
	require.NoError(t, err)
	require.Len(t, detail.Orders, 1)
	assert.Equal(t, "O2", detail.Orders[0].OrderCode)
	assert.True(t, dec("300").Equal(detail.Summary.TotalRemainingDebt))
	assert.Len(t, detail.Payments, 2)

	balances, err := f.svc.OrderDebts(ctx, []string{o1.ID.Hex(), "garbage"})
	require.NoError(t, err)
	require.Len(t, balances, 1)
	assert.True(t, balances[0].IsPaid)
	assert.Equal(t, "C1", balances[0].CustomerName)

	_, err = f.svc.OrderDebts(ctx, nil)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestLinkedCashPaymentReducesDebt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o1 := f.seedDebtOrder(t, f.customer.ID, "O1", "500")

	_, err := f.svc.RecordPayment(ctx, PaymentInput{
		CustomerID: f.customer.ID.Hex(),
		OrderID:    o1.ID.Hex(),
		Type:       models.PaymentCash,
		Amount:     dec("200"),
	})
	require.NoError(t, err)

	stored := f.order(t, o1.ID)
	assert.True(t, dec("200").Equal(stored.TotalIsPaid))
	assert.True(t, dec("300").Equal(stored.RemainingDebt))
	assert.False(t, stored.IsPaid)

	_, err = f.svc.SettleOrder(ctx, Settlement{CustomerID: f.customer.ID.Hex(), OrderID: o1.ID.Hex(), Amount: dec("500")})
	require.ErrorIs(t, err, apperr.ErrConflict)

	_, err = f.svc.SettleOrder(ctx, Settlement{CustomerID: f.customer.ID.Hex(), OrderID: o1.ID.Hex(), Amount: dec("300")})
	require.NoError(t, err)
	assert.True(t, f.order(t, o1.ID).IsPaid)

	collected, err := NewLedger(f.store).Collected(ctx, o1.ID)
	require.NoError(t, err)
	assert.True(t, dec("500").Equal(collected), collected.String())
}

func TestLinkedCashPaymentCannotOvercollect(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o1 := f.seedDebtOrder(t, f.customer.ID, "O1", "500")

	paid := models.Order{ID: primitive.NewObjectID(), Code: "O2", CustomerID: f.customer.ID}
	paid.ApplyBalance(models.PaidInFull(dec("80")))
	require.NoError(t, f.store.Execute(ctx, func(_ context.Context, uow *repository.UnitOfWork) error {
		uow.InsertOrder(&paid)
		return nil
	}))

	tests := map[string]struct {
		orderID primitive.ObjectID
		amount  string
	}{
		"more than the remaining debt": {orderID: o1.ID, amount: "600"},
		"order paid at checkout":       {orderID: paid.ID, amount: "10"},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.RecordPayment(ctx, PaymentInput{
				CustomerID: f.customer.ID.Hex(),
				OrderID:    tc.orderID.Hex(),
				Type:       models.PaymentCash,
				Amount:     dec(tc.amount),
			})
			assert.ErrorIs(t, err, apperr.ErrConflict)
		})
	}

	cash, err := f.store.FindPayments(ctx, repository.PaymentFilter{Types: []models.PaymentType{models.PaymentCash}})
	require.NoError(t, err)
	assert.Empty(t, cash)
	assert.True(t, dec("500").Equal(f.order(t, o1.ID).RemainingDebt))
}

// seedLegacyDebtOrder stores a debt order whose new_debt event is only linked by its note.
func (f *fixture) seedLegacyDebtOrder(t *testing.T, code, total string) models.Order {
	t.Helper()
	order := models.Order{ID: primitive.NewObjectID(), Code: code, CustomerID: f.customer.ID}
	order.ApplyBalance(models.Outstanding(dec(total), decimal.Zero))
	err := f.store.Execute(context.Background(), func(_ context.Context, uow *repository.UnitOfWork) error {
		uow.InsertOrder(&order)
		uow.InsertPayment(&models.Payment{
			CustomerID: f.customer.ID,
			Amount:     dec(total),
			Type:       models.PaymentNewDebt,
			Note:       LegacyDebtNote(code),
		})
		return nil
	})
	require.NoError(t, err)
	return order
}

func (f *fixture) debtEvents(t *testing.T) []models.Payment {
	t.Helper()
	events, err := f.store.FindPayments(context.Background(), repository.PaymentFilter{
		Types: []models.PaymentType{models.PaymentNewDebt},
	})
	require.NoError(t, err)
	return events
}

func TestDischargeRemovesLegacyDebtEvent(t *testing.T) {
	f := newFixture(t)
	o1 := f.seedLegacyDebtOrder(t, "O1", "500")
	f.seedLegacyDebtOrder(t, "O10", "70")
	ledger := NewLedger(f.store)

	err := f.store.Execute(context.Background(), func(ctx context.Context, uow *repository.UnitOfWork) error {
		return ledger.Discharge(ctx, uow, &o1)
	})
	require.NoError(t, err)

	events := f.debtEvents(t)
	require.Len(t, events, 1)
	assert.Equal(t, LegacyDebtNote("O10"), events[0].Note)
}

func TestReconcileBackfillsLegacyDebtEvent(t *testing.T) {
	f := newFixture(t)
	o1 := f.seedLegacyDebtOrder(t, "O1", "500")
	ledger := NewLedger(f.store)

	err := f.store.Execute(context.Background(), func(ctx context.Context, uow *repository.UnitOfWork) error {
		if err := ledger.Reconcile(ctx, uow, &o1, models.StatusDebt, dec("600")); err != nil {
			return err
		}
		uow.UpdateOrder(o1)
		return nil
	})
	require.NoError(t, err)

	events := f.debtEvents(t)
	require.Len(t, events, 1)
	assert.True(t, events[0].BelongsTo(o1.ID))
	assert.True(t, dec("600").Equal(events[0].Amount))
	assert.Equal(t, DebtNote("O1"), events[0].Note)
	assert.True(t, dec("600").Equal(f.order(t, o1.ID).RemainingDebt))
}
