package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestPaidInFull(t *testing.T) {
	var o Order
	o.ApplyBalance(PaidInFull(d(500)))

	assert.Equal(t, StatusPaid, o.Status)
	assert.True(t, d(500).Equal(o.TotalIsPaid))
	assert.True(t, o.RemainingDebt.IsZero())
	assert.True(t, o.IsPaid)
}

func TestOutstandingClampsPaid(t *testing.T) {
	tests := []struct {
		name      string
		paid      int64
		remaining int64
		settled   bool
	}{
		{name: "nothing paid", paid: 0, remaining: 500, settled: false},
		{name: "partly paid", paid: 200, remaining: 300, settled: false},
		{name: "exactly paid", paid: 500, remaining: 0, settled: true},
		{name: "overpaid", paid: 700, remaining: 0, settled: true},
		{name: "negative", paid: -5, remaining: 500, settled: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var o Order
			o.ApplyBalance(Outstanding(d(500), d(tt.paid)))

			assert.Equal(t, StatusDebt, o.Status)
			assert.True(t, d(tt.remaining).Equal(o.RemainingDebt), o.RemainingDebt.String())
			assert.True(t, o.TotalIsPaid.Add(o.RemainingDebt).Equal(o.Total))
			assert.Equal(t, tt.settled, o.IsPaid)
		})
	}
}

func TestBalanceRoundTrip(t *testing.T) {
	o := Order{}
	o.ApplyBalance(Outstanding(d(500), d(100)))

	b := o.Balance()
	assert.Equal(t, StatusDebt, b.Status())
	assert.True(t, d(400).Equal(b.Remaining()))
	assert.False(t, b.Settled())

	var zero Balance
	assert.Equal(t, StatusPaid, zero.Status())
	assert.True(t, zero.Settled())
}

func TestReprice(t *testing.T) {
	var l OrderLine
	l.Reprice(5, d(100), d(60))

	assert.Equal(t, int64(5), l.Quantity)
	assert.True(t, d(500).Equal(l.Amount))
	assert.True(t, d(200).Equal(l.Profit))
}

func TestParseID(t *testing.T) {
	_, err := ParseID("orderId", "")
	assert.Error(t, err)
	_, err = ParseID("orderId", "xyz")
	assert.Error(t, err)

	id, err := ParseID("orderId", " 65f000000000000000000001 ")
	assert.NoError(t, err)
	assert.Equal(t, "65f000000000000000000001", id.Hex())
}
