package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayablesForMonth(t *testing.T) {
	rent := plainTx("rent", TypeExpense, date(2025, time.March, 2), "200")
	rent.IsPaid = true

	s := Snapshot{
		Cards: []CreditCard{
			{ID: "nubank", Name: "Nubank", ClosingDay: 5, DueDay: 15},
			{ID: "itau", Name: "Itaú", ClosingDay: 5, DueDay: 25},
		},
		Transactions: []Transaction{
			rent,
			plainTx("save", TypeSavings, date(2025, time.March, 20), "100"),
			plainTx("salary", TypeIncome, date(2025, time.March, 5), "5000"),
			cardTx("tv", "nubank", date(2025, time.February, 10), "300", true),
			cardTx("book", "nubank", date(2025, time.March, 1), "50", true),
		},
	}

	p, err := PayablesForMonth(s, Period{Month: 3, Year: 2025})
	require.NoError(t, err)

	require.Len(t, p.Items, 3)
	assert.Equal(t, "rent", p.Items[0].ID)
	assert.Equal(t, "bill-nubank-2025-03", p.Items[1].ID)
	assert.True(t, p.Items[1].IsBill)
	assert.True(t, p.Items[1].Paid)
	assert.Equal(t, date(2025, time.March, 15), p.Items[1].Date)
	assert.Equal(t, BillCategory, p.Items[1].Category)
	assertDecimal(t, "350", p.Items[1].Value)
	assert.Equal(t, "save", p.Items[2].ID)

	assertDecimal(t, "550", p.Paid)
	assertDecimal(t, "100", p.Pending)
	assertDecimal(t, "650", p.Total)
	assertDecimal(t, "84.62", p.PercentPaid)
}

func TestPayablesForMonth_Empty(t *testing.T) {
	p, err := PayablesForMonth(Snapshot{}, Period{Month: 1, Year: 2025})
	require.NoError(t, err)
	assert.Empty(t, p.Items)
	assertDecimal(t, "0", p.PercentPaid)
}
