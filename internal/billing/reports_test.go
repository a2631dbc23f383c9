package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reportSnapshot() Snapshot {
	return Snapshot{
		Cards: []CreditCard{
			{ID: "nubank", Name: "Nubank Roxinho", ClosingDay: 5, DueDay: 15},
			{ID: "itau", Name: "Itaú Platinum", ClosingDay: 10, DueDay: 20},
		},
		Rules: []RecurringRule{
			rentRule(),
			{ID: "gym", Description: "Academia", DayOfMonth: 5, Value: dec("99.90"), Type: TypeExpense, Category: "Saúde", StartDate: date(2025, time.April, 1)},
			{ID: "salary", Description: "Salário", DayOfMonth: 5, Value: dec("5000"), Type: TypeIncome, Category: "Salário", StartDate: date(2024, time.January, 1)},
		},
		Transactions: []Transaction{
			{ID: "s1", Date: date(2025, time.March, 5), Description: "Salário", Type: TypeIncome, Value: dec("5000"), Category: "Salário"},
			{ID: "m1", Date: date(2025, time.March, 7), Description: "Mercado", Type: TypeExpense, Value: dec("450"), Category: "Alimentação"},
			{ID: "c1", Date: date(2025, time.March, 8), Description: "Tênis", Type: TypeCreditCard, Value: dec("1500"), Category: "Vestuário", CardID: "nubank", IsPaid: true},
			{ID: "c2", Date: date(2025, time.March, 9), Description: "Jantar", Type: TypeCreditCard, Value: dec("200"), Category: "Alimentação", CardID: "itau"},
			{ID: "v1", Date: date(2025, time.March, 10), Description: "Reserva", Type: TypeSavings, Value: dec("300"), Category: "Investimentos"},
			{ID: "w1", Date: date(2025, time.April, 2), Description: "Resgate", Type: TypeSavingsWithdrawal, Value: dec("100"), Category: "Investimentos"},
		},
	}
}

func TestExpensesByMonth(t *testing.T) {
	got, err := ExpensesByMonth(reportSnapshot(), Period{Month: 3, Year: 2025})
	require.NoError(t, err)

	// 450 + 1500 + 200 booked, plus the 1200 rent rule.
	assertDecimal(t, "3350", got.TotalExpenses)
	assertDecimal(t, "5000", got.TotalIncome)
	require.Len(t, got.Breakdown, 3)
	assert.Equal(t, "Vestuário", got.Breakdown[0].Category)
	assert.Equal(t, "Moradia", got.Breakdown[1].Category)
	assert.Equal(t, "Alimentação", got.Breakdown[2].Category)
	assertDecimal(t, "650", got.Breakdown[2].Total)
}

func TestBiggestExpense(t *testing.T) {
	s := reportSnapshot()

	got, found, err := BiggestExpense(s, Period{Month: 3, Year: 2025})
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Tênis", got.Description)
	assert.False(t, got.Recurring)

	got, found, err = BiggestExpense(s, Period{Month: 4, Year: 2025})
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Aluguel", got.Description)
	assert.True(t, got.Recurring)

	_, found, err = BiggestExpense(Snapshot{}, Period{Month: 4, Year: 2025})
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSummarizeMonth(t *testing.T) {
	got, err := SummarizeMonth(reportSnapshot(), Period{Month: 3, Year: 2025})
	require.NoError(t, err)

	assertDecimal(t, "5000", got.TotalIncome)
	assertDecimal(t, "2150", got.TotalExpenses)
	assertDecimal(t, "300", got.TotalSavings)
	assertDecimal(t, "2550", got.Balance)
	require.Len(t, got.TopCategories, 2)
	assert.Equal(t, "Vestuário", got.TopCategories[0].Category)

	// Gym only starts in April.
	assert.Equal(t, 2, got.RecurringCount)
	assertDecimal(t, "6200", got.RecurringTotal)
}

func TestSummaryThrough(t *testing.T) {
	got, err := SummaryThrough(reportSnapshot(), date(2025, time.March, 31))
	require.NoError(t, err)

	assertDecimal(t, "5000", got.TotalIncome)
	// The unpaid Itaú purchase is not spent yet.
	assertDecimal(t, "1950", got.TotalExpense)
	// Savings count the April withdrawal already.
	assertDecimal(t, "200", got.TotalSavings)
	assertDecimal(t, "2750", got.NetProfit)
}

func TestFindCard(t *testing.T) {
	cards := reportSnapshot().Cards

	tests := []struct {
		query   string
		wantID  string
		wantHit bool
	}{
		{"nubank", "nubank", true},
		{"PLATINUM", "itau", true},
		{"  roxinho ", "nubank", true},
		{"santander", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			c, ok := FindCard(cards, tt.query)
			assert.Equal(t, tt.wantHit, ok)
			assert.Equal(t, tt.wantID, c.ID)
		})
	}
}
