package billing

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cashflowSnapshot() Snapshot {
	return Snapshot{
		Cards: []CreditCard{{ID: "nubank", Name: "Nubank", ClosingDay: 5, DueDay: 15}},
		Rules: []RecurringRule{
			rentRule(),
			{ID: "freela", Description: "Freela", DayOfMonth: 20, Value: dec("500"), Type: TypeIncome, StartDate: date(2024, time.January, 1)},
		},
		Transactions: []Transaction{
			plainTx("salary", TypeIncome, date(2025, time.January, 1), "1000"),
		},
	}
}

func TestCashflowOn(t *testing.T) {
	s := cashflowSnapshot()
	s.Transactions = append(s.Transactions,
		cardTx("tv", "nubank", date(2025, time.February, 20), "100", false),
		plainTx("market", TypeExpense, date(2025, time.March, 15), "80"),
	)

	t.Run("future rule occurrence is expected", func(t *testing.T) {
		cf, err := CashflowOn(s, date(2025, time.March, 10), date(2025, time.March, 1))
		require.NoError(t, err)
		assertDecimal(t, "1200", cf.Expense)
		assertDecimal(t, "-1200", cf.Profit)
		require.Len(t, cf.Items, 1)
		assert.Equal(t, CashflowRecurring, cf.Items[0].Source)
	})

	t.Run("past rule occurrence is not", func(t *testing.T) {
		cf, err := CashflowOn(s, date(2025, time.March, 10), date(2025, time.March, 11))
		require.NoError(t, err)
		assert.Empty(t, cf.Items)
		assertDecimal(t, "0", cf.Profit)
	})

	t.Run("bill lands on its due date", func(t *testing.T) {
		cf, err := CashflowOn(s, date(2025, time.March, 15), date(2025, time.March, 1))
		require.NoError(t, err)
		assertDecimal(t, "180", cf.Expense)
		require.Len(t, cf.Items, 2)
		assert.Equal(t, CashflowTransaction, cf.Items[0].Source)
		assert.Equal(t, CashflowBill, cf.Items[1].Source)
		assert.Equal(t, "Fatura: Nubank", cf.Items[1].Description)
		assert.Equal(t, "nubank-2025-03", cf.Items[1].RefID)
	})
}

func TestCashflowOn_ShortMonthOverflow(t *testing.T) {
	s := Snapshot{
		Cards: []CreditCard{{ID: "inter", Name: "Inter", ClosingDay: 25, DueDay: 31}},
		Rules: []RecurringRule{
			{ID: "gym", Description: "Academia", DayOfMonth: 31, Value: dec("90"), Type: TypeExpense, StartDate: date(2024, time.January, 1)},
		},
		Transactions: []Transaction{
			cardTx("tv", "inter", date(2025, time.February, 10), "100", false),
		},
	}
	now := date(2025, time.March, 1)

	tests := []struct {
		name        string
		day         civil.Date
		wantExpense string
		wantRefs    []string
	}{
		{"february day 31 lands on march 3", date(2025, time.March, 3), "190", []string{"gym", "inter-2025-02"}},
		{"march day 31", date(2025, time.March, 31), "90", []string{"gym"}},
		{"nothing in between", date(2025, time.March, 2), "0", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cf, err := CashflowOn(s, tt.day, now)
			require.NoError(t, err)
			assertDecimal(t, tt.wantExpense, cf.Expense)

			var refs []string
			for _, it := range cf.Items {
				refs = append(refs, it.RefID)
			}
			assert.Equal(t, tt.wantRefs, refs)
		})
	}
}

func TestCashflowOn_AlreadyLaunched(t *testing.T) {
	s := cashflowSnapshot()
	s.Transactions = append(s.Transactions, Transaction{
		ID:          "rent-march",
		Date:        date(2025, time.March, 10),
		Description: "Aluguel março",
		Type:        TypeExpense,
		Value:       dec("1200.005"),
	})

	cf, err := CashflowOn(s, date(2025, time.March, 10), date(2025, time.March, 1))
	require.NoError(t, err)
	require.Len(t, cf.Items, 1)
	assert.Equal(t, CashflowTransaction, cf.Items[0].Source)
	assertDecimal(t, "1200.005", cf.Expense)
}

func TestAlreadyLaunched(t *testing.T) {
	rule := rentRule()
	day := date(2025, time.March, 10)

	tests := []struct {
		name string
		tx   Transaction
		want bool
	}{
		{"same description and value", Transaction{Date: day, Description: "Aluguel", Value: dec("1200")}, true},
		{"description contains rule", Transaction{Date: day, Description: "Aluguel 03/2025", Value: dec("1200")}, true},
		{"value off by a cent", Transaction{Date: day, Description: "Aluguel", Value: dec("1200.01")}, false},
		{"other day", Transaction{Date: day.AddDays(1), Description: "Aluguel", Value: dec("1200")}, false},
		{"other description", Transaction{Date: day, Description: "Condomínio", Value: dec("1200")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AlreadyLaunched(rule, []Transaction{tt.tx}, day))
		})
	}
}

func TestProjectMonthDaily(t *testing.T) {
	s := cashflowSnapshot()

	t.Run("current month", func(t *testing.T) {
		proj, err := ProjectMonthDaily(s, Period{Month: 3, Year: 2025}, date(2025, time.March, 1))
		require.NoError(t, err)
		assertDecimal(t, "1000", proj.StartBalance)
		require.Len(t, proj.Days, 31)
		assertDecimal(t, "1000", proj.Days[8].Balance)
		assertDecimal(t, "-200", proj.Days[9].Balance)
		assertDecimal(t, "300", proj.Days[30].Balance)
	})

	t.Run("future month rolls forward from now", func(t *testing.T) {
		proj, err := ProjectMonthDaily(s, Period{Month: 3, Year: 2025}, date(2025, time.February, 15))
		require.NoError(t, err)
		assertDecimal(t, "1500", proj.StartBalance)
		assertDecimal(t, "800", proj.Days[30].Balance)
	})

	t.Run("invalid month", func(t *testing.T) {
		_, err := ProjectMonthDaily(s, Period{Month: 13, Year: 2025}, date(2025, time.February, 15))
		assert.ErrorIs(t, err, ErrInvalidMonth)
	})

	t.Run("year out of range", func(t *testing.T) {
		_, err := ProjectMonthDaily(s, Period{Month: 1, Year: 100000}, date(2025, time.February, 15))
		assert.ErrorIs(t, err, ErrInvalidYear)
	})

	t.Run("beyond the horizon", func(t *testing.T) {
		_, err := ProjectMonthDaily(s, Period{Month: 1, Year: 2990}, date(2025, time.February, 15))
		assert.ErrorIs(t, err, ErrInvalidHorizon)
	})
}

func TestMonthlyOutlook(t *testing.T) {
	points, err := MonthlyOutlook(cashflowSnapshot(), date(2025, time.March, 1), 2)
	require.NoError(t, err)
	require.Len(t, points, 2)

	assert.Equal(t, Period{Month: 3, Year: 2025}, points[0].Period)
	assertDecimal(t, "300", points[0].Balance)
	assert.Equal(t, Period{Month: 4, Year: 2025}, points[1].Period)
	assertDecimal(t, "-400", points[1].Balance)
}

func TestMonthlyOutlook_Horizon(t *testing.T) {
	for _, months := range []int{-1, MaxHorizonMonths + 1} {
		_, err := MonthlyOutlook(cashflowSnapshot(), date(2025, time.March, 1), months)
		assert.ErrorIs(t, err, ErrInvalidHorizon, "months=%d", months)
	}

	points, err := MonthlyOutlook(cashflowSnapshot(), date(2025, time.March, 1), 0)
	require.NoError(t, err)
	assert.Empty(t, points)
}
