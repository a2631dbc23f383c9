package billing

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func divergenceSnapshot() Snapshot {
	return Snapshot{
		Cards: []CreditCard{{ID: "nubank", Name: "Nubank", ClosingDay: 5, DueDay: 15}},
		Transactions: []Transaction{
			plainTx("salary", TypeIncome, date(2025, time.January, 1), "1000"),
			// January bill, due Jan 15, never ticked paid.
			cardTx("late", "nubank", date(2025, time.January, 3), "100", false),
			// February bill, due Feb 15, ticked paid early.
			cardTx("early", "nubank", date(2025, time.January, 10), "40", true),
		},
	}
}

func TestComputeBalanceAsOf_ModeDivergence(t *testing.T) {
	s := divergenceSnapshot()

	tests := []struct {
		name   string
		cutoff civil.Date
		mode   Mode
		want   string
	}{
		{"cash skips the overdue unpaid purchase and applies the early payment", date(2025, time.January, 20), ModeCash, "960"},
		{"invoice charges the due bill and ignores the one not yet due", date(2025, time.January, 20), ModeInvoice, "900"},
		{"invoice charges both bills once both are due", date(2025, time.February, 16), ModeInvoice, "860"},
		{"invoice due date is exclusive", date(2025, time.January, 15), ModeInvoice, "1000"},
		{"cutoff is exclusive in cash mode", date(2025, time.January, 1), ModeCash, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := ComputeBalanceAsOf(s, tt.cutoff, tt.mode)
			require.NoError(t, err)
			assertDecimal(t, tt.want, b.Amount)
			assert.Equal(t, tt.mode, b.Mode)
			assert.Empty(t, b.Orphans)
		})
	}
}

func TestComputeBalanceAsOf_Polarity(t *testing.T) {
	s := Snapshot{
		Transactions: []Transaction{
			plainTx("1", TypeIncome, date(2025, time.March, 1), "500"),
			plainTx("2", TypeExpense, date(2025, time.March, 2), "120"),
			plainTx("3", TypeSavings, date(2025, time.March, 3), "100"),
			plainTx("4", TypeSavingsWithdrawal, date(2025, time.March, 4), "30"),
			{ID: "5", Date: date(2025, time.March, 5), Type: TypeExpense, Value: dec("999"), IsVirtual: true},
		},
	}

	for _, mode := range []Mode{ModeCash, ModeInvoice} {
		b, err := ComputeBalanceAsOf(s, date(2025, time.April, 1), mode)
		require.NoError(t, err)
		assertDecimal(t, "310", b.Amount, mode)
	}
}

func TestComputeBalanceAsOf_Orphans(t *testing.T) {
	s := Snapshot{
		Cards: []CreditCard{{ID: "nubank", ClosingDay: 5, DueDay: 15}},
		Transactions: []Transaction{
			plainTx("salary", TypeIncome, date(2025, time.January, 1), "1000"),
			cardTx("orphan", "deleted-card", date(2025, time.January, 2), "200", true),
		},
	}

	inv, err := ComputeBalanceAsOf(s, date(2025, time.June, 1), ModeInvoice)
	require.NoError(t, err)
	assertDecimal(t, "1000", inv.Amount)
	require.Len(t, inv.Orphans, 1)
	assert.Equal(t, "orphan", inv.Orphans[0].ID)

	cash, err := ComputeBalanceAsOf(s, date(2025, time.June, 1), ModeCash)
	require.NoError(t, err)
	assertDecimal(t, "800", cash.Amount)
	assert.Len(t, cash.Orphans, 1)
}

func TestComputeBalanceAsOf_Validation(t *testing.T) {
	_, err := ComputeBalanceAsOf(Snapshot{}, date(2025, time.January, 1), Mode("accrual"))
	assert.ErrorIs(t, err, ErrInvalidMode)

	_, err = ComputeBalanceAsOf(Snapshot{}, date(2025, time.February, 31), ModeCash)
	assert.ErrorIs(t, err, ErrInvalidDate)

	bad := Snapshot{Cards: []CreditCard{{ID: "x", ClosingDay: 40, DueDay: 10}}}
	_, err = ComputeBalanceAsOf(bad, date(2025, time.January, 1), ModeCash)
	assert.ErrorIs(t, err, ErrInvalidDay)

	mismatched := Snapshot{Transactions: []Transaction{{ID: "y", Date: date(2025, time.January, 1), Type: TypeExpense, Value: dec("1"), CardID: "nubank"}}}
	_, err = ComputeBalanceAsOf(mismatched, date(2025, time.January, 2), ModeCash)
	assert.ErrorIs(t, err, ErrCardInvariant)
}

func TestBalanceThrough_IncludesDay(t *testing.T) {
	s := Snapshot{Transactions: []Transaction{plainTx("1", TypeIncome, date(2025, time.January, 10), "50")}}

	got, err := CashBalanceThrough(s, date(2025, time.January, 10))
	require.NoError(t, err)
	assertDecimal(t, "50", got)

	got, err = CashBalanceThrough(s, date(2025, time.January, 9))
	require.NoError(t, err)
	assertDecimal(t, "0", got)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeCash, m)

	m, err = ParseMode("Invoice")
	require.NoError(t, err)
	assert.Equal(t, ModeInvoice, m)

	_, err = ParseMode("accrual")
	assert.ErrorIs(t, err, ErrInvalidMode)
}
