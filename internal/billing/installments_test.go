package billing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitInstallments(t *testing.T) {
	base := cardTx("ignored", "nubank", date(2025, time.January, 31), "100", true)
	base.Description = "Notebook"

	parts, err := SplitInstallments(base, 3, "tx1")
	require.NoError(t, err)
	require.Len(t, parts, 3)

	tests := []struct {
		id, desc, value string
		day             int
		month           time.Month
	}{
		{"tx1-1", "Notebook (1/3)", "33.33", 31, time.January},
		{"tx1-2", "Notebook (2/3)", "33.33", 28, time.February},
		{"tx1-3", "Notebook (3/3)", "33.34", 31, time.March},
	}

	sum := decimal.Zero
	for i, tt := range tests {
		got := parts[i]
		assert.Equal(t, tt.id, got.ID)
		assert.Equal(t, tt.desc, got.Description)
		assertDecimal(t, tt.value, got.Value)
		assert.Equal(t, date(2025, tt.month, tt.day), got.Date)
		assert.Equal(t, i+1, got.InstallmentIndex)
		assert.Equal(t, 3, got.InstallmentCount)
		assert.False(t, got.IsPaid)
		assert.Equal(t, "nubank", got.CardID)
		assert.NoError(t, got.Validate())
		sum = sum.Add(got.Value)
	}
	assertDecimal(t, "100", sum)
}

func TestSplitInstallments_Single(t *testing.T) {
	base := plainTx("x", TypeExpense, date(2025, time.May, 3), "10.999")

	parts, err := SplitInstallments(base, 1, "tx9")
	require.NoError(t, err)
	require.Len(t, parts, 1)
	assert.Equal(t, "tx9", parts[0].ID)
	assertDecimal(t, "11", parts[0].Value)
	assert.Zero(t, parts[0].InstallmentCount)
}

func TestSplitInstallments_Validation(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		count   int
		wantErr error
	}{
		{"zero installments", "10", 0, ErrInvalidInstallment},
		{"too many installments", "1000", MaxHorizonMonths + 1, ErrInvalidInstallment},
		{"negative value", "-1", 2, ErrNegativeValue},
		{"last installment would be negative", "0.05", 10, ErrInvalidInstallment},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := plainTx("x", TypeExpense, date(2025, time.May, 3), tt.value)
			parts, err := SplitInstallments(base, tt.count, "tx")
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, parts)
		})
	}
}

func TestSplitInstallments_SmallTotals(t *testing.T) {
	tests := []struct {
		name  string
		value string
		count int
	}{
		{"one cent per part", "0.05", 5},
		{"rounding down", "0.05", 3},
		{"zero", "0", 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := plainTx("x", TypeExpense, date(2025, time.May, 3), tt.value)
			parts, err := SplitInstallments(base, tt.count, "tx")
			require.NoError(t, err)
			require.Len(t, parts, tt.count)

			sum := decimal.Zero
			for _, p := range parts {
				require.NoError(t, p.Validate(), p.ID)
				sum = sum.Add(p.Value)
			}
			assertDecimal(t, tt.value, sum)
		})
	}
}
