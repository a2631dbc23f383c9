package bigquery

import (
	"encoding/json"
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/rosacash/internal/billing"
)

func TestTransactionRow_ToBilling(t *testing.T) {
	row := &TransactionRow{
		TransactionID:      "tx-1",
		UserID:             "u1",
		Date:               civil.Date{Year: 2025, Month: time.January, Day: 6},
		Description:        "Notebook (1/3)",
		Type:               "credit_card",
		Value:              big.NewRat(3333, 100),
		Category:           "Eletrônicos",
		CardID:             bigquery.NullString{StringVal: "nubank", Valid: true},
		Installments:       bigquery.NullInt64{Int64: 3, Valid: true},
		CurrentInstallment: bigquery.NullInt64{Int64: 1, Valid: true},
		IsPaid:             true,
	}

	tx, err := row.ToBilling()
	if err != nil {
		t.Fatalf("ToBilling() error = %v", err)
	}
	if tx.Type != billing.TypeCreditCard || tx.CardID != "nubank" {
		t.Errorf("ToBilling() = %+v", tx)
	}
	if !tx.Value.Equal(decimal.RequireFromString("33.33")) {
		t.Errorf("Value = %s, want 33.33", tx.Value)
	}
	if tx.InstallmentIndex != 1 || tx.InstallmentCount != 3 {
		t.Errorf("installments = %d/%d", tx.InstallmentIndex, tx.InstallmentCount)
	}

	back := TransactionRowFromBilling("u1", tx, time.Unix(0, 0))
	if back.Value.Cmp(row.Value) != 0 || back.CardID != row.CardID || back.Installments != row.Installments {
		t.Errorf("TransactionRowFromBilling() = %+v", back)
	}
}

func TestTransactionRow_ToBillingRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		row     TransactionRow
		wantErr error
	}{
		{
			name:    "unknown type",
			row:     TransactionRow{TransactionID: "a", Date: civil.Date{Year: 2025, Month: 1, Day: 1}, Type: "transfer"},
			wantErr: billing.ErrInvalidType,
		},
		{
			name:    "card purchase without card",
			row:     TransactionRow{TransactionID: "b", Date: civil.Date{Year: 2025, Month: 1, Day: 1}, Type: "credit_card", Value: big.NewRat(1, 1)},
			wantErr: billing.ErrCardInvariant,
		},
		{
			name:    "negative value",
			row:     TransactionRow{TransactionID: "c", Date: civil.Date{Year: 2025, Month: 1, Day: 1}, Type: "expense", Value: big.NewRat(-1, 1)},
			wantErr: billing.ErrNegativeValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.row.ToBilling()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ToBilling() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCardRow_ToBilling(t *testing.T) {
	row := &CardRow{CardID: "c1", Name: "Nubank", ClosingDay: 5, DueDay: 15}
	card, err := row.ToBilling()
	if err != nil {
		t.Fatalf("ToBilling() error = %v", err)
	}
	if !card.Limit.IsZero() {
		t.Errorf("NULL limit should read as zero, got %s", card.Limit)
	}

	row.ClosingDay = 0
	if _, err := row.ToBilling(); !errors.Is(err, billing.ErrInvalidDay) {
		t.Errorf("ToBilling() error = %v, want ErrInvalidDay", err)
	}
}

func TestRecurringRow_RoundTrip(t *testing.T) {
	rule := billing.RecurringRule{
		ID:          "r1",
		Description: "Aluguel",
		DayOfMonth:  10,
		Value:       decimal.RequireFromString("1200.50"),
		Type:        billing.TypeExpense,
		Category:    "Moradia",
		Subcategory: "Fixo",
		StartDate:   civil.Date{Year: 2024, Month: time.January, Day: 1},
	}

	got, err := RecurringRowFromBilling("u1", rule, time.Now()).ToBilling()
	if err != nil {
		t.Fatalf("ToBilling() error = %v", err)
	}
	if !got.Value.Equal(rule.Value) || got.Subcategory != "Fixo" || got.DayOfMonth != 10 {
		t.Errorf("round trip = %+v", got)
	}
}

func TestTransactionRow_MarshalJSON(t *testing.T) {
	row := TransactionRow{TransactionID: "tx", Value: big.NewRat(101, 2)}
	data, err := json.Marshal(row)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !strings.Contains(string(data), `"value":"50.50"`) {
		t.Errorf("Marshal() = %s", data)
	}
}
