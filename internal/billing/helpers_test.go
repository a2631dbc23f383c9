package billing

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) civil.Date {
	return civil.Date{Year: y, Month: m, Day: d}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "want %s, got %s %v", want, got, msgAndArgs)
}

func cardTx(id, cardID string, d civil.Date, value string, paid bool) Transaction {
	return Transaction{
		ID:          id,
		Date:        d,
		Description: "purchase " + id,
		Type:        TypeCreditCard,
		Value:       dec(value),
		Category:    "Compras",
		CardID:      cardID,
		IsPaid:      paid,
	}
}

func plainTx(id string, typ TransactionType, d civil.Date, value string) Transaction {
	return Transaction{
		ID:          id,
		Date:        d,
		Description: string(typ) + " " + id,
		Type:        typ,
		Value:       dec(value),
		Category:    "Geral",
	}
}
