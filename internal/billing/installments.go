package billing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// SplitInstallments splits a purchase into count monthly installments.
//
// Each installment is the total divided by count rounded to cents; the last one absorbs the remainder so
// the parts always sum to the total. A count that would leave the last one negative is rejected. Installment i is dated i-1 months after the purchase and identified
// as idPrefix-i.
func SplitInstallments(base Transaction, count int, idPrefix string) ([]Transaction, error) {
	if count < 1 || count > MaxHorizonMonths {
		return nil, NewValidationError("installments", count,
			fmt.Sprintf("must be between 1 and %d", MaxHorizonMonths), ErrInvalidInstallment)
	}
	if err := ValidateDate("date", base.Date); err != nil {
		return nil, err
	}
	if err := ValidateValue("value", base.Value); err != nil {
		return nil, err
	}

	total := base.Value.Round(2)
	if count == 1 {
		t := base
		t.ID = idPrefix
		t.Value = total
		return []Transaction{t}, nil
	}

	n := decimal.NewFromInt(int64(count))
	part := total.Div(n).Round(2)
	last := total.Sub(part.Mul(decimal.NewFromInt(int64(count - 1)))).Round(2)
	if last.IsNegative() {
		return nil, NewValidationError("installments", count,
			fmt.Sprintf("too many installments for %s", total.StringFixed(2)), ErrInvalidInstallment)
	}

	out := make([]Transaction, 0, count)
	for i := 1; i <= count; i++ {
		t := base
		t.ID = fmt.Sprintf("%s-%d", idPrefix, i)
		t.Description = fmt.Sprintf("%s (%d/%d)", base.Description, i, count)
		t.Date = addMonths(base.Date, i-1)
		t.Value = part
		if i == count {
			t.Value = last
		}
		t.InstallmentIndex = i
		t.InstallmentCount = count
		t.IsRecurring = false
		t.IsPaid = false
		out = append(out, t)
	}

	return out, nil
}
