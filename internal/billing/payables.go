package billing

import (
	"fmt"
	"sort"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// BillCategory is the category consolidated card invoices are reported under.
const BillCategory = "Cartão de Crédito"

var hundred = decimal.NewFromInt(100)

// PayableItem is an expense due in a month: either a booked expense/savings or a card invoice.
type PayableItem struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Date        civil.Date      `json:"date"`
	Value       decimal.Decimal `json:"value"`
	Paid        bool            `json:"paid"`
	IsBill      bool            `json:"is_bill"`
	CardID      string          `json:"card_id,omitempty"`
}

// Payables lists what is due in a month and how much of it is settled.
type Payables struct {
	Period      Period          `json:"period"`
	Items       []PayableItem   `json:"items"`
	Paid        decimal.Decimal `json:"paid"`
	Pending     decimal.Decimal `json:"pending"`
	Total       decimal.Decimal `json:"total"`
	PercentPaid decimal.Decimal `json:"percent_paid"`
}

// PayablesForMonth returns the month's expense and savings items plus one consolidated invoice per card,
// sorted by date. An invoice is paid when every purchase on it is.
func PayablesForMonth(s Snapshot, period Period) (Payables, error) {
	if err := period.Validate(); err != nil {
		return Payables{}, err
	}
	if err := s.Validate(); err != nil {
		return Payables{}, err
	}

	out := Payables{Period: period}
	for _, t := range s.Transactions {
		if t.IsVirtual || !period.Contains(t.Date) {
			continue
		}
		if t.Type != TypeExpense && t.Type != TypeSavings {
			continue
		}
		out.Items = append(out.Items, PayableItem{
			ID:          t.ID,
			Description: t.Description,
			Category:    t.Category,
			Date:        t.Date,
			Value:       t.Value,
			Paid:        t.IsPaid,
		})
	}

	for _, card := range s.Cards {
		status, err := IsBillFullyPaid(s.Transactions, card.ID, period, card.ClosingDay)
		if err != nil {
			return Payables{}, err
		}
		if !status.Found {
			continue
		}
		out.Items = append(out.Items, PayableItem{
			ID:          "bill-" + Bill{CardID: card.ID, Period: period}.ID(),
			Description: fmt.Sprintf("Fatura: %s", card.Name),
			Category:    BillCategory,
			Date:        card.DueDate(period),
			Value:       status.Total,
			Paid:        status.Paid,
			IsBill:      true,
			CardID:      card.ID,
		})
	}

	sort.SliceStable(out.Items, func(i, j int) bool {
		return out.Items[i].Date.Before(out.Items[j].Date)
	})

	out.Paid, out.Pending = decimal.Zero, decimal.Zero
	for _, it := range out.Items {
		if it.Paid {
			out.Paid = out.Paid.Add(it.Value)
		} else {
			out.Pending = out.Pending.Add(it.Value)
		}
	}
	out.Total = out.Paid.Add(out.Pending)
	out.PercentPaid = decimal.Zero
	if out.Total.IsPositive() {
		out.PercentPaid = out.Paid.Div(out.Total).Mul(hundred).Round(2)
	}

	return out, nil
}
