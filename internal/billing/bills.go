package billing

import (
	"fmt"
	"sort"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// BillingPeriod is the invoice of one card for one month.
type BillingPeriod struct {
	CardID       string          `json:"card_id"`
	Period       Period          `json:"period"`
	Total        decimal.Decimal `json:"total"`
	Transactions []Transaction   `json:"transactions"`
}

// BillStatus is the tri-state answer to "is this bill paid". Found is false when
// the period has no purchases; Paid is only meaningful when Found is true.
type BillStatus struct {
	Found bool            `json:"found"`
	Paid  bool            `json:"paid"`
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}

// AggregateBill collects the credit_card transactions of cardID assigned to period.
func AggregateBill(txs []Transaction, cardID string, period Period, closingDay int) (BillingPeriod, error) {
	if err := ValidateDay("closing_day", closingDay); err != nil {
		return BillingPeriod{}, err
	}
	if err := period.Validate(); err != nil {
		return BillingPeriod{}, err
	}

	bill := BillingPeriod{CardID: cardID, Period: period, Total: decimal.Zero}
	for _, t := range txs {
		if t.Type != TypeCreditCard || t.CardID != cardID {
			continue
		}
		if err := t.Validate(); err != nil {
			return BillingPeriod{}, fmt.Errorf("transaction %s: %w", t.ID, err)
		}
		p, err := AssignBillingPeriod(t.Date, closingDay)
		if err != nil {
			return BillingPeriod{}, fmt.Errorf("transaction %s: %w", t.ID, err)
		}
		if p != period {
			continue
		}
		bill.Total = bill.Total.Add(t.Value)
		bill.Transactions = append(bill.Transactions, t)
	}

	return bill, nil
}

// IsBillFullyPaid reports whether the bill exists and every member is marked paid.
func IsBillFullyPaid(txs []Transaction, cardID string, period Period, closingDay int) (BillStatus, error) {
	bill, err := AggregateBill(txs, cardID, period, closingDay)
	if err != nil {
		return BillStatus{}, err
	}
	if len(bill.Transactions) == 0 {
		return BillStatus{Found: false, Total: decimal.Zero}, nil
	}

	paid := true
	for _, t := range bill.Transactions {
		if !t.IsPaid {
			paid = false
			break
		}
	}

	return BillStatus{
		Found: true,
		Paid:  paid,
		Total: bill.Total,
		Count: len(bill.Transactions),
	}, nil
}

// Bills is every non-empty invoice in a snapshot plus the card purchases that could not be attributed.
type Bills struct {
	Periods []BillingPeriod `json:"periods"`
	Orphans []Transaction   `json:"orphans,omitempty"`
}

// ConsolidateBills groups all card purchases of the snapshot into invoices, sorted by card then period.
// Purchases referencing a card missing from the snapshot are reported as orphans.
func ConsolidateBills(s Snapshot) (Bills, error) {
	if err := s.Validate(); err != nil {
		return Bills{}, err
	}

	type key struct {
		card   string
		period Period
	}
	cards := s.cardIndex()
	groups := make(map[key]*BillingPeriod)
	var out Bills

	for _, t := range s.Transactions {
		if t.Type != TypeCreditCard {
			continue
		}
		card, ok := cards[t.CardID]
		if !ok {
			out.Orphans = append(out.Orphans, t)
			continue
		}
		p, err := AssignBillingPeriod(t.Date, card.ClosingDay)
		if err != nil {
			return Bills{}, fmt.Errorf("transaction %s: %w", t.ID, err)
		}
		k := key{card: card.ID, period: p}
		bp, ok := groups[k]
		if !ok {
			bp = &BillingPeriod{CardID: card.ID, Period: p, Total: decimal.Zero}
			groups[k] = bp
		}
		bp.Total = bp.Total.Add(t.Value)
		bp.Transactions = append(bp.Transactions, t)
	}

	for _, bp := range groups {
		out.Periods = append(out.Periods, *bp)
	}
	sort.Slice(out.Periods, func(i, j int) bool {
		a, b := out.Periods[i], out.Periods[j]
		if a.CardID != b.CardID {
			return a.CardID < b.CardID
		}
		return a.Period.Before(b.Period)
	})

	return out, nil
}

// Bill is an invoice as presented to a user: which card, which month, when it is due and whether it is settled.
type Bill struct {
	CardID   string          `json:"card_id"`
	CardName string          `json:"card_name"`
	Period   Period          `json:"period"`
	DueDate  civil.Date      `json:"due_date"`
	Total    decimal.Decimal `json:"total"`
	Count    int             `json:"count"`
	Paid     bool            `json:"paid"`
}

// ID returns a stable identifier for the bill.
func (b Bill) ID() string {
	return fmt.Sprintf("%s-%s", b.CardID, b.Period)
}

// UpcomingBills returns, for every card, count consecutive bills starting at the month of now.
// Empty bills are included with a zero total so the caller sees the full schedule.
func UpcomingBills(s Snapshot, now civil.Date, count int) ([]Bill, error) {
	if err := ValidateDate("now", now); err != nil {
		return nil, err
	}
	if err := ValidateHorizon("count", count); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	start := PeriodOf(now)
	bills := make([]Bill, 0, len(s.Cards)*count)
	for _, card := range s.Cards {
		for i := 0; i < count; i++ {
			p := start.Add(i)
			status, err := IsBillFullyPaid(s.Transactions, card.ID, p, card.ClosingDay)
			if err != nil {
				return nil, err
			}
			bills = append(bills, Bill{
				CardID:   card.ID,
				CardName: card.Name,
				Period:   p,
				DueDate:  card.DueDate(p),
				Total:    status.Total,
				Count:    status.Count,
				Paid:     status.Found && status.Paid,
			})
		}
	}

	return bills, nil
}

// BillTransactionIDs returns the transactions whose paid flag changes when the bill of
// cardID for period is toggled.
func BillTransactionIDs(s Snapshot, cardID string, period Period) ([]string, error) {
	card, ok := s.Card(cardID)
	if !ok {
		return nil, fmt.Errorf("BillTransactionIDs: %s: %w", cardID, ErrCardNotFound)
	}

	bill, err := AggregateBill(s.Transactions, card.ID, period, card.ClosingDay)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(bill.Transactions))
	for _, t := range bill.Transactions {
		ids = append(ids, t.ID)
	}
	return ids, nil
}
