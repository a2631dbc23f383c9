package billing

import (
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Balance is the account balance from all activity strictly before Cutoff.
type Balance struct {
	Amount decimal.Decimal `json:"amount"`
	Mode   Mode            `json:"mode"`
	Cutoff civil.Date      `json:"cutoff"`

	// Orphans are card purchases whose card is missing from the snapshot.
	// Invoice mode leaves them out; cash mode still applies paid ones.
	Orphans []Transaction `json:"orphans,omitempty"`
}

// ComputeBalanceAsOf returns the balance of all activity strictly before cutoff.
//
// In cash mode every transaction counts on its own date and card purchases count only once marked paid.
// In invoice mode card purchases never count individually: each (card, month) invoice whose due date
// is before cutoff is subtracted once in full, regardless of paid flags.
// Virtual transactions are projections and never count.
func ComputeBalanceAsOf(s Snapshot, cutoff civil.Date, mode Mode) (Balance, error) {
	if err := ValidateDate("cutoff", cutoff); err != nil {
		return Balance{}, err
	}
	if err := s.Validate(); err != nil {
		return Balance{}, err
	}

	switch mode {
	case ModeCash:
		return cashBalance(s, cutoff), nil
	case ModeInvoice:
		return invoiceBalance(s, cutoff, cutoff)
	}
	return Balance{}, NewValidationError("mode", string(mode), "must be cash or invoice", ErrInvalidMode)
}

// BalanceThrough returns the balance including everything dated on day.
func BalanceThrough(s Snapshot, day civil.Date, mode Mode) (Balance, error) {
	if err := ValidateDate("day", day); err != nil {
		return Balance{}, err
	}
	return ComputeBalanceAsOf(s, day.AddDays(1), mode)
}

func cashBalance(s Snapshot, cutoff civil.Date) Balance {
	cards := s.cardIndex()
	b := Balance{Amount: decimal.Zero, Mode: ModeCash, Cutoff: cutoff}
	for _, t := range s.Transactions {
		if t.IsVirtual || !t.Date.Before(cutoff) {
			continue
		}
		if t.Type == TypeCreditCard {
			if _, ok := cards[t.CardID]; !ok {
				b.Orphans = append(b.Orphans, t)
			}
			if !t.IsPaid {
				continue
			}
		}
		b.Amount = b.Amount.Add(t.Type.Signed(t.Value))
	}
	return b
}

// invoiceBalance counts purchases dated before cutoff; their invoices are subtracted when due before dueCutoff.
func invoiceBalance(s Snapshot, cutoff, dueCutoff civil.Date) (Balance, error) {
	type key struct {
		card   string
		period Period
	}
	cards := s.cardIndex()
	invoices := make(map[key]decimal.Decimal)
	b := Balance{Amount: decimal.Zero, Mode: ModeInvoice, Cutoff: cutoff}

	for _, t := range s.Transactions {
		if t.IsVirtual || !t.Date.Before(cutoff) {
			continue
		}
		if t.Type != TypeCreditCard {
			b.Amount = b.Amount.Add(t.Type.Signed(t.Value))
			continue
		}

		card, ok := cards[t.CardID]
		if !ok {
			b.Orphans = append(b.Orphans, t)
			continue
		}
		p, err := AssignBillingPeriod(t.Date, card.ClosingDay)
		if err != nil {
			return Balance{}, fmt.Errorf("transaction %s: %w", t.ID, err)
		}
		if !card.DueDate(p).Before(dueCutoff) {
			continue
		}
		k := key{card: card.ID, period: p}
		invoices[k] = invoices[k].Add(t.Value)
	}

	for _, total := range invoices {
		b.Amount = b.Amount.Sub(total)
	}
	return b, nil
}

// CashBalanceThrough is the as-recorded balance including day, used as today's snapshot.
func CashBalanceThrough(s Snapshot, day civil.Date) (decimal.Decimal, error) {
	b, err := BalanceThrough(s, day, ModeCash)
	if err != nil {
		return decimal.Zero, err
	}
	return b.Amount, nil
}
