package billing

import (
	"fmt"
	"sort"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// ProjectionSource tells where a projected entry came from.
type ProjectionSource string

const (
	SourceRecurring ProjectionSource = "recurring"
	SourceBooked    ProjectionSource = "booked"
)

// ProjectionEntry is one signed movement inside a projection window.
type ProjectionEntry struct {
	Source      ProjectionSource `json:"source"`
	RefID       string           `json:"ref_id"`
	Description string           `json:"description"`
	Date        civil.Date       `json:"date"`
	Type        TransactionType  `json:"type"`
	Category    string           `json:"category,omitempty"`
	Amount      decimal.Decimal  `json:"amount"`
}

// Projection is the result of rolling a balance forward over (From, To].
type Projection struct {
	From         civil.Date        `json:"from"`
	To           civil.Date        `json:"to"`
	StartBalance decimal.Decimal   `json:"start_balance"`
	Delta        decimal.Decimal   `json:"delta"`
	Balance      decimal.Decimal   `json:"projected_balance"`
	Breakdown    []ProjectionEntry `json:"breakdown"`
}

// ProjectBalance rolls current forward over the window (from, to]. The day from is assumed
// to be reflected in current already.
//
// Each rule materializes once per calendar month in the window, on its day-of-month clamped to the
// month length, when that date is after from, not after to and not before the rule's start date.
// Booked non-virtual transactions in the window count with their polarity; credit_card ones only
// when already paid.
func ProjectBalance(current decimal.Decimal, rules []RecurringRule, booked []Transaction, from, to civil.Date) (Projection, error) {
	if err := ValidateDate("from", from); err != nil {
		return Projection{}, err
	}
	if err := ValidateDate("to", to); err != nil {
		return Projection{}, err
	}
	if to.Before(from) {
		return Projection{}, NewValidationError("to", to, fmt.Sprintf("must not be before %s", from), ErrInvalidRange)
	}
	for i, r := range rules {
		if err := r.Validate(); err != nil {
			return Projection{}, fmt.Errorf("recurring[%d] %s: %w", i, r.ID, err)
		}
	}
	for i, t := range booked {
		if err := t.Validate(); err != nil {
			return Projection{}, fmt.Errorf("transactions[%d] %s: %w", i, t.ID, err)
		}
	}

	proj := Projection{From: from, To: to, StartBalance: current, Delta: decimal.Zero}
	last := PeriodOf(to)

	// An occurrence in the month before from can overflow past it.
	for _, r := range rules {
		for p := PeriodOf(from).Add(-1); !last.Before(p); p = p.Next() {
			day, active := r.OccursIn(p)
			if !active || !day.After(from) || day.After(to) {
				continue
			}
			proj.Breakdown = append(proj.Breakdown, ProjectionEntry{
				Source:      SourceRecurring,
				RefID:       r.ID,
				Description: r.Description,
				Date:        day,
				Type:        r.Type,
				Category:    r.Category,
				Amount:      r.Type.Signed(r.Value),
			})
		}
	}

	for _, t := range booked {
		if t.IsVirtual || !t.Date.After(from) || t.Date.After(to) {
			continue
		}
		if t.Type == TypeCreditCard && !t.IsPaid {
			continue
		}
		proj.Breakdown = append(proj.Breakdown, ProjectionEntry{
			Source:      SourceBooked,
			RefID:       t.ID,
			Description: t.Description,
			Date:        t.Date,
			Type:        t.Type,
			Category:    t.Category,
			Amount:      t.Type.Signed(t.Value),
		})
	}

	sort.SliceStable(proj.Breakdown, func(i, j int) bool {
		return proj.Breakdown[i].Date.Before(proj.Breakdown[j].Date)
	})
	for _, e := range proj.Breakdown {
		proj.Delta = proj.Delta.Add(e.Amount)
	}
	proj.Balance = current.Add(proj.Delta)

	return proj, nil
}

// Materialize turns the recurring entries of a projection into virtual transactions.
// Rules carry no card, so credit_card rules materialize as expenses.
func (p Projection) Materialize() []Transaction {
	var out []Transaction
	for _, e := range p.Breakdown {
		if e.Source != SourceRecurring {
			continue
		}
		typ := e.Type
		if typ == TypeCreditCard {
			typ = TypeExpense
		}
		out = append(out, Transaction{
			ID:          fmt.Sprintf("%s-%s", e.RefID, e.Date),
			Date:        e.Date,
			Description: e.Description,
			Type:        typ,
			Category:    e.Category,
			Value:       e.Amount.Abs(),
			IsRecurring: true,
			IsVirtual:   true,
		})
	}
	return out
}
