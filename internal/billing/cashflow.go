package billing

import (
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// launchTolerance is how close a booked value must be to a rule's value to count as the same occurrence.
var launchTolerance = decimal.New(1, -2)

// CashflowSource tells where a cashflow item came from.
type CashflowSource string

const (
	CashflowTransaction CashflowSource = "transaction"
	CashflowRecurring   CashflowSource = "recurring"
	CashflowBill        CashflowSource = "bill"
)

// CashflowItem is one movement on a given day.
type CashflowItem struct {
	Source      CashflowSource  `json:"source"`
	RefID       string          `json:"ref_id"`
	Description string          `json:"description"`
	Type        TransactionType `json:"type"`
	Category    string          `json:"category,omitempty"`
	Value       decimal.Decimal `json:"value"`
}

// DayCashflow is everything expected to move on one day. Expense includes savings.
type DayCashflow struct {
	Date    civil.Date      `json:"date"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Profit  decimal.Decimal `json:"profit"`
	Items   []CashflowItem  `json:"items"`
}

// CashflowOn returns the cashflow of day as seen from now.
//
// Booked non card transactions always count. From now on, recurring rules due that day count unless
// an equivalent transaction was already launched, and card invoices count on their due date.
func CashflowOn(s Snapshot, day, now civil.Date) (DayCashflow, error) {
	if err := ValidateDate("day", day); err != nil {
		return DayCashflow{}, err
	}
	if err := ValidateDate("now", now); err != nil {
		return DayCashflow{}, err
	}
	if err := s.Validate(); err != nil {
		return DayCashflow{}, err
	}
	return cashflowOn(s, day, now)
}

func cashflowOn(s Snapshot, day, now civil.Date) (DayCashflow, error) {
	cf := DayCashflow{Date: day, Income: decimal.Zero, Expense: decimal.Zero}
	add := func(item CashflowItem) {
		if item.Type.Polarity() > 0 {
			cf.Income = cf.Income.Add(item.Value)
		} else {
			cf.Expense = cf.Expense.Add(item.Value)
		}
		cf.Items = append(cf.Items, item)
	}

	for _, t := range s.Transactions {
		if t.IsVirtual || t.Date != day || t.Type == TypeCreditCard {
			continue
		}
		add(CashflowItem{
			Source:      CashflowTransaction,
			RefID:       t.ID,
			Description: t.Description,
			Type:        t.Type,
			Category:    t.Category,
			Value:       t.Value,
		})
	}

	if !day.Before(now) {
		// A day can also hold the overflow of the previous month's day 29-31.
		cur := PeriodOf(day)
		periods := []Period{cur.Add(-1), cur}

		for _, r := range s.Rules {
			if !occursOn(r, periods, day) || AlreadyLaunched(r, s.Transactions, day) {
				continue
			}
			add(CashflowItem{
				Source:      CashflowRecurring,
				RefID:       r.ID,
				Description: r.Description,
				Type:        r.Type,
				Category:    r.Category,
				Value:       r.Value,
			})
		}

		for _, card := range s.Cards {
			for _, p := range periods {
				if card.DueDate(p) != day {
					continue
				}
				bill, err := AggregateBill(s.Transactions, card.ID, p, card.ClosingDay)
				if err != nil {
					return DayCashflow{}, err
				}
				if bill.Total.IsZero() {
					continue
				}
				add(CashflowItem{
					Source:      CashflowBill,
					RefID:       Bill{CardID: card.ID, Period: p}.ID(),
					Description: fmt.Sprintf("Fatura: %s", card.Name),
					Type:        TypeCreditCard,
					Category:    BillCategory,
					Value:       bill.Total,
				})
			}
		}
	}

	cf.Profit = cf.Income.Sub(cf.Expense)
	return cf, nil
}

func occursOn(r RecurringRule, periods []Period, day civil.Date) bool {
	for _, p := range periods {
		if occ, active := r.OccursIn(p); active && occ == day {
			return true
		}
	}
	return false
}

// AlreadyLaunched reports whether a transaction booked on day already accounts for the rule:
// its description contains the rule's and its value is within a cent.
func AlreadyLaunched(r RecurringRule, txs []Transaction, day civil.Date) bool {
	for _, t := range txs {
		if t.Date != day || !strings.Contains(t.Description, r.Description) {
			continue
		}
		if t.Value.Sub(r.Value).Abs().LessThan(launchTolerance) {
			return true
		}
	}
	return false
}

// DayBalance is a day's cashflow with the running balance after it.
type DayBalance struct {
	DayCashflow
	Balance decimal.Decimal `json:"balance"`
}

// DailyProjection is the day by day balance of one month.
type DailyProjection struct {
	Period       Period          `json:"period"`
	StartBalance decimal.Decimal `json:"start_balance"`
	Days         []DayBalance    `json:"days"`
}

// ProjectMonthDaily walks every day of period from a start balance derived as of its first day.
//
// The start balance counts activity before the month and card invoices already due by now.
// If the month lies in the future, the balance is taken at now and the days up to the month are rolled forward.
func ProjectMonthDaily(s Snapshot, period Period, now civil.Date) (DailyProjection, error) {
	if err := period.Validate(); err != nil {
		return DailyProjection{}, err
	}
	if err := ValidateDate("now", now); err != nil {
		return DailyProjection{}, err
	}
	if err := s.Validate(); err != nil {
		return DailyProjection{}, err
	}

	if PeriodOf(now).Add(MaxHorizonMonths).Before(period) {
		return DailyProjection{}, NewValidationError("period", period.String(),
			fmt.Sprintf("must be within %d months of %s", MaxHorizonMonths, now), ErrInvalidHorizon)
	}

	first := period.FirstDay()
	cutoff := first
	if now.Before(first) {
		cutoff = now
	}
	start, err := invoiceBalance(s, cutoff, now)
	if err != nil {
		return DailyProjection{}, err
	}
	balance := start.Amount
	for d := cutoff; d.Before(first); d = d.AddDays(1) {
		cf, err := cashflowOn(s, d, now)
		if err != nil {
			return DailyProjection{}, err
		}
		balance = balance.Add(cf.Profit)
	}

	out := DailyProjection{Period: period, StartBalance: balance}
	for d := first; !d.After(period.LastDay()); d = d.AddDays(1) {
		cf, err := cashflowOn(s, d, now)
		if err != nil {
			return DailyProjection{}, err
		}
		balance = balance.Add(cf.Profit)
		out.Days = append(out.Days, DayBalance{DayCashflow: cf, Balance: balance})
	}

	return out, nil
}

// OutlookPoint is the projected balance at the end of a month.
type OutlookPoint struct {
	Period  Period          `json:"period"`
	Balance decimal.Decimal `json:"balance"`
}

// MonthlyOutlook projects the end of month balance for months calendar months starting with the month of now.
// It starts from the invoice mode balance at now so paid flags do not move the curve.
func MonthlyOutlook(s Snapshot, now civil.Date, months int) ([]OutlookPoint, error) {
	if err := ValidateDate("now", now); err != nil {
		return nil, err
	}
	if err := ValidateHorizon("months", months); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	start, err := invoiceBalance(s, now, now)
	if err != nil {
		return nil, err
	}
	balance := start.Amount

	points := make([]OutlookPoint, 0, months)
	first := PeriodOf(now)
	for i := 0; i < months; i++ {
		p := first.Add(i)
		for d := p.FirstDay(); !d.After(p.LastDay()); d = d.AddDays(1) {
			if d.Before(now) {
				continue
			}
			cf, err := cashflowOn(s, d, now)
			if err != nil {
				return nil, err
			}
			balance = balance.Add(cf.Profit)
		}
		points = append(points, OutlookPoint{Period: p, Balance: balance.Round(2)})
	}

	return points, nil
}
