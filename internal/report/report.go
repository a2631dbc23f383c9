// Package report builds the periodic billing report of a user and exports it to the configured sinks.
package report

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/rosacash/internal/billing"
)

const (
	upcomingCount  = 6
	outlookMonths  = 12
	moneyPrecision = 2
)

// Report is the exported document. Money is rendered as strings with two decimals.
type Report struct {
	RunID       string    `json:"run_id"`
	UserID      string    `json:"user_id"`
	GeneratedAt time.Time `json:"generated_at"`
	AsOf        string    `json:"as_of"`

	Summary  Summary       `json:"summary"`
	Upcoming []Bill        `json:"upcoming_bills"`
	Payables Payables      `json:"payables"`
	Outlook  []OutlookItem `json:"outlook"`
	Orphans  []Orphan      `json:"orphans"`
}

type Summary struct {
	TotalIncome  string `json:"total_income"`
	TotalExpense string `json:"total_expense"`
	TotalSavings string `json:"total_savings"`
	NetProfit    string `json:"net_profit"`
}

// Bill is one upcoming card invoice.
type Bill struct {
	ID       string `json:"id"`
	CardID   string `json:"card_id"`
	CardName string `json:"card_name"`
	Period   string `json:"period"`
	DueDate  string `json:"due_date"`
	Total    string `json:"total"`
	Count    int    `json:"count"`
	Paid     bool   `json:"paid"`
}

type Payables struct {
	Period      string        `json:"period"`
	Items       []PayableItem `json:"items"`
	Paid        string        `json:"paid"`
	Pending     string        `json:"pending"`
	Total       string        `json:"total"`
	PercentPaid string        `json:"percent_paid"`
}

type PayableItem struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Date        string `json:"date"`
	Value       string `json:"value"`
	Paid        bool   `json:"paid"`
	IsBill      bool   `json:"is_bill"`
}

type OutlookItem struct {
	Period  string `json:"period"`
	Balance string `json:"balance"`
}

// Orphan is a card transaction whose card no longer exists.
type Orphan struct {
	ID          string `json:"id"`
	CardID      string `json:"card_id"`
	Date        string `json:"date"`
	Description string `json:"description"`
	Value       string `json:"value"`
}

// BuildReport computes the report of snap as of now.
func BuildReport(snap billing.Snapshot, now civil.Date) (*Report, error) {
	sum, err := billing.SummaryThrough(snap, now)
	if err != nil {
		return nil, err
	}
	upcoming, err := billing.UpcomingBills(snap, now, upcomingCount)
	if err != nil {
		return nil, err
	}
	payables, err := billing.PayablesForMonth(snap, billing.PeriodOf(now))
	if err != nil {
		return nil, err
	}
	outlook, err := billing.MonthlyOutlook(snap, now, outlookMonths)
	if err != nil {
		return nil, err
	}
	bills, err := billing.ConsolidateBills(snap)
	if err != nil {
		return nil, err
	}

	r := &Report{
		AsOf: now.String(),
		Summary: Summary{
			TotalIncome:  money(sum.TotalIncome),
			TotalExpense: money(sum.TotalExpense),
			TotalSavings: money(sum.TotalSavings),
			NetProfit:    money(sum.NetProfit),
		},
		Upcoming: make([]Bill, 0, len(upcoming)),
		Payables: Payables{
			Period:      payables.Period.String(),
			Items:       make([]PayableItem, 0, len(payables.Items)),
			Paid:        money(payables.Paid),
			Pending:     money(payables.Pending),
			Total:       money(payables.Total),
			PercentPaid: money(payables.PercentPaid),
		},
		Outlook: make([]OutlookItem, 0, len(outlook)),
		Orphans: make([]Orphan, 0, len(bills.Orphans)),
	}

	for _, b := range upcoming {
		r.Upcoming = append(r.Upcoming, Bill{
			ID:       b.ID(),
			CardID:   b.CardID,
			CardName: b.CardName,
			Period:   b.Period.String(),
			DueDate:  b.DueDate.String(),
			Total:    money(b.Total),
			Count:    b.Count,
			Paid:     b.Paid,
		})
	}
	for _, it := range payables.Items {
		r.Payables.Items = append(r.Payables.Items, PayableItem{
			ID:          it.ID,
			Description: it.Description,
			Category:    it.Category,
			Date:        it.Date.String(),
			Value:       money(it.Value),
			Paid:        it.Paid,
			IsBill:      it.IsBill,
		})
	}
	for _, p := range outlook {
		r.Outlook = append(r.Outlook, OutlookItem{Period: p.Period.String(), Balance: money(p.Balance)})
	}
	for _, t := range bills.Orphans {
		r.Orphans = append(r.Orphans, Orphan{
			ID:          t.ID,
			CardID:      t.CardID,
			Date:        t.Date.String(),
			Description: t.Description,
			Value:       money(t.Value),
		})
	}

	return r, nil
}

func money(d decimal.Decimal) string {
	return d.StringFixed(moneyPrecision)
}
