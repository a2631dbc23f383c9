package billing

import (
	"sort"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Summary holds the dashboard totals.
type Summary struct {
	TotalIncome  decimal.Decimal `json:"total_income"`
	TotalExpense decimal.Decimal `json:"total_expense"`
	TotalSavings decimal.Decimal `json:"total_savings"`
	NetProfit    decimal.Decimal `json:"net_profit"`
}

// SummaryThrough computes the dashboard totals over transactions dated on or before day.
// Income includes savings withdrawals and expenses include paid card purchases. TotalSavings is the
// net saved amount over the whole ledger, future entries included.
func SummaryThrough(s Snapshot, day civil.Date) (Summary, error) {
	if err := ValidateDate("day", day); err != nil {
		return Summary{}, err
	}
	if err := s.Validate(); err != nil {
		return Summary{}, err
	}

	income, expense, savings := decimal.Zero, decimal.Zero, decimal.Zero
	allSavings := decimal.Zero
	for _, t := range s.Transactions {
		if t.IsVirtual {
			continue
		}
		switch t.Type {
		case TypeSavings:
			allSavings = allSavings.Add(t.Value)
		case TypeSavingsWithdrawal:
			allSavings = allSavings.Sub(t.Value)
		}
		if t.Date.After(day) {
			continue
		}
		switch t.Type {
		case TypeIncome, TypeSavingsWithdrawal:
			income = income.Add(t.Value)
		case TypeExpense:
			expense = expense.Add(t.Value)
		case TypeCreditCard:
			if t.IsPaid {
				expense = expense.Add(t.Value)
			}
		case TypeSavings:
			savings = savings.Add(t.Value)
		}
	}

	return Summary{
		TotalIncome:  income,
		TotalExpense: expense,
		TotalSavings: allSavings,
		NetProfit:    income.Sub(expense.Add(savings)),
	}, nil
}

// CategoryTotal is the amount spent in one category.
type CategoryTotal struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
}

// MonthExpenses is the spending of one month including the recurring rules active in it.
type MonthExpenses struct {
	Period        Period          `json:"period"`
	TotalExpenses decimal.Decimal `json:"total_expenses"`
	TotalIncome   decimal.Decimal `json:"total_income"`
	Breakdown     []CategoryTotal `json:"breakdown"`
}

// ExpenseItem is a single expense candidate, booked or recurring.
type ExpenseItem struct {
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Value       decimal.Decimal `json:"value"`
	Recurring   bool            `json:"recurring"`
}

func isSpending(t TransactionType) bool {
	return t == TypeExpense || t == TypeCreditCard
}

// monthItems returns the booked transactions dated in p and the rules active in p.
func monthItems(s Snapshot, p Period) ([]Transaction, []RecurringRule) {
	var txs []Transaction
	for _, t := range s.Transactions {
		if !t.IsVirtual && p.Contains(t.Date) {
			txs = append(txs, t)
		}
	}
	var rules []RecurringRule
	for _, r := range s.Rules {
		if _, active := r.OccursIn(p); active {
			rules = append(rules, r)
		}
	}
	return txs, rules
}

// ExpensesByMonth totals the expense and credit_card spending of period, booked and recurring,
// with a per-category breakdown sorted by amount.
func ExpensesByMonth(s Snapshot, period Period) (MonthExpenses, error) {
	if err := period.Validate(); err != nil {
		return MonthExpenses{}, err
	}
	if err := s.Validate(); err != nil {
		return MonthExpenses{}, err
	}

	txs, rules := monthItems(s, period)
	out := MonthExpenses{Period: period, TotalExpenses: decimal.Zero, TotalIncome: decimal.Zero}
	byCategory := make(map[string]decimal.Decimal)

	for _, t := range txs {
		switch {
		case isSpending(t.Type):
			out.TotalExpenses = out.TotalExpenses.Add(t.Value)
			byCategory[t.Category] = byCategory[t.Category].Add(t.Value)
		case t.Type.Polarity() > 0:
			out.TotalIncome = out.TotalIncome.Add(t.Value)
		}
	}
	for _, r := range rules {
		if !isSpending(r.Type) {
			continue
		}
		out.TotalExpenses = out.TotalExpenses.Add(r.Value)
		byCategory[r.Category] = byCategory[r.Category].Add(r.Value)
	}

	out.Breakdown = sortedCategories(byCategory)
	return out, nil
}

// BiggestExpense returns the largest single expense of period among booked spending and active recurring
// spending rules. The first of equal values wins; found is false when the month has no spending.
func BiggestExpense(s Snapshot, period Period) (ExpenseItem, bool, error) {
	if err := period.Validate(); err != nil {
		return ExpenseItem{}, false, err
	}
	if err := s.Validate(); err != nil {
		return ExpenseItem{}, false, err
	}

	txs, rules := monthItems(s, period)
	var items []ExpenseItem
	for _, t := range txs {
		if isSpending(t.Type) {
			items = append(items, ExpenseItem{Description: t.Description, Category: t.Category, Value: t.Value})
		}
	}
	for _, r := range rules {
		if isSpending(r.Type) {
			items = append(items, ExpenseItem{Description: r.Description, Category: r.Category, Value: r.Value, Recurring: true})
		}
	}
	if len(items) == 0 {
		return ExpenseItem{}, false, nil
	}

	biggest := items[0]
	for _, it := range items[1:] {
		if it.Value.GreaterThan(biggest.Value) {
			biggest = it
		}
	}
	return biggest, true, nil
}

// FinancialSummary is the monthly health overview.
type FinancialSummary struct {
	Period         Period          `json:"period"`
	TotalIncome    decimal.Decimal `json:"total_income"`
	TotalExpenses  decimal.Decimal `json:"total_expenses"`
	TotalSavings   decimal.Decimal `json:"total_savings"`
	Balance        decimal.Decimal `json:"balance"`
	TopCategories  []CategoryTotal `json:"top_categories"`
	RecurringTotal decimal.Decimal `json:"recurring_total"`
	RecurringCount int             `json:"recurring_count"`
}

const topCategories = 5

// SummarizeMonth builds the financial summary of period from booked transactions, plus the total of
// every recurring rule active in it.
func SummarizeMonth(s Snapshot, period Period) (FinancialSummary, error) {
	if err := period.Validate(); err != nil {
		return FinancialSummary{}, err
	}
	if err := s.Validate(); err != nil {
		return FinancialSummary{}, err
	}

	txs, rules := monthItems(s, period)
	out := FinancialSummary{
		Period:         period,
		TotalIncome:    decimal.Zero,
		TotalExpenses:  decimal.Zero,
		TotalSavings:   decimal.Zero,
		RecurringTotal: decimal.Zero,
	}
	byCategory := make(map[string]decimal.Decimal)

	for _, t := range txs {
		switch {
		case isSpending(t.Type):
			out.TotalExpenses = out.TotalExpenses.Add(t.Value)
			byCategory[t.Category] = byCategory[t.Category].Add(t.Value)
		case t.Type == TypeSavings:
			out.TotalSavings = out.TotalSavings.Add(t.Value)
		default:
			out.TotalIncome = out.TotalIncome.Add(t.Value)
		}
	}
	out.Balance = out.TotalIncome.Sub(out.TotalExpenses).Sub(out.TotalSavings)

	out.TopCategories = sortedCategories(byCategory)
	if len(out.TopCategories) > topCategories {
		out.TopCategories = out.TopCategories[:topCategories]
	}

	for _, r := range rules {
		out.RecurringTotal = out.RecurringTotal.Add(r.Value)
	}
	out.RecurringCount = len(rules)

	return out, nil
}

func sortedCategories(m map[string]decimal.Decimal) []CategoryTotal {
	out := make([]CategoryTotal, 0, len(m))
	for cat, total := range m {
		out = append(out, CategoryTotal{Category: cat, Total: total})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Total.Equal(out[j].Total) {
			return out[i].Total.GreaterThan(out[j].Total)
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// FindCard returns the first card whose name contains query, ignoring case.
func FindCard(cards []CreditCard, query string) (CreditCard, bool) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return CreditCard{}, false
	}
	for _, c := range cards {
		if strings.Contains(strings.ToLower(c.Name), q) {
			return c, true
		}
	}
	return CreditCard{}, false
}
