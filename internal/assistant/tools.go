package assistant

import (
	"encoding/json"
	"errors"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/rosacash/internal/billing"
)

// Tool names the model may pick.
const (
	ToolCardBill       = "getCardBillByMonth"
	ToolProjected      = "getProjectedBalance"
	ToolExpenses       = "getTotalExpensesByMonth"
	ToolBiggestExpense = "getBiggestExpenseOfMonth"
	ToolSummary        = "getFinancialSummary"
	ToolNone           = "none"
)

// ErrUnknownTool is returned when the model picks a tool that does not exist.
var ErrUnknownTool = errors.New("unknown tool")

// ToolCall is the model's choice of tool.
type ToolCall struct {
	Tool string   `json:"tool"`
	Args ToolArgs `json:"args"`
}

// ToolArgs is the union of every tool's arguments.
type ToolArgs struct {
	CardName   string `json:"cardName,omitempty"`
	Month      int    `json:"month,omitempty"`
	Year       int    `json:"year,omitempty"`
	TargetDate string `json:"targetDate,omitempty"`
}

// Tools answers financial questions over one user's snapshot as of a fixed day.
type Tools struct {
	snap billing.Snapshot
	now  civil.Date
}

// NewTools binds the tools to snap with now as today.
func NewTools(snap billing.Snapshot, now civil.Date) *Tools {
	return &Tools{snap: snap, now: now}
}

// Run dispatches call to the matching tool.
func (t *Tools) Run(call ToolCall) (interface{}, error) {
	a := call.Args
	switch call.Tool {
	case ToolCardBill:
		return t.CardBillByMonth(a.CardName, a.Month, a.Year)
	case ToolProjected:
		return t.ProjectedBalance(a.TargetDate)
	case ToolExpenses:
		return t.TotalExpensesByMonth(a.Month, a.Year)
	case ToolBiggestExpense:
		return t.BiggestExpenseOfMonth(a.Month, a.Year)
	case ToolSummary:
		return t.FinancialSummary(a.Month, a.Year)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownTool, call.Tool)
}

// CardBillResult is the invoice total of one card for one month.
type CardBillResult struct {
	CardName string          `json:"cardName"`
	Month    int             `json:"month"`
	Year     int             `json:"year"`
	Total    decimal.Decimal `json:"total"`
	Found    bool            `json:"found"`
}

// CardBillByMonth totals the bill of the first card whose name contains cardName.
// An unknown card is reported with Found false.
func (t *Tools) CardBillByMonth(cardName string, month, year int) (CardBillResult, error) {
	period, err := billing.NewPeriod(month, year)
	if err != nil {
		return CardBillResult{}, err
	}

	out := CardBillResult{CardName: cardName, Month: month, Year: year, Total: decimal.Zero}
	card, ok := billing.FindCard(t.snap.Cards, cardName)
	if !ok {
		return out, nil
	}

	bill, err := billing.AggregateBill(t.snap.Transactions, card.ID, period, card.ClosingDay)
	if err != nil {
		return CardBillResult{}, err
	}

	out.CardName = card.Name
	out.Total = bill.Total.Round(2)
	out.Found = true
	return out, nil
}

// ProjectedBalanceResult is the expected balance on a future day.
type ProjectedBalanceResult struct {
	TargetDate       string          `json:"targetDate"`
	ProjectedBalance decimal.Decimal `json:"projectedBalance"`
	CurrentBalance   decimal.Decimal `json:"currentBalance"`
	Explanation      string          `json:"explanation"`
}

// ProjectedBalance rolls today's cash balance forward to targetDate.
func (t *Tools) ProjectedBalance(targetDate string) (ProjectedBalanceResult, error) {
	target, err := billing.ParseDate("targetDate", targetDate)
	if err != nil {
		return ProjectedBalanceResult{}, err
	}

	current, err := billing.CashBalanceThrough(t.snap, t.now)
	if err != nil {
		return ProjectedBalanceResult{}, err
	}

	proj, err := billing.ProjectBalance(current, t.snap.Rules, t.snap.Transactions, t.now, target)
	if err != nil {
		return ProjectedBalanceResult{}, err
	}

	return ProjectedBalanceResult{
		TargetDate:       target.String(),
		ProjectedBalance: proj.Balance.Round(2),
		CurrentBalance:   current.Round(2),
		Explanation: fmt.Sprintf("Saldo atual: R$ %s. Projeção de lançamentos até %s: R$ %s.",
			current.StringFixed(2), target, proj.Delta.StringFixed(2)),
	}, nil
}

// ExpensesResult is the spending of one month by category.
type ExpensesResult struct {
	Month         int                     `json:"month"`
	Year          int                     `json:"year"`
	TotalExpenses decimal.Decimal         `json:"totalExpenses"`
	TotalIncome   decimal.Decimal         `json:"totalIncome"`
	Breakdown     []billing.CategoryTotal `json:"breakdown"`
}

// TotalExpensesByMonth reports booked and recurring spending of a month.
func (t *Tools) TotalExpensesByMonth(month, year int) (ExpensesResult, error) {
	period, err := billing.NewPeriod(month, year)
	if err != nil {
		return ExpensesResult{}, err
	}

	exp, err := billing.ExpensesByMonth(t.snap, period)
	if err != nil {
		return ExpensesResult{}, err
	}

	return ExpensesResult{
		Month:         month,
		Year:          year,
		TotalExpenses: exp.TotalExpenses.Round(2),
		TotalIncome:   exp.TotalIncome.Round(2),
		Breakdown:     roundCategories(exp.Breakdown),
	}, nil
}

// BiggestExpenseResult is the largest expense of a month.
type BiggestExpenseResult struct {
	Month       int             `json:"month"`
	Year        int             `json:"year"`
	Description string          `json:"description"`
	Value       decimal.Decimal `json:"value"`
	Category    string          `json:"category"`
	Found       bool            `json:"found"`
}

// BiggestExpenseOfMonth finds the single largest expense of a month.
func (t *Tools) BiggestExpenseOfMonth(month, year int) (BiggestExpenseResult, error) {
	period, err := billing.NewPeriod(month, year)
	if err != nil {
		return BiggestExpenseResult{}, err
	}

	item, found, err := billing.BiggestExpense(t.snap, period)
	if err != nil {
		return BiggestExpenseResult{}, err
	}

	out := BiggestExpenseResult{Month: month, Year: year, Value: decimal.Zero, Found: found}
	if found {
		out.Description = item.Description
		out.Value = item.Value.Round(2)
		out.Category = item.Category
	}
	return out, nil
}

// SummaryResult is the financial health overview of a month.
type SummaryResult struct {
	Month          int                     `json:"month"`
	Year           int                     `json:"year"`
	TotalIncome    decimal.Decimal         `json:"totalIncome"`
	TotalExpenses  decimal.Decimal         `json:"totalExpenses"`
	TotalSavings   decimal.Decimal         `json:"totalSavings"`
	Balance        decimal.Decimal         `json:"balance"`
	TopCategories  []billing.CategoryTotal `json:"topCategories"`
	RecurringTotal decimal.Decimal         `json:"recurringTotal"`
	RecurringCount int                     `json:"recurringCount"`
}

// FinancialSummary summarizes a month.
func (t *Tools) FinancialSummary(month, year int) (SummaryResult, error) {
	period, err := billing.NewPeriod(month, year)
	if err != nil {
		return SummaryResult{}, err
	}

	sum, err := billing.SummarizeMonth(t.snap, period)
	if err != nil {
		return SummaryResult{}, err
	}

	return SummaryResult{
		Month:          month,
		Year:           year,
		TotalIncome:    sum.TotalIncome.Round(2),
		TotalExpenses:  sum.TotalExpenses.Round(2),
		TotalSavings:   sum.TotalSavings.Round(2),
		Balance:        sum.Balance.Round(2),
		TopCategories:  roundCategories(sum.TopCategories),
		RecurringTotal: sum.RecurringTotal.Round(2),
		RecurringCount: sum.RecurringCount,
	}, nil
}

func roundCategories(in []billing.CategoryTotal) []billing.CategoryTotal {
	out := make([]billing.CategoryTotal, len(in))
	for i, c := range in {
		out[i] = billing.CategoryTotal{Category: c.Category, Total: c.Total.Round(2)}
	}
	return out
}

func toolJSON(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}
	return string(data)
}
