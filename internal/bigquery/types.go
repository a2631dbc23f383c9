package bigquery

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/rosacash/internal/billing"
)

// Report run statuses stored in report_runs.status.
const (
	RunStatusRunning = "RUNNING"
	RunStatusSuccess = "SUCCESS"
	RunStatusFailed  = "FAILED"
)

// TransactionRepository provides an interface for transaction-related database operations.
type TransactionRepository interface {
	// ListTransactions returns every stored transaction of a user ordered by date.
	ListTransactions(ctx context.Context, userID string) ([]*TransactionRow, error)

	// FindTransaction returns a transaction by ID, or nil if it does not exist.
	FindTransaction(ctx context.Context, userID, transactionID string) (*TransactionRow, error)

	// InsertTransactions inserts a batch of TransactionRow into the database.
	InsertTransactions(ctx context.Context, rows []*TransactionRow) error

	// SetPaid sets is_paid on the given transactions and returns the number of rows changed.
	SetPaid(ctx context.Context, userID string, transactionIDs []string, paid bool) (int64, error)

	// DeleteTransaction deletes a single transaction.
	DeleteTransaction(ctx context.Context, userID, transactionID string) (int64, error)

	// DeleteTransactionSeries deletes baseID and every installment derived from it (baseID-N).
	DeleteTransactionSeries(ctx context.Context, userID, baseID string) (int64, error)

	// DeleteTransactionsBetween deletes the transactions dated in [start, end].
	DeleteTransactionsBetween(ctx context.Context, userID string, start, end civil.Date) (int64, error)
}

// RecurringRepository provides an interface for recurring rule operations.
type RecurringRepository interface {
	ListRecurring(ctx context.Context, userID string) ([]*RecurringRow, error)
	InsertRecurring(ctx context.Context, row *RecurringRow) error
	UpdateRecurring(ctx context.Context, row *RecurringRow) (int64, error)
	DeleteRecurring(ctx context.Context, userID, ruleID string) (int64, error)
}

// CardRepository provides an interface for credit card operations.
type CardRepository interface {
	ListCards(ctx context.Context, userID string) ([]*CardRow, error)
	InsertCard(ctx context.Context, row *CardRow) error
	UpdateCard(ctx context.Context, row *CardRow) (int64, error)
	DeleteCard(ctx context.Context, userID, cardID string) (int64, error)
}

// LedgerRepository is everything the ledger service persists.
type LedgerRepository interface {
	TransactionRepository
	RecurringRepository
	CardRepository
}

// ReportRunRepository tracks report exports.
type ReportRunRepository interface {
	// StartReportRun inserts a new run with status=RUNNING and returns the run_id.
	StartReportRun(ctx context.Context, userID string) (string, error)

	// MarkReportRunFailed sets status=FAILED, finished_ts and error_message for a run.
	MarkReportRunFailed(ctx context.Context, runID string, runErr error)

	// MarkReportRunSucceeded sets status=SUCCESS, finished_ts and the exported object URI.
	MarkReportRunSucceeded(ctx context.Context, runID, objectURI string) error
}

// TransactionRow represents a transaction record in BigQuery.
type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id" json:"transaction_id"`
	UserID        string `bigquery:"user_id" json:"user_id"`

	Date        civil.Date          `bigquery:"date" json:"date"`
	Description string              `bigquery:"description" json:"description"`
	Type        string              `bigquery:"type" json:"type"`
	Value       *big.Rat            `bigquery:"value" json:"-"`
	Category    string              `bigquery:"category" json:"category"`
	Subcategory bigquery.NullString `bigquery:"subcategory" json:"subcategory,omitempty"`

	CardID             bigquery.NullString `bigquery:"card_id" json:"card_id,omitempty"`
	Installments       bigquery.NullInt64  `bigquery:"installments" json:"installments,omitempty"`
	CurrentInstallment bigquery.NullInt64  `bigquery:"current_installment" json:"current_installment,omitempty"`

	IsRecurring bool `bigquery:"is_recurring" json:"is_recurring"`
	IsVirtual   bool `bigquery:"is_virtual" json:"is_virtual"`
	IsPaid      bool `bigquery:"is_paid" json:"is_paid"`

	CreatedTS time.Time              `bigquery:"created_ts" json:"created_ts"`
	UpdatedTS bigquery.NullTimestamp `bigquery:"updated_ts" json:"updated_ts,omitempty"`
}

// MarshalJSON renders the NUMERIC value as a string with two decimals.
func (t TransactionRow) MarshalJSON() ([]byte, error) {
	type Alias TransactionRow
	return json.Marshal(&struct {
		Value string `json:"value"`
		*Alias
	}{
		Value: RatToDecimal(t.Value).StringFixed(2),
		Alias: (*Alias)(&t),
	})
}

// RecurringRow represents a recurring rule record in BigQuery.
type RecurringRow struct {
	RuleID      string              `bigquery:"rule_id"`
	UserID      string              `bigquery:"user_id"`
	Description string              `bigquery:"description"`
	DayOfMonth  int64               `bigquery:"day_of_month"`
	Value       *big.Rat            `bigquery:"value"`
	Type        string              `bigquery:"type"`
	Category    string              `bigquery:"category"`
	Subcategory bigquery.NullString `bigquery:"subcategory"`
	StartDate   civil.Date          `bigquery:"start_date"`
	CreatedTS   time.Time           `bigquery:"created_ts"`
}

// CardRow represents a credit card record in BigQuery.
type CardRow struct {
	CardID     string              `bigquery:"card_id"`
	UserID     string              `bigquery:"user_id"`
	Name       string              `bigquery:"name"`
	ClosingDay int64               `bigquery:"closing_day"`
	DueDay     int64               `bigquery:"due_day"`
	Limit      *big.Rat            `bigquery:"card_limit"`
	Color      bigquery.NullString `bigquery:"color"`
	CreatedTS  time.Time           `bigquery:"created_ts"`
}

// ReportRunRow represents a report run record in BigQuery.
type ReportRunRow struct {
	RunID  string `bigquery:"run_id"`
	UserID string `bigquery:"user_id"`
	Status string `bigquery:"status"`

	StartedTS  time.Time              `bigquery:"started_ts"`
	FinishedTS bigquery.NullTimestamp `bigquery:"finished_ts"`

	ErrorMessage bigquery.NullString `bigquery:"error_message"`
	ObjectURI    bigquery.NullString `bigquery:"object_uri"`
}

// ToBilling converts the row into an engine transaction.
func (r *TransactionRow) ToBilling() (billing.Transaction, error) {
	typ, err := billing.ParseTransactionType(r.Type)
	if err != nil {
		return billing.Transaction{}, fmt.Errorf("transaction %s: %w", r.TransactionID, err)
	}
	t := billing.Transaction{
		ID:               r.TransactionID,
		Date:             r.Date,
		Description:      r.Description,
		Type:             typ,
		Value:            RatToDecimal(r.Value),
		Category:         r.Category,
		Subcategory:      r.Subcategory.StringVal,
		CardID:           r.CardID.StringVal,
		InstallmentIndex: int(r.CurrentInstallment.Int64),
		InstallmentCount: int(r.Installments.Int64),
		IsRecurring:      r.IsRecurring,
		IsPaid:           r.IsPaid,
		IsVirtual:        r.IsVirtual,
	}
	if err := t.Validate(); err != nil {
		return billing.Transaction{}, fmt.Errorf("transaction %s: %w", r.TransactionID, err)
	}
	return t, nil
}

// TransactionRowFromBilling builds the row stored for t.
func TransactionRowFromBilling(userID string, t billing.Transaction, created time.Time) *TransactionRow {
	row := &TransactionRow{
		TransactionID: t.ID,
		UserID:        userID,
		Date:          t.Date,
		Description:   t.Description,
		Type:          string(t.Type),
		Value:         DecimalToRat(t.Value),
		Category:      t.Category,
		Subcategory:   nullString(t.Subcategory),
		CardID:        nullString(t.CardID),
		IsRecurring:   t.IsRecurring,
		IsVirtual:     t.IsVirtual,
		IsPaid:        t.IsPaid,
		CreatedTS:     created,
	}
	if t.InstallmentCount > 0 {
		row.Installments = bigquery.NullInt64{Int64: int64(t.InstallmentCount), Valid: true}
		row.CurrentInstallment = bigquery.NullInt64{Int64: int64(t.InstallmentIndex), Valid: true}
	}
	return row
}

// ToBilling converts the row into an engine rule.
func (r *RecurringRow) ToBilling() (billing.RecurringRule, error) {
	typ, err := billing.ParseTransactionType(r.Type)
	if err != nil {
		return billing.RecurringRule{}, fmt.Errorf("recurring %s: %w", r.RuleID, err)
	}
	rule := billing.RecurringRule{
		ID:          r.RuleID,
		Description: r.Description,
		DayOfMonth:  int(r.DayOfMonth),
		Value:       RatToDecimal(r.Value),
		Type:        typ,
		Category:    r.Category,
		Subcategory: r.Subcategory.StringVal,
		StartDate:   r.StartDate,
	}
	if err := rule.Validate(); err != nil {
		return billing.RecurringRule{}, fmt.Errorf("recurring %s: %w", r.RuleID, err)
	}
	return rule, nil
}

// RecurringRowFromBilling builds the row stored for rule.
func RecurringRowFromBilling(userID string, rule billing.RecurringRule, created time.Time) *RecurringRow {
	return &RecurringRow{
		RuleID:      rule.ID,
		UserID:      userID,
		Description: rule.Description,
		DayOfMonth:  int64(rule.DayOfMonth),
		Value:       DecimalToRat(rule.Value),
		Type:        string(rule.Type),
		Category:    rule.Category,
		Subcategory: nullString(rule.Subcategory),
		StartDate:   rule.StartDate,
		CreatedTS:   created,
	}
}

// ToBilling converts the row into an engine card.
func (r *CardRow) ToBilling() (billing.CreditCard, error) {
	card := billing.CreditCard{
		ID:         r.CardID,
		Name:       r.Name,
		ClosingDay: int(r.ClosingDay),
		DueDay:     int(r.DueDay),
		Limit:      RatToDecimal(r.Limit),
		Color:      r.Color.StringVal,
	}
	if err := card.Validate(); err != nil {
		return billing.CreditCard{}, fmt.Errorf("card %s: %w", r.CardID, err)
	}
	return card, nil
}

// CardRowFromBilling builds the row stored for card.
func CardRowFromBilling(userID string, card billing.CreditCard, created time.Time) *CardRow {
	return &CardRow{
		CardID:     card.ID,
		UserID:     userID,
		Name:       card.Name,
		ClosingDay: int64(card.ClosingDay),
		DueDay:     int64(card.DueDay),
		Limit:      DecimalToRat(card.Limit),
		Color:      nullString(card.Color),
		CreatedTS:  created,
	}
}

// RatToDecimal converts a NUMERIC column value; NULL becomes zero.
func RatToDecimal(r *big.Rat) decimal.Decimal {
	if r == nil {
		return decimal.Zero
	}
	// NUMERIC has a scale of 9.
	d, err := decimal.NewFromString(r.FloatString(9))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// DecimalToRat converts a decimal for a NUMERIC column.
func DecimalToRat(d decimal.Decimal) *big.Rat {
	return d.Rat()
}

func nullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}
