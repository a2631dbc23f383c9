package billing

import (
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// TransactionType classifies how a transaction moves money.
type TransactionType string

const (
	TypeIncome            TransactionType = "income"
	TypeExpense           TransactionType = "expense"
	TypeCreditCard        TransactionType = "credit_card"
	TypeSavings           TransactionType = "savings"
	TypeSavingsWithdrawal TransactionType = "savings_withdrawal"
)

// ParseTransactionType converts a stored or user-supplied type string.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", NewValidationError("type", s, "unknown transaction type", ErrInvalidType)
	}
	return t, nil
}

// Valid reports whether t is one of the known types.
func (t TransactionType) Valid() bool {
	switch t {
	case TypeIncome, TypeExpense, TypeCreditCard, TypeSavings, TypeSavingsWithdrawal:
		return true
	}
	return false
}

// Polarity returns +1 for money coming into the account and -1 for money leaving it.
func (t TransactionType) Polarity() int {
	if t == TypeIncome || t == TypeSavingsWithdrawal {
		return 1
	}
	return -1
}

// Signed applies the polarity of t to a non-negative value.
func (t TransactionType) Signed(v decimal.Decimal) decimal.Decimal {
	if t.Polarity() > 0 {
		return v
	}
	return v.Neg()
}

// Transaction is a dated ledger entry.
type Transaction struct {
	ID          string          `json:"id"`
	Date        civil.Date      `json:"date"`
	Description string          `json:"description"`
	Type        TransactionType `json:"type"`
	Value       decimal.Decimal `json:"value"`
	Category    string          `json:"category"`
	Subcategory string          `json:"subcategory,omitempty"`

	// CardID is set iff Type is credit_card.
	CardID string `json:"card_id,omitempty"`

	InstallmentIndex int `json:"current_installment,omitempty"`
	InstallmentCount int `json:"installments,omitempty"`

	IsRecurring bool `json:"is_recurring"`
	IsPaid      bool `json:"is_paid"`

	// IsVirtual marks projected entries that are never persisted.
	IsVirtual bool `json:"is_virtual"`
}

// Validate checks the transaction fields and the card invariant.
func (t Transaction) Validate() error {
	if err := ValidateDate("date", t.Date); err != nil {
		return err
	}
	if !t.Type.Valid() {
		return NewValidationError("type", string(t.Type), "unknown transaction type", ErrInvalidType)
	}
	if err := ValidateValue("value", t.Value); err != nil {
		return err
	}
	if (t.Type == TypeCreditCard) != (t.CardID != "") {
		return NewValidationError("card_id", t.CardID, fmt.Sprintf("invalid for type %s", t.Type), ErrCardInvariant)
	}
	if t.InstallmentCount < 0 || t.InstallmentIndex < 0 || t.InstallmentIndex > t.InstallmentCount ||
		(t.InstallmentCount > 0 && t.InstallmentIndex == 0) {
		return NewValidationError("current_installment", t.InstallmentIndex,
			fmt.Sprintf("must be within 1..%d", t.InstallmentCount), ErrInvalidInstallment)
	}
	return nil
}

// RecurringRule is a charge or income expected every month on DayOfMonth from StartDate onward.
type RecurringRule struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	DayOfMonth  int             `json:"day_of_month"`
	Value       decimal.Decimal `json:"value"`
	Type        TransactionType `json:"type"`
	Category    string          `json:"category"`
	Subcategory string          `json:"subcategory,omitempty"`
	StartDate   civil.Date      `json:"start_date"`
}

// Validate checks the rule fields.
func (r RecurringRule) Validate() error {
	if err := ValidateDay("day_of_month", r.DayOfMonth); err != nil {
		return err
	}
	if err := ValidateDate("start_date", r.StartDate); err != nil {
		return err
	}
	if !r.Type.Valid() {
		return NewValidationError("type", string(r.Type), "unknown transaction type", ErrInvalidType)
	}
	return ValidateValue("value", r.Value)
}

// OccursIn returns the date the rule materializes on in p and whether the rule is active by then.
func (r RecurringRule) OccursIn(p Period) (civil.Date, bool) {
	d := p.Day(r.DayOfMonth)
	return d, !d.Before(r.StartDate)
}

// CreditCard defines the billing cycle of every credit_card transaction referencing it.
type CreditCard struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	ClosingDay int             `json:"closing_day"`
	DueDay     int             `json:"due_day"`
	Limit      decimal.Decimal `json:"limit"`
	Color      string          `json:"color,omitempty"`
}

// Validate checks the card configuration.
func (c CreditCard) Validate() error {
	if err := ValidateDay("closing_day", c.ClosingDay); err != nil {
		return err
	}
	if err := ValidateDay("due_day", c.DueDay); err != nil {
		return err
	}
	return ValidateValue("limit", c.Limit)
}

// DueDate returns the invoice due date of the bill for period p.
func (c CreditCard) DueDate(p Period) civil.Date {
	return p.Day(c.DueDay)
}

// Snapshot is one user's ledger at a point in time. The engine only reads it.
type Snapshot struct {
	Transactions []Transaction   `json:"transactions"`
	Rules        []RecurringRule `json:"recurring"`
	Cards        []CreditCard    `json:"cards"`
}

// Empty reports whether the snapshot has no data at all.
func (s Snapshot) Empty() bool {
	return len(s.Transactions) == 0 && len(s.Rules) == 0 && len(s.Cards) == 0
}

// Validate checks every entity in the snapshot and reports the first failure.
func (s Snapshot) Validate() error {
	for i, t := range s.Transactions {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("transactions[%d] %s: %w", i, t.ID, err)
		}
	}
	for i, r := range s.Rules {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("recurring[%d] %s: %w", i, r.ID, err)
		}
	}
	for i, c := range s.Cards {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("cards[%d] %s: %w", i, c.ID, err)
		}
	}
	return nil
}

// Card looks a card up by ID.
func (s Snapshot) Card(id string) (CreditCard, bool) {
	for _, c := range s.Cards {
		if c.ID == id {
			return c, true
		}
	}
	return CreditCard{}, false
}

func (s Snapshot) cardIndex() map[string]CreditCard {
	idx := make(map[string]CreditCard, len(s.Cards))
	for _, c := range s.Cards {
		idx[c.ID] = c
	}
	return idx
}

// Mode selects the balance convention.
type Mode string

const (
	// ModeCash applies every transaction on its own date; card purchases count once marked paid.
	ModeCash Mode = "cash"

	// ModeInvoice applies card purchases as invoice totals on their due dates, ignoring paid flags.
	ModeInvoice Mode = "invoice"
)

// ParseMode converts a mode string; empty means cash.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeCash:
		return ModeCash, nil
	case ModeInvoice:
		return ModeInvoice, nil
	}
	return "", NewValidationError("mode", s, "must be cash or invoice", ErrInvalidMode)
}
