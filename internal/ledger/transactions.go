package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	bq "github.com/dvloznov/rosacash/internal/bigquery"
	"github.com/dvloznov/rosacash/internal/billing"
	"github.com/dvloznov/rosacash/internal/logger"
)

// DeleteMode selects how much of a transaction series DeleteTransaction removes.
type DeleteMode string

const (
	// DeleteSingle removes only the given transaction.
	DeleteSingle DeleteMode = "single"

	// DeleteAll removes the whole installment series and the recurring rule created with it.
	DeleteAll DeleteMode = "all"
)

// ParseDeleteMode converts a mode string; empty means single.
func ParseDeleteMode(s string) (DeleteMode, error) {
	switch DeleteMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", DeleteSingle:
		return DeleteSingle, nil
	case DeleteAll:
		return DeleteAll, nil
	}
	return "", billing.NewValidationError("mode", s, "must be single or all", ErrInvalidDeleteMode)
}

// NewTransaction is the input of AddTransaction.
type NewTransaction struct {
	Date         civil.Date              `json:"date"`
	Description  string                  `json:"description"`
	Type         billing.TransactionType `json:"type"`
	Value        decimal.Decimal         `json:"value"`
	Category     string                  `json:"category"`
	Subcategory  string                  `json:"subcategory,omitempty"`
	CardID       string                  `json:"card_id,omitempty"`
	Installments int                     `json:"installments,omitempty"`
	IsRecurring  bool                    `json:"is_recurring"`
}

// AddResult lists what AddTransaction created.
type AddResult struct {
	TransactionIDs []string `json:"transaction_ids"`
	RuleID         string   `json:"rule_id,omitempty"`
}

func newID() string {
	return uuid.NewString()
}

// AddTransaction records a new transaction for userID.
//
// A recurring transaction also creates a recurring rule sharing its ID, due on the transaction's day of month.
// A credit card purchase with more than one installment is stored as one transaction per month.
func (s *Service) AddTransaction(ctx context.Context, userID string, in NewTransaction) (AddResult, error) {
	const op = "AddTransaction"
	if strings.TrimSpace(userID) == "" {
		return AddResult{}, wrap(op, ErrMissingUser, "")
	}

	base := billing.Transaction{
		Date:        in.Date,
		Description: strings.TrimSpace(in.Description),
		Type:        in.Type,
		Value:       in.Value.Round(2),
		Category:    s.categories.Normalize(in.Category),
		Subcategory: strings.TrimSpace(in.Subcategory),
		CardID:      strings.TrimSpace(in.CardID),
		IsRecurring: in.IsRecurring,
	}
	if base.Description == "" {
		return AddResult{}, wrap(op, billing.NewValidationError("description", in.Description, "must not be empty", ErrEmptyField), "")
	}
	if err := base.Validate(); err != nil {
		return AddResult{}, wrap(op, err, "")
	}
	if in.Installments < 0 {
		return AddResult{}, wrap(op, billing.NewValidationError("installments", in.Installments, "must not be negative", billing.ErrInvalidInstallment), "")
	}

	id := s.newID()
	created := s.now()
	log := logger.FromContext(ctx).With().Str("user_id", userID).Str("transaction_id", id).Logger()

	var txs []billing.Transaction
	if base.Type == billing.TypeCreditCard && in.Installments > 1 {
		parts, err := billing.SplitInstallments(base, in.Installments, id)
		if err != nil {
			return AddResult{}, wrap(op, err, "")
		}
		txs = parts
	} else {
		base.ID = id
		txs = []billing.Transaction{base}
	}

	var result AddResult
	rows := make([]*bq.TransactionRow, 0, len(txs))
	for _, t := range txs {
		rows = append(rows, bq.TransactionRowFromBilling(userID, t, created))
		result.TransactionIDs = append(result.TransactionIDs, t.ID)
	}
	if err := s.repo.InsertTransactions(ctx, rows); err != nil {
		return AddResult{}, wrap(op, err, "insert transactions")
	}

	// A rule is only stored once its transactions are.
	if in.IsRecurring {
		rule := billing.RecurringRule{
			ID:          id,
			Description: base.Description,
			DayOfMonth:  base.Date.Day,
			Value:       base.Value,
			Type:        base.Type,
			Category:    base.Category,
			Subcategory: base.Subcategory,
			StartDate:   base.Date,
		}
		if rule.Subcategory == "" {
			rule.Subcategory = "Fixo"
		}
		if err := s.repo.InsertRecurring(ctx, bq.RecurringRowFromBilling(userID, rule, created)); err != nil {
			if _, delErr := s.repo.DeleteTransactionSeries(ctx, userID, id); delErr != nil {
				log.Error().Err(delErr).Strs("transaction_ids", result.TransactionIDs).Msg("Failed to remove transactions of a rule that was not saved")
			}
			return AddResult{}, wrap(op, err, "insert recurring rule")
		}
		result.RuleID = id
	}

	log.Info().
		Str("type", string(base.Type)).
		Int("rows", len(rows)).
		Bool("recurring", in.IsRecurring).
		Msg("Added transaction")

	return result, nil
}

// ListTransactions returns the valid transactions of userID.
func (s *Service) ListTransactions(ctx context.Context, userID string) ([]billing.Transaction, error) {
	snap, err := s.Snapshot(ctx, userID)
	if err != nil {
		return nil, wrap("ListTransactions", err, "")
	}
	return snap.Transactions, nil
}

// ToggleBillPaid sets the paid flag of every purchase on the card's bill for period and returns
// how many rows changed.
func (s *Service) ToggleBillPaid(ctx context.Context, userID, cardID string, period billing.Period, paid bool) (int64, error) {
	const op = "ToggleBillPaid"

	snap, err := s.Snapshot(ctx, userID)
	if err != nil {
		return 0, wrap(op, err, "")
	}

	ids, err := billing.BillTransactionIDs(snap, cardID, period)
	if err != nil {
		if errors.Is(err, billing.ErrCardNotFound) {
			err = fmt.Errorf("%w: card %s", ErrNotFound, cardID)
		}
		return 0, wrap(op, err, "")
	}
	if len(ids) == 0 {
		return 0, nil
	}

	n, err := s.repo.SetPaid(ctx, userID, ids, paid)
	if err != nil {
		return 0, wrap(op, err, fmt.Sprintf("card %s period %s", cardID, period))
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("user_id", userID).
		Str("card_id", cardID).
		Str("period", period.String()).
		Bool("paid", paid).
		Int64("rows", n).
		Msg("Toggled bill paid")

	return n, nil
}

// TogglePaid flips the paid flag of a single transaction and returns the new state.
func (s *Service) TogglePaid(ctx context.Context, userID, transactionID string) (bool, error) {
	const op = "TogglePaid"

	row, err := s.repo.FindTransaction(ctx, userID, transactionID)
	if err != nil {
		return false, wrap(op, err, transactionID)
	}
	if row == nil {
		return false, wrap(op, ErrNotFound, transactionID)
	}

	paid := !row.IsPaid
	if _, err := s.repo.SetPaid(ctx, userID, []string{transactionID}, paid); err != nil {
		return false, wrap(op, err, transactionID)
	}
	return paid, nil
}

// DeleteTransaction removes a transaction. In DeleteAll mode the whole installment series derived from
// the same base ID goes with it, as does the recurring rule created alongside.
func (s *Service) DeleteTransaction(ctx context.Context, userID, transactionID string, mode DeleteMode) (int64, error) {
	const op = "DeleteTransaction"

	row, err := s.repo.FindTransaction(ctx, userID, transactionID)
	if err != nil {
		return 0, wrap(op, err, transactionID)
	}
	if row == nil {
		return 0, wrap(op, ErrNotFound, transactionID)
	}

	switch mode {
	case DeleteSingle:
		n, err := s.repo.DeleteTransaction(ctx, userID, transactionID)
		if err != nil {
			return 0, wrap(op, err, transactionID)
		}
		return n, nil

	case DeleteAll:
		base := seriesBaseID(transactionID, row.CurrentInstallment.Int64)
		n, err := s.repo.DeleteTransactionSeries(ctx, userID, base)
		if err != nil {
			return 0, wrap(op, err, base)
		}
		if _, err := s.repo.DeleteRecurring(ctx, userID, base); err != nil {
			return n, wrap(op, err, "delete recurring "+base)
		}

		log := logger.FromContext(ctx)
		log.Info().
			Str("user_id", userID).
			Str("base_id", base).
			Int64("rows", n).
			Msg("Deleted transaction series")
		return n, nil
	}

	return 0, wrap(op, billing.NewValidationError("mode", string(mode), "must be single or all", ErrInvalidDeleteMode), "")
}

// seriesBaseID strips the "-N" installment suffix from id.
func seriesBaseID(id string, installment int64) string {
	if installment <= 0 {
		return id
	}
	suffix := "-" + strconv.FormatInt(installment, 10)
	return strings.TrimSuffix(id, suffix)
}

// DeleteByPeriod removes every transaction dated in the calendar month of period.
func (s *Service) DeleteByPeriod(ctx context.Context, userID string, period billing.Period) (int64, error) {
	const op = "DeleteByPeriod"
	if err := period.Validate(); err != nil {
		return 0, wrap(op, err, "")
	}

	n, err := s.repo.DeleteTransactionsBetween(ctx, userID, period.FirstDay(), period.LastDay())
	if err != nil {
		return 0, wrap(op, err, period.String())
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("user_id", userID).
		Str("period", period.String()).
		Int64("rows", n).
		Msg("Deleted transactions for period")

	return n, nil
}
