package ledger

import (
	"context"
	"strings"

	bq "github.com/dvloznov/rosacash/internal/bigquery"
	"github.com/dvloznov/rosacash/internal/billing"
)

// AddCard stores a new credit card. An empty ID gets a generated one.
func (s *Service) AddCard(ctx context.Context, userID string, card billing.CreditCard) (billing.CreditCard, error) {
	const op = "AddCard"
	if strings.TrimSpace(userID) == "" {
		return billing.CreditCard{}, wrap(op, ErrMissingUser, "")
	}

	card.Name = strings.TrimSpace(card.Name)
	if card.Name == "" {
		return billing.CreditCard{}, wrap(op, billing.NewValidationError("name", card.Name, "must not be empty", ErrEmptyField), "")
	}
	card.Limit = card.Limit.Round(2)
	if err := card.Validate(); err != nil {
		return billing.CreditCard{}, wrap(op, err, "")
	}
	if card.ID == "" {
		card.ID = s.newID()
	}

	if err := s.repo.InsertCard(ctx, bq.CardRowFromBilling(userID, card, s.now())); err != nil {
		return billing.CreditCard{}, wrap(op, err, card.ID)
	}
	return card, nil
}

// UpdateCard overwrites an existing card.
func (s *Service) UpdateCard(ctx context.Context, userID string, card billing.CreditCard) error {
	const op = "UpdateCard"

	card.Limit = card.Limit.Round(2)
	if err := card.Validate(); err != nil {
		return wrap(op, err, card.ID)
	}

	n, err := s.repo.UpdateCard(ctx, bq.CardRowFromBilling(userID, card, s.now()))
	if err != nil {
		return wrap(op, err, card.ID)
	}
	if n == 0 {
		return wrap(op, ErrNotFound, card.ID)
	}
	return nil
}

// DeleteCard removes a card. Its purchases stay and become orphans.
func (s *Service) DeleteCard(ctx context.Context, userID, cardID string) error {
	const op = "DeleteCard"

	n, err := s.repo.DeleteCard(ctx, userID, cardID)
	if err != nil {
		return wrap(op, err, cardID)
	}
	if n == 0 {
		return wrap(op, ErrNotFound, cardID)
	}
	return nil
}

// AddRule stores a new recurring rule. An empty ID gets a generated one.
func (s *Service) AddRule(ctx context.Context, userID string, rule billing.RecurringRule) (billing.RecurringRule, error) {
	const op = "AddRule"
	if strings.TrimSpace(userID) == "" {
		return billing.RecurringRule{}, wrap(op, ErrMissingUser, "")
	}

	rule, err := s.prepareRule(rule)
	if err != nil {
		return billing.RecurringRule{}, wrap(op, err, "")
	}
	if rule.ID == "" {
		rule.ID = s.newID()
	}

	if err := s.repo.InsertRecurring(ctx, bq.RecurringRowFromBilling(userID, rule, s.now())); err != nil {
		return billing.RecurringRule{}, wrap(op, err, rule.ID)
	}
	return rule, nil
}

// UpdateRule overwrites an existing recurring rule.
func (s *Service) UpdateRule(ctx context.Context, userID string, rule billing.RecurringRule) error {
	const op = "UpdateRule"

	rule, err := s.prepareRule(rule)
	if err != nil {
		return wrap(op, err, rule.ID)
	}

	n, err := s.repo.UpdateRecurring(ctx, bq.RecurringRowFromBilling(userID, rule, s.now()))
	if err != nil {
		return wrap(op, err, rule.ID)
	}
	if n == 0 {
		return wrap(op, ErrNotFound, rule.ID)
	}
	return nil
}

// DeleteRule removes a recurring rule. Transactions already booked from it are kept.
func (s *Service) DeleteRule(ctx context.Context, userID, ruleID string) error {
	const op = "DeleteRule"

	n, err := s.repo.DeleteRecurring(ctx, userID, ruleID)
	if err != nil {
		return wrap(op, err, ruleID)
	}
	if n == 0 {
		return wrap(op, ErrNotFound, ruleID)
	}
	return nil
}

func (s *Service) prepareRule(rule billing.RecurringRule) (billing.RecurringRule, error) {
	rule.Description = strings.TrimSpace(rule.Description)
	if rule.Description == "" {
		return rule, billing.NewValidationError("description", rule.Description, "must not be empty", ErrEmptyField)
	}
	rule.Value = rule.Value.Round(2)
	rule.Category = s.categories.Normalize(rule.Category)
	if rule.Subcategory == "" {
		rule.Subcategory = "Fixo"
	}
	if err := rule.Validate(); err != nil {
		return rule, err
	}
	return rule, nil
}
