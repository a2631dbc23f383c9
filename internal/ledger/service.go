// Package ledger loads user ledgers from storage and applies the billing engine to them.
package ledger

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	bq "github.com/dvloznov/rosacash/internal/bigquery"
	"github.com/dvloznov/rosacash/internal/billing"
	"github.com/dvloznov/rosacash/internal/logger"
)

// Repository is the storage the service reads and writes.
type Repository = bq.LedgerRepository

// Service is the application layer over the billing engine.
type Service struct {
	repo       Repository
	categories *CategoryNormalizer
	now        func() time.Time
	newID      func() string
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the clock used for created timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides the generator for new entity IDs.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// WithCategories replaces the default category list.
func WithCategories(names ...string) Option {
	return func(s *Service) { s.categories = NewCategoryNormalizer(names...) }
}

// NewService creates a Service backed by repo.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:       repo,
		categories: NewCategoryNormalizer(DefaultCategories...),
		now:        time.Now,
		newID:      newID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Categories returns the normalizer applied on write.
func (s *Service) Categories() *CategoryNormalizer {
	return s.categories
}

// Snapshot loads the transactions, recurring rules and cards of userID concurrently.
// Rows that fail validation are logged and left out of the snapshot.
func (s *Service) Snapshot(ctx context.Context, userID string) (billing.Snapshot, error) {
	const op = "Snapshot"
	if strings.TrimSpace(userID) == "" {
		return billing.Snapshot{}, wrap(op, ErrMissingUser, "")
	}

	var (
		txRows   []*bq.TransactionRow
		ruleRows []*bq.RecurringRow
		cardRows []*bq.CardRow
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		txRows, err = s.repo.ListTransactions(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		ruleRows, err = s.repo.ListRecurring(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		cardRows, err = s.repo.ListCards(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return billing.Snapshot{}, wrap(op, err, "user "+userID)
	}

	log := logger.FromContext(ctx)
	snap := billing.Snapshot{
		Transactions: make([]billing.Transaction, 0, len(txRows)),
		Rules:        make([]billing.RecurringRule, 0, len(ruleRows)),
		Cards:        make([]billing.CreditCard, 0, len(cardRows)),
	}

	for _, row := range txRows {
		t, err := row.ToBilling()
		if err != nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("Skipping invalid transaction row")
			continue
		}
		snap.Transactions = append(snap.Transactions, t)
	}
	for _, row := range ruleRows {
		r, err := row.ToBilling()
		if err != nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("Skipping invalid recurring row")
			continue
		}
		snap.Rules = append(snap.Rules, r)
	}
	for _, row := range cardRows {
		c, err := row.ToBilling()
		if err != nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("Skipping invalid card row")
			continue
		}
		snap.Cards = append(snap.Cards, c)
	}

	log.Debug().
		Str("user_id", userID).
		Int("transactions", len(snap.Transactions)).
		Int("recurring", len(snap.Rules)).
		Int("cards", len(snap.Cards)).
		Msg("Loaded ledger snapshot")

	return snap, nil
}
