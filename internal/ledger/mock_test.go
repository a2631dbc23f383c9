package ledger

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	bq "github.com/dvloznov/rosacash/internal/bigquery"
)

// mockRepository is a mock implementation of Repository for testing.
type mockRepository struct {
	ListTransactionsFunc          func(ctx context.Context, userID string) ([]*bq.TransactionRow, error)
	FindTransactionFunc           func(ctx context.Context, userID, transactionID string) (*bq.TransactionRow, error)
	InsertTransactionsFunc        func(ctx context.Context, rows []*bq.TransactionRow) error
	SetPaidFunc                   func(ctx context.Context, userID string, ids []string, paid bool) (int64, error)
	DeleteTransactionFunc         func(ctx context.Context, userID, transactionID string) (int64, error)
	DeleteTransactionSeriesFunc   func(ctx context.Context, userID, baseID string) (int64, error)
	DeleteTransactionsBetweenFunc func(ctx context.Context, userID string, start, end civil.Date) (int64, error)

	ListRecurringFunc   func(ctx context.Context, userID string) ([]*bq.RecurringRow, error)
	InsertRecurringFunc func(ctx context.Context, row *bq.RecurringRow) error
	UpdateRecurringFunc func(ctx context.Context, row *bq.RecurringRow) (int64, error)
	DeleteRecurringFunc func(ctx context.Context, userID, ruleID string) (int64, error)

	ListCardsFunc  func(ctx context.Context, userID string) ([]*bq.CardRow, error)
	InsertCardFunc func(ctx context.Context, row *bq.CardRow) error
	UpdateCardFunc func(ctx context.Context, row *bq.CardRow) (int64, error)
	DeleteCardFunc func(ctx context.Context, userID, cardID string) (int64, error)
}

func (m *mockRepository) ListTransactions(ctx context.Context, userID string) ([]*bq.TransactionRow, error) {
	if m.ListTransactionsFunc != nil {
		return m.ListTransactionsFunc(ctx, userID)
	}
	return nil, nil
}

func (m *mockRepository) FindTransaction(ctx context.Context, userID, transactionID string) (*bq.TransactionRow, error) {
	if m.FindTransactionFunc != nil {
		return m.FindTransactionFunc(ctx, userID, transactionID)
	}
	return nil, nil
}

func (m *mockRepository) InsertTransactions(ctx context.Context, rows []*bq.TransactionRow) error {
	if m.InsertTransactionsFunc != nil {
		return m.InsertTransactionsFunc(ctx, rows)
	}
	return nil
}

func (m *mockRepository) SetPaid(ctx context.Context, userID string, ids []string, paid bool) (int64, error) {
	if m.SetPaidFunc != nil {
		return m.SetPaidFunc(ctx, userID, ids, paid)
	}
	return int64(len(ids)), nil
}

func (m *mockRepository) DeleteTransaction(ctx context.Context, userID, transactionID string) (int64, error) {
	if m.DeleteTransactionFunc != nil {
		return m.DeleteTransactionFunc(ctx, userID, transactionID)
	}
	return 1, nil
}

func (m *mockRepository) DeleteTransactionSeries(ctx context.Context, userID, baseID string) (int64, error) {
	if m.DeleteTransactionSeriesFunc != nil {
		return m.DeleteTransactionSeriesFunc(ctx, userID, baseID)
	}
	return 0, nil
}

func (m *mockRepository) DeleteTransactionsBetween(ctx context.Context, userID string, start, end civil.Date) (int64, error) {
	if m.DeleteTransactionsBetweenFunc != nil {
		return m.DeleteTransactionsBetweenFunc(ctx, userID, start, end)
	}
	return 0, nil
}

func (m *mockRepository) ListRecurring(ctx context.Context, userID string) ([]*bq.RecurringRow, error) {
	if m.ListRecurringFunc != nil {
		return m.ListRecurringFunc(ctx, userID)
	}
	return nil, nil
}

func (m *mockRepository) InsertRecurring(ctx context.Context, row *bq.RecurringRow) error {
	if m.InsertRecurringFunc != nil {
		return m.InsertRecurringFunc(ctx, row)
	}
	return nil
}

func (m *mockRepository) UpdateRecurring(ctx context.Context, row *bq.RecurringRow) (int64, error) {
	if m.UpdateRecurringFunc != nil {
		return m.UpdateRecurringFunc(ctx, row)
	}
	return 1, nil
}

func (m *mockRepository) DeleteRecurring(ctx context.Context, userID, ruleID string) (int64, error) {
	if m.DeleteRecurringFunc != nil {
		return m.DeleteRecurringFunc(ctx, userID, ruleID)
	}
	return 0, nil
}

func (m *mockRepository) ListCards(ctx context.Context, userID string) ([]*bq.CardRow, error) {
	if m.ListCardsFunc != nil {
		return m.ListCardsFunc(ctx, userID)
	}
	return nil, nil
}

func (m *mockRepository) InsertCard(ctx context.Context, row *bq.CardRow) error {
	if m.InsertCardFunc != nil {
		return m.InsertCardFunc(ctx, row)
	}
	return nil
}

func (m *mockRepository) UpdateCard(ctx context.Context, row *bq.CardRow) (int64, error) {
	if m.UpdateCardFunc != nil {
		return m.UpdateCardFunc(ctx, row)
	}
	return 1, nil
}

func (m *mockRepository) DeleteCard(ctx context.Context, userID, cardID string) (int64, error) {
	if m.DeleteCardFunc != nil {
		return m.DeleteCardFunc(ctx, userID, cardID)
	}
	return 1, nil
}

func day(y int, m time.Month, d int) civil.Date {
	return civil.Date{Year: y, Month: m, Day: d}
}

func cardRow(id, cardID string, d civil.Date, cents int64) *bq.TransactionRow {
	return &bq.TransactionRow{
		TransactionID: id,
		UserID:        "u1",
		Date:          d,
		Description:   "compra " + id,
		Type:          "credit_card",
		Value:         big.NewRat(cents, 100),
		Category:      "Compras",
		CardID:        bigquery.NullString{StringVal: cardID, Valid: true},
	}
}

func newTestService(repo *mockRepository) *Service {
	ids := 0
	return NewService(repo,
		WithClock(func() time.Time { return time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC) }),
		WithIDGenerator(func() string {
			ids++
			if ids == 1 {
				return "base"
			}
			return fmt.Sprintf("id%d", ids)
		}),
	)
}
