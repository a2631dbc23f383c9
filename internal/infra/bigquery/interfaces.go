package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	bq "github.com/dvloznov/rosacash/internal/bigquery"
)

// Re-export interfaces and rows from the shared package.
type (
	LedgerRepository    = bq.LedgerRepository
	ReportRunRepository = bq.ReportRunRepository
	TransactionRow      = bq.TransactionRow
	RecurringRow        = bq.RecurringRow
	CardRow             = bq.CardRow
	ReportRunRow        = bq.ReportRunRow
)

// BigQueryLedgerRepository is the concrete implementation of LedgerRepository
// that interacts with BigQuery. It holds a shared BigQuery client to avoid
// creating a new connection for each operation.
type BigQueryLedgerRepository struct {
	client    *bigquery.Client
	datasetID string
}

// NewBigQueryLedgerRepository creates a new instance of BigQueryLedgerRepository
// with a shared BigQuery client.
func NewBigQueryLedgerRepository(ctx context.Context, projectID, datasetID string) (*BigQueryLedgerRepository, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryLedgerRepository: creating client: %w", err)
	}
	return &BigQueryLedgerRepository{client: client, datasetID: datasetOrDefault(datasetID)}, nil
}

// Close closes the BigQuery client connection. This should be called when
// the repository is no longer needed to release resources.
func (r *BigQueryLedgerRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// ListTransactions delegates to ListTransactionsWithClient with the shared client.
func (r *BigQueryLedgerRepository) ListTransactions(ctx context.Context, userID string) ([]*TransactionRow, error) {
	return ListTransactionsWithClient(ctx, r.client, r.datasetID, userID)
}

// FindTransaction delegates to FindTransactionWithClient with the shared client.
func (r *BigQueryLedgerRepository) FindTransaction(ctx context.Context, userID, transactionID string) (*TransactionRow, error) {
	return FindTransactionWithClient(ctx, r.client, r.datasetID, userID, transactionID)
}

// InsertTransactions delegates to InsertTransactionsWithClient with the shared client.
func (r *BigQueryLedgerRepository) InsertTransactions(ctx context.Context, rows []*TransactionRow) error {
	return InsertTransactionsWithClient(ctx, r.client, r.datasetID, rows)
}

// SetPaid delegates to SetPaidWithClient with the shared client.
func (r *BigQueryLedgerRepository) SetPaid(ctx context.Context, userID string, transactionIDs []string, paid bool) (int64, error) {
	return SetPaidWithClient(ctx, r.client, r.datasetID, userID, transactionIDs, paid)
}

// DeleteTransaction delegates to DeleteTransactionWithClient with the shared client.
func (r *BigQueryLedgerRepository) DeleteTransaction(ctx context.Context, userID, transactionID string) (int64, error) {
	return DeleteTransactionWithClient(ctx, r.client, r.datasetID, userID, transactionID)
}

// DeleteTransactionSeries delegates to DeleteTransactionSeriesWithClient with the shared client.
func (r *BigQueryLedgerRepository) DeleteTransactionSeries(ctx context.Context, userID, baseID string) (int64, error) {
	return DeleteTransactionSeriesWithClient(ctx, r.client, r.datasetID, userID, baseID)
}

// DeleteTransactionsBetween delegates to DeleteTransactionsBetweenWithClient with the shared client.
func (r *BigQueryLedgerRepository) DeleteTransactionsBetween(ctx context.Context, userID string, start, end civil.Date) (int64, error) {
	return DeleteTransactionsBetweenWithClient(ctx, r.client, r.datasetID, userID, start, end)
}

// ListRecurring delegates to ListRecurringWithClient with the shared client.
func (r *BigQueryLedgerRepository) ListRecurring(ctx context.Context, userID string) ([]*RecurringRow, error) {
	return ListRecurringWithClient(ctx, r.client, r.datasetID, userID)
}

// InsertRecurring delegates to InsertRecurringWithClient with the shared client.
func (r *BigQueryLedgerRepository) InsertRecurring(ctx context.Context, row *RecurringRow) error {
	return InsertRecurringWithClient(ctx, r.client, r.datasetID, row)
}

// UpdateRecurring delegates to UpdateRecurringWithClient with the shared client.
func (r *BigQueryLedgerRepository) UpdateRecurring(ctx context.Context, row *RecurringRow) (int64, error) {
	return UpdateRecurringWithClient(ctx, r.client, r.datasetID, row)
}

// DeleteRecurring delegates to DeleteRecurringWithClient with the shared client.
func (r *BigQueryLedgerRepository) DeleteRecurring(ctx context.Context, userID, ruleID string) (int64, error) {
	return DeleteRecurringWithClient(ctx, r.client, r.datasetID, userID, ruleID)
}

// ListCards delegates to ListCardsWithClient with the shared client.
func (r *BigQueryLedgerRepository) ListCards(ctx context.Context, userID string) ([]*CardRow, error) {
	return ListCardsWithClient(ctx, r.client, r.datasetID, userID)
}

// InsertCard delegates to InsertCardWithClient with the shared client.
func (r *BigQueryLedgerRepository) InsertCard(ctx context.Context, row *CardRow) error {
	return InsertCardWithClient(ctx, r.client, r.datasetID, row)
}

// UpdateCard delegates to UpdateCardWithClient with the shared client.
func (r *BigQueryLedgerRepository) UpdateCard(ctx context.Context, row *CardRow) (int64, error) {
	return UpdateCardWithClient(ctx, r.client, r.datasetID, row)
}

// DeleteCard delegates to DeleteCardWithClient with the shared client.
func (r *BigQueryLedgerRepository) DeleteCard(ctx context.Context, userID, cardID string) (int64, error) {
	return DeleteCardWithClient(ctx, r.client, r.datasetID, userID, cardID)
}

// BigQueryReportRunRepository is the concrete implementation of ReportRunRepository.
type BigQueryReportRunRepository struct {
	client    *bigquery.Client
	datasetID string
}

// NewBigQueryReportRunRepository creates a new instance of BigQueryReportRunRepository
// with a shared BigQuery client.
func NewBigQueryReportRunRepository(ctx context.Context, projectID, datasetID string) (*BigQueryReportRunRepository, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryReportRunRepository: creating client: %w", err)
	}
	return &BigQueryReportRunRepository{client: client, datasetID: datasetOrDefault(datasetID)}, nil
}

// Close closes the BigQuery client connection.
func (r *BigQueryReportRunRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// StartReportRun delegates to StartReportRunWithClient with the shared client.
func (r *BigQueryReportRunRepository) StartReportRun(ctx context.Context, userID string) (string, error) {
	return StartReportRunWithClient(ctx, r.client, r.datasetID, userID)
}

// MarkReportRunFailed delegates to MarkReportRunFailedWithClient with the shared client.
func (r *BigQueryReportRunRepository) MarkReportRunFailed(ctx context.Context, runID string, runErr error) {
	MarkReportRunFailedWithClient(ctx, r.client, r.datasetID, runID, runErr)
}

// MarkReportRunSucceeded delegates to MarkReportRunSucceededWithClient with the shared client.
func (r *BigQueryReportRunRepository) MarkReportRunSucceeded(ctx context.Context, runID, objectURI string) error {
	return MarkReportRunSucceededWithClient(ctx, r.client, r.datasetID, runID, objectURI)
}
