package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

const transactionColumns = `
			transaction_id,
			user_id,
			date,
			description,
			type,
			value,
			category,
			subcategory,
			card_id,
			installments,
			current_installment,
			is_recurring,
			is_virtual,
			is_paid,
			created_ts,
			updated_ts`

var transactionInsertColumns = []string{
	"transaction_id", "user_id", "date", "description", "type", "value", "category", "subcategory",
	"card_id", "installments", "current_installment", "is_recurring", "is_virtual", "is_paid", "created_ts",
}

// InsertTransactionsWithClient inserts a batch of TransactionRow into rosacash.transactions
// using the provided BigQuery client. Virtual rows are projections and are skipped.
func InsertTransactionsWithClient(ctx context.Context, client *bigquery.Client, datasetID string, rows []*TransactionRow) error {
	values := make([][]interface{}, 0, len(rows))
	for _, r := range rows {
		if r.IsVirtual {
			continue
		}
		values = append(values, []interface{}{
			r.TransactionID, r.UserID, r.Date, r.Description, r.Type, r.Value, r.Category, r.Subcategory,
			r.CardID, r.Installments, r.CurrentInstallment, r.IsRecurring, false, r.IsPaid, r.CreatedTS,
		})
	}
	if len(values) == 0 {
		return nil
	}

	if err := insertRows(ctx, client, datasetID, transactionsTable, transactionInsertColumns, values); err != nil {
		return fmt.Errorf("InsertTransactions: %w", err)
	}
	return nil
}

// ListTransactionsWithClient returns every transaction of userID ordered by date.
func ListTransactionsWithClient(ctx context.Context, client *bigquery.Client, datasetID, userID string) ([]*TransactionRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT%s
		FROM %s
		WHERE user_id = @user_id
		  AND is_virtual = FALSE
		ORDER BY date, created_ts
	`, transactionColumns, tableName(client, datasetID, transactionsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListTransactions: query read: %w", err)
	}

	var rows []*TransactionRow
	for {
		var r TransactionRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListTransactions: iter next: %w", err)
		}
		rows = append(rows, &r)
	}

	return rows, nil
}

// FindTransactionWithClient returns a single transaction.
// Returns nil if no transaction with the given ID exists for the user.
func FindTransactionWithClient(ctx context.Context, client *bigquery.Client, datasetID, userID, transactionID string) (*TransactionRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT%s
		FROM %s
		WHERE user_id = @user_id
		  AND transaction_id = @transaction_id
		LIMIT 1
	`, transactionColumns, tableName(client, datasetID, transactionsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "transaction_id", Value: transactionID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("FindTransaction: query read: %w", err)
	}

	var r TransactionRow
	err = it.Next(&r)
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("FindTransaction: iter next: %w", err)
	}
	return &r, nil
}

// SetPaidWithClient sets is_paid on the given transactions of userID.
func SetPaidWithClient(ctx context.Context, client *bigquery.Client, datasetID, userID string, transactionIDs []string, paid bool) (int64, error) {
	if len(transactionIDs) == 0 {
		return 0, nil
	}

	q := client.Query(fmt.Sprintf(`
		UPDATE %s
		SET is_paid = @is_paid,
		    updated_ts = CURRENT_TIMESTAMP()
		WHERE user_id = @user_id
		  AND transaction_id IN UNNEST(@transaction_ids)
	`, tableName(client, datasetID, transactionsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "is_paid", Value: paid},
		{Name: "user_id", Value: userID},
		{Name: "transaction_ids", Value: transactionIDs},
	}

	n, err := runDML(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("SetPaid: %w", err)
	}
	return n, nil
}
