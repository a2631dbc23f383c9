package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
)

// DeleteTransactionWithClient deletes one transaction of userID.
func DeleteTransactionWithClient(ctx context.Context, client *bigquery.Client, datasetID, userID, transactionID string) (int64, error) {
	q := client.Query(fmt.Sprintf(`
		DELETE FROM %s
		WHERE user_id = @user_id
		  AND transaction_id = @transaction_id
	`, tableName(client, datasetID, transactionsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "transaction_id", Value: transactionID},
	}

	n, err := runDML(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("DeleteTransaction: %w", err)
	}
	return n, nil
}

// DeleteTransactionSeriesWithClient deletes baseID together with every installment baseID-N.
func DeleteTransactionSeriesWithClient(ctx context.Context, client *bigquery.Client, datasetID, userID, baseID string) (int64, error) {
	q := client.Query(fmt.Sprintf(`
		DELETE FROM %s
		WHERE user_id = @user_id
		  AND (transaction_id = @base_id OR STARTS_WITH(transaction_id, @prefix))
	`, tableName(client, datasetID, transactionsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "base_id", Value: baseID},
		{Name: "prefix", Value: baseID + "-"},
	}

	n, err := runDML(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("DeleteTransactionSeries: %w", err)
	}
	return n, nil
}

// DeleteTransactionsBetweenWithClient deletes the transactions of userID dated in [start, end].
func DeleteTransactionsBetweenWithClient(ctx context.Context, client *bigquery.Client, datasetID, userID string, start, end civil.Date) (int64, error) {
	q := client.Query(fmt.Sprintf(`
		DELETE FROM %s
		WHERE user_id = @user_id
		  AND date BETWEEN @start_date AND @end_date
	`, tableName(client, datasetID, transactionsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "start_date", Value: start},
		{Name: "end_date", Value: end},
	}

	n, err := runDML(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("DeleteTransactionsBetween: %w", err)
	}
	return n, nil
}

// DeleteRecurringWithClient deletes one recurring rule of userID.
func DeleteRecurringWithClient(ctx context.Context, client *bigquery.Client, datasetID, userID, ruleID string) (int64, error) {
	q := client.Query(fmt.Sprintf(`
		DELETE FROM %s
		WHERE user_id = @user_id
		  AND rule_id = @rule_id
	`, tableName(client, datasetID, recurringTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "rule_id", Value: ruleID},
	}

	n, err := runDML(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("DeleteRecurring: %w", err)
	}
	return n, nil
}

// DeleteCardWithClient deletes one card of userID. Purchases referencing it are kept and become orphans.
func DeleteCardWithClient(ctx context.Context, client *bigquery.Client, datasetID, userID, cardID string) (int64, error) {
	q := client.Query(fmt.Sprintf(`
		DELETE FROM %s
		WHERE user_id = @user_id
		  AND card_id = @card_id
	`, tableName(client, datasetID, cardsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "card_id", Value: cardID},
	}

	n, err := runDML(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("DeleteCard: %w", err)
	}
	return n, nil
}
