package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

var recurringInsertColumns = []string{
	"rule_id", "user_id", "description", "day_of_month", "value", "type", "category", "subcategory",
	"start_date", "created_ts",
}

// ListRecurringWithClient returns the recurring rules of userID ordered by day of month.
func ListRecurringWithClient(ctx context.Context, client *bigquery.Client, datasetID, userID string) ([]*RecurringRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT
			rule_id,
			user_id,
			description,
			day_of_month,
			value,
			type,
			category,
			subcategory,
			start_date,
			created_ts
		FROM %s
		WHERE user_id = @user_id
		ORDER BY day_of_month, description
	`, tableName(client, datasetID, recurringTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListRecurring: query read: %w", err)
	}

	var rows []*RecurringRow
	for {
		var r RecurringRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListRecurring: iter next: %w", err)
		}
		rows = append(rows, &r)
	}

	return rows, nil
}

// InsertRecurringWithClient inserts a single recurring rule.
func InsertRecurringWithClient(ctx context.Context, client *bigquery.Client, datasetID string, r *RecurringRow) error {
	values := [][]interface{}{{
		r.RuleID, r.UserID, r.Description, r.DayOfMonth, r.Value, r.Type, r.Category, r.Subcategory,
		r.StartDate, r.CreatedTS,
	}}
	if err := insertRows(ctx, client, datasetID, recurringTable, recurringInsertColumns, values); err != nil {
		return fmt.Errorf("InsertRecurring: %w", err)
	}
	return nil
}

// UpdateRecurringWithClient overwrites the editable fields of a rule.
func UpdateRecurringWithClient(ctx context.Context, client *bigquery.Client, datasetID string, r *RecurringRow) (int64, error) {
	q := client.Query(fmt.Sprintf(`
		UPDATE %s
		SET description = @description,
		    day_of_month = @day_of_month,
		    value = @value,
		    type = @type,
		    category = @category,
		    subcategory = @subcategory,
		    start_date = @start_date
		WHERE user_id = @user_id
		  AND rule_id = @rule_id
	`, tableName(client, datasetID, recurringTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "description", Value: r.Description},
		{Name: "day_of_month", Value: r.DayOfMonth},
		{Name: "value", Value: r.Value},
		{Name: "type", Value: r.Type},
		{Name: "category", Value: r.Category},
		{Name: "subcategory", Value: r.Subcategory},
		{Name: "start_date", Value: r.StartDate},
		{Name: "user_id", Value: r.UserID},
		{Name: "rule_id", Value: r.RuleID},
	}

	n, err := runDML(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("UpdateRecurring: %w", err)
	}
	return n, nil
}
