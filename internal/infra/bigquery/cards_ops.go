package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

var cardInsertColumns = []string{
	"card_id", "user_id", "name", "closing_day", "due_day", "card_limit", "color", "created_ts",
}

// ListCardsWithClient returns the credit cards of userID ordered by name.
func ListCardsWithClient(ctx context.Context, client *bigquery.Client, datasetID, userID string) ([]*CardRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT
			card_id,
			user_id,
			name,
			closing_day,
			due_day,
			card_limit,
			color,
			created_ts
		FROM %s
		WHERE user_id = @user_id
		ORDER BY name
	`, tableName(client, datasetID, cardsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListCards: query read: %w", err)
	}

	var rows []*CardRow
	for {
		var r CardRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListCards: iter next: %w", err)
		}
		rows = append(rows, &r)
	}

	return rows, nil
}

// InsertCardWithClient inserts a single card.
func InsertCardWithClient(ctx context.Context, client *bigquery.Client, datasetID string, r *CardRow) error {
	values := [][]interface{}{{
		r.CardID, r.UserID, r.Name, r.ClosingDay, r.DueDay, r.Limit, r.Color, r.CreatedTS,
	}}
	if err := insertRows(ctx, client, datasetID, cardsTable, cardInsertColumns, values); err != nil {
		return fmt.Errorf("InsertCard: %w", err)
	}
	return nil
}

// UpdateCardWithClient overwrites the editable fields of a card.
func UpdateCardWithClient(ctx context.Context, client *bigquery.Client, datasetID string, r *CardRow) (int64, error) {
	q := client.Query(fmt.Sprintf(`
		UPDATE %s
		SET name = @name,
		    closing_day = @closing_day,
		    due_day = @due_day,
		    card_limit = @card_limit,
		    color = @color
		WHERE user_id = @user_id
		  AND card_id = @card_id
	`, tableName(client, datasetID, cardsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "name", Value: r.Name},
		{Name: "closing_day", Value: r.ClosingDay},
		{Name: "due_day", Value: r.DueDay},
		{Name: "card_limit", Value: r.Limit},
		{Name: "color", Value: r.Color},
		{Name: "user_id", Value: r.UserID},
		{Name: "card_id", Value: r.CardID},
	}

	n, err := runDML(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("UpdateCard: %w", err)
	}
	return n, nil
}
