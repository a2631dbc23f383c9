package bigquery

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/bigquery"
)

const (
	// DefaultDatasetID is used when no dataset is configured.
	DefaultDatasetID = "rosacash"

	transactionsTable = "transactions"
	recurringTable    = "recurring"
	cardsTable        = "cards"
	reportRunsTable   = "report_runs"

	maxErrorMessageLen = 2000

	// insertBatchSize bounds the rows per INSERT so a statement stays well under the query parameter limit.
	insertBatchSize = 200
)

func datasetOrDefault(datasetID string) string {
	if datasetID == "" {
		return DefaultDatasetID
	}
	return datasetID
}

// tableName returns the fully qualified, backquoted table name.
func tableName(client *bigquery.Client, datasetID, table string) string {
	return fmt.Sprintf("`%s.%s.%s`", client.Project(), datasetOrDefault(datasetID), table)
}

// runDML runs a DML statement to completion and returns the number of affected rows.
func runDML(ctx context.Context, q *bigquery.Query) (int64, error) {
	job, err := q.Run(ctx)
	if err != nil {
		return 0, fmt.Errorf("run query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return 0, fmt.Errorf("wait for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return 0, fmt.Errorf("job error: %w", err)
	}

	if status.Statistics != nil {
		if stats, ok := status.Statistics.Details.(*bigquery.QueryStatistics); ok {
			return stats.NumDMLAffectedRows, nil
		}
	}
	return 0, nil
}

func truncateError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if len(msg) > maxErrorMessageLen {
		msg = msg[:maxErrorMessageLen]
	}
	return msg
}

// buildInsert renders a parameterized multi-row INSERT. The parameter for column c of row i is named c_i.
func buildInsert(table string, columns []string, rows [][]interface{}) (string, []bigquery.QueryParameter) {
	tuples := make([]string, 0, len(rows))
	params := make([]bigquery.QueryParameter, 0, len(rows)*len(columns))
	for i, row := range rows {
		names := make([]string, len(columns))
		for j, col := range columns {
			name := fmt.Sprintf("%s_%d", col, i)
			names[j] = "@" + name
			params = append(params, bigquery.QueryParameter{Name: name, Value: row[j]})
		}
		tuples = append(tuples, "("+strings.Join(names, ", ")+")")
	}

	sql := fmt.Sprintf("INSERT INTO %s (%s)\nVALUES\n\t%s",
		table, strings.Join(columns, ", "), strings.Join(tuples, ",\n\t"))
	return sql, params
}

// insertRows inserts rows through DML in batches. Streamed rows cannot be updated or deleted
// while they sit in the streaming buffer, and the ledger toggles rows right after creating them.
func insertRows(ctx context.Context, client *bigquery.Client, datasetID, table string, columns []string, rows [][]interface{}) error {
	for start := 0; start < len(rows); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		sql, params := buildInsert(tableName(client, datasetID, table), columns, rows[start:end])
		q := client.Query(sql)
		q.Parameters = params
		if _, err := runDML(ctx, q); err != nil {
			return fmt.Errorf("insert into %s: %w", table, err)
		}
	}
	return nil
}
