package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"

	bq "github.com/dvloznov/rosacash/internal/bigquery"
	"github.com/dvloznov/rosacash/internal/logger"
)

// StartReportRunWithClient inserts a new row into report_runs with status=RUNNING
// and returns the generated run_id.
func StartReportRunWithClient(ctx context.Context, client *bigquery.Client, datasetID, userID string) (string, error) {
	runID := uuid.NewString()

	q := client.Query(fmt.Sprintf(`
		INSERT %s (
			run_id,
			user_id,
			status,
			started_ts
		)
		VALUES (
			@run_id,
			@user_id,
			@status,
			@started_ts
		)
	`, tableName(client, datasetID, reportRunsTable)))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "run_id", Value: runID},
		{Name: "user_id", Value: userID},
		{Name: "status", Value: bq.RunStatusRunning},
		{Name: "started_ts", Value: time.Now()},
	}

	if _, err := runDML(ctx, q); err != nil {
		return "", fmt.Errorf("StartReportRun: %w", err)
	}

	return runID, nil
}

// MarkReportRunFailedWithClient sets status=FAILED, finished_ts and error_message.
// Failures are logged rather than returned since the run already failed.
func MarkReportRunFailedWithClient(ctx context.Context, client *bigquery.Client, datasetID, runID string, runErr error) {
	log := logger.FromContext(ctx)

	q := client.Query(fmt.Sprintf(`
		UPDATE %s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = @error_message
		WHERE run_id = @run_id
	`, tableName(client, datasetID, reportRunsTable)))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: bq.RunStatusFailed},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "error_message", Value: truncateError(runErr)},
		{Name: "run_id", Value: runID},
	}

	if _, err := runDML(ctx, q); err != nil {
		log.Error().
			Err(err).
			Str("run_id", runID).
			Msg("MarkReportRunFailed: update failed")
	}
}

// MarkReportRunSucceededWithClient sets status=SUCCESS, finished_ts and object_uri, clears error_message.
func MarkReportRunSucceededWithClient(ctx context.Context, client *bigquery.Client, datasetID, runID, objectURI string) error {
	q := client.Query(fmt.Sprintf(`
		UPDATE %s
		SET status = @status,
		    finished_ts = @finished_ts,
		    object_uri = @object_uri,
		    error_message = NULL
		WHERE run_id = @run_id
	`, tableName(client, datasetID, reportRunsTable)))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: bq.RunStatusSuccess},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "object_uri", Value: objectURI},
		{Name: "run_id", Value: runID},
	}

	if _, err := runDML(ctx, q); err != nil {
		return fmt.Errorf("MarkReportRunSucceeded: %w", err)
	}

	return nil
}
