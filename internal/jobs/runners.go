package jobs

import (
	"context"
	"time"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/rosacash/internal/notionsync"
	"github.com/dvloznov/rosacash/internal/report"
)

// PipelineExporter runs the report export pipeline.
type PipelineExporter struct {
	Pipeline *report.Pipeline
}

func (e PipelineExporter) ExportReport(ctx context.Context, userID string, now time.Time) error {
	_, err := report.Export(ctx, e.Pipeline, userID, now)
	return err
}

// NotionBillSyncer loads a user's ledger and mirrors its bills into a Notion database.
type NotionBillSyncer struct {
	Ledger     report.SnapshotLoader
	Notion     notionsync.NotionService
	DatabaseID string
}

func (s NotionBillSyncer) SyncBills(ctx context.Context, userID string, now time.Time, months int) error {
	snap, err := s.Ledger.Snapshot(ctx, userID)
	if err != nil {
		return err
	}
	_, err = notionsync.SyncBills(ctx, snap, s.Notion, s.DatabaseID, civil.DateOf(now), months, false)
	return err
}
