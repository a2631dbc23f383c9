// Package app wires the configured services shared by the API server, the worker and the CLIs.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/rosacash/internal/assistant"
	"github.com/dvloznov/rosacash/internal/config"
	"github.com/dvloznov/rosacash/internal/gcsuploader"
	infraBQ "github.com/dvloznov/rosacash/internal/infra/bigquery"
	"github.com/dvloznov/rosacash/internal/jobs"
	"github.com/dvloznov/rosacash/internal/ledger"
	"github.com/dvloznov/rosacash/internal/notionsync"
	"github.com/dvloznov/rosacash/internal/report"
	"github.com/dvloznov/rosacash/internal/search"
)

// App holds the long lived clients built from a Config.
type App struct {
	Config *config.Config
	Ledger *ledger.Service

	// Storage is nil when REPORT_BUCKET is not set.
	Storage *gcsuploader.GCSStorageService

	// Notion is nil when the Notion sync is not configured.
	Notion notionsync.NotionService

	Reports *report.Pipeline

	now     func() time.Time
	closers []func() error
}

// New connects to BigQuery and builds every optional sink the configuration enables.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	a := &App{Config: cfg, now: time.Now}

	ledgerRepo, err := infraBQ.NewBigQueryLedgerRepository(ctx, cfg.GoogleCloudProject, cfg.BigQueryDataset)
	if err != nil {
		return nil, fmt.Errorf("failed to create ledger repository: %w", err)
	}
	a.closers = append(a.closers, ledgerRepo.Close)
	a.Ledger = ledger.NewService(ledgerRepo)

	runs, err := infraBQ.NewBigQueryReportRunRepository(ctx, cfg.GoogleCloudProject, cfg.BigQueryDataset)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create report run repository: %w", err)
	}
	a.closers = append(a.closers, runs.Close)

	var sinks []report.Sink
	if cfg.ReportBucket != "" {
		storage, err := gcsuploader.NewGCSStorageService(ctx)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to create storage client: %w", err)
		}
		a.Storage = storage
		a.closers = append(a.closers, storage.Close)
		sinks = append(sinks, gcsuploader.NewReportSink(storage, cfg.ReportBucket))
	} else {
		log.Warn().Msg("REPORT_BUCKET not set - reports will not be written to GCS")
	}

	if len(cfg.ElasticsearchURLs) > 0 {
		indexer, err := search.NewBillIndexer(cfg.ElasticsearchURLs, search.DefaultIndex)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to create bill indexer: %w", err)
		}
		sinks = append(sinks, indexer)
	}

	a.Reports = report.NewExportPipeline(runs, a.Ledger, sinks...)

	if cfg.NotionToken != "" {
		a.Notion = notionsync.NewNotionClient(cfg.NotionToken)
	}

	log.Info().
		Str("project", cfg.GoogleCloudProject).
		Str("dataset", cfg.BigQueryDataset).
		Int("report_sinks", len(sinks)).
		Bool("notion", a.Notion != nil).
		Msg("Services initialized")

	return a, nil
}

// Assistant builds the chat assistant with the configured language model.
func (a *App) Assistant(ctx context.Context) (*assistant.Assistant, error) {
	model, err := assistant.NewModel(ctx, a.Config)
	if err != nil {
		return nil, err
	}
	return assistant.New(model, a.Ledger, a.now), nil
}

// JobHandler dispatches background jobs to the report pipeline and the Notion sync.
func (a *App) JobHandler() jobs.JobHandler {
	var syncer jobs.BillSyncer
	if a.Notion != nil {
		syncer = jobs.NotionBillSyncer{Ledger: a.Ledger, Notion: a.Notion, DatabaseID: a.Config.NotionBillsDBID}
	}
	return jobs.NewHandler(jobs.PipelineExporter{Pipeline: a.Reports}, syncer, a.now)
}

// Close releases every client in reverse creation order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
	a.closers = nil
}
