package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/rosacash/internal/billing"
	"github.com/dvloznov/rosacash/internal/config"
	infraBQ "github.com/dvloznov/rosacash/internal/infra/bigquery"
	"github.com/dvloznov/rosacash/internal/jobs"
	"github.com/dvloznov/rosacash/internal/ledger"
	"github.com/dvloznov/rosacash/internal/logger"
	"github.com/dvloznov/rosacash/internal/notionsync"
)

func main() {
	// Initialize structured logger
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Parse CLI flags
	userID := flag.String("user", "", "User ID whose bills are synced (required)")
	fromStr := flag.String("from", "", "First bill month as YYYY-MM-DD (defaults to today)")
	months := flag.Int("months", jobs.DefaultSyncMonths, "Number of bills per card to sync")
	notionToken := flag.String("notion-token", cfg.NotionToken, "Notion API token (or set NOTION_TOKEN env)")
	notionDBID := flag.String("notion-db-id", cfg.NotionBillsDBID, "Notion database ID (or set NOTION_BILLS_DB_ID env)")
	dryRun := flag.Bool("dry-run", false, "Dry run mode - preview changes without syncing")
	flag.Parse()

	// Validate required flags
	if *userID == "" {
		log.Fatal().Msg("Error: --user is required")
	}
	if *notionToken == "" {
		log.Fatal().Msg("Error: --notion-token is required")
	}
	if *notionDBID == "" {
		log.Fatal().Msg("Error: --notion-db-id is required")
	}

	from := civil.DateOf(time.Now())
	if *fromStr != "" {
		if from, err = billing.ParseDate("from", *fromStr); err != nil {
			log.Fatal().Err(err).Str("from", *fromStr).Msg("Error: invalid from date, expected YYYY-MM-DD")
		}
	}

	// Create context with timeout so CLI doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	// Add logger to context
	ctx = logger.WithContext(ctx, log)

	log.Info().
		Str("user_id", *userID).
		Str("from", from.String()).
		Int("months", *months).
		Bool("dry_run", *dryRun).
		Msg("Starting Notion sync")

	// Initialize BigQuery repository
	repo, err := infraBQ.NewBigQueryLedgerRepository(ctx, cfg.GoogleCloudProject, cfg.BigQueryDataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize BigQuery repository")
	}
	defer repo.Close()

	snap, err := ledger.NewService(repo).Snapshot(ctx, *userID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load ledger")
	}

	// Initialize Notion client
	notionClient := notionsync.NewNotionClient(*notionToken)

	res, err := notionsync.SyncBills(ctx, snap, notionClient, *notionDBID, from, *months, *dryRun)
	if err != nil {
		log.Fatal().Err(err).Msg("Sync failed")
	}

	fmt.Printf("Sync completed: %d created, %d updated, %d archived, %d failed.\n",
		res.Created, res.Updated, res.Archived, res.Failed)
}
