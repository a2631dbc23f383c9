package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dvloznov/rosacash/internal/app"
	"github.com/dvloznov/rosacash/internal/billing"
	"github.com/dvloznov/rosacash/internal/config"
	"github.com/dvloznov/rosacash/internal/gcsuploader"
	"github.com/dvloznov/rosacash/internal/logger"
	"github.com/dvloznov/rosacash/internal/report"
)

func main() {
	// Initialize structured logger
	log := logger.New()

	var (
		userID   string
		dateStr  string
		bucket   string
		printOut bool
	)

	flag.StringVar(&userID, "user", "", "User ID to export (required)")
	flag.StringVar(&dateStr, "date", "", "Report date as YYYY-MM-DD (optional; defaults to today)")
	flag.StringVar(&bucket, "bucket", "", "GCS bucket (optional; overrides REPORT_BUCKET)")
	flag.BoolVar(&printOut, "print", false, "Print the exported report, read back from GCS")
	flag.Parse()

	if userID == "" {
		log.Fatal().Msg("Usage: export-report -user USER_ID [-date YYYY-MM-DD] [-bucket BUCKET] [-print]")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if bucket != "" {
		cfg.ReportBucket = bucket
	}

	at := time.Now()
	if dateStr != "" {
		d, err := billing.ParseDate("date", dateStr)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid date")
		}
		at = d.In(time.UTC)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	services, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer services.Close()

	log.Info().
		Str("user_id", userID).
		Time("as_of", at).
		Msg("Exporting report")

	state, err := report.Export(ctx, services.Reports, userID, at)
	if err != nil {
		log.Fatal().Err(err).Msg("Export failed")
	}

	fmt.Printf("Exported run %s to %s\n", state.RunID, strings.Join(state.Locations, ", "))

	if !printOut {
		return
	}

	out := state.Report
	if services.Storage != nil {
		for _, loc := range state.Locations {
			if !strings.HasPrefix(loc, "gs://") {
				continue
			}
			if out, err = gcsuploader.FetchReport(ctx, services.Storage, loc); err != nil {
				log.Fatal().Err(err).Str("uri", loc).Msg("Failed to read report back")
			}
			break
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatal().Err(err).Msg("Failed to print report")
	}
}
