package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/rosacash/internal/app"
	"github.com/dvloznov/rosacash/internal/config"
	"github.com/dvloznov/rosacash/internal/jobs"
	"github.com/dvloznov/rosacash/internal/jobs/inmemory"
	"github.com/dvloznov/rosacash/internal/logger"
)

func main() {
	var (
		users      = flag.String("users", os.Getenv("ROSACASH_USERS"), "Comma-separated user IDs to process (or set ROSACASH_USERS env)")
		interval   = flag.Duration("interval", 24*time.Hour, "Time between scheduling rounds")
		syncMonths = flag.Int("sync-months", jobs.DefaultSyncMonths, "Number of bills per card to mirror into Notion")
		once       = flag.Bool("once", false, "Run a single round, wait for it to finish and exit")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log := logger.New()
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log, err := logger.Setup(cfg.GetLoggerConfig())
	if err != nil {
		log := logger.New()
		log.Fatal().Err(err).Msg("Failed to set up logger")
	}
	log = logger.WithComponent(log, "worker")

	userIDs := splitUsers(*users)
	if len(userIDs) == 0 {
		log.Fatal().Msg("Error: --users is required")
	}

	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(logger.WithContext(context.Background(), log))
	defer cancel()

	services, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer services.Close()

	// In production, this would be replaced with Cloud Tasks or Pub/Sub
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore)

	if err := jobQueue.Start(ctx, services.JobHandler()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	log.Info().Strs("users", userIDs).Dur("interval", *interval).Msg("Worker service started")

	schedule(ctx, log, jobQueue, userIDs, *syncMonths, services.Notion != nil)

	if *once {
		waitIdle(ctx, jobStore)
	} else {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		ticker := time.NewTicker(*interval)
		defer ticker.Stop()

	loop:
		for {
			select {
			case <-ticker.C:
				schedule(ctx, log, jobQueue, userIDs, *syncMonths, services.Notion != nil)
			case <-quit:
				break loop
			}
		}
	}

	log.Info().Msg("Shutting down worker service...")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop the queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	logSummary(log, jobStore)
	log.Info().Msg("Worker service exited")
}

// schedule publishes one report export, and one bill sync when Notion is configured, per user.
func schedule(ctx context.Context, log zerolog.Logger, q jobs.Publisher, userIDs []string, months int, notion bool) {
	for _, userID := range userIDs {
		batch := []*jobs.Job{jobs.NewExportReportJob(jobs.ExportReportJob{UserID: userID})}
		if notion {
			batch = append(batch, jobs.NewSyncBillsJob(jobs.SyncBillsJob{UserID: userID, Months: months}))
		}
		for _, job := range batch {
			if err := q.Publish(ctx, job); err != nil {
				log.Error().Err(err).Str("user_id", userID).Str("type", string(job.Type)).Msg("Failed to publish job")
			}
		}
	}
}

// waitIdle polls the store until no job is pending, running or retrying.
func waitIdle(ctx context.Context, store jobs.JobStore) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		busy := 0
		for _, status := range []jobs.JobStatus{jobs.JobStatusPending, jobs.JobStatusRunning, jobs.JobStatusRetrying} {
			list, err := store.ListJobs(ctx, jobs.JobFilter{Status: status})
			if err == nil {
				busy += len(list)
			}
		}
		if busy == 0 {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func logSummary(log zerolog.Logger, store jobs.JobStore) {
	list, err := store.ListJobs(context.Background(), jobs.JobFilter{})
	if err != nil {
		return
	}
	counts := make(map[jobs.JobStatus]int)
	for _, j := range list {
		counts[j.Status]++
	}
	log.Info().
		Int("completed", counts[jobs.JobStatusCompleted]).
		Int("failed", counts[jobs.JobStatusFailed]).
		Int("unfinished", len(list)-counts[jobs.JobStatusCompleted]-counts[jobs.JobStatusFailed]).
		Msg("Job summary")
}

func splitUsers(s string) []string {
	var out []string
	for _, u := range strings.Split(s, ",") {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	return out
}
