package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/rosacash/internal/api/handlers"
	"github.com/dvloznov/rosacash/internal/api/middleware"
	"github.com/dvloznov/rosacash/internal/app"
	"github.com/dvloznov/rosacash/internal/config"
	"github.com/dvloznov/rosacash/internal/jobs/inmemory"
	"github.com/dvloznov/rosacash/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log := logger.New()
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Parse command-line flags
	port := flag.String("port", cfg.Port, "HTTP server port (or set PORT env)")
	flag.Parse()

	log, err := logger.Setup(cfg.GetLoggerConfig())
	if err != nil {
		log := logger.New()
		log.Fatal().Err(err).Msg("Failed to set up logger")
	}
	log = logger.WithComponent(log, "api")

	ctx := logger.WithContext(context.Background(), log)

	services, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer services.Close()

	chat, err := services.Assistant(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize assistant")
	}

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore)

	// Start worker in background to process jobs
	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	log.Info().Msg("Starting job worker")
	if err := jobQueue.Start(workerCtx, services.JobHandler()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job worker")
	}

	mux := handlers.NewRouter(handlers.Deps{
		Ledger:    services.Ledger,
		Assistant: chat,
		Publisher: jobQueue,
		Jobs:      jobStore,
		Now:       time.Now,
	})

	handler := middleware.Chain(mux,
		middleware.Recovery(log),
		middleware.RequestID,
		middleware.Logger(log),
		middleware.CORS,
		middleware.Auth(cfg.APIToken, "/health"),
	)
	if cfg.APIToken == "" {
		log.Warn().Msg("API_TOKEN not set - authentication is disabled")
	}

	// Create HTTP server. The write timeout leaves room for two model calls in /api/chat.
	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", *port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()

	// Close job queue
	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Server exited")
}
