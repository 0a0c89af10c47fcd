package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/journal-submission-api/internal/api"
	"github.com/journal-submission-api/internal/auth"
	"github.com/journal-submission-api/internal/config"
	"github.com/journal-submission-api/internal/database"
	"github.com/journal-submission-api/internal/metrics"
	"github.com/journal-submission-api/internal/notify"
	"github.com/journal-submission-api/internal/repository"
	"github.com/journal-submission-api/internal/service"
	"github.com/journal-submission-api/pkg/logger"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	// Bootstrap logger until the configuration is known
	log := logger.New()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log = logger.NewWithOptions(logger.Options{
		Level:   cfg.Log.Level,
		Pretty:  cfg.Log.Format == "pretty",
		Service: "journal-submission-api",
	})
	log.Info().Msg("Starting Journal Submission API server...")

	// Initialize database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	// Run migrations
	if err := db.RunMigrations(cfg.Database.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Initialize repositories
	repos := repository.New(db)

	// Collaborators shared by services and router
	tokens := auth.NewTokenService(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	hub := notify.NewHub(log)
	m := metrics.New()
	m.Registry().MustRegister(collectors.NewDBStatsCollector(db.DB, cfg.Database.Name))

	// Initialize services
	services := service.NewServices(repos, cfg, log, service.Deps{
		Tokens:    tokens,
		Publisher: hub,
		Metrics:   m,
	})

	// Start subscription sweeper
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go services.Sweeper.StartProcessor(sweepCtx)

	// Initialize router
	router := api.NewRouter(services, cfg, log, api.Deps{Tokens: tokens, Hub: hub, Metrics: m, DB: db})

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.ReadTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Stop sweeper
	services.Sweeper.StopProcessor()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited gracefully")
}
