package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/customer-ingest/internal/api"
	"github.com/customer-ingest/internal/auth"
	"github.com/customer-ingest/internal/config"
	"github.com/customer-ingest/internal/database"
	"github.com/customer-ingest/internal/objectstore"
	"github.com/customer-ingest/internal/queue"
	"github.com/customer-ingest/internal/repository"
	"github.com/customer-ingest/internal/service"
	"github.com/customer-ingest/pkg/logger"
)

func main() {
	log := logger.New()
	log.Info().Msg("starting customer ingestion API server")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	migrationsPath := os.Getenv("MIGRATIONS_PATH")
	if migrationsPath == "" {
		migrationsPath = "./migrations"
	}
	if err := db.RunMigrations(migrationsPath); err != nil {
		log.Fatal().Err(err).Msg("failed to run database migrations")
	}

	repos := repository.New(db)

	store, err := objectstore.New(context.Background(), cfg.S3, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize object store gateway")
	}

	tokens := auth.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.AccessTTL)

	queueClient, err := queue.NewClient(cfg.Broker.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize task queue client")
	}
	defer queueClient.Close()

	services := service.NewServices(repos, cfg, tokens, store, queueClient, log)
	router := api.NewRouter(services, tokens, db, cfg, log)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.ReadTimeout,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited gracefully")
}
