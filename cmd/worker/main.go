package main

import (
	"context"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/customer-ingest/internal/config"
	"github.com/customer-ingest/internal/database"
	"github.com/customer-ingest/internal/objectstore"
	"github.com/customer-ingest/internal/queue"
	"github.com/customer-ingest/internal/repository"
	"github.com/customer-ingest/internal/worker"
	"github.com/customer-ingest/pkg/logger"
)

func main() {
	log := logger.New()
	log.Info().Msg("starting customer ingestion worker")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	repos := repository.New(db)

	store, err := objectstore.New(context.Background(), cfg.S3, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize object store gateway")
	}

	w := worker.New(repos.Job, repos.Customer, store, cfg.Import, log)

	concurrency := concurrencyFromCPU()
	srv, err := queue.NewServer(cfg.Broker.RedisURL, concurrency, w.Process)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize task queue server")
	}

	go func() {
		log.Info().Int("concurrency", concurrency).Msg("worker consuming import tasks")
		if err := srv.Run(); err != nil {
			log.Fatal().Err(err).Msg("worker server failed")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info().Msg("shutting down worker")
	srv.Shutdown()
	log.Info().Msg("worker exited gracefully")
}

// concurrencyFromCPU sizes the asynq pool off available CPUs, clamped
// to a band that keeps a small box from over-subscribing the database
// pool and a large box from running an unbounded number of goroutines.
func concurrencyFromCPU() int {
	c := runtime.NumCPU() * 4
	if c < 4 {
		return 4
	}
	if c > 32 {
		return 32
	}
	return c
}
