package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/pagecraft-dev/pagecraft/internal/config"
	"github.com/pagecraft-dev/pagecraft/internal/logger"
	"github.com/pagecraft-dev/pagecraft/internal/recent"
	"github.com/pagecraft-dev/pagecraft/internal/store"
	"github.com/pagecraft-dev/pagecraft/internal/tasks"
	"github.com/pagecraft-dev/pagecraft/internal/workers"
)

var version = "dev" // Will be set during build with -ldflags

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.GetLogger()

	log.Info().Str("version", version).Msg("Starting Pagecraft Asynq worker")

	db, err := store.Open(cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer store.Close(db)

	recentService := recent.NewService(db, log, cfg.Maintenance.RecentLimit)

	// Used by the scheduler to enqueue periodic maintenance
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr: cfg.Redis.Address,
	})
	defer asynqClient.Close()

	asynqServer := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr: cfg.Redis.Address,
		},
		asynq.Config{
			Concurrency: 4,
			Queues: map[string]int{
				tasks.QueueDefault: 3,
				tasks.QueueLow:     1,
			},
			Logger: &asynqLogger{log: log},
		},
	)

	// Register task handlers
	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypePruneRecent, func(ctx context.Context, t *asynq.Task) error {
		return workers.HandlePruneRecent(ctx, t, recentService, log)
	})
	mux.HandleFunc(tasks.TypePurgeSessions, func(ctx context.Context, t *asynq.Task) error {
		return workers.HandlePurgeSessions(ctx, t, db, log)
	})

	scheduler, err := workers.StartScheduler(asynqClient, cfg.Maintenance.Schedule, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start maintenance scheduler")
	}

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		log.Info().Msg("Starting Asynq worker server...")
		if err := asynqServer.Run(mux); err != nil {
			log.Fatal().Err(err).Msg("Asynq worker server failed")
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Info().Msg("Received shutdown signal, shutting down gracefully...")

	<-scheduler.Stop().Done()

	log.Info().Msg("Stopping Asynq worker - waiting for tasks to finish...")
	asynqServer.Shutdown()

	log.Info().Msg("Worker shutdown complete")
}

// asynqLogger is a wrapper to make zerolog compatible with Asynq's logger interface
type asynqLogger struct {
	log zerolog.Logger
}

func (l *asynqLogger) Debug(args ...interface{}) {
	l.log.Debug().Msg(fmt.Sprint(args...))
}

func (l *asynqLogger) Info(args ...interface{}) {
	l.log.Info().Msg(fmt.Sprint(args...))
}

func (l *asynqLogger) Warn(args ...interface{}) {
	l.log.Warn().Msg(fmt.Sprint(args...))
}

func (l *asynqLogger) Error(args ...interface{}) {
	l.log.Error().Msg(fmt.Sprint(args...))
}

func (l *asynqLogger) Fatal(args ...interface{}) {
	l.log.Fatal().Msg(fmt.Sprint(args...))
}
