// Command cleanup deletes game events older than the configured retention
// period (EVENT_LOG_RETENTION_DAYS). It is intended to be invoked by an
// external cron job, not as an in-process goroutine. Round outcomes are kept;
// player statistics are computed from them.
//
// Exit codes: 0 = success, 1 = error.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/heartmarshall/wildguess-backend/internal/adapter/postgres"
	"github.com/heartmarshall/wildguess-backend/internal/adapter/postgres/eventlog"
	"github.com/heartmarshall/wildguess-backend/internal/app"
	"github.com/heartmarshall/wildguess-backend/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := app.NewLogger(cfg.Log)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Error("connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	threshold := time.Now().AddDate(0, 0, -cfg.EventLog.RetentionDays)

	deleted, err := eventlog.New(pool).DeleteBefore(ctx, threshold)
	if err != nil {
		logger.Error("event log cleanup failed",
			slog.String("error", err.Error()),
			slog.Time("threshold", threshold),
		)
		os.Exit(1)
	}

	logger.Info("event log cleanup completed",
		slog.Int64("deleted", deleted),
		slog.Time("threshold", threshold),
	)
}
