package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"spendable/internal/cli"
	"spendable/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger("rollover-worker")

	logger.Info("Starting rollover-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	sqliteRepo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer sqliteRepo.Close()

	// Rollover commits are announced on the queue so the ledger-worker can
	// export them to the spreadsheet ledger.
	amqpClient := cli.InitAMQP(logger, cfg)
	if amqpClient != nil {
		defer amqpClient.Close()
	}

	service := services.NewBudgetService(sqliteRepo, amqpClient)
	processor := services.NewRolloverProcessor(service)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("Rollover processor configured",
		"interval", cfg.RolloverInterval,
		"sqlite_db", cfg.SQLiteDBPath)

	ticker := time.NewTicker(cfg.RolloverInterval)
	defer ticker.Stop()

	// Catch up on startup so a stopped worker never leaves stale periods.
	logger.Info("Running initial rollover pass...")
	if count, err := processor.ProcessRollovers(ctx, time.Now()); err != nil {
		logger.Error("Initial rollover pass failed", "error", err)
	} else {
		logger.Info("Initial rollover pass complete", "rolled_over", count)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				logger.Info("Processing elapsed periods...")
				count, err := processor.ProcessRollovers(ctx, now)
				if err != nil {
					logger.Error("Periodic rollover pass failed", "error", err)
				} else {
					logger.Info("Periodic rollover pass complete",
						"rolled_over", count,
						"next_check", now.Add(cfg.RolloverInterval).Format("15:04:05"))
				}
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	logger.Info("Shutting down rollover-worker...")
	cancel()

	select {
	case <-shutdownCtx.Done():
		logger.Warn("Shutdown timeout reached")
	case <-time.After(2 * time.Second):
		logger.Info("Rollover-worker shutdown complete")
	}
}
