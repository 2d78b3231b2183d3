package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"spendable/internal/cli"
	"spendable/internal/sheets"
	"spendable/internal/sheets/google"
	"spendable/internal/sheets/memory"
	"spendable/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger("ledger-worker")

	logger.Info("Starting ledger-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	sqliteRepo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer sqliteRepo.Close()

	// The ledger-worker exists to drain the queue; without a broker there is
	// nothing to do, so an unreachable broker is fatal here.
	amqpClient := cli.InitAMQP(logger, cfg)
	if amqpClient == nil {
		logger.Error("AMQP is required for the ledger-worker", "url_configured", cfg.AMQPURL != "")
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var writer sheets.LedgerWriter
	if cfg.SheetsEnabled() {
		client, err := google.New(ctx, google.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleCredentialsJSON,
			CredentialsFile: cfg.GoogleCredentialsFile,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		writer = client
		logger.Info("Exporting ledger events to Google Sheets",
			"spreadsheet_id", cfg.GoogleSpreadsheetID,
			"sheet", cfg.GoogleSheetName)
	} else {
		writer = memory.New()
		logger.Info("Google Sheets not configured, ledger events are kept in memory only")
	}

	ledgerWorker := worker.NewLedgerWorker(sqliteRepo, writer)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ledgerWorker.Run(ctx, amqpClient)
	})

	logger.Info("Consuming ledger events", "queue", cfg.AMQPQueue)
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Ledger-worker stopped with error", "error", err)
		os.Exit(1)
	}

	logger.Info("Ledger-worker shutdown complete")
}
