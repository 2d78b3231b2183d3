// Package worker exports ledger events from the queue to the external
// spreadsheet ledger.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"spendable/internal/amqp"
	"spendable/internal/core"
	"spendable/internal/sheets"
	"spendable/internal/storage"
)

// LedgerWorker consumes ledger events and appends them to a LedgerWriter.
// Messages carry only IDs; the worker reads the full row from storage, so a
// requeued message always exports the current state.
type LedgerWorker struct {
	storage *storage.SQLiteRepository
	writer  sheets.LedgerWriter
}

func NewLedgerWorker(storage *storage.SQLiteRepository, writer sheets.LedgerWriter) *LedgerWorker {
	return &LedgerWorker{
		storage: storage,
		writer:  writer,
	}
}

// HandleEvent processes a single ledger event from the queue. A returned
// error requeues the message.
func (w *LedgerWorker) HandleEvent(ctx context.Context, event *amqp.Event) error {
	switch event.Kind {
	case amqp.KindTransactionRecorded:
		return w.exportTransaction(ctx, event.Transaction.ID)
	case amqp.KindRolloverCommitted:
		return w.exportRollover(ctx, event.Rollover)
	default:
		// Decoding already rejects unknown kinds; drop rather than requeue.
		slog.WarnContext(ctx, "Ignoring unhandled event kind", "kind", string(event.Kind))
		return nil
	}
}

func (w *LedgerWorker) exportTransaction(ctx context.Context, id int64) error {
	slog.InfoContext(ctx, "Exporting transaction", "id", id)

	tx, err := w.storage.GetTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("get transaction from storage: %w", err)
	}

	ref, err := w.writer.AppendTransaction(ctx, *tx)
	if err != nil {
		return fmt.Errorf("append transaction to ledger: %w", err)
	}

	slog.InfoContext(ctx, "Transaction exported",
		"id", id,
		"sheets_ref", ref,
		"amount_cents", tx.Amount.Cents,
		"type", string(tx.Type))
	return nil
}

func (w *LedgerWorker) exportRollover(ctx context.Context, payload *amqp.RolloverPayload) error {
	slog.InfoContext(ctx, "Exporting rollover",
		"entity", payload.Entity,
		"period_start", payload.PeriodStart,
		"period_end", payload.PeriodEnd)

	period, err := parsePeriod(payload)
	if err != nil {
		// Malformed payloads never become exportable; drop instead of requeue.
		slog.ErrorContext(ctx, "Dropping rollover with invalid period",
			"entity", payload.Entity,
			"error", err)
		return nil
	}

	ref, err := w.writer.AppendRollover(ctx, payload.Entity, period)
	if err != nil {
		return fmt.Errorf("append rollover to ledger: %w", err)
	}

	slog.InfoContext(ctx, "Rollover exported",
		"entity", payload.Entity,
		"sheets_ref", ref)
	return nil
}

func parsePeriod(payload *amqp.RolloverPayload) (core.Period, error) {
	start, err := core.ParseDate(payload.PeriodStart)
	if err != nil {
		return core.Period{}, fmt.Errorf("parse period start: %w", err)
	}
	end, err := core.ParseDate(payload.PeriodEnd)
	if err != nil {
		return core.Period{}, fmt.Errorf("parse period end: %w", err)
	}
	return core.NewPeriod(start, end, true), nil
}

// Run consumes events until the context ends, reconnecting on broker drops.
func (w *LedgerWorker) Run(ctx context.Context, client *amqp.Client) error {
	return client.ConsumeWithReconnect(ctx, func(event *amqp.Event) error {
		return w.HandleEvent(ctx, event)
	})
}
