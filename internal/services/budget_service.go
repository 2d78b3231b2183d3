// Package services orchestrates the pure budget engine against storage and
// the event queue: it assembles snapshots, commits period rollovers as an
// explicit step, and records ledger entries.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"spendable/internal/amqp"
	"spendable/internal/budget"
	"spendable/internal/core"
	applog "spendable/internal/log"
	"spendable/internal/storage"
)

// BudgetService is the single entry point the HTTP layer talks to. All
// budget math happens in the budget package; this type only moves data
// between storage, the engine, and the queue.
type BudgetService struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
	calc       budget.Calculator
	logger     *applog.StructuredLogger
}

func NewBudgetService(storage *storage.SQLiteRepository, amqpClient *amqp.Client) *BudgetService {
	return &BudgetService{
		storage:    storage,
		amqpClient: amqpClient,
		calc: budget.Calculator{
			Trace: func(event string, args ...any) {
				slog.Debug("budget: "+event, args...)
			},
		},
		logger: applog.NewStructuredLogger(applog.New(applog.Config{
			Level:     slog.LevelInfo,
			Component: applog.ComponentBudget,
		})),
	}
}

// CatchUpPeriods advances every stored repeating period that has elapsed by
// today and commits the advanced periods back to storage, publishing a
// rollover event per commit. Returns how many periods were rolled over.
// The calculation half (AdvanceIfElapsed) is pure; this is the explicit
// commit half.
func (s *BudgetService) CatchUpPeriods(ctx context.Context, today core.Date) (int, error) {
	committed := 0

	income, err := s.storage.GetIncomeSettings(ctx)
	if err != nil {
		return 0, fmt.Errorf("load income settings: %w", err)
	}
	if income != nil {
		if advanced := income.Period.AdvanceIfElapsed(today); periodMoved(income.Period, advanced) {
			if err := s.storage.CommitIncomePeriod(ctx, advanced); err != nil {
				return committed, fmt.Errorf("commit income rollover: %w", err)
			}
			committed++
			s.logger.LogRolloverCommitted(ctx, "income", advanced.Start.String(), advanced.End.String())
			s.publishRollover(ctx, amqp.NewRolloverEvent("income", 0, advanced))
		}
	}

	policy, err := s.storage.GetSavingsPolicy(ctx)
	if err != nil {
		return committed, fmt.Errorf("load savings policy: %w", err)
	}
	if policy != nil {
		if advanced := policy.Period.AdvanceIfElapsed(today); periodMoved(policy.Period, advanced) {
			if err := s.storage.CommitSavingsPeriod(ctx, advanced); err != nil {
				return committed, fmt.Errorf("commit savings rollover: %w", err)
			}
			committed++
			s.logger.LogRolloverCommitted(ctx, "savings", advanced.Start.String(), advanced.End.String())
			s.publishRollover(ctx, amqp.NewRolloverEvent("savings", 0, advanced))
		}
	}

	fixed, err := s.storage.ListFixedExpenses(ctx)
	if err != nil {
		return committed, fmt.Errorf("load fixed expenses: %w", err)
	}
	for _, e := range fixed {
		advanced := e.Period.AdvanceIfElapsed(today)
		if !periodMoved(e.Period, advanced) {
			continue
		}
		if err := s.storage.CommitFixedExpensePeriod(ctx, e.ID, advanced); err != nil {
			return committed, fmt.Errorf("commit fixed expense %d rollover: %w", e.ID, err)
		}
		committed++
		s.logger.LogRolloverCommitted(ctx, "fixed_expense", advanced.Start.String(), advanced.End.String())
		s.publishRollover(ctx, amqp.NewRolloverEvent("fixed_expense", e.ID, advanced))
	}

	if committed > 0 {
		slog.InfoContext(ctx, "Period rollovers committed",
			"count", committed,
			"date", today.String())
	}
	return committed, nil
}

func periodMoved(before, after core.Period) bool {
	return !before.Start.SameDay(after.Start) || !before.End.SameDay(after.End)
}

// Snapshot loads a consistent in-memory snapshot for one day's computation.
// Stored periods are caught up first so the engine always sees current ones.
func (s *BudgetService) Snapshot(ctx context.Context, today core.Date) (budget.Snapshot, error) {
	if _, err := s.CatchUpPeriods(ctx, today); err != nil {
		return budget.Snapshot{}, err
	}

	var snap budget.Snapshot

	income, err := s.storage.GetIncomeSettings(ctx)
	if err != nil {
		return snap, fmt.Errorf("load income settings: %w", err)
	}
	if income != nil {
		snap.Income = *income
	}

	policy, err := s.storage.GetSavingsPolicy(ctx)
	if err != nil {
		return snap, fmt.Errorf("load savings policy: %w", err)
	}
	if policy != nil {
		snap.Savings = *policy
	}

	if snap.Fixed, err = s.storage.ListFixedExpenses(ctx); err != nil {
		return snap, fmt.Errorf("load fixed expenses: %w", err)
	}
	if snap.Future, err = s.storage.ListFutureExpenses(ctx); err != nil {
		return snap, fmt.Errorf("load future expenses: %w", err)
	}

	// Transactions matter from the start of the availability window (income
	// period or calendar month, whichever opens earlier) through today.
	from := core.NewDate(today.Year(), int(today.Month()), 1)
	if start := snap.Income.Period.Start; !start.IsEmpty() && start.Normalize().Before(from.Time) {
		from = start.Normalize()
	}
	if snap.Transactions, err = s.storage.ListTransactions(ctx, from, today); err != nil {
		return snap, fmt.Errorf("load transactions: %w", err)
	}

	return snap, nil
}

// Overview computes the full set of daily figures for today.
func (s *BudgetService) Overview(ctx context.Context, today core.Date) (budget.Overview, error) {
	snap, err := s.Snapshot(ctx, today)
	if err != nil {
		return budget.Overview{}, err
	}
	return s.calc.ComputeOverview(snap, today), nil
}

// RecordTransaction validates and appends a ledger entry, then announces it
// on the queue. A queue failure never fails the request: the entry is
// already durable in SQLite.
func (s *BudgetService) RecordTransaction(ctx context.Context, t core.Transaction) (int64, error) {
	if err := t.Validate(); err != nil {
		return 0, err
	}

	id, err := s.storage.AppendTransaction(ctx, t)
	if err != nil {
		return 0, fmt.Errorf("record transaction: %w", err)
	}
	s.logger.LogTransactionRecorded(ctx, id, t.Amount.Cents, t.Category)

	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping ledger event")
		return id, nil
	}
	if err := s.amqpClient.PublishTransactionRecorded(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			"id", id, "error", err)
	}
	return id, nil
}

// SaveIncomeSettings validates and stores the income configuration.
func (s *BudgetService) SaveIncomeSettings(ctx context.Context, settings core.IncomeSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	return s.storage.SaveIncomeSettings(ctx, settings)
}

// SaveSavingsPolicy validates and stores the savings policy.
func (s *BudgetService) SaveSavingsPolicy(ctx context.Context, policy core.SavingsPolicy) error {
	if err := policy.Validate(); err != nil {
		return err
	}
	return s.storage.SaveSavingsPolicy(ctx, policy)
}

// AddFixedExpense validates and stores a recurring expense.
func (s *BudgetService) AddFixedExpense(ctx context.Context, e core.FixedExpense) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}
	return s.storage.CreateFixedExpense(ctx, e)
}

// AddFutureExpense validates and stores a planned one-off expense.
func (s *BudgetService) AddFutureExpense(ctx context.Context, e core.FutureExpense) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}
	return s.storage.CreateFutureExpense(ctx, e)
}

// DeleteFixedExpense removes a recurring expense from the active set.
func (s *BudgetService) DeleteFixedExpense(ctx context.Context, id int64) error {
	return s.storage.DeleteFixedExpense(ctx, id)
}

// DeleteFutureExpense removes a planned expense from the active set.
func (s *BudgetService) DeleteFutureExpense(ctx context.Context, id int64) error {
	return s.storage.DeleteFutureExpense(ctx, id)
}

// ListFixedExpenses exposes the active recurring expenses.
func (s *BudgetService) ListFixedExpenses(ctx context.Context) ([]core.FixedExpense, error) {
	return s.storage.ListFixedExpenses(ctx)
}

// ListFutureExpenses exposes the active planned expenses.
func (s *BudgetService) ListFutureExpenses(ctx context.Context) ([]core.FutureExpense, error) {
	return s.storage.ListFutureExpenses(ctx)
}

// GetIncomeSettings exposes the stored income configuration (nil when unset).
func (s *BudgetService) GetIncomeSettings(ctx context.Context) (*core.IncomeSettings, error) {
	return s.storage.GetIncomeSettings(ctx)
}

// GetSavingsPolicy exposes the stored savings policy (nil when unset).
func (s *BudgetService) GetSavingsPolicy(ctx context.Context) (*core.SavingsPolicy, error) {
	return s.storage.GetSavingsPolicy(ctx)
}

// ListTransactions exposes ledger entries in a date range.
func (s *BudgetService) ListTransactions(ctx context.Context, from, to core.Date) ([]core.Transaction, error) {
	return s.storage.ListTransactions(ctx, from, to)
}

func (s *BudgetService) publishRollover(ctx context.Context, event *amqp.Event) {
	if s.amqpClient == nil {
		return
	}
	if err := s.amqpClient.PublishRolloverCommitted(ctx, event); err != nil {
		slog.ErrorContext(ctx, "Failed to publish rollover event",
			"entity", event.Rollover.Entity,
			"error", err)
	}
}

// Close closes both storage and AMQP connections.
func (s *BudgetService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close budget service: %v", errs)
	}
	return nil
}

// Today returns the current calendar date; split out so worker loops and
// handlers normalize the clock the same way.
func Today() core.Date {
	return core.DateOf(time.Now())
}
