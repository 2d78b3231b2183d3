package services

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"spendable/internal/core"
	"spendable/internal/storage"
)

func newTestService(t *testing.T) *BudgetService {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "spendable.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return NewBudgetService(repo, nil)
}

func seedJune(t *testing.T, svc *BudgetService) {
	t.Helper()
	ctx := context.Background()
	june := core.NewPeriod(core.NewDate(2025, 6, 1), core.NewDate(2025, 6, 30), true)

	if err := svc.SaveIncomeSettings(ctx, core.IncomeSettings{
		Amount: core.Money{Cents: 300000},
		Period: june,
	}); err != nil {
		t.Fatalf("save income: %v", err)
	}
	if err := svc.SaveSavingsPolicy(ctx, core.SavingsPolicy{
		Mode:       core.SavingsPercentage,
		Percentage: 10,
		Period:     june,
	}); err != nil {
		t.Fatalf("save savings: %v", err)
	}
	if _, err := svc.AddFixedExpense(ctx, core.FixedExpense{
		Description: "rent",
		Amount:      core.Money{Cents: 90000},
		Period:      june,
	}); err != nil {
		t.Fatalf("add fixed expense: %v", err)
	}
}

func TestOverviewMidMonth(t *testing.T) {
	svc := newTestService(t)
	seedJune(t, svc)
	ctx := context.Background()

	today := core.NewDate(2025, 6, 15)
	if _, err := svc.RecordTransaction(ctx, core.Transaction{
		Amount:   core.Money{Cents: 4500},
		Type:     core.TransactionExpense,
		Date:     today,
		Category: "groceries",
	}); err != nil {
		t.Fatalf("record transaction: %v", err)
	}

	ov, err := svc.Overview(ctx, today)
	if err != nil {
		t.Fatalf("overview: %v", err)
	}

	// 100 income - 30 rent - 10 savings = 60 budget, minus 45 spent = 15.
	if math.Abs(ov.DailyBudget-60) > 1e-9 {
		t.Errorf("DailyBudget = %v, want 60", ov.DailyBudget)
	}
	if math.Abs(ov.SpentToday-45) > 1e-9 {
		t.Errorf("SpentToday = %v, want 45", ov.SpentToday)
	}
	if math.Abs(ov.Surplus-15) > 1e-9 {
		t.Errorf("Surplus = %v, want 15", ov.Surplus)
	}
	if ov.DaysUntilPayday != 16 {
		t.Errorf("DaysUntilPayday = %d, want 16", ov.DaysUntilPayday)
	}
}

func TestOverviewWithoutSetup(t *testing.T) {
	svc := newTestService(t)

	ov, err := svc.Overview(context.Background(), core.NewDate(2025, 6, 15))
	if err != nil {
		t.Fatalf("overview on empty store: %v", err)
	}
	if ov.DailyBudget != 0 || ov.Surplus != 0 || ov.MonthlyAvailability != 0 {
		t.Errorf("empty store must yield zero figures, got %+v", ov)
	}
}

func TestCatchUpPeriodsCommitsAndPersists(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	// Weekly income period long elapsed by the processing date.
	if err := svc.SaveIncomeSettings(ctx, core.IncomeSettings{
		Amount: core.Money{Cents: 70000},
		Period: core.NewPeriod(core.NewDate(2025, 5, 1), core.NewDate(2025, 5, 7), true),
	}); err != nil {
		t.Fatalf("save income: %v", err)
	}
	if _, err := svc.AddFixedExpense(ctx, core.FixedExpense{
		Description: "gym",
		Amount:      core.Money{Cents: 1400},
		Period:      core.NewPeriod(core.NewDate(2025, 5, 1), core.NewDate(2025, 5, 7), true),
	}); err != nil {
		t.Fatalf("add fixed expense: %v", err)
	}

	today := core.NewDate(2025, 5, 17)
	count, err := svc.CatchUpPeriods(ctx, today)
	if err != nil {
		t.Fatalf("catch up: %v", err)
	}
	if count != 2 {
		t.Errorf("rolled over %d periods, want 2", count)
	}

	income, err := svc.GetIncomeSettings(ctx)
	if err != nil {
		t.Fatalf("reload income: %v", err)
	}
	wantStart := core.NewDate(2025, 5, 15)
	wantEnd := core.NewDate(2025, 5, 21)
	if !income.Period.Start.SameDay(wantStart) || !income.Period.End.SameDay(wantEnd) {
		t.Errorf("committed period = %s, want %s..%s", income.Period, wantStart, wantEnd)
	}

	// Second pass on the same day is a no-op.
	count, err = svc.CatchUpPeriods(ctx, today)
	if err != nil {
		t.Fatalf("second catch up: %v", err)
	}
	if count != 0 {
		t.Errorf("second pass rolled over %d periods, want 0", count)
	}
}

func TestCatchUpSkipsCurrentAndOneShotPeriods(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	current := core.NewPeriod(core.NewDate(2025, 6, 1), core.NewDate(2025, 6, 30), true)
	if err := svc.SaveIncomeSettings(ctx, core.IncomeSettings{
		Amount: core.Money{Cents: 300000},
		Period: current,
	}); err != nil {
		t.Fatalf("save income: %v", err)
	}
	if _, err := svc.AddFixedExpense(ctx, core.FixedExpense{
		Description: "course",
		Amount:      core.Money{Cents: 5000},
		Period:      core.NewPeriod(core.NewDate(2025, 5, 1), core.NewDate(2025, 5, 31), false),
	}); err != nil {
		t.Fatalf("add fixed expense: %v", err)
	}

	count, err := svc.CatchUpPeriods(ctx, core.NewDate(2025, 6, 15))
	if err != nil {
		t.Fatalf("catch up: %v", err)
	}
	if count != 0 {
		t.Errorf("rolled over %d periods, want 0", count)
	}
}

func TestRecordTransactionValidates(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.RecordTransaction(context.Background(), core.Transaction{
		Amount: core.Money{Cents: -100},
		Type:   core.TransactionExpense,
		Date:   core.NewDate(2025, 6, 15),
	})
	if err == nil {
		t.Fatal("negative amount must be rejected")
	}
}

func TestProcessRollovers(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if err := svc.SaveIncomeSettings(ctx, core.IncomeSettings{
		Amount: core.Money{Cents: 70000},
		Period: core.NewPeriod(core.NewDate(2025, 5, 1), core.NewDate(2025, 5, 7), true),
	}); err != nil {
		t.Fatalf("save income: %v", err)
	}

	processor := NewRolloverProcessor(svc)
	now := time.Date(2025, 5, 17, 9, 30, 0, 0, time.Local)
	count, err := processor.ProcessRollovers(ctx, now)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if count != 1 {
		t.Errorf("rolled over %d periods, want 1", count)
	}

	uninitialized := NewRolloverProcessor(nil)
	if _, err := uninitialized.ProcessRollovers(ctx, now); err == nil {
		t.Error("uninitialized processor must fail")
	}
}
