package memory

import (
	"context"
	"testing"

	"spendable/internal/core"
)

func TestAppendTransaction(t *testing.T) {
	s := New()
	ctx := context.Background()

	ref, err := s.AppendTransaction(ctx, core.Transaction{
		Amount:   core.Money{Cents: 4500},
		Type:     core.TransactionExpense,
		Date:     core.NewDate(2025, 6, 15),
		Category: "groceries",
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if ref != "mem:1" {
		t.Errorf("ref = %q, want mem:1", ref)
	}

	rows := s.Rows()
	if len(rows) != 1 || rows[0].Kind != "transaction" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
	if rows[0].Transaction.Amount.Cents != 4500 {
		t.Errorf("stored amount = %d", rows[0].Transaction.Amount.Cents)
	}
}

func TestAppendTransactionValidates(t *testing.T) {
	s := New()

	_, err := s.AppendTransaction(context.Background(), core.Transaction{
		Amount: core.Money{Cents: 0},
		Type:   core.TransactionExpense,
		Date:   core.NewDate(2025, 6, 15),
	})
	if err == nil {
		t.Fatal("zero amount must be rejected")
	}
	if len(s.Rows()) != 0 {
		t.Error("invalid entry must not be stored")
	}
}

func TestAppendRollover(t *testing.T) {
	s := New()

	period := core.NewPeriod(core.NewDate(2025, 7, 1), core.NewDate(2025, 7, 31), true)
	ref, err := s.AppendRollover(context.Background(), "income", period)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if ref != "mem:1" {
		t.Errorf("ref = %q, want mem:1", ref)
	}

	rows := s.Rows()
	if len(rows) != 1 || rows[0].Kind != "rollover" || rows[0].Entity != "income" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}
