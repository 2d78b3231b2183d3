// Package memory is an in-process LedgerWriter used in tests and when no
// spreadsheet is configured.
package memory

import (
	"context"
	"fmt"
	"sync"

	"spendable/internal/core"
)

type Row struct {
	Kind        string
	Transaction core.Transaction
	Entity      string
	Period      core.Period
}

type Store struct {
	mu   sync.Mutex
	rows []Row
}

func New() *Store {
	return &Store{}
}

// AppendTransaction stores the entry and returns a synthetic row reference.
func (s *Store) AppendTransaction(_ context.Context, t core.Transaction) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, Row{Kind: "transaction", Transaction: t})
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

// AppendRollover stores the period advancement.
func (s *Store) AppendRollover(_ context.Context, entity string, p core.Period) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, Row{Kind: "rollover", Entity: entity, Period: p})
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

// Rows returns a copy of everything appended so far.
func (s *Store) Rows() []Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Row, len(s.rows))
	copy(out, s.rows)
	return out
}
