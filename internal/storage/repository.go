// Package storage is the persistence gateway: a thin SQLite-backed store for
// the budget entities. It owns no business logic: the engine reads whatever
// snapshot the caller assembled from here and hands back updated periods for
// the caller to commit.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"spendable/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const dateLayout = "2006-01-02"

func formatDate(d core.Date) string {
	return d.Normalize().Format(dateLayout)
}

func parseDate(s string) (core.Date, error) {
	t, err := time.ParseInLocation(dateLayout, s, time.Local)
	if err != nil {
		return core.Date{}, fmt.Errorf("parse stored date %q: %w", s, err)
	}
	return core.DateOf(t), nil
}

func scanPeriod(start, end string, repeating int64) (core.Period, error) {
	s, err := parseDate(start)
	if err != nil {
		return core.Period{}, err
	}
	e, err := parseDate(end)
	if err != nil {
		return core.Period{}, err
	}
	return core.NewPeriod(s, e, repeating != 0), nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// GetIncomeSettings returns the stored income configuration, or nil when the
// profile has not completed income setup yet.
func (r *SQLiteRepository) GetIncomeSettings(ctx context.Context) (*core.IncomeSettings, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT amount_cents, period_start, period_end, repeating FROM income_settings WHERE id = 1`)

	var cents, repeating int64
	var start, end string
	if err := row.Scan(&cents, &start, &end, &repeating); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get income settings: %w", err)
	}

	period, err := scanPeriod(start, end, repeating)
	if err != nil {
		return nil, err
	}
	return &core.IncomeSettings{Amount: core.Money{Cents: cents}, Period: period}, nil
}

// SaveIncomeSettings upserts the single income configuration row.
func (r *SQLiteRepository) SaveIncomeSettings(ctx context.Context, s core.IncomeSettings) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO income_settings (id, amount_cents, period_start, period_end, repeating, updated_at)
		VALUES (1, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (id) DO UPDATE SET
			amount_cents = excluded.amount_cents,
			period_start = excluded.period_start,
			period_end = excluded.period_end,
			repeating = excluded.repeating,
			updated_at = CURRENT_TIMESTAMP`,
		s.Amount.Cents, formatDate(s.Period.Start), formatDate(s.Period.End), boolToInt(s.Period.Repeating))
	if err != nil {
		return fmt.Errorf("save income settings: %w", err)
	}

	slog.InfoContext(ctx, "Income settings saved",
		"amount_cents", s.Amount.Cents,
		"period", s.Period.String())
	return nil
}

// CommitIncomePeriod writes back an advanced income period. This is the
// explicit second half of a rollover; the calculation itself never touches
// storage.
func (r *SQLiteRepository) CommitIncomePeriod(ctx context.Context, p core.Period) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE income_settings
		SET period_start = ?, period_end = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = 1`,
		formatDate(p.Start), formatDate(p.End))
	if err != nil {
		return fmt.Errorf("commit income period: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.New("commit income period: no income settings configured")
	}

	slog.InfoContext(ctx, "Income period rolled over", "period", p.String())
	return nil
}

// GetSavingsPolicy returns the stored savings policy, or nil when unset.
func (r *SQLiteRepository) GetSavingsPolicy(ctx context.Context) (*core.SavingsPolicy, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT mode, percentage, fixed_amount_cents, period_start, period_end, repeating
		 FROM savings_policy WHERE id = 1`)

	var mode, start, end string
	var percentage float64
	var fixedCents, repeating int64
	if err := row.Scan(&mode, &percentage, &fixedCents, &start, &end, &repeating); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get savings policy: %w", err)
	}

	period, err := scanPeriod(start, end, repeating)
	if err != nil {
		return nil, err
	}
	return &core.SavingsPolicy{
		Mode:        core.SavingsMode(mode),
		Percentage:  percentage,
		FixedAmount: core.Money{Cents: fixedCents},
		Period:      period,
	}, nil
}

// SaveSavingsPolicy upserts the single savings policy row.
func (r *SQLiteRepository) SaveSavingsPolicy(ctx context.Context, p core.SavingsPolicy) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO savings_policy (id, mode, percentage, fixed_amount_cents, period_start, period_end, repeating, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (id) DO UPDATE SET
			mode = excluded.mode,
			percentage = excluded.percentage,
			fixed_amount_cents = excluded.fixed_amount_cents,
			period_start = excluded.period_start,
			period_end = excluded.period_end,
			repeating = excluded.repeating,
			updated_at = CURRENT_TIMESTAMP`,
		string(p.Mode), p.Percentage, p.FixedAmount.Cents,
		formatDate(p.Period.Start), formatDate(p.Period.End), boolToInt(p.Period.Repeating))
	if err != nil {
		return fmt.Errorf("save savings policy: %w", err)
	}

	slog.InfoContext(ctx, "Savings policy saved",
		"mode", string(p.Mode),
		"period", p.Period.String())
	return nil
}

// CommitSavingsPeriod writes back an advanced savings period.
func (r *SQLiteRepository) CommitSavingsPeriod(ctx context.Context, p core.Period) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE savings_policy
		SET period_start = ?, period_end = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = 1`,
		formatDate(p.Start), formatDate(p.End))
	if err != nil {
		return fmt.Errorf("commit savings period: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.New("commit savings period: no savings policy configured")
	}

	slog.InfoContext(ctx, "Savings period rolled over", "period", p.String())
	return nil
}

// CreateFixedExpense stores a recurring lump expense and returns its ID.
func (r *SQLiteRepository) CreateFixedExpense(ctx context.Context, e core.FixedExpense) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO fixed_expenses (description, amount_cents, period_start, period_end, repeating)
		VALUES (?, ?, ?, ?, ?)`,
		e.Description, e.Amount.Cents,
		formatDate(e.Period.Start), formatDate(e.Period.End), boolToInt(e.Period.Repeating))
	if err != nil {
		return 0, fmt.Errorf("create fixed expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("fixed expense id: %w", err)
	}

	slog.InfoContext(ctx, "Fixed expense saved",
		"id", id,
		"description", e.Description,
		"amount_cents", e.Amount.Cents)
	return id, nil
}

// ListFixedExpenses returns all non-deleted fixed expenses, oldest first.
func (r *SQLiteRepository) ListFixedExpenses(ctx context.Context) ([]core.FixedExpense, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, description, amount_cents, period_start, period_end, repeating
		FROM fixed_expenses WHERE deleted_at IS NULL ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list fixed expenses: %w", err)
	}
	defer rows.Close()

	var out []core.FixedExpense
	for rows.Next() {
		var e core.FixedExpense
		var start, end string
		var repeating int64
		if err := rows.Scan(&e.ID, &e.Description, &e.Amount.Cents, &start, &end, &repeating); err != nil {
			return nil, fmt.Errorf("scan fixed expense: %w", err)
		}
		if e.Period, err = scanPeriod(start, end, repeating); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// DeleteFixedExpense soft deletes; history stays queryable.
func (r *SQLiteRepository) DeleteFixedExpense(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE fixed_expenses SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("delete fixed expense: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CommitFixedExpensePeriod writes back the advanced period of one expense.
func (r *SQLiteRepository) CommitFixedExpensePeriod(ctx context.Context, id int64, p core.Period) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE fixed_expenses SET period_start = ?, period_end = ?
		WHERE id = ? AND deleted_at IS NULL`,
		formatDate(p.Start), formatDate(p.End), id)
	if err != nil {
		return fmt.Errorf("commit fixed expense period: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}

	slog.InfoContext(ctx, "Fixed expense period rolled over", "id", id, "period", p.String())
	return nil
}

// CreateFutureExpense stores a planned one-off expense and returns its ID.
func (r *SQLiteRepository) CreateFutureExpense(ctx context.Context, e core.FutureExpense) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO future_expenses (description, amount_cents, due_date)
		VALUES (?, ?, ?)`,
		e.Description, e.Amount.Cents, formatDate(e.DueDate))
	if err != nil {
		return 0, fmt.Errorf("create future expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("future expense id: %w", err)
	}

	slog.InfoContext(ctx, "Future expense saved",
		"id", id,
		"description", e.Description,
		"amount_cents", e.Amount.Cents,
		"due_date", formatDate(e.DueDate))
	return id, nil
}

// ListFutureExpenses returns all non-deleted future expenses ordered by due
// date. Overdue entries are included: dropping them is a user decision.
func (r *SQLiteRepository) ListFutureExpenses(ctx context.Context) ([]core.FutureExpense, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, description, amount_cents, due_date
		FROM future_expenses WHERE deleted_at IS NULL ORDER BY due_date, id`)
	if err != nil {
		return nil, fmt.Errorf("list future expenses: %w", err)
	}
	defer rows.Close()

	var out []core.FutureExpense
	for rows.Next() {
		var e core.FutureExpense
		var due string
		if err := rows.Scan(&e.ID, &e.Description, &e.Amount.Cents, &due); err != nil {
			return nil, fmt.Errorf("scan future expense: %w", err)
		}
		if e.DueDate, err = parseDate(due); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// DeleteFutureExpense soft deletes a planned expense.
func (r *SQLiteRepository) DeleteFutureExpense(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE future_expenses SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("delete future expense: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// AppendTransaction adds a ledger entry and returns its ID. The ledger is
// append-only; corrections are compensating entries, not updates.
func (r *SQLiteRepository) AppendTransaction(ctx context.Context, t core.Transaction) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (amount_cents, type, tx_date, category)
		VALUES (?, ?, ?, ?)`,
		t.Amount.Cents, string(t.Type), formatDate(t.Date), t.Category)
	if err != nil {
		return 0, fmt.Errorf("append transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("transaction id: %w", err)
	}

	slog.InfoContext(ctx, "Transaction recorded",
		"id", id,
		"type", string(t.Type),
		"amount_cents", t.Amount.Cents,
		"date", formatDate(t.Date))
	return id, nil
}

// GetTransaction fetches a single ledger entry by ID.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (*core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, amount_cents, type, tx_date, category
		FROM transactions WHERE id = ? AND deleted_at IS NULL`, id)

	var t core.Transaction
	var kind, date string
	if err := row.Scan(&t.ID, &t.Amount.Cents, &kind, &date, &t.Category); err != nil {
		return nil, fmt.Errorf("get transaction %d: %w", id, err)
	}
	t.Type = core.TransactionType(kind)
	var err error
	if t.Date, err = parseDate(date); err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTransactions returns ledger entries with tx_date in [from, to]
// inclusive, oldest first.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, from, to core.Date) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, amount_cents, type, tx_date, category
		FROM transactions
		WHERE deleted_at IS NULL AND tx_date >= ? AND tx_date <= ?
		ORDER BY tx_date, id`,
		formatDate(from), formatDate(to))
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var t core.Transaction
		var kind, date string
		if err := rows.Scan(&t.ID, &t.Amount.Cents, &kind, &date, &t.Category); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Type = core.TransactionType(kind)
		if t.Date, err = parseDate(date); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
