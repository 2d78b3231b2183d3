package core

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

const (
	TransactionIncome  TransactionType = "income"
	TransactionExpense TransactionType = "expense"

	SavingsPercentage SavingsMode = "percentage"
	SavingsFixed      SavingsMode = "fixed"
)

type (
	TransactionType string

	SavingsMode string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// IncomeSettings is the single income configuration for the profile:
	// a lump amount earned over one (possibly repeating) period.
	IncomeSettings struct {
		Amount Money
		Period Period
	}

	// FixedExpense is a recurring lump cost (rent, insurance) amortized
	// across its own period, independent of the income period.
	FixedExpense struct {
		ID          int64 // Database ID for operations
		Description string
		Amount      Money
		Period      Period
	}

	// FutureExpense is a one-off upcoming cost amortized over the shrinking
	// window between today and its due date.
	FutureExpense struct {
		ID          int64
		Description string
		Amount      Money
		DueDate     Date
	}

	// SavingsPolicy describes how much of the income period should be put
	// aside: either a percentage of the income amount or a fixed sum.
	SavingsPolicy struct {
		Mode        SavingsMode
		Percentage  float64
		FixedAmount Money
		Period      Period
	}

	// Transaction is an append-only ledger entry. Transactions only adjust
	// today's surplus; they never feed back into amortization.
	Transaction struct {
		ID       int64
		Amount   Money
		Type     TransactionType
		Date     Date
		Category string
	}
)

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidPeriod     = errors.New("invalid period")
	ErrInvalidDueDate    = errors.New("invalid due date")
	ErrInvalidType       = errors.New("invalid transaction type")
	ErrInvalidMode       = errors.New("invalid savings mode")
	ErrInvalidPercentage = errors.New("percentage must be between 0 and 100")
	ErrEmptyDescription  = errors.New("empty description")
)

// NewDate creates a calendar date at local midnight.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.Local)}
}

// DateOf truncates an instant to its calendar date, dropping time-of-day.
// All engine comparisons go through this normalization.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate reads a YYYY-MM-DD string into a local-midnight date.
func ParseDate(s string) (Date, error) {
	t, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// IsEmpty returns true for the zero date (unset optional dates).
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// Normalize returns the date snapped to local midnight.
func (d Date) Normalize() Date {
	if d.IsZero() {
		return d
	}
	return DateOf(d.Time)
}

// AddDays steps the calendar date by n days (calendar-aware, DST-safe).
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Normalize().AddDate(0, 0, n)}
}

// SameDay reports calendar-date equality regardless of time-of-day.
func (d Date) SameDay(other Date) bool {
	return d.Year() == other.Year() && d.YearDay() == other.YearDay()
}

// DaysBetween counts calendar days from a to b (negative when b precedes a).
// It steps whole dates rather than dividing a duration, so daylight-saving
// transitions cannot skew the count.
func DaysBetween(a, b Date) int {
	from := a.Normalize()
	to := b.Normalize()
	if from.After(to.Time) {
		return -DaysBetween(to, from)
	}
	days := 0
	for from.Before(to.Time) {
		from = from.AddDays(1)
		days++
	}
	return days
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

// String formats the date as YYYY-MM-DD, the storage and wire format.
func (d Date) String() string {
	return d.Format("2006-01-02")
}

// MarshalJSON emits the date in the YYYY-MM-DD wire format.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON accepts a YYYY-MM-DD string; empty means the zero date.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return err
	}
	*d = Date{Time: t}
	return nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (s IncomeSettings) Validate() error {
	if err := s.Amount.Validate(); err != nil {
		return err
	}
	return s.Period.Validate()
}

func (e FixedExpense) Validate() error {
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(e.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	return e.Period.Validate()
}

func (e FutureExpense) Validate() error {
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(e.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if e.DueDate.IsZero() {
		return ErrInvalidDueDate
	}
	return nil
}

func (p SavingsPolicy) Validate() error {
	switch p.Mode {
	case SavingsPercentage:
		if p.Percentage < 0 || p.Percentage > 100 {
			return ErrInvalidPercentage
		}
	case SavingsFixed:
		if err := p.FixedAmount.Validate(); err != nil {
			return err
		}
	default:
		return ErrInvalidMode
	}
	return p.Period.Validate()
}

func (t Transaction) Validate() error {
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	switch t.Type {
	case TransactionIncome, TransactionExpense:
	default:
		return ErrInvalidType
	}
	return t.Date.Validate()
}
