package budget

import (
	"spendable/internal/core"
)

// Snapshot is the caller-owned state the aggregator computes over. Zero
// values are legal everywhere: an unconfigured income or savings policy
// simply contributes nothing.
type Snapshot struct {
	Income       core.IncomeSettings
	Fixed        []core.FixedExpense
	Future       []core.FutureExpense
	Savings      core.SavingsPolicy
	Transactions []core.Transaction
}

// Overview bundles the derived figures for one calendar day. It is the
// engine's complete answer to "where does today's money stand"; nothing in
// it is persisted.
type Overview struct {
	Date                core.Date `json:"date"`
	DailyIncome         float64   `json:"daily_income"`
	DailyFixedExpenses  float64   `json:"daily_fixed_expenses"`
	DailyFutureExpenses float64   `json:"daily_future_expenses"`
	DailySavings        float64   `json:"daily_savings"`
	DailyBudget         float64   `json:"daily_budget"`
	SpentToday          float64   `json:"spent_today"`
	EarnedToday         float64   `json:"earned_today"`
	Surplus             float64   `json:"surplus"`
	MonthlyAvailability float64   `json:"monthly_availability"`
	DaysUntilPayday     int       `json:"days_until_payday"`
}

// Calculator aggregates the amortization figures into daily budget numbers.
// The zero value is ready to use; set Trace to observe intermediate steps.
type Calculator struct {
	Trace TraceFunc
}

func (c Calculator) trace(event string, args ...any) {
	if c.Trace != nil {
		c.Trace(event, args...)
	}
}

// DailyIncome is the base daily allowance before deductions: the income
// amount spread over its period. The caller is expected to supply a current
// period (advanced via AdvanceIfElapsed when it had lapsed); a stale or
// unconfigured period yields 0.
func (c Calculator) DailyIncome(income core.IncomeSettings, today core.Date) float64 {
	return DailyAmount(income.Amount, income.Period, today)
}

// CalculateDailyBudget returns today's spendable amount:
// income minus fixed expenses, future-expense accrual, and savings, all
// per-day. A negative result is a valid over-committed signal, not an error.
func (c Calculator) CalculateDailyBudget(s Snapshot, today core.Date) float64 {
	income := c.DailyIncome(s.Income, today)
	fixed := DailyFixedExpenseTotal(s.Fixed, today)
	future := DailyFutureExpenseTotal(s.Future, today)
	savings := DailySavingsTarget(s.Savings, s.Income, today)

	daily := income - fixed - future - savings
	c.trace("daily_budget",
		"date", today.String(),
		"income", income,
		"fixed", fixed,
		"future", future,
		"savings", savings,
		"budget", daily)
	return daily
}

// TodayExpenseTotal sums expense transactions recorded today, matched by
// calendar date rather than timestamp.
func (c Calculator) TodayExpenseTotal(txs []core.Transaction, today core.Date) float64 {
	return sumTransactions(txs, core.TransactionExpense, today)
}

// TodayIncomeTotal sums income transactions recorded today.
func (c Calculator) TodayIncomeTotal(txs []core.Transaction, today core.Date) float64 {
	return sumTransactions(txs, core.TransactionIncome, today)
}

func sumTransactions(txs []core.Transaction, kind core.TransactionType, day core.Date) float64 {
	total := 0.0
	for _, tx := range txs {
		if tx.Type == kind && tx.Date.SameDay(day) {
			total += tx.Amount.Euros()
		}
	}
	return total
}

// BudgetSurplus is the headline number: what remains of today's allowance
// after the activity already recorded today. With no transactions it equals
// CalculateDailyBudget exactly.
func (c Calculator) BudgetSurplus(s Snapshot, today core.Date) float64 {
	budget := c.CalculateDailyBudget(s, today)
	spent := c.TodayExpenseTotal(s.Transactions, today)
	earned := c.TodayIncomeTotal(s.Transactions, today)

	surplus := budget - spent + earned
	c.trace("surplus",
		"date", today.String(),
		"budget", budget,
		"spent_today", spent,
		"earned_today", earned,
		"surplus", surplus)
	return surplus
}

// MonthlyAvailability projects the daily budget over the remainder of the
// active income period (or the calendar month when no period is configured),
// then subtracts what the period has already consumed: the net spend of its
// transactions to date. Each remaining day is computed individually because
// future-expense accrual shrinks day by day and periods can end mid-window.
func (c Calculator) MonthlyAvailability(s Snapshot, today core.Date) float64 {
	window := s.Income.Period
	if window.Days() == 0 {
		window = calendarMonth(today)
	}

	projected := 0.0
	for day := today.Normalize(); window.Contains(day); day = day.AddDays(1) {
		projected += c.CalculateDailyBudget(s, day)
	}

	netSpent := 0.0
	for _, tx := range s.Transactions {
		if !window.Contains(tx.Date) || tx.Date.Normalize().After(today.Normalize().Time) {
			continue
		}
		switch tx.Type {
		case core.TransactionExpense:
			netSpent += tx.Amount.Euros()
		case core.TransactionIncome:
			netSpent -= tx.Amount.Euros()
		}
	}

	available := projected - netSpent
	c.trace("monthly_availability",
		"date", today.String(),
		"window", window.String(),
		"projected", projected,
		"net_spent", netSpent,
		"available", available)
	return available
}

// DaysUntilPayday returns how many days of the income period remain, rolling
// a lapsed repeating period forward first. Elapsed non-repeating income
// means payday is unknown: 0.
func (c Calculator) DaysUntilPayday(income core.IncomeSettings, today core.Date) int {
	return income.Period.AdvanceIfElapsed(today).DaysRemaining(today)
}

// ComputeOverview evaluates every aggregate for one day in a single pass.
func (c Calculator) ComputeOverview(s Snapshot, today core.Date) Overview {
	day := today.Normalize()
	return Overview{
		Date:                day,
		DailyIncome:         c.DailyIncome(s.Income, day),
		DailyFixedExpenses:  DailyFixedExpenseTotal(s.Fixed, day),
		DailyFutureExpenses: DailyFutureExpenseTotal(s.Future, day),
		DailySavings:        DailySavingsTarget(s.Savings, s.Income, day),
		DailyBudget:         c.CalculateDailyBudget(s, day),
		SpentToday:          c.TodayExpenseTotal(s.Transactions, day),
		EarnedToday:         c.TodayIncomeTotal(s.Transactions, day),
		Surplus:             c.BudgetSurplus(s, day),
		MonthlyAvailability: c.MonthlyAvailability(s, day),
		DaysUntilPayday:     c.DaysUntilPayday(s.Income, day),
	}
}

// calendarMonth is the fallback availability window: the month containing
// the given day.
func calendarMonth(day core.Date) core.Period {
	d := day.Normalize()
	first := core.NewDate(d.Year(), int(d.Month()), 1)
	last := first.AddDays(daysInMonth(d.Year(), int(d.Month())) - 1)
	return core.NewPeriod(first, last, false)
}

func daysInMonth(year, month int) int {
	return core.NewDate(year, month+1, 1).AddDays(-1).Day()
}
