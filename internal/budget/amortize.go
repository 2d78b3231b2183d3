// Package budget implements the period-based amortization engine: it spreads
// lump amounts (income, fixed expenses, planned future expenses, savings
// targets) into per-day euro contributions and aggregates them into the
// amount that can safely be spent today.
//
// Every function here is a pure computation over a snapshot owned by the
// caller. Nothing is mutated, nothing is read from the environment, and
// malformed input (missing dates, zero-length periods) degrades to a zero
// contribution instead of an error, so a partially configured budget still
// renders a defined number.
package budget

import (
	"spendable/internal/core"
)

// TraceFunc receives computation steps for diagnostics. The engine never
// logs on its own; callers that want visibility inject a trace callback
// (typically backed by slog) and leave it nil otherwise.
type TraceFunc func(event string, args ...any)

// DailyAmount spreads a lump amount evenly across the days of its period.
// It returns the per-day euro contribution while today falls inside the
// period, and 0 when the period is inactive or has no measurable length.
func DailyAmount(total core.Money, p core.Period, today core.Date) float64 {
	days := p.Days()
	if days == 0 || !p.Contains(today) {
		return 0
	}
	return total.Euros() / float64(days)
}

// DailyFixedExpenseTotal sums the per-day contribution of every fixed
// expense active today. A repeating expense whose period lapsed between
// recomputation cycles has not necessarily been rolled over in storage yet,
// so an inactive repeating period is also checked against its caught-up
// successor before being counted as zero.
func DailyFixedExpenseTotal(fixed []core.FixedExpense, today core.Date) float64 {
	total := 0.0
	for _, e := range fixed {
		contribution := DailyAmount(e.Amount, e.Period, today)
		if contribution == 0 && e.Period.Repeating {
			contribution = DailyAmount(e.Amount, e.Period.AdvanceIfElapsed(today), today)
		}
		total += contribution
	}
	return total
}

// DaysUntil counts the days from today until a due date. Due today or in the
// past yields 0.
func DaysUntil(due, today core.Date) int {
	days := core.DaysBetween(today, due)
	if days < 0 {
		return 0
	}
	return days
}

// DailyFutureExpenseTotal sums the shrinking-window contributions of the
// planned one-off expenses. An expense due tomorrow contributes its full
// amount; one due today or earlier contributes nothing. It stays in the
// list, since removal is a user action, not the engine's.
func DailyFutureExpenseTotal(future []core.FutureExpense, today core.Date) float64 {
	total := 0.0
	for _, e := range future {
		remaining := DaysUntil(e.DueDate, today)
		if remaining == 0 {
			continue
		}
		total += e.Amount.Euros() / float64(remaining)
	}
	return total
}

// TargetAmount resolves the savings goal for the policy period: a share of
// the income amount in percentage mode, the configured sum in fixed mode,
// and zero for an unset policy.
func TargetAmount(policy core.SavingsPolicy, income core.IncomeSettings) core.Money {
	switch policy.Mode {
	case core.SavingsPercentage:
		return core.MoneyFromEuros(income.Amount.Euros() * policy.Percentage / 100)
	case core.SavingsFixed:
		return policy.FixedAmount
	default:
		return core.Money{}
	}
}

// DailySavingsTarget amortizes the savings goal across the policy period.
func DailySavingsTarget(policy core.SavingsPolicy, income core.IncomeSettings, today core.Date) float64 {
	return DailyAmount(TargetAmount(policy, income), policy.Period, today)
}
