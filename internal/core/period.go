package core

// Period is an inclusive date range [Start, End], the unit over which a lump
// amount is amortized. Repeating periods roll over to the immediately
// following range of the same length once they have fully elapsed.
type Period struct {
	Start     Date
	End       Date
	Repeating bool
}

// NewPeriod builds a period from two dates, normalized to local midnight.
func NewPeriod(start, end Date, repeating bool) Period {
	return Period{Start: start.Normalize(), End: end.Normalize(), Repeating: repeating}
}

// Validate rejects missing or inverted ranges. Construction-time only: the
// pure calculations below assume Start <= End and degrade to zero instead of
// failing when dates are missing.
func (p Period) Validate() error {
	if p.Start.IsZero() || p.End.IsZero() {
		return ErrInvalidPeriod
	}
	if p.End.Normalize().Before(p.Start.Normalize().Time) {
		return ErrInvalidPeriod
	}
	return nil
}

// Days returns the inclusive day count of the period, counted by stepping
// calendar days. A period with Start == End has one day. Returns 0 when
// either date is missing.
func (p Period) Days() int {
	if p.Start.IsZero() || p.End.IsZero() {
		return 0
	}
	return DaysBetween(p.Start, p.End) + 1
}

// Contains reports whether today falls inside [Start, End] inclusive.
func (p Period) Contains(today Date) bool {
	if p.Start.IsZero() || p.End.IsZero() {
		return false
	}
	d := today.Normalize()
	return !d.Before(p.Start.Normalize().Time) && !d.After(p.End.Normalize().Time)
}

// DaysRemaining returns the inclusive count of days from today through End,
// or 0 once the period has elapsed.
func (p Period) DaysRemaining(today Date) int {
	if p.End.IsZero() {
		return 0
	}
	remaining := DaysBetween(today, p.End) + 1
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Next derives the immediately following period of the same length.
// The second return is false when the period does not repeat or its dates
// are missing.
func (p Period) Next() (Period, bool) {
	if !p.Repeating || p.Days() == 0 {
		return Period{}, false
	}
	start := p.End.AddDays(1)
	return Period{
		Start:     start,
		End:       start.AddDays(p.Days() - 1),
		Repeating: true,
	}, true
}

// AdvanceIfElapsed rolls a repeating period forward past today in a single
// step. When today is beyond End it shifts by ceil(daysPast / length) whole
// periods, so a long-idle installation catches up with one calculation.
// Non-repeating or still-active periods come back unchanged. The result is
// stable: applying it again with the same today is a no-op.
func (p Period) AdvanceIfElapsed(today Date) Period {
	length := p.Days()
	if !p.Repeating || length == 0 {
		return p
	}
	daysPast := DaysBetween(p.End, today)
	if daysPast <= 0 {
		return p
	}
	periodsToAdd := (daysPast + length - 1) / length
	shift := periodsToAdd * length
	return Period{
		Start:     p.Start.AddDays(shift),
		End:       p.End.AddDays(shift),
		Repeating: true,
	}
}

// String renders the period as "[start, end]" for logs.
func (p Period) String() string {
	s := "[" + p.Start.String() + ", " + p.End.String() + "]"
	if p.Repeating {
		s += " repeating"
	}
	return s
}
