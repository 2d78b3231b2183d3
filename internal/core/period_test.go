package core

import "testing"

func TestPeriodDays(t *testing.T) {
	cases := []struct {
		name string
		p    Period
		want int
	}{
		{"single day", NewPeriod(NewDate(2025, 3, 10), NewDate(2025, 3, 10), false), 1},
		{"thirty days", NewPeriod(NewDate(2025, 6, 1), NewDate(2025, 6, 30), false), 30},
		{"across month boundary", NewPeriod(NewDate(2025, 1, 25), NewDate(2025, 2, 5), false), 12},
		{"across DST transition", NewPeriod(NewDate(2025, 3, 28), NewDate(2025, 4, 2), false), 6},
		{"missing start", Period{End: NewDate(2025, 1, 1)}, 0},
		{"missing end", Period{Start: NewDate(2025, 1, 1)}, 0},
		{"empty", Period{}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.p.Days(); got != tc.want {
				t.Errorf("Days() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestPeriodContains(t *testing.T) {
	p := NewPeriod(NewDate(2025, 5, 1), NewDate(2025, 5, 31), false)

	cases := []struct {
		name  string
		today Date
		want  bool
	}{
		{"first day", NewDate(2025, 5, 1), true},
		{"last day", NewDate(2025, 5, 31), true},
		{"middle", NewDate(2025, 5, 15), true},
		{"day before", NewDate(2025, 4, 30), false},
		{"day after", NewDate(2025, 6, 1), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := p.Contains(tc.today); got != tc.want {
				t.Errorf("Contains(%s) = %v, want %v", tc.today, got, tc.want)
			}
		})
	}

	if (Period{}).Contains(NewDate(2025, 5, 1)) {
		t.Error("empty period must contain nothing")
	}
}

func TestPeriodDaysRemaining(t *testing.T) {
	p := NewPeriod(NewDate(2025, 5, 1), NewDate(2025, 5, 31), false)

	cases := []struct {
		name  string
		today Date
		want  int
	}{
		{"on start equals full length", NewDate(2025, 5, 1), 31},
		{"on end", NewDate(2025, 5, 31), 1},
		{"mid period", NewDate(2025, 5, 30), 2},
		{"elapsed", NewDate(2025, 6, 2), 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := p.DaysRemaining(tc.today); got != tc.want {
				t.Errorf("DaysRemaining(%s) = %d, want %d", tc.today, got, tc.want)
			}
		})
	}
}

func TestPeriodNext(t *testing.T) {
	p := NewPeriod(NewDate(2025, 5, 1), NewDate(2025, 5, 31), true)

	next, ok := p.Next()
	if !ok {
		t.Fatal("expected a next period for a repeating period")
	}
	if !next.Start.SameDay(p.End.AddDays(1)) {
		t.Errorf("next start = %s, want %s", next.Start, p.End.AddDays(1))
	}
	if next.Days() != p.Days() {
		t.Errorf("next length = %d, want %d", next.Days(), p.Days())
	}
	if !next.Repeating {
		t.Error("next period must stay repeating")
	}

	frozen := NewPeriod(NewDate(2025, 5, 1), NewDate(2025, 5, 31), false)
	if _, ok := frozen.Next(); ok {
		t.Error("non-repeating period must not produce a next period")
	}
	if _, ok := (Period{Repeating: true}).Next(); ok {
		t.Error("period without dates must not produce a next period")
	}
}

func TestPeriodAdvanceIfElapsed(t *testing.T) {
	cases := []struct {
		name      string
		p         Period
		today     Date
		wantStart Date
		wantEnd   Date
	}{
		{
			name:      "still active stays put",
			p:         NewPeriod(NewDate(2025, 5, 1), NewDate(2025, 5, 7), true),
			today:     NewDate(2025, 5, 7),
			wantStart: NewDate(2025, 5, 1),
			wantEnd:   NewDate(2025, 5, 7),
		},
		{
			name:      "one day past advances one period",
			p:         NewPeriod(NewDate(2025, 5, 1), NewDate(2025, 5, 7), true),
			today:     NewDate(2025, 5, 8),
			wantStart: NewDate(2025, 5, 8),
			wantEnd:   NewDate(2025, 5, 14),
		},
		{
			// 7-day period that ended 10 days ago: ceil(10/7) = 2 periods,
			// new end lands 4 days from today.
			name:      "long idle catches up in one step",
			p:         NewPeriod(NewDate(2025, 5, 1), NewDate(2025, 5, 7), true),
			today:     NewDate(2025, 5, 17),
			wantStart: NewDate(2025, 5, 15),
			wantEnd:   NewDate(2025, 5, 21),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.p.AdvanceIfElapsed(tc.today)
			if !got.Start.SameDay(tc.wantStart) || !got.End.SameDay(tc.wantEnd) {
				t.Errorf("advanced to %s, want [%s, %s]", got, tc.wantStart, tc.wantEnd)
			}
			again := got.AdvanceIfElapsed(tc.today)
			if !again.Start.SameDay(got.Start) || !again.End.SameDay(got.End) {
				t.Errorf("second advance moved the period: %s -> %s", got, again)
			}
		})
	}

	frozen := NewPeriod(NewDate(2025, 5, 1), NewDate(2025, 5, 7), false)
	got := frozen.AdvanceIfElapsed(NewDate(2025, 6, 1))
	if !got.Start.SameDay(frozen.Start) || !got.End.SameDay(frozen.End) {
		t.Error("non-repeating period must never advance")
	}
}

func TestPeriodValidate(t *testing.T) {
	if err := NewPeriod(NewDate(2025, 1, 1), NewDate(2025, 1, 31), false).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	bads := []Period{
		{},
		{Start: NewDate(2025, 1, 1)},
		{End: NewDate(2025, 1, 1)},
		NewPeriod(NewDate(2025, 2, 1), NewDate(2025, 1, 1), false), // inverted
	}
	for i, p := range bads {
		if err := p.Validate(); err == nil {
			t.Errorf("case %d expected error", i)
		}
	}
}

func TestDaysBetween(t *testing.T) {
	cases := []struct {
		name string
		a, b Date
		want int
	}{
		{"same day", NewDate(2025, 7, 1), NewDate(2025, 7, 1), 0},
		{"forward", NewDate(2025, 7, 1), NewDate(2025, 7, 31), 30},
		{"backward", NewDate(2025, 7, 31), NewDate(2025, 7, 1), -30},
		{"over year boundary", NewDate(2024, 12, 30), NewDate(2025, 1, 2), 3},
		{"leap february", NewDate(2024, 2, 28), NewDate(2024, 3, 1), 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DaysBetween(tc.a, tc.b); got != tc.want {
				t.Errorf("DaysBetween(%s, %s) = %d, want %d", tc.a, tc.b, got, tc.want)
			}
		})
	}
}
