package window

import (
	"fmt"
	"time"

	"voccal/internal/clock"
)

// LookaheadMonth is the month number that stands for January of the
// following year.
const LookaheadMonth = 13

// Window is the inclusive date range one rendered timeline covers.
// Start <= End always holds; both are midnights.
type Window struct {
	Start time.Time
	End   time.Time
}

// Month pairs a month number (1..13) with its window.
type Month struct {
	Month  int
	Window Window
}

// ResolveYear returns year, or the clock's current year when year is 0.
func ResolveYear(year int, clk clock.Clock) int {
	if year != 0 {
		return year
	}
	return clk.Now().Year()
}

// ForYear returns [Jan 1, Dec 31] of year.
func ForYear(year int) Window {
	return Window{
		Start: date(year, time.January, 1),
		End:   date(year, time.December, 31),
	}
}

// ForMonth returns the window of month (1..13) in year. Month 13 is January
// of year+1.
func ForMonth(year, month int) (Window, error) {
	if month < 1 || month > LookaheadMonth {
		return Window{}, fmt.Errorf("window: month %d out of range 1..%d", month, LookaheadMonth)
	}
	if month == LookaheadMonth {
		year++
		month = 1
	}
	start := date(year, time.Month(month), 1)
	// Day 0 of the next month normalizes to the last day of this one.
	end := date(year, time.Month(month)+1, 0)
	return Window{Start: start, End: end}, nil
}

// MonthlySeries returns the 13 windows Jan..Dec of year followed by Jan of
// year+1.
func MonthlySeries(year int) []Month {
	out := make([]Month, 0, LookaheadMonth)
	for m := 1; m <= LookaheadMonth; m++ {
		w, _ := ForMonth(year, m)
		out = append(out, Month{Month: m, Window: w})
	}
	return out
}

// Days returns the number of days in the window, counting both ends.
func (w Window) Days() int {
	return DaysBetween(w.Start, w.End) + 1
}

// Contains reports whether the calendar day of t lies inside the window.
func (w Window) Contains(t time.Time) bool {
	d := Day(t)
	return !d.Before(w.Start) && !d.After(w.End)
}

// Overlaps reports whether the inclusive day range [start, end] intersects
// the window.
func (w Window) Overlaps(start, end time.Time) bool {
	return !Day(end).Before(w.Start) && !Day(start).After(w.End)
}

// Clip restricts [start, end] to the window. ok is false when they do not
// overlap.
func (w Window) Clip(start, end time.Time) (from, to time.Time, ok bool) {
	if !w.Overlaps(start, end) {
		return time.Time{}, time.Time{}, false
	}
	from, to = Day(start), Day(end)
	if from.Before(w.Start) {
		from = w.Start
	}
	if to.After(w.End) {
		to = w.End
	}
	return from, to, true
}

func (w Window) String() string {
	return w.Start.Format(time.DateOnly) + ".." + w.End.Format(time.DateOnly)
}

// Day drops the clock part of t and moves it to UTC midnight of the same
// calendar date, so day arithmetic is free of DST gaps.
func Day(t time.Time) time.Time {
	return date(t.Year(), t.Month(), t.Day())
}

// DaysBetween counts whole calendar days from a to b (negative if b < a).
func DaysBetween(a, b time.Time) int {
	// time.Duration saturates after ~292 years; count in Unix seconds.
	return int((Day(b).Unix() - Day(a).Unix()) / 86400)
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
