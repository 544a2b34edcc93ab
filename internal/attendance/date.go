package attendance

import (
	"fmt"
	"time"
)

// dateLayout is the canonical text form of a Date.
const dateLayout = "2006-01-02"

// Date is a calendar day with no time-of-day or zone component.
// It is comparable and safe to use as a map key.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar day of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// Time returns midnight UTC of the day. Arithmetic is done in UTC so DST
// transitions never skip or repeat a day.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

func (d Date) Weekday() time.Weekday {
	return d.Time().Weekday()
}

// IsWeekend reports whether d falls on a Saturday or Sunday.
func (d Date) IsWeekend() bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func (d Date) IsFriday() bool {
	return d.Weekday() == time.Friday
}

func (d Date) Before(o Date) bool {
	return d.Time().Before(o.Time())
}

func (d Date) After(o Date) bool {
	return d.Time().After(o.Time())
}

func (d Date) IsZero() bool {
	return d == Date{}
}

func (d Date) String() string {
	return d.Time().Format(dateLayout)
}

// Window is an inclusive range of calendar days.
type Window struct {
	Start Date
	End   Date
}

// TrailingWindow returns [today-days, today-1]. Today itself is never included
// because the day is still in progress.
func TrailingWindow(today Date, days int) Window {
	if days < 1 {
		days = 1
	}
	return Window{Start: today.AddDays(-days), End: today.AddDays(-1)}
}

// Days returns every date in the window in ascending order.
func (w Window) Days() []Date {
	if w.End.Before(w.Start) {
		return nil
	}
	var days []Date
	for d := w.Start; !d.After(w.End); d = d.AddDays(1) {
		days = append(days, d)
	}
	return days
}

func (w Window) Contains(d Date) bool {
	return !d.Before(w.Start) && !d.After(w.End)
}

func (w Window) String() string {
	return fmt.Sprintf("%s..%s", w.Start, w.End)
}
