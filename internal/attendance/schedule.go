package attendance

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Clock is a wall-clock time of day with minute precision.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses an HH:MM string.
func ParseClock(s string) (Clock, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return Clock{}, fmt.Errorf("invalid time %q: want HH:MM", s)
	}
	return Clock{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// MustClock is ParseClock for constants.
func MustClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Clock) minutes() int {
	return c.Hour*60 + c.Minute
}

func (c Clock) Before(o Clock) bool {
	return c.minutes() < o.minutes()
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Shift is a contiguous worked interval within one day.
type Shift struct {
	Start Clock
	End   Clock
}

// NewShift parses a start/end pair and checks start < end.
func NewShift(start, end string) (Shift, error) {
	s, err := ParseClock(start)
	if err != nil {
		return Shift{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return Shift{}, err
	}
	if !s.Before(e) {
		return Shift{}, fmt.Errorf("shift %s-%s: start must be before end", s, e)
	}
	return Shift{Start: s, End: e}, nil
}

func (s Shift) Duration() time.Duration {
	return time.Duration(s.End.minutes()-s.Start.minutes()) * time.Minute
}

func (s Shift) String() string {
	return s.Start.String() + "-" + s.End.String()
}

// ShiftPlan is the ordered list of shifts to write for one date. Order is
// write order: each shift is committed before the next is attempted.
type ShiftPlan []Shift

// Total is the worked time the plan adds up to.
func (p ShiftPlan) Total() time.Duration {
	var total time.Duration
	for _, s := range p {
		total += s.Duration()
	}
	return total
}

func (p ShiftPlan) String() string {
	parts := make([]string, len(p))
	for i, s := range p {
		parts[i] = s.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Slot names as they appear in configuration.
const (
	SlotMorning   = "normal_day_morning"
	SlotAfternoon = "normal_day_afternoon"
	SlotFriday    = "friday_continuous"
)

// Schedule maps each slot to the shift written for it. It is immutable for
// the duration of a run.
type Schedule struct {
	Morning   Shift
	Afternoon Shift
	Friday    Shift
}

// DefaultSchedule is used for any slot that is not configured correctly.
func DefaultSchedule() Schedule {
	return Schedule{
		Morning:   Shift{Start: MustClock("08:30"), End: MustClock("14:00")},
		Afternoon: Shift{Start: MustClock("15:00"), End: MustClock("18:00")},
		Friday:    Shift{Start: MustClock("08:30"), End: MustClock("15:00")},
	}
}

// Slots returns the schedule in its configuration form.
func (s Schedule) Slots() map[string][]string {
	return map[string][]string{
		SlotMorning:   {s.Morning.Start.String(), s.Morning.End.String()},
		SlotAfternoon: {s.Afternoon.Start.String(), s.Afternoon.End.String()},
		SlotFriday:    {s.Friday.Start.String(), s.Friday.End.String()},
	}
}

// ScheduleFromSlots resolves a configured slot map. Each slot that is missing
// or malformed keeps its default; the returned errors describe every fallback
// taken and every unknown slot name. The schedule is always usable.
func ScheduleFromSlots(slots map[string][]string) (Schedule, []error) {
	s := DefaultSchedule()
	if len(slots) == 0 {
		return s, nil
	}

	var errs []error
	targets := map[string]*Shift{
		SlotMorning:   &s.Morning,
		SlotAfternoon: &s.Afternoon,
		SlotFriday:    &s.Friday,
	}
	names := make([]string, 0, len(targets))
	for name := range targets {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		raw, ok := slots[name]
		if !ok {
			errs = append(errs, fmt.Errorf("schedule slot %s not set, using %s", name, targets[name]))
			continue
		}
		if len(raw) != 2 {
			errs = append(errs, fmt.Errorf("schedule slot %s: want [start, end], got %d values, using %s", name, len(raw), targets[name]))
			continue
		}
		shift, err := NewShift(raw[0], raw[1])
		if err != nil {
			errs = append(errs, fmt.Errorf("schedule slot %s: %v, using %s", name, err, targets[name]))
			continue
		}
		*targets[name] = shift
	}

	var unknown []string
	for name := range slots {
		if _, ok := targets[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	for _, name := range unknown {
		errs = append(errs, fmt.Errorf("unknown schedule slot %q ignored", name))
	}
	return s, errs
}
