package attendance

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// AbsenceKind is how much of a day an absence covers.
// The zero value means no absence.
type AbsenceKind int

const (
	FullDay AbsenceKind = iota + 1
	HalfMorning
	HalfAfternoon
)

func (k AbsenceKind) String() string {
	switch k {
	case FullDay:
		return "full"
	case HalfMorning:
		return "half_morning"
	case HalfAfternoon:
		return "half_afternoon"
	default:
		return "none"
	}
}

// ParseAbsenceKind accepts the names produced by AbsenceKind.String.
func ParseAbsenceKind(s string) (AbsenceKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return 0, nil
	case "full", "full_day":
		return FullDay, nil
	case "half_morning", "morning":
		return HalfMorning, nil
	case "half_afternoon", "afternoon":
		return HalfAfternoon, nil
	}
	return 0, fmt.Errorf("unknown absence kind %q", s)
}

// Reason is why a person was absent.
type Reason int

const (
	Vacation Reason = iota + 1
	SickLeave
	Other
	Holiday
)

func (r Reason) String() string {
	switch r {
	case Vacation:
		return "vacation"
	case SickLeave:
		return "sick_leave"
	case Other:
		return "other"
	case Holiday:
		return "holiday"
	default:
		return "unknown"
	}
}

// AbsenceRecord describes the absence detected for one date.
// The zero value means the person was present.
type AbsenceRecord struct {
	Kind   AbsenceKind
	Reason Reason
}

func (r AbsenceRecord) IsZero() bool {
	return r.Kind == 0
}

func (r AbsenceRecord) String() string {
	if r.IsZero() {
		return "present"
	}
	return fmt.Sprintf("%s/%s", r.Kind, r.Reason)
}

// AbsenceMap holds at most one record per date. Dates without an entry are
// working days. It is built once per run and read-only afterwards.
type AbsenceMap map[Date]AbsenceRecord

// Dates returns the dates with a record, ascending.
func (m AbsenceMap) Dates() []Date {
	dates := make([]Date, 0, len(m))
	for d := range m {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// Status is the result category of reconciling one date.
type Status int

const (
	StatusSkipped Status = iota + 1
	StatusFilled
	StatusPartiallyFilled
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSkipped:
		return "skipped"
	case StatusFilled:
		return "filled"
	case StatusPartiallyFilled:
		return "partially_filled"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// SkipReason says which rule caused a date to be skipped.
type SkipReason int

const (
	SkipWeekend SkipReason = iota + 1
	SkipFullDayAbsence
	SkipAlreadyFilled
	SkipDryRun
	SkipHoliday
)

func (r SkipReason) String() string {
	switch r {
	case SkipWeekend:
		return "weekend"
	case SkipFullDayAbsence:
		return "full_day_absence"
	case SkipAlreadyFilled:
		return "already_filled"
	case SkipDryRun:
		return "dry_run"
	case SkipHoliday:
		return "holiday"
	default:
		return ""
	}
}

// Outcome is the result of reconciling one date.
type Outcome struct {
	Date   Date
	Status Status
	// Skip is set only when Status is StatusSkipped.
	Skip    SkipReason
	Absence AbsenceRecord
	// Plan is the shift plan computed for the date, if planning was reached.
	Plan ShiftPlan
	// Written counts shifts committed to the remote system.
	Written int
	Err     error
	// DetectionErr is set when the date's absence state could not be read,
	// so it was reconciled as a working day.
	DetectionErr error
}

// NeedsAttention reports whether a human should look at this date.
func (o Outcome) NeedsAttention() bool {
	return o.Status == StatusFailed || o.Status == StatusPartiallyFilled || o.DetectionErr != nil
}

func (o Outcome) String() string {
	s := o.status()
	if o.DetectionErr != nil {
		s += fmt.Sprintf(" (absence unknown: %v)", o.DetectionErr)
	}
	return s
}

func (o Outcome) status() string {
	switch o.Status {
	case StatusSkipped:
		if o.Skip == SkipFullDayAbsence {
			return fmt.Sprintf("%s skipped(%s:%s)", o.Date, o.Skip, o.Absence.Reason)
		}
		return fmt.Sprintf("%s skipped(%s)", o.Date, o.Skip)
	case StatusPartiallyFilled:
		return fmt.Sprintf("%s %s %d/%d: %v", o.Date, o.Status, o.Written, len(o.Plan), o.Err)
	case StatusFailed:
		return fmt.Sprintf("%s %s: %v", o.Date, o.Status, o.Err)
	default:
		return fmt.Sprintf("%s %s", o.Date, o.Status)
	}
}

// RunReport is everything one engine run decided and did.
type RunReport struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Window     Window
	DryRun     bool
	Absences   AbsenceMap
	// DetectionErrors holds the dates absence detection could not classify.
	DetectionErrors map[Date]error
	Outcomes        []Outcome
}

// DetectionErrorDates returns the dates in DetectionErrors, ascending.
func (r *RunReport) DetectionErrorDates() []Date {
	dates := make([]Date, 0, len(r.DetectionErrors))
	for d := range r.DetectionErrors {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// Tally counts outcomes by status and skip reason.
type Tally struct {
	Filled    int
	Partial   int
	Failed    int
	Skipped   map[SkipReason]int
	Attention []Outcome
}

func (r *RunReport) Tally() Tally {
	t := Tally{Skipped: make(map[SkipReason]int)}
	for _, o := range r.Outcomes {
		switch o.Status {
		case StatusFilled:
			t.Filled++
		case StatusPartiallyFilled:
			t.Partial++
		case StatusFailed:
			t.Failed++
		case StatusSkipped:
			t.Skipped[o.Skip]++
		}
		if o.NeedsAttention() {
			t.Attention = append(t.Attention, o)
		}
	}
	return t
}

// Duration is how long the run took.
func (r *RunReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
