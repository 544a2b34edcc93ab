package attendance

import (
	"fmt"
	"sort"
	"time"
)

// Selectors locate the parts of the remote application's pages. The defaults
// match the current markup; each may be overridden from configuration.
type Selectors struct {
	// Time-off calendar.
	CalendarContainer string
	MonthName         string
	DayCell           string
	DetailBody        string
	DetailLabel       string

	// Attendance month view.
	AttendanceRow  string
	RowToggle      string
	AddShiftButton string
	HolidayPopover string
	ShiftModal     string
	TimeInput      string
	ApplyButton    string
}

// DefaultSelectors returns the selectors for the current remote markup.
func DefaultSelectors() Selectors {
	return Selectors{
		CalendarContainer: "ul.htyto0",
		MonthName:         "div.htyto3",
		DayCell:           `div[role="button"]`,
		DetailBody:        "div._19gth1z7h",
		DetailLabel:       "span",

		AttendanceRow:  "tr",
		RowToggle:      "svg",
		AddShiftButton: "button",
		HolidayPopover: ".factorial-popover",
		ShiftModal:     "div[data-radix-popper-content-wrapper]",
		TimeInput:      `input[placeholder="--:--"]`,
		ApplyButton:    "button",
	}
}

func (s *Selectors) fields() map[string]*string {
	return map[string]*string{
		"calendar_container": &s.CalendarContainer,
		"month_name":         &s.MonthName,
		"day_cell":           &s.DayCell,
		"detail_body":        &s.DetailBody,
		"detail_label":       &s.DetailLabel,
		"attendance_row":     &s.AttendanceRow,
		"row_toggle":         &s.RowToggle,
		"add_shift_button":   &s.AddShiftButton,
		"holiday_popover":    &s.HolidayPopover,
		"shift_modal":        &s.ShiftModal,
		"time_input":         &s.TimeInput,
		"apply_button":       &s.ApplyButton,
	}
}

// WithOverrides returns a copy with the named selectors replaced. Unknown
// names and empty values are reported and ignored.
func (s Selectors) WithOverrides(overrides map[string]string) (Selectors, []error) {
	out := s
	fields := out.fields()
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var errs []error
	for _, k := range keys {
		v := overrides[k]
		target, ok := fields[k]
		if !ok {
			errs = append(errs, fmt.Errorf("unknown selector %q ignored", k))
			continue
		}
		if v == "" {
			errs = append(errs, fmt.Errorf("empty selector %q ignored", k))
			continue
		}
		*target = v
	}
	return out, errs
}

// Locale holds the display strings of the remote application.
type Locale struct {
	Name   string
	Months [12]string
	// Labels shown in an absence's detail view.
	HalfMorningLabel   string
	HalfAfternoonLabel string
	AddShiftLabel      string
	ApplyLabel         string
	// ZeroTotal is how a day with no worked time shows its total.
	ZeroTotal string
}

// Spanish is the locale the remote application is used in.
var Spanish = Locale{
	Name: "es",
	Months: [12]string{
		"enero", "febrero", "marzo", "abril", "mayo", "junio",
		"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
	},
	HalfMorningLabel:   "1er mitad del día",
	HalfAfternoonLabel: "2da mitad del día",
	AddShiftLabel:      "Añadir",
	ApplyLabel:         "Aplicar",
	ZeroTotal:          "0h 00m",
}

// LocaleByName returns the locale registered under name.
func LocaleByName(name string) (Locale, bool) {
	switch name {
	case "", "es", "es-ES":
		return Spanish, true
	}
	return Locale{}, false
}

func (l Locale) MonthName(m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	return l.Months[m-1]
}

// Markers are the visual cues the time-off calendar uses for absences.
type Markers struct {
	Vacation  string
	SickLeave string
	Other     string
	// HolidayClasses are CSS classes carried by public-holiday cells.
	HolidayClasses []string
}

func DefaultMarkers() Markers {
	return Markers{
		Vacation:       "rgb(7, 162, 173)",
		SickLeave:      "rgb(255, 145, 83)",
		Other:          "rgb(226, 226, 229)",
		HolidayClasses: []string{"htytoi"},
	}
}
