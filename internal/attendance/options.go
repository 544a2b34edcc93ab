package attendance

import (
	"context"
	"fmt"
	"time"
)

// Default remote endpoints.
const (
	DefaultTimeOffURL    = "https://app.factorialhr.com/time-off"
	DefaultAttendanceURL = "https://app.factorialhr.com/attendance/clock-in/monthly"
)

// Timeouts bound every wait the engine performs on the page.
type Timeouts struct {
	// Calendar is how long the time-off calendar may take to appear.
	Calendar time.Duration
	// Element bounds ordinary element lookups.
	Element time.Duration
	// Detail bounds the absence detail view.
	Detail time.Duration
	// Popover is how long to look for the holiday popover after opening a day.
	Popover time.Duration
	// Modal bounds the shift entry modal.
	Modal time.Duration
}

func DefaultTimeouts() Timeouts {
	return Timeouts{
		Calendar: 10 * time.Second,
		Element:  5 * time.Second,
		Detail:   5 * time.Second,
		Popover:  2 * time.Second,
		Modal:    5 * time.Second,
	}
}

// Options configure an Engine and its components.
type Options struct {
	TimeOffURL    string
	AttendanceURL string

	// DryRun computes and reports writes without performing them.
	DryRun bool
	// WindowDays is how many trailing days to reconcile.
	WindowDays int

	Selectors Selectors
	Locale    Locale
	Markers   Markers
	Timeouts  Timeouts

	// SettleDelay is waited after each shift commit.
	SettleDelay time.Duration
	// EscapeDelay is waited after closing a view with Escape.
	EscapeDelay time.Duration
	// ScreenshotDir receives a PNG for every failed shift write when set.
	ScreenshotDir string

	// Now returns the current time; the window is computed from it.
	Now func() time.Time
}

// DefaultOptions returns options for a dry run over the last 30 days.
func DefaultOptions() Options {
	return Options{
		TimeOffURL:    DefaultTimeOffURL,
		AttendanceURL: DefaultAttendanceURL,
		DryRun:        true,
		WindowDays:    30,
		Selectors:     DefaultSelectors(),
		Locale:        Spanish,
		Markers:       DefaultMarkers(),
		Timeouts:      DefaultTimeouts(),
		SettleDelay:   time.Second,
		EscapeDelay:   500 * time.Millisecond,
		Now:           time.Now,
	}
}

// monthURL is the attendance view for d's month.
func (o Options) monthURL(d Date) string {
	return fmt.Sprintf("%s/%d/%d/1", o.AttendanceURL, d.Year, int(d.Month))
}

func (o Options) now() time.Time {
	if o.Now == nil {
		return time.Now()
	}
	return o.Now()
}

// pause waits d or until ctx is done.
func pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
