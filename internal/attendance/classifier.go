package attendance

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"fichaje/internal/logging"
	"fichaje/internal/page"
)

// Classifier scans the time-off calendar and builds the AbsenceMap for a window.
type Classifier struct {
	page page.Page
	opts Options
	log  *logging.Logger
}

func NewClassifier(p page.Page, opts Options) *Classifier {
	return &Classifier{page: p, opts: opts, log: logging.Get(logging.CategoryAbsence)}
}

// ErrCalendarUnavailable marks dates whose absence state could not be read
// because the time-off calendar never loaded.
var ErrCalendarUnavailable = errors.New("time-off calendar unavailable")

// Detection is what the calendar scan learned about a window.
type Detection struct {
	Absences AbsenceMap
	// Errors holds the dates whose absence state is unknown. Those dates are
	// reconciled as working days and flagged for review.
	Errors map[Date]error
}

// DetectAbsences navigates once to the calendar and classifies every date in w.
// Detection is advisory: if the calendar cannot be loaded every weekday of w
// gets an ErrCalendarUnavailable entry, and a date that fails to classify is
// recorded in Errors and otherwise treated as a working day.
func (c *Classifier) DetectAbsences(ctx context.Context, w Window) Detection {
	det := Detection{Absences: make(AbsenceMap), Errors: make(map[Date]error)}
	c.log.Info("Detecting absences in %s", w)

	if err := c.page.Navigate(ctx, c.opts.TimeOffURL); err != nil {
		c.log.Warn("Could not open time-off calendar: %v. Continuing without absences.", err)
		det.markUnavailable(w, err)
		return det
	}
	if _, err := c.page.Element(ctx, c.opts.Selectors.CalendarContainer, c.opts.Timeouts.Calendar); err != nil {
		c.log.Warn("Calendar container not found: %v. Continuing without absences.", err)
		det.markUnavailable(w, err)
		return det
	}

	for _, d := range w.Days() {
		rec, found, err := c.classifyDate(ctx, d)
		if err != nil {
			c.log.Warn("Could not process date %s: %v", d, err)
			det.Errors[d] = err
			continue
		}
		if found {
			det.Absences[d] = rec
		}
	}

	c.log.Info("Absences detected: %d (unreadable dates: %d)", len(det.Absences), len(det.Errors))
	return det
}

func (det Detection) markUnavailable(w Window, cause error) {
	for _, d := range w.Days() {
		if !d.IsWeekend() {
			det.Errors[d] = fmt.Errorf("%w: %v", ErrCalendarUnavailable, cause)
		}
	}
}

// classifyDate inspects one date's calendar cell. found is false for working days.
func (c *Classifier) classifyDate(ctx context.Context, d Date) (AbsenceRecord, bool, error) {
	cell, err := c.findDayCell(ctx, d)
	if err != nil {
		if page.IsMissing(err) {
			c.log.Debug("No calendar cell for %s", d)
			return AbsenceRecord{}, false, nil
		}
		return AbsenceRecord{}, false, err
	}

	style, err := cell.Attribute(ctx, "style")
	if err != nil {
		return AbsenceRecord{}, false, fmt.Errorf("read style: %w", err)
	}
	class, err := cell.Attribute(ctx, "class")
	if err != nil {
		return AbsenceRecord{}, false, fmt.Errorf("read class: %w", err)
	}

	reason, ok := ReasonFromVisualCue(style, class, c.opts.Markers)
	if !ok {
		return AbsenceRecord{}, false, nil
	}
	if reason == Holiday {
		c.log.Info("Absence detected on %s (reason: %s)", d, reason)
		return AbsenceRecord{Kind: FullDay, Reason: Holiday}, true, nil
	}

	c.log.Info("Absence detected on %s (reason: %s)", d, reason)
	kind := c.inspectDetail(ctx, d, cell)
	c.log.Info("  -> type: %s", kind)
	return AbsenceRecord{Kind: kind, Reason: reason}, true, nil
}

// findDayCell locates d's cell inside the section of its month. The calendar
// is already rendered, so lookups do not wait: a missing month section or day
// cell is reported as page.ErrNotFound at once.
func (c *Classifier) findDayCell(ctx context.Context, d Date) (page.Element, error) {
	sel := c.opts.Selectors
	month := c.opts.Locale.MonthName(d.Month)
	if month == "" {
		return nil, fmt.Errorf("no month name for %s: %w", d.Month, page.ErrNotFound)
	}

	names, err := c.page.Elements(ctx, sel.MonthName)
	if err != nil {
		return nil, fmt.Errorf("month names: %w", err)
	}
	name, err := firstWithText(ctx, names, func(text string) bool {
		return strings.Contains(normalizeText(text), normalizeText(month))
	})
	if err != nil {
		return nil, fmt.Errorf("month %s: %w", month, err)
	}
	section, err := name.Parent(ctx)
	if err != nil {
		return nil, fmt.Errorf("month %s section: %w", month, err)
	}
	if err := section.ScrollIntoView(ctx); err != nil {
		c.log.Debug("Scroll to %s failed: %v", month, err)
	}

	cells, err := section.Elements(ctx, sel.DayCell)
	if err != nil {
		return nil, fmt.Errorf("day cells of %s: %w", month, err)
	}
	day := strconv.Itoa(d.Day)
	cell, err := firstWithText(ctx, cells, func(text string) bool {
		return strings.TrimSpace(text) == day
	})
	if err != nil {
		return nil, fmt.Errorf("day %s of %s: %w", day, month, err)
	}
	return cell, nil
}

// firstWithText returns the first element whose text satisfies match.
// Elements whose text cannot be read are passed over.
func firstWithText(ctx context.Context, elems []page.Element, match func(string) bool) (page.Element, error) {
	for _, el := range elems {
		text, err := el.Text(ctx)
		if err != nil {
			continue
		}
		if match(text) {
			return el, nil
		}
	}
	return nil, page.ErrNotFound
}

// inspectDetail opens the absence's detail view to tell half days from full
// days. Any failure keeps the absence as FullDay.
func (c *Classifier) inspectDetail(ctx context.Context, d Date, cell page.Element) AbsenceKind {
	if err := cell.Click(ctx); err != nil {
		c.log.Warn("  -> could not open detail for %s: %v. Assuming full day.", d, err)
		return FullDay
	}
	defer c.closeDetail(ctx)

	body, err := c.page.Element(ctx, c.opts.Selectors.DetailBody, c.opts.Timeouts.Detail)
	if err != nil {
		c.log.Warn("  -> error reading detail for %s: %v. Assuming full day.", d, err)
		return FullDay
	}
	html, err := body.HTML(ctx)
	if err != nil {
		c.log.Warn("  -> error reading detail for %s: %v. Assuming full day.", d, err)
		return FullDay
	}
	kind, err := ClassifyDetail(html, c.opts.Selectors.DetailLabel, c.opts.Locale)
	if err != nil {
		c.log.Warn("  -> unexpected detail for %s: %v. Assuming full day.", d, err)
		return FullDay
	}
	return kind
}

func (c *Classifier) closeDetail(ctx context.Context) {
	if err := c.page.PressEscape(ctx); err != nil {
		c.log.Debug("Escape failed: %v", err)
	}
	pause(ctx, c.opts.EscapeDelay)
}
