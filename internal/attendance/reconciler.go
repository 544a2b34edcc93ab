package attendance

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"fichaje/internal/logging"
	"fichaje/internal/page"
)

// ErrRowNotFound is recorded when the attendance view has no row for a date.
var ErrRowNotFound = errors.New("attendance row not found")

// Reconciler decides, for a single date, whether to write attendance and
// writes the planned shifts one at a time.
type Reconciler struct {
	page     page.Page
	schedule Schedule
	opts     Options
	log      *logging.Logger
	audit    *logging.AuditLogger
}

func NewReconciler(p page.Page, schedule Schedule, opts Options) *Reconciler {
	return &Reconciler{
		page:     p,
		schedule: schedule,
		opts:     opts,
		log:      logging.Get(logging.CategoryAttendance),
		audit:    logging.Audit(),
	}
}

// ReconcileDay applies the skip rules to d in order (weekend, full-day
// absence, already filled, dry run, holiday) and otherwise writes the
// planned shifts into row. row may be nil when the date has no row in the
// current view. It never returns an error: failures are reported in the
// Outcome.
func (r *Reconciler) ReconcileDay(ctx context.Context, d Date, rec AbsenceRecord, row page.Element) Outcome {
	out := Outcome{Date: d, Absence: rec}
	log := r.log.With("date", d.String())

	if d.IsWeekend() {
		return r.skip(out, SkipWeekend)
	}
	if rec.Kind == FullDay {
		log.Info("Skipping %s: full-day absence (%s)", d, rec.Reason)
		return r.skip(out, SkipFullDayAbsence)
	}
	if row == nil {
		log.Warn("No attendance row for %s", d)
		return r.fail(out, ErrRowNotFound)
	}

	text, err := row.Text(ctx)
	if err != nil {
		return r.fail(out, fmt.Errorf("read row: %w", err))
	}
	if !IsZeroTotal(text, r.opts.Locale) {
		log.Info("Skipping %s: already has hours", d)
		return r.skip(out, SkipAlreadyFilled)
	}

	out.Plan = PlanShifts(d, rec, r.schedule)
	if len(out.Plan) == 0 {
		return r.skip(out, SkipFullDayAbsence)
	}
	if r.opts.DryRun {
		log.Info("[DRY RUN] Would fill %s with %s", d, out.Plan)
		return r.skip(out, SkipDryRun)
	}

	log.Info("Filling %s with %s", d, out.Plan)
	if err := r.openEntry(ctx, row); err != nil {
		return r.fail(out, fmt.Errorf("open day: %w", err))
	}

	holiday, err := r.page.IsVisible(ctx, r.opts.Selectors.HolidayPopover, r.opts.Timeouts.Popover)
	if err != nil {
		log.Debug("Holiday check failed: %v", err)
	}
	if holiday {
		log.Info("Skipping %s: marked as holiday", d)
		r.escape(ctx)
		return r.skip(out, SkipHoliday)
	}

	surface, err := row.Next(ctx)
	if err != nil {
		return r.fail(out, fmt.Errorf("entry surface: %w", err))
	}

	for i, s := range out.Plan {
		if i > 0 {
			surface, err = r.entrySurface(ctx, d)
			if err != nil {
				return r.abandon(ctx, out, i, s, fmt.Errorf("entry surface: %w", err))
			}
		}
		if err := r.writeShift(ctx, surface, s); err != nil {
			return r.abandon(ctx, out, i, s, err)
		}
		out.Written++
		r.audit.ShiftCommitted(d.String(), s.String())
		log.Info("  -> shift %s committed", s)
	}

	out.Status = StatusFilled
	return out
}

// openEntry expands the day's row. The row's toggle icon is preferred; the
// row itself is clicked when it has none.
func (r *Reconciler) openEntry(ctx context.Context, row page.Element) error {
	if err := row.ScrollIntoView(ctx); err != nil {
		r.log.Debug("Scroll to row failed: %v", err)
	}
	toggle, err := row.Element(ctx, r.opts.Selectors.RowToggle, r.opts.Timeouts.Element)
	if err != nil {
		if !page.IsMissing(err) {
			return err
		}
		return row.Click(ctx)
	}
	return toggle.Click(ctx)
}

// entrySurface looks d's row up again and returns the expanded area below it.
// A commit may re-render the table, which detaches handles taken before it.
func (r *Reconciler) entrySurface(ctx context.Context, d Date) (page.Element, error) {
	row := findRow(ctx, r.page, r.opts.Selectors.AttendanceRow, d)
	if row == nil {
		return nil, ErrRowNotFound
	}
	return row.Next(ctx)
}

// abandon records the failure of shift i and stops writing d. The outcome is
// Failed when nothing was committed yet, PartiallyFilled otherwise.
func (r *Reconciler) abandon(ctx context.Context, out Outcome, i int, s Shift, err error) Outcome {
	r.log.Error("Shift %d (%s) failed on %s: %v", i+1, s, out.Date, err)
	r.audit.ShiftAbandoned(out.Date.String(), s.String(), err)
	r.captureFailure(ctx, out.Date, i)
	r.dismissModal(ctx)
	out.Err = fmt.Errorf("shift %s: %w", s, err)
	if out.Written == 0 {
		out.Status = StatusFailed
	} else {
		out.Status = StatusPartiallyFilled
	}
	return out
}

// writeShift adds one shift through the entry modal and commits it.
func (r *Reconciler) writeShift(ctx context.Context, surface page.Element, s Shift) error {
	sel := r.opts.Selectors
	add, err := surface.ElementByText(ctx, sel.AddShiftButton, exactText(r.opts.Locale.AddShiftLabel), r.opts.Timeouts.Element)
	if err != nil {
		return fmt.Errorf("add button: %w", err)
	}
	if err := add.Click(ctx); err != nil {
		return fmt.Errorf("click add: %w", err)
	}

	modal, err := r.lastModal(ctx)
	if err != nil {
		return err
	}
	inputs, err := modal.Elements(ctx, sel.TimeInput)
	if err != nil {
		return fmt.Errorf("time inputs: %w", err)
	}
	if len(inputs) < 2 {
		return fmt.Errorf("expected 2 time inputs, found %d: %w", len(inputs), page.ErrNotFound)
	}
	if err := inputs[0].Fill(ctx, s.Start.String()); err != nil {
		return fmt.Errorf("fill start: %w", err)
	}
	if err := inputs[1].Fill(ctx, s.End.String()); err != nil {
		return fmt.Errorf("fill end: %w", err)
	}

	apply, err := modal.ElementByText(ctx, sel.ApplyButton, exactText(r.opts.Locale.ApplyLabel), r.opts.Timeouts.Element)
	if err != nil {
		return fmt.Errorf("apply button: %w", err)
	}
	if err := apply.Click(ctx); err != nil {
		return fmt.Errorf("click apply: %w", err)
	}
	pause(ctx, r.opts.SettleDelay)
	return nil
}

// lastModal waits for the shift modal and returns the most recently opened one.
func (r *Reconciler) lastModal(ctx context.Context) (page.Element, error) {
	sel := r.opts.Selectors.ShiftModal
	first, err := r.page.Element(ctx, sel, r.opts.Timeouts.Modal)
	if err != nil {
		return nil, fmt.Errorf("shift modal: %w", err)
	}
	all, err := r.page.Elements(ctx, sel)
	if err != nil || len(all) == 0 {
		return first, nil
	}
	return all[len(all)-1], nil
}

func (r *Reconciler) dismissModal(ctx context.Context) {
	open, err := r.page.IsVisible(ctx, r.opts.Selectors.ShiftModal, 0)
	if err != nil || !open {
		return
	}
	r.escape(ctx)
}

func (r *Reconciler) escape(ctx context.Context) {
	if err := r.page.PressEscape(ctx); err != nil {
		r.log.Debug("Escape failed: %v", err)
	}
	pause(ctx, r.opts.EscapeDelay)
}

// captureFailure saves a screenshot of the page after a failed shift write.
func (r *Reconciler) captureFailure(ctx context.Context, d Date, shift int) {
	if r.opts.ScreenshotDir == "" {
		return
	}
	if err := os.MkdirAll(r.opts.ScreenshotDir, 0755); err != nil {
		r.log.Warn("Cannot create screenshot dir: %v", err)
		return
	}
	path := filepath.Join(r.opts.ScreenshotDir, fmt.Sprintf("%s-shift%d.png", d, shift))
	if err := r.page.Screenshot(ctx, path); err != nil {
		r.log.Warn("Screenshot failed: %v", err)
		return
	}
	r.log.Info("  -> screenshot saved to %s", path)
}

func (r *Reconciler) skip(out Outcome, reason SkipReason) Outcome {
	out.Status = StatusSkipped
	out.Skip = reason
	if reason != SkipWeekend {
		r.audit.DateSkipped(out.Date.String(), reason.String())
	}
	return out
}

func (r *Reconciler) fail(out Outcome, err error) Outcome {
	r.log.Error("Failed on %s: %v", out.Date, err)
	out.Status = StatusFailed
	out.Err = err
	return out
}
