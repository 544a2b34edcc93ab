package attendance

import (
	"context"
	"time"

	"github.com/google/uuid"

	"fichaje/internal/logging"
	"fichaje/internal/page"
)

// Engine reconciles attendance over a trailing window of days. An Engine
// owns its page for the duration of Run and must not be shared.
type Engine struct {
	page       page.Page
	opts       Options
	classifier *Classifier
	reconciler *Reconciler
	log        *logging.Logger
}

func NewEngine(p page.Page, schedule Schedule, opts Options) *Engine {
	return &Engine{
		page:       p,
		opts:       opts,
		classifier: NewClassifier(p, opts),
		reconciler: NewReconciler(p, schedule, opts),
		log:        logging.Get(logging.CategoryAttendance),
	}
}

// Window is the range Run will reconcile if started now.
func (e *Engine) Window() Window {
	return TrailingWindow(DateOf(e.opts.now()), e.opts.WindowDays)
}

// Run detects absences for the whole window, then reconciles each date in
// ascending order. Per-date failures are recorded in the report; Run itself
// does not fail.
func (e *Engine) Run(ctx context.Context) *RunReport {
	report := &RunReport{
		ID:        uuid.NewString(),
		StartedAt: e.opts.now(),
		Window:    e.Window(),
		DryRun:    e.opts.DryRun,
	}
	audit := logging.AuditWithRun(report.ID)
	e.reconciler.audit = audit
	audit.RunStart(report.Window.String(), report.DryRun)

	e.log.Info("Run %s over %s (dry run: %v)", report.ID, report.Window, report.DryRun)

	det := e.classifier.DetectAbsences(ctx, report.Window)
	report.Absences = det.Absences
	report.DetectionErrors = det.Errors

	var cursor monthCursor
	for _, d := range report.Window.Days() {
		if cursor.needsNavigation(d) {
			e.openMonth(ctx, d)
			cursor = cursor.advance(d)
		}

		row := findRow(ctx, e.page, e.opts.Selectors.AttendanceRow, d)
		out := e.reconciler.ReconcileDay(ctx, d, report.Absences[d], row)
		if err, ok := det.Errors[d]; ok && !d.IsWeekend() {
			out.DetectionErr = err
			audit.DetectionFailed(d.String(), err)
		}
		e.log.Debug("%s", out)
		report.Outcomes = append(report.Outcomes, out)
	}

	report.FinishedAt = e.opts.now()
	audit.RunEnd(report.Duration(), outcomeCounts(report))
	e.log.Info("Run %s finished in %s", report.ID, report.Duration().Round(time.Millisecond))
	return report
}

// openMonth loads d's month in the attendance view. A failure is logged; the
// dates of that month will then report missing rows.
func (e *Engine) openMonth(ctx context.Context, d Date) {
	url := e.opts.monthURL(d)
	e.log.Info("Opening attendance for %d/%02d", d.Year, int(d.Month))
	if err := e.page.Navigate(ctx, url); err != nil {
		e.log.Error("Could not open %s: %v", url, err)
		return
	}
	if _, err := e.page.Element(ctx, e.opts.Selectors.AttendanceRow, e.opts.Timeouts.Element); err != nil {
		e.log.Warn("Attendance table not ready for %d/%02d: %v", d.Year, int(d.Month), err)
	}
}

// findRow scans the rows of the current view for d's day of month. It
// returns nil when no row matches.
func findRow(ctx context.Context, p page.Page, selector string, d Date) page.Element {
	rows, err := p.Elements(ctx, selector)
	if err != nil {
		logging.AttendanceWarn("Could not list attendance rows: %v", err)
		return nil
	}
	row, err := firstWithText(ctx, rows, func(text string) bool {
		return rowMatchesDay(text, d.Day)
	})
	if err != nil {
		return nil
	}
	return row
}

// monthCursor is the month currently loaded in the attendance view.
type monthCursor struct {
	year  int
	month time.Month
	set   bool
}

// needsNavigation reports whether d lies in a later month than the cursor.
// The cursor never moves backwards.
func (c monthCursor) needsNavigation(d Date) bool {
	if !c.set {
		return true
	}
	if d.Year != c.year {
		return d.Year > c.year
	}
	return d.Month > c.month
}

func (c monthCursor) advance(d Date) monthCursor {
	return monthCursor{year: d.Year, month: d.Month, set: true}
}

func outcomeCounts(r *RunReport) map[string]int {
	counts := make(map[string]int)
	for _, o := range r.Outcomes {
		key := o.Status.String()
		if o.Status == StatusSkipped {
			key += ":" + o.Skip.String()
		}
		counts[key]++
	}
	return counts
}
