package attendance

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fichaje/internal/page"
)

// attendanceFixture serves one month of rows and loads it.
func attendanceFixture(t *testing.T, opts Options, rows ...fakeRow) (*fakePage, func(Date) page.Element) {
	t.Helper()
	ctx := context.Background()
	p := newFakePage(opts)
	p.serveAttendance(rows[0].date, rows...)
	require.NoError(t, p.Navigate(ctx, opts.monthURL(rows[0].date)))
	return p, func(d Date) page.Element { return findRow(ctx, p, opts.Selectors.AttendanceRow, d) }
}

func TestReconcileDayFillsPlannedShifts(t *testing.T) {
	opts := testOptions()
	monday := mustDate(t, "2025-10-13")
	p, row := attendanceFixture(t, opts, fakeRow{date: monday, total: "0h 00m"})

	out := NewReconciler(p, DefaultSchedule(), opts).ReconcileDay(context.Background(), monday, AbsenceRecord{}, row(monday))

	assert.Equal(t, StatusFilled, out.Status)
	assert.Equal(t, 2, out.Written)
	assert.NoError(t, out.Err)
	assert.Equal(t, []commit{
		{Date: "2025-10-13", Start: "08:30", End: "14:00"},
		{Date: "2025-10-13", Start: "15:00", End: "18:00"},
	}, p.commits)
}

func TestReconcileDayFindsRowAgainAfterRerender(t *testing.T) {
	opts := testOptions()
	ctx := context.Background()
	monday := mustDate(t, "2025-10-13")
	p, row := attendanceFixture(t, opts,
		fakeRow{date: mustDate(t, "2025-10-10"), total: "7h 30m"},
		fakeRow{date: monday, total: "0h 00m", rerender: true},
		fakeRow{date: mustDate(t, "2025-10-14"), total: "0h 00m"},
	)
	original := row(monday)

	out := NewReconciler(p, DefaultSchedule(), opts).ReconcileDay(ctx, monday, AbsenceRecord{}, original)

	assert.Equal(t, StatusFilled, out.Status)
	assert.Equal(t, 2, out.Written)
	assert.NoError(t, out.Err)
	assert.Equal(t, 2, p.rerenders)
	assert.Equal(t, []commit{
		{Date: "2025-10-13", Start: "08:30", End: "14:00"},
		{Date: "2025-10-13", Start: "15:00", End: "18:00"},
	}, p.commits)

	// The handle taken before the first commit no longer belongs to the page.
	assert.ErrorIs(t, original.Click(ctx), page.ErrNotFound)
	assert.NotSame(t, original, row(monday))
}

func TestReconcileDayHalfDayWritesRemainingShift(t *testing.T) {
	opts := testOptions()
	tuesday := mustDate(t, "2025-10-14")
	p, row := attendanceFixture(t, opts, fakeRow{date: tuesday, total: "0h 00m"})

	rec := AbsenceRecord{Kind: HalfAfternoon, Reason: Vacation}
	out := NewReconciler(p, DefaultSchedule(), opts).ReconcileDay(context.Background(), tuesday, rec, row(tuesday))

	assert.Equal(t, StatusFilled, out.Status)
	assert.Equal(t, []commit{{Date: "2025-10-14", Start: "08:30", End: "14:00"}}, p.commits)
}

func TestReconcileDayWeekendBeforeAnyOtherRule(t *testing.T) {
	opts := testOptions()
	saturday := mustDate(t, "2025-10-11")
	p, row := attendanceFixture(t, opts, fakeRow{date: saturday, total: "0h 00m"})
	r := NewReconciler(p, DefaultSchedule(), opts)

	for _, kind := range []AbsenceKind{0, FullDay, HalfMorning, HalfAfternoon} {
		out := r.ReconcileDay(context.Background(), saturday, AbsenceRecord{Kind: kind, Reason: Vacation}, row(saturday))
		assert.Equal(t, StatusSkipped, out.Status)
		assert.Equal(t, SkipWeekend, out.Skip, kind.String())
	}
	assert.Zero(t, p.clicks)
}

func TestReconcileDayFullDayAbsenceNeverWrites(t *testing.T) {
	opts := testOptions()
	monday := mustDate(t, "2025-10-13")
	p, row := attendanceFixture(t, opts, fakeRow{date: monday, total: "0h 00m"})
	r := NewReconciler(p, DefaultSchedule(), opts)

	for _, reason := range []Reason{Vacation, SickLeave, Other, Holiday} {
		out := r.ReconcileDay(context.Background(), monday, AbsenceRecord{Kind: FullDay, Reason: reason}, row(monday))
		assert.Equal(t, SkipFullDayAbsence, out.Skip)
		assert.Equal(t, reason, out.Absence.Reason)
	}

	out := r.ReconcileDay(context.Background(), monday, AbsenceRecord{Kind: FullDay, Reason: Vacation}, nil)
	assert.Equal(t, SkipFullDayAbsence, out.Skip)
	assert.Zero(t, p.clicks)
	assert.Zero(t, p.writes())
}

func TestReconcileDayAlreadyFilledIsIdempotent(t *testing.T) {
	opts := testOptions()
	monday := mustDate(t, "2025-10-13")
	p, row := attendanceFixture(t, opts, fakeRow{date: monday, total: "10h 00m"})
	r := NewReconciler(p, DefaultSchedule(), opts)

	for _, kind := range []AbsenceKind{0, HalfMorning, HalfAfternoon} {
		for i := 0; i < 2; i++ {
			out := r.ReconcileDay(context.Background(), monday, AbsenceRecord{Kind: kind, Reason: Vacation}, row(monday))
			assert.Equal(t, SkipAlreadyFilled, out.Skip)
		}
	}
	assert.Zero(t, p.clicks)
	assert.Zero(t, p.writes())
}

func TestReconcileDayDryRunReportsPlan(t *testing.T) {
	opts := testOptions()
	opts.DryRun = true
	monday := mustDate(t, "2025-10-13")
	p, row := attendanceFixture(t, opts, fakeRow{date: monday, total: "0h 00m"})

	out := NewReconciler(p, DefaultSchedule(), opts).ReconcileDay(context.Background(), monday, AbsenceRecord{}, row(monday))

	assert.Equal(t, SkipDryRun, out.Skip)
	assert.Equal(t, "[08:30-14:00, 15:00-18:00]", out.Plan.String())
	assert.Zero(t, p.clicks)
	assert.Empty(t, p.commits)
}

func TestReconcileDayHolidayClosesEntry(t *testing.T) {
	opts := testOptions()
	wednesday := mustDate(t, "2025-10-15")
	p, row := attendanceFixture(t, opts, fakeRow{date: wednesday, total: "0h 00m", holiday: true})

	out := NewReconciler(p, DefaultSchedule(), opts).ReconcileDay(context.Background(), wednesday, AbsenceRecord{}, row(wednesday))

	assert.Equal(t, SkipHoliday, out.Skip)
	assert.Equal(t, 1, p.escapes)
	assert.Empty(t, p.commits)
	open, err := p.IsVisible(context.Background(), opts.Selectors.HolidayPopover, 0)
	require.NoError(t, err)
	assert.False(t, open)
}

func TestReconcileDaySecondShiftFailureIsPartial(t *testing.T) {
	opts := testOptions()
	opts.ScreenshotDir = t.TempDir()
	monday := mustDate(t, "2025-10-13")
	p, row := attendanceFixture(t, opts, fakeRow{date: monday, total: "0h 00m", failShift: 2})

	out := NewReconciler(p, DefaultSchedule(), opts).ReconcileDay(context.Background(), monday, AbsenceRecord{}, row(monday))

	assert.Equal(t, StatusPartiallyFilled, out.Status)
	assert.Equal(t, 1, out.Written)
	assert.ErrorIs(t, out.Err, page.ErrTimeout)
	assert.True(t, out.NeedsAttention())
	assert.Len(t, p.commits, 1)
	assert.Equal(t, 1, p.escapes)
	assert.Equal(t, []string{filepath.Join(opts.ScreenshotDir, "2025-10-13-shift1.png")}, p.screenshots)
}

func TestReconcileDayFirstShiftFailureIsFailed(t *testing.T) {
	opts := testOptions()
	friday := mustDate(t, "2025-10-17")
	p, row := attendanceFixture(t, opts, fakeRow{date: friday, total: "0h 00m", failShift: 1})

	out := NewReconciler(p, DefaultSchedule(), opts).ReconcileDay(context.Background(), friday, AbsenceRecord{}, row(friday))

	assert.Equal(t, StatusFailed, out.Status)
	assert.Zero(t, out.Written)
	assert.ErrorIs(t, out.Err, page.ErrTimeout)
	assert.Empty(t, p.commits)
	assert.Empty(t, p.screenshots)
}

func TestReconcileDayMissingRowFails(t *testing.T) {
	opts := testOptions()
	monday := mustDate(t, "2025-10-13")
	p, row := attendanceFixture(t, opts, fakeRow{date: mustDate(t, "2025-10-14"), total: "0h 00m"})

	out := NewReconciler(p, DefaultSchedule(), opts).ReconcileDay(context.Background(), monday, AbsenceRecord{}, row(monday))

	assert.Equal(t, StatusFailed, out.Status)
	assert.ErrorIs(t, out.Err, ErrRowNotFound)
}
