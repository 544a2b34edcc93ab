package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fichaje/internal/attendance"
)

func TestWriteTextfile(t *testing.T) {
	d := func(s string) attendance.Date {
		v, err := attendance.ParseDate(s)
		require.NoError(t, err)
		return v
	}
	finished := time.Date(2025, 10, 18, 9, 1, 0, 0, time.UTC)
	report := &attendance.RunReport{
		ID:         "run-a",
		StartedAt:  finished.Add(-time.Minute),
		FinishedAt: finished,
		DryRun:     true,
		Absences: attendance.AbsenceMap{
			d("2025-10-14"): {Kind: attendance.HalfAfternoon, Reason: attendance.Vacation},
			d("2025-10-15"): {Kind: attendance.FullDay, Reason: attendance.Holiday},
		},
		DetectionErrors: map[attendance.Date]error{
			d("2025-10-16"): errors.New("read style: node detached"),
		},
		Outcomes: []attendance.Outcome{
			{Date: d("2025-10-11"), Status: attendance.StatusSkipped, Skip: attendance.SkipWeekend},
			{Date: d("2025-10-12"), Status: attendance.StatusSkipped, Skip: attendance.SkipWeekend},
			{Date: d("2025-10-13"), Status: attendance.StatusSkipped, Skip: attendance.SkipDryRun},
			{Date: d("2025-10-16"), Status: attendance.StatusFailed},
		},
	}

	path := filepath.Join(t.TempDir(), "textfile", "fichaje.prom")
	require.NoError(t, WriteTextfile(path, report))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)

	assert.Contains(t, out, `fichaje_last_run_outcomes{reason="weekend",status="skipped"} 2`)
	assert.Contains(t, out, `fichaje_last_run_outcomes{reason="dry_run",status="skipped"} 1`)
	assert.Contains(t, out, `status="failed"} 1`)
	assert.Contains(t, out, `fichaje_last_run_absences{kind="half_afternoon",reason="vacation"} 1`)
	assert.Contains(t, out, `fichaje_last_run_absences{kind="full",reason="holiday"} 1`)
	assert.Contains(t, out, "fichaje_last_run_detection_errors 1")
	assert.Contains(t, out, "fichaje_last_run_dry_run 1")
	assert.Contains(t, out, "fichaje_last_run_duration_seconds 60")
	assert.Contains(t, out, "fichaje_last_run_timestamp_seconds "+strconv.FormatFloat(float64(finished.Unix()), 'g', -1, 64))
}
