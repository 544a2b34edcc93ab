package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"fichaje/internal/attendance"
	"fichaje/internal/config"
	"fichaje/internal/store"
)

// setupCLI points the package globals at a temp data dir.
func setupCLI(t *testing.T) string {
	t.Helper()
	logger = zap.NewNop()
	dir := t.TempDir()
	cfg = config.DefaultConfig()
	cfg.Data.Dir = filepath.Join(dir, "data")
	configPath = filepath.Join(dir, "fichaje.yaml")
	t.Cleanup(func() {
		cfg = nil
		configPath = config.DefaultPath
		planAbsence = "none"
		historyLimit = 10
		configInitPath = ""
		configInitForce = false
	})
	return dir
}

func newTestCmd() (*cobra.Command, *bytes.Buffer) {
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	return cmd, &out
}

func mustDate(t *testing.T, s string) attendance.Date {
	t.Helper()
	d, err := attendance.ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestPlanCmd(t *testing.T) {
	tests := []struct {
		name    string
		date    string
		absence string
		want    string
	}{
		{"full working day", "2025-10-15", "none", "2025-10-15 (Wednesday): [08:30-14:00, 15:00-18:00]"},
		{"morning off", "2025-10-15", "half_morning", "[15:00-18:00]"},
		{"afternoon off", "2025-10-15", "half_afternoon", "[08:30-14:00]"},
		{"friday ignores half day", "2025-10-17", "half_morning", "[08:30-15:00]"},
		{"full day absence", "2025-10-15", "full", "full-day absence, nothing to write"},
		{"weekend", "2025-10-18", "none", "is a Saturday: nothing to write"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupCLI(t)
			planAbsence = tt.absence
			cmd, out := newTestCmd()
			require.NoError(t, runPlan(cmd, []string{tt.date}))
			assert.Contains(t, out.String(), tt.want)
		})
	}
}

func TestPlanCmdUsesConfiguredSchedule(t *testing.T) {
	setupCLI(t)
	cfg.Schedule[attendance.SlotMorning] = []string{"09:00", "13:00"}
	cmd, out := newTestCmd()
	require.NoError(t, runPlan(cmd, []string{"2025-10-15"}))
	assert.Contains(t, out.String(), "[09:00-13:00, 15:00-18:00]")
}

func TestPlanCmdRejectsBadInput(t *testing.T) {
	setupCLI(t)
	cmd, _ := newTestCmd()
	assert.Error(t, runPlan(cmd, []string{"15/10/2025"}))

	planAbsence = "sabbatical"
	assert.Error(t, runPlan(cmd, []string{"2025-10-15"}))
}

func TestConfigInitAndShow(t *testing.T) {
	dir := setupCLI(t)
	configInitPath = filepath.Join(dir, "conf", "fichaje.yaml")

	cmd, out := newTestCmd()
	require.NoError(t, runConfigInit(cmd, nil))
	assert.Contains(t, out.String(), configInitPath)
	_, err := os.Stat(configInitPath)
	require.NoError(t, err)

	// A second init refuses to clobber the file.
	assert.Error(t, runConfigInit(cmd, nil))
	configInitForce = true
	assert.NoError(t, runConfigInit(cmd, nil))

	loaded, err := config.Load(configInitPath)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig().Schedule, loaded.Schedule)

	cmd, out = newTestCmd()
	require.NoError(t, runConfigShow(cmd, nil))
	assert.Contains(t, out.String(), "normal_day_morning")
	assert.Contains(t, out.String(), "# history: "+filepath.Join(cfg.Data.Dir, "history.db"))
}

func TestConfigShowReportsFallbacks(t *testing.T) {
	setupCLI(t)
	cfg.Schedule[attendance.SlotFriday] = []string{"15:00", "08:30"}
	cfg.Data.HistoryDB = "-"

	cmd, out := newTestCmd()
	require.NoError(t, runConfigShow(cmd, nil))
	assert.Contains(t, out.String(), "# warning: ")
	assert.Contains(t, out.String(), "friday_continuous")
	assert.Contains(t, out.String(), "# history: disabled")
}

func TestHistoryCmds(t *testing.T) {
	setupCLI(t)

	h, err := store.OpenHistoryStore(cfg.HistoryDBPath())
	require.NoError(t, err)
	started := time.Date(2025, 10, 18, 9, 0, 0, 0, time.UTC)
	s := attendance.DefaultSchedule()
	report := &attendance.RunReport{
		ID:         "3f2a9c1e-0000-4000-8000-000000000001",
		StartedAt:  started,
		FinishedAt: started.Add(time.Minute),
		Window:     attendance.Window{Start: mustDate(t, "2025-10-16"), End: mustDate(t, "2025-10-17")},
		Outcomes: []attendance.Outcome{
			{Date: mustDate(t, "2025-10-16"), Status: attendance.StatusFailed, Err: errors.New("row not found")},
			{Date: mustDate(t, "2025-10-17"), Status: attendance.StatusFilled, Plan: attendance.ShiftPlan{s.Friday}, Written: 1,
				DetectionErr: errors.New("read class: node detached")},
		},
	}
	require.NoError(t, h.RecordRun(context.Background(), report))
	require.NoError(t, h.Close())

	cmd, out := newTestCmd()
	require.NoError(t, runHistoryList(cmd, nil))
	assert.Contains(t, out.String(), "3f2a9c1e")
	assert.Contains(t, out.String(), "2025-10-16..2025-10-17")
	assert.Contains(t, out.String(), "filled 1, partial 0, failed 1")
	assert.Contains(t, out.String(), "absence unknown 1")

	cmd, out = newTestCmd()
	require.NoError(t, runHistoryShow(cmd, []string{"3f2a"}))
	assert.Contains(t, out.String(), "row not found")
	assert.Contains(t, out.String(), "[08:30-15:00]")
	assert.Contains(t, out.String(), "[absence unknown: read class: node detached]")

	cmd, _ = newTestCmd()
	assert.ErrorIs(t, runHistoryShow(cmd, []string{"ffff"}), store.ErrRunNotFound)
}

func TestHistoryDisabled(t *testing.T) {
	setupCLI(t)
	cfg.Data.HistoryDB = "-"
	cmd, _ := newTestCmd()
	assert.ErrorIs(t, runHistoryList(cmd, nil), errHistoryDisabled)
}

func TestRenderReport(t *testing.T) {
	s := attendance.DefaultSchedule()
	started := time.Date(2025, 10, 18, 9, 0, 0, 0, time.UTC)
	report := &attendance.RunReport{
		ID:         "abcdef0123456789",
		StartedAt:  started,
		FinishedAt: started.Add(1500 * time.Millisecond),
		Window:     attendance.Window{Start: mustDate(t, "2025-10-13"), End: mustDate(t, "2025-10-14")},
		DryRun:     true,
		Absences: attendance.AbsenceMap{
			mustDate(t, "2025-10-14"): {Kind: attendance.FullDay, Reason: attendance.SickLeave},
		},
		Outcomes: []attendance.Outcome{
			{Date: mustDate(t, "2025-10-13"), Status: attendance.StatusSkipped, Skip: attendance.SkipDryRun,
				Plan: attendance.ShiftPlan{s.Morning, s.Afternoon}},
			{Date: mustDate(t, "2025-10-14"), Status: attendance.StatusSkipped, Skip: attendance.SkipFullDayAbsence},
		},
	}

	got := renderReport(report)
	assert.Contains(t, got, "abcdef01")
	assert.Contains(t, got, "dry run")
	assert.Contains(t, got, "2025-10-13..2025-10-14")
	assert.Contains(t, got, "full/sick_leave")
	assert.Contains(t, got, "would fill [08:30-14:00, 15:00-18:00]")
	assert.Contains(t, got, "skipped: full_day_absence")
	assert.Contains(t, got, "filled 0")
	assert.NotContains(t, got, "need attention")
}

func TestRenderReportFlagsAttention(t *testing.T) {
	report := &attendance.RunReport{
		Outcomes: []attendance.Outcome{
			{Date: mustDate(t, "2025-10-13"), Status: attendance.StatusFailed, Err: errors.New("boom")},
		},
	}
	got := renderReport(report)
	assert.Contains(t, got, "failed: boom")
	assert.Contains(t, got, "1 day(s) need attention")
}

func TestRenderReportListsDetectionErrors(t *testing.T) {
	s := attendance.DefaultSchedule()
	tuesday := mustDate(t, "2025-10-14")
	detectErr := errors.New("read style: node detached")
	report := &attendance.RunReport{
		Window:          attendance.Window{Start: tuesday, End: tuesday},
		DetectionErrors: map[attendance.Date]error{tuesday: detectErr},
		Outcomes: []attendance.Outcome{
			{Date: tuesday, Status: attendance.StatusFilled, Plan: attendance.ShiftPlan{s.Morning, s.Afternoon},
				Written: 2, DetectionErr: detectErr},
		},
	}

	got := renderReport(report)
	assert.Contains(t, got, "Absence detection failed")
	assert.Contains(t, got, "read style: node detached")
	assert.Contains(t, got, "filled [08:30-14:00, 15:00-18:00]")
	assert.Contains(t, got, "(absence unknown)")
	assert.Contains(t, got, "1 day(s) need attention")
}

func TestRunFlagsDefaultToDryRun(t *testing.T) {
	flag := runCmd.Flags().Lookup("dry-run")
	require.NotNil(t, flag)
	assert.Equal(t, "true", flag.DefValue)
	assert.NotNil(t, runCmd.Flags().Lookup("execute"))
	assert.NotNil(t, runCmd.Flags().Lookup("force-login"))
	assert.NotNil(t, loginCmd.Flags().Lookup("force-login"))
}
