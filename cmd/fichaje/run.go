package main

import (
	"context"
	"fmt"
	"time"

	"fichaje/internal/attendance"
	"fichaje/internal/browser"
	"fichaje/internal/logging"
	"fichaje/internal/metrics"
	"fichaje/internal/session"
	"fichaje/internal/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	runDryRun     bool
	runExecute    bool
	runForceLogin bool
	runDays       int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Reconcile the attendance sheet for the trailing window",
	Long: `Logs in (reusing the saved session when possible), scans the
time-off calendar for approved absences, and fills every past working day
in the window that has no recorded time.

Without --execute nothing is written: the report shows what would be
filled. Individual day failures are reported and do not fail the command.`,
	Args: cobra.NoArgs,
	RunE: runReconcile,
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Establish and save a FactorialHR session",
	Args:  cobra.NoArgs,
	RunE:  runLogin,
}

var loginForce bool

const browserCloseTimeout = 10 * time.Second

func init() {
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", true, "Simulate writes and only report them")
	runCmd.Flags().BoolVar(&runExecute, "execute", false, "Write shifts to the remote sheet (same as --dry-run=false)")
	runCmd.Flags().BoolVar(&runForceLogin, "force-login", false, "Ignore the saved session and log in again")
	runCmd.Flags().IntVar(&runDays, "days", 0, "Window size in days (default from config)")

	loginCmd.Flags().BoolVar(&loginForce, "force-login", false, "Ignore the saved session and log in again")
}

func newProvider(force bool) *session.Provider {
	mgr := browser.NewManager(cfg.Browser.ToBrowser())
	return session.NewProvider(session.FromManager(mgr), session.NewTerminalPrompter(), cfg.SessionOptions(force))
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	dryRun := runDryRun && !runExecute
	opts, warnings := cfg.EngineOptions(dryRun)
	warnAll("Engine option fallback", warnings)
	if runDays > 0 {
		opts.WindowDays = runDays
	}
	schedule, warnings := cfg.ResolveSchedule()
	warnAll("Schedule fallback", warnings)

	if err := logging.InitAudit(cfg.AuditFilePath()); err != nil {
		logger.Warn("Audit trail disabled", zap.Error(err))
	}

	var history *store.HistoryStore
	if path := cfg.HistoryDBPath(); path != "" {
		var err error
		history, err = store.OpenHistoryStore(path)
		if err != nil {
			return fmt.Errorf("failed to open run history: %w", err)
		}
		defer history.Close()
	}

	sess, err := newProvider(runForceLogin).Open(ctx)
	if err != nil {
		return fmt.Errorf("failed to open session: %w", err)
	}
	defer closeSession(sess)

	logger.Info("Starting run",
		zap.Bool("dry_run", dryRun),
		zap.Int("days", opts.WindowDays),
		zap.String("schedule", fmt.Sprintf("%s | %s | fri %s", schedule.Morning, schedule.Afternoon, schedule.Friday)))

	report := attendance.NewEngine(sess.Page(), schedule, opts).Run(ctx)

	fmt.Fprintln(cmd.OutOrStdout(), renderReport(report))

	if history != nil {
		if err := history.RecordRun(ctx, report); err != nil {
			logger.Warn("Failed to record run history", zap.Error(err))
		}
	}
	if path := cfg.MetricsFilePath(); path != "" {
		if err := metrics.WriteTextfile(path, report); err != nil {
			logger.Warn("Failed to write metrics", zap.Error(err))
		}
	}
	return nil
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	sess, err := newProvider(loginForce).Open(ctx)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	defer closeSession(sess)

	fmt.Fprintf(cmd.OutOrStdout(), "Session ready, cookies in %s\n", cfg.AuthFilePath())
	return nil
}

func closeSession(sess *session.Session) {
	ctx, cancel := context.WithTimeout(context.Background(), browserCloseTimeout)
	defer cancel()
	if err := sess.Close(ctx); err != nil {
		logger.Warn("Failed to close browser", zap.Error(err))
	}
}
