package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fichaje/internal/config"
	"fichaje/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	configPath string
	verbose    bool
	timeout    time.Duration

	// Resolved in PersistentPreRunE
	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "fichaje",
	Short: "Fill missing attendance shifts in FactorialHR",
	Long: `fichaje reconciles your FactorialHR attendance sheet with the
configured working schedule.

It reads approved absences from the time-off calendar, works out which
shifts each past working day should have, and writes the ones that are
missing. Days that already have recorded time are never touched.

Runs are dry by default. Pass --execute to write to the remote sheet.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		loaded, err := config.Load(configPath)
		if err != nil {
			logger.Warn("Using default configuration", zap.String("path", configPath), zap.Error(err))
		}
		cfg = loaded
		if err := cfg.Validate(); err != nil {
			logger.Warn("Configuration has problems, defaults apply where needed", zap.Error(err))
		}

		if err := logging.Initialize(cfg.Logging.ToLogging(verbose)); err != nil {
			logger.Warn("Falling back to default log settings", zap.Error(err))
			_ = logging.Initialize(logging.Config{})
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAudit()
		_ = logging.Sync()
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "Configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Minute, "Overall timeout for browser commands")

	rootCmd.AddCommand(runCmd, loginCmd, planCmd, historyCmd, configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// commandContext bounds a command by --timeout and cancels it on SIGINT/SIGTERM.
func commandContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Info("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// warnAll logs every non-fatal configuration problem.
func warnAll(msg string, errs []error) {
	for _, err := range errs {
		logger.Warn(msg, zap.Error(err))
	}
}
