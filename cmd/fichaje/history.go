package main

import (
	"context"
	"errors"
	"fmt"

	"fichaje/internal/store"

	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent reconciliation runs",
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show RUN_ID",
	Short: "Show the per-day outcomes of one run",
	Long: `Shows every date of a stored run with its status. RUN_ID may be
any unambiguous prefix of the run ID, as printed by "fichaje history".`,
	Args: cobra.ExactArgs(1),
	RunE: runHistoryShow,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "Number of runs to list")
	historyCmd.AddCommand(historyShowCmd)
}

var errHistoryDisabled = errors.New("run history is disabled (data.history_db is \"-\")")

func openHistory() (*store.HistoryStore, error) {
	path := cfg.HistoryDBPath()
	if path == "" {
		return nil, errHistoryDisabled
	}
	return store.OpenHistoryStore(path)
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	h, err := openHistory()
	if err != nil {
		return err
	}
	defer h.Close()

	runs, err := h.RecentRuns(context.Background(), historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderHistory(runs))
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	h, err := openHistory()
	if err != nil {
		return err
	}
	defer h.Close()

	ctx := context.Background()
	run, err := h.FindRun(ctx, args[0])
	if err != nil {
		return err
	}
	outcomes, err := h.RunOutcomes(ctx, run.ID)
	if err != nil {
		return fmt.Errorf("failed to load outcomes: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderOutcomes(run, outcomes))
	return nil
}
