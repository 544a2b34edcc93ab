package main

import (
	"fmt"

	"fichaje/internal/attendance"

	"github.com/spf13/cobra"
)

var planAbsence string

var planCmd = &cobra.Command{
	Use:   "plan DATE",
	Short: "Show the shifts that would be written for a date",
	Long: `Prints the shift plan for DATE (YYYY-MM-DD) using the configured
schedule. Nothing is opened in the browser.

Example:
  fichaje plan 2025-10-15 --absence half_morning`,
	Args: cobra.ExactArgs(1),
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringVar(&planAbsence, "absence", "none", "Absence on that date: none, half_morning, half_afternoon, full")
}

func runPlan(cmd *cobra.Command, args []string) error {
	date, err := attendance.ParseDate(args[0])
	if err != nil {
		return err
	}
	kind, err := attendance.ParseAbsenceKind(planAbsence)
	if err != nil {
		return err
	}
	schedule, warnings := cfg.ResolveSchedule()
	warnAll("Schedule fallback", warnings)

	out := cmd.OutOrStdout()
	if date.IsWeekend() {
		fmt.Fprintf(out, "%s is a %s: nothing to write\n", date, date.Weekday())
		return nil
	}

	var rec attendance.AbsenceRecord
	if kind != 0 {
		rec = attendance.AbsenceRecord{Kind: kind, Reason: attendance.Vacation}
	}
	plan := attendance.PlanShifts(date, rec, schedule)
	if len(plan) == 0 {
		fmt.Fprintf(out, "%s: full-day absence, nothing to write\n", date)
		return nil
	}

	fmt.Fprintf(out, "%s (%s): %s total %s\n", date, date.Weekday(), plan, plan.Total())
	return nil
}
