package main

import (
	"errors"
	"fmt"
	"os"

	"fichaje/internal/config"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	configInitPath  string
	configInitForce bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the resolved configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

func init() {
	configInitCmd.Flags().StringVar(&configInitPath, "path", "", "Where to write (default: --config)")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing file")
	configCmd.AddCommand(configInitCmd, configShowCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configInitPath
	if path == "" {
		path = configPath
	}
	if _, err := os.Stat(path); err == nil && !configInitForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to check %s: %w", path, err)
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote default configuration to %s\n", path)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	schedule, warnings := cfg.ResolveSchedule()
	_, optWarnings := cfg.EngineOptions(true)
	warnings = append(warnings, optWarnings...)

	resolved := *cfg
	resolved.Schedule = schedule.Slots()
	data, err := yaml.Marshal(&resolved)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "# source: %s\n", configPath)
	fmt.Fprintf(out, "# auth file: %s\n", cfg.AuthFilePath())
	if path := cfg.HistoryDBPath(); path != "" {
		fmt.Fprintf(out, "# history: %s\n", path)
	} else {
		fmt.Fprintln(out, "# history: disabled")
	}
	for _, w := range warnings {
		fmt.Fprintf(out, "# warning: %v\n", w)
	}
	_, err = out.Write(data)
	return err
}
