package config

import (
	"fmt"

	"fichaje/internal/attendance"
	"fichaje/internal/session"
)

// ResolveSchedule builds the shift schedule. Every problem is returned as a
// warning and the affected slot keeps its default.
func (c *Config) ResolveSchedule() (attendance.Schedule, []error) {
	return attendance.ScheduleFromSlots(c.Schedule)
}

// EngineOptions builds the engine options for a run. Unknown selectors and
// an unknown locale are reported as warnings and fall back to defaults.
func (c *Config) EngineOptions(dryRun bool) (attendance.Options, []error) {
	opts := attendance.DefaultOptions()
	opts.DryRun = dryRun
	opts.TimeOffURL = c.Site.TimeOffURL
	opts.AttendanceURL = c.Site.AttendanceURL
	if c.Engine.WindowDays > 0 {
		opts.WindowDays = c.Engine.WindowDays
	}
	opts.Timeouts = c.Browser.Timeouts()
	opts.SettleDelay = c.GetSettleDelay()
	opts.EscapeDelay = c.GetEscapeDelay()
	opts.ScreenshotDir = c.ScreenshotDirPath()

	var warnings []error
	if locale, ok := attendance.LocaleByName(c.Engine.Locale); ok {
		opts.Locale = locale
	} else {
		warnings = append(warnings, fmt.Errorf("unsupported locale %q, using %s", c.Engine.Locale, opts.Locale.Name))
	}

	selectors, errs := opts.Selectors.WithOverrides(c.Selectors)
	opts.Selectors = selectors
	warnings = append(warnings, errs...)
	return opts, warnings
}

// SessionOptions builds the session provider options.
func (c *Config) SessionOptions(forceLogin bool) session.Options {
	opts := session.DefaultOptions()
	opts.LoginURL = c.Site.LoginURL
	opts.DashboardURL = c.Site.DashboardURL
	opts.AuthFile = c.AuthFilePath()
	opts.ForceLogin = forceLogin
	opts.LoginTimeout = c.Browser.GetLoginTimeout()
	return opts
}
