package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"fichaje/internal/attendance"
	"fichaje/internal/session"
)

// DefaultPath is where the CLI looks for configuration.
const DefaultPath = "fichaje.yaml"

// Config holds all fichaje configuration.
type Config struct {
	Site SiteConfig `yaml:"site"`

	// Schedule maps slot names to [start, end] wall-clock times.
	Schedule map[string][]string `yaml:"schedule"`

	Browser BrowserConfig `yaml:"browser"`
	Data    DataConfig    `yaml:"data"`
	Engine  EngineConfig  `yaml:"engine"`

	// Selectors override individual page selectors by name.
	Selectors map[string]string `yaml:"selectors,omitempty"`

	Logging LoggingConfig `yaml:"logging"`
}

// SiteConfig holds the remote application's addresses.
type SiteConfig struct {
	LoginURL      string `yaml:"login_url"`
	DashboardURL  string `yaml:"dashboard_url"`
	TimeOffURL    string `yaml:"time_off_url"`
	AttendanceURL string `yaml:"attendance_url"`
}

// DataConfig locates local state. Empty file paths resolve inside Dir.
type DataConfig struct {
	Dir           string `yaml:"dir"`
	AuthFile      string `yaml:"auth_file,omitempty"`
	HistoryDB     string `yaml:"history_db,omitempty"`
	MetricsFile   string `yaml:"metrics_file,omitempty"`
	ScreenshotDir string `yaml:"screenshot_dir,omitempty"`
	AuditFile     string `yaml:"audit_file,omitempty"`
}

// EngineConfig tunes the reconciliation run.
type EngineConfig struct {
	WindowDays  int    `yaml:"window_days"`
	SettleDelay string `yaml:"settle_delay"`
	EscapeDelay string `yaml:"escape_delay"`
	Locale      string `yaml:"locale"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			LoginURL:      session.DefaultLoginURL,
			DashboardURL:  session.DefaultDashboardURL,
			TimeOffURL:    attendance.DefaultTimeOffURL,
			AttendanceURL: attendance.DefaultAttendanceURL,
		},
		Schedule: attendance.DefaultSchedule().Slots(),
		Browser:  DefaultBrowserConfig(),
		Data: DataConfig{
			Dir: "data",
		},
		Engine: EngineConfig{
			WindowDays:  30,
			SettleDelay: "1s",
			EscapeDelay: "500ms",
			Locale:      "es",
		},
		Logging: LoggingConfig{
			Level:   "info",
			Console: "console",
		},
	}
}

// Load reads path over the defaults and applies environment overrides.
// A missing file yields the defaults. A file that cannot be read or parsed
// also yields the defaults, together with the error so the caller can warn:
// configuration problems are never fatal.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		cfg.applyEnvOverrides()
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	parsed := DefaultConfig()
	if err := yaml.Unmarshal(data, parsed); err != nil {
		cfg.applyEnvOverrides()
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	parsed.applyEnvOverrides()
	return parsed, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

func (c *Config) applyEnvOverrides() {
	if dir := os.Getenv("FICHAJE_DATA_DIR"); dir != "" {
		c.Data.Dir = dir
	}
	if bin := os.Getenv("FICHAJE_CHROME_BIN"); bin != "" {
		c.Browser.Bin = bin
	}
	if v := os.Getenv("FICHAJE_HEADLESS"); v != "" {
		if headless, err := strconv.ParseBool(v); err == nil {
			c.Browser.Headless = headless
		}
	}
	if u := os.Getenv("FICHAJE_DEBUGGER_URL"); u != "" {
		c.Browser.DebuggerURL = u
	}
}

// Validate reports settings that cannot work. Schedule and selector problems
// are not errors here; they fall back per entry when resolved.
func (c *Config) Validate() error {
	var errs []error
	for name, raw := range map[string]string{
		"site.login_url":      c.Site.LoginURL,
		"site.dashboard_url":  c.Site.DashboardURL,
		"site.time_off_url":   c.Site.TimeOffURL,
		"site.attendance_url": c.Site.AttendanceURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("%s: invalid URL %q", name, raw))
		}
	}
	if c.Engine.WindowDays < 1 {
		errs = append(errs, fmt.Errorf("engine.window_days must be positive, got %d", c.Engine.WindowDays))
	}
	if _, ok := attendance.LocaleByName(c.Engine.Locale); !ok {
		errs = append(errs, fmt.Errorf("engine.locale: unsupported locale %q", c.Engine.Locale))
	}
	return errors.Join(errs...)
}

func durationOr(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}

// GetSettleDelay returns the pause after each committed shift.
func (c *Config) GetSettleDelay() time.Duration {
	return durationOr(c.Engine.SettleDelay, time.Second)
}

// GetEscapeDelay returns the pause after closing a view.
func (c *Config) GetEscapeDelay() time.Duration {
	return durationOr(c.Engine.EscapeDelay, 500*time.Millisecond)
}

func (c *Config) dataPath(explicit, name string) string {
	if explicit != "" {
		return explicit
	}
	dir := c.Data.Dir
	if dir == "" {
		dir = "data"
	}
	return filepath.Join(dir, name)
}

// AuthFilePath returns where the session cookie jar is kept.
func (c *Config) AuthFilePath() string { return c.dataPath(c.Data.AuthFile, "auth.json") }

// HistoryDBPath returns the run history database. "-" disables history.
func (c *Config) HistoryDBPath() string {
	if c.Data.HistoryDB == "-" {
		return ""
	}
	return c.dataPath(c.Data.HistoryDB, "history.db")
}

// ScreenshotDirPath returns where failed shift writes are captured.
func (c *Config) ScreenshotDirPath() string { return c.dataPath(c.Data.ScreenshotDir, "failures") }

// AuditFilePath returns the JSON-lines audit trail.
func (c *Config) AuditFilePath() string { return c.dataPath(c.Data.AuditFile, "audit.jsonl") }

// MetricsFilePath returns the textfile to export, or "" when disabled.
func (c *Config) MetricsFilePath() string { return c.Data.MetricsFile }
