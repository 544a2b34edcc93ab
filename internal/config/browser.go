package config

import (
	"time"

	"fichaje/internal/attendance"
	"fichaje/internal/browser"
)

// BrowserConfig configures Chrome and every wait performed on it.
type BrowserConfig struct {
	Bin         string   `yaml:"bin,omitempty"`
	DebuggerURL string   `yaml:"debugger_url,omitempty"`
	Headless    bool     `yaml:"headless"`
	Flags       []string `yaml:"flags,omitempty"`

	ViewportWidth  int `yaml:"viewport_width"`
	ViewportHeight int `yaml:"viewport_height"`

	NavigationTimeout string `yaml:"navigation_timeout"`
	ElementTimeout    string `yaml:"element_timeout"`
	CalendarTimeout   string `yaml:"calendar_timeout"`
	DetailTimeout     string `yaml:"detail_timeout"`
	PopoverTimeout    string `yaml:"popover_timeout"`
	ModalTimeout      string `yaml:"modal_timeout"`
	LoginTimeout      string `yaml:"login_timeout"`
}

func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{
		Headless:          true,
		Flags:             []string{"--lang=es-ES"},
		ViewportWidth:     1920,
		ViewportHeight:    1080,
		NavigationTimeout: "30s",
		ElementTimeout:    "5s",
		CalendarTimeout:   "10s",
		DetailTimeout:     "5s",
		PopoverTimeout:    "2s",
		ModalTimeout:      "5s",
		LoginTimeout:      "60s",
	}
}

// GetNavigationTimeout returns the page load timeout.
func (b BrowserConfig) GetNavigationTimeout() time.Duration {
	return durationOr(b.NavigationTimeout, 30*time.Second)
}

// GetElementTimeout returns the default element wait.
func (b BrowserConfig) GetElementTimeout() time.Duration {
	return durationOr(b.ElementTimeout, 5*time.Second)
}

// GetLoginTimeout returns how long to wait for the dashboard after login.
func (b BrowserConfig) GetLoginTimeout() time.Duration {
	return durationOr(b.LoginTimeout, 60*time.Second)
}

// Timeouts resolves the engine's waits, falling back per entry.
func (b BrowserConfig) Timeouts() attendance.Timeouts {
	def := attendance.DefaultTimeouts()
	return attendance.Timeouts{
		Calendar: durationOr(b.CalendarTimeout, def.Calendar),
		Element:  durationOr(b.ElementTimeout, def.Element),
		Detail:   durationOr(b.DetailTimeout, def.Detail),
		Popover:  durationOr(b.PopoverTimeout, def.Popover),
		Modal:    durationOr(b.ModalTimeout, def.Modal),
	}
}

// ToBrowser converts to the browser package's configuration.
func (b BrowserConfig) ToBrowser() browser.Config {
	return browser.Config{
		DebuggerURL:       b.DebuggerURL,
		Bin:               b.Bin,
		Flags:             b.Flags,
		Headless:          b.Headless,
		ViewportWidth:     b.ViewportWidth,
		ViewportHeight:    b.ViewportHeight,
		NavigationTimeout: b.GetNavigationTimeout(),
	}
}
