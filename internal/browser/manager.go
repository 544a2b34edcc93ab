// Package browser drives Chrome through go-rod and exposes tabs as page.Page.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"

	"fichaje/internal/logging"
)

// Config holds browser configuration.
type Config struct {
	// DebuggerURL attaches to an already running Chrome instead of launching one.
	DebuggerURL string
	// Bin is the Chrome binary; empty lets the launcher find or download one.
	Bin string
	// Flags are extra Chrome switches, e.g. "--lang=es-ES".
	Flags             []string
	Headless          bool
	ViewportWidth     int
	ViewportHeight    int
	NavigationTimeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Headless:          false,
		ViewportWidth:     1920,
		ViewportHeight:    1080,
		NavigationTimeout: 30 * time.Second,
	}
}

// GetViewportWidth returns viewport width.
func (c Config) GetViewportWidth() int {
	if c.ViewportWidth == 0 {
		return 1920
	}
	return c.ViewportWidth
}

// GetViewportHeight returns viewport height.
func (c Config) GetViewportHeight() int {
	if c.ViewportHeight == 0 {
		return 1080
	}
	return c.ViewportHeight
}

// GetNavigationTimeout returns the navigation timeout.
func (c Config) GetNavigationTimeout() time.Duration {
	if c.NavigationTimeout <= 0 {
		return 30 * time.Second
	}
	return c.NavigationTimeout
}

// Manager owns the Chrome instance and the pages opened on it.
type Manager struct {
	cfg        Config
	mu         sync.RWMutex
	browser    *rod.Browser
	pages      []*RodPage
	controlURL string // WebSocket URL for DevTools
}

func NewManager(cfg Config) *Manager {
	return &Manager{cfg: cfg}
}

// Start connects to an existing Chrome or launches a new one.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// If we already have a browser, verify it's still alive
	if m.browser != nil {
		if _, err := m.browser.Version(); err == nil {
			return nil
		}
		logging.BrowserWarn("Stale browser connection detected, reconnecting...")
		_ = m.browser.Close()
		m.browser = nil
		m.controlURL = ""
		m.pages = nil
	}

	controlURL := m.cfg.DebuggerURL
	if controlURL == "" {
		url, err := m.launch()
		if err != nil {
			return err
		}
		controlURL = url
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("connect to chrome: %w", err)
	}

	m.browser = browser
	m.controlURL = controlURL
	logging.Browser("Connected to Chrome at %s", controlURL)
	return nil
}

// launch starts Chrome with the configured flags, retrying once without them.
func (m *Manager) launch() (string, error) {
	l := launcher.New().Headless(m.cfg.Headless)
	if m.cfg.Bin != "" {
		l = l.Bin(m.cfg.Bin)
	}
	for _, rawFlag := range m.cfg.Flags {
		flagStr := strings.TrimLeft(rawFlag, "-")
		name, val, hasVal := strings.Cut(flagStr, "=")
		if hasVal {
			l = l.Set(flags.Flag(name), val)
		} else {
			l = l.Set(flags.Flag(name))
		}
	}

	url, err := l.Launch()
	if err == nil {
		return url, nil
	}
	if len(m.cfg.Flags) == 0 {
		return "", fmt.Errorf("launch chrome: %w", err)
	}

	logging.BrowserWarn("Chrome launch with flags failed (%v), retrying without them", err)
	fallback := launcher.New().Headless(m.cfg.Headless)
	if m.cfg.Bin != "" {
		fallback = fallback.Bin(m.cfg.Bin)
	}
	alt, altErr := fallback.Launch()
	if altErr != nil {
		return "", fmt.Errorf("launch chrome: %w (fallback: %v)", err, altErr)
	}
	return alt, nil
}

// ControlURL returns the WebSocket debugger URL.
func (m *Manager) ControlURL() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.controlURL
}

// IsConnected returns whether the browser is connected.
func (m *Manager) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.browser != nil
}

// NewPage opens a blank tab with the configured viewport.
func (m *Manager) NewPage(ctx context.Context) (*RodPage, error) {
	if err := m.Start(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.browser == nil {
		return nil, errors.New("browser not connected")
	}

	p, err := m.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}

	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             m.cfg.GetViewportWidth(),
		Height:            m.cfg.GetViewportHeight(),
		DeviceScaleFactor: 1.0,
		Mobile:            false,
	}).Call(p); err != nil {
		logging.BrowserWarn("Failed to set viewport: %v", err)
	}

	rp := newRodPage(p, m.cfg.GetNavigationTimeout())
	m.pages = append(m.pages, rp)
	return rp, nil
}

// Shutdown closes tracked pages and the browser. A browser attached through
// DebuggerURL is left running.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.pages {
		_ = p.Close()
	}
	m.pages = nil

	var err error
	if m.browser != nil {
		if m.cfg.DebuggerURL == "" {
			err = m.browser.Close()
		}
		m.browser = nil
	}
	m.controlURL = ""
	logging.BrowserDebug("Browser shut down")
	return err
}
