// Package session establishes an authenticated browser tab, reusing saved
// cookies when they are still valid and falling back to an interactive
// login with two-factor code otherwise.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"fichaje/internal/browser"
	"fichaje/internal/logging"
	"fichaje/internal/page"
)

// Default endpoints.
const (
	DefaultLoginURL     = "https://api.factorialhr.com/en/users/sign_in?&return_to=https%3A%2F%2Fapp.factorialhr.com%2F"
	DefaultDashboardURL = "https://app.factorialhr.com/"
)

// ErrLoginFailed wraps every failure of the interactive login.
var ErrLoginFailed = errors.New("login failed")

// Tab is an authenticatable browser tab.
type Tab interface {
	page.Page
	Cookies(ctx context.Context) ([]browser.Cookie, error)
	SetCookies(ctx context.Context, cookies []browser.Cookie) error
	WaitURL(ctx context.Context, match func(string) bool, timeout time.Duration) error
	Close() error
}

// Browser opens tabs.
type Browser interface {
	NewTab(ctx context.Context) (Tab, error)
	Shutdown(ctx context.Context) error
}

// FromManager adapts a browser.Manager.
func FromManager(m *browser.Manager) Browser {
	return managerBrowser{m: m}
}

type managerBrowser struct {
	m *browser.Manager
}

func (b managerBrowser) NewTab(ctx context.Context) (Tab, error) {
	p, err := b.m.NewPage(ctx)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (b managerBrowser) Shutdown(ctx context.Context) error {
	return b.m.Shutdown(ctx)
}

// LoginSelectors locate the login form.
type LoginSelectors struct {
	Email    string
	Password string
	Submit   string
	Code     string
}

func DefaultLoginSelectors() LoginSelectors {
	return LoginSelectors{
		Email:    "input#user_email",
		Password: "input#user_password",
		Submit:   `input[name="commit"]`,
		Code:     "input#user_code",
	}
}

// Options configure a Provider.
type Options struct {
	LoginURL     string
	DashboardURL string
	// AuthFile stores the cookie jar between runs.
	AuthFile   string
	ForceLogin bool
	Selectors  LoginSelectors
	// ElementTimeout bounds each login form lookup, including the 2FA field.
	ElementTimeout time.Duration
	// LoginTimeout bounds the wait for the dashboard after the 2FA code.
	LoginTimeout time.Duration
}

func DefaultOptions() Options {
	return Options{
		LoginURL:       DefaultLoginURL,
		DashboardURL:   DefaultDashboardURL,
		AuthFile:       filepath.Join("data", "auth.json"),
		Selectors:      DefaultLoginSelectors(),
		ElementTimeout: 10 * time.Second,
		LoginTimeout:   60 * time.Second,
	}
}

// Provider hands out authenticated sessions.
type Provider struct {
	browser  Browser
	prompter Prompter
	opts     Options
}

func NewProvider(b Browser, prompter Prompter, opts Options) *Provider {
	return &Provider{browser: b, prompter: prompter, opts: opts}
}

// Session is an authenticated tab. It owns the browser until Close.
type Session struct {
	tab     Tab
	browser Browser
}

// Page is the authenticated tab.
func (s *Session) Page() page.Page { return s.tab }

// Close closes the tab and shuts the browser down.
func (s *Session) Close(ctx context.Context) error {
	err := s.tab.Close()
	if serr := s.browser.Shutdown(ctx); serr != nil && err == nil {
		err = serr
	}
	return err
}

// Open returns a session whose tab is logged in. Saved cookies are tried
// first unless ForceLogin is set; an invalid session triggers the
// interactive login. Any error here is fatal for the caller.
func (p *Provider) Open(ctx context.Context) (*Session, error) {
	tab, err := p.browser.NewTab(ctx)
	if err != nil {
		return nil, fmt.Errorf("open browser tab: %w", err)
	}
	s := &Session{tab: tab, browser: p.browser}

	if err := p.authenticate(ctx, tab); err != nil {
		_ = s.Close(ctx)
		return nil, err
	}
	return s, nil
}

func (p *Provider) authenticate(ctx context.Context, tab Tab) error {
	log := logging.Get(logging.CategorySession)

	hasAuthFile := false
	if !p.opts.ForceLogin {
		cookies, exists, err := loadCookies(p.opts.AuthFile)
		hasAuthFile = exists
		switch {
		case err != nil:
			log.Warn("Ignoring saved session: %v", err)
		case len(cookies) > 0:
			log.Info("Loading session from %s", p.opts.AuthFile)
			if err := tab.SetCookies(ctx, cookies); err != nil {
				log.Warn("Could not restore cookies: %v", err)
			}
		}
	}

	if !p.opts.ForceLogin {
		log.Info("Validating session...")
		if p.validate(ctx, tab) {
			if !hasAuthFile {
				log.Info("Session is valid, saving new session state...")
				return p.save(ctx, tab)
			}
			log.Info("Session valid")
			return nil
		}
	}

	log.Info("Session invalid or forced login. Starting interactive login...")
	if err := p.login(ctx, tab); err != nil {
		p.screenshotFailure(ctx, tab)
		return fmt.Errorf("%w: %v", ErrLoginFailed, err)
	}
	log.Info("Login successful")
	return p.save(ctx, tab)
}

// validate loads the dashboard and reports whether it stayed there.
func (p *Provider) validate(ctx context.Context, tab Tab) bool {
	if err := tab.Navigate(ctx, p.opts.DashboardURL); err != nil {
		logging.SessionWarn("Navigation failed: %v", err)
	}
	u, err := tab.URL(ctx)
	if err != nil {
		logging.SessionWarn("Could not read URL: %v", err)
		return false
	}
	logging.SessionDebug("Landed on %s", u)
	return p.onDashboard(u)
}

// onDashboard reports whether u belongs to the application rather than the
// login host.
func (p *Provider) onDashboard(u string) bool {
	got, err := url.Parse(u)
	if err != nil {
		return false
	}
	want, err := url.Parse(p.opts.DashboardURL)
	if err != nil {
		return false
	}
	return got.Host == want.Host
}

func (p *Provider) login(ctx context.Context, tab Tab) error {
	sel := p.opts.Selectors

	email, err := p.prompter.Prompt("Email: ")
	if err != nil {
		return err
	}
	password, err := p.prompter.PromptSecret("Password: ")
	if err != nil {
		return err
	}

	if err := tab.Navigate(ctx, p.opts.LoginURL); err != nil {
		return err
	}
	if err := p.fill(ctx, tab, sel.Email, email); err != nil {
		return err
	}
	if err := p.fill(ctx, tab, sel.Password, password); err != nil {
		return err
	}
	if err := p.click(ctx, tab, sel.Submit); err != nil {
		return err
	}

	logging.Session("Waiting for 2FA input field...")
	if _, err := tab.Element(ctx, sel.Code, p.opts.ElementTimeout); err != nil {
		return fmt.Errorf("2FA field: %w", err)
	}
	code, err := p.prompter.Prompt("2FA code: ")
	if err != nil {
		return err
	}
	if err := p.fill(ctx, tab, sel.Code, code); err != nil {
		return err
	}
	if err := p.click(ctx, tab, sel.Submit); err != nil {
		return err
	}

	logging.Session("Waiting for navigation to dashboard...")
	if err := tab.WaitURL(ctx, p.onDashboard, p.opts.LoginTimeout); err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}

func (p *Provider) fill(ctx context.Context, tab Tab, selector, value string) error {
	el, err := tab.Element(ctx, selector, p.opts.ElementTimeout)
	if err != nil {
		return err
	}
	return el.Fill(ctx, value)
}

func (p *Provider) click(ctx context.Context, tab Tab, selector string) error {
	el, err := tab.Element(ctx, selector, p.opts.ElementTimeout)
	if err != nil {
		return err
	}
	return el.Click(ctx)
}

func (p *Provider) save(ctx context.Context, tab Tab) error {
	cookies, err := tab.Cookies(ctx)
	if err != nil {
		return fmt.Errorf("read session cookies: %w", err)
	}
	if err := saveCookies(p.opts.AuthFile, cookies); err != nil {
		return err
	}
	logging.Session("Session saved to %s (%d cookies)", p.opts.AuthFile, len(cookies))
	return nil
}

func (p *Provider) screenshotFailure(ctx context.Context, tab Tab) {
	dir := filepath.Dir(p.opts.AuthFile)
	if err := os.MkdirAll(dir, 0700); err != nil {
		logging.SessionWarn("Could not save login screenshot: %v", err)
		return
	}
	path := filepath.Join(dir, "login_failure.png")
	if err := tab.Screenshot(ctx, path); err != nil {
		logging.SessionWarn("Could not save login screenshot: %v", err)
		return
	}
	logging.SessionError("Login failed, screenshot saved to %s", path)
}
