package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"

	"fichaje/internal/page"
)

// pollInterval is how often waits re-query the DOM.
const pollInterval = 100 * time.Millisecond

// RodPage implements page.Page on a rod tab.
type RodPage struct {
	page       *rod.Page
	navTimeout time.Duration
}

var _ page.Page = (*RodPage)(nil)

func newRodPage(p *rod.Page, navTimeout time.Duration) *RodPage {
	return &RodPage{page: p, navTimeout: navTimeout}
}

// Rod exposes the underlying tab.
func (p *RodPage) Rod() *rod.Page { return p.page }

func (p *RodPage) Navigate(ctx context.Context, url string) error {
	tab := p.page.Context(ctx).Timeout(p.navTimeout)
	if err := tab.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, mapErr(err))
	}
	if err := tab.WaitLoad(); err != nil {
		return fmt.Errorf("load %s: %w", url, mapErr(err))
	}
	return nil
}

func (p *RodPage) URL(ctx context.Context) (string, error) {
	info, err := p.page.Context(ctx).Info()
	if err != nil {
		return "", mapErr(err)
	}
	return info.URL, nil
}

// WaitURL polls the address until match accepts it.
func (p *RodPage) WaitURL(ctx context.Context, match func(string) bool, timeout time.Duration) error {
	return poll(ctx, timeout, func() (bool, error) {
		u, err := p.URL(ctx)
		if err != nil {
			return false, nil
		}
		return match(u), nil
	})
}

func (p *RodPage) Element(ctx context.Context, selector string, timeout time.Duration) (page.Element, error) {
	return waitElement(ctx, timeout, selector, func() (rod.Elements, error) {
		return p.page.Context(ctx).Elements(selector)
	}, nil)
}

func (p *RodPage) ElementByText(ctx context.Context, selector, pattern string, timeout time.Duration) (page.Element, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return waitElement(ctx, timeout, selector, func() (rod.Elements, error) {
		return p.page.Context(ctx).Elements(selector)
	}, re)
}

func (p *RodPage) Elements(ctx context.Context, selector string) ([]page.Element, error) {
	els, err := p.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, mapErr(err)
	}
	return wrapAll(els), nil
}

func (p *RodPage) IsVisible(ctx context.Context, selector string, timeout time.Duration) (bool, error) {
	var visible bool
	err := poll(ctx, timeout, func() (bool, error) {
		els, err := p.page.Context(ctx).Elements(selector)
		if err != nil {
			return false, err
		}
		for _, el := range els {
			if ok, err := el.Visible(); err == nil && ok {
				visible = true
				return true, nil
			}
		}
		return false, nil
	})
	if errors.Is(err, page.ErrTimeout) {
		return false, nil
	}
	return visible, err
}

func (p *RodPage) PressEscape(ctx context.Context) error {
	return mapErr(p.page.Context(ctx).Keyboard.Press(input.Escape))
}

// Screenshot writes a PNG of the viewport to path.
func (p *RodPage) Screenshot(ctx context.Context, path string) error {
	data, err := p.page.Context(ctx).Screenshot(false, nil)
	if err != nil {
		return fmt.Errorf("screenshot: %w", mapErr(err))
	}
	return os.WriteFile(path, data, 0644)
}

// Cookies returns every cookie visible to the tab.
func (p *RodPage) Cookies(ctx context.Context) ([]Cookie, error) {
	raw, err := p.page.Context(ctx).Cookies(nil)
	if err != nil {
		return nil, fmt.Errorf("get cookies: %w", err)
	}
	out := make([]Cookie, 0, len(raw))
	for _, c := range raw {
		out = append(out, cookieFromProto(c))
	}
	return out, nil
}

// SetCookies installs cookies into the tab's browser context.
func (p *RodPage) SetCookies(ctx context.Context, cookies []Cookie) error {
	if len(cookies) == 0 {
		return nil
	}
	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		params = append(params, c.param())
	}
	if err := p.page.Context(ctx).SetCookies(params); err != nil {
		return fmt.Errorf("set cookies: %w", err)
	}
	return nil
}

func (p *RodPage) Close() error {
	return p.page.Close()
}

// RodElement implements page.Element on a rod element.
type RodElement struct {
	el *rod.Element
}

var _ page.Element = (*RodElement)(nil)

func (e *RodElement) Element(ctx context.Context, selector string, timeout time.Duration) (page.Element, error) {
	return waitElement(ctx, timeout, selector, func() (rod.Elements, error) {
		return e.el.Context(ctx).Elements(selector)
	}, nil)
}

func (e *RodElement) ElementByText(ctx context.Context, selector, pattern string, timeout time.Duration) (page.Element, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return waitElement(ctx, timeout, selector, func() (rod.Elements, error) {
		return e.el.Context(ctx).Elements(selector)
	}, re)
}

func (e *RodElement) Elements(ctx context.Context, selector string) ([]page.Element, error) {
	els, err := e.el.Context(ctx).Elements(selector)
	if err != nil {
		return nil, mapErr(err)
	}
	return wrapAll(els), nil
}

func (e *RodElement) Parent(ctx context.Context) (page.Element, error) {
	parent, err := e.el.Context(ctx).Parent()
	if err != nil {
		return nil, mapErr(err)
	}
	return &RodElement{el: parent}, nil
}

func (e *RodElement) Next(ctx context.Context) (page.Element, error) {
	next, err := e.el.Context(ctx).Next()
	if err != nil {
		return nil, mapErr(err)
	}
	return &RodElement{el: next}, nil
}

func (e *RodElement) Click(ctx context.Context) error {
	return mapErr(e.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1))
}

// Fill selects the current value and types text over it.
func (e *RodElement) Fill(ctx context.Context, text string) error {
	el := e.el.Context(ctx)
	if err := el.SelectAllText(); err != nil {
		return mapErr(err)
	}
	return mapErr(el.Input(text))
}

func (e *RodElement) ScrollIntoView(ctx context.Context) error {
	return mapErr(e.el.Context(ctx).ScrollIntoView())
}

func (e *RodElement) WaitVisible(ctx context.Context, timeout time.Duration) error {
	return mapErr(e.el.Context(ctx).Timeout(timeout).WaitVisible())
}

func (e *RodElement) Attribute(ctx context.Context, name string) (string, error) {
	v, err := e.el.Context(ctx).Attribute(name)
	if err != nil {
		return "", mapErr(err)
	}
	if v == nil {
		return "", nil
	}
	return *v, nil
}

func (e *RodElement) Text(ctx context.Context) (string, error) {
	s, err := e.el.Context(ctx).Text()
	return s, mapErr(err)
}

func (e *RodElement) HTML(ctx context.Context) (string, error) {
	s, err := e.el.Context(ctx).HTML()
	return s, mapErr(err)
}

func wrapAll(els rod.Elements) []page.Element {
	out := make([]page.Element, len(els))
	for i, el := range els {
		out[i] = &RodElement{el: el}
	}
	return out
}

// waitElement polls query until an element matching selector (and re, when
// set) appears.
func waitElement(ctx context.Context, timeout time.Duration, selector string, query func() (rod.Elements, error), re *regexp.Regexp) (page.Element, error) {
	var found *rod.Element
	err := poll(ctx, timeout, func() (bool, error) {
		els, err := query()
		if err != nil {
			return false, err
		}
		for _, el := range els {
			if re == nil {
				found = el
				return true, nil
			}
			text, err := el.Text()
			if err != nil {
				continue
			}
			if re.MatchString(text) {
				found = el
				return true, nil
			}
		}
		return false, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", selector, err)
	}
	return &RodElement{el: found}, nil
}

// poll calls check until it reports done, the timeout passes or ctx ends.
// A zero timeout checks exactly once.
func poll(ctx context.Context, timeout time.Duration, check func() (bool, error)) error {
	deadline := time.Now().Add(timeout)
	for {
		done, err := check()
		if err != nil {
			if mapped := mapErr(err); !errors.Is(mapped, page.ErrNotFound) {
				return mapped
			}
		}
		if done {
			return nil
		}
		if !time.Now().Before(deadline) {
			return page.ErrTimeout
		}

		t := time.NewTimer(pollInterval)
		select {
		case <-ctx.Done():
			t.Stop()
			return mapErr(ctx.Err())
		case <-t.C:
		}
	}
}

// mapErr translates rod and context errors into the page sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var notFound *rod.ElementNotFoundError
	if errors.As(err, &notFound) {
		return fmt.Errorf("%w: %v", page.ErrNotFound, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", page.ErrTimeout, err)
	}
	return err
}
