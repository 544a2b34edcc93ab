// Package page defines the browser surface the attendance engine drives.
// Implementations wrap a real browser tab (see internal/browser) or an in-memory
// fake in tests. Every call may block and every call may fail with a bounded
// timeout.
package page

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no element matches a selector.
	ErrNotFound = errors.New("element not found")
	// ErrTimeout is returned when an element did not reach the expected state in time.
	ErrTimeout = errors.New("timed out waiting for element")
)

// Page is a single browser tab.
type Page interface {
	// Navigate loads url and waits for the page to settle.
	Navigate(ctx context.Context, url string) error
	// URL returns the address currently loaded.
	URL(ctx context.Context) (string, error)
	// Element waits up to timeout for the first element matching selector.
	Element(ctx context.Context, selector string, timeout time.Duration) (Element, error)
	// ElementByText waits up to timeout for the first element matching selector
	// whose text matches the regular expression pattern.
	ElementByText(ctx context.Context, selector, pattern string, timeout time.Duration) (Element, error)
	// Elements returns every element currently matching selector without waiting.
	Elements(ctx context.Context, selector string) ([]Element, error)
	// IsVisible reports whether an element matching selector becomes visible within timeout.
	IsVisible(ctx context.Context, selector string, timeout time.Duration) (bool, error)
	PressEscape(ctx context.Context) error
	// Screenshot writes a PNG of the viewport to path.
	Screenshot(ctx context.Context, path string) error
}

// Element is a handle to a DOM node. Lookups on an Element are scoped to its subtree.
type Element interface {
	Element(ctx context.Context, selector string, timeout time.Duration) (Element, error)
	ElementByText(ctx context.Context, selector, pattern string, timeout time.Duration) (Element, error)
	Elements(ctx context.Context, selector string) ([]Element, error)
	Parent(ctx context.Context) (Element, error)
	// Next returns the following sibling element.
	Next(ctx context.Context) (Element, error)

	Click(ctx context.Context) error
	// Fill replaces the current value of an input with text.
	Fill(ctx context.Context, text string) error
	ScrollIntoView(ctx context.Context) error
	WaitVisible(ctx context.Context, timeout time.Duration) error

	// Attribute returns the attribute value, or "" when the attribute is absent.
	Attribute(ctx context.Context, name string) (string, error)
	Text(ctx context.Context) (string, error)
	// HTML returns the outer HTML of the element.
	HTML(ctx context.Context) (string, error)
}

// IsMissing reports whether err means the element was not there in time.
func IsMissing(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrTimeout)
}
