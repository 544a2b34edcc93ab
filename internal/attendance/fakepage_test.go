package attendance

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"fichaje/internal/page"
)

// fakeNode is a scripted DOM node. Selectors are matched by exact string.
type fakeNode struct {
	page     *fakePage
	matches  []string
	text     string
	html     string
	attrs    map[string]string
	attrErr  error
	value    string
	parent   *fakeNode
	children []*fakeNode
	onClick  func() error
}

func (n *fakeNode) add(c *fakeNode) *fakeNode {
	c.parent = n
	c.page = n.page
	n.children = append(n.children, c)
	return c
}

// insert places c among n's children at index i.
func (n *fakeNode) insert(i int, c *fakeNode) *fakeNode {
	c.parent = n
	c.page = n.page
	n.children = append(n.children, nil)
	copy(n.children[i+1:], n.children[i:])
	n.children[i] = c
	return c
}

func (n *fakeNode) indexOf(c *fakeNode) int {
	for i, k := range n.children {
		if k == c {
			return i
		}
	}
	return -1
}

// attached reports whether n is still part of the page's current document.
func (n *fakeNode) attached() bool {
	for cur := n; cur != nil; cur = cur.parent {
		if cur == n.page.root {
			return true
		}
	}
	return false
}

func (n *fakeNode) remove() {
	if n.parent == nil {
		return
	}
	kids := n.parent.children
	for i, c := range kids {
		if c == n {
			n.parent.children = append(kids[:i:i], kids[i+1:]...)
			break
		}
	}
	n.parent = nil
}

func (n *fakeNode) is(sel string) bool {
	for _, m := range n.matches {
		if m == sel {
			return true
		}
	}
	return false
}

// descendants lists the subtree below n in document order.
func (n *fakeNode) descendants() []*fakeNode {
	var out []*fakeNode
	for _, c := range n.children {
		out = append(out, c)
		out = append(out, c.descendants()...)
	}
	return out
}

func (n *fakeNode) fullText() string {
	parts := []string{n.text}
	for _, c := range n.children {
		parts = append(parts, c.fullText())
	}
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

func (n *fakeNode) findAll(sel, pattern string) ([]*fakeNode, error) {
	var re *regexp.Regexp
	if pattern != "" {
		var err error
		if re, err = regexp.Compile(pattern); err != nil {
			return nil, err
		}
	}
	var out []*fakeNode
	for _, d := range n.descendants() {
		if d.is(sel) && (re == nil || re.MatchString(d.fullText())) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (n *fakeNode) first(sel, pattern string) (page.Element, error) {
	found, err := n.findAll(sel, pattern)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("%s: %w", sel, page.ErrTimeout)
	}
	return found[0], nil
}

func (n *fakeNode) Element(_ context.Context, sel string, d time.Duration) (page.Element, error) {
	n.page.waited(d)
	return n.first(sel, "")
}

func (n *fakeNode) ElementByText(_ context.Context, sel, pattern string, d time.Duration) (page.Element, error) {
	n.page.waited(d)
	return n.first(sel, pattern)
}

func (n *fakeNode) Elements(_ context.Context, sel string) ([]page.Element, error) {
	found, err := n.findAll(sel, "")
	if err != nil {
		return nil, err
	}
	out := make([]page.Element, len(found))
	for i, f := range found {
		out[i] = f
	}
	return out, nil
}

func (n *fakeNode) Parent(context.Context) (page.Element, error) {
	if n.parent == nil {
		return nil, page.ErrNotFound
	}
	return n.parent, nil
}

func (n *fakeNode) Next(context.Context) (page.Element, error) {
	if n.parent != nil {
		kids := n.parent.children
		for i, c := range kids {
			if c == n && i+1 < len(kids) {
				return kids[i+1], nil
			}
		}
	}
	return nil, page.ErrNotFound
}

func (n *fakeNode) Click(context.Context) error {
	if !n.attached() {
		return fmt.Errorf("click: node is detached from the document: %w", page.ErrNotFound)
	}
	n.page.clicks++
	if n.onClick != nil {
		return n.onClick()
	}
	return nil
}

func (n *fakeNode) Fill(_ context.Context, text string) error {
	n.page.fills++
	n.value = text
	return nil
}

func (n *fakeNode) ScrollIntoView(context.Context) error { return nil }

func (n *fakeNode) WaitVisible(context.Context, time.Duration) error { return nil }

func (n *fakeNode) Attribute(_ context.Context, name string) (string, error) {
	if n.attrErr != nil {
		return "", n.attrErr
	}
	return n.attrs[name], nil
}

func (n *fakeNode) Text(context.Context) (string, error) { return n.fullText(), nil }

func (n *fakeNode) HTML(context.Context) (string, error) {
	if n.html != "" {
		return n.html, nil
	}
	return "<div>" + n.fullText() + "</div>", nil
}

type commit struct {
	Date  string
	Start string
	End   string
}

// fakePage serves scripted views by URL and records every interaction.
type fakePage struct {
	opts   Options
	routes map[string]func(root *fakeNode)
	navErr map[string]error
	root   *fakeNode

	navigations []string
	clicks      int
	fills       int
	escapes     int
	screenshots []string
	commits     []commit
	detailOpens int
	rerenders   int
	// waits counts lookups that may block for a timeout.
	waits int
}

func newFakePage(opts Options) *fakePage {
	p := &fakePage{
		opts:   opts,
		routes: make(map[string]func(*fakeNode)),
		navErr: make(map[string]error),
	}
	p.root = &fakeNode{page: p}
	return p
}

func (p *fakePage) Navigate(_ context.Context, url string) error {
	p.navigations = append(p.navigations, url)
	if err := p.navErr[url]; err != nil {
		return err
	}
	p.root = &fakeNode{page: p}
	if build := p.routes[url]; build != nil {
		build(p.root)
	}
	return nil
}

func (p *fakePage) URL(context.Context) (string, error) {
	if len(p.navigations) == 0 {
		return "about:blank", nil
	}
	return p.navigations[len(p.navigations)-1], nil
}

func (p *fakePage) Element(ctx context.Context, sel string, d time.Duration) (page.Element, error) {
	return p.root.Element(ctx, sel, d)
}

func (p *fakePage) ElementByText(ctx context.Context, sel, pattern string, d time.Duration) (page.Element, error) {
	return p.root.ElementByText(ctx, sel, pattern, d)
}

func (p *fakePage) Elements(ctx context.Context, sel string) ([]page.Element, error) {
	return p.root.Elements(ctx, sel)
}

func (p *fakePage) IsVisible(_ context.Context, sel string, _ time.Duration) (bool, error) {
	found, err := p.root.findAll(sel, "")
	return len(found) > 0, err
}

// PressEscape closes every overlay.
func (p *fakePage) PressEscape(context.Context) error {
	p.escapes++
	s := p.opts.Selectors
	for _, sel := range []string{s.ShiftModal, s.DetailBody, s.HolidayPopover} {
		found, _ := p.root.findAll(sel, "")
		for _, n := range found {
			n.remove()
		}
	}
	return nil
}

func (p *fakePage) Screenshot(_ context.Context, path string) error {
	p.screenshots = append(p.screenshots, path)
	return nil
}

func (p *fakePage) waited(d time.Duration) {
	if d > 0 {
		p.waits++
	}
}

func (p *fakePage) writes() int { return p.fills + len(p.commits) }

// fakeCell is one day of the time-off calendar.
type fakeCell struct {
	date  Date
	style string
	class string
	// detail is the HTML of the detail view; empty means it never opens.
	detail  string
	attrErr error
}

// serveCalendar renders the time-off calendar with one section per month
// covered by cells. Days without a cell are rendered unmarked.
func (p *fakePage) serveCalendar(cells ...fakeCell) {
	p.routes[p.opts.TimeOffURL] = func(root *fakeNode) {
		s := p.opts.Selectors
		cal := root.add(&fakeNode{matches: []string{s.CalendarContainer}})

		byMonth := make(map[time.Month]map[int]fakeCell)
		var months []Date
		for _, c := range cells {
			if byMonth[c.date.Month] == nil {
				byMonth[c.date.Month] = make(map[int]fakeCell)
				months = append(months, c.date)
			}
			byMonth[c.date.Month][c.date.Day] = c
		}

		for _, m := range months {
			section := cal.add(&fakeNode{matches: []string{"li"}})
			name := strings.ToUpper(p.opts.Locale.MonthName(m.Month)[:1]) + p.opts.Locale.MonthName(m.Month)[1:]
			section.add(&fakeNode{matches: []string{s.MonthName}, text: fmt.Sprintf("%s %d", name, m.Year)})
			last := DateOf(time.Date(m.Year, m.Month+1, 0, 0, 0, 0, 0, time.UTC))
			for day := 1; day <= last.Day; day++ {
				c := byMonth[m.Month][day]
				cell := section.add(&fakeNode{
					matches: []string{s.DayCell},
					text:    strconv.Itoa(day),
					attrs:   map[string]string{"style": c.style, "class": c.class},
					attrErr: c.attrErr,
				})
				detail := c.detail
				cell.onClick = func() error {
					p.detailOpens++
					if detail != "" {
						p.root.add(&fakeNode{matches: []string{s.DetailBody}, html: detail})
					}
					return nil
				}
			}
		}
	}
}

// fakeRow is one day of the monthly attendance table.
type fakeRow struct {
	date    Date
	total   string
	holiday bool
	// failShift makes the commit of the n-th shift (1-based) time out.
	failShift int
	// rerender replaces the row's nodes after every commit, detaching any
	// handle taken before it.
	rerender bool
}

// serveAttendance renders the attendance view for month's URL.
func (p *fakePage) serveAttendance(month Date, rows ...fakeRow) {
	p.routes[p.opts.monthURL(month)] = func(root *fakeNode) {
		table := root.add(&fakeNode{matches: []string{"tbody"}})
		for _, r := range rows {
			p.addRow(table, len(table.children), r, 0, false)
		}
	}
}

// addRow inserts r's row and its expansion sibling into table at index at.
// shifts counts the shifts already added; open renders the row expanded.
func (p *fakePage) addRow(table *fakeNode, at int, r fakeRow, shifts int, open bool) {
	s := p.opts.Selectors
	abbr := p.opts.Locale.MonthName(r.date.Month)[:3]
	row := table.insert(at, &fakeNode{matches: []string{s.AttendanceRow}, text: fmt.Sprintf("%d %s %s", r.date.Day, abbr, r.total)})
	expanded := table.insert(at+1, &fakeNode{matches: []string{s.AttendanceRow}})

	expand := func() {
		add := expanded.add(&fakeNode{matches: []string{s.AddShiftButton}, text: p.opts.Locale.AddShiftLabel})
		add.onClick = func() error {
			shifts++
			p.openShiftModal(r, shifts, func() {
				if r.rerender {
					p.rerenders++
					i := table.indexOf(row)
					row.remove()
					expanded.remove()
					p.addRow(table, i, r, shifts, true)
				}
			})
			return nil
		}
	}

	toggle := row.add(&fakeNode{matches: []string{s.RowToggle}})
	toggle.onClick = func() error {
		if r.holiday {
			p.root.add(&fakeNode{matches: []string{s.HolidayPopover}, text: "Festivo"})
			return nil
		}
		expand()
		return nil
	}
	if open {
		expand()
	}
}

// openShiftModal opens the n-th shift modal of r. committed runs after a
// successful apply, once the modal has closed.
func (p *fakePage) openShiftModal(r fakeRow, n int, committed func()) {
	s := p.opts.Selectors
	modal := p.root.add(&fakeNode{matches: []string{s.ShiftModal}})
	start := modal.add(&fakeNode{matches: []string{s.TimeInput}})
	end := modal.add(&fakeNode{matches: []string{s.TimeInput}})
	apply := modal.add(&fakeNode{matches: []string{s.ApplyButton}, text: p.opts.Locale.ApplyLabel})
	apply.onClick = func() error {
		if r.failShift == n {
			return fmt.Errorf("commit: %w", page.ErrTimeout)
		}
		p.commits = append(p.commits, commit{Date: r.date.String(), Start: start.value, End: end.value})
		modal.remove()
		committed()
		return nil
	}
}
