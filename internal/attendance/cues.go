package attendance

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ReasonFromVisualCue maps a calendar cell's inline style and class list to
// an absence reason. ok is false when the cell carries no recognised marker.
// Holiday classes take precedence over colours.
func ReasonFromVisualCue(style, class string, m Markers) (reason Reason, ok bool) {
	for _, token := range strings.Fields(class) {
		for _, hc := range m.HolidayClasses {
			if hc != "" && token == hc {
				return Holiday, true
			}
		}
	}

	compact := stripSpaces(style)
	switch {
	case m.Vacation != "" && strings.Contains(compact, stripSpaces(m.Vacation)):
		return Vacation, true
	case m.SickLeave != "" && strings.Contains(compact, stripSpaces(m.SickLeave)):
		return SickLeave, true
	case m.Other != "" && strings.Contains(compact, stripSpaces(m.Other)):
		return Other, true
	}
	return 0, false
}

// ClassifyDetail reads an absence detail view and reports which part of the
// day the absence covers. Without a half-day label the absence is FullDay.
func ClassifyDetail(html, labelSelector string, l Locale) (AbsenceKind, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return FullDay, fmt.Errorf("parse detail view: %w", err)
	}
	if labelSelector == "" {
		labelSelector = "span"
	}

	morning := normalizeText(l.HalfMorningLabel)
	afternoon := normalizeText(l.HalfAfternoonLabel)

	kind := FullDay
	doc.Find(labelSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := normalizeText(s.Text())
		switch {
		case morning != "" && strings.Contains(text, morning):
			kind = HalfMorning
			return false
		case afternoon != "" && strings.Contains(text, afternoon):
			kind = HalfAfternoon
			return false
		}
		return true
	})
	return kind, nil
}

// IsZeroTotal reports whether an attendance row shows no worked time. The
// sentinel must appear as whole words so "10h 00m" is not mistaken for "0h 00m".
func IsZeroTotal(rowText string, l Locale) bool {
	want := strings.Fields(l.ZeroTotal)
	if len(want) == 0 {
		return false
	}
	fields := strings.Fields(rowText)
	for i := 0; i+len(want) <= len(fields); i++ {
		match := true
		for j, w := range want {
			if fields[i+j] != w {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// rowMatchesDay reports whether an attendance row's text starts with the
// day-of-month followed by more text, e.g. "13 oct 0h 00m".
func rowMatchesDay(rowText string, day int) bool {
	fields := strings.Fields(rowText)
	return len(fields) > 1 && fields[0] == strconv.Itoa(day)
}

// exactText builds a pattern matching an element whose whole text is s.
func exactText(s string) string {
	return `(?i)^\s*` + regexp.QuoteMeta(strings.TrimSpace(s)) + `\s*$`
}

// normalizeText folds case, strips diacritics and collapses whitespace so
// labels compare equal regardless of accents or markup spacing.
func normalizeText(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.Join(strings.Fields(cases.Fold().String(out)), " ")
}

func stripSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
