package extractor

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// Strategy is one algorithm for locating a field's raw text on the page.
// Strategies are tried in order; the first plausible match wins. Markup
// brittleness of the source site is isolated here: when the page changes,
// a strategy is replaced, not the extractor.
type Strategy interface {
	Name() string

	// Extract returns the raw text for the field and whether it matched.
	Extract(p *Page) (string, bool)
}

var hasDigit = regexp.MustCompile(`\d`)

// cssStrategy locates the field with a CSS selector and returns the matched
// element's text. The selector is validated with cascadia at construction so
// a config typo surfaces before the first run, not as a silent miss.
type cssStrategy struct {
	name     string
	selector string
}

func newCSSStrategy(name, selector string) (*cssStrategy, error) {
	if _, err := cascadia.Parse(selector); err != nil {
		return nil, err
	}
	return &cssStrategy{name: name, selector: selector}, nil
}

func (s *cssStrategy) Name() string { return s.name }

func (s *cssStrategy) Extract(p *Page) (string, bool) {
	var found string
	p.doc.Find(s.selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := strings.TrimSpace(sel.Text())
		if text != "" {
			found = text
			return false
		}
		return true
	})
	return found, found != ""
}

// labeledRateStrategy scans candidate nodes for a price labelled with the
// source's unit ("9,351 CNY/kg") the way the original page marks it up.
type labeledRateStrategy struct {
	pattern *regexp.Regexp
}

func newLabeledRateStrategy() *labeledRateStrategy {
	return &labeledRateStrategy{
		pattern: regexp.MustCompile(`([\d,]+(?:\.\d+)?)\s*CNY/kg`),
	}
}

func (s *labeledRateStrategy) Name() string { return "unit-label" }

func (s *labeledRateStrategy) Extract(p *Page) (string, bool) {
	var found string
	p.doc.Find("div,span,td").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := strings.TrimSpace(sel.Text())
		if !strings.Contains(text, "CNY/kg") || !hasDigit.MatchString(text) {
			return true
		}
		if m := s.pattern.FindStringSubmatch(text); m != nil {
			found = m[0]
			return false
		}
		return true
	})
	return found, found != ""
}

// textPatternStrategy runs a regex over the visible page text, then over the
// raw HTML, and returns the first capture group. The raw-HTML pass mirrors
// the original scraper's page-source fallback: on an unhydrated page the
// value may only exist inside embedded JSON.
type textPatternStrategy struct {
	name    string
	pattern *regexp.Regexp
}

func newTextPatternStrategy(name, pattern string) *textPatternStrategy {
	return &textPatternStrategy{name: name, pattern: regexp.MustCompile(pattern)}
}

func (s *textPatternStrategy) Name() string { return s.name }

func (s *textPatternStrategy) Extract(p *Page) (string, bool) {
	for _, haystack := range []string{p.Text, p.Raw} {
		if m := s.pattern.FindStringSubmatch(haystack); m != nil {
			if len(m) > 1 {
				return m[1], true
			}
			return m[0], true
		}
	}
	return "", false
}

// domDateStrategy looks for the as-of date where the source page usually
// renders it: a <time> element, a [datetime] attribute, or an element whose
// class mentions "date".
type domDateStrategy struct{}

func (domDateStrategy) Name() string { return "dom-date" }

func (domDateStrategy) Extract(p *Page) (string, bool) {
	var found string
	p.doc.Find(`time,[datetime],[class*="date"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if dt, ok := sel.Attr("datetime"); ok && strings.TrimSpace(dt) != "" {
			found = strings.TrimSpace(dt)
			return false
		}
		text := strings.TrimSpace(sel.Text())
		if text != "" && hasDigit.MatchString(text) {
			found = text
			return false
		}
		return true
	})
	return found, found != ""
}
