package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Page is the parsed rendered page handed to locator strategies: the DOM for
// structural lookups, the visible text for pattern scans, and the raw HTML
// as a last resort (the rate sometimes only exists inside embedded JSON
// before hydration).
type Page struct {
	doc  *goquery.Document
	Text string
	Raw  string
}

// NewPage parses rendered HTML into a Page.
func NewPage(rawHTML string) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, err
	}

	// Visible text is taken from a second parse so strategies still see the
	// full DOM including script nodes.
	textDoc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, err
	}
	textDoc.Find("script,style,noscript").Remove()
	text := normalizeWhitespace(textDoc.Find("body").Text())
	if text == "" {
		text = normalizeWhitespace(textDoc.Text())
	}

	return &Page{doc: doc, Text: text, Raw: rawHTML}, nil
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
