package extractor

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// dateLayouts are the formats the source page has been seen to publish,
// tried in order before falling back to heuristic parsing. Day-first beats
// month-first for the slash/dash forms because that is what the source uses.
var dateLayouts = []string{
	"Jan 2, 2006",
	"January 2, 2006",
	"2006-01-02",
	"02/01/2006",
	"01/02/2006",
	"02-01-2006",
	time.RFC3339,
}

// NormalizeDate parses the raw as-of date text into a calendar date. Failure
// is reported, never fatal: the caller keeps the raw string and flags the
// record instead.
func NormalizeDate(raw string) (*time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d := t.Truncate(24 * time.Hour)
			return &d, true
		}
	}

	// Last resort: heuristic parse for formats the site has not used yet.
	if t, err := dateparse.ParseAny(s); err == nil {
		d := t.Truncate(24 * time.Hour)
		return &d, true
	}

	return nil, false
}
