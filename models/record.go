package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the terminal outcome of a single scrape run.
type Status string

const (
	StatusOK               Status = "OK"
	StatusFetchFailed      Status = "FETCH_FAILED"
	StatusExtractionFailed Status = "EXTRACTION_FAILED"
	StatusValidationFailed Status = "VALIDATION_FAILED"
)

// RawFields is the extractor output before record construction: the rate and
// as-of date exactly as they appeared on the page, plus the name of the
// locator strategy that found each field (recorded for forensics).
type RawFields struct {
	Rate         string
	RateStrategy string
	Date         string
	DateStrategy string
}

// PriceRecord is the single outcome of one run. Every completed run produces
// exactly one PriceRecord; failures are encoded in Status, never by the
// absence of a record.
type PriceRecord struct {
	// ScrapeTime is the instant the run executed. Always set.
	ScrapeTime time.Time

	// SourceDate is the as-of date claimed by the page, raw form.
	SourceDate string

	// NormalizedDate is the parsed calendar date, nil when the raw text
	// could not be normalized. Normalization failure does not fail the run.
	NormalizedDate *time.Time

	// Rate is the extracted price. Zero when extraction failed; retained
	// even when validation rejects it.
	Rate decimal.Decimal

	Status        Status
	FailureReason string
}

// OK reports whether the run produced a usable observation.
func (r PriceRecord) OK() bool { return r.Status == StatusOK }

// DateString returns the normalized date in YYYY-MM-DD form, falling back to
// the scrape date when normalization failed (matching the dataset's existing
// rows, which never carry an empty date column).
func (r PriceRecord) DateString() string {
	if r.NormalizedDate != nil {
		return r.NormalizedDate.Format("2006-01-02")
	}
	return r.ScrapeTime.Format("2006-01-02")
}
