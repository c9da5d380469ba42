package record

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rahulmohamw/SSM-Silver-scraper-V0/extractor"
	"github.com/rahulmohamw/SSM-Silver-scraper-V0/models"
)

// Band is the configured plausible range for the rate. Values at or below
// zero, below Min, or above Max are recorded but marked VALIDATION_FAILED.
type Band struct {
	Min decimal.Decimal
	Max decimal.Decimal
}

// NewBand builds a Band from the configured float bounds.
func NewBand(min, max float64) Band {
	return Band{
		Min: decimal.NewFromFloat(min),
		Max: decimal.NewFromFloat(max),
	}
}

// Build assembles the run's PriceRecord from the extracted fields. It never
// fails: every outcome, including implausible values, is encoded in the
// record's Status so the one-record-per-run invariant holds.
func Build(raw models.RawFields, scrapeTime time.Time, band Band) models.PriceRecord {
	rec := models.PriceRecord{
		ScrapeTime: scrapeTime,
		SourceDate: raw.Date,
		Status:     models.StatusOK,
	}

	if normalized, ok := extractor.NormalizeDate(raw.Date); ok {
		rec.NormalizedDate = normalized
	}

	rate, err := extractor.NormalizeRate(raw.Rate)
	if err != nil {
		// The extractor normally rejects unparseable candidates before they
		// get here; this guards direct callers.
		rec.Status = models.StatusExtractionFailed
		rec.FailureReason = err.Error()
		return rec
	}
	rec.Rate = rate

	if reason := validate(rate, band); reason != "" {
		rec.Status = models.StatusValidationFailed
		rec.FailureReason = reason
	}

	return rec
}

func validate(rate decimal.Decimal, band Band) string {
	switch {
	case rate.Sign() <= 0:
		return fmt.Sprintf("rate %s is not positive", rate)
	case rate.LessThan(band.Min):
		return fmt.Sprintf("rate %s below plausible floor %s", rate, band.Min)
	case rate.GreaterThan(band.Max):
		return fmt.Sprintf("rate %s above plausible ceiling %s", rate, band.Max)
	default:
		return ""
	}
}
