package record

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rahulmohamw/SSM-Silver-scraper-V0/models"
)

var scrapeTime = time.Date(2025, 7, 24, 9, 30, 0, 0, time.UTC)

func band() Band { return NewBand(1, 1_000_000) }

func TestBuildOK(t *testing.T) {
	rec := Build(models.RawFields{Rate: "9,351 CNY/kg", Date: "Jul 24, 2025"}, scrapeTime, band())

	assert.Equal(t, models.StatusOK, rec.Status)
	assert.Equal(t, "9351", rec.Rate.String())
	assert.Equal(t, scrapeTime, rec.ScrapeTime)
	require.NotNil(t, rec.NormalizedDate)
	assert.Equal(t, "2025-07-24", rec.DateString())
}

func TestBuildDateNormalizationFailureIsFlaggedNotFatal(t *testing.T) {
	rec := Build(models.RawFields{Rate: "9351", Date: "renewed moments ago"}, scrapeTime, band())

	assert.Equal(t, models.StatusOK, rec.Status)
	assert.Nil(t, rec.NormalizedDate)
	assert.Equal(t, "renewed moments ago", rec.SourceDate)
	// DateString falls back to the scrape date so the CSV date column is
	// never empty.
	assert.Equal(t, "2025-07-24", rec.DateString())
}

func TestBuildValidationFailures(t *testing.T) {
	cases := []struct {
		name string
		rate string
	}{
		{"zero", "0"},
		{"below floor", "0.5"},
		{"above ceiling", "1000001"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := Build(models.RawFields{Rate: tc.rate, Date: "2025-07-24"}, scrapeTime, band())

			assert.Equal(t, models.StatusValidationFailed, rec.Status)
			assert.NotEmpty(t, rec.FailureReason)
			// The implausible value is retained for forensics.
			assert.Equal(t, tc.rate, rec.Rate.String())
		})
	}
}

func TestBuildUnparseableRate(t *testing.T) {
	rec := Build(models.RawFields{Rate: "N/A"}, scrapeTime, band())

	assert.Equal(t, models.StatusExtractionFailed, rec.Status)
	assert.NotEmpty(t, rec.FailureReason)
}

func TestBuildAlwaysReturnsARecord(t *testing.T) {
	rec := Build(models.RawFields{}, scrapeTime, band())
	assert.Equal(t, scrapeTime, rec.ScrapeTime)
	assert.NotEqual(t, models.StatusOK, rec.Status)
}
