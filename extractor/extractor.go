package extractor

import (
	"github.com/rs/zerolog"

	"github.com/rahulmohamw/SSM-Silver-scraper-V0/config"
	"github.com/rahulmohamw/SSM-Silver-scraper-V0/models"
)

// Extractor locates the rate and as-of date on the rendered page by walking
// an ordered list of locator strategies per field. The two fields fail
// independently: a missing rate fails the extraction, a missing date does
// not (the record is flagged instead).
type Extractor struct {
	rateStrategies []Strategy
	dateStrategies []Strategy
	logger         zerolog.Logger
}

const (
	// datePattern covers the formats the source page has been seen to use:
	// "Jul 24, 2025", "2025-07-24", "24/07/2025".
	datePattern = `((?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\s+\d{1,2},\s+\d{4}|\d{4}-\d{2}-\d{2}|\d{2}/\d{2}/\d{4})`

	ratePattern = `([\d,]+(?:\.\d+)?)\s*CNY/kg`
)

// New builds an Extractor. Configured CSS selectors, when present and valid,
// are tried before the built-in strategies.
func New(cfg config.ExtractConfig, logger zerolog.Logger) *Extractor {
	e := &Extractor{logger: logger.With().Str("component", "extractor").Logger()}

	if cfg.RateSelector != "" {
		if s, err := newCSSStrategy("css-rate", cfg.RateSelector); err != nil {
			e.logger.Warn().Err(err).Str("selector", cfg.RateSelector).Msg("invalid rate selector, skipping")
		} else {
			e.rateStrategies = append(e.rateStrategies, s)
		}
	}
	e.rateStrategies = append(e.rateStrategies,
		newLabeledRateStrategy(),
		newTextPatternStrategy("rate-pattern", ratePattern),
	)

	if cfg.DateSelector != "" {
		if s, err := newCSSStrategy("css-date", cfg.DateSelector); err != nil {
			e.logger.Warn().Err(err).Str("selector", cfg.DateSelector).Msg("invalid date selector, skipping")
		} else {
			e.dateStrategies = append(e.dateStrategies, s)
		}
	}
	e.dateStrategies = append(e.dateStrategies,
		domDateStrategy{},
		newTextPatternStrategy("date-pattern", datePattern),
	)

	return e
}

// Extract walks the strategy lists and returns the raw fields. The rate is
// required: a candidate only counts when it normalizes to a number, so a
// strategy that matches decorative text falls through to the next one. The
// date is best-effort.
func (e *Extractor) Extract(p *Page) (models.RawFields, error) {
	var fields models.RawFields

	for _, s := range e.rateStrategies {
		raw, ok := s.Extract(p)
		if !ok {
			continue
		}
		if _, err := NormalizeRate(raw); err != nil {
			e.logger.Debug().Str("strategy", s.Name()).Str("raw", raw).Msg("candidate did not normalize, trying next strategy")
			continue
		}
		fields.Rate = raw
		fields.RateStrategy = s.Name()
		break
	}
	if fields.Rate == "" {
		return fields, &models.ExtractionError{Field: "rate"}
	}

	for _, s := range e.dateStrategies {
		if raw, ok := s.Extract(p); ok {
			fields.Date = raw
			fields.DateStrategy = s.Name()
			break
		}
	}
	if fields.Date == "" {
		e.logger.Warn().Msg("no date located on page; record will carry the scrape date")
	}

	e.logger.Info().
		Str("rate", fields.Rate).
		Str("rate_strategy", fields.RateStrategy).
		Str("date", fields.Date).
		Str("date_strategy", fields.DateStrategy).
		Msg("fields extracted")

	return fields, nil
}
