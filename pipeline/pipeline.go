package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/rahulmohamw/SSM-Silver-scraper-V0/config"
	"github.com/rahulmohamw/SSM-Silver-scraper-V0/diag"
	"github.com/rahulmohamw/SSM-Silver-scraper-V0/engine"
	"github.com/rahulmohamw/SSM-Silver-scraper-V0/extractor"
	"github.com/rahulmohamw/SSM-Silver-scraper-V0/models"
	"github.com/rahulmohamw/SSM-Silver-scraper-V0/record"
	"github.com/rahulmohamw/SSM-Silver-scraper-V0/scraper"
	"github.com/rahulmohamw/SSM-Silver-scraper-V0/store"
)

// Store is the slice of the CSV store the pipeline needs.
type Store interface {
	ShouldPersist(status models.Status) bool
	Append(rec models.PriceRecord) error
}

// Sink receives the run's diagnostic artifacts.
type Sink interface {
	Capture(result *engine.FetchResult, summary diag.RunSummary)
}

// SessionFactory opens the primary fetch engine and returns it together
// with its teardown. Injectable so tests can run without a browser.
type SessionFactory func() (engine.Engine, func(), error)

// Pipeline sequences one run: FETCHING -> EXTRACTING -> VALIDATING ->
// PERSISTING, with the diagnostics sink invoked on every exit path. All
// per-run state (config, logger, timings) travels through the Pipeline and
// the RunSummary; there are no process-wide globals.
type Pipeline struct {
	cfg       *config.Config
	logger    zerolog.Logger
	extractor *extractor.Extractor
	store     Store
	sink      Sink

	openBrowser SessionFactory
	fallback    engine.Engine

	now func() time.Time
}

// New wires a Pipeline from config.
func New(cfg *config.Config, logger zerolog.Logger) *Pipeline {
	p := &Pipeline{
		cfg:       cfg,
		logger:    logger.With().Str("component", "pipeline").Logger(),
		extractor: extractor.New(cfg.Extract, logger),
		store:     store.NewCSVStore(cfg.Store, logger),
		sink:      diag.NewSink(cfg.Diag, logger),
		now:       time.Now,
	}
	p.openBrowser = func() (engine.Engine, func(), error) {
		s, err := scraper.NewSession(cfg.Browser, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	}
	if cfg.Engine.HTTPFallback {
		p.fallback = engine.NewHTTPEngine(cfg.Engine.HTTPTimeout)
	}
	return p
}

// Run executes one scrape run and always returns exactly one PriceRecord.
// A non-nil error means the run must exit non-zero; the record's Status
// carries the classified outcome either way.
func (p *Pipeline) Run(ctx context.Context) (models.PriceRecord, error) {
	start := p.now()
	summary := diag.RunSummary{StartTime: start}
	var result *engine.FetchResult

	// The sink runs on every exit path, success or failure, so diagnostic
	// capture cannot be skipped by an early return.
	defer func() {
		summary.TotalElapsed = p.now().Sub(start)
		p.sink.Capture(result, summary)
	}()

	// ── FETCHING ─────────────────────────────────────────────────────
	stageStart := p.now()
	fetched, attempts, err := p.fetch(ctx)
	summary.Attempts = attempts
	summary.Stages = append(summary.Stages, diag.StageTiming{Stage: "fetch", Elapsed: p.now().Sub(stageStart)})
	if err != nil {
		rec := models.PriceRecord{
			ScrapeTime:    start,
			Status:        models.StatusFetchFailed,
			FailureReason: err.Error(),
		}
		p.fillSummary(&summary, rec, models.RawFields{})
		p.logger.Error().Err(err).Int("attempts", attempts).Msg("fetch failed, no row written")
		return rec, err
	}
	result = fetched
	summary.Engine = fetched.EngineName
	summary.RenderSuspect = fetched.RenderSuspect

	// ── EXTRACTING ───────────────────────────────────────────────────
	stageStart = p.now()
	fields, extractErr := p.extract(fetched.HTML)
	summary.Stages = append(summary.Stages, diag.StageTiming{Stage: "extract", Elapsed: p.now().Sub(stageStart)})
	if extractErr != nil {
		rec := models.PriceRecord{
			ScrapeTime:    start,
			SourceDate:    fields.Date,
			Status:        models.StatusExtractionFailed,
			FailureReason: extractErr.Error(),
		}
		p.fillSummary(&summary, rec, fields)
		p.logger.Error().Err(extractErr).Msg("extraction failed")
		if persistErr := p.persist(rec, &summary); persistErr != nil {
			return rec, persistErr
		}
		return rec, extractErr
	}

	// ── VALIDATING ───────────────────────────────────────────────────
	stageStart = p.now()
	rec := record.Build(fields, start, record.NewBand(p.cfg.Validate.RateMin, p.cfg.Validate.RateMax))
	summary.Stages = append(summary.Stages, diag.StageTiming{Stage: "validate", Elapsed: p.now().Sub(stageStart)})
	p.fillSummary(&summary, rec, fields)

	// ── PERSISTING ───────────────────────────────────────────────────
	if err := p.persist(rec, &summary); err != nil {
		return rec, err
	}

	switch rec.Status {
	case models.StatusOK:
		p.logger.Info().
			Str("rate", rec.Rate.String()).
			Str("date", rec.DateString()).
			Msg("run complete")
		return rec, nil
	case models.StatusValidationFailed:
		return rec, &models.ValidationError{Reason: rec.FailureReason}
	default:
		return rec, &models.ExtractionError{Field: "rate", Err: errors.New(rec.FailureReason)}
	}
}

// fetch acquires a fetch engine and runs the bounded retry loop. Only
// transient fetch errors are retried; attempts are paced by a rate limiter
// so retries never hammer the source site. The engine's teardown is
// deferred, so the browser dies even if a later stage panics.
func (p *Pipeline) fetch(ctx context.Context) (*engine.FetchResult, int, error) {
	eng, closer, err := p.openBrowser()
	if err != nil {
		if p.fallback == nil {
			return nil, 0, err
		}
		p.logger.Warn().Err(err).Msg("browser unavailable, falling back to http engine")
		eng = p.fallback
	}
	if closer != nil {
		defer closer()
	}

	req := &engine.FetchRequest{
		URL:          p.cfg.Source.URL,
		UserAgent:    p.cfg.Browser.UserAgent,
		WaitSelector: p.cfg.Browser.WaitSelector,
		Timeout:      p.cfg.Source.Timeout,
	}

	limiter := rate.NewLimiter(rate.Every(p.cfg.Source.RetryBackoff), 1)
	maxAttempts := 1 + p.cfg.Source.MaxRetries

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return nil, attempt - 1, models.NewFetchError(true, "canceled while pacing retry", err)
		}

		result, err := eng.Fetch(ctx, req)
		if err == nil {
			return result, attempt, nil
		}
		lastErr = err

		var fe *models.FetchError
		if !errors.As(err, &fe) || !fe.Transient {
			p.logger.Error().Err(err).Int("attempt", attempt).Msg("permanent fetch failure")
			return nil, attempt, err
		}
		p.logger.Warn().Err(err).Int("attempt", attempt).Int("max", maxAttempts).Msg("transient fetch failure")
	}
	return nil, maxAttempts, lastErr
}

func (p *Pipeline) extract(rawHTML string) (models.RawFields, error) {
	page, err := extractor.NewPage(rawHTML)
	if err != nil {
		return models.RawFields{}, &models.ExtractionError{Field: "rate", Err: err}
	}
	return p.extractor.Extract(page)
}

func (p *Pipeline) persist(rec models.PriceRecord, summary *diag.RunSummary) error {
	if !p.store.ShouldPersist(rec.Status) {
		p.logger.Debug().Str("status", string(rec.Status)).Msg("row not persisted by policy")
		return nil
	}

	stageStart := p.now()
	err := p.store.Append(rec)
	summary.Stages = append(summary.Stages, diag.StageTiming{Stage: "persist", Elapsed: p.now().Sub(stageStart)})
	if err != nil {
		summary.Error = err.Error()
		p.logger.Error().Err(err).Msg("append failed")
		return err
	}
	return nil
}

func (p *Pipeline) fillSummary(summary *diag.RunSummary, rec models.PriceRecord, fields models.RawFields) {
	summary.Status = rec.Status
	summary.RawRate = fields.Rate
	summary.RateStrategy = fields.RateStrategy
	summary.RawDate = fields.Date
	summary.DateStrategy = fields.DateStrategy
	if rec.FailureReason != "" {
		summary.Error = rec.FailureReason
	}
	if rec.Status != models.StatusExtractionFailed && rec.Status != models.StatusFetchFailed {
		summary.Rate = rec.Rate.String()
	}
	if rec.NormalizedDate != nil {
		summary.NormalizedDate = rec.NormalizedDate.Format("2006-01-02")
	}
}
