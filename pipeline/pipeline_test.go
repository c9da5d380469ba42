package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rahulmohamw/SSM-Silver-scraper-V0/config"
	"github.com/rahulmohamw/SSM-Silver-scraper-V0/diag"
	"github.com/rahulmohamw/SSM-Silver-scraper-V0/engine"
	"github.com/rahulmohamw/SSM-Silver-scraper-V0/models"
)

const goodHTML = `<html><body>
<time datetime="2025-07-24">Jul 24, 2025</time>
<div class="price">9,351 CNY/kg</div>
</body></html>`

const noRateHTML = `<html><body><p>maintenance in progress</p></body></html>`

const badRateHTML = `<html><body><div>0 CNY/kg</div></body></html>`

// scriptedEngine replays a fixed sequence of fetch outcomes; the last
// outcome repeats once the script runs out.
type scriptedEngine struct {
	name    string
	results []*engine.FetchResult
	errs    []error
	calls   int
}

func (e *scriptedEngine) Name() string { return e.name }

func (e *scriptedEngine) Fetch(ctx context.Context, req *engine.FetchRequest) (*engine.FetchResult, error) {
	i := e.calls
	if i >= len(e.errs) {
		i = len(e.errs) - 1
	}
	e.calls++
	if err := e.errs[i]; err != nil {
		return nil, err
	}
	res := e.results[i]
	res.EngineName = e.name
	return res, nil
}

func okOutcome(html string) *scriptedEngine {
	return &scriptedEngine{
		name:    "fake",
		results: []*engine.FetchResult{{HTML: html, Screenshot: []byte("png")}},
		errs:    []error{nil},
	}
}

type fakeStore struct {
	audit   bool
	appends []models.PriceRecord
	err     error
}

func (s *fakeStore) ShouldPersist(status models.Status) bool {
	switch status {
	case models.StatusOK:
		return true
	case models.StatusExtractionFailed, models.StatusValidationFailed:
		return s.audit
	default:
		return false
	}
}

func (s *fakeStore) Append(rec models.PriceRecord) error {
	if s.err != nil {
		return s.err
	}
	s.appends = append(s.appends, rec)
	return nil
}

type fakeSink struct {
	captures int
	result   *engine.FetchResult
	summary  diag.RunSummary
}

func (s *fakeSink) Capture(result *engine.FetchResult, summary diag.RunSummary) {
	s.captures++
	s.result = result
	s.summary = summary
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Source: config.SourceConfig{
			URL:          "https://example.com/silver",
			Timeout:      time.Second,
			MaxRetries:   2,
			RetryBackoff: time.Millisecond,
		},
		Validate: config.ValidateConfig{RateMin: 1, RateMax: 1_000_000},
		Store: config.StoreConfig{
			CSVPath:         filepath.Join(dir, "csv", "prices.csv"),
			AuditFailedRows: true,
			LockTimeout:     time.Second,
		},
		Diag: config.DiagConfig{
			ScreenshotDir: filepath.Join(dir, "screenshots"),
			LogDir:        filepath.Join(dir, "logs"),
		},
	}
}

type harness struct {
	p      *Pipeline
	store  *fakeStore
	sink   *fakeSink
	closed *int
}

func newHarness(t *testing.T, eng engine.Engine, launchErr error) *harness {
	t.Helper()
	h := &harness{
		store:  &fakeStore{audit: true},
		sink:   &fakeSink{},
		closed: new(int),
	}
	h.p = New(testConfig(t), zerolog.Nop())
	h.p.store = h.store
	h.p.sink = h.sink
	h.p.openBrowser = func() (engine.Engine, func(), error) {
		if launchErr != nil {
			return nil, nil, launchErr
		}
		return eng, func() { *h.closed++ }, nil
	}
	h.p.fallback = nil
	return h
}

func TestRunOK(t *testing.T) {
	eng := okOutcome(goodHTML)
	h := newHarness(t, eng, nil)

	rec, err := h.p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.StatusOK, rec.Status)
	assert.Equal(t, "9351", rec.Rate.String())

	// Exactly one row appended, session closed, diagnostics captured.
	require.Len(t, h.store.appends, 1)
	assert.Equal(t, 1, *h.closed)
	assert.Equal(t, 1, h.sink.captures)
	require.NotNil(t, h.sink.result)
	assert.Equal(t, models.StatusOK, h.sink.summary.Status)
	assert.Equal(t, 1, h.sink.summary.Attempts)
}

func TestRunTransientFetchErrorIsRetried(t *testing.T) {
	eng := &scriptedEngine{
		name: "fake",
		errs: []error{
			models.NewFetchError(true, "timeout", context.DeadlineExceeded),
			nil,
		},
		results: []*engine.FetchResult{nil, {HTML: goodHTML}},
	}
	h := newHarness(t, eng, nil)

	rec, err := h.p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.StatusOK, rec.Status)
	assert.Equal(t, 2, eng.calls)
	assert.Equal(t, 2, h.sink.summary.Attempts)
}

func TestRunFetchFailedAfterExhaustedRetries(t *testing.T) {
	eng := &scriptedEngine{
		name:    "fake",
		errs:    []error{models.NewFetchError(true, "timeout", context.DeadlineExceeded)},
		results: []*engine.FetchResult{nil},
	}
	h := newHarness(t, eng, nil)

	rec, err := h.p.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, models.StatusFetchFailed, rec.Status)

	// 1 initial + 2 retries, no row written, session still closed,
	// diagnostics still captured (with no page).
	assert.Equal(t, 3, eng.calls)
	assert.Empty(t, h.store.appends)
	assert.Equal(t, 1, *h.closed)
	assert.Equal(t, 1, h.sink.captures)
	assert.Nil(t, h.sink.result)
}

func TestRunPermanentFetchErrorIsNotRetried(t *testing.T) {
	eng := &scriptedEngine{
		name:    "fake",
		errs:    []error{models.NewFetchError(false, "bad url", nil)},
		results: []*engine.FetchResult{nil},
	}
	h := newHarness(t, eng, nil)

	rec, err := h.p.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, models.StatusFetchFailed, rec.Status)
	assert.Equal(t, 1, eng.calls)
}

func TestRunExtractionFailureIsAuditedNotRetried(t *testing.T) {
	eng := okOutcome(noRateHTML)
	h := newHarness(t, eng, nil)

	rec, err := h.p.Run(context.Background())
	require.Error(t, err)
	var ee *models.ExtractionError
	require.True(t, errors.As(err, &ee))

	assert.Equal(t, models.StatusExtractionFailed, rec.Status)
	assert.Equal(t, 1, eng.calls)
	require.Len(t, h.store.appends, 1)
	assert.Equal(t, models.StatusExtractionFailed, h.store.appends[0].Status)
	assert.Equal(t, 1, *h.closed)
}

func TestRunValidationFailureIsAudited(t *testing.T) {
	eng := okOutcome(badRateHTML)
	h := newHarness(t, eng, nil)

	rec, err := h.p.Run(context.Background())
	require.Error(t, err)
	var ve *models.ValidationError
	require.True(t, errors.As(err, &ve))

	assert.Equal(t, models.StatusValidationFailed, rec.Status)
	require.Len(t, h.store.appends, 1)
	assert.Equal(t, models.StatusValidationFailed, h.store.appends[0].Status)
	// The implausible value is preserved in the audited row.
	assert.Equal(t, "0", h.store.appends[0].Rate.String())
}

func TestRunSessionClosedWhenExtractionFails(t *testing.T) {
	eng := okOutcome(noRateHTML)
	h := newHarness(t, eng, nil)

	_, err := h.p.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, *h.closed)
}

func TestRunBrowserUnavailableUsesFallback(t *testing.T) {
	h := newHarness(t, nil, models.NewFetchError(false, "failed to launch browser", errors.New("no chromium")))
	h.p.fallback = okOutcome(goodHTML)

	rec, err := h.p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.StatusOK, rec.Status)
	assert.Equal(t, "fake", h.sink.summary.Engine)
}

func TestRunBrowserUnavailableWithoutFallbackFails(t *testing.T) {
	h := newHarness(t, nil, models.NewFetchError(false, "failed to launch browser", errors.New("no chromium")))

	rec, err := h.p.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, models.StatusFetchFailed, rec.Status)
	assert.Empty(t, h.store.appends)
	assert.Equal(t, 1, h.sink.captures)
}

func TestRunPersistenceErrorFailsRun(t *testing.T) {
	eng := okOutcome(goodHTML)
	h := newHarness(t, eng, nil)
	h.store.err = &models.PersistenceError{Path: "csv/prices.csv", Err: errors.New("disk full")}

	rec, err := h.p.Run(context.Background())
	require.Error(t, err)
	var pe *models.PersistenceError
	assert.True(t, errors.As(err, &pe))
	// The record itself was fine; only persistence failed.
	assert.Equal(t, models.StatusOK, rec.Status)
	assert.Equal(t, 1, h.sink.captures)
}
