package diag

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/rahulmohamw/SSM-Silver-scraper-V0/config"
	"github.com/rahulmohamw/SSM-Silver-scraper-V0/engine"
	"github.com/rahulmohamw/SSM-Silver-scraper-V0/models"
)

// StageTiming records how long one pipeline stage took.
type StageTiming struct {
	Stage   string        `json:"stage"`
	Elapsed time.Duration `json:"elapsed_ms"`
}

// MarshalJSON renders the elapsed time in milliseconds for readability.
func (t StageTiming) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Stage     string `json:"stage"`
		ElapsedMS int64  `json:"elapsed_ms"`
	}{t.Stage, t.Elapsed.Milliseconds()})
}

// RunSummary is the structured run log written once per run for forensic
// review.
type RunSummary struct {
	StartTime      time.Time     `json:"start_time"`
	Status         models.Status `json:"status"`
	Engine         string        `json:"engine,omitempty"`
	Attempts       int           `json:"attempts"`
	RawRate        string        `json:"raw_rate,omitempty"`
	RateStrategy   string        `json:"rate_strategy,omitempty"`
	Rate           string        `json:"rate,omitempty"`
	RawDate        string        `json:"raw_date,omitempty"`
	DateStrategy   string        `json:"date_strategy,omitempty"`
	NormalizedDate string        `json:"normalized_date,omitempty"`
	RenderSuspect  bool          `json:"render_suspect,omitempty"`
	Error          string        `json:"error,omitempty"`
	Stages         []StageTiming `json:"stages"`
	TotalElapsed   time.Duration `json:"-"`
	TotalElapsedMS int64         `json:"total_elapsed_ms"`
}

// Sink writes the per-run artifacts: one screenshot (when a rendered page
// was available) and one structured run log. Every write is best-effort —
// a diagnostics failure is logged and swallowed, never failing the run.
type Sink struct {
	cfg    config.DiagConfig
	logger zerolog.Logger
}

// NewSink builds a Sink from config.
func NewSink(cfg config.DiagConfig, logger zerolog.Logger) *Sink {
	return &Sink{
		cfg:    cfg,
		logger: logger.With().Str("component", "diag").Logger(),
	}
}

// Capture writes the run's artifacts. result may be nil (fetch never
// produced a page); the run log is still written.
func (s *Sink) Capture(result *engine.FetchResult, summary RunSummary) {
	stamp := summary.StartTime.Format("20060102_150405")

	if result != nil && len(result.Screenshot) > 0 {
		s.writeScreenshot(stamp, result.Screenshot)
	}

	s.writeRunLog(stamp, summary)
}

func (s *Sink) writeScreenshot(stamp string, png []byte) {
	if err := os.MkdirAll(s.cfg.ScreenshotDir, 0o755); err != nil {
		s.logger.Warn().Err(err).Str("dir", s.cfg.ScreenshotDir).Msg("cannot create screenshot dir")
		return
	}
	path := filepath.Join(s.cfg.ScreenshotDir, "smm_silver_"+stamp+".png")
	if err := os.WriteFile(path, png, 0o644); err != nil {
		s.logger.Warn().Err(err).Str("path", path).Msg("screenshot write failed")
		return
	}
	s.logger.Info().Str("path", path).Msg("screenshot saved")
}

func (s *Sink) writeRunLog(stamp string, summary RunSummary) {
	summary.TotalElapsedMS = summary.TotalElapsed.Milliseconds()

	if err := os.MkdirAll(s.cfg.LogDir, 0o755); err != nil {
		s.logger.Warn().Err(err).Str("dir", s.cfg.LogDir).Msg("cannot create log dir")
		return
	}
	payload, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		s.logger.Warn().Err(err).Msg("run summary marshal failed")
		return
	}
	path := filepath.Join(s.cfg.LogDir, "run_"+stamp+".json")
	if err := os.WriteFile(path, append(payload, '\n'), 0o644); err != nil {
		s.logger.Warn().Err(err).Str("path", path).Msg("run log write failed")
		return
	}
	s.logger.Info().Str("path", path).Msg("run log saved")
}
