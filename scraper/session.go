package scraper

import (
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/rs/zerolog"

	"github.com/rahulmohamw/SSM-Silver-scraper-V0/config"
	"github.com/rahulmohamw/SSM-Silver-scraper-V0/models"
)

// Session owns one headless browser for the duration of one run. Each run
// launches a fresh browser with its own temporary profile, so no cookies,
// cache, or local storage leak between runs.
type Session struct {
	browser *rod.Browser
	cfg     config.BrowserConfig
	logger  zerolog.Logger
}

// NewSession launches a headless browser. The caller must Close() the
// session on every exit path; the orchestrator does this with a defer
// immediately after a successful launch.
func NewSession(cfg config.BrowserConfig, logger zerolog.Logger) (*Session, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)

	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}
	if cfg.Proxy != "" {
		l = l.Proxy(cfg.Proxy)
	}
	if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
		l.Set(flags.Flag("window-size"), fmt.Sprintf("%d,%d", cfg.WindowWidth, cfg.WindowHeight))
	}

	// ── Stealth flags ────────────────────────────────────────────────
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("disable-gpu"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewFetchError(false, "failed to launch browser", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, models.NewFetchError(false, "failed to connect to browser", err)
	}

	logger.Debug().Str("controlURL", controlURL).Msg("browser launched")

	return &Session{
		browser: browser,
		cfg:     cfg,
		logger:  logger.With().Str("component", "scraper").Logger(),
	}, nil
}

// Name implements engine.Engine.
func (s *Session) Name() string { return "browser" }

// Close kills the browser process. Safe to call exactly once; the
// orchestrator defers it on every exit path so no Chrome process outlives
// the run.
func (s *Session) Close() {
	s.logger.Debug().Msg("closing browser session")
	if err := s.browser.Close(); err != nil {
		s.logger.Warn().Err(err).Msg("browser close failed")
	}
}
