package scraper

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"

	"github.com/rahulmohamw/SSM-Silver-scraper-V0/engine"
	"github.com/rahulmohamw/SSM-Silver-scraper-V0/models"
)

// Fetch implements engine.Engine: navigate to the rate page, wait for the
// content region to render, and return the HTML plus a full-page screenshot.
//
// Lifecycle (numbered steps match the inline comments):
//
//  1. Timeout guard     – hard deadline on the entire fetch
//  2. Create page       – one tab, this session's only one
//  3. DEFER: close page – leak prevention on every exit path
//  4. Stealth injection – mask navigator.webdriver etc. (before navigation!)
//  5. UA + headers      – must also be set before navigation
//  6. Context binding   – propagate the deadline to all Rod operations
//  7. Navigate          – triggers page load
//  8. Wait              – configured selector, else DOM stability
//  9. Screenshot        – full-page capture for the diagnostics sink
//  10. Extract          – rendered HTML + title + final URL
//
// Steps 4-5 must precede step 7: stealth JS and header overrides only take
// effect for navigations that happen after they are installed.
func (s *Session) Fetch(ctx context.Context, req *engine.FetchRequest) (*engine.FetchResult, error) {
	// ── 1. Timeout guard ─────────────────────────────────────────────
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// ── 2. Create page ───────────────────────────────────────────────
	page, err := s.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, models.NewFetchError(false, "failed to create page", err)
	}

	// ── 3. DEFER: close page on every exit path ──────────────────────
	// Uses the original page reference (no request context) so cleanup
	// succeeds even after the deadline has expired.
	defer func() {
		if closeErr := page.Close(); closeErr != nil {
			s.logger.Warn().Err(closeErr).Msg("cleanup: page close failed")
		}
	}()

	// ── 4. Stealth injection ─────────────────────────────────────────
	if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
		s.logger.Warn().Err(evalErr).Msg("stealth injection failed, proceeding without stealth")
	}

	// ── 5. User agent + extra headers ────────────────────────────────
	if req.UserAgent != "" {
		if uaErr := (proto.NetworkSetUserAgentOverride{UserAgent: req.UserAgent}).Call(page); uaErr != nil {
			s.logger.Warn().Err(uaErr).Msg("user agent override failed")
		}
	}
	if len(req.Headers) > 0 {
		_ = proto.NetworkSetExtraHTTPHeaders{Headers: toHeadersMap(req.Headers)}.Call(page)
	}

	// ── 6. Bind request context to page ──────────────────────────────
	p := page.Context(ctx)

	// ── 7. Navigate ──────────────────────────────────────────────────
	if navErr := p.Navigate(req.URL); navErr != nil {
		return nil, categorizeError(navErr, "navigation to rate page failed")
	}

	// ── 8. Wait for content ──────────────────────────────────────────
	if req.WaitSelector != "" {
		if _, waitErr := p.Element(req.WaitSelector); waitErr != nil {
			return nil, categorizeError(waitErr, "content region did not appear: "+req.WaitSelector)
		}
	} else {
		if stableErr := p.WaitDOMStable(300*time.Millisecond, 0.1); stableErr != nil {
			s.logger.Debug().Err(stableErr).Msg("WaitDOMStable did not converge, proceeding with current DOM")
		}
	}

	// ── 9. Screenshot (best-effort) ──────────────────────────────────
	shot, shotErr := p.Screenshot(true, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if shotErr != nil {
		s.logger.Warn().Err(shotErr).Msg("screenshot capture failed")
		shot = nil
	}

	// ── 10. Extract rendered HTML ────────────────────────────────────
	rawHTML, htmlErr := p.HTML()
	if htmlErr != nil {
		return nil, categorizeError(htmlErr, "failed to extract page HTML")
	}

	title := evalStringOrEmpty(p, `() => document.title`)
	finalURL := evalStringOrEmpty(p, `() => window.location.href`)
	if finalURL == "" {
		finalURL = req.URL
	}

	return &engine.FetchResult{
		HTML:       rawHTML,
		Title:      title,
		FinalURL:   finalURL,
		EngineName: s.Name(),
		Screenshot: shot,
	}, nil
}

// evalStringOrEmpty evaluates a JS expression and returns the string result,
// swallowing any errors (useful for optional metadata extraction).
func evalStringOrEmpty(page *rod.Page, js string) string {
	res, err := page.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

// categorizeError wraps raw rod/CDP errors into typed FetchErrors so the
// orchestrator can decide whether a retry is worthwhile.
func categorizeError(err error, msg string) *models.FetchError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewFetchError(true, msg+": timeout", err)
	case errors.Is(err, context.Canceled):
		return models.NewFetchError(true, "fetch canceled", err)
	case strings.Contains(err.Error(), "net::ERR_"):
		// Chromium network-level failures (DNS, connection reset, ...).
		return models.NewFetchError(true, msg, err)
	default:
		return models.NewFetchError(false, msg, err)
	}
}
