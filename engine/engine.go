package engine

import (
	"context"
	"time"
)

// Engine is the interface all fetch engines implement. The primary engine is
// the headless browser session; HTTPEngine is the fallback used when no
// browser can be launched.
type Engine interface {
	// Name returns the engine identifier (e.g. "browser", "http").
	Name() string

	// Fetch retrieves the rendered page for the given request.
	Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error)
}

// FetchRequest contains everything an engine needs to fetch the rate page.
type FetchRequest struct {
	URL       string
	UserAgent string
	Headers   map[string]string

	// WaitSelector, when set, is the content region the browser engine waits
	// for after navigation. Ignored by the HTTP engine.
	WaitSelector string

	Timeout time.Duration
}

// FetchResult is the output of a successful fetch.
type FetchResult struct {
	HTML       string
	Title      string
	FinalURL   string
	EngineName string

	// Screenshot is a PNG capture of the rendered page. Nil for engines
	// without a renderer.
	Screenshot []byte

	// RenderSuspect marks HTML that looks like an unrendered SPA shell
	// (HTTP engine heuristic); extraction still proceeds, but the run log
	// records reduced confidence.
	RenderSuspect bool
}
