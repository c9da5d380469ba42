package models

import "fmt"

// FetchError is returned by fetch engines when the page could not be
// retrieved or rendered. Transient errors (timeouts, network failures) may
// be retried by the orchestrator; permanent ones (bad URL, browser missing)
// are surfaced immediately.
type FetchError struct {
	Transient bool
	Message   string
	Err       error
}

func (e *FetchError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	if e.Err != nil {
		return fmt.Sprintf("fetch (%s): %s: %v", kind, e.Message, e.Err)
	}
	return fmt.Sprintf("fetch (%s): %s", kind, e.Message)
}

func (e *FetchError) Unwrap() error { return e.Err }

// NewFetchError wraps err as a FetchError.
func NewFetchError(transient bool, message string, err error) *FetchError {
	return &FetchError{Transient: transient, Message: message, Err: err}
}

// ExtractionError reports that a required field could not be located or
// parsed on the rendered page. Field is "rate" or "date".
type ExtractionError struct {
	Field string
	Err   error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extract %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("extract %s: no locator strategy matched", e.Field)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ValidationError reports that an extracted value fell outside the
// configured plausibility band.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "validate: " + e.Reason }

// PersistenceError reports a failure to durably append the record. Path is
// included so the failure can be diagnosed without re-running.
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
