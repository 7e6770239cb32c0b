package model

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrDuplicateKey is returned by SeenStore.Record when the URL is already recorded.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrMissingCredential means the LLM API key is not configured.
	ErrMissingCredential = errors.New("missing credential")

	// ErrMissingReferenceDocument means the resume file is absent or empty.
	ErrMissingReferenceDocument = errors.New("missing reference document")
)

// DiscoveryError is returned when the listing page cannot be rendered.
type DiscoveryError struct {
	URL string
	Err error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discover %s: %v", e.URL, e.Err)
}

func (e *DiscoveryError) Unwrap() error {
	return e.Err
}

// ExtractionError is returned when a posting cannot be fetched or reduced to text.
type ExtractionError struct {
	URL string
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.URL, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// TransportError wraps a network or HTTP-level failure talking to the LLM service.
// StatusCode is zero when no response was received.
type TransportError struct {
	StatusCode int
	RetryAfter time.Duration // from Retry-After header, zero if absent
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("transport: %v", e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("HTTP %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// SchemaError means the LLM reply did not have the expected shape.
// Raw holds the offending payload for diagnostics.
type SchemaError struct {
	Raw string
	Err error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema: %v", e.Err)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}
