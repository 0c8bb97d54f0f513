package translate

import (
	"context"
	"errors"
	"iter"
	"net"
)

var (
	// ErrRateLimited is returned when the engine rejects a call for quota reasons. Retriable.
	ErrRateLimited = errors.New("translation engine rate limited")
	// ErrUpstream marks a transient engine failure (5xx, 408, broken stream). Retriable.
	ErrUpstream = errors.New("translation engine unavailable")
	// ErrInvalidRequest marks a request the engine will never accept as sent. Not retriable.
	ErrInvalidRequest = errors.New("translation request rejected")
	// ErrUnknownEngine is returned when a job names an engine that is not registered.
	ErrUnknownEngine = errors.New("unknown translation engine")
	// ErrNotConfigured is returned by engines constructed without credentials.
	ErrNotConfigured = errors.New("translation engine not configured")
)

// Request is one group's worth of text bound for an engine.
type Request struct {
	Text         string
	Language     string // display name, e.g. "Japanese"
	Code         string // ISO 639 code, "" when the language is free text
	Preset       string
	Instructions string // extra system guidance from the preset, may be empty
}

// Client is the contract every translation engine implements. The returned sequence
// yields fragments in arrival order; a non-nil error ends it.
type Client interface {
	Translate(ctx context.Context, req Request) iter.Seq2[string, error]
	// Name returns the engine name
	Name() string
}

// Retriable reports whether a failed call is worth repeating.
// Cancellation never is, quota and transport failures are.
func Retriable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, ErrNotConfigured):
		return false
	case errors.Is(err, ErrRateLimited), errors.Is(err, ErrUpstream):
		return true
	}
	var nerr net.Error
	return errors.As(err, &nerr)
}

// classifyStatus maps an HTTP status from an engine onto the package errors.
func classifyStatus(status int) error {
	switch {
	case status == 429:
		return ErrRateLimited
	case status == 408 || status >= 500:
		return ErrUpstream
	case status >= 400:
		return ErrInvalidRequest
	}
	return nil
}
