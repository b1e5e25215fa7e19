// Package errs defines the error kinds shared by the provider, sources and transport.
package errs

import "errors"

var (
	// ErrNotFound means the requested service is unknown to the source.
	ErrNotFound = errors.New("not found")
	// ErrDataUnavailable means the metrics backend could not be reached.
	ErrDataUnavailable = errors.New("data unavailable")
	// ErrInvalidInput means the caller passed a malformed argument.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnknownTool means no tool is registered under the requested name.
	ErrUnknownTool = errors.New("unknown tool")
)
