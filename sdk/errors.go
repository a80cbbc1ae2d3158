package sdk

import "fmt"

// InitializationError reports that bootstrap has not completed successfully,
// or that the bootstrap call itself failed.
//
// This is the only error the SDK throws from steady-state operations: link
// create/resolve and deferred matching are gated on bootstrap, so its
// absence must be impossible to ignore. Ordinary network failures during
// those operations fold into LinkResult.Error instead.
type InitializationError struct {
	// StatusCode is the HTTP status of the failing bootstrap call, or 0
	// for non-HTTP causes.
	StatusCode int
	Message    string
	Cause      error
}

// Error implements the error interface.
func (e *InitializationError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("ulink: initialization failed (HTTP %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("ulink: initialization failed: %s", e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *InitializationError) Unwrap() error {
	return e.Cause
}
