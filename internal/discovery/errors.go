package discovery

import (
	"errors"
	"fmt"
)

// ErrorStatus classifies discovery failures.
type ErrorStatus int

const (
	// ErrParam indicates an invalid argument (nil listener, bad filter)
	ErrParam ErrorStatus = iota + 1
	// ErrIllegal indicates a call made in the wrong state (start while running, stop while idle)
	ErrIllegal
	// ErrMemory indicates resource exhaustion
	ErrMemory
	// ErrFailure indicates an unspecified backend failure
	ErrFailure
	// ErrProcessing indicates the previous operation is still in progress; retry later
	ErrProcessing
	// ErrUnsupported indicates no usable backend on this platform
	ErrUnsupported
)

// String returns a human-readable name for the error status
func (s ErrorStatus) String() string {
	switch s {
	case ErrParam:
		return "ERR_PARAM"
	case ErrIllegal:
		return "ERR_ILLEGAL"
	case ErrMemory:
		return "ERR_MEMORY"
	case ErrFailure:
		return "ERR_FAILURE"
	case ErrProcessing:
		return "ERR_PROCESSING"
	case ErrUnsupported:
		return "ERR_UNSUPPORTED"
	default:
		return fmt.Sprintf("ErrorStatus(%d)", int(s))
	}
}

var (
	errAlreadyRunning = errors.New("discovery already running")
	errNotRunning     = errors.New("discovery not running")
	errNilListener    = errors.New("listener is nil")
	errNoBackends     = errors.New("no discovery backends configured")
	errStillStopping  = errors.New("backends still shutting down")
)

// DiscoveryError is returned by Start and Stop.
type DiscoveryError struct {
	Op     string      // "start" or "stop"
	Status ErrorStatus // Error classification
	Err    error       // Underlying error (if any)
}

// Error implements the error interface
func (e *DiscoveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Status)
}

// Unwrap returns the underlying error for error chain inspection
func (e *DiscoveryError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the same call may succeed if repeated.
func (e *DiscoveryError) Retryable() bool {
	return e.Status == ErrProcessing
}

func newError(op string, status ErrorStatus, err error) *DiscoveryError {
	return &DiscoveryError{Op: op, Status: status, Err: err}
}

// StatusOf extracts the ErrorStatus from an error chain.
func StatusOf(err error) (ErrorStatus, bool) {
	var de *DiscoveryError
	if errors.As(err, &de) {
		return de.Status, true
	}
	return 0, false
}

// IsProcessing reports whether err means "still busy, try again".
func IsProcessing(err error) bool {
	status, ok := StatusOf(err)
	return ok && status == ErrProcessing
}
