package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

const (
	HttpInternalError       = "internal_error"
	HttpInvalidRequestError = "invalid_request"
	HttpNotFoundError       = "not_found"
	HttpValidationError     = "validation_failed"
	HttpConcurrencyConflict = "concurrency_conflict"
	HttpTransferError       = "transfer_failed"
)

// ErrorResponse is the error response body returned by the HTTP API.
type ErrorResponse struct {
	ErrorType string      `json:"error_type"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}

// ErrConcurrencyConflict is returned when a file is already being processed.
var ErrConcurrencyConflict = stderrors.New("file is already in flight")

// TransferError wraps a failed blob list, download, copy or delete.
type TransferError struct {
	Op        string
	Container string
	Name      string
	Err       error
}

func (e *TransferError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Container, e.Err)
	}
	return fmt.Sprintf("%s %s/%s: %v", e.Op, e.Container, e.Name, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// CopyTimeoutError is returned when a server-side copy did not reach success
// before the configured bound. The source object is left in place.
type CopyTimeoutError struct {
	Name   string
	Waited time.Duration
}

func (e *CopyTimeoutError) Error() string {
	return fmt.Sprintf("copy of %s did not complete within %s", e.Name, e.Waited)
}

// ValidationError reports an input file that cannot be ingested.
type ValidationError struct {
	File    string
	Missing []string
	Reason  string
}

func (e *ValidationError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("validate %s: missing required columns: %s", e.File, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("validate %s: %s", e.File, e.Reason)
}

// PersistenceError wraps a failed write to the canonical store or cache.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return stderrors.As(err, &v)
}

// IsTransfer reports whether err carries a TransferError or CopyTimeoutError.
func IsTransfer(err error) bool {
	var t *TransferError
	var c *CopyTimeoutError
	return stderrors.As(err, &t) || stderrors.As(err, &c)
}
