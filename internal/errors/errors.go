// Package errors provides custom error types for the pengaduan service.
//
// Each type describes one failure class of the complaint workflow so that
// callers (the workflow engine, the HTTP surface) can pick a recovery or a
// response without string matching:
//   - ValidationError: a required field for the current step is falsy
//   - IdentityError: the signed-in admin could not be resolved
//   - RateLimitError: the local request gate refused the call
//   - APIError: the backend answered with an error or could not be reached
//   - StepError: the requested transition is not offered at this step
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrBusy is returned when a workflow action is requested while another one
// for the same report is still in flight.
var ErrBusy = stderrors.New("another workflow action is in progress")

// ValidationError indicates that the draft does not satisfy the required-field
// policy of its current step, or that a local precondition (empty reason,
// missing report id, too many photos) failed before any network call.
//
// Recovery strategy: fix the draft and retry
type ValidationError struct {
	Message string
	Fields  []string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("validation failed: %s: %s", e.Message, strings.Join(e.Fields, ", "))
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// NewValidationError creates a new validation error for the given fields
func NewValidationError(msg string, fields ...string) *ValidationError {
	return &ValidationError{Message: msg, Fields: fields}
}

// IdentityError indicates that no admin identifier could be resolved from
// the configured session sources.
//
// This is a hard failure for Save and a soft one for the processed-by update.
type IdentityError struct {
	Message string
	Err     error
}

func (e *IdentityError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("identity unavailable: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("identity unavailable: %s", e.Message)
}

// Unwrap returns the wrapped error for error chain inspection
func (e *IdentityError) Unwrap() error {
	return e.Err
}

// NewIdentityError creates a new identity error with context
func NewIdentityError(msg string, err error) *IdentityError {
	return &IdentityError{Message: msg, Err: err}
}

// RateLimitError indicates that a request was refused locally by the
// sliding-window gate. The request never reached the network.
//
// Recovery strategy: none automatic; the user retries later
type RateLimitError struct {
	Key string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s", e.Key)
}

// NewRateLimitError creates a new rate limit error for a request key
func NewRateLimitError(key string) *RateLimitError {
	return &RateLimitError{Key: key}
}

// APIError wraps a failed backend call.
//
// StatusCode is zero when the request failed before a response arrived.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
	Err        error
}

func (e *APIError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("backend error: %s %s: %v", e.Method, e.Path, e.Err)
	case e.Body != "":
		return fmt.Sprintf("backend error: %s %s returned %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
	default:
		return fmt.Sprintf("backend error: %s %s returned %d", e.Method, e.Path, e.StatusCode)
	}
}

// Unwrap returns the wrapped error for error chain inspection
func (e *APIError) Unwrap() error {
	return e.Err
}

// NewAPIError creates a new backend error with context
func NewAPIError(method, path string, statusCode int, body string, err error) *APIError {
	return &APIError{Method: method, Path: path, StatusCode: statusCode, Body: body, Err: err}
}

// StepError indicates a transition that the workflow does not offer from the
// current status (for example rejecting a report that is already verified).
type StepError struct {
	Action string
	Status string
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s is not available at status %q", e.Action, e.Status)
}

// NewStepError creates a new step error
func NewStepError(action, status string) *StepError {
	return &StepError{Action: action, Status: status}
}

// IsValidation checks if the error chain contains a ValidationError
func IsValidation(err error) bool {
	var target *ValidationError
	return stderrors.As(err, &target)
}

// IsIdentity checks if the error chain contains an IdentityError
func IsIdentity(err error) bool {
	var target *IdentityError
	return stderrors.As(err, &target)
}

// IsRateLimited checks if the error chain contains a RateLimitError
func IsRateLimited(err error) bool {
	var target *RateLimitError
	return stderrors.As(err, &target)
}

// IsAPI checks if the error chain contains an APIError
func IsAPI(err error) bool {
	var target *APIError
	return stderrors.As(err, &target)
}

// IsStep checks if the error chain contains a StepError
func IsStep(err error) bool {
	var target *StepError
	return stderrors.As(err, &target)
}

// IsBusy checks if the error is ErrBusy
func IsBusy(err error) bool {
	return stderrors.Is(err, ErrBusy)
}
