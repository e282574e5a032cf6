package manager

import (
	"errors"
	"fmt"
)

// Error values returned by Chat carry the message shown to callers in their
// Error() string; the underlying cause is available through Unwrap.

// invalidRequestError rejects a request before any daemon work (400).
type invalidRequestError struct{ msg string }

func (e invalidRequestError) Error() string { return e.msg }

// ErrInvalidRequest constructs an invalidRequestError.
func ErrInvalidRequest(msg string) error { return invalidRequestError{msg: msg} }

// IsInvalidRequest reports whether err should be answered with 400.
func IsInvalidRequest(err error) bool {
	var e invalidRequestError
	return errors.As(err, &e)
}

// daemonUnreachableError: the daemon is down and could not be started.
type daemonUnreachableError struct{ cause error }

func (e daemonUnreachableError) Error() string {
	return "Failed to initialize Ollama: Failed to start Ollama service"
}
func (e daemonUnreachableError) Unwrap() error { return e.cause }

func ErrDaemonUnreachable(cause error) error { return daemonUnreachableError{cause: cause} }

// IsDaemonUnreachable reports whether err means the daemon could not be reached.
func IsDaemonUnreachable(err error) bool {
	var e daemonUnreachableError
	return errors.As(err, &e)
}

// modelAbsentError: the model is still missing after a fetch attempt.
type modelAbsentError struct {
	model string
	cause error
}

func (e modelAbsentError) Error() string { return fmt.Sprintf("Model '%s' could not be loaded", e.model) }
func (e modelAbsentError) Unwrap() error { return e.cause }

func ErrModelAbsent(model string, cause error) error {
	return modelAbsentError{model: model, cause: cause}
}

// IsModelAbsent reports whether err means the model could not be made resident.
func IsModelAbsent(err error) bool {
	var e modelAbsentError
	return errors.As(err, &e)
}

// fetchFailedError wraps a failed model download.
type fetchFailedError struct {
	model string
	cause error
}

func (e fetchFailedError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.model, e.cause)
}
func (e fetchFailedError) Unwrap() error { return e.cause }

func ErrFetchFailed(model string, cause error) error {
	return fetchFailedError{model: model, cause: cause}
}

// IsFetchFailed reports whether err is a failed download.
func IsFetchFailed(err error) bool {
	var e fetchFailedError
	return errors.As(err, &e)
}

// forwardError: the generate call failed.
type forwardError struct {
	msg   string
	cause error
}

func (e forwardError) Error() string { return e.msg }
func (e forwardError) Unwrap() error { return e.cause }

func ErrForward(msg string, cause error) error { return forwardError{msg: msg, cause: cause} }

// IsForward reports whether err is a failed generate call.
func IsForward(err error) bool {
	var e forwardError
	return errors.As(err, &e)
}
