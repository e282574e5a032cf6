package ollama

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
)

type modelNotFoundError struct{ model string }

func (e modelNotFoundError) Error() string { return "model not found: " + e.model }

// ErrModelNotFound reports that the daemon does not hold model.
func ErrModelNotFound(model string) error { return modelNotFoundError{model: model} }

// IsModelNotFound reports whether err indicates the daemon lacks the model.
func IsModelNotFound(err error) bool {
	var e modelNotFoundError
	return errors.As(err, &e)
}

// StatusError is a non-2xx daemon reply.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return http.StatusText(e.Code)
	}
	return e.Body
}

func newStatusError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
}

// PullError is an error line reported inside a pull stream.
type PullError struct {
	Model string
	Msg   string
}

func (e *PullError) Error() string { return "pull " + e.Model + ": " + e.Msg }

// IsTimeout reports whether err is a deadline or network timeout.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
