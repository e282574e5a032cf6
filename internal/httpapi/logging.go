package httpapi

import (
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

var zlog = zerolog.Nop()

// SetLogger installs a structured logger used by the HTTP layer.
func SetLogger(l zerolog.Logger) { zlog = l }

// LogLevel controls per-request logging behavior.
type LogLevel int

const (
	LevelOff LogLevel = iota
	LevelError
	LevelInfo
	LevelDebug
)

func parseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "":
		return LevelOff
	case "error":
		return LevelError
	case "info":
		return LevelInfo
	case "debug":
		return LevelDebug
	default:
		return LevelInfo
	}
}

// global default, read once; SetRequestLogLevel overrides it
var defaultLogLevel = parseLevel(os.Getenv("MODELGATE_LOG_LEVEL"))

// SetRequestLogLevel sets the default per-request log level.
func SetRequestLogLevel(s string) { defaultLogLevel = parseLevel(s) }

func requestLogLevel(r *http.Request) LogLevel {
	// Per-request overrides
	if v := r.URL.Query().Get("log"); v != "" {
		if v == "1" {
			return LevelDebug
		}
		return parseLevel(v)
	}
	if v := r.Header.Get("X-Log-Level"); v != "" {
		return parseLevel(v)
	}
	return defaultLogLevel
}

// reqEvent starts a log event carrying the request id, or returns nil when
// the request's level is below min.
func reqEvent(r *http.Request, min LogLevel) *zerolog.Event {
	if requestLogLevel(r) < min {
		return nil
	}
	var e *zerolog.Event
	switch min {
	case LevelError:
		e = zlog.Error()
	case LevelDebug:
		e = zlog.Debug()
	default:
		e = zlog.Info()
	}
	e = e.Str("path", r.URL.Path)
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		e = e.Str("request_id", rid)
	}
	return e
}
