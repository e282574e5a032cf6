// Package httpapi exposes the readiness-aware proxy over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"modelgate/internal/manager"
	"modelgate/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
// *manager.Manager implements it.
type Service interface {
	InstanceID() string
	Model() string
	Status(ctx context.Context) types.StatusResponse
	Chat(ctx context.Context, prompt string) (string, error)
	Ready() bool
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	r.Use(middleware.Compress(5))
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
			MaxAge:         300,
		}))
	}
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/health", healthHandler(svc))
	r.Get("/api/status", statusHandler(svc))
	r.Get("/api/whoami", whoamiHandler(svc))
	r.Post("/api/chat", chatHandler(svc))
	r.Options("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	if MountSwagger(r) {
		zlog.Debug().Msg("swagger UI mounted at /swagger/")
	}
	return r
}

// healthHandler godoc
// @Summary      Liveness of the proxy process
// @Tags         health
// @Produce      json
// @Success      200  {object}  types.HealthResponse
// @Router       /health [get]
func healthHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, types.HealthResponse{Status: "healthy", InstanceID: svc.InstanceID()})
	}
}

// statusHandler godoc
// @Summary      Readiness of the daemon and model
// @Description  Evaluates readiness on every call. Starts the daemon or a background model download when needed. Always 200.
// @Tags         status
// @Produce      json
// @Success      200  {object}  types.StatusResponse
// @Router       /api/status [get]
func statusHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := joinContexts(shutdownCtx, r.Context())
		defer cancel()
		st := svc.Status(ctx)
		if e := reqEvent(r, LevelDebug); e != nil {
			e.Str("status", st.Status).Bool("ready", st.Ready).Msg("status")
		}
		writeJSON(w, http.StatusOK, st)
	}
}

// whoamiHandler godoc
// @Summary      Client address as seen by this instance
// @Tags         status
// @Produce      json
// @Success      200  {object}  types.WhoAmIResponse
// @Router       /api/whoami [get]
func whoamiHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, types.WhoAmIResponse{YourIP: clientIP(r), InstanceID: svc.InstanceID()})
	}
}

// chatHandler godoc
// @Summary      Generate a completion with the pinned model
// @Description  Starts the daemon and downloads the model first when needed. Downstream failures are reported with success=false and status 200.
// @Tags         chat
// @Accept       json
// @Produce      json
// @Param        request  body      types.ChatRequest  true  "Prompt"
// @Success      200      {object}  types.ChatResponse
// @Failure      400      {object}  types.ChatFailure
// @Router       /api/chat [post]
func chatHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		var req types.ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			reason := "invalid_json"
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) {
				reason = "too_large"
			}
			incrementRejected(reason)
			writeJSON(w, http.StatusBadRequest, types.ChatFailure{Success: false, Message: "Invalid JSON body", InstanceID: svc.InstanceID()})
			return
		}

		start := time.Now()
		if e := reqEvent(r, LevelInfo); e != nil {
			e.Int("prompt_len", len(req.Prompt)).Msg("chat start")
		}
		// Join server base context with request context so shutdown cancels work too.
		ctx, cancel := joinContexts(shutdownCtx, r.Context())
		defer cancel()
		out, err := svc.Chat(ctx, req.Prompt)
		if err != nil {
			if manager.IsInvalidRequest(err) {
				incrementRejected("empty_prompt")
				writeJSON(w, http.StatusBadRequest, types.ChatFailure{Success: false, Message: err.Error(), InstanceID: svc.InstanceID()})
				return
			}
			if e := reqEvent(r, LevelError); e != nil {
				e.Dur("dur", time.Since(start)).Err(errors.Unwrap(err)).Str("message", err.Error()).Msg("chat failed")
			}
			writeJSON(w, http.StatusOK, types.ChatFailure{Success: false, Message: err.Error(), InstanceID: svc.InstanceID()})
			return
		}
		if e := reqEvent(r, LevelInfo); e != nil {
			e.Dur("dur", time.Since(start)).Int("response_len", len(out)).Msg("chat end")
		}
		writeJSON(w, http.StatusOK, types.ChatResponse{Success: true, Response: out, Model: svc.Model(), InstanceID: svc.InstanceID()})
	}
}

// clientIP returns the first X-Forwarded-For entry, else the peer host.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
