// Package middleware holds the HTTP middleware chain of the parse API.
package middleware

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/samber/lo"

	apperrors "github.com/vparse/vparse/internal/errors"
	"github.com/vparse/vparse/internal/logger"
)

// Chain wraps h so that the first middleware is outermost
func Chain(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// RequestID tags every request with an X-Request-ID
func RequestID(next http.Handler) http.Handler {
	return apperrors.RequestIDMiddleware(next)
}

// statusRecorder remembers the status and body size written through it
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += int64(n)
	return n, err
}

// Logging writes one access log entry per request. Health probes are skipped.
func Logging(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/health") {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			fields := map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      rec.status,
				"duration_ms": time.Since(start).Milliseconds(),
				"bytes":       rec.bytes,
				"remote_ip":   clientIP(r),
				"user_agent":  r.UserAgent(),
			}

			switch {
			case rec.status >= 500:
				log.Error(r.Context(), "request completed with server error", nil, fields)
			case rec.status >= 400:
				log.Warn(r.Context(), "request completed with client error", fields)
			default:
				log.Info(r.Context(), "request completed", fields)
			}
		})
	}
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// CORS lets browser front ends on allowed origins call the API and answers
// every OPTIONS request as a preflight.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	wildcard := lo.Contains(allowedOrigins, "*")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && (wildcard || lo.Contains(allowedOrigins, origin)) {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
				h.Set("Access-Control-Expose-Headers", "X-Request-ID, X-Cache")
				h.Add("Vary", "Origin")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Recoverer turns a handler panic into a logged 500 response
func Recoverer(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				log.Error(r.Context(), "panic recovered", nil, map[string]interface{}{
					"panic":  rec,
					"method": r.Method,
					"path":   r.URL.Path,
				})
				apperrors.WriteError(w, apperrors.GetRequestID(r.Context()),
					apperrors.InternalError(apperrors.MessageInternalError))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
