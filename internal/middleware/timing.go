package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/vparse/vparse/internal/logger"
)

// Timing returns a middleware that adds Server-Timing headers and logs
// requests slower than threshold. Resolution requests routinely take seconds
// when parse services are retried, so the threshold is configurable.
func Timing(log *logger.Logger, threshold time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			tw := &timingResponseWriter{ResponseWriter: w, start: start, statusCode: http.StatusOK}

			next.ServeHTTP(tw, r)

			duration := time.Since(start)
			if threshold > 0 && duration > threshold {
				log.Warn(r.Context(), "slow request", map[string]interface{}{
					"method":      r.Method,
					"path":        r.URL.Path,
					"status":      tw.statusCode,
					"duration_ms": duration.Milliseconds(),
				})
			}
		})
	}
}

// timingResponseWriter sets the Server-Timing header right before the
// header block is flushed, since headers set afterwards are dropped.
type timingResponseWriter struct {
	http.ResponseWriter
	start       time.Time
	statusCode  int
	wroteHeader bool
}

func (w *timingResponseWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.wroteHeader = true
		w.statusCode = code
		w.Header().Set("Server-Timing", formatServerTiming(time.Since(w.start)))
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *timingResponseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func formatServerTiming(d time.Duration) string {
	ms := float64(d.Nanoseconds()) / 1e6
	return "total;dur=" + strconv.FormatFloat(ms, 'f', 2, 64)
}
