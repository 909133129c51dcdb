package errors

import (
	"context"
	"net/http"
	"unicode"

	"github.com/google/uuid"
)

// RequestIDHeader carries the request ID in both directions
const RequestIDHeader = "X-Request-ID"

// maxRequestIDLen bounds IDs accepted from clients
const maxRequestIDLen = 128

type requestIDKey struct{}

// WithRequestID stores the request ID in ctx
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// GetRequestID returns the request ID stored in ctx, or ""
func GetRequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// acceptableRequestID reports whether a client-supplied ID can be echoed back
func acceptableRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for _, r := range id {
		if r > unicode.MaxASCII || !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}

// RequestIDMiddleware reuses a sane incoming X-Request-ID or issues a UUID,
// and exposes it to handlers and clients.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if !acceptableRequestID(id) {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(WithRequestID(r.Context(), id)))
	})
}

// Handler is an http handler that reports failures by returning them
type Handler func(w http.ResponseWriter, r *http.Request) error

// HandleFunc adapts h, writing any returned error as a JSON error response
func HandleFunc(h Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			WriteError(w, GetRequestID(r.Context()), err)
		}
	}
}
