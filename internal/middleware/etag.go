package middleware

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"net/http"
)

// bufferedWriter holds the response back until the ETag is known
type bufferedWriter struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (w *bufferedWriter) Write(b []byte) (int, error) { return w.body.Write(b) }

func (w *bufferedWriter) WriteHeader(code int) { w.status = code }

// ETag tags successful GET listings (platforms, candidates) with a content
// hash and answers a matching If-None-Match with 304.
func ETag(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			next(w, r)
			return
		}

		buf := &bufferedWriter{ResponseWriter: w, status: http.StatusOK}
		next(buf, r)

		if buf.status == http.StatusOK {
			sum := sha1.Sum(buf.body.Bytes())
			etag := `"` + hex.EncodeToString(sum[:]) + `"`
			w.Header().Set("ETag", etag)
			w.Header().Set("Cache-Control", "no-cache")
			if r.Header.Get("If-None-Match") == etag {
				w.WriteHeader(http.StatusNotModified)
				return
			}
		}

		w.WriteHeader(buf.status)
		_, _ = w.Write(buf.body.Bytes())
	}
}
