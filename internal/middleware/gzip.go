package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"
)

var gzipWriters = sync.Pool{
	New: func() any { return gzip.NewWriter(io.Discard) },
}

// gzipWriter compresses whatever the handler writes. Content-Encoding is only
// announced once the handler commits a status, so a response written past it
// (a recovered panic) goes out plain. 204 and 304 stay empty.
type gzipWriter struct {
	http.ResponseWriter
	gz          *gzip.Writer
	wroteHeader bool
	wroteBody   bool
}

func (w *gzipWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	h := w.Header()
	h.Add("Vary", "Accept-Encoding")
	if code != http.StatusNoContent && code != http.StatusNotModified {
		h.Del("Content-Length")
		h.Set("Content-Encoding", "gzip")
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *gzipWriter) Write(b []byte) (int, error) {
	w.WriteHeader(http.StatusOK)
	w.wroteBody = true
	return w.gz.Write(b)
}

func acceptsGzip(r *http.Request) bool {
	if r.Method == http.MethodHead || r.Method == http.MethodOptions {
		return false
	}
	return strings.Contains(r.Header.Get("Accept-Encoding"), "gzip")
}

// Gzip compresses responses for clients that accept it
func Gzip(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !acceptsGzip(r) {
			next.ServeHTTP(w, r)
			return
		}

		gz := gzipWriters.Get().(*gzip.Writer)
		gz.Reset(w)
		gw := &gzipWriter{ResponseWriter: w, gz: gz}
		defer func() {
			if gw.wroteBody {
				_ = gz.Close()
			}
			gzipWriters.Put(gz)
		}()

		next.ServeHTTP(gw, r)
	})
}
