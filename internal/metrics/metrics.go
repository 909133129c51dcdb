// Package metrics exposes request and resolution counters in the Prometheus
// text format without a client library.
package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Metrics holds all application metrics
type Metrics struct {
	mu sync.RWMutex

	// Request metrics
	requestCount    map[string]*uint64    // endpoint:method -> count
	requestDuration map[string]*Histogram // endpoint:method -> duration histogram
	requestErrors   map[string]*uint64    // endpoint:method:status_class -> count

	// Resolution metrics
	resolutions        map[string]*uint64    // outcome -> count
	resolutionDuration *Histogram            // whole resolutions, cache hits excluded
	candidateAttempts  map[string]*uint64    // candidate:result -> count
	cacheLookups       map[string]*uint64    // hit|miss -> count
	activeResolutions  int64

	// Custom gauges and counters
	gauges   map[string]float64
	counters map[string]*uint64

	startTime time.Time
}

// Histogram tracks value distributions
type Histogram struct {
	mu    sync.Mutex
	count uint64
	sum   float64
	// Buckets: 5ms, 10ms, 25ms, 50ms, 100ms, 250ms, 500ms, 1s, 2.5s, 5s, 10s, 30s, 60s
	buckets    []float64
	bucketVals []uint64
}

// NewHistogram creates a new histogram with default buckets
func NewHistogram() *Histogram {
	buckets := []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}
	return &Histogram{
		buckets:    buckets,
		bucketVals: make([]uint64, len(buckets)),
	}
}

// Observe records a value
func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += v
	for i, b := range h.buckets {
		if v <= b {
			h.bucketVals[i]++
		}
	}
}

// New creates a new Metrics instance
func New() *Metrics {
	return &Metrics{
		requestCount:       make(map[string]*uint64),
		requestDuration:    make(map[string]*Histogram),
		requestErrors:      make(map[string]*uint64),
		resolutions:        make(map[string]*uint64),
		resolutionDuration: NewHistogram(),
		candidateAttempts:  make(map[string]*uint64),
		cacheLookups:       make(map[string]*uint64),
		gauges:             make(map[string]float64),
		counters:           make(map[string]*uint64),
		startTime:          time.Now(),
	}
}

// global metrics instance
var defaultMetrics = New()

// Default returns the default metrics instance
func Default() *Metrics {
	return defaultMetrics
}

// counter returns the counter stored under key, creating it on first use
func (m *Metrics) counter(set map[string]*uint64, key string) *uint64 {
	m.mu.RLock()
	c := set[key]
	m.mu.RUnlock()
	if c != nil {
		return c
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if set[key] == nil {
		var zero uint64
		set[key] = &zero
	}
	return set[key]
}

// RecordRequest records a request
func (m *Metrics) RecordRequest(method, path string, statusCode int, duration time.Duration) {
	key := fmt.Sprintf("%s:%s", normalizeEndpoint(path), method)

	atomic.AddUint64(m.counter(m.requestCount, key), 1)

	m.mu.Lock()
	h := m.requestDuration[key]
	if h == nil {
		h = NewHistogram()
		m.requestDuration[key] = h
	}
	m.mu.Unlock()
	h.Observe(duration.Seconds())

	// Track errors by status class
	if statusCode >= 400 {
		errorKey := fmt.Sprintf("%s:%d", key, statusCode/100*100)
		atomic.AddUint64(m.counter(m.requestErrors, errorKey), 1)
	}
}

// RecordResolution records the outcome of one resolution
func (m *Metrics) RecordResolution(outcome string, duration time.Duration) {
	atomic.AddUint64(m.counter(m.resolutions, outcome), 1)
	m.resolutionDuration.Observe(duration.Seconds())
}

// RecordCandidateAttempt records one probe or extraction against a candidate.
// result is "success", "retry" or "abandon".
func (m *Metrics) RecordCandidateAttempt(candidate, result string) {
	atomic.AddUint64(m.counter(m.candidateAttempts, candidate+":"+result), 1)
}

// RecordCacheLookup records a cache hit or miss
func (m *Metrics) RecordCacheLookup(hit bool) {
	key := "miss"
	if hit {
		key = "hit"
	}
	atomic.AddUint64(m.counter(m.cacheLookups, key), 1)
}

// IncActiveResolutions increments the in-flight resolution gauge
func (m *Metrics) IncActiveResolutions() {
	atomic.AddInt64(&m.activeResolutions, 1)
}

// DecActiveResolutions decrements the in-flight resolution gauge
func (m *Metrics) DecActiveResolutions() {
	atomic.AddInt64(&m.activeResolutions, -1)
}

// normalizeEndpoint folds UUID and numeric path segments into {id} so that
// static files and probes do not explode label cardinality
func normalizeEndpoint(path string) string {
	parts := strings.Split(path, "/")
	for i, part := range parts {
		if part == "" {
			continue
		}
		if _, err := uuid.Parse(part); err == nil || isNumeric(part) {
			parts[i] = "{id}"
		}
	}
	return strings.Join(parts, "/")
}

func isNumeric(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// SetGauge sets a gauge value
func (m *Metrics) SetGauge(name string, value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gauges[name] = value
}

// IncCounter increments a counter
func (m *Metrics) IncCounter(name string) {
	atomic.AddUint64(m.counter(m.counters, name), 1)
}

func sortedKeys[V any](set map[string]V) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func writeHistogram(sb *strings.Builder, name, labels string, h *Histogram) {
	sep := ""
	if labels != "" {
		sep = ","
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, bucket := range h.buckets {
		fmt.Fprintf(sb, "%s_bucket{%s%sle=\"%g\"} %d\n", name, labels, sep, bucket, h.bucketVals[i])
	}
	fmt.Fprintf(sb, "%s_bucket{%s%sle=\"+Inf\"} %d\n", name, labels, sep, h.count)
	if labels != "" {
		fmt.Fprintf(sb, "%s_sum{%s} %f\n", name, labels, h.sum)
		fmt.Fprintf(sb, "%s_count{%s} %d\n", name, labels, h.count)
	} else {
		fmt.Fprintf(sb, "%s_sum %f\n", name, h.sum)
		fmt.Fprintf(sb, "%s_count %d\n", name, h.count)
	}
}

// family writes the HELP and TYPE lines of a metric
func family(sb *strings.Builder, name, kind, help string) {
	fmt.Fprintf(sb, "# HELP %s %s\n# TYPE %s %s\n", name, help, name, kind)
}

// writeCounters writes one sample per key; labels renders the label set of a key
func writeCounters(sb *strings.Builder, name, help string, set map[string]*uint64, labels func(key string) string) {
	if len(set) == 0 {
		return
	}
	family(sb, name, "counter", help)
	for _, key := range sortedKeys(set) {
		fmt.Fprintf(sb, "%s{%s} %d\n", name, labels(key), atomic.LoadUint64(set[key]))
	}
	sb.WriteString("\n")
}

// endpointLabels renders an "endpoint:method" key
func endpointLabels(key string) string {
	endpoint, method, _ := strings.Cut(key, ":")
	return fmt.Sprintf("endpoint=%q,method=%q", endpoint, method)
}

// Handler serves the metrics in Prometheus text format
func (m *Metrics) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var sb strings.Builder

		family(&sb, "vparse_uptime_seconds", "gauge", "Time since the server started")
		fmt.Fprintf(&sb, "vparse_uptime_seconds %f\n\n", time.Since(m.startTime).Seconds())

		family(&sb, "vparse_resolutions_active", "gauge", "Resolutions currently running")
		fmt.Fprintf(&sb, "vparse_resolutions_active %d\n\n", atomic.LoadInt64(&m.activeResolutions))

		m.mu.RLock()
		defer m.mu.RUnlock()

		writeCounters(&sb, "vparse_http_requests_total", "Total HTTP requests", m.requestCount, endpointLabels)

		if len(m.requestDuration) > 0 {
			family(&sb, "vparse_http_request_duration_seconds", "histogram", "HTTP request latency")
			for _, key := range sortedKeys(m.requestDuration) {
				writeHistogram(&sb, "vparse_http_request_duration_seconds", endpointLabels(key), m.requestDuration[key])
			}
			sb.WriteString("\n")
		}

		// keys are endpoint:method:status
		writeCounters(&sb, "vparse_http_errors_total", "Total HTTP errors by status class", m.requestErrors, func(key string) string {
			i := strings.LastIndex(key, ":")
			return fmt.Sprintf("%s,status_class=\"%sxx\"", endpointLabels(key[:i]), key[i+1:i+2])
		})

		writeCounters(&sb, "vparse_resolutions_total", "Resolutions by outcome", m.resolutions, func(key string) string {
			return fmt.Sprintf("outcome=%q", key)
		})
		if len(m.resolutions) > 0 {
			family(&sb, "vparse_resolution_duration_seconds", "histogram", "Resolution latency")
			writeHistogram(&sb, "vparse_resolution_duration_seconds", "", m.resolutionDuration)
			sb.WriteString("\n")
		}

		// keys are candidate:result; candidate names may contain colons
		writeCounters(&sb, "vparse_candidate_attempts_total", "Attempts against each candidate by result", m.candidateAttempts, func(key string) string {
			i := strings.LastIndex(key, ":")
			return fmt.Sprintf("candidate=%q,result=%q", key[:i], key[i+1:])
		})

		writeCounters(&sb, "vparse_cache_lookups_total", "Result cache lookups", m.cacheLookups, func(key string) string {
			return fmt.Sprintf("result=%q", key)
		})

		if len(m.gauges) > 0 {
			family(&sb, "vparse_gauge", "gauge", "Custom gauge metrics")
			for _, name := range sortedKeys(m.gauges) {
				fmt.Fprintf(&sb, "vparse_gauge{name=%q} %f\n", name, m.gauges[name])
			}
			sb.WriteString("\n")
		}

		writeCounters(&sb, "vparse_counter", "Custom counter metrics", m.counters, func(key string) string {
			return fmt.Sprintf("name=%q", key)
		})

		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = io.WriteString(w, sb.String())
	}
}

// MetricsMiddleware creates middleware that records request metrics
func MetricsMiddleware(m *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(sw, r)
			m.RecordRequest(r.Method, r.URL.Path, sw.statusCode, time.Since(start))
		})
	}
}

type statusResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusResponseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}
