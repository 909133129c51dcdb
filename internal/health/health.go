// Package health reports liveness and readiness of the parse service and the
// backends it leans on (result cache, yt-dlp binary).
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Status represents the health status of a component
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// severity orders statuses from best to worst
var severity = map[Status]int{
	StatusHealthy:   0,
	StatusDegraded:  1,
	StatusUnhealthy: 2,
}

func worse(a, b Status) Status {
	if severity[b] > severity[a] {
		return b
	}
	return a
}

// ComponentHealth represents the health of a single component
type ComponentHealth struct {
	Status   Status `json:"status"`
	Message  string `json:"message,omitempty"`
	Duration string `json:"duration,omitempty"`
}

// HealthResponse is the body of every health endpoint
type HealthResponse struct {
	Status     Status                     `json:"status"`
	Timestamp  string                     `json:"timestamp"`
	Version    string                     `json:"version,omitempty"`
	Uptime     string                     `json:"uptime,omitempty"`
	Components map[string]ComponentHealth `json:"components,omitempty"`
}

// CheckFunc reports whether a component is usable
type CheckFunc func(ctx context.Context) error

// Check is a named component check. A failing optional check degrades the
// service instead of taking it out of rotation.
type Check struct {
	Name     string
	Func     CheckFunc
	Optional bool
}

// CheckerConfig holds configuration for the health checker
type CheckerConfig struct {
	Checks  []Check
	Version string
	// Timeout bounds each check; 5s when zero
	Timeout time.Duration
}

// Checker runs component checks
type Checker struct {
	checks  []Check
	version string
	timeout time.Duration
	started time.Time
}

// NewChecker creates a new health checker
func NewChecker(cfg *CheckerConfig) *Checker {
	c := &Checker{
		checks:  cfg.Checks,
		version: cfg.Version,
		timeout: cfg.Timeout,
		started: time.Now(),
	}
	if c.timeout <= 0 {
		c.timeout = 5 * time.Second
	}
	return c
}

func (c *Checker) response(status Status) *HealthResponse {
	return &HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   c.version,
		Uptime:    time.Since(c.started).Truncate(time.Second).String(),
	}
}

// Check answers liveness: the process is up and serving
func (c *Checker) Check(ctx context.Context) *HealthResponse {
	return c.response(StatusHealthy)
}

// DeepCheck runs every component check concurrently
func (c *Checker) DeepCheck(ctx context.Context) *HealthResponse {
	results := make([]ComponentHealth, len(c.checks))

	var wg sync.WaitGroup
	for i, check := range c.checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = c.run(ctx, check)
		}()
	}
	wg.Wait()

	resp := c.response(StatusHealthy)
	resp.Components = make(map[string]ComponentHealth, len(results))
	for i, result := range results {
		resp.Components[c.checks[i].Name] = result
		resp.Status = worse(resp.Status, result.Status)
	}
	return resp
}

func (c *Checker) run(ctx context.Context, check Check) ComponentHealth {
	if check.Func == nil {
		return ComponentHealth{Status: StatusUnhealthy, Message: check.Name + " not configured"}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	err := check.Func(ctx)
	result := ComponentHealth{Status: StatusHealthy, Duration: time.Since(start).String()}
	if err != nil {
		result.Message = err.Error()
		result.Status = StatusUnhealthy
		if check.Optional {
			result.Status = StatusDegraded
		}
	}
	return result
}

// Handler serves the health endpoints
type Handler struct {
	checker *Checker
}

// NewHandler creates a new health handler
func NewHandler(checker *Checker) *Handler {
	return &Handler{checker: checker}
}

// LivenessHandler handles GET /health/live
func (h *Handler) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	respond(w, h.checker.Check(r.Context()))
}

// ReadinessHandler handles GET /health/ready. Degraded still accepts traffic.
func (h *Handler) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	respond(w, h.checker.DeepCheck(r.Context()))
}

// HealthHandler handles GET /health; ?deep=true runs the readiness checks
func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("deep") == "true" {
		h.ReadinessHandler(w, r)
		return
	}
	h.LivenessHandler(w, r)
}

func respond(w http.ResponseWriter, resp *HealthResponse) {
	code := http.StatusOK
	if resp.Status == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
