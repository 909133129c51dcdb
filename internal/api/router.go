// Package api wires the HTTP routes of the service.
package api

import (
	"net/http"
	"time"

	apperrors "github.com/vparse/vparse/internal/errors"
	"github.com/vparse/vparse/internal/health"
	"github.com/vparse/vparse/internal/logger"
	"github.com/vparse/vparse/internal/metrics"
	"github.com/vparse/vparse/internal/middleware"
	"github.com/vparse/vparse/internal/parser"
	"github.com/vparse/vparse/internal/validators"
)

// RouterConfig holds everything the router serves
type RouterConfig struct {
	Parser  *parser.Service
	Health  *health.Handler
	Metrics *metrics.Metrics
	Logger  *logger.Logger

	AllowedOrigins []string
	// StaticDir, when set, is served at /
	StaticDir   string
	SlowRequest time.Duration
}

type Router struct {
	mux              *http.ServeMux
	handler          http.Handler
	parseHandlers    *ParseHandlers
	validateHandlers *validators.Handlers
	healthHandler    *health.Handler
	metrics          *metrics.Metrics
	staticDir        string
}

func NewRouter(cfg *RouterConfig) *Router {
	log := cfg.Logger
	if log == nil {
		log = logger.Default()
	}
	m := cfg.Metrics
	if m == nil {
		m = metrics.Default()
	}

	r := &Router{
		mux:              http.NewServeMux(),
		parseHandlers:    NewParseHandlers(cfg.Parser),
		validateHandlers: validators.NewHandlers(cfg.Parser.Registry()),
		healthHandler:    cfg.Health,
		metrics:          m,
		staticDir:        cfg.StaticDir,
	}
	r.setupRoutes()

	r.handler = middleware.Chain(r.mux,
		middleware.RequestID,
		middleware.Recoverer(log),
		middleware.Logging(log.WithComponent("http")),
		metrics.MetricsMiddleware(m),
		middleware.Timing(log, cfg.SlowRequest),
		middleware.CORS(cfg.AllowedOrigins),
		middleware.Gzip,
	)
	return r
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.handler.ServeHTTP(w, req)
}

func (r *Router) setupRoutes() {
	// Health checks
	if r.healthHandler != nil {
		r.mux.HandleFunc("GET /health", r.healthHandler.HealthHandler)
		r.mux.HandleFunc("GET /health/live", r.healthHandler.LivenessHandler)
		r.mux.HandleFunc("GET /health/ready", r.healthHandler.ReadinessHandler)
	}
	r.mux.HandleFunc("GET /metrics", r.metrics.Handler())

	// Parsing
	r.mux.HandleFunc("POST /parse", apperrors.HandleFunc(r.parseHandlers.Parse))
	r.mux.HandleFunc("POST /api/v1/parse", apperrors.HandleFunc(r.parseHandlers.Parse))
	r.mux.HandleFunc("DELETE /api/v1/cache", apperrors.HandleFunc(r.parseHandlers.PurgeCache))

	// Validation and listings
	r.mux.HandleFunc("POST /api/v1/validate", r.validateHandlers.ValidateURL)
	r.mux.HandleFunc("GET /api/v1/validate", r.validateHandlers.ValidateURLQuery)
	r.mux.HandleFunc("GET /api/v1/platforms", middleware.ETag(r.validateHandlers.GetSupportedPlatforms))
	r.mux.HandleFunc("GET /api/v1/candidates", middleware.ETag(r.parseHandlers.Candidates))

	if r.staticDir != "" {
		r.mux.Handle("GET /", http.FileServer(http.Dir(r.staticDir)))
		return
	}
	r.mux.HandleFunc("/", func(w http.ResponseWriter, req *http.Request) {
		apperrors.WriteError(w, apperrors.GetRequestID(req.Context()), apperrors.NotFound("route"))
	})
}
