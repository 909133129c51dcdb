// Package parser is the entry point for a parse request: it normalizes and
// validates the input, consults the cache and runs the resolver.
package parser

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/vparse/vparse/internal/cache"
	apperrors "github.com/vparse/vparse/internal/errors"
	"github.com/vparse/vparse/internal/logger"
	"github.com/vparse/vparse/internal/metrics"
	"github.com/vparse/vparse/internal/resolver"
	"github.com/vparse/vparse/internal/validators"
)

// Request is a single parse request
type Request struct {
	URL            string `json:"url" jsonschema:"description=Video page URL; https:// is assumed when the scheme is missing"`
	PreferredIndex int    `json:"preferred_index,omitempty" jsonschema:"minimum=0,description=Candidate to try first"`
}

// Result is a successful parse
type Result struct {
	URL           string `json:"url"`
	Type          string `json:"type" jsonschema:"enum=iframe,enum=video"`
	Title         string `json:"title,omitempty"`
	Platform      string `json:"platform,omitempty"`
	Candidate     int    `json:"candidate"`
	CandidateName string `json:"candidate_name,omitempty"`
	Cached        bool   `json:"-"`
}

// TitleFetcher looks up the display title of a page
type TitleFetcher interface {
	Title(ctx context.Context, pageURL string) (string, error)
}

// Config holds the service collaborators
type Config struct {
	Registry *validators.Registry
	Resolver *resolver.Resolver
	// Cache is optional; results are identical without it
	Cache    cache.Cache
	CacheTTL time.Duration
	// Titles is optional
	Titles TitleFetcher

	Logger  *logger.Logger
	Metrics *metrics.Metrics
}

// Service parses video page URLs
type Service struct {
	registry *validators.Registry
	resolver *resolver.Resolver
	cache    cache.Cache
	cacheTTL time.Duration
	titles   TitleFetcher
	log      *logger.Logger
	metrics  *metrics.Metrics
}

// New creates a parse service
func New(cfg *Config) (*Service, error) {
	if cfg.Registry == nil || cfg.Resolver == nil {
		return nil, errors.New("parser: registry and resolver are required")
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Default()
	}
	m := cfg.Metrics
	if m == nil {
		m = metrics.Default()
	}
	return &Service{
		registry: cfg.Registry,
		resolver: cfg.Resolver,
		cache:    cfg.Cache,
		cacheTTL: cfg.CacheTTL,
		titles:   cfg.Titles,
		log:      log.WithComponent("parser"),
		metrics:  m,
	}, nil
}

// Registry returns the platform registry
func (s *Service) Registry() *validators.Registry {
	return s.registry
}

// Candidates returns the configured candidates
func (s *Service) Candidates() []resolver.Candidate {
	return s.resolver.Candidates()
}

// Parse resolves a page URL. Input errors are reported before any network
// activity. Errors are *apperrors.AppError.
func (s *Service) Parse(ctx context.Context, req Request) (*Result, error) {
	pageURL, err := validators.Normalize(req.URL)
	if err != nil {
		return nil, apperrors.EmptyInput()
	}

	platform, ok := s.registry.Match(pageURL)
	if !ok {
		s.log.Info(ctx, "unsupported platform", map[string]interface{}{"url": pageURL})
		return nil, apperrors.UnsupportedPlatform()
	}

	if !s.resolver.ValidIndex(req.PreferredIndex) {
		return nil, apperrors.InvalidCandidateIndex()
	}

	key := cache.Key(pageURL, req.PreferredIndex)
	if res, ok := s.lookup(ctx, key); ok {
		return res, nil
	}

	resolved, err := s.resolver.Resolve(ctx, pageURL, req.PreferredIndex)
	if err != nil {
		return nil, err
	}

	res := &Result{
		URL:           resolved.URL,
		Type:          resolved.Type,
		Title:         resolved.Title,
		Platform:      platform,
		Candidate:     resolved.Candidate,
		CandidateName: resolved.CandidateName,
	}

	if res.Title == "" && s.titles != nil {
		title, err := s.titles.Title(ctx, pageURL)
		if err != nil {
			s.log.Debug(ctx, "title lookup failed", map[string]interface{}{"url": pageURL, "error": err.Error()})
		} else {
			res.Title = title
		}
	}

	s.store(ctx, key, res)

	s.log.Info(ctx, "parse succeeded", map[string]interface{}{
		"platform":  platform,
		"candidate": res.CandidateName,
		"type":      res.Type,
	})
	return res, nil
}

// PurgeCache drops all cached results
func (s *Service) PurgeCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Purge(ctx); err != nil {
		return apperrors.CacheError("failed to purge cache").WithCause(err)
	}
	s.log.Info(ctx, "cache purged")
	return nil
}

func (s *Service) lookup(ctx context.Context, key string) (*Result, bool) {
	if s.cache == nil {
		return nil, false
	}

	raw, ok := s.cache.Get(ctx, key)
	if !ok {
		s.metrics.RecordCacheLookup(false)
		return nil, false
	}

	var res Result
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		s.log.Warn(ctx, "discarding corrupt cache entry", map[string]interface{}{"key": key})
		s.metrics.RecordCacheLookup(false)
		return nil, false
	}
	s.metrics.RecordCacheLookup(true)
	res.Cached = true
	return &res, true
}

func (s *Service) store(ctx context.Context, key string, res *Result) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, string(raw), s.cacheTTL); err != nil {
		s.metrics.IncCounter("cache_errors")
		s.log.Error(ctx, "cache store failed", err)
	}
}
