package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/vparse/vparse/internal/cache"
	"github.com/vparse/vparse/internal/config"
	"github.com/vparse/vparse/internal/health"
	"github.com/vparse/vparse/internal/logger"
	"github.com/vparse/vparse/internal/metrics"
	"github.com/vparse/vparse/internal/pageinfo"
	"github.com/vparse/vparse/internal/parser"
	"github.com/vparse/vparse/internal/probe"
	"github.com/vparse/vparse/internal/resolver"
	"github.com/vparse/vparse/internal/validators"
	"github.com/vparse/vparse/internal/ytdlp"
)

// app is the assembled service graph shared by serve and resolve
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	metrics *metrics.Metrics
	cache   cache.Cache
	parser  *parser.Service
	checks  []health.Check
}

func newApp(ctx context.Context, cfg *config.Config, logOutput io.Writer) (*app, error) {
	log := logger.New(&logger.Config{
		Output: logOutput,
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: logger.Format(cfg.Log.Format),
	})
	logger.SetDefault(log)

	m := metrics.Default()

	registry, err := validators.FromConfig(cfg.Platforms)
	if err != nil {
		return nil, fmt.Errorf("building platform list: %w", err)
	}

	resCfg := resolver.ConfigFrom(cfg.Resolver, resolver.CandidatesFromConfig(cfg.Candidates))
	resCfg.Prober = probe.New(probe.Config{
		Headers:            cfg.Resolver.Headers,
		InsecureSkipVerify: cfg.Resolver.InsecureSkipVerify,
	})
	resCfg.Logger = log
	resCfg.Metrics = m

	var checks []health.Check
	if cfg.HasExtractor() {
		extractor, err := ytdlp.New(&ytdlp.Config{
			YtdlpPath: cfg.Ytdlp.Path,
			Format:    cfg.Ytdlp.Format,
			Timeout:   cfg.Ytdlp.Timeout.Duration,
		})
		if err != nil {
			return nil, fmt.Errorf("setting up yt-dlp: %w", err)
		}
		resCfg.Extractor = extractor
		checks = append(checks, health.Check{
			Name: "ytdlp",
			Func: func(ctx context.Context) error { return extractor.Available() },
		})
	}

	res, err := resolver.New(resCfg)
	if err != nil {
		return nil, err
	}

	c, err := cache.New(ctx, cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("setting up %s cache: %w", cfg.Cache.Backend, err)
	}
	if c != nil {
		checks = append(checks, health.Check{Name: "cache", Func: c.Ping, Optional: true})
	}

	parserCfg := &parser.Config{
		Registry: registry,
		Resolver: res,
		Cache:    c,
		CacheTTL: cfg.Cache.TTL.Duration,
		Logger:   log,
		Metrics:  m,
	}
	if cfg.Resolver.FetchTitle {
		client := &http.Client{Timeout: cfg.Resolver.AttemptTimeout.Duration}
		parserCfg.Titles = pageinfo.NewFetcher(client, cfg.Resolver.Headers)
	}

	svc, err := parser.New(parserCfg)
	if err != nil {
		return nil, err
	}

	m.SetGauge("candidates_configured", float64(len(cfg.Candidates)))
	m.SetGauge("platforms_configured", float64(len(cfg.Platforms)))

	return &app{
		cfg:     cfg,
		log:     log,
		metrics: m,
		cache:   c,
		parser:  svc,
		checks:  checks,
	}, nil
}

func (a *app) Close() error {
	if a.cache != nil {
		return a.cache.Close()
	}
	return nil
}
