// Package resolver turns a validated page URL into a playable URL by trying
// the configured candidates one after another until one succeeds.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vparse/vparse/internal/config"
	apperrors "github.com/vparse/vparse/internal/errors"
	"github.com/vparse/vparse/internal/logger"
	"github.com/vparse/vparse/internal/metrics"
	"github.com/vparse/vparse/internal/probe"
	"github.com/vparse/vparse/internal/ytdlp"
)

// Result types
const (
	TypeIframe = "iframe"
	TypeVideo  = "video"
)

// Resolution outcomes as recorded in metrics
const (
	OutcomeSuccess             = "success"
	OutcomeInvalidIndex        = "invalid_candidate_index"
	OutcomeAllCandidatesFailed = "all_candidates_failed"
	OutcomeExtractionFailed    = "extraction_failed"
	OutcomeInternalError       = "internal_error"
)

// Candidate attempt results as recorded in metrics
const (
	attemptSuccess = "success"
	attemptRetry   = "retry"
	attemptAbandon = "abandon"
	attemptFailed  = "failed"
)

// Prober checks a forwarding URL
type Prober interface {
	Probe(ctx context.Context, target string) error
}

// Extractor resolves a page URL to a direct media URL
type Extractor interface {
	Extract(ctx context.Context, pageURL string) (*ytdlp.Extraction, error)
}

// Result is a successful resolution
type Result struct {
	URL           string `json:"url"`
	Type          string `json:"type"`
	Title         string `json:"title,omitempty"`
	Candidate     int    `json:"candidate"`
	CandidateName string `json:"candidate_name,omitempty"`
}

// Config holds the resolver's collaborators and tuning
type Config struct {
	Candidates []Candidate
	Prober     Prober
	Extractor  Extractor

	Rotation string
	// MaxAttempts bounds probes per redirect candidate, first one included
	MaxAttempts    int
	AttemptTimeout time.Duration
	RetryDelay     time.Duration
	// CandidateDelay is waited before moving on to the next candidate
	CandidateDelay time.Duration

	Logger  *logger.Logger
	Metrics *metrics.Metrics
}

// ConfigFrom fills tuning fields from the loaded configuration
func ConfigFrom(cfg config.ResolverConfig, candidates []Candidate) *Config {
	return &Config{
		Candidates:     candidates,
		Rotation:       cfg.Rotation,
		MaxAttempts:    cfg.MaxAttempts,
		AttemptTimeout: cfg.AttemptTimeout.Duration,
		RetryDelay:     cfg.RetryDelay.Duration,
		CandidateDelay: cfg.CandidateDelay.Duration,
	}
}

// Resolver runs the fallback loop. It holds no per-request state and is safe
// for concurrent use.
type Resolver struct {
	candidates []Candidate
	prober     Prober
	extractor  Extractor
	rotation   string
	retry      *apperrors.RetryConfig
	timeout    time.Duration
	delay      time.Duration
	log        *logger.Logger
	metrics    *metrics.Metrics
}

// New creates a Resolver
func New(cfg *Config) (*Resolver, error) {
	if len(cfg.Candidates) == 0 {
		return nil, errors.New("resolver: no candidates")
	}
	for _, c := range cfg.Candidates {
		if c.IsExtract() && cfg.Extractor == nil {
			return nil, fmt.Errorf("resolver: candidate %q needs an extractor", c.Name)
		}
		if !c.IsExtract() && cfg.Prober == nil {
			return nil, fmt.Errorf("resolver: candidate %q needs a prober", c.Name)
		}
	}

	rotation := cfg.Rotation
	if rotation == "" {
		rotation = config.RotationRoundRobin
	}
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	timeout := cfg.AttemptTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Default()
	}
	m := cfg.Metrics
	if m == nil {
		m = metrics.Default()
	}

	return &Resolver{
		candidates: append([]Candidate(nil), cfg.Candidates...),
		prober:     cfg.Prober,
		extractor:  cfg.Extractor,
		rotation:   rotation,
		retry:      apperrors.ProbeRetryConfig(attempts, cfg.RetryDelay),
		timeout:    timeout,
		delay:      cfg.CandidateDelay,
		log:        log.WithComponent("resolver"),
		metrics:    m,
	}, nil
}

// Candidates returns a copy of the candidate list
func (r *Resolver) Candidates() []Candidate {
	return append([]Candidate(nil), r.candidates...)
}

// ValidIndex reports whether i selects a candidate
func (r *Resolver) ValidIndex(i int) bool {
	return i >= 0 && i < len(r.candidates)
}

// Resolve tries candidates starting at preferred until one succeeds. Errors
// are *apperrors.AppError of kind InvalidCandidateIndex, AllCandidatesFailed,
// ExtractionFailed or InternalError; individual probe failures never escape.
func (r *Resolver) Resolve(ctx context.Context, pageURL string, preferred int) (*Result, error) {
	start := time.Now()
	r.metrics.IncActiveResolutions()
	defer r.metrics.DecActiveResolutions()

	res, err := r.resolve(ctx, pageURL, preferred)

	outcome := OutcomeSuccess
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case apperrors.CodeInvalidCandidateIndex:
			outcome = OutcomeInvalidIndex
		case apperrors.CodeAllCandidatesFailed:
			outcome = OutcomeAllCandidatesFailed
		case apperrors.CodeExtractionFailed:
			outcome = OutcomeExtractionFailed
		default:
			outcome = OutcomeInternalError
		}
	}
	r.metrics.RecordResolution(outcome, time.Since(start))

	return res, err
}

func (r *Resolver) resolve(ctx context.Context, pageURL string, preferred int) (*Result, error) {
	if !r.ValidIndex(preferred) {
		return nil, apperrors.InvalidCandidateIndex().WithDetails(map[string]any{
			"candidates": len(r.candidates),
		})
	}

	for n, idx := range Order(r.rotation, len(r.candidates), preferred) {
		if n > 0 && r.delay > 0 {
			if err := sleep(ctx, r.delay); err != nil {
				return nil, apperrors.InternalError(apperrors.MessageInternalError).WithCause(err)
			}
		}

		c := r.candidates[idx]
		if c.IsExtract() {
			return r.extract(ctx, c, pageURL)
		}

		if res, ok := r.redirect(ctx, c, pageURL); ok {
			return res, nil
		}
		if ctx.Err() != nil {
			return nil, apperrors.InternalError(apperrors.MessageInternalError).WithCause(ctx.Err())
		}
	}

	r.log.Warn(ctx, "all candidates failed", map[string]interface{}{
		"url":        pageURL,
		"candidates": len(r.candidates),
	})
	return nil, apperrors.AllCandidatesFailed()
}

// redirect probes a redirect candidate, retrying retryable failures
func (r *Resolver) redirect(ctx context.Context, c Candidate, pageURL string) (*Result, bool) {
	target := probe.ForwardURL(c.Prefix, pageURL)

	err := apperrors.Retry(ctx, r.retry, func(ctx context.Context, attempt int) error {
		attemptCtx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()

		err := r.prober.Probe(attemptCtx, target)
		if err == nil {
			r.metrics.RecordCandidateAttempt(c.Name, attemptSuccess)
			return nil
		}

		fields := map[string]interface{}{
			"candidate": c.Name,
			"attempt":   attempt + 1,
			"error":     err.Error(),
		}

		var statusErr *probe.StatusError
		if errors.As(err, &statusErr) && apperrors.HTTPAbandonStatus(statusErr.StatusCode) {
			r.metrics.RecordCandidateAttempt(c.Name, attemptAbandon)
			r.log.Info(ctx, "candidate abandoned", fields)
			return apperrors.Permanent(err)
		}

		result := attemptRetry
		if attempt+1 >= r.retry.MaxAttempts {
			result = attemptFailed
		}
		r.metrics.RecordCandidateAttempt(c.Name, result)
		r.log.Info(ctx, "candidate attempt failed", fields)
		return err
	})
	if err != nil {
		return nil, false
	}

	r.log.Info(ctx, "candidate succeeded", map[string]interface{}{"candidate": c.Name})
	return &Result{
		URL:           target,
		Type:          TypeIframe,
		Candidate:     c.Index,
		CandidateName: c.Name,
	}, true
}

// extract runs the extraction candidate once. Its failure ends the resolution.
func (r *Resolver) extract(ctx context.Context, c Candidate, pageURL string) (*Result, error) {
	extraction, err := r.extractor.Extract(ctx, pageURL)
	if err != nil {
		r.metrics.RecordCandidateAttempt(c.Name, attemptFailed)
		r.log.Error(ctx, "extraction failed", err, map[string]interface{}{"candidate": c.Name})
		return nil, apperrors.ExtractionFailed().WithCause(err)
	}

	r.metrics.RecordCandidateAttempt(c.Name, attemptSuccess)
	return &Result{
		URL:           extraction.URL,
		Type:          TypeVideo,
		Title:         extraction.Title,
		Candidate:     c.Index,
		CandidateName: c.Name,
	}, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
