package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os/exec"
	"strings"
	"time"
)

// Config holds configuration for the yt-dlp service
type Config struct {
	// YtdlpPath is the path to yt-dlp binary (default: "yt-dlp")
	YtdlpPath string
	// Format is the yt-dlp format selector (default: "best")
	Format string
	// Timeout bounds a single extraction
	Timeout time.Duration
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		YtdlpPath: "yt-dlp",
		Format:    "best",
		Timeout:   60 * time.Second,
	}
}

// Service wraps yt-dlp for direct media URL extraction
type Service struct {
	cfg *Config
}

// New creates a new yt-dlp service
func New(cfg *Config) (*Service, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.YtdlpPath == "" {
		cfg.YtdlpPath = "yt-dlp"
	}
	if cfg.Format == "" {
		cfg.Format = "best"
	}

	// Verify yt-dlp is available
	if _, err := exec.LookPath(cfg.YtdlpPath); err != nil {
		return nil, ErrYtdlpNotFound
	}

	return &Service{cfg: cfg}, nil
}

// Available reports whether the configured yt-dlp binary can be found
func (s *Service) Available() error {
	if _, err := exec.LookPath(s.cfg.YtdlpPath); err != nil {
		return ErrYtdlpNotFound
	}
	return nil
}

// Extract asks yt-dlp for the direct media URL of a page without downloading it
func (s *Service) Extract(ctx context.Context, sourceURL string) (*Extraction, error) {
	if err := validateURL(sourceURL); err != nil {
		return nil, err
	}

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	args := []string{
		"--dump-json",
		"--no-playlist",
		"--no-warnings",
		"-f", s.cfg.Format,
		sourceURL,
	}

	cmd := exec.CommandContext(ctx, s.cfg.YtdlpPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, &ExtractError{URL: sourceURL, Message: "extraction timed out", Err: ctx.Err()}
		}
		return nil, categorizeError(sourceURL, err, stderr.String())
	}

	return parseOutput(sourceURL, output)
}

func parseOutput(sourceURL string, output []byte) (*Extraction, error) {
	var ytdlpOutput YtdlpOutput
	if err := json.Unmarshal(output, &ytdlpOutput); err != nil {
		return nil, &ExtractError{URL: sourceURL, Message: "failed to parse yt-dlp output", Err: err}
	}

	extraction := ytdlpOutput.ToExtraction()
	if extraction.URL == "" {
		return nil, &ExtractError{URL: sourceURL, Message: "no media url in output", Err: ErrExtractionFailed}
	}
	return extraction, nil
}

// validateURL checks that the URL is an absolute http(s) URL
func validateURL(sourceURL string) error {
	parsed, err := url.Parse(sourceURL)
	if err != nil {
		return &ExtractError{URL: sourceURL, Message: "invalid url", Err: ErrInvalidURL}
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return &ExtractError{URL: sourceURL, Message: "invalid url scheme", Err: ErrInvalidURL}
	}
	if parsed.Host == "" {
		return &ExtractError{URL: sourceURL, Message: "missing host", Err: ErrInvalidURL}
	}
	return nil
}

// categorizeError turns a failed yt-dlp run into an ExtractError with a reason
func categorizeError(sourceURL string, err error, stderr string) error {
	var execErr *exec.Error
	if errors.As(err, &execErr) {
		return &ExtractError{URL: sourceURL, Message: "yt-dlp not runnable", Err: ErrYtdlpNotFound}
	}

	if reason := reasonFromStderr(stderr); reason != nil {
		return &ExtractError{URL: sourceURL, Message: "yt-dlp refused", Err: reason}
	}
	return &ExtractError{
		URL:     sourceURL,
		Message: "yt-dlp refused",
		Err:     fmt.Errorf("%w: %s", ErrExtractionFailed, strings.TrimSpace(stderr)),
	}
}
