// Package probe checks whether a parse service answers a forwarding URL.
package probe

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxDrain bounds how much of a response body is read before closing it
const maxDrain = 64 << 10

// StatusError is returned when a probe gets any status other than 200
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.StatusCode)
}

// Config configures an HTTPProber
type Config struct {
	Headers            map[string]string
	InsecureSkipVerify bool
	// Timeout is a hard ceiling on a single request; callers normally bound
	// attempts through the context instead.
	Timeout time.Duration
}

// HTTPProber performs GET requests against forwarding URLs
type HTTPProber struct {
	client  *http.Client
	headers map[string]string
}

// New creates an HTTPProber. Proxy settings from the environment are ignored.
func New(cfg Config) *HTTPProber {
	transport := &http.Transport{
		Proxy:               nil,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	headers := make(map[string]string, len(cfg.Headers))
	for k, v := range cfg.Headers {
		headers[k] = v
	}

	return &HTTPProber{
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		headers: headers,
	}
}

// NewWithClient creates an HTTPProber around an existing client
func NewWithClient(client *http.Client, headers map[string]string) *HTTPProber {
	return &HTTPProber{client: client, headers: headers}
}

// Probe issues a GET to target, following redirects. A nil error means the
// final response had status 200.
func (p *HTTPProber) Probe(ctx context.Context, target string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	for k, v := range p.headers {
		req.Header.Set(k, v)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrain))

	if resp.StatusCode != http.StatusOK {
		return &StatusError{StatusCode: resp.StatusCode}
	}
	return nil
}

// ForwardURL appends the page URL to a parse service prefix. Only bytes that
// would break the outer URL are percent-encoded, so a well-formed page URL
// passes through unchanged.
func ForwardURL(prefix, pageURL string) string {
	return prefix + escapeQueryValue(pageURL)
}

func escapeQueryValue(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if keepByte(c) {
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, "%%%02X", c)
	}
	return b.String()
}

func keepByte(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	// '+' is excluded: query decoders read it as a space
	case '-', '_', '.', '~', ':', '/', '?', '=', '@', '!', '$', '\'', '(', ')', '*', ',', ';', '%':
		return true
	}
	return false
}
