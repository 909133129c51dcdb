package validators

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// PlatformValidator matches URLs of one video platform by host domain or by
// regular expression over the whole URL.
type PlatformValidator struct {
	name     string
	domains  []string
	patterns []*regexp.Regexp
}

// NewPlatformValidator creates a validator for the given domains and patterns.
// Domains that are public suffixes ("com", "com.cn") would match every site
// under them and are rejected.
func NewPlatformValidator(name string, domains, patterns []string) (*PlatformValidator, error) {
	v := &PlatformValidator{name: name}

	for _, d := range domains {
		d = strings.Trim(strings.ToLower(strings.TrimSpace(d)), ".")
		if d == "" {
			continue
		}
		if suffix, _ := publicsuffix.PublicSuffix(d); suffix == d {
			return nil, fmt.Errorf("platform %q: domain %q is a public suffix", name, d)
		}
		v.domains = append(v.domains, d)
	}

	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("platform %q: invalid pattern %q: %w", name, p, err)
		}
		v.patterns = append(v.patterns, re)
	}

	if len(v.domains) == 0 && len(v.patterns) == 0 {
		return nil, fmt.Errorf("platform %q: no domains or patterns", name)
	}
	return v, nil
}

// Platform returns the platform name
func (v *PlatformValidator) Platform() string {
	return v.name
}

// Domains returns the host domains this validator accepts
func (v *PlatformValidator) Domains() []string {
	return append([]string(nil), v.domains...)
}

// CanHandle returns true if the URL belongs to this platform
func (v *PlatformValidator) CanHandle(rawURL string) bool {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return false
	}

	for _, re := range v.patterns {
		if re.MatchString(rawURL) {
			return true
		}
	}

	host := hostOf(rawURL)
	if host == "" {
		return false
	}
	for _, d := range v.domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// Validate validates the URL against this platform
func (v *PlatformValidator) Validate(rawURL string) ValidationResult {
	rawURL = strings.TrimSpace(rawURL)
	if !v.CanHandle(rawURL) {
		return ValidationResult{
			Valid:    false,
			Platform: v.name,
			URL:      rawURL,
			Error:    fmt.Sprintf("not a %s URL", v.name),
		}
	}
	return ValidationResult{
		Valid:    true,
		Platform: v.name,
		URL:      rawURL,
	}
}

// hostOf returns the lower-cased host of an http(s) URL, or "" when the input
// does not parse as one.
func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ""
	}
	return strings.TrimSuffix(strings.ToLower(parsed.Hostname()), ".")
}
