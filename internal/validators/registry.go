package validators

import (
	"github.com/samber/lo"

	"github.com/vparse/vparse/internal/config"
)

// Registry is the set of supported platforms. It is fixed at construction,
// so it is safe for concurrent use without locking. Validators are consulted
// in order and the first match wins.
type Registry struct {
	validators []Validator
}

// NewRegistry creates a registry over the given validators
func NewRegistry(validators ...Validator) *Registry {
	return &Registry{validators: append([]Validator(nil), validators...)}
}

func (r *Registry) find(url string) (Validator, bool) {
	return lo.Find(r.validators, func(v Validator) bool {
		return v.CanHandle(url)
	})
}

// Validate reports whether the URL is supported and by which platform
func (r *Registry) Validate(url string) ValidationResult {
	if v, ok := r.find(url); ok {
		return v.Validate(url)
	}
	return ValidationResult{URL: url, Error: "unsupported platform"}
}

// IsSupported reports whether any platform accepts the URL.
// Malformed input yields false.
func (r *Registry) IsSupported(url string) bool {
	_, ok := r.find(url)
	return ok
}

// Match returns the name of the first platform accepting the URL
func (r *Registry) Match(url string) (string, bool) {
	v, ok := r.find(url)
	if !ok {
		return "", false
	}
	return v.Platform(), true
}

// SupportedPlatforms returns the platform names in match order
func (r *Registry) SupportedPlatforms() []string {
	return lo.Map(r.validators, func(v Validator, _ int) string {
		return v.Platform()
	})
}

// FromConfig creates a registry with one validator per configured platform
func FromConfig(platforms []config.PlatformConfig) (*Registry, error) {
	validators := make([]Validator, 0, len(platforms))
	for _, p := range platforms {
		v, err := NewPlatformValidator(p.Name, p.Domains, p.Patterns)
		if err != nil {
			return nil, err
		}
		validators = append(validators, v)
	}
	return NewRegistry(validators...), nil
}

// DefaultRegistry creates a registry with the built-in platform list
func DefaultRegistry() *Registry {
	r, err := FromConfig(config.Default().Platforms)
	if err != nil {
		panic(err)
	}
	return r
}
