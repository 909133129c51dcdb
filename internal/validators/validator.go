package validators

// ValidationResult contains the result of URL validation
type ValidationResult struct {
	Valid    bool   `json:"valid"`
	Platform string `json:"platform,omitempty"`
	URL      string `json:"url"`
	Error    string `json:"error,omitempty"`
}

// Validator defines the interface for URL validators
type Validator interface {
	// Platform returns the platform name this validator handles
	Platform() string

	// CanHandle returns true if this validator can handle the given URL
	CanHandle(url string) bool

	// Validate validates the URL and reports the platform it belongs to
	Validate(url string) ValidationResult
}
