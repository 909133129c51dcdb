package ytdlp

import (
	"errors"
	"strings"
)

// Extraction failure reasons. The resolver reports all of them as a single
// extraction failure; they are kept apart for logs.
var (
	ErrURLNotSupported  = errors.New("url not supported")
	ErrVideoUnavailable = errors.New("video unavailable")
	ErrVideoPrivate     = errors.New("video is private")
	ErrAgeRestricted    = errors.New("content is age-restricted")
	ErrNetworkError     = errors.New("network error")
	ErrYtdlpNotFound    = errors.New("yt-dlp not found in PATH")
	ErrExtractionFailed = errors.New("extraction failed")
	ErrInvalidURL       = errors.New("invalid url format")
)

// stderrMarkers maps lower-cased yt-dlp stderr fragments to a reason, checked in order
var stderrMarkers = []struct {
	reason  error
	markers []string
}{
	{ErrVideoUnavailable, []string{"video unavailable", "this video is unavailable"}},
	{ErrVideoPrivate, []string{"private video", "is private"}},
	{ErrAgeRestricted, []string{"age-restricted", "sign in to confirm your age"}},
	{ErrURLNotSupported, []string{"unsupported url", "no suitable extractor"}},
	{ErrNetworkError, []string{"unable to download", "connection", "network"}},
}

// reasonFromStderr picks the failure reason yt-dlp reported, or nil
func reasonFromStderr(stderr string) error {
	lower := strings.ToLower(stderr)
	for _, m := range stderrMarkers {
		for _, marker := range m.markers {
			if strings.Contains(lower, marker) {
				return m.reason
			}
		}
	}
	return nil
}

// ExtractError ties a failure reason to the page URL it happened on
type ExtractError struct {
	URL     string
	Message string
	Err     error
}

func (e *ExtractError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *ExtractError) Unwrap() error { return e.Err }
