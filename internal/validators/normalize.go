package validators

import (
	"errors"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ErrEmptyInput is returned by Normalize for blank input
var ErrEmptyInput = errors.New("empty input")

// Normalize prepares user input for validation. Full-width characters (as
// typed with CJK input methods) are folded to ASCII, surrounding whitespace is
// removed, and https:// is prepended when no http(s) scheme is present.
func Normalize(raw string) (string, error) {
	s := strings.TrimSpace(norm.NFKC.String(raw))
	if s == "" {
		return "", ErrEmptyInput
	}

	lower := strings.ToLower(s)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		s = "https://" + s
	}
	return s, nil
}
