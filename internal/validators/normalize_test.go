package validators

import (
	"errors"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"adds scheme", "v.qq.com/x/cover/abc.html", "https://v.qq.com/x/cover/abc.html"},
		{"keeps https", "https://v.qq.com/x", "https://v.qq.com/x"},
		{"keeps http", "http://v.qq.com/x", "http://v.qq.com/x"},
		{"upper-case scheme", "HTTPS://v.qq.com/x", "HTTPS://v.qq.com/x"},
		{"trims whitespace", "  \tv.qq.com/x\n", "https://v.qq.com/x"},
		{"full-width input", "ｖ．ｑｑ．ｃｏｍ／ｘ", "https://v.qq.com/x"},
		{"ideographic space", "　https://v.qq.com/x　", "https://v.qq.com/x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.in)
			if err != nil {
				t.Fatalf("Normalize(%q) error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalize_Empty(t *testing.T) {
	for _, in := range []string{"", "   ", "\t\n", "　"} {
		if _, err := Normalize(in); !errors.Is(err, ErrEmptyInput) {
			t.Errorf("Normalize(%q) error = %v, want ErrEmptyInput", in, err)
		}
	}
}
