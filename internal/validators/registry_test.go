package validators

import (
	"testing"

	"github.com/vparse/vparse/internal/config"
)

func TestRegistry_Validate(t *testing.T) {
	r := DefaultRegistry()

	tests := []struct {
		name         string
		url          string
		wantValid    bool
		wantPlatform string
	}{
		{
			name:         "tencent cover page",
			url:          "https://v.qq.com/x/cover/abc.html",
			wantValid:    true,
			wantPlatform: "tencent",
		},
		{
			name:         "iqiyi subdomain",
			url:          "https://www.iqiyi.com/v_19rr.html",
			wantValid:    true,
			wantPlatform: "iqiyi",
		},
		{
			name:         "bilibili mixed case host",
			url:          "https://WWW.Bilibili.com/video/BV1xx",
			wantValid:    true,
			wantPlatform: "bilibili",
		},
		{
			name:      "unsupported URL",
			url:       "http://example.com",
			wantValid: false,
		},
		{
			name:      "supported domain only in the query",
			url:       "https://evil.example/?next=v.qq.com",
			wantValid: false,
		},
		{
			name:      "lookalike host",
			url:       "https://notyouku.com/v/1",
			wantValid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := r.Validate(tt.url)

			if result.Valid != tt.wantValid {
				t.Errorf("Validate(%q).Valid = %v, want %v", tt.url, result.Valid, tt.wantValid)
			}
			if result.Platform != tt.wantPlatform {
				t.Errorf("Validate(%q).Platform = %q, want %q", tt.url, result.Platform, tt.wantPlatform)
			}
		})
	}
}

func TestRegistry_IsSupported_Malformed(t *testing.T) {
	r := DefaultRegistry()

	inputs := []string{"", "   ", "://", "%zz", "https://[::1", "ftp://v.qq.com/x", "v.qq.com"}
	for _, in := range inputs {
		if r.IsSupported(in) {
			t.Errorf("IsSupported(%q) = true, want false", in)
		}
		// Same input, same answer
		if r.IsSupported(in) != r.IsSupported(in) {
			t.Errorf("IsSupported(%q) is not deterministic", in)
		}
	}
}

func TestRegistry_Match(t *testing.T) {
	r := DefaultRegistry()

	platform, ok := r.Match("https://m.mgtv.com/b/1.html")
	if !ok || platform != "mgtv" {
		t.Errorf("Match() = %q, %v; want mgtv, true", platform, ok)
	}

	if _, ok := r.Match("https://www.youtube.com/watch?v=1"); ok {
		t.Error("youtube should not be supported by default")
	}
}

func TestRegistry_SupportedPlatforms(t *testing.T) {
	r := DefaultRegistry()
	platforms := r.SupportedPlatforms()

	if len(platforms) != 10 {
		t.Errorf("SupportedPlatforms() returned %d platforms, want 10", len(platforms))
	}
	if platforms[0] != "tencent" {
		t.Errorf("first platform = %q, want tencent (registration order)", platforms[0])
	}
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if len(r.SupportedPlatforms()) != 0 {
		t.Errorf("NewRegistry() should have 0 platforms, got %d", len(r.SupportedPlatforms()))
	}
	if r.IsSupported("https://v.qq.com/x") {
		t.Error("empty registry should support nothing")
	}
}

func TestFromConfig_Patterns(t *testing.T) {
	r, err := FromConfig([]config.PlatformConfig{
		{Name: "youtube", Patterns: []string{`^https?://(www\.)?(youtube\.com|youtu\.be)/`}},
	})
	if err != nil {
		t.Fatalf("FromConfig() error: %v", err)
	}

	if !r.IsSupported("https://youtu.be/dQw4w9WgXcQ") {
		t.Error("pattern should match youtu.be")
	}
	if r.IsSupported("https://m.youtube.com/watch?v=1") {
		t.Error("pattern should not match m.youtube.com")
	}
}

func TestFromConfig_RejectsPublicSuffix(t *testing.T) {
	tests := [][]string{{"com"}, {"com.cn"}, {"co.uk"}}
	for _, domains := range tests {
		if _, err := FromConfig([]config.PlatformConfig{{Name: "bad", Domains: domains}}); err == nil {
			t.Errorf("FromConfig(%v) should fail", domains)
		}
	}
}

func TestFromConfig_InvalidPattern(t *testing.T) {
	if _, err := FromConfig([]config.PlatformConfig{{Name: "bad", Patterns: []string{"("}}}); err == nil {
		t.Error("expected error for invalid pattern")
	}
}
