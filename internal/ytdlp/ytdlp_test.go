package ytdlp

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOutput(t *testing.T) {
	tests := []struct {
		name      string
		output    string
		wantURL   string
		wantTitle string
		wantErr   error
	}{
		{
			name:      "single file format",
			output:    `{"id":"a","title":"Episode 1","url":"https://cdn.example/a.mp4","ext":"mp4","extractor_key":"Generic"}`,
			wantURL:   "https://cdn.example/a.mp4",
			wantTitle: "Episode 1",
		},
		{
			name:      "merged format",
			output:    `{"id":"b","title":"Clip","requested_formats":[{"url":"https://cdn.example/v.mp4","ext":"mp4"},{"url":"https://cdn.example/a.m4a","ext":"m4a"}]}`,
			wantURL:   "https://cdn.example/v.mp4",
			wantTitle: "Clip",
		},
		{
			name:    "no url",
			output:  `{"id":"c","title":"Nothing"}`,
			wantErr: ErrExtractionFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseOutput("https://v.qq.com/x/1.html", []byte(tt.output))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantURL, got.URL)
			assert.Equal(t, tt.wantTitle, got.Title)
		})
	}
}

func TestParseOutput_InvalidJSON(t *testing.T) {
	_, err := parseOutput("https://v.qq.com/x/1.html", []byte("not json"))
	var extractErr *ExtractError
	require.ErrorAs(t, err, &extractErr)
	assert.Equal(t, "failed to parse yt-dlp output", extractErr.Message)
}

func TestCategorizeError(t *testing.T) {
	base := errors.New("exit status 1")
	tests := []struct {
		stderr string
		want   error
	}{
		{"ERROR: Video unavailable", ErrVideoUnavailable},
		{"ERROR: Private video. Sign in", ErrVideoPrivate},
		{"ERROR: Sign in to confirm your age", ErrAgeRestricted},
		{"ERROR: Unsupported URL: https://x", ErrURLNotSupported},
		{"ERROR: Unable to download webpage: connection reset", ErrNetworkError},
		{"ERROR: something else", ErrExtractionFailed},
	}

	for _, tt := range tests {
		err := categorizeError("https://x", base, tt.stderr)
		assert.ErrorIs(t, err, tt.want, tt.stderr)
	}
}

func TestValidateURL(t *testing.T) {
	assert.NoError(t, validateURL("https://v.qq.com/x/1.html"))
	assert.ErrorIs(t, validateURL("ftp://v.qq.com/x"), ErrInvalidURL)
	assert.ErrorIs(t, validateURL("https://"), ErrInvalidURL)
	assert.ErrorIs(t, validateURL("%zz"), ErrInvalidURL)
}

func TestNew_MissingBinary(t *testing.T) {
	_, err := New(&Config{YtdlpPath: filepath.Join(t.TempDir(), "no-such-yt-dlp")})
	assert.ErrorIs(t, err, ErrYtdlpNotFound)
}

// fakeYtdlp writes an executable shell script standing in for yt-dlp
func fakeYtdlp(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported")
	}
	path := filepath.Join(t.TempDir(), "yt-dlp")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0755))
	return path
}

func TestExtract_FakeBinary(t *testing.T) {
	path := fakeYtdlp(t, `echo '{"title":"Fake","url":"https://cdn.example/fake.mp4","extractor_key":"Fake"}'`)

	svc, err := New(&Config{YtdlpPath: path, Timeout: 5 * time.Second})
	require.NoError(t, err)

	got, err := svc.Extract(context.Background(), "https://v.qq.com/x/1.html")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/fake.mp4", got.URL)
	assert.Equal(t, "Fake", got.Extractor)
}

func TestExtract_FakeBinaryFailure(t *testing.T) {
	path := fakeYtdlp(t, `echo "ERROR: Unsupported URL: $6" >&2; exit 1`)

	svc, err := New(&Config{YtdlpPath: path, Timeout: 5 * time.Second})
	require.NoError(t, err)

	_, err = svc.Extract(context.Background(), "https://v.qq.com/x/1.html")
	assert.ErrorIs(t, err, ErrURLNotSupported)
}
