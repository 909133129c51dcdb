package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	apperrors "github.com/vparse/vparse/internal/errors"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log entry %q: %v", buf.String(), err)
	}
	return entry
}

func TestLogger_BasicLogging(t *testing.T) {
	var buf bytes.Buffer
	log := New(&Config{
		Output: &buf,
		Level:  LevelDebug,
	})

	log.Info(context.Background(), "test message", map[string]interface{}{
		"key": "value",
	})

	entry := decode(t, &buf)

	if entry["level"] != "info" {
		t.Errorf("expected level info, got %v", entry["level"])
	}
	if entry["message"] != "test message" {
		t.Errorf("expected message 'test message', got %v", entry["message"])
	}
	if entry["key"] != "value" {
		t.Errorf("expected field key=value, got %v", entry["key"])
	}
	if _, ok := entry["timestamp"]; !ok {
		t.Error("expected timestamp field")
	}
}

func TestLogger_RequestIDPropagation(t *testing.T) {
	var buf bytes.Buffer
	log := New(&Config{Output: &buf, Level: LevelDebug}).WithComponent("resolver")

	ctx := apperrors.WithRequestID(context.Background(), "test-request-id")
	log.Info(ctx, "test message")

	entry := decode(t, &buf)

	if entry["request_id"] != "test-request-id" {
		t.Errorf("expected request_id 'test-request-id', got %v", entry["request_id"])
	}
	if entry["component"] != "resolver" {
		t.Errorf("expected component 'resolver', got %v", entry["component"])
	}
}

func TestLogger_ErrorFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(&Config{Output: &buf, Level: LevelDebug})

	log.Error(context.Background(), "resolution failed", apperrors.AllCandidatesFailed())

	entry := decode(t, &buf)
	if entry["error_code"] != apperrors.CodeAllCandidatesFailed {
		t.Errorf("expected error_code, got %v", entry["error_code"])
	}
	if !strings.Contains(entry["error"].(string), "resolution failed") {
		t.Errorf("expected error text, got %v", entry["error"])
	}

	buf.Reset()
	log.Error(context.Background(), "plain", errors.New("boom"))
	entry = decode(t, &buf)
	if _, ok := entry["error_code"]; ok {
		t.Error("plain errors should not carry an error_code")
	}
}

func TestLogger_LogLevels(t *testing.T) {
	tests := []struct {
		minLevel     Level
		logLevel     string
		shouldOutput bool
	}{
		{LevelInfo, "debug", false},
		{LevelInfo, "info", true},
		{LevelWarn, "info", false},
		{LevelWarn, "warn", true},
		{LevelError, "warn", false},
		{LevelError, "error", true},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		log := New(&Config{
			Output: &buf,
			Level:  tt.minLevel,
		})

		ctx := context.Background()
		switch tt.logLevel {
		case "debug":
			log.Debug(ctx, "test")
		case "info":
			log.Info(ctx, "test")
		case "warn":
			log.Warn(ctx, "test")
		case "error":
			log.Error(ctx, "test", nil)
		}

		hasOutput := buf.Len() > 0
		if hasOutput != tt.shouldOutput {
			t.Errorf("minLevel=%s, logLevel=%s: expected output=%v, got=%v",
				tt.minLevel, tt.logLevel, tt.shouldOutput, hasOutput)
		}
	}
}

func TestLogger_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(&Config{Output: &buf, Level: LevelInfo, Format: FormatText})

	log.Info(context.Background(), "hello")

	if !strings.Contains(buf.String(), "msg=hello") {
		t.Errorf("expected text formatted entry, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"info", LevelInfo},
		{"INFO", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"ERROR", LevelError},
		{"unknown", LevelInfo},
		{"", LevelInfo},
	}

	for _, tt := range tests {
		result := ParseLevel(tt.input)
		if result != tt.expected {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, result, tt.expected)
		}
	}
}
