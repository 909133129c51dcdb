package logger

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	apperrors "github.com/vparse/vparse/internal/errors"
)

// Level represents the log level
type Level = logrus.Level

const (
	LevelDebug = logrus.DebugLevel
	LevelInfo  = logrus.InfoLevel
	LevelWarn  = logrus.WarnLevel
	LevelError = logrus.ErrorLevel
)

// Format selects how entries are rendered
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Config configures a Logger
type Config struct {
	Output    io.Writer
	Level     Level
	Format    Format
	Component string
}

// Logger provides structured logging with request context
type Logger struct {
	base      *logrus.Logger
	component string
}

var defaultLogger = New(&Config{Output: os.Stdout, Level: LevelInfo, Format: FormatJSON})

// New creates a new logger
func New(cfg *Config) *Logger {
	if cfg == nil {
		cfg = &Config{}
	}
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	base := logrus.New()
	base.SetOutput(out)
	base.SetLevel(cfg.Level)
	if cfg.Format == FormatText {
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		base.SetFormatter(&logrus.JSONFormatter{
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime: "timestamp",
				logrus.FieldKeyMsg:  "message",
			},
		})
	}

	return &Logger{base: base, component: cfg.Component}
}

// ParseLevel converts a level name to a Level, defaulting to info
func ParseLevel(s string) Level {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(s))
	if err != nil {
		return LevelInfo
	}
	return lvl
}

// SetDefault sets the default logger
func SetDefault(l *Logger) {
	defaultLogger = l
}

// Default returns the default logger
func Default() *Logger {
	return defaultLogger
}

// WithComponent creates a new logger with the specified component name
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{base: l.base, component: component}
}

func (l *Logger) entry(ctx context.Context, fields map[string]interface{}) *logrus.Entry {
	e := logrus.NewEntry(l.base)
	if len(fields) > 0 {
		e = e.WithFields(logrus.Fields(fields))
	}
	if l.component != "" {
		e = e.WithField("component", l.component)
	}
	if requestID := apperrors.GetRequestID(ctx); requestID != "" {
		e = e.WithField("request_id", requestID)
	}
	return e
}

func firstFields(fields []map[string]interface{}) map[string]interface{} {
	if len(fields) > 0 {
		return fields[0]
	}
	return nil
}

// Debug logs a debug message
func (l *Logger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {
	l.entry(ctx, firstFields(fields)).Debug(msg)
}

// Info logs an info message
func (l *Logger) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {
	l.entry(ctx, firstFields(fields)).Info(msg)
}

// Warn logs a warning message
func (l *Logger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	l.entry(ctx, firstFields(fields)).Warn(msg)
}

// Error logs an error message along with the error code when err is an AppError
func (l *Logger) Error(ctx context.Context, msg string, err error, fields ...map[string]interface{}) {
	e := l.entry(ctx, firstFields(fields))
	if err != nil {
		e = e.WithError(err)
		if appErr, ok := err.(*apperrors.AppError); ok {
			e = e.WithFields(logrus.Fields{
				"error_code":     appErr.Code,
				"error_category": string(appErr.Category),
			})
		}
	}
	e.Error(msg)
}

// Package-level convenience functions

func Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {
	defaultLogger.Debug(ctx, msg, fields...)
}

func Info(ctx context.Context, msg string, fields ...map[string]interface{}) {
	defaultLogger.Info(ctx, msg, fields...)
}

func Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	defaultLogger.Warn(ctx, msg, fields...)
}

func Error(ctx context.Context, msg string, err error, fields ...map[string]interface{}) {
	defaultLogger.Error(ctx, msg, err, fields...)
}
