package infrastructure

import (
	"context"
	"log/slog"

	"citabot.app/internal/ports"
)

// SlogLoggerAdapter implements the Logger port using slog. The zero value logs
// through slog's default logger.
type SlogLoggerAdapter struct {
	logger *slog.Logger
}

// NewSlogLoggerAdapter wraps l, tagging every entry with component when set
func NewSlogLoggerAdapter(l *slog.Logger, component string) *SlogLoggerAdapter {
	if l == nil {
		l = slog.Default()
	}
	if component != "" {
		l = l.With("component", component)
	}
	return &SlogLoggerAdapter{logger: l}
}

func (l *SlogLoggerAdapter) Debug(msg string, fields ...ports.Field) {
	l.log(slog.LevelDebug, msg, fields)
}

func (l *SlogLoggerAdapter) Info(msg string, fields ...ports.Field) {
	l.log(slog.LevelInfo, msg, fields)
}

func (l *SlogLoggerAdapter) Warn(msg string, fields ...ports.Field) {
	l.log(slog.LevelWarn, msg, fields)
}

func (l *SlogLoggerAdapter) Error(msg string, fields ...ports.Field) {
	l.log(slog.LevelError, msg, fields)
}

func (l *SlogLoggerAdapter) log(level slog.Level, msg string, fields []ports.Field) {
	target := l.logger
	if target == nil {
		target = slog.Default()
	}
	if !target.Enabled(context.Background(), level) {
		return
	}

	attrs := make([]slog.Attr, 0, len(fields))
	for _, field := range fields {
		if err, ok := field.Value.(error); ok {
			attrs = append(attrs, slog.String(field.Key, err.Error()))
			continue
		}
		attrs = append(attrs, slog.Any(field.Key, field.Value))
	}
	target.LogAttrs(context.Background(), level, msg, attrs...)
}

// MultiLogger fans every entry out to several loggers
type MultiLogger struct {
	loggers []ports.Logger
}

func NewMultiLogger(loggers ...ports.Logger) *MultiLogger {
	return &MultiLogger{loggers: loggers}
}

func (m *MultiLogger) Debug(msg string, fields ...ports.Field) {
	for _, l := range m.loggers {
		l.Debug(msg, fields...)
	}
}

func (m *MultiLogger) Info(msg string, fields ...ports.Field) {
	for _, l := range m.loggers {
		l.Info(msg, fields...)
	}
}

func (m *MultiLogger) Warn(msg string, fields ...ports.Field) {
	for _, l := range m.loggers {
		l.Warn(msg, fields...)
	}
}

func (m *MultiLogger) Error(msg string, fields ...ports.Field) {
	for _, l := range m.loggers {
		l.Error(msg, fields...)
	}
}
