package logger

import (
	"context"
	"io"
	"os"

	"photoshoot-studio/internal/shared/contextkeys"

	"github.com/sirupsen/logrus"
	"go.uber.org/zap/zapcore"
)

const (
	logFormatJSON = "json"

	envProduction = "production"
	envProd       = "prod"

	timestampFormat = "2006-01-02T15:04:05.000Z07:00"
	textTimestamp   = "2006-01-02 15:04:05"
)

// Logger defines the interface for structured logging operations.
//
// The unformatted methods accept zap fields (zap.String, zap.Error, ...) after
// the message; they are lifted into structured fields instead of being printed.
type Logger interface {
	Debug(args ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})
	Fatal(args ...interface{})
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
	WithFields(fields map[string]interface{}) Logger
	WithContext(ctx context.Context) Logger
	WithComponent(component string) Logger
}

// LogrusLogger implements the Logger interface using logrus
type LogrusLogger struct {
	entry *logrus.Entry
}

// NewLogger creates a logger configured from LOG_LEVEL, LOG_FORMAT and ENVIRONMENT.
func NewLogger() Logger {
	return NewLoggerWithConfig(os.Getenv("LOG_LEVEL"), selectFormat(os.Getenv("LOG_FORMAT"), os.Getenv("ENVIRONMENT")))
}

// NewLoggerWithConfig creates a logger with an explicit level and format.
func NewLoggerWithConfig(level string, format string) Logger {
	return NewLoggerWithOutput(level, format, os.Stdout)
}

// NewLoggerWithOutput is NewLoggerWithConfig writing to w.
func NewLoggerWithOutput(level, format string, w io.Writer) Logger {
	logger := logrus.New()

	if parsedLevel, err := logrus.ParseLevel(level); err == nil {
		logger.SetLevel(parsedLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	if format == logFormatJSON {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: timestampFormat,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: textTimestamp,
		})
	}
	logger.SetOutput(w)

	return &LogrusLogger{entry: logrus.NewEntry(logger)}
}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() Logger {
	return NewLoggerWithOutput("panic", "text", io.Discard)
}

func selectFormat(format, env string) string {
	if format == logFormatJSON || env == envProduction || env == envProd {
		return logFormatJSON
	}
	return "text"
}

// withZapFields moves zap fields out of args and onto the entry.
func (l *LogrusLogger) withZapFields(args []interface{}) (*logrus.Entry, []interface{}) {
	var enc *zapcore.MapObjectEncoder
	rest := args[:0:0]
	for _, arg := range args {
		f, ok := arg.(zapcore.Field)
		if !ok {
			rest = append(rest, arg)
			continue
		}
		if enc == nil {
			enc = zapcore.NewMapObjectEncoder()
		}
		f.AddTo(enc)
	}
	if enc == nil {
		return l.entry, rest
	}
	return l.entry.WithFields(logrus.Fields(enc.Fields)), rest
}

// Debug logs a debug message
func (l *LogrusLogger) Debug(args ...interface{}) {
	e, rest := l.withZapFields(args)
	e.Debug(rest...)
}

// Info logs an info message
func (l *LogrusLogger) Info(args ...interface{}) {
	e, rest := l.withZapFields(args)
	e.Info(rest...)
}

// Warn logs a warning message
func (l *LogrusLogger) Warn(args ...interface{}) {
	e, rest := l.withZapFields(args)
	e.Warn(rest...)
}

// Error logs an error message
func (l *LogrusLogger) Error(args ...interface{}) {
	e, rest := l.withZapFields(args)
	e.Error(rest...)
}

// Fatal logs a fatal message and exits
func (l *LogrusLogger) Fatal(args ...interface{}) {
	e, rest := l.withZapFields(args)
	e.Fatal(rest...)
}

func (l *LogrusLogger) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l *LogrusLogger) Infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *LogrusLogger) Warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l *LogrusLogger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }
func (l *LogrusLogger) Fatalf(format string, args ...interface{}) { l.entry.Fatalf(format, args...) }

// WithFields adds structured fields to the logger
func (l *LogrusLogger) WithFields(fields map[string]interface{}) Logger {
	return &LogrusLogger{entry: l.entry.WithFields(logrus.Fields(fields))}
}

// WithContext copies request-scoped values from ctx into fields.
func (l *LogrusLogger) WithContext(ctx context.Context) Logger {
	fields := logrus.Fields{}

	addContextField(ctx, contextkeys.UserIDKey, "user_id", fields)
	addContextField(ctx, contextkeys.SessionIDKey, "session_id", fields)
	addContextField(ctx, contextkeys.RequestIDKey, "request_id", fields)
	addContextField(ctx, contextkeys.RouteKey, "route", fields)
	addContextField(ctx, contextkeys.ComponentKey, "component", fields)
	addContextField(ctx, contextkeys.OperationKey, "operation", fields)

	return &LogrusLogger{entry: l.entry.WithFields(fields)}
}

func addContextField(ctx context.Context, key interface{}, fieldName string, fields logrus.Fields) {
	if val := ctx.Value(key); val != nil {
		if strVal, ok := val.(string); ok && strVal != "" {
			fields[fieldName] = strVal
		}
	}
}

// WithComponent adds component name to the logger
func (l *LogrusLogger) WithComponent(component string) Logger {
	return &LogrusLogger{entry: l.entry.WithField("component", component)}
}

var defaultLogger = NewLogger()

// Default returns the process-wide logger.
func Default() Logger { return defaultLogger }

func Info(args ...interface{})                  { defaultLogger.Info(args...) }
func Warn(args ...interface{})                  { defaultLogger.Warn(args...) }
func Error(args ...interface{})                 { defaultLogger.Error(args...) }
func Infof(format string, args ...interface{})  { defaultLogger.Infof(format, args...) }
func Errorf(format string, args ...interface{}) { defaultLogger.Errorf(format, args...) }

// WithComponent creates a logger with component information
func WithComponent(component string) Logger {
	return defaultLogger.WithComponent(component)
}
