package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger *zap.Logger

// LogLevelEnvVar is the environment variable that controls logging verbosity.
// When unset or empty, logging is silent (no zap output).
// Valid values: "debug", "info", "warn", "error"
const LogLevelEnvVar = "CEPH_ENV_LOG_LEVEL"

// LogFileEnvVar redirects log output to a file. The wizard owns the terminal,
// so anything other than silent mode should normally go to a file.
const LogFileEnvVar = "CEPH_ENV_LOG_FILE"

// Initialize creates a new logger with the specified level and output path.
// If level is empty, it checks CEPH_ENV_LOG_LEVEL; if path is empty, it checks
// CEPH_ENV_LOG_FILE and falls back to stderr.
// If no level is set anywhere, logging is disabled (silent mode).
func Initialize(level, path string) error {
	if level == "" {
		level = os.Getenv(LogLevelEnvVar)
	}
	if path == "" {
		path = os.Getenv(LogFileEnvVar)
	}

	if level == "" {
		logger = zap.NewNop()
		return nil
	}

	zapLevel, err := ParseLevel(level)
	if err != nil {
		// Unknown level - use info as default when explicitly set to something
		zapLevel = zapcore.InfoLevel
	}

	output := "stderr"
	if path != "" {
		output = path
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{output},
		ErrorOutputPaths: []string{"stderr"},
	}

	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	if path == "" {
		// Colours only make sense on a terminal
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	logger, err = config.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	return nil
}

// ParseLevel maps a level name to a zap level.
func ParseLevel(level string) (zapcore.Level, error) {
	switch level {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info":
		return zapcore.InfoLevel, nil
	case "warn":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
}

// SetLogger replaces the global logger. Tests use it with zaptest/observer.
func SetLogger(l *zap.Logger) {
	logger = l
}

// GetLogger returns the global logger instance
func GetLogger() *zap.Logger {
	if logger == nil {
		// Fallback to silent logger if not initialized
		logger = zap.NewNop()
	}
	return logger
}

// Named returns a child logger for a component.
func Named(component string) *zap.Logger {
	return GetLogger().Named(component)
}

// Info logs an info message
func Info(msg string, fields ...zap.Field) {
	GetLogger().Info(msg, fields...)
}

// Debug logs a debug message
func Debug(msg string, fields ...zap.Field) {
	GetLogger().Debug(msg, fields...)
}

// Warn logs a warning message
func Warn(msg string, fields ...zap.Field) {
	GetLogger().Warn(msg, fields...)
}

// Error logs an error message
func Error(msg string, fields ...zap.Field) {
	GetLogger().Error(msg, fields...)
}

// LogFieldChange logs a single field update on the environment step.
// Credential values are never logged.
func LogFieldChange(l *zap.Logger, field, value string) {
	if field == "password" || field == "username" {
		value = mask(value)
	}
	l.Debug("Field changed",
		zap.String("field", field),
		zap.String("value", value),
	)
}

// LogAdvance logs the outcome of an advance attempt.
func LogAdvance(l *zap.Logger, source, version, outcome string) {
	l.Info("Advance attempt",
		zap.String("source", source),
		zap.String("target_version", version),
		zap.String("outcome", outcome),
	)
}

// LogCollaboratorFailure logs the underlying cause of a failed external read.
// The user only ever sees the generic status message.
func LogCollaboratorFailure(l *zap.Logger, op, path string, err error) {
	l.Error("External read failed",
		zap.String("operation", op),
		zap.String("path", path),
		zap.Error(err),
	)
}

// LogSession logs a websocket session event
func LogSession(remoteAddr string, event string) {
	Info("Session event",
		zap.String("remote_addr", remoteAddr),
		zap.String("event", event),
	)
}

// LogHTTPRequest logs an outgoing or incoming HTTP request
func LogHTTPRequest(method string, url string, statusCode int) {
	Debug("HTTP request",
		zap.String("method", method),
		zap.String("url", url),
		zap.Int("status_code", statusCode),
	)
}

func mask(value string) string {
	if value == "" {
		return ""
	}
	return "********"
}

// Sync flushes any buffered log entries
func Sync() {
	if logger != nil {
		_ = logger.Sync()
	}
}
