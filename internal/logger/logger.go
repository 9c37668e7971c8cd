package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const serviceName = "alert-engine"

var logger zerolog.Logger

// InitLogger configures the process-wide logger. Format "console" writes
// human-readable lines for local runs; anything else emits JSON. Every line
// carries the service name so aggregated logs stay attributable.
func InitLogger(level, format string) {
	zerolog.SetGlobalLevel(parseLogLevel(level))
	zerolog.TimeFieldFormat = time.RFC3339

	var output io.Writer = os.Stdout
	if format == "console" {
		output = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05",
		}
	}

	logger = zerolog.New(output).With().
		Timestamp().
		Caller().
		Str("service", serviceName).
		Logger()

	log.Logger = logger
}

// GetLogger returns the configured logger instance.
func GetLogger() *zerolog.Logger {
	return &logger
}

func parseLogLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Info starts an info-level event.
func Info() *zerolog.Event {
	return logger.Info()
}

// Debug starts a debug-level event.
func Debug() *zerolog.Event {
	return logger.Debug()
}

// Warn starts a warn-level event.
func Warn() *zerolog.Event {
	return logger.Warn()
}

// Error starts an error-level event.
func Error() *zerolog.Event {
	return logger.Error()
}

// Fatal starts a fatal-level event; the event's Msg call exits the process.
func Fatal() *zerolog.Event {
	return logger.Fatal()
}

// WithContext derives a logger carrying one extra field, for components that
// log many lines about the same subject (a device, a rule, a channel).
func WithContext(key string, value interface{}) zerolog.Logger {
	return logger.With().Interface(key, value).Logger()
}
