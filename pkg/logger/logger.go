package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Options controls where and how log lines are written.
type Options struct {
	Level   string
	Pretty  bool
	Service string
	Out     io.Writer
}

// New creates the server logger from LOG_LEVEL and ENV.
func New() zerolog.Logger {
	return NewWithOptions(Options{
		Level:   os.Getenv("LOG_LEVEL"),
		Pretty:  os.Getenv("ENV") == "development",
		Service: "journal-submission-api",
	})
}

// NewWithOptions creates a zerolog logger with structured output
func NewWithOptions(opts Options) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	if opts.Pretty {
		return zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}).
			Level(ParseLevel(opts.Level)).
			With().
			Timestamp().
			Caller().
			Str("service", opts.Service).
			Logger()
	}

	// JSON output for production
	return zerolog.New(out).
		Level(ParseLevel(opts.Level)).
		With().
		Timestamp().
		Str("service", opts.Service).
		Logger()
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}
