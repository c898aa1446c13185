package infra

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger builds the service logger. Development gets a console writer and
// debug level; LOG_LEVEL, when set, overrides the environment default.
func NewLogger(cfg *Config) zerolog.Logger {
	var level string
	if cfg != nil {
		level = cfg.LogLevel
	}
	return newLogger(os.Stdout, cfg.IsDevelopment(), level)
}

func newLogger(out io.Writer, development bool, level string) zerolog.Logger {
	lvl := zerolog.InfoLevel
	if development {
		lvl = zerolog.DebugLevel
	}
	if parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level))); err == nil && level != "" {
		lvl = parsed
	}

	if development {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).
		Level(lvl).
		With().
		Timestamp().
		Str("service", "floorplan-api").
		Logger()
}

// Logger aliases the zerolog.Logger so callers outside the infra package can
// depend on the logging contract without importing the third-party module
// directly.
type Logger = zerolog.Logger
