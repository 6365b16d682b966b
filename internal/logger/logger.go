package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

const serviceName = "notes-service"

// Logger is the process-wide logger. Init replaces it; until then it is a no-op.
var Logger zerolog.Logger

func Init() {
	InitWithWriter(os.Stdout)
}

// InitWithWriter reads LOG_LEVEL (default info) and LOG_FORMAT
// ("json" or "console", default console).
func InitWithWriter(w io.Writer) {
	level := parseLevel(os.Getenv("LOG_LEVEL"))

	out := w
	if strings.ToLower(strings.TrimSpace(os.Getenv("LOG_FORMAT"))) != "json" {
		out = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
		}
	}

	Logger = zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("service", serviceName).
		Logger()

	// set global
	zlog.Logger = Logger
}

// Component returns a child logger tagged with the component name.
func Component(name string) zerolog.Logger {
	return Logger.With().Str("component", name).Logger()
}

func parseLevel(s string) zerolog.Level {
	s = strings.TrimSpace(s)
	if s == "" {
		return zerolog.InfoLevel
	}
	level, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}
