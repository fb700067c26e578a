package logger

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Level is a logging level name as it appears in configuration.
type Level string

const (
	LevelDebug    Level = "DEBUG"
	LevelInfo     Level = "INFO"
	LevelWarning  Level = "WARNING"
	LevelCritical Level = "CRITICAL"
)

const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// ToZerolog maps a configured level name to a zerolog level. Unknown names
// fall back to info.
func ToZerolog(level Level) zerolog.Level {
	switch strings.ToUpper(strings.TrimSpace(string(level))) {
	case string(LevelDebug):
		return zerolog.DebugLevel
	case string(LevelInfo):
		return zerolog.InfoLevel
	case string(LevelWarning), "WARN":
		return zerolog.WarnLevel
	case string(LevelCritical), "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// New returns a timestamped logger writing to w. The console format is meant
// for terminals; anything else writes one JSON object per line.
func New(level Level, format string, w io.Writer) zerolog.Logger {
	out := w
	if strings.EqualFold(strings.TrimSpace(format), FormatConsole) {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(ToZerolog(level)).With().Timestamp().Logger()
}
