package log

import (
	"io"
	"os"
	"strings"
)

// Format is the log record encoding.
type Format int

const (
	// FormatJSON writes one JSON object per record.
	FormatJSON Format = iota
	// FormatText writes logfmt-style key=value records.
	FormatText
)

// String returns the string representation of the format
func (f Format) String() string {
	if f == FormatText {
		return "text"
	}
	return "json"
}

// ParseFormat parses a string into a Format. Unknown values fall back to JSON.
func ParseFormat(s string) Format {
	switch strings.ToLower(s) {
	case "text", "console":
		return FormatText
	default:
		return FormatJSON
	}
}

// Config holds configuration for the logger
type Config struct {
	Level  Level
	Format Format

	// Writer receives the records. Nil means stderr, since command output
	// owns stdout.
	Writer io.Writer

	// AddSource includes source file and line number in logs
	AddSource bool

	// ServiceName is attached to every record
	ServiceName string
}

func (c Config) writer() io.Writer {
	if c.Writer == nil {
		return os.Stderr
	}
	return c.Writer
}

// DefaultConfig logs warnings and above as text to stderr, which keeps
// interactive commands quiet.
func DefaultConfig() Config {
	return Config{
		Level:       LevelWarn,
		Format:      FormatText,
		ServiceName: "chiwen",
	}
}

// FromSettings builds a Config from the log.level and log.format
// configuration keys. Debug level also records source locations.
func FromSettings(level, format string, w io.Writer) Config {
	cfg := DefaultConfig()
	cfg.Level = ParseLevel(level)
	cfg.Format = ParseFormat(format)
	cfg.AddSource = cfg.Level == LevelDebug
	cfg.Writer = w
	return cfg
}
