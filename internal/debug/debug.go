// Package debug provides the network log level and structured logger setup.
package debug

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Level controls how much of each HTTP exchange is traced.
// Levels are ordered: LevelOff < LevelInfo < LevelDebug.
type Level int

const (
	LevelOff Level = iota
	LevelInfo
	LevelDebug
)

// ParseLevel parses a level name. Empty input means LevelOff.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "off", "none", "0":
		return LevelOff, nil
	case "info", "1":
		return LevelInfo, nil
	case "debug", "2":
		return LevelDebug, nil
	default:
		return LevelOff, fmt.Errorf("invalid log level %q (use off, info, or debug)", s)
	}
}

func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "info"
	case LevelDebug:
		return "debug"
	default:
		return "off"
	}
}

// Enabled reports whether messages at min are emitted at level l.
func (l Level) Enabled(min Level) bool {
	return l != LevelOff && l >= min
}

// SlogLevel maps the level to the slog threshold used by SetupLogger.
func (l Level) SlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	default:
		return slog.LevelWarn
	}
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler so levels can be read
// from environment variables and config files.
func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// SetupLogger returns a text logger writing to w at the given level.
// With LevelOff only warnings and errors pass.
func SetupLogger(w io.Writer, level Level) *slog.Logger {
	if w == nil {
		w = io.Discard
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level.SlogLevel(),
	})
	return slog.New(handler)
}
