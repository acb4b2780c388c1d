package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

type Mode uint8

const (
	ModeDev Mode = iota
	ModeProd
	ModeSilence
)

func ParseMode(s string) Mode {
	switch strings.ToLower(s) {
	case "prod", "production":
		return ModeProd
	case "silence", "silent", "off":
		return ModeSilence
	default:
		return ModeDev
	}
}

// New builds the process logger: text to stderr for development, JSON to
// stdout in production, nothing at all when silenced.
func New(mode Mode) *slog.Logger {
	return slog.New(buildHandler(mode))
}

func buildHandler(mode Mode) slog.Handler {
	switch mode {
	case ModeProd:
		return slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	case ModeSilence:
		return slog.NewTextHandler(io.Discard, nil)
	default:
		return slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
}
