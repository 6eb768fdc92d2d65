// Package logging configures structured logging and content redaction for
// the relay.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/xiaot623/gogo/relay/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Setup builds the root logger. Output always goes to stdout; when
// LOG_TO_FILE is set it is duplicated into a size-rotated file.
func Setup(cfg *config.Config) *slog.Logger {
	var out io.Writer = os.Stdout
	if cfg.LogToFile {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.LogFilePath,
			MaxSize:    cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogBackupCount,
		})
	}
	handler := slog.NewTextHandler(out, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)})
	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
