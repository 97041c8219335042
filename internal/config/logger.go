package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/unknproject/loader/internal/logbuf"
)

// ParseLevel maps a configured level name to a slog level. "trace" is
// accepted as debug.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace", "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}

// NewLogger creates a structured logger that writes JSON to <dir>/<name>.log
// and to every extra handler. The returned closer releases the log file.
func NewLogger(cfg *Config, name string, extra ...slog.Handler) (*slog.Logger, io.Closer, error) {
	if err := os.MkdirAll(cfg.Dir(), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}

	logPath := filepath.Join(cfg.Dir(), name+".log")
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file %s: %w", logPath, err)
	}

	level, err := ParseLevel(cfg.LogLevel)
	if err != nil {
		file.Close()
		return nil, nil, err
	}

	handler := slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level})
	if len(extra) == 0 {
		return slog.New(handler), file, nil
	}

	handlers := append([]slog.Handler{handler}, extra...)
	return slog.New(logbuf.Tee(handlers...)), file, nil
}
