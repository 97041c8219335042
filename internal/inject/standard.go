package inject

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/unknproject/loader/internal/domain"
)

// Standard loads a library through the target's own module loader.
// Common anti-cheat products detect this; see Select for the titles that
// need the manual-map helper instead.
type Standard struct {
	logger *slog.Logger
}

func NewStandard(logger *slog.Logger) *Standard {
	return &Standard{logger: logger}
}

// Inject loads libraryPath into target and waits for the remote load to return.
func (s *Standard) Inject(ctx context.Context, target domain.ProcessHandle, libraryPath string) error {
	if err := ctx.Err(); err != nil {
		return &domain.InjectError{Kind: domain.InjectLoadFailed, Process: target.Name, Err: err}
	}

	abs, err := filepath.Abs(libraryPath)
	if err != nil {
		return &domain.InjectError{Kind: domain.InjectLoadFailed, Process: target.Name, Err: fmt.Errorf("resolve path: %w", err)}
	}

	s.logger.Debug("loading library", "process", target.Name, "pid", target.PID, "path", abs)

	if err := loadRemote(target.PID, abs); err != nil {
		return &domain.InjectError{Kind: domain.InjectLoadFailed, Process: target.Name, Err: err}
	}

	s.logger.Info("injected", "process", target.Name, "pid", target.PID, "path", abs)
	return nil
}
