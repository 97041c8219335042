package inject

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"

	"github.com/unknproject/loader/internal/domain"
)

// ManualMapper runs the external manual-map helper. The helper receives an
// arbitrary argument list; callers decide whether the target process is
// passed explicitly.
type ManualMapper struct {
	logger *slog.Logger
}

func NewManualMapper(logger *slog.Logger) *ManualMapper {
	return &ManualMapper{logger: logger}
}

// Run starts helperPath with args and waits for it to exit. A non-zero exit
// is reported through ExecutionOutcome, not as an error; only a failure to
// start the helper is an error.
func (m *ManualMapper) Run(ctx context.Context, helperPath string, args []string) (domain.ExecutionOutcome, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, helperPath, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.SysProcAttr = sysProcAttr()

	if err := cmd.Start(); err != nil {
		return domain.ExecutionOutcome{}, &domain.InjectError{Kind: domain.InjectSpawnFailed, Err: err}
	}

	m.logger.Debug("manual map injector started", "pid", cmd.Process.Pid, "args", args)

	err := cmd.Wait()
	outcome := domain.ExecutionOutcome{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		outcome.ExitCode = 0
	case errors.As(err, &exitErr):
		outcome.ExitCode = exitErr.ExitCode()
	default:
		return outcome, &domain.InjectError{Kind: domain.InjectSpawnFailed, Err: err}
	}

	m.logger.Debug("manual map injector exited", "code", outcome.ExitCode)
	return outcome, nil
}

// ManualMap runs the helper at helperPath with args and classifies the
// result. format is applied to stderr when the helper exits non-zero; it only
// changes the display text, never the error kind.
func ManualMap(ctx context.Context, runner domain.HelperRunner, helperPath string, args []string, format Formatter, logger *slog.Logger) error {
	outcome, err := runner.Run(ctx, helperPath, args)
	if err != nil {
		return err
	}

	if outcome.ExitCode == 0 {
		logger.Info("manual map injector output", "stdout", outcome.Stdout)
		return nil
	}

	if format == nil {
		format = CollapseNewlines
	}
	detail := format(outcome.Stderr)
	logger.Error("manual map injector failed", "code", outcome.ExitCode, "stderr", detail)
	return &domain.InjectError{Kind: domain.InjectHelperFailed, Detail: detail}
}
