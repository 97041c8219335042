package inject

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/unknproject/loader/internal/domain"
)

// Helpers manages the cached manual-map helper executables, one per
// architecture slot. The slots are kept apart even when they name the same
// file.
type Helpers struct {
	dir     string
	files   map[domain.Arch]string
	fetcher domain.Fetcher
	logger  *slog.Logger

	mu sync.Mutex
}

// NewHelpers creates a helper store in dir. files maps each slot to its
// remote (and local) file name.
func NewHelpers(dir string, files map[domain.Arch]string, fetcher domain.Fetcher, logger *slog.Logger) *Helpers {
	copied := make(map[domain.Arch]string, len(files))
	for arch, name := range files {
		copied[arch] = name
	}
	return &Helpers{
		dir:     dir,
		files:   copied,
		fetcher: fetcher,
		logger:  logger,
	}
}

// Path returns where the helper for arch is cached, or "" for an unknown slot.
func (h *Helpers) Path(arch domain.Arch) string {
	name, ok := h.files[arch]
	if !ok {
		return ""
	}
	return filepath.Join(h.dir, name)
}

// Present reports whether the helper for arch is already on disk.
func (h *Helpers) Present(arch domain.Arch) bool {
	path := h.Path(arch)
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// Ensure downloads the helper for arch if it is missing and returns its path.
func (h *Helpers) Ensure(ctx context.Context, arch domain.Arch) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	name, ok := h.files[arch]
	if !ok {
		return "", &domain.InjectError{Kind: domain.InjectHelperUnavailable, Err: domain.ErrInvalidArch{Value: string(arch)}}
	}
	path := filepath.Join(h.dir, name)

	if err := h.fetcher.Fetch(ctx, name, path); err != nil {
		return "", &domain.InjectError{Kind: domain.InjectHelperUnavailable, Err: err}
	}

	h.logger.Debug("manual map injector ready", "arch", arch, "path", path)
	return path, nil
}

// Delete removes the cached helpers for the given slots. Missing files are
// not an error.
func (h *Helpers) Delete(arches ...domain.Arch) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, arch := range arches {
		path := h.Path(arch)
		if path == "" {
			return domain.ErrInvalidArch{Value: string(arch)}
		}
		if err := os.Remove(path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			h.logger.Error("failed to delete injector", "arch", arch, "path", path, "err", err)
			return fmt.Errorf("delete %s injector: %w", arch, err)
		}
		h.logger.Info("deleted injector", "arch", arch, "path", path)
	}
	return nil
}
