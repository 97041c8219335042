package process

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/unknproject/loader/internal/domain"
)

// Locator scans the OS process table. Results are never cached: a process can
// exit or restart between two calls.
type Locator struct {
	list   func() ([]domain.ProcessHandle, error)
	logger *slog.Logger
}

// NewLocator creates a Locator over the current operating system.
func NewLocator(logger *slog.Logger) *Locator {
	return &Locator{list: snapshot, logger: logger}
}

// FindByName returns the first process whose executable name matches name,
// ignoring case.
func (l *Locator) FindByName(name string) (domain.ProcessHandle, bool, error) {
	procs, err := l.list()
	if err != nil {
		return domain.ProcessHandle{}, false, fmt.Errorf("list processes: %w", err)
	}

	for _, p := range procs {
		if strings.EqualFold(p.Name, name) {
			l.logger.Debug("process found", "name", name, "pid", p.PID)
			return p, true, nil
		}
	}

	l.logger.Debug("process not found", "name", name, "scanned", len(procs))
	return domain.ProcessHandle{}, false, nil
}

// Names returns the distinct executable names currently running.
func (l *Locator) Names() ([]string, error) {
	procs, err := l.list()
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}

	seen := make(map[string]struct{}, len(procs))
	var names []string
	for _, p := range procs {
		key := strings.ToLower(p.Name)
		if _, ok := seen[key]; ok || p.Name == "" {
			continue
		}
		seen[key] = struct{}{}
		names = append(names, p.Name)
	}
	return names, nil
}
