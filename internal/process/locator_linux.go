package process

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/unknproject/loader/internal/domain"
)

const procRoot = "/proc"

func snapshot() ([]domain.ProcessHandle, error) {
	return scanProc(procRoot)
}

// scanProc lists processes under a procfs mount. Under Wine the first
// argument holds the Windows executable path, which is what targets are
// matched against, so argv[0] wins over comm.
func scanProc(root string) ([]domain.ProcessHandle, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}

	var procs []domain.ProcessHandle
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		pid, err := strconv.ParseUint(e.Name(), 10, 32)
		if err != nil {
			continue
		}

		name := argv0(filepath.Join(root, e.Name(), "cmdline"))
		if name == "" {
			comm, err := os.ReadFile(filepath.Join(root, e.Name(), "comm"))
			if err != nil {
				continue
			}
			name = strings.TrimSpace(string(comm))
		}
		if name == "" {
			continue
		}

		procs = append(procs, domain.ProcessHandle{PID: uint32(pid), Name: name})
	}
	return procs, nil
}

func argv0(path string) string {
	data, err := os.ReadFile(path)
	if err != nil || len(data) == 0 {
		return ""
	}
	if i := bytes.IndexByte(data, 0); i >= 0 {
		data = data[:i]
	}
	arg := strings.ReplaceAll(string(data), `\`, "/")
	return filepath.Base(arg)
}
