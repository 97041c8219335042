package process

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unknproject/loader/internal/domain"
)

func writeProc(t *testing.T, root, pid, cmdline, comm string) {
	t.Helper()
	dir := filepath.Join(root, pid)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cmdline"), []byte(cmdline), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "comm"), []byte(comm), 0o644))
}

func TestScanProc(t *testing.T) {
	root := t.TempDir()
	writeProc(t, root, "1", "/sbin/init\x00splash\x00", "systemd\n")
	writeProc(t, root, "42", `C:\Games\Bar\bar.exe`+"\x00-windowed\x00", "bar.exe\n")
	writeProc(t, root, "77", "", "kworker/0:1\n")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "self"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "uptime"), []byte("1 1"), 0o644))

	procs, err := scanProc(root)
	require.NoError(t, err)

	assert.ElementsMatch(t, []domain.ProcessHandle{
		{PID: 1, Name: "init"},
		{PID: 42, Name: "bar.exe"},
		{PID: 77, Name: "kworker/0:1"},
	}, procs)
}

func TestScanProc_MissingRoot(t *testing.T) {
	_, err := scanProc(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
