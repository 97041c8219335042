package process

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/unknproject/loader/internal/domain"
	"golang.org/x/sys/windows"
)

func snapshot() ([]domain.ProcessHandle, error) {
	snap, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPPROCESS, 0)
	if err != nil {
		return nil, fmt.Errorf("create toolhelp snapshot: %w", err)
	}
	defer windows.CloseHandle(snap)

	var entry windows.ProcessEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))

	if err := windows.Process32First(snap, &entry); err != nil {
		return nil, fmt.Errorf("first process entry: %w", err)
	}

	var procs []domain.ProcessHandle
	for {
		procs = append(procs, domain.ProcessHandle{
			PID:  entry.ProcessID,
			Name: windows.UTF16ToString(entry.ExeFile[:]),
		})

		if err := windows.Process32Next(snap, &entry); err != nil {
			if errors.Is(err, windows.ERROR_NO_MORE_FILES) {
				break
			}
			return nil, fmt.Errorf("next process entry: %w", err)
		}
	}
	return procs, nil
}
