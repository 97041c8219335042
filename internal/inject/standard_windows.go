package inject

import (
	"errors"
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	kernel32               = windows.NewLazySystemDLL("kernel32.dll")
	procVirtualAllocEx     = kernel32.NewProc("VirtualAllocEx")
	procVirtualFreeEx      = kernel32.NewProc("VirtualFreeEx")
	procCreateRemoteThread = kernel32.NewProc("CreateRemoteThread")
	procGetExitCodeThread  = kernel32.NewProc("GetExitCodeThread")
	procLoadLibraryW       = kernel32.NewProc("LoadLibraryW")
)

const processAccess = windows.PROCESS_CREATE_THREAD |
	windows.PROCESS_QUERY_INFORMATION |
	windows.PROCESS_VM_OPERATION |
	windows.PROCESS_VM_WRITE |
	windows.PROCESS_VM_READ

// loadRemote writes the UTF-16 path into the target and starts a thread at
// LoadLibraryW. kernel32 is mapped at the same base in every process of a
// boot session, so the local address of LoadLibraryW is valid remotely.
func loadRemote(pid uint32, path string) error {
	pathW, err := windows.UTF16FromString(path)
	if err != nil {
		return fmt.Errorf("encode path: %w", err)
	}
	size := uintptr(len(pathW)) * unsafe.Sizeof(pathW[0])

	if err := procLoadLibraryW.Find(); err != nil {
		return fmt.Errorf("resolve LoadLibraryW: %w", err)
	}

	proc, err := windows.OpenProcess(processAccess, false, pid)
	if err != nil {
		return fmt.Errorf("open process %d: %w", pid, err)
	}
	defer windows.CloseHandle(proc)

	remote, err := virtualAllocEx(proc, size)
	if err != nil {
		return err
	}
	defer virtualFreeEx(proc, remote)

	var written uintptr
	if err := windows.WriteProcessMemory(proc, remote, (*byte)(unsafe.Pointer(&pathW[0])), size, &written); err != nil {
		return fmt.Errorf("write library path: %w", err)
	}
	if written != size {
		return errors.New("write library path: short write")
	}

	thread, err := createRemoteThread(proc, procLoadLibraryW.Addr(), remote)
	if err != nil {
		return err
	}
	defer windows.CloseHandle(thread)

	if _, err := windows.WaitForSingleObject(thread, windows.INFINITE); err != nil {
		return fmt.Errorf("wait for remote thread: %w", err)
	}

	code, err := exitCodeThread(thread)
	if err != nil {
		return err
	}
	// The thread exit code is the low half of the returned module handle.
	if code == 0 {
		return errors.New("LoadLibraryW returned NULL in the target process")
	}
	return nil
}

func virtualAllocEx(proc windows.Handle, size uintptr) (uintptr, error) {
	addr, _, lastErr := procVirtualAllocEx.Call(
		uintptr(proc),
		0,
		size,
		windows.MEM_COMMIT|windows.MEM_RESERVE,
		windows.PAGE_READWRITE,
	)
	if addr == 0 {
		return 0, os.NewSyscallError("VirtualAllocEx", lastErr)
	}
	return addr, nil
}

func virtualFreeEx(proc windows.Handle, addr uintptr) {
	_, _, _ = procVirtualFreeEx.Call(uintptr(proc), addr, 0, windows.MEM_RELEASE)
}

func createRemoteThread(proc windows.Handle, start, param uintptr) (windows.Handle, error) {
	var threadID uint32
	h, _, lastErr := procCreateRemoteThread.Call(
		uintptr(proc),
		0,
		0,
		start,
		param,
		0,
		uintptr(unsafe.Pointer(&threadID)),
	)
	if h == 0 {
		return 0, os.NewSyscallError("CreateRemoteThread", lastErr)
	}
	return windows.Handle(h), nil
}

func exitCodeThread(thread windows.Handle) (uint32, error) {
	var code uint32
	ok, _, lastErr := procGetExitCodeThread.Call(uintptr(thread), uintptr(unsafe.Pointer(&code)))
	if ok == 0 {
		return 0, os.NewSyscallError("GetExitCodeThread", lastErr)
	}
	return code, nil
}
