package domain

import "context"

// Fetcher resolves a remote file name to a file on disk.
type Fetcher interface {
	Fetch(ctx context.Context, remoteName, dest string) error
}

// ProcessLocator finds a running process by executable name.
type ProcessLocator interface {
	FindByName(name string) (ProcessHandle, bool, error)
}

// LibraryInjector loads a library into a located process.
type LibraryInjector interface {
	Inject(ctx context.Context, target ProcessHandle, libraryPath string) error
}

// HelperRunner executes the manual-map helper and waits for it to exit.
type HelperRunner interface {
	Run(ctx context.Context, helperPath string, args []string) (ExecutionOutcome, error)
}

// HelperStore owns the on-disk manual-map helper binaries.
type HelperStore interface {
	Path(arch Arch) string
	Present(arch Arch) bool
	Ensure(ctx context.Context, arch Arch) (string, error)
}

// Observer is notified whenever the session status changes.
type Observer interface {
	Repaint()
}

// Announcer publishes presence updates to an external service. An empty
// argument leaves that field unchanged.
type Announcer interface {
	Update(state, details string)
}

// InjectionRecorder counts successful injections per payload.
type InjectionRecorder interface {
	RecordInjection(name string) error
}
