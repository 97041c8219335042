package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrBusy is returned when an injection is submitted while another is running.
	ErrBusy = errors.New("injection already in progress")

	// ErrUnsupportedHost is returned for payloads that cannot run from this build.
	ErrUnsupportedHost = errors.New("cs2 payloads are not supported on a 32-bit build")
)

type ErrPayloadNotFound struct {
	Name string
}

func (e ErrPayloadNotFound) Error() string {
	return fmt.Sprintf("payload %q not found in catalog", e.Name)
}

type ErrInvalidArch struct {
	Value string
}

func (e ErrInvalidArch) Error() string {
	return fmt.Sprintf("invalid architecture %q (expected x86, x64 or both)", e.Value)
}

type ErrNotLibrary struct {
	Path string
}

func (e ErrNotLibrary) Error() string {
	return fmt.Sprintf("%s: only DLL files are supported", e.Path)
}

// FetchErrorKind classifies download failures.
type FetchErrorKind int

const (
	FetchNetwork FetchErrorKind = iota
	FetchHTTPStatus
	FetchIO
)

func (k FetchErrorKind) String() string {
	switch k {
	case FetchNetwork:
		return "network"
	case FetchHTTPStatus:
		return "http_status"
	case FetchIO:
		return "io"
	default:
		return "unknown"
	}
}

// FetchError is returned by the fetch service. Code is set for FetchHTTPStatus.
type FetchError struct {
	Kind FetchErrorKind
	File string
	Code int
	Err  error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case FetchHTTPStatus:
		return fmt.Sprintf("download %s: endpoints returned HTTP %d", e.File, e.Code)
	case FetchIO:
		return fmt.Sprintf("download %s: write: %v", e.File, e.Err)
	default:
		return fmt.Sprintf("download %s: endpoints unreachable: %v", e.File, e.Err)
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// InjectErrorKind classifies injection failures.
type InjectErrorKind int

const (
	InjectProcessNotFound InjectErrorKind = iota
	InjectLoadFailed
	InjectSpawnFailed
	InjectHelperUnavailable
	InjectHelperFailed
)

func (k InjectErrorKind) String() string {
	switch k {
	case InjectProcessNotFound:
		return "process_not_found"
	case InjectLoadFailed:
		return "load_failed"
	case InjectSpawnFailed:
		return "spawn_failed"
	case InjectHelperUnavailable:
		return "helper_unavailable"
	case InjectHelperFailed:
		return "helper_failed"
	default:
		return "unknown"
	}
}

// InjectError is returned by the injection strategies. Detail carries the
// helper's formatted stderr for InjectHelperFailed.
type InjectError struct {
	Kind    InjectErrorKind
	Process string
	Detail  string
	Err     error
}

func (e *InjectError) Error() string {
	switch e.Kind {
	case InjectProcessNotFound:
		return fmt.Sprintf("Process '%s' not found.", e.Process)
	case InjectLoadFailed:
		return fmt.Sprintf("Failed to inject: %v", e.Err)
	case InjectSpawnFailed:
		return fmt.Sprintf("Failed to execute injector: %v", e.Err)
	case InjectHelperUnavailable:
		return fmt.Sprintf("Failed to download manual map injector: %v", e.Err)
	case InjectHelperFailed:
		return "Failed to inject: " + e.Detail
	default:
		return fmt.Sprintf("Failed to inject: %v", e.Err)
	}
}

func (e *InjectError) Unwrap() error {
	return e.Err
}

// IsInjectKind reports whether err is an InjectError of the given kind.
func IsInjectKind(err error, kind InjectErrorKind) bool {
	var ie *InjectError
	return errors.As(err, &ie) && ie.Kind == kind
}
