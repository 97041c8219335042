package domain

// ProcessHandle identifies a running process found by a point-in-time scan.
// It must not be kept across injection sessions.
type ProcessHandle struct {
	PID  uint32
	Name string
}

// ExecutionOutcome is the captured result of a helper process run.
type ExecutionOutcome struct {
	ExitCode int
	Stdout   string
	Stderr   string
}
