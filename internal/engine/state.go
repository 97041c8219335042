package engine

import (
	"fmt"
	"time"
)

// State is a step of the injection state machine.
type State int

const (
	StateIdle State = iota
	StateDownloading
	StateFetchingHelper
	StateInjecting
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDownloading:
		return "downloading"
	case StateFetchingHelper:
		return "fetching_helper"
	case StateInjecting:
		return "injecting"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further transitions follow s.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ResultKind tags a terminal Result.
type ResultKind int

const (
	ResultSuccess ResultKind = iota
	ResultFailure
)

func (k ResultKind) String() string {
	if k == ResultSuccess {
		return "success"
	}
	return "failure"
}

func (k ResultKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// SuccessPrefix starts the rendered form of every successful Result.
const SuccessPrefix = "SUCCESS: "

// Result is the one-shot terminal notification of a session.
type Result struct {
	Kind      ResultKind `json:"kind"`
	SessionID string     `json:"session_id"`
	Name      string     `json:"name"`
	Message   string     `json:"message"`
	At        time.Time  `json:"at"`
}

// Success reports whether the session loaded its payload.
func (r Result) Success() bool {
	return r.Kind == ResultSuccess
}

// String renders the banner text: "SUCCESS: <name>" on success, the failure
// message otherwise.
func (r Result) String() string {
	if r.Kind == ResultSuccess {
		return SuccessPrefix + r.Name
	}
	return r.Message
}

// Snapshot is a consistent read of the current session.
type Snapshot struct {
	SessionID  string    `json:"session_id,omitempty"`
	Name       string    `json:"name,omitempty"`
	Strategy   string    `json:"strategy,omitempty"`
	State      State     `json:"state"`
	Status     string    `json:"status"`
	InProgress bool      `json:"in_progress"`
	StartedAt  time.Time `json:"started_at,omitzero"`
	FinishedAt time.Time `json:"finished_at,omitzero"`
	Result     *Result   `json:"result,omitempty"`
}
