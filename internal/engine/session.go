package engine

import (
	"sync"
	"time"
)

// Session holds the progress of the current injection. Readers take a
// Snapshot; only the orchestrator's worker writes.
type Session struct {
	mu sync.RWMutex

	id         string
	name       string
	strategy   string
	state      State
	status     string
	startedAt  time.Time
	finishedAt time.Time
	result     *Result
}

// reset starts a new session in place of the previous one.
func (s *Session) reset(id, name, strategy, status string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.id = id
	s.name = name
	s.strategy = strategy
	s.state = StateIdle
	s.status = status
	s.startedAt = now
	s.finishedAt = time.Time{}
	s.result = nil
}

// move changes state and status together and returns the previous state.
func (s *Session) move(state State, status string) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.state
	s.state = state
	s.status = status
	return prev
}

func (s *Session) setStatus(status string) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

func (s *Session) finish(r Result, status string) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.state
	s.status = status
	if r.Success() {
		s.state = StateSucceeded
	} else {
		s.state = StateFailed
	}
	s.finishedAt = r.At
	s.result = &r
	return prev
}

// Status returns the human-readable status line.
func (s *Session) Status() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *Session) snapshot(inProgress bool) Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		SessionID:  s.id,
		Name:       s.name,
		Strategy:   s.strategy,
		State:      s.state,
		Status:     s.status,
		InProgress: inProgress,
		StartedAt:  s.startedAt,
		FinishedAt: s.finishedAt,
	}
	if s.result != nil && s.state.Terminal() {
		r := *s.result
		snap.Result = &r
	}
	return snap
}
