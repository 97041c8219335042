package presence

import (
	"log/slog"
	"sync"
	"time"
)

const queueSize = 32

// Activity is what the presence service displays.
type Activity struct {
	State   string    `json:"state"`
	Details string    `json:"details"`
	Since   time.Time `json:"since"`
}

// Sink delivers an activity to the presence service.
type Sink interface {
	SetActivity(Activity) error
}

// LogSink records activities in the log instead of a remote service.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) SetActivity(a Activity) error {
	s.Logger.Debug("presence", "state", a.State, "details", a.Details)
	return nil
}

type update struct {
	state, details string
}

// Announcer forwards presence updates to a Sink from a single worker
// goroutine so callers never block on the remote service.
type Announcer struct {
	sink   Sink
	logger *slog.Logger

	updates chan update
	done    chan struct{}

	closeMu sync.RWMutex
	closed  bool

	mu      sync.RWMutex
	current Activity
}

// New starts an Announcer. Close stops it.
func New(sink Sink, logger *slog.Logger) *Announcer {
	a := &Announcer{
		sink:    sink,
		logger:  logger,
		updates: make(chan update, queueSize),
		done:    make(chan struct{}),
	}
	go a.loop()
	return a
}

// Update queues a change. An empty argument keeps the current value. Updates
// are dropped while the queue is full or after Close.
func (a *Announcer) Update(state, details string) {
	a.closeMu.RLock()
	defer a.closeMu.RUnlock()
	if a.closed {
		return
	}

	select {
	case a.updates <- update{state: state, details: details}:
	default:
		a.logger.Warn("presence queue full, dropping update", "details", details)
	}
}

// Current returns the last activity handed to the sink.
func (a *Announcer) Current() Activity {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.current
}

// Close drains queued updates and stops the worker.
func (a *Announcer) Close() {
	a.closeMu.Lock()
	if !a.closed {
		a.closed = true
		close(a.updates)
	}
	a.closeMu.Unlock()
	<-a.done
}

func (a *Announcer) loop() {
	defer close(a.done)

	for u := range a.updates {
		a.mu.Lock()
		next := a.current
		if u.state != "" {
			next.State = u.state
		}
		if u.details != "" {
			next.Details = u.details
		}
		next.Since = time.Now()
		a.current = next
		a.mu.Unlock()

		if err := a.sink.SetActivity(next); err != nil {
			a.logger.Error("failed to set presence activity", "err", err)
		}
	}
}

// Disabled is an Announcer stand-in that ignores updates.
type Disabled struct{}

func (Disabled) Update(state, details string) {}
