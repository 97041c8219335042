package metrics

import "time"

// Collector records injection engine metrics.
type Collector interface {
	// StateTransition records a session moving between states.
	StateTransition(from, to string)

	// PhaseDuration records how long one session phase took.
	PhaseDuration(phase string, d time.Duration, err error)

	// InjectionFinished records a terminal session result.
	InjectionFinished(strategy, result string)

	// FetchCompleted records where a file came from: cache, primary or fallback.
	FetchCompleted(source string, err error)

	// FetchFallback records a switch from the primary to the fallback endpoint.
	FetchFallback()

	// SubmissionRejected records a submit refused because a session was running.
	SubmissionRejected()
}

type noopCollector struct{}

func (noopCollector) StateTransition(from, to string)                        {}
func (noopCollector) PhaseDuration(phase string, d time.Duration, err error) {}
func (noopCollector) InjectionFinished(strategy, result string)              {}
func (noopCollector) FetchCompleted(source string, err error)                {}
func (noopCollector) FetchFallback()                                         {}
func (noopCollector) SubmissionRejected()                                    {}

// NewNoop returns a Collector that discards everything.
func NewNoop() Collector {
	return noopCollector{}
}
