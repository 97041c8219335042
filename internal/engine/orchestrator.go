package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/unknproject/loader/internal/domain"
	"github.com/unknproject/loader/internal/inject"
	"github.com/unknproject/loader/internal/metrics"
)

const (
	defaultStepDelay    = time.Second
	defaultHelperDelay  = 2 * time.Second
	defaultResultBuffer = 16
)

// Status lines shown while a session runs.
const (
	StatusStarting          = "Starting injection..."
	StatusDownloaded        = "Downloaded."
	StatusFetchingHelper    = "Downloading manual map injector..."
	StatusHelperDownloaded  = "Downloaded manual map injector."
	StatusInjecting         = "Injecting..."
	StatusInjectingHelper   = "Injecting with manual map injector..."
	StatusInjectionComplete = "Injection successful."

	presenceIdle = "Selecting a hack"
)

// Config controls session pacing.
type Config struct {
	// SkipDelay disables the pauses between steps.
	SkipDelay bool

	StepDelay    time.Duration
	HelperDelay  time.Duration
	ResultBuffer int

	// Sleep replaces the default pause, which returns early once ctx is done.
	Sleep func(ctx context.Context, d time.Duration)
}

// Deps are the collaborators a session drives. Observer, Announcer, Stats
// and Metrics are optional.
type Deps struct {
	Fetcher  domain.Fetcher
	Locator  domain.ProcessLocator
	Standard domain.LibraryInjector
	Runner   domain.HelperRunner
	Helpers  domain.HelperStore

	Observer  domain.Observer
	Announcer domain.Announcer
	Stats     domain.InjectionRecorder
	Metrics   metrics.Collector
}

// Orchestrator runs one injection session at a time on a background
// goroutine and exposes its progress.
type Orchestrator struct {
	cfg    Config
	deps   Deps
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	inProgress atomic.Bool
	session    Session
	results    chan Result

	hostBits int
	now      func() time.Time
}

// New creates an idle orchestrator.
func New(cfg Config, deps Deps, logger *slog.Logger) *Orchestrator {
	if cfg.StepDelay <= 0 {
		cfg.StepDelay = defaultStepDelay
	}
	if cfg.HelperDelay <= 0 {
		cfg.HelperDelay = defaultHelperDelay
	}
	if cfg.ResultBuffer <= 0 {
		cfg.ResultBuffer = defaultResultBuffer
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleep
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewNoop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		cfg:      cfg,
		deps:     deps,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		results:  make(chan Result, cfg.ResultBuffer),
		hostBits: strconv.IntSize,
		now:      time.Now,
	}
}

// Submit validates req and starts a session for it. It returns ErrBusy
// without starting anything while another session is in progress.
func (o *Orchestrator) Submit(req Request) (string, error) {
	j, err := o.plan(req)
	if err != nil {
		return "", err
	}

	if !o.inProgress.CompareAndSwap(false, true) {
		o.deps.Metrics.SubmissionRejected()
		o.logger.Warn("injection rejected, session already running", "name", j.name)
		return "", domain.ErrBusy
	}

	id := uuid.NewString()
	o.session.reset(id, j.name, j.strategy.String(), StatusStarting, o.now())
	o.logger.Info("injection started",
		"session", id,
		"name", j.name,
		"process", j.process,
		"strategy", j.strategy,
	)
	o.announce("", "Injecting "+j.name)
	o.repaint()

	o.wg.Add(1)
	go o.run(id, j)

	return id, nil
}

// CurrentStatus returns the status line of the latest session.
func (o *Orchestrator) CurrentStatus() string {
	return o.session.Status()
}

// InProgress reports whether a session is running.
func (o *Orchestrator) InProgress() bool {
	return o.inProgress.Load()
}

// Snapshot returns the latest session's state.
func (o *Orchestrator) Snapshot() Snapshot {
	return o.session.snapshot(o.inProgress.Load())
}

// Results delivers one Result per finished session.
func (o *Orchestrator) Results() <-chan Result {
	return o.results
}

// Drain returns the queued results without blocking.
func (o *Orchestrator) Drain() []Result {
	var out []Result
	for {
		select {
		case r := <-o.results:
			out = append(out, r)
		default:
			return out
		}
	}
}

// Close waits for the running session, if any, to finish. Pending pauses are
// cut short.
func (o *Orchestrator) Close() {
	o.cancel()
	o.wg.Wait()
}

func (o *Orchestrator) run(id string, j job) {
	defer o.wg.Done()

	r := o.execute(j)
	r.SessionID = id
	r.At = o.now()

	status, to := r.Message, StateFailed
	if r.Success() {
		status, to = StatusInjectionComplete, StateSucceeded
	}
	prev := o.session.finish(r, status)
	o.deps.Metrics.StateTransition(prev.String(), to.String())
	o.deps.Metrics.InjectionFinished(j.strategy.String(), r.Kind.String())

	if r.Success() {
		o.logger.Info("injection finished", "session", id, "name", j.name)
		if o.deps.Stats != nil {
			if err := o.deps.Stats.RecordInjection(j.name); err != nil {
				o.logger.Warn("failed to record injection", "name", j.name, "err", err)
			}
		}
	} else {
		o.logger.Error("injection failed", "session", id, "name", j.name, "err", r.Message)
	}

	o.publish(r)
	// announce idle before a new session can start
	o.announce("", presenceIdle)
	o.inProgress.Store(false)
	o.repaint()
}

func (o *Orchestrator) execute(j job) Result {
	o.pace(o.cfg.StepDelay)

	if !j.custom {
		if _, err := os.Stat(j.library); err != nil {
			o.transition(StateDownloading, fmt.Sprintf("Downloading %s...", j.name))

			start := o.now()
			err := o.deps.Fetcher.Fetch(o.ctx, j.remote, j.library)
			o.deps.Metrics.PhaseDuration("download", o.now().Sub(start), err)
			if err != nil {
				return failure(j, fmt.Sprintf("Failed to download: %v", err))
			}

			o.logger.Debug("downloaded payload", "name", j.name, "path", j.library)
			o.status(StatusDownloaded)
		}
		o.pace(o.cfg.StepDelay)
	}

	if j.strategy == domain.StrategyManualMap {
		return o.manualMap(j)
	}
	return o.standard(j)
}

func (o *Orchestrator) standard(j job) Result {
	o.transition(StateInjecting, StatusInjecting)
	o.pace(o.cfg.StepDelay)

	start := o.now()
	err := o.loadStandard(j)
	o.deps.Metrics.PhaseDuration("inject", o.now().Sub(start), err)
	if err != nil {
		if domain.IsInjectKind(err, domain.InjectProcessNotFound) {
			o.logger.Warn("target process is not running", "process", j.process)
		}
		return failure(j, err.Error())
	}
	return success(j)
}

func (o *Orchestrator) loadStandard(j job) error {
	target, ok, err := o.deps.Locator.FindByName(j.process)
	if err != nil {
		return &domain.InjectError{Kind: domain.InjectLoadFailed, Process: j.process, Err: fmt.Errorf("list processes: %w", err)}
	}
	if !ok {
		return &domain.InjectError{Kind: domain.InjectProcessNotFound, Process: j.process}
	}
	return o.deps.Standard.Inject(o.ctx, target, j.library)
}

func (o *Orchestrator) manualMap(j job) Result {
	arch := inject.HelperArch(j.process)
	o.logger.Debug("using manual map injector", "arch", arch)

	helper := o.deps.Helpers.Path(arch)
	if !o.deps.Helpers.Present(arch) {
		o.transition(StateFetchingHelper, StatusFetchingHelper)
		o.pace(o.cfg.HelperDelay)

		start := o.now()
		path, err := o.deps.Helpers.Ensure(o.ctx, arch)
		o.deps.Metrics.PhaseDuration("helper", o.now().Sub(start), err)
		if err != nil {
			return failure(j, err.Error())
		}
		helper = path
		o.status(StatusHelperDownloaded)
	}
	o.pace(o.cfg.StepDelay)

	o.transition(StateInjecting, StatusInjectingHelper)

	start := o.now()
	err := inject.ManualMap(o.ctx, o.deps.Runner, helper, j.helperArgs(), j.formatter, o.logger)
	o.deps.Metrics.PhaseDuration("inject", o.now().Sub(start), err)
	if err != nil {
		var ie *domain.InjectError
		if j.custom && errors.As(err, &ie) && ie.Kind == domain.InjectHelperFailed {
			// user files show the wrapped helper output alone
			return failure(j, ie.Detail)
		}
		return failure(j, err.Error())
	}
	return success(j)
}

func (o *Orchestrator) transition(to State, status string) {
	from := o.session.move(to, status)
	o.deps.Metrics.StateTransition(from.String(), to.String())
	o.logger.Debug("session transition", "from", from, "to", to, "status", status)
	o.repaint()
}

func (o *Orchestrator) status(text string) {
	o.session.setStatus(text)
	o.repaint()
}

// pace holds the worker for d unless pacing is disabled or the orchestrator
// is closing.
func (o *Orchestrator) pace(d time.Duration) {
	if o.cfg.SkipDelay || o.ctx.Err() != nil {
		return
	}
	o.cfg.Sleep(o.ctx, d)
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// publish queues r, dropping the oldest undelivered result when the buffer
// is full.
func (o *Orchestrator) publish(r Result) {
	for {
		select {
		case o.results <- r:
			return
		default:
		}
		select {
		case old := <-o.results:
			o.logger.Warn("dropping undelivered result", "session", old.SessionID)
		default:
		}
	}
}

func (o *Orchestrator) repaint() {
	if o.deps.Observer != nil {
		o.deps.Observer.Repaint()
	}
}

func (o *Orchestrator) announce(state, details string) {
	if o.deps.Announcer != nil {
		o.deps.Announcer.Update(state, details)
	}
}

func success(j job) Result {
	return Result{Kind: ResultSuccess, Name: j.name}
}

// failure builds a failed Result. Helper output is free text, so a message
// that happens to carry the success prefix is qualified.
func failure(j job, msg string) Result {
	if msg == "" {
		msg = "Failed to inject: unknown error"
	}
	if strings.HasPrefix(msg, SuccessPrefix) {
		msg = "Failed to inject: " + msg
	}
	return Result{Kind: ResultFailure, Name: j.name, Message: msg}
}
