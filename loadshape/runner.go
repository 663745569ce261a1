package loadshape

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// RunnerState is the lifecycle state of a Runner.
type RunnerState int32

const (
	// RunnerIdle indicates the runner has no workers; new runs may start.
	RunnerIdle RunnerState = iota
	// RunnerRunning indicates phase workers are live.
	RunnerRunning
	// RunnerStopping indicates cancellation is in flight.
	RunnerStopping
)

func (s RunnerState) String() string {
	switch s {
	case RunnerIdle:
		return "idle"
	case RunnerRunning:
		return "running"
	case RunnerStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

const (
	defaultPollInterval = 100 * time.Millisecond
	defaultStopTimeout  = 5 * time.Second
)

// testHookWorkerEval, when non-nil, replaces phase evaluation inside
// workers.
var testHookWorkerEval func(Phase, float64) (int, bool)

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger injects the logging capability the runner reports worker
// faults and lifecycle events through.
func WithLogger(log Logger) RunnerOption {
	return func(r *Runner) { r.log = log }
}

// WithPollInterval overrides how often each phase worker reevaluates its
// window.
func WithPollInterval(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.pollInterval = d
		}
	}
}

// WithStopTimeout overrides how long Stop waits for workers to acknowledge
// cancellation before reporting stragglers.
func WithStopTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.stopTimeout = d
		}
	}
}

// Runner evaluates a schedule concurrently: one worker goroutine per phase,
// all feeding one shared queue that Tick drains newest-first.
//
// The synchronous Schedule is the simpler choice for most drivers. The
// Runner exists for hosts that want phase evaluation off their control
// goroutine and can tolerate transiently empty ticks. The queue is guarded
// by its own mutex and cancellation by its own channel, so producers never
// serialize behind one lock.
type Runner struct {
	phases       []Phase
	pollInterval time.Duration
	stopTimeout  time.Duration
	log          Logger

	state   atomic.Int32
	started atomic.Bool // set by the first Start, never cleared

	mu    sync.Mutex // guards queue and the stopCh handoff
	queue []Target

	stopCh chan struct{}
	wg     sync.WaitGroup
	active atomic.Int32
}

// NewRunner creates an idle Runner over the given schedule.
func NewRunner(s Schedule, opts ...RunnerOption) *Runner {
	r := &Runner{
		phases:       s.Phases(),
		pollInterval: defaultPollInterval,
		stopTimeout:  defaultStopTimeout,
		log:          nopLogger{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// State returns the current lifecycle state.
func (r *Runner) State() RunnerState {
	return RunnerState(r.state.Load())
}

// Start spawns one worker per phase. All workers share one start instant:
// each sleeps through the run until its own window opens, produces targets
// while inside it, and exits once past it. Starting a non-idle runner is a
// StateError.
func (r *Runner) Start() error {
	if !r.state.CompareAndSwap(int32(RunnerIdle), int32(RunnerRunning)) {
		return &StateError{Op: "start", Message: fmt.Sprintf("runner is %s, not idle", r.State())}
	}
	r.started.Store(true)

	stop := make(chan struct{})
	startedAt := time.Now()

	r.mu.Lock()
	r.stopCh = stop
	r.queue = nil
	r.mu.Unlock()

	for i, p := range r.phases {
		r.wg.Add(1)
		r.active.Add(1)
		go r.worker(i, p, stop, startedAt)
	}
	r.log.Infof("loadshape: runner started with %d phase workers", len(r.phases))
	return nil
}

// Tick pops the most recently produced target without blocking. A false
// result means the queue is momentarily empty, which also happens mid-run
// between worker wakeups. Callers must read it as "no news", not "done";
// Finished distinguishes the two. Queued targets keep draining after Stop,
// newest first. Ticking a runner that was never started is a StateError.
func (r *Runner) Tick() (Target, bool, error) {
	if !r.started.Load() {
		return Target{}, false, &StateError{Op: "tick", Message: "runner was never started"}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.queue) == 0 {
		return Target{}, false, nil
	}
	t := r.queue[len(r.queue)-1]
	r.queue = r.queue[:len(r.queue)-1]
	return t, true, nil
}

// Finished reports whether every phase worker has exited and the queue has
// been drained.
func (r *Runner) Finished() bool {
	if !r.started.Load() {
		return false
	}
	r.mu.Lock()
	empty := len(r.queue) == 0
	r.mu.Unlock()
	return empty && r.active.Load() == 0
}

// Stop cancels all workers and waits for each to acknowledge. Workers check
// the cancel channel at every poll step, so acknowledgment normally arrives
// within one poll interval; if the wait still exceeds the stop timeout, Stop
// returns a StateError naming the straggler count instead of abandoning
// workers silently. Stopping an idle runner is a no-op.
func (r *Runner) Stop() error {
	if !r.state.CompareAndSwap(int32(RunnerRunning), int32(RunnerStopping)) {
		return nil
	}
	r.mu.Lock()
	stop := r.stopCh
	r.mu.Unlock()
	close(stop)

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.state.Store(int32(RunnerIdle))
		r.log.Infof("loadshape: runner stopped, all workers acknowledged")
		return nil
	case <-time.After(r.stopTimeout):
		n := r.active.Load()
		r.state.Store(int32(RunnerIdle))
		r.log.Errorf("loadshape: %d workers missed the stop acknowledgment window", n)
		return &StateError{
			Op:      "stop",
			Message: fmt.Sprintf("%d workers did not acknowledge cancellation within %v", n, r.stopTimeout),
		}
	}
}

// worker produces targets for a single phase until the window passes or
// cancellation is observed. A panic is contained here: it is logged through
// the injected logger and ends only this worker.
func (r *Runner) worker(id int, p Phase, stop <-chan struct{}, startedAt time.Time) {
	defer r.wg.Done()
	defer r.active.Add(-1)
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Errorf("loadshape: phase worker %d recovered from fault: %v", id, rec)
		}
	}()

	eval := Phase.UserCountAt
	if testHookWorkerEval != nil {
		eval = testHookWorkerEval
	}

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		elapsed := time.Since(startedAt).Seconds()
		if users, ok := eval(p, elapsed); ok {
			r.push(Target{Users: users, SpawnRate: p.SpawnRate})
		} else if elapsed > p.End() {
			return
		}

		select {
		case <-stop:
			return
		case <-ticker.C:
		}
	}
}

func (r *Runner) push(t Target) {
	r.mu.Lock()
	r.queue = append(r.queue, t)
	r.mu.Unlock()
}
