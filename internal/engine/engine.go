package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/ahmed-madyan/surge/internal/config"
	"github.com/ahmed-madyan/surge/internal/httpclient"
	"github.com/ahmed-madyan/surge/internal/logging"
	"github.com/ahmed-madyan/surge/internal/metrics"
	"github.com/ahmed-madyan/surge/loadshape"
)

const (
	defaultTickInterval    = time.Second
	defaultGracefulTimeout = 30 * time.Second
)

// Engine coordinates one load run: it evaluates the ramp schedule, scales
// the virtual user pool to each target and aggregates metrics into a
// Result.
//
// Example usage:
//
//	cfg, _ := config.Load("surge.yaml")
//	eng, _ := engine.NewEngine(cfg)
//	result, _ := eng.Run(context.Background())
//	fmt.Printf("requests: %d\n", result.Metrics.TotalRequests)
type Engine struct {
	config   *config.Config
	schedule loadshape.Schedule
	scenario *Scenario
	client   httpclient.Doer
	metrics  *metrics.Engine
	pacing   Pacing
	log      *zap.SugaredLogger

	tickInterval    time.Duration
	gracefulTimeout time.Duration

	running   atomic.Bool
	startMu   sync.RWMutex
	startTime time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger injects the run logger. The default discards everything.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(e *Engine) { e.log = log }
}

// WithDoer injects the transport used by all virtual users, replacing the
// HTTP client built from the target configuration.
func WithDoer(client httpclient.Doer) Option {
	return func(e *Engine) { e.client = client }
}

// WithTickInterval overrides how often the schedule is evaluated.
func WithTickInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.tickInterval = d
		}
	}
}

// WithGracefulTimeout overrides how long shutdown waits for users to
// finish their current iteration.
func WithGracefulTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.gracefulTimeout = d
		}
	}
}

// Result is the outcome of one load run.
type Result struct {
	RunID        string                          `json:"runId"`
	Name         string                          `json:"name"`
	StartTime    time.Time                       `json:"startTime"`
	EndTime      time.Time                       `json:"endTime"`
	Duration     time.Duration                   `json:"duration"`
	Interrupted  bool                            `json:"interrupted,omitempty"`
	Iterations   int64                           `json:"iterations"`
	Metrics      *metrics.Snapshot               `json:"metrics"`
	RequestStats map[string]metrics.LatencyStats `json:"requestStats,omitempty"`
	TimeSeries   []metrics.SecondPoint           `json:"timeSeries,omitempty"`
}

// NewEngine builds an engine from validated configuration.
func NewEngine(cfg *config.Config, opts ...Option) (*Engine, error) {
	if errs := config.ValidateConfig(cfg); len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", errs[0].Error())
	}

	schedule, err := config.BuildSchedule(cfg)
	if err != nil {
		return nil, fmt.Errorf("building schedule: %w", err)
	}

	scenario, err := BuildScenario(cfg)
	if err != nil {
		return nil, fmt.Errorf("building scenario: %w", err)
	}

	p, err := pacingFromConfig(cfg.Pacing)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		config:          cfg,
		schedule:        schedule,
		scenario:        scenario,
		metrics:         metrics.NewEngine(),
		pacing:          p,
		log:             logging.Nop(),
		tickInterval:    defaultTickInterval,
		gracefulTimeout: defaultGracefulTimeout,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.client == nil {
		e.client = NewClient(cfg)
	}

	return e, nil
}

// NewClient constructs the shared HTTP client from target configuration.
// The probe command uses the same wiring for its one-shot requests.
func NewClient(cfg *config.Config) *httpclient.Client {
	options := []httpclient.ClientOption{
		httpclient.WithBaseURL(cfg.Target.BaseURL),
		httpclient.WithTimeout(cfg.RequestTimeout()),
		httpclient.WithMaxIdleConnsPerHost(256),
	}
	for key, value := range cfg.Target.Headers {
		options = append(options, httpclient.WithDefaultHeader(key, value))
	}
	return httpclient.NewClient(options...)
}

// Run executes the load run to completion and returns its result.
//
// The run ends when the schedule is exhausted or the context is cancelled;
// cancellation is treated as a requested stop, not an error, and yields a
// partial result flagged Interrupted.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	if !e.running.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("engine is already running")
	}
	defer e.running.Store(false)

	runID := ulid.Make().String()
	e.metrics.Reset()

	e.startMu.Lock()
	e.startTime = time.Now()
	startTime := e.startTime
	e.startMu.Unlock()

	e.log.Infof("starting load run %s: %d phase(s), peak %d users, %.1fs shape, runner=%s",
		runID, e.schedule.Len(), e.schedule.MaxUsers(), e.schedule.Duration(), e.runnerMode())

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	pool := NewPool(e.scenario, e.client, e.metrics, e.pacing, e.log)

	targetCh := make(chan loadshape.Target, 1)
	scalerDone := make(chan struct{})
	go func() {
		defer close(scalerDone)
		e.scale(runCtx, pool, targetCh)
	}()

	var interrupted bool
	var driveErr error
	if e.runnerMode() == config.RunnerConcurrent {
		interrupted, driveErr = e.driveConcurrent(runCtx, targetCh)
	} else {
		interrupted, driveErr = e.driveSync(runCtx, targetCh)
	}

	close(targetCh)
	<-scalerDone

	pool.StopAll()
	if !pool.Wait(e.gracefulTimeout) {
		e.log.Warnf("pool did not drain within %s, cancelling in-flight work", e.gracefulTimeout)
		cancel()
		pool.Wait(5 * time.Second)
	}
	e.metrics.SetActiveVUs(0)

	snapshot := e.metrics.GetSnapshot()
	result := &Result{
		RunID:        runID,
		Name:         e.config.Name,
		StartTime:    startTime,
		EndTime:      time.Now(),
		Duration:     time.Since(startTime),
		Interrupted:  interrupted,
		Iterations:   pool.Iterations(),
		Metrics:      snapshot,
		RequestStats: e.metrics.GetRequestStats(),
		TimeSeries:   e.metrics.GetTimeSeries(),
	}

	e.log.Infof("load run %s finished: %d requests, %.1f rps, %.2f%% errors, %d iterations",
		runID, snapshot.TotalRequests, snapshot.RPS, snapshot.ErrorRate*100, result.Iterations)

	return result, driveErr
}

func (e *Engine) runnerMode() string {
	if e.config.Runner == config.RunnerConcurrent {
		return config.RunnerConcurrent
	}
	return config.RunnerSync
}

// driveSync evaluates the schedule inline on every tick. The first
// evaluation happens immediately so short opening phases are not skipped.
func (e *Engine) driveSync(ctx context.Context, targets chan loadshape.Target) (bool, error) {
	start := time.Now()
	total := e.schedule.Duration()

	ticker := time.NewTicker(e.tickInterval)
	defer ticker.Stop()

	for {
		elapsed := time.Since(start).Seconds()
		if target, ok := e.schedule.Tick(elapsed); ok {
			sendTarget(targets, target)
		} else if elapsed > total {
			return false, nil
		}

		select {
		case <-ctx.Done():
			return true, nil
		case <-ticker.C:
		}
	}
}

// driveConcurrent delegates schedule evaluation to the phase runner and
// drains its targets. An empty tick mid-run means no news; the run is over
// only when the runner reports all phase workers finished.
func (e *Engine) driveConcurrent(ctx context.Context, targets chan loadshape.Target) (bool, error) {
	runner := loadshape.NewRunner(e.schedule,
		loadshape.WithLogger(e.log),
		loadshape.WithPollInterval(e.tickInterval),
		loadshape.WithStopTimeout(e.gracefulTimeout),
	)
	if err := runner.Start(); err != nil {
		return false, err
	}

	ticker := time.NewTicker(e.tickInterval)
	defer ticker.Stop()

	for {
		target, ok, err := runner.Tick()
		if err != nil {
			e.stopRunner(runner)
			return false, err
		}
		if ok {
			sendTarget(targets, target)
		} else if runner.Finished() {
			e.stopRunner(runner)
			return false, nil
		}

		select {
		case <-ctx.Done():
			e.stopRunner(runner)
			return true, nil
		case <-ticker.C:
		}
	}
}

func (e *Engine) stopRunner(runner *loadshape.Runner) {
	if err := runner.Stop(); err != nil {
		e.log.Warnf("phase runner stop: %v", err)
	}
}

// scale applies targets to the pool, always acting on the newest one
// queued. A slow scale-up never backs up the drive loop.
func (e *Engine) scale(ctx context.Context, pool *Pool, targets <-chan loadshape.Target) {
	for {
		target, ok := <-targets
		if !ok {
			return
		}

	drain:
		for {
			select {
			case next, more := <-targets:
				if !more {
					break drain
				}
				target = next
			default:
				break drain
			}
		}

		pool.SetSpawnRate(target.SpawnRate)
		pool.ScaleTo(ctx, target.Users)

		if ctx.Err() != nil {
			return
		}
	}
}

// sendTarget replaces whatever is queued with the newest target.
func sendTarget(ch chan loadshape.Target, t loadshape.Target) {
	for {
		select {
		case ch <- t:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}

// IsRunning reports whether a run is in progress.
func (e *Engine) IsRunning() bool {
	return e.running.Load()
}

// Snapshot returns the current metrics, live during a run.
func (e *Engine) Snapshot() *metrics.Snapshot {
	return e.metrics.GetSnapshot()
}

// Schedule returns the ramp schedule this engine drives.
func (e *Engine) Schedule() loadshape.Schedule {
	return e.schedule
}

// Progress returns overall run progress from 0.0 to 1.0.
func (e *Engine) Progress() float64 {
	e.startMu.RLock()
	start := e.startTime
	e.startMu.RUnlock()

	if start.IsZero() {
		return 0.0
	}
	if !e.running.Load() {
		return 1.0
	}

	total := e.schedule.Duration()
	if total <= 0 {
		return 1.0
	}

	progress := time.Since(start).Seconds() / total
	if progress > 1.0 {
		progress = 1.0
	}
	return progress
}
