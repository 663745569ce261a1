// Package engine drives load runs: it turns a ramp schedule into a live
// population of virtual users and collects the results.
package engine

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ahmed-madyan/surge/internal/httpclient"
	"github.com/ahmed-madyan/surge/internal/metrics"
)

// VUState represents the lifecycle state of a virtual user.
type VUState int32

const (
	// VUStateIdle indicates the VU is ready but not currently running.
	VUStateIdle VUState = iota
	// VUStateRunning indicates the VU is actively running an iteration.
	VUStateRunning
	// VUStateStopping indicates the VU has been requested to stop.
	VUStateStopping
	// VUStateStopped indicates the VU has fully stopped.
	VUStateStopped
)

func (s VUState) String() string {
	switch s {
	case VUStateIdle:
		return "idle"
	case VUStateRunning:
		return "running"
	case VUStateStopping:
		return "stopping"
	case VUStateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// VirtualUser is a single simulated user repeating scenario iterations.
// Each iteration executes every scenario request in order and records the
// outcome in the metrics engine.
type VirtualUser struct {
	// ID uniquely identifies this VU within its pool.
	ID int

	scenario *Scenario
	client   httpclient.Doer
	metrics  *metrics.Engine

	state     atomic.Int32
	stopCh    chan struct{}
	doneCh    chan struct{}
	iteration atomic.Int64
}

// NewVirtualUser creates a virtual user bound to a scenario, a transport
// and a metrics engine.
func NewVirtualUser(id int, scenario *Scenario, client httpclient.Doer, metricsEngine *metrics.Engine) *VirtualUser {
	return &VirtualUser{
		ID:       id,
		scenario: scenario,
		client:   client,
		metrics:  metricsEngine,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// GetState returns the current VU state.
func (vu *VirtualUser) GetState() VUState {
	return VUState(vu.state.Load())
}

// GetIteration returns the number of iterations started so far.
func (vu *VirtualUser) GetIteration() int64 {
	return vu.iteration.Load()
}

// RunIteration executes one full pass over the scenario's requests.
//
// Request failures are recorded in metrics and do not abort the iteration.
// The error return is reserved for lifecycle interruptions: a cancelled
// context or a stop request observed between requests.
func (vu *VirtualUser) RunIteration(ctx context.Context) error {
	state := vu.GetState()
	if state == VUStateStopping || state == VUStateStopped {
		return fmt.Errorf("VU %d is %s", vu.ID, state)
	}

	vu.state.Store(int32(VUStateRunning))
	vu.iteration.Add(1)

	for _, sr := range vu.scenario.Requests {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-vu.stopCh:
			return nil
		default:
		}

		vu.executeRequest(ctx, sr)
	}

	// A stop request during the iteration must not be clobbered back to idle.
	vu.state.CompareAndSwap(int32(VUStateRunning), int32(VUStateIdle))
	return nil
}

// executeRequest performs one scenario request and records its outcome.
func (vu *VirtualUser) executeRequest(ctx context.Context, sr *ScenarioRequest) {
	start := time.Now()

	resp, err := vu.client.Do(ctx, sr.Request)
	if err != nil {
		vu.metrics.RecordRequest(sr.Name, time.Since(start), false, 0)
		return
	}

	var success bool
	if sr.Validator != nil {
		success = true
		for _, result := range sr.Validator.Validate(resp) {
			if !result.OK {
				success = false
				vu.metrics.RecordValidationFailure()
				break
			}
		}
	} else {
		success = !resp.IsError()
	}

	vu.metrics.RecordRequest(sr.Name, resp.Duration(), success, int64(len(resp.Body())))
}

// RequestStop signals the VU to stop after its current iteration.
func (vu *VirtualUser) RequestStop() {
	if VUState(vu.state.Load()) == VUStateStopped {
		return
	}

	if vu.state.CompareAndSwap(int32(VUStateRunning), int32(VUStateStopping)) ||
		vu.state.CompareAndSwap(int32(VUStateIdle), int32(VUStateStopping)) {
		close(vu.stopCh)
	}
}

// WaitForStop blocks until the VU has fully stopped or the timeout expires.
// It reports whether the VU stopped in time.
func (vu *VirtualUser) WaitForStop(timeout time.Duration) bool {
	select {
	case <-vu.doneCh:
		return true
	case <-time.After(timeout):
		return false
	}
}

// MarkStopped records that the VU's goroutine has exited.
func (vu *VirtualUser) MarkStopped() {
	vu.state.Store(int32(VUStateStopped))
	select {
	case <-vu.doneCh:
	default:
		close(vu.doneCh)
	}
}
