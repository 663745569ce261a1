package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ahmed-madyan/surge/internal/httpclient"
	"github.com/ahmed-madyan/surge/internal/metrics"
)

// Pool manages the population of virtual users for one run.
//
// Scaling up is throttled by a rate limiter fed from the schedule's spawn
// rate, so a phase that asks for a 10 users/s ramp actually admits users at
// that pace. Scaling down is immediate: excess users are asked to stop and
// finish their current iteration.
type Pool struct {
	scenario *Scenario
	client   httpclient.Doer
	metrics  *metrics.Engine
	pacing   Pacing
	log      *zap.SugaredLogger

	limiter *rate.Limiter

	vus    map[int]*VirtualUser
	vusMu  sync.RWMutex
	nextID atomic.Int32

	iterations atomic.Int64

	wg           sync.WaitGroup
	shutdownCh   chan struct{}
	shutdownOnce sync.Once
}

// NewPool creates an empty pool. Spawning is unthrottled until
// SetSpawnRate is called.
func NewPool(scenario *Scenario, client httpclient.Doer, metricsEngine *metrics.Engine, p Pacing, log *zap.SugaredLogger) *Pool {
	return &Pool{
		scenario:   scenario,
		client:     client,
		metrics:    metricsEngine,
		pacing:     p,
		log:        log,
		limiter:    rate.NewLimiter(rate.Inf, 1),
		vus:        make(map[int]*VirtualUser),
		shutdownCh: make(chan struct{}),
	}
}

// SetSpawnRate adjusts the pace at which ScaleTo admits new users, in
// users per second. Zero or negative removes the throttle.
func (p *Pool) SetSpawnRate(perSecond float64) {
	if perSecond <= 0 {
		p.limiter.SetLimit(rate.Inf)
		return
	}
	p.limiter.SetLimit(rate.Limit(perSecond))
}

// ScaleTo adjusts the pool to the target user count. Spawns wait on the
// rate limiter; the context aborts a scale-up mid-way.
func (p *Pool) ScaleTo(ctx context.Context, target int) {
	if target < 0 {
		target = 0
	}

	current := p.runnableCount()
	switch {
	case target > current:
		for i := current; i < target; i++ {
			if err := p.limiter.Wait(ctx); err != nil {
				return
			}
			p.spawn(ctx)
		}
	case target < current:
		p.stopExcess(current - target)
	}

	p.metrics.SetActiveVUs(p.runnableCount())
}

// spawn registers a new virtual user and starts its iteration loop.
func (p *Pool) spawn(ctx context.Context) {
	id := int(p.nextID.Add(1))
	vu := NewVirtualUser(id, p.scenario, p.client, p.metrics)

	p.vusMu.Lock()
	p.vus[id] = vu
	p.vusMu.Unlock()

	p.wg.Add(1)
	go p.runVU(ctx, vu)
}

// stopExcess asks n runnable users to stop. Map order makes the choice
// arbitrary, which is fine: every user runs the same scenario.
func (p *Pool) stopExcess(n int) {
	p.vusMu.RLock()
	defer p.vusMu.RUnlock()

	stopped := 0
	for _, vu := range p.vus {
		if stopped >= n {
			break
		}
		if state := vu.GetState(); state != VUStateStopping && state != VUStateStopped {
			vu.RequestStop()
			stopped++
		}
	}
}

// runVU repeats scenario iterations until the user is stopped, the pool
// shuts down or the context is cancelled.
func (p *Pool) runVU(ctx context.Context, vu *VirtualUser) {
	defer p.wg.Done()
	defer func() {
		vu.MarkStopped()
		p.remove(vu.ID)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.shutdownCh:
			return
		default:
		}

		if state := vu.GetState(); state == VUStateStopping || state == VUStateStopped {
			return
		}

		if err := vu.RunIteration(ctx); err != nil {
			if ctx.Err() != nil || vu.GetState() == VUStateStopping {
				return
			}
			p.log.Warnf("vu %d iteration aborted: %v", vu.ID, err)
			continue
		}
		p.iterations.Add(1)

		if wait := p.pacing.next(); wait > 0 {
			select {
			case <-ctx.Done():
				return
			case <-p.shutdownCh:
				return
			case <-vu.stopCh:
				return
			case <-time.After(wait):
			}
		}
	}
}

// remove drops a stopped user from the registry and refreshes the gauge.
func (p *Pool) remove(id int) {
	p.vusMu.Lock()
	delete(p.vus, id)
	p.vusMu.Unlock()

	p.metrics.SetActiveVUs(p.runnableCount())
}

// ActiveCount returns the number of users that have not fully stopped.
func (p *Pool) ActiveCount() int {
	p.vusMu.RLock()
	defer p.vusMu.RUnlock()

	count := 0
	for _, vu := range p.vus {
		if vu.GetState() != VUStateStopped {
			count++
		}
	}
	return count
}

// runnableCount counts users that are neither stopping nor stopped. Scaling
// decisions use this so a user already winding down is not stopped twice.
func (p *Pool) runnableCount() int {
	p.vusMu.RLock()
	defer p.vusMu.RUnlock()

	count := 0
	for _, vu := range p.vus {
		if state := vu.GetState(); state != VUStateStopping && state != VUStateStopped {
			count++
		}
	}
	return count
}

// Iterations returns the total number of completed iterations across all
// users.
func (p *Pool) Iterations() int64 {
	return p.iterations.Load()
}

// StopAll asks every user to stop after its current iteration.
func (p *Pool) StopAll() {
	p.shutdownOnce.Do(func() { close(p.shutdownCh) })

	p.vusMu.RLock()
	defer p.vusMu.RUnlock()
	for _, vu := range p.vus {
		vu.RequestStop()
	}
}

// Wait blocks until every user goroutine has exited or the timeout
// expires. It reports whether the pool drained in time.
func (p *Pool) Wait(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
