package pagesim

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/viant/pagesim/model/types"
	"github.com/viant/pagesim/policy"
	"github.com/viant/pagesim/progress"
	"github.com/viant/pagesim/runtime/execution"
	"github.com/viant/pagesim/runtime/simulation"
	"github.com/viant/pagesim/service/allocator"
	"github.com/viant/pagesim/service/event"
	"github.com/viant/pagesim/service/processor"
	"github.com/viant/pagesim/service/unblocker"
)

// ErrAlreadyStarted is returned when Start is called twice
var ErrAlreadyStarted = errors.New("runtime already started")

// loop is the common surface of the scheduler loops
type loop interface {
	Start(ctx context.Context) error
	Shutdown()
}

// Runtime represents a running simulation
type Runtime struct {
	id        string
	state     *simulation.State
	allocator *allocator.Service
	processor *processor.Service
	unblocker *unblocker.Service
	generator *policy.DemandGenerator
	events    *event.Service
	logger    *logrus.Entry

	mux     sync.Mutex
	started bool
	faults  []error
	wg      sync.WaitGroup
}

// ID returns the run identifier
func (r *Runtime) ID() string { return r.id }

// Start launches the admission, execution and unblocking loops. A loop that
// hits an invariant violation stops alone; the error is kept in Faults.
func (r *Runtime) Start(ctx context.Context) error {
	r.mux.Lock()
	defer r.mux.Unlock()
	if r.started {
		return ErrAlreadyStarted
	}
	r.started = true
	loops := map[string]loop{
		simulation.LoopAdmission: r.allocator,
		simulation.LoopExecution: r.processor,
		simulation.LoopUnblock:   r.unblocker,
	}
	for name, aLoop := range loops {
		r.wg.Add(1)
		go r.run(ctx, name, aLoop)
	}
	r.logger.Info("simulation started")
	return nil
}

func (r *Runtime) run(ctx context.Context, name string, aLoop loop) {
	defer r.wg.Done()
	err := aLoop.Start(ctx)
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return
	}
	r.mux.Lock()
	r.faults = append(r.faults, fmt.Errorf("%s loop: %w", name, err))
	r.mux.Unlock()
}

// Shutdown stops all loops and waits for them, or for ctx, to finish. A burst
// in flight completes first.
func (r *Runtime) Shutdown(ctx context.Context) error {
	r.allocator.Shutdown()
	r.processor.Shutdown()
	r.unblocker.Shutdown()
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		r.events.Stop()
		r.logger.Info("simulation stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit enqueues a New process. A non-positive demand is rejected with
// types.ErrInvalidDemand and leaves the simulation untouched.
func (r *Runtime) Submit(ctx context.Context, demand int) (*execution.Process, error) {
	p, err := r.state.Submit(ctx, demand)
	if err != nil {
		return nil, err
	}
	r.logger.WithFields(logrus.Fields{"process": p.ID, "demand": p.Demand, "resource": p.Resource}).Info("submitted")
	return p, nil
}

// SubmitRandom enqueues a New process with a generated demand
func (r *Runtime) SubmitRandom(ctx context.Context) (*execution.Process, error) {
	return r.Submit(ctx, r.generator.Draw())
}

// Snapshot returns a consistent view of the simulation
func (r *Runtime) Snapshot() *simulation.Snapshot {
	return r.state.Snapshot()
}

// Verify checks every cross-component invariant
func (r *Runtime) Verify() error {
	return r.state.Verify()
}

// Prune evicts Terminated processes
func (r *Runtime) Prune(ctx context.Context) (int, error) {
	return r.state.Prune(ctx)
}

// OnProgress registers a callback receiving the counters after every
// transition; nil disables it. It runs on the loop that made the transition.
func (r *Runtime) OnProgress(fn func(counters progress.Counters)) {
	r.state.Tracker().OnChange(fn)
}

// Events returns the lifecycle event feed
func (r *Runtime) Events() *event.Service {
	return r.events
}

// Faults returns the errors that halted loops
func (r *Runtime) Faults() []error {
	r.mux.Lock()
	defer r.mux.Unlock()
	return append([]error(nil), r.faults...)
}

// Err returns the first fault or nil
func (r *Runtime) Err() error {
	faults := r.Faults()
	if len(faults) == 0 {
		return nil
	}
	return faults[0]
}

// Halted reports whether an invariant violation stopped a loop
func (r *Runtime) Halted() bool {
	for _, fault := range r.Faults() {
		if types.IsInvariant(fault) {
			return true
		}
	}
	return false
}
