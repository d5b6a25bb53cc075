package simulation

import (
	"context"
	"sync"

	"github.com/viant/pagesim/internal/clock"
	"github.com/viant/pagesim/internal/idgen"
	"github.com/viant/pagesim/model/types"
	"github.com/viant/pagesim/policy"
	"github.com/viant/pagesim/progress"
	"github.com/viant/pagesim/runtime/execution"
	"github.com/viant/pagesim/service/arbiter"
	"github.com/viant/pagesim/service/event"
	"github.com/viant/pagesim/service/pager"
	"github.com/viant/pagesim/service/registry"
)

const component = "simulation"

// Loop names used to tag transitions
const (
	LoopDisplay   = "display"
	LoopAdmission = "admission"
	LoopExecution = "execution"
	LoopUnblock   = "unblocking"
)

// Config sizes the simulation
type Config struct {
	TotalMB    int
	PageSizeMB int
	Resources  int
	RetryLimit int
	// Verify checks every invariant after each transition
	Verify bool
}

// DefaultConfig returns the reference sizing
func DefaultConfig() Config {
	return Config{
		TotalMB:    1000,
		PageSizeMB: 50,
		Resources:  3,
		RetryLimit: 3,
	}
}

// State is the single owner of shared scheduler state.
type State struct {
	mu         sync.Mutex
	pager      *pager.Table
	arbiter    *arbiter.Service
	registry   *registry.Service
	assigner   policy.Assigner
	ids        idgen.Sequence
	tracker    *progress.Tracker
	events     *event.Service
	clock      clock.Clock
	retryLimit int
	verify     bool
}

// New creates the simulation state
func New(config Config, options ...Option) *State {
	ret := &State{
		pager:      pager.New(config.TotalMB, config.PageSizeMB),
		arbiter:    arbiter.New(config.Resources),
		registry:   registry.New(),
		retryLimit: config.RetryLimit,
		verify:     config.Verify,
	}
	for _, opt := range options {
		opt(ret)
	}
	if ret.clock == nil {
		ret.clock = clock.Real()
	}
	if ret.assigner == nil {
		ret.assigner = policy.NewRandom(0)
	}
	if ret.tracker == nil {
		ret.tracker = progress.New(ret.clock.Now())
	}
	return ret
}

// Tracker returns the transition counters
func (s *State) Tracker() *progress.Tracker { return s.tracker }

// Submit creates a New process with the given demand and a resource chosen
// by the assignment policy. A non-positive demand is a user input error and
// leaves the state untouched.
func (s *State) Submit(ctx context.Context, demand int) (*execution.Process, error) {
	if err := types.ValidateDemand(demand); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	resource := s.assigner.Assign(s.arbiter.Len())
	if resource < 0 || resource >= s.arbiter.Len() {
		return nil, types.NewInvariantError(component, "assigner chose R%d, have %d resources", resource, s.arbiter.Len())
	}
	now := s.clock.Now()
	p := execution.NewProcess(s.ids.Next(), demand, resource, now)
	if err := s.registry.Save(ctx, p); err != nil {
		return nil, err
	}
	s.tracker.Update(progress.Delta{Submitted: 1})
	s.publish(ctx, LoopDisplay, p.ID, "", execution.StateNew, "submitted")
	return p.Clone(), s.check()
}

// Pending returns the ids of New processes, oldest first.
func (s *State) Pending() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ids(s.registry.Queue(execution.StateNew))
}

// Admit tries to allocate pages for the New process id and moves it to Ready.
// It returns false when memory is short or the process is no longer New.
func (s *State) Admit(ctx context.Context, id int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.registry.Load(ctx, id)
	if err != nil || p.State != execution.StateNew {
		return false, nil
	}
	ok, err := s.pager.Allocate(p)
	if err != nil {
		return false, err
	}
	if !ok {
		s.tracker.Update(progress.Delta{AllocationMiss: 1})
		return false, nil
	}
	if err = s.registry.Move(id, execution.StateNew, execution.StateReady, s.clock.Now()); err != nil {
		return false, err
	}
	s.tracker.Update(progress.Delta{Admitted: 1})
	s.publish(ctx, LoopAdmission, id, execution.StateNew, execution.StateReady, "pages allocated")
	return true, s.check()
}

// Dispatch claims the running slot for the head of the Ready queue. A
// process not yet holding its resource makes one acquisition attempt;
// running without it is allowed. It returns a copy of the running process.
// An acquisition that would violate an invariant is reported before the
// running slot is claimed, leaving the process Ready.
func (s *State) Dispatch(ctx context.Context) (*execution.Process, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ready := s.registry.Queue(execution.StateReady)
	if s.registry.Running() != nil || len(ready) == 0 {
		return nil, false, nil
	}
	if head := ready[0]; !head.HoldsResource {
		if err := s.arbiter.CanAcquire(head.Resource, head.ID); err != nil {
			return nil, false, err
		}
	}
	p, ok := s.registry.Dispatch(s.clock.Now())
	if !ok {
		return nil, false, nil
	}
	s.tracker.Update(progress.Delta{Dispatched: 1})
	s.publish(ctx, LoopExecution, p.ID, execution.StateReady, execution.StateRunning, "dispatched")
	if !p.HoldsResource {
		acquired, err := s.arbiter.TryAcquire(p.Resource, p.ID)
		if err != nil {
			return nil, false, err
		}
		if acquired {
			p.HoldsResource = true
		} else {
			s.tracker.Update(progress.Delta{AcquisitionMiss: 1})
		}
	}
	return p.Clone(), true, s.check()
}

// Running returns a copy of the running process or nil
func (s *State) Running() *execution.Process {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.Running().Clone()
}

// CompleteBurst ends the burst of the running process id. Below the retry
// limit it is blocked; otherwise its pages are freed, its resource released
// and it terminates. It returns the state the process moved to.
func (s *State) CompleteBurst(ctx context.Context, id int) (execution.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.registry.Running()
	if p == nil || p.ID != id {
		return "", types.NewInvariantError(component, "P%d completed a burst without holding the running slot", id)
	}
	now := s.clock.Now()
	if p.BlockCount < s.retryLimit {
		p.BlockCount++
		if err := s.registry.Vacate(id, execution.StateBlocked, now); err != nil {
			return "", err
		}
		s.tracker.Update(progress.Delta{Blocked: 1})
		s.publish(ctx, LoopExecution, id, execution.StateRunning, execution.StateBlocked, "burst completed")
		return execution.StateBlocked, s.check()
	}
	if err := s.pager.Free(p); err != nil {
		return "", err
	}
	if p.HoldsResource {
		if err := s.arbiter.Release(p.Resource, id); err != nil {
			return "", err
		}
		p.HoldsResource = false
	}
	if err := s.registry.Vacate(id, execution.StateTerminated, now); err != nil {
		return "", err
	}
	s.tracker.Update(progress.Delta{Terminated: 1})
	s.publish(ctx, LoopExecution, id, execution.StateRunning, execution.StateTerminated, "retry limit reached")
	return execution.StateTerminated, s.check()
}

// Blocked returns copies of the Blocked processes, oldest first.
func (s *State) Blocked() []*execution.Process {
	s.mu.Lock()
	defer s.mu.Unlock()
	blocked := s.registry.Queue(execution.StateBlocked)
	out := make([]*execution.Process, 0, len(blocked))
	for _, p := range blocked {
		out = append(out, p.Clone())
	}
	return out
}

// Unblock promotes the Blocked process id to Ready. A process already
// holding its resource is promoted unconditionally; otherwise one
// acquisition attempt is made and false is returned when it fails.
func (s *State) Unblock(ctx context.Context, id int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.registry.Load(ctx, id)
	if err != nil || p.State != execution.StateBlocked {
		return false, nil
	}
	reason := "resource held"
	if !p.HoldsResource {
		acquired, err := s.arbiter.TryAcquire(p.Resource, id)
		if err != nil {
			return false, err
		}
		if !acquired {
			s.tracker.Update(progress.Delta{AcquisitionMiss: 1})
			return false, nil
		}
		p.HoldsResource = true
		reason = "resource acquired"
	}
	if err = s.registry.Move(id, execution.StateBlocked, execution.StateReady, s.clock.Now()); err != nil {
		return false, err
	}
	s.tracker.Update(progress.Delta{Unblocked: 1})
	s.publish(ctx, LoopUnblock, id, execution.StateBlocked, execution.StateReady, reason)
	return true, s.check()
}

// Prune evicts Terminated processes and returns how many were removed.
func (s *State) Prune(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	terminated := s.registry.Queue(execution.StateTerminated)
	for _, p := range terminated {
		if err := s.registry.Delete(ctx, p.ID); err != nil {
			return 0, err
		}
	}
	return len(terminated), nil
}

// Verify checks every cross-component invariant.
func (s *State) Verify() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.verifyLocked()
}

func (s *State) check() error {
	if !s.verify {
		return nil
	}
	return s.verifyLocked()
}

func (s *State) verifyLocked() error {
	if err := s.registry.Verify(); err != nil {
		return err
	}
	processes, err := s.registry.List(context.Background())
	if err != nil {
		return err
	}
	owned := 0
	for _, p := range processes {
		if p.State.OwnsPages() {
			if !s.pager.Owns(p.ID) || len(p.Pages) != s.pager.PagesFor(p.Demand) {
				return types.NewInvariantError(component, "P%d in %s owns %d pages, expected %d", p.ID, p.State, len(p.Pages), s.pager.PagesFor(p.Demand))
			}
			owned += len(p.Pages)
		} else if s.pager.Owns(p.ID) || len(p.Pages) > 0 {
			return types.NewInvariantError(component, "P%d in %s owns pages", p.ID, p.State)
		}
		if p.State == execution.StateTerminated && p.HoldsResource {
			return types.NewInvariantError(component, "P%d terminated while holding R%d", p.ID, p.Resource)
		}
		if p.BlockCount > s.retryLimit {
			return types.NewInvariantError(component, "P%d blocked %d times, limit %d", p.ID, p.BlockCount, s.retryLimit)
		}
		if p.HoldsResource {
			if holder, ok := s.arbiter.Holder(p.Resource); !ok || holder != p.ID {
				return types.NewInvariantError(component, "P%d claims R%d held by P%d", p.ID, p.Resource, holder)
			}
		} else if resource, ok := s.arbiter.HeldBy(p.ID); ok {
			return types.NewInvariantError(component, "P%d holds R%d without claiming it", p.ID, resource)
		}
	}
	slots := s.pager.Slots()
	occupied := 0
	for i, owner := range slots {
		if owner == pager.Empty {
			continue
		}
		if i != occupied {
			return types.NewInvariantError(component, "page table not compacted: slot %d occupied after a gap", i)
		}
		occupied++
	}
	if occupied != owned {
		return types.NewInvariantError(component, "page table holds %d pages, processes own %d", occupied, owned)
	}
	for resource, holder := range s.arbiter.Holders() {
		if holder == arbiter.Free {
			continue
		}
		p, err := s.registry.Load(context.Background(), holder)
		if err != nil || !p.HoldsResource || p.Resource != resource {
			return types.NewInvariantError(component, "%s held by P%d which does not claim it", arbiter.Name(resource), holder)
		}
	}
	return nil
}

func (s *State) publish(ctx context.Context, loop string, id int, from, to execution.State, reason string) {
	if s.events == nil {
		return
	}
	transition := execution.Transition{ProcessID: id, From: from, To: to, At: s.clock.Now(), Reason: reason}
	// a full queue drops the event; Dropped() on the event service counts it
	_ = s.events.Publish(ctx, loop, transition)
}

func ids(processes []*execution.Process) []int {
	out := make([]int, 0, len(processes))
	for _, p := range processes {
		out = append(out, p.ID)
	}
	return out
}
