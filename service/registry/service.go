package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/viant/pagesim/model/types"
	"github.com/viant/pagesim/runtime/execution"
	"github.com/viant/pagesim/service/dao"
	"github.com/viant/pagesim/service/dao/criteria"
)

const component = "registry"

// Service implements an in-memory, thread-safe process registry. Returned
// processes are live; callers outside the simulation lock must clone them.
type Service struct {
	mux       sync.RWMutex
	processes map[int]*execution.Process
	queues    map[execution.State][]int
	running   int
}

var _ dao.Service[int, execution.Process] = (*Service)(nil)

// New creates an empty registry
func New() *Service {
	ret := &Service{
		processes: map[int]*execution.Process{},
		queues:    map[execution.State][]int{},
	}
	for _, state := range execution.Queued {
		ret.queues[state] = nil
	}
	return ret
}

// Save registers a new process at the tail of the New list.
func (s *Service) Save(_ context.Context, p *execution.Process) error {
	if p == nil {
		return dao.ErrNilEntity
	}
	if p.ID <= 0 {
		return dao.ErrInvalidID
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	if existing, ok := s.processes[p.ID]; ok {
		if existing == p {
			return nil
		}
		return types.NewInvariantError(component, "P%d registered twice", p.ID)
	}
	if p.State != execution.StateNew {
		return types.NewInvariantError(component, "P%d registered in state %q, expected %q", p.ID, p.State, execution.StateNew)
	}
	s.processes[p.ID] = p
	s.queues[execution.StateNew] = append(s.queues[execution.StateNew], p.ID)
	return nil
}

func (s *Service) Load(_ context.Context, id int) (*execution.Process, error) {
	if id <= 0 {
		return nil, dao.ErrInvalidID
	}
	s.mux.RLock()
	defer s.mux.RUnlock()
	p, ok := s.processes[id]
	if !ok {
		return nil, dao.ErrNotFound
	}
	return p, nil
}

// Delete evicts a terminated process.
func (s *Service) Delete(_ context.Context, id int) error {
	if id <= 0 {
		return dao.ErrInvalidID
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	p, ok := s.processes[id]
	if !ok {
		return dao.ErrNotFound
	}
	if !p.State.IsTerminal() {
		return types.NewInvariantError(component, "P%d cannot be deleted in state %q", id, p.State)
	}
	if err := s.remove(execution.StateTerminated, id); err != nil {
		return err
	}
	delete(s.processes, id)
	return nil
}

// List returns matching processes ordered New, Ready, Running, Blocked, Terminated.
func (s *Service) List(_ context.Context, parameters ...*dao.Parameter) ([]*execution.Process, error) {
	s.mux.RLock()
	defer s.mux.RUnlock()
	out := make([]*execution.Process, 0, len(s.processes))
	appendIf := func(p *execution.Process) {
		if p != nil && criteria.Match(p, parameters) {
			out = append(out, p)
		}
	}
	for _, state := range []execution.State{execution.StateNew, execution.StateReady} {
		for _, id := range s.queues[state] {
			appendIf(s.processes[id])
		}
	}
	if s.running != 0 {
		appendIf(s.processes[s.running])
	}
	for _, state := range []execution.State{execution.StateBlocked, execution.StateTerminated} {
		for _, id := range s.queues[state] {
			appendIf(s.processes[id])
		}
	}
	return out, nil
}

// Queue returns the processes of a membership list in list order.
func (s *Service) Queue(state execution.State) []*execution.Process {
	s.mux.RLock()
	defer s.mux.RUnlock()
	if state == execution.StateRunning {
		if s.running == 0 {
			return nil
		}
		return []*execution.Process{s.processes[s.running]}
	}
	ids := s.queues[state]
	out := make([]*execution.Process, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.processes[id])
	}
	return out
}

// Len returns the size of a membership list
func (s *Service) Len(state execution.State) int {
	s.mux.RLock()
	defer s.mux.RUnlock()
	if state == execution.StateRunning {
		if s.running == 0 {
			return 0
		}
		return 1
	}
	return len(s.queues[state])
}

// Running returns the process in the running slot or nil.
func (s *Service) Running() *execution.Process {
	s.mux.RLock()
	defer s.mux.RUnlock()
	if s.running == 0 {
		return nil
	}
	return s.processes[s.running]
}

// Move removes id from the from list and appends it to the to list.
func (s *Service) Move(id int, from, to execution.State, now time.Time) error {
	if from == execution.StateRunning || to == execution.StateRunning {
		return types.NewInvariantError(component, "P%d: running slot changes go through Dispatch/Vacate", id)
	}
	if !execution.CanTransition(from, to) {
		return types.NewInvariantError(component, "P%d: illegal transition %s -> %s", id, from, to)
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	p, ok := s.processes[id]
	if !ok {
		return types.NewInvariantError(component, "P%d is not registered", id)
	}
	if err := s.remove(from, id); err != nil {
		return err
	}
	s.queues[to] = append(s.queues[to], id)
	p.SetState(to, now)
	return nil
}

// Dispatch atomically claims the running slot for the head of the Ready
// list. It returns false when the slot is busy or nothing is ready.
func (s *Service) Dispatch(now time.Time) (*execution.Process, bool) {
	s.mux.Lock()
	defer s.mux.Unlock()
	ready := s.queues[execution.StateReady]
	if s.running != 0 || len(ready) == 0 {
		return nil, false
	}
	id := ready[0]
	s.queues[execution.StateReady] = ready[1:]
	s.running = id
	p := s.processes[id]
	p.SetState(execution.StateRunning, now)
	return p, true
}

// Vacate clears the running slot held by id and appends it to the to list.
func (s *Service) Vacate(id int, to execution.State, now time.Time) error {
	if !execution.CanTransition(execution.StateRunning, to) {
		return types.NewInvariantError(component, "P%d: illegal transition running -> %s", id, to)
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	if s.running != id {
		return types.NewInvariantError(component, "P%d is not running (running: P%d)", id, s.running)
	}
	s.running = 0
	s.queues[to] = append(s.queues[to], id)
	s.processes[id].SetState(to, now)
	return nil
}

func (s *Service) remove(state execution.State, id int) error {
	ids := s.queues[state]
	for i, candidate := range ids {
		if candidate == id {
			s.queues[state] = append(ids[:i:i], ids[i+1:]...)
			return nil
		}
	}
	return types.NewInvariantError(component, "P%d is not in the %s list", id, state)
}

// Verify checks that each process appears in exactly one place and that its
// state matches that place.
func (s *Service) Verify() error {
	s.mux.RLock()
	defer s.mux.RUnlock()
	seen := make(map[int]execution.State, len(s.processes))
	place := func(id int, state execution.State) error {
		if previous, ok := seen[id]; ok {
			return types.NewInvariantError(component, "P%d appears in both %s and %s", id, previous, state)
		}
		seen[id] = state
		p, ok := s.processes[id]
		if !ok {
			return types.NewInvariantError(component, "P%d listed in %s but not registered", id, state)
		}
		if p.State != state {
			return types.NewInvariantError(component, "P%d listed in %s but in state %s", id, state, p.State)
		}
		return nil
	}
	for _, state := range execution.Queued {
		for _, id := range s.queues[state] {
			if err := place(id, state); err != nil {
				return err
			}
		}
	}
	if s.running != 0 {
		if err := place(s.running, execution.StateRunning); err != nil {
			return err
		}
	}
	if len(seen) != len(s.processes) {
		for id := range s.processes {
			if _, ok := seen[id]; !ok {
				return types.NewInvariantError(component, "P%d is in no list", id)
			}
		}
	}
	return nil
}

// String summarises list sizes, useful in logs.
func (s *Service) String() string {
	return fmt.Sprintf("new=%d ready=%d running=%d blocked=%d terminated=%d",
		s.Len(execution.StateNew), s.Len(execution.StateReady), s.Len(execution.StateRunning),
		s.Len(execution.StateBlocked), s.Len(execution.StateTerminated))
}
