package arbiter

import (
	"fmt"
	"sync"

	"github.com/viant/pagesim/model/types"
)

// Free marks an unheld resource.
const Free = 0

const component = "arbiter"

// Service arbitrates exclusive resources
type Service struct {
	mux     sync.Mutex
	holders []int
	// held maps a process id to the resource it holds
	held map[int]int
}

// New creates an arbiter with count resources, R0..R(count-1)
func New(count int) *Service {
	return &Service{
		holders: make([]int, count),
		held:    map[int]int{},
	}
}

// Len returns the number of resources
func (s *Service) Len() int {
	return len(s.holders)
}

// TryAcquire marks resource as held by processID if it is free. It never
// blocks; a busy resource yields false with no error.
func (s *Service) TryAcquire(resource, processID int) (bool, error) {
	if err := s.validate(resource, processID); err != nil {
		return false, err
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	if err := s.checkHeld(processID); err != nil {
		return false, err
	}
	if s.holders[resource] != Free {
		return false, nil
	}
	s.holders[resource] = processID
	s.held[processID] = resource
	return true, nil
}

// Release frees resource; processID must be the current holder.
func (s *Service) Release(resource, processID int) error {
	if err := s.validate(resource, processID); err != nil {
		return err
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	holder := s.holders[resource]
	if holder == Free {
		return types.NewInvariantError(component, "release of R%d by P%d: resource is not held", resource, processID)
	}
	if holder != processID {
		return types.NewInvariantError(component, "release of R%d by P%d: held by P%d", resource, processID, holder)
	}
	s.holders[resource] = Free
	delete(s.held, processID)
	return nil
}

// Holder returns the process holding resource.
func (s *Service) Holder(resource int) (int, bool) {
	s.mux.Lock()
	defer s.mux.Unlock()
	if resource < 0 || resource >= len(s.holders) {
		return Free, false
	}
	holder := s.holders[resource]
	return holder, holder != Free
}

// HeldBy returns the resource held by processID.
func (s *Service) HeldBy(processID int) (int, bool) {
	s.mux.Lock()
	defer s.mux.Unlock()
	resource, ok := s.held[processID]
	return resource, ok
}

// Holders returns a copy of resource -> holder, Free when unheld.
func (s *Service) Holders() []int {
	s.mux.Lock()
	defer s.mux.Unlock()
	return append([]int(nil), s.holders...)
}

// CanAcquire returns the invariant violation TryAcquire would report for
// resource and processID, or nil. A busy resource is not a violation.
func (s *Service) CanAcquire(resource, processID int) error {
	if err := s.validate(resource, processID); err != nil {
		return err
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.checkHeld(processID)
}

func (s *Service) checkHeld(processID int) error {
	if current, ok := s.held[processID]; ok {
		return types.NewInvariantError(component, "P%d already holds R%d", processID, current)
	}
	return nil
}

func (s *Service) validate(resource, processID int) error {
	if resource < 0 || resource >= len(s.holders) {
		return types.NewInvariantError(component, "unknown resource R%d (have %d)", resource, len(s.holders))
	}
	if processID <= 0 {
		return types.NewInvariantError(component, "invalid process id %d", processID)
	}
	return nil
}

// Name returns the display name of a resource
func Name(resource int) string {
	return fmt.Sprintf("R%d", resource)
}
