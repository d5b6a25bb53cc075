package execution

import (
	"fmt"
	"time"
)

// Process represents a simulated process. Mutable fields are only changed by
// the simulation coordinator while holding its lock; everyone else works on
// clones.
type Process struct {
	ID int `json:"id"`
	// Demand is the memory demand in MB
	Demand int `json:"demand"`
	State  State `json:"state"`
	// Resource is fixed at creation
	Resource      int       `json:"resource"`
	HoldsResource bool      `json:"holdsResource"`
	BlockCount    int       `json:"blockCount"`
	Pages         []int     `json:"pages,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// NewProcess creates a process in New state
func NewProcess(id, demand, resource int, now time.Time) *Process {
	return &Process{
		ID:        id,
		Demand:    demand,
		State:     StateNew,
		Resource:  resource,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy.
func (p *Process) Clone() *Process {
	if p == nil {
		return nil
	}
	out := *p
	if p.Pages != nil {
		out.Pages = append([]int(nil), p.Pages...)
	}
	return &out
}

// SetState updates the state and the modification time
func (p *Process) SetState(state State, now time.Time) {
	p.State = state
	p.UpdatedAt = now
}

// String renders the process as "P<id>: (<demand> MB) Resource: R<resource>"
func (p *Process) String() string {
	return fmt.Sprintf("P%d: (%d MB) Resource: R%d", p.ID, p.Demand, p.Resource)
}

// Transition records a single lifecycle move.
type Transition struct {
	ProcessID int       `json:"processId"`
	From      State     `json:"from"`
	To        State     `json:"to"`
	At        time.Time `json:"at"`
	// Reason is a short, human readable cause e.g. "pages allocated"
	Reason string `json:"reason,omitempty"`
}

func (t Transition) String() string {
	from := t.From
	if from == "" {
		from = "-"
	}
	return fmt.Sprintf("P%d %s -> %s (%s)", t.ProcessID, from, t.To, t.Reason)
}
