package simulation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/viant/pagesim/progress"
	"github.com/viant/pagesim/runtime/execution"
	"github.com/viant/pagesim/service/arbiter"
	"github.com/viant/pagesim/service/dao"
	"github.com/viant/pagesim/service/pager"
)

const gridWidth = 10

// ProcessView is a read-only copy of a process
type ProcessView struct {
	ID            int             `json:"id"`
	Demand        int             `json:"demand"`
	Resource      int             `json:"resource"`
	State         execution.State `json:"state"`
	HoldsResource bool            `json:"holdsResource"`
	BlockCount    int             `json:"blockCount"`
	Pages         []int           `json:"pages,omitempty"`
}

func (v ProcessView) String() string {
	return fmt.Sprintf("P%d: (%d MB) Resource: %s", v.ID, v.Demand, arbiter.Name(v.Resource))
}

// ResourceView describes one resource slot
type ResourceView struct {
	ID     int `json:"id"`
	Holder int `json:"holder,omitempty"`
	// Waiting lists Blocked processes bound to the resource that do not hold it, oldest first
	Waiting []int `json:"waiting,omitempty"`
}

// Held reports whether a process holds the resource
func (v ResourceView) Held() bool { return v.Holder != arbiter.Free }

func (v ResourceView) String() string {
	ret := arbiter.Name(v.ID) + ": Free"
	if v.Held() {
		ret = fmt.Sprintf("%s: Held by P%d", arbiter.Name(v.ID), v.Holder)
	}
	if len(v.Waiting) == 0 {
		return ret
	}
	waiting := make([]string, 0, len(v.Waiting))
	for _, id := range v.Waiting {
		waiting = append(waiting, fmt.Sprintf("P%d", id))
	}
	return ret + " (waiting: " + strings.Join(waiting, ", ") + ")"
}

// Snapshot is a consistent view of the whole simulation at one instant.
type Snapshot struct {
	TakenAt       time.Time         `json:"takenAt"`
	MemoryUsedMB  int               `json:"memoryUsedMB"`
	MemoryTotalMB int               `json:"memoryTotalMB"`
	PageSizeMB    int               `json:"pageSizeMB"`
	FreePages     int               `json:"freePages"`
	Pages         []int             `json:"pages"`
	New           []ProcessView     `json:"new"`
	Ready         []ProcessView     `json:"ready"`
	Running       *ProcessView      `json:"running,omitempty"`
	Blocked       []ProcessView     `json:"blocked"`
	Terminated    []ProcessView     `json:"terminated"`
	Resources     []ResourceView    `json:"resources"`
	Counters      progress.Counters `json:"counters"`
}

// Snapshot copies the state under the coordinator lock.
func (s *State) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	ret := &Snapshot{
		TakenAt:       s.clock.Now(),
		MemoryUsedMB:  s.pager.UsedMB(),
		MemoryTotalMB: s.pager.TotalMB(),
		PageSizeMB:    s.pager.PageSize(),
		FreePages:     s.pager.FreePages(),
		Pages:         s.pager.Slots(),
		New:           views(s.registry.Queue(execution.StateNew)),
		Ready:         views(s.registry.Queue(execution.StateReady)),
		Blocked:       views(s.registry.Queue(execution.StateBlocked)),
		Terminated:    views(s.registry.Queue(execution.StateTerminated)),
		Counters:      s.tracker.Snapshot(),
	}
	if running := s.registry.Running(); running != nil {
		view := viewOf(running)
		ret.Running = &view
	}
	for resource, holder := range s.arbiter.Holders() {
		ret.Resources = append(ret.Resources, ResourceView{ID: resource, Holder: holder, Waiting: s.waiting(resource)})
	}
	return ret
}

// waiting returns the Blocked processes bound to resource that still need to acquire it.
func (s *State) waiting(resource int) []int {
	blocked, err := s.registry.List(context.Background(),
		dao.NewParameter("State", string(execution.StateBlocked)),
		dao.NewIntParameter("Resource", resource))
	if err != nil {
		return nil
	}
	var ret []int
	for _, p := range blocked {
		if !p.HoldsResource {
			ret = append(ret, p.ID)
		}
	}
	return ret
}

// Find returns the view of process id wherever it lives.
func (s *Snapshot) Find(id int) (*ProcessView, bool) {
	if s.Running != nil && s.Running.ID == id {
		return s.Running, true
	}
	for _, list := range [][]ProcessView{s.New, s.Ready, s.Blocked, s.Terminated} {
		for i := range list {
			if list[i].ID == id {
				return &list[i], true
			}
		}
	}
	return nil, false
}

// String renders memory, page occupancy, lists and resources for a terminal.
func (s *Snapshot) String() string {
	builder := strings.Builder{}
	fmt.Fprintf(&builder, "Memory: %d/%d MB (page %d MB, %d pages free)\n", s.MemoryUsedMB, s.MemoryTotalMB, s.PageSizeMB, s.FreePages)
	for i, owner := range s.Pages {
		if i > 0 && i%gridWidth == 0 {
			builder.WriteString("\n")
		}
		if owner == pager.Empty {
			builder.WriteString("[ -- ]")
		} else {
			fmt.Fprintf(&builder, "[P%3d]", owner)
		}
	}
	builder.WriteString("\n")
	writeList(&builder, "New", s.New)
	writeList(&builder, "Ready", s.Ready)
	if s.Running != nil {
		fmt.Fprintf(&builder, "Running: %v\n", s.Running)
	} else {
		builder.WriteString("Running: -\n")
	}
	writeList(&builder, "Blocked", s.Blocked)
	writeList(&builder, "Terminated", s.Terminated)
	builder.WriteString("Resources:\n")
	for _, resource := range s.Resources {
		fmt.Fprintf(&builder, "  %v\n", resource)
	}
	return builder.String()
}

func writeList(builder *strings.Builder, name string, list []ProcessView) {
	fmt.Fprintf(builder, "%s:\n", name)
	for _, view := range list {
		fmt.Fprintf(builder, "  %v\n", view)
	}
}

func views(processes []*execution.Process) []ProcessView {
	out := make([]ProcessView, 0, len(processes))
	for _, p := range processes {
		out = append(out, viewOf(p))
	}
	return out
}

func viewOf(p *execution.Process) ProcessView {
	return ProcessView{
		ID:            p.ID,
		Demand:        p.Demand,
		Resource:      p.Resource,
		State:         p.State,
		HoldsResource: p.HoldsResource,
		BlockCount:    p.BlockCount,
		Pages:         append([]int(nil), p.Pages...),
	}
}
