package pager

import (
	"sync"

	"github.com/viant/pagesim/model/types"
	"github.com/viant/pagesim/runtime/execution"
)

// Empty marks a free slot; process ids start at 1.
const Empty = 0

const component = "pager"

// Table is a thread-safe page table.
type Table struct {
	mux       sync.Mutex
	pageSize  int
	slots     []int
	residents map[int]*execution.Process
}

// New creates a table of totalMB/pageSizeMB slots.
func New(totalMB, pageSizeMB int) *Table {
	count := 0
	if pageSizeMB > 0 {
		count = totalMB / pageSizeMB
	}
	return &Table{
		pageSize:  pageSizeMB,
		slots:     make([]int, count),
		residents: map[int]*execution.Process{},
	}
}

// PageSize returns the page size in MB
func (t *Table) PageSize() int { return t.pageSize }

// Len returns the number of slots
func (t *Table) Len() int { return len(t.slots) }

// PagesFor returns ceil(demand / page size).
func (t *Table) PagesFor(demand int) int {
	return (demand + t.pageSize - 1) / t.pageSize
}

// Compact moves occupied slots to the front preserving their relative order.
func (t *Table) Compact() {
	t.mux.Lock()
	defer t.mux.Unlock()
	t.compact()
}

func (t *Table) compact() {
	next := 0
	for _, owner := range t.slots {
		if owner == Empty {
			continue
		}
		t.slots[next] = owner
		next++
	}
	for i := next; i < len(t.slots); i++ {
		t.slots[i] = Empty
	}
	t.refreshResidents()
}

// refreshResidents rewrites every resident page list from the table.
func (t *Table) refreshResidents() {
	for _, p := range t.residents {
		p.Pages = p.Pages[:0]
	}
	for i, owner := range t.slots {
		if owner == Empty {
			continue
		}
		if p, ok := t.residents[owner]; ok {
			p.Pages = append(p.Pages, i)
		}
	}
}

// Allocate assigns ceil(demand/pageSize) empty slots to p in index order.
// It returns false, changing nothing, when there are not enough empty slots.
func (t *Table) Allocate(p *execution.Process) (bool, error) {
	if err := types.ValidateDemand(p.Demand); err != nil {
		return false, types.NewInvariantError(component, "P%d: %v", p.ID, err)
	}
	t.mux.Lock()
	defer t.mux.Unlock()
	if _, ok := t.residents[p.ID]; ok {
		return false, types.NewInvariantError(component, "P%d already owns pages", p.ID)
	}
	needed := t.PagesFor(p.Demand)
	if t.free() < needed {
		return false, nil
	}
	t.compact()
	pages := make([]int, 0, needed)
	for i := 0; i < len(t.slots) && len(pages) < needed; i++ {
		if t.slots[i] == Empty {
			t.slots[i] = p.ID
			pages = append(pages, i)
		}
	}
	p.Pages = pages
	t.residents[p.ID] = p
	return true, nil
}

// Free clears every slot owned by p, empties its page list and compacts.
func (t *Table) Free(p *execution.Process) error {
	t.mux.Lock()
	defer t.mux.Unlock()
	if _, ok := t.residents[p.ID]; !ok {
		return types.NewInvariantError(component, "P%d does not own pages (double free?)", p.ID)
	}
	for i, owner := range t.slots {
		if owner == p.ID {
			t.slots[i] = Empty
		}
	}
	delete(t.residents, p.ID)
	p.Pages = nil
	t.compact()
	return nil
}

// Owns reports whether the process id currently owns pages.
func (t *Table) Owns(id int) bool {
	t.mux.Lock()
	defer t.mux.Unlock()
	_, ok := t.residents[id]
	return ok
}

// FreePages returns the number of empty slots.
func (t *Table) FreePages() int {
	t.mux.Lock()
	defer t.mux.Unlock()
	return t.free()
}

func (t *Table) free() int {
	count := 0
	for _, owner := range t.slots {
		if owner == Empty {
			count++
		}
	}
	return count
}

// UsedMB returns occupied pages times page size.
func (t *Table) UsedMB() int {
	t.mux.Lock()
	defer t.mux.Unlock()
	return (len(t.slots) - t.free()) * t.pageSize
}

// TotalMB returns the addressable memory, i.e. slots times page size.
func (t *Table) TotalMB() int {
	return len(t.slots) * t.pageSize
}

// Slots returns a copy of the table, slot index -> owner id or Empty.
func (t *Table) Slots() []int {
	t.mux.Lock()
	defer t.mux.Unlock()
	return append([]int(nil), t.slots...)
}
