package pager

import (
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/pagesim/model/types"
	"github.com/viant/pagesim/runtime/execution"
)

func newProcess(id, demand int) *execution.Process {
	return execution.NewProcess(id, demand, 0, time.Now())
}

func occupants(slots []int) []int {
	var out []int
	for _, owner := range slots {
		if owner != Empty {
			out = append(out, owner)
		}
	}
	sort.Ints(out)
	return out
}

func TestTable_Compact(t *testing.T) {
	testCases := []struct {
		name   string
		slots  []int
		expect []int
	}{
		{name: "empty", slots: []int{0, 0, 0}, expect: []int{0, 0, 0}},
		{name: "already compact", slots: []int{1, 1, 2, 0}, expect: []int{1, 1, 2, 0}},
		{name: "gaps", slots: []int{0, 1, 0, 2, 2, 0, 3}, expect: []int{1, 2, 2, 3, 0, 0, 0}},
		{name: "interleaved owners", slots: []int{2, 0, 1, 2, 0, 1}, expect: []int{2, 1, 2, 1, 0, 0}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			table := New(len(tc.slots)*50, 50)
			copy(table.slots, tc.slots)
			table.Compact()
			assert.Equal(t, tc.expect, table.Slots())
		})
	}
}

func TestTable_CompactProperties(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		size := 1 + rnd.Intn(30)
		table := New(size*50, 50)
		for j := range table.slots {
			table.slots[j] = rnd.Intn(5)
		}
		before := occupants(table.Slots())

		table.Compact()
		once := table.Slots()
		table.Compact()
		twice := table.Slots()

		assert.Equal(t, once, twice, "compaction must be idempotent")
		assert.Equal(t, before, occupants(once), "compaction must conserve occupants")
		seenEmpty := false
		for _, owner := range once {
			if owner == Empty {
				seenEmpty = true
				continue
			}
			assert.False(t, seenEmpty, "occupied slot after an empty one: %v", once)
		}
	}
}

func TestTable_Allocate(t *testing.T) {
	table := New(1000, 50)
	assert.Equal(t, 20, table.Len())
	p := newProcess(1, 120)

	ok, err := table.Allocate(p)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []int{0, 1, 2}, p.Pages)
	assert.Equal(t, 150, table.UsedMB())
	assert.Equal(t, 1000, table.TotalMB())
	assert.Equal(t, 17, table.FreePages())
	assert.True(t, table.Owns(1))
}

func TestTable_AllocateAtomicity(t *testing.T) {
	table := New(1000, 50)
	big := newProcess(1, 950)
	ok, err := table.Allocate(big)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, big.Pages, 19)

	// fragment the table by hand to make sure a failed call does not compact
	table.slots[0], table.slots[19] = Empty, 1
	before := table.Slots()

	small := newProcess(2, 100)
	small.Pages = []int{42}
	ok, err = table.Allocate(small)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, before, table.Slots())
	assert.Equal(t, []int{42}, small.Pages)
	assert.False(t, table.Owns(2))
}

func TestTable_FreeCompactsAndRefreshesResidents(t *testing.T) {
	table := New(500, 50)
	first, second, third := newProcess(1, 100), newProcess(2, 60), newProcess(3, 50)
	for _, p := range []*execution.Process{first, second, third} {
		ok, err := table.Allocate(p)
		require.NoError(t, err)
		require.True(t, ok)
	}
	assert.Equal(t, []int{2, 3}, second.Pages)
	assert.Equal(t, []int{4}, third.Pages)

	require.NoError(t, table.Free(first))
	assert.Nil(t, first.Pages)
	assert.Equal(t, []int{2, 2, 3, 0, 0, 0, 0, 0, 0, 0}, table.Slots())
	assert.Equal(t, []int{0, 1}, second.Pages)
	assert.Equal(t, []int{2}, third.Pages)

	err := table.Free(first)
	assert.True(t, types.IsInvariant(err), "double free must be reported")
}

func TestTable_AllocateInvariants(t *testing.T) {
	table := New(1000, 50)
	p := newProcess(1, 50)
	ok, err := table.Allocate(p)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = table.Allocate(p)
	assert.True(t, types.IsInvariant(err))

	_, err = table.Allocate(newProcess(2, 0))
	assert.True(t, types.IsInvariant(err))
}

func TestTable_PagesFor(t *testing.T) {
	table := New(1000, 50)
	assert.Equal(t, 3, table.PagesFor(120))
	assert.Equal(t, 19, table.PagesFor(950))
	assert.Equal(t, 2, table.PagesFor(100))
	assert.Equal(t, 1, table.PagesFor(1))
}
