package policy

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// Assigner chooses the resource a new process is bound to for its whole life.
type Assigner interface {
	// Assign returns an index in [0, resources).
	Assign(resources int) int
}

// AssignFunc adapts a function to Assigner.
type AssignFunc func(resources int) int

func (f AssignFunc) Assign(resources int) int { return f(resources) }

// Random picks a resource uniformly.
type Random struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRandom creates a uniform assigner; seed 0 seeds from the wall clock.
func NewRandom(seed int64) *Random {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Random{rnd: rand.New(rand.NewSource(seed))}
}

func (r *Random) Assign(resources int) int {
	if resources <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.Intn(resources)
}

// Int returns a uniform value in [min, max].
func (r *Random) Int(min, max int) int {
	if max <= min {
		return min
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return min + r.rnd.Intn(max-min+1)
}

// RoundRobin cycles through resources in order.
type RoundRobin struct {
	mu   sync.Mutex
	next int
}

func (r *RoundRobin) Assign(resources int) int {
	if resources <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	ret := r.next % resources
	r.next++
	return ret
}

// Fixed replays a scripted sequence of resources, then repeats the last one.
type Fixed struct {
	mu       sync.Mutex
	sequence []int
	index    int
}

// NewFixed creates a scripted assigner
func NewFixed(sequence ...int) *Fixed {
	return &Fixed{sequence: sequence}
}

func (f *Fixed) Assign(resources int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sequence) == 0 {
		return 0
	}
	i := f.index
	if i >= len(f.sequence) {
		i = len(f.sequence) - 1
	} else {
		f.index++
	}
	return f.sequence[i]
}

// Assigner names accepted by ByName
const (
	AssignRandom     = "random"
	AssignRoundRobin = "round-robin"
)

// ByName returns the named assigner; random draws from the supplied source.
func ByName(name string, random *Random) (Assigner, error) {
	switch name {
	case "", AssignRandom:
		if random == nil {
			random = NewRandom(0)
		}
		return random, nil
	case AssignRoundRobin:
		return &RoundRobin{}, nil
	}
	return nil, fmt.Errorf("unsupported assigner: %q", name)
}

// DemandGenerator draws memory demands for randomly generated processes.
// It is safe for concurrent use.
type DemandGenerator struct {
	MinMB  int
	MaxMB  int
	Random *Random
	once   sync.Once
}

// NewDemandGenerator creates a generator drawing from random; nil seeds a
// new source from the wall clock.
func NewDemandGenerator(minMB, maxMB int, random *Random) *DemandGenerator {
	if random == nil {
		random = NewRandom(0)
	}
	return &DemandGenerator{MinMB: minMB, MaxMB: maxMB, Random: random}
}

// Draw returns a demand in [MinMB, MaxMB].
func (g *DemandGenerator) Draw() int {
	g.once.Do(func() {
		if g.Random == nil {
			g.Random = NewRandom(0)
		}
	})
	return g.Random.Int(g.MinMB, g.MaxMB)
}
