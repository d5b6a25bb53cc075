package idgen

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// NewFunc returns a new globally unique identifier. Override in tests.
var NewFunc = func() string { return uuid.New().String() }

func New() string { return NewFunc() }

// Sequence issues strictly increasing integer ids starting at 1.
type Sequence struct {
	last atomic.Int64
}

// Next returns the next id.
func (s *Sequence) Next() int {
	return int(s.last.Add(1))
}

// Last returns the most recently issued id, 0 when none was issued.
func (s *Sequence) Last() int {
	return int(s.last.Load())
}
