package event

import (
	"context"
	"sync"

	"github.com/viant/pagesim/runtime/execution"
	"github.com/viant/pagesim/service/messaging/memory"
)

// Transition is the lifecycle event payload
type Transition = Event[execution.Transition]

// Service carries lifecycle transitions from the simulation to observers.
// Publishing never blocks; events are dropped when nobody drains the queue.
type Service struct {
	queueConfig memory.Config
	queue       *memory.Queue[Transition]
	publisher   *Publisher[execution.Transition]
	listener    *Listener[execution.Transition]
	mux         sync.Mutex
}

func New(opts ...Option) *Service {
	ret := &Service{queueConfig: memory.DefaultConfig()}
	for _, opt := range opts {
		opt(ret)
	}
	ret.queue = memory.NewQueue[Transition](ret.queueConfig)
	ret.publisher = NewPublisher[execution.Transition](ret.queue)
	return ret
}

// Publish emits a transition event
func (s *Service) Publish(ctx context.Context, loop string, transition execution.Transition) error {
	eCtx := &Context{ProcessID: transition.ProcessID, EventType: string(transition.To), Loop: loop}
	return s.publisher.Publish(ctx, NewEvent(eCtx, transition, transition.At))
}

// Listen replaces the current listener with handler.
func (s *Service) Listen(handler func(*Transition)) {
	s.mux.Lock()
	defer s.mux.Unlock()
	if s.listener != nil {
		s.listener.Stop()
	}
	s.listener = NewListener[execution.Transition](s.publisher, handler)
	s.listener.Start()
}

// Stop stops the active listener, if any
func (s *Service) Stop() {
	s.mux.Lock()
	defer s.mux.Unlock()
	if s.listener != nil {
		s.listener.Stop()
		s.listener = nil
	}
}

// Drain returns all queued transitions without waiting.
func (s *Service) Drain() []execution.Transition {
	var out []execution.Transition
	for {
		msg := s.queue.TryConsume()
		if msg == nil {
			return out
		}
		_ = msg.Ack()
		out = append(out, msg.T().Data)
	}
}

// Dropped returns the number of events lost to a full queue
func (s *Service) Dropped() int64 {
	return s.queue.Dropped()
}
