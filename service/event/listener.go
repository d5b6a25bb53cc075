package event

import (
	"context"
	"errors"
	"sync"
)

type Listener[T any] struct {
	publisher *Publisher[T]
	handler   func(*Event[T])
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

func NewListener[T any](publisher *Publisher[T], handler func(*Event[T])) *Listener[T] {
	ctx, cancel := context.WithCancel(context.Background())
	return &Listener[T]{
		publisher: publisher,
		handler:   handler,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Stop cancels the listener and waits for the consuming goroutine to exit
func (l *Listener[T]) Stop() {
	l.cancel()
	l.wg.Wait()
}

func (l *Listener[T]) Start() {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		for {
			event, err := l.publisher.Consume(l.ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				continue
			}
			if event != nil {
				l.handler(event)
			}
		}
	}()
}
