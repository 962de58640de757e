package event

import (
	"context"
	"log"
)

// Listener pumps events from a publisher's queue into a handler on its own
// goroutine until Stop is called.
type Listener[T any] struct {
	publisher *Publisher[T]
	handler   func(*Event[T])
	ctx       context.Context
	cancel    context.CancelFunc
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

// Stop terminates the pump goroutine.
func (l *Listener[T]) Stop() {
	l.cancel()
}

// Start launches the pump goroutine.
func (l *Listener[T]) Start() {
	go l.pump()
}

func (l *Listener[T]) pump() {
	for {
		if l.ctx.Err() != nil {
			return
		}
		anEvent, err := l.publisher.Consume(l.ctx)
		if err != nil {
			if l.ctx.Err() != nil {
				return
			}
			log.Printf("event listener: consume failed: %v", err)
			continue
		}
		if anEvent != nil {
			l.handler(anEvent)
		}
	}
}
