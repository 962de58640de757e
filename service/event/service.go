package event

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/viant/afs"

	"github.com/gateflow/gateflow/service/messaging"
	"github.com/gateflow/gateflow/service/messaging/fs"
	"github.com/gateflow/gateflow/service/messaging/memory"
)

// Service hands out one queue-backed publisher per event payload type, plus a
// shared untyped publisher every typed publisher mirrors into.  Queues are
// created lazily through the configured vendor ("memory" or "fs").
type Service struct {
	vendor      messaging.Vendor
	fsConfigFn  func(name string) fs.Config
	memConfigFn func(name string) memory.Config

	publisher  *Publisher[any]
	listener   *Listener[any]
	publishers map[reflect.Type]any
	listeners  map[reflect.Type]any
	mux        sync.RWMutex
}

// New creates an event service for the given queue vendor.  The vendor's
// config factory must be supplied through the matching option.
func New(queueVendor messaging.Vendor, opts ...Option) (*Service, error) {
	ret := &Service{
		vendor:     queueVendor,
		publishers: make(map[reflect.Type]any),
		listeners:  make(map[reflect.Type]any),
	}
	for _, opt := range opts {
		opt(ret)
	}

	switch queueVendor {
	case "fs":
		if ret.fsConfigFn == nil {
			return nil, fmt.Errorf("fs queue vendor requires a queue config factory")
		}
	case "memory":
		if ret.memConfigFn == nil {
			return nil, fmt.Errorf("memory queue vendor requires a queue config factory")
		}
	default:
		return nil, fmt.Errorf("unsupported queue vendor: %s", queueVendor)
	}

	queue, err := QueueOf[Event[any]](ret, "any")
	if err != nil {
		return nil, err
	}
	ret.publisher = NewPublisher[any](queue)
	return ret, nil
}

// SetListener replaces the untyped fan-out listener.
func (s *Service) SetListener(handler func(*Event[any])) {
	if s.listener != nil {
		s.listener.Stop()
	}
	s.listener = NewListener[any](s.publisher, handler)
	s.listener.Start()
}

// QueueOf builds a vendor queue for the named event stream.
func QueueOf[T any](s *Service, name string) (messaging.Queue[T], error) {
	switch s.vendor {
	case "fs":
		return fs.NewQueue[T](afs.New(), s.fsConfigFn(name))
	case "memory":
		return memory.NewQueue[T](s.memConfigFn(name)), nil
	}
	return nil, fmt.Errorf("unsupported queue vendor: %s", s.vendor)
}

// PublisherOf returns the shared publisher for payload type T, creating its
// queue on first use.
func PublisherOf[T any](s *Service) (*Publisher[T], error) {
	key := keyOf[T]()
	s.mux.RLock()
	existing, ok := s.publishers[key]
	s.mux.RUnlock()
	if ok {
		return existing.(*Publisher[T]), nil
	}

	queue, err := QueueOf[Event[T]](s, key.String())
	if err != nil {
		return nil, err
	}
	publisher := NewPublisher[T](queue)
	publisher.anyQueue = s.publisher.queue

	s.mux.Lock()
	defer s.mux.Unlock()
	if existing, ok := s.publishers[key]; ok {
		return existing.(*Publisher[T]), nil
	}
	s.publishers[key] = publisher
	return publisher, nil
}

// SetListenerOf subscribes handler to payload type T, replacing any previous
// subscription for that type.
func SetListenerOf[T any](s *Service, handler func(*Event[T])) error {
	key := keyOf[T]()
	s.mux.RLock()
	previous, ok := s.listeners[key]
	s.mux.RUnlock()
	if ok {
		previous.(*Listener[T]).Stop()
	}

	publisher, err := PublisherOf[T](s)
	if err != nil {
		return err
	}
	listener := NewListener[T](publisher, handler)

	s.mux.Lock()
	s.listeners[key] = listener
	s.mux.Unlock()
	listener.Start()
	return nil
}

func keyOf[T any]() reflect.Type {
	var probe T
	rType := reflect.TypeOf(probe)
	if rType == nil {
		rType = reflect.TypeOf((*T)(nil)).Elem()
	}
	if rType.Kind() == reflect.Ptr {
		rType = rType.Elem()
	}
	return rType
}
