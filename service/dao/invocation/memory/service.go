package memory

import (
	"context"
	"sync"

	"github.com/gateflow/gateflow/runtime/invocation"
	"github.com/gateflow/gateflow/service/dao"
	"github.com/gateflow/gateflow/service/dao/criteria"
)

// Service implements an in-memory, thread-safe store for invocations.  All
// API methods work with copies to eliminate data races between goroutines.
type Service struct {
	invocations map[string]*invocation.Invocation
	mux         sync.RWMutex
}

var _ dao.Service[string, invocation.Invocation] = (*Service)(nil)

func (s *Service) Save(_ context.Context, p *invocation.Invocation) error {
	if p == nil {
		return dao.ErrNilEntity
	}
	if p.ID == "" {
		return dao.ErrInvalidID
	}

	s.mux.Lock()
	defer s.mux.Unlock()

	if existing, ok := s.invocations[p.ID]; ok && existing != nil {
		existing.CopyFrom(p)
	} else {
		s.invocations[p.ID] = p
	}
	return nil
}

func (s *Service) Load(_ context.Context, id string) (*invocation.Invocation, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}

	s.mux.RLock()
	p, ok := s.invocations[id]
	s.mux.RUnlock()

	if !ok {
		return nil, dao.ErrNotFound
	}
	return p, nil
}

func (s *Service) Delete(_ context.Context, id string) error {
	if id == "" {
		return dao.ErrInvalidID
	}

	s.mux.Lock()
	defer s.mux.Unlock()

	if _, ok := s.invocations[id]; !ok {
		return dao.ErrNotFound
	}
	delete(s.invocations, id)
	return nil
}

func (s *Service) List(_ context.Context, parameters ...*dao.Parameter) ([]*invocation.Invocation, error) {
	s.mux.RLock()
	defer s.mux.RUnlock()

	out := make([]*invocation.Invocation, 0, len(s.invocations))
	for _, p := range s.invocations {
		if !criteria.FilterByState(p.State, parameters) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func New() *Service {
	return &Service{invocations: map[string]*invocation.Invocation{}}
}
