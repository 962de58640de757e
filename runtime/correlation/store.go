package correlation

import "sync"

// Store is an in-memory implementation satisfying basic operations needed by
// the broker/engine communication.  It can be replaced by a Redis or DB
// implementation later without changing callers.
type Store struct {
	mu          sync.RWMutex
	checkpoints map[string]*Checkpoint
}

func NewStore() *Store {
	return &Store{checkpoints: make(map[string]*Checkpoint)}
}

// Iterate executes fn for each checkpoint under read lock.
func (s *Store) Iterate(fn func(id string, c *Checkpoint)) {
	s.mu.RLock()
	for id, c := range s.checkpoints {
		fn(id, c)
	}
	s.mu.RUnlock()
}

// Create registers a new checkpoint. If it already exists the existing
// pointer is returned.
func (s *Store) Create(c *Checkpoint) *Checkpoint {
	s.mu.Lock()
	if existing, ok := s.checkpoints[c.ID]; ok {
		s.mu.Unlock()
		return existing
	}
	s.checkpoints[c.ID] = c
	s.mu.Unlock()
	return c
}

func (s *Store) Get(id string) *Checkpoint {
	s.mu.RLock()
	c := s.checkpoints[id]
	s.mu.RUnlock()
	return c
}

// ByInvocation returns the outstanding checkpoints owned by an invocation.
// A well-behaved engine keeps this at most one; callers treat more than one
// as an ambiguity they must refuse to resolve.
func (s *Store) ByInvocation(invocationID string) []*Checkpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Checkpoint
	for _, c := range s.checkpoints {
		if c.InvocationID == invocationID && !c.Consumed() {
			out = append(out, c)
		}
	}
	return out
}

func (s *Store) Delete(id string) {
	s.mu.Lock()
	delete(s.checkpoints, id)
	s.mu.Unlock()
}
