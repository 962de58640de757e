// Package session tracks conversational state across invocations.  A session
// is addressed by (app, userID, id); its events include the pause markers a
// client inspects to discover outstanding approvals.
package session

import (
	"sync"
	"time"

	"github.com/gateflow/gateflow/runtime/invocation"
)

// Session is the durable record of one conversation.
type Session struct {
	App       string                 `json:"app"`
	UserID    string                 `json:"userId"`
	ID        string                 `json:"id"`
	State     map[string]interface{} `json:"state,omitempty"`
	Events    []*invocation.Event    `json:"events,omitempty"`
	CreatedAt time.Time              `json:"createdAt"`
	UpdatedAt time.Time              `json:"updatedAt"`
	mu        sync.RWMutex
}

// New creates a session addressed by (app, userID, id).
func New(app, userID, id string) *Session {
	now := time.Now()
	return &Session{
		App:       app,
		UserID:    userID,
		ID:        id,
		State:     make(map[string]interface{}),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Set adds or updates a state entry
func (s *Session) Set(key string, value interface{}) {
	s.mu.Lock()
	if s.State == nil {
		s.State = make(map[string]interface{})
	}
	s.State[key] = value
	s.UpdatedAt = time.Now()
	s.mu.Unlock()
}

// Get retrieves a state entry
func (s *Session) Get(key string) (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, exists := s.State[key]
	return value, exists
}

// AppendEvents records invocation lifecycle events on the session.
func (s *Session) AppendEvents(events ...*invocation.Event) {
	s.mu.Lock()
	s.Events = append(s.Events, events...)
	s.UpdatedAt = time.Now()
	s.mu.Unlock()
}

// PendingConfirmation scans the session events newest-first for an
// unconsumed confirmation request.
func (s *Session) PendingConfirmation() *invocation.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.Events) - 1; i >= 0; i-- {
		if s.Events[i].Type == invocation.EventConfirmationRequested && !s.Events[i].Consumed {
			return s.Events[i]
		}
	}
	return nil
}

// Clone creates a copy safe to mutate outside the store.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := &Session{
		App:       s.App,
		UserID:    s.UserID,
		ID:        s.ID,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
	if s.State != nil {
		out.State = make(map[string]interface{}, len(s.State))
		for k, v := range s.State {
			out.State[k] = v
		}
	}
	if len(s.Events) > 0 {
		out.Events = append([]*invocation.Event(nil), s.Events...)
	}
	return out
}
