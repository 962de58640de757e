package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/gateflow/gateflow/service/session"
)

// Service implements an in-memory, thread-safe session store.
type Service struct {
	sessions map[string]*session.Session
	mux      sync.RWMutex
}

var _ session.Store = (*Service)(nil)

func key(app, userID, id string) string {
	return strings.Join([]string{app, userID, id}, "/")
}

func (s *Service) Create(_ context.Context, app, userID, id string) (*session.Session, error) {
	if app == "" || userID == "" || id == "" {
		return nil, fmt.Errorf("app, userID and id are required")
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	k := key(app, userID, id)
	if existing, ok := s.sessions[k]; ok {
		return existing, nil
	}
	ret := session.New(app, userID, id)
	s.sessions[k] = ret
	return ret, nil
}

func (s *Service) Get(_ context.Context, app, userID, id string) (*session.Session, error) {
	s.mux.RLock()
	ret, ok := s.sessions[key(app, userID, id)]
	s.mux.RUnlock()
	if !ok {
		return nil, session.ErrNotFound
	}
	return ret, nil
}

func (s *Service) Save(_ context.Context, sess *session.Session) error {
	if sess == nil {
		return fmt.Errorf("cannot save nil session")
	}
	s.mux.Lock()
	s.sessions[key(sess.App, sess.UserID, sess.ID)] = sess
	s.mux.Unlock()
	return nil
}

func (s *Service) Delete(_ context.Context, app, userID, id string) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	k := key(app, userID, id)
	if _, ok := s.sessions[k]; !ok {
		return session.ErrNotFound
	}
	delete(s.sessions, k)
	return nil
}

func New() *Service {
	return &Service{sessions: map[string]*session.Session{}}
}
