package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"

	"github.com/gateflow/gateflow/service/session"
)

// Service implements a filesystem-based session store
type Service struct {
	basePath string
	fs       afs.Service
	mu       sync.RWMutex
}

var _ session.Store = (*Service)(nil)

func (s *Service) Create(ctx context.Context, app, userID, id string) (*session.Session, error) {
	if app == "" || userID == "" || id == "" {
		return nil, fmt.Errorf("app, userID and id are required")
	}
	if existing, err := s.Get(ctx, app, userID, id); err == nil {
		return existing, nil
	}
	ret := session.New(app, userID, id)
	if err := s.Save(ctx, ret); err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *Service) Get(ctx context.Context, app, userID, id string) (*session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	filePath := s.sessionPath(app, userID, id)
	exists, err := s.fs.Exists(ctx, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to check if session exists: %w", err)
	}
	if !exists {
		return nil, session.ErrNotFound
	}

	data, err := s.fs.DownloadWithURL(ctx, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var sess session.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session data: %w", err)
	}
	return &sess, nil
}

func (s *Service) Save(ctx context.Context, sess *session.Session) error {
	if sess == nil {
		return fmt.Errorf("cannot save nil session")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	filePath := s.sessionPath(sess.App, sess.UserID, sess.ID)
	if err = s.fs.Upload(ctx, filePath, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to save session to file %s: %w", filePath, err)
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, app, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	filePath := s.sessionPath(app, userID, id)
	exists, err := s.fs.Exists(ctx, filePath)
	if err != nil {
		return fmt.Errorf("failed to check if session exists: %w", err)
	}
	if !exists {
		return session.ErrNotFound
	}
	if err := s.fs.Delete(ctx, filePath); err != nil {
		return fmt.Errorf("failed to delete session file: %w", err)
	}
	return nil
}

func (s *Service) sessionPath(app, userID, id string) string {
	return path.Join(s.basePath, app, userID, fmt.Sprintf("%s.json", id))
}

// New creates a new filesystem session store
func New(basePath string) (*Service, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}

	fs := afs.New()

	ctx := context.Background()
	exists, _ := fs.Exists(ctx, basePath)
	if !exists {
		if err := fs.Create(ctx, basePath, file.DefaultDirOsMode, true); err != nil {
			return nil, fmt.Errorf("failed to create base directory: %w", err)
		}
	}

	basePath = url.Normalize(basePath, file.Scheme)

	return &Service{
		basePath: basePath,
		fs:       fs,
	}, nil
}
