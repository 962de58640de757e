package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/option"
	"github.com/viant/afs/url"

	"github.com/gateflow/gateflow/runtime/invocation"
	"github.com/gateflow/gateflow/service/dao"
	"github.com/gateflow/gateflow/service/dao/criteria"
)

// Service implements a filesystem-based invocation storage
type Service struct {
	basePath string
	fs       afs.Service
	mu       sync.RWMutex
}

var _ dao.Service[string, invocation.Invocation] = (*Service)(nil)

// Save persists an invocation to the filesystem
func (s *Service) Save(ctx context.Context, anInvocation *invocation.Invocation) error {
	if anInvocation == nil {
		return fmt.Errorf("cannot save nil invocation")
	}
	if anInvocation.ID == "" {
		return fmt.Errorf("invocation ID cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(anInvocation)
	if err != nil {
		return fmt.Errorf("failed to marshal invocation: %w", err)
	}

	filePath := s.invocationPath(anInvocation.ID)
	err = s.fs.Upload(ctx, filePath, file.DefaultFileOsMode, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to save invocation to file %s: %w", filePath, err)
	}

	return nil
}

// Load retrieves an invocation from the filesystem
func (s *Service) Load(ctx context.Context, id string) (*invocation.Invocation, error) {
	if id == "" {
		return nil, fmt.Errorf("invocation ID cannot be empty")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	filePath := s.invocationPath(id)
	exists, err := s.fs.Exists(ctx, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to check if invocation exists: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("invocation not found: %s", id)
	}

	data, err := s.fs.DownloadWithURL(ctx, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read invocation file: %w", err)
	}

	var anInvocation invocation.Invocation
	if err := json.Unmarshal(data, &anInvocation); err != nil {
		return nil, fmt.Errorf("failed to unmarshal invocation data: %w", err)
	}

	return &anInvocation, nil
}

// Delete removes an invocation from the filesystem
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("invocation ID cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	filePath := s.invocationPath(id)
	exists, err := s.fs.Exists(ctx, filePath)
	if err != nil {
		return fmt.Errorf("failed to check if invocation exists: %w", err)
	}
	if !exists {
		return fmt.Errorf("invocation not found: %s", id)
	}

	if err := s.fs.Delete(ctx, filePath); err != nil {
		return fmt.Errorf("failed to delete invocation file: %w", err)
	}

	return nil
}

// List returns all invocations from the filesystem
func (s *Service) List(ctx context.Context, parameters ...*dao.Parameter) ([]*invocation.Invocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	objects, err := s.fs.List(ctx, s.basePath, option.NewRecursive(true))
	if err != nil {
		return nil, fmt.Errorf("failed to list invocation files: %w", err)
	}

	var invocations []*invocation.Invocation
	for _, object := range objects {
		if object.IsDir() {
			continue
		}
		if !strings.HasSuffix(object.Name(), ".json") {
			continue
		}

		data, err := s.fs.Download(ctx, object)
		if err != nil {
			// keep going; a single unreadable file should not hide the rest
			continue
		}

		var anInvocation invocation.Invocation
		if err := json.Unmarshal(data, &anInvocation); err != nil {
			continue
		}
		if !criteria.FilterByState(anInvocation.State, parameters) {
			continue
		}
		invocations = append(invocations, &anInvocation)
	}

	return invocations, nil
}

// invocationPath returns the file URL for an invocation
func (s *Service) invocationPath(id string) string {
	return url.Join(s.basePath, fmt.Sprintf("%s.json", id))
}

// New creates a new filesystem invocation storage service
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
