package event

import (
	"github.com/gateflow/gateflow/service/messaging/fs"
	"github.com/gateflow/gateflow/service/messaging/memory"
)

type Option func(s *Service)

// WithNewFsQueueConfig supplies the per-stream fs queue configuration.
func WithNewFsQueueConfig(newConfig func(name string) fs.Config) Option {
	return func(s *Service) {
		s.fsConfigFn = newConfig
	}
}

// WithNewMemoryQueueConfig supplies the per-stream memory queue configuration.
func WithNewMemoryQueueConfig(newConfig func(name string) memory.Config) Option {
	return func(s *Service) {
		s.memConfigFn = newConfig
	}
}
