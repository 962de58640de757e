package engine

import (
	"github.com/gateflow/gateflow/runtime/correlation"
	"github.com/gateflow/gateflow/runtime/invocation"
	"github.com/gateflow/gateflow/service/approval"
	"github.com/gateflow/gateflow/service/dao"
	"github.com/gateflow/gateflow/service/executor"
	"github.com/gateflow/gateflow/service/messaging"
	"github.com/gateflow/gateflow/service/session"
)

type Option func(*Service)

// WithInvocationDAO sets the invocation store implementation
func WithInvocationDAO(invocationDAO dao.Service[string, invocation.Invocation]) Option {
	return func(s *Service) {
		s.invocationDAO = invocationDAO
	}
}

// WithOperationDAO sets the operation store implementation
func WithOperationDAO(operationDAO dao.Service[string, invocation.OperationRequest]) Option {
	return func(s *Service) {
		s.operationDAO = operationDAO
	}
}

// WithMessageQueue sets the message queue implementation
func WithMessageQueue(queue messaging.Queue[invocation.OperationRequest]) Option {
	return func(s *Service) {
		s.queue = queue
	}
}

// WithExecutor sets the operation executor for the service
func WithExecutor(executor executor.Service) Option {
	return func(s *Service) {
		s.executor = executor
	}
}

// WithApprovals sets the approval service used for pending outcomes
func WithApprovals(approvals approval.Service) Option {
	return func(s *Service) {
		s.approvals = approvals
	}
}

// WithCheckpoints sets the correlation store for outstanding approvals
func WithCheckpoints(store *correlation.Store) Option {
	return func(s *Service) {
		s.checkpoints = store
	}
}

// WithCheckpointDAO persists checkpoints so outstanding approvals survive a
// restart
func WithCheckpointDAO(dao correlation.DAO) Option {
	return func(s *Service) {
		s.checkpointDAO = dao
	}
}

// WithSessions lets the engine mirror pause markers to the owning session
func WithSessions(sessions session.Store, app, userID string) Option {
	return func(s *Service) {
		s.sessions = sessions
		s.sessionApp = app
		s.sessionUser = userID
	}
}

// WithWorkers sets the number of worker goroutines
func WithWorkers(count int) Option {
	return func(s *Service) {
		s.config.WorkerCount = count
	}
}

// WithConfig sets the configuration for the service
func WithConfig(config Config) Option {
	return func(s *Service) {
		s.config = config
	}
}
