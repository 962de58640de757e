package gateflow

import (
	"github.com/viant/x"

	"github.com/gateflow/gateflow/handler"
	"github.com/gateflow/gateflow/handler/shipping"
	"github.com/gateflow/gateflow/model/types"
	"github.com/gateflow/gateflow/policy"
	"github.com/gateflow/gateflow/runtime/correlation"
	"github.com/gateflow/gateflow/runtime/invocation"
	"github.com/gateflow/gateflow/service/approval"
	amemory "github.com/gateflow/gateflow/service/approval/memory"
	"github.com/gateflow/gateflow/service/broker"
	imemory "github.com/gateflow/gateflow/service/dao/invocation/memory"
	"github.com/gateflow/gateflow/service/dao/store"
	"github.com/gateflow/gateflow/service/engine"
	"github.com/gateflow/gateflow/service/event"
	"github.com/gateflow/gateflow/service/executor"
	"github.com/gateflow/gateflow/service/messaging"
	mmemory "github.com/gateflow/gateflow/service/messaging/memory"
	"github.com/gateflow/gateflow/service/session"
)

// Service is the gateflow façade.  It wires the handler registry, the
// execution engine, the approval service and the confirmation broker into a
// single embeddable unit.
type Service struct {
	runtime           *Runtime
	handlers          *handler.Registry
	extensionTypes    []*x.Type
	extensionServices []types.Service
	executor          executor.Service
	executorOptions   []executor.Option
	queue             messaging.Queue[invocation.OperationRequest]
	approvalService   approval.Service
	eventService      *event.Service
	sessions          session.Store
	sessionApp        string
	sessionUser       string
	checkpointDAO     correlation.DAO
	policy            *policy.Policy
	config            *Config
	engineWorkers     int
}

func (s *Service) init(options []Option) {
	for _, option := range options {
		option(s)
	}
	s.ensureBaseSetup()
	s.handlers = handler.New(s.extensionTypes...)
	s.executor = executor.NewService(s.handlers, s.executorOptions...)

	if s.approvalService == nil {
		s.approvalService = amemory.New(s.runtime.operationDAO,
			amemory.WithInvocationDAO(s.runtime.invocationDAO),
			amemory.WithOperationQueue(s.queue),
			amemory.WithCheckpoints(s.runtime.checkpoints),
		)
	}
	s.runtime.approvals = s.approvalService
	s.runtime.events = s.eventService
	s.runtime.defaultPolicy = s.policy

	engineOptions := []engine.Option{
		engine.WithExecutor(s.executor),
		engine.WithMessageQueue(s.queue),
		engine.WithInvocationDAO(s.runtime.invocationDAO),
		engine.WithOperationDAO(s.runtime.operationDAO),
		engine.WithApprovals(s.approvalService),
		engine.WithCheckpoints(s.runtime.checkpoints),
		engine.WithWorkers(s.engineWorkers),
		engine.WithConfig(s.engineConfig()),
	}
	if s.checkpointDAO != nil {
		engineOptions = append(engineOptions, engine.WithCheckpointDAO(s.checkpointDAO))
	}
	if s.sessions != nil {
		engineOptions = append(engineOptions, engine.WithSessions(s.sessions, s.sessionApp, s.sessionUser))
	}
	s.runtime.engine, _ = engine.New(engineOptions...)
	s.runtime.broker = broker.New(s.runtime.checkpoints, s.runtime.invocationDAO, s.approvalService)

	s.handlers.Register(shipping.New())
	for _, service := range s.extensionServices {
		s.handlers.Register(service)
	}
}

func (s *Service) ensureBaseSetup() {
	if s.config == nil {
		s.config = DefaultConfig()
	}
	if s.engineWorkers <= 0 {
		s.engineWorkers = s.config.Engine.WorkerCount
	}
	if s.policy == nil && s.config.Policy != nil {
		s.policy = policy.FromConfig(s.config.Policy)
	}
	if s.queue == nil {
		s.queue = mmemory.NewQueue[invocation.OperationRequest](mmemory.DefaultConfig())
	}
	if s.runtime.invocationDAO == nil {
		s.runtime.invocationDAO = imemory.New()
	}
	if s.runtime.operationDAO == nil {
		s.runtime.operationDAO = store.NewMemoryStore[string, invocation.OperationRequest](
			func(o *invocation.OperationRequest) string { return o.ID },
		)
	}
	if s.runtime.checkpoints == nil {
		s.runtime.checkpoints = correlation.NewStore()
	}
}

func (s *Service) engineConfig() engine.Config {
	return engine.Config{
		WorkerCount:         s.engineWorkers,
		MaxOperationRetries: s.config.Engine.MaxRetries,
		RetryDelay:          s.config.Engine.RetryDelay,
	}
}

// RegisterExtensionTypes registers additional handler input/output types.
func (s *Service) RegisterExtensionTypes(types ...*x.Type) {
	for i := range types {
		s.handlers.Types().Register(types[i])
	}
}

// RegisterExtensionServices registers additional handler services.
func (s *Service) RegisterExtensionServices(services ...types.Service) {
	for i := range services {
		s.handlers.Register(services[i])
	}
}

// Runtime returns the execution runtime.
func (s *Service) Runtime() *Runtime {
	return s.runtime
}

// Approvals returns the approval service.
func (s *Service) Approvals() approval.Service {
	return s.approvalService
}

// New creates a gateflow service.
func New(options ...Option) *Service {
	ret := &Service{runtime: &Runtime{}}
	ret.init(options)
	return ret
}
