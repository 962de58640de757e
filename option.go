package gateflow

import (
	"github.com/viant/x"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/gateflow/gateflow/model/types"
	"github.com/gateflow/gateflow/policy"
	"github.com/gateflow/gateflow/runtime/correlation"
	"github.com/gateflow/gateflow/runtime/invocation"
	"github.com/gateflow/gateflow/service/approval"
	"github.com/gateflow/gateflow/service/dao"
	"github.com/gateflow/gateflow/service/event"
	"github.com/gateflow/gateflow/service/executor"
	"github.com/gateflow/gateflow/service/messaging"
	"github.com/gateflow/gateflow/service/session"
	"github.com/gateflow/gateflow/tracing"
)

// Option customises the gateflow service.
type Option func(s *Service)

// WithApprovalService sets the approval service
func WithApprovalService(svc approval.Service) Option {
	return func(s *Service) { s.approvalService = svc }
}

// WithExtensionTypes sets the extension types
func WithExtensionTypes(types ...*x.Type) Option {
	return func(s *Service) {
		s.extensionTypes = types
	}
}

func WithEventService(service *event.Service) Option {
	return func(s *Service) {
		s.eventService = service
	}
}

// WithExtensionServices sets the extension handler services
func WithExtensionServices(services ...types.Service) Option {
	return func(s *Service) {
		s.extensionServices = services
	}
}

// WithQueue sets the operation message queue
func WithQueue(queue messaging.Queue[invocation.OperationRequest]) Option {
	return func(s *Service) {
		s.queue = queue
	}
}

// WithInvocationDAO sets the invocation DAO
func WithInvocationDAO(dao dao.Service[string, invocation.Invocation]) Option {
	return func(s *Service) {
		s.runtime.invocationDAO = dao
	}
}

// WithOperationDAO sets the operation DAO
func WithOperationDAO(dao dao.Service[string, invocation.OperationRequest]) Option {
	return func(s *Service) {
		s.runtime.operationDAO = dao
	}
}

// WithCheckpointDAO sets an optional durable store for open checkpoints.
func WithCheckpointDAO(dao correlation.DAO) Option {
	return func(s *Service) {
		s.checkpointDAO = dao
	}
}

// WithSessionStore attaches a session store; pause markers for invocations
// submitted with a session ID are mirrored into the session event log.
func WithSessionStore(store session.Store, app, userID string) Option {
	return func(s *Service) {
		s.sessions = store
		s.sessionApp = app
		s.sessionUser = userID
	}
}

// WithPolicy sets a default approval policy applied to every submitted
// invocation that does not carry its own.
func WithPolicy(p *policy.Policy) Option {
	return func(s *Service) {
		s.policy = p
	}
}

// WithEngineWorkers sets the engine worker count
func WithEngineWorkers(count int) Option {
	return func(s *Service) {
		s.engineWorkers = count
	}
}

// WithConfig applies a serialisable configuration
func WithConfig(config *Config) Option {
	return func(s *Service) {
		s.config = config
	}
}

// WithExecutorOptions lets the caller supply additional options passed to
// executor.NewService (e.g. disabling the default StdoutListener).
func WithExecutorOptions(opts ...executor.Option) Option {
	return func(s *Service) {
		s.executorOptions = append(s.executorOptions, opts...)
	}
}

// WithTracing configures OpenTelemetry tracing for the service. If outputFile is empty the
// stdout exporter is used; otherwise traces are written to the supplied file path. The function is
// safe to call multiple times – the first successful initialisation wins.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		_ = tracing.Init(serviceName, serviceVersion, outputFile)
	}
}

// WithTracingExporter configures OpenTelemetry tracing using a custom SpanExporter. This enables
// integrations with exporters other than the built-in stdout exporter, for example OTLP, Jaeger or
// Zipkin. The function is safe to call multiple times – the first successful initialisation wins.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		_ = tracing.InitWithExporter(serviceName, serviceVersion, exporter)
	}
}
