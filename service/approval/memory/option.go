package memory

import (
	"github.com/gateflow/gateflow/runtime/correlation"
	"github.com/gateflow/gateflow/runtime/invocation"
	"github.com/gateflow/gateflow/service/dao"
	"github.com/gateflow/gateflow/service/messaging"
)

type Option func(*service)

// WithInvocationDAO allows the approval service to update the parent
// invocation when a decision is made, so readers see the attached decision
// and cleared pause marker.
func WithInvocationDAO(dao dao.Service[string, invocation.Invocation]) Option {
	return func(s *service) { s.invocationDao = dao }
}

// WithOperationQueue attaches the operation queue so that the approval
// service can re-schedule an operation automatically after a decision has
// been recorded.  Once a decision lands the service publishes the operation
// back to the queue so that the engine picks it up with the decision
// attached.
func WithOperationQueue(q messaging.Queue[invocation.OperationRequest]) Option {
	return func(s *service) { s.opQueue = q }
}

// WithCheckpoints lets the service consume the matching checkpoint when a
// decision is recorded, keeping the correlation store in sync.
func WithCheckpoints(store *correlation.Store) Option {
	return func(s *service) { s.checkpoints = store }
}
