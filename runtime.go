package gateflow

import (
	"context"
	"time"

	"github.com/gateflow/gateflow/policy"
	"github.com/gateflow/gateflow/runtime/correlation"
	"github.com/gateflow/gateflow/runtime/invocation"
	"github.com/gateflow/gateflow/service/approval"
	"github.com/gateflow/gateflow/service/broker"
	"github.com/gateflow/gateflow/service/dao"
	"github.com/gateflow/gateflow/service/engine"
	"github.com/gateflow/gateflow/service/event"
)

// Runtime orchestrates invocation execution: submission through the engine,
// pause detection through the correlation store and resumption through the
// confirmation broker.
type Runtime struct {
	engine        *engine.Service
	broker        *broker.Service
	approvals     approval.Service
	events        *event.Service
	invocationDAO dao.Service[string, invocation.Invocation]
	operationDAO  dao.Service[string, invocation.OperationRequest]
	checkpoints   *correlation.Store
	defaultPolicy *policy.Policy
	eventsCancel  context.CancelFunc
}

// Start starts the runtime workers.
func (r *Runtime) Start(ctx context.Context) error {
	if err := r.engine.Start(ctx); err != nil {
		return err
	}
	if r.events != nil {
		bridgeCtx, cancel := context.WithCancel(ctx)
		r.eventsCancel = cancel
		go r.bridgeApprovalEvents(bridgeCtx)
	}
	return nil
}

// Shutdown stops the runtime.
func (r *Runtime) Shutdown(ctx context.Context) error {
	if r.eventsCancel != nil {
		r.eventsCancel()
	}
	r.engine.Shutdown()
	return nil
}

// bridgeApprovalEvents republishes approval lifecycle events onto the shared
// event service so host applications can subscribe with a typed listener.
func (r *Runtime) bridgeApprovalEvents(ctx context.Context) {
	queue := r.approvals.Queue()
	if queue == nil {
		return
	}
	publisher, err := event.PublisherOf[approval.Event](r.events)
	if err != nil {
		return
	}
	for {
		message, err := queue.Consume(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			continue
		}
		if message == nil {
			continue
		}
		approvalEvent := *message.T()
		_ = publisher.Publish(ctx, event.NewEvent(&event.Context{EventType: approvalEvent.Topic}, approvalEvent))
		_ = message.Ack()
	}
}

// Submit publishes a guarded operation for execution and returns the tracking
// invocation together with a wait function for its first settlement: the wait
// returns when the invocation completes, fails or pauses for approval.
func (r *Runtime) Submit(ctx context.Context, service, method string, input interface{}, sessionID string) (*invocation.Invocation, invocation.Wait, error) {
	if r.defaultPolicy != nil && policy.FromContext(ctx) == nil {
		ctx = policy.WithPolicy(ctx, r.defaultPolicy)
	}
	anInvocation, err := r.engine.StartInvocation(ctx, service, method, input, sessionID)
	if err != nil {
		return nil, nil, err
	}
	wait := func(ctx context.Context, timeout time.Duration) (*invocation.Output, error) {
		settled, waitErr := r.broker.WaitForInvocation(ctx, anInvocation.ID, timeout)
		if settled == nil {
			return nil, waitErr
		}
		return r.snapshot(settled, waitErr != nil), nil
	}
	return anInvocation, wait, nil
}

func (r *Runtime) snapshot(anInvocation *invocation.Invocation, timedOut bool) *invocation.Output {
	return &invocation.Output{
		InvocationID: anInvocation.ID,
		State:        anInvocation.GetState(),
		Output:       anInvocation.Output,
		Errors:       anInvocation.Errors,
		TimeTaken:    time.Since(anInvocation.CreatedAt),
		Timeout:      timedOut,
	}
}

// Invocation returns an invocation by ID.
func (r *Runtime) Invocation(ctx context.Context, id string) (*invocation.Invocation, error) {
	return r.invocationDAO.Load(ctx, id)
}

// Operation returns an operation request by ID.
func (r *Runtime) Operation(ctx context.Context, id string) (*invocation.OperationRequest, error) {
	return r.operationDAO.Load(ctx, id)
}

// Invocations lists stored invocations.
func (r *Runtime) Invocations(ctx context.Context, parameter ...*dao.Parameter) ([]*invocation.Invocation, error) {
	return r.invocationDAO.List(ctx, parameter...)
}

// Detect returns the outstanding checkpoint of a paused invocation, nil when
// the invocation is not waiting for a decision.
func (r *Runtime) Detect(ctx context.Context, invocationID string) (*correlation.Checkpoint, error) {
	return r.broker.Detect(ctx, invocationID)
}

// PendingApprovals lists undecided approval requests.
func (r *Runtime) PendingApprovals(ctx context.Context, filters ...approval.PendingFilter) ([]*approval.Request, error) {
	return approval.ListPending(ctx, r.approvals, filters...)
}

// Resolve applies a decision to the invocation's outstanding checkpoint
// without waiting for the resumed run.
func (r *Runtime) Resolve(ctx context.Context, invocationID, approvalID string, confirmed bool, reason, decidedBy string) (*approval.Decision, error) {
	return r.broker.Resolve(ctx, invocationID, approvalID, confirmed, reason, decidedBy)
}

// Resume applies a decision and blocks until the resumed invocation settles.
func (r *Runtime) Resume(ctx context.Context, invocationID, approvalID string, confirmed bool, reason, decidedBy string, timeout time.Duration) (*invocation.Invocation, error) {
	return r.broker.Resume(ctx, invocationID, approvalID, confirmed, reason, decidedBy, timeout)
}

// Broker exposes the confirmation broker.
func (r *Runtime) Broker() *broker.Service {
	return r.broker
}

// Checkpoints exposes the correlation store.
func (r *Runtime) Checkpoints() *correlation.Store {
	return r.checkpoints
}
