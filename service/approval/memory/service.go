package memory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gateflow/gateflow/model/types"
	"github.com/gateflow/gateflow/runtime/correlation"
	"github.com/gateflow/gateflow/runtime/invocation"
	"github.com/gateflow/gateflow/service/approval"
	"github.com/gateflow/gateflow/service/dao"
	"github.com/gateflow/gateflow/service/dao/store"
	"github.com/gateflow/gateflow/service/messaging"
	qmem "github.com/gateflow/gateflow/service/messaging/memory"
)

type service struct {
	operationDao dao.Service[string, invocation.OperationRequest]

	// DAO-backed stores
	reqDAO dao.Service[string, approval.Request]
	decDAO dao.Service[string, approval.Decision]

	// fan-out queue
	events messaging.Queue[approval.Event]

	// owning invocation store (optional - only needed when we want to update
	// the operation embedded in the invocation's stack after a decision).
	invocationDao dao.Service[string, invocation.Invocation]

	// operation queue (optional - republishes a decided operation so the
	// engine resumes it).
	opQueue messaging.Queue[invocation.OperationRequest]

	// checkpoint store (optional - consumed alongside the decision).
	checkpoints *correlation.Store
}

// key selectors - grab ID field
func reqKey(r *approval.Request) string  { return r.ID }
func decKey(d *approval.Decision) string { return d.ID }

func New(operationDao dao.Service[string, invocation.OperationRequest], options ...Option) approval.Service {
	ret := &service{
		operationDao: operationDao,
		reqDAO:       store.NewMemoryStore[string, approval.Request](reqKey),
		decDAO:       store.NewMemoryStore[string, approval.Decision](decKey),
		events:       qmem.NewQueue[approval.Event](qmem.DefaultConfig()),
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

func (s *service) RequestApproval(ctx context.Context, r *approval.Request) error {
	if r == nil {
		return errors.New("invalid request")
	}

	// Ensure the request has a globally unique identifier.  If the caller did
	// not specify one we fall back to OperationID (unique within a run).
	if r.ID == "" {
		switch {
		case r.OperationID != "":
			r.ID = r.OperationID
		case r.InvocationID != "":
			r.ID = fmt.Sprintf("%s/%d", r.InvocationID, time.Now().UnixNano())
		default:
			r.ID = fmt.Sprintf("anon-%d", time.Now().UnixNano())
		}
	}

	// At most one outstanding request per invocation.  A re-submission of
	// the same request ID is idempotent; a different one is refused.
	if r.InvocationID != "" {
		pending, err := s.ListPending(ctx)
		if err != nil {
			return err
		}
		for _, p := range pending {
			if p.InvocationID != r.InvocationID {
				continue
			}
			if p.ID == r.ID {
				return nil
			}
			return approval.ErrRequestActive
		}
	}

	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	if err := s.reqDAO.Save(ctx, r); err != nil {
		return err
	}
	_ = s.events.Publish(ctx, &approval.Event{Topic: approval.TopicRequestCreated, Data: r})
	return nil
}

func (s *service) ListPending(ctx context.Context) ([]*approval.Request, error) {
	all, err := s.reqDAO.List(ctx)
	if err != nil {
		return nil, err
	}
	pending := make([]*approval.Request, 0, len(all))
	for _, r := range all {
		if d, _ := s.decDAO.Load(ctx, r.ID); d == nil {
			pending = append(pending, r)
		}
	}
	return pending, nil
}

func (s *service) GetDecision(ctx context.Context, id string) (*approval.Decision, error) {
	if id == "" {
		return nil, errors.New("empty id")
	}
	return s.decDAO.Load(ctx, id)
}

func (s *service) Decide(ctx context.Context, id string, ok bool, reason string) (*approval.Decision, error) {
	if id == "" {
		return nil, errors.New("empty id")
	}
	request, _ := s.reqDAO.Load(ctx, id)
	if request == nil {
		return nil, fmt.Errorf("%w: %s", approval.ErrRequestNotFound, id)
	}
	if d, _ := s.decDAO.Load(ctx, id); d != nil {
		return nil, fmt.Errorf("%w: %s", approval.ErrAlreadyDecided, id)
	}

	confirmation := &types.Confirmation{ApprovalID: id, Confirmed: ok}

	// If the service has been initialised with an operation DAO and the
	// request is linked to a concrete operation, attach the decision and
	// rewind the operation so the engine re-dispatches it.  The DAO is
	// optional because the approval service can be used as a standalone
	// component where no operation tracking exists.
	var resumed *invocation.OperationRequest
	if s.operationDao != nil && request.OperationID != "" {
		operation, err := s.operationDao.Load(ctx, request.OperationID)
		if err != nil {
			return nil, err
		}

		operation.Resume(confirmation)
		if err = s.operationDao.Save(ctx, operation); err != nil {
			return nil, err
		}
		resumed = operation

		// Update the parent invocation copy so that readers see the change.
		if s.invocationDao != nil && request.InvocationID != "" {
			if inv, iErr := s.invocationDao.Load(ctx, request.InvocationID); iErr == nil && inv != nil {
				if op := inv.LookupOperation(request.OperationID); op != nil {
					op.Confirmation = confirmation
					op.State = invocation.OperationStatePending
				}
				if marker := inv.PendingConfirmation(); marker != nil && marker.ApprovalID == id {
					marker.Consumed = true
				}
				inv.AppendEvent(invocation.NewConfirmationDecided(request.InvocationID, id, ok))
				inv.SetState(invocation.StateRunning)
				_ = s.invocationDao.Save(ctx, inv)
			}
		}
	}

	d := &approval.Decision{
		ID:        id,
		Approved:  ok,
		Reason:    reason,
		DecidedAt: time.Now(),
	}
	if err := s.decDAO.Save(ctx, d); err != nil {
		return nil, err
	}

	// Consume only once the decision is durable; a save failure leaves the
	// checkpoint outstanding for a retry.
	if s.checkpoints != nil {
		if checkpoint := s.checkpoints.Get(id); checkpoint != nil {
			checkpoint.Consume(ok, "")
		}
	}
	_ = s.events.Publish(ctx, &approval.Event{Topic: approval.TopicDecisionCreated, Data: d})

	// Republish last so a consumer never races the recorded decision.
	if s.opQueue != nil && resumed != nil {
		if err := s.opQueue.Publish(ctx, resumed); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (s *service) Queue() messaging.Queue[approval.Event] { return s.events }

var _ approval.Service = (*service)(nil)
